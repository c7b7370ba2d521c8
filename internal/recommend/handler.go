// HTTP handlers for the recommend service.
//
// All routes expect an x-user-id header forwarded by the Gateway.
//
// Routes:
//
//	GET  /recommendations                     → ranked recommendations (limit, minScore, refresh)
//	GET  /recommendations/saved               → saved recommendations
//	GET  /recommendations/stats               → aggregate stats
//	GET  /recommendations/{id}                → single recommendation (marks viewed)
//	POST /recommendations/{id}/save           → set/clear saved flag
//	POST /recommendations/{id}/feedback       → set 1-5 rating
//	POST /recommendations/{id}/applied        → mark applied through
package recommend

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
)

// Handler holds shared dependencies for the HTTP layer.
type Handler struct {
	svc *Service
}

// NewHandler returns a configured Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts all recommend-service routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/recommendations", h.handleRecommendations)
	mux.HandleFunc("/recommendations/", h.handleRecommendationSub)
}

// ─── Route dispatch ───────────────────────────────────────────────────────────

// handleRecommendations handles GET /recommendations
func (h *Handler) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.listRecommendations(w, r)
}

// handleRecommendationSub handles
// GET  /recommendations/{id}|saved|stats
// POST /recommendations/{id}/save|feedback|applied
func (h *Handler) handleRecommendationSub(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")

	switch {
	case len(parts) == 2 && r.Method == http.MethodGet:
		switch parts[1] {
		case "saved":
			h.listSaved(w, r)
		case "stats":
			h.stats(w, r)
		default:
			h.getRecommendation(w, r, parts[1])
		}
	case len(parts) == 3 && r.Method == http.MethodPost:
		recID, action := parts[1], parts[2]
		switch action {
		case "save":
			h.setSaved(w, r, recID)
		case "feedback":
			h.setFeedback(w, r, recID)
		case "applied":
			h.markApplied(w, r, recID)
		default:
			jsonError(w, fmt.Sprintf("unknown action %q", action), http.StatusNotFound)
		}
	default:
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// ─── Individual handlers ──────────────────────────────────────────────────────

func (h *Handler) listRecommendations(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("x-user-id")
	if userID == "" {
		jsonError(w, "missing x-user-id header", http.StatusUnauthorized)
		return
	}

	opts, err := parseOptions(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	items, err := h.svc.GetRecommendations(r.Context(), userID, opts)
	if err != nil {
		h.writeServiceError(w, "listRecommendations", err)
		return
	}

	jsonOK(w, items)
}

func (h *Handler) getRecommendation(w http.ResponseWriter, r *http.Request, recID string) {
	userID := r.Header.Get("x-user-id")
	if userID == "" {
		jsonError(w, "missing x-user-id header", http.StatusUnauthorized)
		return
	}

	item, err := h.svc.GetRecommendation(r.Context(), userID, recID)
	if err != nil {
		h.writeServiceError(w, "getRecommendation", err)
		return
	}

	jsonOK(w, item)
}

func (h *Handler) listSaved(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("x-user-id")
	if userID == "" {
		jsonError(w, "missing x-user-id header", http.StatusUnauthorized)
		return
	}

	items, err := h.svc.SavedRecommendations(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, "listSaved", err)
		return
	}

	jsonOK(w, items)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("x-user-id")
	if userID == "" {
		jsonError(w, "missing x-user-id header", http.StatusUnauthorized)
		return
	}

	st, err := h.svc.Stats(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, "stats", err)
		return
	}

	jsonOK(w, st)
}

func (h *Handler) setSaved(w http.ResponseWriter, r *http.Request, recID string) {
	userID := r.Header.Get("x-user-id")
	if userID == "" {
		jsonError(w, "missing x-user-id header", http.StatusUnauthorized)
		return
	}

	var body struct {
		Saved *bool `json:"saved"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Saved == nil {
		jsonError(w, "body must contain saved", http.StatusBadRequest)
		return
	}

	item, err := h.svc.SetSaved(r.Context(), userID, recID, *body.Saved)
	if err != nil {
		h.writeServiceError(w, "setSaved", err)
		return
	}

	jsonOK(w, item)
}

func (h *Handler) setFeedback(w http.ResponseWriter, r *http.Request, recID string) {
	userID := r.Header.Get("x-user-id")
	if userID == "" {
		jsonError(w, "missing x-user-id header", http.StatusUnauthorized)
		return
	}

	var body struct {
		Rating int `json:"rating"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if body.Rating < 1 || body.Rating > 5 {
		jsonError(w, "rating must be between 1 and 5", http.StatusBadRequest)
		return
	}

	item, err := h.svc.SetFeedback(r.Context(), userID, recID, body.Rating)
	if err != nil {
		h.writeServiceError(w, "setFeedback", err)
		return
	}

	jsonOK(w, item)
}

func (h *Handler) markApplied(w http.ResponseWriter, r *http.Request, recID string) {
	userID := r.Header.Get("x-user-id")
	if userID == "" {
		jsonError(w, "missing x-user-id header", http.StatusUnauthorized)
		return
	}

	item, err := h.svc.MarkApplied(r.Context(), userID, recID)
	if err != nil {
		h.writeServiceError(w, "markApplied", err)
		return
	}

	jsonOK(w, item)
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// parseOptions validates the limit / minScore / refresh query parameters.
// Malformed values are rejected before any work happens.
func parseOptions(r *http.Request) (Options, error) {
	opts := Options{Limit: DefaultLimit, MinScore: DefaultMinScore}
	q := r.URL.Query()

	if s := q.Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 || v > 100 {
			return Options{}, fmt.Errorf("limit must be an integer between 1 and 100, got %q", s)
		}
		opts.Limit = v
	}

	if s := q.Get("minScore"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 0 || v > 100 {
			return Options{}, fmt.Errorf("minScore must be an integer between 0 and 100, got %q", s)
		}
		opts.MinScore = v
	}

	if s := q.Get("refresh"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			return Options{}, fmt.Errorf("refresh must be a boolean, got %q", s)
		}
		opts.Refresh = v
	}

	return opts, nil
}

// writeServiceError maps service errors onto HTTP statuses.
func (h *Handler) writeServiceError(w http.ResponseWriter, op string, err error) {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		jsonError(w, ve.Msg, http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		jsonError(w, "not found", http.StatusNotFound)
	default:
		log.Printf("[recommend] %s error: %v", op, err)
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}

func jsonOK(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// careerhub-recommend-service
//
// Scores job postings against seeker profiles and serves ranked, cached
// recommendations. Exposes a REST API used by the Gateway to implement:
//   - getRecommendations(limit, minScore, refresh) — ranked page
//   - getRecommendation(id)                        — single view (marks viewed)
//   - save / feedback / applied mutations          — per-recommendation flags
//   - saved list and aggregate stats queries
//
// Publishes EVENT_RECOMMENDATIONS_READY and EVENT_RECOMMENDATION_SAVED to
// Redis for Gateway SSE forward. A cron sweep reclaims recommendations for
// deactivated jobs out of band.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"careerhub/recommend-service/internal/config"
	"careerhub/recommend-service/internal/db"
	"careerhub/recommend-service/internal/directory"
	"careerhub/recommend-service/internal/recommend"
	"careerhub/recommend-service/internal/sweeper"
)

const version = "1.0.0"

func main() {
	// ── Config ──────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[recommend-service] Config error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── PostgreSQL ───────────────────────────────────────────────────────────
	log.Println("[recommend-service] Connecting to PostgreSQL…")
	pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("[recommend-service] PostgreSQL: %v", err)
	}
	defer pool.Close()
	log.Println("[recommend-service] PostgreSQL connected ✓")

	// ── Redis (optional) ─────────────────────────────────────────────────────
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		log.Println("[recommend-service] Connecting to Redis…")
		rdb, err = db.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("[recommend-service] Redis: %v", err)
		}
		defer rdb.Close()
		log.Println("[recommend-service] Redis connected ✓")
	} else {
		log.Println("[recommend-service] REDIS_URL not set — cache and events disabled")
	}

	// ── Wiring ───────────────────────────────────────────────────────────────
	store := recommend.NewStore(pool)
	svc := recommend.NewService(
		store,
		directory.NewProfiles(pool),
		directory.NewJobs(pool),
		directory.NewApplications(pool),
		rdb,
		time.Duration(cfg.CacheTTLSeconds)*time.Second,
	)

	// ── Maintenance sweep ────────────────────────────────────────────────────
	sw := sweeper.New(pool, cfg.SweepIntervalHours)
	if err := sw.Start(ctx); err != nil {
		log.Fatalf("[recommend-service] Sweeper: %v", err)
	}
	defer sw.Stop()

	// ── HTTP server ──────────────────────────────────────────────────────────
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)

	h := recommend.NewHandler(svc)
	h.RegisterRoutes(mux)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("[recommend-service] v%s listening on :%s", version, cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[recommend-service] HTTP server error: %v", err)
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[recommend-service] Shutting down…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[recommend-service] Shutdown error: %v", err)
	}
	log.Println("[recommend-service] Stopped.")
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"service": "recommend-service",
		"version": version,
	})
}

// Package recommend contains the business logic for job recommendations.
// It is transport-agnostic: the HTTP handler layer delegates everything
// here, and the service itself talks to PostgreSQL through the Store and
// to the read-only directories for users, jobs and applications.
package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"careerhub/recommend-service/internal/match"
	"careerhub/recommend-service/internal/model"
)

// Default page parameters, applied when the caller sends none.
const (
	DefaultLimit    = 20
	DefaultMinScore = 40
)

// RecommendationStore is the persistence surface the service needs.
// *Store is the production implementation.
type RecommendationStore interface {
	Find(ctx context.Context, userID string, minScore, limit int) ([]model.Recommendation, error)
	FindSaved(ctx context.Context, userID string) ([]model.Recommendation, error)
	GetByID(ctx context.Context, userID, recID string) (*model.Recommendation, error)
	ScoredJobIDs(ctx context.Context, userID string) (map[string]struct{}, error)
	Upsert(ctx context.Context, userID, jobID string, res model.MatchResult) (*model.Recommendation, error)
	MarkViewed(ctx context.Context, userID, recID string) (*model.Recommendation, error)
	SetSaved(ctx context.Context, userID, recID string, saved bool) (*model.Recommendation, error)
	MarkApplied(ctx context.Context, userID, recID string) (*model.Recommendation, error)
	SetFeedback(ctx context.Context, userID, recID string, rating int) (*model.Recommendation, error)
	DeleteAllForUser(ctx context.Context, userID string) error
	Stats(ctx context.Context, userID string) (model.Stats, error)
}

// ProfileDirectory resolves user profiles (read-only collaborator).
// A missing user is reported as (nil, nil), not as an error.
type ProfileDirectory interface {
	Profile(ctx context.Context, userID string) (*model.UserProfile, error)
}

// JobDirectory resolves job postings (read-only collaborator).
type JobDirectory interface {
	ActiveJobs(ctx context.Context) ([]model.JobPosting, error)
	JobsByID(ctx context.Context, ids []string) (map[string]model.JobPosting, error)
}

// ApplicationDirectory resolves which jobs a user already applied to.
type ApplicationDirectory interface {
	AppliedJobIDs(ctx context.Context, userID string) (map[string]struct{}, error)
}

// Service orchestrates scoring, persistence and ranking.
type Service struct {
	store    RecommendationStore
	profiles ProfileDirectory
	jobs     JobDirectory
	apps     ApplicationDirectory
	rdb      *redis.Client // optional: response cache + events
	cacheTTL time.Duration
}

// NewService returns a configured Service. rdb may be nil; the service
// then runs without the response cache and without publishing events.
func NewService(
	store RecommendationStore,
	profiles ProfileDirectory,
	jobs JobDirectory,
	apps ApplicationDirectory,
	rdb *redis.Client,
	cacheTTL time.Duration,
) *Service {
	return &Service{
		store:    store,
		profiles: profiles,
		jobs:     jobs,
		apps:     apps,
		rdb:      rdb,
		cacheTTL: cacheTTL,
	}
}

// Options are the caller-supplied query parameters for a page of
// recommendations.
type Options struct {
	Limit    int
	MinScore int
	Refresh  bool
}

// GetRecommendations returns the top recommendations for a user, scoring
// any active, not-yet-applied, not-yet-scored job on the way.
//
// Existing scores are reused: the store is a persistence-backed cache keyed
// by (user, job), so only unscored candidates hit the scorer. When the
// stored set already fills the page and no refresh was requested, nothing
// is rescored at all.
func (s *Service) GetRecommendations(ctx context.Context, userID string, opts Options) ([]model.RecommendedJob, error) {
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}

	profile, err := s.profiles.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrNotFound
	}
	if profile.Role != model.RoleSeeker {
		return nil, &ValidationError{Msg: fmt.Sprintf("role %q is not eligible for job recommendations", profile.Role)}
	}

	if opts.Refresh {
		if err := s.store.DeleteAllForUser(ctx, userID); err != nil {
			return nil, err
		}
		s.invalidateCache(ctx, userID)
	} else if page, ok := s.cachedPage(ctx, userID, opts); ok {
		return page, nil
	}

	existing, err := s.store.Find(ctx, userID, opts.MinScore, 0)
	if err != nil {
		return nil, err
	}

	// Short-circuit: the stored set already fills the page.
	if !opts.Refresh && len(existing) >= opts.Limit {
		items, err := s.assemble(ctx, existing)
		if err != nil {
			return nil, err
		}
		ranked := match.Rank(items, opts.Limit)
		s.cachePage(ctx, userID, opts, ranked)
		return ranked, nil
	}

	merged, created, skipped, err := s.scoreCandidates(ctx, userID, *profile, opts.MinScore, existing)
	if err != nil {
		return nil, err
	}

	items, err := s.assemble(ctx, merged)
	if err != nil {
		return nil, err
	}
	ranked := match.Rank(items, opts.Limit)

	s.publish(ctx, "EVENT_RECOMMENDATIONS_READY", map[string]any{
		"userId":   userID,
		"created":  created,
		"skipped":  skipped,
		"returned": len(ranked),
	})
	s.cachePage(ctx, userID, opts, ranked)

	return ranked, nil
}

// scoreCandidates scores every active job the user has neither applied to
// nor been scored against, persisting results at or above minScore.
// Individual scoring or persistence failures are logged and skipped;
// partial results are still returned.
func (s *Service) scoreCandidates(
	ctx context.Context,
	userID string,
	profile model.UserProfile,
	minScore int,
	existing []model.Recommendation,
) (merged []model.Recommendation, created, skipped int, err error) {
	activeJobs, err := s.jobs.ActiveJobs(ctx)
	if err != nil {
		return nil, 0, 0, err
	}
	applied, err := s.apps.AppliedJobIDs(ctx, userID)
	if err != nil {
		return nil, 0, 0, err
	}
	scored, err := s.store.ScoredJobIDs(ctx, userID)
	if err != nil {
		return nil, 0, 0, err
	}

	merged = existing
	for _, job := range activeJobs {
		if _, ok := applied[job.ID]; ok {
			continue
		}
		if _, ok := scored[job.ID]; ok {
			continue
		}

		res, err := match.Score(profile, job)
		if err != nil {
			slog.Warn("scoring failed, skipping job", "userId", userID, "jobId", job.ID, "err", err)
			skipped++
			continue
		}
		if res.Score < minScore {
			continue
		}

		rec, err := s.store.Upsert(ctx, userID, job.ID, res)
		if err != nil {
			slog.Warn("persisting recommendation failed, skipping job", "userId", userID, "jobId", job.ID, "err", err)
			skipped++
			continue
		}
		merged = append(merged, *rec)
		created++
	}

	return merged, created, skipped, nil
}

// assemble batch-fetches job details and joins them onto recommendations.
// Recommendations whose job is gone or deactivated are silently dropped
// from the result; the sweeper reclaims those rows out of band.
func (s *Service) assemble(ctx context.Context, recs []model.Recommendation) ([]model.RecommendedJob, error) {
	if len(recs) == 0 {
		return []model.RecommendedJob{}, nil
	}

	ids := make([]string, 0, len(recs))
	for _, r := range recs {
		ids = append(ids, r.JobID)
	}
	jobs, err := s.jobs.JobsByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]model.RecommendedJob, 0, len(recs))
	for _, r := range recs {
		job, ok := jobs[r.JobID]
		if !ok || !job.IsActive {
			continue
		}
		items = append(items, model.RecommendedJob{Recommendation: r, Job: job})
	}
	return items, nil
}

// GetRecommendation returns a single recommendation with its job details,
// marking it viewed on first read.
func (s *Service) GetRecommendation(ctx context.Context, userID, recID string) (*model.RecommendedJob, error) {
	rec, err := s.store.GetByID(ctx, userID, recID)
	if err != nil {
		return nil, err
	}

	if !rec.IsViewed {
		rec, err = s.store.MarkViewed(ctx, userID, recID)
		if err != nil {
			return nil, err
		}
		s.invalidateCache(ctx, userID)
	}

	return s.withJob(ctx, rec)
}

// SetSaved sets or clears the saved flag on a recommendation.
func (s *Service) SetSaved(ctx context.Context, userID, recID string, saved bool) (*model.RecommendedJob, error) {
	rec, err := s.store.SetSaved(ctx, userID, recID, saved)
	if err != nil {
		return nil, err
	}
	s.invalidateCache(ctx, userID)

	s.publish(ctx, "EVENT_RECOMMENDATION_SAVED", map[string]any{
		"userId":           userID,
		"recommendationId": recID,
		"saved":            saved,
	})

	return s.withJob(ctx, rec)
}

// SetFeedback records a 1–5 rating on a recommendation.
func (s *Service) SetFeedback(ctx context.Context, userID, recID string, rating int) (*model.RecommendedJob, error) {
	rec, err := s.store.SetFeedback(ctx, userID, recID, rating)
	if err != nil {
		return nil, err
	}
	s.invalidateCache(ctx, userID)
	return s.withJob(ctx, rec)
}

// MarkApplied flags a recommendation as applied through.
func (s *Service) MarkApplied(ctx context.Context, userID, recID string) (*model.RecommendedJob, error) {
	rec, err := s.store.MarkApplied(ctx, userID, recID)
	if err != nil {
		return nil, err
	}
	s.invalidateCache(ctx, userID)
	return s.withJob(ctx, rec)
}

// SavedRecommendations lists the user's saved recommendations with jobs.
func (s *Service) SavedRecommendations(ctx context.Context, userID string) ([]model.RecommendedJob, error) {
	recs, err := s.store.FindSaved(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.assemble(ctx, recs)
}

// Stats aggregates the authenticated user's recommendation counters.
func (s *Service) Stats(ctx context.Context, userID string) (model.Stats, error) {
	return s.store.Stats(ctx, userID)
}

// withJob joins one recommendation with its job details. A deactivated or
// missing job still returns the recommendation, with the zero job shape —
// single-item reads should not 404 because the posting was taken down.
func (s *Service) withJob(ctx context.Context, rec *model.Recommendation) (*model.RecommendedJob, error) {
	jobs, err := s.jobs.JobsByID(ctx, []string{rec.JobID})
	if err != nil {
		return nil, err
	}
	return &model.RecommendedJob{Recommendation: *rec, Job: jobs[rec.JobID]}, nil
}

// ─── Response cache + events (optional Redis) ────────────────────────────────

// cacheEnvelope binds a cached page to the options that produced it, so a
// request with different paging never reads a stale shape.
type cacheEnvelope struct {
	Limit    int                    `json:"limit"`
	MinScore int                    `json:"minScore"`
	Items    []model.RecommendedJob `json:"items"`
}

func cacheKey(userID string) string { return "recommend:cache:" + userID }

func (s *Service) cachedPage(ctx context.Context, userID string, opts Options) ([]model.RecommendedJob, bool) {
	if s.rdb == nil {
		return nil, false
	}

	raw, err := s.rdb.Get(ctx, cacheKey(userID)).Bytes()
	if err != nil {
		return nil, false
	}

	var env cacheEnvelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Limit != opts.Limit || env.MinScore != opts.MinScore {
		return nil, false
	}
	return env.Items, true
}

func (s *Service) cachePage(ctx context.Context, userID string, opts Options, items []model.RecommendedJob) {
	if s.rdb == nil || s.cacheTTL <= 0 {
		return
	}

	raw, err := json.Marshal(cacheEnvelope{Limit: opts.Limit, MinScore: opts.MinScore, Items: items})
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, cacheKey(userID), raw, s.cacheTTL).Err(); err != nil {
		slog.Warn("cache recommendations failed", "userId", userID, "err", err)
	}
}

func (s *Service) invalidateCache(ctx context.Context, userID string) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, cacheKey(userID)).Err(); err != nil {
		slog.Warn("invalidate recommendation cache failed", "userId", userID, "err", err)
	}
}

// publish sends a pub/sub event for the Gateway to forward over SSE.
// Non-fatal: a failed publish is logged and ignored.
func (s *Service) publish(ctx context.Context, channel string, payload map[string]any) {
	if s.rdb == nil {
		return
	}

	event, _ := json.Marshal(payload)
	if err := s.rdb.Publish(ctx, channel, event).Err(); err != nil {
		slog.Warn("publish failed", "channel", channel, "err", err)
	}
}

package recommend

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"careerhub/recommend-service/internal/model"
)

// Store persists recommendations in PostgreSQL. Rows are unique per
// (user_id, job_id); a second score for the same pair updates in place,
// so concurrent requests racing on the same pair can never duplicate it.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore returns a Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const recColumns = `r.id, r.user_id, r.job_id, r.match_score, r.match_details,
	       r.is_viewed, r.is_saved, r.is_applied, r.feedback_rating,
	       r.created_at, r.updated_at`

func scanRec(row pgx.Row) (model.Recommendation, error) {
	var rec model.Recommendation
	err := row.Scan(
		&rec.ID, &rec.UserID, &rec.JobID, &rec.MatchScore, &rec.MatchDetails,
		&rec.IsViewed, &rec.IsSaved, &rec.IsApplied, &rec.FeedbackRating,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	return rec, err
}

// Find returns the user's recommendations for jobs that are still active
// and not yet applied to, at or above minScore, highest score first.
// A limit of 0 returns everything.
func (s *Store) Find(ctx context.Context, userID string, minScore, limit int) ([]model.Recommendation, error) {
	base := `
		SELECT ` + recColumns + `
		FROM recommendations r
		JOIN jobs j ON j.id = r.job_id AND j.is_active
		WHERE r.user_id = $1
		  AND r.match_score >= $2
		  AND NOT EXISTS (
		    SELECT 1 FROM applications a
		    WHERE a.user_id = r.user_id AND a.job_id = r.job_id
		  )
		ORDER BY r.match_score DESC, j.posted_at DESC, r.job_id`

	var (
		rows pgx.Rows
		err  error
	)
	if limit > 0 {
		rows, err = s.pool.Query(ctx, base+` LIMIT $3`, userID, minScore, limit)
	} else {
		rows, err = s.pool.Query(ctx, base, userID, minScore)
	}
	if err != nil {
		return nil, fmt.Errorf("find recommendations query: %w", err)
	}
	defer rows.Close()

	return collectRecs(rows)
}

// FindSaved returns the user's saved recommendations for active jobs,
// highest score first.
func (s *Store) FindSaved(ctx context.Context, userID string) ([]model.Recommendation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+recColumns+`
		FROM recommendations r
		JOIN jobs j ON j.id = r.job_id AND j.is_active
		WHERE r.user_id = $1 AND r.is_saved
		ORDER BY r.match_score DESC, j.posted_at DESC, r.job_id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("find saved query: %w", err)
	}
	defer rows.Close()

	return collectRecs(rows)
}

func collectRecs(rows pgx.Rows) ([]model.Recommendation, error) {
	recs := make([]model.Recommendation, 0)
	for rows.Next() {
		rec, err := scanRec(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recommendation: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// FindOne returns the recommendation for a (user, job) pair, or ErrNotFound.
func (s *Store) FindOne(ctx context.Context, userID, jobID string) (*model.Recommendation, error) {
	rec, err := scanRec(s.pool.QueryRow(ctx,
		`SELECT `+recColumns+` FROM recommendations r WHERE r.user_id = $1 AND r.job_id = $2`,
		userID, jobID,
	))
	if err != nil {
		return nil, ErrNotFound
	}
	return &rec, nil
}

// GetByID returns a recommendation by id, validating ownership.
func (s *Store) GetByID(ctx context.Context, userID, recID string) (*model.Recommendation, error) {
	rec, err := scanRec(s.pool.QueryRow(ctx,
		`SELECT `+recColumns+` FROM recommendations r WHERE r.id = $1 AND r.user_id = $2`,
		recID, userID,
	))
	if err != nil {
		return nil, ErrNotFound
	}
	return &rec, nil
}

// ScoredJobIDs returns the set of job ids already scored for the user,
// regardless of score. Used to avoid recomputing known pairs.
func (s *Store) ScoredJobIDs(ctx context.Context, userID string) (map[string]struct{}, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT job_id FROM recommendations WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("scored job ids query: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scored job ids scan: %w", err)
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

// Upsert creates the recommendation for a (user, job) pair or refreshes its
// score. The ON CONFLICT path is what makes concurrent upserts of the same
// pair safe: the race collapses into last-write-wins on one row.
func (s *Store) Upsert(ctx context.Context, userID, jobID string, res model.MatchResult) (*model.Recommendation, error) {
	details, err := json.Marshal(res.Breakdown)
	if err != nil {
		return nil, fmt.Errorf("marshal match details: %w", err)
	}

	rec, err := scanRec(s.pool.QueryRow(ctx,
		`WITH ins AS (
		   INSERT INTO recommendations (user_id, job_id, match_score, match_details)
		   VALUES ($1, $2, $3, $4::jsonb)
		   ON CONFLICT (user_id, job_id) DO UPDATE
		     SET match_score   = EXCLUDED.match_score,
		         match_details = EXCLUDED.match_details,
		         updated_at    = NOW()
		   RETURNING *
		 )
		 SELECT ins.id, ins.user_id, ins.job_id, ins.match_score, ins.match_details,
		        ins.is_viewed, ins.is_saved, ins.is_applied, ins.feedback_rating,
		        ins.created_at, ins.updated_at
		 FROM ins`,
		userID, jobID, res.Score, string(details),
	))
	if err != nil {
		return nil, fmt.Errorf("upsert recommendation: %w", err)
	}
	return &rec, nil
}

// MarkViewed flags a recommendation as viewed. Idempotent.
func (s *Store) MarkViewed(ctx context.Context, userID, recID string) (*model.Recommendation, error) {
	return s.update(ctx, userID, recID, `is_viewed = true`)
}

// SetSaved sets or clears the saved flag on a recommendation.
func (s *Store) SetSaved(ctx context.Context, userID, recID string, saved bool) (*model.Recommendation, error) {
	if saved {
		return s.update(ctx, userID, recID, `is_saved = true`)
	}
	return s.update(ctx, userID, recID, `is_saved = false`)
}

// MarkApplied flags a recommendation as applied through.
func (s *Store) MarkApplied(ctx context.Context, userID, recID string) (*model.Recommendation, error) {
	return s.update(ctx, userID, recID, `is_applied = true`)
}

// SetFeedback records a 1–5 rating. Out-of-range ratings are rejected
// before touching the database.
func (s *Store) SetFeedback(ctx context.Context, userID, recID string, rating int) (*model.Recommendation, error) {
	if rating < 1 || rating > 5 {
		return nil, &ValidationError{Msg: "rating must be between 1 and 5"}
	}

	rec, err := scanRec(s.pool.QueryRow(ctx,
		`WITH upd AS (
		   UPDATE recommendations
		   SET feedback_rating = $1, updated_at = NOW()
		   WHERE id = $2 AND user_id = $3
		   RETURNING *
		 )
		 SELECT upd.id, upd.user_id, upd.job_id, upd.match_score, upd.match_details,
		        upd.is_viewed, upd.is_saved, upd.is_applied, upd.feedback_rating,
		        upd.created_at, upd.updated_at
		 FROM upd`,
		rating, recID, userID,
	))
	if err != nil {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (s *Store) update(ctx context.Context, userID, recID, set string) (*model.Recommendation, error) {
	rec, err := scanRec(s.pool.QueryRow(ctx,
		`WITH upd AS (
		   UPDATE recommendations
		   SET `+set+`, updated_at = NOW()
		   WHERE id = $1 AND user_id = $2
		   RETURNING *
		 )
		 SELECT upd.id, upd.user_id, upd.job_id, upd.match_score, upd.match_details,
		        upd.is_viewed, upd.is_saved, upd.is_applied, upd.feedback_rating,
		        upd.created_at, upd.updated_at
		 FROM upd`,
		recID, userID,
	))
	if err != nil {
		return nil, ErrNotFound
	}
	return &rec, nil
}

// DeleteAllForUser discards the user's whole recommendation set. Idempotent;
// used by the refresh flow before rescoring.
func (s *Store) DeleteAllForUser(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM recommendations WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete recommendations: %w", err)
	}
	return nil
}

// Stats aggregates the user's recommendation counters and average score.
func (s *Store) Stats(ctx context.Context, userID string) (model.Stats, error) {
	var st model.Stats
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE is_viewed),
		        COUNT(*) FILTER (WHERE is_saved),
		        COUNT(*) FILTER (WHERE is_applied),
		        COALESCE(ROUND(AVG(match_score), 1), 0)
		 FROM recommendations
		 WHERE user_id = $1`,
		userID,
	).Scan(&st.Total, &st.Viewed, &st.Saved, &st.Applied, &st.AverageScore)
	if err != nil {
		return model.Stats{}, fmt.Errorf("recommendation stats query: %w", err)
	}
	return st, nil
}

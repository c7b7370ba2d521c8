// Package sweeper wires up the cron job that reclaims stale recommendation
// rows out of band. The request path never depends on it: the orchestrator
// already hides recommendations for deactivated jobs, the sweep just
// deletes the rows so the table does not grow without bound.
package sweeper

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"
)

// Sweeper wraps robfig/cron and manages the maintenance loop.
type Sweeper struct {
	cron *cron.Cron
	pool *pgxpool.Pool
	spec string // cron spec, e.g. "@every 6h"
}

// New creates a Sweeper that fires every intervalHours hours.
func New(pool *pgxpool.Pool, intervalHours int) *Sweeper {
	return &Sweeper{
		cron: cron.New(cron.WithLogger(cron.DefaultLogger)),
		pool: pool,
		spec: fmt.Sprintf("@every %dh", intervalHours),
	}
}

// Start registers the job and starts the scheduler. Also runs one sweep
// immediately so a long interval does not delay the first cleanup.
func (s *Sweeper) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.runSweep(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	log.Printf("[sweeper] Cron started — spec: %s", s.spec)

	// Run immediately on startup (non-blocking)
	go s.runSweep(ctx)

	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Sweeper) Stop() {
	s.cron.Stop()
	log.Println("[sweeper] Cron stopped")
}

// runSweep purges recommendations whose job has been deactivated or
// removed, then flags is_applied on recommendations whose user has since
// applied to the job through another path.
func (s *Sweeper) runSweep(ctx context.Context) {
	log.Println("[sweeper] Sweep cycle started")

	purged, err := s.purgeDangling(ctx)
	if err != nil {
		log.Printf("[sweeper] purgeDangling error: %v", err)
		return
	}

	flagged, err := s.flagApplied(ctx)
	if err != nil {
		log.Printf("[sweeper] flagApplied error: %v", err)
		return
	}

	log.Printf("[sweeper] Sweep cycle complete — purged=%d flagged=%d", purged, flagged)
}

func (s *Sweeper) purgeDangling(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM recommendations r
		 WHERE NOT EXISTS (
		   SELECT 1 FROM jobs j WHERE j.id = r.job_id AND j.is_active
		 )`,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Sweeper) flagApplied(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE recommendations r
		 SET is_applied = true, updated_at = NOW()
		 WHERE NOT r.is_applied
		   AND EXISTS (
		     SELECT 1 FROM applications a
		     WHERE a.user_id = r.user_id AND a.job_id = r.job_id
		   )`,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Package directory provides read-only access to the shared users, jobs and
// applications tables. The recommend core never writes to these; it reads a
// per-request snapshot and assembles results explicitly.
package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"careerhub/recommend-service/internal/model"
)

// Profiles reads user profiles.
type Profiles struct {
	pool *pgxpool.Pool
}

// NewProfiles returns a Profiles reader.
func NewProfiles(pool *pgxpool.Pool) *Profiles {
	return &Profiles{pool: pool}
}

// Profile returns the user's profile, or (nil, nil) when no such user
// exists — missing users are a caller-level condition, not a query failure.
func (p *Profiles) Profile(ctx context.Context, userID string) (*model.UserProfile, error) {
	var u model.UserProfile
	err := p.pool.QueryRow(ctx,
		`SELECT id, role, COALESCE(skills, '{}'), COALESCE(location, ''),
		        COALESCE(experience, ''), salary_min, salary_max
		 FROM users
		 WHERE id = $1`,
		userID,
	).Scan(&u.ID, &u.Role, &u.Skills, &u.Location, &u.Experience, &u.SalaryMin, &u.SalaryMax)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("profile query: %w", err)
	}
	return &u, nil
}

// Jobs reads job postings with employer info.
type Jobs struct {
	pool *pgxpool.Pool
}

// NewJobs returns a Jobs reader.
func NewJobs(pool *pgxpool.Pool) *Jobs {
	return &Jobs{pool: pool}
}

const jobColumns = `j.id, j.employer_id, j.title, COALESCE(e.company_name, ''),
	        COALESCE(j.location, ''), COALESCE(j.required_skills, '{}'),
	        COALESCE(j.experience, ''), j.salary_min, j.salary_max,
	        j.is_active, j.posted_at`

func scanJob(rows pgx.Rows) (model.JobPosting, error) {
	var j model.JobPosting
	err := rows.Scan(
		&j.ID, &j.EmployerID, &j.Title, &j.CompanyName,
		&j.Location, &j.RequiredSkills, &j.Experience,
		&j.SalaryMin, &j.SalaryMax, &j.IsActive, &j.PostedAt,
	)
	return j, err
}

// ActiveJobs returns every active posting, newest first.
func (r *Jobs) ActiveJobs(ctx context.Context) ([]model.JobPosting, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+jobColumns+`
		 FROM jobs j
		 LEFT JOIN employers e ON e.id = j.employer_id
		 WHERE j.is_active
		 ORDER BY j.posted_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("active jobs query: %w", err)
	}
	defer rows.Close()

	var jobs []model.JobPosting
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("active jobs scan: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// JobsByID batch-fetches postings by id, keyed by id. Unknown ids are
// simply absent from the result.
func (r *Jobs) JobsByID(ctx context.Context, ids []string) (map[string]model.JobPosting, error) {
	if len(ids) == 0 {
		return map[string]model.JobPosting{}, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+jobColumns+`
		 FROM jobs j
		 LEFT JOIN employers e ON e.id = j.employer_id
		 WHERE j.id = ANY($1)`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("jobs by id query: %w", err)
	}
	defer rows.Close()

	jobs := make(map[string]model.JobPosting, len(ids))
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("jobs by id scan: %w", err)
		}
		jobs[j.ID] = j
	}
	return jobs, rows.Err()
}

// Applications reads which jobs a user already applied to.
type Applications struct {
	pool *pgxpool.Pool
}

// NewApplications returns an Applications reader.
func NewApplications(pool *pgxpool.Pool) *Applications {
	return &Applications{pool: pool}
}

// AppliedJobIDs returns the set of job ids the user has applied to.
func (a *Applications) AppliedJobIDs(ctx context.Context, userID string) (map[string]struct{}, error) {
	rows, err := a.pool.Query(ctx,
		`SELECT job_id FROM applications WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("applied job ids query: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("applied job ids scan: %w", err)
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

package recommend_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"careerhub/recommend-service/internal/model"
	"careerhub/recommend-service/internal/recommend"
)

// fixture wires an in-memory store and directories sharing one world view:
// a set of users, jobs and applications, plus the recommendation rows.
type fixture struct {
	store    *fakeStore
	profiles *fakeProfiles
	jobs     *fakeJobs
	apps     *fakeApps
}

func newFixture() *fixture {
	jobs := &fakeJobs{byID: make(map[string]model.JobPosting)}
	apps := &fakeApps{applied: make(map[string]map[string]struct{})}
	return &fixture{
		store:    &fakeStore{recs: make(map[string]model.Recommendation), jobs: jobs, apps: apps},
		profiles: &fakeProfiles{users: make(map[string]model.UserProfile)},
		jobs:     jobs,
		apps:     apps,
	}
}

func (f *fixture) service() *recommend.Service {
	return recommend.NewService(f.store, f.profiles, f.jobs, f.apps, nil, 0)
}

func (f *fixture) addUser(u model.UserProfile) { f.profiles.users[u.ID] = u }

func (f *fixture) addJob(j model.JobPosting) {
	f.jobs.byID[j.ID] = j
	f.jobs.all = append(f.jobs.all, j)
}

func (f *fixture) addApplication(userID, jobID string) {
	if f.apps.applied[userID] == nil {
		f.apps.applied[userID] = make(map[string]struct{})
	}
	f.apps.applied[userID][jobID] = struct{}{}
}

// ─── fakeProfiles ────────────────────────────────────────────────────────────

type fakeProfiles struct {
	users map[string]model.UserProfile
}

func (p *fakeProfiles) Profile(_ context.Context, userID string) (*model.UserProfile, error) {
	u, ok := p.users[userID]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

// ─── fakeJobs ────────────────────────────────────────────────────────────────

type fakeJobs struct {
	all         []model.JobPosting
	byID        map[string]model.JobPosting
	activeCalls int
}

func (j *fakeJobs) ActiveJobs(context.Context) ([]model.JobPosting, error) {
	j.activeCalls++
	var active []model.JobPosting
	for _, job := range j.all {
		if job.IsActive {
			active = append(active, job)
		}
	}
	return active, nil
}

func (j *fakeJobs) JobsByID(_ context.Context, ids []string) (map[string]model.JobPosting, error) {
	out := make(map[string]model.JobPosting, len(ids))
	for _, id := range ids {
		if job, ok := j.byID[id]; ok {
			out[id] = job
		}
	}
	return out, nil
}

// ─── fakeApps ────────────────────────────────────────────────────────────────

type fakeApps struct {
	applied map[string]map[string]struct{}
}

func (a *fakeApps) AppliedJobIDs(_ context.Context, userID string) (map[string]struct{}, error) {
	out := make(map[string]struct{})
	for id := range a.applied[userID] {
		out[id] = struct{}{}
	}
	return out, nil
}

// ─── fakeStore ───────────────────────────────────────────────────────────────

type fakeStore struct {
	recs map[string]model.Recommendation // key: userID|jobID
	seq  int
	jobs *fakeJobs
	apps *fakeApps
}

func key(userID, jobID string) string { return userID + "|" + jobID }

func (s *fakeStore) visible(rec model.Recommendation) bool {
	job, ok := s.jobs.byID[rec.JobID]
	if !ok || !job.IsActive {
		return false
	}
	_, applied := s.apps.applied[rec.UserID][rec.JobID]
	return !applied
}

func (s *fakeStore) Find(_ context.Context, userID string, minScore, limit int) ([]model.Recommendation, error) {
	var out []model.Recommendation
	for _, rec := range s.recs {
		if rec.UserID != userID || rec.MatchScore < minScore || !s.visible(rec) {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MatchScore != out[j].MatchScore {
			return out[i].MatchScore > out[j].MatchScore
		}
		return out[i].JobID < out[j].JobID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeStore) FindSaved(_ context.Context, userID string) ([]model.Recommendation, error) {
	var out []model.Recommendation
	for _, rec := range s.recs {
		if rec.UserID == userID && rec.IsSaved {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MatchScore > out[j].MatchScore })
	return out, nil
}

func (s *fakeStore) GetByID(_ context.Context, userID, recID string) (*model.Recommendation, error) {
	for _, rec := range s.recs {
		if rec.ID == recID && rec.UserID == userID {
			r := rec
			return &r, nil
		}
	}
	return nil, recommend.ErrNotFound
}

func (s *fakeStore) ScoredJobIDs(_ context.Context, userID string) (map[string]struct{}, error) {
	ids := make(map[string]struct{})
	for _, rec := range s.recs {
		if rec.UserID == userID {
			ids[rec.JobID] = struct{}{}
		}
	}
	return ids, nil
}

func (s *fakeStore) Upsert(_ context.Context, userID, jobID string, res model.MatchResult) (*model.Recommendation, error) {
	details, _ := json.Marshal(res.Breakdown)
	k := key(userID, jobID)

	rec, ok := s.recs[k]
	if !ok {
		s.seq++
		rec = model.Recommendation{
			ID:        fmt.Sprintf("rec-%d", s.seq),
			UserID:    userID,
			JobID:     jobID,
			CreatedAt: time.Now(),
		}
	}
	rec.MatchScore = res.Score
	rec.MatchDetails = details
	rec.UpdatedAt = time.Now()
	s.recs[k] = rec
	return &rec, nil
}

func (s *fakeStore) mutate(userID, recID string, fn func(*model.Recommendation)) (*model.Recommendation, error) {
	for k, rec := range s.recs {
		if rec.ID == recID && rec.UserID == userID {
			fn(&rec)
			rec.UpdatedAt = time.Now()
			s.recs[k] = rec
			r := rec
			return &r, nil
		}
	}
	return nil, recommend.ErrNotFound
}

func (s *fakeStore) MarkViewed(_ context.Context, userID, recID string) (*model.Recommendation, error) {
	return s.mutate(userID, recID, func(r *model.Recommendation) { r.IsViewed = true })
}

func (s *fakeStore) SetSaved(_ context.Context, userID, recID string, saved bool) (*model.Recommendation, error) {
	return s.mutate(userID, recID, func(r *model.Recommendation) { r.IsSaved = saved })
}

func (s *fakeStore) MarkApplied(_ context.Context, userID, recID string) (*model.Recommendation, error) {
	return s.mutate(userID, recID, func(r *model.Recommendation) { r.IsApplied = true })
}

func (s *fakeStore) SetFeedback(_ context.Context, userID, recID string, rating int) (*model.Recommendation, error) {
	if rating < 1 || rating > 5 {
		return nil, &recommend.ValidationError{Msg: "rating must be between 1 and 5"}
	}
	return s.mutate(userID, recID, func(r *model.Recommendation) { r.FeedbackRating = &rating })
}

func (s *fakeStore) DeleteAllForUser(_ context.Context, userID string) error {
	for k, rec := range s.recs {
		if rec.UserID == userID {
			delete(s.recs, k)
		}
	}
	return nil
}

func (s *fakeStore) Stats(_ context.Context, userID string) (model.Stats, error) {
	var st model.Stats
	var sum int
	for _, rec := range s.recs {
		if rec.UserID != userID {
			continue
		}
		st.Total++
		sum += rec.MatchScore
		if rec.IsViewed {
			st.Viewed++
		}
		if rec.IsSaved {
			st.Saved++
		}
		if rec.IsApplied {
			st.Applied++
		}
	}
	if st.Total > 0 {
		st.AverageScore = float64(sum) / float64(st.Total)
	}
	return st, nil
}

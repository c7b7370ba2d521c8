// Package match implements job/profile compatibility scoring and ranking.
//
// Scoring is a pure function of (profile, job): no I/O, no hidden state, no
// randomness. The same pair always yields the same result, so scores can be
// cached per (user, job) and recomputed only on demand.
package match

import (
	"fmt"
	"strings"

	"careerhub/recommend-service/internal/model"
)

// Factor weights. The four sub-scores sum to at most 100.
const (
	SkillWeight      = 50
	LocationWeight   = 20
	ExperienceWeight = 15
	SalaryWeight     = 15

	// Neutral credit for factors where neither side provides data —
	// incomplete profiles are not penalized down to zero.
	experienceNeutral = 8
	salaryNeutral     = 8
	experienceClose   = 10
)

// Score computes the 0–100 compatibility score between a user profile and a
// job posting, with a per-factor breakdown.
//
// The only error case is a record missing its identifier; every other gap
// in the data degrades to a zero or neutral sub-score.
func Score(user model.UserProfile, job model.JobPosting) (model.MatchResult, error) {
	if user.ID == "" {
		return model.MatchResult{}, fmt.Errorf("user profile has no id")
	}
	if job.ID == "" {
		return model.MatchResult{}, fmt.Errorf("job posting has no id")
	}

	skillScore, matched := skillOverlap(user.Skills, job.RequiredSkills)

	b := model.MatchBreakdown{
		SkillScore:      skillScore,
		LocationScore:   locationBonus(user.Location, job.Location),
		ExperienceScore: experienceFit(user.Experience, job.Experience),
		SalaryScore:     salaryAlignment(user.SalaryMin, user.SalaryMax, job.SalaryMin, job.SalaryMax),
		MatchedSkills:   matched,
	}

	total := b.SkillScore + b.LocationScore + b.ExperienceScore + b.SalaryScore
	if total < 0 {
		total = 0
	}
	if total > 100 {
		total = 100
	}

	return model.MatchResult{Score: total, Breakdown: b}, nil
}

// skillOverlap scores the fraction of the job's required skills present in
// the user's skill set. Case-insensitive and substring-tolerant, so
// "Node" satisfies "node.js". Empty set on either side scores 0.
func skillOverlap(userSkills, requiredSkills []string) (int, []string) {
	if len(userSkills) == 0 || len(requiredSkills) == 0 {
		return 0, nil
	}

	var matched []string
	for _, req := range requiredSkills {
		for _, have := range userSkills {
			if skillMatches(have, req) {
				matched = append(matched, req)
				break
			}
		}
	}

	score := (SkillWeight*len(matched) + len(requiredSkills)/2) / len(requiredSkills)
	return score, matched
}

// skillMatches reports whether a user skill satisfies a required skill.
func skillMatches(have, want string) bool {
	h := strings.ToLower(strings.TrimSpace(have))
	w := strings.ToLower(strings.TrimSpace(want))
	if h == "" || w == "" {
		return false
	}
	return h == w || strings.Contains(h, w) || strings.Contains(w, h)
}

// locationBonus grants the full bonus on an exact or substring match.
// A mismatch or a missing value contributes zero, never a penalty.
func locationBonus(userLoc, jobLoc string) int {
	u := strings.ToLower(strings.TrimSpace(userLoc))
	j := strings.ToLower(strings.TrimSpace(jobLoc))
	if u == "" || j == "" {
		return 0
	}
	if u == j || strings.Contains(u, j) || strings.Contains(j, u) {
		return LocationWeight
	}
	return 0
}

// experienceFit compares the user's stated years against the job's
// requirement. Full credit when the user meets or exceeds the required
// minimum, partial credit within a year below it, neutral credit when
// either side is missing or unparseable.
func experienceFit(userExp, jobExp string) int {
	userYears, uOK := ParseYears(userExp)
	jobRange, jOK := ParseYearsRange(jobExp)
	if !uOK || !jOK {
		return experienceNeutral
	}

	switch {
	case userYears >= jobRange.Min:
		return ExperienceWeight
	case jobRange.Min-userYears <= 1:
		return experienceClose
	default:
		return 0
	}
}

// salaryAlignment scores overlap between the job's offered range and the
// user's expected range. No data on either side yields neutral credit;
// disjoint ranges yield zero.
func salaryAlignment(userMin, userMax, jobMin, jobMax *int) int {
	if (userMin == nil && userMax == nil) || (jobMin == nil && jobMax == nil) {
		return salaryNeutral
	}

	uLo, uHi := bounds(userMin, userMax)
	jLo, jHi := bounds(jobMin, jobMax)
	if uLo <= jHi && jLo <= uHi {
		return SalaryWeight
	}
	return 0
}

// bounds normalizes a half-open salary range: a missing lower bound is 0,
// a missing upper bound is unbounded.
func bounds(lo, hi *int) (int, int) {
	l, h := 0, int(^uint(0)>>1)
	if lo != nil {
		l = *lo
	}
	if hi != nil {
		h = *hi
	}
	if h < l {
		h = l
	}
	return l, h
}

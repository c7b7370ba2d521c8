// Package model defines shared data structures for the recommend service.
package model

import (
	"encoding/json"
	"time"
)

// UserProfile mirrors the users table columns the scorer reads.
// Everything beyond ID and Role is optional — missing fields degrade to
// non-matching (or neutral, for salary/experience), never to an error.
type UserProfile struct {
	ID         string
	Role       string   // "seeker", "employer", "admin"
	Skills     []string
	Location   string
	Experience string // free text, e.g. "3 years"
	SalaryMin  *int   // expected salary range
	SalaryMax  *int
}

// RoleSeeker is the only role eligible for job recommendations.
const RoleSeeker = "seeker"

// JobPosting mirrors the jobs table row relevant to scoring.
type JobPosting struct {
	ID             string    `json:"id"`
	EmployerID     string    `json:"employerId"`
	Title          string    `json:"title"`
	CompanyName    string    `json:"companyName"`
	Location       string    `json:"location"`
	RequiredSkills []string  `json:"requiredSkills"`
	Experience     string    `json:"experience"` // e.g. "2-4 years"
	SalaryMin      *int      `json:"salaryMin,omitempty"`
	SalaryMax      *int      `json:"salaryMax,omitempty"`
	IsActive       bool      `json:"isActive"`
	PostedAt       time.Time `json:"postedAt"`
}

// MatchBreakdown is the per-factor explanation of a match score.
// Fixed shape so clients can render "why this job was recommended".
type MatchBreakdown struct {
	SkillScore      int      `json:"skillScore"`
	LocationScore   int      `json:"locationScore"`
	ExperienceScore int      `json:"experienceScore"`
	SalaryScore     int      `json:"salaryScore"`
	MatchedSkills   []string `json:"matchedSkills"`
}

// MatchResult is the scorer output for one (user, job) pair.
type MatchResult struct {
	Score     int            `json:"score"` // 0–100
	Breakdown MatchBreakdown `json:"breakdown"`
}

// Recommendation is the JSON shape returned to the Gateway / web clients.
// Rows are unique per (user_id, job_id).
type Recommendation struct {
	ID             string          `json:"id"`
	UserID         string          `json:"userId"`
	JobID          string          `json:"jobId"`
	MatchScore     int             `json:"matchScore"`
	MatchDetails   json.RawMessage `json:"matchDetails"`
	IsViewed       bool            `json:"isViewed"`
	IsSaved        bool            `json:"isSaved"`
	IsApplied      bool            `json:"isApplied"`
	FeedbackRating *int            `json:"feedbackRating"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// RecommendedJob pairs a recommendation with its job details for responses.
type RecommendedJob struct {
	Recommendation Recommendation `json:"recommendation"`
	Job            JobPosting     `json:"job"`
}

// Stats is the aggregate view over one user's recommendations.
type Stats struct {
	Total        int     `json:"total"`
	Viewed       int     `json:"viewed"`
	Saved        int     `json:"saved"`
	Applied      int     `json:"applied"`
	AverageScore float64 `json:"averageScore"`
}

package match

import (
	"sort"

	"careerhub/recommend-service/internal/model"
)

// Rank orders recommendations by match score descending. Ties break on the
// newer job posting first, then on job id ascending so the order is fully
// deterministic. A positive limit truncates the result.
//
// The input slice is not mutated.
func Rank(items []model.RecommendedJob, limit int) []model.RecommendedJob {
	ranked := make([]model.RecommendedJob, len(items))
	copy(ranked, items)

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Recommendation.MatchScore != b.Recommendation.MatchScore {
			return a.Recommendation.MatchScore > b.Recommendation.MatchScore
		}
		if !a.Job.PostedAt.Equal(b.Job.PostedAt) {
			return a.Job.PostedAt.After(b.Job.PostedAt)
		}
		return a.Job.ID < b.Job.ID
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

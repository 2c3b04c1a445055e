package ranking

import (
	"sort"

	"github.com/hyperjump/clausefind/internal/models"
)

// DefaultBoostWeight scales the heading score added to the distance-based score.
const DefaultBoostWeight = 0.25

// Rerank blends each hit's base score (negated distance) with its heading score:
//
//	boosted = -distance + headingScore*boostWeight
//
// and returns at most topK results sorted by boosted score descending. The sort is
// stable, so equal scores keep their search order. headingScores is indexed like hits;
// missing entries count as 0.
func Rerank(hits []models.Hit, headingScores []float64, boostWeight float64, topK int) []*models.SearchResult {
	results := make([]*models.SearchResult, len(hits))
	for i, hit := range hits {
		var heading float64
		if i < len(headingScores) {
			heading = headingScores[i]
		}
		base := -hit.Distance
		results[i] = &models.SearchResult{
			Position:     hit.Position,
			Text:         hit.Text,
			Metadata:     hit.Metadata,
			Distance:     hit.Distance,
			BaseScore:    base,
			HeadingScore: heading,
			BoostedScore: base + heading*boostWeight,
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].BoostedScore > results[j].BoostedScore
	})
	if topK >= 0 && len(results) > topK {
		results = results[:topK]
	}
	for i, r := range results {
		r.Rank = i + 1
	}
	return results
}

// internal/matching/similar.go
package matching

import (
	"math"
	"sort"
	"strings"

	"propguard-workers/internal/models"
)

// SimilarListings ranks candidates by similarity to target: the mean of price
// similarity, floor area similarity and location (1 for the same city, 0.5
// otherwise), as a 0..100 integer. The target itself is skipped.
func SimilarListings(target models.Listing, candidates []models.Listing, limit int) []models.SimilarListing {
	out := make([]models.SimilarListing, 0, len(candidates))
	for _, c := range candidates {
		if c.ID == target.ID {
			continue
		}
		out = append(out, models.SimilarListing{
			Listing:    c,
			Similarity: similarity(target, c),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Similarity > out[j].Similarity
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func similarity(a, b models.Listing) int {
	price := ratioSimilarity(a.Price, b.Price)
	size := ratioSimilarity(a.FloorArea, b.FloorArea)
	location := 0.5
	if strings.EqualFold(strings.TrimSpace(a.Location.City), strings.TrimSpace(b.Location.City)) {
		location = 1
	}
	return toPercent((price + size + location) / 3)
}

func ratioSimilarity(a, b float64) float64 {
	hi := math.Max(a, b)
	if hi <= 0 {
		return 1
	}
	return math.Max(0, 1-math.Abs(a-b)/hi)
}

// internal/matching/rank.go
package matching

import (
	"sort"

	"propguard-workers/internal/models"
)

// DefaultOrder is the direction used when none is given: highest relevance
// and newest first, cheapest and smallest first.
func DefaultOrder(key models.SortKey) models.SortOrder {
	switch key {
	case models.SortByRelevance, models.SortByDate:
		return models.SortDesc
	}
	return models.SortAsc
}

// SortListings returns a stably sorted copy of scored. Listings without a
// listing date always follow dated ones when sorting by date.
func SortListings(scored []models.ScoredListing, key models.SortKey, order models.SortOrder) ([]models.ScoredListing, error) {
	if key == "" {
		key = models.SortByRelevance
	}
	if !key.Valid() {
		return nil, models.NewValidationError(models.KindInvalidSort, "sortBy", "unknown sort key %q", key)
	}
	if !order.Valid() {
		return nil, models.NewValidationError(models.KindInvalidSort, "sortOrder", "unknown sort order %q", order)
	}
	if order == "" {
		order = DefaultOrder(key)
	}

	out := make([]models.ScoredListing, len(scored))
	copy(out, scored)

	desc := order == models.SortDesc
	sort.SliceStable(out, func(i, j int) bool {
		a, b := &out[i], &out[j]
		if key == models.SortByDate {
			if (a.ListedAt == nil) != (b.ListedAt == nil) {
				return a.ListedAt != nil
			}
			if a.ListedAt == nil {
				return false
			}
		}
		c := compareBy(key, a, b)
		if desc {
			return c > 0
		}
		return c < 0
	})
	return out, nil
}

func compareBy(key models.SortKey, a, b *models.ScoredListing) int {
	switch key {
	case models.SortByPrice:
		return compareFloat(a.Price, b.Price)
	case models.SortBySize:
		return compareFloat(a.FloorArea, b.FloorArea)
	case models.SortByDate:
		switch {
		case a.ListedAt.Before(*b.ListedAt):
			return -1
		case a.ListedAt.After(*b.ListedAt):
			return 1
		}
		return 0
	default:
		return a.MatchScore - b.MatchScore
	}
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

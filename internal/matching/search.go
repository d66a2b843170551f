// internal/matching/search.go
package matching

import (
	"propguard-workers/internal/models"
)

// SearchRequest configures one run of the pipeline. Every part is optional.
type SearchRequest struct {
	Criteria  *models.SearchCriteria `json:"criteria,omitempty"`
	Filters   *models.SearchFilters  `json:"filters,omitempty"`
	Profile   *models.UserProfile    `json:"profile,omitempty"`
	SortBy    models.SortKey         `json:"sortBy,omitempty"`
	SortOrder models.SortOrder       `json:"sortOrder,omitempty"`
	Limit     int                    `json:"limit,omitempty"`
}

// Result carries the ranked listings and per-stage counts.
type Result struct {
	Listings   []models.ScoredListing `json:"listings"`
	Candidates int                    `json:"candidates"`
	Matched    int                    `json:"matched"`
	Excluded   int                    `json:"excluded"`
	SortBy     models.SortKey         `json:"sortBy"`
	SortOrder  models.SortOrder       `json:"sortOrder"`
}

// Pipeline chains filter, score and sort.
type Pipeline struct {
	scorer *Scorer
}

func NewPipeline(scorer *Scorer) *Pipeline {
	if scorer == nil {
		scorer = defaultScorer
	}
	return &Pipeline{scorer: scorer}
}

var defaultPipeline = NewPipeline(nil)

// Search runs the pipeline with default weights.
func Search(listings []models.Listing, req SearchRequest) ([]models.ScoredListing, error) {
	res, err := defaultPipeline.Run(listings, req)
	if err != nil {
		return nil, err
	}
	return res.Listings, nil
}

func (p *Pipeline) Search(listings []models.Listing, req SearchRequest) ([]models.ScoredListing, error) {
	res, err := p.Run(listings, req)
	if err != nil {
		return nil, err
	}
	return res.Listings, nil
}

// Run validates every input before doing any work, then filters (criteria
// first), scores when a profile is present, drops deal-breaker exclusions,
// sorts and applies the limit.
func (p *Pipeline) Run(listings []models.Listing, req SearchRequest) (*Result, error) {
	if err := validateRequest(listings, req); err != nil {
		return nil, err
	}

	filtered := listings
	var err error
	if req.Criteria != nil {
		if filtered, err = MatchCriteria(filtered, *req.Criteria); err != nil {
			return nil, err
		}
	}
	if req.Filters != nil {
		if filtered, err = FilterListings(filtered, *req.Filters); err != nil {
			return nil, err
		}
	}

	res := &Result{Candidates: len(listings), Matched: len(filtered)}

	var scored []models.ScoredListing
	if req.Profile != nil {
		all := p.scorer.ScoreAll(filtered, *req.Profile)
		scored = make([]models.ScoredListing, 0, len(all))
		for _, s := range all {
			if s.Excluded {
				res.Excluded++
				continue
			}
			scored = append(scored, s)
		}
	} else {
		scored = models.Unscored(filtered)
	}

	key, order := resolveSort(req)
	sorted, err := SortListings(scored, key, order)
	if err != nil {
		return nil, err
	}
	if req.Limit > 0 && len(sorted) > req.Limit {
		sorted = sorted[:req.Limit]
	}

	res.Listings = sorted
	res.SortBy = key
	res.SortOrder = order
	if res.SortOrder == "" {
		res.SortOrder = DefaultOrder(key)
	}
	return res, nil
}

func validateRequest(listings []models.Listing, req SearchRequest) error {
	if req.Profile != nil {
		if err := req.Profile.Validate(); err != nil {
			return err
		}
	}
	if req.Criteria != nil {
		if err := req.Criteria.Validate(); err != nil {
			return err
		}
	}
	if req.Filters != nil {
		if err := req.Filters.Validate(); err != nil {
			return err
		}
	}
	if req.SortBy != "" && !req.SortBy.Valid() {
		return models.NewValidationError(models.KindInvalidSort, "sortBy", "unknown sort key %q", req.SortBy)
	}
	if !req.SortOrder.Valid() {
		return models.NewValidationError(models.KindInvalidSort, "sortOrder", "unknown sort order %q", req.SortOrder)
	}
	if req.Limit < 0 {
		return models.NewValidationError(models.KindInvalidRange, "limit", "limit must be non-negative")
	}
	for i := range listings {
		if err := listings[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// resolveSort prefers the request, then the filters, then a default that
// depends on whether the results are scored.
func resolveSort(req SearchRequest) (models.SortKey, models.SortOrder) {
	key, order := req.SortBy, req.SortOrder
	if req.Filters != nil {
		if key == "" {
			key = req.Filters.SortBy
		}
		if order == "" {
			order = req.Filters.SortOrder
		}
	}
	if key == "" {
		key = models.SortByDate
		if req.Profile != nil {
			key = models.SortByRelevance
		}
	}
	return key, order
}

// internal/models/scored.go
package models

// MatchFactors are the per-factor sub-scores on a 0..1 scale.
type MatchFactors struct {
	Budget       float64 `json:"budget"`
	Location     float64 `json:"location"`
	Feature      float64 `json:"feature"`
	PropertyType float64 `json:"propertyType"`
	Risk         float64 `json:"risk"`
}

// ScoredListing is a listing plus its match result for one profile.
type ScoredListing struct {
	Listing
	MatchScore      int           `json:"matchScore"`
	MatchReasoning  []string      `json:"matchReasoning"`
	Factors         *MatchFactors `json:"matchFactors,omitempty"`
	Excluded        bool          `json:"excluded,omitempty"`
	ExclusionReason string        `json:"exclusionReason,omitempty"`
}

// Unscored wraps listings without scoring them.
func Unscored(listings []Listing) []ScoredListing {
	out := make([]ScoredListing, len(listings))
	for i, l := range listings {
		out[i] = ScoredListing{Listing: l, MatchReasoning: []string{}}
	}
	return out
}

// SimilarListing is a listing with its similarity to a reference listing.
type SimilarListing struct {
	Listing
	Similarity int `json:"similarity"`
}

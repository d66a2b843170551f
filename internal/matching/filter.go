// internal/matching/filter.go
package matching

import (
	"strings"

	"propguard-workers/internal/models"
)

// FilterListings returns the listings that satisfy every active constraint in
// filters, preserving input order. The input slice is not modified.
func FilterListings(listings []models.Listing, filters models.SearchFilters) ([]models.Listing, error) {
	if err := filters.Validate(); err != nil {
		return nil, err
	}
	p := compile(filters)
	out := make([]models.Listing, 0, len(listings))
	for i := range listings {
		if p.matches(&listings[i]) {
			out = append(out, listings[i])
		}
	}
	return out, nil
}

// MatchCriteria applies the free-form search criteria.
func MatchCriteria(listings []models.Listing, criteria models.SearchCriteria) ([]models.Listing, error) {
	return FilterListings(listings, criteria.AsFilters())
}

// WithinBounds keeps listings whose coordinates fall inside bounds.
func WithinBounds(listings []models.Listing, bounds models.GeoBounds) ([]models.Listing, error) {
	return FilterListings(listings, models.SearchFilters{Bounds: &bounds})
}

// MatchKeywords keeps listings mentioning any keyword in their address,
// description or features.
func MatchKeywords(listings []models.Listing, keywords []string) ([]models.Listing, error) {
	return FilterListings(listings, models.SearchFilters{Keywords: keywords})
}

type predicate struct {
	filters   models.SearchFilters
	types     map[models.PropertyCategory]bool
	locations []string
	features  []string
	keywords  []string
}

func compile(f models.SearchFilters) *predicate {
	p := &predicate{
		filters:   f,
		locations: models.ActiveAllowlist(f.Locations),
		features:  models.NormalizeTags(f.Features),
		keywords:  models.NormalizeTags(f.Keywords),
	}
	if allowed := models.ActiveAllowlist(f.PropertyTypes); allowed != nil {
		p.types = make(map[models.PropertyCategory]bool, len(allowed))
		for _, t := range allowed {
			c, _ := models.ParseCategory(t)
			p.types[c] = true
		}
	}
	return p
}

func (p *predicate) matches(l *models.Listing) bool {
	f := &p.filters
	if f.PriceRange != nil && !f.PriceRange.Contains(l.Price) {
		return false
	}
	if f.Bedrooms != nil && !f.Bedrooms.Contains(l.Bedrooms) {
		return false
	}
	if f.Bathrooms != nil && !f.Bathrooms.Contains(l.Bathrooms) {
		return false
	}
	if f.FloorArea != nil && !f.FloorArea.Contains(l.FloorArea) {
		return false
	}
	if p.types != nil && !p.types[l.Category] {
		return false
	}
	if p.locations != nil && !matchesLocation(l.Location, p.locations) {
		return false
	}
	if len(p.features) > 0 && !hasAllFeatures(l.NormalizedFeatures(), p.features) {
		return false
	}
	if len(p.keywords) > 0 && !mentionsAny(l, p.keywords) {
		return false
	}
	if f.Bounds != nil && !f.Bounds.Contains(l.Location.Coordinates) {
		return false
	}
	return true
}

func matchesLocation(loc models.Location, allowed []string) bool {
	city := strings.ToLower(strings.TrimSpace(loc.City))
	region := strings.ToLower(strings.TrimSpace(loc.Region))
	for _, a := range allowed {
		if strings.Contains(city, a) || strings.Contains(region, a) {
			return true
		}
	}
	return false
}

// hasAllFeatures requires each wanted keyword to be a substring of some tag.
func hasAllFeatures(tags, wanted []string) bool {
	for _, w := range wanted {
		found := false
		for _, t := range tags {
			if strings.Contains(t, w) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func mentionsAny(l *models.Listing, keywords []string) bool {
	text := strings.ToLower(l.Address + " " + l.Description + " " + strings.Join(l.Features, " "))
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

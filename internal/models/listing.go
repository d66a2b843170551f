// internal/models/listing.go
package models

import (
	"encoding/json"
	"math"
	"strings"
	"time"
)

type PropertyCategory string

const (
	CategoryHouse      PropertyCategory = "house"
	CategoryApartment  PropertyCategory = "apartment"
	CategoryTownhouse  PropertyCategory = "townhouse"
	CategoryCommercial PropertyCategory = "commercial"
)

var validCategories = map[PropertyCategory]bool{
	CategoryHouse:      true,
	CategoryApartment:  true,
	CategoryTownhouse:  true,
	CategoryCommercial: true,
}

// ParseCategory normalises a category string. "condo" and "unit" are read as
// apartments.
func ParseCategory(s string) (PropertyCategory, bool) {
	c := PropertyCategory(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case "condo", "unit":
		return CategoryApartment, true
	}
	return c, validCategories[c]
}

func (c *PropertyCategory) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, ok := ParseCategory(s)
	if !ok {
		// keep the raw value so Validate can report it
		*c = PropertyCategory(s)
		return nil
	}
	*c = parsed
	return nil
}

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Location struct {
	City        string       `json:"city"`
	Region      string       `json:"region"`
	Postcode    string       `json:"postcode,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

// Listing is a candidate property. The pipeline treats it as read-only.
type Listing struct {
	ID                  string           `json:"id"`
	Address             string           `json:"address"`
	Description         string           `json:"description,omitempty"`
	Price               float64          `json:"price"`
	Bedrooms            int              `json:"bedrooms"`
	Bathrooms           int              `json:"bathrooms"`
	FloorArea           float64          `json:"floorArea"`
	Category            PropertyCategory `json:"category"`
	Features            []string         `json:"features"`
	Location            Location         `json:"location"`
	RiskScore           *float64         `json:"riskScore,omitempty"`
	InvestmentPotential *float64         `json:"investmentPotential,omitempty"`
	ListedAt            *time.Time       `json:"listedAt,omitempty"`
}

func (l *Listing) Validate() error {
	if strings.TrimSpace(l.ID) == "" {
		return invalidListing("id", "listing id is required")
	}
	if !finite(l.Price) || l.Price < 0 {
		return invalidListing("price", "listing %s has invalid price %v", l.ID, l.Price)
	}
	if l.Bedrooms < 0 {
		return invalidListing("bedrooms", "listing %s has negative bedrooms", l.ID)
	}
	if l.Bathrooms < 0 {
		return invalidListing("bathrooms", "listing %s has negative bathrooms", l.ID)
	}
	if !finite(l.FloorArea) || l.FloorArea < 0 {
		return invalidListing("floorArea", "listing %s has invalid floor area %v", l.ID, l.FloorArea)
	}
	if !validCategories[l.Category] {
		return invalidListing("category", "listing %s has unknown category %q", l.ID, l.Category)
	}
	if l.RiskScore != nil && (!finite(*l.RiskScore) || *l.RiskScore < 0) {
		return invalidListing("riskScore", "listing %s has invalid risk score", l.ID)
	}
	if l.InvestmentPotential != nil && (!finite(*l.InvestmentPotential) || *l.InvestmentPotential < 0) {
		return invalidListing("investmentPotential", "listing %s has invalid investment potential", l.ID)
	}
	if c := l.Location.Coordinates; c != nil {
		if c.Lat < -90 || c.Lat > 90 || c.Lng < -180 || c.Lng > 180 {
			return invalidListing("location.coordinates", "listing %s has out of range coordinates", l.ID)
		}
	}
	return nil
}

// NormalizedRisk returns the risk score on a 0..1 scale. Scores above 1 are
// assumed to be percentages. Missing scores read as 0.
func (l *Listing) NormalizedRisk() float64 {
	if l.RiskScore == nil || !finite(*l.RiskScore) {
		return 0
	}
	r := *l.RiskScore
	if r > 1 {
		r = r / 100
	}
	return clamp(r, 0, 1)
}

// NormalizedInvestment returns investment potential on a 0..10 scale.
func (l *Listing) NormalizedInvestment() float64 {
	if l.InvestmentPotential == nil || !finite(*l.InvestmentPotential) {
		return 0
	}
	v := *l.InvestmentPotential
	if v > 10 {
		v = v / 10
	}
	return clamp(v, 0, 10)
}

// NormalizedFeatures lowercases and trims the feature tags.
func (l *Listing) NormalizedFeatures() []string {
	return NormalizeTags(l.Features)
}

func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

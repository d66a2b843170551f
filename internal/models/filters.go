// internal/models/filters.go
package models

import "strings"

type SortKey string

const (
	SortByPrice     SortKey = "price"
	SortBySize      SortKey = "size"
	SortByDate      SortKey = "date"
	SortByRelevance SortKey = "relevance"
)

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// AllSentinel in an allowlist disables that constraint.
const AllSentinel = "all"

func (k SortKey) Valid() bool {
	switch k {
	case SortByPrice, SortBySize, SortByDate, SortByRelevance:
		return true
	}
	return false
}

func (o SortOrder) Valid() bool {
	return o == "" || o == SortAsc || o == SortDesc
}

// FloatRange is an inclusive range. A nil Max is unbounded.
type FloatRange struct {
	Min float64  `json:"min"`
	Max *float64 `json:"max,omitempty"`
}

func (r *FloatRange) Contains(v float64) bool {
	if v < r.Min {
		return false
	}
	return r.Max == nil || v <= *r.Max
}

func (r *FloatRange) validate(field string) error {
	if !finite(r.Min) || r.Min < 0 {
		return invalidRange(field, "min must be a non-negative number")
	}
	if r.Max != nil {
		if !finite(*r.Max) {
			return invalidRange(field, "max must be finite")
		}
		if r.Min > *r.Max {
			return invalidRange(field, "min (%v) > max (%v)", r.Min, *r.Max)
		}
	}
	return nil
}

// IntRange is an inclusive count range. A nil Max is unbounded.
type IntRange struct {
	Min int  `json:"min"`
	Max *int `json:"max,omitempty"`
}

func (r *IntRange) Contains(v int) bool {
	if v < r.Min {
		return false
	}
	return r.Max == nil || v <= *r.Max
}

func (r *IntRange) validate(field string) error {
	if r.Min < 0 {
		return invalidRange(field, "min must be non-negative")
	}
	if r.Max != nil && r.Min > *r.Max {
		return invalidRange(field, "min (%d) > max (%d)", r.Min, *r.Max)
	}
	return nil
}

type GeoBounds struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

func (b *GeoBounds) Contains(c *Coordinates) bool {
	if c == nil {
		return false
	}
	return c.Lat >= b.South && c.Lat <= b.North && c.Lng >= b.West && c.Lng <= b.East
}

func (b *GeoBounds) validate() error {
	if b.South > b.North {
		return invalidRange("bounds", "south (%v) > north (%v)", b.South, b.North)
	}
	if b.West > b.East {
		return invalidRange("bounds", "west (%v) > east (%v)", b.West, b.East)
	}
	return nil
}

// SearchFilters are explicit hard constraints. Every field is optional.
type SearchFilters struct {
	PriceRange    *FloatRange `json:"priceRange,omitempty"`
	Bedrooms      *IntRange   `json:"bedrooms,omitempty"`
	Bathrooms     *IntRange   `json:"bathrooms,omitempty"`
	FloorArea     *FloatRange `json:"floorArea,omitempty"`
	PropertyTypes []string    `json:"propertyTypes,omitempty"`
	Locations     []string    `json:"locations,omitempty"`
	Features      []string    `json:"features,omitempty"`
	Keywords      []string    `json:"keywords,omitempty"`
	Bounds        *GeoBounds  `json:"bounds,omitempty"`
	SortBy        SortKey     `json:"sortBy,omitempty"`
	SortOrder     SortOrder   `json:"sortOrder,omitempty"`
}

func (f *SearchFilters) Validate() error {
	if f.PriceRange != nil {
		if err := f.PriceRange.validate("priceRange"); err != nil {
			return err
		}
	}
	if f.Bedrooms != nil {
		if err := f.Bedrooms.validate("bedrooms"); err != nil {
			return err
		}
	}
	if f.Bathrooms != nil {
		if err := f.Bathrooms.validate("bathrooms"); err != nil {
			return err
		}
	}
	if f.FloorArea != nil {
		if err := f.FloorArea.validate("floorArea"); err != nil {
			return err
		}
	}
	if f.Bounds != nil {
		if err := f.Bounds.validate(); err != nil {
			return err
		}
	}
	for _, t := range f.PropertyTypes {
		if isAll(t) {
			continue
		}
		if _, ok := ParseCategory(t); !ok {
			return invalidProfile("propertyTypes", "unknown property type %q", t)
		}
	}
	if f.SortBy != "" && !f.SortBy.Valid() {
		return invalidSort("sortBy", "unknown sort key %q", f.SortBy)
	}
	if !f.SortOrder.Valid() {
		return invalidSort("sortOrder", "unknown sort order %q", f.SortOrder)
	}
	return nil
}

// IsEmpty reports whether no constraint is active.
func (f *SearchFilters) IsEmpty() bool {
	return f.PriceRange == nil && f.Bedrooms == nil && f.Bathrooms == nil &&
		f.FloorArea == nil && ActiveAllowlist(f.PropertyTypes) == nil &&
		ActiveAllowlist(f.Locations) == nil && len(f.Features) == 0 &&
		len(f.Keywords) == 0 && f.Bounds == nil
}

// ActiveAllowlist returns the normalised allowlist, or nil when it is empty or
// contains the "all" sentinel.
func ActiveAllowlist(values []string) []string {
	var out []string
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if v == AllSentinel {
			return nil
		}
		out = append(out, v)
	}
	return out
}

func isAll(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), AllSentinel)
}

// SearchCriteria is the free-form search form: a single location, minimum
// room counts and optional ranges.
type SearchCriteria struct {
	Location     string      `json:"location,omitempty"`
	PriceRange   *FloatRange `json:"priceRange,omitempty"`
	PropertyType string      `json:"propertyType,omitempty"`
	Bedrooms     *int        `json:"bedrooms,omitempty"`
	Bathrooms    *int        `json:"bathrooms,omitempty"`
	FloorArea    *FloatRange `json:"floorArea,omitempty"`
	Features     []string    `json:"features,omitempty"`
	Keywords     []string    `json:"keywords,omitempty"`
}

// AsFilters converts the criteria into the equivalent SearchFilters.
func (c *SearchCriteria) AsFilters() SearchFilters {
	f := SearchFilters{
		PriceRange: c.PriceRange,
		FloorArea:  c.FloorArea,
		Features:   c.Features,
		Keywords:   c.Keywords,
	}
	if loc := strings.TrimSpace(c.Location); loc != "" {
		f.Locations = []string{loc}
	}
	if pt := strings.TrimSpace(c.PropertyType); pt != "" {
		f.PropertyTypes = []string{pt}
	}
	if c.Bedrooms != nil {
		f.Bedrooms = &IntRange{Min: *c.Bedrooms}
	}
	if c.Bathrooms != nil {
		f.Bathrooms = &IntRange{Min: *c.Bathrooms}
	}
	return f
}

func (c *SearchCriteria) Validate() error {
	f := c.AsFilters()
	return f.Validate()
}

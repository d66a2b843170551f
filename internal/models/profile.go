// internal/models/profile.go
package models

import "strings"

type RiskTolerance string

const (
	RiskLow    RiskTolerance = "low"
	RiskMedium RiskTolerance = "medium"
	RiskHigh   RiskTolerance = "high"
)

type BudgetRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether price lies in [Min, Max].
func (b BudgetRange) Contains(price float64) bool {
	return price >= b.Min && price <= b.Max
}

// UserProfile holds the soft preferences used for scoring.
type UserProfile struct {
	UserID             string             `json:"userId,omitempty"`
	Budget             BudgetRange        `json:"budgetRange"`
	PreferredLocations []string           `json:"preferredLocations"`
	PropertyTypes      []PropertyCategory `json:"propertyTypes"`
	MustHaveFeatures   []string           `json:"mustHaveFeatures"`
	NiceToHaveFeatures []string           `json:"niceToHaveFeatures"`
	DealBreakers       []string           `json:"dealBreakers"`
	RiskTolerance      RiskTolerance      `json:"riskTolerance"`
	Timeline           string             `json:"timeline,omitempty"`
	Lifestyle          []string           `json:"lifestyle,omitempty"`
	InvestmentGoals    []string           `json:"investmentGoals,omitempty"`
}

func (p *UserProfile) Validate() error {
	if !finite(p.Budget.Min) || !finite(p.Budget.Max) {
		return invalidRange("budgetRange", "budget bounds must be finite")
	}
	if p.Budget.Min < 0 || p.Budget.Max < 0 {
		return invalidRange("budgetRange", "budget bounds must be non-negative")
	}
	if p.Budget.Min > p.Budget.Max {
		return invalidRange("budgetRange", "budget min (%.0f) > max (%.0f)", p.Budget.Min, p.Budget.Max)
	}
	switch p.Tolerance() {
	case RiskLow, RiskMedium, RiskHigh:
	default:
		return invalidProfile("riskTolerance", "unknown risk tolerance %q", p.RiskTolerance)
	}
	for _, c := range p.PropertyTypes {
		if !validCategories[c] {
			return invalidProfile("propertyTypes", "unknown property type %q", c)
		}
	}
	return nil
}

// Tolerance returns the risk tolerance, defaulting to medium.
func (p *UserProfile) Tolerance() RiskTolerance {
	t := RiskTolerance(strings.ToLower(strings.TrimSpace(string(p.RiskTolerance))))
	if t == "" {
		return RiskMedium
	}
	return t
}

// DefaultProfile is used when a user has never saved preferences.
func DefaultProfile(userID string) *UserProfile {
	return &UserProfile{
		UserID:             userID,
		Budget:             BudgetRange{Min: 500000, Max: 1000000},
		PreferredLocations: []string{"Melbourne", "South Yarra", "Richmond"},
		PropertyTypes:      []PropertyCategory{CategoryHouse, CategoryApartment},
		MustHaveFeatures:   []string{},
		NiceToHaveFeatures: []string{},
		DealBreakers:       []string{},
		RiskTolerance:      RiskMedium,
		Timeline:           "3-6 months",
	}
}

// PreferenceUpdate is a partial edit of a profile. Nil fields are left alone.
type PreferenceUpdate struct {
	Budget             *BudgetRange        `json:"budgetRange,omitempty"`
	PreferredLocations *[]string           `json:"preferredLocations,omitempty"`
	PropertyTypes      *[]PropertyCategory `json:"propertyTypes,omitempty"`
	MustHaveFeatures   *[]string           `json:"mustHaveFeatures,omitempty"`
	NiceToHaveFeatures *[]string           `json:"niceToHaveFeatures,omitempty"`
	DealBreakers       *[]string           `json:"dealBreakers,omitempty"`
	RiskTolerance      *RiskTolerance      `json:"riskTolerance,omitempty"`
	Timeline           *string             `json:"timeline,omitempty"`
	Lifestyle          *[]string           `json:"lifestyle,omitempty"`
	InvestmentGoals    *[]string           `json:"investmentGoals,omitempty"`
}

// Apply returns a copy of p with the update applied. The result is validated.
func (u PreferenceUpdate) Apply(p UserProfile) (*UserProfile, error) {
	if u.Budget != nil {
		p.Budget = *u.Budget
	}
	if u.PreferredLocations != nil {
		p.PreferredLocations = append([]string(nil), (*u.PreferredLocations)...)
	}
	if u.PropertyTypes != nil {
		p.PropertyTypes = append([]PropertyCategory(nil), (*u.PropertyTypes)...)
	}
	if u.MustHaveFeatures != nil {
		p.MustHaveFeatures = NormalizeTags(*u.MustHaveFeatures)
	}
	if u.NiceToHaveFeatures != nil {
		p.NiceToHaveFeatures = NormalizeTags(*u.NiceToHaveFeatures)
	}
	if u.DealBreakers != nil {
		p.DealBreakers = NormalizeTags(*u.DealBreakers)
	}
	if u.RiskTolerance != nil {
		p.RiskTolerance = *u.RiskTolerance
	}
	if u.Timeline != nil {
		p.Timeline = *u.Timeline
	}
	if u.Lifestyle != nil {
		p.Lifestyle = append([]string(nil), (*u.Lifestyle)...)
	}
	if u.InvestmentGoals != nil {
		p.InvestmentGoals = append([]string(nil), (*u.InvestmentGoals)...)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// internal/matching/weights.go
package matching

import (
	"fmt"

	"propguard-workers/internal/models"
)

// Weights are the factor weights of the match score. They must sum to 1.
type Weights struct {
	Budget       float64 `json:"budget" mapstructure:"budget"`
	Location     float64 `json:"location" mapstructure:"location"`
	Feature      float64 `json:"feature" mapstructure:"feature"`
	PropertyType float64 `json:"propertyType" mapstructure:"property_type"`
	Risk         float64 `json:"risk" mapstructure:"risk"`
}

func DefaultWeights() Weights {
	return Weights{
		Budget:       0.30,
		Location:     0.25,
		Feature:      0.20,
		PropertyType: 0.15,
		Risk:         0.10,
	}
}

func (w Weights) Sum() float64 {
	return w.Budget + w.Location + w.Feature + w.PropertyType + w.Risk
}

// Normalize rescales the weights to sum to 1. Zero or negative totals fall
// back to the defaults.
func (w Weights) Normalize() Weights {
	if w.Budget < 0 || w.Location < 0 || w.Feature < 0 || w.PropertyType < 0 || w.Risk < 0 {
		return DefaultWeights()
	}
	sum := w.Sum()
	if sum <= 0 {
		return DefaultWeights()
	}
	return Weights{
		Budget:       w.Budget / sum,
		Location:     w.Location / sum,
		Feature:      w.Feature / sum,
		PropertyType: w.PropertyType / sum,
		Risk:         w.Risk / sum,
	}
}

// RiskTargets maps a tolerance to its target risk on a 0..1 scale.
type RiskTargets map[models.RiskTolerance]float64

func DefaultRiskTargets() RiskTargets {
	return RiskTargets{
		models.RiskLow:    0.2,
		models.RiskMedium: 0.5,
		models.RiskHigh:   0.8,
	}
}

func (t RiskTargets) Validate() error {
	for tol, v := range t {
		if v < 0 || v > 1 {
			return fmt.Errorf("risk target for %s must be within [0,1], got %v", tol, v)
		}
	}
	return nil
}

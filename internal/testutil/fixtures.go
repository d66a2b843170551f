// Package testutil holds fixtures shared by worker and API tests.
package testutil

import (
	"encoding/json"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"

	"propguard-workers/internal/models"
)

func FloatPtr(v float64) *float64 { return &v }

func IntPtr(v int) *int { return &v }

// Listings returns three listings. Scored against Profile with default
// weights they get 95, 38 and 50.
func Listings() []models.Listing {
	listed := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	older := listed.AddDate(0, -2, 0)
	return []models.Listing{
		{
			ID:        "listing-1",
			Address:   "12 Chapel St",
			Price:     850000,
			Bedrooms:  3,
			Bathrooms: 2,
			FloorArea: 180,
			Category:  models.CategoryHouse,
			Features:  []string{"garage", "garden"},
			Location:  models.Location{City: "Melbourne", Region: "VIC"},
			RiskScore: FloatPtr(0.23),
			ListedAt:  &listed,
		},
		{
			ID:          "listing-2",
			Address:     "5/88 Toorak Rd",
			Description: "Renovated apartment close to trams",
			Price:       620000,
			Bedrooms:    2,
			Bathrooms:   1,
			FloorArea:   85,
			Category:    models.CategoryApartment,
			Features:    []string{"Balcony", "Secure Parking"},
			Location: models.Location{
				City:        "South Yarra",
				Region:      "VIC",
				Coordinates: &models.Coordinates{Lat: -37.84, Lng: 144.99},
			},
			ListedAt: &older,
		},
		{
			ID:        "listing-3",
			Address:   "3 Bridge Rd",
			Price:     1250000,
			Bedrooms:  4,
			Bathrooms: 3,
			FloorArea: 210,
			Category:  models.CategoryTownhouse,
			Features:  []string{"garage", "pool"},
			Location:  models.Location{City: "Richmond", Region: "VIC"},
		},
	}
}

// Profile is a Melbourne house buyer with a 500k..1M budget who needs a garage.
func Profile() models.UserProfile {
	return models.UserProfile{
		UserID:             "user-1",
		Budget:             models.BudgetRange{Min: 500000, Max: 1000000},
		PreferredLocations: []string{"Melbourne"},
		PropertyTypes:      []models.PropertyCategory{models.CategoryHouse},
		MustHaveFeatures:   []string{"garage"},
		RiskTolerance:      models.RiskMedium,
	}
}

// Job builds an activated job carrying variables as JSON.
func Job(taskType string, key int64, variables interface{}) entities.Job {
	data, _ := json.Marshal(variables)
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:                key,
		Type:               taskType,
		ProcessInstanceKey: key * 10,
		BpmnProcessId:      "property-search",
		ElementId:          "Activity_" + taskType,
		CustomHeaders:      "{}",
		Worker:             "test-worker",
		Retries:            3,
		Variables:          string(data),
	}}
}

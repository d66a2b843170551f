// internal/matching/score.go
package matching

import (
	"math"
	"strings"

	"propguard-workers/internal/models"
)

const (
	ReasonWithinBudget  = "within budget"
	ReasonPreferredArea = "preferred area"
	ReasonPropertyType  = "matches preferred property type"
	ReasonInvestment    = "high investment potential"
	reasonFeatures      = "has "
	reasonDealBreaker   = "has deal-breaker: "

	highInvestmentThreshold = 8.0
)

// Scorer computes match scores. The zero value is not usable; use NewScorer.
type Scorer struct {
	weights Weights
	targets RiskTargets
}

// NewScorer normalises w and fills any missing risk targets with defaults.
func NewScorer(w Weights, targets RiskTargets) *Scorer {
	merged := DefaultRiskTargets()
	for tol, v := range targets {
		merged[tol] = v
	}
	return &Scorer{weights: w.Normalize(), targets: merged}
}

func (s *Scorer) Weights() Weights { return s.weights }

var defaultScorer = NewScorer(DefaultWeights(), nil)

// ScoreListing scores one listing with the default weights.
func ScoreListing(listing models.Listing, profile models.UserProfile) models.ScoredListing {
	return defaultScorer.Score(listing, profile)
}

// ScoreAll scores every listing with the default weights, keeping input order.
func ScoreAll(listings []models.Listing, profile models.UserProfile) []models.ScoredListing {
	return defaultScorer.ScoreAll(listings, profile)
}

func (s *Scorer) ScoreAll(listings []models.Listing, profile models.UserProfile) []models.ScoredListing {
	out := make([]models.ScoredListing, len(listings))
	for i := range listings {
		out[i] = s.Score(listings[i], profile)
	}
	return out
}

func (s *Scorer) Score(listing models.Listing, profile models.UserProfile) models.ScoredListing {
	tags := listing.NormalizedFeatures()

	if breaker, ok := firstDealBreaker(tags, models.NormalizeTags(profile.DealBreakers)); ok {
		return models.ScoredListing{
			Listing:         listing,
			MatchScore:      0,
			MatchReasoning:  []string{reasonDealBreaker + breaker},
			Excluded:        true,
			ExclusionReason: reasonDealBreaker + breaker,
		}
	}

	budget := budgetFit(listing.Price, profile.Budget)
	location, inArea := locationFit(listing.Location, profile.PreferredLocations)
	feature, matched := featureFit(tags, profile.MustHaveFeatures, profile.NiceToHaveFeatures)
	propType := typeFit(listing.Category, profile.PropertyTypes)
	risk := s.riskFit(listing.NormalizedRisk(), profile.Tolerance())

	w := s.weights
	total := budget*w.Budget + location*w.Location + feature*w.Feature + propType*w.PropertyType + risk*w.Risk

	reasons := []string{}
	if profile.Budget.Contains(listing.Price) {
		reasons = append(reasons, ReasonWithinBudget)
	}
	if inArea {
		reasons = append(reasons, ReasonPreferredArea)
	}
	if len(matched) > 0 {
		reasons = append(reasons, reasonFeatures+strings.Join(matched, ", "))
	}
	if propType == 1 {
		reasons = append(reasons, ReasonPropertyType)
	}
	if listing.NormalizedInvestment() >= highInvestmentThreshold {
		reasons = append(reasons, ReasonInvestment)
	}

	return models.ScoredListing{
		Listing:        listing,
		MatchScore:     toPercent(total),
		MatchReasoning: reasons,
		Factors: &models.MatchFactors{
			Budget:       budget,
			Location:     location,
			Feature:      feature,
			PropertyType: propType,
			Risk:         risk,
		},
	}
}

func budgetFit(price float64, b models.BudgetRange) float64 {
	switch {
	case !isFinite(price) || !isFinite(b.Min) || !isFinite(b.Max):
		return 0.5
	case b.Contains(price):
		return 1
	case price < b.Min:
		return 0.8
	case price > b.Max:
		if b.Max <= 0 {
			return 0
		}
		return math.Max(0, 1-(price-b.Max)/b.Max)
	}
	return 0.5
}

// locationFit returns 1 for an exact city or region match, 0.7 for a
// substring match and 0.3 otherwise.
func locationFit(loc models.Location, preferred []string) (float64, bool) {
	city := strings.ToLower(strings.TrimSpace(loc.City))
	region := strings.ToLower(strings.TrimSpace(loc.Region))
	prefs := models.NormalizeTags(preferred)

	for _, p := range prefs {
		if p == city || p == region {
			return 1, true
		}
	}
	for _, p := range prefs {
		if strings.Contains(city, p) || strings.Contains(region, p) {
			return 0.7, true
		}
	}
	return 0.3, false
}

// featureFit scores must-have coverage. A keyword matches any tag containing
// it. The returned names are the matching listing tags, must-have hits first,
// in listing order.
func featureFit(tags, mustHave, niceToHave []string) (float64, []string) {
	must := dedupe(models.NormalizeTags(mustHave))
	nice := models.NormalizeTags(niceToHave)

	hits := 0
	for _, f := range must {
		if anyContains(tags, f) {
			hits++
		}
	}

	var names []string
	seen := map[string]bool{}
	for _, wanted := range [][]string{must, nice} {
		for _, t := range tags {
			if !seen[t] && containsAny(t, wanted) {
				names = append(names, t)
				seen[t] = true
			}
		}
	}

	if len(must) == 0 {
		return 0.5, names
	}
	return float64(hits) / float64(len(must)), names
}

func anyContains(tags []string, keyword string) bool {
	for _, t := range tags {
		if strings.Contains(t, keyword) {
			return true
		}
	}
	return false
}

func containsAny(tag string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(tag, k) {
			return true
		}
	}
	return false
}

func typeFit(c models.PropertyCategory, wanted []models.PropertyCategory) float64 {
	for _, w := range wanted {
		if w == c {
			return 1
		}
	}
	return 0
}

func (s *Scorer) riskFit(risk float64, tol models.RiskTolerance) float64 {
	target, ok := s.targets[tol]
	if !ok {
		target = s.targets[models.RiskMedium]
	}
	if !isFinite(target) || target <= 0 {
		return 0.5
	}
	return math.Max(0, 1-math.Abs(risk-target)/target)
}

func firstDealBreaker(tags, breakers []string) (string, bool) {
	for _, b := range breakers {
		for _, t := range tags {
			if strings.Contains(t, b) {
				return b, true
			}
		}
	}
	return "", false
}

func toPercent(total float64) int {
	if !isFinite(total) {
		return 0
	}
	v := math.Round(total * 100)
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return int(v)
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := values[:0:0]
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

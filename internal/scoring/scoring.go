// Package scoring computes the multi-criteria utility of a candidate for a requester.
package scoring

import (
	"math"
	"strings"

	"github.com/jonathan/benefit-optimizer/internal/types"
)

// Preference weight keys recognized in RequesterProfile.PreferenceWeights
const (
	KeyCost        = "cost"
	KeyCoverage    = "coverage"
	KeyNetwork     = "network"
	KeyFlexibility = "flexibility"
)

// Default weights for scoring components
const (
	defaultCostWeight        = 0.4
	defaultCoverageWeight    = 0.3
	defaultNetworkWeight     = 0.2
	defaultFlexibilityWeight = 0.1
)

// monthsPerYear scales the monthly budget cap to compare against annual amounts
const monthsPerYear = 12

// Weights holds the per-criterion weights of the composite score.
// Weights are applied as given and are not normalized.
type Weights struct {
	Cost        float64 `json:"cost"`
	Coverage    float64 `json:"coverage"`
	Network     float64 `json:"network"`
	Flexibility float64 `json:"flexibility"`
}

// DefaultWeights returns the weights used when a profile names no preferences
func DefaultWeights() Weights {
	return Weights{
		Cost:        defaultCostWeight,
		Coverage:    defaultCoverageWeight,
		Network:     defaultNetworkWeight,
		Flexibility: defaultFlexibilityWeight,
	}
}

// WeightsFrom reads the weights from a preference map. Each missing key falls back to its default;
// unrecognized keys are ignored.
func WeightsFrom(prefs map[string]float64) Weights {
	w := DefaultWeights()
	if v, ok := prefs[KeyCost]; ok {
		w.Cost = v
	}
	if v, ok := prefs[KeyCoverage]; ok {
		w.Coverage = v
	}
	if v, ok := prefs[KeyNetwork]; ok {
		w.Network = v
	}
	if v, ok := prefs[KeyFlexibility]; ok {
		w.Flexibility = v
	}
	return w
}

// Breakdown is the composite score of a candidate together with its sub-scores
type Breakdown struct {
	Premium    float64 `json:"premium_score"`
	Deductible float64 `json:"deductible_score"`
	Coverage   float64 `json:"coverage_score"`
	OOP        float64 `json:"oop_score"`
	Total      float64 `json:"total"`
}

// Score computes the utility breakdown of candidate c for profile p.
// Denominators are clamped to at least 1, so a zero or negative budget cap never divides by zero.
func Score(c types.Candidate, p types.RequesterProfile) Breakdown {
	monthly := math.Max(1, p.BudgetCap)
	annual := math.Max(1, p.BudgetCap*monthsPerYear)

	b := Breakdown{
		Premium:    computePremiumScore(c.MonthlyCost, monthly),
		Deductible: computeDeductibleScore(c.Deductible, annual, p.RiskScore),
		Coverage:   c.CoverageValue,
		OOP:        computeOOPScore(c.OutOfPocketMax, annual),
	}

	w := WeightsFrom(p.PreferenceWeights)
	b.Total = w.Cost*b.Premium +
		w.Coverage*b.Coverage +
		w.Network*b.OOP +
		w.Flexibility*b.Deductible
	return b
}

// Utility returns the composite score used as the single-choice objective
func Utility(c types.Candidate, p types.RequesterProfile) float64 {
	return Score(c, p).Total
}

// WantsHSA reports whether any preference key mentions HSA, case-insensitively
func WantsHSA(prefs map[string]float64) bool {
	for key := range prefs {
		if strings.Contains(strings.ToLower(key), "hsa") {
			return true
		}
	}
	return false
}

func computePremiumScore(cost, monthlyCap float64) float64 {
	return math.Max(0, 1-cost/monthlyCap)
}

// computeDeductibleScore weights the deductible more heavily for higher-risk requesters
func computeDeductibleScore(deductible, annualCap, risk float64) float64 {
	return math.Max(0, 1-deductible/annualCap) * (0.5 + risk/2)
}

func computeOOPScore(oop, annualCap float64) float64 {
	return math.Max(0, 1-oop/annualCap)
}

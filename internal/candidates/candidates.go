// Package candidates projects benefits and plans into the normalized Candidate view used by the selection engine.
package candidates

import (
	"fmt"
	"math"
	"sort"

	"github.com/jonathan/benefit-optimizer/internal/types"
)

// Error reports a candidate that cannot be used for selection
type Error struct {
	CandidateID string
	Field       string
	Message     string
}

func (e *Error) Error() string {
	if e.CandidateID == "" {
		return fmt.Sprintf("invalid candidate: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("invalid candidate %s: %s: %s", e.CandidateID, e.Field, e.Message)
}

// FromBenefit projects a benefit into a candidate.
// Coverage value is the share of costs the benefit pays after coinsurance.
func FromBenefit(b types.Benefit) (types.Candidate, error) {
	if err := b.Validate(); err != nil {
		return types.Candidate{}, &Error{CandidateID: b.ID, Field: fieldOr(types.InvalidField(err), "benefit"), Message: err.Error()}
	}

	tags := make([]string, 0, len(b.WellnessBenefits)+2)
	if b.PrescriptionCoverage {
		tags = append(tags, "prescription_coverage")
	}
	if b.MentalHealthCoverage {
		tags = append(tags, "mental_health_coverage")
	}
	tags = append(tags, b.WellnessBenefits...)

	c := types.Candidate{
		ID:             b.ID,
		Name:           b.Name,
		MonthlyCost:    b.MonthlyPremium,
		Deductible:     b.AnnualDeductible,
		OutOfPocketMax: b.MaxOutOfPocket,
		CoverageValue:  1 - b.CoinsuranceRate,
		Category:       types.Category(b.Type),
		Provider:       b.Provider,
		Tags:           tags,
	}
	return c, Validate(c)
}

// FromPlan projects a marketplace plan into a candidate.
// The category is the plan's network tier, derived from actuarial value when absent.
func FromPlan(p types.PlanFeature) (types.Candidate, error) {
	if err := p.Validate(); err != nil {
		return types.Candidate{}, &Error{CandidateID: p.PlanID, Field: fieldOr(types.InvalidField(err), "plan"), Message: err.Error()}
	}

	tier := types.NetworkTierFor(p.ActuarialValue)
	if p.NetworkTier != "" {
		parsed, err := types.ParseNetworkTier(string(p.NetworkTier))
		if err != nil {
			return types.Candidate{}, &Error{CandidateID: p.PlanID, Field: "network_tier", Message: err.Error()}
		}
		tier = parsed
	}

	var tags []string
	if p.MetalLevel != "" {
		tags = append(tags, string(p.MetalLevel))
	}
	if p.PlanType != "" {
		tags = append(tags, p.PlanType)
	}
	if p.DentalOnlyPlan {
		tags = append(tags, "dental_only")
	}

	c := types.Candidate{
		ID:             p.PlanID,
		Name:           p.PlanMarketingName,
		MonthlyCost:    p.MonthlyPremium,
		Deductible:     p.Deductible,
		OutOfPocketMax: p.OutOfPocketMax,
		CoverageValue:  p.ActuarialValue,
		Category:       types.Category(tier),
		Provider:       p.IssuerID,
		HSAEligible:    p.HSAEligible,
		Tags:           tags,
	}
	return c, Validate(c)
}

// FromBenefits projects every benefit, returning the valid candidates and one error per skipped benefit
func FromBenefits(benefits []types.Benefit) ([]types.Candidate, []error) {
	out := make([]types.Candidate, 0, len(benefits))
	var skipped []error
	for _, b := range benefits {
		c, err := FromBenefit(b)
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		out = append(out, c)
	}
	return out, skipped
}

// FromPlans projects every plan, returning the valid candidates and one error per skipped plan
func FromPlans(plans []types.PlanFeature) ([]types.Candidate, []error) {
	out := make([]types.Candidate, 0, len(plans))
	var skipped []error
	for _, p := range plans {
		c, err := FromPlan(p)
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		out = append(out, c)
	}
	return out, skipped
}

// Validate checks a candidate's numeric fields
func Validate(c types.Candidate) error {
	if c.ID == "" {
		return &Error{Field: "id", Message: "is required"}
	}
	numeric := []struct {
		field string
		value float64
	}{
		{"monthly_cost", c.MonthlyCost},
		{"deductible", c.Deductible},
		{"out_of_pocket_max", c.OutOfPocketMax},
		{"coverage_value", c.CoverageValue},
	}
	for _, n := range numeric {
		if math.IsNaN(n.value) || math.IsInf(n.value, 0) {
			return &Error{CandidateID: c.ID, Field: n.field, Message: "must be a finite number"}
		}
		if n.value < 0 {
			return &Error{CandidateID: c.ID, Field: n.field, Message: "must be non-negative"}
		}
	}
	if c.CoverageValue > 1 {
		return &Error{CandidateID: c.ID, Field: "coverage_value", Message: "must be within [0, 1]"}
	}
	return nil
}

// ValidatePool validates every candidate and rejects duplicate ids
func ValidatePool(pool []types.Candidate) error {
	seen := make(map[string]bool, len(pool))
	for _, c := range pool {
		if err := Validate(c); err != nil {
			return err
		}
		if seen[c.ID] {
			return &Error{CandidateID: c.ID, Field: "id", Message: "duplicate id in candidate pool"}
		}
		seen[c.ID] = true
	}
	return nil
}

// SortedByID returns a copy of pool ordered by ascending id
func SortedByID(pool []types.Candidate) []types.Candidate {
	out := append([]types.Candidate(nil), pool...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}

func fieldOr(field, fallback string) string {
	if field == "" {
		return fallback
	}
	return field
}

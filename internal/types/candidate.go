// Package types provides type definitions for structured data used throughout the benefit-optimizer system.
//
//nolint:revive // types is a standard Go package name pattern
package types

// Category is the dispatch key of a candidate: a BenefitType for benefits or a NetworkTier for plans
type Category string

// Candidate is the normalized view of a benefit or plan that both selection modes operate on.
// Candidates are treated as immutable once projected.
type Candidate struct {
	ID             string   `json:"id"`
	Name           string   `json:"name,omitempty"`
	MonthlyCost    float64  `json:"monthly_cost"`
	Deductible     float64  `json:"deductible"`
	OutOfPocketMax float64  `json:"out_of_pocket_max"`
	CoverageValue  float64  `json:"coverage_value"`
	Category       Category `json:"category"`
	Provider       string   `json:"provider_or_issuer"`
	HSAEligible    bool     `json:"hsa_eligible"`
	Tags           []string `json:"tags,omitempty"`
}

// Attribute names a numeric candidate field that linear constraints can sum over
type Attribute string

// Summable candidate attributes
const (
	AttrMonthlyCost    Attribute = "monthly_cost"
	AttrDeductible     Attribute = "deductible"
	AttrOutOfPocketMax Attribute = "out_of_pocket_max"
)

// Value returns the candidate's value for attribute a
func (c Candidate) Value(a Attribute) float64 {
	switch a {
	case AttrMonthlyCost:
		return c.MonthlyCost
	case AttrDeductible:
		return c.Deductible
	case AttrOutOfPocketMax:
		return c.OutOfPocketMax
	}
	return 0
}

// Package types provides type definitions for structured data used throughout the benefit-optimizer system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import "time"

// BundleStatus is the lifecycle state of a stored bundle
type BundleStatus string

// Bundle statuses
const (
	BundleDraft    BundleStatus = "draft"
	BundleActive   BundleStatus = "active"
	BundleInactive BundleStatus = "inactive"
	BundleArchived BundleStatus = "archived"
)

// Valid reports whether s is a known bundle status
func (s BundleStatus) Valid() bool {
	switch s {
	case BundleDraft, BundleActive, BundleInactive, BundleArchived:
		return true
	}
	return false
}

// BundleRequest asks for the cheapest bundle satisfying the given preferences
type BundleRequest struct {
	Name               string        `json:"name" validate:"required,max=200"`
	Description        string        `json:"description,omitempty"`
	BenefitTypes       []BenefitType `json:"benefit_types" validate:"dive,oneof=health_insurance dental vision prescription mental_health wellness"`
	CoverageLevel      CoverageLevel `json:"coverage_level,omitempty" validate:"omitempty,oneof=individual family employee_and_spouse employee_and_children"`
	BudgetConstraint   *float64      `json:"budget_constraint,omitempty" validate:"omitempty,gte=0"`
	PreferredProviders []string      `json:"preferred_providers,omitempty"`
	RequiredBenefits   []BenefitType `json:"required_benefits,omitempty" validate:"dive,oneof=health_insurance dental vision prescription mental_health wellness"`
	MaxDeductible      *float64      `json:"max_deductible,omitempty" validate:"omitempty,gte=0"`
	MaxOutOfPocket     *float64      `json:"max_out_of_pocket,omitempty" validate:"omitempty,gte=0"`
	NetworkPreferences []string      `json:"network_preferences,omitempty"`
}

// Validate validates the BundleRequest using the validator.
func (r *BundleRequest) Validate() error {
	return validate.Struct(r)
}

// Spec converts the request into bundle assembly preferences.
// Required benefits are folded into the requested types, keeping first-seen order.
func (r *BundleRequest) Spec() BundleSpec {
	seen := make(map[BenefitType]bool)
	required := make([]Category, 0, len(r.BenefitTypes)+len(r.RequiredBenefits))
	for _, list := range [][]BenefitType{r.BenefitTypes, r.RequiredBenefits} {
		for _, t := range list {
			if seen[t] {
				continue
			}
			seen[t] = true
			required = append(required, Category(t))
		}
	}
	return BundleSpec{
		BudgetConstraint:   r.BudgetConstraint,
		RequiredCategories: required,
		MaxDeductible:      r.MaxDeductible,
		MaxOutOfPocket:     r.MaxOutOfPocket,
		PreferredProviders: r.PreferredProviders,
	}
}

// RequestedTypes returns the distinct benefit types the request touches
func (r *BundleRequest) RequestedTypes() []BenefitType {
	spec := r.Spec()
	out := make([]BenefitType, 0, len(spec.RequiredCategories))
	for _, c := range spec.RequiredCategories {
		out = append(out, BenefitType(c))
	}
	return out
}

// Bundle is a stored, optimized set of benefits
type Bundle struct {
	ID                    string        `json:"id"`
	Name                  string        `json:"name"`
	Description           string        `json:"description"`
	Benefits              []Benefit     `json:"benefits"`
	TotalMonthlyPremium   float64       `json:"total_monthly_premium"`
	TotalAnnualDeductible float64       `json:"total_annual_deductible"`
	TotalMaxOutOfPocket   float64       `json:"total_max_out_of_pocket"`
	Status                BundleStatus  `json:"status"`
	CoverageLevel         CoverageLevel `json:"coverage_level,omitempty"`
	NetworkPreferences    []string      `json:"network_preferences,omitempty"`
	Warnings              []string      `json:"warnings,omitempty"`
	CreatedAt             time.Time     `json:"created_at"`
	UpdatedAt             time.Time     `json:"updated_at"`
}

// BundleTypes returns the benefit type of every benefit in the bundle, in bundle order
func (b *Bundle) BundleTypes() []BenefitType {
	out := make([]BenefitType, 0, len(b.Benefits))
	for _, benefit := range b.Benefits {
		out = append(out, benefit.Type)
	}
	return out
}

// CompareRequest lists the stored bundles to compare
type CompareRequest struct {
	BundleIDs []string `json:"bundle_ids" validate:"required,min=2,dive,required"`
}

// Validate validates the CompareRequest using the validator.
func (r *CompareRequest) Validate() error {
	return validate.Struct(r)
}

// ComparisonRow summarizes one bundle in a comparison matrix
type ComparisonRow struct {
	Name                  string        `json:"name"`
	TotalMonthlyPremium   float64       `json:"total_monthly_premium"`
	TotalAnnualDeductible float64       `json:"total_annual_deductible"`
	TotalMaxOutOfPocket   float64       `json:"total_max_out_of_pocket"`
	BenefitCount          int           `json:"benefit_count"`
	BenefitTypes          []BenefitType `json:"benefit_types"`
}

// Comparison is the result of comparing two or more bundles
type Comparison struct {
	Bundles          []Bundle                 `json:"bundles"`
	ComparisonMatrix map[string]ComparisonRow `json:"comparison_matrix"`
	Recommendations  []string                 `json:"recommendations"`
}

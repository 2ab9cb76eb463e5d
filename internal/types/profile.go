// Package types provides type definitions for structured data used throughout the benefit-optimizer system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"fmt"
	"math"
)

// RequesterProfile describes the person a single plan is chosen for
type RequesterProfile struct {
	Age               int                `json:"age" validate:"gte=0,lte=130"`
	RiskScore         float64            `json:"risk_score" validate:"gte=0,lte=1"`
	BudgetCap         float64            `json:"budget_cap" validate:"gt=0"`
	PreferenceWeights map[string]float64 `json:"preference_weights" validate:"dive,gte=0"`
}

// Validate checks the profile ranges. Infinite values are rejected along with NaN.
func (p *RequesterProfile) Validate() error {
	if err := validate.Struct(p); err != nil {
		return err
	}
	if math.IsInf(p.BudgetCap, 0) {
		return &FieldError{Field: "budget_cap", Message: "must be finite"}
	}
	for key, w := range p.PreferenceWeights {
		if math.IsInf(w, 0) {
			return &FieldError{Field: "preference_weights[" + key + "]", Message: "must be finite"}
		}
	}
	return nil
}

// BundleSpec carries the bundle assembly preferences. Nil ceilings mean no constraint.
type BundleSpec struct {
	BudgetConstraint   *float64   `json:"budget_constraint,omitempty" validate:"omitempty,gte=0"`
	RequiredCategories []Category `json:"required_categories,omitempty"`
	MaxDeductible      *float64   `json:"max_deductible,omitempty" validate:"omitempty,gte=0"`
	MaxOutOfPocket     *float64   `json:"max_out_of_pocket,omitempty" validate:"omitempty,gte=0"`
	PreferredProviders []string   `json:"preferred_providers,omitempty"`
}

// Validate checks that every present ceiling is a finite non-negative number
func (s *BundleSpec) Validate() error {
	if err := validate.Struct(s); err != nil {
		return err
	}
	ceilings := []struct {
		field string
		value *float64
	}{
		{"budget_constraint", s.BudgetConstraint},
		{"max_deductible", s.MaxDeductible},
		{"max_out_of_pocket", s.MaxOutOfPocket},
	}
	for _, c := range ceilings {
		if c.value != nil && math.IsInf(*c.value, 0) {
			return &FieldError{Field: c.field, Message: "must be finite"}
		}
	}
	return nil
}

// FieldError reports a single invalid field outside of struct tag validation
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

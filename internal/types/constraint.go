// Package types provides type definitions for structured data used throughout the benefit-optimizer system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import "fmt"

// ConstraintKind tags the variant held by a Constraint
type ConstraintKind string

// Constraint variants
const (
	ConstraintBudget                ConstraintKind = "budget"
	ConstraintExactlyOneSelected    ConstraintKind = "exactly_one_selected"
	ConstraintAtLeastOneOfCategory  ConstraintKind = "at_least_one_of_category"
	ConstraintSumAttributeLessEqual ConstraintKind = "sum_attribute_less_equal"
	ConstraintPreferredAtLeastOther ConstraintKind = "count_preferred_ge_count_others"
	ConstraintExcludeIf             ConstraintKind = "exclude_if"
)

// Predicate is a named, data-only candidate test used by ExcludeIf constraints
type Predicate string

// Known predicates
const (
	PredicateHSAEligible Predicate = "hsa_eligible"
)

// Matches reports whether the candidate satisfies the predicate
func (p Predicate) Matches(c Candidate) bool {
	switch p {
	case PredicateHSAEligible:
		return c.HSAEligible
	}
	return false
}

// Constraint is a tagged variant. Only the fields relevant to Kind are set.
type Constraint struct {
	Kind      ConstraintKind `json:"kind"`
	Ceiling   float64        `json:"ceiling,omitempty"`
	Attribute Attribute      `json:"attribute,omitempty"`
	Category  Category       `json:"category,omitempty"`
	Providers []string       `json:"providers,omitempty"`
	Predicate Predicate      `json:"predicate,omitempty"`
}

// Budget caps the summed monthly cost of the selection
func Budget(ceiling float64) Constraint {
	return Constraint{Kind: ConstraintBudget, Attribute: AttrMonthlyCost, Ceiling: ceiling}
}

// ExactlyOneSelected requires a selection of exactly one candidate
func ExactlyOneSelected() Constraint {
	return Constraint{Kind: ConstraintExactlyOneSelected}
}

// AtLeastOneOfCategory requires the selection to cover category
func AtLeastOneOfCategory(category Category) Constraint {
	return Constraint{Kind: ConstraintAtLeastOneOfCategory, Category: category}
}

// SumAttributeLessEqual caps the summed attribute of the selection
func SumAttributeLessEqual(attribute Attribute, ceiling float64) Constraint {
	return Constraint{Kind: ConstraintSumAttributeLessEqual, Attribute: attribute, Ceiling: ceiling}
}

// CountPreferredGreaterEqualCountOthers requires at least as many picks from
// the preferred providers as from everyone else
func CountPreferredGreaterEqualCountOthers(providers []string) Constraint {
	return Constraint{Kind: ConstraintPreferredAtLeastOther, Providers: append([]string(nil), providers...)}
}

// ExcludeIf forces every candidate matching predicate to stay unselected
func ExcludeIf(predicate Predicate) Constraint {
	return Constraint{Kind: ConstraintExcludeIf, Predicate: predicate}
}

func (c Constraint) String() string {
	switch c.Kind {
	case ConstraintBudget:
		return fmt.Sprintf("Budget(%g)", c.Ceiling)
	case ConstraintExactlyOneSelected:
		return "ExactlyOneSelected"
	case ConstraintAtLeastOneOfCategory:
		return fmt.Sprintf("AtLeastOneOfCategory(%s)", c.Category)
	case ConstraintSumAttributeLessEqual:
		return fmt.Sprintf("SumAttributeLessEqual(%s, %g)", c.Attribute, c.Ceiling)
	case ConstraintPreferredAtLeastOther:
		return fmt.Sprintf("CountPreferredGreaterEqualCountOthers(%v)", c.Providers)
	case ConstraintExcludeIf:
		return fmt.Sprintf("ExcludeIf(%s)", c.Predicate)
	}
	return string(c.Kind)
}

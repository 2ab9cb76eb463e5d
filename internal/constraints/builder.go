// Package constraints translates requester preferences into the typed constraints the optimizer interprets.
package constraints

import (
	"fmt"

	"github.com/jonathan/benefit-optimizer/internal/scoring"
	"github.com/jonathan/benefit-optimizer/internal/types"
)

// Set is the output of the builder: the constraints to apply and any caller-facing warnings
type Set struct {
	Constraints []types.Constraint
	Warnings    []string
}

// ForBundle builds the bundle assembly constraints. A preference that is absent adds no constraint.
// A required category with no matching candidate cannot be constrained and is reported as a warning.
func ForBundle(pool []types.Candidate, spec types.BundleSpec) Set {
	var set Set

	if spec.BudgetConstraint != nil {
		set.Constraints = append(set.Constraints, types.SumAttributeLessEqual(types.AttrMonthlyCost, *spec.BudgetConstraint))
	}

	present := make(map[types.Category]bool)
	for _, c := range pool {
		present[c.Category] = true
	}
	seen := make(map[types.Category]bool)
	for _, category := range spec.RequiredCategories {
		if seen[category] {
			continue
		}
		seen[category] = true
		if !present[category] {
			set.Warnings = append(set.Warnings, fmt.Sprintf("no candidates available for required category %q; category not enforced", category))
			continue
		}
		set.Constraints = append(set.Constraints, types.AtLeastOneOfCategory(category))
	}

	if spec.MaxDeductible != nil {
		set.Constraints = append(set.Constraints, types.SumAttributeLessEqual(types.AttrDeductible, *spec.MaxDeductible))
	}
	if spec.MaxOutOfPocket != nil {
		set.Constraints = append(set.Constraints, types.SumAttributeLessEqual(types.AttrOutOfPocketMax, *spec.MaxOutOfPocket))
	}

	if len(spec.PreferredProviders) > 0 {
		preferred, others := SplitByProvider(pool, spec.PreferredProviders)
		if len(preferred) > 0 && len(others) > 0 {
			set.Constraints = append(set.Constraints, types.CountPreferredGreaterEqualCountOthers(spec.PreferredProviders))
		}
	}

	return set
}

// ForChoice builds the single-choice constraints: exactly one pick within the budget cap,
// and no HSA-eligible pick unless a preference key asks for HSA.
func ForChoice(profile types.RequesterProfile) Set {
	set := Set{
		Constraints: []types.Constraint{
			types.ExactlyOneSelected(),
			types.Budget(profile.BudgetCap),
		},
	}
	if !scoring.WantsHSA(profile.PreferenceWeights) {
		set.Constraints = append(set.Constraints, types.ExcludeIf(types.PredicateHSAEligible))
	}
	return set
}

// SplitByProvider partitions pool into candidates from the given providers and all others
func SplitByProvider(pool []types.Candidate, providers []string) (preferred, others []types.Candidate) {
	set := ProviderSet(providers)
	for _, c := range pool {
		if set[c.Provider] {
			preferred = append(preferred, c)
		} else {
			others = append(others, c)
		}
	}
	return preferred, others
}

// ProviderSet turns a provider list into a membership set. Matching is exact.
func ProviderSet(providers []string) map[string]bool {
	set := make(map[string]bool, len(providers))
	for _, p := range providers {
		set[p] = true
	}
	return set
}

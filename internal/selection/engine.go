// Package selection provides the constrained selection engine: an exact branch-and-bound optimizer
// over one binary decision per candidate, for bundle assembly and single-choice selection.
package selection

import (
	"context"
	"errors"
	"time"

	"github.com/jonathan/benefit-optimizer/internal/candidates"
	"github.com/jonathan/benefit-optimizer/internal/constraints"
	"github.com/jonathan/benefit-optimizer/internal/scoring"
	"github.com/jonathan/benefit-optimizer/internal/types"
)

// OptimizeBundle selects the subset of pool with the lowest total monthly cost that satisfies spec.
// An empty pool is infeasible before any solve attempt. Malformed candidates or preferences are
// returned as errors of kind InvalidCandidate or InvalidProfile.
func OptimizeBundle(ctx context.Context, pool []types.Candidate, spec types.BundleSpec) (*types.SelectionResult, error) {
	start := time.Now()
	if len(pool) == 0 {
		return composeInfeasible(types.ModeBundle, types.ReasonEmptyPool, nil, start), nil
	}
	if err := candidates.ValidatePool(pool); err != nil {
		return nil, invalidCandidate(err)
	}
	if err := spec.Validate(); err != nil {
		return nil, &Error{Kind: KindInvalidProfile, Field: types.InvalidField(err), Message: "invalid bundle preferences", Cause: err}
	}

	set := constraints.ForBundle(pool, spec)
	problem := NewProblem(Minimize, pool, func(c types.Candidate) float64 {
		return c.MonthlyCost
	})
	sol, err := solve(ctx, problem, set.Constraints)
	if err != nil {
		return nil, err
	}
	if sol.Status != types.StatusOptimal {
		return composeInfeasible(types.ModeBundle, types.ReasonNoFeasibleAssignment, set.Warnings, start), nil
	}
	return composeBundle(sol, set.Warnings, start), nil
}

// OptimizeChoice selects the single candidate in pool with the highest utility for profile,
// within the profile's budget cap and HSA eligibility rule.
func OptimizeChoice(ctx context.Context, pool []types.Candidate, profile types.RequesterProfile) (*types.SelectionResult, error) {
	start := time.Now()
	if len(pool) == 0 {
		return composeInfeasible(types.ModeChoice, types.ReasonEmptyPool, nil, start), nil
	}
	if err := candidates.ValidatePool(pool); err != nil {
		return nil, invalidCandidate(err)
	}
	if err := profile.Validate(); err != nil {
		return nil, &Error{Kind: KindInvalidProfile, Field: types.InvalidField(err), Message: "invalid requester profile", Cause: err}
	}

	set := constraints.ForChoice(profile)
	problem := NewProblem(Maximize, pool, func(c types.Candidate) float64 {
		return scoring.Utility(c, profile)
	})
	sol, err := solve(ctx, problem, set.Constraints)
	if err != nil {
		return nil, err
	}
	if sol.Status != types.StatusOptimal {
		return composeInfeasible(types.ModeChoice, types.ReasonNoFeasibleAssignment, set.Warnings, start), nil
	}
	if len(sol.Chosen) != 1 {
		return nil, faultf("single choice returned %d candidates", len(sol.Chosen))
	}
	return composeChoice(sol, start), nil
}

func solve(ctx context.Context, problem *Problem, cs []types.Constraint) (*Solution, error) {
	if err := problem.Build(cs); err != nil {
		return nil, err
	}
	return problem.Solve(ctx)
}

func invalidCandidate(err error) *Error {
	field := ""
	var cerr *candidates.Error
	if errors.As(err, &cerr) {
		field = cerr.Field
	}
	return &Error{Kind: KindInvalidCandidate, Field: field, Message: "invalid candidate", Cause: err}
}

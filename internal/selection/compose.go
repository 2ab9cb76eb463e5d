// Package selection provides the constrained selection engine: an exact branch-and-bound optimizer
// over one binary decision per candidate, for bundle assembly and single-choice selection.
package selection

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jonathan/benefit-optimizer/internal/types"
)

// SumTotals adds up cost, deductible and out-of-pocket maximum over the chosen candidates.
// Sums are taken in decimal so that cent amounts do not drift.
func SumTotals(chosen []types.Candidate) types.Totals {
	cost, deductible, oop := decimal.Zero, decimal.Zero, decimal.Zero
	for _, c := range chosen {
		cost = cost.Add(decimal.NewFromFloat(c.MonthlyCost))
		deductible = deductible.Add(decimal.NewFromFloat(c.Deductible))
		oop = oop.Add(decimal.NewFromFloat(c.OutOfPocketMax))
	}
	return types.Totals{
		MonthlyCost:    cost.InexactFloat64(),
		Deductible:     deductible.InexactFloat64(),
		OutOfPocketMax: oop.InexactFloat64(),
	}
}

func composeBundle(sol *Solution, warnings []string, start time.Time) *types.SelectionResult {
	totals := SumTotals(sol.Chosen)
	return &types.SelectionResult{
		Status:         types.StatusOptimal,
		Mode:           types.ModeBundle,
		Chosen:         sol.Chosen,
		ObjectiveValue: totals.MonthlyCost,
		Totals:         totals,
		ElapsedMS:      elapsedMS(start),
		Warnings:       warnings,
	}
}

func composeChoice(sol *Solution, start time.Time) *types.SelectionResult {
	return &types.SelectionResult{
		Status:         types.StatusOptimal,
		Mode:           types.ModeChoice,
		Chosen:         sol.Chosen,
		ObjectiveValue: sol.Objective,
		Totals:         SumTotals(sol.Chosen),
		ElapsedMS:      elapsedMS(start),
	}
}

func composeInfeasible(mode types.Mode, reason string, warnings []string, start time.Time) *types.SelectionResult {
	return &types.SelectionResult{
		Status:    types.StatusInfeasible,
		Mode:      mode,
		Reason:    reason,
		ElapsedMS: elapsedMS(start),
		Warnings:  warnings,
	}
}

func elapsedMS(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}

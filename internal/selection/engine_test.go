package selection

import (
	"context"
	"testing"

	"github.com/jonathan/benefit-optimizer/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 {
	return &v
}

func dentalVisionPool() []types.Candidate {
	return []types.Candidate{
		{ID: "dental_basic", MonthlyCost: 25, Deductible: 50, OutOfPocketMax: 1000, Category: "dental", Provider: "Delta"},
		{ID: "dental_plus", MonthlyCost: 40, Deductible: 0, OutOfPocketMax: 500, Category: "dental", Provider: "Aetna"},
		{ID: "vision_basic", MonthlyCost: 10, Deductible: 0, OutOfPocketMax: 200, Category: "vision", Provider: "VSP"},
		{ID: "vision_plus", MonthlyCost: 18, Deductible: 0, OutOfPocketMax: 100, Category: "vision", Provider: "Aetna"},
	}
}

func TestOptimizeChoice_BudgetExcludesExpensivePlan(t *testing.T) {
	pool := []types.Candidate{
		{ID: "p1", MonthlyCost: 100, CoverageValue: 0.7, OutOfPocketMax: 6000, Deductible: 1000, Category: "standard"},
		{ID: "p2", MonthlyCost: 600, CoverageValue: 0.9, OutOfPocketMax: 2000, Deductible: 200, Category: "premium"},
	}
	profile := types.RequesterProfile{Age: 35, RiskScore: 0.5, BudgetCap: 500}

	result, err := OptimizeChoice(context.Background(), pool, profile)
	require.NoError(t, err)
	require.True(t, result.Optimal())
	assert.Equal(t, types.ModeChoice, result.Mode)
	assert.Equal(t, []string{"p1"}, result.ChosenIDs())
	assert.Equal(t, 100.0, result.Totals.MonthlyCost)
	assert.Greater(t, result.ObjectiveValue, 0.0)
	assert.GreaterOrEqual(t, result.ElapsedMS, 0.0)
}

func TestOptimize_EmptyPoolIsInfeasible(t *testing.T) {
	bundle, err := OptimizeBundle(context.Background(), nil, types.BundleSpec{BudgetConstraint: ptr(-1)})
	require.NoError(t, err, "empty pool wins over invalid preferences")
	assert.Equal(t, types.StatusInfeasible, bundle.Status)
	assert.Equal(t, types.ReasonEmptyPool, bundle.Reason)
	assert.Empty(t, bundle.Chosen)

	choice, err := OptimizeChoice(context.Background(), []types.Candidate{}, types.RequesterProfile{BudgetCap: 100})
	require.NoError(t, err)
	assert.Equal(t, types.StatusInfeasible, choice.Status)
	assert.Equal(t, types.ReasonEmptyPool, choice.Reason)
}

func TestOptimizeBundle_MissingRequiredCategoryIsSkipped(t *testing.T) {
	pool := []types.Candidate{
		{ID: "vision_basic", MonthlyCost: 10, Category: "vision"},
	}
	spec := types.BundleSpec{RequiredCategories: []types.Category{"dental"}}

	result, err := OptimizeBundle(context.Background(), pool, spec)
	require.NoError(t, err)
	require.True(t, result.Optimal())
	assert.Empty(t, result.Chosen)
	assert.Equal(t, 0.0, result.ObjectiveValue)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "dental")
}

func TestOptimizeBundle_BudgetBelowCheapestRequired(t *testing.T) {
	spec := types.BundleSpec{
		BudgetConstraint:   ptr(20),
		RequiredCategories: []types.Category{"dental"},
	}

	result, err := OptimizeBundle(context.Background(), dentalVisionPool(), spec)
	require.NoError(t, err)
	assert.Equal(t, types.StatusInfeasible, result.Status)
	assert.Equal(t, types.ReasonNoFeasibleAssignment, result.Reason)
	assert.Empty(t, result.Chosen)
}

func TestOptimizeBundle_CheapestCoverOfRequiredCategories(t *testing.T) {
	spec := types.BundleSpec{
		BudgetConstraint:   ptr(100),
		RequiredCategories: []types.Category{"dental", "vision"},
	}

	result, err := OptimizeBundle(context.Background(), dentalVisionPool(), spec)
	require.NoError(t, err)
	require.True(t, result.Optimal())
	assert.Equal(t, []string{"dental_basic", "vision_basic"}, result.ChosenIDs())
	assert.Equal(t, 35.0, result.ObjectiveValue)
	assert.Equal(t, types.Totals{MonthlyCost: 35, Deductible: 50, OutOfPocketMax: 1200}, result.Totals)
}

func TestOptimizeBundle_DeductibleAndOOPCeilings(t *testing.T) {
	spec := types.BundleSpec{
		RequiredCategories: []types.Category{"dental"},
		MaxDeductible:      ptr(10),
		MaxOutOfPocket:     ptr(800),
	}

	result, err := OptimizeBundle(context.Background(), dentalVisionPool(), spec)
	require.NoError(t, err)
	require.True(t, result.Optimal())
	assert.Equal(t, []string{"dental_plus"}, result.ChosenIDs())
}

func TestOptimizeBundle_ZeroBudgetIsEnforced(t *testing.T) {
	spec := types.BundleSpec{
		BudgetConstraint:   ptr(0),
		RequiredCategories: []types.Category{"vision"},
	}

	result, err := OptimizeBundle(context.Background(), dentalVisionPool(), spec)
	require.NoError(t, err)
	assert.Equal(t, types.StatusInfeasible, result.Status)
}

func TestOptimizeBundle_PreferredProviders(t *testing.T) {
	spec := types.BundleSpec{
		RequiredCategories: []types.Category{"dental", "vision"},
		PreferredProviders: []string{"Aetna"},
	}

	result, err := OptimizeBundle(context.Background(), dentalVisionPool(), spec)
	require.NoError(t, err)
	require.True(t, result.Optimal())
	// dental_basic + vision_basic would be cheapest but has no preferred provider
	assert.Equal(t, []string{"dental_basic", "vision_plus"}, result.ChosenIDs())
	assert.Equal(t, 43.0, result.ObjectiveValue)
}

func TestOptimizeBundle_PreferredProvidersCanMakeBundleInfeasible(t *testing.T) {
	pool := []types.Candidate{
		{ID: "d1", MonthlyCost: 10, Category: "dental", Provider: "Delta"},
		{ID: "v1", MonthlyCost: 10, Category: "vision", Provider: "VSP"},
		{ID: "x1", MonthlyCost: 10, Category: "wellness", Provider: "Aetna"},
	}
	spec := types.BundleSpec{
		BudgetConstraint:   ptr(20),
		RequiredCategories: []types.Category{"dental", "vision"},
		PreferredProviders: []string{"Aetna"},
	}

	result, err := OptimizeBundle(context.Background(), pool, spec)
	require.NoError(t, err)
	assert.Equal(t, types.StatusInfeasible, result.Status)
}

func TestOptimizeBundle_ZeroCostCandidatesAreIncluded(t *testing.T) {
	pool := []types.Candidate{
		{ID: "eap", MonthlyCost: 0, Category: "mental_health"},
		{ID: "vision_basic", MonthlyCost: 10, Category: "vision"},
	}

	result, err := OptimizeBundle(context.Background(), pool, types.BundleSpec{})
	require.NoError(t, err)
	require.True(t, result.Optimal())
	assert.Equal(t, []string{"eap"}, result.ChosenIDs())
}

func TestOptimizeChoice_HSAExclusion(t *testing.T) {
	pool := []types.Candidate{
		{ID: "hdhp", MonthlyCost: 150, CoverageValue: 0.95, OutOfPocketMax: 3000, Deductible: 1500, HSAEligible: true, Category: "standard"},
		{ID: "ppo", MonthlyCost: 300, CoverageValue: 0.6, OutOfPocketMax: 8000, Deductible: 3000, Category: "basic"},
	}

	result, err := OptimizeChoice(context.Background(), pool, types.RequesterProfile{BudgetCap: 400})
	require.NoError(t, err)
	require.True(t, result.Optimal())
	assert.Equal(t, []string{"ppo"}, result.ChosenIDs())

	result, err = OptimizeChoice(context.Background(), pool, types.RequesterProfile{
		BudgetCap:         400,
		PreferenceWeights: map[string]float64{"HSA_priority": 1},
	})
	require.NoError(t, err)
	require.True(t, result.Optimal())
	assert.Equal(t, []string{"hdhp"}, result.ChosenIDs())
}

func TestOptimizeChoice_NothingWithinBudget(t *testing.T) {
	pool := []types.Candidate{
		{ID: "p1", MonthlyCost: 600, CoverageValue: 0.8},
	}

	result, err := OptimizeChoice(context.Background(), pool, types.RequesterProfile{BudgetCap: 500})
	require.NoError(t, err)
	assert.Equal(t, types.StatusInfeasible, result.Status)
	assert.Equal(t, types.ReasonNoFeasibleAssignment, result.Reason)
}

func TestOptimizeChoice_TieGoesToLowestID(t *testing.T) {
	plan := types.Candidate{MonthlyCost: 200, CoverageValue: 0.8, OutOfPocketMax: 4000, Deductible: 1000}
	a, b, c := plan, plan, plan
	a.ID, b.ID, c.ID = "plan_c", "plan_a", "plan_b"

	for i := 0; i < 5; i++ {
		result, err := OptimizeChoice(context.Background(), []types.Candidate{a, b, c}, types.RequesterProfile{BudgetCap: 500})
		require.NoError(t, err)
		assert.Equal(t, []string{"plan_a"}, result.ChosenIDs())
	}
}

func TestOptimize_InvalidInputs(t *testing.T) {
	tests := []struct {
		name      string
		run       func() error
		wantKind  ErrorKind
		wantField string
	}{
		{
			name: "negative cost",
			run: func() error {
				_, err := OptimizeBundle(context.Background(), []types.Candidate{{ID: "a", MonthlyCost: -1}}, types.BundleSpec{})
				return err
			},
			wantKind:  KindInvalidCandidate,
			wantField: "monthly_cost",
		},
		{
			name: "duplicate id",
			run: func() error {
				_, err := OptimizeBundle(context.Background(), []types.Candidate{{ID: "a"}, {ID: "a"}}, types.BundleSpec{})
				return err
			},
			wantKind:  KindInvalidCandidate,
			wantField: "id",
		},
		{
			name: "negative budget constraint",
			run: func() error {
				_, err := OptimizeBundle(context.Background(), dentalVisionPool(), types.BundleSpec{BudgetConstraint: ptr(-5)})
				return err
			},
			wantKind:  KindInvalidProfile,
			wantField: "budget_constraint",
		},
		{
			name: "zero budget cap",
			run: func() error {
				_, err := OptimizeChoice(context.Background(), dentalVisionPool(), types.RequesterProfile{BudgetCap: 0})
				return err
			},
			wantKind:  KindInvalidProfile,
			wantField: "budget_cap",
		},
		{
			name: "risk score out of range",
			run: func() error {
				_, err := OptimizeChoice(context.Background(), dentalVisionPool(), types.RequesterProfile{BudgetCap: 100, RiskScore: 1.5})
				return err
			},
			wantKind:  KindInvalidProfile,
			wantField: "risk_score",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, KindOf(err))
			var serr *Error
			require.ErrorAs(t, err, &serr)
			assert.Equal(t, tt.wantField, serr.Field)
		})
	}
}

func TestOptimize_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := OptimizeBundle(ctx, dentalVisionPool(), types.BundleSpec{})
	require.Error(t, err)
	assert.Equal(t, KindCancelled, KindOf(err))
	assert.ErrorIs(t, err, context.Canceled)

	_, err = OptimizeChoice(ctx, dentalVisionPool(), types.RequesterProfile{BudgetCap: 100})
	assert.Equal(t, KindCancelled, KindOf(err))
}

func TestSumTotals_DecimalAccumulation(t *testing.T) {
	totals := SumTotals([]types.Candidate{
		{ID: "a", MonthlyCost: 0.1, Deductible: 0.2},
		{ID: "b", MonthlyCost: 0.2, Deductible: 0.1},
	})
	assert.Equal(t, 0.3, totals.MonthlyCost)
	assert.Equal(t, 0.3, totals.Deductible)
	assert.Equal(t, 0.0, totals.OutOfPocketMax)
}

package selection

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jonathan/benefit-optimizer/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func costOf(c types.Candidate) float64 {
	return c.MonthlyCost
}

func TestProblem_Lifecycle(t *testing.T) {
	p := NewProblem(Minimize, dentalVisionPool(), costOf)
	assert.Equal(t, StateUnbuilt, p.State())

	require.NoError(t, p.Build([]types.Constraint{types.AtLeastOneOfCategory("vision")}))
	assert.Equal(t, StateBuilt, p.State())

	sol, err := p.Solve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateOptimal, p.State())
	assert.True(t, p.State().Terminal())
	assert.Equal(t, types.StatusOptimal, sol.Status)
	require.Len(t, sol.Chosen, 1)
	assert.Equal(t, "vision_basic", sol.Chosen[0].ID)
	assert.Equal(t, 10.0, sol.Objective)
	assert.Positive(t, p.Nodes())
}

func TestProblem_InfeasibleState(t *testing.T) {
	p := NewProblem(Minimize, dentalVisionPool(), costOf)
	require.NoError(t, p.Build([]types.Constraint{
		types.AtLeastOneOfCategory("dental"),
		types.SumAttributeLessEqual(types.AttrMonthlyCost, 5),
	}))

	sol, err := p.Solve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.StatusInfeasible, sol.Status)
	assert.Equal(t, StateInfeasible, p.State())
}

func TestProblem_OutOfOrderCallsAreFaults(t *testing.T) {
	t.Run("solve before build", func(t *testing.T) {
		p := NewProblem(Minimize, dentalVisionPool(), costOf)
		_, err := p.Solve(context.Background())
		require.Error(t, err)
		assert.Equal(t, KindSolverFault, KindOf(err))
		assert.Contains(t, err.Error(), "unbuilt")
		assert.Equal(t, StateError, p.State())
	})

	t.Run("build twice", func(t *testing.T) {
		p := NewProblem(Minimize, dentalVisionPool(), costOf)
		require.NoError(t, p.Build(nil))
		err := p.Build(nil)
		require.Error(t, err)
		assert.Equal(t, KindSolverFault, KindOf(err))
		assert.Contains(t, err.Error(), "built")
	})

	t.Run("solve twice", func(t *testing.T) {
		p := NewProblem(Minimize, dentalVisionPool(), costOf)
		require.NoError(t, p.Build(nil))
		_, err := p.Solve(context.Background())
		require.NoError(t, err)
		_, err = p.Solve(context.Background())
		assert.Equal(t, KindSolverFault, KindOf(err))
	})
}

func TestProblem_UnknownConstraintKind(t *testing.T) {
	p := NewProblem(Minimize, dentalVisionPool(), costOf)
	err := p.Build([]types.Constraint{{Kind: "max_age"}})
	require.Error(t, err)
	assert.Equal(t, KindSolverFault, KindOf(err))
	assert.Equal(t, StateError, p.State())
}

func TestProblem_NonFiniteObjective(t *testing.T) {
	p := NewProblem(Maximize, dentalVisionPool(), func(types.Candidate) float64 {
		return 1 / zero()
	})
	err := p.Build(nil)
	require.Error(t, err)
	assert.Equal(t, KindSolverFault, KindOf(err))
}

func zero() float64 {
	return 0
}

func TestProblem_ExactlyOneWithExclusion(t *testing.T) {
	pool := []types.Candidate{
		{ID: "a", MonthlyCost: 10, HSAEligible: true},
		{ID: "b", MonthlyCost: 20},
		{ID: "c", MonthlyCost: 30},
	}
	p := NewProblem(Maximize, pool, costOf)
	require.NoError(t, p.Build([]types.Constraint{
		types.ExactlyOneSelected(),
		types.Budget(25),
		types.ExcludeIf(types.PredicateHSAEligible),
	}))

	sol, err := p.Solve(context.Background())
	require.NoError(t, err)
	require.Len(t, sol.Chosen, 1)
	assert.Equal(t, "b", sol.Chosen[0].ID)
}

func TestProblem_LargePoolCompletes(t *testing.T) {
	pool := make([]types.Candidate, 0, 40)
	for i := 0; i < 40; i++ {
		pool = append(pool, types.Candidate{
			ID:          string(rune('A'+i%26)) + string(rune('a'+i/26)),
			MonthlyCost: float64(5 + (i*7)%23),
			Category:    testCategories[i%len(testCategories)],
		})
	}
	p := NewProblem(Minimize, pool, costOf)
	cs := []types.Constraint{types.SumAttributeLessEqual(types.AttrMonthlyCost, 200)}
	for _, category := range testCategories {
		cs = append(cs, types.AtLeastOneOfCategory(category))
	}
	require.NoError(t, p.Build(cs))

	sol, err := p.Solve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.StatusOptimal, sol.Status)
	assert.Len(t, sol.Chosen, len(testCategories))
}

func TestProblem_PresolveDropsCandidatesOverCeiling(t *testing.T) {
	pool := []types.Candidate{
		{ID: "a", MonthlyCost: 5, Deductible: 100, Category: "dental"},
		{ID: "b", MonthlyCost: 1, Deductible: 900, Category: "dental"},
		{ID: "c", MonthlyCost: 2, Deductible: 500, Category: "vision"},
	}
	p := NewProblem(Minimize, pool, costOf)
	require.NoError(t, p.Build([]types.Constraint{
		types.AtLeastOneOfCategory("dental"),
		types.SumAttributeLessEqual(types.AttrDeductible, 500),
	}))
	assert.Equal(t, []bool{false, true, false}, p.fixedZero)

	sol, err := p.Solve(context.Background())
	require.NoError(t, err)
	require.Len(t, sol.Chosen, 1)
	assert.Equal(t, "a", sol.Chosen[0].ID)
}

// preferredOverCeilingPool puts every preferred candidate above a 500 deductible ceiling, so the
// preference row only holds with no picks while each test category needs one
func preferredOverCeilingPool(others int) []types.Candidate {
	pool := make([]types.Candidate, 0, others+10)
	for i := 0; i < others; i++ {
		pool = append(pool, types.Candidate{
			ID:            fmt.Sprintf("delta_%03d", i),
			MonthlyCost:   float64(10 + i%7),
			CoverageValue: 0.5,
			Category:      testCategories[i%len(testCategories)],
			Provider:      "Delta",
		})
	}
	for i := 0; i < 10; i++ {
		pool = append(pool, types.Candidate{
			ID:            fmt.Sprintf("aetna_%02d", i),
			MonthlyCost:   float64(5 + i),
			Deductible:    1000,
			CoverageValue: 0.5,
			Category:      "vision",
			Provider:      "Aetna",
		})
	}
	return pool
}

func TestProblem_PreferredOverDeductibleCeilingFailsAtRoot(t *testing.T) {
	for _, others := range []int{12, 40, 400} {
		t.Run(fmt.Sprintf("others=%d", others), func(t *testing.T) {
			p := NewProblem(Minimize, preferredOverCeilingPool(others), costOf)
			cs := []types.Constraint{}
			for _, category := range testCategories {
				cs = append(cs, types.AtLeastOneOfCategory(category))
			}
			cs = append(cs,
				types.SumAttributeLessEqual(types.AttrDeductible, 500),
				types.CountPreferredGreaterEqualCountOthers([]string{"Aetna"}),
			)
			require.NoError(t, p.Build(cs))

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			sol, err := p.Solve(ctx)
			require.NoError(t, err)
			assert.Equal(t, types.StatusInfeasible, sol.Status)
			assert.Equal(t, 1, p.Nodes())
		})
	}
}

func TestOptimizeBundle_PreferredOverDeductibleCeilingIsInfeasible(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	result, err := OptimizeBundle(ctx, preferredOverCeilingPool(40), types.BundleSpec{
		RequiredCategories: testCategories,
		MaxDeductible:      ptr(500),
		PreferredProviders: []string{"Aetna"},
	})
	require.NoError(t, err)
	assert.Equal(t, types.StatusInfeasible, result.Status)
	assert.Equal(t, types.ReasonNoFeasibleAssignment, result.Reason)
}

// tradeoffPool pairs cheaper premiums with higher deductibles across the test categories;
// every third candidate comes from Aetna
func tradeoffPool(n int) []types.Candidate {
	pool := make([]types.Candidate, 0, n)
	for i := 0; i < n; i++ {
		cost := float64(20 + (i*37)%61)
		provider := "Delta"
		if i%3 == 0 {
			provider = "Aetna"
		}
		pool = append(pool, types.Candidate{
			ID:             fmt.Sprintf("plan_%03d", i),
			MonthlyCost:    cost,
			Deductible:     4000 - 45*cost + float64((i*11)%5)*20,
			OutOfPocketMax: 6000,
			CoverageValue:  0.5,
			Category:       testCategories[i%len(testCategories)],
			Provider:       provider,
		})
	}
	return pool
}

func tradeoffSpec() types.BundleSpec {
	return types.BundleSpec{
		RequiredCategories: testCategories,
		MaxDeductible:      ptr(6000),
		PreferredProviders: []string{"Aetna"},
	}
}

func TestOptimizeBundle_PreferenceWithDeductibleCeilingCompletes(t *testing.T) {
	for _, n := range []int{40, 80, 160} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			result, err := OptimizeBundle(ctx, tradeoffPool(n), tradeoffSpec())
			require.NoError(t, err)
			require.Equal(t, types.StatusOptimal, result.Status)
			assert.LessOrEqual(t, result.Totals.Deductible, 6000.0)

			covered := map[types.Category]bool{}
			preferred, others := 0, 0
			for _, c := range result.Chosen {
				covered[c.Category] = true
				if c.Provider == "Aetna" {
					preferred++
				} else {
					others++
				}
			}
			assert.Len(t, covered, len(testCategories))
			assert.GreaterOrEqual(t, preferred, others)
		})
	}
}

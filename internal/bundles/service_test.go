package bundles

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jonathan/benefit-optimizer/internal/cache"
	"github.com/jonathan/benefit-optimizer/internal/selection"
	"github.com/jonathan/benefit-optimizer/internal/types"
)

type fakeCatalog struct {
	benefits []types.Benefit
	err      error
	calls    [][]types.BenefitType
}

func (f *fakeCatalog) BenefitsByTypes(_ context.Context, benefitTypes []types.BenefitType) ([]types.Benefit, error) {
	f.calls = append(f.calls, benefitTypes)
	if f.err != nil {
		return nil, f.err
	}
	if len(benefitTypes) == 0 {
		return f.benefits, nil
	}
	want := make(map[types.BenefitType]bool)
	for _, t := range benefitTypes {
		want[t] = true
	}
	var out []types.Benefit
	for _, b := range f.benefits {
		if want[b.Type] {
			out = append(out, b)
		}
	}
	return out, nil
}

func benefit(id string, t types.BenefitType, provider string, premium, deductible, oop float64) types.Benefit {
	return types.Benefit{
		ID:               id,
		Name:             id,
		Type:             t,
		Provider:         provider,
		MonthlyPremium:   premium,
		AnnualDeductible: deductible,
		CoinsuranceRate:  0.2,
		MaxOutOfPocket:   oop,
	}
}

func testCatalog() *fakeCatalog {
	return &fakeCatalog{benefits: []types.Benefit{
		benefit("dental_basic", types.BenefitDental, "Delta", 25, 50, 1000),
		benefit("dental_plus", types.BenefitDental, "Aetna", 40, 0, 800),
		benefit("vision_basic", types.BenefitVision, "VSP", 10, 0, 300),
		benefit("vision_plus", types.BenefitVision, "Aetna", 18, 0, 200),
		benefit("wellness_gym", types.BenefitWellness, "FitCo", 15, 0, 0),
	}}
}

func newTestService(t *testing.T, catalog BenefitCatalog) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewService(catalog, cache.NewBundleStore(client, time.Hour), zaptest.NewLogger(t)), mr
}

func ptr(v float64) *float64 { return &v }

func benefitIDs(b *types.Bundle) []string {
	ids := make([]string, 0, len(b.Benefits))
	for _, benefit := range b.Benefits {
		ids = append(ids, benefit.ID)
	}
	return ids
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	catalog := testCatalog()
	svc, mr := newTestService(t, catalog)

	b, err := svc.Create(ctx, &types.BundleRequest{
		Name:          "Starter",
		Description:   "dental and vision",
		BenefitTypes:  []types.BenefitType{types.BenefitDental, types.BenefitVision},
		CoverageLevel: types.CoverageIndividual,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, b.ID)
	assert.Equal(t, "Starter", b.Name)
	assert.Equal(t, types.BundleDraft, b.Status)
	assert.Equal(t, []string{"dental_basic", "vision_basic"}, benefitIDs(b))
	assert.InDelta(t, 35.0, b.TotalMonthlyPremium, 1e-9)
	assert.InDelta(t, 50.0, b.TotalAnnualDeductible, 1e-9)
	assert.InDelta(t, 1300.0, b.TotalMaxOutOfPocket, 1e-9)
	assert.Equal(t, types.CoverageIndividual, b.CoverageLevel)
	assert.False(t, b.CreatedAt.IsZero())
	assert.True(t, mr.Exists("bundle:"+b.ID))

	require.Len(t, catalog.calls, 1)
	assert.Equal(t, []types.BenefitType{types.BenefitDental, types.BenefitVision}, catalog.calls[0])

	stored, err := svc.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, benefitIDs(b), benefitIDs(stored))
}

func TestService_CreateRequiredBenefitsAndProviders(t *testing.T) {
	svc, _ := newTestService(t, testCatalog())

	b, err := svc.Create(context.Background(), &types.BundleRequest{
		Name:               "Preferred",
		BenefitTypes:       []types.BenefitType{types.BenefitDental},
		RequiredBenefits:   []types.BenefitType{types.BenefitVision},
		PreferredProviders: []string{"Aetna"},
	})
	require.NoError(t, err)
	// one preferred pick balances one other pick
	assert.Equal(t, []string{"dental_basic", "vision_plus"}, benefitIDs(b))
	assert.InDelta(t, 43.0, b.TotalMonthlyPremium, 1e-9)
}

func TestService_CreateWarnsOnMissingCategory(t *testing.T) {
	svc, _ := newTestService(t, testCatalog())

	b, err := svc.Create(context.Background(), &types.BundleRequest{
		Name:         "Mental",
		BenefitTypes: []types.BenefitType{types.BenefitDental, types.BenefitMentalHealth},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"dental_basic"}, benefitIDs(b))
	require.Len(t, b.Warnings, 1)
	assert.Contains(t, b.Warnings[0], "mental_health")
}

func TestService_CreateInfeasible(t *testing.T) {
	svc, mr := newTestService(t, testCatalog())

	_, err := svc.Create(context.Background(), &types.BundleRequest{
		Name:             "Tight",
		BenefitTypes:     []types.BenefitType{types.BenefitDental, types.BenefitVision},
		BudgetConstraint: ptr(30),
	})
	var infeasible *ErrInfeasible
	require.ErrorAs(t, err, &infeasible)
	assert.Equal(t, types.ReasonNoFeasibleAssignment, infeasible.Reason)
	assert.Empty(t, mr.Keys())
}

func TestService_CreateEmptyCatalog(t *testing.T) {
	svc, _ := newTestService(t, &fakeCatalog{})

	_, err := svc.Create(context.Background(), &types.BundleRequest{Name: "Nothing"})
	var infeasible *ErrInfeasible
	require.ErrorAs(t, err, &infeasible)
	assert.Equal(t, types.ReasonEmptyPool, infeasible.Reason)
}

func TestService_CreateErrors(t *testing.T) {
	tests := []struct {
		name    string
		catalog *fakeCatalog
		req     *types.BundleRequest
		kind    selection.ErrorKind
	}{
		{
			name:    "missing name",
			catalog: testCatalog(),
			req:     &types.BundleRequest{},
			kind:    selection.KindInvalidProfile,
		},
		{
			name:    "negative budget",
			catalog: testCatalog(),
			req:     &types.BundleRequest{Name: "x", BudgetConstraint: ptr(-1)},
			kind:    selection.KindInvalidProfile,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t, tt.catalog)
			_, err := svc.Create(context.Background(), tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.kind, selection.KindOf(err))
		})
	}

	t.Run("catalog failure", func(t *testing.T) {
		boom := errors.New("connection reset")
		svc, _ := newTestService(t, &fakeCatalog{err: boom})
		_, err := svc.Create(context.Background(), &types.BundleRequest{Name: "x"})
		require.ErrorIs(t, err, boom)
	})
}

func TestService_CreateSkipsInvalidCatalogBenefit(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	catalog := &fakeCatalog{benefits: []types.Benefit{
		benefit("dental_bad", types.BenefitDental, "", 10, 0, 0),
		benefit("dental_basic", types.BenefitDental, "Delta", 25, 50, 1000),
	}}
	svc := NewService(catalog, cache.NewBundleStore(client, time.Hour), zap.New(core))

	b, err := svc.Create(context.Background(), &types.BundleRequest{Name: "Dental", BenefitTypes: []types.BenefitType{types.BenefitDental}})
	require.NoError(t, err)
	assert.Equal(t, []string{"dental_basic"}, benefitIDs(b))

	skipped := logs.FilterMessage("skipping invalid catalog benefit").All()
	require.Len(t, skipped, 1)
	assert.Equal(t, "dental_bad", skipped[0].ContextMap()["benefit_id"])
}

func TestService_CreateWithOnlyInvalidBenefitsIsInfeasible(t *testing.T) {
	svc, _ := newTestService(t, &fakeCatalog{benefits: []types.Benefit{
		benefit("bad", types.BenefitDental, "", 10, 0, 0),
	}})
	_, err := svc.Create(context.Background(), &types.BundleRequest{Name: "x"})
	var infeasible *ErrInfeasible
	require.ErrorAs(t, err, &infeasible)
	assert.NotEqual(t, selection.KindInvalidCandidate, selection.KindOf(err))
}

func TestService_GetMissing(t *testing.T) {
	svc, _ := newTestService(t, testCatalog())
	_, err := svc.Get(context.Background(), "nope")
	var notFound *ErrBundleNotFound
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "nope", notFound.ID)
}

func TestService_UpdateKeepsIdentity(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, testCatalog())
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return created }

	b, err := svc.Create(ctx, &types.BundleRequest{Name: "Dental", BenefitTypes: []types.BenefitType{types.BenefitDental}})
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, b.ID, types.BundleActive)
	require.NoError(t, err)

	later := created.Add(time.Hour)
	svc.now = func() time.Time { return later }
	updated, err := svc.Update(ctx, b.ID, &types.BundleRequest{Name: "Vision", BenefitTypes: []types.BenefitType{types.BenefitVision}})
	require.NoError(t, err)

	assert.Equal(t, b.ID, updated.ID)
	assert.Equal(t, "Vision", updated.Name)
	assert.Equal(t, types.BundleActive, updated.Status)
	assert.True(t, created.Equal(updated.CreatedAt))
	assert.True(t, later.Equal(updated.UpdatedAt))
	assert.Equal(t, []string{"vision_basic"}, benefitIDs(updated))

	_, err = svc.Update(ctx, "missing", &types.BundleRequest{Name: "x"})
	var notFound *ErrBundleNotFound
	require.ErrorAs(t, err, &notFound)
}

func TestService_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, testCatalog())
	b, err := svc.Create(ctx, &types.BundleRequest{Name: "x", BenefitTypes: []types.BenefitType{types.BenefitVision}})
	require.NoError(t, err)

	for _, status := range []types.BundleStatus{types.BundleActive, types.BundleInactive, types.BundleArchived, types.BundleDraft} {
		got, err := svc.UpdateStatus(ctx, b.ID, status)
		require.NoError(t, err)
		assert.Equal(t, status, got.Status)
	}

	_, err = svc.UpdateStatus(ctx, b.ID, "retired")
	var invalid *ErrInvalidStatus
	require.ErrorAs(t, err, &invalid)

	_, err = svc.UpdateStatus(ctx, "missing", types.BundleActive)
	var notFound *ErrBundleNotFound
	require.ErrorAs(t, err, &notFound)
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, testCatalog())
	b, err := svc.Create(ctx, &types.BundleRequest{Name: "x", BenefitTypes: []types.BenefitType{types.BenefitVision}})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, b.ID))
	err = svc.Delete(ctx, b.ID)
	var notFound *ErrBundleNotFound
	require.ErrorAs(t, err, &notFound)
}

func TestService_ListClampsLimit(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, testCatalog())
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		svc.now = func() time.Time { return at }
		_, err := svc.Create(ctx, &types.BundleRequest{Name: "x", BenefitTypes: []types.BenefitType{types.BenefitVision}})
		require.NoError(t, err)
	}

	tests := []struct {
		name   string
		limit  int
		offset int
		want   int
	}{
		{"default limit", 0, 0, DefaultListLimit},
		{"explicit limit", 3, 0, 3},
		{"above max", 500, 0, 12},
		{"offset", 10, 8, 4},
		{"negative offset", 2, -1, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.List(ctx, tt.limit, tt.offset)
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}

	all, err := svc.List(ctx, 100, 0)
	require.NoError(t, err)
	for i := 1; i < len(all); i++ {
		assert.False(t, all[i].CreatedAt.After(all[i-1].CreatedAt))
	}
}

// Package advisor recommends the single best marketplace plan for a requester.
package advisor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/benefit-optimizer/internal/cache"
	"github.com/jonathan/benefit-optimizer/internal/candidates"
	"github.com/jonathan/benefit-optimizer/internal/logging"
	"github.com/jonathan/benefit-optimizer/internal/metrics"
	"github.com/jonathan/benefit-optimizer/internal/scoring"
	"github.com/jonathan/benefit-optimizer/internal/selection"
	"github.com/jonathan/benefit-optimizer/internal/types"
)

// batchConcurrency bounds the recommendations RecommendMany runs at once
const batchConcurrency = 4

// PlanCatalog supplies the plans offered in a state
type PlanCatalog interface {
	PlansByState(ctx context.Context, stateCode string) ([]types.PlanFeature, error)
}

// ResultCache stores recommendations by key. Implementations report failures as misses.
type ResultCache interface {
	Get(ctx context.Context, key string) (*types.PlanRecommendation, bool)
	Set(ctx context.Context, key string, rec *types.PlanRecommendation)
}

// ErrNoPlans indicates the catalog has no plans for a state
type ErrNoPlans struct {
	State string
}

func (e *ErrNoPlans) Error() string {
	return fmt.Sprintf("no plans available for state %s", e.State)
}

// Service recommends plans
type Service struct {
	catalog PlanCatalog
	cache   ResultCache
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewService creates a new advisor Service. cache and m may be nil.
func NewService(catalog PlanCatalog, cache ResultCache, logger *zap.Logger, m *metrics.Metrics) *Service {
	return &Service{
		catalog: catalog,
		cache:   cache,
		logger:  logging.OrNop(logger),
		metrics: m,
	}
}

// Recommend returns the highest-utility plan in stateCode that fits the profile
func (s *Service) Recommend(ctx context.Context, profile types.RequesterProfile, stateCode string) (*types.PlanRecommendation, error) {
	start := time.Now()
	stateCode = strings.ToUpper(strings.TrimSpace(stateCode))
	key := cache.ProfileHash(profile, stateCode)

	if s.cache != nil {
		if rec, ok := s.cache.Get(ctx, key); ok {
			rec.Cached = true
			s.metrics.ObserveOptimization(string(types.ModeChoice), metrics.OutcomeCached, time.Since(start))
			s.logger.Debug("recommendation served from cache", zap.String("state_code", stateCode))
			return rec, nil
		}
	}

	rec, err := s.recommend(ctx, profile, stateCode)
	if err != nil {
		outcome := metrics.OutcomeError
		if selection.KindOf(err) == selection.KindInfeasible {
			outcome = metrics.OutcomeInfeasible
		}
		s.metrics.ObserveOptimization(string(types.ModeChoice), outcome, time.Since(start))
		return nil, err
	}
	s.metrics.ObserveOptimization(string(types.ModeChoice), metrics.OutcomeOptimal, time.Since(start))

	if s.cache != nil {
		s.cache.Set(ctx, key, rec)
	}
	return rec, nil
}

func (s *Service) recommend(ctx context.Context, profile types.RequesterProfile, stateCode string) (*types.PlanRecommendation, error) {
	plans, err := s.catalog.PlansByState(ctx, stateCode)
	if err != nil {
		return nil, fmt.Errorf("failed to load plans for %s: %w", stateCode, err)
	}
	if len(plans) == 0 {
		s.logger.Warn("no plans available", zap.String("state_code", stateCode))
		return nil, &ErrNoPlans{State: stateCode}
	}

	result, pool, err := Optimize(ctx, plans, profile, s.logger)
	if err != nil {
		return nil, err
	}
	if !result.Optimal() {
		s.logger.Info("no plan fits the profile",
			zap.String("state_code", stateCode),
			zap.Int("candidates", len(pool)),
			zap.Float64("budget_cap", profile.BudgetCap))
		return nil, &selection.Error{Kind: selection.KindInfeasible, Message: result.Reason}
	}

	rec := Compose(result, plans, len(pool))
	s.logger.Info("plan recommended",
		zap.String("state_code", stateCode),
		zap.String("plan_id", rec.SelectedPlan.PlanID),
		zap.Int("candidates", len(pool)),
		zap.Float64("utility", rec.UtilityScore),
		zap.Float64("elapsed_ms", rec.OptimizationTimeMS))
	return rec, nil
}

// Optimize projects plans to candidates, skipping invalid ones with a warning, and runs single-choice selection
func Optimize(ctx context.Context, plans []types.PlanFeature, profile types.RequesterProfile, logger *zap.Logger) (*types.SelectionResult, []types.Candidate, error) {
	logger = logging.OrNop(logger)
	pool, skipped := candidates.FromPlans(plans)
	for _, err := range skipped {
		logger.Warn("skipping invalid plan", zap.Error(err))
	}
	result, err := selection.OptimizeChoice(ctx, pool, profile)
	if err != nil {
		return nil, pool, err
	}
	return result, pool, nil
}

// Compose builds the caller-facing recommendation from an optimal single-choice result
func Compose(result *types.SelectionResult, plans []types.PlanFeature, scored int) *types.PlanRecommendation {
	chosen := result.Chosen[0]
	var plan types.PlanFeature
	for _, p := range plans {
		if p.PlanID == chosen.ID {
			plan = p
			break
		}
	}
	return &types.PlanRecommendation{
		SelectedPlan:       plan,
		UtilityScore:       result.ObjectiveValue,
		TotalCost:          result.Totals.MonthlyCost,
		OptimizationTimeMS: result.ElapsedMS,
		CandidatesScored:   scored,
	}
}

// Explain returns the per-term utility breakdown of a recommended plan
func Explain(rec *types.PlanRecommendation, profile types.RequesterProfile) (scoring.Breakdown, error) {
	c, err := candidates.FromPlan(rec.SelectedPlan)
	if err != nil {
		return scoring.Breakdown{}, err
	}
	return scoring.Score(c, profile), nil
}

// RecommendRequest is one item of a batch
type RecommendRequest struct {
	Profile   types.RequesterProfile
	StateCode string
}

// RecommendOutcome is the result of one batch item. Exactly one of Recommendation and Err is set.
type RecommendOutcome struct {
	Recommendation *types.PlanRecommendation
	Err            error
}

// RecommendMany runs Recommend for every request with bounded concurrency.
// Outcomes are in request order and a failed item does not stop the others.
func (s *Service) RecommendMany(ctx context.Context, reqs []RecommendRequest) []RecommendOutcome {
	outcomes := make([]RecommendOutcome, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)
	for i, req := range reqs {
		g.Go(func() error {
			rec, err := s.Recommend(gctx, req.Profile, req.StateCode)
			outcomes[i] = RecommendOutcome{Recommendation: rec, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

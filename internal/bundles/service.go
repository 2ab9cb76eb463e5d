// Package bundles assembles, stores and compares benefit bundles.
package bundles

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/benefit-optimizer/internal/candidates"
	"github.com/jonathan/benefit-optimizer/internal/logging"
	"github.com/jonathan/benefit-optimizer/internal/selection"
	"github.com/jonathan/benefit-optimizer/internal/types"
)

// Pagination bounds for List
const (
	DefaultListLimit = 10
	MaxListLimit     = 100
)

// BenefitCatalog supplies the benefits a bundle is assembled from
type BenefitCatalog interface {
	BenefitsByTypes(ctx context.Context, benefitTypes []types.BenefitType) ([]types.Benefit, error)
}

// Store persists bundles
type Store interface {
	Save(ctx context.Context, b *types.Bundle) error
	Get(ctx context.Context, id string) (*types.Bundle, error)
	List(ctx context.Context, limit, offset int) ([]types.Bundle, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// Service provides bundle business logic
type Service struct {
	catalog BenefitCatalog
	store   Store
	logger  *zap.Logger
	now     func() time.Time
}

// NewService creates a new bundle Service
func NewService(catalog BenefitCatalog, store Store, logger *zap.Logger) *Service {
	return &Service{
		catalog: catalog,
		store:   store,
		logger:  logging.OrNop(logger),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Create assembles the cheapest bundle satisfying req and stores it as a draft
func (s *Service) Create(ctx context.Context, req *types.BundleRequest) (*types.Bundle, error) {
	b, err := s.assemble(ctx, req)
	if err != nil {
		return nil, err
	}
	now := s.now()
	b.ID = uuid.NewString()
	b.Status = types.BundleDraft
	b.CreatedAt = now
	b.UpdatedAt = now

	if err := s.store.Save(ctx, b); err != nil {
		return nil, err
	}
	s.logger.Info("bundle created",
		zap.String("bundle_id", b.ID),
		zap.Int("benefits", len(b.Benefits)),
		zap.Float64("total_monthly_premium", b.TotalMonthlyPremium))
	return b, nil
}

// Get returns a stored bundle
func (s *Service) Get(ctx context.Context, id string) (*types.Bundle, error) {
	b, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, &ErrBundleNotFound{ID: id}
	}
	return b, nil
}

// List returns stored bundles newest first. The limit defaults to DefaultListLimit and is clamped to 1..MaxListLimit.
func (s *Service) List(ctx context.Context, limit, offset int) ([]types.Bundle, error) {
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.List(ctx, limit, offset)
}

// Update re-optimizes an existing bundle from req, keeping its id, status and creation time
func (s *Service) Update(ctx context.Context, id string, req *types.BundleRequest) (*types.Bundle, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	b, err := s.assemble(ctx, req)
	if err != nil {
		return nil, err
	}
	b.ID = existing.ID
	b.Status = existing.Status
	b.CreatedAt = existing.CreatedAt
	b.UpdatedAt = s.now()

	if err := s.store.Save(ctx, b); err != nil {
		return nil, err
	}
	s.logger.Info("bundle updated", zap.String("bundle_id", b.ID), zap.Int("benefits", len(b.Benefits)))
	return b, nil
}

// UpdateStatus moves a bundle to a new lifecycle status
func (s *Service) UpdateStatus(ctx context.Context, id string, status types.BundleStatus) (*types.Bundle, error) {
	if !status.Valid() {
		return nil, &ErrInvalidStatus{Status: string(status)}
	}
	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	b.Status = status
	b.UpdatedAt = s.now()
	if err := s.store.Save(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Delete removes a stored bundle
func (s *Service) Delete(ctx context.Context, id string) error {
	existed, err := s.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !existed {
		return &ErrBundleNotFound{ID: id}
	}
	s.logger.Info("bundle deleted", zap.String("bundle_id", id))
	return nil
}

// assemble runs bundle selection for req and returns an unsaved bundle without id, status or timestamps
func (s *Service) assemble(ctx context.Context, req *types.BundleRequest) (*types.Bundle, error) {
	if err := req.Validate(); err != nil {
		return nil, &selection.Error{Kind: selection.KindInvalidProfile, Field: types.InvalidField(err), Message: "invalid bundle request", Cause: err}
	}

	benefits, err := s.catalog.BenefitsByTypes(ctx, req.RequestedTypes())
	if err != nil {
		return nil, fmt.Errorf("failed to load benefits: %w", err)
	}
	result, err := Optimize(ctx, benefits, req, s.logger)
	if err != nil {
		return nil, err
	}
	if !result.Optimal() {
		s.logger.Info("bundle request infeasible",
			zap.String("reason", result.Reason),
			zap.Int("candidates", len(benefits)),
			zap.Strings("warnings", result.Warnings))
		return nil, &ErrInfeasible{Reason: result.Reason, Warnings: result.Warnings}
	}
	return fromResult(req, benefits, result), nil
}

// Optimize projects benefits to candidates and runs bundle selection for req.
// Benefits that cannot be projected are logged and left out of the pool.
func Optimize(ctx context.Context, benefits []types.Benefit, req *types.BundleRequest, logger *zap.Logger) (*types.SelectionResult, error) {
	logger = logging.OrNop(logger)
	pool, skipped := candidates.FromBenefits(benefits)
	for _, err := range skipped {
		var invalid *candidates.Error
		id := ""
		if errors.As(err, &invalid) {
			id = invalid.CandidateID
		}
		logger.Warn("skipping invalid catalog benefit", zap.String("benefit_id", id), zap.Error(err))
	}
	return selection.OptimizeBundle(ctx, pool, req.Spec())
}

func fromResult(req *types.BundleRequest, benefits []types.Benefit, result *types.SelectionResult) *types.Bundle {
	byID := make(map[string]types.Benefit, len(benefits))
	for _, b := range benefits {
		byID[b.ID] = b
	}
	chosen := make([]types.Benefit, 0, len(result.Chosen))
	for _, c := range result.Chosen {
		chosen = append(chosen, byID[c.ID])
	}

	return &types.Bundle{
		Name:                  req.Name,
		Description:           req.Description,
		Benefits:              chosen,
		TotalMonthlyPremium:   result.Totals.MonthlyCost,
		TotalAnnualDeductible: result.Totals.Deductible,
		TotalMaxOutOfPocket:   result.Totals.OutOfPocketMax,
		CoverageLevel:         req.CoverageLevel,
		NetworkPreferences:    req.NetworkPreferences,
		Warnings:              result.Warnings,
	}
}

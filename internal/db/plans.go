package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/jonathan/benefit-optimizer/internal/types"
)

const planColumns = `plan_id, monthly_premium, deductible, out_of_pocket_max, hsa_eligible,
	actuarial_value, network_tier, state_code, issuer_id, plan_marketing_name, metal_level,
	plan_type, market_coverage, dental_only_plan, service_area_id, network_id`

const upsertPlanSQL = `INSERT INTO plans (` + planColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	ON CONFLICT (plan_id) DO UPDATE SET
		monthly_premium = EXCLUDED.monthly_premium,
		deductible = EXCLUDED.deductible,
		out_of_pocket_max = EXCLUDED.out_of_pocket_max,
		hsa_eligible = EXCLUDED.hsa_eligible,
		actuarial_value = EXCLUDED.actuarial_value,
		network_tier = EXCLUDED.network_tier,
		state_code = EXCLUDED.state_code,
		issuer_id = EXCLUDED.issuer_id,
		plan_marketing_name = EXCLUDED.plan_marketing_name,
		metal_level = EXCLUDED.metal_level,
		plan_type = EXCLUDED.plan_type,
		market_coverage = EXCLUDED.market_coverage,
		dental_only_plan = EXCLUDED.dental_only_plan,
		service_area_id = EXCLUDED.service_area_id,
		network_id = EXCLUDED.network_id,
		updated_at = NOW()`

// PlanFilter narrows a plan search. Zero values mean no filter.
type PlanFilter struct {
	StateCode   string
	NetworkTier types.NetworkTier
	MaxPremium  *float64
}

// Where renders the filter as a SQL condition with positional arguments
func (f PlanFilter) Where() (string, []any) {
	var conds []string
	var args []any
	if f.StateCode != "" {
		args = append(args, strings.ToUpper(f.StateCode))
		conds = append(conds, fmt.Sprintf("UPPER(state_code) = $%d", len(args)))
	}
	if f.NetworkTier != "" {
		args = append(args, string(f.NetworkTier))
		conds = append(conds, fmt.Sprintf("network_tier = $%d", len(args)))
	}
	if f.MaxPremium != nil {
		args = append(args, *f.MaxPremium)
		conds = append(conds, fmt.Sprintf("monthly_premium <= $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// UpsertPlans inserts or updates plans in a single transaction and returns the number written
func (db *DB) UpsertPlans(ctx context.Context, plans []types.PlanFeature) (int, error) {
	if len(plans) == 0 {
		return 0, nil
	}
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, p := range plans {
		batch.Queue(upsertPlanSQL,
			p.PlanID, p.MonthlyPremium, p.Deductible, p.OutOfPocketMax, p.HSAEligible,
			p.ActuarialValue, string(p.NetworkTier), p.StateCode, p.IssuerID, p.PlanMarketingName,
			string(p.MetalLevel), p.PlanType, p.MarketCoverage, p.DentalOnlyPlan,
			nullIfEmpty(p.ServiceAreaID), nullIfEmpty(p.NetworkID),
		)
	}

	results := tx.SendBatch(ctx, batch)
	for _, p := range plans {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return 0, fmt.Errorf("failed to upsert plan %s: %w", p.PlanID, err)
		}
	}
	if err := results.Close(); err != nil {
		return 0, fmt.Errorf("failed to close plan batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit plans: %w", err)
	}
	return len(plans), nil
}

// SearchPlans returns the plans matching filter, ordered by plan id
func (db *DB) SearchPlans(ctx context.Context, filter PlanFilter) ([]types.PlanFeature, error) {
	where, args := filter.Where()
	rows, err := db.pool.Query(ctx,
		`SELECT `+planColumns+` FROM plans`+where+` ORDER BY plan_id`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query plans: %w", err)
	}
	defer rows.Close()

	var plans []types.PlanFeature
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate plans: %w", err)
	}
	return plans, nil
}

// PlansByState returns the plans offered in a state, matched case-insensitively
func (db *DB) PlansByState(ctx context.Context, stateCode string) ([]types.PlanFeature, error) {
	return db.SearchPlans(ctx, PlanFilter{StateCode: stateCode})
}

// PlansByNetworkTier returns the plans in a network tier
func (db *DB) PlansByNetworkTier(ctx context.Context, tier types.NetworkTier) ([]types.PlanFeature, error) {
	return db.SearchPlans(ctx, PlanFilter{NetworkTier: tier})
}

// PlansByBudget returns the plans whose monthly premium is at most maxPremium
func (db *DB) PlansByBudget(ctx context.Context, maxPremium float64) ([]types.PlanFeature, error) {
	return db.SearchPlans(ctx, PlanFilter{MaxPremium: &maxPremium})
}

// GetPlan retrieves a plan by id. A missing plan returns nil, nil.
func (db *DB) GetPlan(ctx context.Context, planID string) (*types.PlanFeature, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+planColumns+` FROM plans WHERE plan_id = $1`,
		planID,
	)
	p, err := scanPlan(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	return &p, nil
}

func scanPlan(row pgx.Row) (types.PlanFeature, error) {
	var p types.PlanFeature
	var tier, metal string
	var serviceArea, network *string
	err := row.Scan(&p.PlanID, &p.MonthlyPremium, &p.Deductible, &p.OutOfPocketMax, &p.HSAEligible,
		&p.ActuarialValue, &tier, &p.StateCode, &p.IssuerID, &p.PlanMarketingName, &metal,
		&p.PlanType, &p.MarketCoverage, &p.DentalOnlyPlan, &serviceArea, &network)
	if err != nil {
		return p, err
	}
	p.NetworkTier = types.NetworkTier(tier)
	p.MetalLevel = types.MetalLevel(metal)
	p.ServiceAreaID = emptyIfNull(serviceArea)
	p.NetworkID = emptyIfNull(network)
	return p, nil
}

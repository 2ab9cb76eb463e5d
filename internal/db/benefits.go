package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jonathan/benefit-optimizer/internal/types"
)

const benefitColumns = `id, name, type, provider, monthly_premium, annual_deductible, coinsurance_rate,
	copay_amount, max_out_of_pocket, coverage_details, network_type, prescription_coverage,
	mental_health_coverage, wellness_benefits`

const upsertBenefitSQL = `INSERT INTO benefits (` + benefitColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name,
		type = EXCLUDED.type,
		provider = EXCLUDED.provider,
		monthly_premium = EXCLUDED.monthly_premium,
		annual_deductible = EXCLUDED.annual_deductible,
		coinsurance_rate = EXCLUDED.coinsurance_rate,
		copay_amount = EXCLUDED.copay_amount,
		max_out_of_pocket = EXCLUDED.max_out_of_pocket,
		coverage_details = EXCLUDED.coverage_details,
		network_type = EXCLUDED.network_type,
		prescription_coverage = EXCLUDED.prescription_coverage,
		mental_health_coverage = EXCLUDED.mental_health_coverage,
		wellness_benefits = EXCLUDED.wellness_benefits,
		updated_at = NOW()`

// UpsertBenefits inserts or updates benefits in a single transaction and returns the number written
func (db *DB) UpsertBenefits(ctx context.Context, benefits []types.Benefit) (int, error) {
	if len(benefits) == 0 {
		return 0, nil
	}
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, b := range benefits {
		wellness := b.WellnessBenefits
		if wellness == nil {
			wellness = []string{}
		}
		batch.Queue(upsertBenefitSQL,
			b.ID, b.Name, string(b.Type), b.Provider, b.MonthlyPremium, b.AnnualDeductible,
			b.CoinsuranceRate, b.CopayAmount, b.MaxOutOfPocket, b.CoverageDetails,
			nullIfEmpty(b.NetworkType), b.PrescriptionCoverage, b.MentalHealthCoverage, wellness,
		)
	}

	results := tx.SendBatch(ctx, batch)
	for _, b := range benefits {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return 0, fmt.Errorf("failed to upsert benefit %s: %w", b.ID, err)
		}
	}
	if err := results.Close(); err != nil {
		return 0, fmt.Errorf("failed to close benefit batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit benefits: %w", err)
	}
	return len(benefits), nil
}

// BenefitsByTypes returns the benefits of the given types ordered by id.
// An empty type list returns every benefit.
func (db *DB) BenefitsByTypes(ctx context.Context, benefitTypes []types.BenefitType) ([]types.Benefit, error) {
	query := `SELECT ` + benefitColumns + ` FROM benefits`
	var args []any
	if len(benefitTypes) > 0 {
		names := make([]string, len(benefitTypes))
		for i, t := range benefitTypes {
			names[i] = string(t)
		}
		query += ` WHERE type = ANY($1)`
		args = append(args, names)
	}
	query += ` ORDER BY id`

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query benefits: %w", err)
	}
	defer rows.Close()

	var benefits []types.Benefit
	for rows.Next() {
		b, err := scanBenefit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan benefit: %w", err)
		}
		benefits = append(benefits, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate benefits: %w", err)
	}
	return benefits, nil
}

// GetBenefit retrieves a benefit by id. A missing benefit returns nil, nil.
func (db *DB) GetBenefit(ctx context.Context, id string) (*types.Benefit, error) {
	b, err := scanBenefit(db.pool.QueryRow(ctx,
		`SELECT `+benefitColumns+` FROM benefits WHERE id = $1`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get benefit: %w", err)
	}
	return &b, nil
}

func scanBenefit(row pgx.Row) (types.Benefit, error) {
	var b types.Benefit
	var benefitType string
	var networkType *string
	err := row.Scan(&b.ID, &b.Name, &benefitType, &b.Provider, &b.MonthlyPremium, &b.AnnualDeductible,
		&b.CoinsuranceRate, &b.CopayAmount, &b.MaxOutOfPocket, &b.CoverageDetails, &networkType,
		&b.PrescriptionCoverage, &b.MentalHealthCoverage, &b.WellnessBenefits)
	if err != nil {
		return b, err
	}
	b.Type = types.BenefitType(benefitType)
	b.NetworkType = emptyIfNull(networkType)
	return b, nil
}

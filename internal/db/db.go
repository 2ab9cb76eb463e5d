// Package db provides PostgreSQL access to the plan and benefit catalogs.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is empty")
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Ping reports whether the database is reachable
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

const schema = `
CREATE TABLE IF NOT EXISTS plans (
	plan_id             TEXT PRIMARY KEY,
	monthly_premium     DOUBLE PRECISION NOT NULL,
	deductible          DOUBLE PRECISION NOT NULL,
	out_of_pocket_max   DOUBLE PRECISION NOT NULL,
	hsa_eligible        BOOLEAN NOT NULL DEFAULT FALSE,
	actuarial_value     DOUBLE PRECISION NOT NULL,
	network_tier        TEXT NOT NULL,
	state_code          TEXT NOT NULL,
	issuer_id           TEXT NOT NULL DEFAULT '',
	plan_marketing_name TEXT NOT NULL DEFAULT '',
	metal_level         TEXT NOT NULL,
	plan_type           TEXT NOT NULL DEFAULT '',
	market_coverage     TEXT NOT NULL DEFAULT '',
	dental_only_plan    BOOLEAN NOT NULL DEFAULT FALSE,
	service_area_id     TEXT,
	network_id          TEXT,
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS plans_state_code_idx ON plans (UPPER(state_code));
CREATE INDEX IF NOT EXISTS plans_network_tier_idx ON plans (network_tier);

CREATE TABLE IF NOT EXISTS benefits (
	id                     TEXT PRIMARY KEY,
	name                   TEXT NOT NULL,
	type                   TEXT NOT NULL,
	provider               TEXT NOT NULL,
	monthly_premium        DOUBLE PRECISION NOT NULL,
	annual_deductible      DOUBLE PRECISION NOT NULL,
	coinsurance_rate       DOUBLE PRECISION NOT NULL,
	copay_amount           DOUBLE PRECISION,
	max_out_of_pocket      DOUBLE PRECISION NOT NULL,
	coverage_details       JSONB,
	network_type           TEXT,
	prescription_coverage  BOOLEAN NOT NULL DEFAULT FALSE,
	mental_health_coverage BOOLEAN NOT NULL DEFAULT FALSE,
	wellness_benefits      TEXT[] NOT NULL DEFAULT '{}',
	updated_at             TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS benefits_type_idx ON benefits (type);
`

// EnsureSchema creates the catalog tables if they do not exist
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func emptyIfNull(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

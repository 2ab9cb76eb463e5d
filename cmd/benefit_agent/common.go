package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/benefit-optimizer/internal/config"
	"github.com/jonathan/benefit-optimizer/internal/ingestion"
	"github.com/jonathan/benefit-optimizer/internal/logging"
	"github.com/jonathan/benefit-optimizer/internal/types"
)

// defaultPlanYear is the public use file year read from data directories
const defaultPlanYear = "2025"

// loadConfig reads the configuration file at path, or environment and defaults when path is empty
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the CLI logger. Verbose output switches to debug level.
func newLogger(cfg *config.Config, verbose bool) (*zap.Logger, error) {
	level, format := "warn", "console"
	if cfg != nil {
		level, format = cfg.Log.Level, cfg.Log.Format
	}
	if verbose {
		level = "debug"
	}
	return logging.New(level, format)
}

// loadPlans reads plans from a single CSV file or from a data directory
func loadPlans(ctx context.Context, path, planYear string) ([]types.PlanFeature, []error, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read plans: %w", err)
	}
	if info.IsDir() {
		result, err := ingestion.LoadDirectory(ctx, path, planYear)
		if err != nil {
			return nil, nil, err
		}
		return result.Plans, result.Skipped, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open plans file: %w", err)
	}
	defer func() { _ = f.Close() }()
	plans, skipped := ingestion.ParsePlansCSV(f)
	return plans, skipped, nil
}

// filterByState keeps the plans offered in stateCode. An empty state keeps every plan.
func filterByState(plans []types.PlanFeature, stateCode string) []types.PlanFeature {
	if stateCode == "" {
		return plans
	}
	stateCode = strings.ToUpper(stateCode)
	var out []types.PlanFeature
	for _, p := range plans {
		if p.StateCode == stateCode {
			out = append(out, p)
		}
	}
	return out
}

// writeJSON writes v as indented JSON to path, creating the parent directory
func writeJSON(path string, v any) error {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, jsonBytes, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

// splitIDs parses a comma-separated id list, dropping blanks
func splitIDs(raw string) []string {
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

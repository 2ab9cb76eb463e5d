package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/benefit-optimizer/internal/db"
	"github.com/jonathan/benefit-optimizer/internal/ingestion"
	"github.com/jonathan/benefit-optimizer/internal/observability"
)

var loadPlansCmd = &cobra.Command{
	Use:   "load-plans",
	Short: "Load marketplace plans into the database",
	Long:  "Reads the plan attributes and rate public use files for a plan year (or every CSV in the directory when they are absent) and upserts the plans into PostgreSQL.",
	RunE:  runLoadPlans,
}

var (
	loadPlansDir        string
	loadPlansYear       string
	loadPlansConfigPath string
)

func init() {
	loadPlansCmd.Flags().StringVarP(&loadPlansDir, "dir", "d", "", "Data directory (defaults to data.directory)")
	loadPlansCmd.Flags().StringVar(&loadPlansYear, "year", defaultPlanYear, "Plan year of the public use files")
	loadPlansCmd.Flags().StringVar(&loadPlansConfigPath, "config", "", "Path to YAML config file")
	rootCmd.AddCommand(loadPlansCmd)
}

func runLoadPlans(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(loadPlansConfigPath)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg, false)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	dir := loadPlansDir
	if dir == "" {
		dir = cfg.Data.Directory
	}
	result, err := ingestion.LoadDirectory(ctx, dir, loadPlansYear)
	if err != nil {
		return fmt.Errorf("failed to load plans: %w", err)
	}
	for _, rowErr := range result.Skipped {
		logger.Debug("skipped plan row", zap.Error(rowErr))
	}

	database, err := db.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer database.Close()
	if err := database.EnsureSchema(ctx); err != nil {
		return err
	}

	n, err := database.UpsertPlans(ctx, result.Plans)
	if err != nil {
		return err
	}
	logger.Info("plans loaded", zap.Int("upserted", n), zap.Int("skipped", len(result.Skipped)))

	sources := make([]string, 0, len(result.Sources))
	for _, m := range result.Sources {
		sources = append(sources, fmt.Sprintf("%s (%s, %s)", m.Path, m.Kind, m.Hash[:12]))
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintIngestion(n, len(result.Skipped), sources)
	return nil
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/benefit-optimizer/internal/db"
	"github.com/jonathan/benefit-optimizer/internal/ingestion"
	"github.com/jonathan/benefit-optimizer/internal/observability"
)

var loadBenefitsCmd = &cobra.Command{
	Use:   "load-benefits",
	Short: "Load a benefit catalog into the database",
	Long:  "Validates a benefit catalog JSON file and upserts every benefit into PostgreSQL.",
	RunE:  runLoadBenefits,
}

var (
	loadBenefitsFile       string
	loadBenefitsConfigPath string
)

func init() {
	loadBenefitsCmd.Flags().StringVarP(&loadBenefitsFile, "file", "f", "", "Path to benefit catalog JSON (required)")
	loadBenefitsCmd.Flags().StringVar(&loadBenefitsConfigPath, "config", "", "Path to YAML config file")

	if err := loadBenefitsCmd.MarkFlagRequired("file"); err != nil {
		panic(fmt.Sprintf("failed to mark file flag as required: %v", err))
	}

	rootCmd.AddCommand(loadBenefitsCmd)
}

func runLoadBenefits(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	f, err := os.Open(loadBenefitsFile)
	if err != nil {
		return fmt.Errorf("failed to load benefits: %w", err)
	}
	defer func() { _ = f.Close() }()
	benefits, err := ingestion.LoadBenefits(f)
	if err != nil {
		return fmt.Errorf("failed to load benefits: %w", err)
	}

	cfg, err := loadConfig(loadBenefitsConfigPath)
	if err != nil {
		return err
	}
	database, err := db.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer database.Close()
	if err := database.EnsureSchema(ctx); err != nil {
		return err
	}

	n, err := database.UpsertBenefits(ctx, benefits)
	if err != nil {
		return err
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintIngestion(n, 0, []string{loadBenefitsFile})
	return nil
}

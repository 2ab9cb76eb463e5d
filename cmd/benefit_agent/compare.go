package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/benefit-optimizer/internal/bundles"
	"github.com/jonathan/benefit-optimizer/internal/cache"
	"github.com/jonathan/benefit-optimizer/internal/observability"
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare stored bundles",
	Long:  "Fetches two or more stored bundles from Redis and prints their comparison matrix and recommendations.",
	RunE:  runCompare,
}

var (
	compareIDs        string
	compareConfigPath string
	compareOutput     string
	compareVerbose    bool
)

func init() {
	compareCmd.Flags().StringVar(&compareIDs, "ids", "", "Comma-separated bundle ids (required)")
	compareCmd.Flags().StringVar(&compareConfigPath, "config", "", "Path to YAML config file")
	compareCmd.Flags().StringVarP(&compareOutput, "out", "o", "", "Path to write the comparison JSON")
	compareCmd.Flags().BoolVarP(&compareVerbose, "verbose", "v", false, "Print every compared bundle")

	if err := compareCmd.MarkFlagRequired("ids"); err != nil {
		panic(fmt.Sprintf("failed to mark ids flag as required: %v", err))
	}

	rootCmd.AddCommand(compareCmd)
}

func runCompare(cmd *cobra.Command, _ []string) error {
	ids := splitIDs(compareIDs)
	if len(ids) < bundles.MinCompareBundles {
		return fmt.Errorf("at least %d bundle ids are required", bundles.MinCompareBundles)
	}

	cfg, err := loadConfig(compareConfigPath)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg, false)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	client := cache.NewRedisClient(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
	defer func() { _ = client.Close() }()
	if err := client.Ping(cmd.Context()); err != nil {
		return err
	}

	svc := bundles.NewService(nil, cache.NewBundleStore(client.Client, cfg.Cache.BundleTTL), logger)
	comparison, err := svc.Compare(cmd.Context(), ids)
	if err != nil {
		return err
	}
	printer := observability.NewPrinter(cmd.OutOrStdout())
	if compareVerbose {
		for i := range comparison.Bundles {
			printer.PrintBundle(&comparison.Bundles[i])
		}
	}
	printer.PrintComparison(comparison)

	if compareOutput != "" {
		if err := writeJSON(compareOutput, comparison); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Output: %s\n", compareOutput)
	}
	return nil
}

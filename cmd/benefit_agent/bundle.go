package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/benefit-optimizer/internal/bundles"
	"github.com/jonathan/benefit-optimizer/internal/ingestion"
	"github.com/jonathan/benefit-optimizer/internal/observability"
	"github.com/jonathan/benefit-optimizer/internal/schemas"
	"github.com/jonathan/benefit-optimizer/internal/types"
)

var bundleCmd = &cobra.Command{
	Use:   "bundle",
	Short: "Assemble the cheapest benefit bundle for a request",
	Long:  "Reads a benefit catalog and a bundle request, then prints the lowest-cost set of benefits that satisfies the request's budget, categories, ceilings and provider preferences.",
	RunE:  runBundle,
}

var (
	bundleBenefitsPath string
	bundleRequestPath  string
	bundleOutput       string
	bundleVerbose      bool
)

func init() {
	bundleCmd.Flags().StringVarP(&bundleBenefitsPath, "benefits", "b", "", "Path to benefit catalog JSON (required)")
	bundleCmd.Flags().StringVarP(&bundleRequestPath, "request", "r", "", "Path to bundle request JSON (required)")
	bundleCmd.Flags().StringVarP(&bundleOutput, "out", "o", "", "Path to write the selection result JSON")
	bundleCmd.Flags().BoolVarP(&bundleVerbose, "verbose", "v", false, "Print the benefits considered")

	if err := bundleCmd.MarkFlagRequired("benefits"); err != nil {
		panic(fmt.Sprintf("failed to mark benefits flag as required: %v", err))
	}
	if err := bundleCmd.MarkFlagRequired("request"); err != nil {
		panic(fmt.Sprintf("failed to mark request flag as required: %v", err))
	}

	rootCmd.AddCommand(bundleCmd)
}

func runBundle(cmd *cobra.Command, _ []string) error {
	logger, err := newLogger(nil, bundleVerbose)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	f, err := os.Open(bundleBenefitsPath)
	if err != nil {
		return fmt.Errorf("failed to load benefits: %w", err)
	}
	defer func() { _ = f.Close() }()
	catalog, err := ingestion.LoadBenefits(f)
	if err != nil {
		return fmt.Errorf("failed to load benefits: %w", err)
	}

	data, err := schemas.ValidateFile(schemas.BundleRequest, bundleRequestPath)
	if err != nil {
		return fmt.Errorf("invalid bundle request: %w", err)
	}
	var req types.BundleRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("failed to parse bundle request: %w", err)
	}
	if err := req.Validate(); err != nil {
		return fmt.Errorf("invalid bundle request: %w", err)
	}

	pool := filterBenefits(catalog, req.RequestedTypes())
	if bundleVerbose {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Considering %d of %d benefits\n", len(pool), len(catalog))
	}

	result, err := bundles.Optimize(cmd.Context(), pool, &req, logger)
	if err != nil {
		return fmt.Errorf("optimization failed: %w", err)
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintSelectionResult(result)

	if bundleOutput != "" {
		if err := writeJSON(bundleOutput, result); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Output: %s\n", bundleOutput)
	}
	if !result.Optimal() {
		return fmt.Errorf("no bundle satisfies the request: %s", result.Reason)
	}
	return nil
}

// filterBenefits keeps the benefits of the requested types. No requested types keeps the whole catalog.
func filterBenefits(catalog []types.Benefit, wanted []types.BenefitType) []types.Benefit {
	if len(wanted) == 0 {
		return catalog
	}
	set := make(map[types.BenefitType]bool, len(wanted))
	for _, t := range wanted {
		set[t] = true
	}
	var out []types.Benefit
	for _, b := range catalog {
		if set[b.Type] {
			out = append(out, b)
		}
	}
	return out
}

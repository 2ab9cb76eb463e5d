package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/benefit-optimizer/internal/advisor"
	"github.com/jonathan/benefit-optimizer/internal/observability"
	"github.com/jonathan/benefit-optimizer/internal/schemas"
	"github.com/jonathan/benefit-optimizer/internal/types"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Recommend the best plan for a requester profile",
	Long:  "Loads plans from a CSV file or data directory, reads an optimize request (employee_profile and state_code) and prints the plan with the highest utility that fits the budget.",
	RunE:  runOptimize,
}

var (
	optimizePlansPath   string
	optimizeProfilePath string
	optimizeState       string
	optimizeYear        string
	optimizeOutput      string
	optimizeVerbose     bool
)

func init() {
	optimizeCmd.Flags().StringVarP(&optimizePlansPath, "plans", "p", "", "Path to a plans CSV file or data directory (required)")
	optimizeCmd.Flags().StringVarP(&optimizeProfilePath, "profile", "r", "", "Path to optimize request JSON (required)")
	optimizeCmd.Flags().StringVar(&optimizeState, "state", "", "State code, overrides state_code in the request")
	optimizeCmd.Flags().StringVar(&optimizeYear, "year", defaultPlanYear, "Plan year of the public use files in a data directory")
	optimizeCmd.Flags().StringVarP(&optimizeOutput, "out", "o", "", "Path to write the recommendation JSON")
	optimizeCmd.Flags().BoolVarP(&optimizeVerbose, "verbose", "v", false, "Print the utility breakdown and debug logs")

	if err := optimizeCmd.MarkFlagRequired("plans"); err != nil {
		panic(fmt.Sprintf("failed to mark plans flag as required: %v", err))
	}
	if err := optimizeCmd.MarkFlagRequired("profile"); err != nil {
		panic(fmt.Sprintf("failed to mark profile flag as required: %v", err))
	}

	rootCmd.AddCommand(optimizeCmd)
}

func runOptimize(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger, err := newLogger(nil, optimizeVerbose)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	data, err := schemas.ValidateFile(schemas.OptimizeRequest, optimizeProfilePath)
	if err != nil {
		return fmt.Errorf("invalid profile: %w", err)
	}
	var req types.OptimizeRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("failed to parse profile: %w", err)
	}
	if optimizeState != "" {
		req.StateCode = optimizeState
	}
	if err := req.Validate(); err != nil {
		return fmt.Errorf("invalid profile: %w", err)
	}

	plans, skipped, err := loadPlans(ctx, optimizePlansPath, optimizeYear)
	if err != nil {
		return err
	}
	for _, rowErr := range skipped {
		logger.Debug("skipped plan row", zap.Error(rowErr))
	}
	plans = filterByState(plans, req.StateCode)
	if len(plans) == 0 {
		return fmt.Errorf("no plans available for state %s", req.StateCode)
	}

	result, pool, err := advisor.Optimize(ctx, plans, req.EmployeeProfile, logger)
	if err != nil {
		return fmt.Errorf("optimization failed: %w", err)
	}

	printer := observability.NewPrinter(cmd.OutOrStdout())
	if !result.Optimal() {
		printer.PrintSelectionResult(result)
		return fmt.Errorf("no plan fits the profile: %s", result.Reason)
	}

	rec := advisor.Compose(result, plans, len(pool))
	if optimizeVerbose {
		breakdown, err := advisor.Explain(rec, req.EmployeeProfile)
		if err != nil {
			return fmt.Errorf("failed to explain recommendation: %w", err)
		}
		printer.PrintRecommendation(rec, &breakdown)
	} else {
		printer.PrintRecommendation(rec, nil)
	}

	if optimizeOutput != "" {
		if err := writeJSON(optimizeOutput, rec); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Output: %s\n", optimizeOutput)
	}
	return nil
}

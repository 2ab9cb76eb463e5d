// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jonathan/benefit-optimizer/internal/scoring"
	"github.com/jonathan/benefit-optimizer/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintSelectionResult outputs the status, chosen candidates and totals of an optimization.
func (p *Printer) PrintSelectionResult(result *types.SelectionResult) {
	if result == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Mode:      %s\n", result.Mode))
	sb.WriteString(fmt.Sprintf("Status:    %s\n", result.Status))
	if result.Reason != "" {
		sb.WriteString(fmt.Sprintf("Reason:    %s\n", result.Reason))
	}
	sb.WriteString(fmt.Sprintf("Objective: %.4f\n", result.ObjectiveValue))
	sb.WriteString(fmt.Sprintf("Elapsed:   %.3f ms\n", result.ElapsedMS))

	if len(result.Chosen) > 0 {
		sb.WriteString("\nChosen:\n")
		count := min(len(result.Chosen), maxItemsToShow)
		for i := 0; i < count; i++ {
			c := result.Chosen[i]
			sb.WriteString(fmt.Sprintf("  • %s [%s] $%.2f/mo\n", c.ID, c.Category, c.MonthlyCost))
		}
		if len(result.Chosen) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(result.Chosen)-maxItemsToShow))
		}
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("Monthly:     $%.2f\n", result.Totals.MonthlyCost))
		sb.WriteString(fmt.Sprintf("Deductible:  $%.2f\n", result.Totals.Deductible))
		sb.WriteString(fmt.Sprintf("OOP max:     $%.2f\n", result.Totals.OutOfPocketMax))
	}

	if len(result.Warnings) > 0 {
		sb.WriteString("\nWarnings:\n")
		for _, w := range result.Warnings {
			sb.WriteString(fmt.Sprintf("  ⚠ %s\n", w))
		}
	}

	p.printBox("SELECTION RESULT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRecommendation outputs the recommended plan and, when given, its utility breakdown.
func (p *Printer) PrintRecommendation(rec *types.PlanRecommendation, breakdown *scoring.Breakdown) {
	if rec == nil {
		return
	}
	plan := rec.SelectedPlan

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Plan:     %s\n", plan.PlanID))
	if plan.PlanMarketingName != "" {
		sb.WriteString(fmt.Sprintf("Name:     %s\n", plan.PlanMarketingName))
	}
	if plan.MetalLevel != "" {
		sb.WriteString(fmt.Sprintf("Metal:    %s (%s)\n", plan.MetalLevel, plan.NetworkTier))
	}
	sb.WriteString(fmt.Sprintf("Premium:  $%.2f/mo\n", plan.MonthlyPremium))
	sb.WriteString(fmt.Sprintf("Utility:  %.4f\n", rec.UtilityScore))
	sb.WriteString(fmt.Sprintf("Scored:   %d candidates in %.3f ms\n", rec.CandidatesScored, rec.OptimizationTimeMS))

	if breakdown != nil {
		sb.WriteString("\nBreakdown:\n")
		sb.WriteString(fmt.Sprintf("  premium     %.3f\n", breakdown.Premium))
		sb.WriteString(fmt.Sprintf("  deductible  %.3f\n", breakdown.Deductible))
		sb.WriteString(fmt.Sprintf("  coverage    %.3f\n", breakdown.Coverage))
		sb.WriteString(fmt.Sprintf("  oop         %.3f\n", breakdown.OOP))
	}

	p.printBox("RECOMMENDED PLAN", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintBundle outputs a bundle's benefits and totals.
func (p *Printer) PrintBundle(b *types.Bundle) {
	if b == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Name:     %s\n", b.Name))
	if b.ID != "" {
		sb.WriteString(fmt.Sprintf("ID:       %s\n", b.ID))
	}
	sb.WriteString(fmt.Sprintf("Benefits: %d\n\n", len(b.Benefits)))
	for _, benefit := range b.Benefits {
		sb.WriteString(fmt.Sprintf("  • %s (%s, %s) $%.2f/mo\n", benefit.Name, benefit.Type, benefit.Provider, benefit.MonthlyPremium))
	}
	sb.WriteString(fmt.Sprintf("\nTotal premium: $%.2f/mo\n", b.TotalMonthlyPremium))

	for _, w := range b.Warnings {
		sb.WriteString(fmt.Sprintf("⚠ %s\n", w))
	}

	p.printBox("BENEFIT BUNDLE", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintComparison outputs the comparison matrix in bundle id order followed by the recommendations.
func (p *Printer) PrintComparison(cmp *types.Comparison) {
	if cmp == nil || len(cmp.ComparisonMatrix) == 0 {
		return
	}

	ids := make([]string, 0, len(cmp.ComparisonMatrix))
	for id := range cmp.ComparisonMatrix {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var sb strings.Builder
	for _, id := range ids {
		row := cmp.ComparisonMatrix[id]
		sb.WriteString(fmt.Sprintf("%s: $%.2f/mo, %d benefits\n", row.Name, row.TotalMonthlyPremium, row.BenefitCount))
	}
	if len(cmp.Recommendations) > 0 {
		sb.WriteString("\n")
		for _, r := range cmp.Recommendations {
			sb.WriteString(fmt.Sprintf("✓ %s\n", r))
		}
	}

	p.printBox("BUNDLE COMPARISON", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintIngestion outputs how many records were loaded and skipped from each source.
func (p *Printer) PrintIngestion(loaded, skipped int, sources []string) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Loaded:  %d\n", loaded))
	sb.WriteString(fmt.Sprintf("Skipped: %d\n", skipped))
	if len(sources) > 0 {
		sb.WriteString("\nSources:\n")
		for _, s := range sources {
			sb.WriteString(fmt.Sprintf("  • %s\n", s))
		}
	}
	p.printBox("INGESTION", strings.TrimSuffix(sb.String(), "\n"))
}

// Package types provides type definitions for structured data used throughout the benefit-optimizer system.
//
//nolint:revive // types is a standard Go package name pattern
package types

// Mode selects between the two optimization objectives
type Mode string

// Selection modes
const (
	ModeBundle Mode = "bundle"
	ModeChoice Mode = "choice"
)

// ResultStatus is the terminal outcome of a completed optimization
type ResultStatus string

// Result statuses. Engine faults are returned as errors, never as a status.
const (
	StatusOptimal    ResultStatus = "optimal"
	StatusInfeasible ResultStatus = "infeasible"
)

// Infeasibility reasons
const (
	ReasonEmptyPool            = "empty pool"
	ReasonNoFeasibleAssignment = "no feasible assignment"
)

// Totals aggregates the summed attributes of a selection
type Totals struct {
	MonthlyCost    float64 `json:"monthly_cost"`
	Deductible     float64 `json:"deductible"`
	OutOfPocketMax float64 `json:"out_of_pocket_max"`
}

// SelectionResult is the immutable outcome of a single optimization call
type SelectionResult struct {
	Status         ResultStatus `json:"status"`
	Mode           Mode         `json:"mode"`
	Chosen         []Candidate  `json:"chosen,omitempty"`
	ObjectiveValue float64      `json:"objective_value"`
	Totals         Totals       `json:"totals"`
	ElapsedMS      float64      `json:"elapsed_ms"`
	Reason         string       `json:"reason,omitempty"`
	Warnings       []string     `json:"warnings,omitempty"`
}

// Optimal reports whether the result carries a selection
func (r *SelectionResult) Optimal() bool {
	return r != nil && r.Status == StatusOptimal
}

// ChosenIDs returns the ids of the chosen candidates in result order
func (r *SelectionResult) ChosenIDs() []string {
	if r == nil {
		return nil
	}
	ids := make([]string, 0, len(r.Chosen))
	for _, c := range r.Chosen {
		ids = append(ids, c.ID)
	}
	return ids
}

// Package types provides type definitions for structured data used throughout the benefit-optimizer system.
//
//nolint:revive // types is a standard Go package name pattern
package types

// OptimizeRequest asks for the best single plan in a state for a requester
type OptimizeRequest struct {
	EmployeeProfile RequesterProfile `json:"employee_profile"`
	StateCode       string           `json:"state_code" validate:"required,len=2,alpha"`
}

// Validate validates the request and its embedded profile.
func (r *OptimizeRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return err
	}
	return r.EmployeeProfile.Validate()
}

// PlanRecommendation is the single-choice outcome returned to API callers
type PlanRecommendation struct {
	SelectedPlan       PlanFeature `json:"selected_plan"`
	UtilityScore       float64     `json:"utility_score"`
	TotalCost          float64     `json:"total_cost"`
	OptimizationTimeMS float64     `json:"optimization_time_ms"`
	CandidatesScored   int         `json:"candidates_scored"`
	Cached             bool        `json:"cached"`
}

// BatchOptimizeRequest groups several optimize requests into one call
type BatchOptimizeRequest struct {
	Requests []OptimizeRequest `json:"requests" validate:"required,min=1,max=50"`
}

// BatchOutcome is the per-item result of a batch optimize call
type BatchOutcome struct {
	Index          int                 `json:"index"`
	Recommendation *PlanRecommendation `json:"recommendation,omitempty"`
	Error          string              `json:"error,omitempty"`
	Status         int                 `json:"status"`
}

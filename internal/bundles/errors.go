package bundles

import (
	"fmt"
	"strings"
)

// ErrBundleNotFound indicates no stored bundle has the requested id
type ErrBundleNotFound struct {
	ID string
}

func (e *ErrBundleNotFound) Error() string {
	return fmt.Sprintf("bundle not found: %s", e.ID)
}

// ErrInfeasible indicates no bundle satisfies the request
type ErrInfeasible struct {
	Reason   string
	Warnings []string
}

func (e *ErrInfeasible) Error() string {
	if len(e.Warnings) == 0 {
		return fmt.Sprintf("no bundle satisfies the request: %s", e.Reason)
	}
	return fmt.Sprintf("no bundle satisfies the request: %s (%s)", e.Reason, strings.Join(e.Warnings, "; "))
}

// ErrComparison indicates a comparison could not be made
type ErrComparison struct {
	Message string
}

func (e *ErrComparison) Error() string {
	return fmt.Sprintf("comparison failed: %s", e.Message)
}

// ErrInvalidStatus indicates an unknown bundle status
type ErrInvalidStatus struct {
	Status string
}

func (e *ErrInvalidStatus) Error() string {
	return fmt.Sprintf("invalid bundle status %q: must be one of draft, active, inactive, archived", e.Status)
}

// Package selection provides the constrained selection engine: an exact branch-and-bound optimizer
// over one binary decision per candidate, for bundle assembly and single-choice selection.
package selection

import (
	"errors"
	"fmt"
)

// ErrorKind classifies engine failures
type ErrorKind string

// Error kinds. Infeasible is listed for callers that surface an infeasible result as an error;
// the engine itself reports infeasibility as a result status.
const (
	KindInvalidCandidate ErrorKind = "invalid_candidate"
	KindInvalidProfile   ErrorKind = "invalid_profile"
	KindInfeasible       ErrorKind = "infeasible"
	KindSolverFault      ErrorKind = "solver_fault"
	KindCancelled        ErrorKind = "cancelled"
)

// Error represents an error that occurs during selection
type Error struct {
	Kind    ErrorKind
	Field   string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s (field: %s)", msg, e.Field)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// KindOf returns the kind of a selection error, or an empty kind for any other error
func KindOf(err error) ErrorKind {
	var serr *Error
	if errors.As(err, &serr) {
		return serr.Kind
	}
	return ""
}

func faultf(format string, args ...any) *Error {
	return &Error{Kind: KindSolverFault, Message: fmt.Sprintf(format, args...)}
}

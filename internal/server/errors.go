// Package server provides the HTTP REST API for the benefit optimizer.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/benefit-optimizer/internal/advisor"
	"github.com/jonathan/benefit-optimizer/internal/bundles"
	"github.com/jonathan/benefit-optimizer/internal/schemas"
	"github.com/jonathan/benefit-optimizer/internal/selection"
	"github.com/jonathan/benefit-optimizer/internal/types"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validationErr *ErrValidation
		schemaErr     *schemas.ValidationError
		fieldErr      *types.FieldError
		structErr     validator.ValidationErrors
		notFound      *bundles.ErrBundleNotFound
		noPlans       *advisor.ErrNoPlans
		infeasible    *bundles.ErrInfeasible
		comparison    *bundles.ErrComparison
		badStatus     *bundles.ErrInvalidStatus
		selectionErr  *selection.Error
	)
	switch {
	case errors.As(err, &validationErr), errors.As(err, &schemaErr), errors.As(err, &fieldErr), errors.As(err, &structErr):
		return http.StatusBadRequest
	case errors.As(err, &comparison), errors.As(err, &badStatus):
		return http.StatusBadRequest
	case errors.As(err, &notFound), errors.As(err, &noPlans):
		return http.StatusNotFound
	case errors.As(err, &infeasible):
		return http.StatusUnprocessableEntity
	case errors.As(err, &selectionErr):
		switch selectionErr.Kind {
		case selection.KindInfeasible:
			return http.StatusUnprocessableEntity
		case selection.KindInvalidCandidate, selection.KindInvalidProfile:
			return http.StatusBadRequest
		case selection.KindCancelled:
			return http.StatusServiceUnavailable
		default:
			return http.StatusInternalServerError
		}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorBody renders err for API callers. Internal failures are not described.
func errorBody(err error, status int) map[string]any {
	if status == http.StatusInternalServerError {
		return map[string]any{"error": "internal server error"}
	}
	body := map[string]any{"error": err.Error()}

	var infeasible *bundles.ErrInfeasible
	var schemaErr *schemas.ValidationError
	var selectionErr *selection.Error
	switch {
	case errors.As(err, &infeasible):
		body["reason"] = infeasible.Reason
		if len(infeasible.Warnings) > 0 {
			body["warnings"] = infeasible.Warnings
		}
	case errors.As(err, &schemaErr):
		first := schemaErr.First()
		body["error"] = fmt.Sprintf("%s: %s", first.Field, first.Message)
		body["field"] = first.Field
	case errors.As(err, &selectionErr):
		body["kind"] = string(selectionErr.Kind)
		if selectionErr.Field != "" {
			body["field"] = selectionErr.Field
		}
		if selectionErr.Kind == selection.KindInfeasible {
			body["reason"] = selectionErr.Message
		}
	default:
		if field := types.InvalidField(err); field != "" {
			body["field"] = field
		}
	}
	return body
}

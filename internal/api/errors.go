// errors.go - Structured error handling for API responses
package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/compliance-checker/backend/internal/gateway"
	"github.com/compliance-checker/backend/internal/orchestrator"
)

// APIError represents a structured API error response.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewBadRequestError creates a 400 Bad Request error.
func NewBadRequestError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusBadRequest,
		Code:    "BAD_REQUEST",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewValidationError creates a 400 validation error with a descriptive
// message.
func NewValidationError(message string) *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		Code:    "VALIDATION_ERROR",
		Message: message,
	}
}

// NewNotFoundError creates a 404 Not Found error.
func NewNotFoundError(resource string, id string) *APIError {
	return &APIError{
		Status:  http.StatusNotFound,
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s not found: %s", resource, id),
	}
}

// NewAlreadyPendingError creates a 409 Conflict error for a re-trigger while
// an execution is in flight.
func NewAlreadyPendingError(message string) *APIError {
	return &APIError{
		Status:  http.StatusConflict,
		Code:    "ALREADY_PENDING",
		Message: message,
	}
}

// NewGatewayError creates a 502 Bad Gateway error for a remote service
// failure.
func NewGatewayError(message string) *APIError {
	return &APIError{
		Status:  http.StatusBadGateway,
		Code:    "GATEWAY_ERROR",
		Message: message,
	}
}

// NewInternalError creates a 500 Internal Server Error.
func NewInternalError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusInternalServerError,
		Code:    "INTERNAL_ERROR",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// mapCoreError converts orchestrator and gateway errors into API errors.
// Validation failures map to 400, the pending guard to 409, and any gateway
// failure to 502.
func mapCoreError(err error) *APIError {
	var gwErr *gateway.Error
	switch {
	case errors.Is(err, orchestrator.ErrUnknownFile),
		errors.Is(err, orchestrator.ErrMissingCredential),
		errors.Is(err, orchestrator.ErrUnsupportedExtension),
		errors.Is(err, orchestrator.ErrEmptyFile):
		return NewValidationError(err.Error())
	case errors.Is(err, orchestrator.ErrAlreadyPending):
		return NewAlreadyPendingError(err.Error())
	case errors.As(err, &gwErr):
		return NewGatewayError(gwErr.Message)
	default:
		return NewInternalError("unexpected error", err)
	}
}

// ErrorHandler is the echo HTTP error handler installed in main.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var apiErr *APIError
	switch e := err.(type) {
	case *APIError:
		apiErr = e
	case *echo.HTTPError:
		apiErr = &APIError{
			Status:  e.Code,
			Code:    "HTTP_ERROR",
			Message: fmt.Sprintf("%v", e.Message),
		}
	default:
		apiErr = &APIError{
			Status:  http.StatusInternalServerError,
			Code:    "UNKNOWN_ERROR",
			Message: "An unexpected error occurred",
			Details: err.Error(),
		}
	}

	if !c.Response().Committed {
		c.JSON(apiErr.Status, apiErr)
	}
}

package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed application error with HTTP awareness.
type Error struct {
	Code    string  `json:"code"`
	Message string  `json:"message"`
	Status  int     `json:"status"`
	Err     error   `json:"-"`
	Details Details `json:"-"`
}

// Details carries the evidence attached to a failed timetable request.
type Details struct {
	Hints       []string
	Diagnostics []string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrValidation  = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInfeasible  = New("INFEASIBLE", http.StatusBadRequest, "the request cannot be scheduled")
	ErrNoSolution  = New("NO_SOLUTION", http.StatusBadRequest, "No solution found for the given constraints.")
	ErrSolverBusy  = New("SOLVER_BUSY", http.StatusServiceUnavailable, "too many timetables are being generated, retry later")
	ErrInternal    = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrNotFound    = New("NOT_FOUND", http.StatusNotFound, "resource not found")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// WithDetails returns a copy of err wrapping cause and carrying details.
func WithDetails(err *Error, message string, cause error, details Details) *Error {
	clone := Clone(err, message)
	if clone == nil {
		return nil
	}
	clone.Err = cause
	clone.Details = details
	return clone
}

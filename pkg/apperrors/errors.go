// Package apperrors defines the error taxonomy shared by services and handlers.
package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when the requested session, attendee, or report does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState is returned when an operation is illegal for the session's lifecycle state,
	// e.g. recording a click before activation or after the session ended.
	ErrInvalidState = errors.New("invalid session state")
	// ErrSessionNotJoinable is returned when a join targets a session that has already ended.
	ErrSessionNotJoinable = errors.New("session not joinable")
)

// ValidationError captures field-level input problems that callers surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil || len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(v.FieldErrors))
	for field, msg := range v.FieldErrors {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether any field-level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// Add records a field-level validation error.
func (v *ValidationError) Add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// NewValidation builds a single-field validation error.
func NewValidation(field, message string) *ValidationError {
	v := &ValidationError{}
	v.Add(field, message)
	return v
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

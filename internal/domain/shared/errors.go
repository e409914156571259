// Package shared contains common domain errors used across all domain
// packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	// Validation errors
	ErrValidation    = errors.New("validation error")
	ErrInvalidID     = errors.New("invalid ID")
	ErrInvalidInput  = errors.New("invalid input")
	ErrEmptyValue    = errors.New("value cannot be empty")
	ErrInvalidFormat = errors.New("invalid format")

	// State errors
	ErrInvalidState    = errors.New("invalid state")
	ErrStateTransition = errors.New("invalid state transition")
	ErrConflict        = errors.New("conflict")

	// Authorization errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "attendance", "schedule", "directory"
	Op      string // Operation that failed, e.g., "CheckIn", "CheckOut"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if t, ok := target.(*DomainError); ok {
		return e == t
	}
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Attendance domain errors
var (
	ErrPersonNotFound      = NewDomainError("directory", "Find", ErrNotFound, "person not found")
	ErrScheduleNotFound    = NewDomainError("schedule", "Find", ErrNotFound, "schedule slot not found")
	ErrAttendanceNotFound  = NewDomainError("attendance", "Find", ErrNotFound, "attendance record not found")
	ErrNoCheckInFound      = NewDomainError("attendance", "CheckOut", ErrNotFound, "no check-in found for today")
	ErrAlreadyCheckedOut   = NewDomainError("attendance", "CheckOut", ErrConflict, "already checked out today")
	ErrAttendanceFinalized = NewDomainError("attendance", "CheckIn", ErrStateTransition, "attendance already finalized as absent or excused")
	ErrInvalidStatus       = NewDomainError("attendance", "Validate", ErrInvalidInput, "invalid attendance status")
	ErrInvalidRole         = NewDomainError("attendance", "Validate", ErrInvalidInput, "role must be student or teacher")
	ErrMissingFields       = NewDomainError("attendance", "Validate", ErrValidation, "missing required fields")
	ErrWrongDay            = NewDomainError("schedule", "Mark", ErrValidation, "schedule slot is not for today")
	ErrInvalidTimeFormat   = NewDomainError("timepolicy", "ParseClock", ErrInvalidFormat, "time must look like hh:mm AM/PM")
	ErrSlotTransition      = NewDomainError("schedule", "Start", ErrStateTransition, "schedule slot cannot be started")
	ErrInvalidCredentials  = NewDomainError("directory", "Authenticate", ErrUnauthorized, "invalid login or password")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrInvalidFormat)
}

// IsConflict checks if the error reports a conflicting state the caller can reconcile.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsStateTransition checks if the error is a rejected state transition.
func IsStateTransition(err error) bool {
	return errors.Is(err, ErrStateTransition) || errors.Is(err, ErrInvalidState)
}

// IsUnauthorized checks if the error is an authentication failure.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrForbidden)
}

// Package shared contains common domain types and errors that are used across
// all domain packages. This package has zero external dependencies.
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
	ErrValidation   = errors.New("validation error")
	ErrInvalidInput = errors.New("invalid input")

	// State errors
	ErrInvalidState = errors.New("invalid state")

	// External service errors
	ErrExternalService = errors.New("external service error")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "hydration", "achievement", "roster"
	Op      string // Operation that failed, e.g., "AppendEntry", "SaveAll"
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

// Hydration domain errors
var (
	ErrInvalidAmount = NewDomainError("hydration", "AppendEntry", ErrInvalidInput, "amount must be a positive number of ml")
	ErrInvalidGoal   = NewDomainError("hydration", "SetGoal", ErrInvalidInput, "daily goal must be a positive number of ml")
	ErrNoGoalSet     = NewDomainError("hydration", "ComputeProgress", ErrInvalidState, "no daily goal set")
	ErrUserNotFound  = NewDomainError("roster", "Find", ErrNotFound, "user not found")
	ErrInvalidUserID = NewDomainError("roster", "Validate", ErrInvalidInput, "user id cannot be empty")
)

// ErrPersistence is the kind of every store write failure. The in-memory state
// has already been mutated when it is returned.
var ErrPersistence = errors.New("persistence failure")

// NewPersistenceError wraps a store failure for the given operation.
func NewPersistenceError(op string, err error) *DomainError {
	return WrapError("roster", op, ErrPersistence, "failed to persist users", err)
}

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrInvalidInput)
}

// IsPersistence checks if the error is a store write failure.
func IsPersistence(err error) bool {
	return errors.Is(err, ErrPersistence)
}

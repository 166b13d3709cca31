package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors. Callers match them with errors.Is; the transport layer
// maps each one to a status code.
var (
	ErrNotFound           = errors.New("resource not found")
	ErrAlreadyExists      = errors.New("resource already exists")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrRateLimited        = errors.New("rate limited")
	ErrScoringUnavailable = errors.New("scoring unavailable")
)

// DomainError wraps a sentinel with context.
type DomainError struct {
	// Base is the sentinel (e.g. ErrNotFound).
	Base error

	// Message provides human-readable context.
	Message string

	// Field names the offending input field for validation errors.
	Field string
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	switch {
	case e.Field != "":
		return fmt.Sprintf("%s: %s (field: %s)", e.Base.Error(), e.Message, e.Field)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Base.Error(), e.Message)
	default:
		return e.Base.Error()
	}
}

// Unwrap returns the base error for errors.Is/As support.
func (e *DomainError) Unwrap() error {
	return e.Base
}

// NewNotFoundError creates a not found error for the named resource.
func NewNotFoundError(resource string) *DomainError {
	return &DomainError{Base: ErrNotFound, Message: resource}
}

// NewValidationError creates a validation error for a specific field.
func NewValidationError(field, message string) *DomainError {
	return &DomainError{Base: ErrInvalidInput, Message: message, Field: field}
}

// NewConflictError creates a conflict error, used when the duel's current
// state does not allow the requested transition.
func NewConflictError(message string) *DomainError {
	return &DomainError{Base: ErrConflict, Message: message}
}

// NewForbiddenError creates a forbidden error.
func NewForbiddenError(message string) *DomainError {
	return &DomainError{Base: ErrForbidden, Message: message}
}

// NewUnauthorizedError creates an unauthorized error.
func NewUnauthorizedError(message string) *DomainError {
	return &DomainError{Base: ErrUnauthorized, Message: message}
}

// NewScoringError wraps a judge failure.
func NewScoringError(cause error) error {
	return fmt.Errorf("%w: %v", ErrScoringUnavailable, cause)
}

func IsNotFound(err error) bool        { return errors.Is(err, ErrNotFound) }
func IsValidationError(err error) bool { return errors.Is(err, ErrInvalidInput) }
func IsConflict(err error) bool        { return errors.Is(err, ErrConflict) }
func IsForbidden(err error) bool       { return errors.Is(err, ErrForbidden) }
func IsUnauthorized(err error) bool    { return errors.Is(err, ErrUnauthorized) }
func IsRateLimited(err error) bool     { return errors.Is(err, ErrRateLimited) }

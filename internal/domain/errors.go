package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks rejected input. Handlers map it to 400.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a referenced artifact or record that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrRateLimitExhausted is returned once the retry budget is spent on throttled calls.
	ErrRateLimitExhausted = errors.New("rate limit retries exhausted")

	// ErrUpstreamUnavailable marks a collaborator that is not configured or unreachable.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrPersistenceWrite wraps best-effort write failures. It is logged, never returned to clients.
	ErrPersistenceWrite = errors.New("persistence write failed")
)

// ValidationError describes which request field was rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Unwrap lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors. Typed errors below unwrap to these so callers can
// classify failures with errors.Is.
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrRateLimited        = errors.New("rate limited")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrInternalError      = errors.New("internal error")
)

// ValidationError reports a rejected input field. Unwraps to ErrInvalidInput.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// NotFoundError names the entity and identifier that could not be resolved.
// Unwraps to ErrNotFound.
type NotFoundError struct {
	Entity string
	ID     string
}

func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// RateLimitError carries the source that throttled us and how long to back
// off. Unwraps to ErrRateLimited.
type RateLimitError struct {
	Source     string
	RetryAfter time.Duration
}

func NewRateLimitError(source string, retryAfter time.Duration) *RateLimitError {
	return &RateLimitError{Source: source, RetryAfter: retryAfter}
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited by %s: retry after %s", e.Source, e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// ExternalAPIError wraps a failed upstream call with the source name, HTTP
// status, and response message. Unwraps to its cause, which may be nil.
type ExternalAPIError struct {
	Source     string
	StatusCode int
	Message    string
	Cause      error
}

func NewExternalAPIError(source string, statusCode int, message string, cause error) *ExternalAPIError {
	return &ExternalAPIError{
		Source:     source,
		StatusCode: statusCode,
		Message:    message,
		Cause:      cause,
	}
}

func (e *ExternalAPIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Source, e.StatusCode, e.Message)
}

func (e *ExternalAPIError) Unwrap() error { return e.Cause }

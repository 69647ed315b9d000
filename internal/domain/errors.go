package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrRequestValidation signals a malformed search or history request.
	ErrRequestValidation = errors.New("invalid request")
	// ErrUpstreamUnavailable signals that the generative model could not be reached
	// after retries, or rejected the call outright.
	ErrUpstreamUnavailable = errors.New("model unavailable")
	// ErrResponseUnusable signals model output that does not decode to a parameter object.
	ErrResponseUnusable = errors.New("model response unusable")
	// ErrQueryUnsafe signals a query plan that failed the safety assertion.
	ErrQueryUnsafe = errors.New("query plan failed safety check")
	// ErrStoreUnavailable signals that the record store cannot be reached.
	ErrStoreUnavailable = errors.New("record store unavailable")
	// ErrStoreQueryFailed signals a record store query error.
	ErrStoreQueryFailed = errors.New("record store query failed")
	// ErrHistoryNotFound signals a missing query history record.
	ErrHistoryNotFound = errors.New("query history not found")
	// ErrUnauthorizedHistoryAccess signals a history record owned by another requester.
	ErrUnauthorizedHistoryAccess = errors.New("query history belongs to another user")
	// ErrTokenBudgetExceeded signals an exhausted model token budget.
	ErrTokenBudgetExceeded = errors.New("model token budget exceeded")

	// ErrTransient marks a model failure worth retrying (network, throttling, 5xx).
	ErrTransient = errors.New("transient failure")
)

// ValidationError wraps ErrRequestValidation with the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrRequestValidation.Error(), e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrRequestValidation.Error(), e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrRequestValidation }

// NewValidationError creates a validation error for a field.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsTransient reports whether err is marked as retryable.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

package core

import (
	"errors"
	"fmt"
)

// Lookup errors
var (
	ErrNotFound        = errors.New("resource not found")
	ErrPresetNotFound  = fmt.Errorf("%w: preset", ErrNotFound)
	ErrSummaryNotFound = fmt.Errorf("%w: summary", ErrNotFound)
)

var (
	ErrInvalidBatchID = errors.New("invalid batch id")

	// ErrNonDeterministic: a replayed batch did not reproduce its stored summary
	ErrNonDeterministic = errors.New("non-deterministic result")
)

// NewNotFoundError wraps ErrNotFound with the resource and id
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

// IsNotFoundError checks if err is a not found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

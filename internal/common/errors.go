package common

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")

	// ErrStaleVersion means a compare-and-set update matched no row at the
	// expected version. Callers reload and retry.
	ErrStaleVersion = errors.New("stale version")

	ErrIllegalTransition    = errors.New("illegal state transition")
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrForbidden            = errors.New("forbidden")

	// ErrSuppressed marks a delivery refused by recipient preferences.
	// It is terminal: the entry is not retried.
	ErrSuppressed = errors.New("suppressed by recipient preferences")
)

// ValidationError describes a rejected field on a write.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidConfiguration }

func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// TransitionError reports an action that the current state does not permit.
type TransitionError struct {
	Entity string
	From   string
	Action string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s %s in status %s", e.Action, e.Entity, e.From)
}

func (e *TransitionError) Unwrap() error { return ErrIllegalTransition }

// IsRetryable reports whether err is a version conflict worth retrying.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStaleVersion)
}

package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is wrapped by every InputError.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptyScope is returned when no package lies within the depth bound.
	// Callers report it as "no dependencies", not as a failed search.
	ErrEmptyScope = errors.New("no dependencies in scope")
)

// InputError rejects a malformed query before any search work starts.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *InputError) Unwrap() error { return ErrInvalidInput }

func inputErr(field, format string, args ...any) error {
	return &InputError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

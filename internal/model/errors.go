package model

import (
	"errors"
	"fmt"
)

// ErrNotFound signals that a single-record lookup matched no row. It is
// a normal branch for callers, not a fatal condition.
var ErrNotFound = errors.New("notification not found")

// ValidationError rejects a write before it reaches storage
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid notification: field %q %s", e.Field, e.Reason)
}

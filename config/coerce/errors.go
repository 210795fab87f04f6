package coerce

import (
	"errors"
	"fmt"
)

// ErrTypeMismatch indicates a value that cannot be coerced to its spec's
// declared type.
var ErrTypeMismatch = errors.New("type mismatch")

// TypeMismatchError reports a value that does not satisfy its spec. It names
// the offending key and both the expected and actual type.
type TypeMismatchError struct {
	Key      string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("option %q: expected %s, got %s", e.Key, e.Expected, e.Actual)
}

// Is reports whether the target matches ErrTypeMismatch.
func (e *TypeMismatchError) Is(target error) bool {
	return target == ErrTypeMismatch
}

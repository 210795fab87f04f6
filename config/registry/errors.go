package registry

import (
	"errors"
	"fmt"
)

// Sentinel errors for matching with errors.Is.
var (
	// ErrDuplicateKey indicates the same key was registered twice with
	// differing types. A registration-time failure of this kind points at a
	// component bug rather than a data problem.
	ErrDuplicateKey = errors.New("duplicate option key")

	// ErrUnknownKey indicates a lookup for a key with no registered spec.
	ErrUnknownKey = errors.New("unknown option key")
)

// DuplicateKeyError reports a key registered twice with differing types.
type DuplicateKeyError struct {
	Key      string
	Existing OptionType
	Proposed OptionType
}

// Error implements the error interface.
func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate option key %q: registered as %s, re-registered as %s",
		e.Key, e.Existing, e.Proposed)
}

// Is reports whether the target matches ErrDuplicateKey.
func (e *DuplicateKeyError) Is(target error) bool {
	return target == ErrDuplicateKey
}

// UnknownKeyError reports a key with no registered spec.
type UnknownKeyError struct {
	Key string
}

// Error implements the error interface.
func (e *UnknownKeyError) Error() string {
	return fmt.Sprintf("unknown option key %q", e.Key)
}

// Is reports whether the target matches ErrUnknownKey.
func (e *UnknownKeyError) Is(target error) bool {
	return target == ErrUnknownKey
}

package config

import (
	"errors"
)

// Errors returned by configuration operations.
var (
	// ErrOptionNotFound indicates the resolved configuration has no such option.
	ErrOptionNotFound = errors.New("option not found")

	// ErrUnknownComponent indicates a resolution against an unregistered component.
	ErrUnknownComponent = errors.New("unknown component")

	// ErrNoSource indicates a reload was requested before any file load.
	ErrNoSource = errors.New("no config file to reload")
)

package log

// NopLogger discards all output. Used when logging is disabled and as the
// default collaborator in tests.
type NopLogger struct{}

// NewNop creates a new no-op logger.
func NewNop() Logger { return NopLogger{} }

// Debug does nothing.
func (NopLogger) Debug(msg string, fields ...Field) {}

// Info does nothing.
func (NopLogger) Info(msg string, fields ...Field) {}

// Warn does nothing.
func (NopLogger) Warn(msg string, fields ...Field) {}

// Error does nothing.
func (NopLogger) Error(msg string, fields ...Field) {}

// With returns the same no-op logger.
func (l NopLogger) With(fields ...Field) Logger { return l }

// Sync does nothing and returns nil.
func (NopLogger) Sync() error { return nil }

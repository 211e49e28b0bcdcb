package logger

import (
	"github.com/mwangikim/nyumbapay/internal/domain/port/core"
)

// NoopLogger is a logger that discards everything, useful in tests
type NoopLogger struct{}

// NewNoopLogger creates a logger that does nothing
func NewNoopLogger() core.Logger {
	return &NoopLogger{}
}

func (l *NoopLogger) SetLevel(level core.LogLevel)            {}
func (l *NoopLogger) Debug(message string, _ map[string]any)  {}
func (l *NoopLogger) Info(message string, _ map[string]any)   {}
func (l *NoopLogger) Warn(message string, _ map[string]any)   {}
func (l *NoopLogger) Error(message string, _ map[string]any)  {}
func (l *NoopLogger) Flush() error                            { return nil }

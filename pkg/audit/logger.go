package audit

import (
	"context"
)

// Logger is the interface for the audit sink.
type Logger interface {
	// Log records an audit event.
	Log(ctx context.Context, event *Event) error

	// Close closes the logger and flushes any buffered events.
	Close() error
}

// NewNoopLogger returns a logger that discards all events. Used when no
// sink is configured and in tests.
func NewNoopLogger() Logger {
	return &noopLogger{}
}

type noopLogger struct{}

func (l *noopLogger) Log(ctx context.Context, event *Event) error { return nil }
func (l *noopLogger) Close() error                                { return nil }

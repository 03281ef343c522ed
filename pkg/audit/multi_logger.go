package audit

import (
	"context"
	"fmt"
	"strings"
)

// MultiLogger fans events out to multiple sinks. Every sink receives every
// event; errors are collected rather than short-circuiting.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger creates a logger that writes to all given sinks.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	return &MultiLogger{loggers: loggers}
}

// Log sends the event to every sink.
func (m *MultiLogger) Log(ctx context.Context, event *Event) error {
	var errs []string
	for _, l := range m.loggers {
		if err := l.Log(ctx, event); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("audit log errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Close closes all sinks.
func (m *MultiLogger) Close() error {
	var errs []string
	for _, l := range m.loggers {
		if err := l.Close(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("audit close errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

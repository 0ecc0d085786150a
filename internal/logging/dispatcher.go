package logging

import "github.com/rs/zerolog"

// DispatcherLogger bridges the dispatcher's key-value logging calls
// onto a zerolog.Logger. zerolog consumes the variadic pairs directly:
// a dangling key is trimmed and non-string keys are skipped.
type DispatcherLogger struct {
	zl zerolog.Logger
}

// NewDispatcherLogger wraps zl for use as a dispatcher logger.
func NewDispatcherLogger(zl zerolog.Logger) *DispatcherLogger {
	return &DispatcherLogger{zl: zl}
}

func (l *DispatcherLogger) Debug(msg string, keysAndValues ...any) {
	l.zl.Debug().Fields(keysAndValues).Msg(msg)
}

func (l *DispatcherLogger) Info(msg string, keysAndValues ...any) {
	l.zl.Info().Fields(keysAndValues).Msg(msg)
}

func (l *DispatcherLogger) Error(msg string, keysAndValues ...any) {
	l.zl.Error().Fields(keysAndValues).Msg(msg)
}

package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

const serviceName = "tellosim"

// Test seams for stdout capture.
var (
	osStdout io.Writer = os.Stdout
	osPipe             = os.Pipe
)

// SlogManager owns the process logger: a fan-out slog.Logger built by
// Setup and rewrapped by AttachContext.
type SlogManager struct {
	logger   *slog.Logger
	provider *sdklog.LoggerProvider // flushed on Flush, nil without OTel
}

// NewSlogManager returns a manager whose Logger falls back to
// slog.Default until Setup runs.
func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// ParseLevel maps a config level string onto slog.Level, case
// insensitively. Unknown strings mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// rfc3339Times rewrites the built-in time attribute to RFC3339 UTC so
// file and network sinks agree on timestamps.
func rfc3339Times(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey {
		if t, ok := a.Value.Any().(time.Time); ok {
			a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
		}
	}
	return a
}

// Setup builds the process logger. Records go to the session log file
// when one is given, to stdout otherwise, plus the OTel bridge when
// provider is non-nil and any extra handlers (GELF among them).
func (m *SlogManager) Setup(file io.Writer, level string, provider *sdklog.LoggerProvider, extra ...slog.Handler) {
	m.provider = provider

	opts := &slog.HandlerOptions{
		Level:       ParseLevel(level),
		ReplaceAttr: rfc3339Times,
	}

	sink := file
	if sink == nil {
		sink = osStdout
	}
	handlers := []slog.Handler{slog.NewTextHandler(sink, opts)}

	if provider != nil {
		handlers = append(handlers, otelslog.NewHandler(serviceName, otelslog.WithLoggerProvider(provider)))
	}
	for _, h := range extra {
		if h != nil {
			handlers = append(handlers, h)
		}
	}

	m.logger = slog.New(NewMultiHandler(handlers...))
	m.logger.Info("Logging initialized", "level", level)
}

// AttachContext rewraps the logger so every record carries the dynamic
// attributes from provider. Call after Setup, before the logger is
// handed out.
func (m *SlogManager) AttachContext(provider ContextProvider) {
	if m.logger == nil || provider == nil {
		return
	}
	m.logger = slog.New(NewContextHandler(m.logger.Handler(), provider))
}

// Logger hands out the configured logger, or slog.Default before Setup.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Flush pushes buffered OTel records out to their exporters.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.provider == nil {
		return nil
	}
	return m.provider.ForceFlush(ctx)
}

package logging

import (
	"context"
	"errors"
	"log/slog"
)

// MultiHandler fans every record out to a set of slog handlers, so one
// logger can feed the session file, the OTel bridge and Graylog at the
// same time. A failing sink never starves the others.
type MultiHandler struct {
	sinks []slog.Handler
}

// NewMultiHandler builds a fanout over the given handlers. Nil entries
// are dropped, which lets callers pass optional sinks unconditionally.
func NewMultiHandler(handlers ...slog.Handler) *MultiHandler {
	m := &MultiHandler{sinks: make([]slog.Handler, 0, len(handlers))}
	for _, h := range handlers {
		if h != nil {
			m.sinks = append(m.sinks, h)
		}
	}
	return m
}

// Enabled reports true when at least one sink wants the level.
func (m *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.sinks {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle delivers the record to every sink enabled for its level. Each
// sink gets its own clone. All failures are joined into the returned
// error after every sink has been tried.
func (m *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range m.sinks {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WithAttrs applies the attributes to every sink.
func (m *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return m
	}
	next := make([]slog.Handler, len(m.sinks))
	for i, h := range m.sinks {
		next[i] = h.WithAttrs(attrs)
	}
	return &MultiHandler{sinks: next}
}

// WithGroup opens the group on every sink.
func (m *MultiHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return m
	}
	next := make([]slog.Handler, len(m.sinks))
	for i, h := range m.sinks {
		next[i] = h.WithGroup(name)
	}
	return &MultiHandler{sinks: next}
}

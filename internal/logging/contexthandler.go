package logging

import (
	"context"
	"log/slog"
)

// ContextProvider supplies attributes evaluated at log time, for values
// that move while the process runs (the live device count, say).
type ContextProvider func() []slog.Attr

// ContextHandler decorates records with whatever the provider returns
// at the moment each record is handled, then passes them on.
type ContextHandler struct {
	next slog.Handler
	live ContextProvider
}

// NewContextHandler wraps next. When provider is nil there is nothing
// to inject and next is returned untouched.
func NewContextHandler(next slog.Handler, provider ContextProvider) slog.Handler {
	if provider == nil {
		return next
	}
	return &ContextHandler{next: next, live: provider}
}

// Enabled defers to the wrapped handler.
func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle evaluates the provider and stamps its attributes onto a clone
// of the record.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	attrs := h.live()
	if len(attrs) == 0 {
		return h.next.Handle(ctx, r)
	}
	rc := r.Clone()
	rc.AddAttrs(attrs...)
	return h.next.Handle(ctx, rc)
}

// WithAttrs keeps the provider attached to the rewrapped handler.
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{next: h.next.WithAttrs(attrs), live: h.live}
}

// WithGroup keeps the provider attached to the rewrapped handler.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &ContextHandler{next: h.next.WithGroup(name), live: h.live}
}

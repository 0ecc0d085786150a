// Package dispatcher routes events to registered handlers by keyword.
//
// Handlers run inline by default. Registration options can detach a
// handler behind a buffered queue worked by its own goroutine, make a
// full queue block the caller instead of refusing the event, and wrap
// the handler in debug logging. Handlers are registered once at startup;
// Dispatch may then be called from any goroutine.
package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/tellofleet/sim/internal/protocol"
)

// Event is one unit of work moving through a registry: a parsed wire
// command on the device path, or an internal notification such as a fleet
// announcement.
type Event struct {
	Keyword   string
	Cmd       protocol.Command // set on the device command path
	Payload   any              // set on internal paths
	Timestamp time.Time
}

// HandlerFunc processes an event and returns a result.
type HandlerFunc func(Event) (any, error)

// Logger is the minimal leveled logger the dispatcher writes through.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option adjusts how a handler is registered.
type Option func(*regOpts)

type regOpts struct {
	queue    int
	blocking bool
	logged   bool
}

// Buffered detaches the handler behind a queue of the given size.
// Dispatch then returns "queued" without waiting for the handler.
func Buffered(size int) Option {
	return func(o *regOpts) { o.queue = size }
}

// Blocking makes a buffered handler's full queue block the dispatching
// goroutine rather than refuse the event.
func Blocking() Option {
	return func(o *regOpts) { o.blocking = true }
}

// Logged wraps the handler in debug logging with timing.
func Logged() Option {
	return func(o *regOpts) { o.logged = true }
}

// Dispatcher routes events to handlers by keyword.
//
// Register is startup wiring and is not synchronized against Dispatch;
// once the registry is populated, Dispatch is safe from any goroutine.
type Dispatcher struct {
	routes map[string]HandlerFunc
	log    Logger
	ins    instruments

	mu      sync.RWMutex // guards buffers for the gauge callback
	buffers map[string]chan Event
}

// New builds a Dispatcher logging through log.
func New(log Logger) (*Dispatcher, error) {
	ins, err := newInstruments()
	if err != nil {
		return nil, err
	}

	d := &Dispatcher{
		routes:  make(map[string]HandlerFunc),
		log:     log,
		ins:     ins,
		buffers: make(map[string]chan Event),
	}
	if err := d.observeQueueDepth(); err != nil {
		return nil, err
	}
	return d, nil
}

// Register binds h to keyword, replacing any previous binding.
func (d *Dispatcher) Register(keyword string, h HandlerFunc, opts ...Option) {
	var o regOpts
	for _, opt := range opts {
		opt(&o)
	}

	if o.queue > 0 {
		h = d.detach(keyword, o.queue, o.blocking, h)
	}
	if o.logged {
		h = d.logged(keyword, h)
	}
	d.routes[keyword] = h
}

// Dispatch hands e to the handler registered for its keyword. For a
// buffered handler the result is "queued" and the handler's own result
// is discarded.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	h, ok := d.routes[e.Keyword]
	if !ok {
		return nil, fmt.Errorf("unknown keyword: %s", e.Keyword)
	}
	return h(e)
}

// HasHandler reports whether keyword has a registered handler.
func (d *Dispatcher) HasHandler(keyword string) bool {
	_, ok := d.routes[keyword]
	return ok
}

// detach moves h behind a buffered channel worked by its own goroutine.
// The returned func only enqueues; unless blocking is set, a full queue
// refuses the event.
func (d *Dispatcher) detach(keyword string, size int, blocking bool, h HandlerFunc) HandlerFunc {
	buf := make(chan Event, size)

	d.mu.Lock()
	d.buffers[keyword] = buf
	d.mu.Unlock()

	kw := metric.WithAttributes(attribute.String("keyword", keyword))

	go func() {
		for e := range buf {
			h(e)
			d.ins.handled.Add(context.Background(), 1, kw)
		}
	}()

	if blocking {
		return func(e Event) (any, error) {
			buf <- e
			return "queued", nil
		}
	}
	return func(e Event) (any, error) {
		select {
		case buf <- e:
			return "queued", nil
		default:
			d.ins.shed.Add(context.Background(), 1, kw)
			return nil, fmt.Errorf("queue full: %s", keyword)
		}
	}
}

// logged wraps h in debug logging with elapsed timing.
func (d *Dispatcher) logged(keyword string, h HandlerFunc) HandlerFunc {
	return func(e Event) (any, error) {
		start := time.Now()
		d.log.Debug("dispatching", "keyword", keyword)

		res, err := h(e)
		if err != nil {
			d.log.Error("dispatch failed", "keyword", keyword, "elapsed", time.Since(start), "error", err)
			return res, err
		}
		d.log.Debug("dispatched", "keyword", keyword, "elapsed", time.Since(start))
		return res, nil
	}
}

package dispatcher

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const scopeName = "github.com/tellofleet/sim/internal/dispatcher"

// instruments bundles the dispatch metrics. They come from the global
// meter provider, so they stay no-ops until a provider is installed.
type instruments struct {
	queueDepth metric.Int64ObservableGauge
	handled    metric.Int64Counter
	shed       metric.Int64Counter
}

func newInstruments() (instruments, error) {
	m := otel.Meter(scopeName)

	var ins instruments
	var err error

	ins.queueDepth, err = m.Int64ObservableGauge(
		"tellosim.dispatch.queue_depth",
		metric.WithDescription("Buffered events awaiting a handler"),
	)
	if err != nil {
		return ins, fmt.Errorf("queue_depth gauge: %w", err)
	}

	ins.handled, err = m.Int64Counter(
		"tellosim.dispatch.handled",
		metric.WithDescription("Events a buffered handler has finished"),
	)
	if err != nil {
		return ins, fmt.Errorf("handled counter: %w", err)
	}

	ins.shed, err = m.Int64Counter(
		"tellosim.dispatch.shed",
		metric.WithDescription("Events refused because a buffer was full"),
	)
	if err != nil {
		return ins, fmt.Errorf("shed counter: %w", err)
	}

	return ins, nil
}

// observeQueueDepth registers the gauge callback reporting the fill level
// of every buffered handler, labeled by keyword.
func (d *Dispatcher) observeQueueDepth() error {
	_, err := otel.Meter(scopeName).RegisterCallback(
		func(_ context.Context, o metric.Observer) error {
			d.mu.RLock()
			defer d.mu.RUnlock()
			for kw, buf := range d.buffers {
				o.ObserveInt64(d.ins.queueDepth, int64(len(buf)),
					metric.WithAttributes(attribute.String("keyword", kw)))
			}
			return nil
		},
		d.ins.queueDepth,
	)
	if err != nil {
		return fmt.Errorf("queue_depth callback: %w", err)
	}
	return nil
}

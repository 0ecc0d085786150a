// Package worker pumps device snapshots from the in-memory store to the
// fleet coordinator backend.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tellofleet/sim/internal/cache"
	"github.com/tellofleet/sim/internal/coordinator"
	"github.com/tellofleet/sim/internal/model"
)

const (
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// Publisher drains dirty snapshots from the store and pushes them to the
// coordinator backend. A push failure backs off and retries with the
// newest snapshot per device; intermediate states collapse instead of
// queueing up behind an outage.
type Publisher struct {
	store   *cache.SnapshotStore
	backend coordinator.Backend
	log     *slog.Logger

	pushed cache.SafeCounter

	mu           sync.Mutex
	lastPushTime time.Duration
}

// NewPublisher creates a new Publisher.
func NewPublisher(store *cache.SnapshotStore, backend coordinator.Backend, log *slog.Logger) *Publisher {
	if log == nil {
		log = slog.Default()
	}
	return &Publisher{
		store:   store,
		backend: backend,
		log:     log,
	}
}

// Run pumps snapshots until the context is cancelled.
func (p *Publisher) Run(ctx context.Context) {
	backoff := initialBackoff
	pending := make(map[string]model.Snapshot)

	for {
		if len(pending) == 0 {
			select {
			case <-ctx.Done():
				return
			case <-p.store.Wake():
			}
		} else {
			// A previous push failed. Wait out the backoff, then retry
			// with whatever is newest.
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
		}

		for _, s := range p.store.TakeDirty() {
			pending[s.ID] = s
		}

		if err := p.push(pending); err != nil {
			p.log.Warn("state push failed",
				"error", err, "pending", len(pending), "retryIn", backoff)
			backoff = min(backoff*2, maxBackoff)
			continue
		}
		backoff = initialBackoff
	}
}

func (p *Publisher) push(pending map[string]model.Snapshot) error {
	if len(pending) == 0 {
		return nil
	}
	start := time.Now()
	for id, s := range pending {
		if err := p.backend.PushState(s); err != nil {
			return fmt.Errorf("push state for %s: %w", id, err)
		}
		delete(pending, id)
		p.pushed.Inc()
	}

	p.mu.Lock()
	p.lastPushTime = time.Since(start)
	p.mu.Unlock()
	return nil
}

// Pushed returns the total number of snapshots pushed to the backend.
func (p *Publisher) Pushed() int {
	return p.pushed.Value()
}

// LastPushDuration returns the duration of the last successful push
// cycle. Returns 0 before the first push.
func (p *Publisher) LastPushDuration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastPushTime
}

// Healthy probes the backend health check when the backend supports it.
// Backends without one count as healthy.
func (p *Publisher) Healthy() error {
	if hc, ok := p.backend.(coordinator.HealthChecker); ok {
		return hc.Healthcheck()
	}
	return nil
}

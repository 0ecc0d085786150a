// Package cache holds the in-memory state shared between the device
// engines, the transport layer, and the coordinator publisher.
package cache

import (
	"sync"

	"github.com/tellofleet/sim/internal/model"
)

// SnapshotStore keeps the latest snapshot per device. Engines write at
// publish cadence; the transport broadcaster, the fleet sweeps and the
// coordinator publisher read from here instead of querying engines.
// Latency in these calls is critical to keep the engine tick loops fast.
type SnapshotStore struct {
	mu     sync.RWMutex
	latest map[string]model.Snapshot
	dirty  map[string]struct{}
	wake   chan struct{}
}

func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		latest: make(map[string]model.Snapshot),
		dirty:  make(map[string]struct{}),
		wake:   make(chan struct{}, 1),
	}
}

// Put stores a snapshot and marks the device dirty. A write older than
// the stored snapshot for the same device is dropped.
func (c *SnapshotStore) Put(s model.Snapshot) {
	c.mu.Lock()
	if cur, ok := c.latest[s.ID]; ok && cur.Captured.After(s.Captured) {
		c.mu.Unlock()
		return
	}
	c.latest[s.ID] = s
	c.dirty[s.ID] = struct{}{}
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Get returns the latest snapshot for a device.
func (c *SnapshotStore) Get(id string) (model.Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.latest[id]
	return s, ok
}

// All returns the latest snapshot of every device.
func (c *SnapshotStore) All() []model.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.Snapshot, 0, len(c.latest))
	for _, s := range c.latest {
		out = append(out, s)
	}
	return out
}

// Remove drops a device from the store.
func (c *SnapshotStore) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.latest, id)
	delete(c.dirty, id)
}

// TakeDirty drains the dirty set and returns the latest snapshot of
// every device written since the previous call. Intermediate writes
// collapse into the newest one.
func (c *SnapshotStore) TakeDirty() []model.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.dirty) == 0 {
		return nil
	}
	out := make([]model.Snapshot, 0, len(c.dirty))
	for id := range c.dirty {
		if s, ok := c.latest[id]; ok {
			out = append(out, s)
		}
	}
	c.dirty = make(map[string]struct{})
	return out
}

// Wake returns a channel that receives a signal after a snapshot is
// stored. The channel has capacity one, so consumers pair it with
// TakeDirty instead of counting signals.
func (c *SnapshotStore) Wake() <-chan struct{} {
	return c.wake
}

// Len returns the number of devices in the store.
func (c *SnapshotStore) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.latest)
}

// Reset clears the store.
func (c *SnapshotStore) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.latest = make(map[string]model.Snapshot)
	c.dirty = make(map[string]struct{})
}

// SafeCounter is a thread-safe counter
type SafeCounter struct {
	mu sync.Mutex
	v  int
}

func (c *SafeCounter) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

func (c *SafeCounter) Set(v int) {
	c.mu.Lock()
	c.v = v
	c.mu.Unlock()
}

func (c *SafeCounter) Inc() {
	c.mu.Lock()
	c.v++
	c.mu.Unlock()
}

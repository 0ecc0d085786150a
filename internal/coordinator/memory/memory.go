// internal/coordinator/memory/memory.go
package memory

import (
	"fmt"
	"sync"

	"github.com/tellofleet/sim/internal/model"
)

// History is capped per device; old snapshots roll off the front.
const maxHistory = 1024

// DeviceRecord groups a device with its received state history.
type DeviceRecord struct {
	Device model.Snapshot
	States []model.Snapshot
}

// Backend keeps coordinator state in memory. It backs tests and local
// development runs where no coordinator process exists.
type Backend struct {
	mu      sync.RWMutex
	devices map[string]*DeviceRecord
}

// New creates a new memory backend.
func New() *Backend {
	return &Backend{devices: make(map[string]*DeviceRecord)}
}

// Init initializes the backend.
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources.
func (b *Backend) Close() error {
	return nil
}

// AddDevice registers a device. Re-adding resets its history.
func (b *Backend) AddDevice(s model.Snapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.devices[s.ID] = &DeviceRecord{
		Device: s,
		States: make([]model.Snapshot, 0),
	}
	return nil
}

// RemoveDevice forgets a device and its history.
func (b *Backend) RemoveDevice(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.devices, id)
	return nil
}

// PushState appends one snapshot to the device's history. Unknown devices
// are created on first sight, matching the REST ingestion contract.
func (b *Backend) PushState(s model.Snapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	record, ok := b.devices[s.ID]
	if !ok {
		record = &DeviceRecord{Device: s}
		b.devices[s.ID] = record
	}
	record.Device = s
	record.States = append(record.States, s)
	if len(record.States) > maxHistory {
		record.States = record.States[len(record.States)-maxHistory:]
	}
	return nil
}

// Latest returns the most recent snapshot for a device.
func (b *Backend) Latest(id string) (model.Snapshot, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if record, ok := b.devices[id]; ok {
		return record.Device, true
	}
	return model.Snapshot{}, false
}

// History returns a copy of the state history for a device.
func (b *Backend) History(id string) ([]model.Snapshot, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	record, ok := b.devices[id]
	if !ok {
		return nil, fmt.Errorf("unknown device: %s", id)
	}
	out := make([]model.Snapshot, len(record.States))
	copy(out, record.States)
	return out, nil
}

// Devices returns the ids of all known devices.
func (b *Backend) Devices() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ids := make([]string, 0, len(b.devices))
	for id := range b.devices {
		ids = append(ids, id)
	}
	return ids
}

// Package fleet manages the set of simulated devices: creation, port
// assignment, restarts, and the periodic sweeps that watch them.
package fleet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/tellofleet/sim/internal/cache"
	"github.com/tellofleet/sim/internal/device"
	"github.com/tellofleet/sim/internal/dispatcher"
	"github.com/tellofleet/sim/internal/geo"
	"github.com/tellofleet/sim/internal/mission"
	"github.com/tellofleet/sim/internal/model"
	"github.com/tellofleet/sim/internal/transport"
	"github.com/tellofleet/sim/internal/worker"
)

const (
	defaultDeadSweep = 5 * time.Second
	defaultNearMiss  = 500 * time.Millisecond
)

// Config holds the fleet-level settings.
type Config struct {
	BasePort      int
	MaxDevices    int
	PublishRateHz float64

	// Sweep cadences; zero picks the defaults.
	DeadSweepInterval time.Duration
	NearMissInterval  time.Duration
}

// Dependencies holds the shared infrastructure a fleet operates on.
type Dependencies struct {
	Sim    model.SimConfig
	Pads   *mission.Layout
	Anchor *geo.Anchor

	Store *cache.SnapshotStore
	Book  *cache.AddrBook

	// Dispatcher carries announce/withdraw events to the coordinator
	// publisher. Nil runs the fleet without a coordinator.
	Dispatcher *dispatcher.Dispatcher

	Logger         *slog.Logger
	DispatchLogger dispatcher.Logger
}

// Manager owns the device registry. Insertion and removal go through the
// manager's lock; per-device state stays with each engine.
type Manager struct {
	cfg  Config
	deps Dependencies
	log  *slog.Logger

	handled cache.SafeCounter

	mu      sync.Mutex
	devices map[string]*record
	ports   map[int]string
}

type record struct {
	engine   *device.Engine
	listener *transport.Listener
	port     int
	cancel   context.CancelFunc
}

// New creates a fleet manager. No devices run until CreateDevice.
func New(cfg Config, deps Dependencies) *Manager {
	if cfg.MaxDevices <= 0 {
		cfg.MaxDevices = 10
	}
	if cfg.DeadSweepInterval <= 0 {
		cfg.DeadSweepInterval = defaultDeadSweep
	}
	if cfg.NearMissInterval <= 0 {
		cfg.NearMissInterval = defaultNearMiss
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Manager{
		cfg:     cfg,
		deps:    deps,
		log:     deps.Logger,
		devices: make(map[string]*record),
		ports:   make(map[int]string),
	}
}

////////////////////////
// LIFECYCLE OPERATIONS
////////////////////////

// CreateDevice spins up one device on the lowest free port. The id must
// be unique across the fleet. Returns the assigned command port.
func (m *Manager) CreateDevice(ctx context.Context, id string) (int, error) {
	m.mu.Lock()
	if id == "" {
		m.mu.Unlock()
		return 0, errors.New("device id must not be empty")
	}
	if _, exists := m.devices[id]; exists {
		m.mu.Unlock()
		return 0, fmt.Errorf("device %s already exists", id)
	}
	if len(m.devices) >= m.cfg.MaxDevices {
		m.mu.Unlock()
		return 0, fmt.Errorf("fleet is full: max %d devices", m.cfg.MaxDevices)
	}
	port, err := m.freePortLocked()
	if err != nil {
		m.mu.Unlock()
		return 0, err
	}
	rec, err := m.start(ctx, id, port)
	if err != nil {
		m.mu.Unlock()
		return 0, err
	}
	m.devices[id] = rec
	m.ports[port] = id
	m.mu.Unlock()

	m.announce(ctx, rec.engine)
	m.log.Info("device created", "device", id, "port", port)
	return port, nil
}

// CreateMany creates count devices named prefix_1 through prefix_count.
// Creation stops at the first failure; already created devices keep
// running.
func (m *Manager) CreateMany(ctx context.Context, prefix string, count int) ([]string, error) {
	ids := make([]string, 0, count)
	for i := 1; i <= count; i++ {
		id := fmt.Sprintf("%s_%d", prefix, i)
		if _, err := m.CreateDevice(ctx, id); err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Remove stops a device and withdraws it from the coordinator.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	rec, ok := m.devices[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("unknown device: %s", id)
	}
	delete(m.devices, id)
	delete(m.ports, rec.port)
	m.mu.Unlock()

	rec.cancel()
	<-rec.engine.Done()
	<-rec.listener.Done()

	m.deps.Store.Remove(id)
	m.deps.Book.Delete(id)
	m.withdraw(id)
	m.log.Info("device removed", "device", id)
	return nil
}

// Restart replaces a device's engine and listener, keeping its id and
// port. In-flight state is discarded; the device comes back grounded.
func (m *Manager) Restart(ctx context.Context, id string) error {
	m.mu.Lock()
	rec, ok := m.devices[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("unknown device: %s", id)
	}
	m.mu.Unlock()

	rec.cancel()
	<-rec.engine.Done()
	<-rec.listener.Done()

	fresh, err := m.start(ctx, id, rec.port)
	if err != nil {
		// The old engine is already gone; drop the registration rather
		// than keeping a zombie entry.
		m.mu.Lock()
		delete(m.devices, id)
		delete(m.ports, rec.port)
		m.mu.Unlock()
		m.deps.Store.Remove(id)
		m.withdraw(id)
		return fmt.Errorf("failed to restart %s: %w", id, err)
	}

	m.mu.Lock()
	m.devices[id] = fresh
	m.mu.Unlock()

	m.announce(ctx, fresh.engine)
	m.log.Info("device restarted", "device", id, "port", rec.port)
	return nil
}

// start builds and launches the engine and listener pair.
func (m *Manager) start(ctx context.Context, id string, port int) (*record, error) {
	eng, err := device.New(device.Config{
		Identity:       model.Identity{ID: id, Port: port},
		Sim:            m.deps.Sim,
		Pads:           m.deps.Pads,
		Anchor:         m.deps.Anchor,
		Logger:         m.log,
		DispatchLogger: m.deps.DispatchLogger,
		Publish:        m.deps.Store.Put,
		PublishRateHz:  m.cfg.PublishRateHz,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build device %s: %w", id, err)
	}

	lis, err := transport.NewListener(eng, port, m.deps.Book, &m.handled, m.log)
	if err != nil {
		return nil, err
	}

	devCtx, cancel := context.WithCancel(ctx)
	go eng.Run(devCtx)
	go lis.Run(devCtx)

	return &record{engine: eng, listener: lis, port: port, cancel: cancel}, nil
}

// freePortLocked returns the lowest unassigned port in the fleet range.
func (m *Manager) freePortLocked() (int, error) {
	for off := 0; off < m.cfg.MaxDevices; off++ {
		port := m.cfg.BasePort + off
		if _, used := m.ports[port]; !used {
			return port, nil
		}
	}
	return 0, fmt.Errorf("no free port in range %d-%d",
		m.cfg.BasePort, m.cfg.BasePort+m.cfg.MaxDevices-1)
}

func (m *Manager) announce(ctx context.Context, eng *device.Engine) {
	s, err := eng.Snapshot(ctx)
	if err != nil {
		m.log.Error("failed to snapshot new device", "device", eng.ID().ID, "error", err)
		return
	}
	m.deps.Store.Put(s)

	if m.deps.Dispatcher == nil {
		return
	}
	if _, err := m.deps.Dispatcher.Dispatch(dispatcher.Event{
		Keyword:   worker.EventAnnounce,
		Payload:   s,
		Timestamp: time.Now(),
	}); err != nil {
		m.log.Error("failed to announce device", "device", s.ID, "error", err)
	}
}

func (m *Manager) withdraw(id string) {
	if m.deps.Dispatcher == nil {
		return
	}
	if _, err := m.deps.Dispatcher.Dispatch(dispatcher.Event{
		Keyword:   worker.EventWithdraw,
		Payload:   id,
		Timestamp: time.Now(),
	}); err != nil {
		m.log.Error("failed to withdraw device", "device", id, "error", err)
	}
}

////////////////////////
// ACCESSORS
////////////////////////

// Count returns the number of registered devices.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.devices)
}

// IDs returns the ids of all registered devices, sorted.
func (m *Manager) IDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.devices))
	for id := range m.devices {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Port returns the command port assigned to a device.
func (m *Manager) Port(id string) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.devices[id]
	if !ok {
		return 0, false
	}
	return rec.port, true
}

// Device returns the engine registered under id.
func (m *Manager) Device(id string) (*device.Engine, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.devices[id]
	if !ok {
		return nil, false
	}
	return rec.engine, true
}

// CommandsHandled returns the total command datagrams served across the
// fleet since startup.
func (m *Manager) CommandsHandled() int {
	return m.handled.Value()
}

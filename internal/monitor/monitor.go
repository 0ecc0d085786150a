package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/tellofleet/sim/internal/cache"
	"github.com/tellofleet/sim/internal/channel"
	"github.com/tellofleet/sim/internal/fleet"
	"github.com/tellofleet/sim/internal/geo"
	"github.com/tellofleet/sim/internal/influx"
	"github.com/tellofleet/sim/internal/model"
	"github.com/tellofleet/sim/internal/transport"
	"github.com/tellofleet/sim/internal/worker"
)

// Dependencies holds all dependencies for the monitor service.
// Publisher, Broadcaster and Metrics are optional; a nil Metrics sender
// disables the pipeline feed. The feed never blocks the sampler: when
// the pipe is full, samples are shed.
type Dependencies struct {
	Fleet       *fleet.Manager
	Store       *cache.SnapshotStore
	Publisher   *worker.Publisher
	Broadcaster *transport.Broadcaster
	Metrics     channel.Sender[influx.Envelope]
	Bounds      model.Vec3
	SessionDir  string
	Interval    time.Duration
	Logger      *slog.Logger
}

// Report is one status sample. It is rewritten into the session status
// file every interval.
type Report struct {
	Time             time.Time `json:"time"`
	Scene            string    `json:"scene_wkt"`
	Devices          int       `json:"devices"`
	DeviceIDs        []string  `json:"device_ids"`
	Airborne         int       `json:"airborne"`
	CommandsHandled  int       `json:"commands_handled"`
	StatesPushed     int       `json:"states_pushed"`
	StatesSent       int       `json:"states_sent"`
	LastPushMs       float64   `json:"last_push_ms"`
	PublisherHealthy bool      `json:"publisher_healthy"`
	PublisherError   string    `json:"publisher_error,omitempty"`
	Goroutines       int       `json:"goroutines"`
	HeapAllocMB      float64   `json:"heap_alloc_mb"`
}

// Service manages status monitoring.
type Service struct {
	deps      Dependencies
	scene     string
	interval  time.Duration
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
}

// NewService creates a new monitor service.
func NewService(deps Dependencies) *Service {
	interval := deps.Interval
	if interval <= 0 {
		interval = time.Second
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{
		deps:     deps,
		scene:    geo.SceneFootprint(deps.Bounds).AsText(),
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running.
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Collect gathers one status sample.
func (s *Service) Collect() Report {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	airborne := 0
	for _, snap := range s.deps.Store.All() {
		if snap.IsFlying {
			airborne++
		}
	}

	r := Report{
		Time:            time.Now(),
		Scene:           s.scene,
		Devices:         s.deps.Fleet.Count(),
		DeviceIDs:       s.deps.Fleet.IDs(),
		Airborne:        airborne,
		CommandsHandled: s.deps.Fleet.CommandsHandled(),
		Goroutines:      runtime.NumGoroutine(),
		HeapAllocMB:     float64(mem.HeapAlloc) / 1024 / 1024,
	}

	if s.deps.Publisher != nil {
		r.StatesPushed = s.deps.Publisher.Pushed()
		r.LastPushMs = s.deps.Publisher.LastPushDuration().Seconds() * 1000
		if err := s.deps.Publisher.Healthy(); err != nil {
			r.PublisherError = err.Error()
		} else {
			r.PublisherHealthy = true
		}
	}
	if s.deps.Broadcaster != nil {
		r.StatesSent = s.deps.Broadcaster.Sent()
	}
	return r
}

// perf maps a report onto the performance bucket sample.
func (r Report) perf() influx.PerfStats {
	return influx.PerfStats{
		Devices:         r.Devices,
		Goroutines:      r.Goroutines,
		HeapAllocMB:     r.HeapAllocMB,
		CommandsHandled: r.CommandsHandled,
		StatesPushed:    r.StatesPushed,
		StatesSent:      r.StatesSent,
		PushDuration:    time.Duration(r.LastPushMs * float64(time.Millisecond)),
	}
}

// ship feeds the sample and the current device states into the metrics
// pipeline.
func (s *Service) ship(r Report) {
	if s.deps.Metrics == nil {
		return
	}
	dropped := 0
	if !s.deps.Metrics.TrySend(influx.Envelope{
		Bucket: influx.BucketPerformance,
		Point:  influx.PerfPoint(r.perf(), r.Time),
	}) {
		dropped++
	}
	for _, snap := range s.deps.Store.All() {
		if !s.deps.Metrics.TrySend(influx.Envelope{
			Bucket: influx.BucketTelemetry,
			Point:  influx.SnapshotPoint(snap),
		}) {
			dropped++
		}
	}
	if dropped > 0 {
		s.deps.Logger.Debug("Metrics pipeline full, dropped samples", "dropped", dropped)
	}
}

// write rewrites the status file in place.
func (s *Service) write(f *os.File, r Report) {
	body, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		body = []byte(fmt.Sprintf(`{"error": %q}`, err.Error()))
	}
	f.Truncate(0)
	f.Seek(0, 0)
	f.Write(append(body, '\n'))
}

// Start starts the status monitor goroutine.
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	stop := s.stopChan
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		logger := s.deps.Logger
		logger.Debug("Starting status monitor goroutine")

		statusFile, err := os.Create(filepath.Join(s.deps.SessionDir, "status.json"))
		if err != nil {
			logger.Error("Error creating status file", "error", err)
		}
		defer statusFile.Close()

		for {
			select {
			case <-stop:
				return
			default:
				time.Sleep(s.interval)

				r := s.Collect()
				if statusFile != nil {
					s.write(statusFile, r)
				}
				s.ship(r)
			}
		}
	}()

	return nil
}

// Stop stops the status monitor.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		s.isRunning = false
		close(s.stopChan)
	}
}

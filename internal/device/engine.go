// Package device runs one simulated drone: a single goroutine owns the
// full device record and everything else talks to it over channels.
package device

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tellofleet/sim/internal/dispatcher"
	"github.com/tellofleet/sim/internal/flight"
	"github.com/tellofleet/sim/internal/geo"
	"github.com/tellofleet/sim/internal/mission"
	"github.com/tellofleet/sim/internal/model"
	"github.com/tellofleet/sim/internal/physics"
	"github.com/tellofleet/sim/internal/protocol"
	"github.com/tellofleet/sim/internal/telemetry"
)

// ErrStopped is returned for calls made after the engine loop has exited.
var ErrStopped = errors.New("device engine stopped")

const defaultSSID = "TELLO-ED00A1"

// Config carries everything an engine needs at construction.
type Config struct {
	Identity model.Identity
	Sim      model.SimConfig

	// Pads is the fleet-wide mission pad layout; nil means no pads.
	Pads *mission.Layout

	// Anchor georeferences snapshots; nil leaves the geo block zero.
	Anchor *geo.Anchor

	Logger         *slog.Logger
	DispatchLogger dispatcher.Logger

	// Publish receives one immutable snapshot per publish tick.
	// Must not block; nil disables publication.
	Publish func(model.Snapshot)

	// PublishRateHz defaults to 10.
	PublishRateHz float64
}

// Engine simulates one device. All mutable state below the channel fields
// is owned by the Run goroutine; external access goes through
// HandleCommand and Snapshot.
type Engine struct {
	id  model.Identity
	cfg model.SimConfig
	log *slog.Logger

	machine *flight.Machine
	integ   *physics.Integrator
	gen     *telemetry.Generator
	disp    *dispatcher.Dispatcher
	anchor  *geo.Anchor

	k            model.Kinematics
	tm           model.Telemetry
	speed        float64
	rc           [4]int
	ssid         string
	padSensing   bool
	padDirection int
	lastCmd      time.Time

	near atomic.Bool

	publish      func(model.Snapshot)
	publishEvery int

	cmdCh  chan cmdRequest
	snapCh chan chan model.Snapshot
	done   chan struct{}
}

type cmdRequest struct {
	line  string
	from  string
	reply chan string
}

// New builds an engine in the powered-on state: grounded, SDK inactive,
// full battery. Run must be called before HandleCommand or Snapshot.
func New(cfg Config) (*Engine, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.PublishRateHz <= 0 {
		cfg.PublishRateHz = 10
	}

	e := &Engine{
		id:      cfg.Identity,
		cfg:     cfg.Sim,
		log:     cfg.Logger.With("device", cfg.Identity.ID),
		machine: flight.NewMachine(),
		integ:   physics.NewIntegrator(cfg.Sim),
		gen:     telemetry.NewGenerator(cfg.Sim, cfg.Pads),
		anchor:  cfg.Anchor,
		speed:   cfg.Sim.DefaultSpeed,
		ssid:    defaultSSID,
		tm: model.Telemetry{
			Battery:     100,
			Temperature: 25,
			ToF:         30,
			PadID:       -1,
			PadX:        -100,
			PadY:        -100,
			PadZ:        -100,
		},
		publish:      cfg.Publish,
		publishEvery: publishCadence(cfg.Sim.TickRate, cfg.PublishRateHz),
		cmdCh:        make(chan cmdRequest),
		snapCh:       make(chan chan model.Snapshot),
		done:         make(chan struct{}),
	}

	disp, err := dispatcher.New(dispatchLogger(cfg.DispatchLogger, e.log))
	if err != nil {
		return nil, err
	}
	e.disp = disp
	e.registerHandlers()
	return e, nil
}

func publishCadence(tickRate, publishRate float64) int {
	if tickRate <= 0 {
		tickRate = 30
	}
	every := int(tickRate/publishRate + 0.5)
	if every < 1 {
		every = 1
	}
	return every
}

// ID returns the device identity.
func (e *Engine) ID() model.Identity { return e.id }

// Done is closed when the engine loop has exited.
func (e *Engine) Done() <-chan struct{} { return e.done }

// SetNearMiss flags or clears the separation warning. Safe to call from
// the fleet sweep goroutine; the flag surfaces in subsequent snapshots.
func (e *Engine) SetNearMiss(v bool) { e.near.Store(v) }

////////////////////////
// ACTOR LOOP
////////////////////////

// Run drives the simulation until ctx is canceled. It owns the device
// record; there must be exactly one Run per engine.
func (e *Engine) Run(ctx context.Context) {
	defer close(e.done)

	dt := 1.0 / e.cfg.TickRate
	ticker := time.NewTicker(e.cfg.TickDuration())
	defer ticker.Stop()

	e.log.Info("device up", "port", e.id.Port, "tick_rate", e.cfg.TickRate)

	ticks := 0
	for {
		select {
		case <-ctx.Done():
			e.log.Info("device down")
			return
		case <-ticker.C:
			e.tick(dt)
			ticks++
			if ticks >= e.publishEvery {
				ticks = 0
				if e.publish != nil {
					e.publish(e.snapshot())
				}
			}
		case req := <-e.cmdCh:
			req.reply <- e.handleLine(req.line, req.from)
		case reply := <-e.snapCh:
			reply <- e.snapshot()
		}
	}
}

// tick advances physics and telemetry by one fixed step.
func (e *Engine) tick(dt float64) {
	switch e.integ.Step(&e.k, dt).(type) {
	case *physics.TakeoffRise:
		e.machine.FinishTakeoff()
		e.log.Debug("takeoff complete", "z", e.k.Position.Z)
	case *physics.LandingDescent:
		e.machine.FinishLanding()
		e.log.Debug("landing complete")
	}

	critical := e.gen.Update(&e.k, &e.tm, e.machine.Mode(), e.padSensing, dt)
	if critical && e.machine.Mode() != model.ModeLanding {
		e.machine.ForceLand()
		e.integ.Begin(physics.NewLandingDescent(e.k.Position.Z))
		e.log.Warn("battery critical, forcing landing", "battery", e.tm.Battery)
	}
}

////////////////////////
// COMMAND PATH
////////////////////////

// HandleCommand submits one protocol line and waits for the wire
// response. from is the sender address, used for logging only.
func (e *Engine) HandleCommand(ctx context.Context, line, from string) (string, error) {
	req := cmdRequest{line: line, from: from, reply: make(chan string, 1)}
	select {
	case e.cmdCh <- req:
	case <-e.done:
		return "", ErrStopped
	case <-ctx.Done():
		return "", ctx.Err()
	}
	select {
	case resp := <-req.reply:
		return resp, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// handleLine parses and dispatches one command line. Every failure,
// syntactic or state, collapses to "error" on the wire; the distinction
// only reaches the log.
func (e *Engine) handleLine(line, from string) string {
	cmd, err := protocol.Parse(strings.TrimSpace(line))
	if err != nil {
		e.log.Debug("rejected command", "line", line, "from", from, "error", err)
		return "error"
	}

	e.lastCmd = time.Now()
	result, err := e.disp.Dispatch(dispatcher.Event{
		Keyword:   cmd.Keyword(),
		Cmd:       cmd,
		Timestamp: e.lastCmd,
	})
	if err != nil {
		e.log.Debug("refused command", "keyword", cmd.Keyword(), "from", from, "error", err)
		return "error"
	}
	if s, ok := result.(string); ok {
		return s
	}
	return "ok"
}

////////////////////////
// SNAPSHOTS
////////////////////////

// Snapshot returns a consistent copy of the device state.
func (e *Engine) Snapshot(ctx context.Context) (model.Snapshot, error) {
	reply := make(chan model.Snapshot, 1)
	select {
	case e.snapCh <- reply:
	case <-e.done:
		return model.Snapshot{}, ErrStopped
	case <-ctx.Done():
		return model.Snapshot{}, ctx.Err()
	}
	select {
	case s := <-reply:
		return s, nil
	case <-ctx.Done():
		return model.Snapshot{}, ctx.Err()
	}
}

func (e *Engine) snapshot() model.Snapshot {
	s := model.Snapshot{
		Identity:   e.id,
		Mode:       e.machine.Mode(),
		SDKActive:  e.machine.SDKActive(),
		IsFlying:   e.machine.Mode().Airborne(),
		Connected:  true,
		Kinematics: e.k,
		Telemetry:  e.tm,
		Speed:      e.speed,
		RC:         e.rc,
		LastCmd:    e.lastCmd,
		Captured:   time.Now(),
	}
	s.Telemetry.Near = e.near.Load()
	if e.anchor != nil {
		s.Geo = e.anchor.Geodetic(e.k.Position)
	}
	return s
}

// slogAdapter lets the dispatcher log through the engine's slog logger
// when no dedicated dispatcher logger is configured.
type slogAdapter struct{ log *slog.Logger }

func (a slogAdapter) Debug(msg string, kv ...any) { a.log.Debug(msg, kv...) }
func (a slogAdapter) Info(msg string, kv ...any)  { a.log.Info(msg, kv...) }
func (a slogAdapter) Error(msg string, kv ...any) { a.log.Error(msg, kv...) }

func dispatchLogger(l dispatcher.Logger, fallback *slog.Logger) dispatcher.Logger {
	if l != nil {
		return l
	}
	return slogAdapter{log: fallback}
}

package device

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tellofleet/sim/internal/model"
	"github.com/tellofleet/sim/internal/physics"
)

const dt = 1.0 / 30

func testSimConfig() model.SimConfig {
	return model.SimConfig{
		TickRate:         30,
		Gravity:          9.81,
		Drag:             0.1,
		MaxAcceleration:  500,
		BatteryDrainRate: 0.1,
		DefaultSpeed:     100,
		MinSeparation:    50,
		Bounds:           model.Vec3{X: 1000, Y: 1000, Z: 500},
	}
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(Config{
		Identity: model.Identity{ID: "drone_1", Port: 8889},
		Sim:      testSimConfig(),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	return e
}

// fly puts the engine into level flight without running the clock.
func fly(t *testing.T, e *Engine) {
	t.Helper()
	e.machine.EnterSDK()
	require.NoError(t, e.machine.RequestTakeoff())
	e.machine.FinishTakeoff()
	e.k.Position.Z = physics.HoverAltitude
}

// runUntil ticks the engine until cond holds.
func runUntil(t *testing.T, e *Engine, maxTicks int, cond func() bool) int {
	t.Helper()
	for i := 1; i <= maxTicks; i++ {
		e.tick(dt)
		if cond() {
			return i
		}
	}
	t.Fatalf("condition not reached in %d ticks", maxTicks)
	return 0
}

func TestTakeoffLandCycle(t *testing.T) {
	e := newTestEngine(t)

	assert.Equal(t, "ok", e.handleLine("command", "test"))
	assert.Equal(t, "ok", e.handleLine("takeoff", "test"))
	assert.Equal(t, model.ModeTakingOff, e.machine.Mode())

	runUntil(t, e, 90, func() bool { return e.machine.Mode() == model.ModeFlying })
	assert.InDelta(t, physics.HoverAltitude, e.k.Position.Z, 1)

	assert.Equal(t, "ok", e.handleLine("land", "test"))
	assert.Equal(t, model.ModeLanding, e.machine.Mode())

	runUntil(t, e, 150, func() bool { return e.machine.Mode() == model.ModeGrounded })
	assert.InDelta(t, 0, e.k.Position.Z, 1e-9)
	assert.Zero(t, e.k.Velocity.Length())
}

func TestTakeoffWhileAirborne(t *testing.T) {
	e := newTestEngine(t)
	fly(t, e)

	before := e.k.Position.Z
	assert.Equal(t, "error", e.handleLine("takeoff", "test"))
	assert.Equal(t, model.ModeFlying, e.machine.Mode())
	assert.Equal(t, before, e.k.Position.Z)
}

func TestCriticalBatteryForcesLanding(t *testing.T) {
	e := newTestEngine(t)
	fly(t, e)
	e.tm.Battery = 4

	e.tick(dt)
	assert.Equal(t, model.ModeLanding, e.machine.Mode())
	assert.True(t, e.integ.Busy())

	runUntil(t, e, 150, func() bool { return e.machine.Mode() == model.ModeGrounded })
	assert.InDelta(t, 0, e.k.Position.Z, 1e-9)
}

func TestCriticalBatteryIgnoredOnGround(t *testing.T) {
	e := newTestEngine(t)
	e.tm.Battery = 4

	e.tick(dt)
	assert.Equal(t, model.ModeGrounded, e.machine.Mode())
	assert.False(t, e.integ.Busy())
}

func TestSnapshotReflectsState(t *testing.T) {
	e := newTestEngine(t)
	fly(t, e)
	e.tick(dt)

	s := e.snapshot()
	assert.Equal(t, "drone_1", s.ID)
	assert.Equal(t, 8889, s.Port)
	assert.Equal(t, model.ModeFlying, s.Mode)
	assert.True(t, s.IsFlying)
	assert.True(t, s.SDKActive)
	assert.InDelta(t, physics.HoverAltitude, s.Position.Z, 1)
	assert.False(t, s.Captured.IsZero())
}

func TestSnapshotCarriesNearMissFlag(t *testing.T) {
	e := newTestEngine(t)

	assert.False(t, e.snapshot().Near)
	e.SetNearMiss(true)
	assert.True(t, e.snapshot().Near)
	e.SetNearMiss(false)
	assert.False(t, e.snapshot().Near)
}

func TestRunServesCommandsAndSnapshots(t *testing.T) {
	e := newTestEngine(t)

	ctx, cancel := context.WithCancel(context.Background())
	go e.Run(ctx)

	cctx, ccancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer ccancel()

	resp, err := e.HandleCommand(cctx, "command", "127.0.0.1:5000")
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)

	s, err := e.Snapshot(cctx)
	require.NoError(t, err)
	assert.True(t, s.SDKActive)
	assert.Equal(t, model.ModeGrounded, s.Mode)

	cancel()
	<-e.Done()

	_, err = e.HandleCommand(context.Background(), "command", "127.0.0.1:5000")
	assert.ErrorIs(t, err, ErrStopped)
	_, err = e.Snapshot(context.Background())
	assert.ErrorIs(t, err, ErrStopped)
}

func TestRunPublishesSnapshots(t *testing.T) {
	published := make(chan model.Snapshot, 64)
	e, err := New(Config{
		Identity:      model.Identity{ID: "drone_2", Port: 8890},
		Sim:           testSimConfig(),
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		Publish:       func(s model.Snapshot) { published <- s },
		PublishRateHz: 10,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	select {
	case s := <-published:
		assert.Equal(t, "drone_2", s.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot published")
	}
}

func TestPublishCadence(t *testing.T) {
	assert.Equal(t, 3, publishCadence(30, 10))
	assert.Equal(t, 1, publishCadence(30, 30))
	assert.Equal(t, 1, publishCadence(30, 100))
	assert.Equal(t, 3, publishCadence(0, 10))
}

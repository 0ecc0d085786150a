package telemetry

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tellofleet/sim/internal/mission"
	"github.com/tellofleet/sim/internal/model"
)

const dt = 1.0 / 30

func testConfig() model.SimConfig {
	return model.SimConfig{
		TickRate:         30,
		Gravity:          9.81,
		Drag:             0.1,
		MaxAcceleration:  500,
		BatteryDrainRate: 60, // fast drain keeps the tests short
		Bounds:           model.Vec3{X: 1000, Y: 1000, Z: 500},
	}
}

func testPads() []model.Pad {
	return mission.ReferenceLayout()
}

func freshTelemetry() model.Telemetry {
	return model.Telemetry{Battery: 100, Temperature: 25, PadID: -1}
}

func TestBatteryDrainsFasterWhileFlying(t *testing.T) {
	grounded := NewGenerator(testConfig(), nil)
	flying := NewGenerator(testConfig(), nil)

	var kg, kf model.Kinematics
	kf.Position.Z = 100
	tg, tf := freshTelemetry(), freshTelemetry()

	prev := tg.Battery
	for i := 0; i < 100; i++ {
		grounded.Update(&kg, &tg, model.ModeGrounded, false, dt)
		flying.Update(&kf, &tf, model.ModeFlying, false, dt)

		require.LessOrEqual(t, tg.Battery, prev, "battery never recovers")
		prev = tg.Battery
	}

	assert.Less(t, tg.Battery, 100.0)
	assert.Less(t, tf.Battery, tg.Battery, "airborne drain outpaces grounded drain")
}

func TestBatteryCriticalForcesFlag(t *testing.T) {
	g := NewGenerator(testConfig(), nil)
	k := model.Kinematics{Position: model.Vec3{Z: 100}}

	tm := freshTelemetry()
	tm.Battery = 4
	assert.True(t, g.Update(&k, &tm, model.ModeFlying, false, dt))

	tm.Battery = 4
	assert.False(t, g.Update(&k, &tm, model.ModeGrounded, false, dt), "critical only matters airborne")

	tm.Battery = 0.001
	for i := 0; i < 10; i++ {
		g.Update(&k, &tm, model.ModeFlying, false, dt)
		require.GreaterOrEqual(t, tm.Battery, 0.0)
	}
	assert.Zero(t, tm.Battery)
}

func TestTemperatureStaysInBand(t *testing.T) {
	g := NewGenerator(testConfig(), nil)
	k := model.Kinematics{Position: model.Vec3{Z: 100}}
	tm := freshTelemetry()

	for i := 0; i < 500; i++ {
		g.Update(&k, &tm, model.ModeFlying, false, dt)
		require.GreaterOrEqual(t, tm.Temperature, 25.0)
		require.LessOrEqual(t, tm.Temperature, 50.0)
	}
	assert.Greater(t, tm.Temperature, 25.0, "airborne board heats up")
}

func TestFlightTimeAccumulatesOnlyAirborne(t *testing.T) {
	g := NewGenerator(testConfig(), nil)
	var k model.Kinematics
	tm := freshTelemetry()

	for i := 0; i < 60; i++ {
		g.Update(&k, &tm, model.ModeGrounded, false, dt)
	}
	assert.Zero(t, tm.FlightTime)

	for i := 0; i < 90; i++ {
		g.Update(&k, &tm, model.ModeFlying, false, dt)
	}
	assert.InDelta(t, 3, tm.FlightTime, 1)

	mark := tm.FlightTime
	for i := 0; i < 60; i++ {
		g.Update(&k, &tm, model.ModeGrounded, false, dt)
	}
	assert.Equal(t, mark, tm.FlightTime)
}

func TestBarometerTracksAltitude(t *testing.T) {
	cfg := testConfig()
	cfg.GroundLevel = 50
	g := NewGenerator(cfg, nil)
	k := model.Kinematics{Position: model.Vec3{Z: 100}}
	tm := freshTelemetry()

	g.Update(&k, &tm, model.ModeFlying, false, dt)
	assert.InDelta(t, 150, tm.Barometer, 5)

	k.Position.Z = 0
	g.Update(&k, &tm, model.ModeGrounded, false, dt)
	assert.GreaterOrEqual(t, tm.Barometer, 0.0)
}

func TestRangefinder(t *testing.T) {
	g := NewGenerator(testConfig(), nil)
	var k model.Kinematics
	tm := freshTelemetry()

	g.Update(&k, &tm, model.ModeGrounded, false, dt)
	assert.GreaterOrEqual(t, tm.ToF, 30, "rangefinder bottoms out at 30cm")
	assert.LessOrEqual(t, tm.ToF, 33)

	k.Position.Z = 200
	g.Update(&k, &tm, model.ModeFlying, false, dt)
	assert.InDelta(t, 200, tm.ToF, 3)
}

func TestPadDetection(t *testing.T) {
	tests := []struct {
		name    string
		pads    []model.Pad
		pos     model.Vec3
		sensing bool
		wantID  int
	}{
		{"over pad while sensing", testPads(), model.Vec3{X: 100, Y: 100, Z: 100}, true, 1},
		{"closest pad wins", testPads(), model.Vec3{Y: 150, Z: 100}, true, 5},
		{"sensing off", testPads(), model.Vec3{X: 100, Y: 100, Z: 100}, false, -1},
		{"too low", testPads(), model.Vec3{X: 100, Y: 100, Z: 10}, true, -1},
		{"too high", testPads(), model.Vec3{X: 100, Y: 100, Z: 350}, true, -1},
		{"out of range", testPads(), model.Vec3{X: 400, Y: -400, Z: 100}, true, -1},
		{"no layout", nil, model.Vec3{X: 100, Y: 100, Z: 100}, true, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGenerator(testConfig(), mission.NewLayout(tt.pads))
			k := model.Kinematics{Position: tt.pos}
			tm := freshTelemetry()

			g.Update(&k, &tm, model.ModeFlying, tt.sensing, dt)

			assert.Equal(t, tt.wantID, tm.PadID)
			if tt.wantID < 0 {
				assert.Equal(t, -100, tm.PadX)
				assert.Equal(t, -100, tm.PadY)
				assert.Equal(t, -100, tm.PadZ)
				return
			}
			var pad model.Pad
			for _, p := range tt.pads {
				if p.ID == tt.wantID {
					pad = p
				}
			}
			assert.InDelta(t, tt.pos.X-pad.Position.X, float64(tm.PadX), 5, "relative position plus sensor noise")
			assert.InDelta(t, tt.pos.Y-pad.Position.Y, float64(tm.PadY), 5)
			assert.InDelta(t, tt.pos.Z-pad.Position.Z, float64(tm.PadZ), 3)
		})
	}
}

func TestStatePacket(t *testing.T) {
	snap := model.Snapshot{
		Kinematics: model.Kinematics{
			Position:     model.Vec3{X: 10, Y: 20, Z: 100},
			Rotation:     model.Vec3{X: 1.7, Y: -2.3, Z: 90},
			Velocity:     model.Vec3{X: 12, Y: -7, Z: 0},
			Acceleration: model.Vec3{X: 3, Y: 4, Z: -981},
		},
		Telemetry: model.Telemetry{
			Battery:     87.6,
			Temperature: 31.2,
			Barometer:   100.25,
			FlightTime:  42,
			ToF:         101,
			PadID:       -1,
		},
	}

	got := StatePacket(snap)
	want := "pitch:1;roll:-2;yaw:90;vgx:12;vgy:-7;vgz:0;templ:31;temph:33;" +
		"tof:101;h:100;bat:87;baro:100.25;time:42;agx:3;agy:4;agz:-981;"
	assert.Equal(t, want, got)
	assert.True(t, strings.HasSuffix(got, ";"))

	snap.Telemetry.PadID = 3
	snap.Telemetry.PadX = 5
	snap.Telemetry.PadY = -2
	snap.Telemetry.PadZ = 98
	assert.Equal(t, want+"mid:3;x:5;y:-2;z:98;", StatePacket(snap))
}

package physics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tellofleet/sim/internal/model"
)

const dt = 1.0 / 30

func testConfig() model.SimConfig {
	return model.SimConfig{
		TickRate:        30,
		Gravity:         9.81,
		Drag:            0.1,
		MaxAcceleration: 500,
		DefaultSpeed:    100,
		Bounds:          model.Vec3{X: 1000, Y: 1000, Z: 500},
	}
}

func runUntil(t *testing.T, in *Integrator, k *model.Kinematics, maxTicks int) (Maneuver, int) {
	t.Helper()
	for i := 1; i <= maxTicks; i++ {
		if fin := in.Step(k, dt); fin != nil {
			return fin, i
		}
	}
	t.Fatalf("maneuver did not finish within %d ticks", maxTicks)
	return nil, 0
}

func TestTakeoffRise(t *testing.T) {
	in := NewIntegrator(testConfig())
	var k model.Kinematics

	in.Begin(NewTakeoffRise(k.Position.Z))
	require.True(t, in.Busy())

	var (
		fin   Maneuver
		ticks int
		lastZ float64
	)
	for i := 1; i <= 90; i++ {
		fin = in.Step(&k, dt)
		require.GreaterOrEqual(t, k.Position.Z, lastZ, "climb must not descend")
		lastZ = k.Position.Z
		if fin != nil {
			ticks = i
			break
		}
	}
	require.IsType(t, &TakeoffRise{}, fin)
	assert.Equal(t, float64(HoverAltitude), k.Position.Z)
	assert.Zero(t, k.Velocity.Z)
	assert.InDelta(t, 2.0, float64(ticks)*dt, 0.1)
	assert.False(t, in.Busy())
}

func TestLandingDescent(t *testing.T) {
	in := NewIntegrator(testConfig())
	k := model.Kinematics{
		Position: model.Vec3{Z: 100},
		Velocity: model.Vec3{X: 50},
	}

	in.Begin(NewLandingDescent(k.Position.Z))
	fin, ticks := runUntil(t, in, &k, 200)

	require.IsType(t, &LandingDescent{}, fin)
	assert.Zero(t, k.Position.Z)
	assert.Equal(t, model.Vec3{}, k.Velocity, "touchdown kills all motion")
	assert.Greater(t, k.Position.X, 0.0, "horizontal residue glides during descent")
	assert.InDelta(t, 100.0/30, float64(ticks)*dt, 0.1)
}

func TestLinearMoveReachesTarget(t *testing.T) {
	in := NewIntegrator(testConfig())
	k := model.Kinematics{Position: model.Vec3{Z: 100}}
	target := model.Vec3{X: 100, Z: 100}

	in.Begin(NewLinearMove(target, 100))
	fin, ticks := runUntil(t, in, &k, 300)

	require.IsType(t, &LinearMove{}, fin)
	assert.Equal(t, target, k.Position)
	assert.Equal(t, model.Vec3{}, k.Velocity)
	elapsed := float64(ticks) * dt
	assert.Greater(t, elapsed, 0.5, "a 100cm move is not instant")
	assert.Less(t, elapsed, 3.0)
}

func TestLinearMoveAccelerationClamp(t *testing.T) {
	cfg := testConfig()
	in := NewIntegrator(cfg)
	k := model.Kinematics{Position: model.Vec3{Z: 100}}

	in.Begin(NewLinearMove(model.Vec3{X: 400, Z: 100}, 100))
	in.Step(&k, dt)

	assert.LessOrEqual(t, k.Velocity.Length(), cfg.MaxAcceleration*dt+1e-9)
	assert.Positive(t, k.Velocity.X)
}

func TestCurveMovePassesThroughVia(t *testing.T) {
	in := NewIntegrator(testConfig())
	start := model.Vec3{Z: 100}
	via := model.Vec3{X: 100, Y: 100, Z: 100}
	end := model.Vec3{X: 200, Z: 100}
	k := model.Kinematics{Position: start}

	curve := NewCurveMove(start, via, end, 60)
	midpoint := curve.at(0.5)
	assert.InDelta(t, via.X, midpoint.X, 1e-9)
	assert.InDelta(t, via.Y, midpoint.Y, 1e-9)
	assert.InDelta(t, via.Z, midpoint.Z, 1e-9)

	in.Begin(curve)
	closest := via.Distance(start)
	var fin Maneuver
	for i := 0; i < 600 && fin == nil; i++ {
		fin = in.Step(&k, dt)
		if d := via.Distance(k.Position); d < closest {
			closest = d
		}
	}
	require.IsType(t, &CurveMove{}, fin)
	assert.Less(t, closest, 5.0, "arc passes close to the via point")
	assert.Equal(t, end, k.Position)
	assert.Equal(t, model.Vec3{}, k.Velocity)
}

func TestRotateWrapsYaw(t *testing.T) {
	in := NewIntegrator(testConfig())
	k := model.Kinematics{
		Position: model.Vec3{Z: 100},
		Rotation: model.Vec3{Z: 350},
	}

	in.Begin(NewRotate(k.Rotation.Z, 20))
	fin, _ := runUntil(t, in, &k, 60)

	require.IsType(t, &Rotate{}, fin)
	assert.InDelta(t, 10, k.Rotation.Z, 1e-9)
	assert.Equal(t, 100.0, k.Position.Z, "altitude holds during rotation")

	in.Begin(NewRotate(k.Rotation.Z, -20))
	runUntil(t, in, &k, 60)
	assert.InDelta(t, 350, k.Rotation.Z, 1e-9)
}

func TestFlipRestoresAttitude(t *testing.T) {
	in := NewIntegrator(testConfig())
	k := model.Kinematics{Position: model.Vec3{Z: 100}}

	in.Begin(NewFlip('l', k))
	for i := 0; i < 15; i++ {
		require.Nil(t, in.Step(&k, dt))
	}
	assert.Positive(t, k.Rotation.Y, "left flip swings the roll axis")
	assert.Greater(t, k.Position.Z, 100.0, "flip pops the altitude")

	fin, _ := runUntil(t, in, &k, 60)
	require.IsType(t, &Flip{}, fin)
	assert.Equal(t, model.Vec3{}, k.Rotation)
	assert.Equal(t, 100.0, k.Position.Z)
}

func TestFlipDirectionAxes(t *testing.T) {
	tests := []struct {
		direction byte
		check     func(t *testing.T, k model.Kinematics)
	}{
		{'l', func(t *testing.T, k model.Kinematics) { assert.Positive(t, k.Rotation.Y) }},
		{'r', func(t *testing.T, k model.Kinematics) { assert.Negative(t, k.Rotation.Y) }},
		{'f', func(t *testing.T, k model.Kinematics) { assert.Positive(t, k.Rotation.X) }},
		{'b', func(t *testing.T, k model.Kinematics) { assert.Negative(t, k.Rotation.X) }},
	}
	for _, tt := range tests {
		t.Run(string(tt.direction), func(t *testing.T) {
			in := NewIntegrator(testConfig())
			k := model.Kinematics{Position: model.Vec3{Z: 100}}
			in.Begin(NewFlip(tt.direction, k))
			for i := 0; i < 15; i++ {
				in.Step(&k, dt)
			}
			tt.check(t, k)
		})
	}
}

func TestHoverDragSettles(t *testing.T) {
	in := NewIntegrator(testConfig())
	k := model.Kinematics{
		Position: model.Vec3{Z: 100},
		Velocity: model.Vec3{X: 100},
	}

	for i := 0; i < 150; i++ {
		require.Nil(t, in.Step(&k, dt))
	}
	assert.Less(t, k.Velocity.X, 100.0)
	assert.Greater(t, k.Position.X, 0.0)
	assert.False(t, in.Busy())
}

func TestWallClampEndsMove(t *testing.T) {
	in := NewIntegrator(testConfig())
	k := model.Kinematics{Position: model.Vec3{X: 450, Z: 100}}

	// Target past the wall, installed without admission checks.
	in.Begin(NewLinearMove(model.Vec3{X: 600, Z: 100}, 100))
	fin, _ := runUntil(t, in, &k, 300)

	require.IsType(t, &LinearMove{}, fin)
	assert.Equal(t, 500.0, k.Position.X)
	assert.Equal(t, model.Vec3{}, k.Velocity)
}

func TestHoverDriftClampsAtWall(t *testing.T) {
	in := NewIntegrator(testConfig())
	k := model.Kinematics{
		Position: model.Vec3{X: 495, Z: 100},
		Velocity: model.Vec3{X: 200},
	}

	for i := 0; i < 30; i++ {
		require.Nil(t, in.Step(&k, dt), "hover never finishes")
	}
	assert.Equal(t, 500.0, k.Position.X)
	assert.Zero(t, k.Velocity.X)
}

func TestAdmitTarget(t *testing.T) {
	in := NewIntegrator(testConfig())

	got, err := in.AdmitTarget(model.Vec3{X: 100, Y: -200, Z: 50})
	require.NoError(t, err)
	assert.Equal(t, model.Vec3{X: 100, Y: -200, Z: 50}, got)

	// Descend past the floor settles at ground level.
	got, err = in.AdmitTarget(model.Vec3{X: 100, Z: -80})
	require.NoError(t, err)
	assert.Zero(t, got.Z)

	_, err = in.AdmitTarget(model.Vec3{X: 600})
	assert.ErrorIs(t, err, ErrOutOfBounds)

	_, err = in.AdmitTarget(model.Vec3{Z: 600})
	assert.ErrorIs(t, err, ErrOutOfBounds)
}

func TestHeading(t *testing.T) {
	tests := []struct {
		yaw  float64
		x, y float64
	}{
		{0, 0, 1},
		{90, 1, 0},
		{180, 0, -1},
		{270, -1, 0},
	}
	for _, tt := range tests {
		h := Heading(tt.yaw)
		assert.InDelta(t, tt.x, h.X, 1e-9, "yaw %v", tt.yaw)
		assert.InDelta(t, tt.y, h.Y, 1e-9, "yaw %v", tt.yaw)
	}
}

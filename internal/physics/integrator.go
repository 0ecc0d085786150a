// Package physics advances device kinematics on a fixed simulation tick.
//
// Movement is expressed as maneuvers: exactly one runs per device at any
// time, and the integrator owns sequencing, scene bounds and the idle drag
// pass. Distances are centimetres, angles degrees, time seconds.
package physics

import (
	"errors"
	"math"

	"github.com/tellofleet/sim/internal/model"
	"github.com/tellofleet/sim/internal/util"
)

// ErrOutOfBounds rejects movement targets that would leave the scene.
var ErrOutOfBounds = errors.New("target outside scene bounds")

// Integrator advances one device's kinematics. It is owned by the device
// engine goroutine and is not safe for concurrent use.
type Integrator struct {
	cfg    model.SimConfig
	active Maneuver
}

func NewIntegrator(cfg model.SimConfig) *Integrator {
	return &Integrator{cfg: cfg, active: Hover{}}
}

// Begin replaces the active maneuver. There is no queue.
func (in *Integrator) Begin(m Maneuver) {
	in.active = m
}

// Cancel drops the active maneuver and returns to hover.
func (in *Integrator) Cancel() {
	in.active = Hover{}
}

// Busy reports whether a maneuver other than hover is running.
func (in *Integrator) Busy() bool {
	_, idle := in.active.(Hover)
	return !idle
}

// Step advances the active maneuver by dt seconds and applies the scene
// bounds. It returns the maneuver that finished on this tick, or nil.
func (in *Integrator) Step(k *model.Kinematics, dt float64) Maneuver {
	done := in.active.step(k, &in.cfg, dt)

	// Hitting a wall ends a positional maneuver early. Targets are bounds
	// checked at admission, so this only fires on drift.
	if in.clampToScene(k) && !done {
		switch in.active.(type) {
		case *LinearMove, *CurveMove:
			k.Velocity = model.Vec3{}
			done = true
		}
	}

	if !done {
		return nil
	}
	finished := in.active
	in.active = Hover{}
	return finished
}

// AdmitTarget validates a movement destination against the scene bounds.
// Descend targets settle at the floor rather than rejecting, matching the
// reference hardware.
func (in *Integrator) AdmitTarget(target model.Vec3) (model.Vec3, error) {
	if target.Z < 0 {
		target.Z = 0
	}
	if !in.cfg.InBounds(target) {
		return model.Vec3{}, ErrOutOfBounds
	}
	return target, nil
}

func (in *Integrator) clampToScene(k *model.Kinematics) bool {
	var clamped bool
	halfX, halfY := in.cfg.Bounds.X/2, in.cfg.Bounds.Y/2
	if k.Position.X < -halfX || k.Position.X > halfX {
		k.Position.X = util.Clamp(k.Position.X, -halfX, halfX)
		k.Velocity.X = 0
		clamped = true
	}
	if k.Position.Y < -halfY || k.Position.Y > halfY {
		k.Position.Y = util.Clamp(k.Position.Y, -halfY, halfY)
		k.Velocity.Y = 0
		clamped = true
	}
	if k.Position.Z > in.cfg.Bounds.Z {
		k.Position.Z = in.cfg.Bounds.Z
		k.Velocity.Z = 0
		clamped = true
	}
	if k.Position.Z < 0 {
		k.Position.Z = 0
		k.Velocity.Z = 0
	}
	return clamped
}

// Heading is the unit forward vector for a yaw angle in degrees, where 0
// points along +Y and 90 along +X.
func Heading(yawDegrees float64) model.Vec3 {
	rad := yawDegrees * math.Pi / 180
	return model.Vec3{X: math.Sin(rad), Y: math.Cos(rad)}
}

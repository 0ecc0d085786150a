package physics

import (
	"math"

	"github.com/tellofleet/sim/internal/model"
	"github.com/tellofleet/sim/internal/util"
)

// Motion profile constants matching the RMTT hardware envelope.
const (
	HoverAltitude = 100 // cm, altitude reached by a takeoff

	takeoffRate  = 50  // cm/s
	landingRate  = 30  // cm/s
	yawRate      = 90  // deg/s
	flipDuration = 1.0 // s
	flipBump     = 20  // cm of lift at the apex of a flip
	minDuration  = 0.1 // s, floor for every timed profile
	snapDistance = 1.0 // cm, close enough to finish a move
)

// A Maneuver is a single motion primitive. The integrator runs exactly one
// at a time; a new movement command replaces the active one mid-motion.
type Maneuver interface {
	// step advances the maneuver by dt seconds, mutating k in place, and
	// reports whether the maneuver finished on this tick.
	step(k *model.Kinematics, cfg *model.SimConfig, dt float64) bool
}

// Hover is the idle maneuver: residual velocity decays under drag while the
// craft station-keeps. It never finishes.
type Hover struct{}

func (Hover) step(k *model.Kinematics, cfg *model.SimConfig, dt float64) bool {
	applyDrag(&k.Velocity, cfg.Drag, dt)
	k.Position = k.Position.Add(k.Velocity.Scale(dt))
	return false
}

// LinearMove steers toward an absolute target position, capping speed at
// the commanded value and at the braking envelope so the craft can still
// stop within the remaining distance.
type LinearMove struct {
	Target model.Vec3
	Speed  float64 // cm/s
}

func NewLinearMove(target model.Vec3, speed float64) *LinearMove {
	return &LinearMove{Target: target, Speed: speed}
}

func (m *LinearMove) step(k *model.Kinematics, cfg *model.SimConfig, dt float64) bool {
	delta := m.Target.Sub(k.Position)
	dist := delta.Length()
	if dist <= snapDistance {
		return m.arrive(k)
	}

	braking := math.Sqrt(2 * cfg.MaxAcceleration * dist)
	want := delta.Normalized().Scale(math.Min(m.Speed, braking))

	dv := want.Sub(k.Velocity)
	if limit := cfg.MaxAcceleration * dt; dv.Length() > limit {
		dv = dv.Normalized().Scale(limit)
	}
	k.Velocity = k.Velocity.Add(dv)
	applyDrag(&k.Velocity, cfg.Drag, dt)

	// Would overshoot this tick: arrive instead.
	if k.Velocity.Length()*dt >= dist {
		return m.arrive(k)
	}
	k.Position = k.Position.Add(k.Velocity.Scale(dt))
	return false
}

func (m *LinearMove) arrive(k *model.Kinematics) bool {
	k.Position = m.Target
	k.Velocity = model.Vec3{}
	return true
}

// CurveMove flies a quadratic Bezier arc from the start, through the via
// point at the arc's midpoint, to the end. The parameter is eased so the
// whole arc takes length/speed seconds.
type CurveMove struct {
	start, control, end model.Vec3
	duration            float64
	elapsed             float64
}

func NewCurveMove(start, via, end model.Vec3, speed float64) *CurveMove {
	mid := start.Add(end).Scale(0.5)
	m := &CurveMove{
		start:   start,
		control: via.Scale(2).Sub(mid),
		end:     end,
	}
	m.duration = math.Max(m.arcLength()/speed, minDuration)
	return m
}

// at evaluates the curve at parameter t in [0,1].
func (m *CurveMove) at(t float64) model.Vec3 {
	u := 1 - t
	p := m.start.Scale(u * u)
	p = p.Add(m.control.Scale(2 * u * t))
	return p.Add(m.end.Scale(t * t))
}

// arcLength estimates the curve length by chord summation.
func (m *CurveMove) arcLength() float64 {
	const segments = 32
	var length float64
	prev := m.start
	for i := 1; i <= segments; i++ {
		next := m.at(float64(i) / segments)
		length += prev.Distance(next)
		prev = next
	}
	return length
}

func (m *CurveMove) step(k *model.Kinematics, cfg *model.SimConfig, dt float64) bool {
	m.elapsed += dt
	p := math.Min(m.elapsed/m.duration, 1)
	if p >= 1 {
		k.Position = m.end
		k.Velocity = model.Vec3{}
		return true
	}
	prev := k.Position
	k.Position = m.at(util.SmoothStep(p))
	k.Velocity = k.Position.Sub(prev).Scale(1 / dt)
	return false
}

// TakeoffRise lifts the craft from the ground to hover altitude on an
// eased climb of fixed duration.
type TakeoffRise struct {
	fromZ    float64
	duration float64
	elapsed  float64
}

func NewTakeoffRise(fromZ float64) *TakeoffRise {
	return &TakeoffRise{
		fromZ:    fromZ,
		duration: math.Max(HoverAltitude/float64(takeoffRate), minDuration),
	}
}

func (m *TakeoffRise) step(k *model.Kinematics, cfg *model.SimConfig, dt float64) bool {
	m.elapsed += dt
	p := math.Min(m.elapsed/m.duration, 1)
	glide(k, cfg, dt)

	k.Position.Z = m.fromZ + (HoverAltitude-m.fromZ)*util.SmoothStep(p)
	k.Velocity.Z = takeoffRate * (1 - p)
	if p >= 1 {
		k.Position.Z = HoverAltitude
		k.Velocity.Z = 0
		return true
	}
	return false
}

// LandingDescent brings the craft to the ground on an eased descent and
// kills all motion at touchdown.
type LandingDescent struct {
	fromZ    float64
	duration float64
	elapsed  float64
}

func NewLandingDescent(fromZ float64) *LandingDescent {
	return &LandingDescent{
		fromZ:    fromZ,
		duration: math.Max(fromZ/landingRate, minDuration),
	}
}

func (m *LandingDescent) step(k *model.Kinematics, cfg *model.SimConfig, dt float64) bool {
	m.elapsed += dt
	p := math.Min(m.elapsed/m.duration, 1)
	glide(k, cfg, dt)

	k.Position.Z = m.fromZ * (1 - util.SmoothStep(p))
	k.Velocity.Z = -landingRate * (1 - p)
	if p >= 1 {
		k.Position.Z = 0
		k.Velocity = model.Vec3{}
		return true
	}
	return false
}

// Rotate yaws the craft by a signed number of degrees, positive clockwise,
// at the standard yaw rate. Altitude holds for the duration.
type Rotate struct {
	fromYaw  float64
	degrees  float64
	duration float64
	elapsed  float64
}

func NewRotate(fromYaw, degrees float64) *Rotate {
	return &Rotate{
		fromYaw:  fromYaw,
		degrees:  degrees,
		duration: math.Max(math.Abs(degrees)/yawRate, minDuration),
	}
}

func (m *Rotate) step(k *model.Kinematics, cfg *model.SimConfig, dt float64) bool {
	m.elapsed += dt
	p := math.Min(m.elapsed/m.duration, 1)
	glide(k, cfg, dt)
	k.Velocity.Z = 0

	k.Rotation.Z = util.WrapDegrees(m.fromYaw + m.degrees*util.SmoothStep(p))
	return p >= 1
}

// Flip rolls ('l'/'r') or pitches ('f'/'b') the airframe through a full
// rotation in one second with a small altitude pop at the apex. Attitude
// and altitude return to their starting values.
type Flip struct {
	Direction byte
	baseRot   model.Vec3
	baseZ     float64
	elapsed   float64
}

func NewFlip(direction byte, k model.Kinematics) *Flip {
	return &Flip{Direction: direction, baseRot: k.Rotation, baseZ: k.Position.Z}
}

func (m *Flip) step(k *model.Kinematics, cfg *model.SimConfig, dt float64) bool {
	m.elapsed += dt
	p := math.Min(m.elapsed/flipDuration, 1)
	glide(k, cfg, dt)
	k.Velocity.Z = 0

	if p >= 1 {
		k.Rotation = m.baseRot
		k.Position.Z = m.baseZ
		return true
	}

	swing := math.Sin(p * math.Pi)
	amount := 360 * swing
	if m.Direction == 'r' || m.Direction == 'b' {
		amount = -amount
	}
	switch m.Direction {
	case 'l', 'r':
		k.Rotation.Y = m.baseRot.Y + amount
	default:
		k.Rotation.X = m.baseRot.X + amount
	}
	k.Position.Z = m.baseZ + flipBump*swing
	return false
}

// glide decays and integrates the horizontal velocity for maneuvers that
// own the vertical axis.
func glide(k *model.Kinematics, cfg *model.SimConfig, dt float64) {
	applyDrag(&k.Velocity, cfg.Drag, dt)
	k.Position.X += k.Velocity.X * dt
	k.Position.Y += k.Velocity.Y * dt
}

func applyDrag(v *model.Vec3, drag, dt float64) {
	factor := math.Max(0, 1-drag*dt)
	*v = v.Scale(factor)
}

// Package telemetry synthesizes the sensor block of a device record:
// battery, thermals, barometer, IMU, rangefinder and mission pad
// detection.
package telemetry

import (
	"math"
	"math/rand"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/tellofleet/sim/internal/mission"
	"github.com/tellofleet/sim/internal/model"
	"github.com/tellofleet/sim/internal/util"
)

// CriticalBattery is the charge percentage at which an airborne device is
// forced into a landing descent.
const CriticalBattery = 5.0

const (
	minTemperature = 25.0
	maxTemperature = 50.0

	padRange       = 200.0 // cm, 2D detection radius
	padMinAltitude = 20.0  // cm
	padMaxAltitude = 300.0 // cm

	accelSmoothing = 0.7
)

// Generator produces sensor readings for one device, one update per
// simulation tick. It is owned by the device engine goroutine; the pad
// layout is shared across the fleet.
type Generator struct {
	cfg    model.SimConfig
	layout *mission.Layout

	prevV         model.Vec3
	flightSeconds float64
}

func NewGenerator(cfg model.SimConfig, layout *mission.Layout) *Generator {
	return &Generator{cfg: cfg, layout: layout}
}

// Update advances every sensor reading by dt seconds and reports whether
// the battery has gone critical while airborne.
func (g *Generator) Update(k *model.Kinematics, tm *model.Telemetry, mode model.FlightMode, padSensing bool, dt float64) bool {
	if dt <= 0 {
		return false
	}
	airborne := mode.Airborne()

	g.updateBattery(tm, k.Velocity, airborne, dt)
	g.updateTemperature(tm, airborne)
	g.updateBarometer(tm, k.Position.Z)
	g.updateAcceleration(k, airborne, dt)
	g.updateRangefinder(tm, k.Position.Z)
	g.updatePads(tm, k.Position, padSensing)

	if airborne {
		g.flightSeconds += dt
		tm.FlightTime = int(g.flightSeconds)
	}
	return airborne && tm.Battery <= CriticalBattery
}

// updateBattery drains the charge faster while airborne and faster still
// while moving. The level never increases.
func (g *Generator) updateBattery(tm *model.Telemetry, v model.Vec3, airborne bool, dt float64) {
	if tm.Battery <= 0 {
		tm.Battery = 0
		return
	}
	mult := 1.0
	if airborne {
		mult += 0.5
	}
	if speed := v.Length(); speed > 10 {
		mult += speed / 100
	}
	drain := g.cfg.BatteryDrainRate * (dt / 60) * mult * uniform(0.8, 1.2)
	tm.Battery = math.Max(0, tm.Battery-drain)
}

// updateTemperature random-walks the board temperature, biased upward
// while airborne.
func (g *Generator) updateTemperature(tm *model.Telemetry, airborne bool) {
	step := uniform(-0.4, 0.4)
	if airborne {
		step = uniform(-0.2, 0.8)
	}
	tm.Temperature = util.Clamp(tm.Temperature+step, minTemperature, maxTemperature)
}

func (g *Generator) updateBarometer(tm *model.Telemetry, z float64) {
	tm.Barometer = math.Max(0, g.cfg.GroundLevel+z+uniform(-5, 5))
}

// updateAcceleration derives the IMU reading from the velocity change
// since the previous tick, with the gravity component on the vertical
// axis while airborne.
func (g *Generator) updateAcceleration(k *model.Kinematics, airborne bool, dt float64) {
	raw := k.Velocity.Sub(g.prevV).Scale(1 / dt)
	if airborne {
		raw.Z -= g.cfg.Gravity * 100
	}
	g.prevV = k.Velocity

	smoothed := k.Acceleration.Scale(accelSmoothing).Add(raw.Scale(1 - accelSmoothing))
	smoothed.X += uniform(-5, 5)
	smoothed.Y += uniform(-5, 5)
	smoothed.Z += uniform(-5, 5)
	k.Acceleration = smoothed
}

func (g *Generator) updateRangefinder(tm *model.Telemetry, z float64) {
	base := math.Max(30, z)
	tm.ToF = int(math.Max(30, base+uniform(-3, 3)))
}

// updatePads runs proximity detection against the shared pad layout.
// Without a layout, or with pad sensing off, nothing is ever detected.
func (g *Generator) updatePads(tm *model.Telemetry, pos model.Vec3, sensing bool) {
	tm.PadID, tm.PadX, tm.PadY, tm.PadZ = -1, -100, -100, -100
	if !sensing || g.layout == nil || g.layout.Empty() {
		return
	}
	if pos.Z < padMinAltitude || pos.Z > padMaxAltitude {
		return
	}

	pads := g.layout.Pads()
	here := geom.XY{X: pos.X, Y: pos.Y}
	best := -1
	bestDist := padRange
	for i, pad := range pads {
		d := here.Sub(geom.XY{X: pad.Position.X, Y: pad.Position.Y}).Length()
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	if best < 0 {
		return
	}

	pad := pads[best]
	tm.PadID = pad.ID
	tm.PadX = int(pos.X-pad.Position.X) + rand.Intn(11) - 5
	tm.PadY = int(pos.Y-pad.Position.Y) + rand.Intn(11) - 5
	tm.PadZ = int(pos.Z-pad.Position.Z) + rand.Intn(7) - 3
}

func uniform(min, max float64) float64 {
	return min + rand.Float64()*(max-min)
}

package device

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/tellofleet/sim/internal/dispatcher"
	"github.com/tellofleet/sim/internal/flight"
	"github.com/tellofleet/sim/internal/model"
	"github.com/tellofleet/sim/internal/physics"
	"github.com/tellofleet/sim/internal/protocol"
)

// registerHandlers wires one handler per protocol keyword. Handlers run
// on the engine goroutine and may touch device state freely.
func (e *Engine) registerHandlers() {
	d := e.disp

	// Control commands.
	d.Register("command", e.cmdSDK)
	d.Register("takeoff", e.cmdTakeoff)
	d.Register("land", e.cmdLand)
	d.Register("emergency", e.cmdEmergency)
	d.Register("stop", e.cmdStop)
	d.Register("throwfly", e.cmdThrowFly)
	d.Register("motoron", e.cmdMotor)
	d.Register("motoroff", e.cmdMotor)

	// Movement commands.
	for _, kw := range []string{"up", "down", "left", "right", "forward", "back"} {
		d.Register(kw, e.cmdMove)
	}
	d.Register("cw", e.cmdTurn)
	d.Register("ccw", e.cmdTurn)
	d.Register("flip", e.cmdFlip)
	d.Register("go", e.cmdGo)
	d.Register("curve", e.cmdCurve)

	// Setting commands.
	d.Register("speed", e.cmdSetSpeed)
	d.Register("rc", e.cmdSetRC)
	d.Register("wifi", e.cmdSetWifi)
	d.Register("mon", e.cmdPadsOn)
	d.Register("moff", e.cmdPadsOff)
	d.Register("mdirection", e.cmdPadDirection)

	// Read queries, answered in every mode.
	e.registerQuery("speed", func() string {
		v := e.k.Velocity
		return fmt.Sprintf("x:%d y:%d z:%d", int(v.X), int(v.Y), int(v.Z))
	})
	e.registerQuery("battery", func() string { return strconv.Itoa(int(e.tm.Battery)) })
	e.registerQuery("time", func() string { return strconv.Itoa(e.tm.FlightTime) })
	e.registerQuery("wifi", func() string { return "90" })
	e.registerQuery("sdk", func() string { return "ok" })
	e.registerQuery("sn", func() string { return e.id.Serial() })
	e.registerQuery("hardware", func() string { return "RMTT" })
	e.registerQuery("wifiversion", func() string { return "1.3.0.0" })
	e.registerQuery("ap", func() string { return defaultSSID })
	e.registerQuery("ssid", func() string { return e.ssid })
	e.registerQuery("tof", func() string { return strconv.Itoa(e.tm.ToF) })
	e.registerQuery("height", func() string { return fmt.Sprintf("%.2f", e.tm.Barometer) })
	e.registerQuery("temp", func() string { return strconv.Itoa(int(e.tm.Temperature)) })
	e.registerQuery("attitude", func() string {
		r := e.k.Rotation
		return fmt.Sprintf("pitch:%d;roll:%d;yaw:%d;", int(r.X), int(r.Y), int(r.Z))
	})
	e.registerQuery("baro", func() string { return fmt.Sprintf("%.2f", e.tm.Barometer) })
	e.registerQuery("acceleration", func() string {
		a := e.k.Acceleration
		return fmt.Sprintf("agx:%d;agy:%d;agz:%d;", int(a.X), int(a.Y), int(a.Z))
	})
}

func (e *Engine) registerQuery(topic string, fn func() string) {
	e.disp.Register(topic+"?", func(dispatcher.Event) (any, error) {
		return fn(), nil
	})
}

////////////////////////
// CONTROL
////////////////////////

func (e *Engine) cmdSDK(dispatcher.Event) (any, error) {
	e.machine.EnterSDK()
	return "ok", nil
}

func (e *Engine) cmdTakeoff(dispatcher.Event) (any, error) {
	if err := e.machine.RequestTakeoff(); err != nil {
		return nil, err
	}
	e.integ.Begin(physics.NewTakeoffRise(e.k.Position.Z))
	e.log.Info("taking off")
	return "ok", nil
}

func (e *Engine) cmdLand(dispatcher.Event) (any, error) {
	if err := e.machine.RequestLand(); err != nil {
		return nil, err
	}
	e.integ.Begin(physics.NewLandingDescent(e.k.Position.Z))
	e.log.Info("landing", "z", e.k.Position.Z)
	return "ok", nil
}

// cmdEmergency cuts power from any mode: motion stops, the airframe is on
// the ground, and SDK mode must be re-entered before anything else.
func (e *Engine) cmdEmergency(dispatcher.Event) (any, error) {
	e.machine.Emergency()
	e.integ.Cancel()
	e.k.Velocity = model.Vec3{}
	e.k.Position.Z = 0
	e.log.Warn("emergency stop")
	return "ok", nil
}

// cmdStop holds position: the active maneuver is dropped and velocity
// zeroed. A grounded device acknowledges without effect.
func (e *Engine) cmdStop(dispatcher.Event) (any, error) {
	if err := e.machine.AdmitSetting(); err != nil {
		return nil, err
	}
	if e.machine.Mode().Airborne() {
		e.integ.Cancel()
		e.k.Velocity = model.Vec3{}
	}
	return "ok", nil
}

// cmdThrowFly puts a grounded device straight into flight at hover
// altitude. Already airborne is acknowledged as a no-op.
func (e *Engine) cmdThrowFly(dispatcher.Event) (any, error) {
	err := e.machine.ForceAirborne()
	switch {
	case err == nil:
		e.k.Position.Z = physics.HoverAltitude
		e.log.Info("throw launch")
	case errors.Is(err, flight.ErrNotGrounded):
		// already airborne, acknowledge without effect
	default:
		return nil, err
	}
	return "ok", nil
}

func (e *Engine) cmdMotor(dispatcher.Event) (any, error) {
	if err := e.machine.AdmitSetting(); err != nil {
		return nil, err
	}
	return "ok", nil
}

////////////////////////
// MOVEMENT
////////////////////////

// cmdMove handles the six single-axis moves. Up, down, left and right
// displace along the scene axes; forward and back resolve along the
// current yaw heading.
func (e *Engine) cmdMove(ev dispatcher.Event) (any, error) {
	mv := ev.Cmd.(protocol.Move)
	if err := e.machine.AdmitMovement(); err != nil {
		return nil, err
	}

	d := float64(mv.Distance)
	target := e.k.Position
	switch mv.Cmd {
	case "up":
		target.Z += d
	case "down":
		target.Z -= d
	case "left":
		target.X -= d
	case "right":
		target.X += d
	case "forward":
		target = target.Add(physics.Heading(e.k.Rotation.Z).Scale(d))
	case "back":
		target = target.Sub(physics.Heading(e.k.Rotation.Z).Scale(d))
	}

	target, err := e.integ.AdmitTarget(target)
	if err != nil {
		return nil, err
	}
	e.integ.Begin(physics.NewLinearMove(target, e.speed))
	return "ok", nil
}

func (e *Engine) cmdTurn(ev dispatcher.Event) (any, error) {
	turn := ev.Cmd.(protocol.Turn)
	if err := e.machine.AdmitMovement(); err != nil {
		return nil, err
	}

	degrees := float64(turn.Degrees)
	if turn.Cmd == "ccw" {
		degrees = -degrees
	}
	e.integ.Begin(physics.NewRotate(e.k.Rotation.Z, degrees))
	return "ok", nil
}

func (e *Engine) cmdFlip(ev dispatcher.Event) (any, error) {
	flip := ev.Cmd.(protocol.Flip)
	if err := e.machine.AdmitMovement(); err != nil {
		return nil, err
	}
	e.integ.Begin(physics.NewFlip(flip.Direction, e.k))
	return "ok", nil
}

func (e *Engine) cmdGo(ev dispatcher.Event) (any, error) {
	g := ev.Cmd.(protocol.Go)
	if err := e.machine.AdmitMovement(); err != nil {
		return nil, err
	}

	target, err := e.integ.AdmitTarget(e.k.Position.Add(model.Vec3{
		X: float64(g.X), Y: float64(g.Y), Z: float64(g.Z),
	}))
	if err != nil {
		return nil, err
	}
	e.integ.Begin(physics.NewLinearMove(target, float64(g.Speed)))
	return "ok", nil
}

func (e *Engine) cmdCurve(ev dispatcher.Event) (any, error) {
	c := ev.Cmd.(protocol.Curve)
	if err := e.machine.AdmitMovement(); err != nil {
		return nil, err
	}

	via, err := e.integ.AdmitTarget(e.k.Position.Add(model.Vec3{
		X: float64(c.X1), Y: float64(c.Y1), Z: float64(c.Z1),
	}))
	if err != nil {
		return nil, err
	}
	end, err := e.integ.AdmitTarget(e.k.Position.Add(model.Vec3{
		X: float64(c.X2), Y: float64(c.Y2), Z: float64(c.Z2),
	}))
	if err != nil {
		return nil, err
	}
	e.integ.Begin(physics.NewCurveMove(e.k.Position, via, end, float64(c.Speed)))
	return "ok", nil
}

////////////////////////
// SETTINGS
////////////////////////

func (e *Engine) cmdSetSpeed(ev dispatcher.Event) (any, error) {
	s := ev.Cmd.(protocol.SetSpeed)
	if err := e.machine.AdmitSetting(); err != nil {
		return nil, err
	}
	e.speed = float64(s.Speed)
	return "ok", nil
}

// cmdSetRC stores the four stick channel values. They surface in
// snapshots; stick flight itself is not simulated.
func (e *Engine) cmdSetRC(ev dispatcher.Event) (any, error) {
	rc := ev.Cmd.(protocol.SetRC)
	if err := e.machine.AdmitSetting(); err != nil {
		return nil, err
	}
	e.rc = rc.Channels
	return "ok", nil
}

func (e *Engine) cmdSetWifi(ev dispatcher.Event) (any, error) {
	w := ev.Cmd.(protocol.SetWifi)
	if err := e.machine.AdmitSetting(); err != nil {
		return nil, err
	}
	e.ssid = w.SSID
	return "ok", nil
}

func (e *Engine) cmdPadsOn(dispatcher.Event) (any, error) {
	if err := e.machine.AdmitSetting(); err != nil {
		return nil, err
	}
	e.padSensing = true
	return "ok", nil
}

func (e *Engine) cmdPadsOff(dispatcher.Event) (any, error) {
	if err := e.machine.AdmitSetting(); err != nil {
		return nil, err
	}
	e.padSensing = false
	e.tm.PadID, e.tm.PadX, e.tm.PadY, e.tm.PadZ = -1, -100, -100, -100
	return "ok", nil
}

func (e *Engine) cmdPadDirection(ev dispatcher.Event) (any, error) {
	dir := ev.Cmd.(protocol.SetPadDirection)
	if err := e.machine.AdmitSetting(); err != nil {
		return nil, err
	}
	e.padDirection = dir.Direction
	return "ok", nil
}

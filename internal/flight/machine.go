// Package flight owns the discrete flight mode of a device and the
// admissibility rules that gate protocol commands.
package flight

import (
	"errors"

	"github.com/tellofleet/sim/internal/model"
)

// Admissibility errors. They all surface as a bare "error" on the wire;
// the distinction exists for logging only.
var (
	ErrSDKInactive = errors.New("sdk mode not active")
	ErrNotFlying   = errors.New("device is not flying")
	ErrNotGrounded = errors.New("device is not on the ground")
)

// Machine tracks one device's flight mode and SDK flag.
// It is owned by the device engine goroutine and must not be shared.
type Machine struct {
	mode model.FlightMode
	sdk  bool
}

// NewMachine returns a machine in the initial state: Grounded, SDK inactive.
func NewMachine() *Machine {
	return &Machine{mode: model.ModeGrounded}
}

// Mode returns the current flight mode.
func (m *Machine) Mode() model.FlightMode { return m.mode }

// SDKActive reports whether the device has received `command`.
func (m *Machine) SDKActive() bool { return m.sdk }

// EnterSDK handles the `command` keyword. Idempotent. While in Emergency
// it also re-arms the device: power was cut, the airframe is grounded.
func (m *Machine) EnterSDK() {
	if m.mode == model.ModeEmergency {
		m.mode = model.ModeGrounded
	}
	m.sdk = true
}

// Emergency cuts power: any mode goes to Emergency and the SDK flag is
// cleared, forcing the command+takeoff sequence before further motion.
func (m *Machine) Emergency() {
	m.mode = model.ModeEmergency
	m.sdk = false
}

// RequestTakeoff validates and applies the Grounded -> TakingOff transition.
func (m *Machine) RequestTakeoff() error {
	if !m.sdk {
		return ErrSDKInactive
	}
	if m.mode != model.ModeGrounded {
		return ErrNotGrounded
	}
	m.mode = model.ModeTakingOff
	return nil
}

// FinishTakeoff completes the rise: TakingOff -> Flying.
func (m *Machine) FinishTakeoff() {
	if m.mode == model.ModeTakingOff {
		m.mode = model.ModeFlying
	}
}

// RequestLand validates and applies the Flying -> Landing transition.
func (m *Machine) RequestLand() error {
	if !m.sdk {
		return ErrSDKInactive
	}
	if m.mode != model.ModeFlying {
		return ErrNotFlying
	}
	m.mode = model.ModeLanding
	return nil
}

// ForceLand starts a landing descent regardless of SDK state, used when
// battery reaches the critical threshold while airborne.
func (m *Machine) ForceLand() {
	if m.mode == model.ModeTakingOff || m.mode == model.ModeFlying {
		m.mode = model.ModeLanding
	}
}

// FinishLanding completes the descent: Landing -> Grounded.
func (m *Machine) FinishLanding() {
	if m.mode == model.ModeLanding {
		m.mode = model.ModeGrounded
	}
}

// ForceAirborne puts a grounded device straight into Flying (throwfly).
func (m *Machine) ForceAirborne() error {
	if !m.sdk {
		return ErrSDKInactive
	}
	if m.mode != model.ModeGrounded {
		return ErrNotGrounded
	}
	m.mode = model.ModeFlying
	return nil
}

// AdmitMovement checks whether a movement command may be applied now.
// Movement requires SDK mode and level flight; a device that is grounded,
// transitioning or in emergency rejects it.
func (m *Machine) AdmitMovement() error {
	if !m.sdk {
		return ErrSDKInactive
	}
	if m.mode != model.ModeFlying {
		return ErrNotFlying
	}
	return nil
}

// AdmitSetting checks whether a setting command may be applied now.
// Settings require SDK mode only.
func (m *Machine) AdmitSetting() error {
	if !m.sdk {
		return ErrSDKInactive
	}
	return nil
}

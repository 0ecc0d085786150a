package model

import (
	"encoding/json"
	"fmt"
	"time"
)

////////////////////////
// DEVICE IDENTITY
////////////////////////

// Identity is the immutable identity of one simulated device.
// Created at startup, never mutated.
type Identity struct {
	ID   string `json:"id"`
	Port int    `json:"udp_port"`
}

// Serial returns the mock serial number reported by the sn? query.
// Derived from the device id the same way the reference device does.
func (i Identity) Serial() string {
	if i.ID == "" {
		return "0TQZH77ED000"
	}
	return "0TQZH77ED00" + i.ID[len(i.ID)-1:]
}

////////////////////////
// FLIGHT MODE
////////////////////////

// FlightMode is the discrete flight mode of a device. Exactly one value
// per device at any instant; transitions are owned by the flight machine.
type FlightMode int

const (
	ModeGrounded FlightMode = iota
	ModeTakingOff
	ModeFlying
	ModeLanding
	ModeEmergency
)

var modeNames = map[FlightMode]string{
	ModeGrounded:  "grounded",
	ModeTakingOff: "taking_off",
	ModeFlying:    "flying",
	ModeLanding:   "landing",
	ModeEmergency: "emergency",
}

func (m FlightMode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// Airborne reports whether the device is off the ground in this mode.
func (m FlightMode) Airborne() bool {
	return m == ModeTakingOff || m == ModeFlying || m == ModeLanding
}

// MarshalJSON encodes the mode as its string name.
func (m FlightMode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON decodes a mode from its string name.
func (m *FlightMode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for mode, name := range modeNames {
		if name == s {
			*m = mode
			return nil
		}
	}
	return fmt.Errorf("unknown flight mode %q", s)
}

////////////////////////
// CONTINUOUS STATE
////////////////////////

// Kinematics is the continuous kinematic state of a device.
// Rotation components follow the reference device convention:
// X = pitch, Y = roll, Z = yaw, all in degrees.
type Kinematics struct {
	Position     Vec3 `json:"position"`
	Rotation     Vec3 `json:"rotation"`
	Velocity     Vec3 `json:"velocity"`
	Acceleration Vec3 `json:"acceleration"`
}

// Telemetry holds the derived sensor readings for a device.
type Telemetry struct {
	Battery     float64 `json:"battery"`
	Temperature float64 `json:"temperature"`
	Barometer   float64 `json:"barometer"`
	FlightTime  int     `json:"flight_time"`

	// Mission pad detection. PadID is -1 when no pad is detected;
	// pad coordinates are -100 in that case, matching the hardware.
	PadID int  `json:"mission_pad_id"`
	PadX  int  `json:"mission_pad_x"`
	PadY  int  `json:"mission_pad_y"`
	PadZ  int  `json:"mission_pad_z"`
	ToF   int  `json:"tof"`
	Near  bool `json:"near_miss"`
}

////////////////////////
// SNAPSHOT
////////////////////////

// GeoPosition is the device position anchored to the configured scene
// origin, expressed in WGS84 and Web Mercator.
type GeoPosition struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	AltitudeM float64 `json:"altitude_m"`
	MercX     float64 `json:"merc_x"`
	MercY     float64 `json:"merc_y"`
}

// Snapshot is a consistent, timestamped read of one device's full state.
// It is the unit of publication to the fleet coordinator and is never
// mutated after creation.
type Snapshot struct {
	Identity
	Mode      FlightMode `json:"mode"`
	SDKActive bool       `json:"sdk_active"`
	IsFlying  bool       `json:"is_flying"`
	Connected bool       `json:"is_connected"`

	Kinematics
	Telemetry

	Speed    float64     `json:"speed"`
	RC       [4]int      `json:"rc_values"`
	Geo      GeoPosition `json:"geo"`
	LastCmd  time.Time   `json:"last_command_time"`
	Captured time.Time   `json:"last_update_time"`
}

////////////////////////
// SIMULATION CONFIG
////////////////////////

// SimConfig holds the process-wide physics parameters shared by every
// device in a fleet instance. Read-only after startup.
type SimConfig struct {
	TickRate         float64 // Hz
	Gravity          float64 // m/s², reporting only
	Drag             float64 // velocity decay per second
	MaxAcceleration  float64 // cm/s²
	BatteryDrainRate float64 // percent per minute, grounded baseline
	DefaultSpeed     float64 // cm/s
	MinSeparation    float64 // cm, near-miss threshold
	Bounds           Vec3    // scene extent: x,y centered on origin, z from ground
	GroundLevel      float64 // cm added to the barometer reading
	OriginLat        float64 // scene anchor, WGS84
	OriginLon        float64
}

// TickDuration returns the duration of one physics tick.
func (c SimConfig) TickDuration() time.Duration {
	if c.TickRate <= 0 {
		return time.Second / 30
	}
	return time.Duration(float64(time.Second) / c.TickRate)
}

// InBounds reports whether p lies inside the scene.
// X and Y are centered on the origin, Z runs from the floor to the ceiling.
func (c SimConfig) InBounds(p Vec3) bool {
	return p.X >= -c.Bounds.X/2 && p.X <= c.Bounds.X/2 &&
		p.Y >= -c.Bounds.Y/2 && p.Y <= c.Bounds.Y/2 &&
		p.Z >= 0 && p.Z <= c.Bounds.Z
}

// Pad is one mission pad placed in the scene.
type Pad struct {
	ID       int  `json:"id" mapstructure:"id"`
	Position Vec3 `json:"position" mapstructure:"position"`
}

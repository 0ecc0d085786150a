package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVec3Math(t *testing.T) {
	a := Vec3{X: 3, Y: 4, Z: 0}
	b := Vec3{X: 1, Y: 1, Z: 1}

	assert.Equal(t, Vec3{X: 4, Y: 5, Z: 1}, a.Add(b))
	assert.Equal(t, Vec3{X: 2, Y: 3, Z: -1}, a.Sub(b))
	assert.Equal(t, Vec3{X: 6, Y: 8, Z: 0}, a.Scale(2))
	assert.InDelta(t, 5.0, a.Length(), 1e-9)
	assert.InDelta(t, 1.0, a.Normalized().Length(), 1e-9)
	assert.Equal(t, Vec3{}, Vec3{}.Normalized())
}

func TestFlightModeStrings(t *testing.T) {
	tests := []struct {
		mode     FlightMode
		expected string
		airborne bool
	}{
		{ModeGrounded, "grounded", false},
		{ModeTakingOff, "taking_off", true},
		{ModeFlying, "flying", true},
		{ModeLanding, "landing", true},
		{ModeEmergency, "emergency", false},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.mode.String())
			assert.Equal(t, tt.airborne, tt.mode.Airborne())
		})
	}
}

func TestFlightModeJSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(ModeTakingOff)
	require.NoError(t, err)
	assert.Equal(t, `"taking_off"`, string(data))

	var m FlightMode
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, ModeTakingOff, m)

	assert.Error(t, json.Unmarshal([]byte(`"hovering"`), &m))
}

func TestIdentitySerial(t *testing.T) {
	assert.Equal(t, "0TQZH77ED001", Identity{ID: "drone_1"}.Serial())
	assert.Equal(t, "0TQZH77ED000", Identity{}.Serial())
}

func TestSimConfigInBounds(t *testing.T) {
	cfg := SimConfig{Bounds: Vec3{X: 1000, Y: 1000, Z: 500}}

	assert.True(t, cfg.InBounds(Vec3{X: 0, Y: 0, Z: 0}))
	assert.True(t, cfg.InBounds(Vec3{X: 500, Y: -500, Z: 500}))
	assert.False(t, cfg.InBounds(Vec3{X: 501, Y: 0, Z: 100}))
	assert.False(t, cfg.InBounds(Vec3{X: 0, Y: 0, Z: 501}))
	assert.False(t, cfg.InBounds(Vec3{X: 0, Y: 0, Z: -1}))
}

func TestTickDuration(t *testing.T) {
	cfg := SimConfig{TickRate: 30}
	assert.InDelta(t, float64(33), float64(cfg.TickDuration().Milliseconds()), 1)

	// Zero rate falls back to the 30 Hz default instead of dividing by zero.
	assert.Equal(t, SimConfig{TickRate: 30}.TickDuration(), SimConfig{}.TickDuration())
}

package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseControl(t *testing.T) {
	for _, kw := range []string{
		"command", "takeoff", "land", "emergency", "stop",
		"motoron", "motoroff", "throwfly", "mon", "moff",
	} {
		t.Run(kw, func(t *testing.T) {
			cmd, err := Parse(kw)
			require.NoError(t, err)
			assert.Equal(t, Control{Cmd: kw}, cmd)
			assert.Equal(t, kw, cmd.Keyword())
		})
	}
}

func TestParseMoves(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Command
		wantErr error
	}{
		{name: "up min", input: "up 20", want: Move{Cmd: "up", Distance: 20}},
		{name: "down max", input: "down 500", want: Move{Cmd: "down", Distance: 500}},
		{name: "forward mid", input: "forward 120", want: Move{Cmd: "forward", Distance: 120}},
		{name: "uppercase keyword", input: "LEFT 100", want: Move{Cmd: "left", Distance: 100}},
		{name: "below range", input: "right 19", wantErr: &RangeError{}},
		{name: "above range", input: "back 501", wantErr: &RangeError{}},
		{name: "not a number", input: "up fast", wantErr: &RangeError{}},
		{name: "missing arg", input: "up", wantErr: &ArityError{}},
		{name: "extra args", input: "up 100 200", wantErr: &ArityError{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := Parse(tt.input)
			if tt.wantErr != nil {
				require.Error(t, err)
				switch tt.wantErr.(type) {
				case *RangeError:
					var re *RangeError
					assert.ErrorAs(t, err, &re)
				case *ArityError:
					var ae *ArityError
					assert.ErrorAs(t, err, &ae)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cmd)
		})
	}
}

func TestParseTurns(t *testing.T) {
	cmd, err := Parse("cw 90")
	require.NoError(t, err)
	assert.Equal(t, Turn{Cmd: "cw", Degrees: 90}, cmd)

	cmd, err = Parse("ccw 360")
	require.NoError(t, err)
	assert.Equal(t, Turn{Cmd: "ccw", Degrees: 360}, cmd)

	_, err = Parse("cw 0")
	var re *RangeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "cw", re.Keyword)
	assert.Equal(t, 1, re.Min)
	assert.Equal(t, 360, re.Max)

	_, err = Parse("ccw 361")
	assert.ErrorAs(t, err, &re)
}

func TestParseFlip(t *testing.T) {
	for _, dir := range []string{"l", "r", "f", "b"} {
		cmd, err := Parse("flip " + dir)
		require.NoError(t, err)
		assert.Equal(t, Flip{Direction: dir[0]}, cmd)
	}

	_, err := Parse("flip x")
	var re *RangeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "direction", re.Param)

	_, err = Parse("flip")
	var ae *ArityError
	assert.ErrorAs(t, err, &ae)
}

func TestParseGo(t *testing.T) {
	cmd, err := Parse("go 100 -100 50 60")
	require.NoError(t, err)
	assert.Equal(t, Go{X: 100, Y: -100, Z: 50, Speed: 60}, cmd)

	_, err = Parse("go 501 0 0 50")
	var re *RangeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "x", re.Param)

	_, err = Parse("go 0 0 0 9")
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "speed", re.Param)

	_, err = Parse("go 1 2 3")
	var ae *ArityError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, 4, ae.Want)
	assert.Equal(t, 3, ae.Got)
}

func TestParseCurve(t *testing.T) {
	cmd, err := Parse("curve 100 0 0 200 100 50 30")
	require.NoError(t, err)
	assert.Equal(t, Curve{X1: 100, Y1: 0, Z1: 0, X2: 200, Y2: 100, Z2: 50, Speed: 30}, cmd)

	// Curve speed tops out at 60, unlike go.
	_, err = Parse("curve 100 0 0 200 100 50 61")
	var re *RangeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "speed", re.Param)
	assert.Equal(t, 60, re.Max)

	_, err = Parse("curve 100 0 0 200 100 50")
	var ae *ArityError
	assert.ErrorAs(t, err, &ae)
}

func TestParseSettings(t *testing.T) {
	cmd, err := Parse("speed 50")
	require.NoError(t, err)
	assert.Equal(t, SetSpeed{Speed: 50}, cmd)

	cmd, err = Parse("rc 100 -100 0 50")
	require.NoError(t, err)
	assert.Equal(t, SetRC{Channels: [4]int{100, -100, 0, 50}}, cmd)

	_, err = Parse("rc 101 0 0 0")
	var re *RangeError
	assert.ErrorAs(t, err, &re)

	cmd, err = Parse("wifi myssid hunter2")
	require.NoError(t, err)
	assert.Equal(t, SetWifi{SSID: "myssid", Password: "hunter2"}, cmd)

	cmd, err = Parse("mdirection 2")
	require.NoError(t, err)
	assert.Equal(t, SetPadDirection{Direction: 2}, cmd)

	_, err = Parse("mdirection 3")
	assert.ErrorAs(t, err, &re)
}

func TestParseQueries(t *testing.T) {
	for _, topic := range []string{
		"speed", "battery", "time", "wifi", "sdk", "sn", "hardware",
		"wifiversion", "ap", "ssid", "tof", "height", "temp",
		"attitude", "baro", "acceleration",
	} {
		t.Run(topic, func(t *testing.T) {
			cmd, err := Parse(topic + "?")
			require.NoError(t, err)
			assert.Equal(t, Query{Topic: topic}, cmd)
			assert.Equal(t, topic+"?", cmd.Keyword())
		})
	}

	_, err := Parse("altitude?")
	var ue *UnknownCommandError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "altitude?", ue.Keyword)

	_, err = Parse("battery? now")
	var ae *ArityError
	assert.ErrorAs(t, err, &ae)
}

func TestParseUnknownAndEmpty(t *testing.T) {
	_, err := Parse("hover")
	var ue *UnknownCommandError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "hover", ue.Keyword)

	_, err = Parse("")
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "", ue.Keyword)

	_, err = Parse("   \t  ")
	assert.ErrorAs(t, err, &ue)
}

func TestIsStateEcho(t *testing.T) {
	echo := "pitch:0;roll:0;yaw:90;vgx:0;vgy:0;vgz:0;templ:25;temph:27;tof:30;h:0;bat:87;baro:0.00;time:0;agx:0;agy:0;agz:-981;"
	assert.True(t, IsStateEcho(echo))

	assert.False(t, IsStateEcho("battery?"))
	assert.False(t, IsStateEcho("go 100 0 0 50"))
	// A lone key:value pair is not a state packet.
	assert.False(t, IsStateEcho("bat:87;"))
}

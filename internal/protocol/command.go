// Package protocol implements the text command grammar of the device's
// UDP control protocol: one whitespace-delimited ASCII line in, one typed
// command out. Parsing performs syntactic and range validation only;
// whether a command is admissible in the current flight mode is decided
// by the device engine.
package protocol

// Command is a parsed, range-validated protocol command.
// The concrete type carries the validated payload.
type Command interface {
	// Keyword returns the protocol keyword the command was parsed from,
	// e.g. "takeoff", "go" or "battery?".
	Keyword() string
}

// Control is a zero-argument control command: command, takeoff, land,
// emergency, stop, motoron, motoroff, throwfly, mon, moff.
type Control struct {
	Cmd string
}

func (c Control) Keyword() string { return c.Cmd }

// Move is a single-axis relative move: up, down, left, right, forward, back.
// Distance is in centimeters, already checked against 20-500.
type Move struct {
	Cmd      string
	Distance int
}

func (m Move) Keyword() string { return m.Cmd }

// Turn is a yaw rotation: cw or ccw, degrees in 1-360.
type Turn struct {
	Cmd     string
	Degrees int
}

func (t Turn) Keyword() string { return t.Cmd }

// Flip requests an aerobatic flip. Direction is one of 'l', 'r', 'f', 'b'.
type Flip struct {
	Direction byte
}

func (f Flip) Keyword() string { return "flip" }

// Go is a relative straight-line move to (X,Y,Z) at Speed.
type Go struct {
	X, Y, Z int
	Speed   int
}

func (g Go) Keyword() string { return "go" }

// Curve flies a curve through (X1,Y1,Z1) ending at (X2,Y2,Z2) at Speed.
type Curve struct {
	X1, Y1, Z1 int
	X2, Y2, Z2 int
	Speed      int
}

func (c Curve) Keyword() string { return "curve" }

// SetSpeed sets the configured movement speed in cm/s.
type SetSpeed struct {
	Speed int
}

func (s SetSpeed) Keyword() string { return "speed" }

// SetRC sets the four remote-control channel values, each in -100..100:
// left/right, forward/back, up/down, yaw.
type SetRC struct {
	Channels [4]int
}

func (s SetRC) Keyword() string { return "rc" }

// SetWifi stores new access point credentials.
type SetWifi struct {
	SSID     string
	Password string
}

func (s SetWifi) Keyword() string { return "wifi" }

// SetPadDirection selects which pad sensors are active:
// 0 = downward, 1 = forward, 2 = both.
type SetPadDirection struct {
	Direction int
}

func (s SetPadDirection) Keyword() string { return "mdirection" }

// Query is a read command, keyword suffixed with '?'.
// Topic is the keyword without the suffix, e.g. "battery".
type Query struct {
	Topic string
}

func (q Query) Keyword() string { return q.Topic + "?" }

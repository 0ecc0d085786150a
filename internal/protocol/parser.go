package protocol

import (
	"strconv"
	"strings"
)

// control keywords taking zero arguments.
var controlKeywords = map[string]bool{
	"command":   true,
	"takeoff":   true,
	"land":      true,
	"emergency": true,
	"stop":      true,
	"motoron":   true,
	"motoroff":  true,
	"throwfly":  true,
	"mon":       true,
	"moff":      true,
}

// moveKeywords are single-distance moves, 20-500 cm.
var moveKeywords = map[string]bool{
	"up":      true,
	"down":    true,
	"left":    true,
	"right":   true,
	"forward": true,
	"back":    true,
}

// queryTopics are the recognized read keywords (without the '?' suffix).
var queryTopics = map[string]bool{
	"speed":        true,
	"battery":      true,
	"time":         true,
	"wifi":         true,
	"sdk":          true,
	"sn":           true,
	"hardware":     true,
	"wifiversion":  true,
	"ap":           true,
	"ssid":         true,
	"tof":          true,
	"height":       true,
	"temp":         true,
	"attitude":     true,
	"baro":         true,
	"acceleration": true,
}

// Parse turns a single protocol line into a typed Command.
// It is a pure function of the input: no side effects, no state.
func Parse(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, &UnknownCommandError{}
	}

	keyword := strings.ToLower(fields[0])
	args := fields[1:]

	if strings.HasSuffix(keyword, "?") {
		topic := strings.TrimSuffix(keyword, "?")
		if !queryTopics[topic] {
			return nil, &UnknownCommandError{Keyword: keyword}
		}
		if len(args) != 0 {
			return nil, &ArityError{Keyword: keyword, Want: 0, Got: len(args)}
		}
		return Query{Topic: topic}, nil
	}

	switch {
	case controlKeywords[keyword]:
		if len(args) != 0 {
			return nil, &ArityError{Keyword: keyword, Want: 0, Got: len(args)}
		}
		return Control{Cmd: keyword}, nil

	case moveKeywords[keyword]:
		if len(args) != 1 {
			return nil, &ArityError{Keyword: keyword, Want: 1, Got: len(args)}
		}
		dist, err := parseIntArg(keyword, "distance", args[0], 20, 500)
		if err != nil {
			return nil, err
		}
		return Move{Cmd: keyword, Distance: dist}, nil

	case keyword == "cw" || keyword == "ccw":
		if len(args) != 1 {
			return nil, &ArityError{Keyword: keyword, Want: 1, Got: len(args)}
		}
		deg, err := parseIntArg(keyword, "degrees", args[0], 1, 360)
		if err != nil {
			return nil, err
		}
		return Turn{Cmd: keyword, Degrees: deg}, nil

	case keyword == "flip":
		if len(args) != 1 {
			return nil, &ArityError{Keyword: keyword, Want: 1, Got: len(args)}
		}
		dir := strings.ToLower(args[0])
		if dir != "l" && dir != "r" && dir != "f" && dir != "b" {
			return nil, &RangeError{Keyword: keyword, Param: "direction", Value: args[0]}
		}
		return Flip{Direction: dir[0]}, nil

	case keyword == "go":
		if len(args) != 4 {
			return nil, &ArityError{Keyword: keyword, Want: 4, Got: len(args)}
		}
		var g Go
		var err error
		coords := [3]*int{&g.X, &g.Y, &g.Z}
		names := [3]string{"x", "y", "z"}
		for i, p := range coords {
			if *p, err = parseIntArg(keyword, names[i], args[i], -500, 500); err != nil {
				return nil, err
			}
		}
		if g.Speed, err = parseIntArg(keyword, "speed", args[3], 10, 100); err != nil {
			return nil, err
		}
		return g, nil

	case keyword == "curve":
		if len(args) != 7 {
			return nil, &ArityError{Keyword: keyword, Want: 7, Got: len(args)}
		}
		var c Curve
		var err error
		coords := [6]*int{&c.X1, &c.Y1, &c.Z1, &c.X2, &c.Y2, &c.Z2}
		names := [6]string{"x1", "y1", "z1", "x2", "y2", "z2"}
		for i, p := range coords {
			if *p, err = parseIntArg(keyword, names[i], args[i], -500, 500); err != nil {
				return nil, err
			}
		}
		if c.Speed, err = parseIntArg(keyword, "speed", args[6], 10, 60); err != nil {
			return nil, err
		}
		return c, nil

	case keyword == "speed":
		if len(args) != 1 {
			return nil, &ArityError{Keyword: keyword, Want: 1, Got: len(args)}
		}
		sp, err := parseIntArg(keyword, "speed", args[0], 10, 100)
		if err != nil {
			return nil, err
		}
		return SetSpeed{Speed: sp}, nil

	case keyword == "rc":
		if len(args) != 4 {
			return nil, &ArityError{Keyword: keyword, Want: 4, Got: len(args)}
		}
		var rc SetRC
		names := [4]string{"a", "b", "c", "d"}
		for i := range rc.Channels {
			v, err := parseIntArg(keyword, names[i], args[i], -100, 100)
			if err != nil {
				return nil, err
			}
			rc.Channels[i] = v
		}
		return rc, nil

	case keyword == "wifi":
		if len(args) != 2 {
			return nil, &ArityError{Keyword: keyword, Want: 2, Got: len(args)}
		}
		return SetWifi{SSID: args[0], Password: args[1]}, nil

	case keyword == "mdirection":
		if len(args) != 1 {
			return nil, &ArityError{Keyword: keyword, Want: 1, Got: len(args)}
		}
		dir, err := parseIntArg(keyword, "direction", args[0], 0, 2)
		if err != nil {
			return nil, err
		}
		return SetPadDirection{Direction: dir}, nil
	}

	return nil, &UnknownCommandError{Keyword: keyword}
}

// parseIntArg parses one integer argument and checks it against [min, max].
func parseIntArg(keyword, param, raw string, min, max int) (int, error) {
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &RangeError{Keyword: keyword, Param: param, Value: raw, Min: min, Max: max}
	}
	if v < min || v > max {
		return 0, &RangeError{Keyword: keyword, Param: param, Value: raw, Min: min, Max: max}
	}
	return v, nil
}

// stateFields are key prefixes of the periodic state packet. Clients
// sometimes echo state packets back at the command port; those are not
// commands and must be ignored rather than answered with "error".
var stateFields = []string{
	"pitch:", "roll:", "yaw:", "vgx:", "vgy:", "vgz:",
	"templ:", "temph:", "tof:", "h:", "bat:", "baro:",
	"time:", "agx:", "agy:", "agz:",
}

// IsStateEcho reports whether the line looks like an echoed state packet.
func IsStateEcho(line string) bool {
	if !strings.Contains(line, ";") || !strings.Contains(line, ":") {
		return false
	}
	n := 0
	for _, f := range stateFields {
		if strings.Contains(line, f) {
			n++
			if n >= 3 {
				return true
			}
		}
	}
	return false
}

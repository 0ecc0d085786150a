package protocol

import "fmt"

// UnknownCommandError is returned when the keyword is not part of the
// protocol grammar.
type UnknownCommandError struct {
	Keyword string
}

func (e *UnknownCommandError) Error() string {
	if e.Keyword == "" {
		return "empty command"
	}
	return fmt.Sprintf("unknown command %q", e.Keyword)
}

// ArityError is returned when a recognized keyword has the wrong number
// of arguments.
type ArityError struct {
	Keyword string
	Want    int
	Got     int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("%s expects %d argument(s), got %d", e.Keyword, e.Want, e.Got)
}

// RangeError is returned when an argument is outside its documented
// bounds or is not parseable as the expected type.
type RangeError struct {
	Keyword string
	Param   string
	Value   string
	Min     int
	Max     int
}

func (e *RangeError) Error() string {
	if e.Min == 0 && e.Max == 0 {
		return fmt.Sprintf("%s: invalid %s %q", e.Keyword, e.Param, e.Value)
	}
	return fmt.Sprintf("%s: %s %q out of range %d..%d", e.Keyword, e.Param, e.Value, e.Min, e.Max)
}

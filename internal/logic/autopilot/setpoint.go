package autopilot

import "strconv"

// Setpoint is an optional target. The zero value is absent.
type Setpoint struct {
	value float64
	held  bool
}

// Hold returns a present setpoint.
func Hold(v float64) Setpoint { return Setpoint{value: v, held: true} }

// Value returns the target and whether it is present.
func (s Setpoint) Value() (float64, bool) { return s.value, s.held }

func (s Setpoint) IsHeld() bool { return s.held }

// Offset adds d to the target. An absent target starts from d.
func (s Setpoint) Offset(d float64) Setpoint {
	if !s.held {
		return Hold(d)
	}
	return Hold(s.value + d)
}

// String formats the target, or "" when absent.
func (s Setpoint) String() string {
	if !s.held {
		return ""
	}
	return strconv.FormatFloat(s.value, 'g', -1, 64)
}

package autopilot

import (
	"fmt"
	"strings"

	"github.com/cjeanneret/TrimPilot/internal/hw/surface"
	"github.com/cjeanneret/TrimPilot/internal/logic/attitude"
)

// Axis is a controlled attitude axis.
type Axis int

const (
	Pitch Axis = iota
	Roll
	Bearing

	NumAxes = 3
)

// Axes lists every axis in tick order.
var Axes = [NumAxes]Axis{Pitch, Roll, Bearing}

var axisNames = [NumAxes]string{"Pitch", "Roll", "Bearing"}

func (a Axis) String() string {
	if a >= 0 && int(a) < NumAxes {
		return axisNames[a]
	}
	return fmt.Sprintf("Axis(%d)", int(a))
}

// ParseAxis accepts an axis name in any case.
func ParseAxis(s string) (Axis, error) {
	for _, a := range Axes {
		if strings.EqualFold(s, axisNames[a]) {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown axis %q", s)
}

// InvertProperty is the device property that inverts trim on this axis.
func (a Axis) InvertProperty() string {
	switch a {
	case Pitch:
		return surface.PropInvertPitch
	case Roll:
		return surface.PropInvertRoll
	default:
		return surface.PropInvertYaw
	}
}

// Of returns the axis value of att.
func (a Axis) Of(att attitude.Attitude) float64 {
	switch a {
	case Pitch:
		return att.Pitch
	case Roll:
		return att.Roll
	default:
		return att.Bearing
	}
}

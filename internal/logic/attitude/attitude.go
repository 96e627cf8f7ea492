package attitude

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/cjeanneret/TrimPilot/internal/logic/geometry"
)

// bearingSnap is the bearing above which the heading is reported as north.
const bearingSnap = 359.5

// Attitude is the vehicle orientation expressed in degrees.
type Attitude struct {
	Pitch   float64 `json:"pitch"`
	Roll    float64 `json:"roll"`
	Bearing float64 `json:"bearing"`
}

// HasReference reports whether gravity can be used as an attitude reference.
// A zero or non-finite gravity makes every angle meaningless.
func HasReference(gravity r3.Vector) bool {
	return geometry.IsFinite(gravity) && !geometry.IsZero(gravity)
}

// Read extracts pitch, roll and bearing from one pose sample.
func Read(f Frame, gravity r3.Vector) Attitude {
	return Attitude{
		Pitch:   Pitch(f, gravity),
		Roll:    Roll(f, gravity),
		Bearing: Bearing(f, gravity),
	}
}

// Pitch returns the angle between the nose and the horizon, positive when
// the nose points above it.
func Pitch(f Frame, gravity r3.Vector) float64 {
	up := gravity.Mul(-1)
	left := up.Cross(f.Forward)
	leveled := left.Cross(up)

	pitch := geometry.AngleBetween(leveled, f.Forward) * geometry.Sign(up.Dot(f.Forward))
	return round2(geometry.Degrees(pitch))
}

// Roll returns the bank angle around the forward axis. A vehicle banked to
// its right reads negative.
func Roll(f Frame, gravity r3.Vector) float64 {
	up := gravity.Mul(-1)
	local := f.ToLocal(up)
	flattened := r3.Vector{X: local.X, Y: local.Y}

	roll := geometry.AngleBetween(flattened, LocalUp) * geometry.Sign(LocalRight.Dot(flattened))
	return round2(geometry.Degrees(roll))
}

// Bearing returns the compass heading of the nose in [0, 360).
func Bearing(f Frame, gravity r3.Vector) float64 {
	east := gravity.Cross(WorldDown)
	north := east.Cross(gravity)
	heading := geometry.Rejection(f.Forward, gravity)

	bearing := geometry.Degrees(geometry.AngleBetween(heading, north))
	if f.Forward.Dot(east) < 0 {
		bearing = 360 - bearing
	}
	if bearing >= bearingSnap {
		bearing = 0
	}
	return round2(bearing)
}

func round2(v float64) float64 {
	r := math.RoundToEven(v*100) / 100
	if r == 0 {
		return 0
	}
	return r
}

package geometry

import (
	"math"

	"github.com/golang/geo/r3"
)

// Zero is the zero vector.
var Zero = r3.Vector{}

// IsZero reports whether v is exactly the zero vector.
func IsZero(v r3.Vector) bool {
	return v.X == 0 && v.Y == 0 && v.Z == 0
}

// IsFinite reports whether every component of v is neither NaN nor ±Inf.
func IsFinite(v r3.Vector) bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Sign returns -1, 0 or 1 depending on the sign of x.
func Sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// CosBetween computes the cosine of the angle between a and b.
// The result is clamped to [-1, 1] so rounding never pushes it outside the
// domain of acos. Returns 0 if either vector is zero.
func CosBetween(a, b r3.Vector) float64 {
	if IsZero(a) || IsZero(b) {
		return 0
	}
	return Clamp(a.Dot(b)/math.Sqrt(a.Norm2()*b.Norm2()), -1, 1)
}

// AngleBetween computes the angle between a and b in radians.
// Returns 0 if either vector is zero.
func AngleBetween(a, b r3.Vector) float64 {
	if IsZero(a) || IsZero(b) {
		return 0
	}
	return math.Acos(CosBetween(a, b))
}

// Projection projects a onto b.
func Projection(a, b r3.Vector) r3.Vector {
	if IsZero(a) || IsZero(b) {
		return Zero
	}
	if b.IsUnit() {
		return b.Mul(a.Dot(b))
	}
	return b.Mul(a.Dot(b) / b.Norm2())
}

// Rejection returns the component of a orthogonal to b.
func Rejection(a, b r3.Vector) r3.Vector {
	if IsZero(a) || IsZero(b) {
		return Zero
	}
	if b.IsUnit() {
		return a.Sub(b.Mul(a.Dot(b)))
	}
	return a.Sub(b.Mul(a.Dot(b) / b.Norm2()))
}

// ScalarProjection returns the signed length of the projection of a onto b.
func ScalarProjection(a, b r3.Vector) float64 {
	if IsZero(a) || IsZero(b) {
		return 0
	}
	if b.IsUnit() {
		return a.Dot(b)
	}
	return a.Dot(b) / b.Norm()
}

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 {
	return rad * 180.0 / math.Pi
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

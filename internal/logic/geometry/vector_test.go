package geometry

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
)

const eps = 1e-12

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < eps
}

func vecAlmostEqual(a, b r3.Vector) bool {
	return almostEqual(a.X, b.X) && almostEqual(a.Y, b.Y) && almostEqual(a.Z, b.Z)
}

// ---------- AngleBetween ----------

func TestAngleBetween_SameVectorIsZero(t *testing.T) {
	cases := []r3.Vector{
		{X: 1, Y: 0, Z: 0},
		{X: 0, Y: -9.81, Z: 0},
		{X: 3, Y: 4, Z: 12},
		{X: -0.001, Y: 0.002, Z: 1e6},
	}
	for _, v := range cases {
		if got := AngleBetween(v, v); got != 0 {
			t.Errorf("AngleBetween(%v, %v) = %v, want 0", v, v, got)
		}
	}
}

func TestAngleBetween_OppositeIsPi(t *testing.T) {
	cases := []r3.Vector{
		{X: 1, Y: 0, Z: 0},
		{X: 0, Y: 1, Z: 0},
		{X: 3, Y: 4, Z: 12},
		{X: -7, Y: 0.5, Z: 2},
	}
	for _, v := range cases {
		if got := AngleBetween(v, v.Mul(-1)); got != math.Pi {
			t.Errorf("AngleBetween(%v, -%v) = %v, want π", v, v, got)
		}
	}
}

func TestAngleBetween_ZeroVector(t *testing.T) {
	others := []r3.Vector{
		{X: 1, Y: 2, Z: 3},
		{X: 0, Y: -1, Z: 0},
		{},
	}
	for _, v := range others {
		if got := AngleBetween(Zero, v); got != 0 {
			t.Errorf("AngleBetween(0, %v) = %v, want 0", v, got)
		}
		if got := AngleBetween(v, Zero); got != 0 {
			t.Errorf("AngleBetween(%v, 0) = %v, want 0", v, got)
		}
	}
}

func TestAngleBetween_RightAngle(t *testing.T) {
	got := AngleBetween(r3.Vector{X: 2}, r3.Vector{Y: 5})
	if !almostEqual(got, math.Pi/2) {
		t.Errorf("AngleBetween(x, y) = %v, want π/2", got)
	}
}

func TestCosBetween_ClampedToDomain(t *testing.T) {
	// Nearly parallel vectors with awkward magnitudes can overshoot 1.0
	// without the clamp; the result must always stay a valid cosine.
	a := r3.Vector{X: 0.1, Y: 0.2, Z: 0.3}
	b := a.Mul(3)
	got := CosBetween(a, b)
	if got > 1 || got < -1 {
		t.Fatalf("CosBetween = %v, outside [-1, 1]", got)
	}
	if math.IsNaN(AngleBetween(a, b)) {
		t.Fatal("AngleBetween returned NaN for parallel vectors")
	}
}

// ---------- Projection / Rejection ----------

func TestProjection(t *testing.T) {
	cases := []struct {
		name string
		a, b r3.Vector
		want r3.Vector
	}{
		{"onto_unit_x", r3.Vector{X: 3, Y: 4, Z: 5}, r3.Vector{X: 1}, r3.Vector{X: 3}},
		{"onto_scaled_y", r3.Vector{X: 3, Y: 4, Z: 5}, r3.Vector{Y: 10}, r3.Vector{Y: 4}},
		{"orthogonal", r3.Vector{X: 1}, r3.Vector{Z: 2}, r3.Vector{}},
		{"zero_a", r3.Vector{}, r3.Vector{X: 1}, r3.Vector{}},
		{"zero_b", r3.Vector{X: 1}, r3.Vector{}, r3.Vector{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Projection(tc.a, tc.b); !vecAlmostEqual(got, tc.want) {
				t.Errorf("Projection(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestRejection(t *testing.T) {
	cases := []struct {
		name string
		a, b r3.Vector
		want r3.Vector
	}{
		{"flatten_on_y", r3.Vector{X: 1, Y: 2, Z: 3}, r3.Vector{Y: -9.81}, r3.Vector{X: 1, Z: 3}},
		{"parallel", r3.Vector{X: 2}, r3.Vector{X: 5}, r3.Vector{}},
		{"zero_a", r3.Vector{}, r3.Vector{X: 1}, r3.Vector{}},
		{"zero_b", r3.Vector{X: 1}, r3.Vector{}, r3.Vector{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Rejection(tc.a, tc.b); !vecAlmostEqual(got, tc.want) {
				t.Errorf("Rejection(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestRejection_UnitFastPath(t *testing.T) {
	a := r3.Vector{X: 1.5, Y: -2.25, Z: 7}
	b := r3.Vector{X: 0.6, Y: 0.8}
	if !b.IsUnit() {
		t.Fatalf("%v should count as unit length", b)
	}
	want := a.Sub(b.Mul(a.Dot(b)))
	if got := Rejection(a, b); got != want {
		t.Errorf("Rejection(%v, %v) = %v, want %v (no division by |b|²)", a, b, got, want)
	}
	if got := Rejection(a, b).Dot(b); !almostEqual(got, 0) {
		t.Errorf("rejection . b = %v, want 0", got)
	}
}

func TestProjectionPlusRejectionIsOriginal(t *testing.T) {
	a := r3.Vector{X: 1.5, Y: -2, Z: 7}
	b := r3.Vector{X: 0.3, Y: 4, Z: -1}
	sum := Projection(a, b).Add(Rejection(a, b))
	if !vecAlmostEqual(sum, a) {
		t.Errorf("proj + rej = %v, want %v", sum, a)
	}
}

func TestScalarProjection(t *testing.T) {
	cases := []struct {
		name string
		a, b r3.Vector
		want float64
	}{
		{"unit", r3.Vector{X: 3, Y: 4}, r3.Vector{Y: 1}, 4},
		{"scaled", r3.Vector{X: 3, Y: 4}, r3.Vector{Y: -2}, -4},
		{"zero_a", r3.Vector{}, r3.Vector{Y: 1}, 0},
		{"zero_b", r3.Vector{X: 1}, r3.Vector{}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ScalarProjection(tc.a, tc.b); !almostEqual(got, tc.want) {
				t.Errorf("ScalarProjection(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

// ---------- helpers ----------

func TestIsFinite(t *testing.T) {
	cases := []struct {
		v    r3.Vector
		want bool
	}{
		{r3.Vector{X: 1, Y: 2, Z: 3}, true},
		{r3.Vector{X: math.NaN()}, false},
		{r3.Vector{Y: math.Inf(1)}, false},
		{r3.Vector{Z: math.Inf(-1)}, false},
	}
	for _, tc := range cases {
		if got := IsFinite(tc.v); got != tc.want {
			t.Errorf("IsFinite(%v) = %v, want %v", tc.v, got, tc.want)
		}
	}
}

func TestSign(t *testing.T) {
	if Sign(-3) != -1 || Sign(0) != 0 || Sign(0.001) != 1 {
		t.Errorf("Sign mismatch: %v %v %v", Sign(-3), Sign(0), Sign(0.001))
	}
}

func TestDegreesRadiansRoundTrip(t *testing.T) {
	for _, d := range []float64{0, 30, 90, 180, -45, 359.5} {
		if got := Degrees(Radians(d)); !almostEqual(got, d) {
			t.Errorf("Degrees(Radians(%v)) = %v", d, got)
		}
	}
}

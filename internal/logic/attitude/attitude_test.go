package attitude

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
)

var levelGravity = r3.Vector{Y: -1}

func deg(d float64) float64 { return d * math.Pi / 180 }

func TestRead_CanonicalZeroAttitude(t *testing.T) {
	f := Frame{Forward: r3.Vector{Z: 1}, Up: r3.Vector{Y: 1}}
	got := Read(f, levelGravity)
	if got.Pitch != 0 || got.Roll != 0 || got.Bearing != 0 {
		t.Errorf("Read(level) = %+v, want all zero", got)
	}
	if math.Signbit(got.Pitch) || math.Signbit(got.Roll) || math.Signbit(got.Bearing) {
		t.Errorf("Read(level) = %+v, want positive zeros", got)
	}
}

func TestRead_Idempotent(t *testing.T) {
	f := Frame{
		Forward: r3.Vector{X: 0.3, Y: 0.2, Z: -0.93}.Normalize(),
		Up:      r3.Vector{X: 0.1, Y: 0.97, Z: 0.2}.Normalize(),
	}
	g := r3.Vector{X: -0.4, Y: -9.7, Z: 0.3}
	a := Read(f, g)
	b := Read(f, g)
	if a != b {
		t.Errorf("Read not deterministic: %+v vs %+v", a, b)
	}
}

// ---------- Pitch ----------

func TestPitch(t *testing.T) {
	cases := []struct {
		name  string
		angle float64
		want  float64
	}{
		{"nose_up_30", 30, 30},
		{"nose_down_15", -15, -15},
		{"level", 0, 0},
		{"nose_up_89", 89, 89},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := deg(tc.angle)
			fwd := r3.Vector{Y: math.Sin(a), Z: math.Cos(a)}
			up := r3.Vector{Y: math.Cos(a), Z: -math.Sin(a)}
			got := Pitch(Frame{Forward: fwd, Up: up}, levelGravity)
			if got != tc.want {
				t.Errorf("Pitch = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestPitch_IndependentOfGravityMagnitude(t *testing.T) {
	a := deg(12.5)
	f := Frame{Forward: r3.Vector{Y: math.Sin(a), Z: math.Cos(a)}, Up: r3.Vector{Y: math.Cos(a), Z: -math.Sin(a)}}
	p1 := Pitch(f, r3.Vector{Y: -1})
	p2 := Pitch(f, r3.Vector{Y: -9.81})
	if p1 != p2 {
		t.Errorf("Pitch depends on |g|: %v vs %v", p1, p2)
	}
}

// ---------- Roll ----------

func TestRoll(t *testing.T) {
	cases := []struct {
		name string
		bank float64 // positive banks to the right
		want float64
	}{
		{"right_20", 20, -20},
		{"left_20", -20, 20},
		{"level", 0, 0},
		{"right_45", 45, -45},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := deg(tc.bank)
			f := Frame{
				Forward: r3.Vector{Z: -1},
				Up:      r3.Vector{X: math.Sin(b), Y: math.Cos(b)},
			}
			got := Roll(f, levelGravity)
			if got != tc.want {
				t.Errorf("Roll = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestFrame_ToLocal(t *testing.T) {
	f := Frame{Forward: r3.Vector{Z: -1}, Up: r3.Vector{Y: 1}}
	cases := []struct {
		world, local r3.Vector
	}{
		{r3.Vector{X: 1}, LocalRight},
		{r3.Vector{Y: 1}, LocalUp},
		{r3.Vector{Z: 1}, LocalBackward},
	}
	for _, tc := range cases {
		if got := f.ToLocal(tc.world); got != tc.local {
			t.Errorf("ToLocal(%v) = %v, want %v", tc.world, got, tc.local)
		}
	}
}

// ---------- Bearing ----------

// With gravity along -X, north is -Y and east is +Z.
var sideGravity = r3.Vector{X: -1}

func TestBearing(t *testing.T) {
	cases := []struct {
		name string
		fwd  r3.Vector
		want float64
	}{
		{"north", r3.Vector{Y: -1}, 0},
		{"east", r3.Vector{Z: 1}, 90},
		{"south", r3.Vector{Y: 1}, 180},
		{"west", r3.Vector{Z: -1}, 270},
		{"north_east", r3.Vector{Y: -1, Z: 1}.Normalize(), 45},
		{"north_west", r3.Vector{Y: -1, Z: -1}.Normalize(), 315},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Bearing(Frame{Forward: tc.fwd, Up: r3.Vector{X: 1}}, sideGravity)
			if got != tc.want {
				t.Errorf("Bearing = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestBearing_IgnoresPitch(t *testing.T) {
	// Nose 40° up while heading east.
	a := deg(40)
	fwd := r3.Vector{X: math.Sin(a), Z: math.Cos(a)}
	got := Bearing(Frame{Forward: fwd, Up: r3.Vector{X: math.Cos(a), Z: -math.Sin(a)}}, sideGravity)
	if got != 90 {
		t.Errorf("Bearing = %v, want 90", got)
	}
}

func TestBearing_SnapsJustBelowNorth(t *testing.T) {
	a := deg(0.4)
	fwd := r3.Vector{Y: -math.Cos(a), Z: -math.Sin(a)}
	got := Bearing(Frame{Forward: fwd, Up: r3.Vector{X: 1}}, sideGravity)
	if got != 0 {
		t.Errorf("Bearing = %v, want 0 (snapped from 359.6)", got)
	}
}

func TestBearing_JustBelowSnapThreshold(t *testing.T) {
	a := deg(0.6)
	fwd := r3.Vector{Y: -math.Cos(a), Z: -math.Sin(a)}
	got := Bearing(Frame{Forward: fwd, Up: r3.Vector{X: 1}}, sideGravity)
	if got != 359.4 {
		t.Errorf("Bearing = %v, want 359.4", got)
	}
}

// ---------- degenerate gravity ----------

func TestRead_ZeroGravityIsDefined(t *testing.T) {
	f := Frame{Forward: r3.Vector{X: 0.6, Z: 0.8}, Up: r3.Vector{Y: 1}}
	got := Read(f, r3.Vector{})
	if got != (Attitude{}) {
		t.Errorf("Read(zero gravity) = %+v, want zero attitude", got)
	}
	if HasReference(r3.Vector{}) {
		t.Error("HasReference(zero) = true, want false")
	}
}

func TestHasReference(t *testing.T) {
	cases := []struct {
		g    r3.Vector
		want bool
	}{
		{r3.Vector{Y: -9.81}, true},
		{r3.Vector{}, false},
		{r3.Vector{Y: math.NaN()}, false},
		{r3.Vector{X: math.Inf(-1)}, false},
	}
	for _, tc := range cases {
		if got := HasReference(tc.g); got != tc.want {
			t.Errorf("HasReference(%v) = %v, want %v", tc.g, got, tc.want)
		}
	}
}

func TestRound2(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{1.234, 1.23},
		{-1.236, -1.24},
		{-0.001, 0},
		{359.999, 360},
	}
	for _, tc := range cases {
		if got := round2(tc.in); got != tc.want {
			t.Errorf("round2(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

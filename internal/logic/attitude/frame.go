package attitude

import (
	"github.com/golang/geo/r3"
	matrix "github.com/skelterjohn/go.matrix"

	"github.com/cjeanneret/TrimPilot/internal/logic/geometry"
)

// Local axes of the vehicle frame: +X is right, +Y is up and +Z is backward.
var (
	LocalRight    = r3.Vector{X: 1}
	LocalUp       = r3.Vector{Y: 1}
	LocalBackward = r3.Vector{Z: 1}
)

// WorldDown is the reference "down" axis used to derive east/north.
var WorldDown = r3.Vector{Y: -1}

// Frame is the orientation of the vehicle in world space at one instant.
// Forward and Up are expected to be orthonormal.
type Frame struct {
	Forward r3.Vector
	Up      r3.Vector
}

// Right returns the world-space right axis (Forward × Up).
func (f Frame) Right() r3.Vector {
	return f.Forward.Cross(f.Up)
}

// Backward returns the world-space backward axis.
func (f Frame) Backward() r3.Vector {
	return f.Forward.Mul(-1)
}

// IsFinite reports whether both axes are free of NaN/Inf.
func (f Frame) IsFinite() bool {
	return geometry.IsFinite(f.Forward) && geometry.IsFinite(f.Up)
}

// worldMatrix returns the local-to-world rotation, one column per local axis.
func (f Frame) worldMatrix() *matrix.DenseMatrix {
	r, u, b := f.Right(), f.Up, f.Backward()
	return matrix.MakeDenseMatrixStacked([][]float64{
		{r.X, u.X, b.X},
		{r.Y, u.Y, b.Y},
		{r.Z, u.Z, b.Z},
	})
}

// ToLocal rotates a world-space direction into the vehicle's local frame.
func (f Frame) ToLocal(v r3.Vector) r3.Vector {
	col := matrix.MakeDenseMatrix([]float64{v.X, v.Y, v.Z}, 3, 1)
	out := matrix.Product(f.worldMatrix().Transpose(), col)
	return r3.Vector{X: out.Get(0, 0), Y: out.Get(1, 0), Z: out.Get(2, 0)}
}

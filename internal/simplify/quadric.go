// Package simplify reduces triangle meshes with quadric error metrics and
// greedy edge collapse.
package simplify

import (
	gomath "math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/meshlod/pkg/math"
)

// Quadric is a symmetric 4x4 error matrix stored as its 10 upper-triangle
// coefficients: a², ab, ac, ad, b², bc, bd, c², cd, d².
type Quadric [10]float64

// PlaneQuadric returns the quadric measuring squared distance to the plane
// ax + by + cz + d = 0.
func PlaneQuadric(a, b, c, d float64) Quadric {
	return Quadric{
		a * a, a * b, a * c, a * d,
		b * b, b * c, b * d,
		c * c, c * d,
		d * d,
	}
}

// FaceQuadric builds the quadric of the plane through a triangle. A
// zero-area triangle yields a plane with a zero normal, whose quadric only
// carries the (zero) distance term.
func FaceQuadric(p0, p1, p2 math.Vec3) Quadric {
	v0 := toR3(p0)
	n := r3.Cross(r3.Sub(toR3(p1), v0), r3.Sub(toR3(p2), v0))
	if l := r3.Norm(n); l > 0 {
		n = r3.Scale(1/l, n)
	}
	d := -r3.Dot(n, v0)
	return PlaneQuadric(n.X, n.Y, n.Z, d)
}

// Add returns q + o.
func (q Quadric) Add(o Quadric) Quadric {
	var r Quadric
	for i := range q {
		r[i] = q[i] + o[i]
	}
	return r
}

// Evaluate returns vᵀQv for the homogeneous point (v, 1).
func (q Quadric) Evaluate(v math.Vec3) float64 {
	x, y, z := float64(v.X), float64(v.Y), float64(v.Z)
	return q[0]*x*x + 2*q[1]*x*y + 2*q[2]*x*z + 2*q[3]*x +
		q[4]*y*y + 2*q[5]*y*z + 2*q[6]*y +
		q[7]*z*z + 2*q[8]*z +
		q[9]
}

// singularDet is the determinant magnitude below which the 3x3 block is
// treated as non-invertible.
const singularDet = 1e-12

// Optimal returns the position minimizing the quadric error. It reports
// false when the 3x3 block is singular, as happens for flat or linear
// neighbourhoods.
func (q Quadric) Optimal() (math.Vec3, bool) {
	a := mat.NewSymDense(3, []float64{
		q[0], q[1], q[2],
		q[1], q[4], q[5],
		q[2], q[5], q[7],
	})
	if gomath.Abs(mat.Det(a)) < singularDet {
		return math.Vec3{}, false
	}
	b := mat.NewVecDense(3, []float64{-q[3], -q[6], -q[8]})

	var x mat.VecDense
	if err := x.SolveVec(a, b); err != nil {
		return math.Vec3{}, false
	}
	px, py, pz := x.AtVec(0), x.AtVec(1), x.AtVec(2)
	if !finite(px) || !finite(py) || !finite(pz) {
		return math.Vec3{}, false
	}
	return math.Vec3{X: float32(px), Y: float32(py), Z: float32(pz)}, true
}

func toR3(v math.Vec3) r3.Vec {
	return r3.Vec{X: float64(v.X), Y: float64(v.Y), Z: float64(v.Z)}
}

func finite(f float64) bool {
	return !gomath.IsNaN(f) && !gomath.IsInf(f, 0)
}

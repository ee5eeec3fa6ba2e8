package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/collide/utils"
)

// R3VectorAlmostEqual compares two r3.Vector objects and returns if the all elementwise differences are less than epsilon.
func R3VectorAlmostEqual(a, b r3.Vector, epsilon float64) bool {
	return math.Abs(a.X-b.X) < epsilon && math.Abs(a.Y-b.Y) < epsilon && math.Abs(a.Z-b.Z) < epsilon
}

// R3VectorIsFinite reports whether every component of v is finite.
func R3VectorIsFinite(v r3.Vector) bool {
	return utils.IsFinite(v.X, v.Y, v.Z)
}

// Component returns the i'th (0=X, 1=Y, 2=Z) coordinate of v.
func Component(v r3.Vector, i int) float64 {
	switch i {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// WithComponent returns a copy of v whose i'th coordinate is replaced by value.
func WithComponent(v r3.Vector, i int, value float64) r3.Vector {
	switch i {
	case 0:
		v.X = value
	case 1:
		v.Y = value
	default:
		v.Z = value
	}
	return v
}

// Axis returns the unit vector along the i'th coordinate axis scaled by sign.
func Axis(i int, sign float64) r3.Vector {
	return WithComponent(r3.Vector{}, i, sign)
}

// MinVector returns the componentwise minimum of a and b.
func MinVector(a, b r3.Vector) r3.Vector {
	return r3.Vector{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y), Z: math.Min(a.Z, b.Z)}
}

// MaxVector returns the componentwise maximum of a and b.
func MaxVector(a, b r3.Vector) r3.Vector {
	return r3.Vector{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y), Z: math.Max(a.Z, b.Z)}
}

// OrthonormalBasis returns two unit vectors that together with the unit vector n form a right handed
// orthonormal basis. The construction is branch-stable (Duff et al. 2017).
func OrthonormalBasis(n r3.Vector) (r3.Vector, r3.Vector) {
	sign := utils.CopySign(n.Z)
	a := -1 / (sign + n.Z)
	b := n.X * n.Y * a
	t1 := r3.Vector{X: 1 + sign*n.X*n.X*a, Y: sign * b, Z: -sign * n.X}
	t2 := r3.Vector{X: b, Y: sign + n.Y*n.Y*a, Z: -n.Y}
	return t1, t2
}

// PlaneNormal returns the normal to the plane defined by the 3 points.
func PlaneNormal(p0, p1, p2 r3.Vector) r3.Vector {
	return p1.Sub(p0).Cross(p2.Sub(p0)).Normalize()
}

// SafeNormalize returns v scaled to unit length and its original length, or ok == false if the
// length is below eps or not finite.
func SafeNormalize(v r3.Vector, eps float64) (unit r3.Vector, length float64, ok bool) {
	length = v.Norm()
	if length <= eps || math.IsNaN(length) || math.IsInf(length, 0) {
		return r3.Vector{}, length, false
	}
	return v.Mul(1 / length), length, true
}

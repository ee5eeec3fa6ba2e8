package spatialmath

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/collide/utils"
)

// Quaternion is an orientation in quaternion representation.
type Quaternion quat.Number

// Quaternion returns orientation in quaternion representation.
func (q *Quaternion) Quaternion() quat.Number {
	return quat.Number(*q)
}

// AxisAngles returns the orientation in axis angle representation.
func (q *Quaternion) AxisAngles() *R4AA {
	aa := QuatToR4AA(q.Quaternion())
	return &aa
}

// OrientationVectorRadians returns orientation as an orientation vector (in radians).
func (q *Quaternion) OrientationVectorRadians() *OrientationVector {
	return QuatToOV(q.Quaternion())
}

// OrientationVectorDegrees returns orientation as an orientation vector (in degrees).
func (q *Quaternion) OrientationVectorDegrees() *OrientationVectorDegrees {
	return QuatToOVD(q.Quaternion())
}

// RotationMatrix returns the orientation in rotation matrix representation.
func (q *Quaternion) RotationMatrix() *RotationMatrix {
	return QuatToRotationMatrix(q.Quaternion())
}

// Normalize scales a quaternion to unit length. A zero quaternion becomes the identity; non-finite
// input stays non-finite so that callers can reject it.
func Normalize(q quat.Number) quat.Number {
	norm := quat.Abs(q)
	if norm == 0 {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1/norm, q)
}

// Norm returns the norm of the quaternion, i.e. the sqrt of the squares of the imaginary parts.
func Norm(q quat.Number) float64 {
	return utils.Sqrt(q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag)
}

// Flip will multiply a quaternion by -1, returning a quaternion representing the same orientation but in the opposing octant.
func Flip(q quat.Number) quat.Number {
	return quat.Number{Real: -q.Real, Imag: -q.Imag, Jmag: -q.Jmag, Kmag: -q.Kmag}
}

// QuaternionAlmostEqual is an equality test for two quaternions representing the same rotation.
func QuaternionAlmostEqual(a, b quat.Number, tol float64) bool {
	if a.Real*b.Real+a.Imag*b.Imag+a.Jmag*b.Jmag+a.Kmag*b.Kmag < 0 {
		b = Flip(b)
	}
	return utils.Float64AlmostEqual(a.Real, b.Real, tol) &&
		utils.Float64AlmostEqual(a.Imag, b.Imag, tol) &&
		utils.Float64AlmostEqual(a.Jmag, b.Jmag, tol) &&
		utils.Float64AlmostEqual(a.Kmag, b.Kmag, tol)
}

// QuatIsFinite reports whether every component of q is finite.
func QuatIsFinite(q quat.Number) bool {
	return utils.IsFinite(q.Real, q.Imag, q.Jmag, q.Kmag)
}

// rotateByQuat rotates v by the unit quaternion q.
func rotateByQuat(q quat.Number, v r3.Vector) r3.Vector {
	// v' = v + 2w(u x v) + 2u x (u x v), u being the imaginary part.
	u := r3.Vector{X: q.Imag, Y: q.Jmag, Z: q.Kmag}
	t := u.Cross(v).Mul(2)
	return v.Add(t.Mul(q.Real)).Add(u.Cross(t))
}

func inverseRotateByQuat(q quat.Number, v r3.Vector) r3.Vector {
	return rotateByQuat(quat.Conj(q), v)
}

// slerp interpolates between two unit quaternions along the shorter arc.
func slerp(q1, q2 quat.Number, by float64) quat.Number {
	dot := q1.Real*q2.Real + q1.Imag*q2.Imag + q1.Jmag*q2.Jmag + q1.Kmag*q2.Kmag
	if dot < 0 {
		q2 = Flip(q2)
		dot = -dot
	}
	if dot > 1-1e-9 {
		// nearly parallel, fall back to a normalized lerp
		return Normalize(quat.Add(quat.Scale(1-by, q1), quat.Scale(by, q2)))
	}
	theta := utils.Acos(utils.Clamp(dot, -1, 1))
	sinTheta := utils.Sin(theta)
	s1 := utils.Sin((1-by)*theta) / sinTheta
	s2 := utils.Sin(by*theta) / sinTheta
	return Normalize(quat.Add(quat.Scale(s1, q1), quat.Scale(s2, q2)))
}

// QuatFromAxisAngleVector converts a scaled-axis rotation vector (axis * angle) to a unit quaternion.
func QuatFromAxisAngleVector(v r3.Vector) quat.Number {
	angle := v.Norm()
	if angle < 1e-12 {
		return quat.Number{Real: 1}
	}
	s, c := utils.Sincos(angle / 2)
	axis := v.Mul(1 / angle)
	return quat.Number{Real: c, Imag: axis.X * s, Jmag: axis.Y * s, Kmag: axis.Z * s}
}

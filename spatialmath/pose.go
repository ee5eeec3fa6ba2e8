package spatialmath

import (
	"fmt"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/dualquat"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/collide/utils"
)

// Pose represents a 6dof pose, position and orientation, with respect to the origin.
// The Point() method returns the position in (x,y,z) and the Orientation() method returns
// the orientation of the pose.
type Pose interface {
	Point() r3.Vector
	Orientation() Orientation
}

// NewZeroPose returns a pose at (0,0,0) with same orientation as whatever frame it is placed in.
func NewZeroPose() Pose {
	return newDualQuaternion()
}

// NewPose takes in a position and orientation and returns a Pose.
func NewPose(p r3.Vector, o Orientation) Pose {
	if o == nil {
		return NewPoseFromPoint(p)
	}
	q := newDualQuaternion()
	q.Real = Normalize(o.Quaternion())
	q.SetTranslation(p)
	return q
}

// NewPoseFromOrientation takes in an orientation and returns a Pose at the origin.
func NewPoseFromOrientation(o Orientation) Pose {
	q := newDualQuaternion()
	q.Real = Normalize(o.Quaternion())
	return q
}

// NewPoseFromPoint takes in a cartesian (x,y,z) and stores it as a vector.
// It will have the same orientation as the frame it is in.
func NewPoseFromPoint(point r3.Vector) Pose {
	q := newDualQuaternion()
	q.SetTranslation(point)
	return q
}

// Compose takes in two poses and computes the pose that is a then b: points are transformed by b first.
func Compose(a, b Pose) Pose {
	aq := newDualQuaternionFromPose(a)
	result := &dualQuaternion{aq.Transformation(newDualQuaternionFromPose(b).Number)}

	// Normalization
	if vecLen := 1 / quat.Abs(result.Real); vecLen != 1 {
		result.Real.Real *= vecLen
		result.Real.Imag *= vecLen
		result.Real.Jmag *= vecLen
		result.Real.Kmag *= vecLen
	}
	return result
}

// PoseBetween returns the difference between two dualQuaternions, that is, the dq which if multiplied by one will give
// the other: Compose(a, PoseBetween(a, b)) == b.
func PoseBetween(a, b Pose) Pose {
	return Compose(PoseInverse(a), b)
}

// PoseInverse will return the inverse of a pose. So if a given pose p is the pose of A relative to B, PoseInverse(p)
// will give the pose of B relative to A.
func PoseInverse(p Pose) Pose {
	return &dualQuaternion{dualquat.ConjQuat(newDualQuaternionFromPose(p).Number)}
}

// TransformPoint applies the pose to a point.
func TransformPoint(p Pose, pt r3.Vector) r3.Vector {
	return rotateByQuat(p.Orientation().Quaternion(), pt).Add(p.Point())
}

// RotateVector applies only the rotation of the pose to a direction.
func RotateVector(p Pose, v r3.Vector) r3.Vector {
	return rotateByQuat(p.Orientation().Quaternion(), v)
}

// InverseTransformPoint maps a point expressed in the pose's parent frame into the pose's local frame.
func InverseTransformPoint(p Pose, pt r3.Vector) r3.Vector {
	return inverseRotateByQuat(p.Orientation().Quaternion(), pt.Sub(p.Point()))
}

// InverseRotateVector maps a direction expressed in the pose's parent frame into the pose's local frame.
func InverseRotateVector(p Pose, v r3.Vector) r3.Vector {
	return inverseRotateByQuat(p.Orientation().Quaternion(), v)
}

// Interpolate will return a new Pose that has been interpolated the set amount between two poses.
// Note that position and orientation are interpolated separately, then the two are combined.
// Note that slerp(q1, q2) != slerp(q2, q1)
// p1 and p2 are the two poses to interpolate between, by is a float representing the amount to interpolate between them.
// by == 0 will return p1, by == 1 will return p2, and by == 0.5 will return the pose halfway between them.
func Interpolate(p1, p2 Pose, by float64) Pose {
	pt := p1.Point().Mul(1 - by).Add(p2.Point().Mul(by))
	q := Quaternion(slerp(p1.Orientation().Quaternion(), p2.Orientation().Quaternion(), by))
	return NewPose(pt, &q)
}

// PoseAlmostEqual will return a bool describing whether 2 poses are approximately the same.
func PoseAlmostEqual(a, b Pose) bool {
	return PoseAlmostEqualEps(a, b, 1e-6)
}

// PoseAlmostEqualEps will return a bool describing whether 2 poses are approximately the same.
func PoseAlmostEqualEps(a, b Pose, epsilon float64) bool {
	return R3VectorAlmostEqual(a.Point(), b.Point(), epsilon) && OrientationAlmostEqualEps(a.Orientation(), b.Orientation(), epsilon)
}

// PoseAlmostCoincident will return a bool describing whether 2 poses approximately are at the same 3D coordinate location.
func PoseAlmostCoincident(a, b Pose) bool {
	return R3VectorAlmostEqual(a.Point(), b.Point(), 1e-6)
}

// PoseIsFinite reports whether the translation and rotation of p contain only finite values and the
// rotation is not degenerate.
func PoseIsFinite(p Pose) bool {
	if p == nil {
		return false
	}
	q := p.Orientation().Quaternion()
	if !R3VectorIsFinite(p.Point()) || !QuatIsFinite(q) {
		return false
	}
	return quat.Abs(q) > 1e-12
}

// PoseToString returns a human readable representation of the pose.
func PoseToString(p Pose) string {
	pt := p.Point()
	aa := p.Orientation().AxisAngles()
	return fmt.Sprintf("{X:%.3f Y:%.3f Z:%.3f OX:%.3f OY:%.3f OZ:%.3f Theta:%.3f°}",
		pt.X, pt.Y, pt.Z, aa.RX, aa.RY, aa.RZ, utils.RadToDeg(aa.Theta))
}

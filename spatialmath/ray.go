package spatialmath

import (
	"github.com/golang/geo/r3"
)

// Ray is a half line starting at Origin. Dir need not be unit length; hit times are expressed in
// multiples of Dir.
type Ray struct {
	Origin r3.Vector `json:"origin"`
	Dir    r3.Vector `json:"dir"`
}

// NewRay returns a ray from origin along dir.
func NewRay(origin, dir r3.Vector) Ray {
	return Ray{Origin: origin, Dir: dir}
}

// PointAt returns Origin + t*Dir.
func (r Ray) PointAt(t float64) r3.Vector {
	return r.Origin.Add(r.Dir.Mul(t))
}

// Transform moves the ray by pose.
func (r Ray) Transform(pose Pose) Ray {
	return Ray{Origin: TransformPoint(pose, r.Origin), Dir: RotateVector(pose, r.Dir)}
}

// InverseTransform expresses the ray in the local frame of pose.
func (r Ray) InverseTransform(pose Pose) Ray {
	return Ray{Origin: InverseTransformPoint(pose, r.Origin), Dir: InverseRotateVector(pose, r.Dir)}
}

// IsFinite reports whether the origin and direction are finite.
func (r Ray) IsFinite() bool {
	return R3VectorIsFinite(r.Origin) && R3VectorIsFinite(r.Dir)
}

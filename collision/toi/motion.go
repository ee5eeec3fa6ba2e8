package toi

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/collide/spatialmath"
)

// Motion is a rigid motion with constant linear and angular velocity. The shape rotates about LocalCenter,
// a point given in its own frame, and that point moves at LinVel. Velocities are in the world frame and
// measured per unit of time.
type Motion struct {
	Start       spatialmath.Pose
	LinVel      r3.Vector
	AngVel      r3.Vector
	LocalCenter r3.Vector
}

// NewStaticMotion returns a motion that stays at pose.
func NewStaticMotion(pose spatialmath.Pose) Motion {
	return Motion{Start: pose}
}

// NewLinearMotion returns a translation at constant velocity.
func NewLinearMotion(start spatialmath.Pose, vel r3.Vector) Motion {
	return Motion{Start: start, LinVel: vel}
}

// MotionFromPoses returns the motion that goes from start to end over the unit interval, rotating about
// localCenter along the shortest arc.
func MotionFromPoses(start, end spatialmath.Pose, localCenter r3.Vector) Motion {
	rel := quat.Mul(end.Orientation().Quaternion(), quat.Conj(start.Orientation().Quaternion()))
	aa := spatialmath.QuatToR4AA(rel)
	return Motion{
		Start:       start,
		LinVel:      spatialmath.TransformPoint(end, localCenter).Sub(spatialmath.TransformPoint(start, localCenter)),
		AngVel:      aa.ToR3(),
		LocalCenter: localCenter,
	}
}

// IsStatic reports whether the motion has no velocity at all.
func (m Motion) IsStatic() bool {
	return m.LinVel.Norm2() == 0 && m.AngVel.Norm2() == 0
}

// PositionAt returns the pose at time t.
func (m Motion) PositionAt(t float64) spatialmath.Pose {
	if m.AngVel.Norm2() == 0 {
		return spatialmath.NewPose(m.Start.Point().Add(m.LinVel.Mul(t)), m.Start.Orientation())
	}
	center := spatialmath.TransformPoint(m.Start, m.LocalCenter).Add(m.LinVel.Mul(t))
	q := spatialmath.Quaternion(quat.Mul(spatialmath.QuatFromAxisAngleVector(m.AngVel.Mul(t)), m.Start.Orientation().Quaternion()))
	rotation := spatialmath.NewPoseFromOrientation(&q)
	return spatialmath.NewPose(center.Sub(spatialmath.RotateVector(rotation, m.LocalCenter)), &q)
}

// PointVelocity returns the world velocity at time t of the point of the shape currently at p.
func (m Motion) PointVelocity(t float64, p r3.Vector) r3.Vector {
	center := spatialmath.TransformPoint(m.Start, m.LocalCenter).Add(m.LinVel.Mul(t))
	return m.LinVel.Add(m.AngVel.Cross(p.Sub(center)))
}

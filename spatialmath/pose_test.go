package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestPoseComposition(t *testing.T) {
	a := NewPose(r3.Vector{X: 1, Y: 2, Z: 3}, &R4AA{Theta: math.Pi / 2, RZ: 1})
	b := NewPose(r3.Vector{X: -4, Z: 0.5}, &OrientationVectorDegrees{Theta: 30, OX: 1, OZ: 1})

	// a rotates +x onto +y
	test.That(t, R3VectorAlmostEqual(TransformPoint(a, r3.Vector{X: 1}), r3.Vector{X: 1, Y: 3, Z: 3}, 1e-12), test.ShouldBeTrue)
	test.That(t, R3VectorAlmostEqual(RotateVector(a, r3.Vector{X: 1}), r3.Vector{Y: 1}, 1e-12), test.ShouldBeTrue)

	p := r3.Vector{X: 0.3, Y: -0.7, Z: 2}
	ab := Compose(a, b)
	test.That(t, R3VectorAlmostEqual(TransformPoint(ab, p), TransformPoint(a, TransformPoint(b, p)), 1e-9), test.ShouldBeTrue)
	test.That(t, R3VectorAlmostEqual(InverseTransformPoint(a, TransformPoint(a, p)), p, 1e-9), test.ShouldBeTrue)
	test.That(t, R3VectorAlmostEqual(InverseRotateVector(a, RotateVector(a, p)), p, 1e-9), test.ShouldBeTrue)

	between := PoseBetween(a, b)
	test.That(t, PoseAlmostEqual(Compose(a, between), b), test.ShouldBeTrue)
	test.That(t, PoseAlmostEqual(Compose(a, PoseInverse(a)), NewZeroPose()), test.ShouldBeTrue)
	test.That(t, PoseAlmostCoincident(NewPoseFromOrientation(a.Orientation()), NewZeroPose()), test.ShouldBeTrue)
	test.That(t, R3VectorAlmostEqual(NewPose(p, nil).Point(), p, 1e-12), test.ShouldBeTrue)
}

func TestInterpolate(t *testing.T) {
	p1 := NewZeroPose()
	p2 := NewPose(r3.Vector{X: 2, Y: -4}, &R4AA{Theta: math.Pi / 2, RX: 1})
	test.That(t, PoseAlmostEqual(Interpolate(p1, p2, 0), p1), test.ShouldBeTrue)
	test.That(t, PoseAlmostEqual(Interpolate(p1, p2, 1), p2), test.ShouldBeTrue)

	mid := Interpolate(p1, p2, 0.5)
	test.That(t, R3VectorAlmostEqual(mid.Point(), r3.Vector{X: 1, Y: -2}, 1e-12), test.ShouldBeTrue)
	aa := mid.Orientation().AxisAngles()
	test.That(t, aa.Theta, test.ShouldAlmostEqual, math.Pi/4)
	test.That(t, aa.RX, test.ShouldAlmostEqual, 1)
}

func TestPoseIsFinite(t *testing.T) {
	test.That(t, PoseIsFinite(NewZeroPose()), test.ShouldBeTrue)
	test.That(t, PoseIsFinite(nil), test.ShouldBeFalse)
	test.That(t, PoseIsFinite(NewPoseFromPoint(r3.Vector{X: math.NaN()})), test.ShouldBeFalse)
	test.That(t, PoseIsFinite(NewPoseFromPoint(r3.Vector{Z: math.Inf(-1)})), test.ShouldBeFalse)
	nanQuat := Quaternion{Real: math.NaN()}
	test.That(t, PoseIsFinite(NewPose(r3.Vector{}, &nanQuat)), test.ShouldBeFalse)

	err := NewNonFinitePoseError()
	test.That(t, IsConfigurationError(err), test.ShouldBeTrue)
	test.That(t, PoseToString(NewPoseFromPoint(r3.Vector{X: 1})), test.ShouldContainSubstring, "X:1.000")
}

func TestSegments(t *testing.T) {
	a, b := r3.Vector{}, r3.Vector{X: 2}
	pt, param := ProjectPointOnSegment(a, b, r3.Vector{X: 0.5, Y: 1})
	test.That(t, pt, test.ShouldResemble, r3.Vector{X: 0.5})
	test.That(t, param, test.ShouldEqual, 0.25)
	pt, param = ProjectPointOnSegment(a, b, r3.Vector{X: 3})
	test.That(t, pt, test.ShouldResemble, b)
	test.That(t, param, test.ShouldEqual, 1)
	pt, _ = ProjectPointOnSegment(a, a, r3.Vector{X: 3})
	test.That(t, pt, test.ShouldResemble, a)

	test.That(t, DistToLineSegment(a, b, r3.Vector{X: 1, Z: 3}), test.ShouldAlmostEqual, 3)
	// crossing segments one unit apart
	test.That(t, SegmentDistanceToSegment(
		r3.Vector{X: -1}, r3.Vector{X: 1},
		r3.Vector{Y: -1, Z: 1}, r3.Vector{Y: 1, Z: 1},
	), test.ShouldAlmostEqual, 1)
}

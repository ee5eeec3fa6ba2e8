package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/collide/utils"
)

// represent a 45 degree rotation around the x axis in all the representations
var (
	th     = math.Pi / 4.
	q45x   = quat.Number{Real: math.Cos(th / 2.), Imag: math.Sin(th / 2.), Jmag: 0, Kmag: 0} // in quaternion representation
	aa45x  = &R4AA{th, 1., 0., 0.}                                                           // in axis-angle representation
	ov45x  = &OrientationVector{2. * th, 0., -math.Sqrt(2) / 2., math.Sqrt(2) / 2.}          // in orientation vector representation
	ovd45x = &OrientationVectorDegrees{2 * utils.RadToDeg(th), 0., -math.Sqrt(2) / 2, math.Sqrt(2) / 2}
	rm45x  = QuatToRotationMatrix(q45x)
)

func checkAll45x(t *testing.T, o Orientation) {
	t.Helper()
	ov := o.OrientationVectorRadians()
	test.That(t, ov.Theta, test.ShouldAlmostEqual, ov45x.Theta)
	test.That(t, ov.OX, test.ShouldAlmostEqual, ov45x.OX)
	test.That(t, ov.OY, test.ShouldAlmostEqual, ov45x.OY)
	test.That(t, ov.OZ, test.ShouldAlmostEqual, ov45x.OZ)
	ovd := o.OrientationVectorDegrees()
	test.That(t, ovd.Theta, test.ShouldAlmostEqual, ovd45x.Theta)
	test.That(t, ovd.OX, test.ShouldAlmostEqual, ovd45x.OX)
	test.That(t, ovd.OY, test.ShouldAlmostEqual, ovd45x.OY)
	test.That(t, ovd.OZ, test.ShouldAlmostEqual, ovd45x.OZ)
	test.That(t, QuaternionAlmostEqual(o.Quaternion(), q45x, 1e-9), test.ShouldBeTrue)
	aa := o.AxisAngles()
	test.That(t, aa.Theta, test.ShouldAlmostEqual, aa45x.Theta)
	test.That(t, aa.RX, test.ShouldAlmostEqual, aa45x.RX)
	test.That(t, aa.RY, test.ShouldAlmostEqual, aa45x.RY)
	test.That(t, aa.RZ, test.ShouldAlmostEqual, aa45x.RZ)
	rm := o.RotationMatrix()
	for i := 0; i < 3; i++ {
		test.That(t, R3VectorAlmostEqual(rm.Row(i), rm45x.Row(i), 1e-9), test.ShouldBeTrue)
	}
}

func TestZeroOrientation(t *testing.T) {
	zero := NewZeroOrientation()
	test.That(t, zero.OrientationVectorRadians(), test.ShouldResemble, NewOrientationVector())
	test.That(t, zero.OrientationVectorDegrees(), test.ShouldResemble, NewOrientationVectorDegrees())
	test.That(t, zero.AxisAngles(), test.ShouldResemble, NewR4AA())
	test.That(t, zero.Quaternion(), test.ShouldResemble, quat.Number{Real: 1, Imag: 0, Jmag: 0, Kmag: 0})
}

func TestOrientationRepresentations(t *testing.T) {
	qq45x := Quaternion(q45x)
	for name, o := range map[string]Orientation{
		"quaternion":                 &qq45x,
		"axis angles":                aa45x,
		"orientation vector":         ov45x,
		"orientation vector degrees": ovd45x,
		"rotation matrix":            rm45x,
	} {
		t.Run(name, func(t *testing.T) {
			checkAll45x(t, o)
		})
	}
}

func TestOrientationRoundTrips(t *testing.T) {
	for _, d := range []R4AA{{1, 1, 1, 1}, {1, 1, 0, 0}, {1, 0, 1, 0}, {1, 0, 0, 1}, {3, -1, 2, 0.5}} {
		d.Normalize()
		q := Quaternion(d.Quaternion())
		d2 := q.AxisAngles()
		test.That(t, d2.Theta, test.ShouldAlmostEqual, d.Theta)
		test.That(t, d2.RX, test.ShouldAlmostEqual, d.RX)
		test.That(t, d2.RY, test.ShouldAlmostEqual, d.RY)
		test.That(t, d2.RZ, test.ShouldAlmostEqual, d.RZ)

		back := R3ToR4(d.ToR3())
		test.That(t, back.Theta, test.ShouldAlmostEqual, d.Theta)
		test.That(t, QuaternionAlmostEqual(QuatFromAxisAngleVector(d.ToR3()), d.Quaternion(), 1e-9), test.ShouldBeTrue)
	}

	for _, d := range []OrientationVector{{1, 1, 1, 1}, {1, 1, 0, 0}, {1, 0, 1, 0}, {1, 0, 0, 1}, {-2, 0.3, -0.2, -1}} {
		d.Normalize()
		q := Quaternion(d.Quaternion())
		d2 := q.OrientationVectorRadians()
		test.That(t, d2.Theta, test.ShouldAlmostEqual, d.Theta)
		test.That(t, d2.OX, test.ShouldAlmostEqual, d.OX)
		test.That(t, d2.OY, test.ShouldAlmostEqual, d.OY)
		test.That(t, d2.OZ, test.ShouldAlmostEqual, d.OZ)
	}
}

func TestSlerp(t *testing.T) {
	q1 := q45x
	q2 := quat.Conj(q45x)
	s1 := slerp(q1, q2, 0.25)
	s2 := slerp(q1, q2, 0.5)

	expect1 := quat.Number{Real: 0.9808, Imag: 0.1951, Jmag: 0, Kmag: 0}
	expect2 := quat.Number{Real: 1, Imag: 0, Jmag: 0, Kmag: 0}

	test.That(t, QuaternionAlmostEqual(s1, expect1, 0.001), test.ShouldBeTrue)
	test.That(t, QuaternionAlmostEqual(s2, expect2, 1e-9), test.ShouldBeTrue)
}

func TestOrientationTransform(t *testing.T) {
	aa := &R4AA{Theta: math.Pi / 2., RX: 0., RY: 1., RZ: 0.}
	ovd := &OrientationVectorDegrees{Theta: 0.0, OX: 1., OY: 0.0, OZ: 0.0}
	ovdResult := aa.OrientationVectorDegrees()
	aaResult := ovd.AxisAngles()
	test.That(t, ovdResult.Theta, test.ShouldAlmostEqual, ovd.Theta)
	test.That(t, ovdResult.OX, test.ShouldAlmostEqual, ovd.OX)
	test.That(t, ovdResult.OY, test.ShouldAlmostEqual, ovd.OY)
	test.That(t, ovdResult.OZ, test.ShouldAlmostEqual, ovd.OZ)
	test.That(t, aaResult.Theta, test.ShouldAlmostEqual, aa.Theta)
	test.That(t, aaResult.RX, test.ShouldAlmostEqual, aa.RX)
	test.That(t, aaResult.RY, test.ShouldAlmostEqual, aa.RY)
	test.That(t, aaResult.RZ, test.ShouldAlmostEqual, aa.RZ)
}

func TestOrientationBetween(t *testing.T) {
	aa := &R4AA{Theta: math.Pi / 2., RX: 0., RY: 1., RZ: 0.}
	btw := OrientationBetween(aa, ov45x).OrientationVectorDegrees()
	result := &OrientationVectorDegrees{Theta: 135.0, OX: -1., OY: 0.0, OZ: 0.0}
	test.That(t, result.Theta, test.ShouldAlmostEqual, btw.Theta)
	test.That(t, result.OX, test.ShouldAlmostEqual, btw.OX)
	test.That(t, result.OY, test.ShouldAlmostEqual, btw.OY)
	test.That(t, result.OZ, test.ShouldAlmostEqual, btw.OZ)

	inv := OrientationInverse(aa)
	test.That(t, OrientationAlmostEqual(OrientationBetween(aa, NewZeroOrientation()), inv), test.ShouldBeTrue)
}

func TestRotationMatrix(t *testing.T) {
	v := r3.Vector{X: 0.3, Y: -1, Z: 2}
	rotated := rm45x.Mul(v)
	test.That(t, R3VectorAlmostEqual(rotated, rotateByQuat(q45x, v), 1e-12), test.ShouldBeTrue)
	test.That(t, R3VectorAlmostEqual(rm45x.MulTranspose(rotated), v, 1e-12), test.ShouldBeTrue)
	test.That(t, rm45x.Col(0), test.ShouldResemble, r3.Vector{X: 1})
	test.That(t, rm45x.At(1, 1), test.ShouldAlmostEqual, math.Cos(th))
}

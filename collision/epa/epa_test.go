package epa

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/collide/collision/gjk"
	"go.viam.com/collide/spatialmath"
)

type testBall struct {
	radius float64
}

func (b testBall) LocalSupportPoint(dir r3.Vector) r3.Vector {
	n := dir.Norm()
	if n == 0 {
		return r3.Vector{X: b.radius}
	}
	return dir.Mul(b.radius / n)
}

type testBox struct {
	half r3.Vector
}

func (b testBox) LocalSupportPoint(dir r3.Vector) r3.Vector {
	pick := func(d, h float64) float64 {
		if d >= 0 {
			return h
		}
		return -h
	}
	return r3.Vector{X: pick(dir.X, b.half.X), Y: pick(dir.Y, b.half.Y), Z: pick(dir.Z, b.half.Z)}
}

var unitBox = testBox{half: r3.Vector{X: 1, Y: 1, Z: 1}}

// penetrate runs GJK and hands its final simplex to EPA.
func penetrate(t *testing.T, pos12 spatialmath.Pose, g1, g2 gjk.SupportMap) (Result, bool) {
	t.Helper()
	simplex := gjk.InitialSimplex(pos12, g1, g2)
	res := gjk.ClosestPoints(pos12, g1, g2, 0, true, simplex, gjk.DefaultConfig())
	test.That(t, res.Status, test.ShouldEqual, gjk.Intersection)
	return Penetration(pos12, g1, g2, simplex, DefaultConfig())
}

func TestPenetration(t *testing.T) {
	t.Run("overlapping boxes", func(t *testing.T) {
		pos12 := spatialmath.NewPoseFromPoint(r3.Vector{X: 1.5, Y: 0.2})
		res, ok := penetrate(t, pos12, unitBox, unitBox)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, res.Approximate, test.ShouldBeFalse)
		test.That(t, res.Depth, test.ShouldAlmostEqual, 0.5, 1e-9)
		test.That(t, spatialmath.R3VectorAlmostEqual(res.Normal, r3.Vector{X: 1}, 1e-9), test.ShouldBeTrue)
		test.That(t, res.Point1.X, test.ShouldAlmostEqual, 1, 1e-9)
		test.That(t, res.Point2.X, test.ShouldAlmostEqual, 0.5, 1e-9)
	})

	t.Run("overlapping spheres", func(t *testing.T) {
		pos12 := spatialmath.NewPoseFromPoint(r3.Vector{X: 0.5})
		res, ok := penetrate(t, pos12, testBall{1}, testBall{1})
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, res.Depth, test.ShouldAlmostEqual, 1.5, 1e-3)
		test.That(t, res.Normal.Norm(), test.ShouldAlmostEqual, 1, 1e-9)
		test.That(t, res.Normal.X, test.ShouldAlmostEqual, 1, 1e-2)
		diff := res.Point1.Sub(res.Point2)
		test.That(t, spatialmath.R3VectorAlmostEqual(diff, res.Normal.Mul(res.Depth), 1e-6), test.ShouldBeTrue)
	})

	t.Run("concentric boxes", func(t *testing.T) {
		res, ok := penetrate(t, spatialmath.NewZeroPose(), unitBox, unitBox)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, res.Depth, test.ShouldAlmostEqual, 2, 1e-9)
		test.That(t, res.Normal.Norm(), test.ShouldAlmostEqual, 1, 1e-9)
		axisAligned := math.Abs(res.Normal.X) > 1-1e-9 || math.Abs(res.Normal.Y) > 1-1e-9 || math.Abs(res.Normal.Z) > 1-1e-9
		test.That(t, axisAligned, test.ShouldBeTrue)
	})

	t.Run("rotated box into box", func(t *testing.T) {
		pos12 := spatialmath.NewPose(r3.Vector{X: 2.2}, &spatialmath.R4AA{Theta: math.Pi / 4, RZ: 1})
		res, ok := penetrate(t, pos12, unitBox, unitBox)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, res.Depth, test.ShouldAlmostEqual, math.Sqrt2-1.2, 1e-9)
		test.That(t, spatialmath.R3VectorAlmostEqual(res.Normal, r3.Vector{X: 1}, 1e-9), test.ShouldBeTrue)
	})

	t.Run("iteration cap", func(t *testing.T) {
		pos12 := spatialmath.NewPoseFromPoint(r3.Vector{X: 0.5, Y: 0.3, Z: 0.1})
		simplex := gjk.InitialSimplex(pos12, testBall{1}, testBall{1})
		gjk.ClosestPoints(pos12, testBall{1}, testBall{1}, 0, true, simplex, gjk.DefaultConfig())
		res, ok := Penetration(pos12, testBall{1}, testBall{1}, simplex, Config{MaxIterations: 1, Epsilon: 1e-12})
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, res.Approximate, test.ShouldBeTrue)
		test.That(t, res.Depth, test.ShouldBeGreaterThan, 0)
		test.That(t, res.Depth, test.ShouldBeLessThanOrEqualTo, 2-pos12.Point().Norm()+1e-9)
	})

	t.Run("empty simplex", func(t *testing.T) {
		_, ok := Penetration(spatialmath.NewZeroPose(), unitBox, unitBox, &gjk.Simplex{}, DefaultConfig())
		test.That(t, ok, test.ShouldBeFalse)
	})
}

func TestConfigValidate(t *testing.T) {
	test.That(t, DefaultConfig().Validate(), test.ShouldBeNil)
	err := Config{MaxIterations: 0, Epsilon: 2}.Validate()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "max_iterations")
	test.That(t, err.Error(), test.ShouldContainSubstring, "epsilon")
}

package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestAABB(t *testing.T) {
	box := NewAABB(r3.Vector{X: 1, Y: 1, Z: 1}, r3.Vector{X: -1, Y: -1, Z: -1})
	test.That(t, box.Min, test.ShouldResemble, r3.Vector{X: -1, Y: -1, Z: -1})
	test.That(t, box.IsValid(), test.ShouldBeTrue)
	test.That(t, box.Volume(), test.ShouldEqual, 8)
	test.That(t, box.SurfaceArea(), test.ShouldEqual, 24)
	test.That(t, box.Center(), test.ShouldResemble, r3.Vector{})

	t.Run("set operations", func(t *testing.T) {
		other := NewAABBFromHalfExtents(r3.Vector{X: 2}, r3.Vector{X: 1, Y: 1, Z: 1})
		test.That(t, box.Overlaps(other), test.ShouldBeTrue)
		test.That(t, box.Overlaps(other.Translated(r3.Vector{X: 0.01})), test.ShouldBeFalse)
		union := box.Union(other)
		test.That(t, union, test.ShouldResemble, AABB{Min: r3.Vector{X: -1, Y: -1, Z: -1}, Max: r3.Vector{X: 3, Y: 1, Z: 1}})
		test.That(t, union.Contains(box), test.ShouldBeTrue)
		test.That(t, box.Contains(union), test.ShouldBeFalse)
		test.That(t, box.Loosened(0.5).Contains(box), test.ShouldBeTrue)

		empty := EmptyAABB()
		test.That(t, empty.IsValid(), test.ShouldBeFalse)
		test.That(t, empty.Union(box), test.ShouldResemble, box)
		test.That(t, NewAABBFromPoints(), test.ShouldResemble, empty)
		test.That(t, NewAABBFromPoints(r3.Vector{X: 2}, r3.Vector{Y: -1}).Max, test.ShouldResemble, r3.Vector{X: 2})
	})

	t.Run("points", func(t *testing.T) {
		test.That(t, box.ContainsPoint(r3.Vector{X: 1}), test.ShouldBeTrue)
		test.That(t, box.ContainsPoint(r3.Vector{X: 1.1}), test.ShouldBeFalse)
		test.That(t, box.ClosestPoint(r3.Vector{X: 3, Y: 0.5, Z: -4}), test.ShouldResemble, r3.Vector{X: 1, Y: 0.5, Z: -1})
		test.That(t, box.DistanceToPoint(r3.Vector{X: 4}), test.ShouldEqual, 3)
		test.That(t, box.DistanceToPoint(r3.Vector{}), test.ShouldEqual, 0)
		for _, v := range box.Vertices() {
			test.That(t, math.Abs(v.X)+math.Abs(v.Y)+math.Abs(v.Z), test.ShouldEqual, 3)
		}
		test.That(t, box.BoundingSphere().Radius, test.ShouldAlmostEqual, math.Sqrt(3))
	})

	t.Run("transform", func(t *testing.T) {
		local := NewAABBFromHalfExtents(r3.Vector{}, r3.Vector{X: 1, Y: 2, Z: 3})
		moved := local.Transform(NewPose(r3.Vector{X: 10}, &R4AA{Theta: math.Pi / 2, RZ: 1}))
		test.That(t, R3VectorAlmostEqual(moved.Center(), r3.Vector{X: 10}, 1e-12), test.ShouldBeTrue)
		test.That(t, R3VectorAlmostEqual(moved.HalfExtents(), r3.Vector{X: 2, Y: 1, Z: 3}, 1e-12), test.ShouldBeTrue)

		// a 45 degree turn grows the box to enclose the rotated corners
		turned := local.Transform(NewPoseFromOrientation(&R4AA{Theta: math.Pi / 4, RZ: 1}))
		test.That(t, turned.HalfExtents().X, test.ShouldAlmostEqual, 3/math.Sqrt2)
	})
}

func TestAABBRayCast(t *testing.T) {
	box := NewAABBFromHalfExtents(r3.Vector{}, r3.Vector{X: 1, Y: 1, Z: 1})

	toi, normal, hit := box.CastLocalRay(NewRay(r3.Vector{X: -5}, r3.Vector{X: 1}), 10, true)
	test.That(t, hit, test.ShouldBeTrue)
	test.That(t, toi, test.ShouldEqual, 4)
	test.That(t, normal, test.ShouldResemble, r3.Vector{X: -1})

	_, _, hit = box.CastLocalRay(NewRay(r3.Vector{X: -5}, r3.Vector{X: 1}), 3, true)
	test.That(t, hit, test.ShouldBeFalse)
	_, _, hit = box.CastLocalRay(NewRay(r3.Vector{X: -5, Y: 2}, r3.Vector{X: 1}), 10, true)
	test.That(t, hit, test.ShouldBeFalse)
	_, _, hit = box.CastLocalRay(NewRay(r3.Vector{X: 5}, r3.Vector{X: 1}), 10, true)
	test.That(t, hit, test.ShouldBeFalse)

	toi, _, hit = box.CastLocalRay(NewRay(r3.Vector{}, r3.Vector{Z: 2}), 10, true)
	test.That(t, hit, test.ShouldBeTrue)
	test.That(t, toi, test.ShouldEqual, 0)

	toi, normal, hit = box.CastLocalRay(NewRay(r3.Vector{}, r3.Vector{Z: 2}), 10, false)
	test.That(t, hit, test.ShouldBeTrue)
	test.That(t, toi, test.ShouldEqual, 0.5)
	test.That(t, normal, test.ShouldResemble, r3.Vector{Z: 1})
}

func TestBoundingSphere(t *testing.T) {
	a := BoundingSphere{Center: r3.Vector{}, Radius: 1}
	b := BoundingSphere{Center: r3.Vector{X: 4}, Radius: 1}
	test.That(t, a.Intersects(b), test.ShouldBeFalse)
	test.That(t, a.Loosened(1).Intersects(b), test.ShouldBeFalse)
	// touching spheres share a point
	test.That(t, a.Loosened(2).Intersects(b), test.ShouldBeTrue)
	test.That(t, a.Loosened(2.5).Intersects(b), test.ShouldBeTrue)

	merged := a.Merged(b)
	test.That(t, merged.Center, test.ShouldResemble, r3.Vector{X: 2})
	test.That(t, merged.Radius, test.ShouldEqual, 3)
	test.That(t, merged.Contains(a), test.ShouldBeTrue)
	test.That(t, merged.Contains(b), test.ShouldBeTrue)
	test.That(t, a.Merged(a.Tightened(0.5)), test.ShouldResemble, a)
	test.That(t, a.Tightened(5).Radius, test.ShouldEqual, 0)

	moved := a.Transform(NewPoseFromPoint(r3.Vector{Y: 3}))
	test.That(t, R3VectorAlmostEqual(moved.Center, r3.Vector{Y: 3}, 1e-12), test.ShouldBeTrue)
	test.That(t, moved.AABB().Max.Y, test.ShouldAlmostEqual, 4)
}

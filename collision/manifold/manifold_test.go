package manifold

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/collide/shape"
	"go.viam.com/collide/spatialmath"
)

func makeCuboid(t *testing.T, half float64) *shape.Cuboid {
	t.Helper()
	c, err := shape.NewCuboid(r3.Vector{X: half, Y: half, Z: half})
	test.That(t, err, test.ShouldBeNil)
	return c
}

// clipCuboids clips the faces of two cuboids along normal1.
func clipCuboids(c1, c2 *shape.Cuboid, pos12 spatialmath.Pose, normal1 r3.Vector, prediction float64, cfg Config) Manifold {
	f1 := c1.LocalSupportFeature(normal1)
	f2 := c2.LocalSupportFeature(spatialmath.InverseRotateVector(pos12, normal1.Mul(-1)))
	return Clip(pos12, f1, f2, normal1, prediction, cfg)
}

func ids(m Manifold) [][2]shape.FeatureID {
	out := make([][2]shape.FeatureID, 0, m.Len())
	for i := 0; i < m.Len(); i++ {
		out = append(out, [2]shape.FeatureID{m.Points[i].ID1, m.Points[i].ID2})
	}
	return out
}

func TestClipStackedCuboids(t *testing.T) {
	box := makeCuboid(t, 1)
	up := r3.Vector{Z: 1}

	t.Run("face on face", func(t *testing.T) {
		pos12 := spatialmath.NewPoseFromPoint(r3.Vector{Z: 1.9})
		m := clipCuboids(box, box, pos12, up, 0, DefaultConfig())
		test.That(t, m.Len(), test.ShouldEqual, 4)
		test.That(t, spatialmath.R3VectorAlmostEqual(m.Normal2, r3.Vector{Z: -1}, 1e-12), test.ShouldBeTrue)
		for i := 0; i < m.Len(); i++ {
			p := m.Points[i]
			test.That(t, p.Dist, test.ShouldAlmostEqual, -0.1, 1e-12)
			test.That(t, p.LocalPoint1.Z, test.ShouldAlmostEqual, 1, 1e-12)
			test.That(t, p.LocalPoint2.Z, test.ShouldAlmostEqual, -1, 1e-12)
			// the first shape holds the reference face and the incident corners keep their vertex ids
			test.That(t, p.ID1, test.ShouldEqual, shape.FaceID(2))
			test.That(t, p.ID2.Type(), test.ShouldEqual, shape.FeatureVertex)
		}
	})

	t.Run("rotated square clips to four of eight points", func(t *testing.T) {
		pos12 := spatialmath.NewPose(r3.Vector{Z: 1.9}, &spatialmath.R4AA{Theta: math.Pi / 4, RZ: 1})
		m := clipCuboids(box, box, pos12, up, 0, DefaultConfig())
		test.That(t, m.Len(), test.ShouldEqual, MaxPoints)
		for i := 0; i < m.Len(); i++ {
			p := m.Points[i]
			test.That(t, p.Dist, test.ShouldAlmostEqual, -0.1, 1e-9)
			test.That(t, math.Abs(p.LocalPoint1.X), test.ShouldBeLessThanOrEqualTo, 1+1e-9)
			test.That(t, math.Abs(p.LocalPoint1.Y), test.ShouldBeLessThanOrEqualTo, 1+1e-9)
			test.That(t, p.ID1.Type(), test.ShouldEqual, shape.FeatureEdge)
			test.That(t, p.ID2.Type(), test.ShouldEqual, shape.FeatureEdge)
		}
		// the kept points are in clip order, so they form a convex quadrilateral spanning the octagon
		var area float64
		for i := 1; i+1 < m.Len(); i++ {
			a := m.Points[i].LocalPoint1.Sub(m.Points[0].LocalPoint1)
			b := m.Points[i+1].LocalPoint1.Sub(m.Points[0].LocalPoint1)
			area += a.Cross(b).Norm() / 2
		}
		test.That(t, area, test.ShouldBeGreaterThan, 2)
	})

	t.Run("ids are stable under small motion", func(t *testing.T) {
		m1 := clipCuboids(box, box, spatialmath.NewPoseFromPoint(r3.Vector{X: 0.3, Z: 1.9}), up, 0, DefaultConfig())
		m2 := clipCuboids(box, box, spatialmath.NewPoseFromPoint(r3.Vector{X: 0.31, Z: 1.91}), up, 0, DefaultConfig())
		test.That(t, m1.Len(), test.ShouldEqual, 4)
		test.That(t, ids(m1), test.ShouldResemble, ids(m2))

		var clipped int
		for _, pair := range ids(m1) {
			if pair[0].Type() == shape.FeatureEdge {
				clipped++
				test.That(t, pair[1].Type(), test.ShouldEqual, shape.FeatureEdge)
			}
		}
		test.That(t, clipped, test.ShouldEqual, 2)
	})

	t.Run("prediction", func(t *testing.T) {
		pos12 := spatialmath.NewPoseFromPoint(r3.Vector{Z: 2.05})
		m := clipCuboids(box, box, pos12, up, 0.1, DefaultConfig())
		test.That(t, m.Len(), test.ShouldEqual, 4)
		test.That(t, m.Points[0].Dist, test.ShouldAlmostEqual, 0.05, 1e-12)

		m = clipCuboids(box, box, pos12, up, 0.01, DefaultConfig())
		test.That(t, m.Len(), test.ShouldEqual, 0)
	})
}

func TestReferenceFaceTieBreak(t *testing.T) {
	small, big := makeCuboid(t, 0.8), makeCuboid(t, 1)
	rot := &spatialmath.R4AA{Theta: 0.01, RX: 1}
	pos12 := spatialmath.NewPose(r3.Vector{Z: 1.78}, rot)
	// the contact normal follows the face of the second box, so its face is the better aligned one
	normal1 := spatialmath.RotateVector(pos12, r3.Vector{Z: 1})

	// within the tie band the first face is the reference and clips the larger incident face
	m := clipCuboids(small, big, pos12, normal1, 0.1, DefaultConfig())
	test.That(t, m.Len(), test.ShouldEqual, 4)
	for i := 0; i < m.Len(); i++ {
		test.That(t, m.Points[i].ID1.Type(), test.ShouldEqual, shape.FeatureEdge)
		test.That(t, m.Points[i].ID2.Type(), test.ShouldNotEqual, shape.FeatureFace)
		test.That(t, m.Points[i].Dist, test.ShouldBeLessThan, 0)
	}

	m = clipCuboids(small, big, pos12, normal1, 0.1, Config{TieBreakEpsilon: 0})
	test.That(t, m.Len(), test.ShouldEqual, 4)
	for i := 0; i < m.Len(); i++ {
		test.That(t, m.Points[i].ID2, test.ShouldEqual, shape.FaceID(5))
		test.That(t, m.Points[i].ID1.Type(), test.ShouldEqual, shape.FeatureVertex)
		test.That(t, m.Points[i].Dist, test.ShouldBeLessThan, 0)
	}
}

func TestClipSegments(t *testing.T) {
	seg, err := shape.NewSegment(r3.Vector{X: -1}, r3.Vector{X: 1})
	test.That(t, err, test.ShouldBeNil)
	up := r3.Vector{Z: 1}

	t.Run("parallel edges", func(t *testing.T) {
		pos12 := spatialmath.NewPoseFromPoint(r3.Vector{X: 0.5, Z: 0.2})
		f1 := seg.LocalSupportFeature(up)
		f2 := seg.LocalSupportFeature(up.Mul(-1))
		m := Clip(pos12, f1, f2, up, 1, DefaultConfig())
		test.That(t, m.Len(), test.ShouldEqual, 2)

		test.That(t, m.Points[0].LocalPoint1.X, test.ShouldAlmostEqual, -0.5, 1e-12)
		test.That(t, m.Points[0].LocalPoint2.X, test.ShouldAlmostEqual, -1, 1e-12)
		test.That(t, m.Points[0].ID1, test.ShouldEqual, shape.EdgeID(0))
		test.That(t, m.Points[0].ID2, test.ShouldEqual, shape.VertexID(0))

		test.That(t, m.Points[1].LocalPoint1.X, test.ShouldAlmostEqual, 1, 1e-12)
		test.That(t, m.Points[1].LocalPoint2.X, test.ShouldAlmostEqual, 0.5, 1e-12)
		test.That(t, m.Points[1].ID1, test.ShouldEqual, shape.VertexID(1))
		test.That(t, m.Points[1].ID2, test.ShouldEqual, shape.EdgeID(0))

		for i := 0; i < m.Len(); i++ {
			test.That(t, m.Points[i].Dist, test.ShouldAlmostEqual, 0.2, 1e-12)
		}
	})

	t.Run("crossing edges", func(t *testing.T) {
		pos12 := spatialmath.NewPose(r3.Vector{X: 0.25, Z: 0.2}, &spatialmath.R4AA{Theta: math.Pi / 2, RZ: 1})
		f1 := seg.LocalSupportFeature(up)
		f2 := seg.LocalSupportFeature(up.Mul(-1))
		m := Clip(pos12, f1, f2, up, 1, DefaultConfig())
		test.That(t, m.Len(), test.ShouldEqual, 1)
		p := m.Points[0]
		test.That(t, spatialmath.R3VectorAlmostEqual(p.LocalPoint1, r3.Vector{X: 0.25}, 1e-12), test.ShouldBeTrue)
		test.That(t, p.Dist, test.ShouldAlmostEqual, 0.2, 1e-12)
		test.That(t, p.ID1, test.ShouldEqual, shape.EdgeID(0))
		test.That(t, p.ID2, test.ShouldEqual, shape.EdgeID(0))
	})

	t.Run("edge on face", func(t *testing.T) {
		box := makeCuboid(t, 1)
		pos12 := spatialmath.NewPoseFromPoint(r3.Vector{X: 0.5, Z: 0.95})
		f1 := box.LocalSupportFeature(up)
		f2 := seg.LocalSupportFeature(up.Mul(-1))
		m := Clip(pos12, f1, f2, up, 0, DefaultConfig())
		test.That(t, m.Len(), test.ShouldEqual, 2)
		test.That(t, m.Points[0].ID2, test.ShouldEqual, shape.VertexID(0))
		test.That(t, m.Points[1].ID1.Type(), test.ShouldEqual, shape.FeatureEdge)
		test.That(t, m.Points[1].LocalPoint1.X, test.ShouldAlmostEqual, 1, 1e-12)
		test.That(t, m.Points[1].Dist, test.ShouldAlmostEqual, -0.05, 1e-12)
	})
}

func TestFromContactAndFlip(t *testing.T) {
	pos12 := spatialmath.NewPose(r3.Vector{X: 3}, &spatialmath.R4AA{Theta: math.Pi, RZ: 1})
	m := FromContact(pos12, r3.Vector{X: 1}, r3.Vector{X: 1}, r3.Vector{X: 1}, 1, shape.FaceID(0), shape.VertexID(3))
	test.That(t, m.Len(), test.ShouldEqual, 1)
	test.That(t, spatialmath.R3VectorAlmostEqual(m.Normal2, r3.Vector{X: 1}, 1e-12), test.ShouldBeTrue)

	deepest, ok := m.Deepest()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, deepest.Dist, test.ShouldEqual, 1.)

	flipped := m.Flipped()
	test.That(t, flipped.Normal1, test.ShouldResemble, m.Normal2)
	test.That(t, flipped.Points[0].ID1, test.ShouldEqual, shape.VertexID(3))
	test.That(t, flipped.Points[0].ID2, test.ShouldEqual, shape.FaceID(0))
	test.That(t, flipped.Flipped(), test.ShouldResemble, m)

	var empty Manifold
	_, ok = empty.Deepest()
	test.That(t, ok, test.ShouldBeFalse)
	for i := 0; i < MaxPoints; i++ {
		test.That(t, empty.Add(Point{}), test.ShouldBeTrue)
	}
	test.That(t, empty.Add(Point{}), test.ShouldBeFalse)
}

func TestConfigValidate(t *testing.T) {
	test.That(t, DefaultConfig().Validate(), test.ShouldBeNil)
	test.That(t, Config{TieBreakEpsilon: -1}.Validate(), test.ShouldNotBeNil)
	test.That(t, Config{TieBreakEpsilon: math.NaN()}.Validate(), test.ShouldNotBeNil)
}

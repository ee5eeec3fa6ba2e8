package shape

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/collide/spatialmath"
)

func TestConstructionValidation(t *testing.T) {
	for _, tc := range []struct {
		name string
		make func() error
	}{
		{"ball zero", func() error { _, err := NewBall(0); return err }},
		{"ball negative", func() error { _, err := NewBall(-1); return err }},
		{"ball nan", func() error { _, err := NewBall(math.NaN()); return err }},
		{"cuboid flat", func() error { _, err := NewCuboid(r3.Vector{X: 1, Y: 0, Z: 1}); return err }},
		{"cuboid inf", func() error { _, err := NewCuboid(r3.Vector{X: 1, Y: math.Inf(1), Z: 1}); return err }},
		{"capsule short", func() error { _, err := NewCapsule(1, 1.5); return err }},
		{"cylinder", func() error { _, err := NewCylinder(1, 0); return err }},
		{"cone", func() error { _, err := NewCone(-1, 1); return err }},
		{"segment zero length", func() error {
			_, err := NewSegment(r3.Vector{X: 1, Y: 1, Z: 1}, r3.Vector{X: 1, Y: 1, Z: 1})
			return err
		}},
		{"triangle collinear", func() error {
			_, err := NewTriangle(r3.Vector{}, r3.Vector{X: 1, Y: 0, Z: 0}, r3.Vector{X: 2, Y: 0, Z: 0})
			return err
		}},
		{"halfspace zero normal", func() error { _, err := NewHalfSpace(r3.Vector{}); return err }},
		{"hull coplanar", func() error {
			_, err := NewConvexPolyhedron([]r3.Vector{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}, {X: 1, Y: 1, Z: 0}, {X: 2, Y: 3, Z: 0}})
			return err
		}},
		{"hull collinear", func() error {
			_, err := NewConvexPolyhedron([]r3.Vector{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 2, Y: 0, Z: 0}, {X: 3, Y: 0, Z: 0}})
			return err
		}},
		{"hull too few", func() error {
			_, err := NewConvexPolyhedron([]r3.Vector{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}})
			return err
		}},
		{"compound empty", func() error { _, err := NewCompound(nil); return err }},
		{"trimesh empty", func() error { _, err := NewTriMesh([]r3.Vector{{}}, nil); return err }},
		{"trimesh bad index", func() error {
			_, err := NewTriMesh([]r3.Vector{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}}, [][3]int{{0, 1, 3}})
			return err
		}},
		{"heightfield small", func() error { _, err := NewHeightField([][]float64{{0, 1}}, r3.Vector{X: 1, Y: 1, Z: 1}); return err }},
		{"heightfield ragged", func() error {
			_, err := NewHeightField([][]float64{{0, 1}, {0}}, r3.Vector{X: 1, Y: 1, Z: 1})
			return err
		}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.make()
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, spatialmath.IsConfigurationError(err), test.ShouldBeTrue)
		})
	}
}

func TestSupportTieBreaks(t *testing.T) {
	box, err := NewCuboid(r3.Vector{X: 1, Y: 2, Z: 3})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, box.LocalSupportPoint(r3.Vector{}), test.ShouldResemble, r3.Vector{X: 1, Y: 2, Z: 3})
	test.That(t, box.LocalSupportPoint(r3.Vector{X: -1, Y: 0, Z: 0}), test.ShouldResemble, r3.Vector{X: -1, Y: 2, Z: 3})
	test.That(t, box.SupportVertexID(r3.Vector{X: -1, Y: 0, Z: 0}), test.ShouldEqual, VertexID(4))

	tri, err := NewTriangle(r3.Vector{X: 0, Y: 0, Z: 0}, r3.Vector{X: 1, Y: 0, Z: 0}, r3.Vector{X: 0, Y: 1, Z: 0})
	test.That(t, err, test.ShouldBeNil)
	// vertices 1 and 2 tie along (1, 1, 0)
	test.That(t, tri.LocalSupportPoint(r3.Vector{X: 1, Y: 1, Z: 0}), test.ShouldResemble, r3.Vector{X: 1, Y: 0, Z: 0})

	seg, err := NewSegment(r3.Vector{X: 0, Y: 0, Z: 1}, r3.Vector{X: 0, Y: 0, Z: -1})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, seg.LocalSupportPoint(r3.Vector{X: 1, Y: 0, Z: 0}), test.ShouldResemble, r3.Vector{X: 0, Y: 0, Z: 1})

	cone, err := NewCone(1, 2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cone.LocalSupportPoint(r3.Vector{X: 0, Y: 0, Z: 1}), test.ShouldResemble, r3.Vector{X: 0, Y: 0, Z: 1})
	test.That(t, cone.LocalSupportPoint(r3.Vector{X: 1, Y: 0, Z: 0}), test.ShouldResemble, r3.Vector{X: 1, Y: 0, Z: -1})
	test.That(t, cone.LocalBoundingSphere().Radius, test.ShouldAlmostEqual, math.Sqrt2)
	p := cone.LocalSupportPoint(r3.Vector{X: 3, Y: 4, Z: -1})
	test.That(t, p.X, test.ShouldAlmostEqual, 0.6)
	test.That(t, p.Y, test.ShouldAlmostEqual, 0.8)

	cyl, err := NewCylinder(1, 2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cyl.LocalSupportPoint(r3.Vector{X: 0, Y: 0, Z: -1}), test.ShouldResemble, r3.Vector{X: 0, Y: 0, Z: -1})
	wide, err := NewCylinder(3, 8)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, wide.LocalBoundingSphere().Radius, test.ShouldAlmostEqual, 5)
	p = cyl.LocalSupportPoint(r3.Vector{X: 1, Y: 1, Z: 0})
	test.That(t, p.X, test.ShouldAlmostEqual, math.Sqrt2/2)
	test.That(t, p.Y, test.ShouldAlmostEqual, math.Sqrt2/2)
	test.That(t, p.Z, test.ShouldAlmostEqual, 1)

	caps, err := NewCapsule(1, 4)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, caps.LocalSupportPoint(r3.Vector{X: 0, Y: 0, Z: 2}), test.ShouldResemble, r3.Vector{X: 0, Y: 0, Z: 2})
	test.That(t, caps.LocalSupportPoint(r3.Vector{X: 0, Y: 3, Z: 0}), test.ShouldResemble, r3.Vector{X: 0, Y: 1, Z: 1})
}

func TestWorldAABB(t *testing.T) {
	pose := spatialmath.NewPose(r3.Vector{X: 1, Y: 2, Z: 3}, &spatialmath.R4AA{Theta: math.Pi / 2, RZ: 1})

	box, err := NewCuboid(r3.Vector{X: 1, Y: 2, Z: 3})
	test.That(t, err, test.ShouldBeNil)
	aabb := box.AABB(pose)
	test.That(t, spatialmath.R3VectorAlmostEqual(aabb.Min, r3.Vector{X: -1, Y: 1, Z: 0}, 1e-9), test.ShouldBeTrue)
	test.That(t, spatialmath.R3VectorAlmostEqual(aabb.Max, r3.Vector{X: 3, Y: 3, Z: 6}, 1e-9), test.ShouldBeTrue)

	cyl, err := NewCylinder(1, 4)
	test.That(t, err, test.ShouldBeNil)
	tilted := spatialmath.NewPoseFromOrientation(&spatialmath.R4AA{Theta: math.Pi / 2, RX: 1})
	aabb = cyl.AABB(tilted)
	test.That(t, spatialmath.R3VectorAlmostEqual(aabb.Max, r3.Vector{X: 1, Y: 2, Z: 1}, 1e-9), test.ShouldBeTrue)
	test.That(t, spatialmath.R3VectorAlmostEqual(aabb.Min, r3.Vector{X: -1, Y: -2, Z: -1}, 1e-9), test.ShouldBeTrue)
}

func TestCuboidFeatures(t *testing.T) {
	box, err := NewCuboid(r3.Vector{X: 1, Y: 1, Z: 1})
	test.That(t, err, test.ShouldBeNil)

	f := box.LocalSupportFeature(r3.Vector{X: 0.1, Y: 0.2, Z: 1})
	test.That(t, f.NumVertices, test.ShouldEqual, 4)
	test.That(t, f.FaceID, test.ShouldEqual, FaceID(2))
	test.That(t, f.Normal, test.ShouldResemble, r3.Vector{X: 0, Y: 0, Z: 1})
	for i := 0; i < 4; i++ {
		test.That(t, f.Vertices[i].Z, test.ShouldEqual, 1)
		a, b := f.Vertices[i], f.Vertices[(i+1)%4]
		// counter-clockwise around +Z
		c := f.Vertices[(i+2)%4]
		test.That(t, b.Sub(a).Cross(c.Sub(b)).Z, test.ShouldBeGreaterThan, 0)
		test.That(t, f.EdgeIDs[i].Type(), test.ShouldEqual, FeatureEdge)
		test.That(t, f.VertexIDs[i].Type(), test.ShouldEqual, FeatureVertex)
	}

	// every edge is shared by exactly two faces
	counts := map[FeatureID]int{}
	for i := 0; i < 6; i++ {
		face := box.Face(i)
		for j := 0; j < face.NumVertices; j++ {
			counts[face.EdgeIDs[j]]++
		}
	}
	test.That(t, len(counts), test.ShouldEqual, 12)
	for _, c := range counts {
		test.That(t, c, test.ShouldEqual, 2)
	}
}

func TestSegmentAndTriangleFeatures(t *testing.T) {
	seg, err := NewSegment(r3.Vector{X: -1, Y: 0, Z: 0}, r3.Vector{X: 1, Y: 0, Z: 0})
	test.That(t, err, test.ShouldBeNil)
	f := seg.LocalSupportFeature(r3.Vector{X: 0, Y: 0, Z: 1})
	test.That(t, f.NumVertices, test.ShouldEqual, 2)
	test.That(t, f.EdgeIDs[0], test.ShouldEqual, EdgeID(0))
	f = seg.LocalSupportFeature(r3.Vector{X: 1, Y: 0, Z: 1})
	test.That(t, f.NumVertices, test.ShouldEqual, 1)
	test.That(t, f.VertexIDs[0], test.ShouldEqual, VertexID(1))

	tri, err := NewTriangle(r3.Vector{X: 0, Y: 0, Z: 0}, r3.Vector{X: 1, Y: 0, Z: 0}, r3.Vector{X: 0, Y: 1, Z: 0})
	test.That(t, err, test.ShouldBeNil)
	f = tri.LocalSupportFeature(r3.Vector{X: 0, Y: 0, Z: 1})
	test.That(t, f.NumVertices, test.ShouldEqual, 3)
	test.That(t, f.FaceID, test.ShouldEqual, FaceID(0))
	f = tri.LocalSupportFeature(r3.Vector{X: 0, Y: 0, Z: -1})
	test.That(t, f.NumVertices, test.ShouldEqual, 3)
	test.That(t, f.FaceID, test.ShouldEqual, FaceID(1))
	test.That(t, f.Normal, test.ShouldResemble, r3.Vector{X: 0, Y: 0, Z: -1})
	// the back face keeps counter-clockwise order around its own normal
	test.That(t, f.Vertices[1].Sub(f.Vertices[0]).Cross(f.Vertices[2].Sub(f.Vertices[0])).Z, test.ShouldBeLessThan, 0)

	f = tri.LocalSupportFeature(r3.Vector{X: 0, Y: -1, Z: 0})
	test.That(t, f.NumVertices, test.ShouldEqual, 2)
	test.That(t, f.EdgeIDs[0], test.ShouldEqual, EdgeID(0))
}

func TestRayCasts(t *testing.T) {
	ball, err := NewBall(1)
	test.That(t, err, test.ShouldBeNil)
	box, err := NewCuboid(r3.Vector{X: 1, Y: 1, Z: 1})
	test.That(t, err, test.ShouldBeNil)
	corners := box.Vertices()
	hull, err := NewConvexPolyhedron(corners[:])
	test.That(t, err, test.ShouldBeNil)
	caps, err := NewCapsule(1, 4)
	test.That(t, err, test.ShouldBeNil)
	half, err := NewHalfSpace(r3.Vector{X: 0, Y: 0, Z: 1})
	test.That(t, err, test.ShouldBeNil)

	outside := spatialmath.NewRay(r3.Vector{X: -5, Y: 0, Z: 0}, r3.Vector{X: 1, Y: 0, Z: 0})
	inside := spatialmath.NewRay(r3.Vector{X: 0, Y: 0, Z: 0}, r3.Vector{X: 1, Y: 0, Z: 0})

	for _, tc := range []struct {
		name       string
		shape      RayCaster
		ray        spatialmath.Ray
		solid      bool
		toi        float64
		normal     r3.Vector
		tolerance  float64
		shouldMiss bool
	}{
		{"ball outside", ball, outside, true, 4, r3.Vector{X: -1, Y: 0, Z: 0}, 1e-9, false},
		{"ball inside solid", ball, inside, true, 0, r3.Vector{}, 1e-9, false},
		{"ball inside hollow", ball, inside, false, 1, r3.Vector{X: 1, Y: 0, Z: 0}, 1e-9, false},
		{"cuboid outside", box, outside, true, 4, r3.Vector{X: -1, Y: 0, Z: 0}, 1e-9, false},
		{"cuboid inside hollow", box, inside, false, 1, r3.Vector{X: 1, Y: 0, Z: 0}, 1e-9, false},
		{"hull outside", hull, outside, true, 4, r3.Vector{X: -1, Y: 0, Z: 0}, 1e-9, false},
		{"hull inside solid", hull, inside, true, 0, r3.Vector{}, 1e-9, false},
		{"hull inside hollow", hull, inside, false, 1, r3.Vector{X: 1, Y: 0, Z: 0}, 1e-9, false},
		{"capsule outside", caps, outside, true, 4, r3.Vector{X: -1, Y: 0, Z: 0}, 1e-4, false},
		{"halfspace above", half, spatialmath.NewRay(r3.Vector{X: 0, Y: 0, Z: 3}, r3.Vector{X: 0, Y: 0, Z: -1}), true, 3, r3.Vector{X: 0, Y: 0, Z: 1}, 1e-9, false},
		{"halfspace away", half, spatialmath.NewRay(r3.Vector{X: 0, Y: 0, Z: 3}, r3.Vector{X: 0, Y: 0, Z: 1}), true, 0, r3.Vector{}, 0, true},
		{"cuboid miss", box, spatialmath.NewRay(r3.Vector{X: -5, Y: 3, Z: 0}, r3.Vector{X: 1, Y: 0, Z: 0}), true, 0, r3.Vector{}, 0, true},
		{"beyond max toi", ball, spatialmath.NewRay(r3.Vector{X: -50, Y: 0, Z: 0}, r3.Vector{X: 1, Y: 0, Z: 0}), true, 0, r3.Vector{}, 0, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			hit, ok := tc.shape.CastLocalRay(tc.ray, 10, tc.solid)
			if tc.shouldMiss {
				test.That(t, ok, test.ShouldBeFalse)
				return
			}
			test.That(t, ok, test.ShouldBeTrue)
			test.That(t, hit.TOI, test.ShouldAlmostEqual, tc.toi, tc.tolerance)
			test.That(t, spatialmath.R3VectorAlmostEqual(hit.Normal, tc.normal, 1e-3), test.ShouldBeTrue)
		})
	}

	// a world ray against a moved shape
	pose := spatialmath.NewPoseFromPoint(r3.Vector{X: 0, Y: 10, Z: 0})
	hit, ok := CastRay(box, pose, spatialmath.NewRay(r3.Vector{X: 0, Y: 0, Z: 0}, r3.Vector{X: 0, Y: 1, Z: 0}), 100, true)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, hit.TOI, test.ShouldAlmostEqual, 9)
	test.That(t, hit.Feature, test.ShouldEqual, FaceID(4))
}

func TestConvexHull(t *testing.T) {
	box, err := NewCuboid(r3.Vector{X: 1, Y: 1, Z: 1})
	test.That(t, err, test.ShouldBeNil)
	verts := box.Vertices()
	points := append([]r3.Vector{{X: 0, Y: 0, Z: 0}, {X: 0.5, Y: 0.2, Z: -0.3}, {X: 0.9, Y: 0, Z: 0}}, verts[:]...)
	// duplicates are dropped
	points = append(points, verts[0], verts[3])

	hull, err := NewConvexPolyhedron(points)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(hull.Vertices()), test.ShouldEqual, 8)
	test.That(t, hull.NumFaces(), test.ShouldEqual, 6)
	test.That(t, hull.NumEdges(), test.ShouldEqual, 12)
	for i := 0; i < hull.NumFaces(); i++ {
		loop, normal := hull.Face(i)
		test.That(t, len(loop), test.ShouldEqual, 4)
		for _, v := range loop {
			test.That(t, hull.Vertices()[v].Dot(normal), test.ShouldAlmostEqual, 1)
		}
	}
	test.That(t, hull.LocalAABB(), test.ShouldResemble, box.LocalAABB())

	dir := r3.Vector{X: 0.3, Y: -0.4, Z: 0.8}
	test.That(t, hull.LocalSupportPoint(dir), test.ShouldResemble, box.LocalSupportPoint(dir))
	f := hull.LocalSupportFeature(dir)
	test.That(t, f.NumVertices, test.ShouldEqual, 4)
	test.That(t, spatialmath.R3VectorAlmostEqual(f.Normal, r3.Vector{X: 0, Y: 0, Z: 1}, 1e-12), test.ShouldBeTrue)

	tetra, err := NewConvexPolyhedron([]r3.Vector{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}, {X: 0, Y: 0, Z: 1}, {X: 0.1, Y: 0.1, Z: 0.1}})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(tetra.Vertices()), test.ShouldEqual, 4)
	test.That(t, tetra.NumFaces(), test.ShouldEqual, 4)
	test.That(t, tetra.NumEdges(), test.ShouldEqual, 6)
	centroid := r3.Vector{X: 0.25, Y: 0.25, Z: 0.25}
	for i := 0; i < tetra.NumFaces(); i++ {
		loop, normal := tetra.Face(i)
		test.That(t, normal.Dot(tetra.Vertices()[loop[0]].Sub(centroid)), test.ShouldBeGreaterThan, 0)
	}
}

func TestCompound(t *testing.T) {
	ball, err := NewBall(1)
	test.That(t, err, test.ShouldBeNil)
	box, err := NewCuboid(r3.Vector{X: 1, Y: 1, Z: 1})
	test.That(t, err, test.ShouldBeNil)

	c, err := NewCompound([]CompoundPart{
		{Pose: spatialmath.NewPoseFromPoint(r3.Vector{X: -3, Y: 0, Z: 0}), Shape: ball},
		{Pose: spatialmath.NewPoseFromPoint(r3.Vector{X: 3, Y: 0, Z: 0}), Shape: box},
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, c.NumParts(), test.ShouldEqual, 2)
	test.That(t, c.Tree().LeafCount(), test.ShouldEqual, 2)
	test.That(t, c.Tree().Validate(), test.ShouldBeNil)

	test.That(t, c.LocalSupportPoint(r3.Vector{X: 1, Y: 0, Z: 0}), test.ShouldResemble, r3.Vector{X: 4, Y: 1, Z: 1})
	test.That(t, c.LocalSupportPoint(r3.Vector{X: -1, Y: 0, Z: 0}), test.ShouldResemble, r3.Vector{X: -4, Y: 0, Z: 0})
	// both parts reach y = 1; the lower index wins
	test.That(t, c.LocalSupportPoint(r3.Vector{X: 0, Y: 1, Z: 0}), test.ShouldResemble, r3.Vector{X: -3, Y: 1, Z: 0})

	aabb := c.LocalAABB()
	test.That(t, aabb.Min, test.ShouldResemble, r3.Vector{X: -4, Y: -1, Z: -1})
	test.That(t, aabb.Max, test.ShouldResemble, r3.Vector{X: 4, Y: 1, Z: 1})
	ballSphere := ball.LocalBoundingSphere().Transform(spatialmath.NewPoseFromPoint(r3.Vector{X: -3, Y: 0, Z: 0}))
	test.That(t, c.LocalBoundingSphere().Loosened(1e-9).Contains(ballSphere), test.ShouldBeTrue)

	hit, ok := c.CastLocalRay(spatialmath.NewRay(r3.Vector{X: 10, Y: 0, Z: 0}, r3.Vector{X: -1, Y: 0, Z: 0}), 100, true)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, hit.TOI, test.ShouldAlmostEqual, 6)
	hit, ok = c.CastLocalRay(spatialmath.NewRay(r3.Vector{X: -10, Y: 0, Z: 0}, r3.Vector{X: 1, Y: 0, Z: 0}), 100, true)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, hit.TOI, test.ShouldAlmostEqual, 6)

	_, err = NewCompound([]CompoundPart{{Shape: c}})
	test.That(t, spatialmath.IsConfigurationError(err), test.ShouldBeTrue)
}

func TestTriangleComposites(t *testing.T) {
	hf, err := NewHeightField([][]float64{
		{0, 0, 0},
		{0, 1, 0},
		{0, 0, 0},
	}, r3.Vector{X: 4, Y: 4, Z: 2})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, hf.NumParts(), test.ShouldEqual, 8)
	test.That(t, hf.Tree().Validate(), test.ShouldBeNil)
	aabb := hf.LocalAABB()
	test.That(t, aabb.Min, test.ShouldResemble, r3.Vector{X: -2, Y: -2, Z: 0})
	test.That(t, aabb.Max, test.ShouldResemble, r3.Vector{X: 2, Y: 2, Z: 2})
	for i := 0; i < hf.NumParts(); i++ {
		_, part := hf.Part(i)
		test.That(t, part.(*Triangle).Normal().Z, test.ShouldBeGreaterThan, 0)
	}

	// on the slope of the center bump: z = 2 - x there
	hit, ok := hf.CastLocalRay(spatialmath.NewRay(r3.Vector{X: 0.5, Y: 0.3, Z: 10}, r3.Vector{X: 0, Y: 0, Z: -1}), 100, true)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, hit.TOI, test.ShouldAlmostEqual, 8.5)
	hit, ok = hf.CastLocalRay(spatialmath.NewRay(r3.Vector{X: 1.8, Y: -1, Z: 10}, r3.Vector{X: 0, Y: 0, Z: -1}), 100, true)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, hit.TOI, test.ShouldAlmostEqual, 10)

	mesh, err := NewTriMesh(
		[]r3.Vector{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}, {X: 0, Y: 0, Z: 1}},
		[][3]int{{0, 2, 1}, {0, 1, 3}, {1, 2, 3}, {0, 3, 2}},
	)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mesh.NumParts(), test.ShouldEqual, 4)
	test.That(t, mesh.IsConvex(), test.ShouldBeFalse)
	hit, ok = mesh.CastLocalRay(spatialmath.NewRay(r3.Vector{X: 0.2, Y: 0.2, Z: -1}, r3.Vector{X: 0, Y: 0, Z: 1}), 100, true)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, hit.TOI, test.ShouldAlmostEqual, 1)
	test.That(t, spatialmath.R3VectorAlmostEqual(hit.Normal, r3.Vector{X: 0, Y: 0, Z: -1}, 1e-9), test.ShouldBeTrue)
}

func TestFeatureID(t *testing.T) {
	id := EdgeID(11)
	test.That(t, id.Type(), test.ShouldEqual, FeatureEdge)
	test.That(t, id.Index(), test.ShouldEqual, 11)
	test.That(t, id.String(), test.ShouldEqual, "edge(11)")
	test.That(t, FaceID(0), test.ShouldNotEqual, VertexID(0))
	test.That(t, UnknownFeature.Type(), test.ShouldEqual, FeatureUnknown)
	test.That(t, KindCuboid.String(), test.ShouldEqual, "cuboid")
	test.That(t, (KindCustom + 3).String(), test.ShouldEqual, "custom(15)")
}

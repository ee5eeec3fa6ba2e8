package shape

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/collide/spatialmath"
)

func TestBallPointQueries(t *testing.T) {
	ball, err := NewBall(1)
	test.That(t, err, test.ShouldBeNil)

	proj := ball.ProjectLocalPoint(r3.Vector{X: 3}, true)
	test.That(t, proj.IsInside, test.ShouldBeFalse)
	test.That(t, proj.Point, test.ShouldResemble, r3.Vector{X: 1})

	proj = ball.ProjectLocalPoint(r3.Vector{Y: 0.5}, true)
	test.That(t, proj.IsInside, test.ShouldBeTrue)
	test.That(t, proj.Point, test.ShouldResemble, r3.Vector{Y: 0.5})

	proj = ball.ProjectLocalPoint(r3.Vector{Y: 0.5}, false)
	test.That(t, proj.IsInside, test.ShouldBeTrue)
	test.That(t, proj.Point, test.ShouldResemble, r3.Vector{Y: 1})

	proj = ball.ProjectLocalPoint(r3.Vector{}, false)
	test.That(t, proj.Point, test.ShouldResemble, r3.Vector{X: 1})
}

func TestCuboidPointQueries(t *testing.T) {
	box, err := NewCuboid(r3.Vector{X: 1, Y: 2, Z: 3})
	test.That(t, err, test.ShouldBeNil)

	for _, tc := range []struct {
		name   string
		point  r3.Vector
		solid  bool
		want   r3.Vector
		inside bool
	}{
		{"outside face", r3.Vector{X: 2}, true, r3.Vector{X: 1}, false},
		{"outside corner", r3.Vector{X: 3, Y: 3, Z: 4}, true, r3.Vector{X: 1, Y: 2, Z: 3}, false},
		{"inside solid", r3.Vector{X: 0.5, Y: -1}, true, r3.Vector{X: 0.5, Y: -1}, true},
		{"inside nearest x face", r3.Vector{X: 0.9}, false, r3.Vector{X: 1}, true},
		{"inside nearest y face", r3.Vector{X: -0.5, Y: -1.8}, false, r3.Vector{X: -0.5, Y: -2}, true},
		{"center", r3.Vector{}, false, r3.Vector{X: 1}, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			proj := box.ProjectLocalPoint(tc.point, tc.solid)
			test.That(t, proj.IsInside, test.ShouldEqual, tc.inside)
			test.That(t, proj.Point, test.ShouldResemble, tc.want)
		})
	}
}

func TestCapsulePointQueries(t *testing.T) {
	capsule, err := NewCapsule(1, 4)
	test.That(t, err, test.ShouldBeNil)

	proj := capsule.ProjectLocalPoint(r3.Vector{Z: 5}, true)
	test.That(t, proj.IsInside, test.ShouldBeFalse)
	test.That(t, proj.Point, test.ShouldResemble, r3.Vector{Z: 2})

	proj = capsule.ProjectLocalPoint(r3.Vector{X: 3, Z: 0.5}, true)
	test.That(t, proj.IsInside, test.ShouldBeFalse)
	test.That(t, proj.Point, test.ShouldResemble, r3.Vector{X: 1, Z: 0.5})

	proj = capsule.ProjectLocalPoint(r3.Vector{Y: -0.5}, false)
	test.That(t, proj.IsInside, test.ShouldBeTrue)
	test.That(t, proj.Point, test.ShouldResemble, r3.Vector{Y: -1})

	proj = capsule.ProjectLocalPoint(r3.Vector{}, false)
	test.That(t, proj.Point, test.ShouldResemble, r3.Vector{X: 1})

	test.That(t, capsule.ProjectLocalPoint(r3.Vector{X: 0.6, Z: 1.7}, true).IsInside, test.ShouldBeTrue)
	test.That(t, capsule.ProjectLocalPoint(r3.Vector{X: 0.8, Z: 1.8}, true).IsInside, test.ShouldBeFalse)
}

func TestSupportMappedPointQueries(t *testing.T) {
	cyl, err := NewCylinder(1, 2)
	test.That(t, err, test.ShouldBeNil)
	proj := cyl.ProjectLocalPoint(r3.Vector{X: 3, Z: 0.5}, true)
	test.That(t, proj.IsInside, test.ShouldBeFalse)
	test.That(t, spatialmath.R3VectorAlmostEqual(proj.Point, r3.Vector{X: 1, Z: 0.5}, 1e-6), test.ShouldBeTrue)
	test.That(t, cyl.ProjectLocalPoint(r3.Vector{X: 0.5, Z: 0.5}, true).IsInside, test.ShouldBeTrue)

	var corners []r3.Vector
	for i := 0; i < 8; i++ {
		corners = append(corners, r3.Vector{X: float64(i&1)*2 - 1, Y: float64(i>>1&1)*2 - 1, Z: float64(i>>2&1)*2 - 1})
	}
	cube, err := NewConvexPolyhedron(corners)
	test.That(t, err, test.ShouldBeNil)
	proj = cube.ProjectLocalPoint(r3.Vector{X: 0.8, Y: 0.1}, false)
	test.That(t, proj.IsInside, test.ShouldBeTrue)
	test.That(t, spatialmath.R3VectorAlmostEqual(proj.Point, r3.Vector{X: 1, Y: 0.1}, 1e-6), test.ShouldBeTrue)

	plane, err := NewHalfSpace(r3.Vector{Z: 1})
	test.That(t, err, test.ShouldBeNil)
	proj = plane.ProjectLocalPoint(r3.Vector{X: 2, Z: -3}, false)
	test.That(t, proj.IsInside, test.ShouldBeTrue)
	test.That(t, proj.Point, test.ShouldResemble, r3.Vector{X: 2})
}

func TestCompositePointQueries(t *testing.T) {
	ball, err := NewBall(1)
	test.That(t, err, test.ShouldBeNil)
	compound, err := NewCompound([]CompoundPart{
		{Pose: spatialmath.NewPoseFromPoint(r3.Vector{X: -2}), Shape: ball},
		{Pose: spatialmath.NewPoseFromPoint(r3.Vector{X: 2}), Shape: ball},
	})
	test.That(t, err, test.ShouldBeNil)

	pose := spatialmath.NewPoseFromPoint(r3.Vector{Y: 5})
	dist, ok := DistanceToPoint(compound, pose, r3.Vector{Y: 5})
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, dist, test.ShouldAlmostEqual, 1)
	test.That(t, ContainsPoint(compound, pose, r3.Vector{X: 2.5, Y: 5}), test.ShouldBeTrue)
	test.That(t, ContainsPoint(compound, pose, r3.Vector{Y: 5}), test.ShouldBeFalse)

	proj, ok := ProjectPoint(compound, pose, r3.Vector{X: 2.5, Y: 5}, false)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, proj.IsInside, test.ShouldBeTrue)
	test.That(t, spatialmath.R3VectorAlmostEqual(proj.Point, r3.Vector{X: 3, Y: 5}, 1e-12), test.ShouldBeTrue)

	mesh, err := NewTriMesh([]r3.Vector{{}, {X: 1}, {Y: 1}}, [][3]int{{0, 1, 2}})
	test.That(t, err, test.ShouldBeNil)
	proj = mesh.ProjectLocalPoint(r3.Vector{X: 0.2, Y: 0.2, Z: 3}, true)
	test.That(t, proj.IsInside, test.ShouldBeFalse)
	test.That(t, spatialmath.R3VectorAlmostEqual(proj.Point, r3.Vector{X: 0.2, Y: 0.2}, 1e-12), test.ShouldBeTrue)
}

func TestWorldPointQueries(t *testing.T) {
	box, err := NewCuboid(r3.Vector{X: 1, Y: 2, Z: 3})
	test.That(t, err, test.ShouldBeNil)
	pose := spatialmath.NewPose(r3.Vector{X: 10}, &spatialmath.R4AA{Theta: math.Pi / 2, RZ: 1})

	proj, ok := ProjectPoint(box, pose, r3.Vector{X: 10, Y: 5}, true)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, proj.IsInside, test.ShouldBeFalse)
	test.That(t, spatialmath.R3VectorAlmostEqual(proj.Point, r3.Vector{X: 10, Y: 1}, 1e-9), test.ShouldBeTrue)

	dist, ok := DistanceToPoint(box, pose, r3.Vector{X: 10, Y: 5})
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, dist, test.ShouldAlmostEqual, 4, 1e-9)
	test.That(t, ContainsPoint(box, pose, r3.Vector{X: 11.5, Y: 0.5}), test.ShouldBeTrue)
}

package collision

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/collide/collision/gjk"
	"go.viam.com/collide/collision/manifold"
	"go.viam.com/collide/collision/toi"
	"go.viam.com/collide/shape"
	"go.viam.com/collide/spatialmath"
)

// cuboidCuboidAlgorithm uses the separating axis test for overlap and penetration, and GJK for the
// distance of separated cuboids, where the best separating axis only bounds the distance from below.
type cuboidCuboidAlgorithm struct{}

func cuboidsOf(g1, g2 shape.Shape) (*shape.Cuboid, *shape.Cuboid, error) {
	c1, ok1 := g1.(*shape.Cuboid)
	c2, ok2 := g2.(*shape.Cuboid)
	if !ok1 || !ok2 {
		return nil, nil, errors.Wrapf(ErrUnsupportedQuery, "expected two cuboids, got (%v, %v)", g1.Kind(), g2.Kind())
	}
	return c1, c2, nil
}

func (cuboidCuboidAlgorithm) Distance(pos12 spatialmath.Pose, g1, g2 shape.Shape, opts *Options) (float64, error) {
	c1, c2, err := cuboidsOf(g1, g2)
	if err != nil {
		return 0, err
	}
	if gap, _ := cuboidSATMaxGap(pos12, c1.HalfExtents(), c2.HalfExtents()); gap <= 0 {
		return 0, nil
	}
	dist, _ := gjk.Distance(pos12, c1, c2, opts.GJK)
	return dist, nil
}

func (cuboidCuboidAlgorithm) Intersects(pos12 spatialmath.Pose, g1, g2 shape.Shape, opts *Options) (bool, error) {
	c1, c2, err := cuboidsOf(g1, g2)
	if err != nil {
		return false, err
	}
	gap, _ := cuboidSATMaxGap(pos12, c1.HalfExtents(), c2.HalfExtents())
	return gap <= 0, nil
}

func cuboidCuboidContact(pos12 spatialmath.Pose, g1, g2 shape.Shape, prediction float64, opts *Options) (Contact, bool, error) {
	c1, c2, err := cuboidsOf(g1, g2)
	if err != nil {
		return Contact{}, false, err
	}
	gap, axis := cuboidSATMaxGap(pos12, c1.HalfExtents(), c2.HalfExtents())
	if gap > prediction {
		return Contact{}, false, nil
	}
	if gap > 0 {
		c, ok := supportMapContact(pos12, c1, c2, prediction, opts)
		return c, ok, nil
	}

	// the deepest clipped point carries the witnesses of the penetration along the axis
	m := clipCuboids(pos12, c1, c2, axis, math.Inf(1), opts)
	deepest, ok := m.Deepest()
	if !ok {
		c, ok := supportMapContact(pos12, c1, c2, prediction, opts)
		return c, ok, nil
	}
	return Contact{
		Point1:   deepest.LocalPoint1,
		Point2:   deepest.LocalPoint2,
		Normal1:  m.Normal1,
		Normal2:  m.Normal2,
		Distance: gap,
	}, true, nil
}

func clipCuboids(pos12 spatialmath.Pose, c1, c2 *shape.Cuboid, normal1 r3.Vector, prediction float64, opts *Options) manifold.Manifold {
	f1 := c1.LocalSupportFeature(normal1)
	f2 := c2.LocalSupportFeature(spatialmath.InverseRotateVector(pos12, normal1.Mul(-1)))
	return manifold.Clip(pos12, f1, f2, normal1, prediction, opts.Manifold)
}

func (cuboidCuboidAlgorithm) Contact(pos12 spatialmath.Pose, g1, g2 shape.Shape, prediction float64, opts *Options) (Contact, bool, error) {
	return cuboidCuboidContact(pos12, g1, g2, prediction, opts)
}

func (cuboidCuboidAlgorithm) ClosestPoints(pos12 spatialmath.Pose, g1, g2 shape.Shape, maxDist float64, opts *Options) (ClosestPoints, error) {
	c1, c2, err := cuboidsOf(g1, g2)
	if err != nil {
		return ClosestPoints{}, err
	}
	gap, _ := cuboidSATMaxGap(pos12, c1.HalfExtents(), c2.HalfExtents())
	switch {
	case gap <= 0:
		return ClosestPoints{Status: Intersecting}, nil
	case gap > maxDist:
		return ClosestPoints{Status: Disjoint, Distance: gap}, nil
	}
	return supportMapClosestPoints(pos12, c1, c2, maxDist, opts), nil
}

// ContactManifolds clips the faces most aligned with the separating axis, or with the GJK normal for
// separated cuboids.
func (cuboidCuboidAlgorithm) ContactManifolds(
	pos12 spatialmath.Pose,
	g1, g2 shape.Shape,
	prediction float64,
	opts *Options,
	out []manifold.Manifold,
) ([]manifold.Manifold, error) {
	c1, c2, err := cuboidsOf(g1, g2)
	if err != nil {
		return out, err
	}
	gap, normal := cuboidSATMaxGap(pos12, c1.HalfExtents(), c2.HalfExtents())
	if gap > prediction {
		return out, nil
	}
	if gap > 0 {
		c, ok := supportMapContact(pos12, c1, c2, prediction, opts)
		if !ok {
			return out, nil
		}
		normal = c.Normal1
	}
	if m := clipCuboids(pos12, c1, c2, normal, prediction, opts); m.NumPoints > 0 {
		out = append(out, m)
	}
	return out, nil
}

func (cuboidCuboidAlgorithm) TimeOfImpact(pos12 spatialmath.Pose, vel12 r3.Vector, g1, g2 shape.Shape, opts *Options) (toi.Result, error) {
	return linearTimeOfImpact(cuboidCuboidContact, pos12, vel12, g1, g2, opts)
}

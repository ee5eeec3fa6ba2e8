package collision

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/collide/collision/manifold"
	"go.viam.com/collide/collision/toi"
	"go.viam.com/collide/shape"
	"go.viam.com/collide/spatialmath"
)

// capsuleCapsuleAlgorithm reduces capsules to the closest points of their inner segments.
type capsuleCapsuleAlgorithm struct{}

func capsulesOf(g1, g2 shape.Shape) (*shape.Capsule, *shape.Capsule, error) {
	c1, ok1 := g1.(*shape.Capsule)
	c2, ok2 := g2.(*shape.Capsule)
	if !ok1 || !ok2 {
		return nil, nil, errors.Wrapf(ErrUnsupportedQuery, "expected two capsules, got (%v, %v)", g1.Kind(), g2.Kind())
	}
	return c1, c2, nil
}

func capsuleCapsuleContact(pos12 spatialmath.Pose, g1, g2 shape.Shape) (Contact, error) {
	c1, c2, err := capsulesOf(g1, g2)
	if err != nil {
		return Contact{}, err
	}
	a1, b1 := c1.Segment()
	a2, b2 := c2.Segment()
	a2, b2 = spatialmath.TransformPoint(pos12, a2), spatialmath.TransformPoint(pos12, b2)
	p1, p2, _, _ := spatialmath.ClosestPointsSegmentSegment(a1, b1, a2, b2)

	normal, length, ok := spatialmath.SafeNormalize(p2.Sub(p1), 0)
	if !ok {
		// the axes cross: any direction orthogonal to both works
		normal, _, ok = spatialmath.SafeNormalize(b1.Sub(a1).Cross(b2.Sub(a2)), 1e-12)
		if !ok {
			normal, _ = spatialmath.OrthonormalBasis(b1.Sub(a1))
		}
	}
	r1, r2 := c1.Radius(), c2.Radius()
	c := contactFromPoints(pos12, p1.Add(normal.Mul(r1)), p2.Sub(normal.Mul(r2)), normal, length-r1-r2)
	c.Degenerate = length == 0
	return c, nil
}

func (capsuleCapsuleAlgorithm) Distance(pos12 spatialmath.Pose, g1, g2 shape.Shape, opts *Options) (float64, error) {
	c, err := capsuleCapsuleContact(pos12, g1, g2)
	return math.Max(0, c.Distance), err
}

func (capsuleCapsuleAlgorithm) Intersects(pos12 spatialmath.Pose, g1, g2 shape.Shape, opts *Options) (bool, error) {
	c, err := capsuleCapsuleContact(pos12, g1, g2)
	return c.Distance <= 0, err
}

func (capsuleCapsuleAlgorithm) Contact(
	pos12 spatialmath.Pose,
	g1, g2 shape.Shape,
	prediction float64,
	opts *Options,
) (Contact, bool, error) {
	c, err := capsuleCapsuleContact(pos12, g1, g2)
	if err != nil || c.Distance > prediction {
		return Contact{}, false, err
	}
	return c, true, nil
}

func (capsuleCapsuleAlgorithm) ClosestPoints(
	pos12 spatialmath.Pose,
	g1, g2 shape.Shape,
	maxDist float64,
	opts *Options,
) (ClosestPoints, error) {
	c, err := capsuleCapsuleContact(pos12, g1, g2)
	if err != nil {
		return ClosestPoints{}, err
	}
	return closestPointsFromContact(c, maxDist), nil
}

// ContactManifolds clips the inner segments and pushes the points out to the capsule surfaces, so that
// parallel capsules get two points.
func (capsuleCapsuleAlgorithm) ContactManifolds(
	pos12 spatialmath.Pose,
	g1, g2 shape.Shape,
	prediction float64,
	opts *Options,
	out []manifold.Manifold,
) ([]manifold.Manifold, error) {
	c, err := capsuleCapsuleContact(pos12, g1, g2)
	if err != nil || c.Distance > prediction {
		return out, err
	}
	c1, c2, _ := capsulesOf(g1, g2)
	s1, err1 := shape.NewSegment(c1.Segment())
	s2, err2 := shape.NewSegment(c2.Segment())
	if err1 != nil || err2 != nil {
		// ball shaped capsules have no inner segment
		return append(out, manifold.FromContact(pos12, c.Point1, c.Point2, c.Normal1, c.Distance, shape.FaceID(0), shape.FaceID(0))), nil
	}

	r1, r2 := c1.Radius(), c2.Radius()
	inner := manifold.Clip(
		pos12,
		s1.LocalSupportFeature(c.Normal1),
		s2.LocalSupportFeature(c.Normal2),
		c.Normal1,
		prediction+r1+r2,
		opts.Manifold,
	)
	m := manifold.Manifold{Normal1: inner.Normal1, Normal2: inner.Normal2}
	for i := 0; i < inner.NumPoints; i++ {
		p := inner.Points[i]
		p.LocalPoint1 = p.LocalPoint1.Add(m.Normal1.Mul(r1))
		p.LocalPoint2 = p.LocalPoint2.Add(m.Normal2.Mul(r2))
		p.Dist -= r1 + r2
		m.Add(p)
	}
	if m.NumPoints == 0 {
		m = manifold.FromContact(pos12, c.Point1, c.Point2, c.Normal1, c.Distance, shape.UnknownFeature, shape.UnknownFeature)
	}
	return append(out, m), nil
}

func (a capsuleCapsuleAlgorithm) TimeOfImpact(
	pos12 spatialmath.Pose,
	vel12 r3.Vector,
	g1, g2 shape.Shape,
	opts *Options,
) (toi.Result, error) {
	return linearTimeOfImpact(a.Contact, pos12, vel12, g1, g2, opts)
}

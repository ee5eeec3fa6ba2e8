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

// ballFeature is the feature id reported for every point of a ball.
var ballFeature = shape.FaceID(0)

func ballOf(g shape.Shape) (*shape.Ball, error) {
	b, ok := g.(*shape.Ball)
	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedQuery, "expected a ball, got %v", g.Kind())
	}
	return b, nil
}

type ballBallAlgorithm struct{}

func ballBallContact(pos12 spatialmath.Pose, g1, g2 shape.Shape) (Contact, error) {
	b1, err := ballOf(g1)
	if err != nil {
		return Contact{}, err
	}
	b2, err := ballOf(g2)
	if err != nil {
		return Contact{}, err
	}
	r1, r2 := b1.Radius(), b2.Radius()
	center2 := pos12.Point()
	normal, length, ok := spatialmath.SafeNormalize(center2, 0)
	if !ok {
		normal = r3.Vector{X: 1}
	}
	c := contactFromPoints(pos12, normal.Mul(r1), center2.Sub(normal.Mul(r2)), normal, length-r1-r2)
	c.Degenerate = !ok
	return c, nil
}

func (ballBallAlgorithm) Distance(pos12 spatialmath.Pose, g1, g2 shape.Shape, opts *Options) (float64, error) {
	c, err := ballBallContact(pos12, g1, g2)
	return math.Max(0, c.Distance), err
}

func (ballBallAlgorithm) Intersects(pos12 spatialmath.Pose, g1, g2 shape.Shape, opts *Options) (bool, error) {
	c, err := ballBallContact(pos12, g1, g2)
	return c.Distance <= 0, err
}

func (ballBallAlgorithm) Contact(pos12 spatialmath.Pose, g1, g2 shape.Shape, prediction float64, opts *Options) (Contact, bool, error) {
	c, err := ballBallContact(pos12, g1, g2)
	if err != nil || c.Distance > prediction {
		return Contact{}, false, err
	}
	return c, true, nil
}

func (ballBallAlgorithm) ClosestPoints(pos12 spatialmath.Pose, g1, g2 shape.Shape, maxDist float64, opts *Options) (ClosestPoints, error) {
	c, err := ballBallContact(pos12, g1, g2)
	if err != nil {
		return ClosestPoints{}, err
	}
	return closestPointsFromContact(c, maxDist), nil
}

func (ballBallAlgorithm) ContactManifolds(
	pos12 spatialmath.Pose,
	g1, g2 shape.Shape,
	prediction float64,
	opts *Options,
	out []manifold.Manifold,
) ([]manifold.Manifold, error) {
	c, err := ballBallContact(pos12, g1, g2)
	if err != nil || c.Distance > prediction {
		return out, err
	}
	return append(out, manifold.FromContact(pos12, c.Point1, c.Point2, c.Normal1, c.Distance, ballFeature, ballFeature)), nil
}

func (a ballBallAlgorithm) TimeOfImpact(pos12 spatialmath.Pose, vel12 r3.Vector, g1, g2 shape.Shape, opts *Options) (toi.Result, error) {
	return linearTimeOfImpact(a.Contact, pos12, vel12, g1, g2, opts)
}

// closestPointsFromContact classifies an exact contact against maxDist.
func closestPointsFromContact(c Contact, maxDist float64) ClosestPoints {
	switch {
	case c.Distance <= 0:
		return ClosestPoints{Status: Intersecting}
	case c.Distance > maxDist:
		return ClosestPoints{Status: Disjoint, Distance: c.Distance}
	default:
		return ClosestPoints{
			Status:     WithinMargin,
			Point1:     c.Point1,
			Point2:     c.Point2,
			Distance:   c.Distance,
			Degenerate: c.Degenerate,
		}
	}
}

// pointSupport is the support map of the origin.
type pointSupport struct{}

func (pointSupport) LocalSupportPoint(dir r3.Vector) r3.Vector { return r3.Vector{} }

// ballConvexAlgorithm computes the distance from the ball center to the other shape and offsets it by
// the radius. Centers inside the other shape fall back to EPA on the full ball.
type ballConvexAlgorithm struct{}

func ballConvexContact(pos12 spatialmath.Pose, g1, g2 shape.Shape, prediction float64, opts *Options) (Contact, bool, error) {
	b, err := ballOf(g1)
	if err != nil {
		return Contact{}, false, err
	}
	s2, ok := g2.(shape.SupportMap)
	if !ok {
		return Contact{}, false, errors.Wrapf(ErrUnsupportedQuery, "shape %v is not support mapped", g2.Kind())
	}
	r := b.Radius()
	res := gjk.ClosestPoints(pos12, pointSupport{}, s2, prediction+r, false, nil, opts.GJK)
	switch res.Status {
	case gjk.Proximity:
		// Distance carries the lower bound so that ClosestPoints can report it
		return Contact{Distance: res.Distance - r}, false, nil
	case gjk.Separated, gjk.Indeterminate:
		if res.Distance > r {
			c := contactFromPoints(pos12, res.Normal.Mul(r), res.Point2, res.Normal, res.Distance-r)
			c.Degenerate = res.Status == gjk.Indeterminate
			return c, c.Distance <= prediction, nil
		}
	}
	c, ok := supportMapContact(pos12, b, s2, prediction, opts)
	return c, ok, nil
}

func (ballConvexAlgorithm) Distance(pos12 spatialmath.Pose, g1, g2 shape.Shape, opts *Options) (float64, error) {
	c, _, err := ballConvexContact(pos12, g1, g2, math.Inf(1), opts)
	return math.Max(0, c.Distance), err
}

func (ballConvexAlgorithm) Intersects(pos12 spatialmath.Pose, g1, g2 shape.Shape, opts *Options) (bool, error) {
	_, ok, err := ballConvexContact(pos12, g1, g2, 0, opts)
	return ok, err
}

func (ballConvexAlgorithm) Contact(pos12 spatialmath.Pose, g1, g2 shape.Shape, prediction float64, opts *Options) (Contact, bool, error) {
	return ballConvexContact(pos12, g1, g2, prediction, opts)
}

func (ballConvexAlgorithm) ClosestPoints(pos12 spatialmath.Pose, g1, g2 shape.Shape, maxDist float64, opts *Options) (ClosestPoints, error) {
	c, ok, err := ballConvexContact(pos12, g1, g2, maxDist, opts)
	if err != nil {
		return ClosestPoints{}, err
	}
	if !ok {
		return ClosestPoints{Status: Disjoint, Distance: c.Distance, Degenerate: c.Degenerate}, nil
	}
	return closestPointsFromContact(c, maxDist), nil
}

func (ballConvexAlgorithm) ContactManifolds(
	pos12 spatialmath.Pose,
	g1, g2 shape.Shape,
	prediction float64,
	opts *Options,
	out []manifold.Manifold,
) ([]manifold.Manifold, error) {
	c, ok, err := ballConvexContact(pos12, g1, g2, prediction, opts)
	if err != nil || !ok {
		return out, err
	}
	return append(out, manifold.FromContact(pos12, c.Point1, c.Point2, c.Normal1, c.Distance, ballFeature, shape.UnknownFeature)), nil
}

func (ballConvexAlgorithm) TimeOfImpact(pos12 spatialmath.Pose, vel12 r3.Vector, g1, g2 shape.Shape, opts *Options) (toi.Result, error) {
	return linearTimeOfImpact(ballConvexContact, pos12, vel12, g1, g2, opts)
}

// ballHalfSpaceAlgorithm compares the ball center with the boundary plane.
type ballHalfSpaceAlgorithm struct{}

func ballHalfSpaceContact(pos12 spatialmath.Pose, g1, g2 shape.Shape) (Contact, error) {
	b, err := ballOf(g1)
	if err != nil {
		return Contact{}, err
	}
	h, err := halfSpaceOf(g2)
	if err != nil {
		return Contact{}, err
	}
	planeNormal := spatialmath.RotateVector(pos12, h.Normal())
	centerDist := pos12.Point().Mul(-1).Dot(planeNormal)
	onPlane := planeNormal.Mul(-centerDist)
	return contactFromPoints(pos12, planeNormal.Mul(-b.Radius()), onPlane, planeNormal.Mul(-1), centerDist-b.Radius()), nil
}

func (ballHalfSpaceAlgorithm) Distance(pos12 spatialmath.Pose, g1, g2 shape.Shape, opts *Options) (float64, error) {
	c, err := ballHalfSpaceContact(pos12, g1, g2)
	return math.Max(0, c.Distance), err
}

func (ballHalfSpaceAlgorithm) Intersects(pos12 spatialmath.Pose, g1, g2 shape.Shape, opts *Options) (bool, error) {
	c, err := ballHalfSpaceContact(pos12, g1, g2)
	return c.Distance <= 0, err
}

func (ballHalfSpaceAlgorithm) Contact(
	pos12 spatialmath.Pose,
	g1, g2 shape.Shape,
	prediction float64,
	opts *Options,
) (Contact, bool, error) {
	c, err := ballHalfSpaceContact(pos12, g1, g2)
	if err != nil || c.Distance > prediction {
		return Contact{}, false, err
	}
	return c, true, nil
}

func (ballHalfSpaceAlgorithm) ClosestPoints(
	pos12 spatialmath.Pose,
	g1, g2 shape.Shape,
	maxDist float64,
	opts *Options,
) (ClosestPoints, error) {
	c, err := ballHalfSpaceContact(pos12, g1, g2)
	if err != nil {
		return ClosestPoints{}, err
	}
	return closestPointsFromContact(c, maxDist), nil
}

func (ballHalfSpaceAlgorithm) ContactManifolds(
	pos12 spatialmath.Pose,
	g1, g2 shape.Shape,
	prediction float64,
	opts *Options,
	out []manifold.Manifold,
) ([]manifold.Manifold, error) {
	c, err := ballHalfSpaceContact(pos12, g1, g2)
	if err != nil || c.Distance > prediction {
		return out, err
	}
	return append(out, manifold.FromContact(pos12, c.Point1, c.Point2, c.Normal1, c.Distance, ballFeature, halfSpaceFeature)), nil
}

func (a ballHalfSpaceAlgorithm) TimeOfImpact(
	pos12 spatialmath.Pose,
	vel12 r3.Vector,
	g1, g2 shape.Shape,
	opts *Options,
) (toi.Result, error) {
	return linearTimeOfImpact(a.Contact, pos12, vel12, g1, g2, opts)
}

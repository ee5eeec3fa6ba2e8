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

// halfSpaceFeature is the feature id of the boundary plane.
var halfSpaceFeature = shape.FaceID(0)

func halfSpaceOf(g shape.Shape) (*shape.HalfSpace, error) {
	h, ok := g.(*shape.HalfSpace)
	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedQuery, "expected a halfspace, got %v", g.Kind())
	}
	return h, nil
}

// convexHalfSpaceAlgorithm finds the deepest point of a convex shape below the boundary plane with a
// single support query.
type convexHalfSpaceAlgorithm struct{}

type halfSpaceFrame struct {
	// normal and origin of the boundary plane in the frame of the convex shape
	normal r3.Vector
	origin r3.Vector
}

func convexHalfSpaceSetup(pos12 spatialmath.Pose, g1, g2 shape.Shape) (shape.SupportMap, halfSpaceFrame, error) {
	s1, ok := g1.(shape.SupportMap)
	if !ok {
		return nil, halfSpaceFrame{}, errors.Wrapf(ErrUnsupportedQuery, "shape %v is not support mapped", g1.Kind())
	}
	h, err := halfSpaceOf(g2)
	if err != nil {
		return nil, halfSpaceFrame{}, err
	}
	return s1, halfSpaceFrame{normal: spatialmath.RotateVector(pos12, h.Normal()), origin: pos12.Point()}, nil
}

func (f halfSpaceFrame) signedDistance(p r3.Vector) float64 {
	return p.Sub(f.origin).Dot(f.normal)
}

func convexHalfSpaceContact(pos12 spatialmath.Pose, g1, g2 shape.Shape) (Contact, error) {
	s1, frame, err := convexHalfSpaceSetup(pos12, g1, g2)
	if err != nil {
		return Contact{}, err
	}
	deepest := s1.LocalSupportPoint(frame.normal.Mul(-1))
	dist := frame.signedDistance(deepest)
	onPlane := deepest.Sub(frame.normal.Mul(dist))
	return contactFromPoints(pos12, deepest, onPlane, frame.normal.Mul(-1), dist), nil
}

func (convexHalfSpaceAlgorithm) Distance(pos12 spatialmath.Pose, g1, g2 shape.Shape, opts *Options) (float64, error) {
	c, err := convexHalfSpaceContact(pos12, g1, g2)
	return math.Max(0, c.Distance), err
}

func (convexHalfSpaceAlgorithm) Intersects(pos12 spatialmath.Pose, g1, g2 shape.Shape, opts *Options) (bool, error) {
	c, err := convexHalfSpaceContact(pos12, g1, g2)
	return c.Distance <= 0, err
}

func (convexHalfSpaceAlgorithm) Contact(
	pos12 spatialmath.Pose,
	g1, g2 shape.Shape,
	prediction float64,
	opts *Options,
) (Contact, bool, error) {
	c, err := convexHalfSpaceContact(pos12, g1, g2)
	if err != nil || c.Distance > prediction {
		return Contact{}, false, err
	}
	return c, true, nil
}

func (convexHalfSpaceAlgorithm) ClosestPoints(
	pos12 spatialmath.Pose,
	g1, g2 shape.Shape,
	maxDist float64,
	opts *Options,
) (ClosestPoints, error) {
	c, err := convexHalfSpaceContact(pos12, g1, g2)
	if err != nil {
		return ClosestPoints{}, err
	}
	return closestPointsFromContact(c, maxDist), nil
}

// ContactManifolds reports every vertex of the support feature below prediction, so that a box resting
// on the plane gets its four corners.
func (convexHalfSpaceAlgorithm) ContactManifolds(
	pos12 spatialmath.Pose,
	g1, g2 shape.Shape,
	prediction float64,
	opts *Options,
	out []manifold.Manifold,
) ([]manifold.Manifold, error) {
	s1, frame, err := convexHalfSpaceSetup(pos12, g1, g2)
	if err != nil {
		return out, err
	}
	pfm, ok := s1.(shape.PolygonalFeatureMap)
	if !ok {
		c, err := convexHalfSpaceContact(pos12, g1, g2)
		if err != nil || c.Distance > prediction {
			return out, err
		}
		return append(out, manifold.FromContact(pos12, c.Point1, c.Point2, c.Normal1, c.Distance, shape.UnknownFeature, halfSpaceFeature)), nil
	}

	feature := pfm.LocalSupportFeature(frame.normal.Mul(-1))
	var buf [shape.MaxFeatureVertices]manifold.Point
	pts := buf[:0]
	for i := 0; i < feature.NumVertices; i++ {
		v := feature.Vertices[i]
		dist := frame.signedDistance(v)
		if dist > prediction {
			continue
		}
		pts = append(pts, manifold.Point{
			LocalPoint1: v,
			LocalPoint2: spatialmath.InverseTransformPoint(pos12, v.Sub(frame.normal.Mul(dist))),
			Dist:        dist,
			ID1:         feature.VertexIDs[i],
			ID2:         halfSpaceFeature,
		})
	}
	if len(pts) == 0 {
		return out, nil
	}
	m := manifold.Manifold{
		Normal1: frame.normal.Mul(-1),
		Normal2: spatialmath.InverseRotateVector(pos12, frame.normal),
	}
	manifold.Reduce(&m, pts)
	return append(out, m), nil
}

func (a convexHalfSpaceAlgorithm) TimeOfImpact(
	pos12 spatialmath.Pose,
	vel12 r3.Vector,
	g1, g2 shape.Shape,
	opts *Options,
) (toi.Result, error) {
	return linearTimeOfImpact(a.Contact, pos12, vel12, g1, g2, opts)
}

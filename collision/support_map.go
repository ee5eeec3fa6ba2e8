package collision

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/collide/collision/epa"
	"go.viam.com/collide/collision/gjk"
	"go.viam.com/collide/collision/manifold"
	"go.viam.com/collide/collision/toi"
	"go.viam.com/collide/shape"
	"go.viam.com/collide/spatialmath"
)

// SupportMapAlgorithm answers every query between two convex support-mapped shapes with GJK, EPA and,
// when both shapes expose polygonal features, manifold clipping. It is the algorithm to register for
// custom convex shape kinds.
type SupportMapAlgorithm struct{}

func supportMaps(g1, g2 shape.Shape) (shape.SupportMap, shape.SupportMap, error) {
	s1, ok1 := g1.(shape.SupportMap)
	s2, ok2 := g2.(shape.SupportMap)
	if !ok1 || !ok2 {
		return nil, nil, errors.Wrapf(ErrUnsupportedQuery, "shape pair (%v, %v) is not support mapped", g1.Kind(), g2.Kind())
	}
	return s1, s2, nil
}

// Distance runs GJK to convergence.
func (SupportMapAlgorithm) Distance(pos12 spatialmath.Pose, g1, g2 shape.Shape, opts *Options) (float64, error) {
	s1, s2, err := supportMaps(g1, g2)
	if err != nil {
		return 0, err
	}
	dist, _ := gjk.Distance(pos12, s1, s2, opts.GJK)
	return dist, nil
}

// Intersects runs GJK until a separating direction or an enclosing simplex is found.
func (SupportMapAlgorithm) Intersects(pos12 spatialmath.Pose, g1, g2 shape.Shape, opts *Options) (bool, error) {
	s1, s2, err := supportMaps(g1, g2)
	if err != nil {
		return false, err
	}
	return gjk.Intersects(pos12, s1, s2, opts.GJK), nil
}

// Contact runs GJK and, on overlap, EPA from the final GJK simplex.
func (SupportMapAlgorithm) Contact(
	pos12 spatialmath.Pose,
	g1, g2 shape.Shape,
	prediction float64,
	opts *Options,
) (Contact, bool, error) {
	s1, s2, err := supportMaps(g1, g2)
	if err != nil {
		return Contact{}, false, err
	}
	c, ok := supportMapContact(pos12, s1, s2, prediction, opts)
	return c, ok, nil
}

// ClosestPoints runs GJK with early exit beyond maxDist.
func (SupportMapAlgorithm) ClosestPoints(
	pos12 spatialmath.Pose,
	g1, g2 shape.Shape,
	maxDist float64,
	opts *Options,
) (ClosestPoints, error) {
	s1, s2, err := supportMaps(g1, g2)
	if err != nil {
		return ClosestPoints{}, err
	}
	return supportMapClosestPoints(pos12, s1, s2, maxDist, opts), nil
}

// ContactManifolds clips the support features of both shapes along the contact normal.
func (SupportMapAlgorithm) ContactManifolds(
	pos12 spatialmath.Pose,
	g1, g2 shape.Shape,
	prediction float64,
	opts *Options,
	out []manifold.Manifold,
) ([]manifold.Manifold, error) {
	s1, s2, err := supportMaps(g1, g2)
	if err != nil {
		return out, err
	}
	c, ok := supportMapContact(pos12, s1, s2, prediction, opts)
	if !ok {
		return out, nil
	}
	return append(out, featureManifold(pos12, g1, g2, c, prediction, opts)), nil
}

// TimeOfImpact advances the shapes conservatively using the GJK distance.
func (a SupportMapAlgorithm) TimeOfImpact(
	pos12 spatialmath.Pose,
	vel12 r3.Vector,
	g1, g2 shape.Shape,
	opts *Options,
) (toi.Result, error) {
	return linearTimeOfImpact(a.Contact, pos12, vel12, g1, g2, opts)
}

func supportMapContact(pos12 spatialmath.Pose, s1, s2 gjk.SupportMap, prediction float64, opts *Options) (Contact, bool) {
	simplex := gjk.InitialSimplex(pos12, s1, s2)
	res := gjk.ClosestPoints(pos12, s1, s2, prediction, false, simplex, opts.GJK)
	switch res.Status {
	case gjk.Separated:
		return contactFromPoints(pos12, res.Point1, res.Point2, res.Normal, res.Distance), true
	case gjk.Proximity:
		return Contact{}, false
	case gjk.Indeterminate:
		if res.Distance > prediction {
			return Contact{}, false
		}
		c := contactFromPoints(pos12, res.Point1, res.Point2, res.Normal, res.Distance)
		c.Degenerate = true
		return c, true
	}

	pen, ok := epa.Penetration(pos12, s1, s2, simplex, opts.EPA)
	if !ok {
		// touching or flat configuration: report a zero depth contact along the center line
		normal, _, found := spatialmath.SafeNormalize(pos12.Point(), 1e-12)
		if !found {
			normal = r3.Vector{X: 1}
		}
		c := contactFromPoints(pos12, res.Point1, res.Point2, normal, 0)
		c.Degenerate = true
		return c, true
	}
	c := contactFromPoints(pos12, pen.Point1, pen.Point2, pen.Normal, -pen.Depth)
	c.Degenerate = pen.Approximate
	return c, true
}

func supportMapClosestPoints(pos12 spatialmath.Pose, s1, s2 gjk.SupportMap, maxDist float64, opts *Options) ClosestPoints {
	res := gjk.ClosestPoints(pos12, s1, s2, maxDist, false, nil, opts.GJK)
	switch res.Status {
	case gjk.Intersection:
		return ClosestPoints{Status: Intersecting}
	case gjk.Proximity:
		return ClosestPoints{Status: Disjoint, Distance: res.Distance}
	}
	if res.Distance > maxDist {
		return ClosestPoints{Status: Disjoint, Distance: res.Distance, Degenerate: true}
	}
	return ClosestPoints{
		Status:     WithinMargin,
		Point1:     res.Point1,
		Point2:     spatialmath.InverseTransformPoint(pos12, res.Point2),
		Distance:   res.Distance,
		Degenerate: res.Status == gjk.Indeterminate,
	}
}

// featureManifold clips the features of two polygonal shapes around a contact, falling back to the
// single contact point for curved shapes or when clipping keeps nothing.
func featureManifold(pos12 spatialmath.Pose, g1, g2 shape.Shape, c Contact, prediction float64, opts *Options) manifold.Manifold {
	f1, ok1 := g1.(shape.PolygonalFeatureMap)
	f2, ok2 := g2.(shape.PolygonalFeatureMap)
	if ok1 && ok2 && c.Normal1.Norm2() > 0 {
		feature1 := f1.LocalSupportFeature(c.Normal1)
		feature2 := f2.LocalSupportFeature(c.Normal2)
		if m := manifold.Clip(pos12, feature1, feature2, c.Normal1, prediction, opts.Manifold); m.NumPoints > 0 {
			return m
		}
	}
	return manifold.FromContact(pos12, c.Point1, c.Point2, c.Normal1, c.Distance, shape.UnknownFeature, shape.UnknownFeature)
}

// Package collision routes pairs of shapes to the narrow phase algorithm registered for their kinds and
// exposes distance, intersection, contact, manifold and time of impact queries on top of it.
//
// Algorithms work in the local frame of the first shape: pos12 is the pose of the second shape relative
// to the first. The Dispatcher wraps them with world space helpers.
package collision

import (
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/collide/collision/manifold"
	"go.viam.com/collide/collision/toi"
	"go.viam.com/collide/shape"
	"go.viam.com/collide/spatialmath"
)

// Algorithm answers queries for one ordered pair of shape kinds.
type Algorithm interface {
	// Distance returns the separation of the shapes, 0 when they overlap.
	Distance(pos12 spatialmath.Pose, g1, g2 shape.Shape, opts *Options) (float64, error)
	Intersects(pos12 spatialmath.Pose, g1, g2 shape.Shape, opts *Options) (bool, error)
	// Contact returns the closest points or, when overlapping, the deepest points. It returns false when
	// the shapes are farther apart than prediction.
	Contact(pos12 spatialmath.Pose, g1, g2 shape.Shape, prediction float64, opts *Options) (Contact, bool, error)
	ClosestPoints(pos12 spatialmath.Pose, g1, g2 shape.Shape, maxDist float64, opts *Options) (ClosestPoints, error)
	// ContactManifolds appends to out the manifolds of the contacts closer than prediction.
	ContactManifolds(
		pos12 spatialmath.Pose,
		g1, g2 shape.Shape,
		prediction float64,
		opts *Options,
		out []manifold.Manifold,
	) ([]manifold.Manifold, error)
	// TimeOfImpact returns the first time the second shape, translating at vel12 in the frame of the first,
	// touches the first shape.
	TimeOfImpact(pos12 spatialmath.Pose, vel12 r3.Vector, g1, g2 shape.Shape, opts *Options) (toi.Result, error)
}

// BaseAlgorithm implements every query of Algorithm by returning ErrUnsupportedQuery. Algorithms that
// only answer some queries embed it.
type BaseAlgorithm struct{}

// Distance is unsupported.
func (BaseAlgorithm) Distance(pos12 spatialmath.Pose, g1, g2 shape.Shape, opts *Options) (float64, error) {
	return 0, ErrUnsupportedQuery
}

// Intersects is unsupported.
func (BaseAlgorithm) Intersects(pos12 spatialmath.Pose, g1, g2 shape.Shape, opts *Options) (bool, error) {
	return false, ErrUnsupportedQuery
}

// Contact is unsupported.
func (BaseAlgorithm) Contact(pos12 spatialmath.Pose, g1, g2 shape.Shape, prediction float64, opts *Options) (Contact, bool, error) {
	return Contact{}, false, ErrUnsupportedQuery
}

// ClosestPoints is unsupported.
func (BaseAlgorithm) ClosestPoints(pos12 spatialmath.Pose, g1, g2 shape.Shape, maxDist float64, opts *Options) (ClosestPoints, error) {
	return ClosestPoints{}, ErrUnsupportedQuery
}

// ContactManifolds is unsupported.
func (BaseAlgorithm) ContactManifolds(
	pos12 spatialmath.Pose,
	g1, g2 shape.Shape,
	prediction float64,
	opts *Options,
	out []manifold.Manifold,
) ([]manifold.Manifold, error) {
	return out, ErrUnsupportedQuery
}

// TimeOfImpact is unsupported.
func (BaseAlgorithm) TimeOfImpact(pos12 spatialmath.Pose, vel12 r3.Vector, g1, g2 shape.Shape, opts *Options) (toi.Result, error) {
	return toi.Result{}, ErrUnsupportedQuery
}

// swappedAlgorithm answers (B, A) queries with an algorithm registered for (A, B).
type swappedAlgorithm struct {
	inner Algorithm
}

func (s swappedAlgorithm) Distance(pos12 spatialmath.Pose, g1, g2 shape.Shape, opts *Options) (float64, error) {
	return s.inner.Distance(spatialmath.PoseInverse(pos12), g2, g1, opts)
}

func (s swappedAlgorithm) Intersects(pos12 spatialmath.Pose, g1, g2 shape.Shape, opts *Options) (bool, error) {
	return s.inner.Intersects(spatialmath.PoseInverse(pos12), g2, g1, opts)
}

func (s swappedAlgorithm) Contact(
	pos12 spatialmath.Pose,
	g1, g2 shape.Shape,
	prediction float64,
	opts *Options,
) (Contact, bool, error) {
	c, ok, err := s.inner.Contact(spatialmath.PoseInverse(pos12), g2, g1, prediction, opts)
	return c.Flipped(), ok, err
}

func (s swappedAlgorithm) ClosestPoints(
	pos12 spatialmath.Pose,
	g1, g2 shape.Shape,
	maxDist float64,
	opts *Options,
) (ClosestPoints, error) {
	res, err := s.inner.ClosestPoints(spatialmath.PoseInverse(pos12), g2, g1, maxDist, opts)
	return res.Flipped(), err
}

func (s swappedAlgorithm) ContactManifolds(
	pos12 spatialmath.Pose,
	g1, g2 shape.Shape,
	prediction float64,
	opts *Options,
	out []manifold.Manifold,
) ([]manifold.Manifold, error) {
	start := len(out)
	out, err := s.inner.ContactManifolds(spatialmath.PoseInverse(pos12), g2, g1, prediction, opts, out)
	for i := start; i < len(out); i++ {
		out[i] = out[i].Flipped()
	}
	return out, err
}

func (s swappedAlgorithm) TimeOfImpact(
	pos12 spatialmath.Pose,
	vel12 r3.Vector,
	g1, g2 shape.Shape,
	opts *Options,
) (toi.Result, error) {
	// the first shape moves at -vel12 relative to the second, seen from the second
	vel21 := spatialmath.InverseRotateVector(pos12, vel12.Mul(-1))
	res, err := s.inner.TimeOfImpact(spatialmath.PoseInverse(pos12), vel21, g2, g1, opts)
	return res.Swapped(), err
}

// contactFunc is the Contact method of an algorithm.
type contactFunc func(pos12 spatialmath.Pose, g1, g2 shape.Shape, prediction float64, opts *Options) (Contact, bool, error)

// linearTimeOfImpact runs conservative advancement on the contact query of an algorithm. The first shape
// stays at the origin and the second translates from pos12 at vel12.
func linearTimeOfImpact(
	contact contactFunc,
	pos12 spatialmath.Pose,
	vel12 r3.Vector,
	g1, g2 shape.Shape,
	opts *Options,
) (toi.Result, error) {
	m1 := toi.NewStaticMotion(spatialmath.NewZeroPose())
	m2 := toi.NewLinearMotion(pos12, vel12)
	return toi.ConservativeAdvancement(contactDistanceFunc(contact, g1, g2, opts), m1, m2, 0, 0, opts.TOI)
}

// contactDistanceFunc adapts a contact query to the distance callback of conservative advancement.
func contactDistanceFunc(contact contactFunc, g1, g2 shape.Shape, opts *Options) toi.DistanceFunc {
	return func(pos1, pos2 spatialmath.Pose) (toi.Proximity, error) {
		c, ok, err := contact(spatialmath.PoseBetween(pos1, pos2), g1, g2, math.Inf(1), opts)
		if err != nil {
			return toi.Proximity{}, err
		}
		if !ok {
			return toi.Proximity{Distance: math.Inf(1)}, nil
		}
		w := c.World(pos1, pos2)
		return toi.Proximity{Distance: w.Distance, Point1: w.Point1, Point2: w.Point2, Normal: w.Normal}, nil
	}
}

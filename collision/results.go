package collision

import (
	"fmt"

	"github.com/golang/geo/r3"

	"go.viam.com/collide/spatialmath"
)

// Contact is the closest or deepest pair of points of two shapes. Point1 and Normal1 are in the frame of
// the first shape, Point2 and Normal2 in the frame of the second. Normal1 points toward the second shape
// and Normal2 toward the first. Distance is negative when the shapes overlap.
type Contact struct {
	Point1   r3.Vector
	Point2   r3.Vector
	Normal1  r3.Vector
	Normal2  r3.Vector
	Distance float64
	// Degenerate is set when an iteration cap was hit or the geometry admitted no unique normal; the
	// contact is then a best-effort estimate.
	Degenerate bool
}

// Flipped returns the contact seen from the second shape.
func (c Contact) Flipped() Contact {
	return Contact{
		Point1:     c.Point2,
		Point2:     c.Point1,
		Normal1:    c.Normal2,
		Normal2:    c.Normal1,
		Distance:   c.Distance,
		Degenerate: c.Degenerate,
	}
}

// World expresses the contact in the world frame given the poses of both shapes.
func (c Contact) World(pose1, pose2 spatialmath.Pose) WorldContact {
	return WorldContact{
		Point1:     spatialmath.TransformPoint(pose1, c.Point1),
		Point2:     spatialmath.TransformPoint(pose2, c.Point2),
		Normal:     spatialmath.RotateVector(pose1, c.Normal1),
		Distance:   c.Distance,
		Degenerate: c.Degenerate,
	}
}

func (c Contact) String() string {
	return fmt.Sprintf("contact{dist: %.6g, p1: %v, p2: %v, n1: %v}", c.Distance, c.Point1, c.Point2, c.Normal1)
}

// WorldContact is a Contact in the world frame. Normal points from the first shape toward the second.
type WorldContact struct {
	Point1     r3.Vector
	Point2     r3.Vector
	Normal     r3.Vector
	Distance   float64
	Degenerate bool
}

// ClosestPointsStatus classifies a closest points query.
type ClosestPointsStatus int

const (
	// Intersecting means the shapes overlap; no points are reported.
	Intersecting ClosestPointsStatus = iota
	// WithinMargin means the shapes are separated by at most the requested distance.
	WithinMargin
	// Disjoint means the shapes are farther apart than the requested distance; no points are reported.
	Disjoint
)

func (s ClosestPointsStatus) String() string {
	switch s {
	case Intersecting:
		return "intersecting"
	case WithinMargin:
		return "within_margin"
	case Disjoint:
		return "disjoint"
	default:
		return fmt.Sprintf("closest_points_status(%d)", int(s))
	}
}

// ClosestPoints is the result of a closest points query. Point1 is in the frame of the first shape and
// Point2 in the frame of the second; both are set only for WithinMargin.
type ClosestPoints struct {
	Status     ClosestPointsStatus
	Point1     r3.Vector
	Point2     r3.Vector
	Distance   float64
	Degenerate bool
}

// Flipped returns the result seen from the second shape.
func (c ClosestPoints) Flipped() ClosestPoints {
	c.Point1, c.Point2 = c.Point2, c.Point1
	return c
}

// contactFromPoints builds a contact from two points and a normal expressed in the frame of the first
// shape.
func contactFromPoints(pos12 spatialmath.Pose, p1, p2, normal1 r3.Vector, dist float64) Contact {
	return Contact{
		Point1:   p1,
		Point2:   spatialmath.InverseTransformPoint(pos12, p2),
		Normal1:  normal1,
		Normal2:  spatialmath.InverseRotateVector(pos12, normal1.Mul(-1)),
		Distance: dist,
	}
}

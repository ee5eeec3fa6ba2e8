// Package manifold turns a narrow phase contact into a contact manifold: up to MaxPoints contact points
// sharing one normal, each tagged with the ids of the features that produced it.
//
// Ids depend only on the topology of the touching features, so a caller that keeps the manifold of the
// previous query can match points across queries. Nothing is cached here.
package manifold

import (
	"fmt"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/collide/shape"
	"go.viam.com/collide/spatialmath"
)

// MaxPoints is the largest number of points a manifold keeps.
const MaxPoints = 4

// Point is one contact point. LocalPoint1 is expressed in the frame of the first shape and LocalPoint2 in
// the frame of the second. Dist is the signed separation along the manifold normal; it is negative when
// the shapes overlap at this point.
type Point struct {
	LocalPoint1 r3.Vector
	LocalPoint2 r3.Vector
	Dist        float64
	ID1         shape.FeatureID
	ID2         shape.FeatureID
}

// Manifold is a set of contact points between two shapes, or between two parts of composite shapes.
type Manifold struct {
	// Normal1 is the unit contact normal in the frame of the first shape, pointing toward the second.
	Normal1 r3.Vector
	// Normal2 is the same normal in the frame of the second shape, pointing toward the first.
	Normal2 r3.Vector

	Points    [MaxPoints]Point
	NumPoints int

	// SubshapeIndex1 and SubshapeIndex2 name the parts of composite shapes that touch; 0 otherwise.
	SubshapeIndex1 int
	SubshapeIndex2 int
}

// Len returns the number of points.
func (m *Manifold) Len() int {
	return m.NumPoints
}

// Add appends p. It returns false when the manifold is full.
func (m *Manifold) Add(p Point) bool {
	if m.NumPoints >= MaxPoints {
		return false
	}
	m.Points[m.NumPoints] = p
	m.NumPoints++
	return true
}

// Deepest returns the point with the smallest Dist.
func (m *Manifold) Deepest() (Point, bool) {
	if m.NumPoints == 0 {
		return Point{}, false
	}
	best := 0
	for i := 1; i < m.NumPoints; i++ {
		if m.Points[i].Dist < m.Points[best].Dist {
			best = i
		}
	}
	return m.Points[best], true
}

// Flipped returns the manifold seen from the second shape.
func (m Manifold) Flipped() Manifold {
	out := Manifold{
		Normal1:        m.Normal2,
		Normal2:        m.Normal1,
		NumPoints:      m.NumPoints,
		SubshapeIndex1: m.SubshapeIndex2,
		SubshapeIndex2: m.SubshapeIndex1,
	}
	for i := 0; i < m.NumPoints; i++ {
		p := m.Points[i]
		out.Points[i] = Point{LocalPoint1: p.LocalPoint2, LocalPoint2: p.LocalPoint1, Dist: p.Dist, ID1: p.ID2, ID2: p.ID1}
	}
	return out
}

func (m Manifold) String() string {
	return fmt.Sprintf("manifold{n1: %v, points: %d, parts: (%d, %d)}", m.Normal1, m.NumPoints, m.SubshapeIndex1, m.SubshapeIndex2)
}

// Config holds the tunable parameters of the clipping.
type Config struct {
	// TieBreakEpsilon is the band within which the faces of both shapes are considered equally aligned
	// with the contact normal. Inside the band the face of the first shape is the reference face.
	TieBreakEpsilon float64 `json:"tie_break_epsilon"`
}

// DefaultConfig returns the settings used when none are given.
func DefaultConfig() Config {
	return Config{TieBreakEpsilon: 1e-3}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if !(c.TieBreakEpsilon >= 0 && c.TieBreakEpsilon < 1) {
		return errors.Errorf("manifold tie_break_epsilon must be in [0, 1), got %v", c.TieBreakEpsilon)
	}
	return nil
}

// FromContact builds a single point manifold. point1 and normal1 are in the frame of the first shape,
// point2 in the frame of the second.
func FromContact(pos12 spatialmath.Pose, point1, point2, normal1 r3.Vector, dist float64, id1, id2 shape.FeatureID) Manifold {
	m := Manifold{
		Normal1: normal1,
		Normal2: spatialmath.InverseRotateVector(pos12, normal1.Mul(-1)),
	}
	m.Add(Point{LocalPoint1: point1, LocalPoint2: point2, Dist: dist, ID1: id1, ID2: id2})
	return m
}

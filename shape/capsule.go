package shape

import (
	"encoding/json"
	"fmt"

	"github.com/golang/geo/r3"

	"go.viam.com/collide/spatialmath"
)

// Capsule is the set of points within radius of a segment lying on the local Z axis.
//
// ....___________________
// .../                   \
// .x|  |-------O-------|  |x
// ...\___________________/
//
// Length is the distance between the x's, or internal segment length + 2*radius.
type Capsule struct {
	radius     float64
	halfHeight float64
}

// NewCapsule instantiates a new Capsule from its radius and tip to tip length. A length of exactly twice the
// radius produces a capsule whose inner segment is a point.
func NewCapsule(radius, length float64) (*Capsule, error) {
	if err := checkPositive("capsule", radius, length); err != nil {
		return nil, err
	}
	if length < radius*2 {
		return nil, spatialmath.NewConfigurationError("capsule",
			"length %.3f must be at least twice the radius %.3f", length, radius)
	}
	return &Capsule{radius: radius, halfHeight: length/2 - radius}, nil
}

// Radius returns the radius of the capsule.
func (c *Capsule) Radius() float64 { return c.radius }

// Length returns the tip to tip length of the capsule.
func (c *Capsule) Length() float64 { return 2 * (c.halfHeight + c.radius) }

// HalfHeight returns half the length of the inner segment.
func (c *Capsule) HalfHeight() float64 { return c.halfHeight }

// Segment returns the endpoints of the inner segment in the local frame.
func (c *Capsule) Segment() (r3.Vector, r3.Vector) {
	return r3.Vector{Z: -c.halfHeight}, r3.Vector{Z: c.halfHeight}
}

// Kind returns KindCapsule.
func (c *Capsule) Kind() Kind { return KindCapsule }

// IsConvex returns true.
func (c *Capsule) IsConvex() bool { return true }

// String returns a human readable string that represents the capsule.
func (c *Capsule) String() string {
	return fmt.Sprintf("Type: Capsule | Radius: %.3f | Length: %.3f", c.radius, c.Length())
}

// MarshalJSON serializes the capsule as a ShapeConfig.
func (c *Capsule) MarshalJSON() ([]byte, error) {
	config, err := NewShapeConfig(c)
	if err != nil {
		return nil, err
	}
	return json.Marshal(config)
}

// LocalAABB returns the box enclosing the capsule.
func (c *Capsule) LocalAABB() spatialmath.AABB {
	return spatialmath.NewAABBFromHalfExtents(r3.Vector{}, r3.Vector{X: c.radius, Y: c.radius, Z: c.halfHeight + c.radius})
}

// LocalBoundingSphere returns the sphere through both tips.
func (c *Capsule) LocalBoundingSphere() spatialmath.BoundingSphere {
	return spatialmath.BoundingSphere{Radius: c.halfHeight + c.radius}
}

// AABB returns the exact world box of the capsule.
func (c *Capsule) AABB(pose spatialmath.Pose) spatialmath.AABB {
	a, b := c.Segment()
	a = spatialmath.TransformPoint(pose, a)
	b = spatialmath.TransformPoint(pose, b)
	return spatialmath.NewAABB(a, b).Loosened(c.radius)
}

// LocalSupportPoint returns the support point of the segment pushed out by the radius.
func (c *Capsule) LocalSupportPoint(dir r3.Vector) r3.Vector {
	p := r3.Vector{Z: c.halfHeight * signOf(dir.Z)}
	n := dir.Norm()
	if n == 0 {
		return p.Add(r3.Vector{X: c.radius})
	}
	return p.Add(dir.Mul(c.radius / n))
}

// CastLocalRay casts the ray with the GJK ray cast.
func (c *Capsule) CastLocalRay(ray spatialmath.Ray, maxTOI float64, solid bool) (RayIntersection, bool) {
	return castSupportMap(c, ray, maxTOI, solid)
}

package shape

import (
	"encoding/json"
	"fmt"

	"github.com/golang/geo/r3"

	"go.viam.com/collide/spatialmath"
	"go.viam.com/collide/utils"
)

// Cone is a solid circular cone along the local Z axis with its apex at +Z and its base at -Z, the two
// half a length away from the origin.
type Cone struct {
	radius     float64
	halfHeight float64
}

// NewCone instantiates a new Cone from its base radius and its length along Z.
func NewCone(radius, length float64) (*Cone, error) {
	if err := checkPositive("cone", radius, length); err != nil {
		return nil, err
	}
	return &Cone{radius: radius, halfHeight: length / 2}, nil
}

// Radius returns the base radius.
func (c *Cone) Radius() float64 { return c.radius }

// Length returns the distance from base to apex.
func (c *Cone) Length() float64 { return 2 * c.halfHeight }

// Apex returns the local apex point.
func (c *Cone) Apex() r3.Vector { return r3.Vector{Z: c.halfHeight} }

// Kind returns KindCone.
func (c *Cone) Kind() Kind { return KindCone }

// IsConvex returns true.
func (c *Cone) IsConvex() bool { return true }

func (c *Cone) String() string {
	return fmt.Sprintf("Type: Cone | Radius: %.3f | Length: %.3f", c.radius, c.Length())
}

// MarshalJSON serializes the cone as a ShapeConfig.
func (c *Cone) MarshalJSON() ([]byte, error) {
	config, err := NewShapeConfig(c)
	if err != nil {
		return nil, err
	}
	return json.Marshal(config)
}

// LocalAABB returns the local box of the cone.
func (c *Cone) LocalAABB() spatialmath.AABB {
	return spatialmath.NewAABBFromHalfExtents(r3.Vector{}, r3.Vector{X: c.radius, Y: c.radius, Z: c.halfHeight})
}

// LocalBoundingSphere returns a sphere centered on the origin through the apex and the base rim.
func (c *Cone) LocalBoundingSphere() spatialmath.BoundingSphere {
	return spatialmath.BoundingSphere{Radius: utils.Sqrt(c.radius*c.radius + c.halfHeight*c.halfHeight)}
}

// AABB returns the exact world box of the cone.
func (c *Cone) AABB(pose spatialmath.Pose) spatialmath.AABB {
	return supportAABB(pose, c)
}

// LocalSupportPoint returns the apex or the base rim point farthest along dir; the apex wins ties.
func (c *Cone) LocalSupportPoint(dir r3.Vector) r3.Vector {
	rim := r3.Vector{Z: -c.halfHeight}
	if xy := utils.Sqrt(dir.X*dir.X + dir.Y*dir.Y); xy > 0 {
		rim.X = dir.X * c.radius / xy
		rim.Y = dir.Y * c.radius / xy
	}
	apex := c.Apex()
	if rim.Dot(dir) > apex.Dot(dir) {
		return rim
	}
	return apex
}

// CastLocalRay casts the ray with the GJK ray cast.
func (c *Cone) CastLocalRay(ray spatialmath.Ray, maxTOI float64, solid bool) (RayIntersection, bool) {
	return castSupportMap(c, ray, maxTOI, solid)
}

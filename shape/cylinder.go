package shape

import (
	"encoding/json"
	"fmt"

	"github.com/golang/geo/r3"

	"go.viam.com/collide/spatialmath"
	"go.viam.com/collide/utils"
)

// Cylinder is a solid circular cylinder whose axis is the local Z axis, centered on the origin.
type Cylinder struct {
	radius     float64
	halfHeight float64
}

// NewCylinder instantiates a new Cylinder from its radius and its length along Z.
func NewCylinder(radius, length float64) (*Cylinder, error) {
	if err := checkPositive("cylinder", radius, length); err != nil {
		return nil, err
	}
	return &Cylinder{radius: radius, halfHeight: length / 2}, nil
}

// Radius returns the radius of the cylinder.
func (c *Cylinder) Radius() float64 { return c.radius }

// Length returns the length of the cylinder along its axis.
func (c *Cylinder) Length() float64 { return 2 * c.halfHeight }

// Kind returns KindCylinder.
func (c *Cylinder) Kind() Kind { return KindCylinder }

// IsConvex returns true.
func (c *Cylinder) IsConvex() bool { return true }

func (c *Cylinder) String() string {
	return fmt.Sprintf("Type: Cylinder | Radius: %.3f | Length: %.3f", c.radius, c.Length())
}

// MarshalJSON serializes the cylinder as a ShapeConfig.
func (c *Cylinder) MarshalJSON() ([]byte, error) {
	config, err := NewShapeConfig(c)
	if err != nil {
		return nil, err
	}
	return json.Marshal(config)
}

// LocalAABB returns the local box of the cylinder.
func (c *Cylinder) LocalAABB() spatialmath.AABB {
	return spatialmath.NewAABBFromHalfExtents(r3.Vector{}, r3.Vector{X: c.radius, Y: c.radius, Z: c.halfHeight})
}

// LocalBoundingSphere returns the sphere through the rims.
func (c *Cylinder) LocalBoundingSphere() spatialmath.BoundingSphere {
	return spatialmath.BoundingSphere{Radius: utils.Sqrt(c.radius*c.radius + c.halfHeight*c.halfHeight)}
}

// AABB returns the exact world box of the cylinder.
func (c *Cylinder) AABB(pose spatialmath.Pose) spatialmath.AABB {
	return supportAABB(pose, c)
}

// LocalSupportPoint returns the rim point farthest along dir. A direction along the axis selects the
// center of the cap.
func (c *Cylinder) LocalSupportPoint(dir r3.Vector) r3.Vector {
	p := r3.Vector{Z: c.halfHeight * signOf(dir.Z)}
	if xy := utils.Sqrt(dir.X*dir.X + dir.Y*dir.Y); xy > 0 {
		p.X = dir.X * c.radius / xy
		p.Y = dir.Y * c.radius / xy
	}
	return p
}

// CastLocalRay casts the ray with the GJK ray cast.
func (c *Cylinder) CastLocalRay(ray spatialmath.Ray, maxTOI float64, solid bool) (RayIntersection, bool) {
	return castSupportMap(c, ray, maxTOI, solid)
}

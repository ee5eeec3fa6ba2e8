package shape

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/collide/bvh"
	"go.viam.com/collide/spatialmath"
)

// CompoundPart is a convex child of a Compound and its pose in the compound frame.
type CompoundPart struct {
	Pose  spatialmath.Pose
	Shape SupportMap
}

// Compound is a rigid union of convex parts. Its support map is the support of the convex hull of the
// parts; collision queries go through the part tree instead.
type Compound struct {
	parts   []CompoundPart
	spheres []spatialmath.BoundingSphere
	aabb    spatialmath.AABB
	sphere  spatialmath.BoundingSphere
	tree    *bvh.Tree
}

// NewCompound instantiates a new Compound. At least one part is required, and parts must be convex support
// maps with finite poses.
func NewCompound(parts []CompoundPart) (*Compound, error) {
	if len(parts) == 0 {
		return nil, spatialmath.NewConfigurationError("compound", "no parts")
	}
	c := &Compound{
		parts:   make([]CompoundPart, len(parts)),
		spheres: make([]spatialmath.BoundingSphere, len(parts)),
		aabb:    spatialmath.EmptyAABB(),
	}
	copy(c.parts, parts)
	leaves := make([]bvh.Leaf, len(parts))
	for i, part := range c.parts {
		if part.Shape == nil {
			return nil, spatialmath.NewConfigurationError("compound", "part %d has no shape", i)
		}
		if part.Pose == nil {
			c.parts[i].Pose = spatialmath.NewZeroPose()
			part = c.parts[i]
		}
		if !spatialmath.PoseIsFinite(part.Pose) {
			return nil, spatialmath.NewConfigurationError("compound", "part %d has a non-finite pose", i)
		}
		if _, ok := part.Shape.(Composite); ok {
			return nil, spatialmath.NewConfigurationError("compound", "part %d is itself composite", i)
		}
		box := part.Shape.AABB(part.Pose)
		leaves[i] = bvh.Leaf{AABB: box, Data: i}
		c.aabb = c.aabb.Union(box)
		c.spheres[i] = part.Shape.LocalBoundingSphere().Transform(part.Pose)
		if i == 0 {
			c.sphere = c.spheres[i]
		} else {
			c.sphere = c.sphere.Merged(c.spheres[i])
		}
	}
	c.tree = bvh.Build(leaves)
	return c, nil
}

// Kind returns KindCompound.
func (c *Compound) Kind() Kind { return KindCompound }

// IsConvex returns false; a union of convex parts is in general not convex.
func (c *Compound) IsConvex() bool { return false }

func (c *Compound) String() string {
	return fmt.Sprintf("Type: Compound | Parts: %d", len(c.parts))
}

// MarshalJSON serializes the compound as a ShapeConfig with one child per part.
func (c *Compound) MarshalJSON() ([]byte, error) {
	config, err := NewShapeConfig(c)
	if err != nil {
		return nil, err
	}
	return json.Marshal(config)
}

// NumParts returns the number of parts.
func (c *Compound) NumParts() int { return len(c.parts) }

// Part returns the pose and shape of part i.
func (c *Compound) Part(i int) (spatialmath.Pose, Shape) {
	return c.parts[i].Pose, c.parts[i].Shape
}

// Tree returns the part tree.
func (c *Compound) Tree() *bvh.Tree { return c.tree }

// LocalAABB returns the union of the part boxes.
func (c *Compound) LocalAABB() spatialmath.AABB { return c.aabb }

// LocalBoundingSphere returns a sphere enclosing every part sphere.
func (c *Compound) LocalBoundingSphere() spatialmath.BoundingSphere { return c.sphere }

// AABB returns the union of the world boxes of the parts.
func (c *Compound) AABB(pose spatialmath.Pose) spatialmath.AABB {
	box := spatialmath.EmptyAABB()
	for _, part := range c.parts {
		box = box.Union(part.Shape.AABB(spatialmath.Compose(pose, part.Pose)))
	}
	return box
}

// sphereBound is an upper bound of the support value of part i along dir.
func (c *Compound) sphereBound(i int, dir r3.Vector, dirNorm float64) float64 {
	return c.spheres[i].Center.Dot(dir) + c.spheres[i].Radius*dirNorm
}

// LocalSupportPoint returns the support point of the part hull. The part with the largest bounding-sphere
// bound is evaluated first, and parts whose bound cannot beat the best value are skipped. Ties go to the
// lower part index.
func (c *Compound) LocalSupportPoint(dir r3.Vector) r3.Vector {
	dirNorm := dir.Norm()
	first, firstBound := 0, math.Inf(-1)
	for i := range c.parts {
		if b := c.sphereBound(i, dir, dirNorm); b > firstBound {
			first, firstBound = i, b
		}
	}
	bestIdx := first
	best := SupportPointToward(c.parts[first].Shape, c.parts[first].Pose, dir)
	bestDot := best.Dot(dir)
	for i := range c.parts {
		if i == first {
			continue
		}
		bound := c.sphereBound(i, dir, dirNorm)
		if bound < bestDot || (bound == bestDot && i > bestIdx) {
			continue
		}
		p := SupportPointToward(c.parts[i].Shape, c.parts[i].Pose, dir)
		if d := p.Dot(dir); d > bestDot || (d == bestDot && i < bestIdx) {
			best, bestDot, bestIdx = p, d, i
		}
	}
	return best
}

// CastLocalRay returns the first hit among the parts.
func (c *Compound) CastLocalRay(ray spatialmath.Ray, maxTOI float64, solid bool) (RayIntersection, bool) {
	return castComposite(c, ray, maxTOI, solid)
}

// castComposite walks the part tree of a composite and keeps the earliest part hit.
func castComposite(c Composite, ray spatialmath.Ray, maxTOI float64, solid bool) (RayIntersection, bool) {
	var best RayIntersection
	found := false
	tree := c.Tree()
	tree.RayCast(ray, maxTOI, func(id int, ray spatialmath.Ray, maxTOI float64) float64 {
		pose, part := c.Part(tree.Data(id))
		hit, ok := CastRay(part, pose, ray, maxTOI, solid)
		if !ok || (found && hit.TOI >= best.TOI) {
			return -1
		}
		best, found = hit, true
		return hit.TOI
	})
	return best, found
}

package shape

import (
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/collide/bvh"
	"go.viam.com/collide/collision/epa"
	"go.viam.com/collide/collision/gjk"
	"go.viam.com/collide/spatialmath"
	"go.viam.com/collide/utils"
)

// PointProjection is the point of a shape closest to a query point, in the frame the query point was
// given in.
type PointProjection struct {
	Point r3.Vector
	// IsInside is set when the query point lies inside the shape or on its boundary. Segments, triangles,
	// meshes and heightfields have no interior and never report it.
	IsInside bool
}

// PointQuerier is a shape that can project points on itself. Every built-in shape implements it.
type PointQuerier interface {
	// ProjectLocalPoint returns the point of the shape closest to p. With solid set, a point inside the
	// shape projects on itself; otherwise it projects on the boundary.
	ProjectLocalPoint(p r3.Vector, solid bool) PointProjection
}

// ProjectPoint projects the world point p on s placed at pose. The projection is in world space.
func ProjectPoint(s Shape, pose spatialmath.Pose, p r3.Vector, solid bool) (PointProjection, bool) {
	pq, ok := s.(PointQuerier)
	if !ok {
		return PointProjection{}, false
	}
	proj := pq.ProjectLocalPoint(spatialmath.InverseTransformPoint(pose, p), solid)
	proj.Point = spatialmath.TransformPoint(pose, proj.Point)
	return proj, true
}

// DistanceToPoint returns the distance from the world point p to s placed at pose, zero inside.
func DistanceToPoint(s Shape, pose spatialmath.Pose, p r3.Vector) (float64, bool) {
	proj, ok := ProjectPoint(s, pose, p, true)
	if !ok {
		return 0, false
	}
	if proj.IsInside {
		return 0, true
	}
	return proj.Point.Distance(p), true
}

// ContainsPoint reports whether the world point p lies inside s placed at pose.
func ContainsPoint(s Shape, pose spatialmath.Pose, p r3.Vector) bool {
	proj, ok := ProjectPoint(s, pose, p, true)
	return ok && proj.IsInside
}

// ProjectLocalPoint projects p radially on the sphere. The center projects on the +X pole.
func (b *Ball) ProjectLocalPoint(p r3.Vector, solid bool) PointProjection {
	n2 := p.Norm2()
	inside := n2 <= b.radius*b.radius
	if inside && solid {
		return PointProjection{Point: p, IsInside: true}
	}
	n := utils.Sqrt(n2)
	if n == 0 {
		return PointProjection{Point: r3.Vector{X: b.radius}, IsInside: true}
	}
	return PointProjection{Point: p.Mul(b.radius / n), IsInside: inside}
}

// ProjectLocalPoint clamps p to the box. Inside points move to the nearest face, the lowest axis and
// the positive side winning ties.
func (c *Cuboid) ProjectLocalPoint(p r3.Vector, solid bool) PointProjection {
	h := c.halfSize
	clamped := r3.Vector{
		X: utils.Clamp(p.X, -h.X, h.X),
		Y: utils.Clamp(p.Y, -h.Y, h.Y),
		Z: utils.Clamp(p.Z, -h.Z, h.Z),
	}
	if clamped != p || solid {
		return PointProjection{Point: clamped, IsInside: clamped == p}
	}
	axis, gap := 0, math.Inf(1)
	for i := 0; i < 3; i++ {
		if g := spatialmath.Component(h, i) - math.Abs(spatialmath.Component(p, i)); g < gap {
			axis, gap = i, g
		}
	}
	face := spatialmath.Component(h, axis) * utils.CopySign(spatialmath.Component(p, axis))
	return PointProjection{Point: spatialmath.WithComponent(p, axis, face), IsInside: true}
}

// ProjectLocalPoint projects p on the axis segment and offsets it by the radius. Points on the axis
// move along +X.
func (c *Capsule) ProjectLocalPoint(p r3.Vector, solid bool) PointProjection {
	a, b := c.Segment()
	onAxis, _ := spatialmath.ProjectPointOnSegment(a, b, p)
	d := p.Sub(onAxis)
	dist := d.Norm()
	inside := dist <= c.radius
	if inside && solid {
		return PointProjection{Point: p, IsInside: true}
	}
	if dist == 0 {
		return PointProjection{Point: onAxis.Add(r3.Vector{X: c.radius}), IsInside: true}
	}
	return PointProjection{Point: onAxis.Add(d.Mul(c.radius / dist)), IsInside: inside}
}

// ProjectLocalPoint returns the closest point of the segment.
func (s *Segment) ProjectLocalPoint(p r3.Vector, solid bool) PointProjection {
	a, b := s.Endpoints()
	q, _ := spatialmath.ProjectPointOnSegment(a, b, p)
	return PointProjection{Point: q}
}

// ProjectLocalPoint returns the closest point of the triangle.
func (t *Triangle) ProjectLocalPoint(p r3.Vector, solid bool) PointProjection {
	return PointProjection{Point: t.tri.ClosestPointToPoint(p)}
}

// ProjectLocalPoint drops p on the boundary plane when it is outside or when solid is false.
func (h *HalfSpace) ProjectLocalPoint(p r3.Vector, solid bool) PointProjection {
	sd := h.SignedDistance(p)
	inside := sd <= 0
	if inside && solid {
		return PointProjection{Point: p, IsInside: true}
	}
	return PointProjection{Point: p.Sub(h.normal.Mul(sd)), IsInside: inside}
}

// ProjectLocalPoint projects p with GJK, and with EPA for boundary projections of inside points.
func (p *ConvexPolyhedron) ProjectLocalPoint(pt r3.Vector, solid bool) PointProjection {
	return projectSupportMap(p, pt, solid)
}

// ProjectLocalPoint projects p with GJK, and with EPA for boundary projections of inside points.
func (c *Cylinder) ProjectLocalPoint(p r3.Vector, solid bool) PointProjection {
	return projectSupportMap(c, p, solid)
}

// ProjectLocalPoint projects p with GJK, and with EPA for boundary projections of inside points.
func (c *Cone) ProjectLocalPoint(p r3.Vector, solid bool) PointProjection {
	return projectSupportMap(c, p, solid)
}

// ProjectLocalPoint returns the closest point of the parts. A point is inside when any part contains it;
// its boundary projection is the nearest boundary point of the parts, which may lie inside another part.
func (c *Compound) ProjectLocalPoint(p r3.Vector, solid bool) PointProjection {
	return projectComposite(c, p, solid)
}

// ProjectLocalPoint returns the closest point of the triangles.
func (s *triangleSet) ProjectLocalPoint(p r3.Vector, solid bool) PointProjection {
	return projectComposite(s, p, solid)
}

// pointSupport is the support map of the origin.
type pointSupport struct{}

func (pointSupport) LocalSupportPoint(r3.Vector) r3.Vector { return r3.Vector{} }

func projectSupportMap(s gjk.SupportMap, p r3.Vector, solid bool) PointProjection {
	pos12 := spatialmath.NewPoseFromPoint(p)
	simplex := gjk.InitialSimplex(pos12, s, pointSupport{})
	res := gjk.ClosestPoints(pos12, s, pointSupport{}, math.Inf(1), true, simplex, gjk.DefaultConfig())
	if res.Status != gjk.Intersection {
		return PointProjection{Point: res.Point1}
	}
	if solid {
		return PointProjection{Point: p, IsInside: true}
	}
	pen, ok := epa.Penetration(pos12, s, pointSupport{}, simplex, epa.DefaultConfig())
	if !ok {
		// flat polytope: p is on the boundary
		return PointProjection{Point: p, IsInside: true}
	}
	return PointProjection{Point: pen.Point1, IsInside: true}
}

// partTree is the part access projectComposite needs; the triangle set has it without being a Shape.
type partTree interface {
	Part(i int) (spatialmath.Pose, Shape)
	Tree() *bvh.Tree
}

func projectComposite(c partTree, p r3.Vector, solid bool) PointProjection {
	tree := c.Tree()
	inside := false
	tree.Query(spatialmath.AABB{Min: p, Max: p}, func(id int) bool {
		pose, part := c.Part(tree.Data(id))
		if pq, ok := part.(PointQuerier); ok && pq.ProjectLocalPoint(spatialmath.InverseTransformPoint(pose, p), true).IsInside {
			inside = true
			return false
		}
		return true
	})
	if inside && solid {
		return PointProjection{Point: p, IsInside: true}
	}

	best := PointProjection{Point: p, IsInside: inside}
	tree.TraverseBestFirst(
		math.Inf(1),
		func(id int) (float64, bool) {
			return tree.NodeAABB(id).DistanceToPoint(p), true
		},
		func(id int, bestDist float64) (float64, bool) {
			pose, part := c.Part(tree.Data(id))
			pq, ok := part.(PointQuerier)
			if !ok {
				return bestDist, false
			}
			proj := pq.ProjectLocalPoint(spatialmath.InverseTransformPoint(pose, p), false)
			q := spatialmath.TransformPoint(pose, proj.Point)
			if d := q.Distance(p); d < bestDist {
				best.Point = q
				return d, false
			}
			return bestDist, false
		},
	)
	return best
}

package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/collide/utils"
)

// AABB is an axis-aligned bounding box given by its minimum and maximum corners.
type AABB struct {
	Min r3.Vector `json:"min"`
	Max r3.Vector `json:"max"`
}

// NewAABB returns the box spanned by two opposite corners given in any order.
func NewAABB(a, b r3.Vector) AABB {
	return AABB{Min: MinVector(a, b), Max: MaxVector(a, b)}
}

// NewAABBFromHalfExtents returns the box centered at center with the given half extents.
func NewAABBFromHalfExtents(center, halfExtents r3.Vector) AABB {
	halfExtents = halfExtents.Abs()
	return AABB{Min: center.Sub(halfExtents), Max: center.Add(halfExtents)}
}

// NewAABBFromPoints returns the smallest box containing every point. No points yields EmptyAABB.
func NewAABBFromPoints(pts ...r3.Vector) AABB {
	box := EmptyAABB()
	for _, p := range pts {
		box = box.Merged(p)
	}
	return box
}

// EmptyAABB returns an inverted box that is the identity for Union.
func EmptyAABB() AABB {
	inf := math.Inf(1)
	return AABB{Min: r3.Vector{X: inf, Y: inf, Z: inf}, Max: r3.Vector{X: -inf, Y: -inf, Z: -inf}}
}

func (a AABB) String() string {
	return fmt.Sprintf("AABB{min: (%.3f, %.3f, %.3f), max: (%.3f, %.3f, %.3f)}",
		a.Min.X, a.Min.Y, a.Min.Z, a.Max.X, a.Max.Y, a.Max.Z)
}

// Union returns the smallest box enclosing both a and b.
func (a AABB) Union(b AABB) AABB {
	return AABB{Min: MinVector(a.Min, b.Min), Max: MaxVector(a.Max, b.Max)}
}

// Merged returns the smallest box enclosing a and the point p.
func (a AABB) Merged(p r3.Vector) AABB {
	return AABB{Min: MinVector(a.Min, p), Max: MaxVector(a.Max, p)}
}

// Overlaps reports whether the two closed boxes share at least one point.
func (a AABB) Overlaps(b AABB) bool {
	return a.Min.X <= b.Max.X && a.Max.X >= b.Min.X &&
		a.Min.Y <= b.Max.Y && a.Max.Y >= b.Min.Y &&
		a.Min.Z <= b.Max.Z && a.Max.Z >= b.Min.Z
}

// Contains reports whether b lies entirely inside a.
func (a AABB) Contains(b AABB) bool {
	return a.Min.X <= b.Min.X && a.Min.Y <= b.Min.Y && a.Min.Z <= b.Min.Z &&
		b.Max.X <= a.Max.X && b.Max.Y <= a.Max.Y && b.Max.Z <= a.Max.Z
}

// ContainsPoint reports whether p lies inside or on the boundary of a.
func (a AABB) ContainsPoint(p r3.Vector) bool {
	return a.Min.X <= p.X && p.X <= a.Max.X &&
		a.Min.Y <= p.Y && p.Y <= a.Max.Y &&
		a.Min.Z <= p.Z && p.Z <= a.Max.Z
}

// Loosened grows the box by margin in every direction.
func (a AABB) Loosened(margin float64) AABB {
	m := r3.Vector{X: margin, Y: margin, Z: margin}
	return AABB{Min: a.Min.Sub(m), Max: a.Max.Add(m)}
}

// Translated moves the box by v.
func (a AABB) Translated(v r3.Vector) AABB {
	return AABB{Min: a.Min.Add(v), Max: a.Max.Add(v)}
}

// Center returns the center of the box.
func (a AABB) Center() r3.Vector {
	return a.Min.Add(a.Max).Mul(0.5)
}

// HalfExtents returns half the size of the box along each axis.
func (a AABB) HalfExtents() r3.Vector {
	return a.Max.Sub(a.Min).Mul(0.5)
}

// Volume returns the volume of the box.
func (a AABB) Volume() float64 {
	d := a.Max.Sub(a.Min)
	return d.X * d.Y * d.Z
}

// SurfaceArea returns the surface area of the box; it is the cost metric of the tree insertion heuristic.
func (a AABB) SurfaceArea() float64 {
	d := a.Max.Sub(a.Min)
	return 2 * (d.X*d.Y + d.Y*d.Z + d.Z*d.X)
}

// IsValid reports whether the box is finite and its corners are ordered.
func (a AABB) IsValid() bool {
	return R3VectorIsFinite(a.Min) && R3VectorIsFinite(a.Max) &&
		a.Min.X <= a.Max.X && a.Min.Y <= a.Max.Y && a.Min.Z <= a.Max.Z
}

// Vertices returns the eight corners of the box.
func (a AABB) Vertices() [8]r3.Vector {
	var out [8]r3.Vector
	for i := range out {
		out[i] = a.Min
		if i&1 != 0 {
			out[i].X = a.Max.X
		}
		if i&2 != 0 {
			out[i].Y = a.Max.Y
		}
		if i&4 != 0 {
			out[i].Z = a.Max.Z
		}
	}
	return out
}

// Transform returns the axis-aligned box enclosing a after it has been moved by pose.
func (a AABB) Transform(pose Pose) AABB {
	rm := pose.Orientation().RotationMatrix()
	center := TransformPoint(pose, a.Center())
	half := a.HalfExtents()
	var newHalf r3.Vector
	for r := 0; r < 3; r++ {
		row := rm.Row(r).Abs()
		newHalf = WithComponent(newHalf, r, row.Dot(half))
	}
	return NewAABBFromHalfExtents(center, newHalf)
}

// ClosestPoint returns the point of the box closest to p.
func (a AABB) ClosestPoint(p r3.Vector) r3.Vector {
	return r3.Vector{
		X: utils.Clamp(p.X, a.Min.X, a.Max.X),
		Y: utils.Clamp(p.Y, a.Min.Y, a.Max.Y),
		Z: utils.Clamp(p.Z, a.Min.Z, a.Max.Z),
	}
}

// DistanceToPoint returns the distance from p to the box, zero when p is inside.
func (a AABB) DistanceToPoint(p r3.Vector) float64 {
	return a.ClosestPoint(p).Distance(p)
}

// BoundingSphere returns the sphere circumscribing the box.
func (a AABB) BoundingSphere() BoundingSphere {
	return BoundingSphere{Center: a.Center(), Radius: a.HalfExtents().Norm()}
}

// CastLocalRay intersects the ray with the box using the slab method. When the ray starts inside the
// box, a solid box reports a hit at time zero with a zero normal, while a hollow one reports the exit point.
// The returned normal points out of the box at the hit point.
func (a AABB) CastLocalRay(ray Ray, maxTOI float64, solid bool) (float64, r3.Vector, bool) {
	tmin := math.Inf(-1)
	tmax := math.Inf(1)
	nearAxis, farAxis := -1, -1
	var nearSign, farSign float64

	for i := 0; i < 3; i++ {
		origin := Component(ray.Origin, i)
		dir := Component(ray.Dir, i)
		lo := Component(a.Min, i)
		hi := Component(a.Max, i)
		if dir == 0 {
			if origin < lo || origin > hi {
				return 0, r3.Vector{}, false
			}
			continue
		}
		denom := 1 / dir
		t1 := (lo - origin) * denom
		t2 := (hi - origin) * denom
		sign := -1.0
		if t1 > t2 {
			t1, t2 = t2, t1
			sign = 1.0
		}
		if t1 > tmin {
			tmin = t1
			nearAxis = i
			nearSign = sign
		}
		if t2 < tmax {
			tmax = t2
			farAxis = i
			farSign = -sign
		}
		if tmin > tmax {
			return 0, r3.Vector{}, false
		}
	}

	if tmax < 0 {
		return 0, r3.Vector{}, false
	}
	if tmin < 0 || nearAxis < 0 {
		if solid {
			return 0, r3.Vector{}, true
		}
		if tmax > maxTOI || farAxis < 0 {
			return 0, r3.Vector{}, false
		}
		return tmax, Axis(farAxis, farSign), true
	}
	if tmin > maxTOI {
		return 0, r3.Vector{}, false
	}
	return tmin, Axis(nearAxis, nearSign), true
}

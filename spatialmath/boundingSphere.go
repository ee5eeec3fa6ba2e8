package spatialmath

import (
	"github.com/golang/geo/r3"
)

// BoundingSphere is a sphere enclosing a shape.
type BoundingSphere struct {
	Center r3.Vector `json:"center"`
	Radius float64   `json:"radius"`
}

// Transform moves the sphere by pose.
func (bs BoundingSphere) Transform(pose Pose) BoundingSphere {
	return BoundingSphere{Center: TransformPoint(pose, bs.Center), Radius: bs.Radius}
}

// AABB returns the box enclosing the sphere.
func (bs BoundingSphere) AABB() AABB {
	return NewAABBFromHalfExtents(bs.Center, r3.Vector{X: bs.Radius, Y: bs.Radius, Z: bs.Radius})
}

// Contains reports whether other lies entirely inside bs.
func (bs BoundingSphere) Contains(other BoundingSphere) bool {
	return bs.Center.Distance(other.Center)+other.Radius <= bs.Radius
}

// ContainsPoint reports whether p lies inside or on bs.
func (bs BoundingSphere) ContainsPoint(p r3.Vector) bool {
	return bs.Center.Sub(p).Norm2() <= bs.Radius*bs.Radius
}

// Intersects reports whether the two spheres share at least one point.
func (bs BoundingSphere) Intersects(other BoundingSphere) bool {
	r := bs.Radius + other.Radius
	return bs.Center.Sub(other.Center).Norm2() <= r*r
}

// Merged returns the smallest sphere enclosing both spheres.
func (bs BoundingSphere) Merged(other BoundingSphere) BoundingSphere {
	dir, length, ok := SafeNormalize(other.Center.Sub(bs.Center), 0)
	if !ok {
		if other.Radius > bs.Radius {
			return BoundingSphere{Center: bs.Center, Radius: other.Radius}
		}
		return bs
	}
	if bs.Contains(other) {
		return bs
	}
	if other.Contains(bs) {
		return other
	}
	left := -bs.Radius
	right := length + other.Radius
	return BoundingSphere{
		Center: bs.Center.Add(dir.Mul((left + right) / 2)),
		Radius: (right - left) / 2,
	}
}

// Loosened grows the sphere radius by amount.
func (bs BoundingSphere) Loosened(amount float64) BoundingSphere {
	return BoundingSphere{Center: bs.Center, Radius: bs.Radius + amount}
}

// Tightened shrinks the sphere radius by amount, never below zero.
func (bs BoundingSphere) Tightened(amount float64) BoundingSphere {
	r := bs.Radius - amount
	if r < 0 {
		r = 0
	}
	return BoundingSphere{Center: bs.Center, Radius: r}
}

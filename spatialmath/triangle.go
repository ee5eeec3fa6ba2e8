package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
)

// TriangleRegion tells which feature of a triangle a projected point lies on.
type TriangleRegion uint8

const (
	// TriangleVertex means the projection is one of the three corners.
	TriangleVertex TriangleRegion = iota
	// TriangleEdge means the projection lies on the interior of an edge. Edge i joins vertex i and vertex (i+1)%3.
	TriangleEdge
	// TriangleFace means the projection lies inside the triangle.
	TriangleFace
)

// Triangle is three points and a normal vector.
type Triangle struct {
	p0 r3.Vector
	p1 r3.Vector
	p2 r3.Vector

	normal r3.Vector
}

// NewTriangle creates a Triangle from three points. The normal follows the right hand rule on p0, p1, p2.
func NewTriangle(p0, p1, p2 r3.Vector) *Triangle {
	return &Triangle{
		p0:     p0,
		p1:     p1,
		p2:     p2,
		normal: PlaneNormal(p0, p1, p2),
	}
}

// Points returns the three points of the triangle.
func (t *Triangle) Points() [3]r3.Vector {
	return [3]r3.Vector{t.p0, t.p1, t.p2}
}

// Normal returns the unit normal of the triangle.
func (t *Triangle) Normal() r3.Vector {
	return t.normal
}

// Area returns the area of the triangle.
func (t *Triangle) Area() float64 {
	return 0.5 * t.p1.Sub(t.p0).Cross(t.p2.Sub(t.p0)).Norm()
}

// Centroid returns the centroid of the triangle.
func (t *Triangle) Centroid() r3.Vector {
	return t.p0.Add(t.p1).Add(t.p2).Mul(1. / 3)
}

// ClosestPointToPoint takes a point, and returns the closest point on the triangle to the given point.
func (t *Triangle) ClosestPointToPoint(point r3.Vector) r3.Vector {
	pt, _, _, _ := t.ProjectPoint(point)
	return pt
}

// ProjectPoint returns the point of the triangle closest to p, its barycentric coordinates, the region it
// lies in and the index of that vertex or edge (0 for the face). Voronoi region walk from Ericson,
// "Real-Time Collision Detection", 5.1.5.
func (t *Triangle) ProjectPoint(p r3.Vector) (r3.Vector, [3]float64, TriangleRegion, int) {
	a, b, c := t.p0, t.p1, t.p2
	ab := b.Sub(a)
	ac := c.Sub(a)

	ap := p.Sub(a)
	d1 := ab.Dot(ap)
	d2 := ac.Dot(ap)
	if d1 <= 0 && d2 <= 0 {
		return a, [3]float64{1, 0, 0}, TriangleVertex, 0
	}

	bp := p.Sub(b)
	d3 := ab.Dot(bp)
	d4 := ac.Dot(bp)
	if d3 >= 0 && d4 <= d3 {
		return b, [3]float64{0, 1, 0}, TriangleVertex, 1
	}

	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		v := d1 / (d1 - d3)
		return a.Add(ab.Mul(v)), [3]float64{1 - v, v, 0}, TriangleEdge, 0
	}

	cp := p.Sub(c)
	d5 := ab.Dot(cp)
	d6 := ac.Dot(cp)
	if d6 >= 0 && d5 <= d6 {
		return c, [3]float64{0, 0, 1}, TriangleVertex, 2
	}

	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		w := d2 / (d2 - d6)
		return a.Add(ac.Mul(w)), [3]float64{1 - w, 0, w}, TriangleEdge, 2
	}

	va := d3*d6 - d5*d4
	if va <= 0 && (d4-d3) >= 0 && (d5-d6) >= 0 {
		w := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		return b.Add(c.Sub(b).Mul(w)), [3]float64{0, 1 - w, w}, TriangleEdge, 1
	}

	denom := 1.0 / (va + vb + vc)
	v := vb * denom
	w := vc * denom
	return a.Add(ab.Mul(v)).Add(ac.Mul(w)), [3]float64{1 - v - w, v, w}, TriangleFace, 0
}

// IntersectRay returns the hit time of the ray with the triangle (Moller-Trumbore) and whether the ray
// hits the front face (the side the normal points to).
func (t *Triangle) IntersectRay(ray Ray, maxTOI float64) (float64, bool, bool) {
	const eps = 1e-12
	e1 := t.p1.Sub(t.p0)
	e2 := t.p2.Sub(t.p0)
	pvec := ray.Dir.Cross(e2)
	det := e1.Dot(pvec)
	if math.Abs(det) < eps*e1.Norm()*e2.Norm()*ray.Dir.Norm() {
		return 0, false, false
	}
	inv := 1 / det
	tvec := ray.Origin.Sub(t.p0)
	u := tvec.Dot(pvec) * inv
	if u < 0 || u > 1 {
		return 0, false, false
	}
	qvec := tvec.Cross(e1)
	v := ray.Dir.Dot(qvec) * inv
	if v < 0 || u+v > 1 {
		return 0, false, false
	}
	toi := e2.Dot(qvec) * inv
	if toi < 0 || toi > maxTOI {
		return 0, false, false
	}
	return toi, det > 0, true
}

package gjk

import (
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/collide/spatialmath"
	"go.viam.com/collide/utils"
)

// CSOPoint is a point of the configuration space obstacle (the Minkowski difference A - B) together
// with the two points it was built from.
type CSOPoint struct {
	Point r3.Vector
	Orig1 r3.Vector
	Orig2 r3.Vector
}

// NewCSOPoint returns the difference orig1 - orig2.
func NewCSOPoint(orig1, orig2 r3.Vector) CSOPoint {
	return CSOPoint{Point: orig1.Sub(orig2), Orig1: orig1, Orig2: orig2}
}

// SupportPoint returns the support point of g1 - pos12*g2 in direction dir, expressed in the frame of g1.
func SupportPoint(pos12 spatialmath.Pose, g1, g2 SupportMap, dir r3.Vector) CSOPoint {
	orig1 := g1.LocalSupportPoint(dir)
	localDir := spatialmath.InverseRotateVector(pos12, dir.Mul(-1))
	orig2 := spatialmath.TransformPoint(pos12, g2.LocalSupportPoint(localDir))
	return NewCSOPoint(orig1, orig2)
}

// Simplex holds up to four CSO points and the barycentric weights of the point of their convex hull
// closest to the origin.
type Simplex struct {
	points [4]CSOPoint
	bary   [4]float64
	dim    int
	// set when the last projection found the origin inside a tetrahedron
	enclosing bool
}

// Reset empties the simplex and seeds it with p.
func (s *Simplex) Reset(p CSOPoint) {
	s.points[0] = p
	s.bary = [4]float64{1, 0, 0, 0}
	s.dim = 1
	s.enclosing = false
}

// Len returns the number of points.
func (s *Simplex) Len() int {
	return s.dim
}

// Point returns the i-th point.
func (s *Simplex) Point(i int) CSOPoint {
	return s.points[i]
}

// Weight returns the barycentric weight of the i-th point after the last projection.
func (s *Simplex) Weight(i int) float64 {
	return s.bary[i]
}

// EnclosesOrigin reports whether the last projection found the origin inside a full tetrahedron.
func (s *Simplex) EnclosesOrigin() bool {
	return s.enclosing
}

// Add appends p unless it duplicates a point already present, which means the iteration cannot progress.
func (s *Simplex) Add(p CSOPoint) bool {
	if s.dim >= 4 {
		return false
	}
	scale := p.Point.Norm2()
	for i := 0; i < s.dim; i++ {
		if d := s.points[i].Point.Sub(p.Point).Norm2(); d <= 1e-24*math.Max(1, scale) {
			return false
		}
	}
	s.points[s.dim] = p
	s.dim++
	return true
}

// MaxSquaredNorm returns the largest squared norm of the points, the scale of relative tolerances.
func (s *Simplex) MaxSquaredNorm() float64 {
	m := 0.
	for i := 0; i < s.dim; i++ {
		m = math.Max(m, s.points[i].Point.Norm2())
	}
	return m
}

// ClosestPoints returns the witness points on both shapes of the last projection.
func (s *Simplex) ClosestPoints() (r3.Vector, r3.Vector) {
	var p1, p2 r3.Vector
	for i := 0; i < s.dim; i++ {
		p1 = p1.Add(s.points[i].Orig1.Mul(s.bary[i]))
		p2 = p2.Add(s.points[i].Orig2.Mul(s.bary[i]))
	}
	return p1, p2
}

// ProjectOrigin returns the point of the simplex closest to the origin and reduces the simplex to the
// smallest sub-simplex containing that point. Voronoi region tests from Ericson, "Real-Time Collision
// Detection", chapter 5.
func (s *Simplex) ProjectOrigin() r3.Vector {
	s.enclosing = false
	switch s.dim {
	case 1:
		s.bary[0] = 1
		return s.points[0].Point
	case 2:
		return s.projectSegment()
	case 3:
		return s.projectTriangle()
	default:
		return s.projectTetrahedron()
	}
}

func (s *Simplex) keep1(i int) r3.Vector {
	s.points[0] = s.points[i]
	s.bary[0] = 1
	s.dim = 1
	return s.points[0].Point
}

func (s *Simplex) keep2(i, j int, wi, wj float64) r3.Vector {
	pi, pj := s.points[i], s.points[j]
	s.points[0], s.points[1] = pi, pj
	s.bary[0], s.bary[1] = wi, wj
	s.dim = 2
	return pi.Point.Mul(wi).Add(pj.Point.Mul(wj))
}

func (s *Simplex) projectSegment() r3.Vector {
	a, b := s.points[0].Point, s.points[1].Point
	ab := b.Sub(a)
	denom := ab.Norm2()
	if denom < 1e-30 {
		return s.keep1(0)
	}
	t := a.Mul(-1).Dot(ab) / denom
	if t <= 0 {
		return s.keep1(0)
	}
	if t >= 1 {
		return s.keep1(1)
	}
	return s.keep2(0, 1, 1-t, t)
}

func (s *Simplex) projectTriangle() r3.Vector {
	a, b, c := s.points[0].Point, s.points[1].Point, s.points[2].Point
	ab := b.Sub(a)
	ac := c.Sub(a)
	ao := a.Mul(-1)

	d1 := ab.Dot(ao)
	d2 := ac.Dot(ao)
	if d1 <= 0 && d2 <= 0 {
		return s.keep1(0)
	}

	bo := b.Mul(-1)
	d3 := ab.Dot(bo)
	d4 := ac.Dot(bo)
	if d3 >= 0 && d4 <= d3 {
		return s.keep1(1)
	}

	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		v := d1 / (d1 - d3)
		return s.keep2(0, 1, 1-v, v)
	}

	co := c.Mul(-1)
	d5 := ab.Dot(co)
	d6 := ac.Dot(co)
	if d6 >= 0 && d5 <= d6 {
		return s.keep1(2)
	}

	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		w := d2 / (d2 - d6)
		return s.keep2(0, 2, 1-w, w)
	}

	va := d3*d6 - d5*d4
	if va <= 0 && (d4-d3) >= 0 && (d5-d6) >= 0 {
		w := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		return s.keep2(1, 2, 1-w, w)
	}

	sum := va + vb + vc
	if sum == 0 {
		// degenerate triangle, fall back to its best edge
		return s.projectDegenerateTriangle()
	}
	denom := 1.0 / sum
	v := vb * denom
	w := vc * denom
	s.bary[0], s.bary[1], s.bary[2] = 1-v-w, v, w
	s.dim = 3
	return a.Add(ab.Mul(v)).Add(ac.Mul(w))
}

func (s *Simplex) projectDegenerateTriangle() r3.Vector {
	orig := s.points
	best := Simplex{}
	bestDist := math.Inf(1)
	var bestV r3.Vector
	for _, e := range [3][2]int{{0, 1}, {0, 2}, {1, 2}} {
		var sub Simplex
		sub.points[0], sub.points[1] = orig[e[0]], orig[e[1]]
		sub.dim = 2
		v := sub.projectSegment()
		if d := v.Norm2(); d < bestDist {
			bestDist = d
			bestV = v
			best = sub
		}
	}
	*s = best
	return bestV
}

// originInTetrahedron reports whether the origin lies inside or on the tetrahedron; it also returns the
// barycentric coordinates of the origin when it does.
func originInTetrahedron(pts *[4]CSOPoint) (bool, [4]float64) {
	a, b, c, d := pts[0].Point, pts[1].Point, pts[2].Point, pts[3].Point
	ab, ac, ad, ao := b.Sub(a), c.Sub(a), d.Sub(a), a.Mul(-1)
	vol := ab.Dot(ac.Cross(ad))
	scale := math.Max(math.Max(a.Norm2(), b.Norm2()), math.Max(c.Norm2(), d.Norm2()))
	if math.Abs(vol) <= 1e-14*scale*utils.Sqrt(scale) {
		return false, [4]float64{}
	}
	// Cramer's rule on origin = a + wb*(b-a) + wc*(c-a) + wd*(d-a)
	inv := 1 / vol
	wb := ao.Dot(ac.Cross(ad)) * inv
	wc := ab.Dot(ao.Cross(ad)) * inv
	wd := ab.Dot(ac.Cross(ao)) * inv
	bary := [4]float64{1 - wb - wc - wd, wb, wc, wd}
	for _, w := range bary {
		if w < 0 {
			return false, [4]float64{}
		}
	}
	return true, bary
}

func (s *Simplex) projectTetrahedron() r3.Vector {
	if inside, bary := originInTetrahedron(&s.points); inside {
		s.bary = bary
		s.dim = 4
		s.enclosing = true
		return r3.Vector{}
	}
	orig := s.points
	best := Simplex{}
	bestDist := math.Inf(1)
	var bestV r3.Vector
	for _, f := range [4][3]int{{0, 1, 2}, {0, 1, 3}, {0, 2, 3}, {1, 2, 3}} {
		var sub Simplex
		sub.points[0], sub.points[1], sub.points[2] = orig[f[0]], orig[f[1]], orig[f[2]]
		sub.dim = 3
		v := sub.projectTriangle()
		if d := v.Norm2(); d < bestDist {
			bestDist = d
			bestV = v
			best = sub
		}
	}
	*s = best
	return bestV
}

// Package epa implements the Expanding Polytope Algorithm: the penetration depth and direction of two
// overlapping convex shapes, starting from the simplex GJK terminated with.
package epa

import (
	"container/heap"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/collide/collision/gjk"
	"go.viam.com/collide/spatialmath"
	"go.viam.com/collide/utils"
)

// Config holds the iteration cap and the relative convergence tolerance of EPA.
type Config struct {
	MaxIterations int     `json:"max_iterations"`
	Epsilon       float64 `json:"epsilon"`
}

// DefaultConfig returns the settings used when none are given.
func DefaultConfig() Config {
	return Config{MaxIterations: 128, Epsilon: 1e-7}
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var err error
	if c.MaxIterations <= 0 {
		err = multierr.Append(err, errors.Errorf("epa max_iterations must be positive, got %d", c.MaxIterations))
	}
	if !(c.Epsilon > 0 && c.Epsilon < 1) {
		err = multierr.Append(err, errors.Errorf("epa epsilon must be in (0, 1), got %v", c.Epsilon))
	}
	return err
}

// Result is a penetration in the frame of the first shape.
type Result struct {
	// Depth is the length of the smallest translation separating the shapes.
	Depth float64
	// Normal is the unit direction from the first shape toward the second along which moving the second
	// shape by Depth separates them.
	Normal r3.Vector
	// Point1 and Point2 are the deepest points of each shape inside the other; Point1 - Point2 equals
	// Depth*Normal.
	Point1 r3.Vector
	Point2 r3.Vector
	// Approximate is set when the iteration cap was reached before convergence.
	Approximate bool
}

type face struct {
	pts     [3]int
	normal  r3.Vector
	dist    float64
	deleted bool
}

type faceRef struct {
	dist float64
	id   int
}

type faceQueue []faceRef

func (q faceQueue) Len() int { return len(q) }

func (q faceQueue) Less(i, j int) bool {
	if q[i].dist == q[j].dist {
		return q[i].id < q[j].id
	}
	return q[i].dist < q[j].dist
}

func (q faceQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *faceQueue) Push(x any) { *q = append(*q, x.(faceRef)) }

func (q *faceQueue) Pop() any {
	old := *q
	item := old[len(old)-1]
	*q = old[:len(old)-1]
	return item
}

type edge [2]int

type polytope struct {
	vertices []gjk.CSOPoint
	faces    []face
	// owner maps a directed edge to the live face containing it
	owner map[edge]int
	queue faceQueue
	scale float64
}

// Penetration expands the simplex into a polytope of the Minkowski difference g1 - pos12*g2 until the
// face closest to the origin stops moving. It returns false when no full-dimensional polytope enclosing
// the origin can be built, in which case the caller should fall back to the GJK estimate.
func Penetration(pos12 spatialmath.Pose, g1, g2 gjk.SupportMap, simplex *gjk.Simplex, cfg Config) (Result, bool) {
	if simplex == nil || simplex.Len() == 0 {
		return Result{}, false
	}
	p := &polytope{owner: map[edge]int{}}
	for i := 0; i < simplex.Len(); i++ {
		p.vertices = append(p.vertices, simplex.Point(i))
	}
	if !p.inflate(pos12, g1, g2) {
		return Result{}, false
	}
	if !p.buildTetrahedron() {
		return Result{}, false
	}

	best := -1
	for iter := 0; iter < cfg.MaxIterations; iter++ {
		id, ok := p.popClosest()
		if !ok {
			break
		}
		best = id
		f := p.faces[id]
		w := gjk.SupportPoint(pos12, g1, g2, f.normal)
		gap := w.Point.Dot(f.normal) - f.dist
		if gap <= cfg.Epsilon*math.Max(1, f.dist) || p.hasVertex(w.Point) {
			return p.result(id, false), true
		}
		if !p.expand(id, w) {
			return p.approximate(id)
		}
	}
	if best < 0 {
		return Result{}, false
	}
	return p.approximate(best)
}

// approximate returns the closest live face in front of the origin once expansion stops early. A face
// through the origin has no penetration direction, so a polytope without any face in front of it fails.
func (p *polytope) approximate(last int) (Result, bool) {
	tol := 1e-10 * math.Max(1, p.scale)
	if f := p.faces[last]; !f.deleted && f.dist > tol {
		return p.result(last, true), true
	}
	for {
		id, ok := p.popClosest()
		if !ok {
			return Result{}, false
		}
		if p.faces[id].dist > tol {
			return p.result(id, true), true
		}
	}
}

// inflate grows a lower dimensional simplex into four affinely independent points.
func (p *polytope) inflate(pos12 spatialmath.Pose, g1, g2 gjk.SupportMap) bool {
	for _, v := range p.vertices {
		p.scale = math.Max(p.scale, v.Point.Norm())
	}
	tol := func() float64 { return 1e-10 * math.Max(1, p.scale) }
	add := func(w gjk.CSOPoint) {
		p.vertices = append(p.vertices, w)
		p.scale = math.Max(p.scale, w.Point.Norm())
	}

	if len(p.vertices) == 1 {
		a := p.vertices[0].Point
		for i := 0; i < 6 && len(p.vertices) == 1; i++ {
			w := gjk.SupportPoint(pos12, g1, g2, spatialmath.Axis(i%3, 1-2*float64(i/3)))
			if w.Point.Sub(a).Norm() > tol() {
				add(w)
			}
		}
		if len(p.vertices) == 1 {
			return false
		}
	}

	if len(p.vertices) == 2 {
		a, b := p.vertices[0].Point, p.vertices[1].Point
		axis := b.Sub(a).Normalize()
		t1, t2 := spatialmath.OrthonormalBasis(axis)
		for k := 0; k < 6 && len(p.vertices) == 2; k++ {
			sin, cos := utils.Sincos(float64(k) * math.Pi / 3)
			dir := t1.Mul(cos).Add(t2.Mul(sin))
			w := gjk.SupportPoint(pos12, g1, g2, dir)
			if w.Point.Sub(a).Cross(axis).Norm() > tol() {
				add(w)
			}
		}
		if len(p.vertices) == 2 {
			return false
		}
	}

	if len(p.vertices) == 3 {
		a, b, c := p.vertices[0].Point, p.vertices[1].Point, p.vertices[2].Point
		n, _, ok := spatialmath.SafeNormalize(b.Sub(a).Cross(c.Sub(a)), 0)
		if !ok {
			return false
		}
		up := gjk.SupportPoint(pos12, g1, g2, n)
		down := gjk.SupportPoint(pos12, g1, g2, n.Mul(-1))
		du, dd := math.Abs(up.Point.Sub(a).Dot(n)), math.Abs(down.Point.Sub(a).Dot(n))
		if math.Max(du, dd) <= tol() {
			return false
		}
		if du >= dd {
			add(up)
		} else {
			add(down)
		}
	}
	return true
}

// buildTetrahedron creates the four outward faces of the initial simplex. The origin must lie inside or
// on the boundary.
func (p *polytope) buildTetrahedron() bool {
	var center r3.Vector
	for _, v := range p.vertices[:4] {
		center = center.Add(v.Point.Mul(0.25))
	}
	for _, tri := range [4][3]int{{0, 1, 2}, {0, 3, 1}, {1, 3, 2}, {2, 3, 0}} {
		a, b, c := tri[0], tri[1], tri[2]
		n := p.vertices[b].Point.Sub(p.vertices[a].Point).Cross(p.vertices[c].Point.Sub(p.vertices[a].Point))
		if n.Dot(p.vertices[a].Point.Sub(center)) < 0 {
			b, c = c, b
		}
		if !p.addFace(a, b, c) {
			return false
		}
	}
	for _, f := range p.faces {
		if f.dist < -1e-10*math.Max(1, p.scale) {
			return false
		}
	}
	return true
}

func (p *polytope) addFace(a, b, c int) bool {
	pa, pb, pc := p.vertices[a].Point, p.vertices[b].Point, p.vertices[c].Point
	n, _, ok := spatialmath.SafeNormalize(pb.Sub(pa).Cross(pc.Sub(pa)), 0)
	if !ok {
		return false
	}
	id := len(p.faces)
	f := face{pts: [3]int{a, b, c}, normal: n, dist: n.Dot(pa)}
	p.faces = append(p.faces, f)
	p.owner[edge{a, b}] = id
	p.owner[edge{b, c}] = id
	p.owner[edge{c, a}] = id
	heap.Push(&p.queue, faceRef{dist: f.dist, id: id})
	return true
}

func (p *polytope) popClosest() (int, bool) {
	for p.queue.Len() > 0 {
		ref := heap.Pop(&p.queue).(faceRef)
		if !p.faces[ref.id].deleted {
			return ref.id, true
		}
	}
	return -1, false
}

func (p *polytope) hasVertex(w r3.Vector) bool {
	tol := 1e-20 * math.Max(1, p.scale*p.scale)
	for _, v := range p.vertices {
		if v.Point.Sub(w).Norm2() <= tol {
			return true
		}
	}
	return false
}

// expand adds w to the polytope, replacing every face that sees it with a fan around the horizon. The
// popped face id is visible by construction and is put back in the queue if expansion fails.
func (p *polytope) expand(id int, w gjk.CSOPoint) bool {
	wi := len(p.vertices)
	p.vertices = append(p.vertices, w)
	p.scale = math.Max(p.scale, w.Point.Norm())
	eps := 1e-12 * math.Max(1, p.scale)

	visible := map[int]bool{id: true}
	stack := []int{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		f := p.faces[cur]
		for k := 0; k < 3; k++ {
			twin, ok := p.owner[edge{f.pts[(k+1)%3], f.pts[k]}]
			if !ok || visible[twin] {
				continue
			}
			tf := p.faces[twin]
			if tf.normal.Dot(w.Point.Sub(p.vertices[tf.pts[0]].Point)) > eps {
				visible[twin] = true
				stack = append(stack, twin)
			}
		}
	}

	var horizon []edge
	for fid := range p.faces {
		if !visible[fid] {
			continue
		}
		f := p.faces[fid]
		for k := 0; k < 3; k++ {
			a, b := f.pts[k], f.pts[(k+1)%3]
			if twin, ok := p.owner[edge{b, a}]; !ok || !visible[twin] {
				horizon = append(horizon, edge{a, b})
			}
		}
	}
	if len(horizon) < 3 {
		heap.Push(&p.queue, faceRef{dist: p.faces[id].dist, id: id})
		return false
	}
	for fid := range visible {
		p.faces[fid].deleted = true
		f := p.faces[fid]
		for k := 0; k < 3; k++ {
			e := edge{f.pts[k], f.pts[(k+1)%3]}
			if p.owner[e] == fid {
				delete(p.owner, e)
			}
		}
	}
	for _, e := range horizon {
		if !p.addFace(e[0], e[1], wi) {
			return false
		}
	}
	return true
}

// result projects the origin on face id and interpolates the witness points.
func (p *polytope) result(id int, approximate bool) Result {
	f := p.faces[id]
	a, b, c := p.vertices[f.pts[0]], p.vertices[f.pts[1]], p.vertices[f.pts[2]]
	proj := f.normal.Mul(f.dist)
	u, v, w := barycentric(proj, a.Point, b.Point, c.Point)
	p1 := a.Orig1.Mul(u).Add(b.Orig1.Mul(v)).Add(c.Orig1.Mul(w))
	p2 := a.Orig2.Mul(u).Add(b.Orig2.Mul(v)).Add(c.Orig2.Mul(w))
	return Result{
		Depth:       math.Max(f.dist, 0),
		Normal:      f.normal,
		Point1:      p1,
		Point2:      p2,
		Approximate: approximate,
	}
}

// barycentric returns the coordinates of p in triangle abc, clamped into the triangle.
func barycentric(p, a, b, c r3.Vector) (float64, float64, float64) {
	v0, v1, v2 := b.Sub(a), c.Sub(a), p.Sub(a)
	d00, d01, d11 := v0.Dot(v0), v0.Dot(v1), v1.Dot(v1)
	d20, d21 := v2.Dot(v0), v2.Dot(v1)
	denom := d00*d11 - d01*d01
	if denom <= 0 {
		return 1, 0, 0
	}
	v := (d11*d20 - d01*d21) / denom
	w := (d00*d21 - d01*d20) / denom
	u := 1 - v - w
	if u < 0 || v < 0 || w < 0 {
		u, v, w = math.Max(u, 0), math.Max(v, 0), math.Max(w, 0)
		sum := u + v + w
		u, v, w = u/sum, v/sum, w/sum
	}
	return u, v, w
}

package shape

import (
	"math"
	"slices"

	"github.com/golang/geo/r3"

	"go.viam.com/collide/spatialmath"
)

// hullTriangle is a face of the triangulated hull under construction, counter-clockwise seen from outside.
type hullTriangle struct {
	v      [3]int
	normal r3.Vector
	offset float64
	alive  bool
}

func (t *hullTriangle) distance(p r3.Vector) float64 {
	return t.normal.Dot(p) - t.offset
}

type directedEdge [2]int

// hullBuilder is an incremental 3D convex hull.
type hullBuilder struct {
	points    []r3.Vector
	triangles []hullTriangle
	// owner maps a directed edge to the live triangle that contains it
	owner map[directedEdge]int
	eps   float64
}

// convexHull returns the hull vertices of points (in order of first appearance among the input) and the
// hull triangles indexing them, each counter-clockwise around its outward normal. Inputs with fewer than
// four affinely independent points are rejected.
func convexHull(points []r3.Vector) ([]r3.Vector, [][3]int, error) {
	if len(points) < 4 {
		return nil, nil, spatialmath.NewConfigurationError("convex polyhedron", "need at least 4 points, got %d", len(points))
	}
	for _, p := range points {
		if !spatialmath.R3VectorIsFinite(p) {
			return nil, nil, spatialmath.NewBadGeometryDimensionsError("convex polyhedron")
		}
	}
	box := spatialmath.NewAABBFromPoints(points...)
	scale := box.HalfExtents().Norm()
	if scale == 0 {
		return nil, nil, spatialmath.NewConfigurationError("convex polyhedron", "all points coincide")
	}
	h := &hullBuilder{
		points: dedupPoints(points, 1e-12*scale),
		owner:  map[directedEdge]int{},
		eps:    1e-10 * scale,
	}
	start, err := h.initialTetrahedron()
	if err != nil {
		return nil, nil, err
	}
	for i := range h.points {
		if slices.Contains(start[:], i) {
			continue
		}
		h.addPoint(i)
	}
	verts, tris := h.compact()
	return verts, tris, nil
}

// dedupPoints drops points closer than tol to an earlier point.
func dedupPoints(points []r3.Vector, tol float64) []r3.Vector {
	out := make([]r3.Vector, 0, len(points))
	tol2 := tol * tol
	for _, p := range points {
		dup := false
		for _, q := range out {
			if p.Sub(q).Norm2() <= tol2 {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, p)
		}
	}
	return out
}

func (h *hullBuilder) initialTetrahedron() ([4]int, error) {
	var idx [4]int
	pts := h.points

	// extreme points along the widest axis
	box := spatialmath.NewAABBFromPoints(pts...)
	axis := 0
	ext := box.HalfExtents()
	for i := 1; i < 3; i++ {
		if spatialmath.Component(ext, i) > spatialmath.Component(ext, axis) {
			axis = i
		}
	}
	for i, p := range pts {
		if spatialmath.Component(p, axis) < spatialmath.Component(pts[idx[0]], axis) {
			idx[0] = i
		}
	}
	best := -1.
	for i, p := range pts {
		if d := p.Sub(pts[idx[0]]).Norm2(); d > best {
			idx[1], best = i, d
		}
	}

	a, b := pts[idx[0]], pts[idx[1]]
	ab := b.Sub(a).Normalize()
	best = -1
	for i, p := range pts {
		if d := p.Sub(a).Cross(ab).Norm(); d > best {
			idx[2], best = i, d
		}
	}
	if best <= h.eps {
		return idx, spatialmath.NewConfigurationError("convex polyhedron", "points are collinear")
	}

	c := pts[idx[2]]
	n := b.Sub(a).Cross(c.Sub(a)).Normalize()
	best = -1
	for i, p := range pts {
		if d := math.Abs(n.Dot(p.Sub(a))); d > best {
			idx[3], best = i, d
		}
	}
	if best <= h.eps {
		return idx, spatialmath.NewConfigurationError("convex polyhedron", "points are coplanar")
	}

	i0, i1, i2, i3 := idx[0], idx[1], idx[2], idx[3]
	if n.Dot(pts[i3].Sub(a)) > 0 {
		i1, i2 = i2, i1
	}
	h.addTriangle(i0, i1, i2)
	h.addTriangle(i0, i3, i1)
	h.addTriangle(i1, i3, i2)
	h.addTriangle(i2, i3, i0)
	return idx, nil
}

func (h *hullBuilder) addTriangle(a, b, c int) {
	pa, pb, pc := h.points[a], h.points[b], h.points[c]
	n := pb.Sub(pa).Cross(pc.Sub(pa))
	unit, _, ok := spatialmath.SafeNormalize(n, 0)
	if !ok {
		unit = n
	}
	id := len(h.triangles)
	h.triangles = append(h.triangles, hullTriangle{
		v:      [3]int{a, b, c},
		normal: unit,
		offset: unit.Dot(pa),
		alive:  true,
	})
	h.owner[directedEdge{a, b}] = id
	h.owner[directedEdge{b, c}] = id
	h.owner[directedEdge{c, a}] = id
}

func (h *hullBuilder) removeTriangle(id int) {
	t := &h.triangles[id]
	t.alive = false
	for k := 0; k < 3; k++ {
		e := directedEdge{t.v[k], t.v[(k+1)%3]}
		if h.owner[e] == id {
			delete(h.owner, e)
		}
	}
}

// addPoint grows the hull to include point i. The visible region is flood filled from the most visible
// triangle so it stays connected.
func (h *hullBuilder) addPoint(i int) {
	p := h.points[i]
	seed, seedDist := -1, h.eps
	for id := range h.triangles {
		t := &h.triangles[id]
		if !t.alive {
			continue
		}
		if d := t.distance(p); d > seedDist {
			seed, seedDist = id, d
		}
	}
	if seed < 0 {
		return
	}

	visible := map[int]bool{seed: true}
	stack := []int{seed}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		t := h.triangles[id]
		for k := 0; k < 3; k++ {
			twin, ok := h.owner[directedEdge{t.v[(k+1)%3], t.v[k]}]
			if !ok || visible[twin] {
				continue
			}
			if h.triangles[twin].distance(p) > h.eps {
				visible[twin] = true
				stack = append(stack, twin)
			}
		}
	}

	var horizon []directedEdge
	ids := make([]int, 0, len(visible))
	for id := range visible {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		t := h.triangles[id]
		for k := 0; k < 3; k++ {
			a, b := t.v[k], t.v[(k+1)%3]
			twin, ok := h.owner[directedEdge{b, a}]
			if !ok || !visible[twin] {
				horizon = append(horizon, directedEdge{a, b})
			}
		}
	}
	for _, id := range ids {
		h.removeTriangle(id)
	}
	for _, e := range horizon {
		h.addTriangle(e[0], e[1], i)
	}
}

// compact keeps the vertices referenced by live triangles, in input order.
func (h *hullBuilder) compact() ([]r3.Vector, [][3]int) {
	used := make([]bool, len(h.points))
	for _, t := range h.triangles {
		if t.alive {
			for _, v := range t.v {
				used[v] = true
			}
		}
	}
	remap := make([]int, len(h.points))
	var verts []r3.Vector
	for i, p := range h.points {
		if used[i] {
			remap[i] = len(verts)
			verts = append(verts, p)
		}
	}
	var tris [][3]int
	for _, t := range h.triangles {
		if t.alive {
			tris = append(tris, [3]int{remap[t.v[0]], remap[t.v[1]], remap[t.v[2]]})
		}
	}
	return verts, tris
}

// mergeCoplanar groups adjacent hull triangles lying in the same plane into convex polygons. Each polygon
// is a counter-clockwise vertex loop starting at its lowest vertex index.
func mergeCoplanar(verts []r3.Vector, tris [][3]int, eps float64) [][]int {
	normals := make([]r3.Vector, len(tris))
	owner := map[directedEdge]int{}
	for i, t := range tris {
		normals[i] = spatialmath.PlaneNormal(verts[t[0]], verts[t[1]], verts[t[2]])
		for k := 0; k < 3; k++ {
			owner[directedEdge{t[k], t[(k+1)%3]}] = i
		}
	}

	group := make([]int, len(tris))
	for i := range group {
		group[i] = -1
	}
	var polygons [][]int
	for seed := range tris {
		if group[seed] >= 0 {
			continue
		}
		g := len(polygons)
		group[seed] = g
		n := normals[seed]
		offset := n.Dot(verts[tris[seed][0]])
		members := []int{seed}
		for q := 0; q < len(members); q++ {
			t := tris[members[q]]
			for k := 0; k < 3; k++ {
				twin, ok := owner[directedEdge{t[(k+1)%3], t[k]}]
				if !ok || group[twin] >= 0 {
					continue
				}
				coplanar := true
				for _, v := range tris[twin] {
					if math.Abs(n.Dot(verts[v])-offset) > eps {
						coplanar = false
						break
					}
				}
				if coplanar && normals[twin].Dot(n) > 0 {
					group[twin] = g
					members = append(members, twin)
				}
			}
		}

		// boundary edges of the group chain into one loop
		next := map[int]int{}
		start := math.MaxInt
		for _, m := range members {
			t := tris[m]
			for k := 0; k < 3; k++ {
				a, b := t[k], t[(k+1)%3]
				if twin, ok := owner[directedEdge{b, a}]; ok && group[twin] == g {
					continue
				}
				next[a] = b
				if a < start {
					start = a
				}
			}
		}
		loop := []int{start}
		for v := next[start]; v != start && len(loop) <= len(next); v = next[v] {
			loop = append(loop, v)
		}
		polygons = append(polygons, loop)
	}
	return polygons
}

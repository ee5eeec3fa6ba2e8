package manifold

import (
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/collide/shape"
	"go.viam.com/collide/spatialmath"
)

const clipCapacity = 2*shape.MaxFeatureVertices + 2

type clipVertex struct {
	p     r3.Vector
	refID shape.FeatureID
	incID shape.FeatureID
	// edge leaving this vertex
	edge shape.FeatureID
}

type clipPolygon struct {
	verts [clipCapacity]clipVertex
	n     int
}

func (c *clipPolygon) push(v clipVertex) {
	if c.n < clipCapacity {
		c.verts[c.n] = v
		c.n++
	}
}

// Clip builds the manifold of two touching polygonal features. feature1 is in the frame of the first shape,
// feature2 in the frame of the second, and normal1 is the unit contact normal in the frame of the first
// shape pointing toward the second. Points separated by more than prediction are dropped.
//
// The reference face is the face most anti-parallel to the opposing feature along the contact normal; the
// other feature is clipped against its side planes. When neither feature is a usable face the features
// are treated as segments.
func Clip(
	pos12 spatialmath.Pose,
	feature1, feature2 shape.PolygonalFeature,
	normal1 r3.Vector,
	prediction float64,
	cfg Config,
) Manifold {
	m := Manifold{
		Normal1: normal1,
		Normal2: spatialmath.InverseRotateVector(pos12, normal1.Mul(-1)),
	}
	f2 := feature2
	f2.Transform(pos12)

	align1, align2 := math.Inf(-1), math.Inf(-1)
	if feature1.NumVertices >= 3 {
		align1 = feature1.Normal.Dot(normal1)
	}
	if f2.NumVertices >= 3 {
		align2 = -f2.Normal.Dot(normal1)
	}

	var cands clipPoints
	switch {
	case math.Max(align1, align2) <= minFaceAlignment:
		clipSegments(&cands, pos12, &feature1, &f2, normal1, prediction)
	case align1 >= align2-cfg.TieBreakEpsilon:
		clipFace(&cands, pos12, &feature1, &f2, false, prediction)
	default:
		clipFace(&cands, pos12, &f2, &feature1, true, prediction)
	}
	cands.reduceInto(&m, normal1)
	return m
}

// faces tilted further than this from the contact normal are not used as reference faces
const minFaceAlignment = 1e-6

type clipPoints struct {
	points [clipCapacity]Point
	n      int
}

func (c *clipPoints) push(p Point) {
	if c.n < clipCapacity {
		c.points[c.n] = p
		c.n++
	}
}

// clipFace clips inc against the side planes of ref. Both are in the frame of the first shape. When flipped
// is set ref belongs to the second shape.
func clipFace(out *clipPoints, pos12 spatialmath.Pose, ref, inc *shape.PolygonalFeature, flipped bool, prediction float64) {
	n := ref.Normal
	scale := 0.
	for i := 0; i < ref.NumVertices; i++ {
		scale = math.Max(scale, ref.Vertices[(i+1)%ref.NumVertices].Sub(ref.Vertices[i]).Norm())
	}
	tol := 1e-9 * math.Max(1, scale)

	var poly clipPolygon
	for i := 0; i < inc.NumVertices; i++ {
		poly.push(clipVertex{p: inc.Vertices[i], refID: ref.FaceID, incID: inc.VertexIDs[i], edge: inc.EdgeIDs[i]})
	}

	for i := 0; i < ref.NumVertices && poly.n > 0; i++ {
		a, b := ref.Vertices[i], ref.Vertices[(i+1)%ref.NumVertices]
		side, _, ok := spatialmath.SafeNormalize(b.Sub(a).Cross(n), 0)
		if !ok {
			continue
		}
		dist := func(p r3.Vector) float64 { return p.Sub(a).Dot(side) }
		switch poly.n {
		case 1:
			if dist(poly.verts[0].p) > tol {
				poly.n = 0
			}
		case 2:
			clipSegment(&poly, dist, tol, ref.EdgeIDs[i])
		default:
			clipPolygonAgainst(&poly, dist, tol, ref.EdgeIDs[i])
		}
	}

	origin := ref.Vertices[0]
	for k := 0; k < poly.n; k++ {
		v := poly.verts[k]
		s := v.p.Sub(origin).Dot(n)
		if s > prediction {
			continue
		}
		onRef := v.p.Sub(n.Mul(s))
		if flipped {
			out.push(Point{
				LocalPoint1: v.p,
				LocalPoint2: spatialmath.InverseTransformPoint(pos12, onRef),
				Dist:        s,
				ID1:         v.incID,
				ID2:         v.refID,
			})
		} else {
			out.push(Point{
				LocalPoint1: onRef,
				LocalPoint2: spatialmath.InverseTransformPoint(pos12, v.p),
				Dist:        s,
				ID1:         v.refID,
				ID2:         v.incID,
			})
		}
	}
}

// clipPolygonAgainst is one Sutherland-Hodgman pass keeping the side where dist <= tol.
func clipPolygonAgainst(poly *clipPolygon, dist func(r3.Vector) float64, tol float64, planeID shape.FeatureID) {
	var out clipPolygon
	for k := 0; k < poly.n; k++ {
		p, q := poly.verts[(k+poly.n-1)%poly.n], poly.verts[k]
		dp, dq := dist(p.p), dist(q.p)
		switch {
		case dq <= tol:
			if dp > tol {
				out.push(clipVertex{p: intersect(p.p, q.p, dp, dq), refID: planeID, incID: p.edge, edge: p.edge})
			}
			out.push(q)
		case dp <= tol:
			out.push(clipVertex{p: intersect(p.p, q.p, dp, dq), refID: planeID, incID: p.edge, edge: planeID})
		}
	}
	*poly = out
}

// clipSegment clips an incident edge, which Sutherland-Hodgman would turn into a doubled polygon.
func clipSegment(poly *clipPolygon, dist func(r3.Vector) float64, tol float64, planeID shape.FeatureID) {
	a, b := poly.verts[0], poly.verts[1]
	da, db := dist(a.p), dist(b.p)
	switch {
	case da > tol && db > tol:
		poly.n = 0
		return
	case da > tol:
		a = clipVertex{p: intersect(a.p, b.p, da, db), refID: planeID, incID: a.edge, edge: a.edge}
	case db > tol:
		b = clipVertex{p: intersect(a.p, b.p, da, db), refID: planeID, incID: a.edge, edge: b.edge}
	}
	poly.verts[0], poly.verts[1] = a, b
}

func intersect(p, q r3.Vector, dp, dq float64) r3.Vector {
	t := dp / (dp - dq)
	return p.Add(q.Sub(p).Mul(t))
}

// clipSegments handles vertex and edge pairs. Parallel edges produce the two ends of their overlap.
func clipSegments(
	out *clipPoints,
	pos12 spatialmath.Pose,
	f1, f2 *shape.PolygonalFeature,
	normal1 r3.Vector,
	prediction float64,
) {
	g1 := asSegment(f1, normal1)
	g2 := asSegment(f2, normal1.Mul(-1))
	a1, b1 := g1.Vertices[0], g1.Vertices[g1.NumVertices-1]
	a2, b2 := g2.Vertices[0], g2.Vertices[g2.NumVertices-1]

	emit := func(c1, c2 r3.Vector, s, t float64) {
		d := c2.Sub(c1).Dot(normal1)
		if d > prediction {
			return
		}
		out.push(Point{
			LocalPoint1: c1,
			LocalPoint2: spatialmath.InverseTransformPoint(pos12, c2),
			Dist:        d,
			ID1:         segmentFeatureID(&g1, s),
			ID2:         segmentFeatureID(&g2, t),
		})
	}

	d1, d2 := b1.Sub(a1), b2.Sub(a2)
	l1, l2 := d1.Norm2(), d2.Norm2()
	if g1.NumVertices == 2 && g2.NumVertices == 2 && d1.Cross(d2).Norm2() <= 1e-12*l1*l2 {
		sa, sb := a2.Sub(a1).Dot(d1)/l1, b2.Sub(a1).Dot(d1)/l1
		lo, hi := math.Max(0, math.Min(sa, sb)), math.Min(1, math.Max(sa, sb))
		if lo <= hi {
			for _, s := range [2]float64{lo, hi} {
				c1 := a1.Add(d1.Mul(s))
				c2, t := spatialmath.ProjectPointOnSegment(a2, b2, c1)
				emit(c1, c2, s, t)
				if hi-lo <= 1e-9 {
					break
				}
			}
			return
		}
	}
	c1, c2, s, t := spatialmath.ClosestPointsSegmentSegment(a1, b1, a2, b2)
	emit(c1, c2, s, t)
}

// asSegment reduces a face that cannot serve as a reference to its vertex farthest along dir.
func asSegment(f *shape.PolygonalFeature, dir r3.Vector) shape.PolygonalFeature {
	if f.NumVertices <= 2 {
		return *f
	}
	best := 0
	for i := 1; i < f.NumVertices; i++ {
		if f.Vertices[i].Dot(dir) > f.Vertices[best].Dot(dir) {
			best = i
		}
	}
	var g shape.PolygonalFeature
	g.Vertices[0] = f.Vertices[best]
	g.VertexIDs[0] = f.VertexIDs[best]
	g.Normal = f.Normal
	g.NumVertices = 1
	return g
}

func segmentFeatureID(f *shape.PolygonalFeature, param float64) shape.FeatureID {
	switch {
	case f.NumVertices == 1 || param <= 0:
		return f.VertexIDs[0]
	case param >= 1:
		return f.VertexIDs[1]
	default:
		return f.EdgeIDs[0]
	}
}

// reduceInto keeps at most MaxPoints points covering the largest area: the deepest point, the point
// farthest from it, the point making the largest triangle with both, and the point adding the most area
// outside that triangle. Kept points stay in clip order.
func (c *clipPoints) reduceInto(m *Manifold, normal r3.Vector) {
	if c.n <= MaxPoints {
		for i := 0; i < c.n; i++ {
			m.Add(c.points[i])
		}
		return
	}
	pos := func(i int) r3.Vector { return c.points[i].LocalPoint1 }

	i0 := 0
	for i := 1; i < c.n; i++ {
		if c.points[i].Dist < c.points[i0].Dist {
			i0 = i
		}
	}
	i1, best := -1, -1.
	for i := 0; i < c.n; i++ {
		if d := pos(i).Sub(pos(i0)).Norm2(); i != i0 && d > best {
			i1, best = i, d
		}
	}
	i2, best := -1, -1.
	for i := 0; i < c.n; i++ {
		if i == i0 || i == i1 {
			continue
		}
		if area := math.Abs(pos(i1).Sub(pos(i0)).Cross(pos(i).Sub(pos(i0))).Dot(normal)); area > best {
			i2, best = i, area
		}
	}
	tri := [3]int{i0, i1, i2}
	sign := 1.
	if pos(i1).Sub(pos(i0)).Cross(pos(i2).Sub(pos(i0))).Dot(normal) < 0 {
		sign = -1
	}
	i3, best := -1, 0.
	for i := 0; i < c.n; i++ {
		if i == i0 || i == i1 || i == i2 {
			continue
		}
		outside := 0.
		for k := 0; k < 3; k++ {
			a, b := pos(tri[k]), pos(tri[(k+1)%3])
			outside = math.Max(outside, -sign*b.Sub(a).Cross(pos(i).Sub(a)).Dot(normal))
		}
		if outside > best {
			i3, best = i, outside
		}
	}

	var keep [clipCapacity]bool
	keep[i0], keep[i1], keep[i2] = true, true, true
	if i3 >= 0 {
		keep[i3] = true
	}
	for i := 0; i < c.n; i++ {
		if keep[i] {
			m.Add(c.points[i])
		}
	}
}

// Reduce adds pts to m, keeping at most MaxPoints of them chosen as Clip does. pts beyond the clipping
// capacity are ignored.
func Reduce(m *Manifold, pts []Point) {
	var c clipPoints
	for _, p := range pts {
		c.push(p)
	}
	c.reduceInto(m, m.Normal1)
}

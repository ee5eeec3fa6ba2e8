package shape

import (
	"encoding/json"
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/collide/spatialmath"
)

// Triangle is a flat triangle with vertices in counter-clockwise order around its normal.
type Triangle struct {
	tri *spatialmath.Triangle
}

// NewTriangle instantiates a new Triangle. Triangles with (nearly) collinear vertices are rejected.
func NewTriangle(a, b, c r3.Vector) (*Triangle, error) {
	for _, p := range [3]r3.Vector{a, b, c} {
		if !spatialmath.R3VectorIsFinite(p) {
			return nil, spatialmath.NewBadGeometryDimensionsError("triangle")
		}
	}
	cross := b.Sub(a).Cross(c.Sub(a)).Norm()
	scale := math.Max(b.Sub(a).Norm2(), math.Max(c.Sub(a).Norm2(), c.Sub(b).Norm2()))
	if cross <= 1e-12*scale {
		return nil, spatialmath.NewConfigurationError("triangle", "vertices %v, %v and %v are collinear", a, b, c)
	}
	return &Triangle{tri: spatialmath.NewTriangle(a, b, c)}, nil
}

// Points returns the three vertices.
func (t *Triangle) Points() [3]r3.Vector {
	return t.tri.Points()
}

// Normal returns the unit normal.
func (t *Triangle) Normal() r3.Vector {
	return t.tri.Normal()
}

// Geometry returns the underlying closest-point primitive.
func (t *Triangle) Geometry() *spatialmath.Triangle {
	return t.tri
}

// Kind returns KindTriangle.
func (t *Triangle) Kind() Kind { return KindTriangle }

// IsConvex returns true.
func (t *Triangle) IsConvex() bool { return true }

// MarshalJSON serializes the triangle as a ShapeConfig.
func (t *Triangle) MarshalJSON() ([]byte, error) {
	config, err := NewShapeConfig(t)
	if err != nil {
		return nil, err
	}
	return json.Marshal(config)
}

// LocalAABB returns the box spanned by the vertices.
func (t *Triangle) LocalAABB() spatialmath.AABB {
	pts := t.tri.Points()
	return spatialmath.NewAABBFromPoints(pts[:]...)
}

// LocalBoundingSphere returns a sphere centered on the centroid.
func (t *Triangle) LocalBoundingSphere() spatialmath.BoundingSphere {
	c := t.tri.Centroid()
	r := 0.
	for _, p := range t.tri.Points() {
		r = math.Max(r, p.Distance(c))
	}
	return spatialmath.BoundingSphere{Center: c, Radius: r}
}

// AABB returns the exact world box of the triangle.
func (t *Triangle) AABB(pose spatialmath.Pose) spatialmath.AABB {
	pts := t.tri.Points()
	box := spatialmath.EmptyAABB()
	for _, p := range pts {
		box = box.Merged(spatialmath.TransformPoint(pose, p))
	}
	return box
}

// LocalSupportPoint returns the vertex farthest along dir, the lowest index on ties.
func (t *Triangle) LocalSupportPoint(dir r3.Vector) r3.Vector {
	pts := t.tri.Points()
	return pts[t.supportIndex(dir)]
}

func (t *Triangle) supportIndex(dir r3.Vector) int {
	pts := t.tri.Points()
	best, bestDot := 0, pts[0].Dot(dir)
	for i := 1; i < 3; i++ {
		if d := pts[i].Dot(dir); d > bestDot {
			best, bestDot = i, d
		}
	}
	return best
}

// LocalSupportFeature returns the face when dir is close to the normal (either side), otherwise the edge
// whose vertices are farthest along dir.
func (t *Triangle) LocalSupportFeature(dir r3.Vector) PolygonalFeature {
	pts := t.tri.Points()
	n := t.tri.Normal()
	unit, _, ok := spatialmath.SafeNormalize(dir, 0)
	if !ok {
		unit = n
	}
	if cos := unit.Dot(n); math.Abs(cos) >= faceAlignment {
		var f PolygonalFeature
		order := [3]int{0, 1, 2}
		f.Normal = n
		if cos < 0 {
			order = [3]int{0, 2, 1}
			f.Normal = n.Mul(-1)
			f.FaceID = FaceID(1)
		} else {
			f.FaceID = FaceID(0)
		}
		for j, v := range order {
			f.push(pts[v], VertexID(v))
			f.EdgeIDs[j] = EdgeID(triangleEdgeIndex(v, order[(j+1)%3]))
		}
		return f
	}

	bestEdge, bestDot := 0, math.Inf(-1)
	for e := 0; e < 3; e++ {
		if d := pts[e].Dot(unit) + pts[(e+1)%3].Dot(unit); d > bestDot {
			bestEdge, bestDot = e, d
		}
	}
	a, b := bestEdge, (bestEdge+1)%3
	ab := pts[b].Sub(pts[a])
	if math.Abs(ab.Dot(unit)) > featureAlignment*ab.Norm() {
		v := t.supportIndex(unit)
		return vertexFeature(pts[v], VertexID(v), unit)
	}
	return edgeFeature(pts[a], pts[b], VertexID(a), VertexID(b), EdgeID(bestEdge), unit)
}

// triangleEdgeIndex returns the index of the edge joining vertices a and b; edge i joins i and i+1.
func triangleEdgeIndex(a, b int) int {
	if (a+1)%3 == b {
		return a
	}
	return b
}

// CastLocalRay intersects the ray with the triangle. Triangles are hollow: a ray starting on the
// triangle plane inside the triangle only hits at time zero when solid is set.
func (t *Triangle) CastLocalRay(ray spatialmath.Ray, maxTOI float64, solid bool) (RayIntersection, bool) {
	if !ray.IsFinite() {
		return RayIntersection{}, false
	}
	toi, front, ok := t.tri.IntersectRay(ray, maxTOI)
	if !ok {
		return RayIntersection{}, false
	}
	n := t.tri.Normal()
	feature := FaceID(0)
	if !front {
		n = n.Mul(-1)
		feature = FaceID(1)
	}
	return RayIntersection{TOI: toi, Normal: n, Feature: feature}, true
}

package shape

import (
	"encoding/json"
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/collide/spatialmath"
)

type polyFace struct {
	vertices []int
	edges    []int
	normal   r3.Vector
	offset   float64
}

// ConvexPolyhedron is the convex hull of a point cloud. Faces are convex polygons with coplanar hull
// triangles merged, so a box built from its eight corners has six faces.
type ConvexPolyhedron struct {
	vertices []r3.Vector
	faces    []polyFace
	edges    [][2]int
	aabb     spatialmath.AABB
	sphere   spatialmath.BoundingSphere
}

// NewConvexPolyhedron computes the convex hull of points. Fewer than four points, or points that are all
// collinear or coplanar, produce a ConfigurationError.
func NewConvexPolyhedron(points []r3.Vector) (*ConvexPolyhedron, error) {
	verts, tris, err := convexHull(points)
	if err != nil {
		return nil, err
	}
	aabb := spatialmath.NewAABBFromPoints(verts...)
	eps := 1e-9 * aabb.HalfExtents().Norm()
	loops := mergeCoplanar(verts, tris, eps)

	poly := &ConvexPolyhedron{vertices: verts, aabb: aabb}
	edgeIndex := map[[2]int]int{}
	for _, loop := range loops {
		face := polyFace{vertices: loop, edges: make([]int, len(loop))}
		for k, a := range loop {
			b := loop[(k+1)%len(loop)]
			key := [2]int{min(a, b), max(a, b)}
			e, ok := edgeIndex[key]
			if !ok {
				e = len(poly.edges)
				edgeIndex[key] = e
				poly.edges = append(poly.edges, key)
			}
			face.edges[k] = e
		}
		face.normal = polygonNormal(verts, loop)
		face.offset = face.normal.Dot(verts[loop[0]])
		poly.faces = append(poly.faces, face)
	}

	center := aabb.Center()
	r := 0.
	for _, v := range verts {
		r = math.Max(r, v.Distance(center))
	}
	poly.sphere = spatialmath.BoundingSphere{Center: center, Radius: r}
	return poly, nil
}

// polygonNormal returns the Newell normal of a planar loop.
func polygonNormal(verts []r3.Vector, loop []int) r3.Vector {
	var n r3.Vector
	for k, a := range loop {
		p, q := verts[a], verts[loop[(k+1)%len(loop)]]
		n.X += (p.Y - q.Y) * (p.Z + q.Z)
		n.Y += (p.Z - q.Z) * (p.X + q.X)
		n.Z += (p.X - q.X) * (p.Y + q.Y)
	}
	return n.Normalize()
}

// Vertices returns the hull vertices.
func (p *ConvexPolyhedron) Vertices() []r3.Vector {
	return p.vertices
}

// NumFaces returns the number of polygonal faces.
func (p *ConvexPolyhedron) NumFaces() int {
	return len(p.faces)
}

// Face returns the vertex loop and outward normal of face i.
func (p *ConvexPolyhedron) Face(i int) ([]int, r3.Vector) {
	return p.faces[i].vertices, p.faces[i].normal
}

// NumEdges returns the number of hull edges.
func (p *ConvexPolyhedron) NumEdges() int {
	return len(p.edges)
}

// Kind returns KindConvexPolyhedron.
func (p *ConvexPolyhedron) Kind() Kind { return KindConvexPolyhedron }

// IsConvex returns true.
func (p *ConvexPolyhedron) IsConvex() bool { return true }

// MarshalJSON serializes the polyhedron as a ShapeConfig listing its hull vertices.
func (p *ConvexPolyhedron) MarshalJSON() ([]byte, error) {
	config, err := NewShapeConfig(p)
	if err != nil {
		return nil, err
	}
	return json.Marshal(config)
}

// LocalAABB returns the box spanned by the vertices.
func (p *ConvexPolyhedron) LocalAABB() spatialmath.AABB { return p.aabb }

// LocalBoundingSphere returns a sphere centered on the local box.
func (p *ConvexPolyhedron) LocalBoundingSphere() spatialmath.BoundingSphere { return p.sphere }

// AABB returns the exact world box of the polyhedron.
func (p *ConvexPolyhedron) AABB(pose spatialmath.Pose) spatialmath.AABB {
	box := spatialmath.EmptyAABB()
	for _, v := range p.vertices {
		box = box.Merged(spatialmath.TransformPoint(pose, v))
	}
	return box
}

// LocalSupportPoint returns the vertex farthest along dir, the lowest index on ties.
func (p *ConvexPolyhedron) LocalSupportPoint(dir r3.Vector) r3.Vector {
	return p.vertices[p.supportIndex(dir)]
}

func (p *ConvexPolyhedron) supportIndex(dir r3.Vector) int {
	best, bestDot := 0, p.vertices[0].Dot(dir)
	for i := 1; i < len(p.vertices); i++ {
		if d := p.vertices[i].Dot(dir); d > bestDot {
			best, bestDot = i, d
		}
	}
	return best
}

// SupportFaceIndex returns the face whose normal is most aligned with dir, the lowest index on ties.
func (p *ConvexPolyhedron) SupportFaceIndex(dir r3.Vector) int {
	best, bestDot := 0, math.Inf(-1)
	for i, f := range p.faces {
		if d := f.normal.Dot(dir); d > bestDot {
			best, bestDot = i, d
		}
	}
	return best
}

// LocalSupportFeature returns the face most aligned with dir.
func (p *ConvexPolyhedron) LocalSupportFeature(dir r3.Vector) PolygonalFeature {
	return p.FaceFeature(p.SupportFaceIndex(dir))
}

// FaceFeature returns face i as a polygonal feature.
func (p *ConvexPolyhedron) FaceFeature(i int) PolygonalFeature {
	face := p.faces[i]
	var f PolygonalFeature
	for k, v := range face.vertices {
		if k >= MaxFeatureVertices {
			break
		}
		f.push(p.vertices[v], VertexID(v))
		f.EdgeIDs[k] = EdgeID(face.edges[k])
	}
	f.FaceID = FaceID(i)
	f.Normal = face.normal
	return f
}

// CastLocalRay clips the ray against every face plane.
func (p *ConvexPolyhedron) CastLocalRay(ray spatialmath.Ray, maxTOI float64, solid bool) (RayIntersection, bool) {
	if !ray.IsFinite() {
		return RayIntersection{}, false
	}
	tEnter, tExit := math.Inf(-1), math.Inf(1)
	enter, exit := -1, -1
	for i, f := range p.faces {
		denom := f.normal.Dot(ray.Dir)
		num := f.offset - f.normal.Dot(ray.Origin)
		if denom == 0 {
			if num < 0 {
				return RayIntersection{}, false
			}
			continue
		}
		t := num / denom
		if denom < 0 {
			if t > tEnter {
				tEnter, enter = t, i
			}
		} else if t < tExit {
			tExit, exit = t, i
		}
		if tEnter > tExit {
			return RayIntersection{}, false
		}
	}
	if tExit < 0 {
		return RayIntersection{}, false
	}
	if tEnter < 0 || enter < 0 {
		if solid {
			return RayIntersection{TOI: 0}, true
		}
		if exit < 0 || tExit > maxTOI {
			return RayIntersection{}, false
		}
		return RayIntersection{TOI: tExit, Normal: p.faces[exit].normal, Feature: FaceID(exit)}, true
	}
	if tEnter > maxTOI {
		return RayIntersection{}, false
	}
	return RayIntersection{TOI: tEnter, Normal: p.faces[enter].normal, Feature: FaceID(enter)}, true
}

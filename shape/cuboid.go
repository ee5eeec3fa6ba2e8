package shape

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/collide/spatialmath"
)

// Ordered list of cuboid vertex sign patterns. A vertex index has bit 2 set for -X, bit 1 for -Y and bit 0 for -Z.
var cuboidVertices = [8]r3.Vector{
	{X: 1, Y: 1, Z: 1},
	{X: 1, Y: 1, Z: -1},
	{X: 1, Y: -1, Z: 1},
	{X: 1, Y: -1, Z: -1},
	{X: -1, Y: 1, Z: 1},
	{X: -1, Y: 1, Z: -1},
	{X: -1, Y: -1, Z: 1},
	{X: -1, Y: -1, Z: -1},
}

// The 12 edges of a cuboid, as pairs of vertex indices (vertices differing in exactly one coordinate).
var cuboidEdges = [12][2]int{
	{0, 1}, {0, 2}, {0, 4},
	{1, 3}, {1, 5},
	{2, 3}, {2, 6},
	{3, 7},
	{4, 5}, {4, 6},
	{5, 7},
	{6, 7},
}

// Ordered list of cuboid face normals; the face id is the index in this list.
var cuboidNormals = [6]r3.Vector{
	{X: 1, Y: 0, Z: 0},
	{X: 0, Y: 1, Z: 0},
	{X: 0, Y: 0, Z: 1},
	{X: -1, Y: 0, Z: 0},
	{X: 0, Y: -1, Z: 0},
	{X: 0, Y: 0, Z: -1},
}

// cuboidFaces lists the vertices of each face counter-clockwise around its outward normal.
var cuboidFaces = func() [6][4]int {
	var faces [6][4]int
	for f, n := range cuboidNormals {
		axis := f % 3
		sign := n.X + n.Y + n.Z
		j, k := (axis+1)%3, (axis+2)%3
		corners := [4][2]float64{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
		for c, uv := range corners {
			var p r3.Vector
			p = spatialmath.WithComponent(p, axis, sign)
			p = spatialmath.WithComponent(p, j, uv[0])
			p = spatialmath.WithComponent(p, k, uv[1])
			idx := cuboidVertexIndex(p)
			if sign > 0 {
				faces[f][c] = idx
			} else {
				faces[f][3-c] = idx
			}
		}
	}
	return faces
}()

func cuboidVertexIndex(signs r3.Vector) int {
	idx := 0
	if signs.X < 0 {
		idx |= 4
	}
	if signs.Y < 0 {
		idx |= 2
	}
	if signs.Z < 0 {
		idx |= 1
	}
	return idx
}

func cuboidEdgeIndex(a, b int) int {
	if a > b {
		a, b = b, a
	}
	for i, e := range cuboidEdges {
		if e[0] == a && e[1] == b {
			return i
		}
	}
	return -1
}

// Cuboid is a rectangular box centered on its local origin, given by its half extents.
type Cuboid struct {
	halfSize r3.Vector
}

// NewCuboid instantiates a new Cuboid from its half extents.
func NewCuboid(halfExtents r3.Vector) (*Cuboid, error) {
	if err := checkPositive("cuboid", halfExtents.X, halfExtents.Y, halfExtents.Z); err != nil {
		return nil, err
	}
	return &Cuboid{halfSize: halfExtents}, nil
}

// NewCuboidFromDims instantiates a new Cuboid from its full dimensions.
func NewCuboidFromDims(dims r3.Vector) (*Cuboid, error) {
	return NewCuboid(dims.Mul(0.5))
}

// HalfExtents returns half the size of the cuboid along each axis.
func (c *Cuboid) HalfExtents() r3.Vector {
	return c.halfSize
}

// Kind returns KindCuboid.
func (c *Cuboid) Kind() Kind { return KindCuboid }

// IsConvex returns true.
func (c *Cuboid) IsConvex() bool { return true }

// String returns a human readable string that represents the cuboid.
func (c *Cuboid) String() string {
	return fmt.Sprintf("Type: Cuboid | Dims: X:%.3f, Y:%.3f, Z:%.3f", 2*c.halfSize.X, 2*c.halfSize.Y, 2*c.halfSize.Z)
}

// MarshalJSON serializes the cuboid as a ShapeConfig.
func (c *Cuboid) MarshalJSON() ([]byte, error) {
	config, err := NewShapeConfig(c)
	if err != nil {
		return nil, err
	}
	return json.Marshal(config)
}

// LocalAABB returns the cuboid itself.
func (c *Cuboid) LocalAABB() spatialmath.AABB {
	return spatialmath.NewAABBFromHalfExtents(r3.Vector{}, c.halfSize)
}

// LocalBoundingSphere returns the sphere through the corners.
func (c *Cuboid) LocalBoundingSphere() spatialmath.BoundingSphere {
	return spatialmath.BoundingSphere{Radius: c.halfSize.Norm()}
}

// AABB returns the exact world box of the rotated cuboid.
func (c *Cuboid) AABB(pose spatialmath.Pose) spatialmath.AABB {
	return c.LocalAABB().Transform(pose)
}

// Vertex returns vertex i in the local frame.
func (c *Cuboid) Vertex(i int) r3.Vector {
	s := cuboidVertices[i]
	return r3.Vector{X: s.X * c.halfSize.X, Y: s.Y * c.halfSize.Y, Z: s.Z * c.halfSize.Z}
}

// Vertices returns the eight corners in vertex id order.
func (c *Cuboid) Vertices() [8]r3.Vector {
	var out [8]r3.Vector
	for i := range out {
		out[i] = c.Vertex(i)
	}
	return out
}

// Edge returns the endpoints of edge i.
func (c *Cuboid) Edge(i int) (r3.Vector, r3.Vector) {
	return c.Vertex(cuboidEdges[i][0]), c.Vertex(cuboidEdges[i][1])
}

// LocalSupportPoint returns the support vertex; a zero component picks the positive side.
func (c *Cuboid) LocalSupportPoint(dir r3.Vector) r3.Vector {
	return r3.Vector{
		X: math.Copysign(c.halfSize.X, signOf(dir.X)),
		Y: math.Copysign(c.halfSize.Y, signOf(dir.Y)),
		Z: math.Copysign(c.halfSize.Z, signOf(dir.Z)),
	}
}

// SupportVertexID returns the id of the vertex LocalSupportPoint selects.
func (c *Cuboid) SupportVertexID(dir r3.Vector) FeatureID {
	return VertexID(cuboidVertexIndex(r3.Vector{X: signOf(dir.X), Y: signOf(dir.Y), Z: signOf(dir.Z)}))
}

func signOf(x float64) float64 {
	if x < 0 {
		return -1
	}
	return 1
}

// SupportFaceIndex returns the index of the face whose normal is most aligned with dir, preferring the
// lowest index on ties.
func (c *Cuboid) SupportFaceIndex(dir r3.Vector) int {
	best, bestDot := 0, math.Inf(-1)
	for i, n := range cuboidNormals {
		if d := n.Dot(dir); d > bestDot {
			best, bestDot = i, d
		}
	}
	return best
}

// LocalSupportFeature returns the face most aligned with dir.
func (c *Cuboid) LocalSupportFeature(dir r3.Vector) PolygonalFeature {
	return c.Face(c.SupportFaceIndex(dir))
}

// Face returns face i as a polygonal feature.
func (c *Cuboid) Face(i int) PolygonalFeature {
	var f PolygonalFeature
	verts := cuboidFaces[i]
	for j, v := range verts {
		f.push(c.Vertex(v), VertexID(v))
		f.EdgeIDs[j] = EdgeID(cuboidEdgeIndex(v, verts[(j+1)%4]))
	}
	f.FaceID = FaceID(i)
	f.Normal = cuboidNormals[i]
	return f
}

// CastLocalRay intersects the ray with the cuboid using the slab method.
func (c *Cuboid) CastLocalRay(ray spatialmath.Ray, maxTOI float64, solid bool) (RayIntersection, bool) {
	if !ray.IsFinite() {
		return RayIntersection{}, false
	}
	toi, normal, ok := c.LocalAABB().CastLocalRay(ray, maxTOI, solid)
	if !ok {
		return RayIntersection{}, false
	}
	feature := UnknownFeature
	if normal.Norm2() > 0 {
		feature = FaceID(c.SupportFaceIndex(normal))
	}
	return RayIntersection{TOI: toi, Normal: normal, Feature: feature}, true
}

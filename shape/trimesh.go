package shape

import (
	"encoding/json"
	"fmt"

	"github.com/golang/geo/r3"

	"go.viam.com/collide/bvh"
	"go.viam.com/collide/spatialmath"
)

// triangleSet is the part storage shared by the triangle based composites.
type triangleSet struct {
	triangles []*Triangle
	tree      *bvh.Tree
	aabb      spatialmath.AABB
	sphere    spatialmath.BoundingSphere
}

func newTriangleSet(triangles []*Triangle) triangleSet {
	set := triangleSet{triangles: triangles, aabb: spatialmath.EmptyAABB()}
	leaves := make([]bvh.Leaf, len(triangles))
	for i, t := range triangles {
		box := t.LocalAABB()
		leaves[i] = bvh.Leaf{AABB: box, Data: i}
		set.aabb = set.aabb.Union(box)
	}
	center := set.aabb.Center()
	radius := 0.
	for _, t := range triangles {
		for _, p := range t.Points() {
			radius = max(radius, p.Distance(center))
		}
	}
	set.sphere = spatialmath.BoundingSphere{Center: center, Radius: radius}
	set.tree = bvh.Build(leaves)
	return set
}

// NumParts returns the number of triangles.
func (s *triangleSet) NumParts() int { return len(s.triangles) }

// Part returns triangle i; triangles are stored in the composite frame so the pose is the identity.
func (s *triangleSet) Part(i int) (spatialmath.Pose, Shape) {
	return spatialmath.NewZeroPose(), s.triangles[i]
}

// Triangle returns triangle i.
func (s *triangleSet) Triangle(i int) *Triangle { return s.triangles[i] }

// Tree returns the triangle tree.
func (s *triangleSet) Tree() *bvh.Tree { return s.tree }

// IsConvex returns false.
func (s *triangleSet) IsConvex() bool { return false }

// LocalAABB returns the box of every triangle.
func (s *triangleSet) LocalAABB() spatialmath.AABB { return s.aabb }

// LocalBoundingSphere returns a sphere centered on the local box.
func (s *triangleSet) LocalBoundingSphere() spatialmath.BoundingSphere { return s.sphere }

// AABB returns the world box enclosing the transformed local box.
func (s *triangleSet) AABB(pose spatialmath.Pose) spatialmath.AABB {
	return s.aabb.Transform(pose)
}

// TriMesh is a triangle soup indexed by a static tree. It is hollow: only its surface collides.
type TriMesh struct {
	triangleSet
	vertices []r3.Vector
	indices  [][3]int
}

// NewTriMesh instantiates a new TriMesh. Every index must reference a vertex and every triangle must have
// a non-zero area.
func NewTriMesh(vertices []r3.Vector, indices [][3]int) (*TriMesh, error) {
	if len(indices) == 0 {
		return nil, spatialmath.NewConfigurationError("trimesh", "no triangles")
	}
	triangles := make([]*Triangle, len(indices))
	for i, idx := range indices {
		for _, v := range idx {
			if v < 0 || v >= len(vertices) {
				return nil, spatialmath.NewConfigurationError("trimesh",
					"triangle %d references vertex %d, mesh has %d vertices", i, v, len(vertices))
			}
		}
		t, err := NewTriangle(vertices[idx[0]], vertices[idx[1]], vertices[idx[2]])
		if err != nil {
			return nil, err
		}
		triangles[i] = t
	}
	return &TriMesh{
		triangleSet: newTriangleSet(triangles),
		vertices:    append([]r3.Vector(nil), vertices...),
		indices:     append([][3]int(nil), indices...),
	}, nil
}

// Vertices returns the mesh vertices.
func (m *TriMesh) Vertices() []r3.Vector { return m.vertices }

// Indices returns the vertex indices of each triangle.
func (m *TriMesh) Indices() [][3]int { return m.indices }

// Kind returns KindTriMesh.
func (m *TriMesh) Kind() Kind { return KindTriMesh }

func (m *TriMesh) String() string {
	return fmt.Sprintf("Type: TriMesh | Vertices: %d | Triangles: %d", len(m.vertices), len(m.indices))
}

// MarshalJSON serializes the mesh as a ShapeConfig.
func (m *TriMesh) MarshalJSON() ([]byte, error) {
	config, err := NewShapeConfig(m)
	if err != nil {
		return nil, err
	}
	return json.Marshal(config)
}

// CastLocalRay returns the first triangle hit.
func (m *TriMesh) CastLocalRay(ray spatialmath.Ray, maxTOI float64, solid bool) (RayIntersection, bool) {
	return castComposite(m, ray, maxTOI, solid)
}

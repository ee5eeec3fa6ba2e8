package shape

import (
	"fmt"

	"github.com/golang/geo/r3"

	"go.viam.com/collide/spatialmath"
)

// FeatureType says whether a feature is a vertex, an edge or a face.
type FeatureType uint32

// Feature types, stored in the two high bits of a FeatureID.
const (
	FeatureUnknown FeatureType = iota
	FeatureVertex
	FeatureEdge
	FeatureFace
)

const (
	featureTypeShift = 30
	featureIndexMask = 1<<featureTypeShift - 1
)

// FeatureID packs a feature type and a per-shape index. Identical topology yields identical ids.
type FeatureID uint32

// UnknownFeature is the id of points that do not come from a known feature.
const UnknownFeature FeatureID = 0

// VertexID returns the id of vertex i.
func VertexID(i int) FeatureID { return newFeatureID(FeatureVertex, i) }

// EdgeID returns the id of edge i.
func EdgeID(i int) FeatureID { return newFeatureID(FeatureEdge, i) }

// FaceID returns the id of face i.
func FaceID(i int) FeatureID { return newFeatureID(FeatureFace, i) }

func newFeatureID(t FeatureType, i int) FeatureID {
	return FeatureID(uint32(t)<<featureTypeShift | uint32(i)&featureIndexMask)
}

// Type returns the feature type.
func (f FeatureID) Type() FeatureType {
	return FeatureType(uint32(f) >> featureTypeShift)
}

// Index returns the feature index.
func (f FeatureID) Index() int {
	return int(uint32(f) & featureIndexMask)
}

func (f FeatureID) String() string {
	switch f.Type() {
	case FeatureVertex:
		return fmt.Sprintf("vertex(%d)", f.Index())
	case FeatureEdge:
		return fmt.Sprintf("edge(%d)", f.Index())
	case FeatureFace:
		return fmt.Sprintf("face(%d)", f.Index())
	default:
		return "unknown"
	}
}

// MaxFeatureVertices bounds the size of a polygonal feature. Larger faces are reported through their
// first MaxFeatureVertices vertices, which still span a convex subset of the face.
const MaxFeatureVertices = 16

// PolygonalFeature is a vertex (one point), an edge (two points) or a convex face (three or more points in
// counter-clockwise order around Normal). Edge i joins vertex i and vertex (i+1) mod NumVertices.
type PolygonalFeature struct {
	Vertices    [MaxFeatureVertices]r3.Vector
	VertexIDs   [MaxFeatureVertices]FeatureID
	EdgeIDs     [MaxFeatureVertices]FeatureID
	FaceID      FeatureID
	Normal      r3.Vector
	NumVertices int
}

// Transform moves the feature by pose.
func (f *PolygonalFeature) Transform(pose spatialmath.Pose) {
	for i := 0; i < f.NumVertices; i++ {
		f.Vertices[i] = spatialmath.TransformPoint(pose, f.Vertices[i])
	}
	f.Normal = spatialmath.RotateVector(pose, f.Normal)
}

func (f *PolygonalFeature) push(p r3.Vector, id FeatureID) {
	if f.NumVertices >= MaxFeatureVertices {
		return
	}
	f.Vertices[f.NumVertices] = p
	f.VertexIDs[f.NumVertices] = id
	f.NumVertices++
}

// vertexFeature returns a single-vertex feature.
func vertexFeature(p r3.Vector, id FeatureID, normal r3.Vector) PolygonalFeature {
	var f PolygonalFeature
	f.push(p, id)
	f.Normal = normal
	return f
}

// edgeFeature returns a two-vertex feature.
func edgeFeature(a, b r3.Vector, idA, idB, edge FeatureID, normal r3.Vector) PolygonalFeature {
	var f PolygonalFeature
	f.push(a, idA)
	f.push(b, idB)
	f.EdgeIDs[0] = edge
	f.EdgeIDs[1] = edge
	f.Normal = normal
	return f
}

const (
	// an edge is reported instead of a vertex when |cos| between it and the direction is below this
	featureAlignment = 1e-2
	// a triangle reports its face when |cos| between its normal and the direction is at least this
	faceAlignment = 0.7
)

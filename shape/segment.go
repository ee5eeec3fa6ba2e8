package shape

import (
	"encoding/json"
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/collide/spatialmath"
	"go.viam.com/collide/utils"
)

// Segment is a line segment between two local points.
type Segment struct {
	a, b r3.Vector
}

// NewSegment instantiates a new Segment. Zero length segments are rejected.
func NewSegment(a, b r3.Vector) (*Segment, error) {
	if !spatialmath.R3VectorIsFinite(a) || !spatialmath.R3VectorIsFinite(b) {
		return nil, spatialmath.NewBadGeometryDimensionsError("segment")
	}
	if a.Sub(b).Norm2() <= utils.Epsilon*utils.Epsilon*math.Max(1, math.Max(a.Norm2(), b.Norm2())) {
		return nil, spatialmath.NewConfigurationError("segment", "endpoints %v and %v coincide", a, b)
	}
	return &Segment{a: a, b: b}, nil
}

// Endpoints returns the two endpoints.
func (s *Segment) Endpoints() (r3.Vector, r3.Vector) {
	return s.a, s.b
}

// Kind returns KindSegment.
func (s *Segment) Kind() Kind { return KindSegment }

// IsConvex returns true.
func (s *Segment) IsConvex() bool { return true }

// MarshalJSON serializes the segment as a ShapeConfig.
func (s *Segment) MarshalJSON() ([]byte, error) {
	config, err := NewShapeConfig(s)
	if err != nil {
		return nil, err
	}
	return json.Marshal(config)
}

// LocalAABB returns the box spanned by the endpoints.
func (s *Segment) LocalAABB() spatialmath.AABB {
	return spatialmath.NewAABB(s.a, s.b)
}

// LocalBoundingSphere returns the sphere with the segment as diameter.
func (s *Segment) LocalBoundingSphere() spatialmath.BoundingSphere {
	return spatialmath.BoundingSphere{Center: s.a.Add(s.b).Mul(0.5), Radius: s.a.Distance(s.b) / 2}
}

// AABB returns the exact world box of the segment.
func (s *Segment) AABB(pose spatialmath.Pose) spatialmath.AABB {
	return spatialmath.NewAABB(spatialmath.TransformPoint(pose, s.a), spatialmath.TransformPoint(pose, s.b))
}

// LocalSupportPoint returns the endpoint farthest along dir, a on ties.
func (s *Segment) LocalSupportPoint(dir r3.Vector) r3.Vector {
	if s.b.Dot(dir) > s.a.Dot(dir) {
		return s.b
	}
	return s.a
}

// LocalSupportFeature returns the whole segment when it is nearly orthogonal to dir and the support
// vertex otherwise.
func (s *Segment) LocalSupportFeature(dir r3.Vector) PolygonalFeature {
	ab := s.b.Sub(s.a)
	normal, _, _ := spatialmath.SafeNormalize(dir, 0)
	if math.Abs(ab.Dot(dir)) <= featureAlignment*ab.Norm()*dir.Norm() {
		return edgeFeature(s.a, s.b, VertexID(0), VertexID(1), EdgeID(0), normal)
	}
	if s.b.Dot(dir) > s.a.Dot(dir) {
		return vertexFeature(s.b, VertexID(1), normal)
	}
	return vertexFeature(s.a, VertexID(0), normal)
}

// CastLocalRay casts the ray with the GJK ray cast.
func (s *Segment) CastLocalRay(ray spatialmath.Ray, maxTOI float64, solid bool) (RayIntersection, bool) {
	hit, ok := castSupportMap(s, ray, maxTOI, solid)
	if ok {
		hit.Feature = EdgeID(0)
	}
	return hit, ok
}

package shape

import (
	"encoding/json"
	"fmt"

	"github.com/golang/geo/r3"

	"go.viam.com/collide/spatialmath"
)

// HalfSpaceExtent is the half size of the box used to bound a half space. Half spaces are unbounded; the
// box only has to dwarf every other shape in a scene.
const HalfSpaceExtent = 1e10

// HalfSpace is the set of points p with Normal·p <= 0: the plane through the local origin and everything
// behind it. It has no support map, so only specialized algorithms handle it.
type HalfSpace struct {
	normal r3.Vector
}

// NewHalfSpace instantiates a new HalfSpace. The normal is normalized; a zero normal is rejected.
func NewHalfSpace(normal r3.Vector) (*HalfSpace, error) {
	unit, _, ok := spatialmath.SafeNormalize(normal, 0)
	if !ok {
		return nil, spatialmath.NewConfigurationError("halfspace", "normal %v must be non zero and finite", normal)
	}
	return &HalfSpace{normal: unit}, nil
}

// Normal returns the unit outward normal.
func (h *HalfSpace) Normal() r3.Vector { return h.normal }

// Kind returns KindHalfSpace.
func (h *HalfSpace) Kind() Kind { return KindHalfSpace }

// IsConvex returns true.
func (h *HalfSpace) IsConvex() bool { return true }

func (h *HalfSpace) String() string {
	return fmt.Sprintf("Type: HalfSpace | Normal: (%.3f, %.3f, %.3f)", h.normal.X, h.normal.Y, h.normal.Z)
}

// MarshalJSON serializes the half space as a ShapeConfig.
func (h *HalfSpace) MarshalJSON() ([]byte, error) {
	config, err := NewShapeConfig(h)
	if err != nil {
		return nil, err
	}
	return json.Marshal(config)
}

// LocalAABB returns a box of HalfSpaceExtent around the origin.
func (h *HalfSpace) LocalAABB() spatialmath.AABB {
	return spatialmath.NewAABBFromHalfExtents(r3.Vector{}, r3.Vector{X: HalfSpaceExtent, Y: HalfSpaceExtent, Z: HalfSpaceExtent})
}

// LocalBoundingSphere returns a sphere of radius HalfSpaceExtent.
func (h *HalfSpace) LocalBoundingSphere() spatialmath.BoundingSphere {
	return spatialmath.BoundingSphere{Radius: HalfSpaceExtent}
}

// AABB returns a box of HalfSpaceExtent around the pose origin.
func (h *HalfSpace) AABB(pose spatialmath.Pose) spatialmath.AABB {
	return h.LocalAABB().Translated(pose.Point())
}

// SignedDistance returns the distance of a local point above the boundary plane, negative inside.
func (h *HalfSpace) SignedDistance(p r3.Vector) float64 {
	return h.normal.Dot(p)
}

// CastLocalRay intersects the ray with the boundary plane.
func (h *HalfSpace) CastLocalRay(ray spatialmath.Ray, maxTOI float64, solid bool) (RayIntersection, bool) {
	if !ray.IsFinite() {
		return RayIntersection{}, false
	}
	dist := h.normal.Dot(ray.Origin)
	speed := h.normal.Dot(ray.Dir)
	if dist <= 0 {
		if solid {
			return RayIntersection{TOI: 0, Feature: FaceID(0)}, true
		}
		if speed <= 0 {
			return RayIntersection{}, false
		}
		t := -dist / speed
		if t > maxTOI {
			return RayIntersection{}, false
		}
		return RayIntersection{TOI: t, Normal: h.normal, Feature: FaceID(0)}, true
	}
	if speed >= 0 {
		return RayIntersection{}, false
	}
	t := -dist / speed
	if t > maxTOI {
		return RayIntersection{}, false
	}
	return RayIntersection{TOI: t, Normal: h.normal, Feature: FaceID(0)}, true
}

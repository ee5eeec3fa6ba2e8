// Package shape defines the geometric primitives the collision engine queries and their capabilities:
// support mapping, bounding volumes, ray casting and polygonal features. Shapes are immutable and carry
// no pose; poses are supplied with every query.
package shape

import (
	"fmt"

	"github.com/golang/geo/r3"

	"go.viam.com/collide/bvh"
	"go.viam.com/collide/collision/gjk"
	"go.viam.com/collide/spatialmath"
	"go.viam.com/collide/utils"
)

// Kind tags the variant of a shape. The dispatch table is keyed by pairs of kinds.
type Kind uint16

// Built-in kinds. Values from KindCustom upward are free for shapes defined outside this package.
const (
	KindBall Kind = iota
	KindCuboid
	KindCapsule
	KindSegment
	KindTriangle
	KindConvexPolyhedron
	KindCompound
	KindHeightField
	KindTriMesh
	KindHalfSpace
	KindCylinder
	KindCone
	KindCustom
)

var kindNames = map[Kind]string{
	KindBall:             "ball",
	KindCuboid:           "cuboid",
	KindCapsule:          "capsule",
	KindSegment:          "segment",
	KindTriangle:         "triangle",
	KindConvexPolyhedron: "convex_polyhedron",
	KindCompound:         "compound",
	KindHeightField:      "heightfield",
	KindTriMesh:          "trimesh",
	KindHalfSpace:        "halfspace",
	KindCylinder:         "cylinder",
	KindCone:             "cone",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("custom(%d)", uint16(k))
}

// Shape is implemented by every geometric variant.
type Shape interface {
	Kind() Kind
	// LocalAABB bounds the shape in its own frame.
	LocalAABB() spatialmath.AABB
	LocalBoundingSphere() spatialmath.BoundingSphere
	// AABB bounds the shape placed at pose.
	AABB(pose spatialmath.Pose) spatialmath.AABB
	IsConvex() bool
}

// SupportMap is a convex shape described by its support function. Ties between equally far points are
// broken by a fixed rule: the lowest vertex index wins, and sign based supports pick the positive side
// on a zero component.
type SupportMap interface {
	Shape
	gjk.SupportMap
}

// RayIntersection is a ray hit in the frame the ray was expressed in.
type RayIntersection struct {
	TOI     float64
	Normal  r3.Vector
	Feature FeatureID
}

// RayCaster is a shape with a ray intersection routine.
type RayCaster interface {
	CastLocalRay(ray spatialmath.Ray, maxTOI float64, solid bool) (RayIntersection, bool)
}

// PolygonalFeatureMap is a support-mapped shape that can also return the face, edge or vertex most
// aligned with a direction. It is what the contact manifold clipping consumes.
type PolygonalFeatureMap interface {
	SupportMap
	LocalSupportFeature(dir r3.Vector) PolygonalFeature
}

// Composite is a shape made of parts, each with a pose relative to the composite and indexed by a static BVH.
type Composite interface {
	Shape
	NumParts() int
	Part(i int) (spatialmath.Pose, Shape)
	// Tree returns a BVH whose leaf payloads are part indices.
	Tree() *bvh.Tree
}

// CastRay casts a world space ray against s placed at pose. The normal of the result is in world space.
func CastRay(s Shape, pose spatialmath.Pose, ray spatialmath.Ray, maxTOI float64, solid bool) (RayIntersection, bool) {
	rc, ok := s.(RayCaster)
	if !ok {
		return RayIntersection{}, false
	}
	hit, ok := rc.CastLocalRay(ray.InverseTransform(pose), maxTOI, solid)
	if !ok {
		return RayIntersection{}, false
	}
	hit.Normal = spatialmath.RotateVector(pose, hit.Normal)
	return hit, true
}

// supportAABB computes the exact world box of a support map from six support queries.
func supportAABB(pose spatialmath.Pose, s gjk.SupportMap) spatialmath.AABB {
	var box spatialmath.AABB
	for i := 0; i < 3; i++ {
		for _, sign := range [2]float64{1, -1} {
			axis := spatialmath.Axis(i, sign)
			local := spatialmath.InverseRotateVector(pose, axis)
			p := spatialmath.TransformPoint(pose, s.LocalSupportPoint(local))
			if sign > 0 {
				box.Max = spatialmath.WithComponent(box.Max, i, spatialmath.Component(p, i))
			} else {
				box.Min = spatialmath.WithComponent(box.Min, i, spatialmath.Component(p, i))
			}
		}
	}
	return box
}

// castSupportMap casts a ray against a support map with the GJK ray cast.
func castSupportMap(s gjk.SupportMap, ray spatialmath.Ray, maxTOI float64, solid bool) (RayIntersection, bool) {
	toi, normal, ok := gjk.CastLocalRay(s, ray, maxTOI, solid, gjk.DefaultConfig())
	if !ok {
		return RayIntersection{}, false
	}
	return RayIntersection{TOI: toi, Normal: normal, Feature: UnknownFeature}, true
}

// SupportPointToward returns the world support point of s placed at pose in the world direction dir.
func SupportPointToward(s SupportMap, pose spatialmath.Pose, dir r3.Vector) r3.Vector {
	return spatialmath.TransformPoint(pose, s.LocalSupportPoint(spatialmath.InverseRotateVector(pose, dir)))
}

func checkPositive(subject string, values ...float64) error {
	for _, v := range values {
		if !(v > 0) || !utils.IsFinite(v) {
			return spatialmath.NewBadGeometryDimensionsError(subject)
		}
	}
	return nil
}

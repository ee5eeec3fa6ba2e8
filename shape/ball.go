package shape

import (
	"encoding/json"
	"fmt"

	"github.com/golang/geo/r3"

	"go.viam.com/collide/spatialmath"
	"go.viam.com/collide/utils"
)

// Ball is a sphere centered on its local origin.
type Ball struct {
	radius float64
}

// NewBall instantiates a new Ball.
func NewBall(radius float64) (*Ball, error) {
	if err := checkPositive("ball", radius); err != nil {
		return nil, err
	}
	return &Ball{radius: radius}, nil
}

// Radius returns the radius of the ball.
func (b *Ball) Radius() float64 {
	return b.radius
}

// Kind returns KindBall.
func (b *Ball) Kind() Kind { return KindBall }

// IsConvex returns true.
func (b *Ball) IsConvex() bool { return true }

// String returns a human readable string that represents the ball.
func (b *Ball) String() string {
	return fmt.Sprintf("Type: Ball | Radius: %.3f", b.radius)
}

// MarshalJSON serializes the ball as a ShapeConfig.
func (b *Ball) MarshalJSON() ([]byte, error) {
	config, err := NewShapeConfig(b)
	if err != nil {
		return nil, err
	}
	return json.Marshal(config)
}

// LocalAABB returns the cube enclosing the ball.
func (b *Ball) LocalAABB() spatialmath.AABB {
	return spatialmath.NewAABBFromHalfExtents(r3.Vector{}, r3.Vector{X: b.radius, Y: b.radius, Z: b.radius})
}

// LocalBoundingSphere returns the ball itself.
func (b *Ball) LocalBoundingSphere() spatialmath.BoundingSphere {
	return spatialmath.BoundingSphere{Radius: b.radius}
}

// AABB returns the exact world box of the ball.
func (b *Ball) AABB(pose spatialmath.Pose) spatialmath.AABB {
	return spatialmath.NewAABBFromHalfExtents(pose.Point(), r3.Vector{X: b.radius, Y: b.radius, Z: b.radius})
}

// LocalSupportPoint returns the point of the sphere along dir. A zero direction selects +X.
func (b *Ball) LocalSupportPoint(dir r3.Vector) r3.Vector {
	n := dir.Norm()
	if n == 0 {
		return r3.Vector{X: b.radius}
	}
	return dir.Mul(b.radius / n)
}

// CastLocalRay intersects the ray with the sphere analytically.
func (b *Ball) CastLocalRay(ray spatialmath.Ray, maxTOI float64, solid bool) (RayIntersection, bool) {
	a := ray.Dir.Norm2()
	if a == 0 || !ray.IsFinite() {
		return RayIntersection{}, false
	}
	half := ray.Origin.Dot(ray.Dir)
	c := ray.Origin.Norm2() - b.radius*b.radius
	if c > 0 && half > 0 {
		return RayIntersection{}, false
	}
	disc := half*half - a*c
	if disc < 0 {
		return RayIntersection{}, false
	}
	var toi float64
	if c <= 0 {
		if solid {
			return RayIntersection{TOI: 0, Feature: FaceID(0)}, true
		}
		toi = (-half + utils.Sqrt(disc)) / a
	} else {
		toi = (-half - utils.Sqrt(disc)) / a
	}
	if toi > maxTOI {
		return RayIntersection{}, false
	}
	normal := ray.PointAt(toi).Mul(1 / b.radius)
	return RayIntersection{TOI: toi, Normal: normal.Normalize(), Feature: FaceID(0)}, true
}

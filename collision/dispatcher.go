package collision

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/collide/collision/manifold"
	"go.viam.com/collide/collision/toi"
	"go.viam.com/collide/logging"
	"go.viam.com/collide/shape"
	"go.viam.com/collide/spatialmath"
)

// Dispatcher answers world space queries between posed shapes by looking up the algorithm of each pair
// in its registry. It is safe for concurrent use.
type Dispatcher struct {
	registry *Registry
	opts     Options
	logger   logging.Logger
}

// NewDispatcher returns a dispatcher over registry. A nil registry means DefaultRegistry.
func NewDispatcher(registry *Registry, opts Options, logger logging.Logger) (*Dispatcher, error) {
	if err := opts.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid collision options")
	}
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Dispatcher{registry: registry, opts: opts, logger: logger}, nil
}

// Registry returns the registry the dispatcher looks algorithms up in.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Options returns the options passed to every algorithm.
func (d *Dispatcher) Options() Options {
	return d.opts
}

func (d *Dispatcher) prepare(pose1 spatialmath.Pose, s1 shape.Shape, pose2 spatialmath.Pose, s2 shape.Shape) (
	Algorithm, spatialmath.Pose, error,
) {
	if !spatialmath.PoseIsFinite(pose1) || !spatialmath.PoseIsFinite(pose2) {
		return nil, nil, spatialmath.NewNonFinitePoseError()
	}
	alg, err := d.registry.Lookup(s1.Kind(), s2.Kind())
	if err != nil {
		return nil, nil, err
	}
	return alg, spatialmath.PoseBetween(pose1, pose2), nil
}

// Distance returns the distance between the shapes, 0 when they overlap.
func (d *Dispatcher) Distance(pose1 spatialmath.Pose, s1 shape.Shape, pose2 spatialmath.Pose, s2 shape.Shape) (float64, error) {
	alg, pos12, err := d.prepare(pose1, s1, pose2, s2)
	if err != nil {
		return 0, err
	}
	return alg.Distance(pos12, s1, s2, &d.opts)
}

// Intersects reports whether the shapes overlap or touch.
func (d *Dispatcher) Intersects(pose1 spatialmath.Pose, s1 shape.Shape, pose2 spatialmath.Pose, s2 shape.Shape) (bool, error) {
	alg, pos12, err := d.prepare(pose1, s1, pose2, s2)
	if err != nil {
		return false, err
	}
	return alg.Intersects(pos12, s1, s2, &d.opts)
}

// Contact returns the world contact of the shapes if they are closer than prediction.
func (d *Dispatcher) Contact(
	pose1 spatialmath.Pose, s1 shape.Shape,
	pose2 spatialmath.Pose, s2 shape.Shape,
	prediction float64,
) (WorldContact, bool, error) {
	alg, pos12, err := d.prepare(pose1, s1, pose2, s2)
	if err != nil {
		return WorldContact{}, false, err
	}
	c, ok, err := alg.Contact(pos12, s1, s2, prediction, &d.opts)
	if err != nil || !ok {
		return WorldContact{}, false, err
	}
	if c.Degenerate {
		d.logger.Debugw("degenerate contact", "shape1", s1.Kind(), "shape2", s2.Kind(), "distance", c.Distance)
	}
	return c.World(pose1, pose2), true, nil
}

// ClosestPoints returns the closest points of the shapes in the world frame when they are separated by
// at most maxDist.
func (d *Dispatcher) ClosestPoints(
	pose1 spatialmath.Pose, s1 shape.Shape,
	pose2 spatialmath.Pose, s2 shape.Shape,
	maxDist float64,
) (ClosestPoints, error) {
	alg, pos12, err := d.prepare(pose1, s1, pose2, s2)
	if err != nil {
		return ClosestPoints{}, err
	}
	res, err := alg.ClosestPoints(pos12, s1, s2, maxDist, &d.opts)
	if err != nil {
		return ClosestPoints{}, err
	}
	if res.Status == WithinMargin {
		res.Point1 = spatialmath.TransformPoint(pose1, res.Point1)
		res.Point2 = spatialmath.TransformPoint(pose2, res.Point2)
	}
	return res, nil
}

// ContactManifolds returns the manifolds of the shapes. Manifold points and normals stay in the local
// frames of the shapes so that callers can match them across queries.
func (d *Dispatcher) ContactManifolds(
	pose1 spatialmath.Pose, s1 shape.Shape,
	pose2 spatialmath.Pose, s2 shape.Shape,
	prediction float64,
) ([]manifold.Manifold, error) {
	alg, pos12, err := d.prepare(pose1, s1, pose2, s2)
	if err != nil {
		return nil, err
	}
	return alg.ContactManifolds(pos12, s1, s2, prediction, &d.opts, nil)
}

// TimeOfImpact returns the first time in [0, Options.TOI.MaxTOI] at which the shapes, translating at
// the world velocities vel1 and vel2, touch.
func (d *Dispatcher) TimeOfImpact(
	pose1 spatialmath.Pose, vel1 r3.Vector, s1 shape.Shape,
	pose2 spatialmath.Pose, vel2 r3.Vector, s2 shape.Shape,
) (toi.Result, error) {
	if !spatialmath.R3VectorIsFinite(vel1) || !spatialmath.R3VectorIsFinite(vel2) {
		return toi.Result{}, spatialmath.NewConfigurationError("velocity", "velocities must be finite")
	}
	alg, pos12, err := d.prepare(pose1, s1, pose2, s2)
	if err != nil {
		return toi.Result{}, err
	}
	vel12 := spatialmath.InverseRotateVector(pose1, vel2.Sub(vel1))
	res, err := alg.TimeOfImpact(pos12, vel12, s1, s2, &d.opts)
	if err != nil {
		return toi.Result{}, err
	}
	d.logResult(res, s1, s2)
	return res, nil
}

// NonlinearTimeOfImpact returns the first time at which the shapes following the rigid motions m1 and m2
// touch, rotations included.
func (d *Dispatcher) NonlinearTimeOfImpact(m1 toi.Motion, s1 shape.Shape, m2 toi.Motion, s2 shape.Shape) (toi.Result, error) {
	alg, _, err := d.prepare(m1.Start, s1, m2.Start, s2)
	if err != nil {
		return toi.Result{}, err
	}
	res, err := toi.ConservativeAdvancement(
		contactDistanceFunc(alg.Contact, s1, s2, &d.opts),
		m1, m2,
		rotationRadius(s1, m1.LocalCenter), rotationRadius(s2, m2.LocalCenter),
		d.opts.TOI,
	)
	if err != nil {
		return toi.Result{}, err
	}
	d.logResult(res, s1, s2)
	return res, nil
}

func (d *Dispatcher) logResult(res toi.Result, s1, s2 shape.Shape) {
	if res.Status == toi.Indeterminate {
		d.logger.Debugw("time of impact hit the iteration cap", "shape1", s1.Kind(), "shape2", s2.Kind(), "time", res.Time)
	}
}

// rotationRadius bounds the distance of any point of s from center.
func rotationRadius(s shape.Shape, center r3.Vector) float64 {
	sphere := s.LocalBoundingSphere()
	return sphere.Center.Sub(center).Norm() + sphere.Radius
}

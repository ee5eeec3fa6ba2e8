package collision

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/collide/collision/manifold"
	"go.viam.com/collide/collision/toi"
	"go.viam.com/collide/shape"
	"go.viam.com/collide/spatialmath"
)

// compositeAlgorithm answers queries from a composite shape by walking its part tree and dispatching
// each part against the other shape through the registry.
type compositeAlgorithm struct {
	registry *Registry
}

// partQuery is one part of a composite placed against the other shape.
type partQuery struct {
	index int
	// partPose is the pose of the part in the composite frame
	partPose spatialmath.Pose
	part     shape.Shape
	// pos12 is the pose of the other shape in the part frame
	pos12 spatialmath.Pose
	alg   Algorithm
}

func compositeOf(g shape.Shape) (shape.Composite, error) {
	c, ok := g.(shape.Composite)
	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedQuery, "expected a composite shape, got %v", g.Kind())
	}
	return c, nil
}

func (a compositeAlgorithm) part(c shape.Composite, leaf int, pos12 spatialmath.Pose, g2 shape.Shape) (partQuery, error) {
	index := c.Tree().Data(leaf)
	partPose, part := c.Part(index)
	alg, err := a.registry.Lookup(part.Kind(), g2.Kind())
	if err != nil {
		return partQuery{}, err
	}
	return partQuery{
		index:    index,
		partPose: partPose,
		part:     part,
		pos12:    spatialmath.Compose(spatialmath.PoseInverse(partPose), pos12),
		alg:      alg,
	}, nil
}

// aabbDistance is the distance between two boxes, 0 when they overlap.
func aabbDistance(a, b spatialmath.AABB) float64 {
	gap := spatialmath.MaxVector(
		spatialmath.MaxVector(a.Min.Sub(b.Max), b.Min.Sub(a.Max)),
		r3.Vector{},
	)
	return gap.Norm()
}

// minDistance walks the part tree best first with box distances as bounds. eval receives the distance to
// beat and returns the distance of a part, or stop when no other part can improve on it.
func (a compositeAlgorithm) minDistance(
	pos12 spatialmath.Pose,
	g1, g2 shape.Shape,
	maxDist float64,
	eval func(q partQuery, bound float64) (dist float64, stop bool, err error),
) error {
	c, err := compositeOf(g1)
	if err != nil {
		return err
	}
	tree := c.Tree()
	box2 := g2.AABB(pos12)
	var firstErr error
	tree.TraverseBestFirst(
		math.Nextafter(maxDist, math.Inf(1)),
		func(id int) (float64, bool) {
			return aabbDistance(tree.NodeAABB(id), box2), true
		},
		func(id int, best float64) (float64, bool) {
			q, err := a.part(c, id, pos12, g2)
			if err != nil {
				firstErr = err
				return best, true
			}
			dist, stop, err := eval(q, best)
			if err != nil {
				firstErr = err
				return best, true
			}
			// boxes of overlapping parts have a zero bound, keep visiting them
			return math.Min(best, math.Nextafter(math.Max(dist, 0), math.Inf(1))), stop
		},
	)
	return firstErr
}

func (a compositeAlgorithm) Distance(pos12 spatialmath.Pose, g1, g2 shape.Shape, opts *Options) (float64, error) {
	best := math.Inf(1)
	err := a.minDistance(pos12, g1, g2, math.Inf(1), func(q partQuery, _ float64) (float64, bool, error) {
		d, err := q.alg.Distance(q.pos12, q.part, g2, opts)
		if err != nil {
			return 0, true, err
		}
		best = math.Min(best, d)
		return d, d == 0, nil
	})
	return best, err
}

func (a compositeAlgorithm) Intersects(pos12 spatialmath.Pose, g1, g2 shape.Shape, opts *Options) (bool, error) {
	c, err := compositeOf(g1)
	if err != nil {
		return false, err
	}
	tree := c.Tree()
	found := false
	var firstErr error
	tree.Query(g2.AABB(pos12), func(id int) bool {
		q, err := a.part(c, id, pos12, g2)
		if err == nil {
			found, err = q.alg.Intersects(q.pos12, q.part, g2, opts)
		}
		if err != nil {
			firstErr = err
			return false
		}
		return !found
	})
	return found, firstErr
}

// Contact returns the contact of the part closest to, or deepest into, the other shape.
func (a compositeAlgorithm) Contact(pos12 spatialmath.Pose, g1, g2 shape.Shape, prediction float64, opts *Options) (Contact, bool, error) {
	var best Contact
	found := false
	err := a.minDistance(pos12, g1, g2, prediction, func(q partQuery, bound float64) (float64, bool, error) {
		c, ok, err := q.alg.Contact(q.pos12, q.part, g2, math.Min(prediction, bound), opts)
		if err != nil || !ok {
			return math.Inf(1), false, err
		}
		if !found || c.Distance < best.Distance {
			best = partContact(q, c)
			found = true
		}
		return c.Distance, false, nil
	})
	return best, found, err
}

// partContact moves a contact of a part into the composite frame.
func partContact(q partQuery, c Contact) Contact {
	c.Point1 = spatialmath.TransformPoint(q.partPose, c.Point1)
	c.Normal1 = spatialmath.RotateVector(q.partPose, c.Normal1)
	return c
}

func (a compositeAlgorithm) ClosestPoints(pos12 spatialmath.Pose, g1, g2 shape.Shape, maxDist float64, opts *Options) (ClosestPoints, error) {
	best := ClosestPoints{Status: Disjoint}
	err := a.minDistance(pos12, g1, g2, maxDist, func(q partQuery, bound float64) (float64, bool, error) {
		res, err := q.alg.ClosestPoints(q.pos12, q.part, g2, math.Min(maxDist, bound), opts)
		if err != nil {
			return 0, true, err
		}
		switch res.Status {
		case Intersecting:
			best = res
			return 0, true, nil
		case WithinMargin:
			if best.Status == Disjoint || res.Distance < best.Distance {
				res.Point1 = spatialmath.TransformPoint(q.partPose, res.Point1)
				best = res
			}
			return res.Distance, false, nil
		}
		return math.Inf(1), false, nil
	})
	return best, err
}

// ContactManifolds returns one manifold per touching part. SubshapeIndex1 is the part index.
func (a compositeAlgorithm) ContactManifolds(
	pos12 spatialmath.Pose,
	g1, g2 shape.Shape,
	prediction float64,
	opts *Options,
	out []manifold.Manifold,
) ([]manifold.Manifold, error) {
	c, err := compositeOf(g1)
	if err != nil {
		return out, err
	}
	var firstErr error
	c.Tree().Query(g2.AABB(pos12).Loosened(prediction), func(id int) bool {
		q, err := a.part(c, id, pos12, g2)
		if err != nil {
			firstErr = err
			return false
		}
		start := len(out)
		out, err = q.alg.ContactManifolds(q.pos12, q.part, g2, prediction, opts, out)
		if err != nil {
			firstErr = err
			return false
		}
		for i := start; i < len(out); i++ {
			m := &out[i]
			m.Normal1 = spatialmath.RotateVector(q.partPose, m.Normal1)
			for k := 0; k < m.NumPoints; k++ {
				m.Points[k].LocalPoint1 = spatialmath.TransformPoint(q.partPose, m.Points[k].LocalPoint1)
			}
			m.SubshapeIndex1 = q.index
		}
		return true
	})
	return out, firstErr
}

// TimeOfImpact visits parts in the order their boxes are hit by the box of the moving shape: the part
// box grown by the moving box, and shifted to its center, is cast against a ray from the origin along
// vel12.
func (a compositeAlgorithm) TimeOfImpact(
	pos12 spatialmath.Pose,
	vel12 r3.Vector,
	g1, g2 shape.Shape,
	opts *Options,
) (toi.Result, error) {
	c, err := compositeOf(g1)
	if err != nil {
		return toi.Result{}, err
	}
	tree := c.Tree()
	box2 := g2.AABB(pos12)
	ray := spatialmath.NewRay(r3.Vector{}, vel12)
	maxTOI := opts.TOI.MaxTOI

	best := toi.Result{Status: toi.NoHit}
	var firstErr error
	tree.TraverseBestFirst(
		math.Nextafter(maxTOI, math.Inf(1)),
		func(id int) (float64, bool) {
			node := tree.NodeAABB(id)
			swept := spatialmath.AABB{Min: node.Min.Sub(box2.Max), Max: node.Max.Sub(box2.Min)}
			t, _, ok := swept.CastLocalRay(ray, maxTOI, true)
			return t, ok
		},
		func(id int, bestTime float64) (float64, bool) {
			q, err := a.part(c, id, pos12, g2)
			if err != nil {
				firstErr = err
				return bestTime, true
			}
			vel := spatialmath.InverseRotateVector(q.partPose, vel12)
			res, err := q.alg.TimeOfImpact(q.pos12, vel, q.part, g2, opts)
			if err != nil {
				firstErr = err
				return bestTime, true
			}
			if res.Status == toi.NoHit || res.Time >= bestTime {
				return bestTime, false
			}
			res.Witness1 = spatialmath.TransformPoint(q.partPose, res.Witness1)
			res.Normal1 = spatialmath.RotateVector(q.partPose, res.Normal1)
			best = res
			return res.Time, res.Time == 0
		},
	)
	return best, firstErr
}

package collision

import (
	"sync"

	"go.viam.com/collide/shape"
)

type pairKey struct {
	kind1, kind2 shape.Kind
}

// Registry maps ordered pairs of shape kinds to algorithms. It is safe for concurrent use; consumers
// usually register their own pairs once at startup.
type Registry struct {
	mu         sync.RWMutex
	algorithms map[pairKey]Algorithm
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{algorithms: map[pairKey]Algorithm{}}
}

// Register sets the algorithm for the ordered pair (kind1, kind2), replacing any previous one. The
// swapped pair is answered by the same algorithm unless registered separately.
func (r *Registry) Register(kind1, kind2 shape.Kind, alg Algorithm) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.algorithms[pairKey{kind1, kind2}] = alg
}

// Unregister removes the algorithm of the ordered pair (kind1, kind2).
func (r *Registry) Unregister(kind1, kind2 shape.Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.algorithms, pairKey{kind1, kind2})
}

// Lookup returns the algorithm for (kind1, kind2). When only (kind2, kind1) is registered the result is
// an adapter that mirrors poses and swaps the roles of both shapes in every result.
func (r *Registry) Lookup(kind1, kind2 shape.Kind) (Algorithm, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if alg, ok := r.algorithms[pairKey{kind1, kind2}]; ok {
		return alg, nil
	}
	if alg, ok := r.algorithms[pairKey{kind2, kind1}]; ok {
		return swappedAlgorithm{inner: alg}, nil
	}
	return nil, NewUnsupportedShapePairError(kind1, kind2)
}

// Supports reports whether some algorithm answers (kind1, kind2) in either order.
func (r *Registry) Supports(kind1, kind2 shape.Kind) bool {
	_, err := r.Lookup(kind1, kind2)
	return err == nil
}

var (
	convexKinds = []shape.Kind{
		shape.KindBall,
		shape.KindCuboid,
		shape.KindCapsule,
		shape.KindSegment,
		shape.KindTriangle,
		shape.KindConvexPolyhedron,
		shape.KindCylinder,
		shape.KindCone,
	}
	compositeKinds = []shape.Kind{shape.KindCompound, shape.KindHeightField, shape.KindTriMesh}
)

// DefaultRegistry returns a registry holding the built-in algorithms:
//   - GJK and EPA between any two convex shapes,
//   - closed forms for ball-ball, ball-convex, cuboid-cuboid, capsule-capsule and ball-halfspace,
//   - support point queries between convex shapes and half-spaces,
//   - BVH traversal from compounds, heightfields and meshes to anything except their own kind
//     (compound-compound is supported) and half-space pairs.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for i, k1 := range convexKinds {
		for _, k2 := range convexKinds[i:] {
			r.Register(k1, k2, SupportMapAlgorithm{})
		}
		r.Register(k1, shape.KindHalfSpace, convexHalfSpaceAlgorithm{})
		if k1 != shape.KindBall {
			r.Register(shape.KindBall, k1, ballConvexAlgorithm{})
		}
	}
	r.Register(shape.KindBall, shape.KindBall, ballBallAlgorithm{})
	r.Register(shape.KindBall, shape.KindHalfSpace, ballHalfSpaceAlgorithm{})
	r.Register(shape.KindCuboid, shape.KindCuboid, cuboidCuboidAlgorithm{})
	r.Register(shape.KindCapsule, shape.KindCapsule, capsuleCapsuleAlgorithm{})

	composite := compositeAlgorithm{registry: r}
	others := append(append(append([]shape.Kind{}, convexKinds...), compositeKinds...), shape.KindHalfSpace)
	for _, k1 := range compositeKinds {
		for _, k2 := range others {
			if k1 == k2 && k1 != shape.KindCompound {
				continue
			}
			r.Register(k1, k2, composite)
		}
	}
	return r
}

package collision

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"go.viam.com/collide/broadphase"
	"go.viam.com/collide/collision/manifold"
	"go.viam.com/collide/logging"
)

// PairResult is the narrow phase outcome of one candidate pair.
type PairResult struct {
	Pair broadphase.CandidatePair
	// Contact is set when HasContact is; it is in the world frame.
	Contact    WorldContact
	HasContact bool
	// Manifolds are expressed in the local frames of the two proxies.
	Manifolds []manifold.Manifold
	// Reused is true when the result of the previous step was kept because neither proxy moved.
	Reused bool
}

type proxyPair [2]broadphase.ProxyID

// cachedResult is a pair result with the proxy versions it was computed from.
type cachedResult struct {
	result   PairResult
	versions [2]uint64
}

// Pipeline runs the narrow phase over the pairs reported by a broad phase.
type Pipeline struct {
	broadPhase *broadphase.BroadPhase
	dispatcher *Dispatcher
	logger     logging.Logger

	mu       sync.Mutex
	previous map[proxyPair]cachedResult
}

// NewPipeline returns a pipeline reading pairs from bp and answering them with d.
func NewPipeline(bp *broadphase.BroadPhase, d *Dispatcher, logger logging.Logger) *Pipeline {
	return &Pipeline{
		broadPhase: bp,
		dispatcher: d,
		logger:     logger,
		previous:   map[proxyPair]cachedResult{},
	}
}

// Step queries the broad phase and computes a contact and manifolds for every live pair, reusing the
// previous result of persisted pairs whose proxies were not updated since that result was computed.
// Other readers of the broad phase may query pairs between steps, so the proxy versions are checked
// here instead of trusting BoundsChanged. Ended pairs are reported without
// contact. Pairs whose shapes have no registered algorithm are left out. Results follow the pair order
// of the broad phase. Steps are serialized.
func (p *Pipeline) Step(ctx context.Context) ([]PairResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pairs := p.broadPhase.QueryPairs()
	results := make([]PairResult, len(pairs))
	versions := make([][2]uint64, len(pairs))
	keep := make([]bool, len(pairs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.dispatcher.opts.workers())
	for i, pair := range pairs {
		key := proxyPair{pair.A, pair.B}
		if pair.Status == broadphase.PairEnded {
			results[i] = PairResult{Pair: pair}
			keep[i] = true
			continue
		}
		if prev, ok := p.previous[key]; ok && pair.Status == broadphase.PairPersisted {
			if current, live := p.proxyVersions(pair); live && current == prev.versions {
				res := prev.result
				res.Pair = pair
				res.Reused = true
				results[i], versions[i], keep[i] = res, current, true
				continue
			}
		}
		i, pair := i, pair
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, vers, ok, err := p.narrowPhase(pair)
			if err != nil {
				return errors.Wrapf(err, "pair (%d, %d)", pair.A, pair.B)
			}
			results[i], versions[i], keep[i] = res, vers, ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]PairResult, 0, len(results))
	for i, res := range results {
		if !keep[i] {
			continue
		}
		key := proxyPair{res.Pair.A, res.Pair.B}
		if res.Pair.Status == broadphase.PairEnded {
			delete(p.previous, key)
		} else {
			p.previous[key] = cachedResult{result: res, versions: versions[i]}
		}
		out = append(out, res)
	}
	return out, nil
}

func (p *Pipeline) proxyVersions(pair broadphase.CandidatePair) ([2]uint64, bool) {
	proxy1, ok1 := p.broadPhase.Proxy(pair.A)
	proxy2, ok2 := p.broadPhase.Proxy(pair.B)
	return [2]uint64{proxy1.Version, proxy2.Version}, ok1 && ok2
}

// narrowPhase answers one pair and returns the proxy versions it read. It returns false for pairs that
// must be left out of the step.
func (p *Pipeline) narrowPhase(pair broadphase.CandidatePair) (PairResult, [2]uint64, bool, error) {
	proxy1, ok1 := p.broadPhase.Proxy(pair.A)
	proxy2, ok2 := p.broadPhase.Proxy(pair.B)
	if !ok1 || !ok2 {
		// removed since the query
		return PairResult{}, [2]uint64{}, false, nil
	}
	vers := [2]uint64{proxy1.Version, proxy2.Version}
	prediction := p.dispatcher.opts.Prediction
	res := PairResult{Pair: pair}

	c, ok, err := p.dispatcher.Contact(proxy1.Pose, proxy1.Shape, proxy2.Pose, proxy2.Shape, prediction)
	if IsUnsupportedShapePair(err) {
		p.logger.Debugw("skipping unsupported pair", "pair", pair, "shape1", proxy1.Shape.Kind(), "shape2", proxy2.Shape.Kind())
		return PairResult{}, vers, false, nil
	}
	if err != nil {
		return PairResult{}, vers, false, err
	}
	res.Contact, res.HasContact = c, ok
	if !ok {
		return res, vers, true, nil
	}
	res.Manifolds, err = p.dispatcher.ContactManifolds(proxy1.Pose, proxy1.Shape, proxy2.Pose, proxy2.Shape, prediction)
	if err != nil {
		return PairResult{}, vers, false, err
	}
	return res, vers, true, nil
}

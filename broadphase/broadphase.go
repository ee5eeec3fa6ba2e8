// Package broadphase keeps a dynamic bounding volume hierarchy over posed shapes and reports the pairs
// whose fattened boxes overlap.
package broadphase

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/collide/bvh"
	"go.viam.com/collide/logging"
	"go.viam.com/collide/shape"
	"go.viam.com/collide/spatialmath"
	"go.viam.com/collide/utils"
)

// ProxyID names a shape registered with a BroadPhase. Ids are never reused.
type ProxyID int

// Proxy is a shape registered with a BroadPhase.
type Proxy struct {
	ID    ProxyID
	Shape shape.Shape
	Pose  spatialmath.Pose
	// AABB is the tight box of the shape at Pose; FatAABB is the box stored in the tree.
	AABB    spatialmath.AABB
	FatAABB spatialmath.AABB
	// Version is bumped by every UpdateTransform.
	Version uint64
}

type proxy struct {
	Proxy
	leaf   int
	margin float64
}

// Entry is a shape and pose to insert.
type Entry struct {
	Shape shape.Shape
	Pose  spatialmath.Pose
}

// BroadPhase is a dynamic tree of proxies with a cache of the pairs found by the previous query. It
// supports one writer and many readers; QueryPairs callers serialize on the pair cache only.
type BroadPhase struct {
	cfg    Config
	logger logging.Logger

	mu      sync.RWMutex
	tree    *bvh.Tree
	proxies map[ProxyID]*proxy
	nextID  ProxyID

	cache *pairCache
}

// New returns an empty BroadPhase.
func New(cfg Config, logger logging.Logger) (*BroadPhase, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &BroadPhase{
		cfg:     cfg,
		logger:  logger,
		tree:    bvh.NewTree(64),
		proxies: map[ProxyID]*proxy{},
		cache:   newPairCache(),
	}, nil
}

func (bp *BroadPhase) fatten(s shape.Shape, tight spatialmath.AABB) (spatialmath.AABB, float64) {
	margin := bp.cfg.margin(s.LocalBoundingSphere().Radius)
	return tight.Loosened(margin), margin
}

func checkPose(pose spatialmath.Pose) error {
	if pose == nil {
		return spatialmath.NewConfigurationError("pose", "pose must not be nil")
	}
	if !spatialmath.PoseIsFinite(pose) {
		return spatialmath.NewNonFinitePoseError()
	}
	return nil
}

// insertLocked adds a proxy whose tight box is already known.
func (bp *BroadPhase) insertLocked(s shape.Shape, pose spatialmath.Pose, tight spatialmath.AABB) ProxyID {
	fat, margin := bp.fatten(s, tight)
	id := bp.nextID
	bp.nextID++
	p := &proxy{
		Proxy:  Proxy{ID: id, Shape: s, Pose: pose, AABB: tight, FatAABB: fat},
		margin: margin,
	}
	p.leaf = bp.tree.CreateProxy(fat, int(id))
	bp.proxies[id] = p
	return id
}

// Insert registers s at pose.
func (bp *BroadPhase) Insert(s shape.Shape, pose spatialmath.Pose) (ProxyID, error) {
	if s == nil {
		return 0, spatialmath.NewConfigurationError("shape", "shape must not be nil")
	}
	if err := checkPose(pose); err != nil {
		return 0, err
	}
	tight := s.AABB(pose)
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return bp.insertLocked(s, pose, tight), nil
}

// InsertBatch registers every entry and returns their ids in order. Boxes are computed in parallel;
// nothing is inserted if an entry is invalid.
func (bp *BroadPhase) InsertBatch(ctx context.Context, entries []Entry) ([]ProxyID, error) {
	for i, e := range entries {
		if e.Shape == nil {
			return nil, spatialmath.NewConfigurationError("shape", "entry %d has no shape", i)
		}
		if err := checkPose(e.Pose); err != nil {
			return nil, errors.Wrapf(err, "entry %d", i)
		}
	}
	boxes := make([]spatialmath.AABB, len(entries))
	if err := utils.GroupWorkParallel(
		ctx,
		len(entries),
		func(int) {},
		func(groupNum, groupSize, from, to int) (utils.MemberWorkFunc, utils.GroupWorkDoneFunc) {
			return func(memberNum, workNum int) {
				boxes[workNum] = entries[workNum].Shape.AABB(entries[workNum].Pose)
			}, nil
		},
	); err != nil {
		return nil, err
	}

	bp.mu.Lock()
	defer bp.mu.Unlock()
	ids := make([]ProxyID, len(entries))
	for i, e := range entries {
		ids[i] = bp.insertLocked(e.Shape, e.Pose, boxes[i])
	}
	return ids, nil
}

// Remove unregisters a proxy. Its cached pairs are reported as ended by the next QueryPairs.
func (bp *BroadPhase) Remove(id ProxyID) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	p, ok := bp.proxies[id]
	if !ok {
		return errors.Errorf("no proxy with id %d", id)
	}
	if err := bp.tree.DestroyProxy(p.leaf); err != nil {
		return err
	}
	delete(bp.proxies, id)
	return nil
}

// UpdateTransform moves a proxy to pose. The tree is only touched when the new tight box leaves the
// fat box; the proxy is then reinserted with a fresh margin. A non-finite pose is rejected and leaves
// the proxy unchanged.
func (bp *BroadPhase) UpdateTransform(id ProxyID, pose spatialmath.Pose) error {
	if err := checkPose(pose); err != nil {
		return err
	}
	bp.mu.Lock()
	defer bp.mu.Unlock()
	p, ok := bp.proxies[id]
	if !ok {
		return errors.Errorf("no proxy with id %d", id)
	}
	tight := p.Shape.AABB(pose)
	p.Pose = pose
	p.AABB = tight
	p.Version++
	if p.FatAABB.Contains(tight) {
		return nil
	}
	p.FatAABB, p.margin = bp.fatten(p.Shape, tight)
	return bp.tree.MoveProxy(p.leaf, p.FatAABB)
}

// Proxy returns a copy of a registered proxy.
func (bp *BroadPhase) Proxy(id ProxyID) (Proxy, bool) {
	bp.mu.RLock()
	defer bp.mu.RUnlock()
	p, ok := bp.proxies[id]
	if !ok {
		return Proxy{}, false
	}
	return p.Proxy, true
}

// Len returns the number of registered proxies.
func (bp *BroadPhase) Len() int {
	bp.mu.RLock()
	defer bp.mu.RUnlock()
	return len(bp.proxies)
}

// IsStale reports whether a pair refers to a proxy that has been removed.
func (bp *BroadPhase) IsStale(pair CandidatePair) bool {
	bp.mu.RLock()
	defer bp.mu.RUnlock()
	_, okA := bp.proxies[pair.A]
	_, okB := bp.proxies[pair.B]
	return !okA || !okB
}

// QueryPairs returns every pair of proxies whose fat boxes overlap, plus the pairs of the previous query
// that ended, sorted by ids.
func (bp *BroadPhase) QueryPairs() []CandidatePair {
	bp.mu.RLock()
	var overlaps []overlap
	bp.tree.QuerySelfPairs(func(leaf1, leaf2 int) bool {
		p1 := bp.proxies[ProxyID(bp.tree.Data(leaf1))]
		p2 := bp.proxies[ProxyID(bp.tree.Data(leaf2))]
		if p2.ID < p1.ID {
			p1, p2 = p2, p1
		}
		overlaps = append(overlaps, overlap{key: pairKey{p1.ID, p2.ID}, versionA: p1.Version, versionB: p2.Version})
		return true
	})
	bp.mu.RUnlock()

	pairs := bp.cache.update(overlaps)
	if bp.logger != nil {
		bp.logger.Debugw("queried pairs", "overlaps", len(overlaps), "reported", len(pairs))
	}
	return pairs
}

// QueryRegion returns the ids of the proxies whose fat boxes overlap aabb, sorted.
func (bp *BroadPhase) QueryRegion(aabb spatialmath.AABB) []ProxyID {
	bp.mu.RLock()
	defer bp.mu.RUnlock()
	var ids []ProxyID
	bp.tree.Query(aabb, func(leaf int) bool {
		ids = append(ids, ProxyID(bp.tree.Data(leaf)))
		return true
	})
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Validate checks the tree and that every proxy sits in the tree with a fat box holding its tight box.
func (bp *BroadPhase) Validate() error {
	bp.mu.RLock()
	defer bp.mu.RUnlock()
	err := bp.tree.Validate()
	if n := bp.tree.LeafCount(); n != len(bp.proxies) {
		err = multierr.Append(err, errors.Errorf("tree has %d leaves for %d proxies", n, len(bp.proxies)))
	}
	for id, p := range bp.proxies {
		if !p.FatAABB.Contains(p.AABB) {
			err = multierr.Append(err, errors.Errorf("proxy %d box %v left its fat box %v", id, p.AABB, p.FatAABB))
		}
		if got := bp.tree.FatAABB(p.leaf); got != p.FatAABB {
			err = multierr.Append(err, errors.Errorf("proxy %d is stored with box %v, expected %v", id, got, p.FatAABB))
		}
		if ProxyID(bp.tree.Data(p.leaf)) != id {
			err = multierr.Append(err, errors.Errorf("proxy %d leaf %d holds proxy %d", id, p.leaf, bp.tree.Data(p.leaf)))
		}
	}
	return err
}

// Tree returns the underlying tree. It must not be modified, and is only safe to read while no writer
// is running.
func (bp *BroadPhase) Tree() *bvh.Tree {
	return bp.tree
}

// CachedPairs returns the number of pairs remembered from the previous query.
func (bp *BroadPhase) CachedPairs() int {
	return bp.cache.len()
}

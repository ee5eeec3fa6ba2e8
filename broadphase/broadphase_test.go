package broadphase

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"sync"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/multierr"
	"go.viam.com/test"

	"go.viam.com/collide/logging"
	"go.viam.com/collide/shape"
	"go.viam.com/collide/spatialmath"
)

func newTestBroadPhase(t *testing.T) *BroadPhase {
	t.Helper()
	bp, err := New(DefaultConfig(), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	return bp
}

func randomEntries(t *testing.T, rnd *rand.Rand, n int, extent float64) []Entry {
	t.Helper()
	entries := make([]Entry, n)
	for i := range entries {
		box, err := shape.NewCuboid(r3.Vector{X: 0.1 + rnd.Float64(), Y: 0.1 + rnd.Float64(), Z: 0.1 + rnd.Float64()})
		test.That(t, err, test.ShouldBeNil)
		entries[i] = Entry{
			Shape: box,
			Pose: spatialmath.NewPose(
				r3.Vector{X: (rnd.Float64()*2 - 1) * extent, Y: (rnd.Float64()*2 - 1) * extent, Z: (rnd.Float64()*2 - 1) * extent},
				&spatialmath.R4AA{Theta: rnd.Float64() * math.Pi, RZ: 1},
			),
		}
	}
	return entries
}

// bruteForcePairs lists every overlapping pair of fat boxes.
func bruteForcePairs(t *testing.T, bp *BroadPhase, ids []ProxyID) []pairKey {
	t.Helper()
	var keys []pairKey
	for i := 0; i < len(ids); i++ {
		p1, ok := bp.Proxy(ids[i])
		test.That(t, ok, test.ShouldBeTrue)
		for j := i + 1; j < len(ids); j++ {
			p2, ok := bp.Proxy(ids[j])
			test.That(t, ok, test.ShouldBeTrue)
			if p1.FatAABB.Overlaps(p2.FatAABB) {
				keys = append(keys, newPairKey(p1.ID, p2.ID))
			}
		}
	}
	sortKeys(keys)
	return keys
}

func sortKeys(keys []pairKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].a != keys[j].a {
			return keys[i].a < keys[j].a
		}
		return keys[i].b < keys[j].b
	})
}

func liveKeys(pairs []CandidatePair) []pairKey {
	var keys []pairKey
	for _, p := range pairs {
		if p.Status != PairEnded {
			keys = append(keys, pairKey{p.A, p.B})
		}
	}
	return keys
}

func TestThousandBoxes(t *testing.T) {
	bp := newTestBroadPhase(t)
	rnd := rand.New(rand.NewSource(1))
	ids, err := bp.InsertBatch(context.Background(), randomEntries(t, rnd, 1000, 20))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ids, test.ShouldHaveLength, 1000)
	test.That(t, bp.Len(), test.ShouldEqual, 1000)
	test.That(t, bp.Validate(), test.ShouldBeNil)

	pairs := bp.QueryPairs()
	for _, p := range pairs {
		test.That(t, p.Status, test.ShouldEqual, PairNew)
		test.That(t, p.A, test.ShouldBeLessThan, p.B)
	}
	test.That(t, liveKeys(pairs), test.ShouldResemble, bruteForcePairs(t, bp, ids))

	// move every box a little and then a lot
	for round, step := range []float64{0.001, 5} {
		for _, id := range ids {
			p, _ := bp.Proxy(id)
			offset := r3.Vector{X: (rnd.Float64()*2 - 1) * step, Y: (rnd.Float64()*2 - 1) * step}
			pose := spatialmath.NewPose(p.Pose.Point().Add(offset), p.Pose.Orientation())
			test.That(t, bp.UpdateTransform(id, pose), test.ShouldBeNil)
		}
		test.That(t, bp.Validate(), test.ShouldBeNil)
		pairs := bp.QueryPairs()
		if diff := cmp.Diff(bruteForcePairs(t, bp, ids), liveKeys(pairs), cmp.AllowUnexported(pairKey{})); diff != "" {
			t.Fatalf("round %d pairs differ (-want +got):\n%s", round, diff)
		}
	}
}

func TestPairLifecycle(t *testing.T) {
	bp := newTestBroadPhase(t)
	ball, err := shape.NewBall(1)
	test.That(t, err, test.ShouldBeNil)
	a, err := bp.Insert(ball, spatialmath.NewPoseFromPoint(r3.Vector{}))
	test.That(t, err, test.ShouldBeNil)
	b, err := bp.Insert(ball, spatialmath.NewPoseFromPoint(r3.Vector{X: 1.5}))
	test.That(t, err, test.ShouldBeNil)
	c, err := bp.Insert(ball, spatialmath.NewPoseFromPoint(r3.Vector{X: 10}))
	test.That(t, err, test.ShouldBeNil)

	pairs := bp.QueryPairs()
	test.That(t, pairs, test.ShouldHaveLength, 1)
	test.That(t, pairs[0].A, test.ShouldEqual, a)
	test.That(t, pairs[0].B, test.ShouldEqual, b)
	test.That(t, pairs[0].Status, test.ShouldEqual, PairNew)
	test.That(t, pairs[0].BoundsChanged, test.ShouldBeTrue)
	firstGen := pairs[0].Generation

	t.Run("persisted without motion", func(t *testing.T) {
		pairs := bp.QueryPairs()
		test.That(t, pairs, test.ShouldHaveLength, 1)
		test.That(t, pairs[0].Status, test.ShouldEqual, PairPersisted)
		test.That(t, pairs[0].BoundsChanged, test.ShouldBeFalse)
		test.That(t, pairs[0].Generation, test.ShouldEqual, firstGen)
	})

	t.Run("persisted after a small move", func(t *testing.T) {
		test.That(t, bp.UpdateTransform(b, spatialmath.NewPoseFromPoint(r3.Vector{X: 1.501})), test.ShouldBeNil)
		pairs := bp.QueryPairs()
		test.That(t, pairs, test.ShouldHaveLength, 1)
		test.That(t, pairs[0].Status, test.ShouldEqual, PairPersisted)
		test.That(t, pairs[0].BoundsChanged, test.ShouldBeTrue)
	})

	t.Run("ended and new", func(t *testing.T) {
		test.That(t, bp.UpdateTransform(b, spatialmath.NewPoseFromPoint(r3.Vector{X: 9})), test.ShouldBeNil)
		pairs := bp.QueryPairs()
		test.That(t, pairs, test.ShouldHaveLength, 2)
		test.That(t, pairs[0], test.ShouldResemble, CandidatePair{A: a, B: b, Status: PairEnded, Generation: firstGen, BoundsChanged: true})
		test.That(t, pairs[1].A, test.ShouldEqual, b)
		test.That(t, pairs[1].B, test.ShouldEqual, c)
		test.That(t, pairs[1].Status, test.ShouldEqual, PairNew)

		pairs = bp.QueryPairs()
		test.That(t, pairs, test.ShouldHaveLength, 1)
		test.That(t, pairs[0].Status, test.ShouldEqual, PairPersisted)
		test.That(t, bp.CachedPairs(), test.ShouldEqual, 1)
	})

	t.Run("removal ends pairs", func(t *testing.T) {
		pair := bp.QueryPairs()[0]
		test.That(t, bp.IsStale(pair), test.ShouldBeFalse)
		test.That(t, bp.Remove(c), test.ShouldBeNil)
		test.That(t, bp.IsStale(pair), test.ShouldBeTrue)
		pairs := bp.QueryPairs()
		test.That(t, pairs, test.ShouldHaveLength, 1)
		test.That(t, pairs[0].Status, test.ShouldEqual, PairEnded)
		test.That(t, bp.QueryPairs(), test.ShouldBeEmpty)
		test.That(t, bp.Remove(c), test.ShouldNotBeNil)
	})
}

func TestInsertRemoveRestoresPairs(t *testing.T) {
	bp := newTestBroadPhase(t)
	rnd := rand.New(rand.NewSource(2))
	ids, err := bp.InsertBatch(context.Background(), randomEntries(t, rnd, 200, 6))
	test.That(t, err, test.ShouldBeNil)
	before := liveKeys(bp.QueryPairs())

	extra, err := bp.InsertBatch(context.Background(), randomEntries(t, rnd, 50, 6))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(liveKeys(bp.QueryPairs())), test.ShouldBeGreaterThan, len(before))
	for _, id := range extra {
		test.That(t, bp.Remove(id), test.ShouldBeNil)
	}
	test.That(t, bp.Validate(), test.ShouldBeNil)
	test.That(t, bp.Len(), test.ShouldEqual, len(ids))

	after := bp.QueryPairs()
	if diff := cmp.Diff(before, liveKeys(after), cmp.AllowUnexported(pairKey{})); diff != "" {
		t.Fatalf("pairs differ after removal (-want +got):\n%s", diff)
	}
	for _, p := range after {
		if p.Status == PairEnded {
			test.That(t, bp.IsStale(p), test.ShouldBeTrue)
			continue
		}
		test.That(t, p.Status, test.ShouldEqual, PairPersisted)
	}
}

func TestUpdateTransformFastPath(t *testing.T) {
	bp, err := New(Config{Margin: 0.5}, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	box, err := shape.NewCuboid(r3.Vector{X: 1, Y: 1, Z: 1})
	test.That(t, err, test.ShouldBeNil)
	id, err := bp.Insert(box, spatialmath.NewPoseFromPoint(r3.Vector{}))
	test.That(t, err, test.ShouldBeNil)
	p, _ := bp.Proxy(id)
	test.That(t, p.FatAABB, test.ShouldResemble, spatialmath.NewAABB(r3.Vector{X: -1.5, Y: -1.5, Z: -1.5}, r3.Vector{X: 1.5, Y: 1.5, Z: 1.5}))

	test.That(t, bp.UpdateTransform(id, spatialmath.NewPoseFromPoint(r3.Vector{X: 0.4})), test.ShouldBeNil)
	moved, _ := bp.Proxy(id)
	test.That(t, moved.FatAABB, test.ShouldResemble, p.FatAABB)
	test.That(t, moved.AABB.Min.X, test.ShouldAlmostEqual, -0.6)
	test.That(t, moved.Version, test.ShouldEqual, 1)

	test.That(t, bp.UpdateTransform(id, spatialmath.NewPoseFromPoint(r3.Vector{X: 3})), test.ShouldBeNil)
	moved, _ = bp.Proxy(id)
	test.That(t, moved.FatAABB.Min.X, test.ShouldAlmostEqual, 1.5)
	test.That(t, moved.FatAABB.Max.X, test.ShouldAlmostEqual, 4.5)
	test.That(t, bp.Validate(), test.ShouldBeNil)

	test.That(t, bp.QueryRegion(spatialmath.NewAABB(r3.Vector{X: 4}, r3.Vector{X: 5, Y: 1, Z: 1})), test.ShouldResemble, []ProxyID{id})
	test.That(t, bp.QueryRegion(spatialmath.NewAABB(r3.Vector{X: -5}, r3.Vector{X: -4, Y: 1, Z: 1})), test.ShouldBeEmpty)
}

func TestInvalidInput(t *testing.T) {
	bp := newTestBroadPhase(t)
	ball, err := shape.NewBall(1)
	test.That(t, err, test.ShouldBeNil)
	id, err := bp.Insert(ball, spatialmath.NewPoseFromPoint(r3.Vector{X: 1}))
	test.That(t, err, test.ShouldBeNil)

	err = bp.UpdateTransform(id, spatialmath.NewPoseFromPoint(r3.Vector{X: math.NaN()}))
	test.That(t, spatialmath.IsConfigurationError(err), test.ShouldBeTrue)
	p, _ := bp.Proxy(id)
	test.That(t, p.Pose.Point().X, test.ShouldEqual, 1)
	test.That(t, p.Version, test.ShouldEqual, 0)

	_, err = bp.Insert(ball, spatialmath.NewPoseFromPoint(r3.Vector{Y: math.Inf(1)}))
	test.That(t, spatialmath.IsConfigurationError(err), test.ShouldBeTrue)
	_, err = bp.InsertBatch(context.Background(), []Entry{{Shape: ball, Pose: spatialmath.NewZeroPose()}, {Shape: ball}})
	test.That(t, spatialmath.IsConfigurationError(err), test.ShouldBeTrue)
	test.That(t, bp.Len(), test.ShouldEqual, 1)

	test.That(t, bp.UpdateTransform(ProxyID(42), spatialmath.NewZeroPose()), test.ShouldNotBeNil)
	_, ok := bp.Proxy(ProxyID(42))
	test.That(t, ok, test.ShouldBeFalse)

	_, err = New(Config{Margin: -1, MarginRatio: math.NaN()}, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "margin_ratio")
}

func TestConcurrentReaders(t *testing.T) {
	bp := newTestBroadPhase(t)
	rnd := rand.New(rand.NewSource(3))
	_, err := bp.InsertBatch(context.Background(), randomEntries(t, rnd, 300, 8))
	test.That(t, err, test.ShouldBeNil)
	want := liveKeys(bp.QueryPairs())

	var wg sync.WaitGroup
	results := make([][]pairKey, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = liveKeys(bp.QueryPairs())
		}(i)
	}
	wg.Wait()
	for _, got := range results {
		test.That(t, got, test.ShouldResemble, want)
	}
}

func TestDecodeConfig(t *testing.T) {
	cfg, err := DecodeConfig(nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg, test.ShouldResemble, DefaultConfig())

	cfg, err = DecodeConfig(map[string]interface{}{"margin": "0.5", "margin_ratio": 0})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg, test.ShouldResemble, Config{Margin: 0.5})

	_, err = DecodeConfig(map[string]interface{}{"margn": 1})
	test.That(t, err, test.ShouldNotBeNil)

	_, err = DecodeConfig(map[string]interface{}{"margin": -1, "margin_ratio": math.Inf(1)})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, multierr.Errors(err), test.ShouldHaveLength, 2)
}

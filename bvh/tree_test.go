package bvh

import (
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/google/go-cmp/cmp"
	"go.viam.com/test"

	"go.viam.com/collide/spatialmath"
)

func randomBox(rnd *rand.Rand, extent, maxSize float64) spatialmath.AABB {
	center := r3.Vector{
		X: (rnd.Float64()*2 - 1) * extent,
		Y: (rnd.Float64()*2 - 1) * extent,
		Z: (rnd.Float64()*2 - 1) * extent,
	}
	half := r3.Vector{X: rnd.Float64() * maxSize, Y: rnd.Float64() * maxSize, Z: rnd.Float64() * maxSize}
	return spatialmath.NewAABBFromHalfExtents(center, half)
}

// checkUnionInvariant walks the tree through its public accessors and checks every internal box.
func checkUnionInvariant(t *testing.T, tree *Tree) int {
	t.Helper()
	if tree.Root() == Null {
		return 0
	}
	leaves := 0
	stack := []int{tree.Root()}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if tree.IsLeaf(id) {
			leaves++
			continue
		}
		c1, c2 := tree.Children(id)
		test.That(t, tree.NodeAABB(id), test.ShouldResemble, tree.NodeAABB(c1).Union(tree.NodeAABB(c2)))
		test.That(t, tree.Parent(c1), test.ShouldEqual, id)
		test.That(t, tree.Parent(c2), test.ShouldEqual, id)
		stack = append(stack, c1, c2)
	}
	return leaves
}

func bruteForcePairs(boxes map[int]spatialmath.AABB) [][2]int {
	ids := make([]int, 0, len(boxes))
	for id := range boxes {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	var out [][2]int
	for i := range ids {
		for j := i + 1; j < len(ids); j++ {
			if boxes[ids[i]].Overlaps(boxes[ids[j]]) {
				out = append(out, [2]int{ids[i], ids[j]})
			}
		}
	}
	return out
}

func sortedPairs(tree *Tree) [][2]int {
	var out [][2]int
	tree.QuerySelfPairs(func(a, b int) bool {
		out = append(out, [2]int{a, b})
		return true
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i][0] != out[j][0] {
			return out[i][0] < out[j][0]
		}
		return out[i][1] < out[j][1]
	})
	return out
}

func TestThousandRandomBoxes(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	tree := NewTree(0)
	for i := 0; i < 1000; i++ {
		tree.CreateProxy(randomBox(rnd, 100, 5), i)
	}
	test.That(t, tree.LeafCount(), test.ShouldEqual, 1000)
	test.That(t, tree.NodeCount(), test.ShouldEqual, 1999)
	test.That(t, checkUnionInvariant(t, tree), test.ShouldEqual, 1000)
	test.That(t, tree.Validate(), test.ShouldBeNil)

	// rotations keep the tree far below the degenerate height
	test.That(t, tree.Height(), test.ShouldBeLessThan, 40)
	test.That(t, tree.MaxBalance(), test.ShouldBeLessThan, tree.Height())
	test.That(t, tree.AreaRatio(), test.ShouldBeGreaterThan, 1)
}

func TestMutations(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	tree := NewTree(16)
	boxes := map[int]spatialmath.AABB{}
	for i := 0; i < 200; i++ {
		box := randomBox(rnd, 20, 2)
		id := tree.CreateProxy(box, i)
		boxes[id] = box
	}

	for step := 0; step < 600; step++ {
		switch rnd.Intn(3) {
		case 0:
			box := randomBox(rnd, 20, 2)
			id := tree.CreateProxy(box, step)
			boxes[id] = box
		case 1:
			for id := range boxes {
				test.That(t, tree.DestroyProxy(id), test.ShouldBeNil)
				delete(boxes, id)
				break
			}
		default:
			for id := range boxes {
				box := randomBox(rnd, 20, 2)
				test.That(t, tree.MoveProxy(id, box), test.ShouldBeNil)
				boxes[id] = box
				break
			}
		}
		if step%50 == 0 {
			test.That(t, tree.Validate(), test.ShouldBeNil)
		}
	}
	test.That(t, tree.Validate(), test.ShouldBeNil)
	test.That(t, checkUnionInvariant(t, tree), test.ShouldEqual, len(boxes))
	for id, box := range boxes {
		test.That(t, tree.FatAABB(id), test.ShouldResemble, box)
	}

	if diff := cmp.Diff(bruteForcePairs(boxes), sortedPairs(tree)); diff != "" {
		t.Errorf("self pairs mismatch (-want +got):\n%s", diff)
	}
}

func TestInvalidProxy(t *testing.T) {
	tree := NewTree(0)
	test.That(t, tree.DestroyProxy(3), test.ShouldNotBeNil)
	id := tree.CreateProxy(spatialmath.NewAABB(r3.Vector{}, r3.Vector{X: 1, Y: 1, Z: 1}), 0)
	other := tree.CreateProxy(spatialmath.NewAABB(r3.Vector{X: 2}, r3.Vector{X: 3, Y: 1, Z: 1}), 1)
	parent := tree.Parent(id)
	test.That(t, tree.MoveProxy(parent, spatialmath.AABB{}), test.ShouldNotBeNil)
	test.That(t, tree.DestroyProxy(id), test.ShouldBeNil)
	test.That(t, tree.DestroyProxy(id), test.ShouldNotBeNil)
	test.That(t, tree.Root(), test.ShouldEqual, other)
	test.That(t, tree.Height(), test.ShouldEqual, 0)
	test.That(t, tree.DestroyProxy(other), test.ShouldBeNil)
	test.That(t, tree.Root(), test.ShouldEqual, Null)
	test.That(t, tree.Height(), test.ShouldEqual, -1)
	test.That(t, tree.Validate(), test.ShouldBeNil)
}

func TestQueries(t *testing.T) {
	tree := NewTree(0)
	unit := r3.Vector{X: 0.5, Y: 0.5, Z: 0.5}
	for i := 0; i < 10; i++ {
		tree.CreateProxy(spatialmath.NewAABBFromHalfExtents(r3.Vector{X: float64(2 * i)}, unit), i)
	}

	t.Run("region", func(t *testing.T) {
		var hits []int
		tree.Query(spatialmath.NewAABB(r3.Vector{X: 3, Y: -1, Z: -1}, r3.Vector{X: 6, Y: 1, Z: 1}), func(id int) bool {
			hits = append(hits, tree.Data(id))
			return true
		})
		sort.Ints(hits)
		test.That(t, hits, test.ShouldResemble, []int{2, 3})
	})

	t.Run("early stop", func(t *testing.T) {
		count := 0
		tree.Query(spatialmath.NewAABB(r3.Vector{X: -10, Y: -1, Z: -1}, r3.Vector{X: 30, Y: 1, Z: 1}), func(id int) bool {
			count++
			return count < 3
		})
		test.That(t, count, test.ShouldEqual, 3)
	})

	t.Run("ray cast closest", func(t *testing.T) {
		ray := spatialmath.NewRay(r3.Vector{X: -5}, r3.Vector{X: 1})
		closest := -1
		tree.RayCast(ray, math.Inf(1), func(id int, ray spatialmath.Ray, maxTOI float64) float64 {
			toi, _, ok := tree.FatAABB(id).CastLocalRay(ray, maxTOI, true)
			if !ok {
				return -1
			}
			closest = tree.Data(id)
			return toi
		})
		test.That(t, closest, test.ShouldEqual, 0)
	})

	t.Run("ray cast miss", func(t *testing.T) {
		ray := spatialmath.NewRay(r3.Vector{X: -5, Y: 3}, r3.Vector{X: 1})
		called := false
		tree.RayCast(ray, math.Inf(1), func(int, spatialmath.Ray, float64) float64 {
			called = true
			return -1
		})
		test.That(t, called, test.ShouldBeFalse)
	})

	t.Run("tree pairs", func(t *testing.T) {
		other := Build([]Leaf{
			{AABB: spatialmath.NewAABBFromHalfExtents(r3.Vector{X: 4.8}, unit), Data: 100},
			{AABB: spatialmath.NewAABBFromHalfExtents(r3.Vector{X: 50}, unit), Data: 101},
		})
		var got [][2]int
		tree.QueryTreePairs(other, func(a, b int) bool {
			got = append(got, [2]int{tree.Data(a), other.Data(b)})
			return true
		})
		test.That(t, got, test.ShouldResemble, [][2]int{{2, 100}})
	})

	t.Run("best first", func(t *testing.T) {
		target := r3.Vector{X: 13.2, Y: 4}
		visited := 0
		best := tree.TraverseBestFirst(math.Inf(1),
			func(id int) (float64, bool) {
				return tree.NodeAABB(id).DistanceToPoint(target), true
			},
			func(id int, best float64) (float64, bool) {
				visited++
				return math.Min(best, tree.FatAABB(id).DistanceToPoint(target)), false
			})
		test.That(t, best, test.ShouldAlmostEqual, math.Hypot(0.3, 3.5))
		test.That(t, visited, test.ShouldBeLessThan, 10)
	})
}

func TestBuild(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		tree := Build(nil)
		test.That(t, tree.Root(), test.ShouldEqual, Null)
		test.That(t, tree.Validate(), test.ShouldBeNil)
	})

	t.Run("single leaf", func(t *testing.T) {
		box := spatialmath.NewAABB(r3.Vector{}, r3.Vector{X: 1, Y: 1, Z: 1})
		tree := Build([]Leaf{{AABB: box, Data: 9}})
		test.That(t, tree.Root(), test.ShouldEqual, 0)
		test.That(t, tree.IsLeaf(0), test.ShouldBeTrue)
		test.That(t, tree.Data(0), test.ShouldEqual, 9)
		test.That(t, tree.Validate(), test.ShouldBeNil)
	})

	t.Run("balanced median split", func(t *testing.T) {
		rnd := rand.New(rand.NewSource(3))
		leaves := make([]Leaf, 257)
		boxes := map[int]spatialmath.AABB{}
		for i := range leaves {
			leaves[i] = Leaf{AABB: randomBox(rnd, 50, 3), Data: i}
			boxes[i] = leaves[i].AABB
		}
		tree := Build(leaves)
		test.That(t, tree.Validate(), test.ShouldBeNil)
		test.That(t, tree.LeafCount(), test.ShouldEqual, 257)
		test.That(t, tree.Height(), test.ShouldEqual, 9)
		for i := range leaves {
			test.That(t, tree.IsLeaf(i), test.ShouldBeTrue)
			test.That(t, tree.Data(i), test.ShouldEqual, i)
		}
		if diff := cmp.Diff(bruteForcePairs(boxes), sortedPairs(tree)); diff != "" {
			t.Errorf("self pairs mismatch (-want +got):\n%s", diff)
		}

		// a built tree accepts dynamic updates
		tree.CreateProxy(randomBox(rnd, 50, 3), 300)
		test.That(t, tree.Validate(), test.ShouldBeNil)
	})
}

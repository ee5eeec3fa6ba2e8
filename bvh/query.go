package bvh

import (
	"container/heap"

	"go.viam.com/collide/spatialmath"
)

// QueryCallback receives a leaf id; returning false stops the query.
type QueryCallback func(id int) bool

// RayCastCallback receives a leaf whose box the ray crosses and the current maximum time of impact.
// It returns the new maximum: 0 stops the cast, a negative value leaves the maximum unchanged and any
// other value clips it.
type RayCastCallback func(id int, ray spatialmath.Ray, maxTOI float64) float64

// PairCallback receives two leaves with overlapping boxes; returning false stops the query.
type PairCallback func(id1, id2 int) bool

// Query calls cb for every leaf whose box overlaps aabb.
func (t *Tree) Query(aabb spatialmath.AABB, cb QueryCallback) {
	if t.root == Null {
		return
	}
	var buf [stackSize]int
	stack := append(buf[:0], t.root)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &t.nodes[id]
		if !n.aabb.Overlaps(aabb) {
			continue
		}
		if n.isLeaf() {
			if !cb(id) {
				return
			}
			continue
		}
		stack = append(stack, n.child2, n.child1)
	}
}

// RayCast calls cb for leaves whose boxes the ray enters before maxTOI, clipping maxTOI with the
// values cb returns.
func (t *Tree) RayCast(ray spatialmath.Ray, maxTOI float64, cb RayCastCallback) {
	if t.root == Null || !ray.IsFinite() {
		return
	}
	var buf [stackSize]int
	stack := append(buf[:0], t.root)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &t.nodes[id]
		if _, _, ok := n.aabb.CastLocalRay(ray, maxTOI, true); !ok {
			continue
		}
		if n.isLeaf() {
			value := cb(id, ray, maxTOI)
			if value == 0 {
				return
			}
			if value > 0 {
				maxTOI = value
			}
			continue
		}
		stack = append(stack, n.child2, n.child1)
	}
}

type nodePair struct {
	a, b int
}

// QuerySelfPairs calls cb once for every unordered pair of distinct leaves whose boxes overlap,
// with the smaller leaf id first. The traversal descends the tree against itself and prunes
// subtree pairs with disjoint boxes.
func (t *Tree) QuerySelfPairs(cb PairCallback) {
	if t.root == Null || t.nodes[t.root].isLeaf() {
		return
	}
	var buf [stackSize]nodePair
	stack := append(buf[:0], nodePair{t.root, t.root})
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if p.a == p.b {
			n := &t.nodes[p.a]
			if n.isLeaf() {
				continue
			}
			stack = append(stack, nodePair{n.child2, n.child2}, nodePair{n.child1, n.child2}, nodePair{n.child1, n.child1})
			continue
		}
		var ok bool
		stack, ok = t.descendPair(t, p, stack, cb)
		if !ok {
			return
		}
	}
}

// QueryTreePairs calls cb(idInT, idInOther) for every pair of overlapping leaves across two trees.
func (t *Tree) QueryTreePairs(other *Tree, cb PairCallback) {
	if t.root == Null || other.root == Null {
		return
	}
	var buf [stackSize]nodePair
	stack := append(buf[:0], nodePair{t.root, other.root})
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		var ok bool
		stack, ok = t.descendPair(other, p, stack, cb)
		if !ok {
			return
		}
	}
}

// descendPair handles one node pair (p.a in t, p.b in other). When both are leaves it reports the
// pair; otherwise it splits the node with the larger box.
func (t *Tree) descendPair(other *Tree, p nodePair, stack []nodePair, cb PairCallback) ([]nodePair, bool) {
	na := &t.nodes[p.a]
	nb := &other.nodes[p.b]
	if !na.aabb.Overlaps(nb.aabb) {
		return stack, true
	}
	leafA, leafB := na.isLeaf(), nb.isLeaf()
	switch {
	case leafA && leafB:
		a, b := p.a, p.b
		if other == t && a > b {
			a, b = b, a
		}
		return stack, cb(a, b)
	case leafB || (!leafA && na.aabb.SurfaceArea() >= nb.aabb.SurfaceArea()):
		return append(stack, nodePair{na.child2, p.b}, nodePair{na.child1, p.b}), true
	default:
		return append(stack, nodePair{p.a, nb.child2}, nodePair{p.a, nb.child1}), true
	}
}

// BoundFunc returns a lower bound of the cost of any leaf under node id, or false to prune the subtree.
type BoundFunc func(id int) (float64, bool)

// LeafFunc evaluates a leaf given the best cost found so far and returns the new best cost and
// whether the traversal should stop.
type LeafFunc func(id int, best float64) (float64, bool)

type boundedNode struct {
	id    int
	bound float64
}

type boundedQueue []boundedNode

func (q boundedQueue) Len() int { return len(q) }
func (q boundedQueue) Less(i, j int) bool {
	if q[i].bound != q[j].bound {
		return q[i].bound < q[j].bound
	}
	return q[i].id < q[j].id
}
func (q boundedQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *boundedQueue) Push(x any) { *q = append(*q, x.(boundedNode)) }

func (q *boundedQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// TraverseBestFirst visits nodes in increasing order of their lower bound, starting with best as the
// cost to beat. A node whose bound is not below the current best is never expanded. It returns the final
// best cost.
func (t *Tree) TraverseBestFirst(best float64, bound BoundFunc, leaf LeafFunc) float64 {
	if t.root == Null {
		return best
	}
	rootBound, ok := bound(t.root)
	if !ok {
		return best
	}
	var buf [stackSize]boundedNode
	queue := boundedQueue(buf[:0])
	heap.Push(&queue, boundedNode{t.root, rootBound})
	for queue.Len() > 0 {
		item := heap.Pop(&queue).(boundedNode)
		if item.bound >= best {
			break
		}
		n := &t.nodes[item.id]
		if n.isLeaf() {
			var stop bool
			best, stop = leaf(item.id, best)
			if stop {
				break
			}
			continue
		}
		for _, child := range [2]int{n.child1, n.child2} {
			if b, ok := bound(child); ok && b < best {
				heap.Push(&queue, boundedNode{child, b})
			}
		}
	}
	return best
}

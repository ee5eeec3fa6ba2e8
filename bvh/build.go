package bvh

import (
	"cmp"
	"slices"

	"go.viam.com/collide/spatialmath"
	"go.viam.com/collide/utils"
)

// Leaf is an input box for Build.
type Leaf struct {
	AABB spatialmath.AABB
	Data int
}

type buildTask struct {
	parent int
	first  bool
	lo, hi int
}

// Build returns a tree over leaves built top-down: each range is split at the median centroid along
// the longest axis of its centroid bounds. Leaf ids equal the index of the leaf in the input slice.
func Build(leaves []Leaf) *Tree {
	t := NewTree(2 * len(leaves))
	if len(leaves) == 0 {
		return t
	}
	for _, l := range leaves {
		id := t.allocateNode()
		t.nodes[id].aabb = l.AABB
		t.nodes[id].data = l.Data
		t.leafCount++
	}

	order := make([]int, len(leaves))
	for i := range order {
		order[i] = i
	}

	var buf [stackSize]buildTask
	stack := append(buf[:0], buildTask{parent: Null, lo: 0, hi: len(leaves)})
	// internal nodes in creation order; parents always precede their children
	internal := make([]int, 0, len(leaves))
	for len(stack) > 0 {
		task := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		var id int
		if task.hi-task.lo == 1 {
			id = order[task.lo]
		} else {
			id = t.allocateNode()
			internal = append(internal, id)
		}
		t.nodes[id].parent = task.parent
		switch {
		case task.parent == Null:
			t.root = id
		case task.first:
			t.nodes[task.parent].child1 = id
		default:
			t.nodes[task.parent].child2 = id
		}
		if task.hi-task.lo == 1 {
			continue
		}

		span := order[task.lo:task.hi]
		bounds := spatialmath.EmptyAABB()
		for _, i := range span {
			bounds = bounds.Merged(leaves[i].AABB.Center())
		}
		axis := longestAxis(bounds)
		slices.SortStableFunc(span, func(a, b int) int {
			return cmp.Compare(
				spatialmath.Component(leaves[a].AABB.Center(), axis),
				spatialmath.Component(leaves[b].AABB.Center(), axis),
			)
		})
		mid := task.lo + (task.hi-task.lo)/2
		stack = append(stack,
			buildTask{parent: id, first: false, lo: mid, hi: task.hi},
			buildTask{parent: id, first: true, lo: task.lo, hi: mid},
		)
	}

	for i := len(internal) - 1; i >= 0; i-- {
		n := &t.nodes[internal[i]]
		c1 := &t.nodes[n.child1]
		c2 := &t.nodes[n.child2]
		n.aabb = c1.aabb.Union(c2.aabb)
		n.height = 1 + utils.MaxInt(c1.height, c2.height)
	}
	return t
}

func longestAxis(box spatialmath.AABB) int {
	d := box.Max.Sub(box.Min)
	switch {
	case d.X >= d.Y && d.X >= d.Z:
		return 0
	case d.Y >= d.Z:
		return 1
	default:
		return 2
	}
}

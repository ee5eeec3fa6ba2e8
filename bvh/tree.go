// Package bvh implements a bounding volume hierarchy of axis-aligned boxes stored in a
// contiguous node arena. It serves both as the dynamic broad-phase index and as the static
// part index of composite shapes.
package bvh

import (
	"github.com/pkg/errors"

	"go.viam.com/collide/spatialmath"
	"go.viam.com/collide/utils"
)

// Null is the index used for absent nodes.
const Null = -1

// stackSize is the capacity of the fixed traversal buffers; deeper traversals spill to the heap.
const stackSize = 64

type node struct {
	aabb spatialmath.AABB
	data int

	// parent doubles as the next pointer of the free list
	parent int
	child1 int
	child2 int

	// leaf = 0, free node = -1
	height int
}

func (n *node) isLeaf() bool {
	return n.child1 == Null
}

// Tree is a binary tree of AABBs. Leaves carry an integer payload chosen by the caller; internal
// nodes always have exactly two children and their box is the exact union of their children's boxes.
// A Tree is not safe for concurrent mutation.
type Tree struct {
	nodes     []node
	root      int
	freeList  int
	nodeCount int
	leafCount int
}

// NewTree returns an empty tree with room for capacity nodes before growing.
func NewTree(capacity int) *Tree {
	if capacity < 16 {
		capacity = 16
	}
	t := &Tree{root: Null, freeList: Null}
	t.nodes = make([]node, 0, capacity)
	return t
}

func (t *Tree) allocateNode() int {
	if t.freeList == Null {
		t.nodes = append(t.nodes, node{})
		t.freeList = len(t.nodes) - 1
		t.nodes[t.freeList].parent = Null
	}
	id := t.freeList
	n := &t.nodes[id]
	t.freeList = n.parent
	*n = node{parent: Null, child1: Null, child2: Null, height: 0, data: Null}
	t.nodeCount++
	return id
}

func (t *Tree) freeNode(id int) {
	t.nodes[id] = node{parent: t.freeList, child1: Null, child2: Null, height: -1, data: Null}
	t.freeList = id
	t.nodeCount--
}

func (t *Tree) validLeaf(id int) bool {
	return id >= 0 && id < len(t.nodes) && t.nodes[id].height == 0
}

// CreateProxy adds a leaf holding aabb and data and returns its id. Ids stay valid until
// DestroyProxy and may be reused afterwards.
func (t *Tree) CreateProxy(aabb spatialmath.AABB, data int) int {
	id := t.allocateNode()
	t.nodes[id].aabb = aabb
	t.nodes[id].data = data
	t.insertLeaf(id)
	t.leafCount++
	return id
}

// DestroyProxy removes a leaf.
func (t *Tree) DestroyProxy(id int) error {
	if !t.validLeaf(id) {
		return errors.Errorf("no proxy with id %d", id)
	}
	t.removeLeaf(id)
	t.freeNode(id)
	t.leafCount--
	return nil
}

// MoveProxy replaces the box of a leaf and reinserts it. The leaf id does not change.
func (t *Tree) MoveProxy(id int, aabb spatialmath.AABB) error {
	if !t.validLeaf(id) {
		return errors.Errorf("no proxy with id %d", id)
	}
	t.removeLeaf(id)
	t.nodes[id].aabb = aabb
	t.insertLeaf(id)
	return nil
}

// FatAABB returns the box stored for a leaf.
func (t *Tree) FatAABB(id int) spatialmath.AABB {
	return t.nodes[id].aabb
}

// NodeAABB returns the box of any live node.
func (t *Tree) NodeAABB(id int) spatialmath.AABB {
	return t.nodes[id].aabb
}

// Data returns the payload of a leaf.
func (t *Tree) Data(id int) int {
	return t.nodes[id].data
}

// Root returns the root node id, or Null for an empty tree.
func (t *Tree) Root() int {
	return t.root
}

// IsLeaf reports whether id is a leaf.
func (t *Tree) IsLeaf(id int) bool {
	return t.nodes[id].isLeaf()
}

// Children returns the two children of an internal node, Null for leaves.
func (t *Tree) Children(id int) (int, int) {
	return t.nodes[id].child1, t.nodes[id].child2
}

// Parent returns the parent of a node, Null for the root.
func (t *Tree) Parent(id int) int {
	return t.nodes[id].parent
}

// Height returns the height of the tree; a single leaf has height 0 and an empty tree -1.
func (t *Tree) Height() int {
	if t.root == Null {
		return -1
	}
	return t.nodes[t.root].height
}

// LeafCount returns the number of leaves.
func (t *Tree) LeafCount() int {
	return t.leafCount
}

// NodeCount returns the number of live nodes.
func (t *Tree) NodeCount() int {
	return t.nodeCount
}

// AreaRatio returns the ratio of the summed surface area of all nodes to the root surface area.
func (t *Tree) AreaRatio() float64 {
	if t.root == Null {
		return 0
	}
	rootArea := t.nodes[t.root].aabb.SurfaceArea()
	if rootArea == 0 {
		return 0
	}
	total := 0.
	for i := range t.nodes {
		if t.nodes[i].height < 0 {
			continue
		}
		total += t.nodes[i].aabb.SurfaceArea()
	}
	return total / rootArea
}

// MaxBalance returns the largest height difference between the two children of any internal node.
func (t *Tree) MaxBalance() int {
	maxBalance := 0
	for i := range t.nodes {
		n := &t.nodes[i]
		if n.height <= 1 {
			continue
		}
		b := t.nodes[n.child2].height - t.nodes[n.child1].height
		if b < 0 {
			b = -b
		}
		if b > maxBalance {
			maxBalance = b
		}
	}
	return maxBalance
}

// insertLeaf finds the best sibling with the surface area heuristic and then rebalances the ancestors.
func (t *Tree) insertLeaf(leaf int) {
	if t.root == Null {
		t.root = leaf
		t.nodes[leaf].parent = Null
		return
	}

	leafAABB := t.nodes[leaf].aabb
	index := t.root
	for !t.nodes[index].isLeaf() {
		n := &t.nodes[index]
		child1 := n.child1
		child2 := n.child2

		area := n.aabb.SurfaceArea()
		combinedArea := n.aabb.Union(leafAABB).SurfaceArea()

		// cost of creating a new parent for this node and the new leaf
		cost := 2 * combinedArea
		// minimum cost of pushing the leaf further down the tree
		inheritance := 2 * (combinedArea - area)

		cost1 := t.descendCost(child1, leafAABB) + inheritance
		cost2 := t.descendCost(child2, leafAABB) + inheritance

		if cost < cost1 && cost < cost2 {
			break
		}
		if cost1 <= cost2 {
			index = child1
		} else {
			index = child2
		}
	}
	sibling := index

	oldParent := t.nodes[sibling].parent
	newParent := t.allocateNode()
	np := &t.nodes[newParent]
	np.parent = oldParent
	np.aabb = leafAABB.Union(t.nodes[sibling].aabb)
	np.height = t.nodes[sibling].height + 1
	np.child1 = sibling
	np.child2 = leaf

	if oldParent != Null {
		if t.nodes[oldParent].child1 == sibling {
			t.nodes[oldParent].child1 = newParent
		} else {
			t.nodes[oldParent].child2 = newParent
		}
	} else {
		t.root = newParent
	}
	t.nodes[sibling].parent = newParent
	t.nodes[leaf].parent = newParent

	t.refit(t.nodes[leaf].parent)
}

func (t *Tree) descendCost(child int, leafAABB spatialmath.AABB) float64 {
	c := &t.nodes[child]
	union := leafAABB.Union(c.aabb).SurfaceArea()
	if c.isLeaf() {
		return union
	}
	return union - c.aabb.SurfaceArea()
}

// refit walks from index to the root, rebalancing and recomputing heights and exact unions.
func (t *Tree) refit(index int) {
	for index != Null {
		index = t.balance(index)
		n := &t.nodes[index]
		c1 := &t.nodes[n.child1]
		c2 := &t.nodes[n.child2]
		n.height = 1 + utils.MaxInt(c1.height, c2.height)
		n.aabb = c1.aabb.Union(c2.aabb)
		index = n.parent
	}
}

func (t *Tree) removeLeaf(leaf int) {
	if leaf == t.root {
		t.root = Null
		return
	}

	parent := t.nodes[leaf].parent
	grandParent := t.nodes[parent].parent
	sibling := t.nodes[parent].child1
	if sibling == leaf {
		sibling = t.nodes[parent].child2
	}

	if grandParent != Null {
		if t.nodes[grandParent].child1 == parent {
			t.nodes[grandParent].child1 = sibling
		} else {
			t.nodes[grandParent].child2 = sibling
		}
		t.nodes[sibling].parent = grandParent
		t.freeNode(parent)
		t.refit(grandParent)
	} else {
		t.root = sibling
		t.nodes[sibling].parent = Null
		t.freeNode(parent)
	}
	t.nodes[leaf].parent = Null
}

// balance performs a left or right rotation if node iA is imbalanced and returns the new subtree root.
func (t *Tree) balance(iA int) int {
	a := &t.nodes[iA]
	if a.isLeaf() || a.height < 2 {
		return iA
	}

	iB := a.child1
	iC := a.child2
	b := &t.nodes[iB]
	c := &t.nodes[iC]

	balance := c.height - b.height

	// rotate c up
	if balance > 1 {
		iF := c.child1
		iG := c.child2
		f := &t.nodes[iF]
		g := &t.nodes[iG]

		c.child1 = iA
		c.parent = a.parent
		a.parent = iC
		t.replaceChild(c.parent, iA, iC)

		if f.height > g.height {
			c.child2 = iF
			a.child2 = iG
			g.parent = iA
			a.aabb = b.aabb.Union(g.aabb)
			c.aabb = a.aabb.Union(f.aabb)
			a.height = 1 + utils.MaxInt(b.height, g.height)
			c.height = 1 + utils.MaxInt(a.height, f.height)
		} else {
			c.child2 = iG
			a.child2 = iF
			f.parent = iA
			a.aabb = b.aabb.Union(f.aabb)
			c.aabb = a.aabb.Union(g.aabb)
			a.height = 1 + utils.MaxInt(b.height, f.height)
			c.height = 1 + utils.MaxInt(a.height, g.height)
		}
		return iC
	}

	// rotate b up
	if balance < -1 {
		iD := b.child1
		iE := b.child2
		d := &t.nodes[iD]
		e := &t.nodes[iE]

		b.child1 = iA
		b.parent = a.parent
		a.parent = iB
		t.replaceChild(b.parent, iA, iB)

		if d.height > e.height {
			b.child2 = iD
			a.child1 = iE
			e.parent = iA
			a.aabb = c.aabb.Union(e.aabb)
			b.aabb = a.aabb.Union(d.aabb)
			a.height = 1 + utils.MaxInt(c.height, e.height)
			b.height = 1 + utils.MaxInt(a.height, d.height)
		} else {
			b.child2 = iE
			a.child1 = iD
			d.parent = iA
			a.aabb = c.aabb.Union(d.aabb)
			b.aabb = a.aabb.Union(e.aabb)
			a.height = 1 + utils.MaxInt(c.height, d.height)
			b.height = 1 + utils.MaxInt(a.height, e.height)
		}
		return iB
	}
	return iA
}

func (t *Tree) replaceChild(parent, oldChild, newChild int) {
	if parent == Null {
		t.root = newChild
		return
	}
	if t.nodes[parent].child1 == oldChild {
		t.nodes[parent].child1 = newChild
	} else {
		t.nodes[parent].child2 = newChild
	}
}

// Validate checks parent links, heights, leaf counts, the free list and that every internal box
// equals the union of its children.
func (t *Tree) Validate() error {
	if t.root != Null && t.nodes[t.root].parent != Null {
		return errors.New("root has a parent")
	}
	var buf [stackSize]int
	stack := buf[:0]
	if t.root != Null {
		stack = append(stack, t.root)
	}
	leaves, visited := 0, 0
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &t.nodes[id]
		visited++
		if n.isLeaf() {
			if n.child2 != Null || n.height != 0 {
				return errors.Errorf("leaf %d is malformed", id)
			}
			leaves++
			continue
		}
		c1, c2 := n.child1, n.child2
		if c1 < 0 || c1 >= len(t.nodes) || c2 < 0 || c2 >= len(t.nodes) {
			return errors.Errorf("node %d has out of range children", id)
		}
		if t.nodes[c1].parent != id || t.nodes[c2].parent != id {
			return errors.Errorf("children of node %d do not point back to it", id)
		}
		if want := 1 + utils.MaxInt(t.nodes[c1].height, t.nodes[c2].height); n.height != want {
			return errors.Errorf("node %d has height %d, expected %d", id, n.height, want)
		}
		if union := t.nodes[c1].aabb.Union(t.nodes[c2].aabb); union != n.aabb {
			return errors.Errorf("node %d box %v is not the union of its children %v", id, n.aabb, union)
		}
		stack = append(stack, c1, c2)
	}
	if leaves != t.leafCount {
		return errors.Errorf("found %d leaves, expected %d", leaves, t.leafCount)
	}
	if visited != t.nodeCount {
		return errors.Errorf("found %d nodes, expected %d", visited, t.nodeCount)
	}
	free := 0
	for i := t.freeList; i != Null; i = t.nodes[i].parent {
		free++
		if free > len(t.nodes) {
			return errors.New("free list has a cycle")
		}
	}
	if free+t.nodeCount != len(t.nodes) {
		return errors.Errorf("free list holds %d nodes, expected %d", free, len(t.nodes)-t.nodeCount)
	}
	return nil
}

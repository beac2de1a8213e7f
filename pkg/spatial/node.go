// Package spatial implements an R-tree spatial index over the
// cylindrical (t, r, θ) coordinate space: insert, delete, update,
// range query and k-nearest-neighbors search with quadratic-split node
// management.
//
// No teacher package implements this structure -- the teacher's own
// pkg/index is an HNSW vector index, a different algorithm entirely.
// This package is grounded on original_source/src/indexing/rtree_impl.py
// and rtree_node.py, translated into the teacher's idiom (doc-comment
// density, a sync.RWMutex-guarded top-level struct, package-level
// errors) rather than transliterated line-for-line from Python.
package spatial

import (
	"github.com/google/uuid"

	"github.com/orneryd/cylindb/pkg/coordinate"
)

// entry is a leaf-level reference: a single indexed node's MBR and ID.
type entry struct {
	mbr    coordinate.Rectangle
	nodeID uuid.UUID
}

// childRef is an internal-level reference: a child node's current MBR
// plus a pointer to the child itself.
type childRef struct {
	mbr   coordinate.Rectangle
	child *treeNode
}

// treeNode is one node of the R-tree: either a leaf holding entries, or
// an internal node holding childRefs. level counts up from 0 at the
// leaves.
type treeNode struct {
	level   int
	isLeaf  bool
	parent  *treeNode
	entries []entry
	kids    []childRef
}

func newLeaf(level int) *treeNode {
	return &treeNode{level: level, isLeaf: true}
}

func newInternal(level int) *treeNode {
	return &treeNode{level: level, isLeaf: false}
}

// count returns the number of occupied slots, leaf entries or child
// refs depending on the node's kind.
func (n *treeNode) count() int {
	if n.isLeaf {
		return len(n.entries)
	}
	return len(n.kids)
}

// mbr returns the smallest rectangle covering every occupied slot.
// Panics if the node is empty; callers never ask for the MBR of an
// empty node (one is always removed from its parent first).
func (n *treeNode) mbr() coordinate.Rectangle {
	if n.isLeaf {
		r := n.entries[0].mbr
		for _, e := range n.entries[1:] {
			r = r.Merge(e.mbr)
		}
		return r
	}
	r := n.kids[0].mbr
	for _, k := range n.kids[1:] {
		r = r.Merge(k.mbr)
	}
	return r
}

func (n *treeNode) addEntry(e entry) {
	n.entries = append(n.entries, e)
}

func (n *treeNode) addChild(c childRef) {
	c.child.parent = n
	n.kids = append(n.kids, c)
}

func (n *treeNode) removeEntryAt(i int) {
	n.entries = append(n.entries[:i], n.entries[i+1:]...)
}

func (n *treeNode) removeChildAt(i int) {
	n.kids = append(n.kids[:i], n.kids[i+1:]...)
}

// findEntry returns the index of the leaf entry for id, or -1.
func (n *treeNode) findEntry(id uuid.UUID) int {
	for i, e := range n.entries {
		if e.nodeID == id {
			return i
		}
	}
	return -1
}

// findChildIndex returns the index of the childRef pointing at child,
// or -1.
func (n *treeNode) findChildIndex(child *treeNode) int {
	for i, k := range n.kids {
		if k.child == child {
			return i
		}
	}
	return -1
}

// updateChildMBR refreshes this node's childRef for child to match
// child's current mbr(). A no-op if child has no entries left (its
// caller is about to detach it from the tree entirely).
func (n *treeNode) updateChildMBR(child *treeNode) {
	if child.count() == 0 {
		return
	}
	if i := n.findChildIndex(child); i >= 0 {
		n.kids[i].mbr = child.mbr()
	}
}

func (n *treeNode) isFull(maxEntries int) bool {
	return n.count() >= maxEntries
}

func (n *treeNode) isUnderfull(minEntries int) bool {
	return n.count() < minEntries
}

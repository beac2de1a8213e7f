package spatial

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/orneryd/cylindb/pkg/coordinate"
	"github.com/orneryd/cylindb/pkg/cylindb"
)

// DefaultMaxEntries and DefaultMinEntries match
// original_source/src/indexing/rtree_impl.py's RTree.__init__ defaults.
const (
	DefaultMaxEntries = 50
	DefaultMinEntries = 20
)

// Tree is an R-tree index mapping node positions to uuid.UUID node ids.
// A single Tree instance is safe for concurrent use.
type Tree struct {
	mu sync.RWMutex

	root       *treeNode
	maxEntries int
	minEntries int
	weights    coordinate.Weights

	size      int
	positions map[uuid.UUID]coordinate.Position
}

// New creates an empty R-tree. minEntries must be at least 1 and at
// most maxEntries/2, the same bound rtree_impl.py enforces in its
// constructor.
func New(maxEntries, minEntries int, weights coordinate.Weights) (*Tree, error) {
	if minEntries < 1 || minEntries > maxEntries/2 {
		return nil, fmt.Errorf("%w: min_entries must be between 1 and %d", cylindb.ErrInvariantViolation, maxEntries/2)
	}
	return &Tree{
		root:       newLeaf(0),
		maxEntries: maxEntries,
		minEntries: minEntries,
		weights:    weights,
		positions:  make(map[uuid.UUID]coordinate.Position),
	}, nil
}

// Len returns the number of indexed positions.
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.size
}

// Insert indexes nodeID at pos.
func (t *Tree) Insert(pos coordinate.Position, nodeID uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.insertLocked(pos, nodeID)
}

func (t *Tree) insertLocked(pos coordinate.Position, nodeID uuid.UUID) {
	e := entry{mbr: coordinate.FromPosition(pos), nodeID: nodeID}

	leaf := t.chooseLeaf(pos)
	leaf.addEntry(e)
	t.positions[nodeID] = pos
	t.size++

	if leaf.isFull(t.maxEntries) {
		node, newNode := t.splitNode(leaf)
		t.adjustTree(node, newNode)
	} else {
		t.adjustTree(leaf, nil)
	}
}

// Delete removes nodeID (previously indexed at pos) from the tree,
// reporting whether it was found.
func (t *Tree) Delete(pos coordinate.Position, nodeID uuid.UUID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.deleteLocked(nodeID)
}

func (t *Tree) deleteLocked(nodeID uuid.UUID) bool {
	leaf := t.findLeaf(t.root, nodeID)
	if leaf == nil {
		return false
	}
	i := leaf.findEntry(nodeID)
	if i < 0 {
		return false
	}
	leaf.removeEntryAt(i)
	delete(t.positions, nodeID)
	t.size--

	t.condenseTree(leaf)

	if !t.root.isLeaf && len(t.root.kids) == 1 {
		t.root = t.root.kids[0].child
		t.root.parent = nil
	}
	return true
}

// Update moves nodeID from oldPos to newPos. If nodeID was not found at
// oldPos it is simply inserted at newPos, matching rtree_impl.py's
// update() fallback.
func (t *Tree) Update(oldPos, newPos coordinate.Position, nodeID uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.deleteLocked(nodeID)
	t.insertLocked(newPos, nodeID)
}

// Position returns the position nodeID was last indexed at.
func (t *Tree) Position(nodeID uuid.UUID) (coordinate.Position, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.positions[nodeID]
	return p, ok
}

// EstimateIntersecting returns a cheap one-level estimate of how many
// indexed ids intersect rect: the sum, over the root's immediate
// children whose MBR intersects rect, of each child's occupied-slot
// count (not a recursive descent). Used by the combined index (C7) to
// decide which side of a mixed spatial/temporal query is cheaper to
// evaluate first, per spec.md §4.4.
func (t *Tree) EstimateIntersecting(rect coordinate.Rectangle) int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.root.isLeaf {
		n := 0
		for _, e := range t.root.entries {
			if e.mbr.Intersects(rect) {
				n++
			}
		}
		return n
	}
	n := 0
	for _, k := range t.root.kids {
		if k.mbr.Intersects(rect) {
			n += k.child.count()
		}
	}
	return n
}

// FindExact returns node ids indexed at exactly pos.
func (t *Tree) FindExact(pos coordinate.Position) []uuid.UUID {
	return t.RangeQuery(coordinate.FromPosition(pos))
}

// RangeQuery returns every node id whose indexed position's MBR
// intersects rect.
func (t *Tree) RangeQuery(rect coordinate.Rectangle) []uuid.UUID {
	t.mu.RLock()
	defer t.mu.RUnlock()

	seen := make(map[uuid.UUID]struct{})
	var result []uuid.UUID
	t.rangeQueryRecursive(t.root, rect, seen, &result)
	return result
}

func (t *Tree) rangeQueryRecursive(n *treeNode, rect coordinate.Rectangle, seen map[uuid.UUID]struct{}, out *[]uuid.UUID) {
	if n.isLeaf {
		for _, e := range n.entries {
			if !e.mbr.Intersects(rect) {
				continue
			}
			if _, ok := seen[e.nodeID]; ok {
				continue
			}
			seen[e.nodeID] = struct{}{}
			*out = append(*out, e.nodeID)
		}
		return
	}
	for _, k := range n.kids {
		if k.mbr.Intersects(rect) {
			t.rangeQueryRecursive(k.child, rect, seen, out)
		}
	}
}

// chooseLeaf walks from the root to a leaf by the least-enlargement
// criterion, breaking ties toward the smaller existing MBR.
func (t *Tree) chooseLeaf(pos coordinate.Position) *treeNode {
	n := t.root
	for !n.isLeaf {
		bestIdx := -1
		bestEnlargement := 0.0
		for i, k := range n.kids {
			enlarged := k.mbr.Enlarge(pos)
			enlargement := enlarged.Area() - k.mbr.Area()
			switch {
			case bestIdx < 0 || enlargement < bestEnlargement:
				bestIdx, bestEnlargement = i, enlargement
			case enlargement == bestEnlargement && k.mbr.Area() < n.kids[bestIdx].mbr.Area():
				bestIdx = i
			}
		}
		n = n.kids[bestIdx].child
	}
	return n
}

// findLeaf returns the leaf holding an entry for nodeID, or nil.
func (t *Tree) findLeaf(n *treeNode, nodeID uuid.UUID) *treeNode {
	if n.isLeaf {
		if n.findEntry(nodeID) >= 0 {
			return n
		}
		return nil
	}
	for _, k := range n.kids {
		if found := t.findLeaf(k.child, nodeID); found != nil {
			return found
		}
	}
	return nil
}

// adjustTree propagates an MBR change (and, if newNode is non-nil, a
// just-performed split) from node up to the root, splitting ancestors
// as needed.
func (t *Tree) adjustTree(n *treeNode, newNode *treeNode) {
	if n == t.root {
		if newNode != nil {
			newRoot := newInternal(n.level + 1)
			newRoot.addChild(childRef{mbr: n.mbr(), child: n})
			newRoot.addChild(childRef{mbr: newNode.mbr(), child: newNode})
			t.root = newRoot
		}
		return
	}

	parent := n.parent
	parent.updateChildMBR(n)

	if newNode == nil {
		t.adjustTree(parent, nil)
		return
	}

	parent.addChild(childRef{mbr: newNode.mbr(), child: newNode})
	if parent.isFull(t.maxEntries) {
		p, pNew := t.splitNode(parent)
		t.adjustTree(p, pNew)
	} else {
		t.adjustTree(parent, nil)
	}
}

// condenseTree walks up from leaf, detaching any ancestor that has
// become underfull and queuing its surviving entries for reinsertion.
func (t *Tree) condenseTree(leaf *treeNode) {
	type orphan struct {
		e     *entry
		child *treeNode
	}
	var orphans []orphan

	current := leaf
	for current != t.root {
		parent := current.parent

		if current.isUnderfull(t.minEntries) {
			if i := parent.findChildIndex(current); i >= 0 {
				parent.removeChildAt(i)
			}
			if current.isLeaf {
				for i := range current.entries {
					orphans = append(orphans, orphan{e: &current.entries[i]})
				}
			} else {
				for i := range current.kids {
					orphans = append(orphans, orphan{child: current.kids[i].child})
				}
			}
		} else {
			parent.updateChildMBR(current)
		}

		current = parent
	}

	for _, o := range orphans {
		switch {
		case o.e != nil:
			if pos, ok := t.positions[o.e.nodeID]; ok {
				t.reinsertEntry(pos, o.e.nodeID)
			}
		case o.child != nil:
			t.reinsertSubtree(o.child)
		}
	}
}

func (t *Tree) reinsertSubtree(n *treeNode) {
	if n.isLeaf {
		for _, e := range n.entries {
			if pos, ok := t.positions[e.nodeID]; ok {
				t.reinsertEntry(pos, e.nodeID)
			}
		}
		return
	}
	for _, k := range n.kids {
		t.reinsertSubtree(k.child)
	}
}

// reinsertEntry re-attaches an already-counted node id detached from
// the tree during condenseTree, without touching size or positions
// (both remain valid for a node that was relocated, not removed).
func (t *Tree) reinsertEntry(pos coordinate.Position, nodeID uuid.UUID) {
	e := entry{mbr: coordinate.FromPosition(pos), nodeID: nodeID}
	leaf := t.chooseLeaf(pos)
	leaf.addEntry(e)

	if leaf.isFull(t.maxEntries) {
		node, newNode := t.splitNode(leaf)
		t.adjustTree(node, newNode)
	} else {
		t.adjustTree(leaf, nil)
	}
}

package spatial

import (
	"bytes"
	"container/heap"
	"math"

	"github.com/google/uuid"

	"github.com/orneryd/cylindb/pkg/coordinate"
)

// Neighbor is one result of a k-nearest-neighbors search.
type Neighbor struct {
	NodeID   uuid.UUID
	Distance float64
}

// candidateHeap is a max-heap over Neighbor.Distance, used to hold the
// current best-k leaf candidates during NearestNeighbors so the
// furthest one can be evicted in O(log k) when a closer entry appears.
// Mirrors rtree_impl.py's use of heapq with negated distances for the
// same purpose.
type candidateHeap []Neighbor

func (h candidateHeap) Len() int { return len(h) }
func (h candidateHeap) Less(i, j int) bool {
	if h[i].Distance != h[j].Distance {
		return h[i].Distance > h[j].Distance
	}
	// spec.md §8 invariant 8: ties broken deterministically by id. The
	// heap root holds the worst (evict-first) candidate, so among equal
	// distances the larger id sorts as "worse" and is evicted first,
	// leaving the smaller id in the result.
	return compareID(h[i].NodeID, h[j].NodeID) > 0
}
func (h candidateHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *candidateHeap) Push(x interface{}) { *h = append(*h, x.(Neighbor)) }
func (h *candidateHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// compareID orders two node ids deterministically: -1 if a < b, 0 if
// equal, 1 if a > b.
func compareID(a, b uuid.UUID) int {
	return bytes.Compare(a[:], b[:])
}

// NearestNeighbors returns up to k indexed node ids closest to pos,
// ordered nearest first. Grounded on rtree_impl.py's
// nearest_neighbors/_nearest_neighbors_recursive: a branch-and-bound
// descent that visits child subtrees in order of their MBR's minimum
// possible distance to pos, pruning any subtree whose minimum distance
// already exceeds the k-th best candidate found so far.
func (t *Tree) NearestNeighbors(pos coordinate.Position, k int) []Neighbor {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if k <= 0 {
		return nil
	}

	cands := &candidateHeap{}
	heap.Init(cands)
	maxDist := math.Inf(1)

	t.nearestNeighborsRecursive(t.root, pos, k, cands, &maxDist)

	result := make([]Neighbor, len(*cands))
	copy(result, *cands)
	// cands is a max-heap ordered by Less (furthest-first internally);
	// sort ascending by distance for the caller.
	for i := 0; i < len(result); i++ {
		for j := i + 1; j < len(result); j++ {
			swap := result[j].Distance < result[i].Distance ||
				(result[j].Distance == result[i].Distance && compareID(result[j].NodeID, result[i].NodeID) < 0)
			if swap {
				result[i], result[j] = result[j], result[i]
			}
		}
	}
	return result
}

func (t *Tree) nearestNeighborsRecursive(n *treeNode, pos coordinate.Position, k int, cands *candidateHeap, maxDist *float64) {
	if n.isLeaf {
		for _, e := range n.entries {
			entryPos, ok := t.positions[e.nodeID]
			if !ok {
				continue
			}
			dist := coordinate.WeightedDistance(pos, entryPos, t.weights)

			if cands.Len() < k {
				heap.Push(cands, Neighbor{NodeID: e.nodeID, Distance: dist})
				if cands.Len() == k {
					*maxDist = (*cands)[0].Distance
				}
			} else {
				top := (*cands)[0]
				replace := dist < top.Distance || (dist == top.Distance && compareID(e.nodeID, top.NodeID) < 0)
				if replace {
					heap.Pop(cands)
					heap.Push(cands, Neighbor{NodeID: e.nodeID, Distance: dist})
					*maxDist = (*cands)[0].Distance
				}
			}
		}
		return
	}

	type scored struct {
		minDist float64
		child   *treeNode
	}
	scoredKids := make([]scored, len(n.kids))
	for i, kid := range n.kids {
		scoredKids[i] = scored{minDist: kid.mbr.MinDistance(pos, t.weights), child: kid.child}
	}
	for i := 1; i < len(scoredKids); i++ {
		for j := i; j > 0 && scoredKids[j].minDist < scoredKids[j-1].minDist; j-- {
			scoredKids[j], scoredKids[j-1] = scoredKids[j-1], scoredKids[j]
		}
	}

	for _, sk := range scoredKids {
		if sk.minDist > *maxDist && cands.Len() == k {
			break
		}
		t.nearestNeighborsRecursive(sk.child, pos, k, cands, maxDist)
	}
}

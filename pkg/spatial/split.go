package spatial

import "math"

// splitNode implements the quadratic split algorithm: pick the pair of
// slots that would waste the most area if kept together as seeds for
// the two resulting nodes, then repeatedly assign whichever remaining
// slot has the largest preference for one group over the other, falling
// back to a straight dump into whichever group is at risk of
// underflowing. Grounded on rtree_impl.py's _split_node/_pick_seeds/
// _pick_next.
func (t *Tree) splitNode(n *treeNode) (*treeNode, *treeNode) {
	newNode := &treeNode{level: n.level, isLeaf: n.isLeaf}

	if n.isLeaf {
		all := n.entries
		n.entries = nil

		i, j := pickSeedEntries(all)
		n.addEntry(all[i])
		newNode.addEntry(all[j])
		remaining := removeEntryIndices(all, i, j)

		for len(remaining) > 0 {
			if n.count()+len(remaining) <= t.minEntries {
				for _, e := range remaining {
					n.addEntry(e)
				}
				break
			}
			if newNode.count()+len(remaining) <= t.minEntries {
				for _, e := range remaining {
					newNode.addEntry(e)
				}
				break
			}
			idx, toFirst := pickNextEntry(remaining, n, newNode)
			if toFirst {
				n.addEntry(remaining[idx])
			} else {
				newNode.addEntry(remaining[idx])
			}
			remaining = append(remaining[:idx], remaining[idx+1:]...)
		}
		return n, newNode
	}

	all := n.kids
	n.kids = nil

	i, j := pickSeedChildren(all)
	n.addChild(all[i])
	newNode.addChild(all[j])
	remaining := removeChildIndices(all, i, j)

	for len(remaining) > 0 {
		if n.count()+len(remaining) <= t.minEntries {
			for _, c := range remaining {
				n.addChild(c)
			}
			break
		}
		if newNode.count()+len(remaining) <= t.minEntries {
			for _, c := range remaining {
				newNode.addChild(c)
			}
			break
		}
		idx, toFirst := pickNextChild(remaining, n, newNode)
		if toFirst {
			n.addChild(remaining[idx])
		} else {
			newNode.addChild(remaining[idx])
		}
		remaining = append(remaining[:idx], remaining[idx+1:]...)
	}
	return n, newNode
}

func removeEntryIndices(all []entry, i, j int) []entry {
	out := make([]entry, 0, len(all)-2)
	for k, e := range all {
		if k == i || k == j {
			continue
		}
		out = append(out, e)
	}
	return out
}

func removeChildIndices(all []childRef, i, j int) []childRef {
	out := make([]childRef, 0, len(all)-2)
	for k, c := range all {
		if k == i || k == j {
			continue
		}
		out = append(out, c)
	}
	return out
}

func pickSeedEntries(all []entry) (int, int) {
	maxWaste := negInf
	bi, bj := 0, 1
	for i := 0; i < len(all); i++ {
		for j := i + 1; j < len(all); j++ {
			merged := all[i].mbr.Merge(all[j].mbr)
			waste := merged.Area() - all[i].mbr.Area() - all[j].mbr.Area()
			if waste > maxWaste {
				maxWaste, bi, bj = waste, i, j
			}
		}
	}
	return bi, bj
}

func pickSeedChildren(all []childRef) (int, int) {
	maxWaste := negInf
	bi, bj := 0, 1
	for i := 0; i < len(all); i++ {
		for j := i + 1; j < len(all); j++ {
			merged := all[i].mbr.Merge(all[j].mbr)
			waste := merged.Area() - all[i].mbr.Area() - all[j].mbr.Area()
			if waste > maxWaste {
				maxWaste, bi, bj = waste, i, j
			}
		}
	}
	return bi, bj
}

// pickNextEntry returns the index (within remaining) of the entry with
// the greatest difference in enlargement between node1 and node2, and
// whether it prefers node1.
func pickNextEntry(remaining []entry, node1, node2 *treeNode) (int, bool) {
	mbr1, mbr2 := node1.mbr(), node2.mbr()
	maxDiff := negInf
	best := 0
	preferFirst := true
	for i, e := range remaining {
		enl1 := mbr1.Merge(e.mbr).Area() - mbr1.Area()
		enl2 := mbr2.Merge(e.mbr).Area() - mbr2.Area()
		diff := absFloat(enl1 - enl2)
		if diff > maxDiff {
			maxDiff = diff
			best = i
			preferFirst = enl1 < enl2
		}
	}
	return best, preferFirst
}

func pickNextChild(remaining []childRef, node1, node2 *treeNode) (int, bool) {
	mbr1, mbr2 := node1.mbr(), node2.mbr()
	maxDiff := negInf
	best := 0
	preferFirst := true
	for i, c := range remaining {
		enl1 := mbr1.Merge(c.mbr).Area() - mbr1.Area()
		enl2 := mbr2.Merge(c.mbr).Area() - mbr2.Area()
		diff := absFloat(enl1 - enl2)
		if diff > maxDiff {
			maxDiff = diff
			best = i
			preferFirst = enl1 < enl2
		}
	}
	return best, preferFirst
}

var negInf = math.Inf(-1)

func absFloat(f float64) float64 {
	return math.Abs(f)
}

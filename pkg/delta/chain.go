package delta

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/orneryd/cylindb/pkg/cylindb"
	"github.com/orneryd/cylindb/pkg/node"
)

// Chain manages the delta records for one node: an origin snapshot,
// an append-only record set, a time-sorted index, and sparse
// checkpoints. Grounded on original_source/src/delta/chain.py's
// DeltaChain, translated from its dict/list indices to Go maps and
// slices.
type Chain struct {
	mu sync.RWMutex

	nodeID          uuid.UUID
	originContent   node.Content
	originTimestamp float64

	records     map[uuid.UUID]Record
	headID      *uuid.UUID
	byTime      []uuid.UUID // delta IDs sorted by timestamp
	checkpoints map[float64]node.Content
}

// NewChain creates a chain rooted at originContent/originTimestamp.
func NewChain(nodeID uuid.UUID, originContent node.Content, originTimestamp float64) *Chain {
	return &Chain{
		nodeID:          nodeID,
		originContent:   cloneContent(originContent),
		originTimestamp: originTimestamp,
		records:         make(map[uuid.UUID]Record),
		checkpoints:     make(map[float64]node.Content),
	}
}

// Append adds a delta to the chain. Empty (non-checkpoint) records
// are silently skipped (spec.md §4.5). The record's PreviousDeltaID
// must match the current head, or ErrInvariantViolation is returned.
func (c *Chain) Append(r Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if r.NodeID != c.nodeID {
		return fmt.Errorf("%w: delta is for a different node", cylindb.ErrInvariantViolation)
	}
	if r.IsEmpty() {
		return nil
	}
	if c.headID != nil {
		if r.PreviousDeltaID == nil || *r.PreviousDeltaID != *c.headID {
			return fmt.Errorf("%w: delta does not link to head of chain", cylindb.ErrInvariantViolation)
		}
	}

	c.records[r.DeltaID] = r
	idx := sort.Search(len(c.byTime), func(i int) bool {
		return c.records[c.byTime[i]].Timestamp > r.Timestamp
	})
	c.byTime = append(c.byTime, uuid.UUID{})
	copy(c.byTime[idx+1:], c.byTime[idx:])
	c.byTime[idx] = r.DeltaID

	head := r.DeltaID
	c.headID = &head
	return nil
}

// ContentAt reconstructs content at timestamp, per spec.md §4.6's
// reconstruct_at: origin if timestamp <= originTimestamp, else the
// latest checkpoint <= timestamp as base, with deltas in
// (checkpointTime, timestamp] applied in chronological order.
func (c *Chain) ContentAt(timestamp float64) node.Content {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.contentAtLocked(timestamp)
}

func (c *Chain) contentAtLocked(timestamp float64) node.Content {
	if timestamp <= c.originTimestamp {
		return cloneContent(c.originContent)
	}
	if snap, ok := c.checkpoints[timestamp]; ok {
		return cloneContent(snap)
	}

	baseTime := c.originTimestamp
	content := cloneContent(c.originContent)
	for t, snap := range c.checkpoints {
		if t <= timestamp && t > baseTime {
			baseTime = t
			content = cloneContent(snap)
		}
	}

	for _, id := range c.deltaIDsInRangeLocked(baseTime, timestamp) {
		content = c.records[id].Apply(content)
	}
	return content
}

// LatestContent returns the content after applying every delta.
func (c *Chain) LatestContent() node.Content {
	return c.ContentAt(math.Inf(1))
}

// deltaIDsInRangeLocked returns delta IDs with start < timestamp <= end,
// in chronological order. Caller holds the lock.
func (c *Chain) deltaIDsInRangeLocked(start, end float64) []uuid.UUID {
	var out []uuid.UUID
	for _, id := range c.byTime {
		t := c.records[id].Timestamp
		if t > start && t <= end {
			out = append(out, id)
		}
	}
	return out
}

// RecordByID returns a specific delta, if present.
func (c *Chain) RecordByID(id uuid.UUID) (Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.records[id]
	return r, ok
}

// Checkpoint reconstructs state at timestamp and stores it as a full
// snapshot. Rejects timestamps before the origin (spec.md §4.6).
func (c *Chain) Checkpoint(timestamp float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if timestamp < c.originTimestamp {
		return fmt.Errorf("%w: checkpoint before origin", cylindb.ErrInvariantViolation)
	}
	content := c.contentAtLocked(timestamp)
	c.checkpoints[timestamp] = content
	return nil
}

// CheckpointContent returns the snapshot stored at timestamp, if a
// checkpoint exists there.
func (c *Chain) CheckpointContent(timestamp float64) (node.Content, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap, ok := c.checkpoints[timestamp]
	if !ok {
		return nil, false
	}
	return cloneContent(snap), true
}

// Compact merges adjacent records whose combined operation count is
// <= maxOps into a single record carrying the later timestamp and the
// earlier record's PreviousDeltaID, re-parenting the following
// record's PreviousDeltaID. Checkpoint records are never merged.
// Grounded on chain.py's compact.
func (c *Chain) Compact(maxOps int) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for {
		mergedAny := false
		for i := 0; i < len(c.byTime)-1; i++ {
			curID, nextID := c.byTime[i], c.byTime[i+1]
			cur, next := c.records[curID], c.records[nextID]
			if cur.IsCheckpoint() || next.IsCheckpoint() {
				continue
			}
			if len(cur.Operations)+len(next.Operations) > maxOps {
				continue
			}

			merged := Record{
				DeltaID:         nextID,
				NodeID:          c.nodeID,
				Timestamp:       next.Timestamp,
				Operations:      append(append([]Op{}, cur.Operations...), next.Operations...),
				PreviousDeltaID: cur.PreviousDeltaID,
				Metadata: map[string]any{
					"merged":          true,
					"merged_delta_ids": []uuid.UUID{curID, nextID},
				},
			}
			c.records[nextID] = merged
			delete(c.records, curID)
			c.byTime = append(c.byTime[:i], c.byTime[i+1:]...)
			if c.headID != nil && *c.headID == curID {
				c.headID = &nextID
			}
			removed++
			mergedAny = true
			break
		}
		if !mergedAny {
			break
		}
	}
	return removed
}

// Prune removes every record with timestamp <= cutoff, after
// materializing a checkpoint at cutoff and advancing the origin to
// it. Requires cutoff > originTimestamp (spec.md §4.6).
func (c *Chain) Prune(cutoff float64) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cutoff <= c.originTimestamp {
		return 0, fmt.Errorf("%w: prune cutoff must exceed origin timestamp", cylindb.ErrInvariantViolation)
	}
	snapshot := c.contentAtLocked(cutoff)
	c.checkpoints[cutoff] = snapshot

	toRemove := c.deltaIDsInRangeLocked(c.originTimestamp, cutoff)
	removeSet := make(map[uuid.UUID]bool, len(toRemove))
	for _, id := range toRemove {
		removeSet[id] = true
		delete(c.records, id)
	}
	kept := c.byTime[:0:0]
	for _, id := range c.byTime {
		if !removeSet[id] {
			kept = append(kept, id)
		}
	}
	c.byTime = kept

	c.originContent = snapshot
	c.originTimestamp = cutoff

	for t := range c.checkpoints {
		if t < cutoff {
			delete(c.checkpoints, t)
		}
	}

	if c.headID != nil && removeSet[*c.headID] {
		if len(c.byTime) > 0 {
			last := c.byTime[len(c.byTime)-1]
			c.headID = &last
		} else {
			c.headID = nil
		}
	}

	return len(toRemove), nil
}

// Len returns the number of records currently held in the chain.
func (c *Chain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// AllDeltaIDs returns every delta ID in chronological order.
func (c *Chain) AllDeltaIDs() []uuid.UUID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]uuid.UUID, len(c.byTime))
	copy(out, c.byTime)
	return out
}

// HeadID returns the most recently appended delta's ID, if any.
func (c *Chain) HeadID() (uuid.UUID, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.headID == nil {
		return uuid.UUID{}, false
	}
	return *c.headID, true
}

// OriginTimestamp returns the chain's current origin timestamp.
func (c *Chain) OriginTimestamp() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.originTimestamp
}

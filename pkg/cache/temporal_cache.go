package cache

import (
	"sync"

	"github.com/google/uuid"

	"github.com/orneryd/cylindb/pkg/node"
	"github.com/orneryd/cylindb/pkg/temporal"
)

// DefaultTimeDistanceCap is how far (in the domain's t units) a node
// outside the current window can be before its temporal relevance
// bottoms out at 0, mirroring original_source/src/storage/cache.py's
// 30-day cap -- generalized to an abstract t unit since this store's
// time axis isn't wall-clock seconds.
const DefaultTimeDistanceCap = 30.0

// temporalEntry is one node tracked by TemporalAwareCache: the node
// itself, the access sequence number it was last touched at (used for
// the recency component), and its last computed score.
type temporalEntry struct {
	n            *node.Node
	lastAccessAt uint64
	score        float64
}

// TemporalAwareCache prioritizes nodes whose t coordinate falls inside
// a caller-set window of interest, scoring each entry as
// timeWeight*temporalRelevance + (1-timeWeight)*recency and evicting
// the lowest-scoring entry when full. Grounded on
// original_source/src/storage/cache.py's TemporalAwareCache.
type TemporalAwareCache struct {
	mu sync.RWMutex

	maxSize    int
	timeWeight float64
	distCap    float64
	window     *temporal.TimeRange

	entries map[uuid.UUID]*temporalEntry
	// bucket buckets entries by floor(t), mirroring the Python
	// original's exact-datetime temporal_index but coarsened to an
	// integer bucket so InvalidateTimeRange doesn't need an exact
	// timestamp match.
	bucket map[int64]map[uuid.UUID]struct{}

	accessCounter uint64
}

// NewTemporalAwareCache creates a temporal-aware cache. timeWeight is
// clamped to [0,1].
func NewTemporalAwareCache(maxSize int, timeWeight float64) *TemporalAwareCache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	if timeWeight < 0 {
		timeWeight = 0
	}
	if timeWeight > 1 {
		timeWeight = 1
	}
	return &TemporalAwareCache{
		maxSize:    maxSize,
		timeWeight: timeWeight,
		distCap:    DefaultTimeDistanceCap,
		entries:    make(map[uuid.UUID]*temporalEntry),
		bucket:     make(map[int64]map[uuid.UUID]struct{}),
	}
}

// SetTimeWindow sets the current window of interest and rescales
// every cached entry's score against it.
func (c *TemporalAwareCache) SetTimeWindow(lo, hi float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.window = &temporal.TimeRange{Lo: lo, Hi: hi}
	for _, e := range c.entries {
		e.score = c.scoreLocked(e.n, e.lastAccessAt)
	}
}

func (c *TemporalAwareCache) temporalRelevanceLocked(t float64) float64 {
	if c.window == nil {
		return 0
	}
	if t >= c.window.Lo && t <= c.window.Hi {
		return 1
	}
	var dist float64
	if t < c.window.Lo {
		dist = c.window.Lo - t
	} else {
		dist = t - c.window.Hi
	}
	if dist >= c.distCap {
		return 0
	}
	return 1 - dist/c.distCap
}

func (c *TemporalAwareCache) scoreLocked(n *node.Node, lastAccessAt uint64) float64 {
	relevance := c.temporalRelevanceLocked(n.Position.T)
	var recency float64
	if c.accessCounter > 0 {
		recency = 1 - float64(c.accessCounter-lastAccessAt)/float64(c.accessCounter)
	}
	return c.timeWeight*relevance + (1-c.timeWeight)*recency
}

func bucketOf(t float64) int64 {
	return int64(t)
}

func (c *TemporalAwareCache) indexLocked(id uuid.UUID, t float64) {
	b := bucketOf(t)
	if c.bucket[b] == nil {
		c.bucket[b] = make(map[uuid.UUID]struct{})
	}
	c.bucket[b][id] = struct{}{}
}

func (c *TemporalAwareCache) unindexLocked(id uuid.UUID, t float64) {
	b := bucketOf(t)
	set, ok := c.bucket[b]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(c.bucket, b)
	}
}

// Get returns the cached node, refreshing its recency score on a hit.
func (c *TemporalAwareCache) Get(id uuid.UUID) (*node.Node, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.accessCounter++
	e, ok := c.entries[id]
	if !ok {
		return nil, false
	}
	e.lastAccessAt = c.accessCounter
	e.score = c.scoreLocked(e.n, e.lastAccessAt)
	return e.n, true
}

// Put adds a node, evicting the lowest-scoring entry if the cache is
// at capacity.
func (c *TemporalAwareCache) Put(n *node.Node) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.accessCounter++
	if existing, ok := c.entries[n.ID]; ok {
		c.unindexLocked(n.ID, existing.n.Position.T)
	}

	e := &temporalEntry{n: n, lastAccessAt: c.accessCounter}
	e.score = c.scoreLocked(n, e.lastAccessAt)
	c.entries[n.ID] = e
	c.indexLocked(n.ID, n.Position.T)

	if len(c.entries) > c.maxSize {
		c.evictLowestLocked()
	}
}

func (c *TemporalAwareCache) evictLowestLocked() {
	var worstID uuid.UUID
	worstScore := 0.0
	first := true
	for id, e := range c.entries {
		if first || e.score < worstScore {
			worstID, worstScore, first = id, e.score, false
		}
	}
	if !first {
		c.removeLocked(worstID)
	}
}

func (c *TemporalAwareCache) removeLocked(id uuid.UUID) {
	e, ok := c.entries[id]
	if !ok {
		return
	}
	c.unindexLocked(id, e.n.Position.T)
	delete(c.entries, id)
}

// Invalidate removes a node from the cache.
func (c *TemporalAwareCache) Invalidate(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(id)
}

// InvalidateTimeRange removes every cached node whose t coordinate
// falls within [lo, hi], returning the count removed.
func (c *TemporalAwareCache) InvalidateTimeRange(lo, hi float64) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var toRemove []uuid.UUID
	for b, ids := range c.bucket {
		if float64(b) < lo-1 || float64(b) > hi+1 {
			continue
		}
		for id := range ids {
			t := c.entries[id].n.Position.T
			if t >= lo && t <= hi {
				toRemove = append(toRemove, id)
			}
		}
	}
	for _, id := range toRemove {
		c.removeLocked(id)
	}
	return len(toRemove)
}

// Clear empties the cache.
func (c *TemporalAwareCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[uuid.UUID]*temporalEntry)
	c.bucket = make(map[int64]map[uuid.UUID]struct{})
	c.accessCounter = 0
}

// Size returns the current number of cached nodes.
func (c *TemporalAwareCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

package cache

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/orneryd/cylindb/pkg/node"
	"github.com/orneryd/cylindb/pkg/temporal"
)

// FrequencyBucketRetention bounds how long an hourly access bucket is
// kept before it stops contributing to an entry's frequency score.
const FrequencyBucketRetention = 7 * 24 * time.Hour

// frequencyEntry tracks a node plus the wall-clock access buckets used
// for its frequency component, distinct from TemporalAwareCache's
// domain-time (t coordinate) relevance.
type frequencyEntry struct {
	n            *node.Node
	lastAccessAt uint64
	buckets      map[int64]int // hour-floor(unix seconds) -> access count
	score        float64
}

// TemporalFrequencyCache scores each entry as
// timeWeight*temporalRelevance + frequencyWeight*frequency +
// recencyWeight*recency, where frequency comes from real wall-clock
// access buckets rather than domain time. Grounded on the scoring
// shape of original_source/src/storage/cache.py's TemporalAwareCache,
// generalized with a frequency term the Python original doesn't have
// but spec.md §4.8 names as a distinct cache layer.
type TemporalFrequencyCache struct {
	mu sync.RWMutex

	maxSize         int
	timeWeight      float64
	frequencyWeight float64
	recencyWeight   float64
	distCap         float64
	window          *temporal.TimeRange

	entries       map[uuid.UUID]*frequencyEntry
	accessCounter uint64

	now func() time.Time
}

// NewTemporalFrequencyCache creates a cache whose three weights sum to
// 1 in the common case but are not required to; each is clamped to
// [0,1] independently and applied as given.
func NewTemporalFrequencyCache(maxSize int, timeWeight, frequencyWeight, recencyWeight float64) *TemporalFrequencyCache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	clamp := func(w float64) float64 {
		if w < 0 {
			return 0
		}
		if w > 1 {
			return 1
		}
		return w
	}
	return &TemporalFrequencyCache{
		maxSize:         maxSize,
		timeWeight:      clamp(timeWeight),
		frequencyWeight: clamp(frequencyWeight),
		recencyWeight:   clamp(recencyWeight),
		distCap:         DefaultTimeDistanceCap,
		entries:         make(map[uuid.UUID]*frequencyEntry),
		now:             time.Now,
	}
}

// SetTimeWindow sets the current domain-time window of interest and
// rescales every cached entry.
func (c *TemporalFrequencyCache) SetTimeWindow(lo, hi float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.window = &temporal.TimeRange{Lo: lo, Hi: hi}
	for _, e := range c.entries {
		e.score = c.scoreLocked(e)
	}
}

func (c *TemporalFrequencyCache) temporalRelevanceLocked(t float64) float64 {
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

func hourBucket(ts time.Time) int64 {
	return ts.Unix() / int64(time.Hour/time.Second)
}

func (c *TemporalFrequencyCache) pruneBucketsLocked(e *frequencyEntry) {
	cutoff := hourBucket(c.now().Add(-FrequencyBucketRetention))
	for b := range e.buckets {
		if b < cutoff {
			delete(e.buckets, b)
		}
	}
}

func (c *TemporalFrequencyCache) frequencyScoreLocked(e *frequencyEntry) float64 {
	c.pruneBucketsLocked(e)
	total := 0
	for _, n := range e.buckets {
		total += n
	}
	if total == 0 {
		return 0
	}
	// Diminishing returns: a handful of accesses already saturates
	// most of the score.
	score := 1 - 1/(1+float64(total)/5)
	if score > 1 {
		return 1
	}
	return score
}

func (c *TemporalFrequencyCache) scoreLocked(e *frequencyEntry) float64 {
	relevance := c.temporalRelevanceLocked(e.n.Position.T)
	frequency := c.frequencyScoreLocked(e)
	var recency float64
	if c.accessCounter > 0 {
		recency = 1 - float64(c.accessCounter-e.lastAccessAt)/float64(c.accessCounter)
	}
	return c.timeWeight*relevance + c.frequencyWeight*frequency + c.recencyWeight*recency
}

func (c *TemporalFrequencyCache) touchLocked(e *frequencyEntry) {
	b := hourBucket(c.now())
	if e.buckets == nil {
		e.buckets = make(map[int64]int)
	}
	e.buckets[b]++
	c.accessCounter++
	e.lastAccessAt = c.accessCounter
	e.score = c.scoreLocked(e)
}

// Get returns the cached node, recording an access for the frequency
// score on a hit.
func (c *TemporalFrequencyCache) Get(id uuid.UUID) (*node.Node, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	if !ok {
		return nil, false
	}
	c.touchLocked(e)
	return e.n, true
}

// Put adds a node, evicting the lowest-scoring entry if the cache is
// at capacity.
func (c *TemporalFrequencyCache) Put(n *node.Node) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[n.ID]
	if !ok {
		e = &frequencyEntry{n: n, buckets: make(map[int64]int)}
		c.entries[n.ID] = e
	} else {
		e.n = n
	}
	c.touchLocked(e)

	if len(c.entries) > c.maxSize {
		c.evictLowestLocked()
	}
}

func (c *TemporalFrequencyCache) evictLowestLocked() {
	var worstID uuid.UUID
	worstScore := 0.0
	first := true
	for id, e := range c.entries {
		if first || e.score < worstScore {
			worstID, worstScore, first = id, e.score, false
		}
	}
	if !first {
		delete(c.entries, worstID)
	}
}

// Invalidate removes a node from the cache.
func (c *TemporalFrequencyCache) Invalidate(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}

// Clear empties the cache.
func (c *TemporalFrequencyCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[uuid.UUID]*frequencyEntry)
	c.accessCounter = 0
}

// Size returns the current number of cached nodes.
func (c *TemporalFrequencyCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

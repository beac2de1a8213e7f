package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemporalFrequencyCachePutGet(t *testing.T) {
	c := NewTemporalFrequencyCache(10, 0.3, 0.4, 0.3)
	n := newTestNode(1)
	c.Put(n)

	got, ok := c.Get(n.ID)
	require.True(t, ok)
	assert.Equal(t, n.ID, got.ID)
}

func TestTemporalFrequencyCacheEvictsLowestScoring(t *testing.T) {
	c := NewTemporalFrequencyCache(1, 0, 1, 0) // frequency-only scoring
	n1 := newTestNode(1)
	n2 := newTestNode(2)

	c.Put(n1)
	// access n1 repeatedly so its frequency score is well above n2's
	for i := 0; i < 10; i++ {
		c.Get(n1.ID)
	}
	c.Put(n2) // over capacity: one of the two must be evicted

	// n2 was just inserted with one access bucket, n1 has many; n1
	// should survive since its frequency score is higher.
	_, ok := c.Get(n1.ID)
	assert.True(t, ok)
}

func TestTemporalFrequencyCachePrunesOldBuckets(t *testing.T) {
	c := NewTemporalFrequencyCache(10, 0, 1, 0)
	fakeNow := time.Now()
	c.now = func() time.Time { return fakeNow }

	n := newTestNode(1)
	c.Put(n)

	// advance time well beyond the retention window
	c.now = func() time.Time { return fakeNow.Add(FrequencyBucketRetention + time.Hour) }
	c.Get(n.ID) // touches and prunes

	c.mu.Lock()
	e := c.entries[n.ID]
	bucketsRemaining := len(e.buckets)
	c.mu.Unlock()

	// the old bucket should have been pruned, leaving only the fresh one
	assert.Equal(t, 1, bucketsRemaining)
}

func TestTemporalFrequencyCacheInvalidateAndClear(t *testing.T) {
	c := NewTemporalFrequencyCache(10, 0.3, 0.3, 0.4)
	n := newTestNode(1)
	c.Put(n)

	c.Invalidate(n.ID)
	_, ok := c.Get(n.ID)
	assert.False(t, ok)

	c.Put(n)
	assert.Equal(t, 1, c.Size())
	c.Clear()
	assert.Equal(t, 0, c.Size())
}

package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemporalAwareCachePutGet(t *testing.T) {
	c := NewTemporalAwareCache(10, 0.5)
	c.SetTimeWindow(0, 10)

	n := newTestNode(5)
	c.Put(n)

	got, ok := c.Get(n.ID)
	require.True(t, ok)
	assert.Equal(t, n.ID, got.ID)
}

func TestTemporalAwareCacheEvictsLowestScoring(t *testing.T) {
	c := NewTemporalAwareCache(2, 1.0) // pure temporal relevance, no recency
	c.SetTimeWindow(0, 10)

	inWindow1 := newTestNode(5)
	inWindow2 := newTestNode(6)
	farOutside := newTestNode(1000) // relevance 0, lowest score

	c.Put(inWindow1)
	c.Put(inWindow2)
	c.Put(farOutside) // should evict one of the two in-window entries? no -- farOutside itself scores lowest

	// farOutside has the lowest score of the three at insertion time,
	// so once capacity (2) is exceeded it should be the one evicted.
	_, ok := c.Get(farOutside.ID)
	assert.False(t, ok)
	_, ok = c.Get(inWindow1.ID)
	assert.True(t, ok)
	_, ok = c.Get(inWindow2.ID)
	assert.True(t, ok)
}

func TestTemporalAwareCacheInvalidateTimeRange(t *testing.T) {
	c := NewTemporalAwareCache(10, 0.5)
	c.SetTimeWindow(0, 100)

	n1 := newTestNode(5)
	n2 := newTestNode(50)
	n3 := newTestNode(500)
	c.Put(n1)
	c.Put(n2)
	c.Put(n3)

	removed := c.InvalidateTimeRange(0, 60)
	assert.Equal(t, 2, removed)

	_, ok := c.Get(n1.ID)
	assert.False(t, ok)
	_, ok = c.Get(n2.ID)
	assert.False(t, ok)
	_, ok = c.Get(n3.ID)
	assert.True(t, ok)
}

func TestTemporalAwareCacheClearAndSize(t *testing.T) {
	c := NewTemporalAwareCache(10, 0.5)
	c.Put(newTestNode(1))
	c.Put(newTestNode(2))
	assert.Equal(t, 2, c.Size())

	c.Clear()
	assert.Equal(t, 0, c.Size())
}

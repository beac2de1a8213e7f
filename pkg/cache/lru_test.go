package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/cylindb/pkg/coordinate"
	"github.com/orneryd/cylindb/pkg/node"
)

func newTestNode(t float64) *node.Node {
	return node.New(node.Content{"v": t}, coordinate.Position{T: t, R: 0, Theta: 0})
}

func TestLRUCacheGetPutHitsAndMisses(t *testing.T) {
	c := NewLRUCache(2)
	n1 := newTestNode(1)

	_, ok := c.Get(n1.ID)
	assert.False(t, ok)

	c.Put(n1)
	got, ok := c.Get(n1.ID)
	require.True(t, ok)
	assert.Equal(t, n1.ID, got.ID)

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
}

func TestLRUCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache(2)
	n1, n2, n3 := newTestNode(1), newTestNode(2), newTestNode(3)

	c.Put(n1)
	c.Put(n2)
	// touch n1 so n2 becomes the least recently used
	c.Get(n1.ID)
	c.Put(n3)

	_, ok := c.Get(n2.ID)
	assert.False(t, ok, "n2 should have been evicted")

	_, ok = c.Get(n1.ID)
	assert.True(t, ok)
	_, ok = c.Get(n3.ID)
	assert.True(t, ok)
}

func TestLRUCacheInvalidateAndClear(t *testing.T) {
	c := NewLRUCache(4)
	n1 := newTestNode(1)
	c.Put(n1)

	c.Invalidate(n1.ID)
	_, ok := c.Get(n1.ID)
	assert.False(t, ok)

	c.Put(n1)
	assert.Equal(t, 1, c.Size())
	c.Clear()
	assert.Equal(t, 0, c.Size())
}

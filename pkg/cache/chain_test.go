package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheChainHoistsHitsIntoEarlierLayers(t *testing.T) {
	l1 := NewLRUCache(10)
	l2 := NewLRUCache(10)
	chain := NewCacheChain(l1, l2)

	n := newTestNode(1)
	l2.Put(n) // only present in the second layer

	got, ok := chain.Get(n.ID)
	require.True(t, ok)
	assert.Equal(t, n.ID, got.ID)

	_, ok = l1.Get(n.ID)
	assert.True(t, ok, "hit should have been hoisted into l1")
}

func TestCacheChainPutFansOutToAllLayers(t *testing.T) {
	l1 := NewLRUCache(10)
	l2 := NewLRUCache(10)
	chain := NewCacheChain(l1, l2)

	n := newTestNode(1)
	chain.Put(n)

	_, ok := l1.Get(n.ID)
	assert.True(t, ok)
	_, ok = l2.Get(n.ID)
	assert.True(t, ok)
}

func TestCacheChainInvalidateAndClearFanOut(t *testing.T) {
	l1 := NewLRUCache(10)
	l2 := NewLRUCache(10)
	chain := NewCacheChain(l1, l2)

	n := newTestNode(1)
	chain.Put(n)
	chain.Invalidate(n.ID)

	_, ok := l1.Get(n.ID)
	assert.False(t, ok)
	_, ok = l2.Get(n.ID)
	assert.False(t, ok)

	chain.Put(n)
	chain.Clear()
	assert.Equal(t, 0, l1.Size())
	assert.Equal(t, 0, l2.Size())
}

func TestCacheChainSizeReportsFirstLayer(t *testing.T) {
	l1 := NewLRUCache(10)
	l2 := NewLRUCache(10)
	chain := NewCacheChain(l1, l2)

	chain.Put(newTestNode(1))
	chain.Put(newTestNode(2))
	assert.Equal(t, chain.Size(), l1.Size())
}

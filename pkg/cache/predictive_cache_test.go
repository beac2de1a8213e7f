package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/cylindb/pkg/node"
)

func TestPredictivePrefetchCacheBasicGetPut(t *testing.T) {
	c := NewPredictivePrefetchCache(10, 2, 0, nil)
	n := newTestNode(1)
	c.Put(n)

	got, ok := c.Get(context.Background(), n.ID)
	require.True(t, ok)
	assert.Equal(t, n.ID, got.ID)
}

func TestPredictivePrefetchCacheLearnsTransitions(t *testing.T) {
	c := NewPredictivePrefetchCache(10, 2, 0, nil)
	a, b := newTestNode(1), newTestNode(2)
	c.Put(a)
	c.Put(b)

	ctx := context.Background()
	c.Get(ctx, a.ID)
	c.Get(ctx, b.ID)
	c.Get(ctx, a.ID)
	c.Get(ctx, b.ID)

	assert.Equal(t, 2, c.TransitionCount(a.ID, b.ID))
}

func TestPredictivePrefetchCachePrefetchesOnThreshold(t *testing.T) {
	a, b := newTestNode(1), newTestNode(2)
	loaded := make(chan struct{}, 1)
	loader := LoaderFunc(func(ctx context.Context, id uuid.UUID) (*node.Node, error) {
		if id == b.ID {
			loaded <- struct{}{}
			return b, nil
		}
		return nil, errors.New("not found")
	})

	c := NewPredictivePrefetchCache(10, 2, 0, loader)
	c.Put(a)

	ctx := context.Background()
	// Observe a -> b twice to cross the prefetch threshold.
	c.Get(ctx, a.ID)
	c.transitions[a.ID] = map[uuid.UUID]int{b.ID: 2}

	c.Get(ctx, a.ID) // should now trigger prefetch of b

	select {
	case <-loaded:
	case <-time.After(time.Second):
		t.Fatal("expected background prefetch of b")
	}

	// The loader signals before returning; the cache Put follows it.
	require.Eventually(t, func() bool {
		_, cached := c.LRUCache.Get(b.ID)
		return cached
	}, time.Second, time.Millisecond)
	got, ok := c.LRUCache.Get(b.ID)
	require.True(t, ok)
	assert.Equal(t, b.ID, got.ID)
}

func TestPredictivePrefetchCachePrefetchesStrongestConnections(t *testing.T) {
	hub := newTestNode(1)
	strong := newTestNode(2)
	weak := newTestNode(3)
	hub.Connections = []node.Connection{
		{TargetID: weak.ID, ConnectionType: "ref", Strength: 0.1},
		{TargetID: strong.ID, ConnectionType: "ref", Strength: 0.9},
	}

	loadedIDs := make(chan uuid.UUID, 2)
	loader := LoaderFunc(func(ctx context.Context, id uuid.UUID) (*node.Node, error) {
		loadedIDs <- id
		if id == strong.ID {
			return strong, nil
		}
		return weak, nil
	})

	c := NewPredictivePrefetchCache(10, 2, 1, loader)
	c.Put(hub)

	_, ok := c.Get(context.Background(), hub.ID)
	require.True(t, ok)

	select {
	case id := <-loadedIDs:
		assert.Equal(t, strong.ID, id)
	case <-time.After(time.Second):
		t.Fatal("expected prefetch of strongest connection")
	}
}

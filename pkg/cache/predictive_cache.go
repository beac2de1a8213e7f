package cache

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/orneryd/cylindb/pkg/node"
)

// Loader fetches a node by id on a cache miss or prefetch, typically
// backed by a store.Store.
type Loader interface {
	Load(ctx context.Context, id uuid.UUID) (*node.Node, error)
}

// LoaderFunc adapts a plain function to Loader.
type LoaderFunc func(ctx context.Context, id uuid.UUID) (*node.Node, error)

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context, id uuid.UUID) (*node.Node, error) {
	return f(ctx, id)
}

// PredictivePrefetchCache wraps an LRUCache and learns which node
// tends to be fetched after which. On a hit for node a immediately
// followed (on a prior observation) by a fetch of node b at least
// prefetchThreshold times, it eagerly loads b in the background. It
// also prefetches a node's strongest connections, using
// node.Connection.Strength to rank candidates -- a feature
// original_source/src/storage/partial_loader.py's
// _prefetch_related_nodes performs without scoring, and that this
// cache performs with an explicit rank cutoff.
type PredictivePrefetchCache struct {
	*LRUCache

	mu                sync.Mutex
	transitions       map[uuid.UUID]map[uuid.UUID]int
	lastAccessed      *uuid.UUID
	prefetchThreshold int
	maxConnections    int

	loader Loader

	prefetchMu sync.Mutex
	inflight   map[uuid.UUID]struct{}
}

// NewPredictivePrefetchCache creates a predictive cache of at most
// maxSize nodes, prefetching a transition once it has been observed
// prefetchThreshold times and prefetching up to maxConnections of a
// node's strongest outgoing connections.
func NewPredictivePrefetchCache(maxSize, prefetchThreshold, maxConnections int, loader Loader) *PredictivePrefetchCache {
	if prefetchThreshold <= 0 {
		prefetchThreshold = 2
	}
	if maxConnections < 0 {
		maxConnections = 0
	}
	return &PredictivePrefetchCache{
		LRUCache:          NewLRUCache(maxSize),
		transitions:       make(map[uuid.UUID]map[uuid.UUID]int),
		prefetchThreshold: prefetchThreshold,
		maxConnections:    maxConnections,
		loader:            loader,
		inflight:          make(map[uuid.UUID]struct{}),
	}
}

// Get records the access in the transition model, returns the cached
// node from the underlying LRU layer, and -- on a hit -- kicks off any
// prefetching the observed access pattern now warrants.
func (c *PredictivePrefetchCache) Get(ctx context.Context, id uuid.UUID) (*node.Node, bool) {
	n, ok := c.LRUCache.Get(id)

	c.mu.Lock()
	prev := c.lastAccessed
	c.lastAccessed = &id
	var candidate uuid.UUID
	var shouldPrefetch bool
	if prev != nil {
		m, exists := c.transitions[*prev]
		if !exists {
			m = make(map[uuid.UUID]int)
			c.transitions[*prev] = m
		}
		m[id]++
	}
	if ok {
		if m, exists := c.transitions[id]; exists {
			for next, count := range m {
				if count >= c.prefetchThreshold {
					candidate, shouldPrefetch = next, true
					break
				}
			}
		}
	}
	c.mu.Unlock()

	if ok && shouldPrefetch {
		c.prefetchAsync(ctx, candidate)
	}
	if ok && c.maxConnections > 0 {
		c.prefetchConnections(ctx, n)
	}
	return n, ok
}

// prefetchConnections loads the top-ranked (by Strength) outgoing
// connections of n that aren't already cached.
func (c *PredictivePrefetchCache) prefetchConnections(ctx context.Context, n *node.Node) {
	if n == nil || len(n.Connections) == 0 {
		return
	}
	conns := make([]node.Connection, len(n.Connections))
	copy(conns, n.Connections)
	sort.Slice(conns, func(i, j int) bool { return conns[i].Strength > conns[j].Strength })

	limit := c.maxConnections
	if limit > len(conns) {
		limit = len(conns)
	}
	for i := 0; i < limit; i++ {
		target := conns[i].TargetID
		if _, cached := c.LRUCache.Get(target); cached {
			continue
		}
		c.prefetchAsync(ctx, target)
	}
}

// prefetchAsync loads id via the configured loader on a background
// goroutine, deduplicating concurrent prefetches of the same id.
func (c *PredictivePrefetchCache) prefetchAsync(ctx context.Context, id uuid.UUID) {
	if c.loader == nil {
		return
	}
	c.prefetchMu.Lock()
	if _, busy := c.inflight[id]; busy {
		c.prefetchMu.Unlock()
		return
	}
	c.inflight[id] = struct{}{}
	c.prefetchMu.Unlock()

	go func() {
		defer func() {
			c.prefetchMu.Lock()
			delete(c.inflight, id)
			c.prefetchMu.Unlock()
		}()
		n, err := c.loader.Load(ctx, id)
		if err != nil || n == nil {
			return
		}
		c.LRUCache.Put(n)
	}()
}

// TransitionCount reports how many times b has been observed
// immediately after a, for diagnostics and tests.
func (c *PredictivePrefetchCache) TransitionCount(a, b uuid.UUID) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transitions[a][b]
}

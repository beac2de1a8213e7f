package cache

import (
	"container/list"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/orneryd/cylindb/pkg/node"
)

// lruEntry is the value stored in the backing list: the node plus the
// key it was filed under, so an evicted list element can remove
// itself from the lookup map.
type lruEntry struct {
	id uuid.UUID
	n  *node.Node
}

// LRUCache is a thread-safe least-recently-used node cache: an O(1)
// lookup map plus a doubly-linked list for recency ordering, matching
// the teacher's query-plan cache structure with the key/value types
// generalized to uuid.UUID/*node.Node and no TTL (spec.md's LRU cache
// has none).
type LRUCache struct {
	mu sync.RWMutex

	maxSize int
	list    *list.List
	items   map[uuid.UUID]*list.Element

	hits   uint64
	misses uint64
}

// NewLRUCache creates an LRU cache holding at most maxSize nodes.
func NewLRUCache(maxSize int) *LRUCache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &LRUCache{
		maxSize: maxSize,
		list:    list.New(),
		items:   make(map[uuid.UUID]*list.Element, maxSize),
	}
}

// Get returns the cached node and moves it to the back (most recently
// used) on a hit.
func (c *LRUCache) Get(id uuid.UUID) (*node.Node, bool) {
	c.mu.Lock()
	elem, ok := c.items[id]
	if !ok {
		c.mu.Unlock()
		atomic.AddUint64(&c.misses, 1)
		return nil, false
	}
	c.list.MoveToBack(elem)
	n := elem.Value.(*lruEntry).n
	c.mu.Unlock()

	atomic.AddUint64(&c.hits, 1)
	return n, true
}

// Put adds or replaces a node, evicting the front (least recently
// used) entry if the cache is at capacity.
func (c *LRUCache) Put(n *node.Node) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[n.ID]; ok {
		elem.Value.(*lruEntry).n = n
		c.list.MoveToBack(elem)
		return
	}

	for c.list.Len() >= c.maxSize {
		c.evictFront()
	}

	elem := c.list.PushBack(&lruEntry{id: n.ID, n: n})
	c.items[n.ID] = elem
}

// Invalidate removes a node from the cache.
func (c *LRUCache) Invalidate(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.items[id]; ok {
		c.removeElement(elem)
	}
}

// Clear empties the cache.
func (c *LRUCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.list.Init()
	c.items = make(map[uuid.UUID]*list.Element, c.maxSize)
}

// Size returns the current number of cached nodes.
func (c *LRUCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.list.Len()
}

// Stats returns hit/miss statistics for this cache.
func (c *LRUCache) Stats() Stats {
	hits := atomic.LoadUint64(&c.hits)
	misses := atomic.LoadUint64(&c.misses)
	c.mu.RLock()
	size := c.list.Len()
	c.mu.RUnlock()
	return Stats{Size: size, MaxSize: c.maxSize, Hits: hits, Misses: misses, HitRate: hitRate(hits, misses)}
}

// evictFront removes the least recently used entry. Caller must hold the lock.
func (c *LRUCache) evictFront() {
	elem := c.list.Front()
	if elem != nil {
		c.removeElement(elem)
	}
}

// removeElement removes an element from both the list and the lookup
// map. Caller must hold the lock.
func (c *LRUCache) removeElement(elem *list.Element) {
	c.list.Remove(elem)
	delete(c.items, elem.Value.(*lruEntry).id)
}

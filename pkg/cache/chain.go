package cache

import (
	"github.com/google/uuid"

	"github.com/orneryd/cylindb/pkg/node"
)

// CacheChain tries each layer in order on Get, hoisting a hit back
// into every earlier (presumably faster/smaller) layer it missed in,
// and fans Put/Invalidate/Clear out to every layer. Grounded on
// original_source/src/storage/cache.py's CacheChain.
type CacheChain struct {
	layers []Cache
}

// NewCacheChain builds a chain over layers, ordered fastest/smallest
// first.
func NewCacheChain(layers ...Cache) *CacheChain {
	return &CacheChain{layers: layers}
}

// Get tries each layer in order, returning the first hit and
// populating every layer that missed before it.
func (c *CacheChain) Get(id uuid.UUID) (*node.Node, bool) {
	for i, layer := range c.layers {
		if n, ok := layer.Get(id); ok {
			for j := 0; j < i; j++ {
				c.layers[j].Put(n)
			}
			return n, true
		}
	}
	return nil, false
}

// Put writes n to every layer.
func (c *CacheChain) Put(n *node.Node) {
	for _, layer := range c.layers {
		layer.Put(n)
	}
}

// Invalidate removes id from every layer.
func (c *CacheChain) Invalidate(id uuid.UUID) {
	for _, layer := range c.layers {
		layer.Invalidate(id)
	}
}

// Clear empties every layer.
func (c *CacheChain) Clear() {
	for _, layer := range c.layers {
		layer.Clear()
	}
}

// Size returns the size of the first (innermost) layer, the one most
// likely to bound overall memory use.
func (c *CacheChain) Size() int {
	if len(c.layers) == 0 {
		return 0
	}
	return c.layers[0].Size()
}

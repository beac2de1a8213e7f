package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/cylindb/pkg/codec"
	"github.com/orneryd/cylindb/pkg/coordinate"
	"github.com/orneryd/cylindb/pkg/kv"
	"github.com/orneryd/cylindb/pkg/node"
	"github.com/orneryd/cylindb/pkg/spatial"
	"github.com/orneryd/cylindb/pkg/store"
	"github.com/orneryd/cylindb/pkg/temporal"
)

func newTestPartialLoader(t *testing.T, maxResident int) (*PartialLoader, *store.Store, *temporal.Index, *spatial.Tree) {
	t.Helper()
	backend := kv.NewMemoryBackend()
	s := store.New(backend, codec.JSONCodec{})

	idx, err := temporal.NewIndex(backend, 1.0)
	require.NoError(t, err)

	tree, err := spatial.New(8, 2, coordinate.DefaultWeights)
	require.NoError(t, err)

	cfg := DefaultPartialLoaderConfig()
	cfg.MaxResidentNodes = maxResident
	cfg.GCInterval = 10 * time.Millisecond
	loader := NewPartialLoader(cfg, s, idx, tree)
	return loader, s, idx, tree
}

func putTestNode(t *testing.T, s *store.Store, idx *temporal.Index, tree *spatial.Tree, tVal float64) *node.Node {
	t.Helper()
	pos, err := coordinate.New(tVal, 1, 0)
	require.NoError(t, err)
	n := node.New(node.Content{"v": tVal}, pos)
	require.NoError(t, s.Put(context.Background(), n))
	require.NoError(t, idx.Insert(tVal, n.ID))
	tree.Insert(pos, n.ID)
	return n
}

func TestPartialLoaderGetNodeLoadsFromStore(t *testing.T) {
	loader, s, idx, tree := newTestPartialLoader(t, 10)
	n := putTestNode(t, s, idx, tree, 5)

	got, err := loader.GetNode(context.Background(), n.ID)
	require.NoError(t, err)
	assert.Equal(t, n.ID, got.ID)
	assert.Equal(t, 1, loader.ResidentCount())
}

func TestPartialLoaderLoadTemporalWindow(t *testing.T) {
	loader, s, idx, tree := newTestPartialLoader(t, 10)
	n1 := putTestNode(t, s, idx, tree, 1)
	putTestNode(t, s, idx, tree, 100)

	ids, err := loader.LoadTemporalWindow(context.Background(), 0, 10)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, n1.ID, ids[0])
}

func TestPartialLoaderLoadSpatialRegion(t *testing.T) {
	loader, s, idx, tree := newTestPartialLoader(t, 10)
	n1 := putTestNode(t, s, idx, tree, 1)
	putTestNode(t, s, idx, tree, 1000)

	rect := coordinate.NewRectangle(0, 10, 0, 5, 0, 6.28)
	ids, err := loader.LoadSpatialRegion(context.Background(), rect)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, n1.ID, ids[0])
}

func TestPartialLoaderGCEvictsUnpinnedUnreferenced(t *testing.T) {
	loader, s, idx, tree := newTestPartialLoader(t, 1)
	n1 := putTestNode(t, s, idx, tree, 1)
	n2 := putTestNode(t, s, idx, tree, 2)

	_, err := loader.GetNode(context.Background(), n1.ID)
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	_, err = loader.GetNode(context.Background(), n2.ID)
	require.NoError(t, err)

	assert.LessOrEqual(t, loader.ResidentCount(), 1)
}

func TestPartialLoaderPinProtectsFromGC(t *testing.T) {
	loader, s, idx, tree := newTestPartialLoader(t, 1)
	n1 := putTestNode(t, s, idx, tree, 1)
	n2 := putTestNode(t, s, idx, tree, 2)

	_, err := loader.GetNode(context.Background(), n1.ID)
	require.NoError(t, err)
	loader.PinNode(n1.ID)

	time.Sleep(2 * time.Millisecond)
	_, err = loader.GetNode(context.Background(), n2.ID)
	require.NoError(t, err)
	loader.runGC()

	loader.mu.Lock()
	_, stillLoaded := loader.loaded[n1.ID]
	loader.mu.Unlock()
	assert.True(t, stillLoaded, "pinned node should survive GC")
}

func TestPartialLoaderRefCountProtectsFromGC(t *testing.T) {
	loader, s, idx, tree := newTestPartialLoader(t, 1)
	n1 := putTestNode(t, s, idx, tree, 1)
	n2 := putTestNode(t, s, idx, tree, 2)

	_, err := loader.GetNode(context.Background(), n1.ID)
	require.NoError(t, err)
	loader.BeginNodeUsage(n1.ID)

	_, err = loader.GetNode(context.Background(), n2.ID)
	require.NoError(t, err)
	loader.runGC()

	loader.mu.Lock()
	_, stillLoaded := loader.loaded[n1.ID]
	loader.mu.Unlock()
	assert.True(t, stillLoaded, "in-use node should survive GC")

	loader.EndNodeUsage(n1.ID)
	time.Sleep(2 * time.Millisecond)
	_, err = loader.GetNode(context.Background(), n2.ID)
	require.NoError(t, err)
	loader.runGC()
	loader.mu.Lock()
	_, stillLoaded = loader.loaded[n1.ID]
	loader.mu.Unlock()
	assert.False(t, stillLoaded, "node should be evicted once no longer in use")
}

func TestPartialLoaderStartStop(t *testing.T) {
	loader, _, _, _ := newTestPartialLoader(t, 10)
	loader.Start()
	loader.Stop()
	loader.Stop() // idempotent
}

package cache

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/orneryd/cylindb/pkg/coordinate"
	"github.com/orneryd/cylindb/pkg/node"
	"github.com/orneryd/cylindb/pkg/spatial"
	"github.com/orneryd/cylindb/pkg/store"
	"github.com/orneryd/cylindb/pkg/temporal"
)

// PartialLoaderConfig bounds how many nodes PartialLoader keeps
// resident and how aggressively it runs garbage collection.
type PartialLoaderConfig struct {
	MaxResidentNodes int
	GCInterval       time.Duration
	// PrefetchHeadroom is the fraction of MaxResidentNodes below which
	// related-node prefetching is allowed to run; above it, prefetch
	// requests are dropped to leave room for the caller's own loads.
	PrefetchHeadroom float64
}

// DefaultPartialLoaderConfig mirrors
// original_source/src/storage/partial_loader.py's defaults: a
// 90%-of-capacity prefetch headroom and periodic GC.
func DefaultPartialLoaderConfig() PartialLoaderConfig {
	return PartialLoaderConfig{
		MaxResidentNodes: 10000,
		GCInterval:       30 * time.Second,
		PrefetchHeadroom: 0.9,
	}
}

// loadedEntry tracks one resident node: the node itself, when it was
// last accessed, its pin state, and its active-usage reference count.
type loadedEntry struct {
	n          *node.Node
	accessedAt time.Time
	pinned     bool
	refCount   int
}

// PartialLoader keeps a bounded working set of nodes resident in
// memory, fetching from the backing store on demand and evicting the
// least-recently-used unpinned, unreferenced node when over capacity.
// Grounded on original_source/src/storage/partial_loader.py's
// PartialLoader; the background GC loop's
// context.CancelFunc+sync.WaitGroup+time.Ticker shape is grounded on
// pkg/decay/decay.go's Manager.Start/Stop rather than the Python
// original's threading.Thread/threading.Event.
type PartialLoader struct {
	cfg   PartialLoaderConfig
	store *store.Store
	tidx  *temporal.Index
	tree  *spatial.Tree

	mu     sync.Mutex
	loaded map[uuid.UUID]*loadedEntry

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPartialLoader creates a loader backed by store, with tidx/tree
// (either may be nil) used for load_temporal_window/load_spatial_region.
func NewPartialLoader(cfg PartialLoaderConfig, s *store.Store, tidx *temporal.Index, tree *spatial.Tree) *PartialLoader {
	if cfg.MaxResidentNodes <= 0 {
		cfg.MaxResidentNodes = 10000
	}
	if cfg.GCInterval <= 0 {
		cfg.GCInterval = 30 * time.Second
	}
	if cfg.PrefetchHeadroom <= 0 {
		cfg.PrefetchHeadroom = 0.9
	}
	return &PartialLoader{
		cfg:    cfg,
		store:  s,
		tidx:   tidx,
		tree:   tree,
		loaded: make(map[uuid.UUID]*loadedEntry),
	}
}

// Start begins periodic background garbage collection.
func (l *PartialLoader) Start() {
	l.mu.Lock()
	if l.cancel != nil {
		l.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	l.ctx, l.cancel = ctx, cancel
	l.mu.Unlock()

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		ticker := time.NewTicker(l.cfg.GCInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.runGC()
			}
		}
	}()
}

// Stop halts background garbage collection.
func (l *PartialLoader) Stop() {
	l.mu.Lock()
	cancel := l.cancel
	l.cancel = nil
	l.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	l.wg.Wait()
}

// GetNode returns a resident node, loading it from the store on a
// miss, and marks it as just accessed.
func (l *PartialLoader) GetNode(ctx context.Context, id uuid.UUID) (*node.Node, error) {
	l.mu.Lock()
	if e, ok := l.loaded[id]; ok {
		e.accessedAt = time.Now()
		n := e.n
		l.mu.Unlock()
		return n, nil
	}
	l.mu.Unlock()

	n, err := l.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.loaded[id] = &loadedEntry{n: n, accessedAt: time.Now()}
	over := len(l.loaded) > l.cfg.MaxResidentNodes
	l.mu.Unlock()

	if over {
		l.runGC()
	}
	return n, nil
}

// LoadTemporalWindow loads every node whose t coordinate falls in
// [lo, hi] and returns their ids, residency permitting.
func (l *PartialLoader) LoadTemporalWindow(ctx context.Context, lo, hi float64) ([]uuid.UUID, error) {
	if l.tidx == nil {
		return nil, nil
	}
	ids := l.tidx.Range(lo, hi)
	if err := l.loadAll(ctx, ids); err != nil {
		return nil, err
	}
	l.prefetchRelated(ctx, ids)
	return ids, nil
}

// LoadSpatialRegion loads every node inside rect and returns their
// ids, residency permitting.
func (l *PartialLoader) LoadSpatialRegion(ctx context.Context, rect coordinate.Rectangle) ([]uuid.UUID, error) {
	if l.tree == nil {
		return nil, nil
	}
	ids := l.tree.RangeQuery(rect)
	if err := l.loadAll(ctx, ids); err != nil {
		return nil, err
	}
	l.prefetchRelated(ctx, ids)
	return ids, nil
}

func (l *PartialLoader) loadAll(ctx context.Context, ids []uuid.UUID) error {
	for _, id := range ids {
		if _, err := l.GetNode(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// prefetchRelated eagerly loads the connections of newly-loaded nodes,
// so long as residency stays under the configured headroom.
func (l *PartialLoader) prefetchRelated(ctx context.Context, ids []uuid.UUID) {
	l.mu.Lock()
	headroom := float64(len(l.loaded)) < float64(l.cfg.MaxResidentNodes)*l.cfg.PrefetchHeadroom
	l.mu.Unlock()
	if !headroom {
		return
	}

	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	for _, id := range ids {
		l.mu.Lock()
		e, ok := l.loaded[id]
		l.mu.Unlock()
		if !ok {
			continue
		}
		for _, conn := range e.n.Connections {
			if _, already := seen[conn.TargetID]; already {
				continue
			}
			seen[conn.TargetID] = struct{}{}
			_, _ = l.GetNode(ctx, conn.TargetID)
		}
	}
}

// PinNode protects id from eviction until UnpinNode is called.
func (l *PartialLoader) PinNode(id uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.loaded[id]; ok {
		e.pinned = true
	}
}

// UnpinNode removes id's eviction protection.
func (l *PartialLoader) UnpinNode(id uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.loaded[id]; ok {
		e.pinned = false
	}
}

// BeginNodeUsage increments id's active-usage reference count,
// protecting it from eviction while in use.
func (l *PartialLoader) BeginNodeUsage(id uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.loaded[id]; ok {
		e.refCount++
	}
}

// EndNodeUsage decrements id's active-usage reference count.
func (l *PartialLoader) EndNodeUsage(id uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.loaded[id]; ok && e.refCount > 0 {
		e.refCount--
	}
}

// runGC evicts the oldest-accessed unpinned, unreferenced nodes until
// resident count is back at or under capacity.
func (l *PartialLoader) runGC() {
	l.mu.Lock()
	defer l.mu.Unlock()

	over := len(l.loaded) - l.cfg.MaxResidentNodes
	if over <= 0 {
		return
	}

	type candidate struct {
		id uuid.UUID
		at time.Time
	}
	candidates := make([]candidate, 0, len(l.loaded))
	for id, e := range l.loaded {
		if e.pinned || e.refCount > 0 {
			continue
		}
		candidates = append(candidates, candidate{id: id, at: e.accessedAt})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].at.Before(candidates[j].at) })

	for i := 0; i < over && i < len(candidates); i++ {
		delete(l.loaded, candidates[i].id)
	}
}

// ResidentCount returns the number of nodes currently loaded.
func (l *PartialLoader) ResidentCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.loaded)
}

// Close stops background GC and drops every resident node.
func (l *PartialLoader) Close() {
	l.Stop()
	l.mu.Lock()
	l.loaded = make(map[uuid.UUID]*loadedEntry)
	l.mu.Unlock()
}

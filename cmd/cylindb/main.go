// Command cylindb wires up a standalone cylindrical temporal-spatial
// store and runs a short end-to-end demonstration: open storage, insert
// a node, run a combined spatial/temporal query, record a
// delta, and reconstruct past state from it.
//
// Flags only -- no cobra, matching spec.md's exclusion of a CLI/server
// surface from this core's scope.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"

	"github.com/orneryd/cylindb/pkg/cache"
	"github.com/orneryd/cylindb/pkg/codec"
	"github.com/orneryd/cylindb/pkg/config"
	"github.com/orneryd/cylindb/pkg/coordinate"
	"github.com/orneryd/cylindb/pkg/delta"
	"github.com/orneryd/cylindb/pkg/kv"
	"github.com/orneryd/cylindb/pkg/node"
	"github.com/orneryd/cylindb/pkg/reconstruct"
	"github.com/orneryd/cylindb/pkg/spatial"
	"github.com/orneryd/cylindb/pkg/store"
	"github.com/orneryd/cylindb/pkg/temporal"
)

var version = "0.1.0"

func main() {
	var (
		dataDir    = flag.String("data-dir", "", "data directory (overrides CYLINDB_DATA_DIR); empty runs in-memory")
		configFile = flag.String("config", "", "optional YAML config file")
		showVer    = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVer {
		fmt.Printf("cylindb v%s\n", version)
		return
	}

	cfg, err := loadConfig(*configFile, *dataDir)
	if err != nil {
		log.Fatalf("cylindb: %v", err)
	}

	if err := run(cfg); err != nil {
		log.Fatalf("cylindb: %v", err)
	}
}

func loadConfig(configFile, dataDir string) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if configFile != "" {
		cfg, err = config.LoadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	} else {
		cfg = config.LoadFromEnv()
	}
	if dataDir != "" {
		cfg.Storage.DataDir = dataDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func run(cfg *config.Config) error {
	log.Printf("cylindb starting: %s", cfg.String())

	backend, closeBackend, err := openBackend(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer closeBackend()

	nodeCodec, recordCodec := selectCodecs(cfg.Storage.Codec)

	weights := coordinate.Weights{T: cfg.Spatial.WeightT, R: cfg.Spatial.WeightR, Theta: cfg.Spatial.WeightTheta}
	tree, err := spatial.New(cfg.Spatial.MaxEntries, cfg.Spatial.MinEntries, weights)
	if err != nil {
		return fmt.Errorf("building spatial index: %w", err)
	}

	tidx, err := temporal.NewIndex(backend, temporal.DefaultResolution)
	if err != nil {
		return fmt.Errorf("building temporal index: %w", err)
	}
	combined := temporal.NewCombined(tidx, tree)

	nodes := store.New(backend, nodeCodec)
	deltas := delta.NewStore(backend, recordCodec)
	navigator := reconstruct.NewNavigator(nodes, deltas)

	lru := cache.NewLRUCache(cfg.Cache.LRUSize)
	temporalCache := cache.NewTemporalAwareCache(cfg.Cache.TemporalSize, cfg.Cache.TimeWeight)
	chain := cache.NewCacheChain(lru, temporalCache)

	loaderCfg := cache.PartialLoaderConfig{
		MaxResidentNodes: cfg.PartialLoader.MaxResidentNodes,
		GCInterval:       cfg.PartialLoader.GCInterval,
		PrefetchHeadroom: cfg.PartialLoader.PrefetchHeadroom,
	}
	loader := cache.NewPartialLoader(loaderCfg, nodes, tidx, tree)
	loader.Start()
	defer loader.Stop()

	ctx := context.Background()
	return demo(ctx, nodes, deltas, tree, tidx, combined, chain, loader, navigator)
}

func openBackend(dataDir string) (kv.Backend, func(), error) {
	if dataDir == "" {
		b := kv.NewMemoryBackend()
		return b, func() {}, nil
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating data dir: %w", err)
	}
	b, err := kv.NewBadgerBackend(dataDir)
	if err != nil {
		return nil, nil, err
	}
	return b, func() {
		if err := b.Close(); err != nil {
			log.Printf("cylindb: closing backend: %v", err)
		}
	}, nil
}

func selectCodecs(name string) (codec.NodeCodec, delta.RecordCodec) {
	if name == "binary" {
		return codec.BinaryCodec{}, codec.BinaryCodec{}
	}
	return codec.JSONCodec{}, codec.JSONCodec{}
}

func demo(
	ctx context.Context,
	nodes *store.Store,
	deltas *delta.Store,
	tree *spatial.Tree,
	tidx *temporal.Index,
	combined *temporal.Combined,
	chain *cache.CacheChain,
	loader *cache.PartialLoader,
	navigator *reconstruct.Navigator,
) error {
	pos, err := coordinate.New(0, 1, 0)
	if err != nil {
		return err
	}
	n := node.New(node.Content{"label": "origin", "value": float64(1)}, pos)
	if err := nodes.Put(ctx, n); err != nil {
		return fmt.Errorf("storing node: %w", err)
	}
	tree.Insert(pos, n.ID)
	if err := tidx.Insert(pos.T, n.ID); err != nil {
		return fmt.Errorf("indexing node: %w", err)
	}
	chain.Put(n)
	log.Printf("stored node %s at (t=%g r=%g theta=%g)", n.ID, pos.T, pos.R, pos.Theta)

	neighbors, err := combined.Query(temporal.Query{
		KNN: &temporal.KNNQuery{Point: pos, K: 5},
	})
	if err != nil {
		return fmt.Errorf("running combined query: %w", err)
	}
	log.Printf("combined kNN query returned %d result(s)", len(neighbors))

	if cached, ok := chain.Get(n.ID); ok {
		log.Printf("cache hit for %s: %v", cached.ID, cached.Content["label"])
	}

	deltaChain, err := deltas.Chain(n.ID, n.Content, n.Position.T)
	if err != nil {
		return fmt.Errorf("loading delta chain: %w", err)
	}
	record := delta.NewRecord(n.ID, 10, []delta.Op{
		delta.SetValueOp{Path: []string{"value"}, New: float64(2), Old: float64(1), HasOld: true},
	}, nil)
	if err := deltas.Append(deltaChain, record); err != nil {
		return fmt.Errorf("appending delta: %w", err)
	}

	past, err := navigator.StateAt(ctx, n.ID, 0)
	if err != nil {
		return fmt.Errorf("reconstructing past state: %w", err)
	}
	log.Printf("state at t=0: value=%v", past["value"])

	if _, err := loader.GetNode(ctx, uuid.Nil); err != nil {
		log.Printf("expected miss for nil id: %v", err)
	}

	return nil
}

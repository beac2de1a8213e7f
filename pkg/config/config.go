// Package config loads cylindb's runtime configuration from environment
// variables, following the same field-by-field os.Getenv/strconv pattern
// pkg/config/config.go used for NornicDB's Neo4j-compatible settings.
//
// Configuration is loaded with LoadFromEnv() and can be validated with
// Validate() before use. A YAML file can be layered on top via LoadFromFile,
// for deployments that prefer a checked-in config file over environment
// variables.
//
// Example Usage:
//
//	cfg := config.LoadFromEnv()
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("invalid config: %v", err)
//	}
//
// Environment Variables:
//
//   - CYLINDB_DATA_DIR="./data"
//   - CYLINDB_CODEC="json" or "binary"
//   - CYLINDB_RTREE_MAX_ENTRIES=8
//   - CYLINDB_RTREE_MIN_ENTRIES=2
//   - CYLINDB_CACHE_LRU_SIZE=10000
//   - CYLINDB_CACHE_TEMPORAL_SIZE=10000
//   - CYLINDB_CACHE_TIME_WEIGHT=0.5
//   - CYLINDB_PARTIAL_LOADER_MAX_RESIDENT=100000
//   - CYLINDB_PARTIAL_LOADER_GC_INTERVAL=30s
//   - CYLINDB_MEMORY_WARNING_BYTES=0
//   - CYLINDB_MEMORY_CRITICAL_BYTES=0
//
// For a complete list, see the Config struct field documentation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all cylindb configuration loaded from environment variables.
//
// Configuration is organized into logical sections:
//   - Storage: data directory and codec selection
//   - Spatial: R-tree branching factor and axis weights
//   - Cache: sizes and scoring weights for the pkg/cache layers
//   - PartialLoader: resident working-set bounds and GC cadence
//   - Memory: memory-monitor thresholds
//   - Logging: logging configuration
//
// Use LoadFromEnv() to create a Config from environment variables.
type Config struct {
	Storage       StorageConfig
	Spatial       SpatialConfig
	Cache         CacheConfig
	PartialLoader PartialLoaderConfig
	Memory        MemoryConfig
	Logging       LoggingConfig
}

// StorageConfig holds the key-value backend and codec settings.
type StorageConfig struct {
	// DataDir is the directory Badger stores its SST files and value log in.
	DataDir string
	// Codec selects the node/record encoding: "json" or "binary".
	Codec string
}

// SpatialConfig holds R-tree construction parameters.
type SpatialConfig struct {
	// MaxEntries is the maximum number of entries per R-tree node (M).
	MaxEntries int
	// MinEntries is the minimum number of entries per R-tree node (m).
	MinEntries int
	// WeightT, WeightR, WeightTheta scale each axis's contribution to
	// distance calculations; 1.0 for all three reproduces unweighted
	// cylindrical distance.
	WeightT     float64
	WeightR     float64
	WeightTheta float64
}

// CacheConfig holds sizes and scoring weights for the pkg/cache layers.
type CacheConfig struct {
	// LRUSize bounds the plain LRU layer.
	LRUSize int
	// TemporalSize bounds the temporal-aware layer.
	TemporalSize int
	// TimeWeight is the temporal-aware cache's time_weight (spec.md §4.8).
	TimeWeight float64
	// FrequencySize bounds the temporal-frequency layer.
	FrequencySize int
	// FrequencyWeight, RecencyWeight are the temporal-frequency cache's
	// remaining two scoring weights; its time weight reuses TimeWeight.
	FrequencyWeight float64
	RecencyWeight   float64
	// PredictiveSize bounds the predictive-prefetch layer.
	PredictiveSize int
	// PrefetchThreshold is how many times a transition must be observed
	// before it triggers a background prefetch.
	PrefetchThreshold int
	// MaxPrefetchConnections caps how many of a node's strongest
	// connections are eagerly prefetched alongside it.
	MaxPrefetchConnections int
}

// PartialLoaderConfig holds resident working-set bounds for the partial
// loader's bounded-memory node cache.
type PartialLoaderConfig struct {
	// MaxResidentNodes caps how many nodes the loader keeps in memory.
	MaxResidentNodes int
	// GCInterval is how often the background eviction sweep runs.
	GCInterval time.Duration
	// PrefetchHeadroom is the fraction of MaxResidentNodes below which
	// related-node prefetching is allowed to run.
	PrefetchHeadroom float64
}

// MemoryConfig holds memory-monitor thresholds.
type MemoryConfig struct {
	// SampleInterval is how often the monitor samples heap usage.
	SampleInterval time.Duration
	// WarningBytes, CriticalBytes are heap-size thresholds; 0 disables
	// the corresponding callback.
	WarningBytes  uint64
	CriticalBytes uint64
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string
}

// LoadFromEnv builds a Config from environment variables, falling back to
// sane defaults for any unset variable.
func LoadFromEnv() *Config {
	return &Config{
		Storage: StorageConfig{
			DataDir: getEnv("CYLINDB_DATA_DIR", "./data"),
			Codec:   getEnv("CYLINDB_CODEC", "json"),
		},
		Spatial: SpatialConfig{
			MaxEntries:  getEnvInt("CYLINDB_RTREE_MAX_ENTRIES", 8),
			MinEntries:  getEnvInt("CYLINDB_RTREE_MIN_ENTRIES", 2),
			WeightT:     getEnvFloat("CYLINDB_WEIGHT_T", 1.0),
			WeightR:     getEnvFloat("CYLINDB_WEIGHT_R", 1.0),
			WeightTheta: getEnvFloat("CYLINDB_WEIGHT_THETA", 1.0),
		},
		Cache: CacheConfig{
			LRUSize:                getEnvInt("CYLINDB_CACHE_LRU_SIZE", 10000),
			TemporalSize:           getEnvInt("CYLINDB_CACHE_TEMPORAL_SIZE", 10000),
			TimeWeight:             getEnvFloat("CYLINDB_CACHE_TIME_WEIGHT", 0.5),
			FrequencySize:          getEnvInt("CYLINDB_CACHE_FREQUENCY_SIZE", 10000),
			FrequencyWeight:        getEnvFloat("CYLINDB_CACHE_FREQUENCY_WEIGHT", 0.3),
			RecencyWeight:          getEnvFloat("CYLINDB_CACHE_RECENCY_WEIGHT", 0.2),
			PredictiveSize:         getEnvInt("CYLINDB_CACHE_PREDICTIVE_SIZE", 10000),
			PrefetchThreshold:      getEnvInt("CYLINDB_CACHE_PREFETCH_THRESHOLD", 3),
			MaxPrefetchConnections: getEnvInt("CYLINDB_CACHE_MAX_PREFETCH_CONNECTIONS", 5),
		},
		PartialLoader: PartialLoaderConfig{
			MaxResidentNodes: getEnvInt("CYLINDB_PARTIAL_LOADER_MAX_RESIDENT", 100000),
			GCInterval:       getEnvDuration("CYLINDB_PARTIAL_LOADER_GC_INTERVAL", 30*time.Second),
			PrefetchHeadroom: getEnvFloat("CYLINDB_PARTIAL_LOADER_PREFETCH_HEADROOM", 0.9),
		},
		Memory: MemoryConfig{
			SampleInterval: getEnvDuration("CYLINDB_MEMORY_SAMPLE_INTERVAL", 5*time.Second),
			WarningBytes:   getEnvUint64("CYLINDB_MEMORY_WARNING_BYTES", 0),
			CriticalBytes:  getEnvUint64("CYLINDB_MEMORY_CRITICAL_BYTES", 0),
		},
		Logging: LoggingConfig{
			Level: getEnv("CYLINDB_LOG_LEVEL", "info"),
		},
	}
}

// Validate checks invariants LoadFromEnv can't enforce through defaults
// alone (spec.md's R-tree requires 1 <= m <= M/2, scoring weights must be
// non-negative).
func (c *Config) Validate() error {
	if c.Storage.Codec != "json" && c.Storage.Codec != "binary" {
		return fmt.Errorf("config: unknown codec %q (want json or binary)", c.Storage.Codec)
	}
	if c.Spatial.MaxEntries < 2 {
		return fmt.Errorf("config: rtree max entries must be >= 2, got %d", c.Spatial.MaxEntries)
	}
	if c.Spatial.MinEntries < 1 || c.Spatial.MinEntries > c.Spatial.MaxEntries/2 {
		return fmt.Errorf("config: rtree min entries must be between 1 and %d, got %d", c.Spatial.MaxEntries/2, c.Spatial.MinEntries)
	}
	if c.Cache.TimeWeight < 0 || c.Cache.TimeWeight > 1 {
		return fmt.Errorf("config: cache time weight must be in [0,1], got %v", c.Cache.TimeWeight)
	}
	if c.PartialLoader.MaxResidentNodes < 1 {
		return fmt.Errorf("config: partial loader max resident nodes must be >= 1, got %d", c.PartialLoader.MaxResidentNodes)
	}
	if c.PartialLoader.PrefetchHeadroom <= 0 || c.PartialLoader.PrefetchHeadroom > 1 {
		return fmt.Errorf("config: partial loader prefetch headroom must be in (0,1], got %v", c.PartialLoader.PrefetchHeadroom)
	}
	return nil
}

// String renders a one-line summary suitable for a startup log line.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{data_dir=%s codec=%s rtree=%d/%d cache_lru=%d partial_loader_max=%d}",
		c.Storage.DataDir, c.Storage.Codec, c.Spatial.MaxEntries, c.Spatial.MinEntries,
		c.Cache.LRUSize, c.PartialLoader.MaxResidentNodes,
	)
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func getEnvUint64(key string, defaultVal uint64) uint64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func getEnvBool(key string, defaultVal bool) bool {
	v := strings.ToLower(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	return v == "true" || v == "1" || v == "yes"
}

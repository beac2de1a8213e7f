package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// yamlConfig mirrors Config's shape with yaml tags, letting operators check
// a config file into a deployment rather than (or in addition to) setting
// CYLINDB_* environment variables.
type yamlConfig struct {
	Storage struct {
		DataDir string `yaml:"data_dir"`
		Codec   string `yaml:"codec"`
	} `yaml:"storage"`
	Spatial struct {
		MaxEntries  int     `yaml:"max_entries"`
		MinEntries  int     `yaml:"min_entries"`
		WeightT     float64 `yaml:"weight_t"`
		WeightR     float64 `yaml:"weight_r"`
		WeightTheta float64 `yaml:"weight_theta"`
	} `yaml:"spatial"`
	Cache struct {
		LRUSize                int     `yaml:"lru_size"`
		TemporalSize           int     `yaml:"temporal_size"`
		TimeWeight             float64 `yaml:"time_weight"`
		FrequencySize          int     `yaml:"frequency_size"`
		FrequencyWeight        float64 `yaml:"frequency_weight"`
		RecencyWeight          float64 `yaml:"recency_weight"`
		PredictiveSize         int     `yaml:"predictive_size"`
		PrefetchThreshold      int     `yaml:"prefetch_threshold"`
		MaxPrefetchConnections int     `yaml:"max_prefetch_connections"`
	} `yaml:"cache"`
	PartialLoader struct {
		MaxResidentNodes int     `yaml:"max_resident_nodes"`
		GCInterval       string  `yaml:"gc_interval"`
		PrefetchHeadroom float64 `yaml:"prefetch_headroom"`
	} `yaml:"partial_loader"`
	Memory struct {
		SampleInterval string `yaml:"sample_interval"`
		WarningBytes   uint64 `yaml:"warning_bytes"`
		CriticalBytes  uint64 `yaml:"critical_bytes"`
	} `yaml:"memory"`
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// LoadFromFile reads a YAML config file layered over LoadFromEnv's
// defaults: any field absent from the file keeps its environment-derived
// (or built-in default) value.
func LoadFromFile(path string) (*Config, error) {
	cfg := LoadFromEnv()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var y yamlConfig
	if err := yaml.Unmarshal(data, &y); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	applyString(&cfg.Storage.DataDir, y.Storage.DataDir)
	applyString(&cfg.Storage.Codec, y.Storage.Codec)

	applyInt(&cfg.Spatial.MaxEntries, y.Spatial.MaxEntries)
	applyInt(&cfg.Spatial.MinEntries, y.Spatial.MinEntries)
	applyFloat(&cfg.Spatial.WeightT, y.Spatial.WeightT)
	applyFloat(&cfg.Spatial.WeightR, y.Spatial.WeightR)
	applyFloat(&cfg.Spatial.WeightTheta, y.Spatial.WeightTheta)

	applyInt(&cfg.Cache.LRUSize, y.Cache.LRUSize)
	applyInt(&cfg.Cache.TemporalSize, y.Cache.TemporalSize)
	applyFloat(&cfg.Cache.TimeWeight, y.Cache.TimeWeight)
	applyInt(&cfg.Cache.FrequencySize, y.Cache.FrequencySize)
	applyFloat(&cfg.Cache.FrequencyWeight, y.Cache.FrequencyWeight)
	applyFloat(&cfg.Cache.RecencyWeight, y.Cache.RecencyWeight)
	applyInt(&cfg.Cache.PredictiveSize, y.Cache.PredictiveSize)
	applyInt(&cfg.Cache.PrefetchThreshold, y.Cache.PrefetchThreshold)
	applyInt(&cfg.Cache.MaxPrefetchConnections, y.Cache.MaxPrefetchConnections)

	applyInt(&cfg.PartialLoader.MaxResidentNodes, y.PartialLoader.MaxResidentNodes)
	if y.PartialLoader.GCInterval != "" {
		if d, err := time.ParseDuration(y.PartialLoader.GCInterval); err == nil {
			cfg.PartialLoader.GCInterval = d
		}
	}
	applyFloat(&cfg.PartialLoader.PrefetchHeadroom, y.PartialLoader.PrefetchHeadroom)

	if y.Memory.SampleInterval != "" {
		if d, err := time.ParseDuration(y.Memory.SampleInterval); err == nil {
			cfg.Memory.SampleInterval = d
		}
	}
	applyUint64(&cfg.Memory.WarningBytes, y.Memory.WarningBytes)
	applyUint64(&cfg.Memory.CriticalBytes, y.Memory.CriticalBytes)

	applyString(&cfg.Logging.Level, y.Logging.Level)

	return cfg, nil
}

func applyString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func applyInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func applyFloat(dst *float64, v float64) {
	if v != 0 {
		*dst = v
	}
}

func applyUint64(dst *uint64, v uint64) {
	if v != 0 {
		*dst = v
	}
}

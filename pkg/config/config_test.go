package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	cfg := LoadFromEnv()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "./data", cfg.Storage.DataDir)
	assert.Equal(t, "json", cfg.Storage.Codec)
	assert.Equal(t, 8, cfg.Spatial.MaxEntries)
	assert.Equal(t, 2, cfg.Spatial.MinEntries)
}

func TestLoadFromEnvHonorsOverrides(t *testing.T) {
	t.Setenv("CYLINDB_DATA_DIR", "/tmp/cylindb-data")
	t.Setenv("CYLINDB_RTREE_MAX_ENTRIES", "16")
	t.Setenv("CYLINDB_CACHE_TIME_WEIGHT", "0.75")

	cfg := LoadFromEnv()
	assert.Equal(t, "/tmp/cylindb-data", cfg.Storage.DataDir)
	assert.Equal(t, 16, cfg.Spatial.MaxEntries)
	assert.Equal(t, 0.75, cfg.Cache.TimeWeight)
}

func TestValidateRejectsBadCodec(t *testing.T) {
	cfg := LoadFromEnv()
	cfg.Storage.Codec = "xml"
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsBadRTreeEntries(t *testing.T) {
	cfg := LoadFromEnv()
	cfg.Spatial.MaxEntries = 4
	cfg.Spatial.MinEntries = 3 // > MaxEntries/2
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsOutOfRangeTimeWeight(t *testing.T) {
	cfg := LoadFromEnv()
	cfg.Cache.TimeWeight = 1.5
	assert.Error(t, cfg.Validate())
}

func TestLoadFromFileLayersOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cylindb.yaml")
	yamlBody := "storage:\n  data_dir: /var/lib/cylindb\ncache:\n  lru_size: 500\n"
	require.NoError(t, os.WriteFile(path, []byte(yamlBody), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/cylindb", cfg.Storage.DataDir)
	assert.Equal(t, 500, cfg.Cache.LRUSize)
	// Untouched fields keep their env/default value.
	assert.Equal(t, "json", cfg.Storage.Codec)
	assert.Equal(t, 8, cfg.Spatial.MaxEntries)
}

func TestLoadFromFileMissingFileErrors(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfigStringIncludesKeySettings(t *testing.T) {
	cfg := LoadFromEnv()
	s := cfg.String()
	assert.Contains(t, s, cfg.Storage.DataDir)
	assert.Contains(t, s, cfg.Storage.Codec)
}

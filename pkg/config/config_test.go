package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaultsWithNoFile(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.LogJSON)
	assert.Equal(t, "/var/lib/poolfs", cfg.DataDir)
	assert.False(t, cfg.HasMountRoots())
}

func TestLoadReadsYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "poolfs.yaml")
	body := "mount_roots:\n  - /mnt/a\n  - /mnt/b\nlog_level: debug\nlog_json: true\ndata_dir: " + dir + "\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"/mnt/a", "/mnt/b"}, cfg.MountRoots)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.LogJSON)
	assert.True(t, cfg.HasMountRoots())
}

func TestLogConfigAdaptsFields(t *testing.T) {
	cfg := &Config{LogLevel: "warn", LogJSON: true}
	lc := cfg.LogConfig()
	assert.Equal(t, "warn", string(lc.Level))
	assert.True(t, lc.JSONOutput)
}

func TestRebalanceThresholdsZeroWhenUnset(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, int64(0), int64(cfg.RebalanceMinDiff()))
	assert.Equal(t, int64(0), int64(cfg.RebalanceMinFile()))
}

// Package config loads engine configuration: candidate mount roots, log
// level/format, and rebalancer tuning. It follows the same
// viper.New()/SetDefault/Unmarshal shape as joshyorko/rcc's viper-based
// config loading, with YAML as the on-disk format.
package config

import (
	"os"
	"strings"

	"github.com/cuemby/poolfs/pkg/log"
	"github.com/cuemby/poolfs/pkg/pooltypes"
	"github.com/spf13/viper"
)

// Config holds engine-wide settings loaded from defaults, file, or
// environment, in that increasing order of precedence.
type Config struct {
	// MountRoots lists the directories the volume detector scans for
	// pool descriptor files. Empty means "platform default" (every drive
	// letter present on Windows, the subdirectories of /media and /mnt on
	// Unix).
	MountRoots []string `mapstructure:"mount_roots"`

	// LogLevel and LogJSON feed pkg/log.Init directly.
	LogLevel string `mapstructure:"log_level"`
	LogJSON  bool   `mapstructure:"log_json"`

	// DataDir holds the audit store (pkg/audit) database file.
	DataDir string `mapstructure:"data_dir"`

	// RebalanceMinDiffBytes and RebalanceMinFileBytes override the
	// rebalancer's default thresholds when non-zero.
	RebalanceMinDiffBytes int64 `mapstructure:"rebalance_min_diff_bytes"`
	RebalanceMinFileBytes int64 `mapstructure:"rebalance_min_file_bytes"`

	// DefaultDuplicationLevel is loaded and stored here only; no command
	// reads it, and `pool create` does not apply it to new pools.
	DefaultDuplicationLevel int `mapstructure:"default_duplication_level"`

	// MetricsAddr is the listen address for the Prometheus handler used by
	// `poolctl serve` when its --addr flag is empty; if this is empty too,
	// serve listens on ":9090".
	MetricsAddr string `mapstructure:"metrics_addr"`
}

// Load reads configuration from configPath (if non-empty), then from a
// "poolfs.yaml"/"poolfs.yml" file on the search path, then from
// POOLFS_-prefixed environment variables, falling back to defaults for
// anything unset.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("poolfs")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	explicit := configPath != ""
	if explicit {
		if _, statErr := os.Stat(configPath); statErr != nil {
			explicit = false
		} else {
			v.SetConfigFile(configPath)
		}
	}
	if !explicit {
		v.SetConfigName("poolfs")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/poolfs")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mount_roots", []string{})
	v.SetDefault("log_level", string(log.InfoLevel))
	v.SetDefault("log_json", false)
	v.SetDefault("data_dir", "/var/lib/poolfs")
	v.SetDefault("rebalance_min_diff_bytes", 0)
	v.SetDefault("rebalance_min_file_bytes", 0)
	v.SetDefault("default_duplication_level", 0)
	v.SetDefault("metrics_addr", "")
}

// LogConfig adapts Config's logging fields into a log.Config.
func (c *Config) LogConfig() log.Config {
	return log.Config{Level: log.Level(c.LogLevel), JSONOutput: c.LogJSON}
}

// RebalanceMinDiff returns the configured rebalancer free-space
// threshold, or 0 to signal "use the rebalancer's built-in default".
func (c *Config) RebalanceMinDiff() pooltypes.ByteSize {
	return pooltypes.ByteSize(c.RebalanceMinDiffBytes)
}

// RebalanceMinFile returns the configured minimum movable file size, or
// 0 to signal "use the rebalancer's built-in default".
func (c *Config) RebalanceMinFile() pooltypes.ByteSize {
	return pooltypes.ByteSize(c.RebalanceMinFileBytes)
}

// HasMountRoots reports whether the caller configured an explicit
// candidate list, versus falling back to the platform default.
func (c *Config) HasMountRoots() bool {
	return len(c.MountRoots) > 0
}

package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration for the hub event handler
// process: where it stores data, how its commit slot is bounded, and
// how its retention scheduler and admin surface behave.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Coord     CoordinatorConf `yaml:"coordinator"`
	Oracle    OracleConfig    `yaml:"oracle"`
	Retention RetentionConfig `yaml:"retention"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds the admin/metrics HTTP listener settings.
type ServerConfig struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// StorageConfig holds the KV store's on-disk location and durability
// policy.
type StorageConfig struct {
	DBPath string `yaml:"db_path"`
	// Sync, when true (the default), fsyncs every commit batch.
	Sync *bool `yaml:"sync"`
	// EpochMs is the Farcaster/project epoch, unix milliseconds, that
	// event-ID timestamps are computed relative to.
	EpochMs uint64 `yaml:"epoch_ms"`
}

// CoordinatorConf mirrors hubevents.CoordinatorConfig's tunables.
type CoordinatorConf struct {
	LockMaxPending int      `yaml:"lock_max_pending"`
	LockTimeout    Duration `yaml:"lock_timeout"`
	FanoutBuffer   int      `yaml:"fanout_buffer"`
}

// OracleConfig holds the default size policy used by the admin
// is_prunable endpoint when a caller does not supply its own.
type OracleConfig struct {
	DefaultSizeLimit uint32   `yaml:"default_size_limit"`
	DefaultTimeLimit Duration `yaml:"default_time_limit"`
}

// RetentionConfig controls the cron-scheduled prune runner.
type RetentionConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Cron      string   `yaml:"cron"`
	TimeLimit Duration `yaml:"time_limit"`
	DryRun    bool     `yaml:"dry_run"`
	Paused    bool     `yaml:"paused"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console|json
}

// Addr returns host:port for the admin/metrics HTTP listener.
func (c *Config) Addr() string {
	addr := c.Server.Address
	if addr == "" {
		addr = "0.0.0.0"
	}
	p := c.Server.Port
	if p == 0 {
		p = 8090
	}
	return fmt.Sprintf("%s:%d", addr, p)
}

// SizeBytes represents a number of bytes, unmarshaled from
// human-friendly strings like "64MB" or plain integers.
type SizeBytes int64

func (s *SizeBytes) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*s = 0
		return nil
	}
	raw := strings.TrimSpace(node.Value)
	if raw == "" {
		*s = 0
		return nil
	}
	if v, err := humanize.ParseBytes(raw); err == nil {
		*s = SizeBytes(v)
		return nil
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*s = SizeBytes(i)
		return nil
	}
	return fmt.Errorf("invalid size value: %q", node.Value)
}

func (s SizeBytes) Int64() int64 { return int64(s) }

// Duration wraps time.Duration for YAML parsing from strings like
// "500ms" or "3d", or plain numbers (interpreted as seconds).
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*d = Duration(0)
		return nil
	}
	raw := strings.TrimSpace(node.Value)
	if raw == "" {
		*d = Duration(0)
		return nil
	}
	if strings.HasSuffix(raw, "d") {
		if days, err := strconv.ParseFloat(strings.TrimSuffix(raw, "d"), 64); err == nil {
			*d = Duration(time.Duration(days * float64(24*time.Hour)))
			return nil
		}
	}
	if td, err := time.ParseDuration(raw); err == nil {
		*d = Duration(td)
		return nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		*d = Duration(time.Duration(f * float64(time.Second)))
		return nil
	}
	return fmt.Errorf("invalid duration value: %q", node.Value)
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }

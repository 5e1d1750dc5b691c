package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Defaults matches the tunables named in the upward interface: a
// 1000-deep commit queue, 500ms acquire timeout, and a 3-day default
// prune horizon.
func Defaults() *Config {
	syncOn := true
	return &Config{
		Server:  ServerConfig{Address: "0.0.0.0", Port: 8090},
		Storage: StorageConfig{DBPath: "./.hubevents-db", Sync: &syncOn, EpochMs: 1609459200000},
		Coord: CoordinatorConf{
			LockMaxPending: 1000,
			LockTimeout:    Duration(500_000_000), // 500ms
			FanoutBuffer:   1000,
		},
		Oracle: OracleConfig{
			DefaultSizeLimit: 5000,
		},
		Retention: RetentionConfig{
			Enabled:   true,
			Cron:      "*/10 * * * *",
			TimeLimit: Duration(3 * 24 * 3600 * 1_000_000_000), // 3 days
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// Load reads and parses a YAML config file at path, starting from
// Defaults so unset fields keep sane values.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, err
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ResolveConfigPath decides the config file path using the flag-provided
// value and the HUBEVENTS_CONFIG environment variable when the flag was
// not explicitly set.
func ResolveConfigPath(flagPath string, flagSet bool) string {
	if flagSet {
		return flagPath
	}
	if p := os.Getenv("HUBEVENTS_CONFIG"); p != "" {
		return p
	}
	return flagPath
}

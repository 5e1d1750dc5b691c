package config

import (
	"flag"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// Flags holds parsed command-line flag values and which were explicitly
// set (as opposed to left at their default).
type Flags struct {
	Addr   string
	DB     string
	Config string
	Set    map[string]bool
}

// ParseConfigFlags parses command-line flags and returns them as a
// Flags struct.
func ParseConfigFlags() Flags {
	addrPtr := flag.String("addr", ":8090", "admin/metrics HTTP listen address")
	dbPtr := flag.String("db", "./.hubevents-db", "Pebble DB path")
	cfgPtr := flag.String("config", "./config.yaml", "path to config file")
	flag.Parse()
	setFlags := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })
	return Flags{Addr: *addrPtr, DB: *dbPtr, Config: *cfgPtr, Set: setFlags}
}

// ParseConfigFile resolves the config path and loads the YAML file. A
// missing file is not fatal — it returns Defaults() and fileExists=false
// so callers can fall through to flags/env.
func ParseConfigFile(flags Flags) (cfg *Config, fileExists bool, err error) {
	cfgPath := ResolveConfigPath(flags.Config, flags.Set["config"])
	loaded, loadErr := Load(cfgPath)
	if loadErr != nil {
		if os.IsNotExist(loadErr) || strings.Contains(loadErr.Error(), "not found") {
			return Defaults(), false, nil
		}
		return nil, false, loadErr
	}
	return loaded, true, nil
}

// ApplyEnvOverrides mutates cfg in place from HUBEVENTS_* environment
// variables and reports whether any were applied.
func ApplyEnvOverrides(cfg *Config) (envUsed bool) {
	if v := os.Getenv("HUBEVENTS_ADDR"); v != "" {
		envUsed = true
		if h, p, err := net.SplitHostPort(v); err == nil {
			cfg.Server.Address = h
			if pi, err := strconv.Atoi(p); err == nil {
				cfg.Server.Port = pi
			}
		} else {
			cfg.Server.Address = v
		}
	}
	if v := os.Getenv("HUBEVENTS_DB_PATH"); v != "" {
		envUsed = true
		cfg.Storage.DBPath = v
	}
	if v := os.Getenv("HUBEVENTS_SYNC"); v != "" {
		envUsed = true
		sync := parseBool(v)
		cfg.Storage.Sync = &sync
	}
	if v := os.Getenv("HUBEVENTS_EPOCH_MS"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			envUsed = true
			cfg.Storage.EpochMs = n
		}
	}
	if v := os.Getenv("HUBEVENTS_LOCK_MAX_PENDING"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			envUsed = true
			cfg.Coord.LockMaxPending = n
		}
	}
	if v := os.Getenv("HUBEVENTS_LOCK_TIMEOUT"); v != "" {
		if d, err := parseDurationString(v); err == nil {
			envUsed = true
			cfg.Coord.LockTimeout = d
		}
	}
	if v := os.Getenv("HUBEVENTS_RETENTION_CRON"); v != "" {
		envUsed = true
		cfg.Retention.Cron = v
	}
	if v := os.Getenv("HUBEVENTS_RETENTION_ENABLED"); v != "" {
		envUsed = true
		cfg.Retention.Enabled = parseBool(v)
	}
	if v := os.Getenv("HUBEVENTS_LOG_LEVEL"); v != "" {
		envUsed = true
		cfg.Logging.Level = v
	}
	return envUsed
}

// LoadEffective loads config from file (if present), then flags, then
// env overrides, in that priority order for the fields flags cover; env
// always applies on top since it is meant for container/orchestrator
// injection.
func LoadEffective(flags Flags) (*Config, error) {
	cfg, _, err := ParseConfigFile(flags)
	if err != nil {
		return nil, err
	}
	if flags.Set["addr"] {
		if h, p, err := net.SplitHostPort(flags.Addr); err == nil {
			cfg.Server.Address = h
			if pi, err := strconv.Atoi(p); err == nil {
				cfg.Server.Port = pi
			}
		}
	}
	if flags.Set["db"] {
		cfg.Storage.DBPath = flags.DB
	}
	ApplyEnvOverrides(cfg)
	return cfg, nil
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func parseDurationString(v string) (Duration, error) {
	td, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	return Duration(td), nil
}

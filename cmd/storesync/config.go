package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/storesync/internal/configsync"
	"github.com/danmuck/storesync/internal/extensions"
)

const (
	defaultToolConfigName = "storesync.toml"
	defaultConfigPath     = "config/config.yaml"
	defaultPluginsPath    = "config/plugins.yaml"
)

// toolConfig is the resolved runtime configuration of one invocation.
type toolConfig struct {
	DatabaseURL        string
	Console            []string
	ConfigPath         string
	PluginsPath        string
	GroupOrder         []string
	MaxAttempts        int
	Backoff            extensions.BackoffConfig
	WriteFailurePolicy configsync.WriteFailurePolicy
	FailOnWriteError   bool
	AutoMigrate        bool
	CacheSize          int
}

func defaultToolConfig() toolConfig {
	return toolConfig{
		ConfigPath:         defaultConfigPath,
		PluginsPath:        defaultPluginsPath,
		GroupOrder:         append([]string(nil), extensions.DefaultGroupOrder...),
		MaxAttempts:        1,
		WriteFailurePolicy: configsync.FireAndForget,
	}
}

type fileConfig struct {
	DatabaseURL        string   `toml:"database_url"`
	Console            []string `toml:"console"`
	ConfigPath         string   `toml:"config_path"`
	PluginsPath        string   `toml:"plugins_path"`
	GroupOrder         []string `toml:"group_order"`
	MaxAttempts        int      `toml:"max_attempts"`
	WriteFailurePolicy string   `toml:"write_failure_policy"`
	FailOnWriteError   bool     `toml:"fail_on_write_error"`
	AutoMigrate        bool     `toml:"auto_migrate"`
	CacheSize          int      `toml:"cache_size"`
	Backoff            struct {
		Initial    string  `toml:"initial"`
		Multiplier float64 `toml:"multiplier"`
		Max        string  `toml:"max"`
		Jitter     bool    `toml:"jitter"`
	} `toml:"backoff"`
}

func loadToolConfig(path string) (toolConfig, error) {
	cfg := defaultToolConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return toolConfig{}, fmt.Errorf("load storesync config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return toolConfig{}, fmt.Errorf("load storesync config: unknown keys %v", undecoded)
	}

	if meta.IsDefined("database_url") {
		cfg.DatabaseURL = strings.TrimSpace(raw.DatabaseURL)
	}

	if meta.IsDefined("console") {
		cfg.Console = normalizeList(raw.Console)
	}

	if meta.IsDefined("config_path") {
		if v := strings.TrimSpace(raw.ConfigPath); v != "" {
			cfg.ConfigPath = v
		}
	}

	if meta.IsDefined("plugins_path") {
		if v := strings.TrimSpace(raw.PluginsPath); v != "" {
			cfg.PluginsPath = v
		}
	}

	if meta.IsDefined("group_order") {
		order := normalizeList(raw.GroupOrder)
		if len(order) == 0 {
			return toolConfig{}, fmt.Errorf("group_order must name at least one group")
		}
		cfg.GroupOrder = order
	}

	if meta.IsDefined("max_attempts") {
		if raw.MaxAttempts < 1 {
			return toolConfig{}, fmt.Errorf("max_attempts must be >= 1, got %d", raw.MaxAttempts)
		}
		cfg.MaxAttempts = raw.MaxAttempts
	}

	if meta.IsDefined("write_failure_policy") {
		p, err := configsync.ParseWriteFailurePolicy(strings.TrimSpace(raw.WriteFailurePolicy))
		if err != nil {
			return toolConfig{}, err
		}
		cfg.WriteFailurePolicy = p
	}

	if meta.IsDefined("fail_on_write_error") {
		cfg.FailOnWriteError = raw.FailOnWriteError
	}

	if meta.IsDefined("auto_migrate") {
		cfg.AutoMigrate = raw.AutoMigrate
	}

	if meta.IsDefined("cache_size") {
		cfg.CacheSize = raw.CacheSize
	}

	if meta.IsDefined("backoff", "initial") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Backoff.Initial))
		if err != nil {
			return toolConfig{}, fmt.Errorf("parse backoff.initial: %w", err)
		}
		cfg.Backoff.InitialDelay = d
	}

	if meta.IsDefined("backoff", "multiplier") {
		cfg.Backoff.Multiplier = raw.Backoff.Multiplier
	}

	if meta.IsDefined("backoff", "max") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Backoff.Max))
		if err != nil {
			return toolConfig{}, fmt.Errorf("parse backoff.max: %w", err)
		}
		cfg.Backoff.MaxDelay = d
	}

	if meta.IsDefined("backoff", "jitter") {
		cfg.Backoff.Jitter = raw.Backoff.Jitter
	}

	return cfg, nil
}

func normalizeList(in []string) []string {
	if len(in) == 0 {
		return []string{}
	}
	out := make([]string, 0, len(in))
	for _, item := range in {
		v := strings.TrimSpace(item)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}

// Tarantula - automated playout and scheduling engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/broadcastauto/tarantula

package config

import (
	"fmt"
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where a config file is searched for, in
// priority order. The first file found is used.
var DefaultConfigPaths = []string{
	"tarantula.yaml",
	"tarantula.yml",
	"/etc/tarantula/tarantula.yaml",
}

// ConfigPathEnvVar overrides the search paths with an explicit file.
const ConfigPathEnvVar = "TARANTULA_CONFIG"

func defaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			TickInterval:   40 * time.Millisecond,
			MutexTimeout:   35 * time.Millisecond,
			SnapshotPeriod: 30 * time.Second,
		},
		Plugin: PluginConfig{
			CooldownSeq:    []int{5, 15, 60},
			MaxCredits:     3,
			StabiliseTicks: 150,
		},
		HTTP: HTTPConfig{
			Addr:           ":9816",
			AllowedOrigins: []string{"*"},
		},
		XMLWire: XMLWireConfig{
			Addr: ":9815",
		},
		Scanner: ScannerConfig{
			FrameRate:    25.0,
			RescanPeriod: 24 * time.Hour,
			ScanInterval: 5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Metrics: MetricsConfig{
			Addr: ":9817",
		},
		DataDir: "/var/lib/tarantula",
	}
}

// Load resolves configuration from, in ascending priority: built-in
// defaults, an optional YAML file, then environment variables prefixed
// TARANTULA_.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider("TARANTULA_", ".", envTransform)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envTransform maps TARANTULA_HTTP_ADDR -> http.addr, TARANTULA_DATA_DIR
// -> data_dir, and so on, using only the explicit table below, since a
// generic splitter can't tell "data_dir" the leaf from "http_addr" the
// nested path. Variables not in the table map to "" and are ignored.
func envTransform(key string) string {
	mappings := map[string]string{
		"TARANTULA_DATA_DIR":             "data_dir",
		"TARANTULA_ENGINE_TICK_INTERVAL": "engine.tick_interval",
		"TARANTULA_ENGINE_MUTEX_TIMEOUT": "engine.mutex_timeout",
		"TARANTULA_HTTP_ADDR":            "http.addr",
		"TARANTULA_XMLWIRE_ADDR":         "xmlwire.addr",
		"TARANTULA_SCANNER_ROOT":         "scanner.root",
		"TARANTULA_SCANNER_FRAME_RATE":   "scanner.frame_rate",
		"TARANTULA_METRICS_ADDR":         "metrics.addr",
		"TARANTULA_LOG_LEVEL":            "logging.level",
		"TARANTULA_LOG_FORMAT":           "logging.format",
	}
	if mapped, ok := mappings[key]; ok {
		return mapped
	}
	return ""
}

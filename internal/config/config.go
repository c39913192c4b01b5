// FlickLit - Literary Work Recommendation Service
// Copyright 2026 Mark Stralka (mstralka)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mstralka/mark-flicklit-sub001

// Package config loads and validates the FlickLit service configuration.
//
// Configuration is layered with koanf: struct defaults first, then an
// optional YAML file, then FLICKLIT_-prefixed environment variables
// (FLICKLIT_SERVER_PORT=8080 overrides server.port). The loaded Config is
// immutable after Load; components receive the sub-structs they need at
// construction time and never share mutable configuration state.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the config file search paths in priority order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/flicklit/config.yaml",
	"/etc/flicklit/config.yml",
}

// ConfigPathEnvVar overrides the config file path when set.
const ConfigPathEnvVar = "FLICKLIT_CONFIG"

// envPrefix is the prefix for environment variable overrides.
const envPrefix = "FLICKLIT_"

// Config is the root service configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Events    EventsConfig    `koanf:"events"`
	Recommend RecommendConfig `koanf:"recommend"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig configures the HTTP façade.
type ServerConfig struct {
	// Host is the listen address.
	Host string `koanf:"host"`

	// Port is the listen port.
	Port int `koanf:"port"`

	// Timeout bounds request handling end to end.
	Timeout time.Duration `koanf:"timeout"`

	// CORSOrigins lists allowed CORS origins.
	CORSOrigins []string `koanf:"cors_origins"`

	// RateLimitRequests is the per-client request budget per window.
	// Zero disables rate limiting.
	RateLimitRequests int `koanf:"rate_limit_requests"`

	// RateLimitWindow is the rate limit window.
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// DatabaseConfig configures the embedded DuckDB catalog store.
type DatabaseConfig struct {
	// Path is the DuckDB database file. ":memory:" for tests.
	Path string `koanf:"path"`

	// MaxMemory caps DuckDB memory usage (e.g. "1GB").
	MaxMemory string `koanf:"max_memory"`

	// Threads is the DuckDB thread count. Zero means runtime.NumCPU().
	Threads int `koanf:"threads"`
}

// EventsConfig configures the interaction event pipeline.
type EventsConfig struct {
	// WALPath is the Badger directory for the durable interaction WAL.
	WALPath string `koanf:"wal_path"`

	// WALSyncWrites forces fsync on every WAL write.
	WALSyncWrites bool `koanf:"wal_sync_writes"`

	// WALRetention is how long confirmed WAL entries are kept before
	// compaction removes them.
	WALRetention time.Duration `koanf:"wal_retention"`

	// BufferSize is the Watermill gochannel buffer per subscriber.
	BufferSize int `koanf:"buffer_size"`
}

// RecommendConfig configures the recommendation engine.
type RecommendConfig struct {
	// DefaultLimit is the number of recommendations when the request
	// doesn't specify one.
	DefaultLimit int `koanf:"default_limit"`

	// MaxLimit caps the per-request recommendation count.
	MaxLimit int `koanf:"max_limit"`

	// CandidateMultiplier sizes the candidate batch as multiplier*limit.
	CandidateMultiplier int `koanf:"candidate_multiplier"`

	// ProfileCacheTTL is the per-user profile cache lifetime.
	ProfileCacheTTL time.Duration `koanf:"profile_cache_ttl"`

	// RecommendationCacheTTL is the per-user recommendation list lifetime.
	RecommendationCacheTTL time.Duration `koanf:"recommendation_cache_ttl"`

	// SweepInterval is how often expired cache entries and stale events
	// are purged.
	SweepInterval time.Duration `koanf:"sweep_interval"`

	// TrendRefreshInterval is how often seasonal patterns and document
	// frequencies are rebuilt.
	TrendRefreshInterval time.Duration `koanf:"trend_refresh_interval"`

	// SerendipityRate is the fraction of result slots eligible for
	// high-novelty injection.
	SerendipityRate float64 `koanf:"serendipity_rate"`

	// MinCommonInteractions is the minimum interaction overlap for
	// collaborative filtering.
	MinCommonInteractions int `koanf:"min_common_interactions"`

	// MaxSimilarUsers caps the similar-user neighborhood.
	MaxSimilarUsers int `koanf:"max_similar_users"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with production defaults.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8460,
			Timeout:           30 * time.Second,
			CORSOrigins:       []string{"*"},
			RateLimitRequests: 100,
			RateLimitWindow:   time.Minute,
		},
		Database: DatabaseConfig{
			Path:      "/data/flicklit.duckdb",
			MaxMemory: "1GB",
			Threads:   0,
		},
		Events: EventsConfig{
			WALPath:       "/data/wal",
			WALSyncWrites: true,
			WALRetention:  24 * time.Hour,
			BufferSize:    1024,
		},
		Recommend: RecommendConfig{
			DefaultLimit:           10,
			MaxLimit:               100,
			CandidateMultiplier:    3,
			ProfileCacheTTL:        time.Hour,
			RecommendationCacheTTL: 30 * time.Minute,
			SweepInterval:          5 * time.Minute,
			TrendRefreshInterval:   time.Hour,
			SerendipityRate:        0.1,
			MinCommonInteractions:  3,
			MaxSimilarUsers:        20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads configuration from defaults, an optional config file, and
// environment variables, then validates the result.
func Load() (*Config, error) {
	return loadFrom(findConfigFile())
}

// LoadFile loads configuration from an explicit file path.
func LoadFile(path string) (*Config, error) {
	return loadFrom(path)
}

func loadFrom(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// FLICKLIT_SERVER_PORT -> server.port
	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "_", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// findConfigFile returns the first existing config file, or "".
func findConfigFile() string {
	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		return path
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Recommend.DefaultLimit <= 0 {
		return fmt.Errorf("recommend.default_limit must be positive")
	}
	if c.Recommend.MaxLimit < c.Recommend.DefaultLimit {
		return fmt.Errorf("recommend.max_limit %d below default_limit %d",
			c.Recommend.MaxLimit, c.Recommend.DefaultLimit)
	}
	if c.Recommend.CandidateMultiplier < 1 {
		return fmt.Errorf("recommend.candidate_multiplier must be at least 1")
	}
	if c.Recommend.SerendipityRate < 0 || c.Recommend.SerendipityRate > 1 {
		return fmt.Errorf("recommend.serendipity_rate %f out of [0,1]",
			c.Recommend.SerendipityRate)
	}
	if c.Recommend.MinCommonInteractions < 1 {
		return fmt.Errorf("recommend.min_common_interactions must be at least 1")
	}
	if c.Events.BufferSize <= 0 {
		return fmt.Errorf("events.buffer_size must be positive")
	}
	return nil
}

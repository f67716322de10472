// Surgewatch - YouTube Channel Velocity Tracking and Alerting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/surgewatch

// Package config loads and validates the Surgewatch configuration.
//
// Configuration is layered with koanf: built-in defaults, then an
// optional YAML file, then environment variables (highest priority).
package config

import "time"

// Config is the root configuration structure.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	YouTube   YouTubeConfig   `koanf:"youtube"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
	Alerts    AlertsConfig    `koanf:"alerts"`
	Resolver  ResolverConfig  `koanf:"resolver"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig configures the operational HTTP surface.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`

	// Environment is "development" or "production".
	Environment string `koanf:"environment"`

	// TriggerRateLimit caps manual cycle triggers per minute per client.
	TriggerRateLimit int `koanf:"trigger_rate_limit"`
}

// DatabaseConfig configures the DuckDB store.
type DatabaseConfig struct {
	// Path is the database file path, or ":memory:" for tests.
	Path string `koanf:"path"`

	// MaxMemory is the DuckDB memory limit, e.g. "1GB".
	MaxMemory string `koanf:"max_memory"`

	// Threads is the DuckDB thread count. 0 = runtime.NumCPU().
	Threads int `koanf:"threads"`
}

// YouTubeConfig configures the upstream Data API client.
type YouTubeConfig struct {
	// APIKey is the YouTube Data API v3 key. Required.
	APIKey string `koanf:"api_key"`

	// BaseURL overrides the API endpoint; used by tests.
	BaseURL string `koanf:"base_url"`

	Timeout       time.Duration `koanf:"timeout"`
	RetryAttempts int           `koanf:"retry_attempts"`
	RetryDelay    time.Duration `koanf:"retry_delay"`

	// QuotaPerMinute is the shared request budget across all workers.
	QuotaPerMinute int `koanf:"quota_per_minute"`

	// MaxVideosPerChannel bounds how many recent uploads are tracked.
	MaxVideosPerChannel int `koanf:"max_videos_per_channel"`
}

// SchedulerConfig configures the ingestion/evaluation cycle driver.
type SchedulerConfig struct {
	// Interval is the cycle cadence. A tick that arrives while a cycle
	// is still running is skipped.
	Interval time.Duration `koanf:"interval"`

	// Workers is the bounded number of concurrent channel fetches.
	Workers int `koanf:"workers"`

	// FetchTimeout bounds a single channel's ingestion, including
	// retries. A timeout fails that channel only, never the cycle.
	FetchTimeout time.Duration `koanf:"fetch_timeout"`

	// RunOnStartup runs one cycle immediately instead of waiting for
	// the first tick.
	RunOnStartup bool `koanf:"run_on_startup"`
}

// AlertsConfig configures rule defaults and delivery.
type AlertsConfig struct {
	// DefaultWebhookURL is the fallback destination for watchlists
	// without their own webhook. Empty means such watchlists are
	// skipped.
	DefaultWebhookURL string `koanf:"default_webhook_url"`

	// DeliveryTimeout bounds a single webhook POST.
	DeliveryTimeout time.Duration `koanf:"delivery_timeout"`

	// NotifyRateLimit is the minimum spacing between outbound messages
	// to one destination.
	NotifyRateLimit time.Duration `koanf:"notify_rate_limit"`

	Long  RuleOverrides `koanf:"long"`
	Short RuleOverrides `koanf:"short"`
}

// RuleOverrides tune the built-in per-category rule defaults.
// Zero values leave the default in place; MinAgeMinutes uses -1 for
// "no override" so it can be lowered to zero in development.
type RuleOverrides struct {
	Multiplier    float64 `koanf:"multiplier"`
	AbsFloorVPH   float64 `koanf:"abs_floor_vph"`
	MinAgeMinutes int     `koanf:"min_age_minutes"`
	MaxAgeHours   float64 `koanf:"max_age_hours"`
}

// ResolverConfig configures the channel handle resolver cache.
type ResolverConfig struct {
	// CachePath is the badger directory for resolved handles.
	// Empty disables the persistent cache.
	CachePath string `koanf:"cache_path"`

	// CacheTTL is how long a resolved handle stays valid.
	CacheTTL time.Duration `koanf:"cache_ttl"`
}

// LoggingConfig configures the zerolog logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all defaults applied. These are
// layered first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8385,
			Timeout:          30 * time.Second,
			Environment:      "development",
			TriggerRateLimit: 6,
		},
		Database: DatabaseConfig{
			Path:      "/data/surgewatch.duckdb",
			MaxMemory: "1GB",
			Threads:   0, // 0 = use runtime.NumCPU()
		},
		YouTube: YouTubeConfig{
			APIKey:              "",
			BaseURL:             "https://youtube.googleapis.com/youtube/v3",
			Timeout:             20 * time.Second,
			RetryAttempts:       5,
			RetryDelay:          1 * time.Second,
			QuotaPerMinute:      60,
			MaxVideosPerChannel: 200,
		},
		Scheduler: SchedulerConfig{
			Interval:     15 * time.Minute,
			Workers:      4,
			FetchTimeout: 2 * time.Minute,
			RunOnStartup: false,
		},
		Alerts: AlertsConfig{
			DefaultWebhookURL: "",
			DeliveryTimeout:   15 * time.Second,
			NotifyRateLimit:   1 * time.Second,
			Long:              RuleOverrides{MinAgeMinutes: -1},
			Short:             RuleOverrides{MinAgeMinutes: -1},
		},
		Resolver: ResolverConfig{
			CachePath: "/data/resolver",
			CacheTTL:  7 * 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Surgewatch - YouTube Channel Velocity Tracking and Alerting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/surgewatch

package config

import (
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := defaultConfig()
	cfg.YouTube.APIKey = "test-key"
	return cfg
}

func TestValidateRequiresAPIKey(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for missing API key")
	}

	cfg.YouTube.APIKey = "key"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error with API key set: %v", err)
	}
}

func TestValidateScheduler(t *testing.T) {
	cfg := validConfig()
	cfg.Scheduler.Interval = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero interval")
	}

	cfg = validConfig()
	cfg.Scheduler.Workers = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero workers")
	}
}

func TestValidateWebhookURL(t *testing.T) {
	cfg := validConfig()
	cfg.Alerts.DefaultWebhookURL = "not-a-url"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for malformed webhook URL")
	}

	cfg.Alerts.DefaultWebhookURL = "https://discord.com/api/webhooks/1/abc"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error for valid webhook URL: %v", err)
	}
}

func TestValidateEnvironment(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Environment = "staging"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown environment")
	}
}

func TestDefaultsAreSane(t *testing.T) {
	cfg := defaultConfig()
	if cfg.Scheduler.Interval != 15*time.Minute {
		t.Errorf("default interval = %s, want 15m", cfg.Scheduler.Interval)
	}
	if cfg.Scheduler.Workers < 1 {
		t.Errorf("default workers = %d, want >= 1", cfg.Scheduler.Workers)
	}
	if cfg.Alerts.Long.MinAgeMinutes != -1 || cfg.Alerts.Short.MinAgeMinutes != -1 {
		t.Error("rule overrides should default to -1 (no override) for min age")
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		env  string
		want string
	}{
		{"SPIKE_YOUTUBE_API_KEY", "youtube.api_key"},
		{"SPIKE_DATABASE_PATH", "database.path"},
		{"SPIKE_SCHEDULER_INTERVAL", "scheduler.interval"},
		{"SPIKE_ALERTS_DEFAULT_WEBHOOK_URL", "alerts.default_webhook_url"},
		{"SPIKE_ALERTS_LONG_ABS_FLOOR_VPH", "alerts.long.abs_floor_vph"},
		{"SPIKE_ALERTS_SHORT_MIN_AGE_MINUTES", "alerts.short.min_age_minutes"},
		{"SPIKE_SERVER_PORT", "server.port"},
		{"SPIKE_UNRELATED", ""},
	}
	for _, tt := range tests {
		if got := envTransformFunc(tt.env); got != tt.want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tt.env, got, tt.want)
		}
	}
}

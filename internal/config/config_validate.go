// Surgewatch - YouTube Channel Velocity Tracking and Alerting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/surgewatch

package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks that required configuration is present and valid.
// Validation failures here are fatal at startup; per-watchlist rule
// problems are handled at cycle time instead so one user's bad data
// cannot keep the engine down.
func (c *Config) Validate() error {
	if err := c.validateYouTube(); err != nil {
		return err
	}
	if err := c.validateScheduler(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateAlerts(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateYouTube() error {
	if c.YouTube.APIKey == "" {
		return fmt.Errorf("SPIKE_YOUTUBE_API_KEY is required")
	}
	if c.YouTube.BaseURL != "" {
		if _, err := url.ParseRequestURI(c.YouTube.BaseURL); err != nil {
			return fmt.Errorf("invalid youtube.base_url: %w", err)
		}
	}
	if c.YouTube.RetryAttempts < 1 {
		return fmt.Errorf("youtube.retry_attempts must be >= 1, got %d", c.YouTube.RetryAttempts)
	}
	if c.YouTube.QuotaPerMinute < 1 {
		return fmt.Errorf("youtube.quota_per_minute must be >= 1, got %d", c.YouTube.QuotaPerMinute)
	}
	if c.YouTube.MaxVideosPerChannel < 1 {
		return fmt.Errorf("youtube.max_videos_per_channel must be >= 1, got %d", c.YouTube.MaxVideosPerChannel)
	}
	return nil
}

func (c *Config) validateScheduler() error {
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be positive, got %s", c.Scheduler.Interval)
	}
	if c.Scheduler.Workers < 1 {
		return fmt.Errorf("scheduler.workers must be >= 1, got %d", c.Scheduler.Workers)
	}
	if c.Scheduler.FetchTimeout <= 0 {
		return fmt.Errorf("scheduler.fetch_timeout must be positive, got %s", c.Scheduler.FetchTimeout)
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	env := strings.ToLower(c.Server.Environment)
	if env != "development" && env != "production" {
		return fmt.Errorf("server.environment must be development or production, got %q", c.Server.Environment)
	}
	return nil
}

func (c *Config) validateAlerts() error {
	if c.Alerts.DefaultWebhookURL != "" {
		u, err := url.ParseRequestURI(c.Alerts.DefaultWebhookURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("alerts.default_webhook_url must be an http(s) URL")
		}
	}
	for _, pair := range []struct {
		name string
		o    RuleOverrides
	}{{"long", c.Alerts.Long}, {"short", c.Alerts.Short}} {
		if pair.o.Multiplier < 0 {
			return fmt.Errorf("alerts.%s.multiplier must not be negative", pair.name)
		}
		if pair.o.AbsFloorVPH < 0 {
			return fmt.Errorf("alerts.%s.abs_floor_vph must not be negative", pair.name)
		}
		if pair.o.MaxAgeHours < 0 {
			return fmt.Errorf("alerts.%s.max_age_hours must not be negative", pair.name)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "", "trace", "debug", "info", "warn", "warning", "error", "fatal":
	default:
		return fmt.Errorf("logging.level must be one of trace, debug, info, warn, error, fatal; got %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

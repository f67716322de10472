// Surgewatch - YouTube Channel Velocity Tracking and Alerting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/surgewatch

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/surgewatch/config.yaml",
	"/etc/surgewatch/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// envPrefix namespaces Surgewatch environment variables.
const envPrefix = "SPIKE_"

// Load loads configuration with layered sources:
//
//  1. Built-in defaults
//  2. Optional YAML config file
//  3. SPIKE_* environment variables (highest priority)
//
// SPIKE_YOUTUBE_API_KEY maps to youtube.api_key, SPIKE_SCHEDULER_INTERVAL
// to scheduler.interval, and so on; the first underscore-separated token
// selects the section, the rest form the key.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file path, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// configSections are the top-level config keys an env var can address.
var configSections = []string{
	"server", "database", "youtube", "scheduler", "alerts", "resolver", "logging",
}

// envTransformFunc maps SPIKE_* environment variable names to koanf
// config paths:
//
//	SPIKE_YOUTUBE_API_KEY      -> youtube.api_key
//	SPIKE_DATABASE_PATH        -> database.path
//	SPIKE_ALERTS_LONG_ABS_FLOOR_VPH -> alerts.long.abs_floor_vph
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))

	for _, section := range configSections {
		if !strings.HasPrefix(key, section+"_") {
			continue
		}
		rest := strings.TrimPrefix(key, section+"_")
		if section == "alerts" {
			for _, category := range []string{"long", "short"} {
				if strings.HasPrefix(rest, category+"_") {
					return section + "." + category + "." + strings.TrimPrefix(rest, category+"_")
				}
			}
		}
		return section + "." + rest
	}

	// Unrecognized variables are ignored by returning an empty path.
	return ""
}

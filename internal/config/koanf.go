// Control Tower - PMO Compliance Monitoring and Portfolio Analytics
// Copyright 2026 PMO Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pmolabs/controltower

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

// DefaultConfigPaths lists the paths where config files are searched in order
// of priority. The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/controltower/config.yaml",
	"/etc/controltower/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			URL:             "",
			MaxConns:        10,
			MinConns:        2,
			ConnectTimeout:  10 * time.Second,
			MaxConnLifetime: 1 * time.Hour,
			MigrateOnStart:  true,
		},
		Asana: AsanaConfig{
			BaseURL:       "https://app.asana.com/api/1.0",
			AccessToken:   "",
			WorkspaceGID:  "",
			PMOIDField:    "PMO ID",
			VerticalField: "Business Vertical",
			VerticalValue: "Professional Services",
			Timeout:       30 * time.Second,
			RateLimit:     2.0, // Stay under Asana's 150 req/min
			RetryAttempts: 5,
			RetryDelay:    2 * time.Second,
		},
		Clockify: ClockifyConfig{
			Enabled:      false,
			BaseURL:      "https://api.clockify.me/api/v1",
			APIKey:       "",
			WorkspaceID:  "",
			LookbackDays: 30,
			PageSize:     200,
			Timeout:      30 * time.Second,
		},
		Sync: SyncConfig{
			Interval:      1 * time.Hour,
			Workers:       4,
			RetentionDays: 30,
			RunOnStartup:  false,
			Timeout:       30 * time.Minute,
		},
		Rules: RulesConfig{
			NoStatusUpdateDays: 7,
			MinTaskCount:       3,
			ScheduleRisk: []ScheduleRiskThreshold{
				{Days: 7, MinProgress: 80, Severity: "high"},
				{Days: 14, MinProgress: 60, Severity: "medium"},
				{Days: 30, MinProgress: 40, Severity: "low"},
			},
		},
		Slack: SlackConfig{
			Enabled:    false,
			WebhookURL: "",
			Timeout:    10 * time.Second,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			Timeout:         30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: 1 * time.Minute,
		},
		API: APIConfig{
			DefaultPageSize: 20,
			MaxPageSize:     100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: built-in sensible defaults
//  2. Config File: optional YAML config file (if exists)
//  3. Environment Variables: override any setting
//
// Precedence is ENV > File > Defaults. The result is validated before return.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Post-process slice fields from comma-separated strings
	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
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

// Load is an alias for LoadWithKoanf kept for call-site brevity.
func Load() (*Config, error) {
	return LoadWithKoanf()
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
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

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known
// slice fields. Env vars come in as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// Already a slice (from YAML file or defaults)
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		if strVal, ok := val.(string); ok {
			if strVal == "" {
				continue
			}
			parts := strings.Split(strVal, ",")
			trimmed := make([]string, 0, len(parts))
			for _, p := range parts {
				p = strings.TrimSpace(p)
				if p != "" {
					trimmed = append(trimmed, p)
				}
			}
			if len(trimmed) > 0 {
				if err := k.Set(path, trimmed); err != nil {
					return fmt.Errorf("failed to set %s: %w", path, err)
				}
			}
		}
	}
	return nil
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - DATABASE_URL -> database.url
//   - ASANA_ACCESS_TOKEN -> asana.access_token
//   - SYNC_WORKERS -> sync.workers
//   - HTTP_PORT -> server.port
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Database mappings
		"database_url":               "database.url",
		"database_max_conns":         "database.max_conns",
		"database_min_conns":         "database.min_conns",
		"database_connect_timeout":   "database.connect_timeout",
		"database_max_conn_lifetime": "database.max_conn_lifetime",
		"database_migrate_on_start":  "database.migrate_on_start",

		// Asana mappings
		"asana_base_url":       "asana.base_url",
		"asana_access_token":   "asana.access_token",
		"asana_workspace_gid":  "asana.workspace_gid",
		"asana_pmo_id_field":   "asana.pmo_id_field",
		"asana_vertical_field": "asana.vertical_field",
		"asana_vertical_value": "asana.vertical_value",
		"asana_timeout":        "asana.timeout",
		"asana_rate_limit":     "asana.rate_limit",
		"asana_retry_attempts": "asana.retry_attempts",
		"asana_retry_delay":    "asana.retry_delay",

		// Clockify mappings
		"clockify_enabled":       "clockify.enabled",
		"clockify_base_url":      "clockify.base_url",
		"clockify_api_key":       "clockify.api_key",
		"clockify_workspace_id":  "clockify.workspace_id",
		"clockify_lookback_days": "clockify.lookback_days",
		"clockify_page_size":     "clockify.page_size",
		"clockify_timeout":       "clockify.timeout",

		// Sync mappings
		"sync_interval":       "sync.interval",
		"sync_workers":        "sync.workers",
		"sync_retention_days": "sync.retention_days",
		"sync_on_startup":     "sync.run_on_startup",
		"sync_timeout":        "sync.timeout",

		// Rules mappings
		"rules_no_status_update_days": "rules.no_status_update_days",
		"rules_min_task_count":        "rules.min_task_count",

		// Slack mappings
		"slack_enabled":     "slack.enabled",
		"slack_webhook_url": "slack.webhook_url",
		"slack_timeout":     "slack.timeout",

		// Server mappings
		"http_host":           "server.host",
		"http_port":           "server.port",
		"http_timeout":        "server.timeout",
		"shutdown_timeout":    "server.shutdown_timeout",
		"cors_origins":        "server.cors_origins",
		"rate_limit_requests": "server.rate_limit_reqs",
		"rate_limit_window":   "server.rate_limit_window",

		// API mappings
		"api_default_page_size": "api.default_page_size",
		"api_max_page_size":     "api.max_page_size",

		// Logging mappings
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	// Unmapped keys are skipped so random environment variables
	// do not pollute the config.
	return ""
}

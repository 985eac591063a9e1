// Control Tower - PMO Compliance Monitoring and Portfolio Analytics
// Copyright 2026 PMO Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pmolabs/controltower

package config

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateDatabase(); err != nil {
		return err
	}

	if err := c.validateAsana(); err != nil {
		return err
	}

	if err := c.validateClockify(); err != nil {
		return err
	}

	if err := c.validateSync(); err != nil {
		return err
	}

	if err := c.validateRules(); err != nil {
		return err
	}

	if err := c.validateSlack(); err != nil {
		return err
	}

	if err := c.validateServer(); err != nil {
		return err
	}

	return c.validateLogging()
}

// validateDatabase validates the Postgres connection settings
func (c *Config) validateDatabase() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	u, err := url.Parse(c.Database.URL)
	if err != nil {
		return fmt.Errorf("DATABASE_URL is invalid: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return fmt.Errorf("DATABASE_URL scheme must be postgres or postgresql, got: %s", u.Scheme)
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("DATABASE_MAX_CONNS must be at least 1")
	}
	if c.Database.MinConns < 0 || c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("DATABASE_MIN_CONNS must be between 0 and DATABASE_MAX_CONNS")
	}
	return nil
}

// validateAsana validates the upstream Asana connection and scope filter
func (c *Config) validateAsana() error {
	if c.Asana.AccessToken == "" {
		return fmt.Errorf("ASANA_ACCESS_TOKEN is required")
	}
	if c.Asana.WorkspaceGID == "" {
		return fmt.Errorf("ASANA_WORKSPACE_GID is required")
	}
	if err := validateHTTPURL(c.Asana.BaseURL, "ASANA_BASE_URL"); err != nil {
		return err
	}
	if c.Asana.PMOIDField == "" {
		return fmt.Errorf("ASANA_PMO_ID_FIELD must not be empty")
	}
	if c.Asana.VerticalField == "" {
		return fmt.Errorf("ASANA_VERTICAL_FIELD must not be empty")
	}
	if c.Asana.RateLimit <= 0 {
		return fmt.Errorf("ASANA_RATE_LIMIT must be positive")
	}
	if c.Asana.RetryAttempts < 0 || c.Asana.RetryAttempts > 20 {
		return fmt.Errorf("ASANA_RETRY_ATTEMPTS must be between 0 and 20")
	}
	return nil
}

// validateClockify validates Clockify configuration (only if enabled)
func (c *Config) validateClockify() error {
	if !c.Clockify.Enabled {
		return nil
	}
	if c.Clockify.APIKey == "" {
		return fmt.Errorf("CLOCKIFY_API_KEY is required when CLOCKIFY_ENABLED=true")
	}
	if c.Clockify.WorkspaceID == "" {
		return fmt.Errorf("CLOCKIFY_WORKSPACE_ID is required when CLOCKIFY_ENABLED=true")
	}
	if err := validateHTTPURL(c.Clockify.BaseURL, "CLOCKIFY_BASE_URL"); err != nil {
		return err
	}
	if c.Clockify.LookbackDays < 1 || c.Clockify.LookbackDays > 365 {
		return fmt.Errorf("CLOCKIFY_LOOKBACK_DAYS must be between 1 and 365")
	}
	if c.Clockify.PageSize < 1 || c.Clockify.PageSize > 5000 {
		return fmt.Errorf("CLOCKIFY_PAGE_SIZE must be between 1 and 5000")
	}
	return nil
}

// validateSync validates the orchestrator settings
func (c *Config) validateSync() error {
	if c.Sync.Interval <= 0 {
		return fmt.Errorf("SYNC_INTERVAL must be positive")
	}
	if c.Sync.Workers < 1 || c.Sync.Workers > 64 {
		return fmt.Errorf("SYNC_WORKERS must be between 1 and 64")
	}
	if c.Sync.RetentionDays < 0 {
		return fmt.Errorf("SYNC_RETENTION_DAYS must not be negative")
	}
	return nil
}

// validateRules validates rule thresholds. Schedule-risk rows must carry a
// known severity; they are sorted ascending by day window so the tightest
// threshold is checked first.
func (c *Config) validateRules() error {
	if c.Rules.NoStatusUpdateDays < 1 {
		return fmt.Errorf("RULES_NO_STATUS_UPDATE_DAYS must be at least 1")
	}
	if c.Rules.MinTaskCount < 0 {
		return fmt.Errorf("RULES_MIN_TASK_COUNT must not be negative")
	}
	for i, t := range c.Rules.ScheduleRisk {
		if t.Days < 1 {
			return fmt.Errorf("rules.schedule_risk[%d].days must be at least 1", i)
		}
		if t.MinProgress < 0 || t.MinProgress > 100 {
			return fmt.Errorf("rules.schedule_risk[%d].min_progress must be between 0 and 100", i)
		}
		switch strings.ToLower(t.Severity) {
		case "low", "medium", "high":
		default:
			return fmt.Errorf("rules.schedule_risk[%d].severity must be low, medium, or high, got: %s", i, t.Severity)
		}
	}
	sort.SliceStable(c.Rules.ScheduleRisk, func(i, j int) bool {
		return c.Rules.ScheduleRisk[i].Days < c.Rules.ScheduleRisk[j].Days
	})
	return nil
}

// validateSlack validates Slack configuration (only if enabled)
func (c *Config) validateSlack() error {
	if !c.Slack.Enabled {
		return nil
	}
	if c.Slack.WebhookURL == "" {
		return fmt.Errorf("SLACK_WEBHOOK_URL is required when SLACK_ENABLED=true")
	}
	u, err := url.Parse(c.Slack.WebhookURL)
	if err != nil {
		return fmt.Errorf("SLACK_WEBHOOK_URL is invalid: %w", err)
	}
	if u.Scheme != "https" {
		return fmt.Errorf("SLACK_WEBHOOK_URL scheme must be https, got: %s", u.Scheme)
	}
	return nil
}

// validateServer validates the HTTP server settings
func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.API.DefaultPageSize < 1 {
		return fmt.Errorf("API_DEFAULT_PAGE_SIZE must be at least 1")
	}
	if c.API.MaxPageSize < c.API.DefaultPageSize {
		return fmt.Errorf("API_MAX_PAGE_SIZE must not be smaller than API_DEFAULT_PAGE_SIZE")
	}
	return nil
}

// validateLogging validates the logging settings
func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "error", "fatal":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error, fatal, got: %s", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got: %s", c.Logging.Format)
	}
	return nil
}

// Control Tower - PMO Compliance Monitoring and Portfolio Analytics
// Copyright 2026 PMO Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pmolabs/controltower

// Package config loads and validates application configuration.
//
// Configuration is layered with Koanf v2: built-in struct defaults, then an
// optional YAML config file, then environment variables. Environment
// variables win. The resulting Config is immutable after Load and safe for
// concurrent reads.
//
// Sections:
//
//   - Database: Postgres connection pool and migration settings
//   - Asana: upstream project source (token, workspace, scope fields)
//   - Clockify: optional time-tracking source
//   - Sync: orchestrator interval, worker pool, retention window
//   - Rules: compliance rule thresholds
//   - Slack: webhook notification settings
//   - Server: HTTP API listener
//   - API: pagination limits
//   - Logging: level and output format
package config

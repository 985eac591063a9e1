// Control Tower - PMO Compliance Monitoring and Portfolio Analytics
// Copyright 2026 PMO Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pmolabs/controltower

package models

import "time"

// TimeEntry is one tracked Clockify time entry persisted for portfolio
// reporting. Rows are upserted by external ID on every sync; entries edited
// upstream within the lookback window converge to the latest version.
type TimeEntry struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	UserName        *string    `json:"user_name,omitempty"`
	ProjectID       *string    `json:"project_id,omitempty"`
	Description     *string    `json:"description,omitempty"`
	Billable        bool       `json:"billable"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	DurationSeconds float64    `json:"duration_seconds"`
	SyncedAt        time.Time  `json:"synced_at"`
}

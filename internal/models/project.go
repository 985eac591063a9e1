// Control Tower - PMO Compliance Monitoring and Portfolio Analytics
// Copyright 2026 PMO Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pmolabs/controltower

package models

import "time"

// ProjectStatus is the declared status taken from the latest status update.
type ProjectStatus string

// Declared project statuses. Asana reports these as status-update colors;
// the client normalizes color names to these values at the boundary.
const (
	StatusOnTrack  ProjectStatus = "on_track"
	StatusAtRisk   ProjectStatus = "at_risk"
	StatusOffTrack ProjectStatus = "off_track"
	StatusOnHold   ProjectStatus = "on_hold"
)

// Project is the current snapshot of one synchronized project.
//
// Exactly one row exists per external identifier (GID). The row is created on
// first observation and updated in place on every subsequent sync; it is never
// deleted. SyncedAt is monotonically non-decreasing.
type Project struct {
	GID                  string         `json:"gid"`
	Name                 string         `json:"name"`
	OwnerGID             *string        `json:"owner_gid,omitempty"`
	OwnerName            *string        `json:"owner_name,omitempty"`
	DueDate              *time.Time     `json:"due_date,omitempty"`
	Status               *ProjectStatus `json:"status,omitempty"`
	CalculatedProgress   float64        `json:"calculated_progress"`
	LastStatusUpdateAt   *time.Time     `json:"last_status_update_at,omitempty"`
	LastStatusUpdateBy   *string        `json:"last_status_update_by,omitempty"`
	LastActivityAt       *time.Time     `json:"last_activity_at,omitempty"`
	TotalTasks           int            `json:"total_tasks"`
	CompletedTasks       int            `json:"completed_tasks"`
	TasksCreatedLast7d   int            `json:"tasks_created_last_7d"`
	TasksCompletedLast7d int            `json:"tasks_completed_last_7d"`
	TasksModifiedLast7d  int            `json:"tasks_modified_last_7d"`

	// Portfolio classification extracted from custom fields.
	PMOID            *string `json:"pmo_id,omitempty"`
	Sponsor          *string `json:"sponsor,omitempty"`
	BusinessVertical *string `json:"business_vertical,omitempty"`
	ProjectPhase     *string `json:"project_phase,omitempty"`
	BillingPlan      bool    `json:"billing_plan"`
	Completed        bool    `json:"completed"`

	// RawData retains the full upstream payload for traceability. It is not
	// consulted during rule evaluation.
	RawData  []byte    `json:"-"`
	SyncedAt time.Time `json:"synced_at"`
}

// ProjectSnapshot is the append-once terminal copy of a project that left the
// active sync scope. It shares the GID with the live row but is stored in a
// separate table so lookups can fall back to it without conflict.
type ProjectSnapshot struct {
	GID                string         `json:"gid"`
	Name               string         `json:"name"`
	OwnerGID           *string        `json:"owner_gid,omitempty"`
	OwnerName          *string        `json:"owner_name,omitempty"`
	Status             *ProjectStatus `json:"status,omitempty"`
	LastStatusUpdateAt *time.Time     `json:"last_status_update_at,omitempty"`
	LastStatusUpdateBy *string        `json:"last_status_update_by,omitempty"`
	PMOID              *string        `json:"pmo_id,omitempty"`
	Sponsor            *string        `json:"sponsor,omitempty"`
	BusinessVertical   *string        `json:"business_vertical,omitempty"`
	RawData            []byte         `json:"-"`
	SnapshotAt         time.Time      `json:"snapshot_at"`
}

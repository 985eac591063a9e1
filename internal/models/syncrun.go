// Control Tower - PMO Compliance Monitoring and Portfolio Analytics
// Copyright 2026 PMO Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pmolabs/controltower

package models

import (
	"time"

	"github.com/google/uuid"
)

// SyncRunStatus is the state of one orchestrator execution.
type SyncRunStatus string

const (
	SyncRunning   SyncRunStatus = "running"
	SyncCompleted SyncRunStatus = "completed"
	SyncFailed    SyncRunStatus = "failed"
)

// SyncRun is the metadata row for one execution of the sync orchestrator.
//
// CompletedAt is set exactly once, on the terminal transition. A run killed
// mid-flight stays in running state for an operational wrapper to reconcile;
// it is never silently lost.
type SyncRun struct {
	ID                uuid.UUID     `json:"sync_id"`
	StartedAt         time.Time     `json:"started_at"`
	CompletedAt       *time.Time    `json:"completed_at,omitempty"`
	Status            SyncRunStatus `json:"status"`
	ProjectsSynced    int           `json:"projects_synced"`
	ProjectsFailed    int           `json:"projects_failed"`
	ProjectsSkipped   int           `json:"projects_skipped"`
	ChangesDetected   int           `json:"changes_detected"`
	FindingsCreated   int           `json:"findings_created"`
	FindingsEscalated int           `json:"findings_escalated"`
	ErrorDetail       *string       `json:"error_detail,omitempty"`
}

// Control Tower - PMO Compliance Monitoring and Portfolio Analytics
// Copyright 2026 PMO Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pmolabs/controltower

package models

import (
	"time"

	"github.com/google/uuid"
)

// ChangelogEntry records one field-level transition for one project.
//
// Entries are append-only: never mutated or deleted after insertion. The
// field name is restricted to the diff engine's audited-field allow-list.
type ChangelogEntry struct {
	ID         int64     `json:"id"`
	ProjectGID string    `json:"project_gid"`
	FieldName  string    `json:"field_name"`
	OldValue   *string   `json:"old_value,omitempty"`
	NewValue   *string   `json:"new_value,omitempty"`
	DetectedAt time.Time `json:"detected_at"`
	SyncID     uuid.UUID `json:"sync_id"`
}

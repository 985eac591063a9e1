// Control Tower - PMO Compliance Monitoring and Portfolio Analytics
// Copyright 2026 PMO Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pmolabs/controltower

// Package diff computes field-level changes between the stored and freshly
// synced version of a project.
//
// Only fields on the audited allow-list produce change log entries; payload
// noise outside the list never reaches the change log. Comparison is
// normalized: calendar dates compare by date regardless of time component,
// strings compare trimmed, and nil-to-value in either direction is a change.
// The first observation of a project produces no entries.
package diff

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pmolabs/controltower/internal/models"
)

// Audited field names as they appear in change log entries.
const (
	FieldDueDate            = "due_date"
	FieldOwnerGID           = "owner_gid"
	FieldOwnerName          = "owner_name"
	FieldStatus             = "status"
	FieldLastStatusUpdateAt = "last_status_update_at"
	FieldLastStatusUpdateBy = "last_status_update_by"
	FieldTotalTasks         = "total_tasks"
	FieldCompletedTasks     = "completed_tasks"
	FieldCalculatedProgress = "calculated_progress"
)

// AuditedFields is the ordered allow-list of fields the engine inspects.
var AuditedFields = []string{
	FieldDueDate,
	FieldOwnerGID,
	FieldOwnerName,
	FieldStatus,
	FieldLastStatusUpdateAt,
	FieldLastStatusUpdateBy,
	FieldTotalTasks,
	FieldCompletedTasks,
	FieldCalculatedProgress,
}

// Compare returns one change log entry per audited field whose normalized
// value differs between prev and next. A nil prev means first observation
// and yields no entries. Entries are ordered by AuditedFields so repeated
// runs over the same transition produce identical output.
func Compare(prev, next *models.Project, syncID uuid.UUID, detectedAt time.Time) []models.ChangelogEntry {
	if prev == nil || next == nil {
		return nil
	}

	var entries []models.ChangelogEntry
	record := func(field string, oldVal, newVal *string) {
		entries = append(entries, models.ChangelogEntry{
			ProjectGID: next.GID,
			FieldName:  field,
			OldValue:   oldVal,
			NewValue:   newVal,
			DetectedAt: detectedAt,
			SyncID:     syncID,
		})
	}

	if !equalDate(prev.DueDate, next.DueDate) {
		record(FieldDueDate, formatDate(prev.DueDate), formatDate(next.DueDate))
	}
	if !equalString(prev.OwnerGID, next.OwnerGID) {
		record(FieldOwnerGID, trimmed(prev.OwnerGID), trimmed(next.OwnerGID))
	}
	if !equalString(prev.OwnerName, next.OwnerName) {
		record(FieldOwnerName, trimmed(prev.OwnerName), trimmed(next.OwnerName))
	}
	if !equalStatus(prev.Status, next.Status) {
		record(FieldStatus, statusString(prev.Status), statusString(next.Status))
	}
	if !equalTime(prev.LastStatusUpdateAt, next.LastStatusUpdateAt) {
		record(FieldLastStatusUpdateAt, formatTime(prev.LastStatusUpdateAt), formatTime(next.LastStatusUpdateAt))
	}
	if !equalString(prev.LastStatusUpdateBy, next.LastStatusUpdateBy) {
		record(FieldLastStatusUpdateBy, trimmed(prev.LastStatusUpdateBy), trimmed(next.LastStatusUpdateBy))
	}
	if prev.TotalTasks != next.TotalTasks {
		record(FieldTotalTasks, intString(prev.TotalTasks), intString(next.TotalTasks))
	}
	if prev.CompletedTasks != next.CompletedTasks {
		record(FieldCompletedTasks, intString(prev.CompletedTasks), intString(next.CompletedTasks))
	}
	if !equalProgress(prev.CalculatedProgress, next.CalculatedProgress) {
		record(FieldCalculatedProgress, progressString(prev.CalculatedProgress), progressString(next.CalculatedProgress))
	}

	return entries
}

// equalDate compares by calendar date in UTC; the time component is payload
// noise for due dates.
func equalDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

func equalTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func equalString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return strings.TrimSpace(*a) == strings.TrimSpace(*b)
}

func equalStatus(a, b *models.ProjectStatus) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// equalProgress tolerates float noise below a hundredth of a percent.
func equalProgress(a, b float64) bool {
	d := a - b
	return d < 0.01 && d > -0.01
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format("2006-01-02")
	return &s
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func statusString(s *models.ProjectStatus) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}

func intString(n int) *string {
	s := strconv.Itoa(n)
	return &s
}

func progressString(p float64) *string {
	s := fmt.Sprintf("%.1f", p)
	return &s
}

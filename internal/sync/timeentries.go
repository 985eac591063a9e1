// Control Tower - PMO Compliance Monitoring and Portfolio Analytics
// Copyright 2026 PMO Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pmolabs/controltower

package sync

import (
	"context"
	"time"

	"github.com/pmolabs/controltower/internal/logging"
	"github.com/pmolabs/controltower/internal/models"
	modelsclockify "github.com/pmolabs/controltower/internal/models/clockify"
)

// syncTimeEntries pulls every workspace member's time entries for the
// configured lookback window and upserts them. Time tracking is an optional
// enrichment: failures are logged but never fail the sync run.
func (m *Manager) syncTimeEntries(ctx context.Context, now time.Time) {
	lookback := time.Duration(m.cfg.Clockify.LookbackDays) * 24 * time.Hour
	windowStart := now.Add(-lookback)

	users, err := m.clockify.ListUsers(ctx)
	if err != nil {
		logging.Warn().Err(err).Msg("Time entry sync skipped: listing users failed")
		return
	}

	total := 0
	for _, user := range users {
		payloads, err := m.clockify.ListTimeEntries(ctx, user.ID, windowStart, now)
		if err != nil {
			logging.Warn().Err(err).Str("user_id", user.ID).Msg("Time entries unavailable for user")
			continue
		}
		if len(payloads) == 0 {
			continue
		}

		entries := make([]models.TimeEntry, 0, len(payloads))
		for i := range payloads {
			entries = append(entries, timeEntryFromPayload(&payloads[i], user.Name, now))
		}

		if err := m.store.UpsertTimeEntries(ctx, entries); err != nil {
			logging.Warn().Err(err).Str("user_id", user.ID).Msg("Failed to persist time entries")
			continue
		}
		total += len(entries)
	}

	logging.Info().
		Int("users", len(users)).
		Int("entries", total).
		Time("window_start", windowStart).
		Msg("Time entry sync finished")
}

// timeEntryFromPayload maps one upstream entry to the persisted model. A
// running entry keeps a nil end time and zero duration.
func timeEntryFromPayload(e *modelsclockify.TimeEntryPayload, userName string, now time.Time) models.TimeEntry {
	entry := models.TimeEntry{
		ID:              e.ID,
		UserID:          e.UserID,
		Billable:        e.Billable,
		StartedAt:       e.TimeInterval.Start,
		EndedAt:         e.TimeInterval.End,
		DurationSeconds: e.DurationSeconds(),
		SyncedAt:        now,
	}
	if userName != "" {
		name := userName
		entry.UserName = &name
	}
	if e.ProjectID != "" {
		projectID := e.ProjectID
		entry.ProjectID = &projectID
	}
	if e.Description != "" {
		desc := e.Description
		entry.Description = &desc
	}
	return entry
}

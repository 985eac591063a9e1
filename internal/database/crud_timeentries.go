// Control Tower - PMO Compliance Monitoring and Portfolio Analytics
// Copyright 2026 PMO Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pmolabs/controltower

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pmolabs/controltower/internal/models"
)

// UpsertTimeEntries writes a batch of time entries in one transaction,
// updating rows whose external ID already exists. Entries edited upstream
// within the lookback window converge to the latest version.
func (s *Store) UpsertTimeEntries(ctx context.Context, entries []models.TimeEntry) error {
	if len(entries) == 0 {
		return nil
	}

	start := time.Now()
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		for _, e := range entries {
			_, err := tx.Exec(ctx, `
				INSERT INTO time_entries (
					id, user_id, user_name, project_id, description, billable,
					started_at, ended_at, duration_seconds, synced_at
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
				ON CONFLICT (id) DO UPDATE SET
					user_id = EXCLUDED.user_id,
					user_name = EXCLUDED.user_name,
					project_id = EXCLUDED.project_id,
					description = EXCLUDED.description,
					billable = EXCLUDED.billable,
					started_at = EXCLUDED.started_at,
					ended_at = EXCLUDED.ended_at,
					duration_seconds = EXCLUDED.duration_seconds,
					synced_at = EXCLUDED.synced_at`,
				e.ID, e.UserID, e.UserName, e.ProjectID, e.Description, e.Billable,
				e.StartedAt, e.EndedAt, e.DurationSeconds, e.SyncedAt,
			)
			if err != nil {
				return fmt.Errorf("upsert time entry %s: %w", e.ID, err)
			}
		}
		return nil
	})
	observe("upsert_batch", "time_entries", start, err)
	return err
}

// ListTimeEntries returns a user's entries within [from, to), newest first.
func (s *Store) ListTimeEntries(ctx context.Context, userID string, from, to time.Time, limit, offset int) ([]models.TimeEntry, error) {
	start := time.Now()
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, user_name, project_id, description, billable,
		       started_at, ended_at, duration_seconds, synced_at
		FROM time_entries
		WHERE user_id = $1 AND started_at >= $2 AND started_at < $3
		ORDER BY started_at DESC
		LIMIT $4 OFFSET $5`,
		userID, from, to, limit, offset)
	if err != nil {
		observe("list", "time_entries", start, err)
		return nil, err
	}
	defer rows.Close()

	var entries []models.TimeEntry
	for rows.Next() {
		var e models.TimeEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.UserName, &e.ProjectID, &e.Description,
			&e.Billable, &e.StartedAt, &e.EndedAt, &e.DurationSeconds, &e.SyncedAt); err != nil {
			observe("list", "time_entries", start, err)
			return nil, err
		}
		entries = append(entries, e)
	}
	observe("list", "time_entries", start, rows.Err())
	return entries, rows.Err()
}

// SumTrackedSeconds totals tracked time per Clockify project within a window.
func (s *Store) SumTrackedSeconds(ctx context.Context, from, to time.Time) (map[string]float64, error) {
	start := time.Now()
	rows, err := s.pool.Query(ctx, `
		SELECT project_id, SUM(duration_seconds)
		FROM time_entries
		WHERE project_id IS NOT NULL AND started_at >= $1 AND started_at < $2
		GROUP BY project_id`,
		from, to)
	if err != nil {
		observe("sum_tracked", "time_entries", start, err)
		return nil, err
	}
	defer rows.Close()

	totals := make(map[string]float64)
	for rows.Next() {
		var projectID string
		var secs float64
		if err := rows.Scan(&projectID, &secs); err != nil {
			observe("sum_tracked", "time_entries", start, err)
			return nil, err
		}
		totals[projectID] = secs
	}
	observe("sum_tracked", "time_entries", start, rows.Err())
	return totals, rows.Err()
}

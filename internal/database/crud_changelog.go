// Control Tower - PMO Compliance Monitoring and Portfolio Analytics
// Copyright 2026 PMO Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pmolabs/controltower

package database

import (
	"context"
	"time"

	"github.com/pmolabs/controltower/internal/models"
)

// insertChangelogEntries appends change log rows. Entries are append-only;
// there is no update or delete path for this table.
func insertChangelogEntries(ctx context.Context, q dbtx, entries []models.ChangelogEntry) error {
	for _, e := range entries {
		_, err := q.Exec(ctx, `
			INSERT INTO changelog (project_gid, field_name, old_value, new_value, detected_at, sync_id)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			e.ProjectGID, e.FieldName, e.OldValue, e.NewValue, e.DetectedAt, e.SyncID,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// InsertChangelogEntries appends change log rows outside a transaction.
func (s *Store) InsertChangelogEntries(ctx context.Context, entries []models.ChangelogEntry) error {
	start := time.Now()
	err := insertChangelogEntries(ctx, s.pool, entries)
	observe("insert", "changelog", start, err)
	return err
}

// ListChangelog returns a project's change history, newest first.
func (s *Store) ListChangelog(ctx context.Context, projectGID string, limit, offset int) ([]models.ChangelogEntry, error) {
	start := time.Now()
	rows, err := s.pool.Query(ctx, `
		SELECT id, project_gid, field_name, old_value, new_value, detected_at, sync_id
		FROM changelog
		WHERE project_gid = $1
		ORDER BY detected_at DESC, id DESC
		LIMIT $2 OFFSET $3`,
		projectGID, limit, offset)
	if err != nil {
		observe("list", "changelog", start, err)
		return nil, err
	}
	defer rows.Close()

	var entries []models.ChangelogEntry
	for rows.Next() {
		var e models.ChangelogEntry
		if err := rows.Scan(&e.ID, &e.ProjectGID, &e.FieldName, &e.OldValue, &e.NewValue, &e.DetectedAt, &e.SyncID); err != nil {
			observe("list", "changelog", start, err)
			return nil, err
		}
		entries = append(entries, e)
	}
	observe("list", "changelog", start, rows.Err())
	return entries, rows.Err()
}

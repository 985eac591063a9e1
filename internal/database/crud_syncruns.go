// Control Tower - PMO Compliance Monitoring and Portfolio Analytics
// Copyright 2026 PMO Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pmolabs/controltower

package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pmolabs/controltower/internal/models"
)

const syncRunColumns = `id, started_at, completed_at, status, projects_synced,
	projects_failed, projects_skipped, changes_detected, findings_created,
	findings_escalated, error_detail`

func scanSyncRun(row pgx.Row) (*models.SyncRun, error) {
	var r models.SyncRun
	err := row.Scan(
		&r.ID, &r.StartedAt, &r.CompletedAt, &r.Status, &r.ProjectsSynced,
		&r.ProjectsFailed, &r.ProjectsSkipped, &r.ChangesDetected,
		&r.FindingsCreated, &r.FindingsEscalated, &r.ErrorDetail,
	)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return &r, nil
}

// CreateSyncRun inserts a new run row in running state.
func (s *Store) CreateSyncRun(ctx context.Context, run *models.SyncRun) error {
	start := time.Now()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sync_runs (id, started_at, status)
		VALUES ($1, $2, 'running')`,
		run.ID, run.StartedAt)
	observe("create", "sync_runs", start, err)
	return err
}

// CompleteSyncRun transitions a run to its terminal state with final
// counters. Status must be completed or failed; the transition happens
// exactly once per run.
func (s *Store) CompleteSyncRun(ctx context.Context, run *models.SyncRun) error {
	start := time.Now()
	tag, err := s.pool.Exec(ctx, `
		UPDATE sync_runs SET
			completed_at = $2,
			status = $3,
			projects_synced = $4,
			projects_failed = $5,
			projects_skipped = $6,
			changes_detected = $7,
			findings_created = $8,
			findings_escalated = $9,
			error_detail = $10
		WHERE id = $1 AND status = 'running'`,
		run.ID, run.CompletedAt, run.Status, run.ProjectsSynced,
		run.ProjectsFailed, run.ProjectsSkipped, run.ChangesDetected,
		run.FindingsCreated, run.FindingsEscalated, run.ErrorDetail)
	if err == nil && tag.RowsAffected() == 0 {
		err = ErrNotFound
	}
	observe("complete", "sync_runs", start, err)
	return err
}

// GetSyncRun fetches one run by ID.
func (s *Store) GetSyncRun(ctx context.Context, id string) (*models.SyncRun, error) {
	start := time.Now()
	run, err := scanSyncRun(s.pool.QueryRow(ctx,
		`SELECT `+syncRunColumns+` FROM sync_runs WHERE id = $1`, id))
	observe("get", "sync_runs", start, err)
	return run, err
}

// ListSyncRuns returns runs newest first.
func (s *Store) ListSyncRuns(ctx context.Context, limit, offset int) ([]models.SyncRun, error) {
	start := time.Now()
	rows, err := s.pool.Query(ctx, `
		SELECT `+syncRunColumns+` FROM sync_runs
		ORDER BY started_at DESC
		LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		observe("list", "sync_runs", start, err)
		return nil, err
	}
	defer rows.Close()

	var runs []models.SyncRun
	for rows.Next() {
		run, err := scanSyncRun(rows)
		if err != nil {
			observe("list", "sync_runs", start, err)
			return nil, err
		}
		runs = append(runs, *run)
	}
	observe("list", "sync_runs", start, rows.Err())
	return runs, rows.Err()
}

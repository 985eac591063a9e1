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
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pmolabs/controltower/internal/models"
)

// dbtx is the subset of pgxpool.Pool and pgx.Tx the CRUD helpers need, so
// the same statement code serves both pooled and transactional paths.
type dbtx interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const projectColumns = `gid, name, owner_gid, owner_name, due_date, status,
	calculated_progress, last_status_update_at, last_status_update_by,
	last_activity_at, total_tasks, completed_tasks, tasks_created_last_7d,
	tasks_completed_last_7d, tasks_modified_last_7d, pmo_id, sponsor,
	business_vertical, project_phase, billing_plan, completed, raw_data, synced_at`

func scanProject(row pgx.Row) (*models.Project, error) {
	var p models.Project
	err := row.Scan(
		&p.GID, &p.Name, &p.OwnerGID, &p.OwnerName, &p.DueDate, &p.Status,
		&p.CalculatedProgress, &p.LastStatusUpdateAt, &p.LastStatusUpdateBy,
		&p.LastActivityAt, &p.TotalTasks, &p.CompletedTasks, &p.TasksCreatedLast7d,
		&p.TasksCompletedLast7d, &p.TasksModifiedLast7d, &p.PMOID, &p.Sponsor,
		&p.BusinessVertical, &p.ProjectPhase, &p.BillingPlan, &p.Completed,
		&p.RawData, &p.SyncedAt,
	)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return &p, nil
}

// upsertProject writes a project row, updating in place when the gid exists.
func upsertProject(ctx context.Context, q dbtx, p *models.Project) error {
	_, err := q.Exec(ctx, `
		INSERT INTO projects (`+projectColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		        $15, $16, $17, $18, $19, $20, $21, $22, $23)
		ON CONFLICT (gid) DO UPDATE SET
			name = EXCLUDED.name,
			owner_gid = EXCLUDED.owner_gid,
			owner_name = EXCLUDED.owner_name,
			due_date = EXCLUDED.due_date,
			status = EXCLUDED.status,
			calculated_progress = EXCLUDED.calculated_progress,
			last_status_update_at = EXCLUDED.last_status_update_at,
			last_status_update_by = EXCLUDED.last_status_update_by,
			last_activity_at = EXCLUDED.last_activity_at,
			total_tasks = EXCLUDED.total_tasks,
			completed_tasks = EXCLUDED.completed_tasks,
			tasks_created_last_7d = EXCLUDED.tasks_created_last_7d,
			tasks_completed_last_7d = EXCLUDED.tasks_completed_last_7d,
			tasks_modified_last_7d = EXCLUDED.tasks_modified_last_7d,
			pmo_id = EXCLUDED.pmo_id,
			sponsor = EXCLUDED.sponsor,
			business_vertical = EXCLUDED.business_vertical,
			project_phase = EXCLUDED.project_phase,
			billing_plan = EXCLUDED.billing_plan,
			completed = EXCLUDED.completed,
			raw_data = EXCLUDED.raw_data,
			synced_at = EXCLUDED.synced_at`,
		p.GID, p.Name, p.OwnerGID, p.OwnerName, p.DueDate, p.Status,
		p.CalculatedProgress, p.LastStatusUpdateAt, p.LastStatusUpdateBy,
		p.LastActivityAt, p.TotalTasks, p.CompletedTasks, p.TasksCreatedLast7d,
		p.TasksCompletedLast7d, p.TasksModifiedLast7d, p.PMOID, p.Sponsor,
		p.BusinessVertical, p.ProjectPhase, p.BillingPlan, p.Completed,
		p.RawData, p.SyncedAt,
	)
	return err
}

// UpsertProject writes a project row outside a transaction.
func (s *Store) UpsertProject(ctx context.Context, p *models.Project) error {
	start := time.Now()
	err := upsertProject(ctx, s.pool, p)
	observe("upsert", "projects", start, err)
	return err
}

// GetProject fetches the live project row for a gid.
func (s *Store) GetProject(ctx context.Context, gid string) (*models.Project, error) {
	start := time.Now()
	p, err := scanProject(s.pool.QueryRow(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE gid = $1`, gid))
	observe("get", "projects", start, err)
	return p, err
}

// ListProjects returns active projects ordered by name. When includeCompleted
// is false, completed projects are filtered out of reporting.
func (s *Store) ListProjects(ctx context.Context, includeCompleted bool, limit, offset int) ([]models.Project, error) {
	start := time.Now()
	rows, err := s.pool.Query(ctx, `
		SELECT `+projectColumns+` FROM projects
		WHERE ($1 OR NOT completed)
		ORDER BY name
		LIMIT $2 OFFSET $3`,
		includeCompleted, limit, offset)
	if err != nil {
		observe("list", "projects", start, err)
		return nil, err
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			observe("list", "projects", start, err)
			return nil, err
		}
		projects = append(projects, *p)
	}
	observe("list", "projects", start, rows.Err())
	return projects, rows.Err()
}

// ListProjectGIDs returns the gids of all stored projects. The orchestrator
// uses this to detect projects that disappeared from upstream scope.
func (s *Store) ListProjectGIDs(ctx context.Context) ([]string, error) {
	start := time.Now()
	rows, err := s.pool.Query(ctx, `SELECT gid FROM projects`)
	if err != nil {
		observe("list_gids", "projects", start, err)
		return nil, err
	}
	defer rows.Close()

	var gids []string
	for rows.Next() {
		var gid string
		if err := rows.Scan(&gid); err != nil {
			observe("list_gids", "projects", start, err)
			return nil, err
		}
		gids = append(gids, gid)
	}
	observe("list_gids", "projects", start, rows.Err())
	return gids, rows.Err()
}

// ApplyProjectUpdate persists a synced project together with its change log
// entries in a single transaction, so a partial failure cannot record a
// change without the state it describes.
func (s *Store) ApplyProjectUpdate(ctx context.Context, p *models.Project, entries []models.ChangelogEntry) error {
	start := time.Now()
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		if err := upsertProject(ctx, tx, p); err != nil {
			return fmt.Errorf("upsert project %s: %w", p.GID, err)
		}
		if err := insertChangelogEntries(ctx, tx, entries); err != nil {
			return fmt.Errorf("append changelog for %s: %w", p.GID, err)
		}
		return nil
	})
	observe("apply_update", "projects", start, err)
	return err
}

// InsertProjectSnapshot appends a terminal history copy for a project leaving
// the active scope. Re-snapshotting the same gid is a no-op; the first
// snapshot wins.
func (s *Store) InsertProjectSnapshot(ctx context.Context, snap *models.ProjectSnapshot) error {
	start := time.Now()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO projects_history (
			gid, name, owner_gid, owner_name, status, last_status_update_at,
			last_status_update_by, pmo_id, sponsor, business_vertical, raw_data, snapshot_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (gid) DO NOTHING`,
		snap.GID, snap.Name, snap.OwnerGID, snap.OwnerName, snap.Status,
		snap.LastStatusUpdateAt, snap.LastStatusUpdateBy, snap.PMOID,
		snap.Sponsor, snap.BusinessVertical, snap.RawData, snap.SnapshotAt,
	)
	observe("insert", "projects_history", start, err)
	return err
}

// GetProjectSnapshot fetches the history copy for a gid.
func (s *Store) GetProjectSnapshot(ctx context.Context, gid string) (*models.ProjectSnapshot, error) {
	start := time.Now()
	var snap models.ProjectSnapshot
	err := s.pool.QueryRow(ctx, `
		SELECT gid, name, owner_gid, owner_name, status, last_status_update_at,
		       last_status_update_by, pmo_id, sponsor, business_vertical, raw_data, snapshot_at
		FROM projects_history WHERE gid = $1`, gid).Scan(
		&snap.GID, &snap.Name, &snap.OwnerGID, &snap.OwnerName, &snap.Status,
		&snap.LastStatusUpdateAt, &snap.LastStatusUpdateBy, &snap.PMOID,
		&snap.Sponsor, &snap.BusinessVertical, &snap.RawData, &snap.SnapshotAt,
	)
	err = mapNoRows(err)
	observe("get", "projects_history", start, err)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

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

const findingColumns = `id, project_gid, rule_id, severity, status, details,
	created_at, acknowledged_at, acknowledged_by, ack_comment, resolved_at`

func scanFinding(row pgx.Row) (*models.Finding, error) {
	var f models.Finding
	err := row.Scan(
		&f.ID, &f.ProjectGID, &f.RuleID, &f.Severity, &f.Status, &f.Details,
		&f.CreatedAt, &f.AcknowledgedAt, &f.AcknowledgedBy, &f.AckComment, &f.ResolvedAt,
	)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return &f, nil
}

func (s *Store) scanFindingRows(rows pgx.Rows) ([]models.Finding, error) {
	defer rows.Close()
	var findings []models.Finding
	for rows.Next() {
		f, err := scanFinding(rows)
		if err != nil {
			return nil, err
		}
		findings = append(findings, *f)
	}
	return findings, rows.Err()
}

// GetOpenFindings returns the unresolved findings for a project. Acknowledged
// findings still count as open for reconciliation; acknowledgment mutes
// notifications, it does not clear the condition.
func (s *Store) GetOpenFindings(ctx context.Context, projectGID string) ([]models.Finding, error) {
	start := time.Now()
	rows, err := s.pool.Query(ctx, `
		SELECT `+findingColumns+` FROM findings
		WHERE project_gid = $1 AND status IN ('open', 'acknowledged')`,
		projectGID)
	if err != nil {
		observe("get_open", "findings", start, err)
		return nil, err
	}
	findings, err := s.scanFindingRows(rows)
	observe("get_open", "findings", start, err)
	return findings, err
}

// CreateFinding inserts a new open finding and fills in its assigned ID and
// creation timestamp.
func (s *Store) CreateFinding(ctx context.Context, f *models.Finding) error {
	start := time.Now()
	err := s.pool.QueryRow(ctx, `
		INSERT INTO findings (project_gid, rule_id, severity, status, details)
		VALUES ($1, $2, $3, 'open', $4)
		RETURNING id, created_at`,
		f.ProjectGID, f.RuleID, f.Severity, f.Details).Scan(&f.ID, &f.CreatedAt)
	observe("create", "findings", start, err)
	if err == nil {
		f.Status = models.FindingOpen
	}
	return err
}

// UpdateFindingSeverity rewrites the stored severity of an unresolved
// finding. Callers only escalate; the rules engine never passes a lower
// severity than the stored one.
func (s *Store) UpdateFindingSeverity(ctx context.Context, id int64, severity models.Severity, details map[string]any) error {
	start := time.Now()
	tag, err := s.pool.Exec(ctx, `
		UPDATE findings SET severity = $2, details = $3
		WHERE id = $1 AND status IN ('open', 'acknowledged')`,
		id, severity, details)
	if err == nil && tag.RowsAffected() == 0 {
		err = ErrNotFound
	}
	observe("update_severity", "findings", start, err)
	return err
}

// ResolveFinding transitions an unresolved finding to resolved. The row is
// kept; only the status and resolution timestamp change.
func (s *Store) ResolveFinding(ctx context.Context, id int64, resolvedAt time.Time) error {
	start := time.Now()
	tag, err := s.pool.Exec(ctx, `
		UPDATE findings SET status = 'resolved', resolved_at = $2
		WHERE id = $1 AND status IN ('open', 'acknowledged')`,
		id, resolvedAt)
	if err == nil && tag.RowsAffected() == 0 {
		err = ErrNotFound
	}
	observe("resolve", "findings", start, err)
	return err
}

// AcknowledgeFinding marks an open finding as acknowledged by an operator.
// Only open findings can be acknowledged; the comment is mandatory and
// validated at the API boundary.
func (s *Store) AcknowledgeFinding(ctx context.Context, id int64, by, comment string, at time.Time) error {
	start := time.Now()
	tag, err := s.pool.Exec(ctx, `
		UPDATE findings
		SET status = 'acknowledged', acknowledged_at = $2, acknowledged_by = $3, ack_comment = $4
		WHERE id = $1 AND status = 'open'`,
		id, at, by, comment)
	if err == nil && tag.RowsAffected() == 0 {
		err = ErrNotFound
	}
	observe("acknowledge", "findings", start, err)
	return err
}

// GetFinding fetches one finding by ID.
func (s *Store) GetFinding(ctx context.Context, id int64) (*models.Finding, error) {
	start := time.Now()
	f, err := scanFinding(s.pool.QueryRow(ctx,
		`SELECT `+findingColumns+` FROM findings WHERE id = $1`, id))
	observe("get", "findings", start, err)
	return f, err
}

// FindingFilter narrows ListFindings. Zero values mean no filtering on that
// dimension.
type FindingFilter struct {
	ProjectGID string
	RuleID     string
	Status     models.FindingStatus
	Severity   models.Severity
}

// ListFindings returns findings matching the filter, newest first.
func (s *Store) ListFindings(ctx context.Context, filter FindingFilter, limit, offset int) ([]models.Finding, error) {
	start := time.Now()
	rows, err := s.pool.Query(ctx, `
		SELECT `+findingColumns+` FROM findings
		WHERE ($1 = '' OR project_gid = $1)
		  AND ($2 = '' OR rule_id = $2)
		  AND ($3 = '' OR status = $3)
		  AND ($4 = '' OR severity = $4)
		ORDER BY created_at DESC, id DESC
		LIMIT $5 OFFSET $6`,
		filter.ProjectGID, filter.RuleID, string(filter.Status), string(filter.Severity), limit, offset)
	if err != nil {
		observe("list", "findings", start, err)
		return nil, err
	}
	findings, err := s.scanFindingRows(rows)
	observe("list", "findings", start, err)
	return findings, err
}

// CountOpenFindingsBySeverity returns open finding counts keyed by severity,
// used to refresh the exported gauge after each evaluation cycle.
func (s *Store) CountOpenFindingsBySeverity(ctx context.Context) (map[models.Severity]int, error) {
	start := time.Now()
	rows, err := s.pool.Query(ctx, `
		SELECT severity, COUNT(*) FROM findings
		WHERE status IN ('open', 'acknowledged')
		GROUP BY severity`)
	if err != nil {
		observe("count_open", "findings", start, err)
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.Severity]int)
	for rows.Next() {
		var sev models.Severity
		var n int
		if err := rows.Scan(&sev, &n); err != nil {
			observe("count_open", "findings", start, err)
			return nil, err
		}
		counts[sev] = n
	}
	observe("count_open", "findings", start, rows.Err())
	return counts, rows.Err()
}

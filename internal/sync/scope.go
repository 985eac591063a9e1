// Control Tower - PMO Compliance Monitoring and Portfolio Analytics
// Copyright 2026 PMO Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pmolabs/controltower

package sync

import (
	"context"
	"strings"
	"time"

	"github.com/pmolabs/controltower/internal/logging"
	"github.com/pmolabs/controltower/internal/models"
	modelsasana "github.com/pmolabs/controltower/internal/models/asana"
)

// inScope reports whether a project belongs to the monitored portfolio:
// the PMO identifier custom field is non-empty and the business-vertical
// field matches the configured value. Completed projects stay in scope for
// the retention window after completion so their terminal state is captured,
// then drop out.
func (m *Manager) inScope(payload *modelsasana.ProjectPayload, now time.Time) bool {
	fields := payload.CustomFieldMap()

	if strings.TrimSpace(fields[m.cfg.Asana.PMOIDField]) == "" {
		return false
	}
	if !strings.EqualFold(strings.TrimSpace(fields[m.cfg.Asana.VerticalField]), m.cfg.Asana.VerticalValue) {
		return false
	}

	if payload.Completed {
		retention := time.Duration(m.cfg.Sync.RetentionDays) * 24 * time.Hour
		if payload.CompletedAt == nil || now.Sub(*payload.CompletedAt) > retention {
			return false
		}
	}

	return true
}

// filterScope partitions the upstream project list into the in-scope subset.
// The second return value is the number of projects filtered out.
func (m *Manager) filterScope(payloads []modelsasana.ProjectPayload, now time.Time) ([]modelsasana.ProjectPayload, int) {
	scoped := make([]modelsasana.ProjectPayload, 0, len(payloads))
	for _, p := range payloads {
		if m.inScope(&p, now) {
			scoped = append(scoped, p)
		}
	}
	return scoped, len(payloads) - len(scoped)
}

// snapshotDeparted writes terminal history copies for stored projects that
// are no longer in the active scope. The snapshot is append-once, so
// revisiting a departed project is a no-op. Failures are logged only; a
// missing snapshot never blocks the run.
func (m *Manager) snapshotDeparted(ctx context.Context, scoped []modelsasana.ProjectPayload, now time.Time) {
	stored, err := m.store.ListProjectGIDs(ctx)
	if err != nil {
		logging.Warn().Err(err).Msg("Failed to list stored projects for departure check")
		return
	}

	active := make(map[string]struct{}, len(scoped))
	for _, p := range scoped {
		active[p.GID] = struct{}{}
	}

	for _, gid := range stored {
		if _, ok := active[gid]; ok {
			continue
		}

		p, err := m.store.GetProject(ctx, gid)
		if err != nil {
			logging.Warn().Err(err).Str("project_gid", gid).Msg("Failed to load departed project")
			continue
		}

		snap := &models.ProjectSnapshot{
			GID:                p.GID,
			Name:               p.Name,
			OwnerGID:           p.OwnerGID,
			OwnerName:          p.OwnerName,
			Status:             p.Status,
			LastStatusUpdateAt: p.LastStatusUpdateAt,
			LastStatusUpdateBy: p.LastStatusUpdateBy,
			PMOID:              p.PMOID,
			Sponsor:            p.Sponsor,
			BusinessVertical:   p.BusinessVertical,
			RawData:            p.RawData,
			SnapshotAt:         now,
		}
		if err := m.store.InsertProjectSnapshot(ctx, snap); err != nil {
			logging.Warn().Err(err).Str("project_gid", gid).Msg("Failed to snapshot departed project")
			continue
		}
		logging.Info().Str("project_gid", gid).Msg("Project left active scope, snapshot retained")
	}
}

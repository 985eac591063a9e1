// Control Tower - PMO Compliance Monitoring and Portfolio Analytics
// Copyright 2026 PMO Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pmolabs/controltower

package sync

import (
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/pmolabs/controltower/internal/config"
	"github.com/pmolabs/controltower/internal/logging"
	"github.com/pmolabs/controltower/internal/models"
	modelsasana "github.com/pmolabs/controltower/internal/models/asana"
)

// Custom field names carrying portfolio classification beyond the scope
// filter. The scope fields themselves come from configuration.
const (
	fieldSponsor      = "Sponsor"
	fieldProjectPhase = "Project Phase"
	fieldBillingPlan  = "Billing Plan"
)

// activityWindow is the trailing window for task activity counters.
const activityWindow = 7 * 24 * time.Hour

// projectFromPayload maps an upstream project payload into the persisted
// model. Task and status metrics are zero until derived from the detail
// fetches.
func projectFromPayload(payload *modelsasana.ProjectPayload, cfg *config.AsanaConfig, now time.Time) *models.Project {
	p := &models.Project{
		GID:       payload.GID,
		Name:      payload.Name,
		DueDate:   payload.EffectiveDueDate(),
		Completed: payload.Completed,
		SyncedAt:  now,
	}

	if payload.Owner != nil {
		owner := payload.Owner.GID
		ownerName := payload.Owner.Name
		p.OwnerGID = &owner
		p.OwnerName = &ownerName
	}

	fields := payload.CustomFieldMap()
	p.PMOID = optionalField(fields, cfg.PMOIDField)
	p.Sponsor = optionalField(fields, fieldSponsor)
	p.BusinessVertical = optionalField(fields, cfg.VerticalField)
	p.ProjectPhase = optionalField(fields, fieldProjectPhase)
	if v, ok := fields[fieldBillingPlan]; ok {
		p.BillingPlan = isTruthy(v)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		logging.Warn().Err(err).Str("project_gid", payload.GID).Msg("Failed to retain raw payload")
	} else {
		p.RawData = raw
	}

	return p
}

func optionalField(fields map[string]string, name string) *string {
	v := strings.TrimSpace(fields[name])
	if v == "" {
		return nil
	}
	return &v
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "true", "1", "on":
		return true
	}
	return false
}

// deriveTaskMetrics fills the project's task counters and progress from the
// full task list. Progress is completed over total as a percentage, zero for
// an empty project, and always within [0, 100]. LastActivityAt becomes the
// latest task event time observed, if any.
func deriveTaskMetrics(p *models.Project, tasks []modelsasana.TaskPayload, now time.Time) {
	cutoff := now.Add(-activityWindow)

	p.TotalTasks = len(tasks)
	p.CompletedTasks = 0
	p.TasksCreatedLast7d = 0
	p.TasksCompletedLast7d = 0
	p.TasksModifiedLast7d = 0

	var lastActivity time.Time
	for _, t := range tasks {
		if t.Completed {
			p.CompletedTasks++
		}
		if t.CreatedAt != nil {
			if t.CreatedAt.After(cutoff) {
				p.TasksCreatedLast7d++
			}
			if t.CreatedAt.After(lastActivity) {
				lastActivity = *t.CreatedAt
			}
		}
		if t.CompletedAt != nil {
			if t.CompletedAt.After(cutoff) {
				p.TasksCompletedLast7d++
			}
			if t.CompletedAt.After(lastActivity) {
				lastActivity = *t.CompletedAt
			}
		}
		if t.ModifiedAt != nil {
			if t.ModifiedAt.After(cutoff) {
				p.TasksModifiedLast7d++
			}
			if t.ModifiedAt.After(lastActivity) {
				lastActivity = *t.ModifiedAt
			}
		}
	}

	if p.TotalTasks > 0 {
		p.CalculatedProgress = float64(p.CompletedTasks) / float64(p.TotalTasks) * 100
	} else {
		p.CalculatedProgress = 0
	}
	if p.CalculatedProgress < 0 {
		p.CalculatedProgress = 0
	}
	if p.CalculatedProgress > 100 {
		p.CalculatedProgress = 100
	}

	if !lastActivity.IsZero() {
		p.LastActivityAt = &lastActivity
	}
}

// applyLatestStatus sets the project's declared status from its most recent
// status update. The update list may arrive in any order; the newest
// created_at wins. Updates without a timestamp are ignored.
func applyLatestStatus(p *models.Project, updates []modelsasana.StatusUpdatePayload) {
	var latest *modelsasana.StatusUpdatePayload
	for i := range updates {
		u := &updates[i]
		if u.CreatedAt == nil {
			continue
		}
		if latest == nil || u.CreatedAt.After(*latest.CreatedAt) {
			latest = u
		}
	}
	if latest == nil {
		return
	}

	at := *latest.CreatedAt
	p.LastStatusUpdateAt = &at
	if latest.Author != nil && latest.Author.Name != "" {
		author := latest.Author.Name
		p.LastStatusUpdateBy = &author
	}
	if s := modelsasana.StatusFromColor(latest.Color); s != nil {
		p.Status = s
	}

	if p.LastActivityAt == nil || at.After(*p.LastActivityAt) {
		p.LastActivityAt = &at
	}
}

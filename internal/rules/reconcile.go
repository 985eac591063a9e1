// Control Tower - PMO Compliance Monitoring and Portfolio Analytics
// Copyright 2026 PMO Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pmolabs/controltower

package rules

import (
	"context"
	"fmt"
	"time"

	"github.com/pmolabs/controltower/internal/logging"
	"github.com/pmolabs/controltower/internal/metrics"
	"github.com/pmolabs/controltower/internal/models"
)

// FindingStore is the persistence surface reconciliation needs. Implemented
// by database.Store and by fakes in tests.
type FindingStore interface {
	GetOpenFindings(ctx context.Context, projectGID string) ([]models.Finding, error)
	CreateFinding(ctx context.Context, f *models.Finding) error
	UpdateFindingSeverity(ctx context.Context, id int64, severity models.Severity, details map[string]any) error
	ResolveFinding(ctx context.Context, id int64, resolvedAt time.Time) error
}

// TransitionType classifies a finding lifecycle transition.
type TransitionType string

const (
	TransitionCreated   TransitionType = "created"
	TransitionEscalated TransitionType = "escalated"
	TransitionResolved  TransitionType = "resolved"
)

// Transition is one finding state change produced by a reconciliation pass.
// Only created and escalated transitions trigger outbound notifications;
// resolutions and unchanged findings stay quiet.
type Transition struct {
	Type    TransitionType
	Finding models.Finding
}

// Notifiable reports whether this transition should produce an alert.
func (t Transition) Notifiable() bool {
	return t.Type == TransitionCreated || t.Type == TransitionEscalated
}

// Reconcile evaluates the project and converges the stored findings to the
// current rule state:
//
//   - newly true rule, no open finding: create one
//   - still true, open finding exists: severity becomes max(stored, computed)
//   - no longer true, open finding exists: resolve, keeping the row
//
// Findings are never deleted. The pass is idempotent: running it twice over
// unchanged metrics produces no transitions the second time.
func (e *Engine) Reconcile(ctx context.Context, store FindingStore, p *models.Project, now time.Time) ([]Transition, error) {
	violations := e.Evaluate(p, now)

	open, err := store.GetOpenFindings(ctx, p.GID)
	if err != nil {
		return nil, fmt.Errorf("load open findings for %s: %w", p.GID, err)
	}

	openByRule := make(map[string]models.Finding, len(open))
	for _, f := range open {
		openByRule[f.RuleID] = f
	}

	var transitions []Transition

	for _, v := range violations {
		existing, ok := openByRule[v.RuleID]
		if !ok {
			f := models.Finding{
				ProjectGID: p.GID,
				RuleID:     v.RuleID,
				Severity:   v.Severity,
				Details:    v.Details,
			}
			if err := store.CreateFinding(ctx, &f); err != nil {
				return transitions, fmt.Errorf("create finding %s/%s: %w", p.GID, v.RuleID, err)
			}
			metrics.RecordFindingTransition(string(TransitionCreated))
			transitions = append(transitions, Transition{Type: TransitionCreated, Finding: f})
			logging.Info().
				Str("project_gid", p.GID).
				Str("rule", v.RuleID).
				Str("severity", string(v.Severity)).
				Msg("Finding created")
			continue
		}

		delete(openByRule, v.RuleID)

		escalated := models.MaxSeverity(existing.Severity, v.Severity)
		if escalated == existing.Severity {
			continue
		}
		if err := store.UpdateFindingSeverity(ctx, existing.ID, escalated, v.Details); err != nil {
			return transitions, fmt.Errorf("escalate finding %d: %w", existing.ID, err)
		}
		existing.Severity = escalated
		existing.Details = v.Details
		metrics.RecordFindingTransition(string(TransitionEscalated))
		transitions = append(transitions, Transition{Type: TransitionEscalated, Finding: existing})
		logging.Info().
			Str("project_gid", p.GID).
			Str("rule", existing.RuleID).
			Str("severity", string(escalated)).
			Msg("Finding escalated")
	}

	// Whatever remains open has no matching violation anymore.
	for _, f := range openByRule {
		if err := store.ResolveFinding(ctx, f.ID, now); err != nil {
			return transitions, fmt.Errorf("resolve finding %d: %w", f.ID, err)
		}
		f.Status = models.FindingResolved
		resolvedAt := now
		f.ResolvedAt = &resolvedAt
		metrics.RecordFindingTransition(string(TransitionResolved))
		transitions = append(transitions, Transition{Type: TransitionResolved, Finding: f})
		logging.Info().
			Str("project_gid", p.GID).
			Str("rule", f.RuleID).
			Msg("Finding resolved")
	}

	return transitions, nil
}

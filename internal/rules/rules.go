// Control Tower - PMO Compliance Monitoring and Portfolio Analytics
// Copyright 2026 PMO Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pmolabs/controltower

// Package rules evaluates compliance rules against derived project metrics
// and reconciles the results with the stored findings.
//
// Evaluation is a pure function of (project metrics, now, thresholds); all
// I/O lives in reconciliation. Rules are independent: a project can violate
// several at once, and no rule suppresses another.
package rules

import (
	"math"
	"strings"
	"time"

	"github.com/pmolabs/controltower/internal/config"
	"github.com/pmolabs/controltower/internal/metrics"
	"github.com/pmolabs/controltower/internal/models"
)

// Rule identifiers as stored in finding rows.
const (
	RuleNoStatusUpdate = "no_status_update"
	RuleNoActivity     = "no_activity"
	RuleScheduleRisk   = "schedule_risk"
	RuleAmountOfTasks  = "amount_of_tasks"
)

// missingStatusUpdateDays is the sentinel age assigned to projects that have
// never posted a status update, so the no_status_update rule always fires
// for them.
const missingStatusUpdateDays = 999

// Violation is one rule firing for one project.
type Violation struct {
	RuleID   string
	Severity models.Severity
	Details  map[string]any
}

// Engine evaluates the fixed rule set with configured thresholds.
//
// Thread Safety: Engine is immutable after construction and safe for
// concurrent use.
type Engine struct {
	noStatusUpdateDays int
	minTaskCount       int
	scheduleRisk       []config.ScheduleRiskThreshold
}

// NewEngine builds an engine from validated configuration. Schedule-risk
// thresholds are assumed sorted ascending by day window; config validation
// guarantees this.
func NewEngine(cfg *config.RulesConfig) *Engine {
	return &Engine{
		noStatusUpdateDays: cfg.NoStatusUpdateDays,
		minTaskCount:       cfg.MinTaskCount,
		scheduleRisk:       cfg.ScheduleRisk,
	}
}

// Evaluate runs every rule against the project's derived metrics and returns
// the violations that currently hold. The result is deterministic and in
// fixed rule order.
func (e *Engine) Evaluate(p *models.Project, now time.Time) []Violation {
	var violations []Violation

	checks := []struct {
		id string
		fn func(*models.Project, time.Time) *Violation
	}{
		{RuleNoStatusUpdate, e.evalNoStatusUpdate},
		{RuleNoActivity, e.evalNoActivity},
		{RuleScheduleRisk, e.evalScheduleRisk},
		{RuleAmountOfTasks, e.evalAmountOfTasks},
	}

	for _, check := range checks {
		v := check.fn(p, now)
		metrics.RecordRuleEvaluation(check.id, v != nil)
		if v != nil {
			violations = append(violations, *v)
		}
	}

	return violations
}

// evalNoStatusUpdate fires when the last status update is older than the
// configured threshold. A project with no status update at all counts as
// 999 days stale.
func (e *Engine) evalNoStatusUpdate(p *models.Project, now time.Time) *Violation {
	days := missingStatusUpdateDays
	if p.LastStatusUpdateAt != nil {
		days = int(now.Sub(*p.LastStatusUpdateAt).Hours() / 24)
	}

	if days <= e.noStatusUpdateDays {
		return nil
	}
	return &Violation{
		RuleID:   RuleNoStatusUpdate,
		Severity: models.SeverityMedium,
		Details: map[string]any{
			"days_since_update": days,
			"threshold_days":    e.noStatusUpdateDays,
		},
	}
}

// evalNoActivity fires when no tasks were created or completed in the last
// seven days.
func (e *Engine) evalNoActivity(p *models.Project, _ time.Time) *Violation {
	if p.TasksCreatedLast7d > 0 || p.TasksCompletedLast7d > 0 {
		return nil
	}
	return &Violation{
		RuleID:   RuleNoActivity,
		Severity: models.SeverityMedium,
		Details: map[string]any{
			"tasks_created_last_7d":   p.TasksCreatedLast7d,
			"tasks_completed_last_7d": p.TasksCompletedLast7d,
		},
	}
}

// evalScheduleRisk compares days remaining until the due date against
// progress using the threshold table. Thresholds are checked ascending by
// day window; the tightest matching window wins. No due date, no risk.
func (e *Engine) evalScheduleRisk(p *models.Project, now time.Time) *Violation {
	if p.DueDate == nil {
		return nil
	}

	daysRemaining := int(math.Ceil(p.DueDate.Sub(now).Hours() / 24))

	for _, t := range e.scheduleRisk {
		if daysRemaining <= t.Days && p.CalculatedProgress < t.MinProgress {
			return &Violation{
				RuleID:   RuleScheduleRisk,
				Severity: models.Severity(strings.ToLower(t.Severity)),
				Details: map[string]any{
					"days_remaining": daysRemaining,
					"progress":       p.CalculatedProgress,
					"window_days":    t.Days,
					"min_progress":   t.MinProgress,
				},
			}
		}
	}
	return nil
}

// evalAmountOfTasks fires when the project carries too few tasks to be a
// real work breakdown.
func (e *Engine) evalAmountOfTasks(p *models.Project, _ time.Time) *Violation {
	if p.TotalTasks > e.minTaskCount {
		return nil
	}
	return &Violation{
		RuleID:   RuleAmountOfTasks,
		Severity: models.SeverityMedium,
		Details: map[string]any{
			"total_tasks": p.TotalTasks,
			"threshold":   e.minTaskCount,
		},
	}
}

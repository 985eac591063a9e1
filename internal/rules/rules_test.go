// Control Tower - PMO Compliance Monitoring and Portfolio Analytics
// Copyright 2026 PMO Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pmolabs/controltower

package rules

import (
	"testing"
	"time"

	"github.com/pmolabs/controltower/internal/config"
	"github.com/pmolabs/controltower/internal/models"
)

var evalNow = time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

func testEngine() *Engine {
	return NewEngine(&config.RulesConfig{
		NoStatusUpdateDays: 7,
		MinTaskCount:       3,
		ScheduleRisk: []config.ScheduleRiskThreshold{
			{Days: 7, MinProgress: 80, Severity: "high"},
			{Days: 14, MinProgress: 60, Severity: "medium"},
			{Days: 30, MinProgress: 40, Severity: "low"},
		},
	})
}

// healthyProject violates no rules at evalNow.
func healthyProject() *models.Project {
	updated := evalNow.Add(-2 * 24 * time.Hour)
	due := evalNow.Add(60 * 24 * time.Hour)
	return &models.Project{
		GID:                  "p1",
		Name:                 "Healthy",
		DueDate:              &due,
		CalculatedProgress:   50,
		LastStatusUpdateAt:   &updated,
		TotalTasks:           10,
		CompletedTasks:       5,
		TasksCreatedLast7d:   2,
		TasksCompletedLast7d: 1,
	}
}

func violationMap(vs []Violation) map[string]models.Severity {
	m := make(map[string]models.Severity, len(vs))
	for _, v := range vs {
		m[v.RuleID] = v.Severity
	}
	return m
}

func TestHealthyProjectNoViolations(t *testing.T) {
	if got := testEngine().Evaluate(healthyProject(), evalNow); len(got) != 0 {
		t.Errorf("expected no violations, got %v", violationMap(got))
	}
}

func TestNoStatusUpdateRule(t *testing.T) {
	tests := []struct {
		name     string
		ageDays  int
		missing  bool
		expected bool
	}{
		{"fresh update", 2, false, false},
		{"at threshold", 7, false, false},
		{"stale", 10, false, true},
		{"never updated", 0, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := healthyProject()
			if tt.missing {
				p.LastStatusUpdateAt = nil
			} else {
				at := evalNow.Add(-time.Duration(tt.ageDays) * 24 * time.Hour)
				p.LastStatusUpdateAt = &at
			}

			got := violationMap(testEngine().Evaluate(p, evalNow))
			sev, fired := got[RuleNoStatusUpdate]
			if fired != tt.expected {
				t.Fatalf("fired = %v, want %v (%v)", fired, tt.expected, got)
			}
			if fired && sev != models.SeverityMedium {
				t.Errorf("severity = %s, want medium", sev)
			}
		})
	}
}

func TestNeverUpdatedUsesSentinelAge(t *testing.T) {
	p := healthyProject()
	p.LastStatusUpdateAt = nil

	vs := testEngine().Evaluate(p, evalNow)
	for _, v := range vs {
		if v.RuleID == RuleNoStatusUpdate {
			if days, ok := v.Details["days_since_update"].(int); !ok || days != 999 {
				t.Errorf("days_since_update = %v, want 999", v.Details["days_since_update"])
			}
			return
		}
	}
	t.Fatal("no_status_update did not fire for never-updated project")
}

func TestNoActivityRule(t *testing.T) {
	tests := []struct {
		name               string
		created, completed int
		expected           bool
	}{
		{"both zero", 0, 0, true},
		{"created only", 1, 0, false},
		{"completed only", 0, 1, false},
		{"both active", 3, 2, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := healthyProject()
			p.TasksCreatedLast7d = tt.created
			p.TasksCompletedLast7d = tt.completed

			got := violationMap(testEngine().Evaluate(p, evalNow))
			if _, fired := got[RuleNoActivity]; fired != tt.expected {
				t.Errorf("fired = %v, want %v", fired, tt.expected)
			}
		})
	}
}

func TestScheduleRiskThresholdTable(t *testing.T) {
	tests := []struct {
		name     string
		daysOut  int
		progress float64
		expected bool
		severity models.Severity
	}{
		{"tight window low progress", 5, 50, true, models.SeverityHigh},
		{"tight window high progress", 5, 85, false, ""},
		{"mid window low progress", 10, 50, true, models.SeverityMedium},
		{"mid window enough progress", 10, 65, false, ""},
		{"wide window low progress", 25, 30, true, models.SeverityLow},
		{"wide window enough progress", 25, 45, false, ""},
		{"beyond table", 45, 10, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := healthyProject()
			due := evalNow.Add(time.Duration(tt.daysOut) * 24 * time.Hour)
			p.DueDate = &due
			p.CalculatedProgress = tt.progress

			got := violationMap(testEngine().Evaluate(p, evalNow))
			sev, fired := got[RuleScheduleRisk]
			if fired != tt.expected {
				t.Fatalf("fired = %v, want %v (%v)", fired, tt.expected, got)
			}
			if fired && sev != tt.severity {
				t.Errorf("severity = %s, want %s", sev, tt.severity)
			}
		})
	}
}

func TestScheduleRiskTightestWindowWins(t *testing.T) {
	// 5 days out at 30% progress matches all three windows; the 7-day row
	// must win because thresholds are checked ascending.
	p := healthyProject()
	due := evalNow.Add(5 * 24 * time.Hour)
	p.DueDate = &due
	p.CalculatedProgress = 30

	got := violationMap(testEngine().Evaluate(p, evalNow))
	if got[RuleScheduleRisk] != models.SeverityHigh {
		t.Errorf("severity = %s, want high", got[RuleScheduleRisk])
	}
}

func TestScheduleRiskNoDueDate(t *testing.T) {
	p := healthyProject()
	p.DueDate = nil
	p.CalculatedProgress = 0

	got := violationMap(testEngine().Evaluate(p, evalNow))
	if _, fired := got[RuleScheduleRisk]; fired {
		t.Error("schedule_risk must not fire without a due date")
	}
}

func TestAmountOfTasksRule(t *testing.T) {
	tests := []struct {
		total    int
		expected bool
	}{
		{0, true},
		{3, true},
		{4, false},
		{10, false},
	}

	for _, tt := range tests {
		p := healthyProject()
		p.TotalTasks = tt.total

		got := violationMap(testEngine().Evaluate(p, evalNow))
		if _, fired := got[RuleAmountOfTasks]; fired != tt.expected {
			t.Errorf("total=%d fired=%v, want %v", tt.total, fired, tt.expected)
		}
	}
}

// Scenario P: status update 10 days old, due 20 days out, progress 30%,
// 10 tasks. Expect exactly no_status_update (medium) and schedule_risk (low).
func TestScenarioStaleStatusAndScheduleRisk(t *testing.T) {
	p := healthyProject()
	at := evalNow.Add(-10 * 24 * time.Hour)
	p.LastStatusUpdateAt = &at
	due := evalNow.Add(20 * 24 * time.Hour)
	p.DueDate = &due
	p.CalculatedProgress = 30
	p.TotalTasks = 10

	got := violationMap(testEngine().Evaluate(p, evalNow))
	want := map[string]models.Severity{
		RuleNoStatusUpdate: models.SeverityMedium,
		RuleScheduleRisk:   models.SeverityLow,
	}
	if len(got) != len(want) {
		t.Fatalf("violations = %v, want %v", got, want)
	}
	for rule, sev := range want {
		if got[rule] != sev {
			t.Errorf("%s = %s, want %s", rule, got[rule], sev)
		}
	}
}

// Scenario Q: 2 tasks total, no 7-day activity. Expect exactly no_activity
// (medium) and amount_of_tasks (medium).
func TestScenarioDormantTinyProject(t *testing.T) {
	p := healthyProject()
	p.TotalTasks = 2
	p.CompletedTasks = 1
	p.CalculatedProgress = 50
	p.TasksCreatedLast7d = 0
	p.TasksCompletedLast7d = 0

	got := violationMap(testEngine().Evaluate(p, evalNow))
	want := map[string]models.Severity{
		RuleNoActivity:    models.SeverityMedium,
		RuleAmountOfTasks: models.SeverityMedium,
	}
	if len(got) != len(want) {
		t.Fatalf("violations = %v, want %v", got, want)
	}
	for rule, sev := range want {
		if got[rule] != sev {
			t.Errorf("%s = %s, want %s", rule, got[rule], sev)
		}
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	p := healthyProject()
	p.TotalTasks = 2
	p.TasksCreatedLast7d = 0
	p.TasksCompletedLast7d = 0

	first := testEngine().Evaluate(p, evalNow)
	second := testEngine().Evaluate(p, evalNow)
	if len(first) != len(second) {
		t.Fatalf("non-deterministic violation count")
	}
	for i := range first {
		if first[i].RuleID != second[i].RuleID || first[i].Severity != second[i].Severity {
			t.Errorf("violation %d differs between runs", i)
		}
	}
}

// Control Tower - PMO Compliance Monitoring and Portfolio Analytics
// Copyright 2026 PMO Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pmolabs/controltower

package rules

import (
	"context"
	"testing"
	"time"

	"github.com/pmolabs/controltower/internal/models"
)

// fakeFindingStore is an in-memory FindingStore.
type fakeFindingStore struct {
	findings map[int64]*models.Finding
	nextID   int64
}

func newFakeFindingStore() *fakeFindingStore {
	return &fakeFindingStore{findings: make(map[int64]*models.Finding), nextID: 1}
}

func (s *fakeFindingStore) GetOpenFindings(_ context.Context, projectGID string) ([]models.Finding, error) {
	var open []models.Finding
	for _, f := range s.findings {
		if f.ProjectGID == projectGID && f.Status != models.FindingResolved {
			open = append(open, *f)
		}
	}
	return open, nil
}

func (s *fakeFindingStore) CreateFinding(_ context.Context, f *models.Finding) error {
	f.ID = s.nextID
	s.nextID++
	f.Status = models.FindingOpen
	f.CreatedAt = time.Now()
	stored := *f
	s.findings[f.ID] = &stored
	return nil
}

func (s *fakeFindingStore) UpdateFindingSeverity(_ context.Context, id int64, severity models.Severity, details map[string]any) error {
	f := s.findings[id]
	f.Severity = severity
	f.Details = details
	return nil
}

func (s *fakeFindingStore) ResolveFinding(_ context.Context, id int64, resolvedAt time.Time) error {
	f := s.findings[id]
	f.Status = models.FindingResolved
	f.ResolvedAt = &resolvedAt
	return nil
}

func (s *fakeFindingStore) openCount(projectGID string) int {
	n := 0
	for _, f := range s.findings {
		if f.ProjectGID == projectGID && f.Status != models.FindingResolved {
			n++
		}
	}
	return n
}

func dormantTinyProject() *models.Project {
	p := healthyProject()
	p.TotalTasks = 2
	p.CompletedTasks = 1
	p.TasksCreatedLast7d = 0
	p.TasksCompletedLast7d = 0
	return p
}

func TestReconcileCreatesFindings(t *testing.T) {
	store := newFakeFindingStore()
	p := dormantTinyProject()

	transitions, err := testEngine().Reconcile(context.Background(), store, p, evalNow)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	if len(transitions) != 2 {
		t.Fatalf("got %d transitions, want 2", len(transitions))
	}
	for _, tr := range transitions {
		if tr.Type != TransitionCreated {
			t.Errorf("transition = %s, want created", tr.Type)
		}
		if !tr.Notifiable() {
			t.Error("created transitions must be notifiable")
		}
	}
	if store.openCount("p1") != 2 {
		t.Errorf("open findings = %d, want 2", store.openCount("p1"))
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	store := newFakeFindingStore()
	p := dormantTinyProject()
	ctx := context.Background()

	if _, err := testEngine().Reconcile(ctx, store, p, evalNow); err != nil {
		t.Fatalf("first pass failed: %v", err)
	}
	second, err := testEngine().Reconcile(ctx, store, p, evalNow)
	if err != nil {
		t.Fatalf("second pass failed: %v", err)
	}

	if len(second) != 0 {
		t.Errorf("second pass produced %d transitions, want 0", len(second))
	}
	if store.openCount("p1") != 2 {
		t.Errorf("open findings = %d, want 2 (no duplicates)", store.openCount("p1"))
	}
}

func TestReconcileEscalatesNeverDowngrades(t *testing.T) {
	store := newFakeFindingStore()
	ctx := context.Background()

	// Medium schedule risk first: 10 days out at 50% progress.
	p := healthyProject()
	due := evalNow.Add(10 * 24 * time.Hour)
	p.DueDate = &due
	p.CalculatedProgress = 50
	if _, err := testEngine().Reconcile(ctx, store, p, evalNow); err != nil {
		t.Fatalf("setup pass failed: %v", err)
	}

	// Deadline closes in: 5 days out, now a high violation.
	later := evalNow.Add(5 * 24 * time.Hour)
	transitions, err := testEngine().Reconcile(ctx, store, p, later)
	if err != nil {
		t.Fatalf("escalation pass failed: %v", err)
	}

	var escalated *Transition
	for i := range transitions {
		if transitions[i].Type == TransitionEscalated {
			escalated = &transitions[i]
		}
	}
	if escalated == nil {
		t.Fatalf("no escalation transition in %v", transitions)
	}
	if escalated.Finding.Severity != models.SeverityHigh {
		t.Errorf("severity = %s, want high", escalated.Finding.Severity)
	}
	if !escalated.Notifiable() {
		t.Error("escalations must be notifiable")
	}

	// Deadline recedes again (due date pushed out to a medium window). The
	// stored high severity must stick: max(stored, computed) never downgrades.
	pushed := later.Add(10 * 24 * time.Hour)
	p.DueDate = &pushed
	transitions, err = testEngine().Reconcile(ctx, store, p, later)
	if err != nil {
		t.Fatalf("downgrade pass failed: %v", err)
	}
	for _, tr := range transitions {
		if tr.Finding.RuleID == RuleScheduleRisk && tr.Type == TransitionEscalated {
			t.Errorf("unexpected transition on downgrade: %+v", tr)
		}
	}
	for _, f := range store.findings {
		if f.RuleID == RuleScheduleRisk && f.Severity != models.SeverityHigh {
			t.Errorf("stored severity = %s, want high (no silent downgrade)", f.Severity)
		}
	}
}

func TestReconcileResolvesWithoutDeleting(t *testing.T) {
	store := newFakeFindingStore()
	ctx := context.Background()
	p := dormantTinyProject()

	if _, err := testEngine().Reconcile(ctx, store, p, evalNow); err != nil {
		t.Fatalf("setup pass failed: %v", err)
	}
	rowsBefore := len(store.findings)

	// Activity resumes and tasks get added: both conditions clear.
	p.TasksCreatedLast7d = 4
	p.TotalTasks = 8
	transitions, err := testEngine().Reconcile(ctx, store, p, evalNow)
	if err != nil {
		t.Fatalf("resolve pass failed: %v", err)
	}

	resolved := 0
	for _, tr := range transitions {
		if tr.Type == TransitionResolved {
			resolved++
			if tr.Notifiable() {
				t.Error("resolutions must not be notifiable")
			}
			if tr.Finding.ResolvedAt == nil {
				t.Error("resolved transition missing resolution timestamp")
			}
		}
	}
	if resolved != 2 {
		t.Errorf("resolved = %d, want 2", resolved)
	}
	if len(store.findings) != rowsBefore {
		t.Errorf("row count changed %d -> %d, findings must never be deleted", rowsBefore, len(store.findings))
	}
	if store.openCount("p1") != 0 {
		t.Errorf("open findings = %d, want 0", store.openCount("p1"))
	}
}

func TestReconcileAtMostOneOpenPerRule(t *testing.T) {
	store := newFakeFindingStore()
	ctx := context.Background()
	p := dormantTinyProject()

	// Several passes with fluctuating metrics.
	for i := 0; i < 5; i++ {
		if i%2 == 1 {
			p.TasksCreatedLast7d = 1
		} else {
			p.TasksCreatedLast7d = 0
		}
		if _, err := testEngine().Reconcile(ctx, store, p, evalNow.Add(time.Duration(i)*time.Hour)); err != nil {
			t.Fatalf("pass %d failed: %v", i, err)
		}

		perRule := make(map[string]int)
		for _, f := range store.findings {
			if f.Status != models.FindingResolved {
				perRule[f.RuleID]++
			}
		}
		for rule, n := range perRule {
			if n > 1 {
				t.Fatalf("pass %d: %d open findings for rule %s", i, n, rule)
			}
		}
	}
}

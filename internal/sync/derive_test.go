// Control Tower - PMO Compliance Monitoring and Portfolio Analytics
// Copyright 2026 PMO Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pmolabs/controltower

package sync

import (
	"testing"
	"time"

	"github.com/pmolabs/controltower/internal/config"
	"github.com/pmolabs/controltower/internal/models"
	modelsasana "github.com/pmolabs/controltower/internal/models/asana"
	modelsclockify "github.com/pmolabs/controltower/internal/models/clockify"
)

var asanaCfg = config.AsanaConfig{
	PMOIDField:    "PMO ID",
	VerticalField: "Business Vertical",
	VerticalValue: "Professional Services",
}

func TestProjectFromPayloadMapsClassificationFields(t *testing.T) {
	payload := scopedPayload("p1")
	payload.CustomFields = append(payload.CustomFields,
		modelsasana.CustomFieldPayload{Name: "Sponsor", DisplayValue: strptr("Alex Kim")},
		modelsasana.CustomFieldPayload{Name: "Project Phase", DisplayValue: strptr("Execution")},
		modelsasana.CustomFieldPayload{Name: "Billing Plan", DisplayValue: strptr("Yes")},
	)

	p := projectFromPayload(&payload, &asanaCfg, runNow)

	if p.GID != "p1" || p.Name != "Project p1" {
		t.Errorf("identity = %s/%s", p.GID, p.Name)
	}
	if p.OwnerGID == nil || *p.OwnerGID != "u1" || p.OwnerName == nil || *p.OwnerName != "Dana" {
		t.Error("owner not mapped")
	}
	if p.PMOID == nil || *p.PMOID != "PMO-p1" {
		t.Errorf("pmo_id = %v", p.PMOID)
	}
	if p.Sponsor == nil || *p.Sponsor != "Alex Kim" {
		t.Errorf("sponsor = %v", p.Sponsor)
	}
	if p.BusinessVertical == nil || *p.BusinessVertical != "Professional Services" {
		t.Errorf("business_vertical = %v", p.BusinessVertical)
	}
	if p.ProjectPhase == nil || *p.ProjectPhase != "Execution" {
		t.Errorf("project_phase = %v", p.ProjectPhase)
	}
	if !p.BillingPlan {
		t.Error("billing_plan = false, want true")
	}
	if p.DueDate == nil {
		t.Error("due date not mapped from due_on")
	}
	if len(p.RawData) == 0 {
		t.Error("raw payload not retained")
	}
	if !p.SyncedAt.Equal(runNow) {
		t.Errorf("synced_at = %v", p.SyncedAt)
	}
}

func TestProjectFromPayloadEmptyFieldsStayNil(t *testing.T) {
	payload := modelsasana.ProjectPayload{GID: "p2", Name: "Bare"}

	p := projectFromPayload(&payload, &asanaCfg, runNow)

	if p.OwnerGID != nil || p.PMOID != nil || p.Sponsor != nil || p.DueDate != nil {
		t.Errorf("optional fields must stay nil: %+v", p)
	}
	if p.BillingPlan {
		t.Error("billing_plan = true without the field present")
	}
}

func TestIsTruthy(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"yes", true},
		{"Yes", true},
		{" TRUE ", true},
		{"1", true},
		{"on", true},
		{"no", false},
		{"false", false},
		{"", false},
		{"maybe", false},
	}
	for _, tt := range tests {
		if got := isTruthy(tt.in); got != tt.want {
			t.Errorf("isTruthy(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDeriveTaskMetrics(t *testing.T) {
	recent := runNow.Add(-2 * 24 * time.Hour)
	old := runNow.Add(-20 * 24 * time.Hour)

	tasks := []modelsasana.TaskPayload{
		{GID: "t1", Completed: true, CreatedAt: &old, CompletedAt: &recent, ModifiedAt: &recent},
		{GID: "t2", Completed: true, CreatedAt: &old, CompletedAt: &old},
		{GID: "t3", CreatedAt: &recent, ModifiedAt: &recent},
		{GID: "t4", CreatedAt: &old},
	}

	p := &models.Project{}
	deriveTaskMetrics(p, tasks, runNow)

	if p.TotalTasks != 4 || p.CompletedTasks != 2 {
		t.Errorf("tasks = %d/%d, want 2/4", p.CompletedTasks, p.TotalTasks)
	}
	if p.CalculatedProgress != 50.0 {
		t.Errorf("progress = %f, want 50", p.CalculatedProgress)
	}
	if p.TasksCreatedLast7d != 1 {
		t.Errorf("created_last_7d = %d, want 1", p.TasksCreatedLast7d)
	}
	if p.TasksCompletedLast7d != 1 {
		t.Errorf("completed_last_7d = %d, want 1", p.TasksCompletedLast7d)
	}
	if p.TasksModifiedLast7d != 2 {
		t.Errorf("modified_last_7d = %d, want 2", p.TasksModifiedLast7d)
	}
	if p.LastActivityAt == nil || !p.LastActivityAt.Equal(recent) {
		t.Errorf("last_activity_at = %v, want %v", p.LastActivityAt, recent)
	}
}

func TestDeriveTaskMetricsEmptyProject(t *testing.T) {
	p := &models.Project{CalculatedProgress: 77}
	deriveTaskMetrics(p, nil, runNow)

	if p.TotalTasks != 0 || p.CalculatedProgress != 0 {
		t.Errorf("empty project must reset to 0 tasks / 0 progress, got %d/%f", p.TotalTasks, p.CalculatedProgress)
	}
	if p.LastActivityAt != nil {
		t.Error("last_activity_at must stay nil without task events")
	}
}

func TestApplyLatestStatusPicksNewest(t *testing.T) {
	older := runNow.Add(-10 * 24 * time.Hour)
	newer := runNow.Add(-1 * 24 * time.Hour)

	updates := []modelsasana.StatusUpdatePayload{
		{GID: "s1", Color: "green", CreatedAt: &older, Author: &modelsasana.UserPayload{Name: "Old Author"}},
		{GID: "s2", Color: "yellow", CreatedAt: &newer, Author: &modelsasana.UserPayload{Name: "New Author"}},
	}

	p := &models.Project{}
	applyLatestStatus(p, updates)

	if p.Status == nil || *p.Status != models.StatusAtRisk {
		t.Errorf("status = %v, want at_risk", p.Status)
	}
	if p.LastStatusUpdateAt == nil || !p.LastStatusUpdateAt.Equal(newer) {
		t.Errorf("last_status_update_at = %v, want %v", p.LastStatusUpdateAt, newer)
	}
	if p.LastStatusUpdateBy == nil || *p.LastStatusUpdateBy != "New Author" {
		t.Errorf("last_status_update_by = %v", p.LastStatusUpdateBy)
	}
	if p.LastActivityAt == nil || !p.LastActivityAt.Equal(newer) {
		t.Errorf("status update must advance last_activity_at, got %v", p.LastActivityAt)
	}
}

func TestApplyLatestStatusNoUpdates(t *testing.T) {
	p := &models.Project{}
	applyLatestStatus(p, nil)
	if p.Status != nil || p.LastStatusUpdateAt != nil {
		t.Errorf("no updates must leave status fields nil: %+v", p)
	}

	// Updates without timestamps cannot be ordered and are ignored.
	applyLatestStatus(p, []modelsasana.StatusUpdatePayload{{GID: "s1", Color: "red"}})
	if p.Status != nil {
		t.Error("untimestamped update must be ignored")
	}
}

func TestApplyLatestStatusUnknownColorKeepsTimestamp(t *testing.T) {
	at := runNow.Add(-24 * time.Hour)
	p := &models.Project{}
	applyLatestStatus(p, []modelsasana.StatusUpdatePayload{{GID: "s1", Color: "purple", CreatedAt: &at}})

	if p.Status != nil {
		t.Errorf("unknown color must not set status, got %v", p.Status)
	}
	if p.LastStatusUpdateAt == nil || !p.LastStatusUpdateAt.Equal(at) {
		t.Error("update timestamp must be recorded even for unknown colors")
	}
}

func TestTimeEntryFromPayload(t *testing.T) {
	start := runNow.Add(-2 * time.Hour)
	end := runNow.Add(-time.Hour)
	payload := modelsclockify.TimeEntryPayload{
		ID:          "te1",
		UserID:      "u1",
		ProjectID:   "cp1",
		Description: "status report",
		Billable:    true,
		TimeInterval: modelsclockify.TimeInterval{
			Start:    &start,
			End:      &end,
			Duration: "PT1H",
		},
	}

	e := timeEntryFromPayload(&payload, "Dana", runNow)

	if e.ID != "te1" || e.UserID != "u1" {
		t.Errorf("identity = %s/%s", e.ID, e.UserID)
	}
	if e.UserName == nil || *e.UserName != "Dana" {
		t.Errorf("user_name = %v", e.UserName)
	}
	if e.ProjectID == nil || *e.ProjectID != "cp1" {
		t.Errorf("project_id = %v", e.ProjectID)
	}
	if e.DurationSeconds != 3600 {
		t.Errorf("duration = %f, want 3600", e.DurationSeconds)
	}
	if !e.Billable {
		t.Error("billable lost in mapping")
	}

	// Running entry: no end, no duration, optional fields absent.
	running := modelsclockify.TimeEntryPayload{
		ID:           "te2",
		UserID:       "u1",
		TimeInterval: modelsclockify.TimeInterval{Start: &start},
	}
	e = timeEntryFromPayload(&running, "", runNow)
	if e.DurationSeconds != 0 || e.EndedAt != nil {
		t.Errorf("running entry must carry zero duration and nil end: %+v", e)
	}
	if e.UserName != nil || e.ProjectID != nil || e.Description != nil {
		t.Errorf("absent optional fields must stay nil: %+v", e)
	}
}

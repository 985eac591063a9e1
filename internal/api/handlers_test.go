// Control Tower - PMO Compliance Monitoring and Portfolio Analytics
// Copyright 2026 PMO Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pmolabs/controltower

package api

import (
	"bytes"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/pmolabs/controltower/internal/models"
)

func TestHealthReadyReportsDatabaseState(t *testing.T) {
	store := newFakeStore()
	srv := newTestServer(store, &fakeSyncService{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/health")
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthy: status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	store.pingErr = errors.New("connection refused")
	resp, err = http.Get(srv.URL + "/api/v1/health")
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("unhealthy: status = %d, want 503", resp.StatusCode)
	}
}

func TestGetProjectFallsBackToSnapshot(t *testing.T) {
	store := newFakeStore()
	store.snapshots["gone"] = &models.ProjectSnapshot{
		GID:        "gone",
		Name:       "Departed Initiative",
		SnapshotAt: time.Now().UTC(),
	}
	srv := newTestServer(store, &fakeSyncService{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/projects/gone")
	if err != nil {
		t.Fatalf("GET project: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body := decodeResponse(t, resp)
	if !body.Success {
		t.Error("Success = false, want true")
	}

	resp, err = http.Get(srv.URL + "/api/v1/projects/never-existed")
	if err != nil {
		t.Fatalf("GET missing project: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing: status = %d, want 404", resp.StatusCode)
	}
}

func TestListProjectsExcludesCompletedByDefault(t *testing.T) {
	store := newFakeStore()
	store.projects["a"] = &models.Project{GID: "a", Name: "Active"}
	store.projects["b"] = &models.Project{GID: "b", Name: "Done", Completed: true}
	srv := newTestServer(store, &fakeSyncService{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/projects")
	if err != nil {
		t.Fatalf("GET projects: %v", err)
	}
	body := decodeResponse(t, resp)
	if body.Meta == nil || body.Meta.Pagination == nil {
		t.Fatal("expected pagination metadata")
	}
	if body.Meta.Pagination.Count != 1 {
		t.Errorf("default count = %d, want 1", body.Meta.Pagination.Count)
	}

	resp, err = http.Get(srv.URL + "/api/v1/projects?include_completed=true")
	if err != nil {
		t.Fatalf("GET projects: %v", err)
	}
	body = decodeResponse(t, resp)
	if body.Meta.Pagination.Count != 2 {
		t.Errorf("include_completed count = %d, want 2", body.Meta.Pagination.Count)
	}
}

func TestListFindingsValidatesAndForwardsFilters(t *testing.T) {
	store := newFakeStore()
	store.findings[1] = &models.Finding{ID: 1, ProjectGID: "p1", RuleID: "schedule_risk", Severity: models.SeverityHigh, Status: models.FindingOpen}
	store.findings[2] = &models.Finding{ID: 2, ProjectGID: "p2", RuleID: "no_activity", Severity: models.SeverityMedium, Status: models.FindingResolved}
	srv := newTestServer(store, &fakeSyncService{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/findings?project_gid=p1&rule=schedule_risk&status=open&severity=high")
	if err != nil {
		t.Fatalf("GET findings: %v", err)
	}
	body := decodeResponse(t, resp)
	if body.Meta.Pagination.Count != 1 {
		t.Errorf("filtered count = %d, want 1", body.Meta.Pagination.Count)
	}
	if store.lastFilter.ProjectGID != "p1" || store.lastFilter.RuleID != "schedule_risk" ||
		store.lastFilter.Status != models.FindingOpen || store.lastFilter.Severity != models.SeverityHigh {
		t.Errorf("filter not forwarded: %+v", store.lastFilter)
	}

	for _, q := range []string{"status=bogus", "severity=critical"} {
		resp, err := http.Get(srv.URL + "/api/v1/findings?" + q)
		if err != nil {
			t.Fatalf("GET findings?%s: %v", q, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", q, resp.StatusCode)
		}
	}
}

func TestPaginationClampsToMaxPageSize(t *testing.T) {
	store := newFakeStore()
	srv := newTestServer(store, &fakeSyncService{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/findings?limit=9999&offset=25")
	if err != nil {
		t.Fatalf("GET findings: %v", err)
	}
	resp.Body.Close()
	if store.lastLimit != 200 {
		t.Errorf("limit = %d, want clamped to 200", store.lastLimit)
	}
	if store.lastOffset != 25 {
		t.Errorf("offset = %d, want 25", store.lastOffset)
	}
}

func TestGetFindingsSummaryCountsAcknowledgedAsOpen(t *testing.T) {
	store := newFakeStore()
	store.findings[1] = &models.Finding{ID: 1, Severity: models.SeverityHigh, Status: models.FindingOpen}
	store.findings[2] = &models.Finding{ID: 2, Severity: models.SeverityMedium, Status: models.FindingAcknowledged}
	store.findings[3] = &models.Finding{ID: 3, Severity: models.SeverityHigh, Status: models.FindingResolved}
	srv := newTestServer(store, &fakeSyncService{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/findings/summary")
	if err != nil {
		t.Fatalf("GET summary: %v", err)
	}
	body := decodeResponse(t, resp)

	raw, err := json.Marshal(body.Data)
	if err != nil {
		t.Fatalf("re-marshal data: %v", err)
	}
	var summary findingSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		t.Fatalf("unmarshal summary: %v", err)
	}
	if summary.Total != 2 {
		t.Errorf("Total = %d, want 2", summary.Total)
	}
	if summary.BySeverity[models.SeverityHigh] != 1 || summary.BySeverity[models.SeverityMedium] != 1 {
		t.Errorf("BySeverity = %v, want one high and one medium", summary.BySeverity)
	}
}

func TestAcknowledgeFinding(t *testing.T) {
	store := newFakeStore()
	store.findings[7] = &models.Finding{ID: 7, ProjectGID: "p1", RuleID: "no_activity", Severity: models.SeverityMedium, Status: models.FindingOpen}
	store.findings[8] = &models.Finding{ID: 8, ProjectGID: "p1", RuleID: "schedule_risk", Severity: models.SeverityLow, Status: models.FindingResolved}
	srv := newTestServer(store, &fakeSyncService{})
	defer srv.Close()

	post := func(id string, payload any) *http.Response {
		t.Helper()
		buf, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		resp, err := http.Post(srv.URL+"/api/v1/findings/"+id+"/acknowledge", "application/json", bytes.NewReader(buf))
		if err != nil {
			t.Fatalf("POST acknowledge: %v", err)
		}
		return resp
	}

	// Missing comment fails validation.
	resp := post("7", map[string]string{"acknowledged_by": "ops"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing comment: status = %d, want 400", resp.StatusCode)
	}
	if store.findings[7].Status != models.FindingOpen {
		t.Error("finding acknowledged despite failed validation")
	}

	// Valid request acknowledges and returns the updated finding.
	resp = post("7", map[string]string{"acknowledged_by": "ops", "comment": "known blocker, vendor engaged"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("acknowledge: status = %d, want 200", resp.StatusCode)
	}
	decodeResponse(t, resp)
	if store.findings[7].Status != models.FindingAcknowledged {
		t.Errorf("Status = %q, want acknowledged", store.findings[7].Status)
	}
	if store.findings[7].AckComment == nil || *store.findings[7].AckComment == "" {
		t.Error("AckComment not recorded")
	}

	// Acknowledging again is a conflict, not a silent success.
	resp = post("7", map[string]string{"acknowledged_by": "ops", "comment": "again"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("re-acknowledge: status = %d, want 409", resp.StatusCode)
	}

	// A resolved finding is also a conflict.
	resp = post("8", map[string]string{"acknowledged_by": "ops", "comment": "late"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("resolved: status = %d, want 409", resp.StatusCode)
	}

	// An unknown ID is a 404.
	resp = post("999", map[string]string{"acknowledged_by": "ops", "comment": "n/a"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown: status = %d, want 404", resp.StatusCode)
	}
}

func TestTriggerSyncReturnsAccepted(t *testing.T) {
	store := newFakeStore()
	syncSvc := &fakeSyncService{}
	srv := newTestServer(store, syncSvc)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/sync/trigger", "application/json", nil)
	if err != nil {
		t.Fatalf("POST sync: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}

	deadline := time.Now().Add(2 * time.Second)
	for syncSvc.triggerCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("sync was never triggered")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestGetSyncRun(t *testing.T) {
	store := newFakeStore()
	store.runs["run-1"] = &models.SyncRun{Status: models.SyncCompleted, ProjectsSynced: 12}
	srv := newTestServer(store, &fakeSyncService{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/sync/runs/run-1")
	if err != nil {
		t.Fatalf("GET run: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/api/v1/sync/runs/missing")
	if err != nil {
		t.Fatalf("GET missing run: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing: status = %d, want 404", resp.StatusCode)
	}
}

func TestGetTimeTrackingSummaryValidatesDays(t *testing.T) {
	store := newFakeStore()
	store.tracked["p1"] = 7200
	srv := newTestServer(store, &fakeSyncService{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/time-tracking/summary?days=30")
	if err != nil {
		t.Fatalf("GET summary: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	for _, q := range []string{"days=0", "days=-3", "days=365", "days=abc"} {
		resp, err := http.Get(srv.URL + "/api/v1/time-tracking/summary?" + q)
		if err != nil {
			t.Fatalf("GET summary?%s: %v", q, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", q, resp.StatusCode)
		}
	}
}

func TestResponseEnvelopeCarriesRequestID(t *testing.T) {
	store := newFakeStore()
	srv := newTestServer(store, &fakeSyncService{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/projects/nope")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	body := decodeResponse(t, resp)
	if body.Success {
		t.Error("Success = true on error response")
	}
	if body.Error == nil || body.Error.Code != ErrCodeNotFound {
		t.Fatalf("Error = %+v, want NOT_FOUND", body.Error)
	}
	if body.Error.RequestID == "" {
		t.Error("RequestID missing from error envelope")
	}
}

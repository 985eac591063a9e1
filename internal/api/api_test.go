// Control Tower - PMO Compliance Monitoring and Portfolio Analytics
// Copyright 2026 PMO Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pmolabs/controltower

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/pmolabs/controltower/internal/config"
	"github.com/pmolabs/controltower/internal/database"
	"github.com/pmolabs/controltower/internal/models"
)

// fakeStore is an in-memory Store for handler tests.
type fakeStore struct {
	mu        sync.Mutex
	pingErr   error
	projects  map[string]*models.Project
	snapshots map[string]*models.ProjectSnapshot
	changelog map[string][]models.ChangelogEntry
	findings  map[int64]*models.Finding
	runs      map[string]*models.SyncRun
	tracked   map[string]float64

	lastFilter database.FindingFilter
	lastLimit  int
	lastOffset int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		projects:  make(map[string]*models.Project),
		snapshots: make(map[string]*models.ProjectSnapshot),
		changelog: make(map[string][]models.ChangelogEntry),
		findings:  make(map[int64]*models.Finding),
		runs:      make(map[string]*models.SyncRun),
		tracked:   make(map[string]float64),
	}
}

func (f *fakeStore) Ping(ctx context.Context) error { return f.pingErr }

func (f *fakeStore) ListProjects(ctx context.Context, includeCompleted bool, limit, offset int) ([]models.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastLimit, f.lastOffset = limit, offset
	var out []models.Project
	for _, p := range f.projects {
		if p.Completed && !includeCompleted {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakeStore) GetProject(ctx context.Context, gid string) (*models.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.projects[gid]; ok {
		return p, nil
	}
	return nil, database.ErrNotFound
}

func (f *fakeStore) GetProjectSnapshot(ctx context.Context, gid string) (*models.ProjectSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.snapshots[gid]; ok {
		return s, nil
	}
	return nil, database.ErrNotFound
}

func (f *fakeStore) ListChangelog(ctx context.Context, projectGID string, limit, offset int) ([]models.ChangelogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.changelog[projectGID], nil
}

func (f *fakeStore) ListFindings(ctx context.Context, filter database.FindingFilter, limit, offset int) ([]models.Finding, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter, f.lastLimit, f.lastOffset = filter, limit, offset
	var out []models.Finding
	for _, fd := range f.findings {
		if filter.ProjectGID != "" && fd.ProjectGID != filter.ProjectGID {
			continue
		}
		if filter.RuleID != "" && fd.RuleID != filter.RuleID {
			continue
		}
		if filter.Status != "" && fd.Status != filter.Status {
			continue
		}
		if filter.Severity != "" && fd.Severity != filter.Severity {
			continue
		}
		out = append(out, *fd)
	}
	return out, nil
}

func (f *fakeStore) GetFinding(ctx context.Context, id int64) (*models.Finding, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if fd, ok := f.findings[id]; ok {
		return fd, nil
	}
	return nil, database.ErrNotFound
}

func (f *fakeStore) AcknowledgeFinding(ctx context.Context, id int64, by, comment string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	fd, ok := f.findings[id]
	if !ok || fd.Status != models.FindingOpen {
		return database.ErrNotFound
	}
	fd.Status = models.FindingAcknowledged
	fd.AcknowledgedAt = &at
	fd.AcknowledgedBy = &by
	fd.AckComment = &comment
	return nil
}

func (f *fakeStore) CountOpenFindingsBySeverity(ctx context.Context) (map[models.Severity]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[models.Severity]int)
	for _, fd := range f.findings {
		if fd.Status == models.FindingOpen || fd.Status == models.FindingAcknowledged {
			counts[fd.Severity]++
		}
	}
	return counts, nil
}

func (f *fakeStore) ListSyncRuns(ctx context.Context, limit, offset int) ([]models.SyncRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.SyncRun
	for _, r := range f.runs {
		out = append(out, *r)
	}
	return out, nil
}

func (f *fakeStore) GetSyncRun(ctx context.Context, id string) (*models.SyncRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.runs[id]; ok {
		return r, nil
	}
	return nil, database.ErrNotFound
}

func (f *fakeStore) SumTrackedSeconds(ctx context.Context, from, to time.Time) (map[string]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tracked, nil
}

// fakeSyncService records trigger calls.
type fakeSyncService struct {
	mu        sync.Mutex
	triggered int
	err       error
	lastSync  time.Time
}

func (f *fakeSyncService) TriggerSync(ctx context.Context) (*models.SyncRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.triggered++
	if f.err != nil {
		return nil, f.err
	}
	return &models.SyncRun{Status: models.SyncCompleted}, nil
}

func (f *fakeSyncService) triggerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.triggered
}

func (f *fakeSyncService) LastSyncTime() time.Time { return f.lastSync }

func testAPIConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			RateLimitReqs:   1000,
			RateLimitWindow: time.Minute,
		},
		API: config.APIConfig{
			DefaultPageSize: 50,
			MaxPageSize:     200,
		},
	}
}

func newTestServer(store *fakeStore, syncSvc SyncService) *httptest.Server {
	cfg := testAPIConfig()
	h := NewHandlers(store, syncSvc, cfg)
	return httptest.NewServer(NewRouter(h, cfg))
}

func decodeResponse(t testingT, resp *http.Response) APIResponse {
	t.Helper()
	defer resp.Body.Close()
	var body APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

// testingT is the subset of *testing.T the helpers need.
type testingT interface {
	Helper()
	Fatalf(format string, args ...any)
}

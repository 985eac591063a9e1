// Control Tower - PMO Compliance Monitoring and Portfolio Analytics
// Copyright 2026 PMO Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pmolabs/controltower

package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/pmolabs/controltower/internal/asana"
	"github.com/pmolabs/controltower/internal/database"
	"github.com/pmolabs/controltower/internal/diff"
	"github.com/pmolabs/controltower/internal/logging"
	"github.com/pmolabs/controltower/internal/metrics"
	"github.com/pmolabs/controltower/internal/models"
	modelsasana "github.com/pmolabs/controltower/internal/models/asana"
	"github.com/pmolabs/controltower/internal/rules"
)

// defaultWorkers bounds the per-run worker pool when not configured.
const defaultWorkers = 4

// runCounters aggregates per-project outcomes across workers.
type runCounters struct {
	synced    atomic.Int64
	failed    atomic.Int64
	changes   atomic.Int64
	created   atomic.Int64
	escalated atomic.Int64
}

// runSync executes one full synchronization run. The returned SyncRun holds
// the final counters and terminal status. An error is returned only when the
// run itself could not execute (run row creation or project enumeration
// failed); per-project failures are counted inside a completed run.
func (m *Manager) runSync(ctx context.Context) (*models.SyncRun, error) {
	now := m.now().UTC()
	run := &models.SyncRun{
		ID:        uuid.New(),
		StartedAt: now,
		Status:    models.SyncRunning,
	}

	if err := m.store.CreateSyncRun(ctx, run); err != nil {
		return nil, fmt.Errorf("create sync run: %w", err)
	}

	logging.Info().Str("sync_id", run.ID.String()).Msg("Sync run started")

	payloads, err := m.client.ListProjects(ctx)
	if err != nil {
		return m.failRun(ctx, run, fmt.Errorf("list projects: %w", err))
	}

	scoped, skipped := m.filterScope(payloads, now)
	run.ProjectsSkipped = skipped
	logging.Info().
		Str("sync_id", run.ID.String()).
		Int("upstream", len(payloads)).
		Int("in_scope", len(scoped)).
		Msg("Portfolio scope resolved")

	m.snapshotDeparted(ctx, scoped, now)

	var counters runCounters
	m.syncProjects(ctx, run.ID, scoped, now, &counters)

	if m.clockify != nil && m.cfg.Clockify.Enabled {
		m.syncTimeEntries(ctx, now)
	}

	m.refreshOpenFindingsGauge(ctx)

	run.Status = models.SyncCompleted
	completedAt := m.now().UTC()
	run.CompletedAt = &completedAt
	run.ProjectsSynced = int(counters.synced.Load())
	run.ProjectsFailed = int(counters.failed.Load())
	run.ChangesDetected = int(counters.changes.Load())
	run.FindingsCreated = int(counters.created.Load())
	run.FindingsEscalated = int(counters.escalated.Load())

	if err := m.store.CompleteSyncRun(ctx, run); err != nil {
		return nil, fmt.Errorf("complete sync run: %w", err)
	}

	metrics.RecordSyncRun(string(run.Status), completedAt.Sub(run.StartedAt),
		run.ProjectsSynced, run.ProjectsFailed, run.ChangesDetected)
	logging.Info().
		Str("sync_id", run.ID.String()).
		Int("synced", run.ProjectsSynced).
		Int("failed", run.ProjectsFailed).
		Int("skipped", run.ProjectsSkipped).
		Int("changes", run.ChangesDetected).
		Dur("duration", completedAt.Sub(run.StartedAt)).
		Msg("Sync run completed")

	return run, nil
}

// refreshOpenFindingsGauge re-exports open finding counts by severity after
// reconciliation so the gauge reflects creations, escalations, and
// resolutions from this run. Acknowledged findings count as open.
func (m *Manager) refreshOpenFindingsGauge(ctx context.Context) {
	counts, err := m.store.CountOpenFindingsBySeverity(ctx)
	if err != nil {
		logging.Warn().Err(err).Msg("Failed to count open findings for metrics")
		return
	}
	for _, sev := range []models.Severity{models.SeverityLow, models.SeverityMedium, models.SeverityHigh} {
		metrics.FindingsOpen.WithLabelValues(string(sev)).Set(float64(counts[sev]))
	}
}

// failRun transitions the run to failed with the causing error recorded.
func (m *Manager) failRun(ctx context.Context, run *models.SyncRun, cause error) (*models.SyncRun, error) {
	run.Status = models.SyncFailed
	completedAt := m.now().UTC()
	run.CompletedAt = &completedAt
	detail := cause.Error()
	run.ErrorDetail = &detail

	if err := m.store.CompleteSyncRun(ctx, run); err != nil {
		logging.Error().Err(err).Str("sync_id", run.ID.String()).Msg("Failed to record failed run")
	}

	metrics.RecordSyncRun(string(models.SyncFailed), completedAt.Sub(run.StartedAt), 0, 0, 0)
	logging.Error().Err(cause).Str("sync_id", run.ID.String()).Msg("Sync run failed")

	return run, cause
}

// syncProjects fans the in-scope projects out over the worker pool. Every
// project is handled exactly once; workers pull from a shared channel so an
// expensive project never stalls the others behind a fixed partition.
func (m *Manager) syncProjects(ctx context.Context, syncID uuid.UUID, scoped []modelsasana.ProjectPayload, now time.Time, counters *runCounters) {
	workers := m.cfg.Sync.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	if workers > len(scoped) && len(scoped) > 0 {
		workers = len(scoped)
	}
	metrics.SyncWorkerPoolSize.Set(float64(workers))

	jobs := make(chan modelsasana.ProjectPayload)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for payload := range jobs {
				m.syncProject(ctx, syncID, &payload, now, counters)
			}
		}()
	}

	for _, payload := range scoped {
		select {
		case jobs <- payload:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return
		}
	}
	close(jobs)
	wg.Wait()
}

// syncProject runs the full pipeline for one project: fetch details, derive
// metrics, diff against the stored state, persist atomically, reconcile
// findings, notify. Any failure marks this project failed without touching
// the rest of the run.
func (m *Manager) syncProject(ctx context.Context, syncID uuid.UUID, payload *modelsasana.ProjectPayload, now time.Time, counters *runCounters) {
	prev, err := m.store.GetProject(ctx, payload.GID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		m.recordProjectFailure(counters, payload.GID, "load stored state", err)
		return
	}

	next := projectFromPayload(payload, &m.cfg.Asana, now)

	tasks, err := m.client.GetProjectTasks(ctx, payload.GID)
	if err != nil {
		m.recordProjectFailure(counters, payload.GID, "fetch tasks", err)
		return
	}
	deriveTaskMetrics(next, tasks, now)

	updates, err := m.client.ListStatusUpdates(ctx, payload.GID)
	if err != nil {
		m.recordProjectFailure(counters, payload.GID, "fetch status updates", err)
		return
	}
	applyLatestStatus(next, updates)

	entries := diff.Compare(prev, next, syncID, now)
	counters.changes.Add(int64(len(entries)))

	if err := m.store.ApplyProjectUpdate(ctx, next, entries); err != nil {
		m.recordProjectFailure(counters, payload.GID, "persist", err)
		return
	}

	transitions, err := m.engine.Reconcile(ctx, m.store, next, now)
	if err != nil {
		// The project state is already persisted; findings converge on the
		// next run.
		logging.Warn().Err(err).Str("project_gid", payload.GID).Msg("Finding reconciliation incomplete")
	}
	for _, tr := range transitions {
		switch tr.Type {
		case rules.TransitionCreated:
			counters.created.Add(1)
		case rules.TransitionEscalated:
			counters.escalated.Add(1)
		}
	}
	m.notifier.NotifyTransitions(ctx, next, transitions)

	counters.synced.Add(1)
}

// recordProjectFailure counts one failed project. Authorization and missing
// resource errors are permanent for this run and logged at a lower level
// than transport failures.
func (m *Manager) recordProjectFailure(counters *runCounters, gid, stage string, err error) {
	counters.failed.Add(1)
	if errors.Is(err, asana.ErrForbidden) || errors.Is(err, asana.ErrNotFound) {
		logging.Warn().Err(err).Str("project_gid", gid).Str("stage", stage).Msg("Project inaccessible, skipping until access changes")
		return
	}
	logging.Error().Err(err).Str("project_gid", gid).Str("stage", stage).Msg("Project sync failed")
}

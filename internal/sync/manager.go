// Control Tower - PMO Compliance Monitoring and Portfolio Analytics
// Copyright 2026 PMO Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pmolabs/controltower

package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pmolabs/controltower/internal/asana"
	"github.com/pmolabs/controltower/internal/clockify"
	"github.com/pmolabs/controltower/internal/config"
	"github.com/pmolabs/controltower/internal/logging"
	"github.com/pmolabs/controltower/internal/models"
	"github.com/pmolabs/controltower/internal/notify"
	"github.com/pmolabs/controltower/internal/rules"
)

// Store is the persistence surface one sync run needs. Implemented by
// database.Store and by fakes in tests.
type Store interface {
	rules.FindingStore

	GetProject(ctx context.Context, gid string) (*models.Project, error)
	ApplyProjectUpdate(ctx context.Context, p *models.Project, entries []models.ChangelogEntry) error
	ListProjectGIDs(ctx context.Context) ([]string, error)
	InsertProjectSnapshot(ctx context.Context, snap *models.ProjectSnapshot) error

	CreateSyncRun(ctx context.Context, run *models.SyncRun) error
	CompleteSyncRun(ctx context.Context, run *models.SyncRun) error

	CountOpenFindingsBySeverity(ctx context.Context) (map[models.Severity]int, error)

	UpsertTimeEntries(ctx context.Context, entries []models.TimeEntry) error
}

// Manager orchestrates periodic portfolio synchronization.
//
// Thread Safety:
//   - syncMu serializes run execution; the ticker and manual triggers never
//     overlap
//   - mu protects running and lastSync
//   - wg tracks background goroutines for coordinated shutdown
type Manager struct {
	store    Store
	client   asana.ClientInterface
	clockify clockify.ClientInterface // Optional: nil when time tracking is disabled
	engine   *rules.Engine
	notifier notify.Notifier
	cfg      *config.Config

	lastSync time.Time
	running  bool
	mu       sync.RWMutex
	syncMu   sync.Mutex
	stopChan chan struct{}
	wg       sync.WaitGroup

	// now is injectable for deterministic tests.
	now func() time.Time
}

// NewManager creates a sync manager. The Clockify client may be nil; time
// entry sync is skipped entirely in that case.
func NewManager(store Store, client asana.ClientInterface, clockifyClient clockify.ClientInterface, engine *rules.Engine, notifier notify.Notifier, cfg *config.Config) *Manager {
	m := &Manager{
		store:    store,
		client:   client,
		clockify: clockifyClient,
		engine:   engine,
		notifier: notifier,
		cfg:      cfg,
		stopChan: make(chan struct{}),
		now:      time.Now,
	}

	logging.Info().
		Dur("interval", cfg.Sync.Interval).
		Int("workers", cfg.Sync.Workers).
		Int("retention_days", cfg.Sync.RetentionDays).
		Bool("clockify", clockifyClient != nil).
		Msg("Sync manager config loaded")

	return m
}

// Start begins the periodic synchronization process.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("sync manager is already running")
	}
	m.running = true
	m.mu.Unlock()

	logging.Info().Msg("Starting sync manager...")

	m.wg.Add(1)
	go m.syncLoop(ctx)

	if m.cfg.Sync.RunOnStartup {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			if _, err := m.TriggerSync(ctx); err != nil {
				logging.Warn().Err(err).Msg("Initial sync failed (will retry on interval)")
			}
		}()
	}

	return nil
}

// Stop gracefully stops the synchronization process, waiting for any
// in-flight run to finish.
func (m *Manager) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return fmt.Errorf("sync manager is not running")
	}
	m.running = false
	m.mu.Unlock()

	logging.Info().Msg("Stopping sync manager...")
	close(m.stopChan)
	m.wg.Wait()
	logging.Info().Msg("Sync manager stopped")

	return nil
}

// LastSyncTime returns the start time of the last completed run.
func (m *Manager) LastSyncTime() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastSync
}

// TriggerSync executes one sync run immediately. Concurrent triggers are
// serialized; the second caller waits for the first run to finish and then
// runs its own. The run is bounded by the configured sync timeout.
func (m *Manager) TriggerSync(ctx context.Context) (*models.SyncRun, error) {
	m.syncMu.Lock()
	defer m.syncMu.Unlock()

	if m.cfg.Sync.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.Sync.Timeout)
		defer cancel()
	}

	run, err := m.runSync(ctx)
	if err == nil {
		m.mu.Lock()
		m.lastSync = run.StartedAt
		m.mu.Unlock()
	}
	return run, err
}

// syncLoop runs a sync on every tick until stopped.
func (m *Manager) syncLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.Sync.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopChan:
			return
		case <-ticker.C:
			if _, err := m.TriggerSync(ctx); err != nil {
				logging.Error().Err(err).Msg("Scheduled sync failed")
			}
		}
	}
}

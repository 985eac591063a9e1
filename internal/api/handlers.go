// Control Tower - PMO Compliance Monitoring and Portfolio Analytics
// Copyright 2026 PMO Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pmolabs/controltower

package api

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/pmolabs/controltower/internal/config"
	"github.com/pmolabs/controltower/internal/database"
	"github.com/pmolabs/controltower/internal/models"
)

// Store is the persistence surface the dashboard API reads from. Implemented
// by database.Store and by fakes in tests.
type Store interface {
	Ping(ctx context.Context) error

	ListProjects(ctx context.Context, includeCompleted bool, limit, offset int) ([]models.Project, error)
	GetProject(ctx context.Context, gid string) (*models.Project, error)
	GetProjectSnapshot(ctx context.Context, gid string) (*models.ProjectSnapshot, error)
	ListChangelog(ctx context.Context, projectGID string, limit, offset int) ([]models.ChangelogEntry, error)

	ListFindings(ctx context.Context, filter database.FindingFilter, limit, offset int) ([]models.Finding, error)
	GetFinding(ctx context.Context, id int64) (*models.Finding, error)
	AcknowledgeFinding(ctx context.Context, id int64, by, comment string, at time.Time) error
	CountOpenFindingsBySeverity(ctx context.Context) (map[models.Severity]int, error)

	ListSyncRuns(ctx context.Context, limit, offset int) ([]models.SyncRun, error)
	GetSyncRun(ctx context.Context, id string) (*models.SyncRun, error)

	SumTrackedSeconds(ctx context.Context, from, to time.Time) (map[string]float64, error)
}

// SyncService triggers and reports on sync runs. Implemented by
// sync.Manager.
type SyncService interface {
	TriggerSync(ctx context.Context) (*models.SyncRun, error)
	LastSyncTime() time.Time
}

// Handlers bundles the API handler dependencies.
type Handlers struct {
	store    Store
	syncSvc  SyncService
	cfg      *config.Config
	validate *validator.Validate
}

// NewHandlers creates the handler set.
func NewHandlers(store Store, syncSvc SyncService, cfg *config.Config) *Handlers {
	return &Handlers{
		store:    store,
		syncSvc:  syncSvc,
		cfg:      cfg,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

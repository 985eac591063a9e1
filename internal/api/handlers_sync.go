// Control Tower - PMO Compliance Monitoring and Portfolio Analytics
// Copyright 2026 PMO Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pmolabs/controltower

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pmolabs/controltower/internal/database"
	"github.com/pmolabs/controltower/internal/logging"
)

// ListSyncRuns returns sync run history, newest first.
func (h *Handlers) ListSyncRuns(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	p := parsePagination(r, &h.cfg.API)

	runs, err := h.store.ListSyncRuns(r.Context(), p.Limit, p.Offset)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.SuccessWithPagination(runs, p.meta(len(runs)))
}

// GetSyncRun returns one sync run by UUID.
func (h *Handlers) GetSyncRun(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	run, err := h.store.GetSyncRun(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, database.ErrNotFound) {
		rw.NotFound("Sync run not found")
		return
	}
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(run)
}

// TriggerSync starts a sync run in the background and returns immediately.
// Runs are serialized by the sync manager; a trigger received while a run is
// in flight waits its turn rather than overlapping.
func (h *Handlers) TriggerSync(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if h.syncSvc == nil {
		rw.Error(http.StatusServiceUnavailable, ErrCodeInternalError, "Sync is not configured")
		return
	}

	// Detached from the request context so a client disconnect does not
	// cancel the run mid-flight.
	go func() {
		if _, err := h.syncSvc.TriggerSync(context.Background()); err != nil {
			logging.Error().Err(err).Msg("Manually triggered sync failed")
		}
	}()

	rw.Accepted(map[string]string{"status": "sync triggered"})
}

// GetTimeTrackingSummary returns tracked seconds per project over the last
// N days (query parameter days, default 7, capped at 90).
func (h *Handlers) GetTimeTrackingSummary(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	days := 7
	if raw := r.URL.Query().Get("days"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 || v > 90 {
			rw.BadRequest("Invalid days: must be between 1 and 90")
			return
		}
		days = v
	}

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -days)
	totals, err := h.store.SumTrackedSeconds(r.Context(), from, to)
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	rw.Success(map[string]any{
		"from":               from,
		"to":                 to,
		"seconds_by_project": totals,
	})
}

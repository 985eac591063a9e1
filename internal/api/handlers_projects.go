// Control Tower - PMO Compliance Monitoring and Portfolio Analytics
// Copyright 2026 PMO Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pmolabs/controltower

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pmolabs/controltower/internal/database"
)

// ListProjects returns the monitored portfolio, newest activity first.
// Completed projects are excluded unless include_completed=true.
func (h *Handlers) ListProjects(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	p := parsePagination(r, &h.cfg.API)

	projects, err := h.store.ListProjects(r.Context(), parseBool(r, "include_completed"), p.Limit, p.Offset)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.SuccessWithPagination(projects, p.meta(len(projects)))
}

// GetProject returns a single project by Asana GID. Projects that have left
// the monitored scope fall back to their departure snapshot so dashboards
// keep a record of what was last known.
func (h *Handlers) GetProject(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	gid := chi.URLParam(r, "gid")

	project, err := h.store.GetProject(r.Context(), gid)
	if err == nil {
		rw.Success(project)
		return
	}
	if !errors.Is(err, database.ErrNotFound) {
		rw.DatabaseError(err)
		return
	}

	snapshot, err := h.store.GetProjectSnapshot(r.Context(), gid)
	if errors.Is(err, database.ErrNotFound) {
		rw.NotFound("Project not found")
		return
	}
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(snapshot)
}

// GetProjectChangelog returns the audited field changes for one project,
// newest first.
func (h *Handlers) GetProjectChangelog(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	p := parsePagination(r, &h.cfg.API)

	entries, err := h.store.ListChangelog(r.Context(), chi.URLParam(r, "gid"), p.Limit, p.Offset)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.SuccessWithPagination(entries, p.meta(len(entries)))
}

// Control Tower - PMO Compliance Monitoring and Portfolio Analytics
// Copyright 2026 PMO Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pmolabs/controltower

package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/pmolabs/controltower/internal/database"
	"github.com/pmolabs/controltower/internal/models"
)

// acknowledgeRequest is the body of a finding acknowledgment. The comment is
// mandatory so every suppressed finding carries an operator rationale.
type acknowledgeRequest struct {
	AcknowledgedBy string `json:"acknowledged_by" validate:"required,max=255"`
	Comment        string `json:"comment" validate:"required,max=2000"`
}

// findingSummary is the severity breakdown of currently open findings.
type findingSummary struct {
	Total      int                     `json:"total"`
	BySeverity map[models.Severity]int `json:"by_severity"`
}

// ListFindings returns findings, newest first, optionally filtered by
// project_gid, rule, status, and severity query parameters.
func (h *Handlers) ListFindings(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	p := parsePagination(r, &h.cfg.API)

	q := r.URL.Query()
	filter := database.FindingFilter{
		ProjectGID: q.Get("project_gid"),
		RuleID:     q.Get("rule"),
	}
	if raw := q.Get("status"); raw != "" {
		status := models.FindingStatus(raw)
		switch status {
		case models.FindingOpen, models.FindingAcknowledged, models.FindingResolved:
			filter.Status = status
		default:
			rw.BadRequest("Invalid status: must be open, acknowledged, or resolved")
			return
		}
	}
	if raw := q.Get("severity"); raw != "" {
		severity := models.Severity(raw)
		if severity.Rank() == 0 {
			rw.BadRequest("Invalid severity: must be low, medium, or high")
			return
		}
		filter.Severity = severity
	}

	findings, err := h.store.ListFindings(r.Context(), filter, p.Limit, p.Offset)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.SuccessWithPagination(findings, p.meta(len(findings)))
}

// GetFindingsSummary returns open finding counts broken down by severity.
// Acknowledged findings count as open; only resolution clears them.
func (h *Handlers) GetFindingsSummary(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	counts, err := h.store.CountOpenFindingsBySeverity(r.Context())
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	summary := findingSummary{BySeverity: counts}
	for _, n := range counts {
		summary.Total += n
	}
	rw.Success(summary)
}

// GetFinding returns one finding by numeric ID.
func (h *Handlers) GetFinding(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		rw.BadRequest("Invalid finding ID")
		return
	}

	finding, err := h.store.GetFinding(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		rw.NotFound("Finding not found")
		return
	}
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(finding)
}

// AcknowledgeFinding marks an open finding as acknowledged. Acknowledged
// findings stay open for reporting but are flagged as seen by an operator.
// Only open findings can be acknowledged; anything else is a conflict.
func (h *Handlers) AcknowledgeFinding(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		rw.BadRequest("Invalid finding ID")
		return
	}

	var req acknowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.BadRequest("Invalid JSON body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		rw.ValidationError("Validation failed", err.Error())
		return
	}

	err = h.store.AcknowledgeFinding(r.Context(), id, req.AcknowledgedBy, req.Comment, time.Now().UTC())
	if errors.Is(err, database.ErrNotFound) {
		// The update matched no open row. Distinguish a missing finding
		// from one already acknowledged or resolved.
		if _, getErr := h.store.GetFinding(r.Context(), id); errors.Is(getErr, database.ErrNotFound) {
			rw.NotFound("Finding not found")
		} else {
			rw.Conflict("Finding is not open")
		}
		return
	}
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	finding, err := h.store.GetFinding(r.Context(), id)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(finding)
}

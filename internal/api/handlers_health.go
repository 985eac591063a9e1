// Control Tower - PMO Compliance Monitoring and Portfolio Analytics
// Copyright 2026 PMO Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pmolabs/controltower

package api

import (
	"net/http"
	"time"
)

// healthStatus is the readiness report body.
type healthStatus struct {
	Status   string     `json:"status"`
	Database string     `json:"database"`
	LastSync *time.Time `json:"last_sync,omitempty"`
}

// HealthLive reports process liveness. Always succeeds while the process
// can serve requests.
func (h *Handlers) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]string{"status": "ok"})
}

// HealthReady reports readiness: the database must answer a ping. A failed
// dependency returns 503 so orchestrators hold traffic.
func (h *Handlers) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	status := healthStatus{Status: "ok", Database: "ok"}
	if err := h.store.Ping(r.Context()); err != nil {
		status.Status = "degraded"
		status.Database = "unreachable"
		rw.writeJSON(http.StatusServiceUnavailable, APIResponse{Success: false, Data: status})
		return
	}

	if h.syncSvc != nil {
		if last := h.syncSvc.LastSyncTime(); !last.IsZero() {
			status.LastSync = &last
		}
	}
	rw.Success(status)
}

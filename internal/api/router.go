// Control Tower - PMO Compliance Monitoring and Portfolio Analytics
// Copyright 2026 PMO Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pmolabs/controltower

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pmolabs/controltower/internal/config"
)

// NewRouter builds the HTTP route table with the full middleware stack.
func NewRouter(h *Handlers, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(CORS(cfg.Server.CORSOrigins))

	// Prometheus scrape endpoint, outside the rate limiter.
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(RateLimit(&cfg.Server))
		r.Use(RequestMetrics)

		r.Get("/health", h.HealthReady)
		r.Get("/health/live", h.HealthLive)
		r.Get("/health/ready", h.HealthReady)

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", h.ListProjects)
			r.Get("/{gid}", h.GetProject)
			r.Get("/{gid}/changelog", h.GetProjectChangelog)
		})

		r.Route("/findings", func(r chi.Router) {
			r.Get("/", h.ListFindings)
			r.Get("/summary", h.GetFindingsSummary)
			r.Get("/{id}", h.GetFinding)
			r.Post("/{id}/acknowledge", h.AcknowledgeFinding)
		})

		r.Route("/sync", func(r chi.Router) {
			r.Post("/trigger", h.TriggerSync)
			r.Get("/runs", h.ListSyncRuns)
			r.Get("/runs/{id}", h.GetSyncRun)
		})

		r.Get("/time-tracking/summary", h.GetTimeTrackingSummary)
	})

	return r
}

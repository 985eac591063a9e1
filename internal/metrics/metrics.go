// Control Tower - PMO Compliance Monitoring and Portfolio Analytics
// Copyright 2026 PMO Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pmolabs/controltower

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for the sync pipeline and its surroundings:
// - Sync run duration, project throughput, per-project failures
// - Changelog and finding activity from the rules engine
// - Upstream API call outcomes (Asana, Clockify) and circuit breaker state
// - Database query performance (Postgres)
// - Dashboard API latency and throughput

var (
	// Sync Run Metrics
	SyncRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sync_run_duration_seconds",
			Help:    "Duration of a full sync run in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
	)

	SyncProjectsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_projects_processed_total",
			Help: "Total number of projects processed by sync runs",
		},
		[]string{"outcome"}, // "synced", "skipped", "forbidden", "failed"
	)

	SyncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_runs_total",
			Help: "Total number of sync runs by terminal status",
		},
		[]string{"status"}, // "completed", "failed"
	)

	SyncChangesDetected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sync_changes_detected_total",
			Help: "Total number of audited field changes recorded in the changelog",
		},
	)

	SyncWorkerPoolSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sync_worker_pool_size",
			Help: "Configured number of parallel sync workers",
		},
	)

	// Rules Engine Metrics
	RuleEvaluations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rule_evaluations_total",
			Help: "Total number of rule evaluations",
		},
		[]string{"rule", "fired"},
	)

	FindingTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finding_transitions_total",
			Help: "Total number of finding lifecycle transitions",
		},
		[]string{"transition"}, // "created", "escalated", "resolved", "acknowledged"
	)

	FindingsOpen = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "findings_open",
			Help: "Current number of open findings by severity",
		},
		[]string{"severity"},
	)

	// Upstream API Metrics
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_requests_total",
			Help: "Total number of upstream API requests",
		},
		[]string{"service", "operation", "outcome"}, // outcome: "success", "forbidden", "not_found", "rate_limited", "error"
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_request_duration_seconds",
			Help:    "Upstream API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "operation"},
	)

	UpstreamRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_retries_total",
			Help: "Total number of upstream request retries after rate limiting or transient failure",
		},
		[]string{"service"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through a circuit breaker",
		},
		[]string{"name", "result"}, // "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "postgres_query_duration_seconds",
			Help:    "Duration of Postgres queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "postgres_query_errors_total",
			Help: "Total number of Postgres query errors",
		},
		[]string{"operation", "table"},
	)

	// Notification Metrics
	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Total number of outbound finding notifications",
		},
		[]string{"channel", "outcome"}, // outcome: "sent", "failed"
	)

	// Dashboard API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)
)

// RecordSyncRun records the outcome of one full sync run.
func RecordSyncRun(status string, duration time.Duration, synced, failed, changes int) {
	SyncRunsTotal.WithLabelValues(status).Inc()
	SyncRunDuration.Observe(duration.Seconds())
	SyncProjectsProcessed.WithLabelValues("synced").Add(float64(synced))
	SyncProjectsProcessed.WithLabelValues("failed").Add(float64(failed))
	SyncChangesDetected.Add(float64(changes))
}

// RecordRuleEvaluation records a single rule evaluation and whether it fired.
func RecordRuleEvaluation(rule string, fired bool) {
	firedStr := "false"
	if fired {
		firedStr = "true"
	}
	RuleEvaluations.WithLabelValues(rule, firedStr).Inc()
}

// RecordFindingTransition records a finding lifecycle transition.
func RecordFindingTransition(transition string) {
	FindingTransitions.WithLabelValues(transition).Inc()
}

// RecordUpstreamRequest records an upstream API call with its outcome.
func RecordUpstreamRequest(service, operation, outcome string, duration time.Duration) {
	UpstreamRequests.WithLabelValues(service, operation, outcome).Inc()
	UpstreamRequestDuration.WithLabelValues(service, operation).Observe(duration.Seconds())
}

// RecordDBQuery records a database query duration and optional error.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// Control Tower - PMO Compliance Monitoring and Portfolio Analytics
// Copyright 2026 PMO Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pmolabs/controltower

// Package database is the Postgres persistence layer.
//
// # Overview
//
// The package wraps a pgx/v5 connection pool and exposes typed CRUD methods
// for every stored entity. Schema management uses golang-migrate over
// embedded SQL migrations.
//
// File organization:
//
//   - database.go: pool lifecycle, transactions, query instrumentation
//   - migrations.go: embedded migrations and startup migration runner
//   - crud_projects.go: project upsert, lookup with snapshot fallback, history
//   - crud_changelog.go: append-only field change log
//   - crud_findings.go: finding lifecycle (create, escalate, acknowledge, resolve)
//   - crud_syncruns.go: sync run bookkeeping
//   - crud_timeentries.go: Clockify time entry storage
//
// # Invariants
//
// Projects are one row per gid, updated in place and never deleted. Change
// log entries and project history snapshots are append-only. Findings are
// never hard-deleted; at most one open finding exists per (project, rule),
// enforced by a partial unique index.
//
// All write paths that span multiple tables run inside WithTx so a failed
// sync step cannot leave a half-applied project update.
package database

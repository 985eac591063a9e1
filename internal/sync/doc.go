// Control Tower - PMO Compliance Monitoring and Portfolio Analytics
// Copyright 2026 PMO Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pmolabs/controltower

// Package sync orchestrates the periodic synchronization of portfolio data
// from Asana (and optionally Clockify) into the database, and drives the
// diff, metrics, and rules pipeline for every project in scope.
//
// File Organization:
//   - manager.go: Manager lifecycle (Start, Stop, TriggerSync, sync loop)
//   - run.go: one sync run execution, worker pool, per-project pipeline
//   - scope.go: portfolio scope filter and departure snapshots
//   - derive.go: payload mapping and derived task/status metrics
//   - timeentries.go: Clockify time entry sync
//
// A run is a deterministic function of the upstream data, the scope filter,
// and the evaluation time: two runs over identical inputs converge to the
// same stored state regardless of worker count or project order. Per-project
// failures are counted and logged but never abort the run; only a failure to
// enumerate projects or reach the database fails the run itself.
package sync

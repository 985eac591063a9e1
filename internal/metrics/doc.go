// Control Tower - PMO Compliance Monitoring and Portfolio Analytics
// Copyright 2026 PMO Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pmolabs/controltower

// Package metrics defines the Prometheus metrics exported by Control Tower.
//
// All metrics are registered via promauto at package initialization and are
// exposed on the API server's /metrics endpoint. Components record into the
// shared metric variables directly or through the Record* helpers.
package metrics

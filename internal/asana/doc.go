// Control Tower - PMO Compliance Monitoring and Portfolio Analytics
// Copyright 2026 PMO Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pmolabs/controltower

// Package asana implements the read-only Asana API client.
//
// The client never writes to Asana. It fetches projects, tasks, status
// updates, and status-update comments for the sync orchestrator.
//
// Resilience Mechanisms:
//   - Rate Limiting: client-side token bucket (golang.org/x/time/rate) plus
//     exponential backoff on HTTP 429, honoring Retry-After
//   - Retries: up to the configured attempts for rate-limited requests
//   - Circuit Breaker: CircuitBreakerClient wraps Client with sony/gobreaker
//   - Context: all methods accept context for cancellation
//
// Upstream payload shapes are inconsistent for nested collections; the
// normalization boundary in normalize.go maps whatever arrives into the fixed
// types of internal/models/asana, failing closed to an empty list with the
// anomaly logged.
package asana

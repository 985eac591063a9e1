// Control Tower - PMO Compliance Monitoring and Portfolio Analytics
// Copyright 2026 PMO Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pmolabs/controltower

// Package api exposes the read-mostly dashboard HTTP API over Chi.
//
// File Organization:
//   - router.go: route table and global middleware stack
//   - middleware.go: CORS, rate limiting, request metrics
//   - response.go: standardized response envelope and error codes
//   - requests.go: query parameter and pagination parsing
//   - handlers.go: handler wiring and dependency interfaces
//   - handlers_health.go: liveness and readiness probes
//   - handlers_projects.go: portfolio projects and change history
//   - handlers_findings.go: compliance findings and acknowledgment
//   - handlers_sync.go: sync run history and manual triggering
//
// Every response uses the APIResponse envelope. The only write operations
// are finding acknowledgment and the manual sync trigger; all portfolio data
// flows in through the sync pipeline, never through this API.
package api

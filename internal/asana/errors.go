// Control Tower - PMO Compliance Monitoring and Portfolio Analytics
// Copyright 2026 PMO Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pmolabs/controltower

package asana

import "errors"

// Sentinel errors for upstream failure classification. The orchestrator
// treats ErrForbidden and ErrNotFound as permanent per-project failures that
// must not fail the whole run; ErrRateLimited surfaces only after retries
// are exhausted.
var (
	ErrForbidden   = errors.New("asana: access forbidden")
	ErrNotFound    = errors.New("asana: resource not found")
	ErrRateLimited = errors.New("asana: rate limit exceeded")
)

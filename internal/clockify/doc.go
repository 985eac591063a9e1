// Control Tower - PMO Compliance Monitoring and Portfolio Analytics
// Copyright 2026 PMO Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pmolabs/controltower

// Package clockify implements the read-only Clockify API client used for
// optional time-tracking enrichment.
//
// The client fetches workspace users and their time entries over a rolling
// lookback window. Clockify paginates with page numbers rather than offset
// tokens; a page shorter than the requested page size ends the iteration.
// Like the Asana client, collection payloads pass through a tolerant
// normalization step that fails closed to an empty list.
package clockify

// Control Tower - PMO Compliance Monitoring and Portfolio Analytics
// Copyright 2026 PMO Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pmolabs/controltower

package asana

import (
	"github.com/goccy/go-json"

	"github.com/pmolabs/controltower/internal/logging"
)

// normalizeCollection maps a raw upstream collection payload into a typed
// slice. Upstream is inconsistent about nested shapes: a collection may
// arrive as a bare array, a single object, or re-wrapped in another
// {"data": ...} envelope. Anything unreadable fails closed to an empty slice
// with the anomaly logged, never a decode error propagated to callers.
func normalizeCollection[T any](raw json.RawMessage, kind string) []T {
	if len(raw) == 0 {
		return nil
	}

	// Common case: a JSON array of items.
	var items []T
	if err := json.Unmarshal(raw, &items); err == nil {
		return items
	}

	// Double-wrapped envelope: {"data": [...]}.
	var rewrapped struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &rewrapped); err == nil && len(rewrapped.Data) > 0 {
		if err := json.Unmarshal(rewrapped.Data, &items); err == nil {
			logging.Warn().
				Str("kind", kind).
				Msg("Upstream returned double-wrapped collection envelope")
			return items
		}
	}

	// Single object where a list was expected.
	var single T
	if err := json.Unmarshal(raw, &single); err == nil {
		logging.Warn().
			Str("kind", kind).
			Msg("Upstream returned single object where a collection was expected")
		return []T{single}
	}

	logging.Warn().
		Str("kind", kind).
		Int("bytes", len(raw)).
		Msg("Unrecognized upstream collection shape, treating as empty")
	return nil
}

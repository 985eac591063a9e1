// Control Tower - PMO Compliance Monitoring and Portfolio Analytics
// Copyright 2026 PMO Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pmolabs/controltower

package api

import (
	"net/http"
	"strconv"

	"github.com/pmolabs/controltower/internal/config"
)

// pagination is the parsed limit/offset window of a list request.
type pagination struct {
	Limit  int
	Offset int
}

// parsePagination reads limit and offset query parameters, applying the
// configured default and clamping to the maximum page size. Invalid values
// fall back to the defaults rather than erroring; the window is advisory.
func parsePagination(r *http.Request, cfg *config.APIConfig) pagination {
	p := pagination{Limit: cfg.DefaultPageSize}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			p.Limit = v
		}
	}
	if p.Limit > cfg.MaxPageSize {
		p.Limit = cfg.MaxPageSize
	}

	if raw := r.URL.Query().Get("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			p.Offset = v
		}
	}

	return p
}

// parseBool reads a boolean query parameter, defaulting to false.
func parseBool(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && v
}

// paginationMeta builds the response metadata for a page of count items.
// HasMore is inferred from a full page; the API does not run count queries.
func (p pagination) meta(count int) *PaginationMeta {
	return &PaginationMeta{
		Count:   count,
		Offset:  p.Offset,
		Limit:   p.Limit,
		HasMore: count == p.Limit,
	}
}

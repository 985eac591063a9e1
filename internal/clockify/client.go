// Control Tower - PMO Compliance Monitoring and Portfolio Analytics
// Copyright 2026 PMO Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pmolabs/controltower

package clockify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"

	"github.com/pmolabs/controltower/internal/config"
	"github.com/pmolabs/controltower/internal/logging"
	"github.com/pmolabs/controltower/internal/metrics"
	modelsclockify "github.com/pmolabs/controltower/internal/models/clockify"
)

// maxErrorBodySize limits the amount of response body read for error reporting.
const maxErrorBodySize = 64 * 1024 // 64KB

// ErrForbidden indicates an invalid or under-scoped API key.
var ErrForbidden = errors.New("clockify: access forbidden")

// ClientInterface defines the read-only Clockify operations used by the time
// entry sync. Implemented by Client for production and by mocks in tests.
type ClientInterface interface {
	Ping(ctx context.Context) error
	ListUsers(ctx context.Context) ([]modelsclockify.UserPayload, error)
	ListProjects(ctx context.Context) ([]modelsclockify.ProjectPayload, error)
	ListTimeEntries(ctx context.Context, userID string, start, end time.Time) ([]modelsclockify.TimeEntryPayload, error)
}

// Client handles communication with the Clockify HTTP API.
//
// Thread Safety: safe for concurrent use.
type Client struct {
	baseURL     string
	apiKey      string
	workspaceID string
	pageSize    int
	client      *http.Client
}

// NewClient creates a new Clockify API client from the provided configuration.
func NewClient(cfg *config.ClockifyConfig) *Client {
	return &Client{
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		workspaceID: cfg.WorkspaceID,
		pageSize:    cfg.PageSize,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

func readBodyForError(r io.Reader) []byte {
	limitedReader := io.LimitReader(r, maxErrorBodySize)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return []byte("(failed to read response body)")
	}
	return body
}

// get performs an authenticated GET and returns the raw response body.
func (c *Client) get(ctx context.Context, operation, path string, params url.Values) (json.RawMessage, error) {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		metrics.RecordUpstreamRequest("clockify", operation, "error", time.Since(start))
		return nil, fmt.Errorf("%s request failed: %w", operation, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		metrics.RecordUpstreamRequest("clockify", operation, "forbidden", time.Since(start))
		return nil, fmt.Errorf("%s: %w (HTTP %d)", operation, ErrForbidden, resp.StatusCode)
	default:
		metrics.RecordUpstreamRequest("clockify", operation, "error", time.Since(start))
		body := readBodyForError(resp.Body)
		return nil, fmt.Errorf("%s request failed with status %d: %s", operation, resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.RecordUpstreamRequest("clockify", operation, "error", time.Since(start))
		return nil, fmt.Errorf("failed to read %s response: %w", operation, err)
	}

	metrics.RecordUpstreamRequest("clockify", operation, "success", time.Since(start))
	return body, nil
}

// normalizeItems maps a raw collection payload into a typed slice. Clockify
// normally returns bare arrays, but some deployments wrap them in an items
// envelope. Unreadable payloads fail closed to an empty slice with the
// anomaly logged.
func normalizeItems[T any](raw json.RawMessage, kind string) []T {
	if len(raw) == 0 {
		return nil
	}

	var items []T
	if err := json.Unmarshal(raw, &items); err == nil {
		return items
	}

	var wrapped struct {
		Items json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && len(wrapped.Items) > 0 {
		if err := json.Unmarshal(wrapped.Items, &items); err == nil {
			logging.Warn().
				Str("kind", kind).
				Msg("Upstream returned wrapped items envelope")
			return items
		}
	}

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

// getPaged fetches all pages of a collection. Clockify uses 1-based page
// numbers; a short page ends the iteration.
func getPaged[T any](ctx context.Context, c *Client, operation, path string, params url.Values, kind string) ([]T, error) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("page-size", fmt.Sprintf("%d", c.pageSize))

	var all []T
	for page := 1; ; page++ {
		params.Set("page", fmt.Sprintf("%d", page))

		raw, err := c.get(ctx, operation, path, params)
		if err != nil {
			return nil, err
		}

		items := normalizeItems[T](raw, kind)
		all = append(all, items...)

		if len(items) < c.pageSize {
			return all, nil
		}
	}
}

// Ping verifies connectivity and API key validity.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.get(ctx, "ping", "/user", nil)
	return err
}

// ListUsers enumerates the workspace members.
func (c *Client) ListUsers(ctx context.Context) ([]modelsclockify.UserPayload, error) {
	path := fmt.Sprintf("/workspaces/%s/users", c.workspaceID)
	return getPaged[modelsclockify.UserPayload](ctx, c, "list_users", path, nil, "users")
}

// ListProjects enumerates the workspace projects.
func (c *Client) ListProjects(ctx context.Context) ([]modelsclockify.ProjectPayload, error) {
	path := fmt.Sprintf("/workspaces/%s/projects", c.workspaceID)
	return getPaged[modelsclockify.ProjectPayload](ctx, c, "list_projects", path, nil, "projects")
}

// ListTimeEntries fetches one user's time entries within [start, end).
func (c *Client) ListTimeEntries(ctx context.Context, userID string, start, end time.Time) ([]modelsclockify.TimeEntryPayload, error) {
	path := fmt.Sprintf("/workspaces/%s/user/%s/time-entries", c.workspaceID, userID)
	params := url.Values{}
	params.Set("start", start.UTC().Format(time.RFC3339))
	params.Set("end", end.UTC().Format(time.RFC3339))
	return getPaged[modelsclockify.TimeEntryPayload](ctx, c, "list_time_entries", path, params, "time_entries")
}

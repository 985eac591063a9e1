// Control Tower - PMO Compliance Monitoring and Portfolio Analytics
// Copyright 2026 PMO Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pmolabs/controltower

package asana

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/pmolabs/controltower/internal/config"
	"github.com/pmolabs/controltower/internal/metrics"
	modelsasana "github.com/pmolabs/controltower/internal/models/asana"
)

// maxErrorBodySize limits the amount of response body read for error reporting.
// Prevents unbounded memory allocation on large error responses.
const maxErrorBodySize = 64 * 1024 // 64KB

// pageLimit is the per-page item count requested from Asana (API max is 100).
const pageLimit = 100

// projectOptFields selects the project attributes the sync pipeline consumes.
const projectOptFields = "gid,name,owner.gid,owner.name,due_date,due_on,start_on," +
	"created_at,modified_at,completed,completed_at," +
	"current_status.gid,current_status.title,current_status.text,current_status.color," +
	"current_status.created_at,current_status.author.gid,current_status.author.name," +
	"custom_fields.gid,custom_fields.name,custom_fields.display_value," +
	"custom_fields.text_value,custom_fields.number_value,custom_fields.enum_value.gid,custom_fields.enum_value.name"

const taskOptFields = "gid,name,completed,created_at,modified_at,completed_at"

const statusOptFields = "gid,title,text,color,created_at,author.gid,author.name"

// ClientInterface defines the read-only Asana API operations used by the
// sync orchestrator. Implemented by Client for production and by mocks in
// tests.
//
// All methods accept a context for cancellation and are safe for concurrent
// use.
type ClientInterface interface {
	Ping(ctx context.Context) error
	ListProjects(ctx context.Context) ([]modelsasana.ProjectPayload, error)
	GetProject(ctx context.Context, gid string) (*modelsasana.ProjectPayload, error)
	GetProjectTasks(ctx context.Context, gid string) ([]modelsasana.TaskPayload, error)
	ListStatusUpdates(ctx context.Context, projectGID string) ([]modelsasana.StatusUpdatePayload, error)
	ListStatusUpdateComments(ctx context.Context, statusGID string) ([]modelsasana.CommentPayload, error)
}

// Client handles communication with the Asana HTTP API.
//
// Requests pass through a client-side token bucket before hitting the wire,
// and transient responses (HTTP 429 and 5xx) are retried with exponential
// backoff honoring the Retry-After header. HTTP 401/403 and 404 map to the
// package sentinel errors so callers can classify failures without string
// matching.
//
// Thread Safety: safe for concurrent use. Each request creates its own HTTP
// request; the limiter is internally synchronized.
type Client struct {
	baseURL        string
	token          string
	workspace      string
	client         *http.Client
	limiter        *rate.Limiter
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewClient creates a new Asana API client from the provided configuration.
func NewClient(cfg *config.AsanaConfig) *Client {
	return &Client{
		baseURL:   cfg.BaseURL,
		token:     cfg.AccessToken,
		workspace: cfg.WorkspaceGID,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter:        rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		maxRetries:     cfg.RetryAttempts,
		retryBaseDelay: cfg.RetryDelay,
	}
}

// pageEnvelope is the common Asana response wrapper. Data is kept raw so the
// normalization boundary can deal with inconsistent nested shapes.
type pageEnvelope struct {
	Data     json.RawMessage `json:"data"`
	NextPage *struct {
		Offset string `json:"offset"`
	} `json:"next_page"`
}

// readBodyForError reads the response body for error reporting (max 64KB).
func readBodyForError(r io.Reader) []byte {
	limitedReader := io.LimitReader(r, maxErrorBodySize)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}

// doRequestWithRateLimit performs a GET with client-side rate limiting.
// HTTP 429 and 5xx responses are transient and retried with exponential
// backoff; a Retry-After header overrides the computed delay. A 5xx that
// survives all attempts is returned to the caller for status classification.
// The context cancels backoff waits.
func (c *Client) doRequestWithRateLimit(ctx context.Context, reqURL string) (*http.Response, error) {
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("HTTP request failed: %w", err)
		}

		transient := resp.StatusCode == http.StatusTooManyRequests ||
			resp.StatusCode >= http.StatusInternalServerError
		if !transient {
			return resp, nil
		}
		if attempt == c.maxRetries {
			if resp.StatusCode >= http.StatusInternalServerError {
				// Out of attempts; hand the response back so the caller
				// reports the final status and body.
				return resp, nil
			}
			_ = resp.Body.Close()
			break
		}

		_ = resp.Body.Close()
		metrics.UpstreamRetries.WithLabelValues("asana").Inc()

		// Exponential backoff: base, 2x, 4x, ...
		delay := c.retryBaseDelay * time.Duration(1<<uint(attempt))
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := time.ParseDuration(retryAfter + "s"); err == nil {
				delay = seconds
			}
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("%w after %d retries (HTTP 429)", ErrRateLimited, c.maxRetries)
}

// get fetches a single page from the API and returns the decoded envelope.
// Status codes are classified into the package sentinel errors.
func (c *Client) get(ctx context.Context, operation, path string, params url.Values) (*pageEnvelope, error) {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	start := time.Now()
	resp, err := c.doRequestWithRateLimit(ctx, reqURL)
	if err != nil {
		metrics.RecordUpstreamRequest("asana", operation, "error", time.Since(start))
		return nil, fmt.Errorf("%s request failed: %w", operation, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		metrics.RecordUpstreamRequest("asana", operation, "forbidden", time.Since(start))
		return nil, fmt.Errorf("%s: %w (HTTP %d)", operation, ErrForbidden, resp.StatusCode)
	case http.StatusNotFound:
		metrics.RecordUpstreamRequest("asana", operation, "not_found", time.Since(start))
		return nil, fmt.Errorf("%s: %w", operation, ErrNotFound)
	default:
		metrics.RecordUpstreamRequest("asana", operation, "error", time.Since(start))
		body := readBodyForError(resp.Body)
		return nil, fmt.Errorf("%s request failed with status %d: %s", operation, resp.StatusCode, string(body))
	}

	var envelope pageEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		metrics.RecordUpstreamRequest("asana", operation, "error", time.Since(start))
		return nil, fmt.Errorf("failed to decode %s response: %w", operation, err)
	}

	metrics.RecordUpstreamRequest("asana", operation, "success", time.Since(start))
	return &envelope, nil
}

// getCollection fetches all pages of a collection endpoint, following
// next_page offsets, and returns the concatenated raw data payloads.
func (c *Client) getCollection(ctx context.Context, operation, path string, params url.Values) ([]json.RawMessage, error) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("limit", fmt.Sprintf("%d", pageLimit))

	var pages []json.RawMessage
	for {
		envelope, err := c.get(ctx, operation, path, params)
		if err != nil {
			return nil, err
		}
		pages = append(pages, envelope.Data)

		if envelope.NextPage == nil || envelope.NextPage.Offset == "" {
			return pages, nil
		}
		params.Set("offset", envelope.NextPage.Offset)
	}
}

// Ping verifies connectivity and token validity against the /users/me endpoint.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.get(ctx, "ping", "/users/me", nil)
	return err
}

// ListProjects enumerates all projects in the configured workspace with the
// full field set the pipeline consumes. Scope filtering happens downstream;
// the client returns everything the token can see in the workspace.
func (c *Client) ListProjects(ctx context.Context) ([]modelsasana.ProjectPayload, error) {
	params := url.Values{}
	params.Set("opt_fields", projectOptFields)

	pages, err := c.getCollection(ctx, "list_projects", "/workspaces/"+c.workspace+"/projects", params)
	if err != nil {
		return nil, err
	}

	var projects []modelsasana.ProjectPayload
	for _, page := range pages {
		projects = append(projects, normalizeCollection[modelsasana.ProjectPayload](page, "projects")...)
	}
	return projects, nil
}

// GetProject fetches a single project by gid.
func (c *Client) GetProject(ctx context.Context, gid string) (*modelsasana.ProjectPayload, error) {
	params := url.Values{}
	params.Set("opt_fields", projectOptFields)

	envelope, err := c.get(ctx, "get_project", "/projects/"+gid, params)
	if err != nil {
		return nil, err
	}

	var project modelsasana.ProjectPayload
	if err := json.Unmarshal(envelope.Data, &project); err != nil {
		return nil, fmt.Errorf("failed to decode project %s: %w", gid, err)
	}
	return &project, nil
}

// GetProjectTasks fetches all tasks of a project.
func (c *Client) GetProjectTasks(ctx context.Context, gid string) ([]modelsasana.TaskPayload, error) {
	params := url.Values{}
	params.Set("opt_fields", taskOptFields)

	pages, err := c.getCollection(ctx, "get_project_tasks", "/projects/"+gid+"/tasks", params)
	if err != nil {
		return nil, err
	}

	var tasks []modelsasana.TaskPayload
	for _, page := range pages {
		tasks = append(tasks, normalizeCollection[modelsasana.TaskPayload](page, "tasks")...)
	}
	return tasks, nil
}

// ListStatusUpdates fetches the status updates posted on a project, newest
// first as returned by the API.
func (c *Client) ListStatusUpdates(ctx context.Context, projectGID string) ([]modelsasana.StatusUpdatePayload, error) {
	params := url.Values{}
	params.Set("parent", projectGID)
	params.Set("opt_fields", statusOptFields)

	pages, err := c.getCollection(ctx, "list_status_updates", "/status_updates", params)
	if err != nil {
		return nil, err
	}

	var updates []modelsasana.StatusUpdatePayload
	for _, page := range pages {
		updates = append(updates, normalizeCollection[modelsasana.StatusUpdatePayload](page, "status_updates")...)
	}
	return updates, nil
}

// ListStatusUpdateComments fetches the comment stories on a status update.
func (c *Client) ListStatusUpdateComments(ctx context.Context, statusGID string) ([]modelsasana.CommentPayload, error) {
	params := url.Values{}
	params.Set("opt_fields", "gid,text,created_at,created_by.gid,created_by.name")

	pages, err := c.getCollection(ctx, "list_status_comments", "/status_updates/"+statusGID+"/stories", params)
	if err != nil {
		return nil, err
	}

	var comments []modelsasana.CommentPayload
	for _, page := range pages {
		comments = append(comments, normalizeCollection[modelsasana.CommentPayload](page, "status_comments")...)
	}
	return comments, nil
}

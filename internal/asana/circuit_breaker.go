// Control Tower - PMO Compliance Monitoring and Portfolio Analytics
// Copyright 2026 PMO Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pmolabs/controltower

package asana

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/pmolabs/controltower/internal/config"
	"github.com/pmolabs/controltower/internal/logging"
	"github.com/pmolabs/controltower/internal/metrics"
	modelsasana "github.com/pmolabs/controltower/internal/models/asana"
)

// CircuitBreakerClient wraps Client with the circuit breaker pattern to
// prevent cascading failures when the Asana API is unavailable or slow.
//
// The breaker uses real time (via sony/gobreaker) for its interval and
// timeout calculations. Tests should mock the underlying client rather than
// the breaker.
type CircuitBreakerClient struct {
	client ClientInterface
	cb     *gobreaker.CircuitBreaker[interface{}]
	name   string
}

// NewCircuitBreakerClient creates an Asana client guarded by a circuit breaker.
// Breaker configuration:
//   - Max 3 concurrent requests in half-open state
//   - 1 minute measurement window
//   - 2 minute timeout before attempting recovery
//   - Opens after 60% failure rate with minimum 10 requests
//
// Per-project permanent failures (forbidden, not found) do not count as
// breaker failures; they indicate scope problems, not upstream health.
func NewCircuitBreakerClient(cfg *config.AsanaConfig) *CircuitBreakerClient {
	return newCircuitBreakerClient(NewClient(cfg))
}

func newCircuitBreakerClient(client ClientInterface) *CircuitBreakerClient {
	cbName := "asana-api"

	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}

			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6

			if shouldTrip {
				logging.Warn().Uint32("failures", counts.TotalFailures).Float64("failure_rate", failureRatio*100).Msg("[CIRCUIT BREAKER] Opening circuit")
			}

			return shouldTrip
		},

		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			// Scope errors are project-level, not a sign of upstream outage.
			return errors.Is(err, ErrForbidden) || errors.Is(err, ErrNotFound)
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)

			logging.Info().Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})

	return &CircuitBreakerClient{
		client: client,
		cb:     cb,
		name:   cbName,
	}
}

// execute wraps an API call with circuit breaker protection.
func (cbc *CircuitBreakerClient) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := cbc.cb.Execute(fn)

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "rejected").Inc()
			logging.Warn().Err(err).Msg("[CIRCUIT BREAKER] Request rejected")
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "failure").Inc()
		}
		return nil, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "success").Inc()
	return result, nil
}

// castResult safely type-casts the circuit breaker result with error checking.
func castResult[T any](result interface{}, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

// stateToFloat converts circuit breaker state to a numeric value for metrics.
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// stateToString converts circuit breaker state to a string for logging.
func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Ping verifies connectivity with circuit breaker protection.
func (cbc *CircuitBreakerClient) Ping(ctx context.Context) error {
	_, err := cbc.execute(func() (interface{}, error) {
		return nil, cbc.client.Ping(ctx)
	})
	return err
}

// ListProjects enumerates workspace projects with circuit breaker protection.
func (cbc *CircuitBreakerClient) ListProjects(ctx context.Context) ([]modelsasana.ProjectPayload, error) {
	return castResult[[]modelsasana.ProjectPayload](cbc.execute(func() (interface{}, error) {
		return cbc.client.ListProjects(ctx)
	}))
}

// GetProject fetches a project with circuit breaker protection.
func (cbc *CircuitBreakerClient) GetProject(ctx context.Context, gid string) (*modelsasana.ProjectPayload, error) {
	return castResult[*modelsasana.ProjectPayload](cbc.execute(func() (interface{}, error) {
		return cbc.client.GetProject(ctx, gid)
	}))
}

// GetProjectTasks fetches project tasks with circuit breaker protection.
func (cbc *CircuitBreakerClient) GetProjectTasks(ctx context.Context, gid string) ([]modelsasana.TaskPayload, error) {
	return castResult[[]modelsasana.TaskPayload](cbc.execute(func() (interface{}, error) {
		return cbc.client.GetProjectTasks(ctx, gid)
	}))
}

// ListStatusUpdates fetches status updates with circuit breaker protection.
func (cbc *CircuitBreakerClient) ListStatusUpdates(ctx context.Context, projectGID string) ([]modelsasana.StatusUpdatePayload, error) {
	return castResult[[]modelsasana.StatusUpdatePayload](cbc.execute(func() (interface{}, error) {
		return cbc.client.ListStatusUpdates(ctx, projectGID)
	}))
}

// ListStatusUpdateComments fetches status-update comments with circuit breaker protection.
func (cbc *CircuitBreakerClient) ListStatusUpdateComments(ctx context.Context, statusGID string) ([]modelsasana.CommentPayload, error) {
	return castResult[[]modelsasana.CommentPayload](cbc.execute(func() (interface{}, error) {
		return cbc.client.ListStatusUpdateComments(ctx, statusGID)
	}))
}

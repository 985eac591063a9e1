// Control Tower - PMO Compliance Monitoring and Portfolio Analytics
// Copyright 2026 PMO Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pmolabs/controltower

// Package notify delivers finding alerts to outbound channels.
//
// Notification is best effort: a delivery failure is logged and counted but
// never propagated, so a dead webhook cannot block or fail a sync run. Only
// created and escalated findings are announced; resolutions stay quiet.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/pmolabs/controltower/internal/config"
	"github.com/pmolabs/controltower/internal/logging"
	"github.com/pmolabs/controltower/internal/metrics"
	"github.com/pmolabs/controltower/internal/models"
	"github.com/pmolabs/controltower/internal/rules"
)

// Notifier announces finding transitions for one project. Implementations
// must be safe for concurrent use; sync workers call them in parallel.
type Notifier interface {
	NotifyTransitions(ctx context.Context, project *models.Project, transitions []rules.Transition)
}

// Noop discards all notifications. Used when no channel is configured.
type Noop struct{}

// NotifyTransitions does nothing.
func (Noop) NotifyTransitions(context.Context, *models.Project, []rules.Transition) {}

// SlackNotifier posts finding alerts to a Slack incoming webhook.
type SlackNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewSlackNotifier creates a webhook notifier from configuration.
func NewSlackNotifier(cfg *config.SlackConfig) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: cfg.WebhookURL,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// New returns the configured notifier: Slack when enabled, Noop otherwise.
func New(cfg *config.SlackConfig) Notifier {
	if cfg != nil && cfg.Enabled {
		return NewSlackNotifier(cfg)
	}
	return Noop{}
}

// slackPayload is the minimal incoming-webhook message body.
type slackPayload struct {
	Text string `json:"text"`
}

// NotifyTransitions posts one message per notifiable transition. Failures are
// logged and recorded; the caller never sees them.
func (n *SlackNotifier) NotifyTransitions(ctx context.Context, project *models.Project, transitions []rules.Transition) {
	for _, tr := range transitions {
		if !tr.Notifiable() {
			continue
		}
		if err := n.post(ctx, formatTransition(project, tr)); err != nil {
			metrics.NotificationsSent.WithLabelValues("slack", "error").Inc()
			logging.Warn().
				Err(err).
				Str("project_gid", project.GID).
				Str("rule", tr.Finding.RuleID).
				Msg("Slack notification failed")
			continue
		}
		metrics.NotificationsSent.WithLabelValues("slack", "success").Inc()
	}
}

// formatTransition renders one alert line, e.g.
// "[HIGH] Rollout Phase 2 - schedule_risk (escalated)".
func formatTransition(project *models.Project, tr rules.Transition) string {
	return fmt.Sprintf("[%s] %s - %s (%s)",
		strings.ToUpper(string(tr.Finding.Severity)),
		project.Name,
		tr.Finding.RuleID,
		tr.Type,
	)
}

func (n *SlackNotifier) post(ctx context.Context, text string) error {
	body, err := json.Marshal(slackPayload{Text: text})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := n.client.Do(req)
	if err != nil {
		metrics.RecordUpstreamRequest("slack", "webhook", "error", time.Since(start))
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.RecordUpstreamRequest("slack", "webhook", "error", time.Since(start))
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	metrics.RecordUpstreamRequest("slack", "webhook", "success", time.Since(start))
	return nil
}

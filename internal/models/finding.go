// Control Tower - PMO Compliance Monitoring and Portfolio Analytics
// Copyright 2026 PMO Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pmolabs/controltower

package models

import "time"

// Severity classifies a finding's importance. The three values are totally
// ordered: low < medium < high. Severity escalation always takes the max of
// the stored and newly computed value, never a silent downgrade.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Rank returns the position of the severity in the total order.
// Unknown values rank below low so they can never win an escalation.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	default:
		return 0
	}
}

// MaxSeverity returns the higher of two severities.
func MaxSeverity(a, b Severity) Severity {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// FindingStatus is the lifecycle state of a finding.
type FindingStatus string

const (
	FindingOpen         FindingStatus = "open"
	FindingAcknowledged FindingStatus = "acknowledged"
	FindingResolved     FindingStatus = "resolved"
)

// Finding is a persisted rule violation for one project.
//
// At most one open finding exists per (project, rule) pair. Findings are
// never deleted; resolution and acknowledgment are status transitions that
// preserve the row for audit.
type Finding struct {
	ID             int64          `json:"id"`
	ProjectGID     string         `json:"project_gid"`
	RuleID         string         `json:"rule_id"`
	Severity       Severity       `json:"severity"`
	Status         FindingStatus  `json:"status"`
	Details        map[string]any `json:"details,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	AcknowledgedAt *time.Time     `json:"acknowledged_at,omitempty"`
	AcknowledgedBy *string        `json:"acknowledged_by,omitempty"`
	AckComment     *string        `json:"ack_comment,omitempty"`
	ResolvedAt     *time.Time     `json:"resolved_at,omitempty"`
}

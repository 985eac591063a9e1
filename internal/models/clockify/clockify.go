// Control Tower - PMO Compliance Monitoring and Portfolio Analytics
// Copyright 2026 PMO Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pmolabs/controltower

// Package clockify defines the payload types returned by the Clockify
// time-tracking API and the ISO-8601 duration handling they require.
package clockify

import (
	"regexp"
	"strconv"
	"time"
)

// UserPayload is a Clockify workspace member.
type UserPayload struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// ProjectPayload is a Clockify project reference.
type ProjectPayload struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ClientID string `json:"clientId,omitempty"`
	Archived bool   `json:"archived"`
}

// TimeInterval is the start/end/duration triple of a time entry. Duration is
// an ISO-8601 duration string ("PT1H30M"); End is empty for running entries.
type TimeInterval struct {
	Start    *time.Time `json:"start,omitempty"`
	End      *time.Time `json:"end,omitempty"`
	Duration string     `json:"duration,omitempty"`
}

// TimeEntryPayload is one tracked time entry.
type TimeEntryPayload struct {
	ID           string       `json:"id"`
	Description  string       `json:"description,omitempty"`
	UserID       string       `json:"userId"`
	ProjectID    string       `json:"projectId,omitempty"`
	Billable     bool         `json:"billable"`
	TimeInterval TimeInterval `json:"timeInterval"`
}

// DurationSeconds returns the entry's tracked duration in seconds. A running
// entry (no end, no duration) counts as zero.
func (e *TimeEntryPayload) DurationSeconds() float64 {
	if secs := ParseISODuration(e.TimeInterval.Duration); secs > 0 {
		return secs
	}
	if e.TimeInterval.Start != nil && e.TimeInterval.End != nil {
		return e.TimeInterval.End.Sub(*e.TimeInterval.Start).Seconds()
	}
	return 0
}

// isoDurationRe matches the day/time subset of ISO-8601 durations that
// Clockify emits (P1DT2H30M15S). Years and months never appear.
var isoDurationRe = regexp.MustCompile(
	`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// ParseISODuration converts an ISO-8601 duration string to seconds.
// Malformed or empty input yields zero rather than an error; a duration that
// cannot be read is treated as untracked time.
func ParseISODuration(s string) float64 {
	if s == "" {
		return 0
	}
	m := isoDurationRe.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	days, _ := strconv.Atoi(zeroIfEmpty(m[1]))
	hours, _ := strconv.Atoi(zeroIfEmpty(m[2]))
	minutes, _ := strconv.Atoi(zeroIfEmpty(m[3]))
	seconds, _ := strconv.Atoi(zeroIfEmpty(m[4]))
	return float64(days*86400 + hours*3600 + minutes*60 + seconds)
}

func zeroIfEmpty(s string) string {
	if s == "" {
		return "0"
	}
	return s
}

// Control Tower - PMO Compliance Monitoring and Portfolio Analytics
// Copyright 2026 PMO Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pmolabs/controltower

// Package asana defines the normalized payload types returned by the Asana
// read-only client.
//
// The upstream API wraps collections in a {"data": [...]} envelope and is
// inconsistent about nested shapes; the client's normalization boundary maps
// whatever arrives into these fixed types before anything downstream sees it.
package asana

import (
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/pmolabs/controltower/internal/models"
)

// Date is a calendar date without a time component, as used by Asana for
// due_on / due_date fields ("2006-01-02"). It also accepts full RFC 3339
// timestamps since some payload variants return those.
type Date struct {
	time.Time
}

// UnmarshalJSON parses "2006-01-02", RFC 3339, or null.
func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", s, err)
	}
	d.Time = t
	return nil
}

// MarshalJSON renders the calendar date, or null when zero.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format("2006-01-02"))
}

// UserPayload is an Asana user reference (owner, status-update author).
type UserPayload struct {
	GID  string `json:"gid"`
	Name string `json:"name"`
}

// EnumValuePayload is the selected option of an enum custom field.
type EnumValuePayload struct {
	GID  string `json:"gid"`
	Name string `json:"name"`
}

// CustomFieldPayload is one custom field attached to a project. Which of the
// value fields is populated depends on the field type; DisplayValue is the
// rendered form and is preferred when present.
type CustomFieldPayload struct {
	GID          string            `json:"gid"`
	Name         string            `json:"name"`
	DisplayValue *string           `json:"display_value,omitempty"`
	TextValue    *string           `json:"text_value,omitempty"`
	NumberValue  *float64          `json:"number_value,omitempty"`
	EnumValue    *EnumValuePayload `json:"enum_value,omitempty"`
}

// StatusUpdatePayload is one project status update.
type StatusUpdatePayload struct {
	GID       string       `json:"gid"`
	Title     string       `json:"title,omitempty"`
	Text      string       `json:"text,omitempty"`
	Color     string       `json:"color,omitempty"`
	CreatedAt *time.Time   `json:"created_at,omitempty"`
	Author    *UserPayload `json:"author,omitempty"`
}

// CommentPayload is one comment (story) on a status update.
type CommentPayload struct {
	GID       string       `json:"gid"`
	Text      string       `json:"text,omitempty"`
	CreatedAt *time.Time   `json:"created_at,omitempty"`
	Author    *UserPayload `json:"created_by,omitempty"`
}

// TaskPayload is one task in a project.
type TaskPayload struct {
	GID         string     `json:"gid"`
	Name        string     `json:"name,omitempty"`
	Completed   bool       `json:"completed"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	ModifiedAt  *time.Time `json:"modified_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ProjectPayload is the full project record as fetched from upstream.
type ProjectPayload struct {
	GID           string               `json:"gid"`
	Name          string               `json:"name"`
	Owner         *UserPayload         `json:"owner,omitempty"`
	DueDate       *Date                `json:"due_date,omitempty"`
	DueOn         *Date                `json:"due_on,omitempty"`
	StartOn       *Date                `json:"start_on,omitempty"`
	CreatedAt     *time.Time           `json:"created_at,omitempty"`
	ModifiedAt    *time.Time           `json:"modified_at,omitempty"`
	Completed     bool                 `json:"completed"`
	CompletedAt   *time.Time           `json:"completed_at,omitempty"`
	CurrentStatus *StatusUpdatePayload `json:"current_status,omitempty"`
	CustomFields  []CustomFieldPayload `json:"custom_fields,omitempty"`
}

// EffectiveDueDate returns due_date when set, falling back to due_on.
func (p *ProjectPayload) EffectiveDueDate() *time.Time {
	if p.DueDate != nil && !p.DueDate.IsZero() {
		t := p.DueDate.Time
		return &t
	}
	if p.DueOn != nil && !p.DueOn.IsZero() {
		t := p.DueOn.Time
		return &t
	}
	return nil
}

// CustomFieldMap flattens the project's custom fields into name -> rendered
// value, preferring display_value and falling back through the typed values.
func (p *ProjectPayload) CustomFieldMap() map[string]string {
	out := make(map[string]string, len(p.CustomFields))
	for _, f := range p.CustomFields {
		if f.Name == "" {
			continue
		}
		switch {
		case f.DisplayValue != nil && *f.DisplayValue != "":
			out[f.Name] = *f.DisplayValue
		case f.TextValue != nil && *f.TextValue != "":
			out[f.Name] = *f.TextValue
		case f.EnumValue != nil && f.EnumValue.Name != "":
			out[f.Name] = f.EnumValue.Name
		case f.NumberValue != nil:
			out[f.Name] = fmt.Sprintf("%g", *f.NumberValue)
		}
	}
	return out
}

// StatusFromColor maps an Asana status-update color to the declared project
// status enumeration. Unknown colors yield nil.
func StatusFromColor(color string) *models.ProjectStatus {
	var s models.ProjectStatus
	switch strings.ToLower(color) {
	case "green":
		s = models.StatusOnTrack
	case "yellow":
		s = models.StatusAtRisk
	case "red":
		s = models.StatusOffTrack
	case "blue":
		s = models.StatusOnHold
	default:
		return nil
	}
	return &s
}

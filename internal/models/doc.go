// Control Tower - PMO Compliance Monitoring and Portfolio Analytics
// Copyright 2026 PMO Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pmolabs/controltower

// Package models defines the persisted domain records of Control Tower:
// project snapshots, changelog entries, findings, and sync runs.
//
// Upstream payload shapes live in the models/asana and models/clockify
// subpackages; this package holds only the normalized internal records that
// the store persists and the rules engine evaluates.
package models

// WanderLens - Travel Customer Segmentation and Perk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wanderlens

// Package eda implements the exploratory stage of the pipeline: cohort-scoped
// extraction, type-stable cleaning, validity and outlier rules, the first
// customer-level aggregation, and the EDA report artifacts.
//
// The stage is a straight-line batch transformation. Data never leaves DuckDB
// until artifact export; Go code drives SQL and collects rule impacts for the
// audit trail.
package eda

// RuleImpact captures the before/after row counts of a single cleaning rule.
type RuleImpact struct {
	RowsBefore  int64 `json:"rows_before" yaml:"rows_before"`
	RowsAfter   int64 `json:"rows_after" yaml:"rows_after"`
	RowsRemoved int64 `json:"rows_removed" yaml:"rows_removed"`
}

// ImpactPct returns the share of rows removed by the rule, in percent.
func (r RuleImpact) ImpactPct() float64 {
	if r.RowsBefore == 0 {
		return 0
	}
	return float64(r.RowsRemoved) / float64(r.RowsBefore) * 100
}

// CheckResult describes one flag-only validation check. Flag-only checks
// never remove rows; they surface anomalies for review in the metadata.
type CheckResult struct {
	Name         string `json:"name" yaml:"name"`
	Status       string `json:"status" yaml:"status"` // "evaluated" or "skipped"
	Reason       string `json:"reason,omitempty" yaml:"reason,omitempty"`
	InvalidCount int64  `json:"invalid_count" yaml:"invalid_count"`
	Decision     string `json:"decision" yaml:"decision"` // always "flag_only"
	Action       string `json:"action" yaml:"action"`     // always "retained"
}

// DuplicateCheck describes the duplicate-session validation result.
type DuplicateCheck struct {
	Keys                  []string `json:"keys" yaml:"keys"`
	Status                string   `json:"status" yaml:"status"`
	Reason                string   `json:"reason,omitempty" yaml:"reason,omitempty"`
	DuplicateRows         int64    `json:"duplicate_rows" yaml:"duplicate_rows"`
	RowsInDuplicateGroups int64    `json:"rows_in_duplicate_groups" yaml:"rows_in_duplicate_groups"`
	DuplicateGroups       int64    `json:"duplicate_groups" yaml:"duplicate_groups"`
	Decision              string   `json:"decision" yaml:"decision"`
	Action                string   `json:"action" yaml:"action"`
}

// ValidationChecks groups all flag-only checks run against the session table.
type ValidationChecks struct {
	Duplicates    DuplicateCheck `json:"duplicates" yaml:"duplicates"`
	RangeChecks   []CheckResult  `json:"range_checks" yaml:"range_checks"`
	LogicalChecks []CheckResult  `json:"logical_checks" yaml:"logical_checks"`
}

// NightsPolicyResult records what the invalid-hotel-nights policy did.
type NightsPolicyResult struct {
	Policy          string `json:"policy" yaml:"policy"`
	InvalidDetected int64  `json:"invalid_detected" yaml:"invalid_detected"`
	RecomputedOK    int64  `json:"recomputed_success,omitempty" yaml:"recomputed_success,omitempty"`
	StillMissing    int64  `json:"still_missing,omitempty" yaml:"still_missing,omitempty"`
	DroppedRows     int64  `json:"dropped_rows,omitempty" yaml:"dropped_rows,omitempty"`
	Rationale       string `json:"rationale" yaml:"rationale"`
}

// ColumnStats is one row of the descriptive statistics table.
type ColumnStats struct {
	Column    string  `json:"column" yaml:"column"`
	Type      string  `json:"type" yaml:"type"`
	Count     int64   `json:"count" yaml:"count"`
	NullPct   float64 `json:"null_pct" yaml:"null_pct"`
	Mean      float64 `json:"mean" yaml:"mean"`
	Std       float64 `json:"std" yaml:"std"`
	Min       string  `json:"min" yaml:"min"`
	Q25       float64 `json:"q25" yaml:"q25"`
	Median    float64 `json:"median" yaml:"median"`
	Q75       float64 `json:"q75" yaml:"q75"`
	Max       string  `json:"max" yaml:"max"`
	IsNumeric bool    `json:"is_numeric" yaml:"is_numeric"`
}

// CorrelationPair is one ranked correlation between two numeric columns.
type CorrelationPair struct {
	ColumnA     string  `json:"column_a" yaml:"column_a"`
	ColumnB     string  `json:"column_b" yaml:"column_b"`
	Correlation float64 `json:"correlation" yaml:"correlation"`
}

// Overview summarizes the extracted dataset's shape.
type Overview struct {
	Rows    int64    `json:"rows" yaml:"rows"`
	Columns int      `json:"columns" yaml:"columns"`
	Names   []string `json:"column_names" yaml:"column_names"`
}

// Metadata is the audit payload persisted next to each EDA run's artifacts.
// It explains what was run and what was produced so the artifact can be
// reproduced precisely.
type Metadata struct {
	SourceTableRowCounts map[string]int64      `json:"source_table_row_counts" yaml:"source_table_row_counts"`
	Rows                 RowCounts             `json:"rows" yaml:"rows"`
	ValidityRules        map[string]RuleImpact `json:"validity_rules" yaml:"validity_rules"`
	ValidationChecks     ValidationChecks      `json:"validation_checks" yaml:"validation_checks"`
	Outliers             map[string]RuleImpact `json:"outliers" yaml:"outliers"`
	InvalidHotelNights   NightsPolicyResult    `json:"invalid_hotel_nights" yaml:"invalid_hotel_nights"`
}

// RowCounts tracks the session-level row count at each cleaning stage.
type RowCounts struct {
	SessionLevelRaw           int64 `json:"session_level_raw" yaml:"session_level_raw"`
	SessionLevelAfterValidity int64 `json:"session_level_after_validity" yaml:"session_level_after_validity"`
	SessionLevelClean         int64 `json:"session_level_clean" yaml:"session_level_clean"`
}

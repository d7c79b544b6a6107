// WanderLens - Travel Customer Segmentation and Perk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wanderlens

package eda

import (
	"context"
	"database/sql"
	"testing"

	"github.com/tomtom215/wanderlens/internal/config"
	"github.com/tomtom215/wanderlens/internal/database"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.NewInMemory()
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testConfig() *config.Config {
	return &config.Config{
		Cleaning: config.CleaningConfig{InvalidHotelNightsPolicy: "recompute"},
		Outliers: config.OutliersConfig{
			Method:        "iqr",
			IQRMultiplier: 1.5,
			Columns:       []string{"page_clicks"},
		},
	}
}

// seedSessionLevel creates a session_level fixture with a known hotel nights
// anomaly: one zero-nights row with recoverable timestamps, one without.
func seedSessionLevel(t *testing.T, db *database.DB) {
	t.Helper()
	ctx := context.Background()

	stmts := []string{
		`CREATE TABLE session_level (
			session_id VARCHAR,
			user_id BIGINT,
			session_start TIMESTAMP,
			session_end TIMESTAMP,
			birthdate DATE,
			page_clicks INTEGER,
			session_duration_sec DOUBLE,
			age_years DOUBLE,
			nights INTEGER,
			rooms INTEGER,
			seats INTEGER,
			check_in_time TIMESTAMP,
			check_out_time TIMESTAMP
		)`,
		`INSERT INTO session_level VALUES
			('s1', 1, '2023-03-01 10:00:00', '2023-03-01 10:05:00', '1990-01-01', 10, 300, 33, 2,    1, 1, '2023-04-01 15:00:00', '2023-04-03 11:00:00'),
			('s2', 1, '2023-03-02 10:00:00', '2023-03-02 10:01:00', '1990-01-01', 12, 60,  33, 0,    1, 1, '2023-05-01 15:00:00', '2023-05-04 11:00:00'),
			('s3', 2, '2023-03-03 10:00:00', '2023-03-03 09:00:00', '1985-06-01', 8,  -3600, 37, 0,  1, 1, NULL, NULL),
			('s4', 2, '2023-03-04 10:00:00', '2023-03-04 10:10:00', '1985-06-01', 9,  600, 37, NULL, 1, 1, NULL, NULL)`,
	}
	for _, stmt := range stmts {
		if err := db.Exec(ctx, stmt); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}
}

func TestApplyValidityRulesRecompute(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedSessionLevel(t, db)

	impacts, nights, checks, err := ApplyValidityRules(ctx, db, testConfig())
	if err != nil {
		t.Fatalf("ApplyValidityRules failed: %v", err)
	}

	// s2, s3, s4 have invalid nights; only s2 has stay timestamps.
	if nights.Policy != "recompute" {
		t.Errorf("policy = %q, want recompute", nights.Policy)
	}
	if nights.InvalidDetected != 3 {
		t.Errorf("invalid_detected = %d, want 3", nights.InvalidDetected)
	}
	if nights.RecomputedOK != 1 {
		t.Errorf("recomputed_success = %d, want 1", nights.RecomputedOK)
	}
	if nights.StillMissing != 2 {
		t.Errorf("still_missing = %d, want 2", nights.StillMissing)
	}

	impact := impacts["invalid_hotel_nights"]
	if impact.RowsRemoved != 0 {
		t.Errorf("recompute should keep all rows, removed %d", impact.RowsRemoved)
	}

	// May 1 15:00 to May 4 11:00 is 2.83 days, ceiled to 3.
	var recomputed int64
	row := db.QueryRow(ctx, "SELECT nights FROM session_level WHERE session_id = 's2'")
	if err := row.Scan(&recomputed); err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if recomputed != 3 {
		t.Errorf("recomputed nights = %d, want 3", recomputed)
	}

	if checks.Duplicates.Status != "evaluated" {
		t.Errorf("duplicate check status = %q, want evaluated", checks.Duplicates.Status)
	}
	if checks.Duplicates.DuplicateRows != 0 {
		t.Errorf("duplicate rows = %d, want 0", checks.Duplicates.DuplicateRows)
	}

	// s3 has a negative duration and session_end before session_start.
	assertCheckCount(t, checks.RangeChecks, "session_duration_sec", 1)
	assertCheckCount(t, checks.LogicalChecks, "session_end_before_start", 1)
	assertCheckCount(t, checks.RangeChecks, "age_years", 0)
}

func assertCheckCount(t *testing.T, checks []CheckResult, name string, want int64) {
	t.Helper()
	for _, c := range checks {
		if c.Name == name {
			if c.InvalidCount != want {
				t.Errorf("%s invalid count = %d, want %d", name, c.InvalidCount, want)
			}
			return
		}
	}
	t.Errorf("check %s not found", name)
}

func TestApplyValidityRulesDrop(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedSessionLevel(t, db)

	cfg := testConfig()
	cfg.Cleaning.InvalidHotelNightsPolicy = "drop"

	impacts, nights, _, err := ApplyValidityRules(ctx, db, cfg)
	if err != nil {
		t.Fatalf("ApplyValidityRules failed: %v", err)
	}
	if nights.DroppedRows != 3 {
		t.Errorf("dropped_rows = %d, want 3", nights.DroppedRows)
	}
	if impacts["invalid_hotel_nights"].RowsRemoved != 3 {
		t.Errorf("rows removed = %d, want 3", impacts["invalid_hotel_nights"].RowsRemoved)
	}

	n, err := db.CountRows(ctx, TableSessionLevel)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if n != 1 {
		t.Errorf("remaining rows = %d, want 1", n)
	}
}

func TestApplyNightsPolicyUnknown(t *testing.T) {
	db := newTestDB(t)
	seedSessionLevel(t, db)

	cfg := testConfig()
	cfg.Cleaning.InvalidHotelNightsPolicy = "ignore"

	_, _, _, err := ApplyValidityRules(context.Background(), db, cfg)
	if err == nil {
		t.Fatal("expected error for unknown nights policy")
	}
}

func TestDuplicateDetectionCountsGroups(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	err := db.Exec(ctx, `CREATE TABLE session_level (session_id VARCHAR, user_id BIGINT)`)
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	err = db.Exec(ctx, `INSERT INTO session_level VALUES ('a', 1), ('a', 1), ('a', 1), ('b', 2)`)
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	dup, err := detectDuplicateSessions(ctx, db)
	if err != nil {
		t.Fatalf("detectDuplicateSessions failed: %v", err)
	}
	if dup.DuplicateRows != 2 {
		t.Errorf("duplicate_rows = %d, want 2", dup.DuplicateRows)
	}
	if dup.RowsInDuplicateGroups != 3 {
		t.Errorf("rows_in_duplicate_groups = %d, want 3", dup.RowsInDuplicateGroups)
	}
	if dup.DuplicateGroups != 1 {
		t.Errorf("duplicate_groups = %d, want 1", dup.DuplicateGroups)
	}
}

func TestNightsNullRecomputeLeavesNull(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedSessionLevel(t, db)

	if _, _, _, err := ApplyValidityRules(ctx, db, testConfig()); err != nil {
		t.Fatalf("ApplyValidityRules failed: %v", err)
	}

	var nights sql.NullInt64
	row := db.QueryRow(ctx, "SELECT nights FROM session_level WHERE session_id = 's4'")
	if err := row.Scan(&nights); err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if nights.Valid {
		t.Errorf("nights should stay NULL without stay timestamps, got %d", nights.Int64)
	}
}

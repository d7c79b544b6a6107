// WanderLens - Travel Customer Segmentation and Perk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wanderlens

package eda

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/tomtom215/wanderlens/internal/config"
)

// writeBronzeFixtures creates a small but complete bronze layer on disk.
func writeBronzeFixtures(t *testing.T, dir string) {
	t.Helper()

	files := map[string]string{
		"users.csv": `user_id,birthdate,gender,married,has_children,home_country,home_city,home_airport,sign_up_date
1,1990-01-15,F,false,false,usa,new york,JFK,2023-02-01
2,1985-06-20,M,true,true,canada,toronto,YYZ,2023-03-15
3,1970-11-02,F,true,false,usa,chicago,ORD,2022-05-01
`,
		"sessions.csv": `session_id,user_id,trip_id,session_start,session_end,flight_discount,hotel_discount,flight_discount_amount,hotel_discount_amount,flight_booked,hotel_booked,page_clicks,cancellation
s1,1,t1,2023-04-01 10:00:00,2023-04-01 10:12:00,true,false,0.1,,true,true,18,false
s2,1,,2023-04-03 09:00:00,2023-04-03 09:05:00,false,false,,,false,false,6,false
s3,2,t2,2023-04-05 20:00:00,2023-04-05 20:30:00,false,true,,0.2,true,true,25,false
s4,2,,2023-04-08 11:00:00,2023-04-08 11:02:00,false,false,,,false,false,4,true
`,
		"flights.csv": `trip_id,seats,return_flight_booked,departure_time,return_time,checked_bags,base_fare_usd,origin_airport,destination,destination_airport
t1,2,true,2023-05-01 08:00:00,2023-05-08 18:00:00,1,420.50,JFK,paris,CDG
t2,1,false,2023-06-10 07:30:00,,0,310.00,YYZ,london,LHR
`,
		"hotels.csv": `trip_id,hotel_name,nights,rooms,check_in_time,check_out_time,hotel_per_room_usd
t1,hotel lumiere,0,1,2023-05-01 15:00:00,2023-05-08 11:00:00,180.00
t2,the royal,3,1,2023-06-10 14:00:00,2023-06-13 10:00:00,220.00
`,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("writing fixture %s: %v", name, err)
		}
	}
}

func pipelineConfig(bronzeDir string) *config.Config {
	return &config.Config{
		Bronze: config.BronzeConfig{
			Dir:    bronzeDir,
			Format: "csv",
			Tables: []string{"users", "sessions", "flights", "hotels"},
		},
		Cohort: config.CohortConfig{
			SignUpDateStart: "2023-01-01",
			SignUpDateEnd:   "2023-12-31",
		},
		Cleaning: config.CleaningConfig{InvalidHotelNightsPolicy: "recompute"},
		Outliers: config.OutliersConfig{
			Method:        "iqr",
			IQRMultiplier: 1.5,
			Columns:       []string{"page_clicks"},
		},
		Report: config.ReportConfig{
			Title:             "WanderLens EDA",
			IncludeSampleRows: 5,
		},
	}
}

func TestRunEndToEnd(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	bronzeDir := t.TempDir()
	writeBronzeFixtures(t, bronzeDir)
	runDir := t.TempDir()

	result, err := Run(ctx, db, pipelineConfig(bronzeDir), runDir)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// User 3 signed up in 2022 and has no sessions; cohort keeps users 1-2.
	if result.Metadata.Rows.SessionLevelRaw != 4 {
		t.Errorf("raw rows = %d, want 4", result.Metadata.Rows.SessionLevelRaw)
	}
	if result.Metadata.SourceTableRowCounts["users"] != 3 {
		t.Errorf("users count = %d, want 3", result.Metadata.SourceTableRowCounts["users"])
	}

	// The zero-nights hotel stay has timestamps, so recompute succeeds.
	nights := result.Metadata.InvalidHotelNights
	if nights.RecomputedOK != 1 {
		t.Errorf("recomputed = %d, want 1 (t1 stay)", nights.RecomputedOK)
	}

	for _, name := range []string{
		FileSessionsClean,
		FileUsersAgg,
		FileHTMLReport,
		FileDQReport,
		"sessions_cleaned.parquet",
		"sessions_transformed.parquet",
		"hotels_cleaned.parquet",
		"hotels_transformed.parquet",
	} {
		path := filepath.Join(runDir, name)
		if _, err := os.Stat(path); err != nil {
			t.Errorf("missing artifact %s: %v", name, err)
		}
	}

	// users_agg has one row per cohort user.
	n, err := db.CountRows(ctx, TableUsersAgg)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if n != 2 {
		t.Errorf("aggregated users = %d, want 2", n)
	}
}

func TestRunCohortFilters(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	bronzeDir := t.TempDir()
	writeBronzeFixtures(t, bronzeDir)

	cfg := pipelineConfig(bronzeDir)
	cfg.Cohort.SignUpDateStart = "2023-03-01"
	cfg.Cohort.SignUpDateEnd = "2023-12-31"
	// Only user 2 signed up in this window.
	cfg.Extraction.MinSessions = 2

	result, err := Run(ctx, db, cfg, t.TempDir())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Metadata.Rows.SessionLevelRaw != 2 {
		t.Errorf("raw rows = %d, want 2 (user 2 only)", result.Metadata.Rows.SessionLevelRaw)
	}
}

func TestRunMissingBronzeDir(t *testing.T) {
	db := newTestDB(t)
	cfg := pipelineConfig(filepath.Join(t.TempDir(), "nope"))

	if _, err := Run(context.Background(), db, cfg, t.TempDir()); err == nil {
		t.Fatal("expected error for missing bronze directory")
	}
}

// WanderLens - Travel Customer Segmentation and Perk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wanderlens

package eda

import (
	"context"
	"testing"

	"github.com/tomtom215/wanderlens/internal/config"
	"github.com/tomtom215/wanderlens/internal/database"
)

// seedOutlierTable creates a session_level table where page_clicks has one
// clear outlier and nights is constant.
func seedOutlierTable(t *testing.T, db *database.DB) {
	t.Helper()
	ctx := context.Background()

	stmts := []string{
		`CREATE TABLE session_level (page_clicks DOUBLE, nights DOUBLE)`,
		`INSERT INTO session_level VALUES
			(10, 2), (11, 2), (12, 2), (10, 2), (11, 2),
			(12, 2), (10, 2), (11, 2), (12, 2), (10000, 2),
			(NULL, 2)`,
	}
	for _, stmt := range stmts {
		if err := db.Exec(ctx, stmt); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}
}

func TestRemoveOutliersIQR(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedOutlierTable(t, db)

	cfg := &config.Config{
		Outliers: config.OutliersConfig{
			Method:        "iqr",
			IQRMultiplier: 1.5,
			Columns:       []string{"page_clicks", "nights"},
		},
	}

	impacts, bounds, err := RemoveOutliers(ctx, db, cfg)
	if err != nil {
		t.Fatalf("RemoveOutliers failed: %v", err)
	}

	// nights has zero IQR, so only page_clicks gets bounds.
	if len(bounds) != 1 || bounds[0].Column != "page_clicks" {
		t.Fatalf("bounds = %+v, want single page_clicks entry", bounds)
	}

	impact, ok := impacts["outlier_page_clicks"]
	if !ok {
		t.Fatal("missing page_clicks impact")
	}
	if impact.RowsRemoved != 1 {
		t.Errorf("rows removed = %d, want 1 (the 10000 click row)", impact.RowsRemoved)
	}

	// The NULL row is never an outlier.
	n, err := db.CountRows(ctx, TableSessionLevel)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if n != 10 {
		t.Errorf("remaining rows = %d, want 10", n)
	}
}

func TestRemoveOutliersZScore(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedOutlierTable(t, db)

	cfg := &config.Config{
		// With 10 samples the largest attainable z is 9/sqrt(10), about 2.85,
		// so the threshold sits below that.
		Outliers: config.OutliersConfig{
			Method:          "zscore",
			ZScoreThreshold: 2.0,
			Columns:         []string{"page_clicks", "nights"},
		},
	}

	impacts, bounds, err := RemoveOutliers(ctx, db, cfg)
	if err != nil {
		t.Fatalf("RemoveOutliers failed: %v", err)
	}

	// nights has zero stddev and is skipped.
	if len(bounds) != 1 {
		t.Fatalf("bounds = %+v, want single entry", bounds)
	}
	if bounds[0].Method != "zscore" {
		t.Errorf("method = %q, want zscore", bounds[0].Method)
	}
	if impacts["outlier_page_clicks"].RowsRemoved != 1 {
		t.Errorf("rows removed = %d, want 1", impacts["outlier_page_clicks"].RowsRemoved)
	}
}

func TestRemoveOutliersMissingColumnSkipped(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedOutlierTable(t, db)

	cfg := &config.Config{
		Outliers: config.OutliersConfig{
			Method:        "iqr",
			IQRMultiplier: 1.5,
			Columns:       []string{"no_such_column"},
		},
	}

	impacts, bounds, err := RemoveOutliers(ctx, db, cfg)
	if err != nil {
		t.Fatalf("RemoveOutliers failed: %v", err)
	}
	if len(bounds) != 0 || len(impacts) != 0 {
		t.Errorf("expected no work for missing column, got %+v / %+v", bounds, impacts)
	}
}

func TestRemoveOutliersUnknownMethod(t *testing.T) {
	db := newTestDB(t)
	seedOutlierTable(t, db)

	cfg := &config.Config{
		Outliers: config.OutliersConfig{
			Method:  "mad",
			Columns: []string{"page_clicks"},
		},
	}
	if _, _, err := RemoveOutliers(context.Background(), db, cfg); err == nil {
		t.Fatal("expected error for unknown method")
	}
}

// WanderLens - Travel Customer Segmentation and Perk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wanderlens

package eda

import (
	"context"
	"math"
	"strings"
	"testing"
)

func TestBuildMissingnessSortsByShare(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	err := db.Exec(ctx, `CREATE TABLE metrics_tbl (a INTEGER, b INTEGER, c VARCHAR)`)
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	err = db.Exec(ctx, `INSERT INTO metrics_tbl VALUES (1, NULL, 'x'), (2, NULL, NULL), (3, 1, 'y'), (4, 2, 'z')`)
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	miss, err := BuildMissingness(ctx, db, "metrics_tbl")
	if err != nil {
		t.Fatalf("BuildMissingness failed: %v", err)
	}
	if len(miss) != 3 {
		t.Fatalf("rows = %d, want 3", len(miss))
	}
	if miss[0].Column != "b" || miss[0].Missing != 2 || miss[0].MissingPct != 50 {
		t.Errorf("top row = %+v, want column b at 50%%", miss[0])
	}
	if miss[1].Column != "c" || miss[1].MissingPct != 25 {
		t.Errorf("second row = %+v, want column c at 25%%", miss[1])
	}
}

func TestBuildDescriptiveStats(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	err := db.Exec(ctx, `CREATE TABLE stats_tbl (v DOUBLE, label VARCHAR)`)
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	err = db.Exec(ctx, `INSERT INTO stats_tbl VALUES (1, 'a'), (2, 'b'), (3, 'c'), (4, 'd'), (NULL, 'e')`)
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	stats, err := BuildDescriptiveStats(ctx, db, "stats_tbl")
	if err != nil {
		t.Fatalf("BuildDescriptiveStats failed: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("columns = %d, want 2", len(stats))
	}

	v := stats[0]
	if !v.IsNumeric {
		t.Fatalf("v should be numeric, got %+v", v)
	}
	if v.Count != 4 {
		t.Errorf("count = %d, want 4", v.Count)
	}
	if math.Abs(v.Mean-2.5) > 1e-9 {
		t.Errorf("mean = %v, want 2.5", v.Mean)
	}
	if math.Abs(v.Median-2.5) > 1e-9 {
		t.Errorf("median = %v, want 2.5", v.Median)
	}
	if v.NullPct != 20 {
		t.Errorf("null pct = %v, want 20", v.NullPct)
	}

	label := stats[1]
	if label.IsNumeric {
		t.Errorf("label should not be numeric")
	}
	if label.Min != "a" || label.Max != "e" {
		t.Errorf("label min/max = %q/%q, want a/e", label.Min, label.Max)
	}
}

func TestBuildCorrelationPairsRanked(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	err := db.Exec(ctx, `CREATE TABLE corr_tbl AS
		SELECT n AS x, n * 2 AS y, CASE WHEN n % 2 = 0 THEN 1 ELSE 7 END AS z
		FROM range(20) t(n)`)
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	pairs, err := BuildCorrelationPairs(ctx, db, "corr_tbl", 2)
	if err != nil {
		t.Fatalf("BuildCorrelationPairs failed: %v", err)
	}
	if len(pairs) != 2 {
		t.Fatalf("pairs = %d, want 2", len(pairs))
	}
	top := pairs[0]
	if top.ColumnA != "x" || top.ColumnB != "y" {
		t.Errorf("top pair = %s/%s, want x/y", top.ColumnA, top.ColumnB)
	}
	if math.Abs(top.Correlation-1.0) > 1e-9 {
		t.Errorf("correlation = %v, want 1", top.Correlation)
	}
}

func TestDeriveKeyInsights(t *testing.T) {
	missing := []MissingnessRow{{Column: "hotel_name", MissingPct: 72.4}}
	outliers := map[string]RuleImpact{
		"outlier_page_clicks": {RowsBefore: 100, RowsAfter: 95, RowsRemoved: 5},
	}
	correlations := []CorrelationPair{{ColumnA: "nights", ColumnB: "rooms", Correlation: 0.81}}

	insights := DeriveKeyInsights(missing, outliers, correlations)
	if len(insights) != 3 {
		t.Fatalf("insights = %d, want 3: %v", len(insights), insights)
	}
	if !strings.Contains(insights[0], "hotel_name") {
		t.Errorf("first insight should mention hotel_name: %s", insights[0])
	}
	if !strings.Contains(insights[1], "5") {
		t.Errorf("second insight should mention removed rows: %s", insights[1])
	}
}

func TestDeriveHypothesesEmpty(t *testing.T) {
	out := DeriveHypotheses(nil)
	if len(out) != 1 {
		t.Fatalf("expected fallback hypothesis, got %v", out)
	}
}

func TestBuildChartsSkipsMissingColumns(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	err := db.Exec(ctx, `CREATE TABLE chart_tbl AS SELECT n AS page_clicks FROM range(100) t(n)`)
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	charts, err := BuildCharts(ctx, db, "chart_tbl")
	if err != nil {
		t.Fatalf("BuildCharts failed: %v", err)
	}
	if len(charts) != 1 {
		t.Fatalf("charts = %d, want 1", len(charts))
	}
	if charts[0].Key != "page_clicks_hist" {
		t.Errorf("key = %q, want page_clicks_hist", charts[0].Key)
	}
	if !strings.HasPrefix(charts[0].SVG, "<svg") || !strings.HasSuffix(charts[0].SVG, "</svg>") {
		t.Errorf("chart is not a standalone SVG")
	}
}

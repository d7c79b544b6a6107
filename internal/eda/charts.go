// WanderLens - Travel Customer Segmentation and Perk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wanderlens

package eda

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tomtom215/wanderlens/internal/database"
)

// Chart is one rendered histogram, ready for template embedding.
type Chart struct {
	Key   string
	Title string
	SVG   string
}

const histogramBins = 40

// chartSpecs lists the universally useful distributions. Charts render only
// when the column exists and has data.
var chartSpecs = []struct {
	key, column, title string
	nonNegativeOnly    bool
}{
	{"page_clicks_hist", "page_clicks", "Session page clicks (distribution)", false},
	{"session_duration_hist", "session_duration_sec", "Session duration (seconds)", true},
	{"base_fare_hist", "base_fare_usd", "Flight base fare (USD)", false},
}

// BuildCharts bins each chart column in DuckDB and renders the result as a
// small standalone SVG. Inline SVG keeps the HTML report a single portable
// file with no image sidecars.
func BuildCharts(ctx context.Context, db *database.DB, table string) ([]Chart, error) {
	var charts []Chart
	for _, spec := range chartSpecs {
		ok, err := ColumnExists(ctx, db, table, spec.column)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		counts, minV, maxV, err := histogramCounts(ctx, db, table, spec.column, spec.nonNegativeOnly)
		if err != nil {
			return nil, err
		}
		if counts == nil {
			continue
		}

		charts = append(charts, Chart{
			Key:   spec.key,
			Title: spec.title,
			SVG:   renderHistogramSVG(spec.title, counts, minV, maxV),
		})
	}
	return charts, nil
}

// histogramCounts bins the column into histogramBins equal-width buckets.
// Returns nil counts when the column has no usable values.
func histogramCounts(ctx context.Context, db *database.DB, table, column string, nonNegativeOnly bool) ([]int64, float64, float64, error) {
	filter := fmt.Sprintf("%s IS NOT NULL", column)
	if nonNegativeOnly {
		filter += fmt.Sprintf(" AND %s >= 0", column)
	}

	var minV, maxV sql.NullFloat64
	query := fmt.Sprintf("SELECT min(CAST(%s AS DOUBLE)), max(CAST(%s AS DOUBLE)) FROM %s WHERE %s",
		column, column, table, filter)
	if err := db.QueryRow(ctx, query).Scan(&minV, &maxV); err != nil {
		return nil, 0, 0, fmt.Errorf("histogram range failed for %s: %w", column, err)
	}
	if !minV.Valid || !maxV.Valid {
		return nil, 0, 0, nil
	}

	counts := make([]int64, histogramBins)
	if minV.Float64 == maxV.Float64 {
		var n int64
		q := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", table, filter)
		if err := db.QueryRow(ctx, q).Scan(&n); err != nil {
			return nil, 0, 0, err
		}
		counts[0] = n
		return counts, minV.Float64, maxV.Float64, nil
	}

	// LEAST clamps the max value into the final bucket.
	query = fmt.Sprintf(`
		SELECT LEAST(CAST(FLOOR((CAST(%[1]s AS DOUBLE) - ?) / ? * %[3]d) AS INTEGER), %[3]d - 1) AS bucket,
		       COUNT(*)
		FROM %[2]s
		WHERE %[4]s
		GROUP BY bucket`, column, table, histogramBins, filter)

	span := maxV.Float64 - minV.Float64
	rows, err := db.Query(ctx, query, minV.Float64, span)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("histogram binning failed for %s: %w", column, err)
	}
	defer rows.Close()

	for rows.Next() {
		var bucket int
		var n int64
		if err := rows.Scan(&bucket, &n); err != nil {
			return nil, 0, 0, err
		}
		if bucket >= 0 && bucket < histogramBins {
			counts[bucket] = n
		}
	}
	if err := rows.Err(); err != nil {
		return nil, 0, 0, err
	}
	return counts, minV.Float64, maxV.Float64, nil
}

// renderHistogramSVG draws a plain bar chart. No style dependencies keeps
// report output stable across runs.
func renderHistogramSVG(title string, counts []int64, minV, maxV float64) string {
	const (
		width   = 640
		height  = 260
		padLeft = 10
		padTop  = 28
		padBot  = 24
	)

	var maxCount int64
	for _, c := range counts {
		if c > maxCount {
			maxCount = c
		}
	}
	if maxCount == 0 {
		maxCount = 1
	}

	plotW := float64(width - 2*padLeft)
	plotH := float64(height - padTop - padBot)
	barW := plotW / float64(len(counts))

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`,
		width, height, width, height)
	fmt.Fprintf(&b, `<text x="%d" y="18" font-family="sans-serif" font-size="14">%s</text>`,
		padLeft, svgEscape(title))

	for i, c := range counts {
		if c == 0 {
			continue
		}
		h := float64(c) / float64(maxCount) * plotH
		x := float64(padLeft) + float64(i)*barW
		y := float64(padTop) + plotH - h
		fmt.Fprintf(&b, `<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="#4878a8"/>`,
			x, y, barW-1, h)
	}

	fmt.Fprintf(&b, `<text x="%d" y="%d" font-family="sans-serif" font-size="11">%g</text>`,
		padLeft, height-6, minV)
	fmt.Fprintf(&b, `<text x="%d" y="%d" font-family="sans-serif" font-size="11" text-anchor="end">%g</text>`,
		width-padLeft, height-6, maxV)
	b.WriteString(`</svg>`)
	return b.String()
}

func svgEscape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return r.Replace(s)
}

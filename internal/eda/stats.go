// WanderLens - Travel Customer Segmentation and Perk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wanderlens

package eda

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/tomtom215/wanderlens/internal/database"
)

// MissingnessRow summarizes NULL density for one column.
type MissingnessRow struct {
	Column     string  `json:"column" yaml:"column"`
	Missing    int64   `json:"missing" yaml:"missing"`
	MissingPct float64 `json:"missing_pct" yaml:"missing_pct"`
	Type       string  `json:"type" yaml:"type"`
}

// columnInfo pairs a column name with its DuckDB type.
type columnInfo struct {
	name, dataType string
}

var numericTypes = map[string]bool{
	"TINYINT": true, "SMALLINT": true, "INTEGER": true, "BIGINT": true,
	"HUGEINT": true, "UTINYINT": true, "USMALLINT": true, "UINTEGER": true,
	"UBIGINT": true, "FLOAT": true, "DOUBLE": true,
}

func isNumericType(dataType string) bool {
	upper := strings.ToUpper(dataType)
	return numericTypes[upper] || strings.HasPrefix(upper, "DECIMAL")
}

// tableInfo returns column names and types in declaration order.
func tableInfo(ctx context.Context, db *database.DB, table string) ([]columnInfo, error) {
	rows, err := db.Query(ctx, `
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_name = ?
		ORDER BY ordinal_position`, table)
	if err != nil {
		return nil, fmt.Errorf("schema lookup failed for %s: %w", table, err)
	}
	defer rows.Close()

	var cols []columnInfo
	for rows.Next() {
		var c columnInfo
		if err := rows.Scan(&c.name, &c.dataType); err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

// BuildOverview reports the table's shape.
func BuildOverview(ctx context.Context, db *database.DB, table string) (Overview, error) {
	cols, err := tableInfo(ctx, db, table)
	if err != nil {
		return Overview{}, err
	}
	rows, err := db.CountRows(ctx, table)
	if err != nil {
		return Overview{}, err
	}
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.name
	}
	return Overview{Rows: rows, Columns: len(cols), Names: names}, nil
}

// BuildMissingness returns per-column NULL counts sorted by missing share
// descending. Missingness drives cleaning decisions, so it ranks first.
func BuildMissingness(ctx context.Context, db *database.DB, table string) ([]MissingnessRow, error) {
	cols, err := tableInfo(ctx, db, table)
	if err != nil {
		return nil, err
	}
	total, err := db.CountRows(ctx, table)
	if err != nil {
		return nil, err
	}

	out := make([]MissingnessRow, 0, len(cols))
	for _, c := range cols {
		var missing int64
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s IS NULL", table, c.name)
		if err := db.QueryRow(ctx, query).Scan(&missing); err != nil {
			return nil, fmt.Errorf("missingness count failed for %s: %w", c.name, err)
		}
		row := MissingnessRow{Column: c.name, Missing: missing, Type: c.dataType}
		if total > 0 {
			row.MissingPct = math.Round(float64(missing)/float64(total)*10000) / 100
		}
		out = append(out, row)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].MissingPct > out[j].MissingPct })
	return out, nil
}

// BuildDescriptiveStats returns a pandas-describe-like table. Numeric columns
// get moments and quantiles; other columns get count, null share, and
// min/max rendered as text.
func BuildDescriptiveStats(ctx context.Context, db *database.DB, table string) ([]ColumnStats, error) {
	cols, err := tableInfo(ctx, db, table)
	if err != nil {
		return nil, err
	}
	total, err := db.CountRows(ctx, table)
	if err != nil {
		return nil, err
	}

	out := make([]ColumnStats, 0, len(cols))
	for _, c := range cols {
		cs := ColumnStats{Column: c.name, Type: c.dataType, IsNumeric: isNumericType(c.dataType)}

		if cs.IsNumeric {
			query := fmt.Sprintf(`
				SELECT
					COUNT(%[1]s),
					avg(%[1]s), stddev_samp(%[1]s),
					min(%[1]s), quantile_cont(%[1]s, 0.25),
					quantile_cont(%[1]s, 0.5), quantile_cont(%[1]s, 0.75),
					max(%[1]s)
				FROM %[2]s`, c.name, table)

			var mean, std, minV, q25, med, q75, maxV sql.NullFloat64
			err := db.QueryRow(ctx, query).Scan(&cs.Count, &mean, &std, &minV, &q25, &med, &q75, &maxV)
			if err != nil {
				return nil, fmt.Errorf("stats query failed for %s: %w", c.name, err)
			}
			cs.Mean = mean.Float64
			cs.Std = std.Float64
			cs.Q25 = q25.Float64
			cs.Median = med.Float64
			cs.Q75 = q75.Float64
			if minV.Valid {
				cs.Min = fmt.Sprintf("%g", minV.Float64)
			}
			if maxV.Valid {
				cs.Max = fmt.Sprintf("%g", maxV.Float64)
			}
		} else {
			query := fmt.Sprintf(
				"SELECT COUNT(%[1]s), CAST(min(%[1]s) AS VARCHAR), CAST(max(%[1]s) AS VARCHAR) FROM %[2]s",
				c.name, table)
			var minS, maxS sql.NullString
			if err := db.QueryRow(ctx, query).Scan(&cs.Count, &minS, &maxS); err != nil {
				return nil, fmt.Errorf("stats query failed for %s: %w", c.name, err)
			}
			cs.Min = minS.String
			cs.Max = maxS.String
		}

		if total > 0 {
			cs.NullPct = math.Round(float64(total-cs.Count)/float64(total)*10000) / 100
		}
		out = append(out, cs)
	}
	return out, nil
}

// BuildCorrelationPairs computes pairwise Pearson correlations over the
// numeric columns and returns the strongest pairs by absolute value.
func BuildCorrelationPairs(ctx context.Context, db *database.DB, table string, topN int) ([]CorrelationPair, error) {
	cols, err := tableInfo(ctx, db, table)
	if err != nil {
		return nil, err
	}

	var numeric []string
	for _, c := range cols {
		if isNumericType(c.dataType) {
			numeric = append(numeric, c.name)
		}
	}

	var pairs []CorrelationPair
	for i := 0; i < len(numeric); i++ {
		for j := i + 1; j < len(numeric); j++ {
			query := fmt.Sprintf("SELECT corr(%s, %s) FROM %s", numeric[i], numeric[j], table)
			var r sql.NullFloat64
			if err := db.QueryRow(ctx, query).Scan(&r); err != nil {
				return nil, fmt.Errorf("correlation failed for %s/%s: %w", numeric[i], numeric[j], err)
			}
			if !r.Valid || math.IsNaN(r.Float64) {
				continue
			}
			pairs = append(pairs, CorrelationPair{
				ColumnA:     numeric[i],
				ColumnB:     numeric[j],
				Correlation: r.Float64,
			})
		}
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		return math.Abs(pairs[i].Correlation) > math.Abs(pairs[j].Correlation)
	})
	if topN > 0 && len(pairs) > topN {
		pairs = pairs[:topN]
	}
	return pairs, nil
}

// DeriveKeyInsights produces short review-ready observations from the
// missingness table, the outlier impacts, and the strongest correlation.
func DeriveKeyInsights(missing []MissingnessRow, outliers map[string]RuleImpact, correlations []CorrelationPair) []string {
	var insights []string

	for _, m := range missing {
		if m.MissingPct >= 50 {
			insights = append(insights, fmt.Sprintf(
				"Column %s is %.1f%% missing; values are absent for most sessions (left-join structure for non-bookers).",
				m.Column, m.MissingPct))
			break
		}
	}

	var totalRemoved int64
	for _, imp := range outliers {
		totalRemoved += imp.RowsRemoved
	}
	if totalRemoved > 0 {
		insights = append(insights, fmt.Sprintf(
			"Outlier rules removed %d session rows; heavy-tailed engagement and price columns dominate the removals.",
			totalRemoved))
	}

	if len(correlations) > 0 {
		top := correlations[0]
		insights = append(insights, fmt.Sprintf(
			"Strongest numeric relationship: %s vs %s (r = %.2f).",
			top.ColumnA, top.ColumnB, top.Correlation))
	}

	if len(insights) == 0 {
		insights = append(insights, "No dominant anomalies detected; distributions look usable for aggregation.")
	}
	return insights
}

// DeriveHypotheses turns the top correlations into candidate segmentation
// hypotheses for the next analysis step.
func DeriveHypotheses(correlations []CorrelationPair) []string {
	var out []string
	for i, c := range correlations {
		if i >= 3 {
			break
		}
		direction := "rises"
		if c.Correlation < 0 {
			direction = "falls"
		}
		out = append(out, fmt.Sprintf(
			"When %s increases, %s typically %s (r = %.2f); candidate axis for segment separation.",
			c.ColumnA, c.ColumnB, direction, c.Correlation))
	}
	if len(out) == 0 {
		out = append(out, "Numeric columns show no strong pairwise structure; segmentation should lean on behavioral rates.")
	}
	return out
}

// WanderLens - Travel Customer Segmentation and Perk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wanderlens

package eda

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tomtom215/wanderlens/internal/config"
	"github.com/tomtom215/wanderlens/internal/database"
	"github.com/tomtom215/wanderlens/internal/logging"
	"github.com/tomtom215/wanderlens/internal/metrics"
)

// OutlierBounds holds the per-column removal window.
type OutlierBounds struct {
	Column string  `json:"column" yaml:"column"`
	Lower  float64 `json:"lower" yaml:"lower"`
	Upper  float64 `json:"upper" yaml:"upper"`
	Method string  `json:"method" yaml:"method"`
}

// RemoveOutliers deletes rows whose configured columns fall outside the
// method's bounds. Bounds for every column are computed up front against the
// post-validity table, then applied one column at a time, so a removal for an
// earlier column never shifts a later column's window. NULL values are never
// outliers. Columns with zero spread (IQR or stddev of 0) are skipped.
func RemoveOutliers(ctx context.Context, db *database.DB, cfg *config.Config) (map[string]RuleImpact, []OutlierBounds, error) {
	method := cfg.Outliers.Method
	impacts := make(map[string]RuleImpact)
	bounds := make([]OutlierBounds, 0, len(cfg.Outliers.Columns))

	for _, column := range cfg.Outliers.Columns {
		ok, err := ColumnExists(ctx, db, TableSessionLevel, column)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			logging.Ctx(ctx).Warn().Str("column", column).Msg("outlier column missing, skipping")
			continue
		}

		var b *OutlierBounds
		switch method {
		case "iqr":
			b, err = iqrBounds(ctx, db, column, cfg.Outliers.IQRMultiplier)
		case "zscore":
			b, err = zscoreBounds(ctx, db, column, cfg.Outliers.ZScoreThreshold)
		default:
			return nil, nil, fmt.Errorf("outliers.method must be one of: iqr, zscore (got %q)", method)
		}
		if err != nil {
			return nil, nil, err
		}
		if b == nil {
			logging.Ctx(ctx).Debug().Str("column", column).Msg("zero spread, outlier removal skipped")
			continue
		}
		bounds = append(bounds, *b)
	}

	for _, b := range bounds {
		rowsBefore, err := db.CountRows(ctx, TableSessionLevel)
		if err != nil {
			return nil, nil, err
		}

		del := fmt.Sprintf(
			"DELETE FROM %s WHERE %s IS NOT NULL AND (%s < ? OR %s > ?)",
			TableSessionLevel, b.Column, b.Column, b.Column)
		if err := db.Exec(ctx, del, b.Lower, b.Upper); err != nil {
			return nil, nil, fmt.Errorf("outlier removal failed for %s: %w", b.Column, err)
		}

		rowsAfter, err := db.CountRows(ctx, TableSessionLevel)
		if err != nil {
			return nil, nil, err
		}

		impact := RuleImpact{
			RowsBefore:  rowsBefore,
			RowsAfter:   rowsAfter,
			RowsRemoved: rowsBefore - rowsAfter,
		}
		impacts["outlier_"+b.Column] = impact
		metrics.RowsRemoved.WithLabelValues("outlier_" + b.Column).Add(float64(impact.RowsRemoved))

		logging.Ctx(ctx).Info().
			Str("column", b.Column).
			Str("method", b.Method).
			Float64("lower", b.Lower).
			Float64("upper", b.Upper).
			Int64("rows_removed", impact.RowsRemoved).
			Msg("outlier rule applied")
	}

	return impacts, bounds, nil
}

// iqrBounds computes [Q1 - k*IQR, Q3 + k*IQR]. Returns nil when the column is
// all NULL or has zero IQR.
func iqrBounds(ctx context.Context, db *database.DB, column string, multiplier float64) (*OutlierBounds, error) {
	query := fmt.Sprintf(`
		SELECT
			quantile_cont(%s, 0.25),
			quantile_cont(%s, 0.75)
		FROM %s`, column, column, TableSessionLevel)

	var q1, q3 sql.NullFloat64
	if err := db.QueryRow(ctx, query).Scan(&q1, &q3); err != nil {
		return nil, fmt.Errorf("quantile computation failed for %s: %w", column, err)
	}
	if !q1.Valid || !q3.Valid {
		return nil, nil
	}
	iqr := q3.Float64 - q1.Float64
	if iqr == 0 {
		return nil, nil
	}
	return &OutlierBounds{
		Column: column,
		Lower:  q1.Float64 - multiplier*iqr,
		Upper:  q3.Float64 + multiplier*iqr,
		Method: "iqr",
	}, nil
}

// zscoreBounds computes [mean - t*std, mean + t*std] using the population
// standard deviation. Returns nil when the column is all NULL or constant.
func zscoreBounds(ctx context.Context, db *database.DB, column string, threshold float64) (*OutlierBounds, error) {
	query := fmt.Sprintf("SELECT avg(%s), stddev_pop(%s) FROM %s",
		column, column, TableSessionLevel)

	var mean, std sql.NullFloat64
	if err := db.QueryRow(ctx, query).Scan(&mean, &std); err != nil {
		return nil, fmt.Errorf("moment computation failed for %s: %w", column, err)
	}
	if !mean.Valid || !std.Valid || std.Float64 == 0 {
		return nil, nil
	}
	return &OutlierBounds{
		Column: column,
		Lower:  mean.Float64 - threshold*std.Float64,
		Upper:  mean.Float64 + threshold*std.Float64,
		Method: "zscore",
	}, nil
}

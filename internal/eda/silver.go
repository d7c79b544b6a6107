// WanderLens - Travel Customer Segmentation and Perk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wanderlens

package eda

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tomtom215/wanderlens/internal/database"
	"github.com/tomtom215/wanderlens/internal/logging"
)

// tableSpec declares the type coercions and derived columns for one bronze
// table's silver (cleaned) and gold (transformed) layers. "Cleaned" is
// type-stable with no derivations; "transformed" adds the derived column.
type tableSpec struct {
	name         string
	datetimeCols []string
	numericCols  []string
	derivedName  string
	derivedExpr  string
}

var tableSpecs = []tableSpec{
	{
		name:         "sessions",
		datetimeCols: []string{"session_start", "session_end"},
		numericCols:  []string{"user_id", "page_clicks"},
		derivedName:  "session_duration_sec",
		derivedExpr:  "date_diff('second', session_start, session_end)",
	},
	{
		name:         "users",
		datetimeCols: []string{"birthdate", "sign_up_date"},
		numericCols:  []string{"user_id"},
		derivedName:  "age_years",
		derivedExpr:  "date_diff('day', CAST(birthdate AS DATE), current_date) / 365.25",
	},
	{
		name:         "flights",
		datetimeCols: []string{"departure_time", "return_time"},
		numericCols:  []string{"seats", "checked_bags", "base_fare_usd"},
		derivedName:  "trip_duration_hours",
		derivedExpr:  "date_diff('second', departure_time, return_time) / 3600.0",
	},
	{
		name:         "hotels",
		datetimeCols: []string{"check_in_time", "check_out_time"},
		numericCols:  []string{"nights", "rooms", "hotel_per_room_usd"},
		derivedName:  "stay_duration_nights",
		derivedExpr:  "date_diff('second', check_in_time, check_out_time) / 86400.0",
	},
}

// BuildLayeredTables writes the per-table silver and gold Parquet artifacts
// under dir: `<table>_cleaned.parquet` (TRY_CAST type coercion so bad values
// surface as NULL, like the missingness tables expect) and
// `<table>_transformed.parquet` with the table's derived column.
func BuildLayeredTables(ctx context.Context, db *database.DB, dir string) ([]string, error) {
	var written []string

	for _, spec := range tableSpecs {
		ok, err := db.TableExists(ctx, spec.name)
		if err != nil {
			return nil, err
		}
		if !ok {
			logging.Ctx(ctx).Warn().Str("table", spec.name).Msg("bronze table absent, skipping layer build")
			continue
		}

		cleanedTable := spec.name + "_cleaned"
		if err := buildCleanedTable(ctx, db, spec, cleanedTable); err != nil {
			return nil, err
		}
		cleanedPath := filepath.Join(dir, cleanedTable+".parquet")
		if err := db.ExportParquet(ctx, cleanedTable, cleanedPath); err != nil {
			return nil, err
		}
		written = append(written, cleanedPath)

		transformedTable := spec.name + "_transformed"
		if err := buildTransformedTable(ctx, db, spec, cleanedTable, transformedTable); err != nil {
			return nil, err
		}
		transformedPath := filepath.Join(dir, transformedTable+".parquet")
		if err := db.ExportParquet(ctx, transformedTable, transformedPath); err != nil {
			return nil, err
		}
		written = append(written, transformedPath)
	}

	return written, nil
}

func buildCleanedTable(ctx context.Context, db *database.DB, spec tableSpec, dst string) error {
	cols, err := columnSet(ctx, db, spec.name)
	if err != nil {
		return err
	}

	replace := make([]string, 0, len(spec.datetimeCols)+len(spec.numericCols))
	for _, col := range spec.datetimeCols {
		if cols[col] {
			replace = append(replace, fmt.Sprintf("TRY_CAST(%s AS TIMESTAMP) AS %s", col, col))
		}
	}
	for _, col := range spec.numericCols {
		if cols[col] {
			replace = append(replace, fmt.Sprintf("TRY_CAST(%s AS DOUBLE) AS %s", col, col))
		}
	}

	sel := "*"
	if len(replace) > 0 {
		sel = fmt.Sprintf("* REPLACE (%s)", strings.Join(replace, ", "))
	}
	query := fmt.Sprintf("CREATE OR REPLACE TABLE %s AS SELECT %s FROM %s", dst, sel, spec.name)
	if err := db.Exec(ctx, query); err != nil {
		return fmt.Errorf("building cleaned table %s: %w", dst, err)
	}
	return nil
}

func buildTransformedTable(ctx context.Context, db *database.DB, spec tableSpec, src, dst string) error {
	cols, err := columnSet(ctx, db, src)
	if err != nil {
		return err
	}

	derive := "CAST(NULL AS DOUBLE)"
	if derivable(spec, cols) {
		derive = spec.derivedExpr
	}
	query := fmt.Sprintf("CREATE OR REPLACE TABLE %s AS SELECT *, %s AS %s FROM %s",
		dst, derive, spec.derivedName, src)
	if err := db.Exec(ctx, query); err != nil {
		return fmt.Errorf("building transformed table %s: %w", dst, err)
	}
	return nil
}

// derivable reports whether the derived expression's inputs are present.
func derivable(spec tableSpec, cols map[string]bool) bool {
	switch spec.name {
	case "sessions":
		return cols["session_start"] && cols["session_end"]
	case "users":
		return cols["birthdate"]
	case "flights":
		return cols["departure_time"] && cols["return_time"]
	case "hotels":
		return cols["check_in_time"] && cols["check_out_time"]
	}
	return false
}

// columnSet returns the column names of a table as a set.
func columnSet(ctx context.Context, db *database.DB, table string) (map[string]bool, error) {
	rows, err := db.Query(ctx,
		"SELECT column_name FROM information_schema.columns WHERE table_name = ?", table)
	if err != nil {
		return nil, fmt.Errorf("column lookup failed for %s: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols[name] = true
	}
	return cols, rows.Err()
}

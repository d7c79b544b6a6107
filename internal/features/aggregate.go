// WanderLens - Travel Customer Segmentation and Perk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wanderlens

// Package features builds the customer-level modeling table: one row per
// user, aggregated in DuckDB from the cleaned session-level data.
package features

import (
	"context"
	"fmt"
	"strings"

	"github.com/tomtom215/wanderlens/internal/database"
	"github.com/tomtom215/wanderlens/internal/logging"
)

// TableUserFeatures is the in-database name of the aggregated table.
const TableUserFeatures = "user_features"

// avgColumns maps output feature names to their session-level sources. Each
// becomes AVG(source) over the user's sessions; NULLs are ignored by AVG.
var avgColumns = []struct{ feature, source string }{
	{"avg_page_clicks", "page_clicks"},
	{"avg_session_duration_sec", "session_duration_sec"},
	{"avg_base_fare_usd", "base_fare_usd"},
	{"avg_hotel_per_room_usd", "hotel_per_room_usd"},
	{"avg_nights", "nights"},
	{"avg_rooms", "rooms"},
	{"avg_seats", "seats"},
	{"avg_checked_bags", "checked_bags"},
	{"avg_flight_discount", "flight_discount"},
	{"avg_hotel_discount", "hotel_discount"},
	{"avg_flight_discount_amount", "flight_discount_amount"},
	{"avg_hotel_discount_amount", "hotel_discount_amount"},
	{"avg_customer_tenure_days", "customer_tenure_days"},
	{"avg_age_years", "age_years"},
}

// rateColumns are boolean-like sources whose mean is the per-user rate.
var rateColumns = []struct{ feature, source string }{
	{"p_flight_booked", "flight_booked"},
	{"p_hotel_booked", "hotel_booked"},
	{"p_cancellation_session", "cancellation"},
	{"p_return_flight_booked", "return_flight_booked"},
}

// positiveRateColumns are numeric sources whose feature is the share of
// non-null values that are strictly positive.
var positiveRateColumns = []struct{ feature, source string }{
	{"p_flight_discount", "flight_discount"},
	{"p_hotel_discount", "hotel_discount"},
}

// dimensionColumns carry over per user by first non-null value.
var dimensionColumns = []string{
	"gender",
	"married",
	"has_children",
	"home_country",
	"home_city",
	"home_airport",
	"sign_up_date",
	"birthdate",
}

// BuildUserFeatures aggregates srcTable into dstTable, one row per user_id.
// Missing source columns degrade to NULL features rather than failing, so the
// same builder serves both full and reduced session extracts.
func BuildUserFeatures(ctx context.Context, db *database.DB, srcTable, dstTable string) error {
	cols, err := tableColumns(ctx, db, srcTable)
	if err != nil {
		return err
	}
	if !cols["user_id"] {
		return fmt.Errorf("table %s has no user_id column, cannot aggregate", srcTable)
	}

	var sel []string
	sel = append(sel, "user_id")

	if cols["session_id"] {
		sel = append(sel, "COUNT(DISTINCT session_id) AS n_sessions")
	} else {
		sel = append(sel, "COUNT(*) AS n_sessions")
	}
	if cols["trip_id"] {
		sel = append(sel, "COUNT(DISTINCT trip_id) AS n_trips")
	} else {
		sel = append(sel, "0 AS n_trips")
	}

	for _, c := range avgColumns {
		if cols[c.source] {
			sel = append(sel, fmt.Sprintf("AVG(CAST(%s AS DOUBLE)) AS %s", c.source, c.feature))
		} else {
			sel = append(sel, fmt.Sprintf("CAST(NULL AS DOUBLE) AS %s", c.feature))
		}
	}
	for _, c := range rateColumns {
		if cols[c.source] {
			sel = append(sel, fmt.Sprintf("AVG(CAST(%s AS DOUBLE)) AS %s", c.source, c.feature))
		} else {
			sel = append(sel, fmt.Sprintf("CAST(NULL AS DOUBLE) AS %s", c.feature))
		}
	}
	for _, c := range positiveRateColumns {
		if cols[c.source] {
			sel = append(sel, fmt.Sprintf(
				"AVG(CASE WHEN %s IS NULL THEN NULL WHEN CAST(%s AS DOUBLE) > 0 THEN 1.0 ELSE 0.0 END) AS %s",
				c.source, c.source, c.feature))
		} else {
			sel = append(sel, fmt.Sprintf("CAST(NULL AS DOUBLE) AS %s", c.feature))
		}
	}

	if cols["session_start"] {
		sel = append(sel,
			"MIN(CAST(session_start AS TIMESTAMP)) AS first_session_ts",
			"MAX(CAST(session_start AS TIMESTAMP)) AS last_session_ts",
			"date_diff('second', MIN(CAST(session_start AS TIMESTAMP)), MAX(CAST(session_start AS TIMESTAMP))) / 86400.0 AS session_span_days",
		)
	} else {
		sel = append(sel,
			"CAST(NULL AS TIMESTAMP) AS first_session_ts",
			"CAST(NULL AS TIMESTAMP) AS last_session_ts",
			"CAST(NULL AS DOUBLE) AS session_span_days",
		)
	}

	for _, col := range dimensionColumns {
		if cols[col] {
			sel = append(sel, fmt.Sprintf("any_value(%s) AS %s", col, col))
		}
	}

	// sessions_per_active_day depends on the span aggregate, so wrap the
	// grouped query and derive it in an outer select.
	query := fmt.Sprintf(`
		CREATE OR REPLACE TABLE %s AS
		SELECT
			agg.*,
			CASE WHEN session_span_days IS NULL THEN NULL
			     ELSE n_sessions / (session_span_days + 1) END AS sessions_per_active_day
		FROM (
			SELECT
				%s
			FROM %s
			GROUP BY user_id
		) agg`, dstTable, strings.Join(sel, ",\n\t\t\t\t"), srcTable)

	if err := db.Exec(ctx, query); err != nil {
		return fmt.Errorf("user feature aggregation failed: %w", err)
	}

	n, err := db.CountRows(ctx, dstTable)
	if err != nil {
		return err
	}
	logging.Ctx(ctx).Info().
		Str("source", srcTable).
		Str("table", dstTable).
		Int64("users", n).
		Msg("user features aggregated")
	return nil
}

// tableColumns returns the set of column names present on a table.
func tableColumns(ctx context.Context, db *database.DB, table string) (map[string]bool, error) {
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
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("table %s not found", table)
	}
	return cols, nil
}

// WanderLens - Travel Customer Segmentation and Perk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wanderlens

package features

import (
	"context"
	"fmt"

	"github.com/tomtom215/wanderlens/internal/database"
)

// requiredColumns must exist on the feature table before it is persisted.
var requiredColumns = []string{
	"user_id",
	"n_sessions",
	"n_trips",
	"avg_page_clicks",
	"avg_session_duration_sec",
	"p_flight_booked",
	"p_hotel_booked",
	"p_cancellation_session",
	"sessions_per_active_day",
}

// VerifySchema checks the aggregated table for the required columns and for
// id integrity. Aggregation bugs should fail the stage, not ship artifacts.
func VerifySchema(ctx context.Context, db *database.DB, table string) error {
	cols, err := tableColumns(ctx, db, table)
	if err != nil {
		return err
	}
	for _, col := range requiredColumns {
		if !cols[col] {
			return fmt.Errorf("feature table %s missing required column %s", table, col)
		}
	}

	var nullIDs int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE user_id IS NULL", table)
	if err := db.QueryRow(ctx, query).Scan(&nullIDs); err != nil {
		return fmt.Errorf("user_id null check failed: %w", err)
	}
	if nullIDs > 0 {
		return fmt.Errorf("feature table %s has %d rows with NULL user_id", table, nullIDs)
	}

	var dupIDs int64
	query = fmt.Sprintf(
		"SELECT COUNT(*) FROM (SELECT user_id FROM %s GROUP BY user_id HAVING COUNT(*) > 1)", table)
	if err := db.QueryRow(ctx, query).Scan(&dupIDs); err != nil {
		return fmt.Errorf("user_id uniqueness check failed: %w", err)
	}
	if dupIDs > 0 {
		return fmt.Errorf("feature table %s has %d duplicated user_id values", table, dupIDs)
	}
	return nil
}

// WanderLens - Travel Customer Segmentation and Perk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wanderlens

package eda

import (
	"context"
	"fmt"
	"strings"

	"github.com/tomtom215/wanderlens/internal/config"
	"github.com/tomtom215/wanderlens/internal/database"
	"github.com/tomtom215/wanderlens/internal/logging"
)

// Table names used by the EDA stage. Sessions is the fact table; users is a
// dimension joined on user_id; flights/hotels are optional trip enrichments
// joined on trip_id.
const (
	TableSessionRaw   = "session_raw"
	TableSessionLevel = "session_level"
)

// ExtractSessionLevel materializes the cohort-scoped session-level dataset
// as the session_raw table and returns its row count.
//
// The join mirrors the medallion layout: sessions ⋈ users (inner) ⋈ flights,
// hotels (left). The cohort filter on sign_up_date always applies; the
// session_start and per-user activity filters are optional.
func ExtractSessionLevel(ctx context.Context, db *database.DB, cfg *config.Config) (int64, error) {
	var sb strings.Builder
	args := []any{cfg.Cohort.SignUpDateStart, cfg.Cohort.SignUpDateEnd}

	sb.WriteString(`
		SELECT
			s.*,
			u.* EXCLUDE (user_id),
			f.* EXCLUDE (trip_id),
			h.* EXCLUDE (trip_id)
		FROM sessions s
		JOIN users u USING (user_id)
		LEFT JOIN flights f USING (trip_id)
		LEFT JOIN hotels h USING (trip_id)
		WHERE CAST(u.sign_up_date AS DATE) >= CAST(? AS DATE)
		  AND CAST(u.sign_up_date AS DATE) <= CAST(? AS DATE)`)

	if cfg.Extraction.SessionStartMin != "" {
		sb.WriteString("\n\t\t  AND s.session_start >= CAST(? AS TIMESTAMP)")
		args = append(args, cfg.Extraction.SessionStartMin)
	}

	// Per-user activity thresholds keep only customers with enough behavior
	// to segment meaningfully.
	if cfg.Extraction.MinSessions > 0 || cfg.Extraction.MinPageClicks > 0 {
		sb.WriteString(`
		  AND s.user_id IN (
			SELECT user_id FROM sessions
			GROUP BY user_id
			HAVING COUNT(*) >= ? AND COALESCE(SUM(page_clicks), 0) >= ?
		  )`)
		args = append(args, cfg.Extraction.MinSessions, cfg.Extraction.MinPageClicks)
	}

	if err := db.CreateTableAs(ctx, TableSessionRaw, sb.String(), args...); err != nil {
		return 0, fmt.Errorf("session-level extraction failed: %w", err)
	}

	n, err := db.CountRows(ctx, TableSessionRaw)
	if err != nil {
		return 0, err
	}
	logging.Ctx(ctx).Info().Int64("rows", n).
		Str("cohort_start", cfg.Cohort.SignUpDateStart).
		Str("cohort_end", cfg.Cohort.SignUpDateEnd).
		Msg("session-level dataset extracted")
	return n, nil
}

// AddDerivedColumns materializes session_level from session_raw with the
// derived metrics the report and downstream stages rely on:
//
//   - session_duration_sec: session_end − session_start
//   - age_years: approximate, for descriptive use only
//   - customer_tenure_days: tenure at the time of the session
func AddDerivedColumns(ctx context.Context, db *database.DB) error {
	query := fmt.Sprintf(`
		SELECT *,
			date_diff('second', session_start, session_end) AS session_duration_sec,
			date_diff('day', CAST(birthdate AS DATE), current_date) / 365.25 AS age_years,
			CAST(date_diff('day', CAST(sign_up_date AS DATE), CAST(session_start AS DATE)) AS DOUBLE) AS customer_tenure_days
		FROM %s`, TableSessionRaw)

	if err := db.CreateTableAs(ctx, TableSessionLevel, query); err != nil {
		return fmt.Errorf("derived column build failed: %w", err)
	}
	return nil
}

// ColumnExists reports whether the given table has the column.
func ColumnExists(ctx context.Context, db *database.DB, table, column string) (bool, error) {
	var n int
	err := db.QueryRow(ctx,
		"SELECT COUNT(*) FROM information_schema.columns WHERE table_name = ? AND column_name = ?",
		table, column).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("column lookup failed for %s.%s: %w", table, column, err)
	}
	return n > 0, nil
}

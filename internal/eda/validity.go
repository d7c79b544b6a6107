// WanderLens - Travel Customer Segmentation and Perk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wanderlens

package eda

import (
	"context"
	"fmt"

	"github.com/tomtom215/wanderlens/internal/config"
	"github.com/tomtom215/wanderlens/internal/database"
	"github.com/tomtom215/wanderlens/internal/logging"
	"github.com/tomtom215/wanderlens/internal/metrics"
)

// ApplyValidityRules runs the flag-only validation checks and the
// invalid-hotel-nights policy against the session_level table. Only the
// nights policy mutates data; everything else is recorded for the metadata.
func ApplyValidityRules(ctx context.Context, db *database.DB, cfg *config.Config) (map[string]RuleImpact, NightsPolicyResult, ValidationChecks, error) {
	checks := ValidationChecks{}

	dup, err := detectDuplicateSessions(ctx, db)
	if err != nil {
		return nil, NightsPolicyResult{}, checks, err
	}
	checks.Duplicates = dup

	rangeSpecs := []struct {
		column   string
		min, max *float64
	}{
		{"session_duration_sec", f(0), nil},
		{"age_years", f(0), f(120)},
		{"nights", f(1), nil},
		{"rooms", f(1), nil},
		{"seats", f(1), nil},
	}
	for _, spec := range rangeSpecs {
		res, err := rangeCheck(ctx, db, spec.column, spec.min, spec.max)
		if err != nil {
			return nil, NightsPolicyResult{}, checks, err
		}
		checks.RangeChecks = append(checks.RangeChecks, res)
	}

	logicalSpecs := []struct {
		name, earlier, later string
	}{
		{"session_end_before_start", "session_start", "session_end"},
		{"birthdate_after_session_start", "birthdate", "session_start"},
	}
	for _, spec := range logicalSpecs {
		res, err := datetimeOrderCheck(ctx, db, spec.name, spec.earlier, spec.later)
		if err != nil {
			return nil, NightsPolicyResult{}, checks, err
		}
		checks.LogicalChecks = append(checks.LogicalChecks, res)
	}

	impacts := make(map[string]RuleImpact)
	nightsResult, impact, err := applyNightsPolicy(ctx, db, cfg.Cleaning.InvalidHotelNightsPolicy)
	if err != nil {
		return nil, NightsPolicyResult{}, checks, err
	}
	impacts["invalid_hotel_nights"] = impact
	metrics.RowsRemoved.WithLabelValues("invalid_hotel_nights").Add(float64(impact.RowsRemoved))

	return impacts, nightsResult, checks, nil
}

func f(v float64) *float64 { return &v }

// detectDuplicateSessions counts duplicate rows in the session table.
// session_id is the preferred key; composite keys cover datasets without one.
func detectDuplicateSessions(ctx context.Context, db *database.DB) (DuplicateCheck, error) {
	keys, reason, err := resolveDuplicateKeys(ctx, db)
	if err != nil {
		return DuplicateCheck{}, err
	}
	check := DuplicateCheck{
		Keys:     keys,
		Decision: "flag_only",
		Action:   "retained",
	}
	if len(keys) == 0 {
		check.Status = "skipped"
		check.Reason = reason
		return check, nil
	}

	keyList := ""
	for i, k := range keys {
		if i > 0 {
			keyList += ", "
		}
		keyList += k
	}

	query := fmt.Sprintf(`
		WITH groups AS (
			SELECT COUNT(*) AS cnt FROM %s GROUP BY %s
		)
		SELECT
			COALESCE(SUM(cnt - 1), 0),
			COALESCE(SUM(CASE WHEN cnt > 1 THEN cnt ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN cnt > 1 THEN 1 ELSE 0 END), 0)
		FROM groups`, TableSessionLevel, keyList)

	err = db.QueryRow(ctx, query).Scan(&check.DuplicateRows, &check.RowsInDuplicateGroups, &check.DuplicateGroups)
	if err != nil {
		return DuplicateCheck{}, fmt.Errorf("duplicate detection failed: %w", err)
	}
	check.Status = "evaluated"
	return check, nil
}

// resolveDuplicateKeys picks the strongest available session identity.
func resolveDuplicateKeys(ctx context.Context, db *database.DB) ([]string, string, error) {
	candidates := [][]string{
		{"session_id"},
		{"user_id", "session_start", "session_end"},
		{"user_id", "session_start"},
	}
	for _, keys := range candidates {
		allPresent := true
		for _, col := range keys {
			ok, err := ColumnExists(ctx, db, TableSessionLevel, col)
			if err != nil {
				return nil, "", err
			}
			if !ok {
				allPresent = false
				break
			}
		}
		if allPresent {
			return keys, "", nil
		}
	}
	return nil, "Missing session identifier columns for duplicate detection.", nil
}

// rangeCheck counts non-NULL values outside [min, max].
func rangeCheck(ctx context.Context, db *database.DB, column string, minVal, maxVal *float64) (CheckResult, error) {
	res := CheckResult{Name: column, Decision: "flag_only", Action: "retained"}

	ok, err := ColumnExists(ctx, db, TableSessionLevel, column)
	if err != nil {
		return res, err
	}
	if !ok {
		res.Status = "skipped"
		res.Reason = "Column not available for range check."
		return res, nil
	}

	cond := "FALSE"
	args := []any{}
	if minVal != nil {
		cond += fmt.Sprintf(" OR %s < ?", column)
		args = append(args, *minVal)
	}
	if maxVal != nil {
		cond += fmt.Sprintf(" OR %s > ?", column)
		args = append(args, *maxVal)
	}

	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s IS NOT NULL AND (%s)",
		TableSessionLevel, column, cond)
	if err := db.QueryRow(ctx, query, args...).Scan(&res.InvalidCount); err != nil {
		return res, fmt.Errorf("range check failed for %s: %w", column, err)
	}
	res.Status = "evaluated"
	return res, nil
}

// datetimeOrderCheck counts rows where later < earlier (both non-NULL).
func datetimeOrderCheck(ctx context.Context, db *database.DB, name, earlier, later string) (CheckResult, error) {
	res := CheckResult{Name: name, Decision: "flag_only", Action: "retained"}

	for _, col := range []string{earlier, later} {
		ok, err := ColumnExists(ctx, db, TableSessionLevel, col)
		if err != nil {
			return res, err
		}
		if !ok {
			res.Status = "skipped"
			res.Reason = "Required columns missing for logical check."
			return res, nil
		}
	}

	query := fmt.Sprintf(
		"SELECT COUNT(*) FROM %s WHERE %s IS NOT NULL AND %s IS NOT NULL AND CAST(%s AS TIMESTAMP) < CAST(%s AS TIMESTAMP)",
		TableSessionLevel, earlier, later, later, earlier)
	if err := db.QueryRow(ctx, query).Scan(&res.InvalidCount); err != nil {
		return res, fmt.Errorf("logical check %s failed: %w", name, err)
	}
	res.Status = "evaluated"
	return res, nil
}

// applyNightsPolicy handles the known hotels.nights anomaly (0, negative, or
// missing values). "recompute" salvages rows from the stay timestamps;
// "drop" removes them. The choice must be explicit via config.
func applyNightsPolicy(ctx context.Context, db *database.DB, policy string) (NightsPolicyResult, RuleImpact, error) {
	result := NightsPolicyResult{Policy: policy}
	impact := RuleImpact{}

	ok, err := ColumnExists(ctx, db, TableSessionLevel, "nights")
	if err != nil {
		return result, impact, err
	}
	if !ok {
		return result, impact, nil
	}

	rowsBefore, err := db.CountRows(ctx, TableSessionLevel)
	if err != nil {
		return result, impact, err
	}

	const invalidCond = "(nights IS NULL OR nights <= 0)"

	var invalidDetected int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", TableSessionLevel, invalidCond)
	if err := db.QueryRow(ctx, query).Scan(&invalidDetected); err != nil {
		return result, impact, fmt.Errorf("invalid nights count failed: %w", err)
	}
	result.InvalidDetected = invalidDetected

	switch policy {
	case "drop":
		del := fmt.Sprintf("DELETE FROM %s WHERE %s", TableSessionLevel, invalidCond)
		if err := db.Exec(ctx, del); err != nil {
			return result, impact, fmt.Errorf("nights drop policy failed: %w", err)
		}
		result.DroppedRows = invalidDetected
		result.Rationale = "Configured policy for known hotel nights anomaly; rows removed."

	case "recompute":
		// Ceil avoids a 0-night stay from partial days; values that still come
		// out below 1 stay NULL so missingness remains visible.
		upd := fmt.Sprintf(`
			UPDATE %s
			SET nights = CASE
				WHEN check_in_time IS NOT NULL AND check_out_time IS NOT NULL
				 AND CEIL(date_diff('second', CAST(check_in_time AS TIMESTAMP), CAST(check_out_time AS TIMESTAMP)) / 86400.0) >= 1
				THEN CEIL(date_diff('second', CAST(check_in_time AS TIMESTAMP), CAST(check_out_time AS TIMESTAMP)) / 86400.0)
				ELSE NULL
			END
			WHERE %s`, TableSessionLevel, invalidCond)
		if err := db.Exec(ctx, upd); err != nil {
			return result, impact, fmt.Errorf("nights recompute policy failed: %w", err)
		}

		var stillInvalid int64
		if err := db.QueryRow(ctx, query).Scan(&stillInvalid); err != nil {
			return result, impact, fmt.Errorf("post-recompute nights count failed: %w", err)
		}
		result.RecomputedOK = invalidDetected - stillInvalid
		result.StillMissing = stillInvalid
		result.Rationale = "Configured policy for known hotel nights anomaly; recompute to preserve rows."

	default:
		return result, impact, fmt.Errorf("cleaning.invalid_hotel_nights_policy must be one of: recompute, drop (got %q)", policy)
	}

	rowsAfter, err := db.CountRows(ctx, TableSessionLevel)
	if err != nil {
		return result, impact, err
	}
	impact = RuleImpact{
		RowsBefore:  rowsBefore,
		RowsAfter:   rowsAfter,
		RowsRemoved: rowsBefore - rowsAfter,
	}

	logging.Ctx(ctx).Info().
		Str("policy", policy).
		Int64("invalid_detected", invalidDetected).
		Int64("rows_removed", impact.RowsRemoved).
		Msg("invalid hotel nights policy applied")
	return result, impact, nil
}

// WanderLens - Travel Customer Segmentation and Perk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wanderlens

// Package perks joins segment assignments with the configured persona/perk
// mapping and writes the customer perks artifact.
package perks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/wanderlens/internal/config"
	"github.com/tomtom215/wanderlens/internal/database"
	"github.com/tomtom215/wanderlens/internal/logging"
	"github.com/tomtom215/wanderlens/internal/metrics"
)

const (
	stageName = "perks"

	TableMapping = "perk_mapping"
	TablePerks   = "customer_perks"

	FileCustomerPerks = "customer_perks.csv"
)

// Result describes the perks stage outcome.
type Result struct {
	Users      int64  `json:"users"`
	Unmapped   int64  `json:"unmapped"`
	OutputPath string `json:"output_path"`
}

// Run joins the segment assignments Parquet with the static mapping and
// writes customer_perks.csv. Segments without a mapping entry keep their
// rows with empty persona fields, matching left-join semantics, and are
// surfaced in the result so a config gap is visible.
func Run(ctx context.Context, db *database.DB, cfg *config.Config, assignmentsPath, outputPath string) (result Result, err error) {
	start := time.Now()
	defer func() { metrics.ObserveStage(stageName, start, err) }()

	if len(cfg.Perks.Mapping) == 0 {
		return result, fmt.Errorf("perks mapping is empty; configure perks.mapping")
	}

	const assignTable = "segment_assignments_in"
	if err = db.RegisterParquet(ctx, assignTable, assignmentsPath); err != nil {
		return result, fmt.Errorf("loading assignments: %w", err)
	}

	if err = loadMapping(ctx, db, cfg.Perks.Mapping); err != nil {
		return result, err
	}

	query := fmt.Sprintf(`
		CREATE OR REPLACE TABLE %s AS
		SELECT
			a.user_id,
			a.segment,
			COALESCE(m.persona_name, '') AS persona_name,
			COALESCE(m.primary_perk, '') AS primary_perk
		FROM %s a
		LEFT JOIN %s m USING (segment)
		ORDER BY a.user_id`, TablePerks, assignTable, TableMapping)
	if err = db.Exec(ctx, query); err != nil {
		return result, fmt.Errorf("mapping perks: %w", err)
	}

	result.Users, err = db.CountRows(ctx, TablePerks)
	if err != nil {
		return result, err
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE persona_name = ''", TablePerks)
	if err = db.QueryRow(ctx, countQuery).Scan(&result.Unmapped); err != nil {
		return result, err
	}
	if result.Unmapped > 0 {
		logging.Ctx(ctx).Warn().
			Int64("unmapped", result.Unmapped).
			Msg("segments without a persona mapping; check perks.mapping")
	}

	if err = db.ExportCSV(ctx, TablePerks, outputPath); err != nil {
		return result, err
	}
	result.OutputPath = outputPath

	metrics.StageRows.WithLabelValues(stageName, TablePerks).Set(float64(result.Users))
	logging.Ctx(ctx).Info().
		Int64("users", result.Users).
		Str("output", outputPath).
		Dur("elapsed", time.Since(start)).
		Msg("perks stage complete")
	return result, nil
}

// loadMapping materializes the configured mapping as a DuckDB table.
func loadMapping(ctx context.Context, db *database.DB, mapping []config.PerkMapping) error {
	err := db.Exec(ctx, fmt.Sprintf(
		"CREATE OR REPLACE TABLE %s (segment INTEGER, persona_name VARCHAR, primary_perk VARCHAR)",
		TableMapping))
	if err != nil {
		return fmt.Errorf("creating mapping table: %w", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s VALUES ", TableMapping)
	args := make([]any, 0, len(mapping)*3)
	for i, m := range mapping {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(?, ?, ?)")
		args = append(args, m.Segment, m.PersonaName, m.PrimaryPerk)
	}
	if err := db.Exec(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("inserting mapping rows: %w", err)
	}
	return nil
}

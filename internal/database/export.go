// WanderLens - Travel Customer Segmentation and Perk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wanderlens

package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// ExportParquet writes a table (or view) to a Parquet file. ZSTD compression
// keeps the artifacts small without hurting downstream read speed.
func (db *DB) ExportParquet(ctx context.Context, table, outputPath string) error {
	if err := validateIdentifier(table); err != nil {
		return err
	}
	if err := ensureParentDir(outputPath); err != nil {
		return err
	}
	query := fmt.Sprintf("COPY %s TO %s (FORMAT PARQUET, COMPRESSION 'ZSTD')",
		quoteIdentifier(table), quoteLiteral(outputPath))
	if err := db.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to export %s to Parquet: %w", table, err)
	}
	return nil
}

// ExportQueryParquet writes an arbitrary query result to a Parquet file.
func (db *DB) ExportQueryParquet(ctx context.Context, query, outputPath string) error {
	if err := ensureParentDir(outputPath); err != nil {
		return err
	}
	stmt := fmt.Sprintf("COPY (%s) TO %s (FORMAT PARQUET, COMPRESSION 'ZSTD')",
		query, quoteLiteral(outputPath))
	if err := db.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("failed to export query to Parquet: %w", err)
	}
	return nil
}

// ExportCSV writes a table (or view) to a CSV file with a header row.
func (db *DB) ExportCSV(ctx context.Context, table, outputPath string) error {
	if err := validateIdentifier(table); err != nil {
		return err
	}
	if err := ensureParentDir(outputPath); err != nil {
		return err
	}
	query := fmt.Sprintf("COPY %s TO %s (FORMAT CSV, HEADER)",
		quoteIdentifier(table), quoteLiteral(outputPath))
	if err := db.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to export %s to CSV: %w", table, err)
	}
	return nil
}

// ensureParentDir creates the parent directory of an artifact path.
func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create artifact directory %s: %w", dir, err)
	}
	return nil
}

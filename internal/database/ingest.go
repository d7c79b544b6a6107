// WanderLens - Travel Customer Segmentation and Perk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wanderlens

package database

import (
	"context"
	"fmt"

	"github.com/tomtom215/wanderlens/internal/logging"
)

// RegisterCSV creates (or replaces) a table from a CSV file using DuckDB's
// schema inference. Header detection, type sniffing, and NULL handling follow
// read_csv_auto defaults.
func (db *DB) RegisterCSV(ctx context.Context, table, path string) error {
	if err := validateIdentifier(table); err != nil {
		return err
	}
	query := fmt.Sprintf("CREATE OR REPLACE TABLE %s AS SELECT * FROM read_csv_auto(%s)",
		quoteIdentifier(table), quoteLiteral(path))
	if err := db.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to register CSV %s as %s: %w", path, table, err)
	}

	n, err := db.CountRows(ctx, table)
	if err != nil {
		return err
	}
	logging.Ctx(ctx).Debug().Str("table", table).Str("path", path).Int64("rows", n).Msg("registered CSV table")
	return nil
}

// RegisterParquet creates (or replaces) a table from a Parquet file.
func (db *DB) RegisterParquet(ctx context.Context, table, path string) error {
	if err := validateIdentifier(table); err != nil {
		return err
	}
	query := fmt.Sprintf("CREATE OR REPLACE TABLE %s AS SELECT * FROM read_parquet(%s)",
		quoteIdentifier(table), quoteLiteral(path))
	if err := db.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to register Parquet %s as %s: %w", path, table, err)
	}

	n, err := db.CountRows(ctx, table)
	if err != nil {
		return err
	}
	logging.Ctx(ctx).Debug().Str("table", table).Str("path", path).Int64("rows", n).Msg("registered Parquet table")
	return nil
}

// RegisterFile dispatches on format ("csv" or "parquet").
func (db *DB) RegisterFile(ctx context.Context, table, path, format string) error {
	switch format {
	case "csv":
		return db.RegisterCSV(ctx, table, path)
	case "parquet":
		return db.RegisterParquet(ctx, table, path)
	default:
		return fmt.Errorf("unsupported bronze format: %q", format)
	}
}

// CreateTableAs materializes a query result as a table, replacing any
// previous table of the same name.
func (db *DB) CreateTableAs(ctx context.Context, table, query string, args ...any) error {
	if err := validateIdentifier(table); err != nil {
		return err
	}
	stmt := fmt.Sprintf("CREATE OR REPLACE TABLE %s AS %s", quoteIdentifier(table), query)
	if err := db.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("failed to materialize %s: %w", table, err)
	}
	return nil
}

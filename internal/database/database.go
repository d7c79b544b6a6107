// WanderLens - Travel Customer Segmentation and Perk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wanderlens

// Package database wraps DuckDB and provides the tabular substrate for the
// pipeline: CSV/Parquet ingestion, SQL joins and aggregation, and Parquet/CSV
// artifact export. All stages share one DB so intermediate tables stay inside
// DuckDB instead of round-tripping through Go slices.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/wanderlens/internal/config"
)

// defaultQueryTimeout bounds any single query when the caller passes a
// context without a deadline.
const defaultQueryTimeout = 5 * time.Minute

// DB wraps the DuckDB connection and provides data access methods.
type DB struct {
	conn *sql.DB
	cfg  *config.DatabaseConfig
}

// New opens (or creates) the DuckDB database described by cfg. An empty
// cfg.Path opens an in-memory database, which is the default for one-shot
// pipeline runs.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	path := cfg.Path
	if path == "" {
		path = ":memory:"
	} else {
		// Ensure the parent directory exists for file-backed databases.
		dbDir := filepath.Dir(path)
		if dbDir != "" && dbDir != "." {
			if err := os.MkdirAll(dbDir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
			}
		}
	}

	maxMemory := cfg.MaxMemory
	if maxMemory == "" {
		maxMemory = "2GB"
	}

	// Disable auto-install/auto-load to prevent hangs in restricted network
	// environments; the pipeline only uses built-in functions.
	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		path, numThreads, maxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn, cfg: cfg}

	// DuckDB is embedded; a single connection avoids per-connection catalog
	// divergence for temporary tables.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// NewInMemory opens a throwaway in-memory database. Intended for tests and
// single-run pipelines.
func NewInMemory() (*DB, error) {
	return New(&config.DatabaseConfig{})
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	return db.conn.Close()
}

// Ping verifies the connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	return db.conn.PingContext(ctx)
}

// ensureContext attaches the default query timeout when the caller's context
// has no deadline.
func (db *DB) ensureContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, defaultQueryTimeout)
}

// Exec runs a statement that returns no rows.
func (db *DB) Exec(ctx context.Context, query string, args ...any) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	if _, err := db.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("exec failed: %w", err)
	}
	return nil
}

// Query runs a statement and returns its rows. The caller owns the rows and
// must close them. The caller's context governs the cursor lifetime: no
// default timeout is attached here, because cancelling on return would tear
// down the cursor while the rows are still being read.
func (db *DB) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	return rows, nil
}

// QueryRow runs a statement expected to return a single row. The context must
// stay live until Scan is called, so no default timeout is attached.
func (db *DB) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	if ctx == nil {
		ctx = context.Background()
	}
	return db.conn.QueryRowContext(ctx, query, args...)
}

// CountRows returns the row count of a table or view.
func (db *DB) CountRows(ctx context.Context, table string) (int64, error) {
	if err := validateIdentifier(table); err != nil {
		return 0, err
	}
	var n int64
	if err := db.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteIdentifier(table))).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count rows in %s: %w", table, err)
	}
	return n, nil
}

// TableExists reports whether a table or view with the given name exists.
func (db *DB) TableExists(ctx context.Context, table string) (bool, error) {
	var n int
	err := db.QueryRow(ctx,
		"SELECT COUNT(*) FROM information_schema.tables WHERE table_name = ?", table).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check table existence: %w", err)
	}
	return n > 0, nil
}

// DropTable removes a table if it exists.
func (db *DB) DropTable(ctx context.Context, table string) error {
	if err := validateIdentifier(table); err != nil {
		return err
	}
	return db.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteIdentifier(table)))
}

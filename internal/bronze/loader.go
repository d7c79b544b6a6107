// WanderLens - Travel Customer Segmentation and Perk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wanderlens

// Package bronze resolves and loads the raw source tables (users, sessions,
// flights, hotels) that ship alongside the repository or are fetched from a
// remote bucket. Files land in DuckDB tables named after the source table.
package bronze

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tomtom215/wanderlens/internal/config"
	"github.com/tomtom215/wanderlens/internal/database"
	"github.com/tomtom215/wanderlens/internal/logging"
)

// ResolveTablePath returns the on-disk path for a bronze table, honoring the
// `<table>_full` filename convention: `users.csv` wins, else `users_full.csv`.
func ResolveTablePath(dir, table, format string) (string, error) {
	base := filepath.Join(dir, fmt.Sprintf("%s.%s", table, format))
	if _, err := os.Stat(base); err == nil {
		return base, nil
	}
	full := filepath.Join(dir, fmt.Sprintf("%s_full.%s", table, format))
	if _, err := os.Stat(full); err == nil {
		return full, nil
	}
	return "", fmt.Errorf("bronze table %q not found under %s (tried %s and %s)",
		table, dir, filepath.Base(base), filepath.Base(full))
}

// LoadTables registers every configured bronze table into the database and
// returns the per-table row counts observed at load time.
func LoadTables(ctx context.Context, db *database.DB, cfg *config.BronzeConfig) (map[string]int64, error) {
	counts := make(map[string]int64, len(cfg.Tables))
	for _, table := range cfg.Tables {
		path, err := ResolveTablePath(cfg.Dir, table, cfg.Format)
		if err != nil {
			return nil, err
		}
		if err := db.RegisterFile(ctx, table, path, cfg.Format); err != nil {
			return nil, err
		}
		n, err := db.CountRows(ctx, table)
		if err != nil {
			return nil, err
		}
		counts[table] = n
	}
	logging.Ctx(ctx).Info().Int("tables", len(counts)).Msg("bronze tables loaded")
	return counts, nil
}

// WanderLens - Travel Customer Segmentation and Perk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wanderlens

package perks

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tomtom215/wanderlens/internal/config"
	"github.com/tomtom215/wanderlens/internal/database"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.NewInMemory()
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func writeAssignments(t *testing.T, db *database.DB, path string) {
	t.Helper()
	ctx := context.Background()

	err := db.Exec(ctx, `CREATE TABLE assign (user_id BIGINT, segment INTEGER)`)
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	// Segment 9 has no mapping entry.
	err = db.Exec(ctx, `INSERT INTO assign VALUES (1, 0), (2, 1), (3, 0), (4, 9)`)
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if err := db.ExportParquet(ctx, "assign", path); err != nil {
		t.Fatalf("export failed: %v", err)
	}
}

func perksConfig() *config.Config {
	return &config.Config{
		Perks: config.PerksConfig{
			Mapping: []config.PerkMapping{
				{Segment: 0, PersonaName: "Frequent Flyers", PrimaryPerk: "free checked bag"},
				{Segment: 1, PersonaName: "Dreamers", PrimaryPerk: "exclusive discounts"},
			},
		},
	}
}

func TestRunMapsPerks(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	dir := t.TempDir()
	input := filepath.Join(dir, "segment_assignments.parquet")
	output := filepath.Join(dir, "customer_perks.csv")
	writeAssignments(t, db, input)

	result, err := Run(ctx, db, perksConfig(), input, output)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Users != 4 {
		t.Errorf("users = %d, want 4", result.Users)
	}
	if result.Unmapped != 1 {
		t.Errorf("unmapped = %d, want 1 (segment 9)", result.Unmapped)
	}

	var persona, perk string
	row := db.QueryRow(ctx, "SELECT persona_name, primary_perk FROM customer_perks WHERE user_id = 1")
	if err := row.Scan(&persona, &perk); err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if persona != "Frequent Flyers" || perk != "free checked bag" {
		t.Errorf("user 1 mapped to %q/%q", persona, perk)
	}

	// Unmapped segments survive with empty persona fields.
	row = db.QueryRow(ctx, "SELECT persona_name FROM customer_perks WHERE user_id = 4")
	if err := row.Scan(&persona); err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if persona != "" {
		t.Errorf("unmapped segment persona = %q, want empty", persona)
	}

	raw, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read output failed: %v", err)
	}
	csv := string(raw)
	if !strings.HasPrefix(csv, "user_id,segment,persona_name,primary_perk") {
		t.Errorf("csv header unexpected: %s", strings.SplitN(csv, "\n", 2)[0])
	}
	if !strings.Contains(csv, "Dreamers") {
		t.Error("csv missing mapped persona")
	}
}

func TestRunEmptyMappingFails(t *testing.T) {
	db := newTestDB(t)
	dir := t.TempDir()
	input := filepath.Join(dir, "segment_assignments.parquet")
	writeAssignments(t, db, input)

	cfg := &config.Config{}
	_, err := Run(context.Background(), db, cfg, input, filepath.Join(dir, "out.csv"))
	if err == nil {
		t.Fatal("expected error for empty mapping")
	}
}

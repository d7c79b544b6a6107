// WanderLens - Travel Customer Segmentation and Perk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wanderlens

package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// newTestDB opens an in-memory DuckDB and registers cleanup.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewInMemory()
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestNewInMemoryPing(t *testing.T) {
	db := newTestDB(t)
	if err := db.Ping(context.Background()); err != nil {
		t.Fatalf("ping failed: %v", err)
	}
}

func TestCreateTableAsAndCount(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	err := db.CreateTableAs(ctx, "numbers", "SELECT * FROM range(10) t(n)")
	if err != nil {
		t.Fatalf("CreateTableAs failed: %v", err)
	}

	n, err := db.CountRows(ctx, "numbers")
	if err != nil {
		t.Fatalf("CountRows failed: %v", err)
	}
	if n != 10 {
		t.Errorf("expected 10 rows, got %d", n)
	}

	exists, err := db.TableExists(ctx, "numbers")
	if err != nil {
		t.Fatalf("TableExists failed: %v", err)
	}
	if !exists {
		t.Error("numbers table should exist")
	}

	if err := db.DropTable(ctx, "numbers"); err != nil {
		t.Fatalf("DropTable failed: %v", err)
	}
	exists, err = db.TableExists(ctx, "numbers")
	if err != nil {
		t.Fatalf("TableExists after drop failed: %v", err)
	}
	if exists {
		t.Error("numbers table should be gone after drop")
	}
}

// Rows returned by Query must stay readable after the method returns, even
// when iteration is slow; a cursor torn down by a cancelled query context
// surfaces as "context canceled" from rows.Err.
func TestQueryRowsOutliveCall(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	rows, err := db.Query(ctx, "SELECT * FROM range(100000) t(n)")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	defer rows.Close()

	var count int64
	for rows.Next() {
		var n int64
		if err := rows.Scan(&n); err != nil {
			t.Fatalf("Scan failed at row %d: %v", count, err)
		}
		count++
		if count == 1 {
			time.Sleep(50 * time.Millisecond)
		}
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("rows.Err after %d rows: %v", count, err)
	}
	if count != 100000 {
		t.Errorf("expected 100000 rows, got %d", count)
	}
}

func TestQueryRowScanAfterPause(t *testing.T) {
	db := newTestDB(t)

	row := db.QueryRow(context.Background(), "SELECT 7")
	time.Sleep(50 * time.Millisecond)

	var n int64
	if err := row.Scan(&n); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if n != 7 {
		t.Errorf("expected 7, got %d", n)
	}
}

func TestValidateIdentifier(t *testing.T) {
	valid := []string{"sessions", "users_agg", "_tmp", "Table1"}
	for _, name := range valid {
		if err := validateIdentifier(name); err != nil {
			t.Errorf("validateIdentifier(%q) unexpectedly failed: %v", name, err)
		}
	}

	invalid := []string{"", "1table", "se ssions", "users;drop", "a-b", "x'y"}
	for _, name := range invalid {
		if err := validateIdentifier(name); err == nil {
			t.Errorf("validateIdentifier(%q) should have failed", name)
		}
	}
}

func TestRegisterCSVRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	dir := t.TempDir()
	csvPath := filepath.Join(dir, "users.csv")
	content := "user_id,home_city,sign_up_date\n1,berlin,2023-03-01\n2,lisbon,2023-07-15\n3,oslo,2023-11-30\n"
	if err := os.WriteFile(csvPath, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := db.RegisterCSV(ctx, "users", csvPath); err != nil {
		t.Fatalf("RegisterCSV failed: %v", err)
	}

	n, err := db.CountRows(ctx, "users")
	if err != nil {
		t.Fatalf("CountRows failed: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 rows, got %d", n)
	}

	var city string
	err = db.QueryRow(ctx, "SELECT home_city FROM users WHERE user_id = 2").Scan(&city)
	if err != nil {
		t.Fatalf("QueryRow failed: %v", err)
	}
	if city != "lisbon" {
		t.Errorf("expected lisbon, got %q", city)
	}
}

func TestExportImportParquet(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.CreateTableAs(ctx, "src", "SELECT n, n * 2 AS doubled FROM range(5) t(n)"); err != nil {
		t.Fatalf("CreateTableAs failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "out", "src.parquet")
	if err := db.ExportParquet(ctx, "src", path); err != nil {
		t.Fatalf("ExportParquet failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("exported file missing: %v", err)
	}

	if err := db.RegisterParquet(ctx, "roundtrip", path); err != nil {
		t.Fatalf("RegisterParquet failed: %v", err)
	}
	var total int64
	if err := db.QueryRow(ctx, "SELECT SUM(doubled) FROM roundtrip").Scan(&total); err != nil {
		t.Fatalf("sum query failed: %v", err)
	}
	if total != 20 { // 0+2+4+6+8
		t.Errorf("expected sum 20, got %d", total)
	}
}

func TestExportCSVHasHeader(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.CreateTableAs(ctx, "src", "SELECT 1 AS a, 'x' AS b"); err != nil {
		t.Fatalf("CreateTableAs failed: %v", err)
	}
	path := filepath.Join(t.TempDir(), "src.csv")
	if err := db.ExportCSV(ctx, "src", path); err != nil {
		t.Fatalf("ExportCSV failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := string(data); len(got) == 0 || got[:3] != "a,b" {
		t.Errorf("expected header a,b first, got %q", got)
	}
}

func TestRegisterFileUnsupportedFormat(t *testing.T) {
	db := newTestDB(t)
	err := db.RegisterFile(context.Background(), "t", "path", "xlsx")
	if err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

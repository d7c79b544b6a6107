// WanderLens - Travel Customer Segmentation and Perk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wanderlens

package artifacts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestCreateRunDirCollisionFallback(t *testing.T) {
	base := t.TempDir()
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	first, err := CreateRunDir(base, "eda", now)
	if err != nil {
		t.Fatalf("CreateRunDir failed: %v", err)
	}
	if filepath.Base(first) != "20260830_120000Z" {
		t.Errorf("slug = %s, want 20260830_120000Z", filepath.Base(first))
	}

	second, err := CreateRunDir(base, "eda", now)
	if err != nil {
		t.Fatalf("fallback CreateRunDir failed: %v", err)
	}
	if filepath.Base(second) != "eda-20260830_120000Z" {
		t.Errorf("fallback slug = %s, want eda-20260830_120000Z", filepath.Base(second))
	}

	if _, err := CreateRunDir(base, "eda", now); err == nil {
		t.Fatal("expected error on second collision")
	}
}

func TestFindLatestRunDir(t *testing.T) {
	base := t.TempDir()
	for _, name := range []string{"20260101_000000Z", "20260830_120000Z", "20250601_090000Z"} {
		if err := os.Mkdir(filepath.Join(base, name), 0o755); err != nil {
			t.Fatalf("mkdir failed: %v", err)
		}
	}

	latest, err := FindLatestRunDir(base)
	if err != nil {
		t.Fatalf("FindLatestRunDir failed: %v", err)
	}
	if filepath.Base(latest) != "20260830_120000Z" {
		t.Errorf("latest = %s, want 20260830_120000Z", filepath.Base(latest))
	}

	if _, err := FindLatestRunDir(t.TempDir()); err == nil {
		t.Error("expected error for empty base directory")
	}
}

func TestWriteJSONAndYAML(t *testing.T) {
	dir := t.TempDir()
	payload := map[string]any{"rows": 42, "stage": "eda"}

	jsonPath := filepath.Join(dir, "run_metadata.json")
	if err := WriteJSON(jsonPath, payload); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}
	raw, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !strings.Contains(string(raw), `"stage": "eda"`) {
		t.Errorf("json output unexpected: %s", raw)
	}

	yamlPath := filepath.Join(dir, "metadata.yaml")
	if err := WriteYAML(yamlPath, payload); err != nil {
		t.Fatalf("WriteYAML failed: %v", err)
	}
	raw, err = os.ReadFile(yamlPath)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !strings.Contains(string(raw), "stage: eda") {
		t.Errorf("yaml output unexpected: %s", raw)
	}
}

func TestDescribeArtifacts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.bin")
	if err := os.WriteFile(path, []byte("wanderlens"), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	arts, err := DescribeArtifacts([]string{path})
	if err != nil {
		t.Fatalf("DescribeArtifacts failed: %v", err)
	}
	if len(arts) != 1 {
		t.Fatalf("artifacts = %d, want 1", len(arts))
	}
	if arts[0].Bytes != 10 {
		t.Errorf("bytes = %d, want 10", arts[0].Bytes)
	}
	if len(arts[0].SHA256) != 64 {
		t.Errorf("sha256 length = %d, want 64 hex chars", len(arts[0].SHA256))
	}

	if _, err := DescribeArtifacts([]string{filepath.Join(dir, "missing")}); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLedgerRecordAndList(t *testing.T) {
	ledger, err := OpenLedger("")
	if err != nil {
		t.Fatalf("OpenLedger failed: %v", err)
	}
	t.Cleanup(func() { _ = ledger.Close() })

	base := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	for i, stage := range []string{"eda", "segment", "eda"} {
		meta := RunMetadata{
			RunID:       NewRunID(),
			Stage:       stage,
			RunDir:      "/tmp/run",
			StartedAt:   base.Add(time.Duration(i) * time.Hour),
			CompletedAt: base.Add(time.Duration(i)*time.Hour + 5*time.Minute),
		}
		if err := ledger.Record(meta); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	all, err := ledger.List("")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("runs = %d, want 3", len(all))
	}
	if !all[0].CompletedAt.After(all[1].CompletedAt) {
		t.Error("runs not sorted newest first")
	}

	edaRuns, err := ledger.List("eda")
	if err != nil {
		t.Fatalf("List(eda) failed: %v", err)
	}
	if len(edaRuns) != 2 {
		t.Errorf("eda runs = %d, want 2", len(edaRuns))
	}

	latest, err := ledger.Latest("eda")
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if !latest.CompletedAt.Equal(base.Add(2*time.Hour + 5*time.Minute)) {
		t.Errorf("latest eda run completed at %v", latest.CompletedAt)
	}

	if _, err := ledger.Latest("perks"); err == nil {
		t.Error("expected error for stage with no runs")
	}
}

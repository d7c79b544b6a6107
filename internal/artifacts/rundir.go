// WanderLens - Travel Customer Segmentation and Perk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wanderlens

// Package artifacts manages versioned run directories, run metadata files,
// and the BadgerDB run ledger that makes completed runs discoverable.
package artifacts

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// slugFormat yields stable UTC folder names that sort chronologically.
const slugFormat = "20060102_150405Z"

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// TimestampSlug formats t as a run directory slug.
func TimestampSlug(t time.Time) string {
	return t.UTC().Format(slugFormat)
}

// CreateRunDir creates a versioned run directory under baseDir. The primary
// name is the UTC timestamp slug; on collision it retries once as
// `<stage>-<slug>`. A second collision fails loudly rather than risk mixing
// two runs' artifacts.
func CreateRunDir(baseDir, stage string, now time.Time) (string, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return "", fmt.Errorf("creating artifacts base %s: %w", baseDir, err)
	}

	slug := TimestampSlug(now)
	candidates := []string{
		filepath.Join(baseDir, slug),
		filepath.Join(baseDir, stage+"-"+slug),
	}

	for _, dir := range candidates {
		err := os.Mkdir(dir, 0o755)
		if err == nil {
			return dir, nil
		}
		if !os.IsExist(err) {
			return "", fmt.Errorf("creating run directory %s: %w", dir, err)
		}
	}
	return "", fmt.Errorf("run directory %s already exists (and the %s fallback); refusing to reuse it", candidates[0], stage)
}

// FindLatestRunDir returns the lexicographically last run directory under
// baseDir. Slug naming makes lexicographic order chronological.
func FindLatestRunDir(baseDir string) (string, error) {
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		return "", fmt.Errorf("reading artifacts base %s: %w", baseDir, err)
	}

	var latest string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if latest == "" || e.Name() > latest {
			latest = e.Name()
		}
	}
	if latest == "" {
		return "", fmt.Errorf("no run directories found in %s", baseDir)
	}
	return filepath.Join(baseDir, latest), nil
}

// WanderLens - Travel Customer Segmentation and Perk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wanderlens

package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/wanderlens/internal/config"
)

func testFetchConfig(baseURL string) *config.FetchConfig {
	return &config.FetchConfig{
		BaseURL:       baseURL,
		Timeout:       5 * time.Second,
		MaxRetries:    2,
		RetryDelay:    time.Millisecond,
		RatePerSecond: 1000,
	}
}

func TestFetchFileSuccess(t *testing.T) {
	body := "user_id,session_id\n1,s1\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sessions.csv" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, body)
	}))
	defer srv.Close()

	f, err := New(testFetchConfig(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	dest := filepath.Join(t.TempDir(), "sessions.csv")
	res, err := f.FetchFile(context.Background(), "sessions.csv", dest)
	if err != nil {
		t.Fatalf("FetchFile: %v", err)
	}

	if res.Bytes != int64(len(body)) {
		t.Errorf("Bytes = %d, want %d", res.Bytes, len(body))
	}
	if res.Verified {
		t.Error("Verified = true without a manifest")
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("reading downloaded file: %v", err)
	}
	if string(got) != body {
		t.Errorf("downloaded content = %q, want %q", got, body)
	}

	sum := sha256.Sum256([]byte(body))
	if res.SHA256 != hex.EncodeToString(sum[:]) {
		t.Errorf("SHA256 = %s, want %s", res.SHA256, hex.EncodeToString(sum[:]))
	}
}

func TestFetchFileRetriesTransientFailure(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	f, err := New(testFetchConfig(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	res, err := f.FetchFile(context.Background(), "flights.csv", filepath.Join(t.TempDir(), "flights.csv"))
	if err != nil {
		t.Fatalf("FetchFile: %v", err)
	}
	if res.Bytes != 2 {
		t.Errorf("Bytes = %d, want 2", res.Bytes)
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("server hits = %d, want 2", got)
	}
}

func TestFetchFileExhaustsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f, err := New(testFetchConfig(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = f.FetchFile(context.Background(), "hotels.csv", filepath.Join(t.TempDir(), "hotels.csv"))
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if !strings.Contains(err.Error(), "attempts failed") {
		t.Errorf("error = %v, want attempts-failed message", err)
	}
}

func TestFetchFileBreakerOpensOnRepeatedFailure(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cfg := testFetchConfig(srv.URL)
	cfg.MaxRetries = 6
	cfg.BreakerTimeout = time.Hour

	f, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = f.FetchFile(context.Background(), "users.csv", filepath.Join(t.TempDir(), "users.csv"))
	if err == nil {
		t.Fatal("expected error")
	}

	// The breaker trips after three consecutive failures, so later attempts
	// never reach the server.
	if got := hits.Load(); got != 3 {
		t.Errorf("server hits = %d, want 3", got)
	}
}

func TestFetchFileChecksumVerification(t *testing.T) {
	body := "segment,persona\n"
	sum := sha256.Sum256([]byte(body))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body)
	}))
	defer srv.Close()

	manifest := filepath.Join(t.TempDir(), "SHA256SUMS")
	content := "# bronze manifest\n" +
		hex.EncodeToString(sum[:]) + "  good.csv\n" +
		strings.Repeat("0", 64) + "  bad.csv\n"
	if err := os.WriteFile(manifest, []byte(content), 0o644); err != nil {
		t.Fatalf("writing manifest: %v", err)
	}

	cfg := testFetchConfig(srv.URL)
	cfg.ChecksumsPath = manifest
	f, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	dir := t.TempDir()

	res, err := f.FetchFile(context.Background(), "good.csv", filepath.Join(dir, "good.csv"))
	if err != nil {
		t.Fatalf("FetchFile good: %v", err)
	}
	if !res.Verified {
		t.Error("Verified = false for matching checksum")
	}

	_, err = f.FetchFile(context.Background(), "bad.csv", filepath.Join(dir, "bad.csv"))
	if err == nil || !strings.Contains(err.Error(), "checksum mismatch") {
		t.Errorf("error = %v, want checksum mismatch", err)
	}
}

func TestFetchAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "data for %s", r.URL.Path)
	}))
	defer srv.Close()

	f, err := New(testFetchConfig(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	destDir := filepath.Join(t.TempDir(), "bronze")
	results, err := f.FetchAll(context.Background(), []string{"sessions.csv", "users.csv"}, destDir)
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	for _, res := range results {
		if _, err := os.Stat(res.Path); err != nil {
			t.Errorf("missing downloaded file %s: %v", res.Path, err)
		}
	}
}

func TestNewRejectsMissingBaseURL(t *testing.T) {
	if _, err := New(&config.FetchConfig{}); err == nil {
		t.Fatal("expected error for empty base_url")
	}
}

func TestLoadChecksumsMalformedLine(t *testing.T) {
	manifest := filepath.Join(t.TempDir(), "SHA256SUMS")
	if err := os.WriteFile(manifest, []byte("not-a-valid-line\n"), 0o644); err != nil {
		t.Fatalf("writing manifest: %v", err)
	}
	if _, err := loadChecksums(manifest); err == nil {
		t.Fatal("expected error for malformed manifest line")
	}
}

// WanderLens - Travel Customer Segmentation and Perk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wanderlens

// Package fetch downloads bronze data files from a configured remote base
// URL with client-side rate limiting, a circuit breaker, bounded retries,
// and optional sha256 verification against a checksum manifest.
package fetch

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/wanderlens/internal/config"
	"github.com/tomtom215/wanderlens/internal/logging"
	"github.com/tomtom215/wanderlens/internal/metrics"
)

// Fetcher retrieves bronze files over HTTP.
type Fetcher struct {
	cfg       *config.FetchConfig
	client    *http.Client
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker[int64]
	checksums map[string]string
}

// FileResult is the outcome for one fetched file.
type FileResult struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Bytes    int64  `json:"bytes"`
	SHA256   string `json:"sha256"`
	Verified bool   `json:"verified"`
}

// New builds a Fetcher from config. A checksum manifest, when configured,
// must exist; silently skipping verification would defeat its purpose.
func New(cfg *config.FetchConfig) (*Fetcher, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("fetch.base_url is not configured")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	ratePerSecond := cfg.RatePerSecond
	if ratePerSecond <= 0 {
		ratePerSecond = 2
	}

	breakerTimeout := cfg.BreakerTimeout
	if breakerTimeout <= 0 {
		breakerTimeout = 30 * time.Second
	}
	name := cfg.BreakerName
	if name == "" {
		name = "bronze-fetch"
	}

	f := &Fetcher{
		cfg:     cfg,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), 1),
	}

	f.breaker = gobreaker.NewCircuitBreaker[int64](gobreaker.Settings{
		Name:    name,
		Timeout: breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("fetch circuit breaker state change")
		},
	})

	if cfg.ChecksumsPath != "" {
		sums, err := loadChecksums(cfg.ChecksumsPath)
		if err != nil {
			return nil, err
		}
		f.checksums = sums
	}
	return f, nil
}

// FetchAll downloads every named file into destDir.
func (f *Fetcher) FetchAll(ctx context.Context, names []string, destDir string) ([]FileResult, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating destination %s: %w", destDir, err)
	}

	results := make([]FileResult, 0, len(names))
	for _, name := range names {
		res, err := f.FetchFile(ctx, name, filepath.Join(destDir, name))
		if err != nil {
			return results, fmt.Errorf("fetching %s: %w", name, err)
		}
		results = append(results, res)
	}
	return results, nil
}

// FetchFile downloads one file with retries, then verifies it against the
// manifest when one is loaded.
func (f *Fetcher) FetchFile(ctx context.Context, name, destPath string) (FileResult, error) {
	res := FileResult{Name: name, Path: destPath}

	fileURL, err := url.JoinPath(f.cfg.BaseURL, name)
	if err != nil {
		return res, fmt.Errorf("building url: %w", err)
	}

	retryDelay := f.cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = 2 * time.Second
	}

	var lastErr error
	for attempt := 0; attempt <= f.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			logging.Debug().
				Str("file", name).
				Int("attempt", attempt).
				Err(lastErr).
				Msg("retrying fetch")
			select {
			case <-ctx.Done():
				return res, ctx.Err()
			case <-time.After(retryDelay):
			}
		}

		if err := f.limiter.Wait(ctx); err != nil {
			return res, err
		}

		n, err := f.breaker.Execute(func() (int64, error) {
			return f.download(ctx, fileURL, destPath)
		})
		if err != nil {
			lastErr = err
			metrics.FetchErrors.WithLabelValues(errorType(err)).Inc()
			continue
		}

		res.Bytes = n
		metrics.FetchBytes.Add(float64(n))

		sum, err := hashFile(destPath)
		if err != nil {
			return res, err
		}
		res.SHA256 = sum

		if want, ok := f.checksums[name]; ok {
			if !strings.EqualFold(want, sum) {
				metrics.FetchErrors.WithLabelValues("checksum").Inc()
				return res, fmt.Errorf("checksum mismatch for %s: manifest %s, got %s", name, want, sum)
			}
			res.Verified = true
		}

		logging.Info().
			Str("file", name).
			Int64("bytes", n).
			Bool("verified", res.Verified).
			Msg("bronze file fetched")
		return res, nil
	}
	return res, fmt.Errorf("all %d attempts failed: %w", f.cfg.MaxRetries+1, lastErr)
}

func (f *Fetcher) download(ctx context.Context, fileURL, destPath string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return 0, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, fileURL)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(out, resp.Body)
	if err != nil {
		_ = out.Close()
		_ = os.Remove(destPath)
		return 0, fmt.Errorf("writing %s: %w", destPath, err)
	}
	return n, out.Close()
}

// loadChecksums parses a `sha256sum`-style manifest: hex digest, whitespace,
// file name per line. Blank lines and # comments are skipped.
func loadChecksums(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening checksum manifest: %w", err)
	}
	defer file.Close()

	sums := make(map[string]string)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("malformed checksum line: %q", line)
		}
		sums[strings.TrimPrefix(fields[1], "*")] = fields[0]
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading checksum manifest: %w", err)
	}
	return sums, nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func errorType(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "breaker"
	case strings.Contains(err.Error(), "unexpected status"):
		return "http"
	default:
		return "transport"
	}
}

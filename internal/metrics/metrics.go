// WanderLens - Travel Customer Segmentation and Perk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wanderlens

// Package metrics provides Prometheus instrumentation for the pipeline and
// the artifact server. Metrics are exported at /metrics when the serve
// command is running; batch runs update the same collectors so a co-located
// server reflects the most recent run.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StageDuration tracks wall-clock duration per pipeline stage.
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_stage_duration_seconds",
			Help:    "Duration of pipeline stages in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"stage"}, // "eda", "features", "segment", "perks", "fetch"
	)

	// StageRows records the row count a stage produced.
	StageRows = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pipeline_stage_rows",
			Help: "Rows produced by the most recent execution of a stage",
		},
		[]string{"stage", "table"},
	)

	// RowsRemoved counts rows dropped by cleaning rules.
	RowsRemoved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_rows_removed_total",
			Help: "Rows removed by validity and outlier rules",
		},
		[]string{"rule"},
	)

	// RunsTotal counts completed pipeline runs by outcome.
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_runs_total",
			Help: "Completed pipeline runs by status",
		},
		[]string{"stage", "status"}, // status: "ok", "error"
	)

	// FetchBytes counts bytes downloaded by the bronze fetcher.
	FetchBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bronze_fetch_bytes_total",
			Help: "Total bytes downloaded from the remote bronze source",
		},
	)

	// FetchErrors counts bronze fetch failures by kind.
	FetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bronze_fetch_errors_total",
			Help: "Bronze fetch failures",
		},
		[]string{"error_type"}, // "http", "checksum", "breaker"
	)

	// HTTPRequestDuration tracks artifact server latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"method", "path"},
	)
)

// ObserveStage records a stage execution with its duration and outcome.
func ObserveStage(stage string, start time.Time, err error) {
	StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	status := "ok"
	if err != nil {
		status = "error"
	}
	RunsTotal.WithLabelValues(stage, status).Inc()
}

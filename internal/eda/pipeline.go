// WanderLens - Travel Customer Segmentation and Perk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wanderlens

package eda

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/tomtom215/wanderlens/internal/bronze"
	"github.com/tomtom215/wanderlens/internal/config"
	"github.com/tomtom215/wanderlens/internal/database"
	"github.com/tomtom215/wanderlens/internal/features"
	"github.com/tomtom215/wanderlens/internal/logging"
	"github.com/tomtom215/wanderlens/internal/metrics"
)

const (
	stageName = "eda"

	// Artifact file names within a run directory.
	FileSessionsClean = "sessions_clean.parquet"
	FileUsersAgg      = "users_agg.parquet"
	FileHTMLReport    = "eda_report.html"
	FileDQReport      = "dq_report.md"
)

// TableUsersAgg is the in-database name of the first user aggregation.
const TableUsersAgg = "users_agg"

// RunResult describes a completed EDA run.
type RunResult struct {
	RunDir    string   `json:"run_dir"`
	Metadata  Metadata `json:"metadata"`
	Artifacts []string `json:"artifacts"`
}

// Run executes the full EDA stage into runDir: load bronze tables, extract
// the cohort-scoped session-level table, apply validity and outlier rules,
// aggregate to user level, and write every artifact. The caller owns the run
// directory; partial artifacts on error are the caller's to discard.
func Run(ctx context.Context, db *database.DB, cfg *config.Config, runDir string) (result *RunResult, err error) {
	start := time.Now()
	defer func() { metrics.ObserveStage(stageName, start, err) }()

	log := logging.Ctx(ctx)
	meta := Metadata{}

	sourceCounts, err := bronze.LoadTables(ctx, db, &cfg.Bronze)
	if err != nil {
		return nil, fmt.Errorf("loading bronze tables: %w", err)
	}
	meta.SourceTableRowCounts = sourceCounts

	if _, err = ExtractSessionLevel(ctx, db, cfg); err != nil {
		return nil, fmt.Errorf("extracting session level: %w", err)
	}
	if err = AddDerivedColumns(ctx, db); err != nil {
		return nil, fmt.Errorf("adding derived columns: %w", err)
	}
	meta.Rows.SessionLevelRaw, err = db.CountRows(ctx, TableSessionLevel)
	if err != nil {
		return nil, err
	}
	metrics.StageRows.WithLabelValues(stageName, TableSessionLevel).Set(float64(meta.Rows.SessionLevelRaw))

	validity, nightsResult, checks, err := ApplyValidityRules(ctx, db, cfg)
	if err != nil {
		return nil, fmt.Errorf("applying validity rules: %w", err)
	}
	meta.ValidityRules = validity
	meta.ValidationChecks = checks
	meta.InvalidHotelNights = nightsResult
	meta.Rows.SessionLevelAfterValidity, err = db.CountRows(ctx, TableSessionLevel)
	if err != nil {
		return nil, err
	}

	outliers, _, err := RemoveOutliers(ctx, db, cfg)
	if err != nil {
		return nil, fmt.Errorf("removing outliers: %w", err)
	}
	meta.Outliers = outliers
	meta.Rows.SessionLevelClean, err = db.CountRows(ctx, TableSessionLevel)
	if err != nil {
		return nil, err
	}

	if err = features.BuildUserFeatures(ctx, db, TableSessionLevel, TableUsersAgg); err != nil {
		return nil, fmt.Errorf("aggregating users: %w", err)
	}

	var artifacts []string
	write := func(path string, fn func() error) error {
		if err := fn(); err != nil {
			return err
		}
		artifacts = append(artifacts, path)
		return nil
	}

	sessionsPath := filepath.Join(runDir, FileSessionsClean)
	if err = write(sessionsPath, func() error {
		return db.ExportParquet(ctx, TableSessionLevel, sessionsPath)
	}); err != nil {
		return nil, err
	}

	usersPath := filepath.Join(runDir, FileUsersAgg)
	if err = write(usersPath, func() error {
		return db.ExportParquet(ctx, TableUsersAgg, usersPath)
	}); err != nil {
		return nil, err
	}

	layered, err := BuildLayeredTables(ctx, db, runDir)
	if err != nil {
		return nil, fmt.Errorf("building layered tables: %w", err)
	}
	artifacts = append(artifacts, layered...)

	reportData, err := buildReportData(ctx, db, cfg, meta)
	if err != nil {
		return nil, fmt.Errorf("collecting report data: %w", err)
	}
	reportPath := filepath.Join(runDir, FileHTMLReport)
	if err = write(reportPath, func() error {
		return RenderHTMLReport(reportPath, reportData)
	}); err != nil {
		return nil, err
	}

	dqPath := filepath.Join(runDir, FileDQReport)
	if err = write(dqPath, func() error {
		return WriteDQReport(dqPath, RenderDQReport(meta))
	}); err != nil {
		return nil, err
	}

	log.Info().
		Str("run_dir", runDir).
		Int64("sessions_clean", meta.Rows.SessionLevelClean).
		Int("artifacts", len(artifacts)).
		Dur("elapsed", time.Since(start)).
		Msg("eda stage complete")

	return &RunResult{RunDir: runDir, Metadata: meta, Artifacts: artifacts}, nil
}

func buildReportData(ctx context.Context, db *database.DB, cfg *config.Config, meta Metadata) (ReportData, error) {
	data := ReportData{
		Title:       cfg.Report.Title,
		GeneratedAt: NowStamp(),
	}

	var err error
	if data.SessionShape, err = BuildOverview(ctx, db, TableSessionLevel); err != nil {
		return data, err
	}
	if data.UserShape, err = BuildOverview(ctx, db, TableUsersAgg); err != nil {
		return data, err
	}
	if data.SessionMiss, err = BuildMissingness(ctx, db, TableSessionLevel); err != nil {
		return data, err
	}
	if data.UserMiss, err = BuildMissingness(ctx, db, TableUsersAgg); err != nil {
		return data, err
	}
	if data.Stats, err = BuildDescriptiveStats(ctx, db, TableSessionLevel); err != nil {
		return data, err
	}
	if data.Correlations, err = BuildCorrelationPairs(ctx, db, TableSessionLevel, 10); err != nil {
		return data, err
	}
	if data.Charts, err = BuildCharts(ctx, db, TableSessionLevel); err != nil {
		return data, err
	}

	data.Insights = DeriveKeyInsights(data.SessionMiss, meta.Outliers, data.Correlations)
	data.Hypotheses = DeriveHypotheses(data.Correlations)

	n := cfg.Report.IncludeSampleRows
	if data.SessionSample, err = BuildSampleTable(ctx, db, TableSessionLevel, n); err != nil {
		return data, err
	}
	if data.UserSample, err = BuildSampleTable(ctx, db, TableUsersAgg, n); err != nil {
		return data, err
	}
	return data, nil
}

// WanderLens - Travel Customer Segmentation and Perk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wanderlens

package features

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/wanderlens/internal/database"
	"github.com/tomtom215/wanderlens/internal/logging"
	"github.com/tomtom215/wanderlens/internal/metrics"
)

const stageName = "features"

// FileUserFeatures is the default artifact file name for the feature table.
const FileUserFeatures = "user_features.parquet"

// Result reports what the standalone features stage produced.
type Result struct {
	InputPath  string `json:"input_path"`
	OutputPath string `json:"output_path"`
	Users      int64  `json:"users"`
}

// Run executes the standalone features stage: load the cleaned session-level
// Parquet, aggregate to one row per user, verify the output schema, and
// export the feature table as Parquet.
func Run(ctx context.Context, db *database.DB, inputPath, outputPath string) (res Result, err error) {
	start := time.Now()
	defer func() { metrics.ObserveStage(stageName, start, err) }()

	const srcTable = "session_clean"
	if err = db.RegisterParquet(ctx, srcTable, inputPath); err != nil {
		return res, fmt.Errorf("loading cleaned sessions: %w", err)
	}

	if err = BuildUserFeatures(ctx, db, srcTable, TableUserFeatures); err != nil {
		return res, err
	}
	if err = VerifySchema(ctx, db, TableUserFeatures); err != nil {
		return res, err
	}

	users, err := db.CountRows(ctx, TableUserFeatures)
	if err != nil {
		return res, err
	}
	metrics.StageRows.WithLabelValues(stageName, TableUserFeatures).Set(float64(users))

	if err = db.ExportParquet(ctx, TableUserFeatures, outputPath); err != nil {
		return res, err
	}

	logging.Ctx(ctx).Info().
		Str("output", outputPath).
		Int64("users", users).
		Dur("elapsed", time.Since(start)).
		Msg("features stage complete")

	return Result{InputPath: inputPath, OutputPath: outputPath, Users: users}, nil
}

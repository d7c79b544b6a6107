// WanderLens - Travel Customer Segmentation and Perk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wanderlens

package segment

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tomtom215/wanderlens/internal/config"
	"github.com/tomtom215/wanderlens/internal/database"
	"github.com/tomtom215/wanderlens/internal/logging"
	"github.com/tomtom215/wanderlens/internal/metrics"
)

const (
	stageName = "segment"

	TableAssignments = "segment_assignments"
	TableFeatures    = "user_features"

	FileAssignments    = "segment_assignments.parquet"
	FileSummary        = "segment_summary.parquet"
	FileDecisionReport = "decision_report.md"
)

// Result describes a completed segmentation run.
type Result struct {
	Users         int      `json:"users"`
	ChosenK       int      `json:"chosen_k"`
	Silhouette    float64  `json:"silhouette"`
	HasSilhouette bool     `json:"has_silhouette"`
	Artifacts     []string `json:"artifacts"`
}

// Run executes the segmentation stage: load the feature table, scale,
// optionally project with PCA, run the evaluation sweeps, fit the final
// K-Means model, and write assignments, per-segment summary, and the
// decision report into outDir.
func Run(ctx context.Context, db *database.DB, cfg *config.Config, inputPath, outDir string) (result *Result, err error) {
	start := time.Now()
	defer func() { metrics.ObserveStage(stageName, start, err) }()

	seg := cfg.Segmentation

	if err = db.RegisterParquet(ctx, TableFeatures, inputPath); err != nil {
		return nil, fmt.Errorf("loading feature table: %w", err)
	}

	fm, err := LoadFeatureMatrix(ctx, db, TableFeatures, seg.Features)
	if err != nil {
		return nil, err
	}
	StandardScale(fm.Data)

	matrix := fm.Data
	if seg.PCA.Enabled {
		matrix, err = ProjectPCA(fm.Data, seg.PCA.NComponents)
		if err != nil {
			return nil, fmt.Errorf("pca projection: %w", err)
		}
	}

	kSweep, err := RunKSweep(matrix, seg.KSweep, seg.NInit, seg.RandomSeed)
	if err != nil {
		return nil, fmt.Errorf("k sweep: %w", err)
	}
	seedSweep, err := RunSeedSweep(matrix, seg.ChosenK, seg.SeedSweep, seg.NInit)
	if err != nil {
		return nil, fmt.Errorf("seed sweep: %w", err)
	}

	eps, minSamples := seg.DBSCAN.Eps, seg.DBSCAN.MinSamples
	if !seg.DBSCAN.Enabled {
		eps, minSamples = 0.5, 5
	}
	comparison, err := CompareAlgorithms(matrix, seg.ChosenK, seg.NInit, seg.RandomSeed, eps, minSamples)
	if err != nil {
		return nil, fmt.Errorf("algorithm comparison: %w", err)
	}

	final, err := KMeans(matrix, seg.ChosenK, seg.NInit, seg.RandomSeed)
	if err != nil {
		return nil, fmt.Errorf("final clustering: %w", err)
	}
	silhouette, hasSil := Silhouette(matrix, final.Labels)

	if err = storeAssignments(ctx, db, fm.UserIDs, final.Labels); err != nil {
		return nil, err
	}

	var artifacts []string
	assignPath := filepath.Join(outDir, FileAssignments)
	if err = db.ExportParquet(ctx, TableAssignments, assignPath); err != nil {
		return nil, err
	}
	artifacts = append(artifacts, assignPath)

	summaryPath := filepath.Join(outDir, FileSummary)
	if err = buildSummary(ctx, db, summaryPath); err != nil {
		return nil, err
	}
	artifacts = append(artifacts, summaryPath)

	report := DecisionReport{
		ChosenK:       seg.ChosenK,
		Silhouette:    silhouette,
		HasSilhouette: hasSil,
		KSweep:        kSweep,
		SeedSweep:     seedSweep,
		Comparison:    comparison,
		Rationale:     "Chosen k based on silhouette, interpretability, and persona stability across seeds.",
	}
	reportPath := filepath.Join(outDir, FileDecisionReport)
	if err = os.WriteFile(reportPath, []byte(RenderDecisionReport(report)), 0o644); err != nil {
		return nil, fmt.Errorf("writing decision report: %w", err)
	}
	artifacts = append(artifacts, reportPath)

	metrics.StageRows.WithLabelValues(stageName, TableAssignments).Set(float64(len(fm.UserIDs)))
	logging.Ctx(ctx).Info().
		Int("users", len(fm.UserIDs)).
		Int("k", seg.ChosenK).
		Float64("silhouette", silhouette).
		Dur("elapsed", time.Since(start)).
		Msg("segment stage complete")

	return &Result{
		Users:         len(fm.UserIDs),
		ChosenK:       seg.ChosenK,
		Silhouette:    silhouette,
		HasSilhouette: hasSil,
		Artifacts:     artifacts,
	}, nil
}

// storeAssignments writes the (user_id, segment) pairs back into DuckDB in
// batches so both Parquet export and the summary join run in SQL.
func storeAssignments(ctx context.Context, db *database.DB, ids []int64, labels []int) error {
	err := db.Exec(ctx, fmt.Sprintf(
		"CREATE OR REPLACE TABLE %s (user_id BIGINT, segment INTEGER)", TableAssignments))
	if err != nil {
		return fmt.Errorf("creating assignments table: %w", err)
	}

	const batchSize = 500
	for offset := 0; offset < len(ids); offset += batchSize {
		end := offset + batchSize
		if end > len(ids) {
			end = len(ids)
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "INSERT INTO %s VALUES ", TableAssignments)
		args := make([]any, 0, (end-offset)*2)
		for i := offset; i < end; i++ {
			if i > offset {
				sb.WriteString(", ")
			}
			sb.WriteString("(?, ?)")
			args = append(args, ids[i], labels[i])
		}
		if err := db.Exec(ctx, sb.String(), args...); err != nil {
			return fmt.Errorf("inserting assignments: %w", err)
		}
	}
	return nil
}

// buildSummary writes the per-segment mean of every numeric feature column
// plus the segment population count.
func buildSummary(ctx context.Context, db *database.DB, path string) error {
	rows, err := db.Query(ctx, `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_name = ?
		  AND data_type IN ('TINYINT', 'SMALLINT', 'INTEGER', 'BIGINT', 'HUGEINT', 'FLOAT', 'DOUBLE')
		  AND column_name <> 'user_id'
		ORDER BY ordinal_position`, TableFeatures)
	if err != nil {
		return fmt.Errorf("summary column lookup: %w", err)
	}
	defer rows.Close()

	var numeric []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		numeric = append(numeric, name)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	sel := make([]string, 0, len(numeric)+2)
	sel = append(sel, "a.segment")
	for _, col := range numeric {
		sel = append(sel, fmt.Sprintf("AVG(f.%s) AS %s", col, col))
	}
	sel = append(sel, "COUNT(*) AS n_users")

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s f
		JOIN %s a USING (user_id)
		GROUP BY a.segment
		ORDER BY a.segment`, strings.Join(sel, ", "), TableFeatures, TableAssignments)

	return db.ExportQueryParquet(ctx, query, path)
}

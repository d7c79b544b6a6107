// WanderLens - Travel Customer Segmentation and Perk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wanderlens

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/tomtom215/wanderlens/internal/artifacts"
	"github.com/tomtom215/wanderlens/internal/logging"
)

const (
	metadataJSONFile = "run_metadata.json"
	metadataYAMLFile = "metadata.yaml"
)

// stageFunc runs one pipeline stage into runDir and returns a stage-specific
// payload plus the artifact files it produced.
type stageFunc func(ctx context.Context, runDir string) (payload any, files []string, err error)

// signalContext returns a context cancelled by SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// executeStage wraps a stage with the run lifecycle: run directory creation,
// run ID propagation, metadata files, and a ledger record on success.
func executeStage(ctx context.Context, stage string, fn stageFunc) error {
	runID := artifacts.NewRunID()
	ctx = logging.WithRunID(ctx, runID)
	started := time.Now().UTC()

	runDir, err := artifacts.CreateRunDir(cfg.Artifacts.Dir, stage, started)
	if err != nil {
		return err
	}

	logging.Ctx(ctx).Info().
		Str("stage", stage).
		Str("run_dir", runDir).
		Msg("stage starting")

	payload, files, err := fn(ctx, runDir)
	if err != nil {
		return fmt.Errorf("%s stage: %w", stage, err)
	}

	described, err := artifacts.DescribeArtifacts(files)
	if err != nil {
		return fmt.Errorf("describing artifacts: %w", err)
	}

	meta := artifacts.RunMetadata{
		RunID:       runID,
		Stage:       stage,
		RunDir:      runDir,
		StartedAt:   started,
		CompletedAt: time.Now().UTC(),
		Config:      cfg,
		Payload:     payload,
		Artifacts:   described,
	}

	if err := artifacts.WriteJSON(filepath.Join(runDir, metadataJSONFile), meta); err != nil {
		return err
	}
	if err := artifacts.WriteYAML(filepath.Join(runDir, metadataYAMLFile), meta); err != nil {
		return err
	}

	if err := recordRun(meta); err != nil {
		return err
	}

	logging.Ctx(ctx).Info().
		Str("stage", stage).
		Str("run_dir", runDir).
		Dur("elapsed", meta.CompletedAt.Sub(started)).
		Int("artifacts", len(described)).
		Msg("stage complete")
	return nil
}

func recordRun(meta artifacts.RunMetadata) error {
	ledger, err := artifacts.OpenLedger(cfg.Artifacts.LedgerPath)
	if err != nil {
		return err
	}
	defer ledger.Close()
	return ledger.Record(meta)
}

// latestRunArtifact resolves a named file inside the most recent run
// directory of a stage, used to chain stages run as separate commands.
func latestRunArtifact(stage, file string) (string, error) {
	ledger, err := artifacts.OpenLedger(cfg.Artifacts.LedgerPath)
	if err != nil {
		return "", err
	}
	defer ledger.Close()

	meta, err := ledger.Latest(stage)
	if err != nil {
		return "", err
	}

	path := filepath.Join(meta.RunDir, file)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("latest %s run is missing %s: %w", stage, file, err)
	}
	return path, nil
}

// WanderLens - Travel Customer Segmentation and Perk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wanderlens

package main

import (
	"context"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tomtom215/wanderlens/internal/database"
	"github.com/tomtom215/wanderlens/internal/eda"
	"github.com/tomtom215/wanderlens/internal/features"
	"github.com/tomtom215/wanderlens/internal/perks"
	"github.com/tomtom215/wanderlens/internal/segment"
)

var (
	featuresInput   string
	segmentInput    string
	perksAssignment string
)

var edaCmd = &cobra.Command{
	Use:   "eda",
	Short: "Extract the cohort, clean it, and write the EDA and data-quality reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()
		return executeStage(ctx, "eda", runEDA)
	},
}

var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "Aggregate cleaned sessions into one feature row per user",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()
		return executeStage(ctx, "features", func(ctx context.Context, runDir string) (any, []string, error) {
			input, err := resolveFeaturesInput()
			if err != nil {
				return nil, nil, err
			}
			return runFeatures(ctx, runDir, input)
		})
	},
}

var segmentCmd = &cobra.Command{
	Use:   "segment",
	Short: "Cluster users into segments and write the k decision report",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()
		return executeStage(ctx, "segment", func(ctx context.Context, runDir string) (any, []string, error) {
			input := segmentInput
			if input == "" {
				var err error
				input, err = latestRunArtifact("features", features.FileUserFeatures)
				if err != nil {
					return nil, nil, err
				}
			}
			return runSegment(ctx, runDir, input)
		})
	},
}

var perksCmd = &cobra.Command{
	Use:   "perks",
	Short: "Join segment assignments with the persona mapping and export customer perks",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()
		return executeStage(ctx, "perks", func(ctx context.Context, runDir string) (any, []string, error) {
			input := perksAssignment
			if input == "" {
				var err error
				input, err = latestRunArtifact("segment", segment.FileAssignments)
				if err != nil {
					return nil, nil, err
				}
			}
			return runPerks(ctx, runDir, input)
		})
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: eda, features, segment, perks",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		var sessionsClean, userFeatures, assignments string

		if err := executeStage(ctx, "eda", func(ctx context.Context, runDir string) (any, []string, error) {
			payload, files, err := runEDA(ctx, runDir)
			if err == nil {
				sessionsClean = filepath.Join(runDir, eda.FileSessionsClean)
			}
			return payload, files, err
		}); err != nil {
			return err
		}

		if err := executeStage(ctx, "features", func(ctx context.Context, runDir string) (any, []string, error) {
			payload, files, err := runFeatures(ctx, runDir, sessionsClean)
			if err == nil {
				userFeatures = filepath.Join(runDir, features.FileUserFeatures)
			}
			return payload, files, err
		}); err != nil {
			return err
		}

		if err := executeStage(ctx, "segment", func(ctx context.Context, runDir string) (any, []string, error) {
			payload, files, err := runSegment(ctx, runDir, userFeatures)
			if err == nil {
				assignments = filepath.Join(runDir, segment.FileAssignments)
			}
			return payload, files, err
		}); err != nil {
			return err
		}

		return executeStage(ctx, "perks", func(ctx context.Context, runDir string) (any, []string, error) {
			return runPerks(ctx, runDir, assignments)
		})
	},
}

func runEDA(ctx context.Context, runDir string) (any, []string, error) {
	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	defer db.Close()

	res, err := eda.Run(ctx, db, cfg, runDir)
	if err != nil {
		return nil, nil, err
	}
	return res.Metadata, res.Artifacts, nil
}

func runFeatures(ctx context.Context, runDir, input string) (any, []string, error) {
	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	defer db.Close()

	output := cfg.Features.OutputPath
	if output == "" {
		output = filepath.Join(runDir, features.FileUserFeatures)
	}

	res, err := features.Run(ctx, db, input, output)
	if err != nil {
		return nil, nil, err
	}
	return res, []string{res.OutputPath}, nil
}

func runSegment(ctx context.Context, runDir, input string) (any, []string, error) {
	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	defer db.Close()

	res, err := segment.Run(ctx, db, cfg, input, runDir)
	if err != nil {
		return nil, nil, err
	}
	return res, res.Artifacts, nil
}

func runPerks(ctx context.Context, runDir, assignmentsPath string) (any, []string, error) {
	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	defer db.Close()

	output := filepath.Join(runDir, perks.FileCustomerPerks)
	res, err := perks.Run(ctx, db, cfg, assignmentsPath, output)
	if err != nil {
		return nil, nil, err
	}
	return res, []string{res.OutputPath}, nil
}

// resolveFeaturesInput prefers the configured input path, falling back to the
// most recent eda run's cleaned sessions export.
func resolveFeaturesInput() (string, error) {
	if featuresInput != "" {
		return featuresInput, nil
	}
	if cfg.Features.InputPath != "" {
		return cfg.Features.InputPath, nil
	}
	return latestRunArtifact("eda", eda.FileSessionsClean)
}

//nolint:gochecknoinits // cobra command registration
func init() {
	featuresCmd.Flags().StringVar(&featuresInput, "input", "", "cleaned sessions Parquet (default: latest eda run)")
	segmentCmd.Flags().StringVar(&segmentInput, "input", "", "user features Parquet (default: latest features run)")
	perksCmd.Flags().StringVar(&perksAssignment, "assignments", "", "segment assignments Parquet (default: latest segment run)")

	rootCmd.AddCommand(edaCmd, featuresCmd, segmentCmd, perksCmd, runCmd)
}

// WanderLens - Travel Customer Segmentation and Perk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wanderlens

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tomtom215/wanderlens/internal/config"
	"github.com/tomtom215/wanderlens/internal/logging"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "wanderlens",
	Short: "Customer segmentation and perk analytics for travel e-booking data",
	Long: `WanderLens ingests raw session, user, flight, and hotel exports,
cleans them against explicit data-quality rules, aggregates behavior to one
row per customer, clusters customers into segments, and maps each segment to
a persona with a primary perk hypothesis.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}

		level := cfg.Logging.Level
		if logLevel != "" {
			level = logLevel
		}
		format := cfg.Logging.Format
		if logFormat != "" {
			format = logFormat
		}
		logging.Init(logging.Config{
			Level:     level,
			Format:    format,
			Caller:    cfg.Logging.Caller,
			Timestamp: true,
		})
		return nil
	},
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

//nolint:gochecknoinits // cobra command registration
func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./wanderlens.yaml, then $WANDERLENS_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (trace|debug|info|warn|error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format override (console|json)")
}

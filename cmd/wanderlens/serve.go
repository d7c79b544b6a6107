// WanderLens - Travel Customer Segmentation and Perk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wanderlens

package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/tomtom215/wanderlens/internal/artifacts"
	"github.com/tomtom215/wanderlens/internal/logging"
	"github.com/tomtom215/wanderlens/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve run history, reports, and metrics over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		var ledger *artifacts.Ledger
		if _, err := os.Stat(cfg.Artifacts.LedgerPath); err == nil {
			ledger, err = artifacts.OpenLedger(cfg.Artifacts.LedgerPath)
			if err != nil {
				return err
			}
			defer ledger.Close()
		} else {
			logging.Warn().
				Str("path", cfg.Artifacts.LedgerPath).
				Msg("run ledger not found, run endpoints will be empty")
		}

		return server.New(&cfg.Server, ledger, cfg.Artifacts.Dir).Start(ctx)
	},
}

//nolint:gochecknoinits // cobra command registration
func init() {
	rootCmd.AddCommand(serveCmd)
}

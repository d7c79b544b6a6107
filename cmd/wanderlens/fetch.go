// WanderLens - Travel Customer Segmentation and Perk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wanderlens

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomtom215/wanderlens/internal/fetch"
	"github.com/tomtom215/wanderlens/internal/logging"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the configured bronze tables from the remote source",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		fetcher, err := fetch.New(&cfg.Fetch)
		if err != nil {
			return err
		}

		names := make([]string, 0, len(cfg.Bronze.Tables))
		for _, table := range cfg.Bronze.Tables {
			names = append(names, fmt.Sprintf("%s.%s", table, cfg.Bronze.Format))
		}

		results, err := fetcher.FetchAll(ctx, names, cfg.Bronze.Dir)
		if err != nil {
			return err
		}

		var total int64
		for _, res := range results {
			total += res.Bytes
		}
		logging.Ctx(ctx).Info().
			Int("files", len(results)).
			Int64("bytes", total).
			Str("dir", cfg.Bronze.Dir).
			Msg("bronze fetch complete")
		return nil
	},
}

//nolint:gochecknoinits // cobra command registration
func init() {
	rootCmd.AddCommand(fetchCmd)
}

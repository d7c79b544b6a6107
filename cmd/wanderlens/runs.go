// WanderLens - Travel Customer Segmentation and Perk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wanderlens

package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/wanderlens/internal/artifacts"
)

var runsStage string

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded pipeline runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ledger, err := artifacts.OpenLedger(cfg.Artifacts.LedgerPath)
		if err != nil {
			return err
		}
		defer ledger.Close()

		runs, err := ledger.List(runsStage)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("no recorded runs")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "COMPLETED\tSTAGE\tRUN ID\tARTIFACTS\tRUN DIR")
		for _, run := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
				run.CompletedAt.Format(time.RFC3339),
				run.Stage,
				run.RunID,
				len(run.Artifacts),
				run.RunDir,
			)
		}
		return w.Flush()
	},
}

//nolint:gochecknoinits // cobra command registration
func init() {
	runsCmd.Flags().StringVar(&runsStage, "stage", "", "filter by stage (eda|features|segment|perks)")
	rootCmd.AddCommand(runsCmd)
}

// WanderLens - Travel Customer Segmentation and Perk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wanderlens

package segment

import (
	"fmt"
	"strings"
)

// DecisionReport summarizes the chosen k and its supporting evidence.
type DecisionReport struct {
	ChosenK       int
	Silhouette    float64
	HasSilhouette bool
	KSweep        []KSweepRow
	SeedSweep     []SeedSweepRow
	Comparison    []AlgorithmRow
	Rationale     string
}

// RenderDecisionReport renders the markdown decision report shared with
// stakeholders alongside the segment artifacts.
func RenderDecisionReport(r DecisionReport) string {
	var b strings.Builder

	b.WriteString("# Segmentation k Decision Report\n\n")
	fmt.Fprintf(&b, "**Chosen k:** %d\n", r.ChosenK)
	fmt.Fprintf(&b, "**Silhouette score:** %s\n\n", fmtOpt(r.Silhouette, r.HasSilhouette))
	b.WriteString("## Rationale\n")
	b.WriteString(r.Rationale)
	b.WriteString("\n\n")

	if len(r.Comparison) > 0 {
		b.WriteString("## Algorithm comparison\n")
		b.WriteString("| algorithm | n_clusters | noise_pct | silhouette | inertia |\n")
		b.WriteString("| --- | --- | --- | --- | --- |\n")
		for _, row := range r.Comparison {
			fmt.Fprintf(&b, "| %s | %d | %.4f | %s | %s |\n",
				row.Algorithm, row.NClusters, row.NoisePct,
				fmtOpt(row.Silhouette, row.HasSilhouette),
				fmtOpt(row.Inertia, row.HasInertia))
		}
		b.WriteString("\n")
	}

	if len(r.SeedSweep) > 0 {
		b.WriteString("## Stability (Seed Sweep)\n")
		b.WriteString("Reference seed is the first row in the table.\n\n")
		b.WriteString("| seed | inertia | silhouette | ari_to_reference |\n")
		b.WriteString("| --- | --- | --- | --- |\n")
		for _, row := range r.SeedSweep {
			fmt.Fprintf(&b, "| %d | %.4f | %s | %.4f |\n",
				row.Seed, row.Inertia, fmtOpt(row.Silhouette, row.HasSilhouette), row.ARIToReference)
		}
		b.WriteString("\n")
	}

	b.WriteString("## k Sweep\n")
	b.WriteString("| k | inertia | silhouette | status |\n")
	b.WriteString("| --- | --- | --- | --- |\n")
	for _, row := range r.KSweep {
		if row.Valid {
			fmt.Fprintf(&b, "| %d | %.4f | %.4f | %s |\n", row.K, row.Inertia, row.Silhouette, row.Status)
		} else {
			fmt.Fprintf(&b, "| %d | n/a | n/a | %s |\n", row.K, row.Status)
		}
	}
	b.WriteString("\n")
	return b.String()
}

func fmtOpt(v float64, ok bool) string {
	if !ok {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", v)
}

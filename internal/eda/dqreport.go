// WanderLens - Travel Customer Segmentation and Perk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wanderlens

package eda

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// RenderDQReport renders the markdown data-quality report from run metadata.
// The report is an audit artifact: what changed, why, and how much data was
// affected at each stage.
func RenderDQReport(meta Metadata) string {
	var b strings.Builder

	b.WriteString("# Data Quality Report: Outlier & Anomaly Handling\n\n")
	b.WriteString("## Context\n\n")
	b.WriteString("This report documents the quantitative impact of every data quality rule applied by the EDA stage.\n")
	b.WriteString("All counts refer to cohort-scoped session-level data.\n\n---\n\n")

	raw := meta.Rows.SessionLevelRaw
	valid := meta.Rows.SessionLevelAfterValidity
	clean := meta.Rows.SessionLevelClean

	b.WriteString("## Overview\n\n")
	b.WriteString("| Stage | Rows | Data loss |\n|------|------:|----------:|\n")
	fmt.Fprintf(&b, "| Raw (cohort-scoped extract) | %s | %s |\n", fmtInt(raw), fmtPct(0))
	fmt.Fprintf(&b, "| After validity rules | %s | %s |\n", fmtInt(valid), fmtPct(lossPct(raw, valid)))
	fmt.Fprintf(&b, "| After outlier removal (clean) | %s | %s |\n\n---\n\n", fmtInt(clean), fmtPct(lossPct(raw, clean)))

	writeRulesTable(&b, "Validity rules", meta.ValidityRules)
	writeRulesTable(&b, "Outlier rules", meta.Outliers)

	nights := meta.InvalidHotelNights
	if nights.Policy != "" {
		b.WriteString("## Hotel nights anomaly handling\n\n")
		fmt.Fprintf(&b, "Policy: `%s` for missing or non-positive `nights`.\n\n", nights.Policy)
		b.WriteString("| Metric | Count |\n|------|------:|\n")
		fmt.Fprintf(&b, "| Rows with invalid nights detected | %s |\n", fmtInt(nights.InvalidDetected))
		if nights.Policy == "drop" {
			fmt.Fprintf(&b, "| Rows dropped | %s |\n", fmtInt(nights.DroppedRows))
		} else {
			fmt.Fprintf(&b, "| Rows successfully recomputed | %s |\n", fmtInt(nights.RecomputedOK))
			fmt.Fprintf(&b, "| Rows still missing after recompute | %s |\n", fmtInt(nights.StillMissing))
		}
		b.WriteString("\n---\n\n")
	}

	b.WriteString("## Reproducibility\n\n")
	b.WriteString("Re-run the EDA stage and regenerate this report from the run's `metadata.yaml`.\n\n")
	b.WriteString("Generated by `wanderlens eda`.\n")
	return b.String()
}

// WriteDQReport writes the rendered report, creating parent directories.
func WriteDQReport(path string, md string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(md), 0o644); err != nil {
		return fmt.Errorf("writing dq report: %w", err)
	}
	return nil
}

func writeRulesTable(b *strings.Builder, title string, rules map[string]RuleImpact) {
	fmt.Fprintf(b, "## %s\n\n", title)
	if len(rules) == 0 {
		b.WriteString("No rules applied.\n\n")
		return
	}

	names := make([]string, 0, len(rules))
	for name := range rules {
		names = append(names, name)
	}
	sort.Strings(names)

	b.WriteString("| Rule | Rows before | Rows after | Rows removed | Impact (%) |\n")
	b.WriteString("|------|------------:|-----------:|-------------:|-----------:|\n")
	for _, name := range names {
		r := rules[name]
		fmt.Fprintf(b, "| %s | %s | %s | %s | %s |\n",
			name, fmtInt(r.RowsBefore), fmtInt(r.RowsAfter), fmtInt(r.RowsRemoved), fmtPct(r.ImpactPct()))
	}
	b.WriteString("\n")
}

// fmtInt groups digits with underscores for readability in wide tables.
func fmtInt(n int64) string {
	s := fmt.Sprintf("%d", n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	out := strings.Join(parts, "_")
	if neg {
		out = "-" + out
	}
	return out
}

func fmtPct(v float64) string {
	return fmt.Sprintf("%.2f%%", v)
}

func lossPct(before, after int64) float64 {
	if before == 0 {
		return 0
	}
	return float64(before-after) / float64(before) * 100
}

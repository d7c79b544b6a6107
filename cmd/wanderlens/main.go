// WanderLens - Travel Customer Segmentation and Perk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wanderlens

// Package main is the WanderLens command-line interface.
//
// WanderLens turns raw e-booking session exports into customer segments and
// perk assignments. The pipeline runs in four stages, each producing a
// versioned run directory under the artifacts tree:
//
//	eda       cohort extraction, cleaning, data-quality and EDA reports
//	features  one-row-per-user behavioral feature table
//	segment   scaling, clustering, evaluation, decision report
//	perks     segment-to-persona/perk mapping export
//
// `wanderlens run` executes all four stages in order, chaining each stage's
// Parquet output into the next. `wanderlens serve` exposes run history and
// artifacts over HTTP.
package main

func main() {
	Execute()
}

// WanderLens - Travel Customer Segmentation and Perk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wanderlens

package logging

import (
	"context"

	"github.com/rs/zerolog"
)

// ctxKey is an unexported type for context keys to avoid collisions.
type ctxKey int

const runIDKey ctxKey = iota

// WithRunID returns a context carrying the pipeline run ID. Every stage
// invoked under this context logs with the run_id field attached.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// RunID extracts the run ID from the context, or "" when absent.
func RunID(ctx context.Context) string {
	if v, ok := ctx.Value(runIDKey).(string); ok {
		return v
	}
	return ""
}

// Ctx returns a logger enriched with the run ID from the context.
//
//	logging.Ctx(ctx).Info().Str("stage", "segment").Msg("clustering complete")
func Ctx(ctx context.Context) *zerolog.Logger {
	l := Logger()
	if runID := RunID(ctx); runID != "" {
		l = l.With().Str("run_id", runID).Logger()
	}
	return &l
}

// WanderLens - Travel Customer Segmentation and Perk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wanderlens

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveStageCountsOutcomes(t *testing.T) {
	before := testutil.ToFloat64(RunsTotal.WithLabelValues("eda", "ok"))
	ObserveStage("eda", time.Now(), nil)
	after := testutil.ToFloat64(RunsTotal.WithLabelValues("eda", "ok"))
	if after != before+1 {
		t.Errorf("ok counter = %v, want %v", after, before+1)
	}

	beforeErr := testutil.ToFloat64(RunsTotal.WithLabelValues("eda", "error"))
	ObserveStage("eda", time.Now(), errors.New("boom"))
	afterErr := testutil.ToFloat64(RunsTotal.WithLabelValues("eda", "error"))
	if afterErr != beforeErr+1 {
		t.Errorf("error counter = %v, want %v", afterErr, beforeErr+1)
	}
}

func TestStageRowsGauge(t *testing.T) {
	StageRows.WithLabelValues("features", "user_features").Set(123)
	got := testutil.ToFloat64(StageRows.WithLabelValues("features", "user_features"))
	if got != 123 {
		t.Errorf("gauge = %v, want 123", got)
	}
}

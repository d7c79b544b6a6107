// WanderLens - Travel Customer Segmentation and Perk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wanderlens

package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// dateLayout is the calendar date format used for cohort boundaries.
const dateLayout = "2006-01-02"

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks that the merged configuration is internally consistent.
// Struct tags cover the per-field constraints; the checks below cover
// cross-field rules the tags cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := c.validateCohort(); err != nil {
		return err
	}
	if err := c.validateExtraction(); err != nil {
		return err
	}
	if err := c.validateSegmentation(); err != nil {
		return err
	}
	return c.validatePerks()
}

// validateCohort ensures the cohort window parses and is ordered.
func (c *Config) validateCohort() error {
	start, err := time.Parse(dateLayout, c.Cohort.SignUpDateStart)
	if err != nil {
		return fmt.Errorf("cohort.sign_up_date_start must be YYYY-MM-DD: %w", err)
	}
	end, err := time.Parse(dateLayout, c.Cohort.SignUpDateEnd)
	if err != nil {
		return fmt.Errorf("cohort.sign_up_date_end must be YYYY-MM-DD: %w", err)
	}
	if end.Before(start) {
		return fmt.Errorf("cohort window is inverted: %s > %s", c.Cohort.SignUpDateStart, c.Cohort.SignUpDateEnd)
	}
	return nil
}

// validateExtraction ensures the optional session_start filter parses.
func (c *Config) validateExtraction() error {
	if c.Extraction.SessionStartMin == "" {
		return nil
	}
	if _, err := time.Parse(dateLayout, c.Extraction.SessionStartMin); err != nil {
		return fmt.Errorf("extraction.session_start_min must be YYYY-MM-DD: %w", err)
	}
	return nil
}

// validateSegmentation covers clustering settings the struct tags cannot.
func (c *Config) validateSegmentation() error {
	seg := c.Segmentation

	if seg.PCA.Enabled {
		if seg.PCA.NComponents < 1 {
			return fmt.Errorf("segmentation.pca.n_components must be at least 1")
		}
		if seg.PCA.NComponents > len(seg.Features) {
			return fmt.Errorf("segmentation.pca.n_components (%d) cannot exceed feature count (%d)",
				seg.PCA.NComponents, len(seg.Features))
		}
	}

	for _, k := range seg.KSweep {
		if k < 2 {
			return fmt.Errorf("segmentation.k_sweep contains invalid k=%d (must be >= 2)", k)
		}
	}

	if seg.DBSCAN.Enabled {
		if seg.DBSCAN.Eps <= 0 {
			return fmt.Errorf("segmentation.dbscan.eps must be positive")
		}
		if seg.DBSCAN.MinSamples < 1 {
			return fmt.Errorf("segmentation.dbscan.min_samples must be at least 1")
		}
	}

	return nil
}

// validatePerks rejects duplicate segment ids in the perk mapping.
func (c *Config) validatePerks() error {
	seen := make(map[int]bool, len(c.Perks.Mapping))
	for _, m := range c.Perks.Mapping {
		if m.Segment < 0 {
			return fmt.Errorf("perks.mapping contains negative segment id %d", m.Segment)
		}
		if seen[m.Segment] {
			return fmt.Errorf("perks.mapping contains duplicate segment id %d", m.Segment)
		}
		seen[m.Segment] = true
	}
	return nil
}

// WanderLens - Travel Customer Segmentation and Perk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wanderlens

// Package config defines the WanderLens configuration model and its Koanf v2
// loader. Configuration is layered (defaults < YAML file < environment) and
// validated before any pipeline stage runs, so a bad config fails fast instead
// of producing a partial or untrustworthy artifact.
package config

import "time"

// Config is the top-level configuration for all pipeline stages.
type Config struct {
	Database     DatabaseConfig     `koanf:"database"`
	Bronze       BronzeConfig       `koanf:"bronze"`
	Cohort       CohortConfig       `koanf:"cohort"`
	Extraction   ExtractionConfig   `koanf:"extraction"`
	Cleaning     CleaningConfig     `koanf:"cleaning"`
	Outliers     OutliersConfig     `koanf:"outliers"`
	Features     FeaturesConfig     `koanf:"features"`
	Segmentation SegmentationConfig `koanf:"segmentation"`
	Perks        PerksConfig        `koanf:"perks"`
	Report       ReportConfig       `koanf:"report"`
	Artifacts    ArtifactsConfig    `koanf:"artifacts"`
	Fetch        FetchConfig        `koanf:"fetch"`
	Server       ServerConfig       `koanf:"server"`
	Logging      LoggingConfig      `koanf:"logging"`
}

// DatabaseConfig holds DuckDB settings. An empty Path runs fully in-memory,
// which is the default for one-shot pipeline runs.
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 = let DuckDB decide
}

// BronzeConfig describes where the raw source tables live.
//
// Tables resolve to `<dir>/<table>.<ext>`, falling back to
// `<dir>/<table>_full.<ext>` when the base filename is absent.
type BronzeConfig struct {
	Dir    string   `koanf:"dir"`
	Format string   `koanf:"format" validate:"oneof=csv parquet"`
	Tables []string `koanf:"tables"`
}

// CohortConfig scopes the analysis to users signed up in a fixed calendar
// window, normalizing for account tenure.
type CohortConfig struct {
	SignUpDateStart string `koanf:"sign_up_date_start" validate:"required"`
	SignUpDateEnd   string `koanf:"sign_up_date_end" validate:"required"`
}

// ExtractionConfig holds optional extraction constraints. Zero values disable
// a constraint.
type ExtractionConfig struct {
	SessionStartMin string `koanf:"session_start_min"`
	MinSessions     int    `koanf:"min_sessions" validate:"min=0"`
	MinPageClicks   int    `koanf:"min_page_clicks" validate:"min=0"`
}

// CleaningConfig encodes explicit decisions for known data anomalies.
type CleaningConfig struct {
	// InvalidHotelNightsPolicy is either "recompute" (infer nights from the
	// check-in/check-out timestamps) or "drop" (remove the affected rows).
	InvalidHotelNightsPolicy string `koanf:"invalid_hotel_nights_policy" validate:"oneof=recompute drop"`
}

// OutliersConfig controls outlier removal ahead of aggregation.
type OutliersConfig struct {
	Method          string   `koanf:"method" validate:"oneof=iqr zscore"`
	IQRMultiplier   float64  `koanf:"iqr_multiplier" validate:"gt=0"`
	ZScoreThreshold float64  `koanf:"zscore_threshold" validate:"gt=0"`
	Columns         []string `koanf:"columns" validate:"min=1"`
}

// FeaturesConfig controls the customer-level feature build.
type FeaturesConfig struct {
	InputPath  string `koanf:"input_path"`
	OutputPath string `koanf:"output_path"`
}

// PCAConfig holds optional dimensionality reduction settings.
type PCAConfig struct {
	Enabled     bool `koanf:"enabled"`
	NComponents int  `koanf:"n_components"`
}

// DBSCANConfig configures the DBSCAN comparison run.
type DBSCANConfig struct {
	Enabled    bool    `koanf:"enabled"`
	Eps        float64 `koanf:"eps"`
	MinSamples int     `koanf:"min_samples"`
}

// SegmentationConfig controls scaling, clustering, and evaluation.
type SegmentationConfig struct {
	Features   []string     `koanf:"features" validate:"min=1"`
	ChosenK    int          `koanf:"chosen_k" validate:"min=2"`
	RandomSeed int64        `koanf:"random_seed"`
	NInit      int          `koanf:"n_init" validate:"min=1"`
	KSweep     []int        `koanf:"k_sweep"`
	SeedSweep  []int64      `koanf:"seed_sweep"`
	PCA        PCAConfig    `koanf:"pca"`
	DBSCAN     DBSCANConfig `koanf:"dbscan"`
}

// PerkMapping maps one segment id to a persona/perk hypothesis.
type PerkMapping struct {
	Segment     int    `koanf:"segment"`
	PersonaName string `koanf:"persona_name"`
	PrimaryPerk string `koanf:"primary_perk"`
}

// PerksConfig holds the static segment-to-perk lookup.
type PerksConfig struct {
	Mapping []PerkMapping `koanf:"mapping"`
}

// ReportConfig controls EDA report rendering.
type ReportConfig struct {
	Title             string `koanf:"title"`
	IncludeSampleRows int    `koanf:"include_sample_rows" validate:"min=0"`
}

// ArtifactsConfig controls where versioned run artifacts land.
type ArtifactsConfig struct {
	Dir        string `koanf:"dir"`
	LedgerPath string `koanf:"ledger_path"`
}

// FetchConfig controls remote bronze retrieval.
type FetchConfig struct {
	BaseURL        string        `koanf:"base_url"`
	Timeout        time.Duration `koanf:"timeout"`
	MaxRetries     int           `koanf:"max_retries" validate:"min=0"`
	RetryDelay     time.Duration `koanf:"retry_delay"`
	RatePerSecond  float64       `koanf:"rate_per_second"`
	ChecksumsPath  string        `koanf:"checksums_path"`
	BreakerName    string        `koanf:"breaker_name"`
	BreakerTimeout time.Duration `koanf:"breaker_timeout"`
}

// ServerConfig holds settings for the read-only artifact report server.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout         time.Duration `koanf:"timeout"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs" validate:"min=1"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

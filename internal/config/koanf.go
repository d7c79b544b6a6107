// WanderLens - Travel Customer Segmentation and Perk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wanderlens

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order
// of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"wanderlens.yaml",
	"wanderlens.yml",
	"config/wanderlens.yaml",
	"/etc/wanderlens/config.yaml",
}

// ConfigPathEnvVar overrides the config file path when set.
const ConfigPathEnvVar = "WANDERLENS_CONFIG"

// envPrefix namespaces all environment overrides, e.g.
// WANDERLENS_OUTLIERS_METHOD=zscore.
const envPrefix = "WANDERLENS_"

// defaultConfig returns a Config with all defaults applied. Defaults mirror
// the reference analysis: 2023 signup cohort, IQR outlier removal, k=5.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:      "", // in-memory
			MaxMemory: "2GB",
			Threads:   0,
		},
		Bronze: BronzeConfig{
			Dir:    "data/bronze",
			Format: "csv",
			Tables: []string{"users", "sessions", "flights", "hotels"},
		},
		Cohort: CohortConfig{
			SignUpDateStart: "2023-01-01",
			SignUpDateEnd:   "2023-12-31",
		},
		Extraction: ExtractionConfig{
			SessionStartMin: "",
			MinSessions:     0,
			MinPageClicks:   0,
		},
		Cleaning: CleaningConfig{
			InvalidHotelNightsPolicy: "recompute",
		},
		Outliers: OutliersConfig{
			Method:          "iqr",
			IQRMultiplier:   1.5,
			ZScoreThreshold: 3.0,
			Columns:         []string{"page_clicks", "session_duration_sec", "base_fare_usd", "hotel_per_room_usd", "nights"},
		},
		Features: FeaturesConfig{
			InputPath:  "",
			OutputPath: "",
		},
		Segmentation: SegmentationConfig{
			Features: []string{
				"n_sessions",
				"avg_page_clicks",
				"avg_session_duration_sec",
				"p_flight_booked",
				"p_hotel_booked",
				"p_cancellation_session",
				"avg_base_fare_usd",
				"avg_hotel_per_room_usd",
			},
			ChosenK:    5,
			RandomSeed: 42,
			NInit:      10,
			KSweep:     []int{2, 3, 4, 5, 6, 7, 8},
			SeedSweep:  []int64{42, 7, 1337, 2024, 99},
			PCA:        PCAConfig{Enabled: false, NComponents: 2},
			DBSCAN:     DBSCANConfig{Enabled: true, Eps: 0.5, MinSamples: 5},
		},
		Perks: PerksConfig{
			Mapping: []PerkMapping{
				{Segment: 0, PersonaName: "Dreamers", PrimaryPerk: "Exclusive discounts on first booking"},
				{Segment: 1, PersonaName: "Frequent Flyers", PrimaryPerk: "Free checked bag"},
				{Segment: 2, PersonaName: "Family Planners", PrimaryPerk: "Free hotel meal"},
				{Segment: 3, PersonaName: "Deal Hunters", PrimaryPerk: "Flight discount bundle"},
				{Segment: 4, PersonaName: "Spontaneous Cancellers", PrimaryPerk: "No cancellation fees"},
			},
		},
		Report: ReportConfig{
			Title:             "WanderLens Customer Behavior EDA",
			IncludeSampleRows: 10,
		},
		Artifacts: ArtifactsConfig{
			Dir:        "artifacts",
			LedgerPath: "artifacts/.ledger",
		},
		Fetch: FetchConfig{
			BaseURL:        "",
			Timeout:        60 * time.Second,
			MaxRetries:     3,
			RetryDelay:     2 * time.Second,
			RatePerSecond:  4,
			ChecksumsPath:  "",
			BreakerName:    "bronze-fetch",
			BreakerTimeout: 30 * time.Second,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8433,
			Timeout:         30 * time.Second,
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Caller: false,
		},
	}
}

// Load builds the configuration using Koanf v2 with layered sources
// (highest priority wins):
//
//  1. Built-in defaults
//  2. YAML config file (optional; explicit path > WANDERLENS_CONFIG > defaults)
//  3. WANDERLENS_* environment variables
//
// The merged config is validated before being returned.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	configPath := path
	if configPath == "" {
		configPath = findConfigFile()
	}
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	envProvider := env.Provider(envPrefix, ".", envTransform)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// configSections are the top-level koanf keys used to split environment
// variable names into paths.
var configSections = []string{
	"database",
	"bronze",
	"cohort",
	"extraction",
	"cleaning",
	"outliers",
	"features",
	"segmentation",
	"perks",
	"report",
	"artifacts",
	"fetch",
	"server",
	"logging",
}

// envTransform maps WANDERLENS_<SECTION>_<KEY> to <section>.<key>, e.g.
// WANDERLENS_OUTLIERS_IQR_MULTIPLIER -> outliers.iqr_multiplier.
// Variables that do not match a known section are ignored.
func envTransform(key string) string {
	trimmed := strings.ToLower(strings.TrimPrefix(key, envPrefix))
	for _, section := range configSections {
		prefix := section + "_"
		if strings.HasPrefix(trimmed, prefix) {
			return section + "." + strings.TrimPrefix(trimmed, prefix)
		}
	}
	return ""
}

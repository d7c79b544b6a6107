// WanderLens - Travel Customer Segmentation and Perk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wanderlens

package artifacts

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Artifact is one produced file with its integrity hash.
type Artifact struct {
	Path   string `json:"path" yaml:"path"`
	SHA256 string `json:"sha256" yaml:"sha256"`
	Bytes  int64  `json:"bytes" yaml:"bytes"`
}

// RunMetadata is the audit payload written next to each run's artifacts and
// recorded in the ledger. Payload carries the stage-specific metadata.
type RunMetadata struct {
	RunID       string     `json:"run_id" yaml:"run_id"`
	Stage       string     `json:"stage" yaml:"stage"`
	RunDir      string     `json:"run_dir" yaml:"run_dir"`
	StartedAt   time.Time  `json:"started_at" yaml:"started_at"`
	CompletedAt time.Time  `json:"completed_at" yaml:"completed_at"`
	Config      any        `json:"config" yaml:"config"`
	Payload     any        `json:"payload,omitempty" yaml:"payload,omitempty"`
	Artifacts   []Artifact `json:"artifacts" yaml:"artifacts"`
}

// WriteJSON marshals v indented and writes it to path.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// WriteYAML marshals v as YAML and writes it to path.
func WriteYAML(path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// HashFile returns the sha256 hex digest and size of the file at path.
func HashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// DescribeArtifacts hashes every produced file for the metadata record.
func DescribeArtifacts(paths []string) ([]Artifact, error) {
	out := make([]Artifact, 0, len(paths))
	for _, p := range paths {
		sum, size, err := HashFile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, Artifact{Path: p, SHA256: sum, Bytes: size})
	}
	return out, nil
}

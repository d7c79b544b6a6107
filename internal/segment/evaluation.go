// WanderLens - Travel Customer Segmentation and Perk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wanderlens

package segment

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// KSweepRow is one candidate k's evaluation outcome.
type KSweepRow struct {
	K          int     `json:"k"`
	Inertia    float64 `json:"inertia"`
	Silhouette float64 `json:"silhouette"`
	Valid      bool    `json:"valid"`
	Status     string  `json:"status"`
}

// SeedSweepRow is one seed's stability outcome. ARI compares against the
// first seed in the sweep.
type SeedSweepRow struct {
	Seed           int64   `json:"seed"`
	Inertia        float64 `json:"inertia"`
	Silhouette     float64 `json:"silhouette"`
	HasSilhouette  bool    `json:"has_silhouette"`
	ARIToReference float64 `json:"ari_to_reference"`
}

// AlgorithmRow compares one algorithm's outcome on the shared feature matrix.
type AlgorithmRow struct {
	Algorithm     string  `json:"algorithm"`
	NClusters     int     `json:"n_clusters"`
	NoisePct      float64 `json:"noise_pct"`
	Silhouette    float64 `json:"silhouette"`
	HasSilhouette bool    `json:"has_silhouette"`
	Inertia       float64 `json:"inertia"`
	HasInertia    bool    `json:"has_inertia"`
}

// Silhouette computes the mean silhouette coefficient. The second return is
// false when the score is undefined (fewer than 2 samples or clusters).
func Silhouette(m *mat.Dense, labels []int) (float64, bool) {
	rows, _ := m.Dims()
	if rows < 2 || len(labels) != rows {
		return 0, false
	}

	clusters := make(map[int][]int)
	for i, l := range labels {
		clusters[l] = append(clusters[l], i)
	}
	if len(clusters) < 2 {
		return 0, false
	}

	var total float64
	for i := 0; i < rows; i++ {
		own := labels[i]
		ownMembers := clusters[own]

		// a(i): mean distance to the rest of its own cluster.
		var a float64
		if len(ownMembers) > 1 {
			var sum float64
			for _, p := range ownMembers {
				if p != i {
					sum += euclidean(m, i, p)
				}
			}
			a = sum / float64(len(ownMembers)-1)
		}

		// b(i): lowest mean distance to any other cluster.
		b := math.Inf(1)
		for label, members := range clusters {
			if label == own {
				continue
			}
			var sum float64
			for _, p := range members {
				sum += euclidean(m, i, p)
			}
			if d := sum / float64(len(members)); d < b {
				b = d
			}
		}

		if len(ownMembers) == 1 {
			continue // silhouette of a singleton is 0 by convention
		}
		if denom := math.Max(a, b); denom > 0 {
			total += (b - a) / denom
		}
	}
	return total / float64(rows), true
}

// AdjustedRandIndex measures agreement between two labelings, corrected for
// chance. Identical partitions score 1; random agreement trends to 0.
func AdjustedRandIndex(a, b []int) float64 {
	n := len(a)
	if n != len(b) || n == 0 {
		return 0
	}

	contingency := make(map[[2]int]int64)
	rowSums := make(map[int]int64)
	colSums := make(map[int]int64)
	for i := 0; i < n; i++ {
		contingency[[2]int{a[i], b[i]}]++
		rowSums[a[i]]++
		colSums[b[i]]++
	}

	var sumComb, sumRows, sumCols float64
	for _, c := range contingency {
		sumComb += comb2(c)
	}
	for _, c := range rowSums {
		sumRows += comb2(c)
	}
	for _, c := range colSums {
		sumCols += comb2(c)
	}

	expected := sumRows * sumCols / comb2(int64(n))
	maxIndex := (sumRows + sumCols) / 2
	if maxIndex == expected {
		return 1
	}
	return (sumComb - expected) / (maxIndex - expected)
}

func comb2(n int64) float64 {
	return float64(n) * float64(n-1) / 2
}

// RunKSweep evaluates candidate cluster counts with inertia and silhouette.
// Invalid candidates (k < 2 or k >= sample count) are reported, not skipped.
func RunKSweep(m *mat.Dense, ks []int, nInit int, seed int64) ([]KSweepRow, error) {
	if len(ks) == 0 {
		return nil, fmt.Errorf("k sweep needs at least one candidate")
	}
	rows, _ := m.Dims()

	out := make([]KSweepRow, 0, len(ks))
	for _, k := range ks {
		row := KSweepRow{K: k}
		switch {
		case k < 2:
			row.Status = "invalid: k must be at least 2"
		case k >= rows:
			row.Status = "invalid: k must be < n_samples"
		default:
			res, err := KMeans(m, k, nInit, seed)
			if err != nil {
				return nil, err
			}
			row.Inertia = res.Inertia
			if sil, ok := Silhouette(m, res.Labels); ok {
				row.Silhouette = sil
				row.Valid = true
				row.Status = "ok"
			} else {
				row.Status = "invalid: single cluster"
			}
		}
		out = append(out, row)
	}
	return out, nil
}

// RunSeedSweep evaluates K-Means stability across seeds at a fixed k. The
// first seed acts as the ARI reference and scores exactly 1.
func RunSeedSweep(m *mat.Dense, k int, seeds []int64, nInit int) ([]SeedSweepRow, error) {
	if len(seeds) == 0 {
		return nil, fmt.Errorf("seed sweep needs at least one seed")
	}

	var reference []int
	out := make([]SeedSweepRow, 0, len(seeds))
	for _, seed := range seeds {
		res, err := KMeans(m, k, nInit, seed)
		if err != nil {
			return nil, err
		}

		row := SeedSweepRow{Seed: seed, Inertia: res.Inertia}
		if sil, ok := Silhouette(m, res.Labels); ok {
			row.Silhouette = sil
			row.HasSilhouette = true
		}
		if reference == nil {
			reference = res.Labels
			row.ARIToReference = 1
		} else {
			row.ARIToReference = AdjustedRandIndex(reference, res.Labels)
		}
		out = append(out, row)
	}
	return out, nil
}

// CompareAlgorithms runs K-Means and DBSCAN on the same matrix and reports
// cluster counts, noise share, and silhouette side by side.
func CompareAlgorithms(m *mat.Dense, k, nInit int, seed int64, eps float64, minSamples int) ([]AlgorithmRow, error) {
	km, err := KMeans(m, k, nInit, seed)
	if err != nil {
		return nil, err
	}
	kmRow := AlgorithmRow{
		Algorithm:  "kmeans",
		NClusters:  countClusters(km.Labels),
		Inertia:    km.Inertia,
		HasInertia: true,
	}
	if sil, ok := Silhouette(m, km.Labels); ok {
		kmRow.Silhouette = sil
		kmRow.HasSilhouette = true
	}

	dbLabels := DBSCAN(m, eps, minSamples)
	dbRow := AlgorithmRow{
		Algorithm: "dbscan",
		NClusters: countClusters(dbLabels),
		NoisePct:  noiseShare(dbLabels),
	}
	if dbRow.NClusters >= 2 {
		sub, subLabels := dropNoise(m, dbLabels)
		if sub != nil {
			if sil, ok := Silhouette(sub, subLabels); ok {
				dbRow.Silhouette = sil
				dbRow.HasSilhouette = true
			}
		}
	}
	return []AlgorithmRow{kmRow, dbRow}, nil
}

func countClusters(labels []int) int {
	set := make(map[int]bool)
	for _, l := range labels {
		if l != NoiseLabel {
			set[l] = true
		}
	}
	return len(set)
}

func noiseShare(labels []int) float64 {
	if len(labels) == 0 {
		return 0
	}
	var noise int
	for _, l := range labels {
		if l == NoiseLabel {
			noise++
		}
	}
	return float64(noise) / float64(len(labels))
}

// dropNoise returns the non-noise submatrix and its labels, or nil when
// fewer than two points remain.
func dropNoise(m *mat.Dense, labels []int) (*mat.Dense, []int) {
	_, cols := m.Dims()
	var keep []int
	for i, l := range labels {
		if l != NoiseLabel {
			keep = append(keep, i)
		}
	}
	if len(keep) < 2 {
		return nil, nil
	}

	sub := mat.NewDense(len(keep), cols, nil)
	subLabels := make([]int, len(keep))
	for r, i := range keep {
		sub.SetRow(r, mat.Row(nil, i, m))
		subLabels[r] = labels[i]
	}
	return sub, subLabels
}

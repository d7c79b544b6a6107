// WanderLens - Travel Customer Segmentation and Perk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wanderlens

package segment

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

const (
	kmeansMaxIter = 300
	kmeansTol     = 1e-6
)

// KMeansResult holds the best clustering found across restarts.
type KMeansResult struct {
	Labels    []int
	Centroids [][]float64
	Inertia   float64
}

// KMeans runs Lloyd's algorithm with k-means++ initialization, repeated
// nInit times with a deterministic seeded RNG, keeping the lowest-inertia
// solution. The same seed always produces the same labels.
func KMeans(m *mat.Dense, k, nInit int, seed int64) (*KMeansResult, error) {
	rows, _ := m.Dims()
	if k < 2 {
		return nil, fmt.Errorf("k must be at least 2, got %d", k)
	}
	if k >= rows {
		return nil, fmt.Errorf("k (%d) must be less than the sample count (%d)", k, rows)
	}
	if nInit < 1 {
		nInit = 1
	}

	rng := rand.New(rand.NewSource(seed))
	best := &KMeansResult{Inertia: math.Inf(1)}

	for run := 0; run < nInit; run++ {
		centroids := initPlusPlus(m, k, rng)
		labels, inertia := lloyd(m, centroids)
		if inertia < best.Inertia {
			best = &KMeansResult{Labels: labels, Centroids: centroids, Inertia: inertia}
		}
	}
	return best, nil
}

// initPlusPlus picks k starting centroids: the first uniformly, the rest
// weighted by squared distance to the nearest chosen centroid.
func initPlusPlus(m *mat.Dense, k int, rng *rand.Rand) [][]float64 {
	rows, _ := m.Dims()
	centroids := make([][]float64, 0, k)

	first := rng.Intn(rows)
	centroids = append(centroids, mat.Row(nil, first, m))

	dist2 := make([]float64, rows)
	for i := 0; i < rows; i++ {
		d := distToPoint(m, i, centroids[0])
		dist2[i] = d * d
	}

	for len(centroids) < k {
		var total float64
		for _, d := range dist2 {
			total += d
		}

		var next int
		if total == 0 {
			next = rng.Intn(rows)
		} else {
			target := rng.Float64() * total
			var cum float64
			for i, d := range dist2 {
				cum += d
				if cum >= target {
					next = i
					break
				}
			}
		}
		centroids = append(centroids, mat.Row(nil, next, m))

		for i := 0; i < rows; i++ {
			d := distToPoint(m, i, centroids[len(centroids)-1])
			if d2 := d * d; d2 < dist2[i] {
				dist2[i] = d2
			}
		}
	}

	// Copy rows out of the matrix backing array.
	out := make([][]float64, k)
	for i, c := range centroids {
		out[i] = append([]float64(nil), c...)
	}
	return out
}

// lloyd iterates assignment and centroid updates until the inertia stops
// improving or the iteration cap is hit.
func lloyd(m *mat.Dense, centroids [][]float64) ([]int, float64) {
	rows, cols := m.Dims()
	k := len(centroids)
	labels := make([]int, rows)
	prevInertia := math.Inf(1)

	for iter := 0; iter < kmeansMaxIter; iter++ {
		var inertia float64
		for i := 0; i < rows; i++ {
			bestDist := math.Inf(1)
			for c := range centroids {
				if d := distToPoint(m, i, centroids[c]); d < bestDist {
					bestDist = d
					labels[i] = c
				}
			}
			inertia += bestDist * bestDist
		}

		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, cols)
		}
		for i := 0; i < rows; i++ {
			c := labels[i]
			counts[c]++
			for j := 0; j < cols; j++ {
				sums[c][j] += m.At(i, j)
			}
		}
		for c := range centroids {
			if counts[c] == 0 {
				continue // empty cluster keeps its previous centroid
			}
			for j := 0; j < cols; j++ {
				centroids[c][j] = sums[c][j] / float64(counts[c])
			}
		}

		if prevInertia-inertia < kmeansTol {
			return labels, inertia
		}
		prevInertia = inertia
	}
	return labels, prevInertia
}

// WanderLens - Travel Customer Segmentation and Perk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wanderlens

package segment

import (
	"gonum.org/v1/gonum/mat"
)

// NoiseLabel marks points DBSCAN could not assign to any cluster.
const NoiseLabel = -1

// DBSCAN clusters the matrix with euclidean density reachability. Points with
// at least minSamples neighbors within eps (self included) become cores;
// everything density-reachable from a core joins its cluster, the rest is
// labeled NoiseLabel.
func DBSCAN(m *mat.Dense, eps float64, minSamples int) []int {
	rows, _ := m.Dims()
	labels := make([]int, rows)
	for i := range labels {
		labels[i] = NoiseLabel
	}

	visited := make([]bool, rows)
	cluster := 0

	for i := 0; i < rows; i++ {
		if visited[i] {
			continue
		}
		visited[i] = true

		neighbors := regionQuery(m, i, eps)
		if len(neighbors) < minSamples {
			continue
		}

		labels[i] = cluster
		queue := append([]int(nil), neighbors...)
		for len(queue) > 0 {
			p := queue[0]
			queue = queue[1:]

			if !visited[p] {
				visited[p] = true
				pn := regionQuery(m, p, eps)
				if len(pn) >= minSamples {
					queue = append(queue, pn...)
				}
			}
			if labels[p] == NoiseLabel {
				labels[p] = cluster
			}
		}
		cluster++
	}
	return labels
}

// regionQuery returns all row indices within eps of row i, including i.
func regionQuery(m *mat.Dense, i int, eps float64) []int {
	rows, _ := m.Dims()
	var out []int
	for p := 0; p < rows; p++ {
		if euclidean(m, i, p) <= eps {
			out = append(out, p)
		}
	}
	return out
}

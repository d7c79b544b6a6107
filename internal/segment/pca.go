// WanderLens - Travel Customer Segmentation and Perk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wanderlens

package segment

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ProjectPCA reduces the scaled matrix to nComponents principal components
// via thin SVD. The input is expected to be column-centered, which standard
// scaling guarantees.
func ProjectPCA(m *mat.Dense, nComponents int) (*mat.Dense, error) {
	rows, cols := m.Dims()
	if nComponents < 1 {
		return nil, fmt.Errorf("pca components must be at least 1, got %d", nComponents)
	}
	if nComponents > cols {
		return nil, fmt.Errorf("pca components (%d) cannot exceed feature count (%d)", nComponents, cols)
	}

	var svd mat.SVD
	if ok := svd.Factorize(m, mat.SVDThin); !ok {
		return nil, fmt.Errorf("svd factorization failed")
	}

	var v mat.Dense
	svd.VTo(&v)

	// Project onto the leading right singular vectors.
	proj := mat.NewDense(rows, nComponents, nil)
	proj.Mul(m, v.Slice(0, cols, 0, nComponents))
	return proj, nil
}

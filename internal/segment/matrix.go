// WanderLens - Travel Customer Segmentation and Perk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wanderlens

// Package segment implements the clustering stage: standard scaling, optional
// PCA, K-Means with k-means++ restarts, a DBSCAN comparison, and the
// evaluation sweeps that back the k decision report.
package segment

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/tomtom215/wanderlens/internal/database"
)

// FeatureMatrix pairs the numeric feature matrix with its row identities.
type FeatureMatrix struct {
	UserIDs  []int64
	Features []string
	Data     *mat.Dense
}

// LoadFeatureMatrix reads user_id plus the configured feature columns from a
// table. Any NULL after numeric coercion is a hard error: clustering on
// silently imputed values would corrupt every downstream segment.
func LoadFeatureMatrix(ctx context.Context, db *database.DB, table string, features []string) (*FeatureMatrix, error) {
	if len(features) == 0 {
		return nil, fmt.Errorf("no feature columns configured")
	}

	sel := make([]string, 0, len(features)+1)
	sel = append(sel, "user_id")
	for _, f := range features {
		sel = append(sel, fmt.Sprintf("TRY_CAST(%s AS DOUBLE)", f))
	}

	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY user_id", strings.Join(sel, ", "), table)
	rows, err := db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("loading feature matrix: %w", err)
	}
	defer rows.Close()

	var (
		ids  []int64
		vals []float64
	)
	for rows.Next() {
		var id int64
		cols := make([]sql.NullFloat64, len(features))
		ptrs := make([]any, 0, len(features)+1)
		ptrs = append(ptrs, &id)
		for i := range cols {
			ptrs = append(ptrs, &cols[i])
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range cols {
			if !v.Valid || math.IsNaN(v.Float64) {
				return nil, fmt.Errorf("feature %s has missing values (user_id %d); clean or impute before segmenting", features[i], id)
			}
			vals = append(vals, v.Float64)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("table %s has no rows to segment", table)
	}

	return &FeatureMatrix{
		UserIDs:  ids,
		Features: features,
		Data:     mat.NewDense(len(ids), len(features), vals),
	}, nil
}

// StandardScale centers each column to mean 0 and scales to population
// standard deviation 1. Constant columns are centered but left unscaled.
func StandardScale(m *mat.Dense) {
	rows, cols := m.Dims()
	for j := 0; j < cols; j++ {
		var sum float64
		for i := 0; i < rows; i++ {
			sum += m.At(i, j)
		}
		mean := sum / float64(rows)

		var sq float64
		for i := 0; i < rows; i++ {
			d := m.At(i, j) - mean
			sq += d * d
		}
		std := math.Sqrt(sq / float64(rows))
		if std == 0 {
			std = 1
		}

		for i := 0; i < rows; i++ {
			m.Set(i, j, (m.At(i, j)-mean)/std)
		}
	}
}

// euclidean returns the L2 distance between rows a and b of m.
func euclidean(m *mat.Dense, a, b int) float64 {
	_, cols := m.Dims()
	var sum float64
	for j := 0; j < cols; j++ {
		d := m.At(a, j) - m.At(b, j)
		sum += d * d
	}
	return math.Sqrt(sum)
}

// distToPoint returns the L2 distance between row i of m and point p.
func distToPoint(m *mat.Dense, i int, p []float64) float64 {
	var sum float64
	for j, v := range p {
		d := m.At(i, j) - v
		sum += d * d
	}
	return math.Sqrt(sum)
}

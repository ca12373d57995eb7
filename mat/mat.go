// Package mat builds gonum matrices and lagged regression designs from plain float slices.
package mat

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrEmptyArray    = errors.New("empty array")
	ErrColMismatch   = errors.New("column size mismatch")
	ErrRowMismatch   = errors.New("row size mismatch")
	ErrInvalidLag    = errors.New("lag must be positive")
	ErrLagOutOfRange = errors.New("lag start is out of range of the series")
)

// NewDenseFromArray converts a slice of equal length rows into a row major dense matrix.
func NewDenseFromArray(x [][]float64) (*mat.Dense, error) {
	if len(x) == 0 || len(x[0]) == 0 {
		return nil, ErrEmptyArray
	}
	n := len(x[0])
	data := make([]float64, 0, len(x)*n)
	for i, row := range x {
		if len(row) != n {
			return nil, fmt.Errorf("at row %d, %w", i, ErrColMismatch)
		}
		data = append(data, row...)
	}
	return mat.NewDense(len(x), n, data), nil
}

// Lagged returns one row per t in [start, len(x)) holding x[t-1], x[t-2], ..., x[t-lags].
func Lagged(x []float64, lags, start int) ([][]float64, error) {
	if lags < 1 {
		return nil, ErrInvalidLag
	}
	if start < lags || start > len(x) {
		return nil, fmt.Errorf("start %d with %d lags over %d points, %w", start, lags, len(x), ErrLagOutOfRange)
	}
	rows := make([][]float64, 0, len(x)-start)
	for t := start; t < len(x); t++ {
		row := make([]float64, lags)
		for j := 1; j <= lags; j++ {
			row[j-1] = x[t-j]
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Column wraps a vector into single column rows.
func Column(x []float64) [][]float64 {
	rows := make([][]float64, len(x))
	for i, v := range x {
		rows[i] = []float64{v}
	}
	return rows
}

// HStack concatenates blocks of rows column-wise. Nil blocks are skipped.
func HStack(blocks ...[][]float64) ([][]float64, error) {
	m := -1
	for i, b := range blocks {
		if b == nil {
			continue
		}
		if m >= 0 && len(b) != m {
			return nil, fmt.Errorf("block %d has %d rows, expected %d, %w", i, len(b), m, ErrRowMismatch)
		}
		m = len(b)
	}
	if m <= 0 {
		return nil, ErrEmptyArray
	}

	out := make([][]float64, m)
	for r := 0; r < m; r++ {
		var row []float64
		for _, b := range blocks {
			if b == nil {
				continue
			}
			row = append(row, b[r]...)
		}
		out[r] = row
	}
	return out, nil
}

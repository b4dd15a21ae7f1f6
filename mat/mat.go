package mat

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var ErrColMismatch = errors.New("column size mismatch")

// NewDenseFromArray builds a dense matrix from a row major slice of rows. Empty input
// returns gonum's ErrZeroLength instead of panicking.
func NewDenseFromArray(x [][]float64) (*mat.Dense, error) {
	m := len(x)
	if m == 0 {
		return nil, mat.ErrZeroLength
	}

	n := len(x[0])
	for i, row := range x {
		if len(row) != n {
			return nil, fmt.Errorf("at row %d, %w", i, ErrColMismatch)
		}
	}
	if n == 0 {
		return nil, mat.ErrZeroLength
	}

	// flatten to row order
	data := make([]float64, 0, m*n)
	for _, row := range x {
		data = append(data, row...)
	}
	return mat.NewDense(m, n, data), nil
}

// NewColVector wraps a slice as an m x 1 target matrix
func NewColVector(y []float64) (*mat.Dense, error) {
	if len(y) == 0 {
		return nil, mat.ErrZeroLength
	}
	return mat.NewDense(len(y), 1, y), nil
}

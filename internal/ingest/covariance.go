package ingest

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/nuwisp/gundam-go/internal/apperrors"
)

// LoadCovariance reads a square matrix from a headerless CSV file: one
// row per line. Symmetry is checked here, against the full matrix as
// written, because the returned SymDense keeps only the upper triangle;
// positive-semi-definiteness is checked later by ParameterSet.Initialize.
func LoadCovariance(path string) (*mat.SymDense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewLoadError(fmt.Sprintf("cannot open covariance file %s", path), err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, apperrors.NewLoadError(fmt.Sprintf("reading covariance file %s", path), err)
	}
	n := len(records)
	data := make([]float64, n*n)
	for i, row := range records {
		if len(row) != n {
			return nil, apperrors.NewLoadError(fmt.Sprintf("covariance file %s: row %d has %d columns, want %d", path, i, len(row), n), nil)
		}
		for j, cell := range row {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, apperrors.NewLoadError(fmt.Sprintf("covariance file %s: bad value at (%d,%d)", path, i, j), err)
			}
			data[i*n+j] = v
		}
	}
	if n > 0 {
		full := mat.NewDense(n, n, data)
		var diff mat.Dense
		diff.Sub(full, full.T())
		if mat.Norm(&diff, 2) >= 1e-9*mat.Norm(full, 2) && mat.Norm(&diff, 2) > 0 {
			return nil, apperrors.NewLoadError(fmt.Sprintf("covariance file %s: matrix is not symmetric within tolerance", path), nil)
		}
	}
	return mat.NewSymDense(n, data), nil
}

// Package mathutil collects the linear-algebra and numerical-analysis
// helpers shared by ParameterSet and MinimizerDriver: covariance
// validation/jitter, Cholesky throws, eigendecomposition, and the one
// piece of spline math the pack has no library for.
package mathutil

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/nuwisp/gundam-go/internal/apperrors"
)

// CheckSymmetric verifies ||Σ - Σᵀ|| < 1e-9 * ||Σ|| (Frobenius norm), the
// tolerance the spec's covariance-input contract demands.
func CheckSymmetric(sigma *mat.SymDense) error {
	n, _ := sigma.Dims()
	dense := mat.DenseCopyOf(sigma)
	var diff mat.Dense
	diff.Sub(dense, dense.T())
	if mat.Norm(&diff, 2) >= 1e-9*mat.Norm(dense, 2) && n > 0 {
		return apperrors.NewLoadError("covariance matrix is not symmetric within tolerance", nil)
	}
	return nil
}

// Jitter adds eps*I to sigma in place, eps = 1e-12 * trace(sigma), to
// push a numerically-degenerate covariance onto the PSD cone before
// Cholesky/eigendecomposition.
func Jitter(sigma *mat.SymDense) {
	n, _ := sigma.Dims()
	trace := 0.0
	for i := 0; i < n; i++ {
		trace += sigma.At(i, i)
	}
	eps := 1e-12 * trace
	for i := 0; i < n; i++ {
		sigma.SetSym(i, i, sigma.At(i, i)+eps)
	}
}

// IsPSD reports whether a Cholesky factorization of sigma succeeds, which
// holds only for a positive definite matrix: a singular positive
// semi-definite sigma reports false.
func IsPSD(sigma *mat.SymDense) bool {
	var chol mat.Cholesky
	return chol.Factorize(sigma)
}

// EigenDecompose returns ascending eigenvalues and the matrix whose
// columns are the corresponding eigenvectors of the symmetric matrix m.
func EigenDecompose(m *mat.SymDense) (values []float64, vectors *mat.Dense, err error) {
	var eig mat.EigenSym
	if ok := eig.Factorize(m, true); !ok {
		return nil, nil, apperrors.NewLoadError("eigendecomposition failed to converge", nil)
	}
	values = eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)
	return values, &vecs, nil
}

// ConditionNumber returns lambda_min/lambda_max over the given
// eigenvalues, which may be any sign; callers are expected to have
// already sorted values ascending (EigenDecompose does).
func ConditionNumber(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	min, max := values[0], values[0]
	for _, v := range values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if max == 0 {
		return math.NaN()
	}
	return min / max
}

// HasNonPositiveEigenvalue reports whether any eigenvalue is <= 0,
// beyond a small numerical-noise floor.
func HasNonPositiveEigenvalue(values []float64) bool {
	const floor = -1e-9
	for _, v := range values {
		if v <= floor {
			return true
		}
	}
	return false
}

// Pinverse computes the Moore-Penrose pseudo-inverse of a symmetric
// matrix restricted to the rows/columns listed in keep (used to build
// the non-fixed-block inverse covariance for the penalty term).
func Pinverse(full *mat.SymDense, keep []int) *mat.SymDense {
	n := len(keep)
	if n == 0 {
		return mat.NewSymDense(0, nil)
	}
	sub := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sub.SetSym(i, j, full.At(keep[i], keep[j]))
		}
	}

	var svd mat.SVD
	dense := mat.DenseCopyOf(sub)
	ok := svd.Factorize(dense, mat.SVDFull)
	if !ok {
		// Degenerate block: fall back to jittered Cholesky inverse.
		Jitter(sub)
		var chol mat.Cholesky
		chol.Factorize(sub)
		var inv mat.Dense
		chol.InverseTo(&inv)
		out := mat.NewSymDense(n, nil)
		for i := 0; i < n; i++ {
			for j := i; j < n; j++ {
				out.SetSym(i, j, inv.At(i, j))
			}
		}
		return out
	}

	values := svd.Values(nil)
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	const tol = 1e-12
	out := mat.NewDense(n, n, nil)
	for k, s := range values {
		if s < tol {
			continue
		}
		var uk, vk mat.VecDense
		uk.ColViewOf(&u, k)
		vk.ColViewOf(&v, k)
		var outer mat.Dense
		outer.Outer(1/s, &vk, &uk)
		out.Add(out, &outer)
	}
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, out.At(i, j))
		}
	}
	return sym
}

package minimizer

import (
	"gonum.org/v1/gonum/mat"

	"github.com/nuwisp/gundam-go/internal/apperrors"
	"github.com/nuwisp/gundam-go/internal/mathutil"
)

// FiniteDifferenceHessian builds a central-difference Hessian of eval at
// x, with per-coordinate step h = stepScaling * max(1, |x_i|), where a
// non-positive stepScaling is replaced by 1e-3.
// Used when gonum/optimize's result carries no analytic Hessian (e.g.
// after a NelderMead-only run, or when the gradient algorithm didn't
// populate one).
func FiniteDifferenceHessian(eval EvalFunc, x []float64, stepScaling float64) ([][]float64, error) {
	n := len(x)
	if stepScaling <= 0 {
		stepScaling = 1e-3
	}
	h := make([]float64, n)
	for i, xi := range x {
		scale := xi
		if scale < 0 {
			scale = -scale
		}
		if scale < 1 {
			scale = 1
		}
		h[i] = stepScaling * scale
	}

	f0, err := eval(x)
	if err != nil {
		return nil, err
	}

	hess := make([][]float64, n)
	for i := range hess {
		hess[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			var v float64
			if i == j {
				xp := append([]float64(nil), x...)
				xm := append([]float64(nil), x...)
				xp[i] += h[i]
				xm[i] -= h[i]
				fp, err := eval(xp)
				if err != nil {
					return nil, err
				}
				fm, err := eval(xm)
				if err != nil {
					return nil, err
				}
				v = (fp - 2*f0 + fm) / (h[i] * h[i])
			} else {
				xpp := append([]float64(nil), x...)
				xpm := append([]float64(nil), x...)
				xmp := append([]float64(nil), x...)
				xmm := append([]float64(nil), x...)
				xpp[i] += h[i]
				xpp[j] += h[j]
				xpm[i] += h[i]
				xpm[j] -= h[j]
				xmp[i] -= h[i]
				xmp[j] += h[j]
				xmm[i] -= h[i]
				xmm[j] -= h[j]

				fpp, err := eval(xpp)
				if err != nil {
					return nil, err
				}
				fpm, err := eval(xpm)
				if err != nil {
					return nil, err
				}
				fmp, err := eval(xmp)
				if err != nil {
					return nil, err
				}
				fmm, err := eval(xmm)
				if err != nil {
					return nil, err
				}
				v = (fpp - fpm - fmp + fmm) / (4 * h[i] * h[j])
			}
			hess[i][j] = v
			hess[j][i] = v
		}
	}
	return hess, nil
}

// runHesse implements §4.9's post-fit processing pipeline: retrieve the
// fit-space covariance (inverse Hessian), rescale by prior sigmas if the
// fit space was normalized, build the global passage matrix back to
// original parameter coordinates, strip fixed/disabled rows/columns, and
// spectrally decompose the result.
func (d *Driver) runHesse(eval EvalFunc) (*PostFitCovariance, error) {
	hess, err := d.hessianOrFiniteDiff(eval)
	if err != nil {
		return nil, err
	}
	n := len(hess)
	if n == 0 {
		return &PostFitCovariance{}, nil
	}

	hessDense := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			hessDense.SetSym(i, j, hess[i][j])
		}
	}

	var chol mat.Cholesky
	var sigmaFit *mat.SymDense
	if chol.Factorize(hessDense) {
		var inv mat.SymDense
		if err := chol.InverseTo(&inv); err == nil {
			sigmaFit = &inv
		}
	}
	if sigmaFit == nil {
		keep := make([]int, n)
		for i := range keep {
			keep[i] = i
		}
		sigmaFit = mathutil.Pinverse(hessDense, keep)
	}

	if d.cfg.UseNormalizedFitSpace {
		sigmas := d.effectiveSigmas()
		for i := 0; i < n; i++ {
			for j := i; j < n; j++ {
				sigmaFit.SetSym(i, j, sigmaFit.At(i, j)*sigmas[i]*sigmas[j])
			}
		}
	}

	sigmaOriginal := d.rotateToOriginalBasis(sigmaFit)

	m, _ := sigmaOriginal.Dims()
	full := mat.NewSymDense(m, nil)
	for i := 0; i < m; i++ {
		for j := i; j < m; j++ {
			full.SetSym(i, j, sigmaOriginal.At(i, j))
		}
	}

	values, _, err := mathutil.EigenDecompose(full)
	nonPSD := false
	if err != nil || mathutil.HasNonPositiveEigenvalue(values) {
		nonPSD = true
	}
	cond := mathutil.ConditionNumber(values)

	rows := make([][]float64, m)
	for i := 0; i < m; i++ {
		rows[i] = make([]float64, m)
		for j := 0; j < m; j++ {
			rows[i][j] = full.At(i, j)
		}
	}

	result := &PostFitCovariance{
		Original:     rows,
		EigenValues:  values,
		ConditionNum: cond,
		NonPSD:       nonPSD,
	}

	if nonPSD {
		warn := apperrors.NewCovarianceWarning("post-fit covariance is not positive semi-definite")
		if warn.IsStrictPromotion(d.cfg.StrictCovariance) {
			return result, warn
		}
	}
	return result, nil
}

func (d *Driver) effectiveSigmas() []float64 {
	var out []float64
	for _, set := range d.sets {
		for _, p := range set.EffectiveParameters() {
			if p.Fixed || !p.Enabled {
				continue
			}
			out = append(out, p.Sigma)
		}
	}
	return out
}

// rotateToOriginalBasis builds the global passage matrix P (identity
// block per non-decomposed set, eigenvector block per decomposed set)
// and returns P · sigmaFit · Pᵀ, restricted to the original, non-fixed
// parameters across every set.
func (d *Driver) rotateToOriginalBasis(sigmaFit *mat.SymDense) *mat.SymDense {
	n, _ := sigmaFit.Dims()
	p := mat.NewDense(n, n, nil)
	row := 0
	for _, set := range d.sets {
		eff := set.EffectiveParameters()
		count := 0
		for _, pp := range eff {
			if !pp.Fixed && pp.Enabled {
				count++
			}
		}
		if set.IsEigenDecomposed() {
			vecs := set.EigenVectors()
			for i := 0; i < count; i++ {
				for j := 0; j < count; j++ {
					p.Set(row+i, row+j, vecs.At(i, j))
				}
			}
		} else {
			for i := 0; i < count; i++ {
				p.Set(row+i, row+i, 1)
			}
		}
		row += count
	}

	dense := mat.DenseCopyOf(sigmaFit)
	var tmp, out mat.Dense
	tmp.Mul(p, dense)
	out.Mul(&tmp, p.T())

	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, out.At(i, j))
		}
	}
	return sym
}

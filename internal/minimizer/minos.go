package minimizer

import (
	"math"

	"gonum.org/v1/gonum/optimize"

	"github.com/nuwisp/gundam-go/internal/apperrors"
)

// minosMaxIterations bounds the bisection search per parameter, per
// side, generalizing the teacher's fixed grid-size idea (search.go's
// GridSearcher) from an exhaustive grid over reward to a bracketed
// root-find over Δ(-2lnL) = 1.
const minosMaxIterations = 60

// runMinos walks every free parameter's profile likelihood outward from
// the minimum until Δ(total) = 1, re-minimizing the remaining
// dimensions at each trial value (one bisection per side per
// parameter), then reports the resulting asymmetric interval as a
// symmetrized diagonal covariance entry (Minos errors are inherently
// asymmetric; the PostFitCovariance diagonal reports the square of the
// mean of the upper and lower half-widths).
func (d *Driver) runMinos(eval EvalFunc) (*PostFitCovariance, error) {
	if d.result == nil {
		return nil, apperrors.NewMinimizerError("runMinos called before a minimization result was available", nil)
	}
	best := append([]float64(nil), d.bestX()...)
	n := len(best)
	f0, err := eval(best)
	if err != nil {
		return nil, err
	}

	diag := make([]float64, n)
	for i := 0; i < n; i++ {
		upper := d.bisect(eval, best, i, f0, +1)
		lower := d.bisect(eval, best, i, f0, -1)
		half := (upper - lower) / 2
		if half < 0 {
			half = -half
		}
		diag[i] = half * half
	}

	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = make([]float64, n)
		rows[i][i] = diag[i]
	}
	values := append([]float64(nil), diag...)
	cond := 0.0
	if n > 0 {
		min, max := values[0], values[0]
		for _, v := range values {
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
		if max > 0 {
			cond = min / max
		}
	}

	return &PostFitCovariance{Original: rows, EigenValues: values, ConditionNum: cond}, nil
}

// bisect finds the displacement δ (same sign as dir) from best[i] at
// which re-profiling the other coordinates brings Δ(total) to 1,
// bracketing outward from an initial displacement of 0.1, doubled until
// Δ(total) reaches 1, before bisecting.
func (d *Driver) bisect(eval EvalFunc, best []float64, i int, f0 float64, dir float64) float64 {
	step := 0.1
	lo, hi := 0.0, step
	n := len(best)

	profile := func(delta float64) float64 {
		fixed := append([]float64(nil), best...)
		fixed[i] = best[i] + dir*delta
		if n == 1 {
			v, err := eval(fixed)
			if err != nil {
				return math.Inf(1)
			}
			return v
		}
		free := make([]float64, 0, n-1)
		idx := make([]int, 0, n-1)
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			free = append(free, fixed[j])
			idx = append(idx, j)
		}
		objective := func(x []float64) float64 {
			trial := append([]float64(nil), fixed...)
			for k, j := range idx {
				trial[j] = x[k]
			}
			v, err := eval(trial)
			if err != nil || math.IsNaN(v) {
				return math.Inf(1)
			}
			return v
		}
		res, err := optimize.Minimize(optimize.Problem{Func: objective}, free, &optimize.Settings{MajorIterations: 50}, &optimize.NelderMead{})
		if err != nil || res == nil {
			return math.Inf(1)
		}
		return res.F
	}

	for it := 0; it < minosMaxIterations; it++ {
		if profile(hi)-f0 >= 1 {
			break
		}
		lo = hi
		hi *= 2
	}

	for it := 0; it < minosMaxIterations; it++ {
		mid := (lo + hi) / 2
		if profile(mid)-f0 < 1 {
			lo = mid
		} else {
			hi = mid
		}
	}
	return dir * hi
}

// Package likelihood implements the JointProbability kernels (Poisson,
// χ², least-squares, Barlow-Beeston variants) and the LikelihoodInterface
// that sums the chosen kernel's statistical term with the penalty terms
// of every ParameterSet.
package likelihood

import (
	"math"

	"github.com/nuwisp/gundam-go/internal/apperrors"
)

// Kernel is a pure function of one bin's MC prediction, its MC
// statistical variance, and the observed data — no shared state, so a
// Kernel value can be reused across bins and goroutines freely.
type Kernel interface {
	Name() string
	Eval(mc, mcVariance, data float64) (float64, error)
}

// PoissonKernel implements 2·[μ − n + n·ln(n/μ)], with the convention
// n·ln(n/μ) = 0 when n = 0, and μ = 0 with n > 0 reported as an
// InvalidLikelihood (a model that predicts zero in a bin with observed
// data is unphysical, not merely numerically awkward).
type PoissonKernel struct{}

func (PoissonKernel) Name() string { return "poisson" }

func (PoissonKernel) Eval(mc, _ float64, data float64) (float64, error) {
	if mc <= 0 {
		if data <= 0 {
			return 0, nil
		}
		return 0, apperrors.NewInvalidLikelihood("", -1, mc, data)
	}
	term := 2 * (mc - data)
	if data > 0 {
		term += 2 * data * math.Log(data/mc)
	}
	return term, nil
}

// ChiSquareKernel implements the approximate χ² = (n − μ)² / μ.
type ChiSquareKernel struct{}

func (ChiSquareKernel) Name() string { return "chi_square" }

func (ChiSquareKernel) Eval(mc, _ float64, data float64) (float64, error) {
	if mc <= 0 {
		if data == 0 {
			return 0, nil
		}
		return 0, apperrors.NewInvalidLikelihood("", -1, mc, data)
	}
	d := data - mc
	return d * d / mc, nil
}

// LeastSquaresKernel implements Σ(n − μ)², optionally substituting the
// Poisson-approximation variance n in place of a flat denominator.
type LeastSquaresKernel struct {
	PoissonApproximation bool
}

func (k LeastSquaresKernel) Name() string { return "least_squares" }

func (k LeastSquaresKernel) Eval(mc, _ float64, data float64) (float64, error) {
	d := data - mc
	if !k.PoissonApproximation {
		return d * d, nil
	}
	if data <= 0 {
		return d * d, nil
	}
	return d * d / data, nil
}

// BarlowBeestonVariant selects among the three Barlow-Beeston flavors
// the spec requires.
type BarlowBeestonVariant int

const (
	BarlowBeestonFull BarlowBeestonVariant = iota
	BarlowBeestonOA2020
	BarlowBeestonOA2021
)

// BarlowBeestonKernel treats per-bin MC statistical uncertainty as a
// nuisance β_b with its own profile, solving the per-bin quadratic that
// falls out of differentiating the joint Poisson-times-Poisson
// likelihood with respect to β_b. Eval honors NoBarlowBeestonUpdate for
// every variant and AllowZeroMcWhenZeroData for OA2021 only;
// UsePoissonLikelihood is carried but not read by Eval.
type BarlowBeestonKernel struct {
	Variant BarlowBeestonVariant

	AllowZeroMcWhenZeroData bool
	UsePoissonLikelihood    bool
	NoBarlowBeestonUpdate   bool
}

func (k BarlowBeestonKernel) Name() string {
	switch k.Variant {
	case BarlowBeestonOA2020:
		return "barlow_beeston_oa2020"
	case BarlowBeestonOA2021:
		return "barlow_beeston_oa2021"
	default:
		return "barlow_beeston_full"
	}
}

// Eval solves β from the quadratic a·β² + b·β + c = 0 (the standard
// Barlow-Beeston per-bin derivation with one MC sample), picks the root
// with β > 0, and evaluates the resulting joint Poisson term with the
// rescaled prediction β·μ.
func (k BarlowBeestonKernel) Eval(mc, mcVariance, data float64) (float64, error) {
	if mc <= 0 {
		if k.Variant == BarlowBeestonOA2021 && k.AllowZeroMcWhenZeroData && data == 0 {
			return 0, nil
		}
		if data == 0 {
			return 0, nil
		}
		return 0, apperrors.NewInvalidLikelihood("", -1, mc, data)
	}

	if mcVariance <= 0 || k.NoBarlowBeestonUpdate {
		return PoissonKernel{}.Eval(mc, mcVariance, data)
	}

	// One-MC-sample derivation: tau = mc / mcVariance (inverse relative
	// variance), quadratic coefficients for beta.
	tau := mc / mcVariance
	a := tau
	b := mc*tau - data - tau
	c := -data

	disc := b*b - 4*a*c
	if disc < 0 {
		disc = 0
	}
	sqrtDisc := math.Sqrt(disc)
	beta := (-b + sqrtDisc) / (2 * a)
	if beta <= 0 {
		beta = (-b - sqrtDisc) / (2 * a)
	}
	if beta <= 0 {
		beta = 1
	}

	scaledMc := beta * mc
	stat, err := PoissonKernel{}.Eval(scaledMc, mcVariance, data)
	if err != nil {
		return 0, err
	}
	// MC-statistical nuisance penalty: (beta - 1)^2 / sigma_beta^2, with
	// sigma_beta^2 = mcVariance / mc^2 (relative variance).
	if mc == 0 {
		return stat, nil
	}
	relVar := mcVariance / (mc * mc)
	nuisance := 0.0
	if relVar > 0 {
		d := beta - 1
		nuisance = d * d / relVar
	}
	return stat + nuisance, nil
}

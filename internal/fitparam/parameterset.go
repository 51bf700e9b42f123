package fitparam

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"

	"github.com/nuwisp/gundam-go/internal/apperrors"
	"github.com/nuwisp/gundam-go/internal/mathutil"
)

// ParameterSet is an ordered list of Parameters sharing one N×N prior
// covariance. When the caller asks for it through Initialize, the set
// exposes an eigen reparameterization with diagonal covariance; a
// degenerate covariance alone does not switch it on. The two bases are
// related by pure linear maps (PropagateEigenToOriginal and
// PropagateOriginalToEigen).
type ParameterSet struct {
	Name       string
	Enabled    bool
	Parameters []Parameter

	covariance *mat.SymDense
	cholesky   *mat.Cholesky // for throwParameters

	nonFixed    []int // indices into Parameters
	invCovNonFixed *mat.SymDense

	eigenDecomp    bool
	eigenValues    []float64
	eigenVectors   *mat.Dense // nonFixed x nonFixed
	EigenParameters []Parameter

	priorNonFixed []float64 // cached prior of the non-fixed block, in Parameters order
}

// New builds a ParameterSet from its parameter list and prior covariance
// (already validated for symmetry/PSD by the caller per the spec's
// covariance-input contract).
func New(name string, params []Parameter, covariance *mat.SymDense) *ParameterSet {
	ps := &ParameterSet{Name: name, Enabled: true, Parameters: params, covariance: covariance}
	ps.rebuildNonFixed()
	return ps
}

func (ps *ParameterSet) rebuildNonFixed() {
	ps.nonFixed = ps.nonFixed[:0]
	ps.priorNonFixed = ps.priorNonFixed[:0]
	for i, p := range ps.Parameters {
		if p.Fixed || !p.Enabled {
			continue
		}
		ps.nonFixed = append(ps.nonFixed, i)
		ps.priorNonFixed = append(ps.priorNonFixed, p.Prior)
	}
}

// Initialize decomposes the covariance, precomputes the non-fixed-block
// pseudo-inverse used by Penalty, and optionally builds the eigen basis.
func (ps *ParameterSet) Initialize(enableEigenDecomp bool) error {
	if ps.covariance == nil {
		return nil
	}
	if err := mathutil.CheckSymmetric(ps.covariance); err != nil {
		return err
	}
	if !mathutil.IsPSD(ps.covariance) {
		mathutil.Jitter(ps.covariance)
	}

	ps.rebuildNonFixed()
	ps.invCovNonFixed = mathutil.Pinverse(ps.covariance, ps.nonFixed)

	var chol mat.Cholesky
	if chol.Factorize(ps.covariance) {
		ps.cholesky = &chol
	}

	if enableEigenDecomp {
		if err := ps.buildEigenBasis(); err != nil {
			return err
		}
	}
	return nil
}

func (ps *ParameterSet) buildEigenBasis() error {
	n := len(ps.nonFixed)
	sub := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sub.SetSym(i, j, ps.covariance.At(ps.nonFixed[i], ps.nonFixed[j]))
		}
	}
	values, vectors, err := mathutil.EigenDecompose(sub)
	if err != nil {
		return err
	}
	ps.eigenDecomp = true
	ps.eigenValues = values
	ps.eigenVectors = vectors

	ps.EigenParameters = make([]Parameter, n)
	for i := range ps.EigenParameters {
		sigma := 0.0
		if ps.eigenValues[i] > 0 {
			sigma = math.Sqrt(ps.eigenValues[i])
		}
		ps.EigenParameters[i] = Parameter{
			Name:    ps.Parameters[ps.nonFixed[i]].Name + "_eigen",
			Prior:   0,
			Sigma:   sigma,
			Enabled: true,
		}
	}
	ps.propagateOriginalToEigenLocked()
	return nil
}

// MoveToPrior sets every parameter's value to its prior, including the
// eigen basis when decomposed.
func (ps *ParameterSet) MoveToPrior() {
	for i := range ps.Parameters {
		ps.Parameters[i].Value = ps.Parameters[i].Prior
	}
	if ps.eigenDecomp {
		for i := range ps.EigenParameters {
			ps.EigenParameters[i].Value = ps.EigenParameters[i].Prior
		}
	}
}

// ThrowParameters samples a multivariate Gaussian using the Cholesky
// factor of the prior covariance and writes the result into the
// non-fixed original parameters, respecting [min, max] via rejection
// with a bounded retry count before falling back to a clamp. A clamped
// value is not flagged.
func (ps *ParameterSet) ThrowParameters(rng *rand.Rand) {
	if ps.cholesky == nil || len(ps.nonFixed) == 0 {
		return
	}
	n := len(ps.nonFixed)
	mean := make([]float64, n)
	for i, idx := range ps.nonFixed {
		mean[i] = ps.Parameters[idx].Prior
	}

	var covDense mat.SymDense
	ps.cholesky.ToSym(&covDense)
	sub := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sub.SetSym(i, j, covDense.At(ps.nonFixed[i], ps.nonFixed[j]))
		}
	}

	dist, ok := distmv.NewNormal(mean, sub, rng)
	if !ok {
		return
	}

	const maxRetries = 100
	draw := make([]float64, n)
	for i, idx := range ps.nonFixed {
		p := &ps.Parameters[idx]
		var v float64
		accepted := false
		for attempt := 0; attempt < maxRetries; attempt++ {
			dist.Rand(draw)
			v = draw[i]
			if p.InBounds(v) {
				accepted = true
				break
			}
		}
		if !accepted {
			v = p.Clamp(v)
		}
		p.Value = v
	}
}

// Penalty computes δᵀC⁻¹δ over the non-fixed block (or, in the eigen
// basis, Σ(e_i-μ_i)²/σ_i² over non-fixed eigen coefficients). Fixed and
// disabled parameters always contribute zero.
func (ps *ParameterSet) Penalty() float64 {
	if !ps.Enabled || ps.covariance == nil {
		return 0
	}
	if ps.eigenDecomp {
		total := 0.0
		for _, e := range ps.EigenParameters {
			if e.Fixed || !e.Enabled || e.Sigma == 0 {
				continue
			}
			d := (e.Value - e.Prior) / e.Sigma
			total += d * d
		}
		return total
	}

	n := len(ps.nonFixed)
	if n == 0 {
		return 0
	}
	delta := mat.NewVecDense(n, nil)
	for i, idx := range ps.nonFixed {
		delta.SetVec(i, ps.Parameters[idx].Value-ps.Parameters[idx].Prior)
	}
	var tmp mat.VecDense
	tmp.MulVec(ps.invCovNonFixed, delta)
	return mat.Dot(delta, &tmp)
}

// PropagateEigenToOriginal rotates the eigen coefficients back into the
// original parameter values: original = prior + V·eigen. Fixed original
// parameters are untouched and keep their prior sigma on the diagonal.
func (ps *ParameterSet) PropagateEigenToOriginal() {
	if !ps.eigenDecomp {
		return
	}
	n := len(ps.nonFixed)
	e := mat.NewVecDense(n, nil)
	for i, ep := range ps.EigenParameters {
		e.SetVec(i, ep.Value)
	}
	var orig mat.VecDense
	orig.MulVec(ps.eigenVectors, e)
	for i, idx := range ps.nonFixed {
		ps.Parameters[idx].Value = ps.priorNonFixed[i] + orig.AtVec(i)
	}
}

// PropagateOriginalToEigen rotates current original-basis values into
// eigen coefficients: eigen = Vᵀ·(original - prior).
func (ps *ParameterSet) PropagateOriginalToEigen() {
	if !ps.eigenDecomp {
		return
	}
	ps.propagateOriginalToEigenLocked()
}

func (ps *ParameterSet) propagateOriginalToEigenLocked() {
	n := len(ps.nonFixed)
	delta := mat.NewVecDense(n, nil)
	for i, idx := range ps.nonFixed {
		delta.SetVec(i, ps.Parameters[idx].Value-ps.priorNonFixed[i])
	}
	var e mat.VecDense
	e.MulVec(ps.eigenVectors.T(), delta)
	for i := range ps.EigenParameters {
		ps.EigenParameters[i].Value = e.AtVec(i)
	}
}

// IsEigenDecomposed reports whether this set exposes an eigen basis.
func (ps *ParameterSet) IsEigenDecomposed() bool { return ps.eigenDecomp }

// EffectiveParameters returns the parameter list the minimizer and
// penalty should operate over: eigen coefficients when decomposed,
// original parameters otherwise (LikelihoodInterface invariant).
func (ps *ParameterSet) EffectiveParameters() []Parameter {
	if ps.eigenDecomp {
		return ps.EigenParameters
	}
	return ps.Parameters
}

// ConditionNumber reports lambda_min/lambda_max of the prior covariance
// eigenvalues (only meaningful once Initialize has run with eigen
// decomposition enabled; otherwise NaN).
func (ps *ParameterSet) ConditionNumber() float64 {
	if !ps.eigenDecomp {
		return math.NaN()
	}
	return mathutil.ConditionNumber(ps.eigenValues)
}

// NonFixedCount returns the number of non-fixed, enabled parameters.
func (ps *ParameterSet) NonFixedCount() int { return len(ps.nonFixed) }

// EigenVectors returns the matrix whose columns are the eigenvectors of
// the non-fixed covariance block (nil unless Initialize ran with eigen
// decomposition enabled), used by the minimizer to build the global
// passage matrix back to original parameter coordinates.
func (ps *ParameterSet) EigenVectors() *mat.Dense { return ps.eigenVectors }

// MathErrorIfNaN is a small helper used by callers that must surface any
// NaN slipping into a parameter value as an apperrors.MathError.
func MathErrorIfNaN(setName, paramName string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return apperrors.NewMathError("non-finite parameter value", nil).
			WithDetail("paramSet", setName).WithDetail("parameter", paramName)
	}
	return nil
}

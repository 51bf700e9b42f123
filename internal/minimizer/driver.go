// Package minimizer implements MinimizerDriver: the state machine that
// wraps a gradient/Hesse minimizer, manages the normalized fit space,
// and extracts a validated post-fit covariance with its eigen
// decomposition.
package minimizer

import (
	"math"

	"gonum.org/v1/gonum/optimize"

	"github.com/nuwisp/gundam-go/internal/apperrors"
	"github.com/nuwisp/gundam-go/internal/fitparam"
	"github.com/nuwisp/gundam-go/internal/logger"
	"github.com/nuwisp/gundam-go/internal/mathutil"
)

// State is one node of the driver's state machine.
type State int

const (
	StateUninit State = iota
	StateConfigured
	StateMinimizing
	StateConverged
	StateFailed
	StateErrorsEvaluated
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateUninit:
		return "Uninit"
	case StateConfigured:
		return "Configured"
	case StateMinimizing:
		return "Minimizing"
	case StateConverged:
		return "Converged"
	case StateFailed:
		return "Failed"
	case StateErrorsEvaluated:
		return "ErrorsEvaluated"
	case StateFinished:
		return "Finished"
	default:
		return "Unknown"
	}
}

// ErrorsAlgo selects the post-fit uncertainty extraction method.
type ErrorsAlgo int

const (
	ErrorsHesse ErrorsAlgo = iota
	ErrorsMinos
)

// EvalFunc is the evalFit callback: writes x into parameters
// (denormalizing if needed), propagates and evaluates, returns total.
type EvalFunc func(x []float64) (float64, error)

// Config controls the driver's behavior.
type Config struct {
	UseNormalizedFitSpace       bool
	EnableSimplexBeforeMinimize bool
	ErrorsAlgo                  ErrorsAlgo
	StepSizeScaling             float64
	Tolerance                   float64
	MaxFunctionCalls            int
	MaxIterations               int
	ThrowOnBadLikelihood        bool
	StrictCovariance            bool
}

// UP is the likelihood-scale constant used in the EDM target: 1 for a
// χ²-like statistic, 0.5 for -2lnL by convention.
const UP = 0.5

// Driver wraps gonum/optimize, exposing the spec's state machine and
// normalized-fit-space bookkeeping.
type Driver struct {
	cfg   Config
	sets  []*fitparam.ParameterSet
	log   logger.Logger
	state State

	x0     []float64 // normalized starting point
	result *optimize.Result
	status string

	funcCalls int
}

// New builds a Driver over the given parameter sets' effective
// parameter lists (eigen when decomposed), starting in StateUninit.
func New(cfg Config, sets []*fitparam.ParameterSet, log logger.Logger) *Driver {
	return &Driver{cfg: cfg, sets: sets, log: log, state: StateUninit}
}

// State returns the driver's current state-machine node.
func (d *Driver) State() State { return d.state }

// Configure transitions Uninit → Configured, snapshotting the current
// effective parameter values as the normalized starting point.
func (d *Driver) Configure() error {
	if d.state != StateUninit {
		return apperrors.NewMinimizerError("Configure called outside Uninit", nil).WithDetail("state", d.state.String())
	}
	d.x0 = d.snapshotNormalized()
	d.state = StateConfigured
	return nil
}

func (d *Driver) snapshotNormalized() []float64 {
	var x []float64
	for _, set := range d.sets {
		for _, p := range set.EffectiveParameters() {
			if p.Fixed || !p.Enabled {
				continue
			}
			if d.cfg.UseNormalizedFitSpace {
				x = append(x, p.Normalize(p.Value))
			} else {
				x = append(x, p.Value)
			}
		}
	}
	return x
}

// WriteBack denormalizes (if configured) and writes a trial vector into
// the driver's parameter sets, propagating decomposed sets back to their
// original basis. Callers build their EvalFunc around this: call
// WriteBack, then propagate and evaluate the likelihood.
func (d *Driver) WriteBack(x []float64) {
	i := 0
	for _, set := range d.sets {
		eff := set.EffectiveParameters()
		for j := range eff {
			p := &eff[j]
			if p.Fixed || !p.Enabled {
				continue
			}
			if i >= len(x) {
				return
			}
			if d.cfg.UseNormalizedFitSpace {
				p.Value = p.Denormalize(x[i])
			} else {
				p.Value = x[i]
			}
			i++
		}
		if set.IsEigenDecomposed() {
			set.PropagateEigenToOriginal()
		}
	}
}

// Minimize runs the optional Simplex pre-pass (loose tolerance, strategy
// 0) then the gradient/Hesse-style algorithm at the user tolerance,
// transitioning Configured → Minimizing → Converged/Failed.
func (d *Driver) Minimize(eval EvalFunc) error {
	if d.state != StateConfigured {
		return apperrors.NewMinimizerError("Minimize called outside Configured", nil).WithDetail("state", d.state.String())
	}
	d.state = StateMinimizing

	var badEval error
	objective := func(x []float64) float64 {
		d.funcCalls++
		v, err := eval(x)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			if d.cfg.ThrowOnBadLikelihood && badEval == nil {
				badEval = apperrors.NewMathError("non-finite evalFit during minimization", err)
			}
			return math.Inf(1)
		}
		return v
	}

	x := append([]float64(nil), d.x0...)

	if d.cfg.EnableSimplexBeforeMinimize {
		problem := optimize.Problem{Func: objective}
		settings := &optimize.Settings{
			MajorIterations: 200,
			FuncEvaluations: d.cfg.MaxFunctionCalls,
		}
		res, err := optimize.Minimize(problem, x, settings, &optimize.NelderMead{})
		if err == nil && res != nil {
			x = res.X
		}
	}

	edmTarget := 0.001 * d.cfg.Tolerance * UP

	problem := optimize.Problem{Func: objective}
	settings := &optimize.Settings{
		GradientThreshold: edmTarget,
		MajorIterations:   d.cfg.MaxIterations,
		FuncEvaluations:   d.cfg.MaxFunctionCalls,
	}
	res, err := optimize.Minimize(problem, x, settings, &optimize.BFGS{})
	if badEval != nil {
		d.state = StateFailed
		d.status = badEval.Error()
		return badEval
	}
	if err != nil {
		d.state = StateFailed
		d.status = err.Error()
		return apperrors.NewMinimizerError("minimization failed", err)
	}

	d.result = res
	d.status = res.Status.String()
	d.WriteBack(res.X)
	if res.Status == optimize.Success || res.Status == optimize.FunctionConvergence || res.Status == optimize.GradientThreshold {
		d.state = StateConverged
	} else {
		d.state = StateFailed
	}
	return nil
}

// Status returns the underlying minimizer's status string, preserved
// verbatim alongside the driver's own state.
func (d *Driver) Status() string { return d.status }

// FunctionCalls returns how many times the objective was evaluated.
func (d *Driver) FunctionCalls() int { return d.funcCalls }

// Result exposes the raw gonum/optimize result for diagnostics.
func (d *Driver) Result() *optimize.Result { return d.result }

// EvaluateErrors runs Hesse or Minos per cfg.ErrorsAlgo, transitioning
// Converged → ErrorsEvaluated. A covariance that is not positive
// semi-definite outside strict mode is returned together with an
// apperrors CovarianceWarning.
func (d *Driver) EvaluateErrors(eval EvalFunc) (*PostFitCovariance, error) {
	if d.state != StateConverged {
		return nil, apperrors.NewMinimizerError("EvaluateErrors called outside Converged", nil).WithDetail("state", d.state.String())
	}
	var cov *PostFitCovariance
	var err error
	switch d.cfg.ErrorsAlgo {
	case ErrorsMinos:
		cov, err = d.runMinos(eval)
	default:
		cov, err = d.runHesse(eval)
	}
	if err != nil {
		return nil, err
	}
	d.state = StateErrorsEvaluated
	if cov != nil && cov.NonPSD {
		return cov, apperrors.NewCovarianceWarning("post-fit covariance is not positive semi-definite")
	}
	return cov, nil
}

// Finish transitions ErrorsEvaluated, Converged or Failed → Finished.
func (d *Driver) Finish() error {
	if d.state != StateErrorsEvaluated && d.state != StateConverged && d.state != StateFailed {
		return apperrors.NewMinimizerError("Finish called from an unexpected state", nil).WithDetail("state", d.state.String())
	}
	d.state = StateFinished
	return nil
}

// PostFitCovariance is the result of §4.9's post-fit processing
// pipeline: original-basis covariance, its spectral decomposition, and
// the reported condition number.
type PostFitCovariance struct {
	Original     [][]float64
	EigenValues  []float64
	ConditionNum float64
	NonPSD       bool
}

func (d *Driver) hessianOrFiniteDiff(eval EvalFunc) ([][]float64, error) {
	n := len(d.x0)
	if d.result != nil && d.result.Hessian != nil {
		r, c := d.result.Hessian.Dims()
		if r == n && c == n {
			out := make([][]float64, n)
			for i := range out {
				out[i] = make([]float64, n)
				for j := 0; j < n; j++ {
					out[i][j] = d.result.Hessian.At(i, j)
				}
			}
			return out, nil
		}
	}
	return FiniteDifferenceHessian(eval, d.bestX(), d.cfg.StepSizeScaling)
}

func (d *Driver) bestX() []float64 {
	if d.result != nil {
		return d.result.X
	}
	return d.x0
}

package likelihood

import (
	"context"
	"math"

	"golang.org/x/exp/rand"

	"github.com/nuwisp/gundam-go/internal/apperrors"
	"github.com/nuwisp/gundam-go/internal/fitparam"
	"github.com/nuwisp/gundam-go/internal/propagator"
)

// Preset selects how the data histogram used for the statistical term
// is populated, mirroring the original's LoadPreset.
type Preset int

const (
	// PresetAsimov copies the MC-at-prior prediction into the data slot:
	// no statistical fluctuation, used to verify the fitter returns to
	// prior with zero residual.
	PresetAsimov Preset = iota
	// PresetData binds the real, externally-supplied data histogram.
	PresetData
	// PresetToy moves parameters to prior, reweights, optionally throws
	// parameters through masked sets, then snapshots the result as data.
	PresetToy
)

// Buffer is the last-evaluated decomposition of the total likelihood,
// kept for reporting and scan utilities without recomputation.
type Buffer struct {
	Stat    map[string]float64 // per-sample statistical term
	Penalty map[string]float64 // per-parameter-set penalty term
	Total   float64
}

// Interface sums the statistical term (via one Kernel per sample) with
// the penalty term of every ParameterSet, and exposes the evalFit
// callback the MinimizerDriver drives.
type Interface struct {
	Kernel  Kernel
	Sets    []*fitparam.ParameterSet
	Prop    *propagator.Propagator
	Samples []*propagator.BoundSample

	asimovSnapshot []snapshotSample // not written by LoadData; every preset fills data
	data           []snapshotSample

	buffer Buffer
}

type snapshotSample struct {
	name string
	bin  []float64
}

// New builds an Interface bound to the given kernel, parameter sets,
// and propagator.
func New(kernel Kernel, sets []*fitparam.ParameterSet, prop *propagator.Propagator, samples []*propagator.BoundSample) *Interface {
	return &Interface{Kernel: kernel, Sets: sets, Prop: prop, Samples: samples}
}

// LoadData populates the data slot per preset. For PresetToy, rng and
// maskedSets (parameter sets to throw through) are required; for the
// other two presets they are ignored.
func (li *Interface) LoadData(ctx context.Context, preset Preset, rng *rand.Rand, maskedSets []*fitparam.ParameterSet) error {
	switch preset {
	case PresetAsimov:
		for _, s := range li.Sets {
			s.MoveToPrior()
		}
		if err := li.Prop.PropagateParameters(ctx); err != nil {
			return err
		}
		li.data = snapshotMC(li.Samples)
		return nil
	case PresetToy:
		for _, s := range li.Sets {
			s.MoveToPrior()
		}
		if err := li.Prop.PropagateParameters(ctx); err != nil {
			return err
		}
		for _, s := range maskedSets {
			s.ThrowParameters(rng)
			if s.IsEigenDecomposed() {
				s.PropagateOriginalToEigen()
			}
		}
		if err := li.Prop.PropagateParameters(ctx); err != nil {
			return err
		}
		li.data = snapshotMC(li.Samples)
		return nil
	case PresetData:
		// Real data is bound directly onto each Sample.Data by the
		// ingestion boundary; nothing to snapshot here.
		return nil
	default:
		return apperrors.NewConfigError("unknown likelihood preset", nil)
	}
}

func snapshotMC(samples []*propagator.BoundSample) []snapshotSample {
	out := make([]snapshotSample, len(samples))
	for i, bs := range samples {
		out[i] = snapshotSample{name: bs.Sample.Name, bin: append([]float64(nil), bs.Sample.MC.Sum...)}
	}
	return out
}

// PropagateAndEval delegates to the Propagator, computes stat + penalty,
// updates the Buffer, and returns the total.
func (li *Interface) PropagateAndEval(ctx context.Context) (float64, error) {
	if err := li.Prop.PropagateParameters(ctx); err != nil {
		return 0, err
	}

	stat := make(map[string]float64, len(li.Samples))
	total := 0.0
	for i, bs := range li.Samples {
		data := li.dataFor(i, bs)
		s, err := li.EvalStat(bs.Sample.Name, bs.Sample.MC.Sum, data, nil)
		if err != nil {
			return 0, err
		}
		stat[bs.Sample.Name] = s
		total += s
	}

	penalty := make(map[string]float64, len(li.Sets))
	for _, set := range li.Sets {
		p := li.EvalPenalty(set)
		penalty[set.Name] = p
		total += p
	}

	li.buffer = Buffer{Stat: stat, Penalty: penalty, Total: total}

	if math.IsNaN(total) || math.IsInf(total, 0) {
		return total, apperrors.NewMathError("non-finite total likelihood", nil)
	}
	return total, nil
}

func (li *Interface) dataFor(i int, bs *propagator.BoundSample) []float64 {
	if bs.Sample.Data != nil {
		return bs.Sample.Data.Sum
	}
	if i < len(li.data) {
		return li.data[i].bin
	}
	if i < len(li.asimovSnapshot) {
		return li.asimovSnapshot[i].bin
	}
	return nil
}

// EvalStat evaluates the statistical term for one sample's bins, using
// per-bin MC variance from mcVariance when the kernel needs it (nil is
// treated as "no MC-stat uncertainty available").
func (li *Interface) EvalStat(sampleName string, mc, data []float64, mcVariance []float64) (float64, error) {
	total := 0.0
	for b := range mc {
		v := 0.0
		if mcVariance != nil && b < len(mcVariance) {
			v = mcVariance[b]
		}
		d := 0.0
		if b < len(data) {
			d = data[b]
		}
		term, err := li.Kernel.Eval(mc[b], v, d)
		if err != nil {
			if ae, ok := err.(*apperrors.AppError); ok {
				ae.WithDetail("sample", sampleName).WithDetail("bin", b)
			}
			return 0, err
		}
		total += term
	}
	return total, nil
}

// EvalPenalty evaluates one parameter set's penalty term, in its
// effective basis (eigen when decomposed, original otherwise).
func (li *Interface) EvalPenalty(set *fitparam.ParameterSet) float64 {
	return set.Penalty()
}

// LastBuffer returns the decomposition computed by the most recent
// PropagateAndEval call.
func (li *Interface) LastBuffer() Buffer { return li.buffer }

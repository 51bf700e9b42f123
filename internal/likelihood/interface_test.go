package likelihood

import (
	"context"
	"math"
	"testing"

	"github.com/nuwisp/gundam-go/internal/binning"
	"github.com/nuwisp/gundam-go/internal/dial"
	"github.com/nuwisp/gundam-go/internal/dialcache"
	"github.com/nuwisp/gundam-go/internal/fitparam"
	"github.com/nuwisp/gundam-go/internal/propagator"
	"github.com/nuwisp/gundam-go/internal/sample"
	"github.com/nuwisp/gundam-go/internal/variable"
	"github.com/nuwisp/gundam-go/internal/workerpool"
	"gonum.org/v1/gonum/mat"
)

func eventValues(e *variable.Event) map[string]float64 {
	v, _ := e.Variables.Scalar("E")
	return map[string]float64{"E": v}
}

func newEvent(e, weight float64) *variable.Event {
	vars := variable.NewVariableStore()
	vars.SetScalar("E", e)
	vars.Freeze()
	return variable.NewEvent(0, 0, weight, vars)
}

func buildSingleBinSetup(t *testing.T, priorValue float64) (*propagator.Propagator, []*propagator.BoundSample, []*fitparam.ParameterSet) {
	t.Helper()
	bins, err := binning.New([]binning.Bin{{Edges: []binning.Edge{{Variable: "E", Low: 0, High: 10}}}})
	if err != nil {
		t.Fatalf("binning: %v", err)
	}
	s := sample.New("sig", bins, "", 1)
	events := []*variable.Event{newEvent(1, 100)}
	s.LoadEvents(0, events, nil, eventValues)

	norm := dial.NewNormalization("norm_dial")
	param := fitparam.Parameter{Name: "norm", Value: priorValue, Prior: 1.0, Sigma: 0.1, Enabled: true}
	param.AddDialSet(&fitparam.DialSet{SampleName: "sig", DialList: []*dial.Dial{norm}})
	cov := mat.NewSymDense(1, []float64{0.01})
	ps := fitparam.New("xsec", []fitparam.Parameter{param}, cov)
	if err := ps.Initialize(false); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	sets := []*fitparam.ParameterSet{ps}

	cache := dialcache.Build("sig", s.Events, eventValues, sets)
	rt := workerpool.NewRuntime(1, nil, 0)
	t.Cleanup(rt.Close)

	bound := []propagator.BoundSample{{Sample: s, Cache: cache}}
	prop := propagator.New(rt, sets, bound, true)

	boundPtrs := make([]*propagator.BoundSample, len(bound))
	for i := range bound {
		boundPtrs[i] = &bound[i]
	}
	return prop, boundPtrs, sets
}

func TestScenario1SingleBinSingleNormDialAtPrior(t *testing.T) {
	prop, samples, sets := buildSingleBinSetup(t, 1.0)
	li := New(PoissonKernel{}, sets, prop, samples)

	if err := li.LoadData(context.Background(), PresetAsimov, nil, nil); err != nil {
		t.Fatalf("LoadData: %v", err)
	}

	total, err := li.PropagateAndEval(context.Background())
	if err != nil {
		t.Fatalf("PropagateAndEval: %v", err)
	}
	if math.Abs(total) > 1e-9 {
		t.Fatalf("expected total==0 at x=prior, got %v", total)
	}
}

func TestScenario1SingleBinSingleNormDialOffPrior(t *testing.T) {
	prop, samples, sets := buildSingleBinSetup(t, 1.0)
	li := New(PoissonKernel{}, sets, prop, samples)
	if err := li.LoadData(context.Background(), PresetAsimov, nil, nil); err != nil {
		t.Fatalf("LoadData: %v", err)
	}

	sets[0].Parameters[0].Value = 1.1
	total, err := li.PropagateAndEval(context.Background())
	if err != nil {
		t.Fatalf("PropagateAndEval: %v", err)
	}

	wantStat := 0.93796
	wantPenalty := 1.0
	want := wantStat + wantPenalty
	if math.Abs(total-want) > 1e-3 {
		t.Fatalf("got total %v, want ~%v (stat %v + penalty %v)", total, want, wantStat, wantPenalty)
	}
}

func TestPropagateAndEvalUsesEffectivePenaltyBasis(t *testing.T) {
	_, _, sets := buildSingleBinSetup(t, 1.0)
	if sets[0].IsEigenDecomposed() {
		t.Fatalf("expected no eigen decomposition when Initialize(false) was used")
	}
	if len(sets[0].EffectiveParameters()) != 1 {
		t.Fatalf("expected the effective parameter list to be the original (non-eigen) basis")
	}
}

package propagator

import (
	"context"
	"math"
	"testing"

	"github.com/nuwisp/gundam-go/internal/binning"
	"github.com/nuwisp/gundam-go/internal/dial"
	"github.com/nuwisp/gundam-go/internal/dialcache"
	"github.com/nuwisp/gundam-go/internal/fitparam"
	"github.com/nuwisp/gundam-go/internal/sample"
	"github.com/nuwisp/gundam-go/internal/variable"
	"github.com/nuwisp/gundam-go/internal/workerpool"
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

func buildSample(t *testing.T) (*sample.Sample, []*fitparam.ParameterSet) {
	t.Helper()
	bins, err := binning.New([]binning.Bin{{Edges: []binning.Edge{{Variable: "E", Low: 0, High: 10}}}})
	if err != nil {
		t.Fatalf("binning: %v", err)
	}
	s := sample.New("sig", bins, "", 2)
	events := []*variable.Event{newEvent(1, 10), newEvent(2, 20)}
	s.LoadEvents(0, events, nil, eventValues)

	norm := dial.NewNormalization("norm_dial")
	param := fitparam.Parameter{Name: "norm", Value: 1.5, Prior: 1, Sigma: 0.1, Enabled: true}
	param.AddDialSet(&fitparam.DialSet{SampleName: "sig", DialList: []*dial.Dial{norm}})
	ps := fitparam.New("xsec", []fitparam.Parameter{param}, nil)

	return s, []*fitparam.ParameterSet{ps}
}

func TestPropagateParametersAppliesDialAndRefills(t *testing.T) {
	s, sets := buildSample(t)
	cache := dialcache.Build("sig", s.Events, eventValues, sets)

	rt := workerpool.NewRuntime(2, nil, 0)
	defer rt.Close()

	prop := New(rt, sets, []BoundSample{{Sample: s, Cache: cache}}, true)
	if err := prop.PropagateParameters(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := (10 + 20) * 1.5
	if math.Abs(s.MC.Sum[0]-want) > 1e-9 {
		t.Fatalf("got bin sum %v, want %v", s.MC.Sum[0], want)
	}
}

func TestReweightMcEventsDoesNotRefillHistogram(t *testing.T) {
	s, sets := buildSample(t)
	cache := dialcache.Build("sig", s.Events, eventValues, sets)

	rt := workerpool.NewRuntime(1, nil, 0)
	defer rt.Close()

	prop := New(rt, sets, []BoundSample{{Sample: s, Cache: cache}}, true)
	if err := prop.ReweightMcEvents(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if s.MC.Sum[0] != 0 {
		t.Fatalf("expected histogram untouched by ReweightMcEvents, got %v", s.MC.Sum[0])
	}
	if math.Abs(s.Events[0].CurrentWeight-15) > 1e-9 {
		t.Fatalf("expected event reweighted in place, got %v", s.Events[0].CurrentWeight)
	}
}

func TestPropagateParametersResetsCurrentWeightBeforeReapplying(t *testing.T) {
	s, sets := buildSample(t)
	cache := dialcache.Build("sig", s.Events, eventValues, sets)

	rt := workerpool.NewRuntime(2, nil, 0)
	defer rt.Close()
	prop := New(rt, sets, []BoundSample{{Sample: s, Cache: cache}}, true)

	if err := prop.PropagateParameters(context.Background()); err != nil {
		t.Fatalf("first pass: %v", err)
	}
	firstSum := s.MC.Sum[0]

	sets[0].Parameters[0].Value = 1.5
	if err := prop.PropagateParameters(context.Background()); err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if math.Abs(s.MC.Sum[0]-firstSum) > 1e-9 {
		t.Fatalf("expected deterministic replay with same parameter value, got %v vs %v", s.MC.Sum[0], firstSum)
	}
}

func TestReweightFailsOnStrictNegativeResponse(t *testing.T) {
	bins, err := binning.New([]binning.Bin{{Edges: []binning.Edge{{Variable: "E", Low: 0, High: 10}}}})
	if err != nil {
		t.Fatalf("binning: %v", err)
	}
	s := sample.New("sig", bins, "", 1)
	events := []*variable.Event{newEvent(1, 10)}
	s.LoadEvents(0, events, nil, eventValues)

	neg := dial.NewGraph("neg", []float64{0, 1}, []float64{-1, -1})
	neg.Strict = true
	param := fitparam.Parameter{Name: "norm", Value: 0.5, Prior: 0, Sigma: 1, Enabled: true}
	param.AddDialSet(&fitparam.DialSet{SampleName: "sig", DialList: []*dial.Dial{neg}})
	ps := fitparam.New("xsec", []fitparam.Parameter{param}, nil)
	sets := []*fitparam.ParameterSet{ps}

	cache := dialcache.Build("sig", s.Events, eventValues, sets)
	rt := workerpool.NewRuntime(1, nil, 0)
	defer rt.Close()

	prop := New(rt, sets, []BoundSample{{Sample: s, Cache: cache}}, true)
	if err := prop.ReweightMcEvents(context.Background()); err == nil {
		t.Fatalf("expected a MathError from the strict negative-response dial")
	}
}

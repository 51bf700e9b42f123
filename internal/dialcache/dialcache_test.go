package dialcache

import (
	"testing"

	"github.com/nuwisp/gundam-go/internal/dial"
	"github.com/nuwisp/gundam-go/internal/fitparam"
	"github.com/nuwisp/gundam-go/internal/variable"
)

func newEvent(e float64) *variable.Event {
	vars := variable.NewVariableStore()
	vars.SetScalar("E", e)
	vars.Freeze()
	return variable.NewEvent(0, 0, 1, vars)
}

func eventValues(e *variable.Event) map[string]float64 {
	v, _ := e.Variables.Scalar("E")
	return map[string]float64{"E": v}
}

func TestBuildCachesFirstApplicableDial(t *testing.T) {
	param := fitparam.Parameter{Name: "norm", Value: 1, Prior: 1, Sigma: 0.1, Enabled: true}
	d := dial.NewNormalization("norm_dial")
	param.AddDialSet(&fitparam.DialSet{SampleName: "sig", DialList: []*dial.Dial{d}})
	ps := fitparam.New("xsec", []fitparam.Parameter{param}, nil)

	events := []*variable.Event{newEvent(0.5), newEvent(1.5)}
	cache := Build("sig", events, eventValues, []*fitparam.ParameterSet{ps})

	if !cache.Frozen() {
		t.Fatalf("expected cache to be frozen after Build")
	}
	if cache.Len() != 2 {
		t.Fatalf("expected 2 events cached, got %d", cache.Len())
	}
	slots := cache.Slots(0)
	if len(slots) != 1 || slots[0].Dial != d {
		t.Fatalf("expected exactly one slot bound to the normalization dial, got %+v", slots)
	}
}

func TestBuildSkipsEventsRejectedByApplyFormula(t *testing.T) {
	param := fitparam.Parameter{Name: "norm", Value: 1, Prior: 1, Sigma: 0.1, Enabled: true}
	d := dial.NewNormalization("norm_dial")
	param.AddDialSet(&fitparam.DialSet{
		SampleName:   "sig",
		ApplyFormula: func(v map[string]float64) bool { return v["E"] > 1 },
		DialList:     []*dial.Dial{d},
	})
	ps := fitparam.New("xsec", []fitparam.Parameter{param}, nil)

	events := []*variable.Event{newEvent(0.5), newEvent(1.5)}
	cache := Build("sig", events, eventValues, []*fitparam.ParameterSet{ps})

	if len(cache.Slots(0)) != 0 {
		t.Fatalf("expected event below threshold to have no cached slot")
	}
	if len(cache.Slots(1)) != 1 {
		t.Fatalf("expected event above threshold to have one cached slot")
	}
}

func TestBuildSkipsParametersWithNoDialSetForSample(t *testing.T) {
	param := fitparam.Parameter{Name: "norm", Value: 1, Prior: 1, Sigma: 0.1, Enabled: true}
	param.AddDialSet(&fitparam.DialSet{SampleName: "other", DialList: []*dial.Dial{dial.NewNormalization("x")}})
	ps := fitparam.New("xsec", []fitparam.Parameter{param}, nil)

	events := []*variable.Event{newEvent(0.5)}
	cache := Build("sig", events, eventValues, []*fitparam.ParameterSet{ps})

	if len(cache.Slots(0)) != 0 {
		t.Fatalf("expected no slots for a sample the parameter has no dialset for")
	}
}

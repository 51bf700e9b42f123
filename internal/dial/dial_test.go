package dial

import (
	"math"
	"testing"
)

func TestNormalizationIsIdentity(t *testing.T) {
	d := NewNormalization("norm")
	r, err := d.Evaluate(1.1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r != 1.1 {
		t.Fatalf("got %v, want 1.1", r)
	}
}

func TestGraphLerp(t *testing.T) {
	d := NewGraph("graph", []float64{0, 1, 2}, []float64{1, 2, 4})
	r, err := d.Evaluate(0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(r-1.5) > 1e-12 {
		t.Fatalf("got %v, want 1.5", r)
	}
	// clamp outside range
	r, _ = d.Evaluate(10)
	if r != 4 {
		t.Fatalf("got %v, want clamp to 4", r)
	}
}

func TestSplineClampsOutsideDomain(t *testing.T) {
	d := NewSpline("spline", []float64{-3, -2, -1, 0, 1, 2, 3}, []float64{9, 4, 1, 0, 1, 4, 9})
	rHigh, err := d.Evaluate(5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rAtBound, _ := d.Evaluate(3)
	if rHigh != rAtBound {
		t.Fatalf("got %v at x=5, want clamp to spline(3)=%v", rHigh, rAtBound)
	}

	rLow, _ := d.Evaluate(-10)
	rAtLowBound, _ := d.Evaluate(-3)
	if rLow != rAtLowBound {
		t.Fatalf("got %v at x=-10, want clamp to spline(-3)=%v", rLow, rAtLowBound)
	}
}

func TestStrictNegativeResponseErrors(t *testing.T) {
	d := NewGraph("neg", []float64{0, 1}, []float64{-1, -1})
	d.Strict = true
	if _, err := d.Evaluate(0.5); err == nil {
		t.Fatalf("expected NegativeResponse error")
	}
}

func TestLenientNegativeResponseClips(t *testing.T) {
	d := NewGraph("neg", []float64{0, 1}, []float64{-1, -1})
	d.Strict = false
	r, err := d.Evaluate(0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r != d.Floor {
		t.Fatalf("got %v, want floor %v", r, d.Floor)
	}
}

func TestApplyConditionBinAndFormula(t *testing.T) {
	d := NewNormalization("cond")
	d.ApplyFormula = func(values map[string]float64) bool { return values["E"] > 1 }
	if d.Applies(map[string]float64{"E": 0.5}) {
		t.Fatalf("formula should have excluded this event")
	}
	if !d.Applies(map[string]float64{"E": 2}) {
		t.Fatalf("formula should have allowed this event")
	}
}

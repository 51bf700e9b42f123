package likelihood

import (
	"math"
	"testing"
)

func TestPoissonKernelZeroAtEqualPrediction(t *testing.T) {
	k := PoissonKernel{}
	v, err := k.Eval(100, 0, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(v) > 1e-12 {
		t.Fatalf("expected 0 at mu==n, got %v", v)
	}
}

func TestPoissonKernelMatchesScenario1(t *testing.T) {
	k := PoissonKernel{}
	v, err := k.Eval(110, 0, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := 0.93796
	if math.Abs(v-want) > 1e-3 {
		t.Fatalf("got %v, want ~%v", v, want)
	}
}

func TestPoissonKernelZeroDataZeroMcIsZero(t *testing.T) {
	k := PoissonKernel{}
	v, err := k.Eval(0, 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 0 {
		t.Fatalf("expected 0, got %v", v)
	}
}

func TestPoissonKernelDivergesOnZeroMcPositiveData(t *testing.T) {
	k := PoissonKernel{}
	if _, err := k.Eval(0, 0, 5); err == nil {
		t.Fatalf("expected InvalidLikelihood error")
	}
}

func TestChiSquareKernel(t *testing.T) {
	k := ChiSquareKernel{}
	v, err := k.Eval(100, 0, 110)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := 100.0 / 100.0
	if math.Abs(v-want) > 1e-9 {
		t.Fatalf("got %v, want %v", v, want)
	}
}

func TestLeastSquaresKernelFlat(t *testing.T) {
	k := LeastSquaresKernel{}
	v, _ := k.Eval(100, 0, 110)
	if math.Abs(v-100) > 1e-9 {
		t.Fatalf("got %v, want 100", v)
	}
}

func TestBarlowBeestonOA2021ReducesToPoissonWhenNoMcVariance(t *testing.T) {
	bb := BarlowBeestonKernel{Variant: BarlowBeestonOA2021, AllowZeroMcWhenZeroData: true}
	poisson := PoissonKernel{}

	mc, data := 57.0, 61.0
	got, err := bb.Eval(mc, 0, data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want, err := poisson.Eval(mc, 0, data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("got %v, want %v (should reduce to Poisson with zero MC variance)", got, want)
	}
}

func TestBarlowBeestonAllowsZeroMcZeroData(t *testing.T) {
	bb := BarlowBeestonKernel{Variant: BarlowBeestonOA2021, AllowZeroMcWhenZeroData: true}
	v, err := bb.Eval(0, 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 0 {
		t.Fatalf("expected 0, got %v", v)
	}
}

func TestBarlowBeestonWithVarianceStaysFinite(t *testing.T) {
	bb := BarlowBeestonKernel{Variant: BarlowBeestonFull}
	v, err := bb.Eval(50, 5, 55)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		t.Fatalf("expected a finite result, got %v", v)
	}
	if v < 0 {
		t.Fatalf("expected non-negative likelihood contribution, got %v", v)
	}
}

package fitparam

import (
	"math"
	"testing"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

func newCorrelatedSet(t *testing.T) *ParameterSet {
	t.Helper()
	cov := mat.NewSymDense(2, []float64{1, 0.5, 0.5, 1})
	params := []Parameter{
		{Name: "p0", Prior: 0, Sigma: 1, Enabled: true, Value: 0.3},
		{Name: "p1", Prior: 0, Sigma: 1, Enabled: true, Value: -0.2},
	}
	return New("xsec", params, cov)
}

func TestPenaltyNonNegative(t *testing.T) {
	ps := newCorrelatedSet(t)
	if err := ps.Initialize(false); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	p := ps.Penalty()
	if p < 0 {
		t.Fatalf("penalty must be non-negative, got %v", p)
	}
	if math.Abs(p-0.2533333333) > 1e-6 {
		t.Fatalf("got penalty %v, want ~0.25333", p)
	}
}

func TestPenaltyZeroAtPrior(t *testing.T) {
	ps := newCorrelatedSet(t)
	if err := ps.Initialize(false); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	ps.MoveToPrior()
	if p := ps.Penalty(); p != 0 {
		t.Fatalf("expected zero penalty at prior, got %v", p)
	}
}

func TestEigenRoundTrip(t *testing.T) {
	ps := newCorrelatedSet(t)
	if err := ps.Initialize(true); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if !ps.IsEigenDecomposed() {
		t.Fatalf("expected eigen decomposition enabled")
	}

	wantOriginal := []float64{ps.Parameters[0].Value, ps.Parameters[1].Value}

	ps.PropagateOriginalToEigen()
	ps.PropagateEigenToOriginal()

	for i, want := range wantOriginal {
		got := ps.Parameters[i].Value
		if math.Abs(got-want) > 1e-10 {
			t.Fatalf("round trip mismatch at %d: got %v want %v", i, got, want)
		}
	}
}

func TestEigenPenaltyMatchesOriginalBasis(t *testing.T) {
	psOriginal := newCorrelatedSet(t)
	if err := psOriginal.Initialize(false); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	originalPenalty := psOriginal.Penalty()

	psEigen := newCorrelatedSet(t)
	if err := psEigen.Initialize(true); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	eigenPenalty := psEigen.Penalty()

	if math.Abs(originalPenalty-eigenPenalty) > 1e-8 {
		t.Fatalf("eigen-basis penalty %v should equal original-basis penalty %v", eigenPenalty, originalPenalty)
	}
}

func TestFixedParameterExcludedFromPenalty(t *testing.T) {
	cov := mat.NewSymDense(2, []float64{1, 0.5, 0.5, 1})
	params := []Parameter{
		{Name: "p0", Prior: 0, Sigma: 1, Enabled: true, Value: 5, Fixed: true},
		{Name: "p1", Prior: 0, Sigma: 1, Enabled: true, Value: 0.3},
	}
	ps := New("xsec", params, cov)
	if err := ps.Initialize(false); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if ps.NonFixedCount() != 1 {
		t.Fatalf("expected 1 non-fixed parameter, got %d", ps.NonFixedCount())
	}
	p := ps.Penalty()
	want := 0.3 * 0.3
	if math.Abs(p-want) > 1e-8 {
		t.Fatalf("got %v, want %v (fixed param should not contribute)", p, want)
	}
}

func TestThrowParametersRespectsBounds(t *testing.T) {
	ps := newCorrelatedSet(t)
	min, max := -0.05, 0.05
	ps.Parameters[0].Min = &min
	ps.Parameters[0].Max = &max
	ps.Parameters[1].Min = &min
	ps.Parameters[1].Max = &max
	if err := ps.Initialize(false); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	rng := rand.New(rand.NewSource(42))
	ps.ThrowParameters(rng)

	for i, p := range ps.Parameters {
		if !p.InBounds(p.Value) {
			t.Fatalf("parameter %d value %v out of bounds [%v, %v]", i, p.Value, min, max)
		}
	}
}

func TestConditionNumberWithoutEigenIsNaN(t *testing.T) {
	ps := newCorrelatedSet(t)
	if err := ps.Initialize(false); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if !math.IsNaN(ps.ConditionNumber()) {
		t.Fatalf("expected NaN condition number without eigen decomposition")
	}
}

package minimizer

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/nuwisp/gundam-go/internal/fitparam"
)

func TestRunHesseReportsConditionNumber(t *testing.T) {
	cov := mat.NewSymDense(2, []float64{1, 0, 0, 1})
	params := []fitparam.Parameter{
		{Name: "a", Prior: 3, Sigma: 1, Value: 3, Enabled: true},
		{Name: "b", Prior: 3, Sigma: 1, Value: 3, Enabled: true},
	}
	ps := fitparam.New("demo", params, cov)
	if err := ps.Initialize(false); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	sets := []*fitparam.ParameterSet{ps}

	d := New(Config{
		UseNormalizedFitSpace: true,
		Tolerance:             0.1,
		MaxFunctionCalls:      10000,
		MaxIterations:         1000,
	}, sets, nil)
	if err := d.Configure(); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	eval := quadraticEval(sets)
	if err := d.Minimize(eval); err != nil {
		t.Fatalf("Minimize: %v", err)
	}

	pfc, err := d.EvaluateErrors(eval)
	if err != nil {
		t.Fatalf("EvaluateErrors: %v", err)
	}
	if math.IsNaN(pfc.ConditionNum) {
		t.Fatalf("expected a finite condition number")
	}
	if len(pfc.Original) != 2 {
		t.Fatalf("expected a 2x2 covariance, got %d rows", len(pfc.Original))
	}
}

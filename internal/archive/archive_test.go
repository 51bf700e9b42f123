package archive

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/nuwisp/gundam-go/internal/binning"
	"github.com/nuwisp/gundam-go/internal/fitparam"
	"github.com/nuwisp/gundam-go/internal/minimizer"
	"github.com/nuwisp/gundam-go/internal/sample"
)

func TestWriteVersionInfo(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.WriteVersionInfo("1.0.0", []string{"gundamfit", "-c", "fit.yaml"}); err != nil {
		t.Fatalf("WriteVersionInfo: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "gundamCalcXsec", "version.txt"))
	if err != nil {
		t.Fatalf("reading version.txt: %v", err)
	}
	if string(data) != "1.0.0\n" {
		t.Fatalf("got %q, want %q", data, "1.0.0\n")
	}
}

func TestWritePostFitHistograms(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	bins, err := binning.New([]binning.Bin{{Edges: []binning.Edge{{Variable: "E", Low: 0, High: 1}}}})
	if err != nil {
		t.Fatalf("binning: %v", err)
	}
	s := sample.New("sig", bins, "", 1)
	s.MC.Sum[0] = 42
	s.MC.Error[0] = 6.5

	if err := w.WritePostFitHistograms([]*sample.Sample{s}); err != nil {
		t.Fatalf("WritePostFitHistograms: %v", err)
	}

	f, err := os.Open(filepath.Join(dir, "XsecExtractor", "postFit", "histograms", "sig.csv"))
	if err != nil {
		t.Fatalf("opening histogram csv: %v", err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("reading csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected header + 1 row, got %d", len(records))
	}
	if records[1][1] != "42" {
		t.Fatalf("got sum %q, want 42", records[1][1])
	}
}

func TestWriteHesseErrors(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	cov := mat.NewSymDense(1, []float64{0.04})
	params := []fitparam.Parameter{{Name: "norm", Value: 1.02, Prior: 1, Sigma: 0.2, Enabled: true}}
	ps := fitparam.New("xsec", params, cov)
	if err := ps.Initialize(false); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	pfc := &minimizer.PostFitCovariance{Original: [][]float64{{0.04}}, EigenValues: []float64{0.04}, ConditionNum: 1}
	if err := w.WriteHesseErrors("xsec", ps, pfc); err != nil {
		t.Fatalf("WriteHesseErrors: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "postFit", "Hesse", "errors", "xsec", "values.csv")); err != nil {
		t.Fatalf("expected values.csv: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "postFit", "Hesse", "errors", "xsec", "matrices", "covariance_original.csv")); err != nil {
		t.Fatalf("expected covariance_original.csv: %v", err)
	}
}

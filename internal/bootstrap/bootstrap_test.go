package bootstrap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nuwisp/gundam-go/internal/config"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

func TestParameterSetsBuildsFreeAndCorrelatedSets(t *testing.T) {
	cov := writeTempFile(t, "cov.csv", "0.04,0\n0,0.09\n")
	cfg := &config.Config{
		ParameterSets: []config.ParameterSetConfig{
			{
				Name:           "xsec",
				CovarianceFile: cov,
				Parameters: []config.ParameterConfig{
					{Name: "norm", Prior: 1.0, Sigma: 0.2, Enabled: true},
					{Name: "slope", Prior: 0.0, Sigma: 0.3, Enabled: true},
				},
			},
			{
				Name: "detector",
				Parameters: []config.ParameterConfig{
					{Name: "scale", Prior: 1.0, Sigma: 0, Enabled: true},
				},
			},
		},
	}

	sets, err := ParameterSets(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sets) != 2 {
		t.Fatalf("got %d parameter sets, want 2", len(sets))
	}
	if sets[0].Name != "xsec" || len(sets[0].Parameters) != 2 {
		t.Fatalf("got %+v, want xsec with 2 parameters", sets[0])
	}
	if sets[1].Name != "detector" || len(sets[1].Parameters) != 1 {
		t.Fatalf("got %+v, want detector with 1 parameter", sets[1])
	}
}

func TestParameterSetsPropagatesDialFileErrors(t *testing.T) {
	cfg := &config.Config{
		ParameterSets: []config.ParameterSetConfig{
			{
				Name: "xsec",
				Parameters: []config.ParameterConfig{
					{Name: "norm", Prior: 1.0, Enabled: true, DialFile: "/does/not/exist.txt"},
				},
			},
		},
	}
	if _, err := ParameterSets(cfg); err == nil {
		t.Fatalf("expected error for missing dial file")
	}
}

func TestSamplesBindsEventsToBinning(t *testing.T) {
	events := writeTempFile(t, "events.csv", "weight,E\n1.0,0.5\n1.0,1.5\n")
	bins := writeTempFile(t, "bins.txt", "E:[0,1)\nE:[1,2)\n")

	cfg := &config.Config{
		Datasets: []config.DatasetConfig{{Name: "mc", TreePath: events}},
		Samples:  []config.SampleConfig{{Name: "signal", Dataset: "mc", BinningFile: bins}},
		Propagator: config.PropagatorConfig{NbThreads: 1},
	}

	boundSamples, err := Samples(cfg, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(boundSamples) != 1 {
		t.Fatalf("got %d bound samples, want 1", len(boundSamples))
	}
	if boundSamples[0].Sample.NBins() != 2 {
		t.Fatalf("got %d bins, want 2", boundSamples[0].Sample.NBins())
	}
}

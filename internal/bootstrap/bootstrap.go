// Package bootstrap builds the ParameterSets and BoundSamples both
// gundamfit and gundamcalcxsec need from a parsed Config, sharing the
// same config-to-domain-object wiring so the two binaries never drift.
package bootstrap

import (
	"gonum.org/v1/gonum/mat"

	"github.com/nuwisp/gundam-go/internal/binning"
	"github.com/nuwisp/gundam-go/internal/config"
	"github.com/nuwisp/gundam-go/internal/dialcache"
	"github.com/nuwisp/gundam-go/internal/fitparam"
	"github.com/nuwisp/gundam-go/internal/ingest"
	"github.com/nuwisp/gundam-go/internal/propagator"
	"github.com/nuwisp/gundam-go/internal/sample"
	"github.com/nuwisp/gundam-go/internal/variable"
)

// ParameterSets builds one fitparam.ParameterSet per entry in
// cfg.ParameterSets: its covariance (if any), its parameters, their
// dial sets (if any), then runs Initialize.
func ParameterSets(cfg *config.Config) ([]*fitparam.ParameterSet, error) {
	sets := make([]*fitparam.ParameterSet, 0, len(cfg.ParameterSets))
	for _, psc := range cfg.ParameterSets {
		covMat, err := loadCovariance(psc.CovarianceFile)
		if err != nil {
			return nil, err
		}

		params := make([]fitparam.Parameter, len(psc.Parameters))
		for i, pc := range psc.Parameters {
			params[i] = fitparam.Parameter{
				Name:    pc.Name,
				Value:   pc.Prior,
				Prior:   pc.Prior,
				Sigma:   pc.Sigma,
				Min:     pc.Min,
				Max:     pc.Max,
				Step:    pc.Step,
				Fixed:   pc.Fixed,
				Enabled: pc.Enabled,
			}
		}

		ps := fitparam.New(psc.Name, params, covMat)
		for i, pc := range psc.Parameters {
			if pc.DialFile == "" {
				continue
			}
			dialSets, err := ingest.LoadDialSets(pc.DialFile)
			if err != nil {
				return nil, err
			}
			for _, ds := range dialSets {
				ps.Parameters[i].AddDialSet(ds)
			}
		}
		if err := ps.Initialize(psc.EnableEigenDecomp); err != nil {
			return nil, err
		}
		sets = append(sets, ps)
	}
	return sets, nil
}

func loadCovariance(path string) (*mat.SymDense, error) {
	if path == "" {
		return nil, nil
	}
	return ingest.LoadCovariance(path)
}

// Samples loads every configured dataset, builds one Sample per
// cfg.Samples entry bound to its binning, and caches each sample's
// applicable dials against sets.
func Samples(cfg *config.Config, sets []*fitparam.ParameterSet) ([]*propagator.BoundSample, error) {
	datasets := make(map[string][]*variable.Event, len(cfg.Datasets))
	for i, ds := range cfg.Datasets {
		events, err := ingest.LoadEvents(ds.TreePath, i)
		if err != nil {
			return nil, err
		}
		datasets[ds.Name] = events
	}

	boundSamples := make([]*propagator.BoundSample, 0, len(cfg.Samples))
	for sampleIndex, sc := range cfg.Samples {
		bins, err := binning.Load(sc.BinningFile)
		if err != nil {
			return nil, err
		}
		s := sample.New(sc.Name, bins, sc.SelectionCut, cfg.Propagator.NbThreads)
		candidates := datasets[sc.Dataset]
		s.LoadEvents(sampleIndex, candidates, nil, ingest.VariableValues)

		cache := dialcache.Build(sc.Name, s.Events, ingest.VariableValues, sets)
		boundSamples = append(boundSamples, &propagator.BoundSample{Sample: s, Cache: cache})
	}
	return boundSamples, nil
}

// Command gundamcalcxsec throws a parameter set's prior covariance N
// times, reweighting the propagator at each throw, and persists the
// resulting per-bin distributions alongside the central-value (prior)
// prediction — the same propagation machinery gundamfit drives to a
// minimum, run here without any minimization at all.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"golang.org/x/exp/rand"

	"github.com/nuwisp/gundam-go/internal/archive"
	"github.com/nuwisp/gundam-go/internal/bootstrap"
	"github.com/nuwisp/gundam-go/internal/config"
	"github.com/nuwisp/gundam-go/internal/logger"
	"github.com/nuwisp/gundam-go/internal/propagator"
	"github.com/nuwisp/gundam-go/internal/sample"
	"github.com/nuwisp/gundam-go/internal/workerpool"
)

const (
	exitOK            = 0
	exitConfigInvalid = 1
	exitLoadFailure   = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "fit.yaml", "path to the fit configuration YAML file")
	nThrows := flag.Int("nThrows", 1000, "number of toy throws")
	seed := flag.Uint64("seed", 1, "RNG seed for the throws")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gundamcalcxsec: %v\n", err)
		return exitConfigInvalid
	}
	if err := config.NewValidator(cfg).Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "gundamcalcxsec: %v\n", err)
		return exitConfigInvalid
	}

	log := logger.New(logger.Config{
		Level:  logger.Level(cfg.Logging.Level),
		Format: logger.Format(cfg.Logging.Format),
		Output: cfg.Logging.Output,
	})
	log.Info("starting toy throws", "config", *configPath, "nThrows", *nThrows)

	sets, err := bootstrap.ParameterSets(cfg)
	if err != nil {
		log.Error("building parameter sets", "error", err.Error())
		return exitConfigInvalid
	}
	boundSamples, err := bootstrap.Samples(cfg, sets)
	if err != nil {
		log.Error("loading datasets and samples", "error", err.Error())
		return exitLoadFailure
	}

	monitorPeriod := time.Duration(cfg.Likelihood.RateLimitedMonitorPeriodMs) * time.Millisecond
	rt := workerpool.NewRuntime(cfg.Propagator.NbThreads, log, monitorPeriod)
	defer rt.Close()

	propSamples := make([]propagator.BoundSample, len(boundSamples))
	for i, bs := range boundSamples {
		propSamples[i] = *bs
	}
	prop := propagator.New(rt, sets, propSamples, cfg.Propagator.ThrowOnInvalidResponse)

	ctx := context.Background()
	for _, set := range sets {
		set.MoveToPrior()
	}
	if err := prop.PropagateParameters(ctx); err != nil {
		log.Error("propagating prior prediction", "error", err.Error())
		return exitLoadFailure
	}

	w, err := archive.NewWriter(cfg.Archive.OutputDir)
	if err != nil {
		log.Error("opening archive", "error", err.Error())
		return exitLoadFailure
	}
	if err := w.WriteVersionInfo(config.EngineVersion, []string{"gundamcalcxsec", "-config", *configPath}); err != nil {
		log.Error("writing version info", "error", err.Error())
		return exitLoadFailure
	}
	samples := make([]*sample.Sample, len(boundSamples))
	for i, bs := range boundSamples {
		samples[i] = bs.Sample
	}
	if err := w.WritePostFitHistograms(samples); err != nil {
		log.Error("writing central-value histograms", "error", err.Error())
		return exitLoadFailure
	}

	header := throwHeader(samples)
	rows := make([][]float64, 0, *nThrows)
	rng := rand.New(rand.NewSource(*seed))
	for t := 0; t < *nThrows; t++ {
		for _, set := range sets {
			set.ThrowParameters(rng)
			if set.IsEigenDecomposed() {
				set.PropagateOriginalToEigen()
			}
		}
		if err := prop.PropagateParameters(ctx); err != nil {
			log.Error("propagating throw", "throw", t, "error", err.Error())
			return exitLoadFailure
		}
		rows = append(rows, throwRow(samples))
	}

	if err := w.WriteThrows(header, rows); err != nil {
		log.Error("writing throws", "error", err.Error())
		return exitLoadFailure
	}

	log.Info("toy throws finished", "outputDir", cfg.Archive.OutputDir, "nThrows", len(rows))
	return exitOK
}

func throwHeader(samples []*sample.Sample) []string {
	var header []string
	for _, s := range samples {
		for b := 0; b < s.NBins(); b++ {
			header = append(header, fmt.Sprintf("%s.bin%d", s.Name, b))
		}
	}
	return header
}

func throwRow(samples []*sample.Sample) []float64 {
	var row []float64
	for _, s := range samples {
		row = append(row, s.MC.Sum...)
	}
	return row
}


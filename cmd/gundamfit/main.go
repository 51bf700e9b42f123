// Command gundamfit runs one binned maximum-likelihood fit: it loads a
// YAML configuration naming datasets, parameter sets, and samples,
// propagates the model through the requested likelihood preset, drives
// the minimizer to convergence, and persists post-fit errors and
// histograms under the configured output directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/exp/rand"

	"github.com/nuwisp/gundam-go/internal/apperrors"
	"github.com/nuwisp/gundam-go/internal/archive"
	"github.com/nuwisp/gundam-go/internal/bootstrap"
	"github.com/nuwisp/gundam-go/internal/config"
	"github.com/nuwisp/gundam-go/internal/fitparam"
	"github.com/nuwisp/gundam-go/internal/likelihood"
	"github.com/nuwisp/gundam-go/internal/logger"
	"github.com/nuwisp/gundam-go/internal/metrics"
	"github.com/nuwisp/gundam-go/internal/minimizer"
	"github.com/nuwisp/gundam-go/internal/propagator"
	"github.com/nuwisp/gundam-go/internal/sample"
	"github.com/nuwisp/gundam-go/internal/workerpool"
)

const (
	exitOK                   = 0
	exitConfigInvalid        = 1
	exitLoadFailure          = 2
	exitDidNotConverge       = 3
	exitCovarianceIndefinite = 4
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "fit.yaml", "path to the fit configuration YAML file")
	preset := flag.String("preset", "asimov", "likelihood data preset: asimov, data, or toy")
	seed := flag.Uint64("seed", 1, "RNG seed for the toy preset")
	metricsAddr := flag.String("metricsAddr", "", "if set, serve Prometheus metrics at this address (e.g. :9100)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gundamfit: %v\n", err)
		return exitConfigInvalid
	}
	if err := config.NewValidator(cfg).Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "gundamfit: %v\n", err)
		return exitConfigInvalid
	}

	log := logger.New(logger.Config{
		Level:  logger.Level(cfg.Logging.Level),
		Format: logger.Format(cfg.Logging.Format),
		Output: cfg.Logging.Output,
	})
	log.Info("starting fit", "config", *configPath, "preset", *preset)

	fit := metrics.NewFit()
	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				log.Warn("metrics server stopped", "error", err.Error())
			}
		}()
		log.Info("serving metrics", "addr", *metricsAddr)
	}

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

	kernel, err := likelihood.NewKernelFromConfig(cfg.Likelihood.JointProbability)
	if err != nil {
		log.Error("selecting joint probability kernel", "error", err.Error())
		return exitConfigInvalid
	}
	li := likelihood.New(kernel, sets, prop, boundSamples)

	ctx := context.Background()
	ldPreset, maskedSets, err := resolvePreset(*preset, cfg, sets)
	if err != nil {
		log.Error("resolving likelihood preset", "error", err.Error())
		return exitConfigInvalid
	}
	rng := rand.New(rand.NewSource(*seed))
	if err := li.LoadData(ctx, ldPreset, rng, maskedSets); err != nil {
		log.Error("loading likelihood data", "error", err.Error())
		return exitLoadFailure
	}

	drv := minimizer.New(minimizerConfig(cfg.Minimizer), sets, log)
	if err := drv.Configure(); err != nil {
		log.Error("configuring minimizer", "error", err.Error())
		return exitConfigInvalid
	}

	evalFit := func(x []float64) (float64, error) {
		start := time.Now()
		drv.WriteBack(x)
		total, err := li.PropagateAndEval(ctx)
		fit.ObserveEvalFit(time.Since(start))
		if err == nil {
			buf := li.LastBuffer()
			fit.SetLikelihood(sumValues(buf.Stat), sumValues(buf.Penalty), buf.Total)
		}
		rt.Monitor(int64(drv.FunctionCalls()), total)
		return total, err
	}

	if err := drv.Minimize(evalFit); err != nil {
		log.Error("minimizing", "error", err.Error())
	}
	fit.SetState(drv.State().String(), minimizerStateNames)
	if drv.State() != minimizer.StateConverged {
		log.Error("fit did not converge", "status", drv.Status())
		return exitDidNotConverge
	}
	log.Info("fit converged", "status", drv.Status(), "functionCalls", drv.FunctionCalls())

	pfc, err := drv.EvaluateErrors(evalFit)
	covarianceIndefinite := false
	if err != nil {
		if ae, ok := err.(*apperrors.AppError); ok && ae.IsStrictPromotion(cfg.Minimizer.StrictCovariance) {
			log.Error("post-fit covariance indefinite in strict mode", "error", err.Error())
			return exitCovarianceIndefinite
		}
		log.Warn("post-fit covariance warning", "error", err.Error())
		covarianceIndefinite = true
	}
	if err := drv.Finish(); err != nil {
		log.Error("finishing fit", "error", err.Error())
	}
	fit.SetState(drv.State().String(), minimizerStateNames)

	if err := writeArchive(cfg, boundSamples, sets, pfc, *configPath, covarianceIndefinite); err != nil {
		log.Error("writing archive", "error", err.Error())
		return exitLoadFailure
	}

	log.Info("fit finished", "outputDir", cfg.Archive.OutputDir)
	return exitOK
}

var minimizerStateNames = []string{
	minimizer.StateUninit.String(), minimizer.StateConfigured.String(),
	minimizer.StateMinimizing.String(), minimizer.StateConverged.String(),
	minimizer.StateFailed.String(), minimizer.StateErrorsEvaluated.String(),
	minimizer.StateFinished.String(),
}

func sumValues(m map[string]float64) float64 {
	total := 0.0
	for _, v := range m {
		total += v
	}
	return total
}

func resolvePreset(name string, cfg *config.Config, sets []*fitparam.ParameterSet) (likelihood.Preset, []*fitparam.ParameterSet, error) {
	switch name {
	case "asimov":
		return likelihood.PresetAsimov, nil, nil
	case "data":
		return likelihood.PresetData, nil, nil
	case "toy":
		var masked []*fitparam.ParameterSet
		for i, psc := range cfg.ParameterSets {
			if psc.MaskForToys {
				masked = append(masked, sets[i])
			}
		}
		return likelihood.PresetToy, masked, nil
	default:
		return 0, nil, apperrors.NewConfigError("unknown preset", nil).WithDetail("preset", name)
	}
}

func minimizerConfig(m config.MinimizerConfig) minimizer.Config {
	algo := minimizer.ErrorsHesse
	if m.ErrorsAlgo == "Minos" {
		algo = minimizer.ErrorsMinos
	}
	return minimizer.Config{
		UseNormalizedFitSpace:       m.UseNormalizedFitSpace,
		EnableSimplexBeforeMinimize: m.EnableSimplexBeforeMinimize,
		ErrorsAlgo:                  algo,
		StepSizeScaling:             m.StepSizeScaling,
		Tolerance:                   m.Tolerance,
		MaxFunctionCalls:            m.MaxFunctionCalls,
		MaxIterations:               m.MaxIterations,
		ThrowOnBadLikelihood:        m.ThrowOnBadLikelihood,
		StrictCovariance:            m.StrictCovariance,
	}
}

func writeArchive(cfg *config.Config, boundSamples []*propagator.BoundSample, sets []*fitparam.ParameterSet, pfc *minimizer.PostFitCovariance, configPath string, covarianceIndefinite bool) error {
	w, err := archive.NewWriter(cfg.Archive.OutputDir)
	if err != nil {
		return err
	}
	if err := w.WriteVersionInfo(config.EngineVersion, []string{"gundamfit", "-config", configPath}); err != nil {
		return err
	}

	samples := make([]*sample.Sample, len(boundSamples))
	for i, bs := range boundSamples {
		samples[i] = bs.Sample
	}
	if err := w.WritePostFitHistograms(samples); err != nil {
		return err
	}

	if pfc != nil {
		offset := 0
		for _, set := range sets {
			n := set.NonFixedCount()
			sub := &minimizer.PostFitCovariance{
				EigenValues:  pfc.EigenValues,
				ConditionNum: pfc.ConditionNum,
				NonPSD:       pfc.NonPSD,
			}
			sub.Original = subMatrix(pfc.Original, offset, n)
			if err := w.WriteHesseErrors(set.Name, set, sub); err != nil {
				return err
			}
			offset += n
		}
	}

	return w.WriteSummaryJSON(map[string]interface{}{
		"covarianceIndefinite": covarianceIndefinite,
	})
}

func subMatrix(full [][]float64, offset, n int) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
		if offset+i >= len(full) {
			continue
		}
		for j := 0; j < n; j++ {
			if offset+j < len(full[offset+i]) {
				out[i][j] = full[offset+i][offset+j]
			}
		}
	}
	return out
}

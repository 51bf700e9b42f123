// Package metrics exposes the fit's progress as Prometheus gauges and
// counters: evalFit call count, per-phase durations, and the current
// likelihood buffer, so a long Hesse pass can be watched from outside
// the process.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fit holds every metric the fitter emits. A nil *Fit is valid and every
// method on it is a no-op, so instrumentation can be threaded through
// unconditionally.
type Fit struct {
	evalFitCalls     prometheus.Counter
	evalFitDuration  prometheus.Histogram
	phaseDuration    *prometheus.HistogramVec
	statLikelihood   prometheus.Gauge
	penaltyLikelihood prometheus.Gauge
	totalLikelihood  prometheus.Gauge
	invalidResponses prometheus.Counter
	minimizerStatus  *prometheus.GaugeVec
}

// NewFit registers the fit metrics against the default registry. Safe to
// call at most once per process; callers that need isolation should use
// NewFitWith(prometheus.NewRegistry()).
func NewFit() *Fit {
	return NewFitWith(prometheus.DefaultRegisterer)
}

// NewFitWith registers against an explicit registerer, useful in tests
// that construct a fresh registry per case.
func NewFitWith(reg prometheus.Registerer) *Fit {
	factory := promauto.With(reg)
	return &Fit{
		evalFitCalls: factory.NewCounter(prometheus.CounterOpts{
			Name: "gundam_evalfit_calls_total",
			Help: "Total number of minimizer evalFit callbacks.",
		}),
		evalFitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "gundam_evalfit_duration_seconds",
			Help:    "Duration of a single evalFit callback (propagate + likelihood).",
			Buckets: prometheus.DefBuckets,
		}),
		phaseDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gundam_propagator_phase_duration_seconds",
			Help:    "Duration of a Propagator phase (reweight, fillHist, buildCache).",
			Buckets: prometheus.DefBuckets,
		}, []string{"phase"}),
		statLikelihood: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gundam_stat_likelihood",
			Help: "Most recent statistical likelihood term.",
		}),
		penaltyLikelihood: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gundam_penalty_likelihood",
			Help: "Most recent penalty likelihood term.",
		}),
		totalLikelihood: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gundam_total_likelihood",
			Help: "Most recent total likelihood.",
		}),
		invalidResponses: factory.NewCounter(prometheus.CounterOpts{
			Name: "gundam_invalid_dial_responses_total",
			Help: "Total number of negative/non-finite dial responses observed.",
		}),
		minimizerStatus: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gundam_minimizer_state",
			Help: "Current MinimizerDriver state, one gauge per state set to 1 when active.",
		}, []string{"state"}),
	}
}

// ObserveEvalFit records one evalFit callback's duration.
func (f *Fit) ObserveEvalFit(d time.Duration) {
	if f == nil {
		return
	}
	f.evalFitCalls.Inc()
	f.evalFitDuration.Observe(d.Seconds())
}

// ObservePhase records one Propagator phase's duration.
func (f *Fit) ObservePhase(phase string, d time.Duration) {
	if f == nil {
		return
	}
	f.phaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// SetLikelihood publishes the current LikelihoodBuffer contents.
func (f *Fit) SetLikelihood(stat, penalty, total float64) {
	if f == nil {
		return
	}
	f.statLikelihood.Set(stat)
	f.penaltyLikelihood.Set(penalty)
	f.totalLikelihood.Set(total)
}

// IncInvalidResponse counts one negative/non-finite dial response.
func (f *Fit) IncInvalidResponse() {
	if f == nil {
		return
	}
	f.invalidResponses.Inc()
}

// SetState marks state as the MinimizerDriver's current state, clearing
// every other known state to 0.
func (f *Fit) SetState(state string, allStates []string) {
	if f == nil {
		return
	}
	for _, s := range allStates {
		if s == state {
			f.minimizerStatus.WithLabelValues(s).Set(1)
		} else {
			f.minimizerStatus.WithLabelValues(s).Set(0)
		}
	}
}

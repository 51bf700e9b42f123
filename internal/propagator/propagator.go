// Package propagator orchestrates reweighting across parameter sets,
// samples, and worker threads: the pipeline step between a minimizer's
// trial parameter vector and a refreshed set of per-bin histograms.
package propagator

import (
	"context"
	"time"

	"github.com/nuwisp/gundam-go/internal/apperrors"
	"github.com/nuwisp/gundam-go/internal/dialcache"
	"github.com/nuwisp/gundam-go/internal/fitparam"
	"github.com/nuwisp/gundam-go/internal/logger"
	"github.com/nuwisp/gundam-go/internal/sample"
	"github.com/nuwisp/gundam-go/internal/variable"
	"github.com/nuwisp/gundam-go/internal/workerpool"
)

// BoundSample pairs one Sample with the dial cache built for it; the
// cache's per-event slice indices line up 1:1 with sample.Events.
type BoundSample struct {
	Sample *sample.Sample
	Cache  *dialcache.Cache
}

// Propagator drives the reweight pass: reset → apply cached dial
// responses in parallel over worker slices → refill histograms.
type Propagator struct {
	rt              *workerpool.Runtime
	sets            []*fitparam.ParameterSet
	samples         []BoundSample
	throwOnInvalid  bool
	phaseLog        *logger.PhaseLogger
}

// New builds a Propagator bound to the given Runtime, parameter sets,
// and (Sample, Cache) pairs, in the order their events were assigned.
func New(rt *workerpool.Runtime, sets []*fitparam.ParameterSet, samples []BoundSample, throwOnInvalidResponse bool) *Propagator {
	return &Propagator{
		rt:             rt,
		sets:           sets,
		samples:        samples,
		throwOnInvalid: throwOnInvalidResponse,
		phaseLog:       logger.NewPhaseLogger(rt.Log, 200*time.Millisecond, 2*time.Second),
	}
}

// PropagateParameters resets every event's current weight to base,
// reweights in parallel, and refills every sample's MC histogram. This
// is the full per-minimizer-step pass.
func (p *Propagator) PropagateParameters(ctx context.Context) error {
	start := time.Now()
	if err := p.ReweightMcEvents(ctx); err != nil {
		return err
	}
	for _, bs := range p.samples {
		bs.Sample.RefillHistogram()
	}
	if p.phaseLog != nil {
		p.phaseLog.LogPhase("propagateParameters", time.Since(start), nil)
	}
	return nil
}

// ReweightMcEvents performs only the reweight step (reset + apply
// cached dial responses), without refilling histograms — the warmup and
// diagnostics entry point the spec calls out separately from the full
// per-step pass.
func (p *Propagator) ReweightMcEvents(ctx context.Context) error {
	for _, bs := range p.samples {
		events := bs.Sample.Events
		cache := bs.Cache
		err := p.rt.Pool.Run(ctx, len(events), func(workerID, lo, hi int) error {
			for i := lo; i < hi; i++ {
				e := events[i]
				e.ResetWeight()
				for _, slot := range cache.Slots(i) {
					set := p.sets[slot.SetIndex]
					param := &set.Parameters[slot.ParamIndex]
					response, err := slot.Dial.Evaluate(param.Value)
					if err != nil {
						if p.throwOnInvalid {
							return wrapInvalidResponse(bs.Sample.Name, e, set.Name, param.Name, err)
						}
						response = slot.Dial.Floor
					}
					e.ApplyResponse(response)
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func wrapInvalidResponse(sampleName string, e *variable.Event, setName, paramName string, cause error) error {
	return apperrors.NewMathError("invalid dial response during reweight", cause).
		WithDetail("sample", sampleName).
		WithDetail("event", e.EntryID).
		WithDetail("paramSet", setName).
		WithDetail("parameter", paramName)
}

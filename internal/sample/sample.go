// Package sample implements Sample and Histogram: an event list bound to
// a selection cut and a binning, plus per-bin aggregation (refill) run
// across worker slices.
package sample

import (
	"math"
	"sync"

	"github.com/nuwisp/gundam-go/internal/binning"
	"github.com/nuwisp/gundam-go/internal/variable"
)

// Histogram is the per-bin aggregate of a Sample's current event
// weights: sum and the effective-sample-size error sqrt(Σ weight²).
type Histogram struct {
	Sum   []float64
	Error []float64

	sumSq []float64
}

// NewHistogram allocates a zeroed Histogram sized to the sample's bin
// count, reused across refills rather than reallocated.
func NewHistogram(nBins int) *Histogram {
	return &Histogram{
		Sum:   make([]float64, nBins),
		Error: make([]float64, nBins),
		sumSq: make([]float64, nBins),
	}
}

func (h *Histogram) reset() {
	for i := range h.Sum {
		h.Sum[i] = 0
		h.Error[i] = 0
		h.sumSq[i] = 0
	}
}

// Sample is a named event list bound to a BinSet. MC events carry the
// (base, current) weight pair reweighted by the Propagator; Data events
// have a fixed histogram with no dial dependence.
type Sample struct {
	Name    string
	Bins    *binning.BinSet
	Events  []*variable.Event
	MC      *Histogram
	Data    *Histogram // nil until LoadData is called
	Cut     string
	nThreads int
}

// New builds an empty Sample bound to the given binning.
func New(name string, bins *binning.BinSet, cut string, nThreads int) *Sample {
	if nThreads < 1 {
		nThreads = 1
	}
	return &Sample{
		Name:     name,
		Bins:     bins,
		MC:       NewHistogram(bins.Len()),
		Cut:      cut,
		nThreads: nThreads,
	}
}

// LoadEvents assigns sampleIndex and binIndex to every candidate event
// that passes selector, and appends the accepted ones to the sample's
// event list. selector implements the cut string's predicate; parsing
// a cut string into a predicate is out of scope here and left to the
// caller (config/ingestion boundary).
func (s *Sample) LoadEvents(sampleIndex int, candidates []*variable.Event, selector func(*variable.Event) bool, variableValues func(*variable.Event) map[string]float64) {
	for _, e := range candidates {
		if selector != nil && !selector(e) {
			continue
		}
		e.SampleIndex = sampleIndex
		e.BinIndex = s.Bins.FindBin(variableValues(e))
		s.Events = append(s.Events, e)
	}
}

// LoadData builds the fixed Data histogram from a data event list (no
// reweighting ever applied to these).
func (s *Sample) LoadData(events []*variable.Event, variableValues func(*variable.Event) map[string]float64) {
	h := NewHistogram(s.Bins.Len())
	for _, e := range events {
		bin := s.Bins.FindBin(variableValues(e))
		if bin < 0 {
			continue
		}
		h.Sum[bin] += e.BaseWeight
		h.sumSq[bin] += e.BaseWeight * e.BaseWeight
	}
	for i := range h.Sum {
		h.Error[i] = math.Sqrt(h.sumSq[i])
	}
	s.Data = h
}

// RefillHistogram recomputes MC bin sums from the events' current
// weight, partitioned per worker slice with each worker owning a
// disjoint event range so no bin accumulator needs atomics — the
// sample-level counterpart of the Propagator's per-event partitioning.
func (s *Sample) RefillHistogram() {
	s.MC.reset()
	n := len(s.Events)
	if n == 0 {
		return
	}
	workers := s.nThreads
	if workers > n {
		workers = n
	}

	partials := make([]*Histogram, workers)
	var wg sync.WaitGroup
	chunk := (n + workers - 1) / workers
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		if lo >= hi {
			continue
		}
		partials[w] = NewHistogram(len(s.MC.Sum))
		wg.Add(1)
		go func(lo, hi int, h *Histogram) {
			defer wg.Done()
			for _, e := range s.Events[lo:hi] {
				if !e.IsBinned() {
					continue
				}
				h.Sum[e.BinIndex] += e.CurrentWeight
				h.sumSq[e.BinIndex] += e.CurrentWeight * e.CurrentWeight
			}
		}(lo, hi, partials[w])
	}
	wg.Wait()

	for _, h := range partials {
		if h == nil {
			continue
		}
		for i := range h.Sum {
			s.MC.Sum[i] += h.Sum[i]
			s.MC.sumSq[i] += h.sumSq[i]
		}
	}
	for i := range s.MC.Sum {
		s.MC.Error[i] = math.Sqrt(s.MC.sumSq[i])
	}
}

// NBins returns the sample's bin count.
func (s *Sample) NBins() int { return s.Bins.Len() }

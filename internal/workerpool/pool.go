// Package workerpool implements Pool: a fixed set of long-lived worker
// goroutines driven through synchronized phases by a spin-then-wait
// barrier, grounded on the teacher's channel/WaitGroup worker pool
// (internal/automation/scheduler) but generalized from an open-ended
// task queue to a monotonic-phase barrier, since the Propagator needs
// every worker to finish phase N before any of them starts phase N+1.
package workerpool

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/nuwisp/gundam-go/internal/logger"
)

// Work is one unit of per-phase work handed to a worker: it must process
// exactly the slice [lo, hi) and report any error through the return
// value. An error from one worker does not stop the others: every
// worker finishes its slice, and Run returns the first error recorded.
type Work func(workerID, lo, hi int) error

// Pool holds T long-lived goroutines that execute one Work function per
// phase, each owning a disjoint slice of the item range so no shared
// accumulator needs atomics inside the hot loop.
type Pool struct {
	n int

	phase      atomic.Uint64
	phaseCond  *sync.Cond
	phaseMu    sync.Mutex
	workerDone []uint64 // per-worker last completed phase, guarded by phaseMu

	work   Work
	nItems int

	errs []error

	logMu sync.Mutex
	log   logger.Logger

	started bool
	stopCh  chan struct{}
}

// NewPool builds a Pool with n worker goroutines (n < 1 is clamped to 1)
// and starts them immediately, parked at phase 0.
func NewPool(n int, log logger.Logger) *Pool {
	if n < 1 {
		n = 1
	}
	p := &Pool{
		n:          n,
		workerDone: make([]uint64, n),
		log:        log,
		stopCh:     make(chan struct{}),
	}
	p.phaseCond = sync.NewCond(&p.phaseMu)
	for w := 0; w < n; w++ {
		go p.loop(w)
	}
	p.started = true
	return p
}

func (p *Pool) loop(id int) {
	const spinLimit = 64
	var lastSeen uint64
	for {
		// Spin briefly on the atomic phase counter before parking on the
		// condition variable.
		for spin := 0; spin < spinLimit && p.phase.Load() == lastSeen; spin++ {
			runtime.Gosched()
		}
		p.phaseMu.Lock()
		for p.phase.Load() == lastSeen {
			select {
			case <-p.stopCh:
				p.phaseMu.Unlock()
				return
			default:
			}
			p.phaseCond.Wait()
		}
		target := p.phase.Load()
		work := p.work
		nItems := p.nItems
		p.phaseMu.Unlock()

		lastSeen = target

		lo, hi := p.slice(id, nItems)
		var err error
		if work != nil {
			err = work(id, lo, hi)
		}

		p.phaseMu.Lock()
		p.workerDone[id] = target
		if err != nil {
			p.errs = append(p.errs, err)
		}
		allDone := true
		for _, d := range p.workerDone {
			if d != target {
				allDone = false
				break
			}
		}
		if allDone {
			p.phaseCond.Broadcast()
		}
		p.phaseMu.Unlock()
	}
}

func (p *Pool) slice(workerID, nItems int) (int, int) {
	if nItems == 0 {
		return 0, 0
	}
	chunk := (nItems + p.n - 1) / p.n
	lo := workerID * chunk
	hi := lo + chunk
	if lo > nItems {
		lo = nItems
	}
	if hi > nItems {
		hi = nItems
	}
	return lo, hi
}

// Run dispatches one phase of work over nItems items, partitioned across
// the pool's workers, and blocks until every worker reports completion.
// Between-phase cancellation only: ctx is checked before dispatch and
// its error returned after the phase, never inside a worker's slice loop.
func (p *Pool) Run(ctx context.Context, nItems int, work Work) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	p.phaseMu.Lock()
	p.work = work
	p.nItems = nItems
	p.errs = nil
	target := p.phase.Add(1)
	p.phaseCond.Broadcast()

	for {
		allDone := true
		for _, d := range p.workerDone {
			if d != target {
				allDone = false
				break
			}
		}
		if allDone {
			break
		}
		p.phaseCond.Wait()
	}
	errs := p.errs
	p.phaseMu.Unlock()

	p.logPhase(target, nItems)

	if len(errs) > 0 {
		return errs[0]
	}
	return ctx.Err()
}

func (p *Pool) logPhase(phase uint64, nItems int) {
	p.logMu.Lock()
	defer p.logMu.Unlock()
	if p.log == nil {
		return
	}
	p.log.WithFields(map[string]interface{}{
		"phase":   phase,
		"workers": p.n,
		"items":   nItems,
	}).Debug("pool phase completed")
}

// Stop releases the pool's worker goroutines. Safe to call once; the
// pool must not be reused afterward.
func (p *Pool) Stop() {
	close(p.stopCh)
	p.phaseMu.Lock()
	p.phaseCond.Broadcast()
	p.phaseMu.Unlock()
}

// NumWorkers returns the pool's fixed worker count T.
func (p *Pool) NumWorkers() int { return p.n }

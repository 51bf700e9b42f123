package workerpool

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/nuwisp/gundam-go/internal/logger"
)

// Observer is invoked between Propagator phases with the current
// evalFit scalar, rate-limited so a fast minimizer loop does not flood
// the monitor side-channel.
type Observer func(evalCount int64, likelihood float64)

// Runtime is the single explicit context threaded through the core
// instead of process-wide singletons: it owns the worker Pool, the
// rate-limited monitor side-channel, and the shared log/phase mutex
// Pool already serializes phase-transition logging through.
type Runtime struct {
	Pool *Pool
	Log  logger.Logger

	limiter  *rate.Limiter
	observer Observer
}

// NewRuntime builds a Runtime with nThreads workers and a monitor
// side-channel rate-limited to at most one callback per period.
func NewRuntime(nThreads int, log logger.Logger, monitorPeriod time.Duration) *Runtime {
	if monitorPeriod <= 0 {
		monitorPeriod = time.Second
	}
	return &Runtime{
		Pool:    NewPool(nThreads, log),
		Log:     log,
		limiter: rate.NewLimiter(rate.Every(monitorPeriod), 1),
	}
}

// SetObserver installs the callback invoked by Monitor.
func (rt *Runtime) SetObserver(obs Observer) {
	rt.observer = obs
}

// Monitor reports the current evalFit scalar to the installed observer,
// dropping the call silently if the rate limiter denies it — the
// "coroutine-style monitoring" side-channel is best-effort and must
// never block or perturb the minimizer's call count.
func (rt *Runtime) Monitor(evalCount int64, likelihood float64) {
	if rt.observer == nil {
		return
	}
	if !rt.limiter.Allow() {
		return
	}
	rt.observer(evalCount, likelihood)
}

// Close tears the Runtime's pool down by stopping its workers. The
// cache, samples and parameter sets that work was dispatched against
// hold no resources of their own to release.
func (rt *Runtime) Close() {
	rt.Pool.Stop()
}

// Package gate defers work until the shell has finished booting.
//
// Before MarkReady every op is queued in arrival order. MarkReady flips the
// gate exactly once and drains the queue; after that ops run immediately on
// the caller's goroutine. A panicking op is recovered and logged so one bad
// inbound call cannot take the others down with it.
package gate

import (
	"fmt"
	"runtime/debug"
	"sync"

	"jagapadi/internal/platform/logger"
	"jagapadi/internal/platform/metrics"
)

// Op is a unit of deferred work
type Op func()

type entry struct {
	name string
	op   Op
}

// Gate is safe for concurrent use
type Gate struct {
	log     logger.Logger
	metrics *metrics.Gate

	mu       sync.Mutex
	ready    bool
	draining bool
	queue    []entry
}

// Option configures a Gate
type Option func(*Gate)

// WithLogger sets the logger, default logger.Named("gate")
func WithLogger(l logger.Logger) Option { return func(g *Gate) { g.log = l } }

// WithMetrics wires gate counters
func WithMetrics(m *metrics.Gate) Option { return func(g *Gate) { g.metrics = m } }

// New returns a gate in the NotReady state
func New(opts ...Option) *Gate {
	g := &Gate{log: *logger.Named("gate")}
	for _, o := range opts {
		o(g)
	}
	return g
}

// IsReady reports whether MarkReady has been called
func (g *Gate) IsReady() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ready
}

// Pending reports how many ops are waiting
func (g *Gate) Pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.queue)
}

// EnqueueOrRun runs op now when ready, otherwise queues it. Ops arriving while
// a drain is still in progress join the tail of the queue so order is strictly FIFO
func (g *Gate) EnqueueOrRun(name string, op Op) {
	if op == nil {
		return
	}
	g.mu.Lock()
	if !g.ready || g.draining {
		g.queue = append(g.queue, entry{name: name, op: op})
		queued := !g.ready
		g.mu.Unlock()
		if queued {
			g.metrics.Queued()
			g.log.Debug().Str("op", name).Msg("queued until ready")
		}
		return
	}
	g.mu.Unlock()
	g.run(entry{name: name, op: op})
}

// MarkReady flips the gate and drains the queue. Calling it again does nothing
func (g *Gate) MarkReady() {
	g.mu.Lock()
	if g.ready {
		g.mu.Unlock()
		return
	}
	g.ready = true
	g.draining = true
	n := len(g.queue)
	g.mu.Unlock()

	g.log.Info().Int("queued", n).Msg("ready, draining")

	for {
		g.mu.Lock()
		if len(g.queue) == 0 {
			g.draining = false
			g.queue = nil
			g.mu.Unlock()
			return
		}
		next := g.queue[0]
		g.queue[0] = entry{}
		g.queue = g.queue[1:]
		g.mu.Unlock()

		g.run(next)
	}
}

// run executes one op outside the lock with its own recovery
func (g *Gate) run(e entry) {
	failed := true
	defer func() {
		if v := recover(); v != nil {
			g.log.Error().
				Str("op", e.name).
				Str("panic", fmt.Sprint(v)).
				Str("stack", string(debug.Stack())).
				Msg("op panicked")
		}
		g.metrics.Ran(failed)
	}()
	e.op()
	failed = false
}

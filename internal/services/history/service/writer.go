package service

import (
	"context"
	"sync"

	"jagapadi/internal/core/record"
	"jagapadi/internal/platform/logger"
	"jagapadi/internal/platform/metrics"
	dom "jagapadi/internal/services/history/domain"
)

// writer persists snapshots in the background. Only the latest snapshot
// matters, so a burst of mutations costs one write. After the first failure
// it stops touching the store and the history lives in memory only
type writer struct {
	repo    dom.Repo
	log     logger.Logger
	metrics *metrics.History

	mu      sync.Mutex
	cond    *sync.Cond
	next    []record.Record
	queued  uint64 // generation of next
	written uint64 // highest generation finished, ok or not
	memOnly bool
	closed  bool
	stopped chan struct{}
}

func newWriter(repo dom.Repo, log logger.Logger, m *metrics.History) *writer {
	w := &writer{repo: repo, log: log, metrics: m, stopped: make(chan struct{})}
	w.cond = sync.NewCond(&w.mu)
	go w.run()
	return w
}

// submit hands over a snapshot the caller no longer mutates
func (w *writer) submit(snap []record.Record) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.next = snap
	w.queued++
	w.cond.Broadcast()
}

func (w *writer) run() {
	defer close(w.stopped)
	for {
		w.mu.Lock()
		for w.written == w.queued && !w.closed {
			w.cond.Wait()
		}
		if w.written == w.queued && w.closed {
			w.mu.Unlock()
			return
		}
		snap, gen, skip := w.next, w.queued, w.memOnly
		w.next = nil
		w.mu.Unlock()

		if !skip {
			if err := w.repo.Save(context.Background(), snap); err != nil {
				w.metrics.PersistFailed()
				w.log.Error().Err(err).Int("records", len(snap)).Msg("history write failed, keeping history in memory only")
				w.mu.Lock()
				w.memOnly = true
				w.mu.Unlock()
			}
		}

		w.mu.Lock()
		w.written = gen
		w.cond.Broadcast()
		w.mu.Unlock()
	}
}

// flush waits until everything submitted so far has been handled
func (w *writer) flush(ctx context.Context) error {
	w.mu.Lock()
	target := w.queued
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		w.mu.Lock()
		for w.written < target && !w.closed {
			w.cond.Wait()
		}
		w.mu.Unlock()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *writer) memoryOnly() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.memOnly
}

// markMemoryOnly is used when the initial read already failed
func (w *writer) markMemoryOnly() {
	w.mu.Lock()
	w.memOnly = true
	w.mu.Unlock()
}

// close drains pending work and stops the goroutine
func (w *writer) close() {
	w.mu.Lock()
	w.closed = true
	w.cond.Broadcast()
	w.mu.Unlock()
	<-w.stopped
}

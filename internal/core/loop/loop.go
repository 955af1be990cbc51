// Package loop is the single threaded executor every UI mutation runs on.
//
// Host calls, view requests and timers all arrive on their own goroutines;
// they post closures here so application state is only ever touched by one
// goroutine, the way a browser event loop would. Blocking work goes through Go,
// which runs it elsewhere and posts the continuation back.
package loop

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"jagapadi/internal/platform/logger"
)

// ErrClosed is returned when posting to a loop that has stopped
var ErrClosed = errors.New("loop: closed")

// Timer is a cancellable scheduled callback
type Timer interface {
	// Stop prevents future firings; it reports whether the timer was still live
	Stop() bool
}

// Scheduler is what components depend on; *Loop and *Inline implement it
type Scheduler interface {
	Post(fn func()) bool
	Go(work func() (then func()))
	After(d time.Duration, fn func()) Timer
	Every(d time.Duration, fn func()) Timer
}

// Loop is a goroutine backed Scheduler
type Loop struct {
	log logger.Logger

	mu     sync.Mutex
	queue  []func()
	wake   chan struct{}
	closed bool

	running atomic.Bool
	done    chan struct{}
}

// New returns an idle loop; call Run to start executing
func New() *Loop {
	return &Loop{
		log:  *logger.Named("loop"),
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Run executes posted closures in order until ctx ends. Work posted after that is dropped
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return errors.New("loop: already running")
	}
	defer close(l.done)
	defer func() {
		l.mu.Lock()
		l.closed = true
		l.queue = nil
		l.mu.Unlock()
	}()

	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()

		for _, fn := range batch {
			if ctx.Err() != nil {
				return nil
			}
			l.exec(fn)
		}
		if len(batch) > 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return nil
		case <-l.wake:
		}
	}
}

// Done is closed once Run has returned
func (l *Loop) Done() <-chan struct{} { return l.done }

// Post queues fn; it reports false once the loop has stopped
func (l *Loop) Post(fn func()) bool {
	if fn == nil {
		return true
	}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Do posts fn and waits for it to finish, or for ctx to end
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	var panicked any
	ok := l.Post(func() {
		defer close(finished)
		defer func() { panicked = recover() }()
		fn()
	})
	if !ok {
		return ErrClosed
	}
	select {
	case <-finished:
		if panicked != nil {
			return fmt.Errorf("loop: task panicked: %v", panicked)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrClosed
	}
}

// Go runs work on its own goroutine and posts the continuation it returns
func (l *Loop) Go(work func() (then func())) {
	go func() {
		var then func()
		func() {
			defer func() {
				if v := recover(); v != nil {
					l.log.Error().Str("panic", fmt.Sprint(v)).Str("stack", string(debug.Stack())).Msg("background work panicked")
				}
			}()
			then = work()
		}()
		if then != nil {
			l.Post(then)
		}
	}()
}

// After posts fn once d has elapsed
func (l *Loop) After(d time.Duration, fn func()) Timer {
	t := &loopTimer{}
	t.t = time.AfterFunc(d, func() {
		l.Post(func() {
			if t.stopped.Load() {
				return
			}
			t.stopped.Store(true)
			fn()
		})
	})
	return t
}

// Every posts fn every d until stopped
func (l *Loop) Every(d time.Duration, fn func()) Timer {
	t := &loopTimer{stop: make(chan struct{})}
	tk := time.NewTicker(d)
	go func() {
		defer tk.Stop()
		for {
			select {
			case <-t.stop:
				return
			case <-l.done:
				return
			case <-tk.C:
				l.Post(func() {
					if !t.stopped.Load() {
						fn()
					}
				})
			}
		}
	}()
	return t
}

type loopTimer struct {
	t       *time.Timer
	stop    chan struct{}
	stopped atomic.Bool
	once    sync.Once
}

func (t *loopTimer) Stop() bool {
	live := t.stopped.CompareAndSwap(false, true)
	t.once.Do(func() {
		if t.t != nil {
			t.t.Stop()
		}
		if t.stop != nil {
			close(t.stop)
		}
	})
	return live
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if v := recover(); v != nil {
			l.log.Error().Str("panic", fmt.Sprint(v)).Str("stack", string(debug.Stack())).Msg("loop task panicked")
		}
	}()
	fn()
}

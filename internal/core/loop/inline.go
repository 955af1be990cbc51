package loop

import (
	"sort"
	"sync"
	"time"
)

// Inline is a deterministic Scheduler for tests. Post runs on the caller's
// goroutine before returning (work posted from inside a task runs after it, in
// order), timers only fire when the test advances the fake clock, and Go work
// runs synchronously unless Hold is set
type Inline struct {
	// Hold parks Go work until Flush is called, so tests can observe the pending state
	Hold bool

	mu     sync.Mutex
	now    time.Duration
	timers []*inlineTimer
	held   []func() func()
	seq    int

	pending  []func()
	draining bool
}

// NewInline returns an Inline scheduler at fake time zero
func NewInline() *Inline { return &Inline{} }

// Post implements Scheduler
func (s *Inline) Post(fn func()) bool {
	if fn == nil {
		return true
	}
	s.mu.Lock()
	s.pending = append(s.pending, fn)
	if s.draining {
		s.mu.Unlock()
		return true
	}
	s.draining = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.draining = false
		s.mu.Unlock()
	}()
	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.mu.Unlock()
			return true
		}
		next := s.pending[0]
		s.pending = s.pending[1:]
		s.mu.Unlock()
		next()
	}
}

// Go implements Scheduler
func (s *Inline) Go(work func() (then func())) {
	s.mu.Lock()
	if s.Hold {
		s.held = append(s.held, work)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	if then := work(); then != nil {
		s.Post(then)
	}
}

// Held reports how many Go jobs are parked
func (s *Inline) Held() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.held)
}

// Flush runs every parked Go job and its continuation, oldest first
func (s *Inline) Flush() {
	for {
		s.mu.Lock()
		if len(s.held) == 0 {
			s.mu.Unlock()
			return
		}
		work := s.held[0]
		s.held = s.held[1:]
		s.mu.Unlock()
		if then := work(); then != nil {
			s.Post(then)
		}
	}
}

// After implements Scheduler
func (s *Inline) After(d time.Duration, fn func()) Timer { return s.add(d, 0, fn) }

// Every implements Scheduler
func (s *Inline) Every(d time.Duration, fn func()) Timer { return s.add(d, d, fn) }

// Live reports how many timers are still armed
func (s *Inline) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

// Advance moves the fake clock forward, firing due timers in time order
func (s *Inline) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()

	for {
		s.mu.Lock()
		next := s.nextDue(target)
		if next == nil {
			s.now = target
			s.mu.Unlock()
			return
		}
		s.now = next.due
		if next.every > 0 {
			next.due += next.every
		} else {
			next.stopped = true
		}
		fn := next.fn
		s.mu.Unlock()
		s.Post(fn)
	}
}

func (s *Inline) add(d, every time.Duration, fn func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	t := &inlineTimer{owner: s, due: s.now + d, every: every, fn: fn, seq: s.seq}
	s.timers = append(s.timers, t)
	return t
}

// nextDue picks the earliest live timer due at or before target; caller holds mu
func (s *Inline) nextDue(target time.Duration) *inlineTimer {
	live := s.timers[:0]
	for _, t := range s.timers {
		if !t.stopped {
			live = append(live, t)
		}
	}
	s.timers = live
	sort.SliceStable(s.timers, func(i, j int) bool {
		if s.timers[i].due != s.timers[j].due {
			return s.timers[i].due < s.timers[j].due
		}
		return s.timers[i].seq < s.timers[j].seq
	})
	if len(s.timers) == 0 || s.timers[0].due > target {
		return nil
	}
	return s.timers[0]
}

type inlineTimer struct {
	owner   *Inline
	due     time.Duration
	every   time.Duration
	fn      func()
	seq     int
	stopped bool
}

func (t *inlineTimer) Stop() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	live := !t.stopped
	t.stopped = true
	return live
}

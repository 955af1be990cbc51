// Package service keeps active notifications in a TTL cache so they dismiss
// themselves without the shell running timers of its own
package service

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"jagapadi/internal/platform/logger"
	"jagapadi/internal/platform/metrics"
	ptime "jagapadi/internal/platform/time"
	dom "jagapadi/internal/services/notify/domain"
)

// Config controls expiry
type Config struct {
	TTL     time.Duration // default lifetime, 3s when zero
	Janitor time.Duration // sweep interval, TTL/2 when zero
}

type observer struct {
	id uint64
	fn func(dom.Event)
}

// Service implements domain.Port
type Service struct {
	cfg     Config
	log     logger.Logger
	metrics *metrics.Notify
	clock   ptime.Clock
	cache   *gocache.Cache

	mu        sync.Mutex
	status    string
	seq       uint64
	order     map[string]uint64
	dismissed map[string]struct{}
	observers []observer
	nextObs   uint64
}

var _ dom.Port = (*Service)(nil)

// New builds a notification center. m and clock may be nil
func New(cfg Config, log logger.Logger, m *metrics.Notify, clock ptime.Clock) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = 3 * time.Second
	}
	if cfg.Janitor <= 0 {
		cfg.Janitor = cfg.TTL / 2
	}
	s := &Service{
		cfg:       cfg,
		log:       log,
		metrics:   m,
		clock:     ptime.Or(clock),
		cache:     gocache.New(cfg.TTL, cfg.Janitor),
		order:     map[string]uint64{},
		dismissed: map[string]struct{}{},
	}
	s.cache.OnEvicted(s.evicted)
	return s
}

// Push shows msg for the default lifetime
func (s *Service) Push(sev dom.Severity, msg string) dom.Notification {
	return s.PushFor(sev, msg, 0)
}

// PushFor shows msg for ttl; ttl <= 0 uses the default
func (s *Service) PushFor(sev dom.Severity, msg string, ttl time.Duration) dom.Notification {
	if ttl <= 0 {
		ttl = s.cfg.TTL
	}
	now := s.clock.Now()
	n := dom.Notification{
		ID:        uuid.NewString(),
		Severity:  sev,
		Message:   msg,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	s.mu.Lock()
	s.seq++
	s.order[n.ID] = s.seq
	s.mu.Unlock()

	s.cache.Set(n.ID, n, ttl)
	s.metrics.Pushed(string(sev))
	s.log.Debug().Str("id", n.ID).Str("severity", string(sev)).Str("message", msg).Msg("notification")
	s.emit(dom.Event{Kind: dom.Pushed, Notification: &n})
	return n
}

// Active returns live notifications, oldest first
func (s *Service) Active() []dom.Notification {
	items := s.cache.Items()
	out := make([]dom.Notification, 0, len(items))
	for _, it := range items {
		out = append(out, it.Object.(dom.Notification))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	slices.SortFunc(out, func(a, b dom.Notification) int {
		return int(s.order[a.ID]) - int(s.order[b.ID])
	})
	return out
}

// Dismiss removes a notification early. It reports whether id was live
func (s *Service) Dismiss(id string) bool {
	if _, ok := s.cache.Get(id); !ok {
		return false
	}
	s.mu.Lock()
	s.dismissed[id] = struct{}{}
	s.mu.Unlock()
	s.cache.Delete(id)
	return true
}

// SetStatus replaces the persistent status line
func (s *Service) SetStatus(msg string) {
	s.mu.Lock()
	s.status = msg
	s.mu.Unlock()
	s.emit(dom.Event{Kind: dom.Status, Status: msg})
}

// Status returns the status line
func (s *Service) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Observe registers fn for every event. Callbacks may arrive on the cache
// janitor's goroutine
func (s *Service) Observe(fn func(dom.Event)) (cancel func()) {
	s.mu.Lock()
	s.nextObs++
	id := s.nextObs
	s.observers = append(s.observers, observer{id: id, fn: fn})
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		s.observers = slices.DeleteFunc(s.observers, func(o observer) bool { return o.id == id })
		s.mu.Unlock()
	}
}

// Sweep drops expired notifications now instead of waiting for the janitor
func (s *Service) Sweep() { s.cache.DeleteExpired() }

func (s *Service) evicted(id string, v any) {
	n, ok := v.(dom.Notification)
	if !ok {
		return
	}
	s.mu.Lock()
	_, byUser := s.dismissed[id]
	delete(s.dismissed, id)
	delete(s.order, id)
	s.mu.Unlock()

	kind := dom.Expired
	if byUser {
		kind = dom.Dismissed
	}
	s.emit(dom.Event{Kind: kind, Notification: &n})
}

func (s *Service) emit(e dom.Event) {
	s.mu.Lock()
	obs := slices.Clone(s.observers)
	s.mu.Unlock()
	for _, o := range obs {
		o.fn(e)
	}
}

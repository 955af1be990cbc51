// Package service implements the history store: a bounded, newest first list
// of detection records mirrored to the local kv store in the background
package service

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"jagapadi/internal/core/record"
	perr "jagapadi/internal/platform/errors"
	"jagapadi/internal/platform/logger"
	"jagapadi/internal/platform/metrics"
	ptime "jagapadi/internal/platform/time"
	dom "jagapadi/internal/services/history/domain"
)

// Config tunes the store
type Config struct {
	Cap      int            // max records, DefaultCap when zero
	Location *time.Location // calendar for today, groups and day filters
	Seed     bool           // seed demo records when nothing was ever saved
}

type observer struct {
	id uint64
	fn func(dom.Change)
}

// Service implements domain.Port. All methods are safe for concurrent use
type Service struct {
	cfg     Config
	repo    dom.Repo
	log     logger.Logger
	metrics *metrics.History
	clock   ptime.Clock
	w       *writer

	mu        sync.RWMutex
	recs      []record.Record
	observers []observer
	nextObs   uint64
}

var _ dom.Port = (*Service)(nil)

// New starts the background writer; call Close when done
func New(cfg Config, repo dom.Repo, log logger.Logger, m *metrics.History, clock ptime.Clock) *Service {
	if cfg.Cap <= 0 {
		cfg.Cap = dom.DefaultCap
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Service{
		cfg:     cfg,
		repo:    repo,
		log:     log,
		metrics: m,
		clock:   ptime.Or(clock),
		w:       newWriter(repo, log, m),
	}
}

// Load hydrates from the store. A miss seeds demo records when enabled; a
// read failure is logged and the store carries on in memory only
func (s *Service) Load(ctx context.Context) error {
	recs, ok, err := s.repo.Load(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("history read failed, continuing in memory")
		s.metrics.PersistFailed()
		s.w.markMemoryOnly()
		recs, ok = nil, false
	}

	s.mu.Lock()
	switch {
	case ok:
		sortNewestFirst(recs)
		s.recs = truncate(recs, s.cfg.Cap)
	case s.cfg.Seed && err == nil:
		s.recs = demoRecords(s.clock.Now())
	default:
		s.recs = nil
	}
	n := len(s.recs)
	seeded := !ok && len(s.recs) > 0
	if seeded {
		s.w.submit(cloneAll(s.recs))
	}
	s.mu.Unlock()

	s.log.Info().Int("records", n).Bool("seeded", seeded).Msg("history loaded")
	s.changed(dom.Loaded, n)
	return err
}

// Append puts r at the front. An existing record with the same id is replaced
func (s *Service) Append(r record.Record) error {
	if err := r.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.recs = slices.DeleteFunc(s.recs, func(x record.Record) bool { return x.ID == r.ID })
	s.recs = append([]record.Record{r.Clone()}, s.recs...)
	s.recs = truncate(s.recs, s.cfg.Cap)
	n := len(s.recs)
	s.w.submit(cloneAll(s.recs))
	s.mu.Unlock()

	s.changed(dom.Appended, n)
	return nil
}

// Merge folds the server's history into ours. Server records win; local
// records the server does not know are kept and tagged local-only; demo
// placeholders are dropped. Merging the same list twice changes nothing
func (s *Service) Merge(server []record.Record) int {
	s.mu.Lock()
	seen := make(map[string]struct{}, len(server))
	merged := make([]record.Record, 0, len(server)+len(s.recs))
	for _, r := range server {
		if _, dup := seen[r.ID]; dup || r.Validate() != nil {
			continue
		}
		seen[r.ID] = struct{}{}
		c := r.Clone()
		if c.Provenance == record.ProvenanceDemo {
			c.Provenance = record.ProvenanceServer
		}
		merged = append(merged, c)
	}
	for _, r := range s.recs {
		if r.Provenance == record.ProvenanceDemo {
			continue
		}
		if _, ok := seen[r.ID]; ok {
			continue
		}
		r.Provenance = record.ProvenanceLocalOnly
		merged = append(merged, r)
	}
	sortNewestFirst(merged)
	s.recs = truncate(merged, s.cfg.Cap)
	n := len(s.recs)
	s.w.submit(cloneAll(s.recs))
	s.mu.Unlock()

	s.log.Info().Int("server", len(server)).Int("records", n).Msg("history merged")
	s.changed(dom.Merged, n)
	return n
}

// Clear drops every record
func (s *Service) Clear() {
	s.mu.Lock()
	s.recs = nil
	s.w.submit([]record.Record{})
	s.mu.Unlock()
	s.changed(dom.Cleared, 0)
}

// All returns copies of every record, newest first
func (s *Service) All() []record.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.recs)
}

// Get returns one record by id
func (s *Service) Get(id string) (record.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.recs {
		if r.ID == id {
			return r.Clone(), nil
		}
	}
	return record.Record{}, perr.NotFoundf("riwayat %q tidak ditemukan", id)
}

// Len reports how many records are held
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.recs)
}

// Flush waits for pending writes
func (s *Service) Flush(ctx context.Context) error { return s.w.flush(ctx) }

// MemoryOnly reports whether persistence was given up on
func (s *Service) MemoryOnly() bool { return s.w.memoryOnly() }

// Close flushes and stops the writer
func (s *Service) Close() { s.w.close() }

// Observe registers fn for every mutation
func (s *Service) Observe(fn func(dom.Change)) (cancel func()) {
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

func (s *Service) changed(kind dom.ChangeKind, n int) {
	s.metrics.Size(n)
	s.mu.RLock()
	obs := slices.Clone(s.observers)
	s.mu.RUnlock()
	c := dom.Change{Kind: kind, Count: n, At: s.clock.Now()}
	for _, o := range obs {
		o.fn(c)
	}
}

func sortNewestFirst(recs []record.Record) {
	slices.SortStableFunc(recs, func(a, b record.Record) int {
		if c := b.CapturedAt.Compare(a.CapturedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

func truncate(recs []record.Record, n int) []record.Record {
	if len(recs) > n {
		clear(recs[n:])
		return recs[:n]
	}
	return recs
}

func cloneAll(recs []record.Record) []record.Record {
	out := make([]record.Record, len(recs))
	for i, r := range recs {
		out[i] = r.Clone()
	}
	return out
}

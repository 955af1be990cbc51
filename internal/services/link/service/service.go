// Package service implements the backend link over the host bridge
package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	perr "jagapadi/internal/platform/errors"
	"jagapadi/internal/platform/logger"
	bridge "jagapadi/internal/services/bridge/domain"
	dom "jagapadi/internal/services/link/domain"
)

// Config tunes the link
type Config struct {
	// EstablishEvery and Burst throttle establish attempts
	EstablishEvery time.Duration
	Burst          int
	// SeverTimeout bounds the best-effort severLink call
	SeverTimeout time.Duration
}

// Messages shown to the user
const (
	MsgPasswordRequired = "Masukkan password!"
	MsgEstablishFailed  = "Gagal terhubung ke server"
	MsgEstablished      = "Terhubung ke server"
	MsgSevered          = "Terputus dari server"
	MsgSubmitFailed     = "Gagal mengirim gambar ke server"
	MsgAnalysisFailed   = "Gagal menganalisis gambar"
	MsgThrottled        = "Terlalu banyak percobaan, coba lagi sebentar"
	MsgAlreadyLinking   = "Sedang menghubungkan ke server"
)

type observer struct {
	id int
	fn func(dom.State)
}

// Service implements domain.Port
type Service struct {
	cfg     Config
	caller  bridge.Caller
	log     logger.Logger
	limiter *rate.Limiter

	mu        sync.Mutex
	state     dom.State
	observers []observer
	nextObs   int
}

var _ dom.Port = (*Service)(nil)

// New builds a disconnected link
func New(cfg Config, caller bridge.Caller, log logger.Logger) *Service {
	if cfg.EstablishEvery <= 0 {
		cfg.EstablishEvery = 2 * time.Second
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 3
	}
	if cfg.SeverTimeout <= 0 {
		cfg.SeverTimeout = 5 * time.Second
	}
	return &Service{
		cfg:     cfg,
		caller:  caller,
		log:     log,
		limiter: rate.NewLimiter(rate.Every(cfg.EstablishEvery), cfg.Burst),
	}
}

// State returns the current link state
func (s *Service) State() dom.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Connected reports whether the backend link is established
func (s *Service) Connected() bool { return s.State() == dom.Connected }

// Establish asks the host to connect with password
func (s *Service) Establish(ctx context.Context, password string) (string, error) {
	if strings.TrimSpace(password) == "" {
		return "", perr.WithField(perr.Validationf(MsgPasswordRequired), "password")
	}
	if !s.limiter.Allow() {
		return "", perr.TooManyRequestsf(MsgThrottled)
	}

	s.mu.Lock()
	if s.state == dom.Connecting {
		s.mu.Unlock()
		return "", perr.Conflictf(MsgAlreadyLinking)
	}
	s.mu.Unlock()
	s.set(dom.Connecting)

	rep, err := s.caller.Call(ctx, bridge.EstablishLink, dom.EstablishPayload{Password: password})
	if err != nil {
		s.set(dom.Disconnected)
		s.log.Warn().Err(err).Msg("establish failed")
		return "", perr.Wrap(err, perr.ErrorCodeLink, MsgEstablishFailed)
	}
	if !rep.OK {
		s.set(dom.Disconnected)
		s.log.Info().Str("reason", rep.Message).Msg("establish rejected")
		return "", perr.New(perr.ErrorCodeLink, orDefault(rep.Message, MsgEstablishFailed))
	}
	s.set(dom.Connected)
	s.log.Info().Msg("backend link established")
	return orDefault(rep.Message, MsgEstablished), nil
}

// Sever asks the host to disconnect and always ends disconnected
func (s *Service) Sever(ctx context.Context) string {
	if s.caller.Connected() {
		cctx, cancel := context.WithTimeout(ctx, s.cfg.SeverTimeout)
		defer cancel()
		if _, err := s.caller.Call(cctx, bridge.SeverLink, nil); err != nil {
			s.log.Warn().Err(err).Msg("sever failed, dropping link anyway")
		}
	}
	s.set(dom.Disconnected)
	return MsgSevered
}

// Submit sends one image to the backend
func (s *Service) Submit(ctx context.Context, p dom.SubmitPayload) (bridge.Reply, error) {
	rep, err := s.caller.Call(ctx, bridge.SubmitImage, p)
	if err != nil {
		return bridge.Reply{}, perr.Wrap(err, perr.ErrorCodeLink, MsgSubmitFailed)
	}
	if !rep.OK {
		return rep, perr.New(perr.ErrorCodeLink, orDefault(rep.Message, MsgAnalysisFailed))
	}
	return rep, nil
}

// FrontendReady notifies the host
func (s *Service) FrontendReady() error {
	return s.caller.Notify(bridge.FrontendReady, nil)
}

// MarkLost records that the host or the backend went away
func (s *Service) MarkLost(reason string) {
	if s.State() == dom.Disconnected {
		return
	}
	s.log.Warn().Str("reason", reason).Msg("backend link lost")
	s.set(dom.Disconnected)
}

// Observe registers fn for state changes. fn runs on the goroutine that
// changed the state; the shell re-posts onto its loop
func (s *Service) Observe(fn func(dom.State)) func() {
	s.mu.Lock()
	s.nextObs++
	id := s.nextObs
	s.observers = append(s.observers, observer{id: id, fn: fn})
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, o := range s.observers {
			if o.id == id {
				s.observers = append(s.observers[:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

func (s *Service) set(st dom.State) {
	s.mu.Lock()
	if s.state == st {
		s.mu.Unlock()
		return
	}
	s.state = st
	obs := append([]observer(nil), s.observers...)
	s.mu.Unlock()
	for _, o := range obs {
		o.fn(st)
	}
}

func orDefault(msg, def string) string {
	if strings.TrimSpace(msg) == "" {
		return def
	}
	return msg
}

package service

import (
	"context"
	"sync"
	"time"

	perr "jagapadi/internal/platform/errors"
	"jagapadi/internal/platform/logger"
	dom "jagapadi/internal/services/media/domain"
)

// Service implements domain.Port: file intake plus one camera session at a time
type Service struct {
	limits dom.Limits
	dev    dom.Device
	log    logger.Logger
	now    func() time.Time

	mu     sync.Mutex
	handle dom.Handle
	stop   func() bool // detaches the context watcher
}

var _ dom.Port = (*Service)(nil)

// New builds the media service. dev may be nil when no camera is wired
func New(limits dom.Limits, dev dom.Device, log logger.Logger, now func() time.Time) *Service {
	if limits.MaxBytes == 0 && limits.MinBytes == 0 {
		limits = dom.DefaultLimits
	}
	if now == nil {
		now = time.Now
	}
	return &Service{limits: limits, dev: dev, log: log, now: now}
}

// Intake validates a picked file
func (s *Service) Intake(filename string, data []byte) (dom.Image, error) {
	return Intake(s.limits, filename, data)
}

// Open acquires the camera. The session lives until Close, Capture, an error,
// or ctx ending, whichever comes first
func (s *Service) Open(ctx context.Context) error {
	if s.dev == nil {
		return MapAccessError(string(dom.AccessUnsupported), "")
	}
	s.mu.Lock()
	if s.handle != nil {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	h, err := s.dev.Acquire(ctx)
	if err != nil {
		if perr.IsCode(err, perr.ErrorCodeMediaAccess) {
			return err
		}
		return MapAccessError("", err.Error())
	}

	s.mu.Lock()
	if s.handle != nil {
		// lost a race with a concurrent Open; keep the first
		s.mu.Unlock()
		s.releaseHandle(h, "duplicate")
		return nil
	}
	s.handle = h
	s.stop = context.AfterFunc(ctx, func() { s.release("context done") })
	s.mu.Unlock()
	s.log.Debug().Msg("camera acquired")
	return nil
}

// Capture takes one frame and releases the camera
func (s *Service) Capture(ctx context.Context) (dom.Image, error) {
	s.mu.Lock()
	h := s.handle
	s.mu.Unlock()
	if h == nil {
		return dom.Image{}, perr.Validationf(MsgCameraNotOpen)
	}
	defer s.release("captured")

	raw, err := h.Snapshot(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("snapshot failed")
		return dom.Image{}, perr.Wrap(err, perr.ErrorCodeMediaAccess, MsgCaptureFailed)
	}
	return Intake(s.limits, CaptureName(s.now()), raw)
}

// Close releases the camera if open
func (s *Service) Close() { s.release("closed") }

// Active reports whether a camera is held
func (s *Service) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle != nil
}

func (s *Service) release(why string) {
	s.mu.Lock()
	h, stop := s.handle, s.stop
	s.handle, s.stop = nil, nil
	s.mu.Unlock()
	if stop != nil {
		stop()
	}
	if h != nil {
		s.releaseHandle(h, why)
	}
}

func (s *Service) releaseHandle(h dom.Handle, why string) {
	if err := h.Release(); err != nil {
		s.log.Warn().Err(err).Str("why", why).Msg("camera release failed")
		return
	}
	s.log.Debug().Str("why", why).Msg("camera released")
}

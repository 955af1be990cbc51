// Package service runs one detection at a time: submit the current image,
// wait for the annotated result, then record it
package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"jagapadi/internal/core/advisory"
	"jagapadi/internal/core/loop"
	"jagapadi/internal/core/record"
	"jagapadi/internal/core/uistate"
	perr "jagapadi/internal/platform/errors"
	"jagapadi/internal/platform/logger"
	"jagapadi/internal/platform/metrics"
	dom "jagapadi/internal/services/detection/domain"
	linkdom "jagapadi/internal/services/link/domain"
	notifydom "jagapadi/internal/services/notify/domain"
)

// Messages shown to the user
const (
	MsgNoImage       = "Tidak ada gambar untuk dianalisis"
	MsgNeedsLink     = "Hubungkan ke server terlebih dahulu"
	MsgBusy          = "Deteksi sedang berlangsung, harap tunggu"
	MsgSucceeded     = "✅ Deteksi berhasil!"
	MsgAnalysisError = "Gagal menganalisis gambar"
	MsgResultTimeout = "Hasil deteksi tidak diterima dari server"
	MsgAwaiting      = "Menunggu hasil dari server..."
)

// failure reasons for metrics
const (
	reasonRejected  = "rejected"
	reasonTransport = "transport"
	reasonTimeout   = "timeout"
)

// Config tunes the orchestrator
type Config struct {
	Delivery          dom.Delivery
	SubmitTimeout     time.Duration
	ResultTimeout     time.Duration // 0 waits forever
	RecommendationCap int
}

// Deps are the collaborators the orchestrator drives
type Deps struct {
	Machine   *uistate.Machine
	Link      dom.Link
	History   dom.Recorder
	Notify    dom.Notifier
	Catalog   *advisory.Catalog
	Generator advisory.Generator
	Sched     loop.Scheduler
	Log       logger.Logger
	Metrics   *metrics.Detection
	Now       func() time.Time
}

// Service implements domain.Port. It is loop-confined like the machine it drives
type Service struct {
	cfg Config
	d   Deps

	attempt   uint64
	inFlight  bool
	startedAt time.Time
	waiting   loop.Timer
}

var _ dom.Port = (*Service)(nil)

// New builds an orchestrator
func New(cfg Config, d Deps) *Service {
	if cfg.Delivery == "" {
		cfg.Delivery = dom.Async
	}
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = 30 * time.Second
	}
	if cfg.RecommendationCap <= 0 || cfg.RecommendationCap > record.MaxRecommendations {
		cfg.RecommendationCap = record.MaxRecommendations
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Catalog == nil {
		d.Catalog = advisory.MustLoad()
	}
	if d.Generator == nil {
		d.Generator = advisory.NewDemoGenerator(d.Catalog, nil)
	}
	return &Service{cfg: cfg, d: d}
}

// InFlight reports whether a submit or delivery is outstanding
func (s *Service) InFlight() bool { return s.inFlight }

// StartDetection submits the current image. Preconditions fail fast with a
// ValidationError and leave the state alone
func (s *Service) StartDetection(ctx context.Context) error {
	img, ok := s.d.Machine.Image()
	switch {
	case !ok:
		return s.refuse(MsgNoImage)
	case !s.d.Link.Connected():
		return s.refuse(MsgNeedsLink)
	case s.inFlight || s.d.Machine.Pending():
		return s.refuse(MsgBusy)
	}

	s.attempt++
	attempt := s.attempt
	s.inFlight = true
	s.startedAt = s.d.Now()
	s.d.Machine.SetPending(true)
	if err := s.d.Machine.SetState(uistate.Processing, false); err != nil {
		s.inFlight = false
		s.d.Machine.SetPending(false)
		return err
	}
	s.d.Metrics.Started()
	s.d.Log.Info().Str("file", img.Filename).Int("bytes", len(img.Data)).Uint64("attempt", attempt).Msg("detection submitted")

	// the caller's ctx is usually a request; the submit must outlive it
	base := context.WithoutCancel(ctx)
	payload := linkdom.SubmitPayload{Filename: img.Filename, MIME: img.MIME, Image: img.Data}
	s.d.Sched.Go(func() func() {
		sctx, cancel := context.WithTimeout(base, s.cfg.SubmitTimeout)
		defer cancel()
		rep, err := s.d.Link.Submit(sctx, payload)
		return func() { s.submitted(attempt, img, rep.Payload, err) }
	})
	return nil
}

func (s *Service) submitted(attempt uint64, img uistate.Image, raw []byte, err error) {
	if attempt != s.attempt || !s.inFlight {
		s.d.Log.Debug().Uint64("attempt", attempt).Msg("stale submit reply ignored")
		return
	}
	if err != nil {
		s.fail(failureReason(err), notifydom.Error, perr.UserMessage(err, MsgAnalysisError))
		return
	}

	if s.cfg.Delivery == dom.Response {
		p := dom.ResultPayload{}
		if len(raw) > 0 {
			if derr := json.Unmarshal(raw, &p); derr != nil {
				s.d.Log.Warn().Err(derr).Msg("submit reply payload unreadable")
				s.fail(reasonRejected, notifydom.Error, MsgAnalysisError)
				return
			}
		}
		if strings.TrimSpace(p.Image) == "" {
			p.Image = dataURL(img)
		}
		// a rejected payload reverts through RejectResult
		_, _ = s.DeliverResult(context.Background(), p)
		return
	}

	s.d.Machine.SetStatus(MsgAwaiting)
	if s.cfg.ResultTimeout > 0 {
		s.stopWaiting()
		s.waiting = s.d.Sched.After(s.cfg.ResultTimeout, func() {
			if attempt == s.attempt && s.inFlight {
				s.fail(reasonTimeout, notifydom.Warning, MsgResultTimeout)
			}
		})
	}
}

// DeliverResult completes the latest detection. It is valid at any time,
// even with nothing in flight; processing time is then zero
func (s *Service) DeliverResult(_ context.Context, p dom.ResultPayload) (record.Record, error) {
	if strings.TrimSpace(p.Image) == "" {
		err := perr.WithField(perr.Validationf("result image is required"), "image")
		s.RejectResult(err)
		return record.Record{}, err
	}
	now := s.d.Now()
	secs := 0.0
	if !s.startedAt.IsZero() {
		secs = record.RoundSeconds(now.Sub(s.startedAt))
	}

	findings := make([]record.Finding, 0, len(p.Detections))
	for _, d := range p.Detections {
		findings = append(findings, record.Finding{Label: strings.TrimSpace(d.Name), Confidence: d.Confidence})
	}
	if len(findings) == 0 {
		findings = s.d.Generator.Findings()
	}
	recs := record.CapRecommendations(p.Recommendations, s.cfg.RecommendationCap)
	if len(recs) == 0 {
		recs = s.d.Catalog.Recommend(findings, s.cfg.RecommendationCap)
	}

	r := record.Record{
		ID:                record.NewID(now),
		Filename:          s.filename(p.Filename),
		CapturedAt:        now,
		ResultImage:       p.Image,
		Findings:          findings,
		Aggregate:         record.Summarize(findings),
		Recommendations:   recs,
		ProcessingSeconds: secs,
		Provenance:        record.ProvenanceLocalOnly,
	}
	if err := r.Validate(); err != nil {
		s.RejectResult(err)
		return record.Record{}, err
	}

	// a late submit reply for this attempt must not revert the result
	s.attempt++
	s.inFlight = false
	s.startedAt = time.Time{}
	s.stopWaiting()

	s.d.Machine.SetResult(r)
	if err := s.d.Machine.SetState(uistate.Results, false); err != nil {
		return record.Record{}, err
	}
	s.d.Machine.SetPending(false)
	if err := s.d.History.Append(r); err != nil {
		s.d.Log.Warn().Err(err).Str("id", r.ID).Msg("history append failed")
	}
	s.d.Notify.Push(notifydom.Success, MsgSucceeded)
	s.d.Metrics.Completed(secs)
	s.d.Log.Info().Str("id", r.ID).Int("findings", len(findings)).Float64("seconds", secs).Msg("detection completed")
	return r, nil
}

// NewDetection clears the image and result and goes back to Initial
func (s *Service) NewDetection() error {
	if s.inFlight {
		return s.refuse(MsgBusy)
	}
	s.stopWaiting()
	s.startedAt = time.Time{}
	return s.d.Machine.SetState(uistate.Initial, true)
}

// RejectResult ends an outstanding detection whose result could not be
// accepted. With nothing in flight it does nothing
func (s *Service) RejectResult(err error) {
	if !s.inFlight {
		return
	}
	s.d.Log.Warn().Err(err).Uint64("attempt", s.attempt).Msg("result rejected")
	s.attempt++
	s.fail(reasonRejected, notifydom.Error, perr.UserMessage(err, MsgAnalysisError))
}

func (s *Service) fail(reason string, sev notifydom.Severity, msg string) {
	s.inFlight = false
	s.startedAt = time.Time{}
	s.stopWaiting()
	s.d.Machine.SetPending(false)
	if s.d.Machine.Current() == uistate.Processing {
		if err := s.d.Machine.SetState(uistate.ImageReady, false); err != nil {
			s.d.Log.Error().Err(err).Msg("revert to image view failed")
		}
	}
	s.d.Notify.Push(sev, msg)
	s.d.Metrics.Failed(reason)
	s.d.Log.Warn().Str("reason", reason).Str("message", msg).Msg("detection failed")
}

func (s *Service) refuse(msg string) error {
	s.d.Notify.Push(notifydom.Warning, msg)
	return perr.Validationf("%s", msg)
}

func (s *Service) stopWaiting() {
	if s.waiting != nil {
		s.waiting.Stop()
		s.waiting = nil
	}
}

func (s *Service) filename(given string) string {
	if name := strings.TrimSpace(given); name != "" {
		return name
	}
	if img, ok := s.d.Machine.Image(); ok && img.Filename != "" {
		return img.Filename
	}
	return "hasil_deteksi.jpg"
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return reasonTimeout
	case perr.Root(err) == err:
		// a bare LinkError is the backend saying no
		return reasonRejected
	default:
		return reasonTransport
	}
}

func dataURL(img uistate.Image) string {
	mime := img.MIME
	if mime == "" {
		mime = "image/jpeg"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

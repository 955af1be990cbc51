// Package service is the shell's context object. It owns every piece of
// application state and runs all of it on one loop; HTTP handlers and
// bridge calls reach it only through posted closures
package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"jagapadi/internal/core/advisory"
	"jagapadi/internal/core/chrome"
	"jagapadi/internal/core/gate"
	"jagapadi/internal/core/loop"
	"jagapadi/internal/core/uistate"
	"jagapadi/internal/modkit/repokit"
	perr "jagapadi/internal/platform/errors"
	"jagapadi/internal/platform/logger"
	"jagapadi/internal/platform/metrics"
	bridge "jagapadi/internal/services/bridge/domain"
	detdom "jagapadi/internal/services/detection/domain"
	detection "jagapadi/internal/services/detection/service"
	histdom "jagapadi/internal/services/history/domain"
	linkdom "jagapadi/internal/services/link/domain"
	mediadom "jagapadi/internal/services/media/domain"
	notifydom "jagapadi/internal/services/notify/domain"
	dom "jagapadi/internal/services/shell/domain"
)

// Parts are the collaborators the shell is assembled from
type Parts struct {
	Gate      *gate.Gate
	Sched     loop.Scheduler
	KV        repokit.KV
	Bridge    bridge.Port
	History   histdom.Port
	Link      linkdom.Port
	Media     mediadom.Port
	Notify    notifydom.Port
	Detection detection.Config
	Catalog   *advisory.Catalog
	Generator advisory.Generator
	Metrics   *metrics.Metrics
	Log       logger.Logger
	Now       func() time.Time
	Random    func() float64 // progress animation jitter
}

type viewer struct {
	id uint64
	fn func(dom.Frame)
}

// App is the composition root. Construct one with New; there is no global instance
type App struct {
	cfg     dom.Config
	log     logger.Logger
	gate    *gate.Gate
	sched   loop.Scheduler
	kv      repokit.KV
	bridge  bridge.Port
	history histdom.Port
	link    linkdom.Port
	media   mediadom.Port
	notify  notifydom.Port

	// loop confined
	machine  *uistate.Machine
	chrome   *chrome.Chrome
	detect   detdom.Port
	fallback loop.Timer

	life       atomic.Pointer[context.Context]
	chromeView atomic.Pointer[chrome.View]
	seq        atomic.Uint64

	mu      sync.Mutex
	prompt  chrome.Intent
	viewers []viewer
	nextID  uint64
	cancels []func()
}

// New assembles the shell and wires every observer and inbound call. Nothing
// runs until Boot
func New(cfg dom.Config, p Parts) *App {
	if cfg.FallbackDelay <= 0 {
		cfg.FallbackDelay = 2 * time.Second
	}
	if cfg.BootTimeout <= 0 {
		cfg.BootTimeout = 10 * time.Second
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	a := &App{
		cfg:     cfg,
		log:     p.Log,
		gate:    p.Gate,
		sched:   p.Sched,
		kv:      p.KV,
		bridge:  p.Bridge,
		history: p.History,
		link:    p.Link,
		media:   p.Media,
		notify:  p.Notify,
		chrome:  chrome.New(),
	}
	a.syncChrome()

	a.machine = uistate.New(
		uistate.WithLogger(p.Log.With().Str("component", "uistate").Logger()),
		uistate.WithView(uistate.ViewFunc(func(uistate.Surface) { a.publish() })),
		uistate.WithAnimator(uistate.NewProgressAnimation(p.Sched, p.Random)),
		uistate.WithClock(p.Now),
	)

	var dm *metrics.Detection
	if p.Metrics != nil {
		dm = p.Metrics.Detection
	}
	a.detect = detection.New(p.Detection, detection.Deps{
		Machine:   a.machine,
		Link:      p.Link,
		History:   p.History,
		Notify:    p.Notify,
		Catalog:   p.Catalog,
		Generator: p.Generator,
		Sched:     p.Sched,
		Log:       p.Log.With().Str("component", "detection").Logger(),
		Metrics:   dm,
		Now:       p.Now,
	})

	a.wire()
	a.registerInbound()
	return a
}

func (a *App) wire() {
	a.cancels = append(a.cancels,
		a.link.Observe(func(st linkdom.State) {
			a.sched.Post(func() { a.onLink(st) })
		}),
		a.history.Observe(func(histdom.Change) { a.publish() }),
		a.notify.Observe(func(e notifydom.Event) {
			if e.Kind == notifydom.Status {
				a.sched.Post(func() { a.machine.SetStatus(e.Status) })
				return
			}
			a.publish()
		}),
	)
	a.bridge.OnConnect(func() {
		if a.gate.IsReady() {
			a.sendReady()
		}
	})
	a.bridge.OnDisconnect(func() {
		a.link.MarkLost("host disconnected")
	})
}

// Boot hydrates history and theme, renders Initial, opens the gate and tells
// the host the frontend is ready. ctx also bounds camera sessions, so pass the
// application's lifetime context
func (a *App) Boot(ctx context.Context) error {
	a.life.Store(&ctx)

	hctx, cancel := context.WithTimeout(ctx, a.cfg.BootTimeout)
	defer cancel()
	if err := a.history.Load(hctx); err != nil {
		a.log.Warn().Err(err).Msg("history unavailable, running in memory")
	}
	raw, found, terr := repokit.GetString(hctx, a.kv, chrome.ThemeKey)
	if terr != nil {
		a.log.Warn().Err(terr).Msg("theme read failed")
	}

	err := a.do(ctx, func() error {
		if found {
			if t, err := chrome.ParseTheme(raw); err == nil {
				a.chrome.SetTheme(t)
				a.syncChrome()
			}
		}
		if err := a.machine.SetState(uistate.Initial, true); err != nil {
			return err
		}
		a.gate.MarkReady()
		return nil
	})
	if err != nil {
		return err
	}
	a.sendReady()
	a.log.Info().Int("history", a.history.Len()).Str("theme", string(a.chromeSnapshot().Theme)).Msg("shell ready")
	return nil
}

// Close detaches observers and releases the camera
func (a *App) Close() {
	a.mu.Lock()
	cancels := a.cancels
	a.cancels = nil
	a.mu.Unlock()
	for _, c := range cancels {
		c()
	}
	a.media.Close()
}

// Subscribe registers fn for every frame. fn runs on whichever goroutine
// caused the change and must not block
func (a *App) Subscribe(fn func(dom.Frame)) (cancel func()) {
	a.mu.Lock()
	a.nextID++
	id := a.nextID
	a.viewers = append(a.viewers, viewer{id: id, fn: fn})
	a.mu.Unlock()
	return func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		for i, v := range a.viewers {
			if v.id == id {
				a.viewers = append(a.viewers[:i], a.viewers[i+1:]...)
				return
			}
		}
	}
}

// Snapshot composes the current frame. Safe from any goroutine
func (a *App) Snapshot() dom.Frame {
	st := a.link.State()
	a.mu.Lock()
	prompt := a.prompt
	a.mu.Unlock()
	return dom.Frame{
		Seq:           a.seq.Load(),
		Surface:       a.machine.Snapshot(),
		Chrome:        a.chromeSnapshot(),
		Notifications: a.notify.Active(),
		StatusLine:    a.notify.Status(),
		Link:          st,
		LinkText:      st.Text(),
		Camera:        a.media.Active(),
		Prompt:        prompt,
		Today:         a.history.TodayStats(),
		HistoryCount:  a.history.Len(),
	}
}

// History exposes the read side for the api
func (a *App) History() histdom.ReaderPort { return a.history }

// Ready reports whether boot has completed
func (a *App) Ready() bool { return a.gate.IsReady() }

func (a *App) publish() {
	if a.machine == nil {
		return
	}
	a.seq.Add(1)
	f := a.Snapshot()
	a.mu.Lock()
	vs := append([]viewer(nil), a.viewers...)
	a.mu.Unlock()
	for _, v := range vs {
		v.fn(f)
	}
}

func (a *App) syncChrome() {
	v := a.chrome.Snapshot()
	a.chromeView.Store(&v)
	a.publish()
}

func (a *App) chromeSnapshot() chrome.View {
	if v := a.chromeView.Load(); v != nil {
		return *v
	}
	return chrome.View{}
}

func (a *App) setPrompt(i chrome.Intent) {
	a.mu.Lock()
	changed := a.prompt != i
	a.prompt = i
	a.mu.Unlock()
	if changed {
		a.publish()
	}
}

func (a *App) lifetime() context.Context {
	if p := a.life.Load(); p != nil {
		return *p
	}
	return context.Background()
}

func (a *App) sendReady() {
	if !a.bridge.Connected() {
		return
	}
	if err := a.link.FrontendReady(); err != nil {
		a.log.Warn().Err(err).Msg("frontendReady not delivered")
		return
	}
	a.log.Debug().Msg("frontendReady sent")
}

// onLink keeps the surface in step with the backend link. Losing the link
// drops back to Initial unless a detection is still running
func (a *App) onLink(st linkdom.State) {
	a.machine.SetLinked(st == linkdom.Connected)
	if st != linkdom.Disconnected {
		return
	}
	if a.media.Active() {
		a.sched.Go(func() func() {
			a.media.Close()
			return nil
		})
	}
	if a.chrome.Close(chrome.ModalCamera) {
		a.syncChrome()
	}
	if a.machine.Current() != uistate.Processing && !a.detect.InFlight() {
		if err := a.machine.SetState(uistate.Initial, false); err != nil {
			a.log.Error().Err(err).Msg("reset after link loss failed")
		}
	}
}

// do runs fn on the loop and waits for its result
func (a *App) do(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	posted := a.sched.Post(func() {
		defer func() {
			if v := recover(); v != nil {
				a.log.Error().Str("panic", fmt.Sprint(v)).Msg("shell task panicked")
				done <- perr.PanicErrf("shell task panicked")
			}
		}()
		done <- fn()
	})
	if !posted {
		return perr.Unavailablef("shell is shutting down")
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return perr.Wrap(ctx.Err(), perr.ErrorCodeUnavailable, "shell did not respond")
	}
}

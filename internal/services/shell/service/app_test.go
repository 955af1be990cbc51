package service

import (
	"context"
	"encoding/json"
	"slices"
	"sync"
	"testing"
	"time"

	"jagapadi/internal/core/advisory"
	"jagapadi/internal/core/chrome"
	"jagapadi/internal/core/gate"
	"jagapadi/internal/core/loop"
	"jagapadi/internal/core/record"
	"jagapadi/internal/core/uistate"
	perr "jagapadi/internal/platform/errors"
	"jagapadi/internal/platform/logger"
	"jagapadi/internal/platform/store"
	"jagapadi/internal/platform/testkit"
	bridge "jagapadi/internal/services/bridge/domain"
	histrepo "jagapadi/internal/services/history/repo"
	history "jagapadi/internal/services/history/service"
	link "jagapadi/internal/services/link/service"
	mediadom "jagapadi/internal/services/media/domain"
	media "jagapadi/internal/services/media/service"
	notify "jagapadi/internal/services/notify/service"
	dom "jagapadi/internal/services/shell/domain"
)

// fakeBridge stands in for the websocket hub. Inbound calls take the same
// path the hub uses: posted to the loop, then through the gate
type fakeBridge struct {
	gate  *gate.Gate
	sched loop.Scheduler

	mu           sync.Mutex
	connected    bool
	handlers     map[string]bridge.Handler
	onConnect    []func()
	onDisconnect []func()
	calls        []string
	notified     []string
	replies      map[string]func(payload any) (bridge.Reply, error)
}

func newFakeBridge(g *gate.Gate, s loop.Scheduler) *fakeBridge {
	return &fakeBridge{
		gate:      g,
		sched:     s,
		connected: true,
		handlers:  map[string]bridge.Handler{},
		replies:   map[string]func(any) (bridge.Reply, error){},
	}
}

func (b *fakeBridge) Register(name string, h bridge.Handler) { b.handlers[name] = h }
func (b *fakeBridge) OnConnect(fn func())                    { b.onConnect = append(b.onConnect, fn) }
func (b *fakeBridge) OnDisconnect(fn func())                 { b.onDisconnect = append(b.onDisconnect, fn) }

func (b *fakeBridge) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

func (b *fakeBridge) Call(_ context.Context, name string, payload any) (bridge.Reply, error) {
	b.mu.Lock()
	b.calls = append(b.calls, name)
	fn := b.replies[name]
	b.mu.Unlock()
	if fn == nil {
		return bridge.Reply{OK: true}, nil
	}
	return fn(payload)
}

func (b *fakeBridge) Notify(name string, _ any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.connected {
		return perr.Linkf("Host tidak terhubung")
	}
	b.notified = append(b.notified, name)
	return nil
}

func (b *fakeBridge) reply(name string, fn func(any) (bridge.Reply, error)) {
	b.mu.Lock()
	b.replies[name] = fn
	b.mu.Unlock()
}

func (b *fakeBridge) called(name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Contains(b.calls, name)
}

func (b *fakeBridge) disconnect() {
	b.mu.Lock()
	b.connected = false
	b.mu.Unlock()
	for _, fn := range b.onDisconnect {
		b.sched.Post(fn)
	}
}

type inboundResult struct {
	done bool
	out  any
	err  error
}

// inbound delivers a host call. The result fills in once the gate runs it
func (b *fakeBridge) inbound(t *testing.T, name string, payload any) *inboundResult {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	h, ok := b.handlers[name]
	if !ok {
		t.Fatalf("no handler for %s", name)
	}
	res := &inboundResult{}
	b.sched.Post(func() {
		b.gate.EnqueueOrRun(name, func() {
			res.out, res.err = h(context.Background(), raw)
			res.done = true
		})
	})
	return res
}

type harness struct {
	app    *App
	bridge *fakeBridge
	gate   *gate.Gate
	sched  *loop.Inline
	kv     *store.Memory
	hist   *history.Service
	clock  *testkit.Clock
}

func newHarness(t *testing.T, kv *store.Memory) *harness {
	t.Helper()
	if kv == nil {
		kv = store.NewMemory()
	}
	h := &harness{
		gate:  gate.New(gate.WithLogger(*logger.Nop())),
		sched: loop.NewInline(),
		kv:    kv,
		clock: testkit.NewClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)),
	}
	h.bridge = newFakeBridge(h.gate, h.sched)
	h.hist = history.New(history.Config{Location: time.UTC}, histrepo.New(kv, time.UTC, *logger.Nop()), *logger.Nop(), nil, h.clock)
	t.Cleanup(h.hist.Close)

	h.app = New(dom.Config{FallbackDelay: 2 * time.Second, Location: time.UTC}, Parts{
		Gate:    h.gate,
		Sched:   h.sched,
		KV:      kv,
		Bridge:  h.bridge,
		History: h.hist,
		Link:    link.New(link.Config{EstablishEvery: time.Millisecond, Burst: 100}, h.bridge, *logger.Nop()),
		Media:   media.New(mediadom.DefaultLimits, media.BridgeDevice{Caller: h.bridge}, *logger.Nop(), h.clock.Now),
		Notify:  notify.New(notify.Config{TTL: time.Minute}, *logger.Nop(), nil, h.clock),
		Generator: advisory.GeneratorFunc(func() []record.Finding {
			return []record.Finding{{Label: "wereng", Confidence: 90}}
		}),
		Log:    *logger.Nop(),
		Now:    h.clock.Now,
		Random: func() float64 { return 0.5 },
	})
	t.Cleanup(h.app.Close)
	return h
}

func (h *harness) boot(t *testing.T) {
	t.Helper()
	if err := h.app.Boot(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func (h *harness) connect(t *testing.T) {
	t.Helper()
	h.bridge.reply(bridge.EstablishLink, func(any) (bridge.Reply, error) {
		return bridge.Reply{OK: true, Message: "Berhasil terhubung ke server"}, nil
	})
	if _, err := h.app.Connect(context.Background(), "rahasia"); err != nil {
		t.Fatal(err)
	}
}

func pngBytes() []byte {
	b := make([]byte, 2048)
	copy(b, "\x89PNG\r\n\x1a\n")
	return b
}

func (h *harness) lastNotice() string {
	active := h.app.Notifications()
	if len(active) == 0 {
		return ""
	}
	return active[len(active)-1].Message
}

func TestDeliverResultBeforeReadyIsNotDropped(t *testing.T) {
	h := newHarness(t, nil)
	res := h.bridge.inbound(t, bridge.DeliverResult, map[string]any{"image": "data:image/jpeg;base64,QUJD"})

	if res.done || h.gate.Pending() != 1 {
		t.Fatal("call should wait for boot")
	}
	if h.app.Snapshot().Surface.State != uistate.Initial {
		t.Fatal("state changed before boot")
	}

	h.boot(t)
	if !res.done || res.err != nil {
		t.Fatalf("done=%v err=%v", res.done, res.err)
	}
	f := h.app.Snapshot()
	if f.Surface.State != uistate.Results || f.Surface.Result == nil || f.Surface.Result.ResultImage != "data:image/jpeg;base64,QUJD" {
		t.Fatalf("surface %+v", f.Surface)
	}
	if h.hist.Len() != 1 || f.HistoryCount != 1 {
		t.Fatalf("history %d", h.hist.Len())
	}
	if !slices.Contains(h.bridge.notified, bridge.FrontendReady) {
		t.Fatal("frontendReady not sent")
	}
}

func TestFrontendReadyResentOnReconnect(t *testing.T) {
	h := newHarness(t, nil)
	h.bridge.connected = false
	h.boot(t)
	if len(h.bridge.notified) != 0 {
		t.Fatal("no host, nothing to notify")
	}
	h.bridge.connected = true
	for _, fn := range h.bridge.onConnect {
		h.sched.Post(fn)
	}
	if !slices.Contains(h.bridge.notified, bridge.FrontendReady) {
		t.Fatal("frontendReady not resent")
	}
}

func TestSelectFileNeedsLink(t *testing.T) {
	h := newHarness(t, nil)
	h.boot(t)

	_, err := h.app.SelectFile(context.Background(), "daun.png", pngBytes())
	testkit.MustCode(t, err, perr.ErrorCodeValidation)
	if h.lastNotice() != MsgNeedsLink {
		t.Fatalf("notice %q", h.lastNotice())
	}

	h.connect(t)
	s, err := h.app.SelectFile(context.Background(), "catatan.txt", []byte("bukan gambar sama sekali, hanya teks biasa"))
	if err == nil || s.State != uistate.Initial {
		t.Fatalf("text file accepted: %v %s", err, s.State)
	}

	s, err = h.app.SelectFile(context.Background(), "daun.png", pngBytes())
	if err != nil || s.State != uistate.ImageReady || !s.Enabled(uistate.ActionDetect) {
		t.Fatalf("surface %+v err %v", s, err)
	}
}

func TestRejectedDetectionReturnsToImageReady(t *testing.T) {
	h := newHarness(t, nil)
	h.boot(t)
	h.connect(t)
	_, _ = h.app.SelectFile(context.Background(), "daun.png", pngBytes())
	h.bridge.reply(bridge.SubmitImage, func(any) (bridge.Reply, error) {
		return bridge.Reply{OK: false, Message: "Gagal memproses gambar"}, nil
	})

	s, err := h.app.Detect(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if s.State != uistate.ImageReady || s.Pending {
		t.Fatalf("state %s pending %v", s.State, s.Pending)
	}
	if h.lastNotice() != "Gagal memproses gambar" {
		t.Fatalf("notice %q", h.lastNotice())
	}
}

func TestAsyncDetectionEndToEnd(t *testing.T) {
	h := newHarness(t, nil)
	h.boot(t)
	h.connect(t)
	_, _ = h.app.SelectFile(context.Background(), "daun.png", pngBytes())

	s, _ := h.app.Detect(context.Background())
	if s.State != uistate.Processing {
		t.Fatalf("state %s", s.State)
	}
	h.clock.Advance(3 * time.Second)
	res := h.bridge.inbound(t, bridge.DeliverResult, map[string]any{"image": "annotated"})
	if res.err != nil {
		t.Fatal(res.err)
	}
	w := res.out.(record.WireRecord)
	if w.Filename != "daun.png" || float64(w.ProcessingTime) != 3 || w.Source != string(record.ProvenanceLocalOnly) {
		t.Fatalf("wire %+v", w)
	}

	r, err := h.app.ViewDetails(context.Background(), "")
	if err != nil || r.ID != w.ID {
		t.Fatalf("details %v %v", r.ID, err)
	}
	if top := h.app.Snapshot().Chrome.Modals; len(top) != 1 || top[0].Kind != chrome.ModalDetail {
		t.Fatalf("modals %+v", top)
	}

	s, err = h.app.NewDetection(context.Background())
	if err != nil || s.State != uistate.Initial || s.Image != nil {
		t.Fatalf("surface %+v err %v", s, err)
	}
}

func TestUnreadableResultEndsDetection(t *testing.T) {
	cases := []struct {
		name    string
		payload any
	}{
		{"wrong type", map[string]any{"image": 42}},
		{"missing image", map[string]any{"detections": []any{}}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			h := newHarness(t, nil)
			h.boot(t)
			h.connect(t)
			_, _ = h.app.SelectFile(context.Background(), "daun.png", pngBytes())
			if s, _ := h.app.Detect(context.Background()); s.State != uistate.Processing {
				t.Fatalf("state %s", s.State)
			}

			res := h.bridge.inbound(t, bridge.DeliverResult, c.payload)
			if !res.done || res.err == nil {
				t.Fatalf("done=%v err=%v", res.done, res.err)
			}
			s := h.app.Snapshot().Surface
			if s.State != uistate.ImageReady || s.Pending {
				t.Fatalf("state %s pending %v", s.State, s.Pending)
			}
			if h.app.Snapshot().HistoryCount != 0 {
				t.Fatal("rejected result recorded")
			}
		})
	}
}

func TestLinkLossResetsUnlessProcessing(t *testing.T) {
	h := newHarness(t, nil)
	h.boot(t)
	h.connect(t)
	_, _ = h.app.SelectFile(context.Background(), "daun.png", pngBytes())

	res := h.bridge.inbound(t, bridge.ConnectionLost, map[string]any{"reason": "server restart"})
	if res.err != nil {
		t.Fatal(res.err)
	}
	f := h.app.Snapshot()
	if f.Surface.State != uistate.Initial || f.Surface.Linked || f.LinkText != "Tidak Terhubung" {
		t.Fatalf("frame %+v", f)
	}
	if h.lastNotice() != MsgConnectionLost {
		t.Fatalf("notice %q", h.lastNotice())
	}
}

func TestHostDisconnectMarksLinkLost(t *testing.T) {
	h := newHarness(t, nil)
	h.boot(t)
	h.connect(t)
	h.bridge.disconnect()
	if h.app.LinkState().String() != "disconnected" || h.app.Snapshot().Surface.Linked {
		t.Fatal("link should drop with the host")
	}
}

func TestCameraFailureOffersFilePicker(t *testing.T) {
	h := newHarness(t, nil)
	h.boot(t)
	h.connect(t)
	h.bridge.reply(bridge.AcquireCamera, func(any) (bridge.Reply, error) {
		return bridge.Reply{OK: false, Kind: "NotAllowedError", Message: "denied"}, nil
	})

	err := h.app.OpenCamera(context.Background())
	testkit.MustCode(t, err, perr.ErrorCodeMediaAccess)
	if h.app.Snapshot().Prompt != chrome.IntentNone {
		t.Fatal("fallback fired early")
	}
	h.sched.Advance(2 * time.Second)
	if h.app.Snapshot().Prompt != chrome.IntentFile || h.lastNotice() != media.MsgFallback {
		t.Fatalf("prompt %q notice %q", h.app.Snapshot().Prompt, h.lastNotice())
	}

	_, _ = h.app.SelectFile(context.Background(), "daun.png", pngBytes())
	if h.app.Snapshot().Prompt != chrome.IntentNone {
		t.Fatal("picking a file should clear the prompt")
	}
}

func TestCaptureLoadsFrameAndReleases(t *testing.T) {
	h := newHarness(t, nil)
	h.boot(t)
	h.connect(t)
	h.bridge.reply(bridge.CaptureFrame, func(any) (bridge.Reply, error) {
		raw, _ := json.Marshal(map[string][]byte{"image": pngBytes()})
		return bridge.Reply{OK: true, Payload: raw}, nil
	})

	if err := h.app.OpenCamera(context.Background()); err != nil {
		t.Fatal(err)
	}
	if f := h.app.Snapshot(); !f.Camera || len(f.Chrome.Modals) != 1 {
		t.Fatalf("frame %+v", f)
	}
	s, err := h.app.Capture(context.Background())
	if err != nil || s.State != uistate.ImageReady || s.Image == nil {
		t.Fatalf("surface %+v err %v", s, err)
	}
	f := h.app.Snapshot()
	if f.Camera || len(f.Chrome.Modals) != 0 || !h.bridge.called(bridge.ReleaseCamera) {
		t.Fatal("camera not released")
	}
	if h.lastNotice() != media.MsgCaptured {
		t.Fatalf("notice %q", h.lastNotice())
	}
}

func TestThemeSurvivesRestart(t *testing.T) {
	kv := store.NewMemory()
	h := newHarness(t, kv)
	h.boot(t)
	if _, err := h.app.SetTheme(context.Background(), "dark"); err != nil {
		t.Fatal(err)
	}
	if _, err := h.app.SetTheme(context.Background(), "sepia"); err == nil {
		t.Fatal("unknown theme accepted")
	}

	again := newHarness(t, kv)
	again.boot(t)
	if again.app.Snapshot().Chrome.Theme != chrome.ThemeDark {
		t.Fatal("theme not restored")
	}
}

func TestLoadHistorySkipsBadRecords(t *testing.T) {
	h := newHarness(t, nil)
	h.boot(t)
	res := h.bridge.inbound(t, bridge.LoadHistory, []map[string]any{
		{"id": "srv-1", "filename": "a.jpg", "timestamp": "2025-05-31T08:00:00Z", "results": map[string]any{"detections": []any{}}},
		{"id": "srv-2", "filename": "b.jpg", "timestamp": "kemarin", "results": map[string]any{"detections": []any{}}},
	})
	if res.err != nil {
		t.Fatal(res.err)
	}
	if got := res.out.(mergeReply); got.Records != 1 || got.Rejected != 1 {
		t.Fatalf("reply %+v", got)
	}

	h.bridge.inbound(t, bridge.ClearHistory, nil)
	if h.hist.Len() != 0 {
		t.Fatal("history not cleared")
	}
}

func TestStatusMessageDrivesStatusBar(t *testing.T) {
	h := newHarness(t, nil)
	h.boot(t)
	h.bridge.inbound(t, bridge.StatusMessage, map[string]string{"message": "Server siap"})
	f := h.app.Snapshot()
	if f.Surface.Status != "Server siap" || f.StatusLine != "Server siap" {
		t.Fatalf("status %q / %q", f.Surface.Status, f.StatusLine)
	}

	res := h.bridge.inbound(t, bridge.StatusMessage, map[string]string{})
	testkit.MustCode(t, res.err, perr.ErrorCodeValidation)
}

func TestKeyShortcuts(t *testing.T) {
	h := newHarness(t, nil)
	h.boot(t)
	h.connect(t)
	_, _ = h.app.SelectFile(context.Background(), "daun.png", pngBytes())

	intent, err := h.app.Key(context.Background(), chrome.Key{Key: "d"})
	if err != nil || intent != chrome.IntentDetect {
		t.Fatalf("intent %q err %v", intent, err)
	}
	if !h.bridge.called(bridge.SubmitImage) {
		t.Fatal("d should start a detection")
	}

	_, _ = h.app.Key(context.Background(), chrome.Key{Key: "t"})
	raw, ok, _ := h.kv.Get(context.Background(), chrome.ThemeKey)
	if !ok || string(raw) != "dark" {
		t.Fatalf("theme toggle not persisted: %q", raw)
	}
}

func TestSubscribersSeeEveryChange(t *testing.T) {
	h := newHarness(t, nil)
	var frames []dom.Frame
	cancel := h.app.Subscribe(func(f dom.Frame) { frames = append(frames, f) })
	h.boot(t)
	if _, err := h.app.ToggleSidebar(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(frames) == 0 || !frames[len(frames)-1].Chrome.SidebarOpen {
		t.Fatalf("got %d frames", len(frames))
	}
	if frames[len(frames)-1].Seq <= frames[0].Seq {
		t.Fatal("sequence should grow")
	}

	cancel()
	n := len(frames)
	_, _ = h.app.ToggleSidebar(context.Background())
	if len(frames) != n {
		t.Fatal("cancelled subscriber still called")
	}
}

func TestDismissModal(t *testing.T) {
	h := newHarness(t, nil)
	h.boot(t)
	_ = h.app.OpenAuth(context.Background())
	if _, _, err := h.app.DismissModal(context.Background(), "swipe"); err == nil {
		t.Fatal("only action, background and escape close modals")
	}
	m, closed, err := h.app.DismissModal(context.Background(), "background")
	if err != nil || !closed || m.Kind != chrome.ModalAuth {
		t.Fatalf("m=%+v closed=%v err=%v", m, closed, err)
	}
}

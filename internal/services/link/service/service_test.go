package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	perr "jagapadi/internal/platform/errors"
	"jagapadi/internal/platform/logger"
	"jagapadi/internal/platform/testkit"
	bridge "jagapadi/internal/services/bridge/domain"
	dom "jagapadi/internal/services/link/domain"
)

type call struct {
	name    string
	payload any
}

type fakeCaller struct {
	mu        sync.Mutex
	calls     []call
	notified  []string
	connected bool
	reply     func(name string) (bridge.Reply, error)
}

func (f *fakeCaller) Call(_ context.Context, name string, payload any) (bridge.Reply, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{name, payload})
	r := f.reply
	f.mu.Unlock()
	if r == nil {
		return bridge.Reply{OK: true}, nil
	}
	return r(name)
}

func (f *fakeCaller) Notify(name string, _ any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return perr.Linkf("Host tidak terhubung")
	}
	f.notified = append(f.notified, name)
	return nil
}

func (f *fakeCaller) Connected() bool { return f.connected }

func newLink(f *fakeCaller) *Service {
	return New(Config{EstablishEvery: time.Hour, Burst: 100}, f, *logger.Nop())
}

func TestEstablishSuccess(t *testing.T) {
	f := &fakeCaller{connected: true, reply: func(string) (bridge.Reply, error) {
		return bridge.Reply{OK: true, Message: "Berhasil terhubung ke server JAGAPADI"}, nil
	}}
	l := newLink(f)
	var seen []dom.State
	l.Observe(func(s dom.State) { seen = append(seen, s) })

	msg, err := l.Establish(context.Background(), "rahasia")
	if err != nil || msg != "Berhasil terhubung ke server JAGAPADI" {
		t.Fatalf("msg=%q err=%v", msg, err)
	}
	if !l.Connected() || len(seen) != 2 || seen[0] != dom.Connecting || seen[1] != dom.Connected {
		t.Fatalf("states %v", seen)
	}
	if p, ok := f.calls[0].payload.(dom.EstablishPayload); !ok || p.Password != "rahasia" {
		t.Fatalf("payload %#v", f.calls[0].payload)
	}
}

func TestEstablishBlankPassword(t *testing.T) {
	f := &fakeCaller{}
	l := newLink(f)
	_, err := l.Establish(context.Background(), "   ")
	testkit.MustCode(t, err, perr.ErrorCodeValidation)
	if perr.UserMessage(err, "") != MsgPasswordRequired || len(f.calls) != 0 {
		t.Fatalf("err=%v calls=%d", err, len(f.calls))
	}
}

func TestEstablishRejectedKeepsMessageVerbatim(t *testing.T) {
	f := &fakeCaller{reply: func(string) (bridge.Reply, error) {
		return bridge.Reply{OK: false, Message: "Password salah"}, nil
	}}
	l := newLink(f)
	_, err := l.Establish(context.Background(), "x")
	testkit.MustCode(t, err, perr.ErrorCodeLink)
	if perr.UserMessage(err, "") != "Password salah" || l.State() != dom.Disconnected {
		t.Fatalf("err=%v state=%v", err, l.State())
	}
}

func TestEstablishTransportFailure(t *testing.T) {
	f := &fakeCaller{reply: func(string) (bridge.Reply, error) { return bridge.Reply{}, errors.New("eof") }}
	l := newLink(f)
	_, err := l.Establish(context.Background(), "x")
	testkit.MustCode(t, err, perr.ErrorCodeLink)
	if perr.UserMessage(err, "") != MsgEstablishFailed || l.Connected() {
		t.Fatalf("err=%v", err)
	}
}

func TestEstablishThrottled(t *testing.T) {
	f := &fakeCaller{reply: func(string) (bridge.Reply, error) { return bridge.Reply{OK: false}, nil }}
	l := New(Config{EstablishEvery: time.Hour, Burst: 2}, f, *logger.Nop())
	for i := 0; i < 2; i++ {
		_, err := l.Establish(context.Background(), "x")
		testkit.MustCode(t, err, perr.ErrorCodeLink)
	}
	_, err := l.Establish(context.Background(), "x")
	testkit.MustCode(t, err, perr.ErrorCodeTooManyRequests)
	if len(f.calls) != 2 {
		t.Fatalf("calls %d", len(f.calls))
	}
}

func TestSeverAlwaysDisconnects(t *testing.T) {
	f := &fakeCaller{connected: true}
	l := newLink(f)
	if _, err := l.Establish(context.Background(), "x"); err != nil {
		t.Fatal(err)
	}
	f.reply = func(string) (bridge.Reply, error) { return bridge.Reply{}, errors.New("gone") }
	if msg := l.Sever(context.Background()); msg != MsgSevered {
		t.Fatalf("msg %q", msg)
	}
	if l.State() != dom.Disconnected || f.calls[len(f.calls)-1].name != bridge.SeverLink {
		t.Fatalf("state %v calls %+v", l.State(), f.calls)
	}

	// without a host the call is skipped entirely
	f.connected = false
	n := len(f.calls)
	l.Sever(context.Background())
	if len(f.calls) != n {
		t.Fatal("sever called a missing host")
	}
}

func TestSubmit(t *testing.T) {
	f := &fakeCaller{reply: func(string) (bridge.Reply, error) {
		return bridge.Reply{OK: true, Payload: json.RawMessage(`{"image":"eA=="}`)}, nil
	}}
	l := newLink(f)
	rep, err := l.Submit(context.Background(), dom.SubmitPayload{Filename: "daun.jpg", Image: []byte("x")})
	if err != nil || len(rep.Payload) == 0 {
		t.Fatalf("rep=%+v err=%v", rep, err)
	}

	f.reply = func(string) (bridge.Reply, error) { return bridge.Reply{OK: false, Message: "Gagal memproses"}, nil }
	_, err = l.Submit(context.Background(), dom.SubmitPayload{})
	testkit.MustCode(t, err, perr.ErrorCodeLink)
	if perr.UserMessage(err, "") != "Gagal memproses" {
		t.Fatalf("err %v", err)
	}

	f.reply = func(string) (bridge.Reply, error) { return bridge.Reply{OK: false}, nil }
	_, err = l.Submit(context.Background(), dom.SubmitPayload{})
	if perr.UserMessage(err, "") != MsgAnalysisFailed {
		t.Fatalf("err %v", err)
	}

	f.reply = func(string) (bridge.Reply, error) { return bridge.Reply{}, context.DeadlineExceeded }
	_, err = l.Submit(context.Background(), dom.SubmitPayload{})
	if perr.UserMessage(err, "") != MsgSubmitFailed {
		t.Fatalf("err %v", err)
	}
}

func TestMarkLostAndObserverCancel(t *testing.T) {
	f := &fakeCaller{}
	l := newLink(f)
	n := 0
	cancel := l.Observe(func(dom.State) { n++ })
	l.MarkLost("host gone") // already disconnected
	if n != 0 {
		t.Fatal("no change expected")
	}
	_, _ = l.Establish(context.Background(), "x")
	l.MarkLost("host gone")
	if l.Connected() || n != 3 {
		t.Fatalf("n=%d", n)
	}
	cancel()
	_, _ = l.Establish(context.Background(), "x")
	if n != 3 {
		t.Fatal("cancelled observer still called")
	}
}

func TestFrontendReady(t *testing.T) {
	f := &fakeCaller{}
	l := newLink(f)
	testkit.MustCode(t, l.FrontendReady(), perr.ErrorCodeLink)
	f.connected = true
	if err := l.FrontendReady(); err != nil || f.notified[0] != bridge.FrontendReady {
		t.Fatalf("err=%v", err)
	}
}

func TestStateNames(t *testing.T) {
	for _, s := range []dom.State{dom.Disconnected, dom.Connecting, dom.Connected} {
		got, err := dom.ParseState(s.String())
		if err != nil || got != s {
			t.Fatalf("%v: %v %v", s, got, err)
		}
	}
	if dom.Connected.Text() != "Terhubung" || dom.Connecting.Text() != "Menghubungkan..." || dom.Disconnected.Text() != "Tidak Terhubung" {
		t.Fatal("indicator text")
	}
	_, err := dom.ParseState("linked")
	testkit.MustCode(t, err, perr.ErrorCodeInvalidArgument)
}

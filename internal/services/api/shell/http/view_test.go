package http

import (
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"jagapadi/internal/core/uistate"
	"jagapadi/internal/platform/logger"
	"jagapadi/internal/platform/testkit"
	shelldom "jagapadi/internal/services/shell/domain"
)

func dialView(t *testing.T, v *View, origin string) (*websocket.Conn, *stdhttp.Response, error) {
	t.Helper()
	srv := httptest.NewServer(v)
	t.Cleanup(srv.Close)
	hdr := stdhttp.Header{}
	if origin != "" {
		hdr.Set("Origin", origin)
	}
	return websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), hdr)
}

func readFrame(t *testing.T, ws *websocket.Conn) shelldom.Frame {
	t.Helper()
	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var f shelldom.Frame
	if err := ws.ReadJSON(&f); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return f
}

func TestViewStreamsSnapshotThenChanges(t *testing.T) {
	s := newFake()
	v := NewView(ViewConfig{}, s, *logger.Nop())
	ws, _, err := dialView(t, v, "")
	if err != nil {
		t.Fatal(err)
	}

	if f := readFrame(t, ws); f.Surface.State != uistate.Initial {
		t.Fatalf("first frame %+v", f.Surface)
	}
	testkit.Eventually(t, time.Second, func() bool { return s.viewerCount() == 1 }, "subscribed")

	s.publish(uistate.ImageReady)
	if f := readFrame(t, ws); f.Surface.State != uistate.ImageReady || f.Seq != 1 {
		t.Fatalf("change frame seq=%d %+v", f.Seq, f.Surface)
	}
	if v.Clients() != 1 {
		t.Fatalf("clients %d", v.Clients())
	}

	_ = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = ws.Close()
	testkit.Eventually(t, 2*time.Second, func() bool { return s.viewerCount() == 0 && v.Clients() == 0 }, "unsubscribed")
}

func TestViewOriginPolicy(t *testing.T) {
	s := newFake()

	if _, resp, err := dialView(t, NewView(ViewConfig{}, s, *logger.Nop()), "http://evil.example"); err == nil {
		t.Fatal("foreign origin accepted")
	} else if resp != nil && resp.StatusCode != stdhttp.StatusForbidden {
		t.Fatalf("status %d", resp.StatusCode)
	}

	ws, _, err := dialView(t, NewView(ViewConfig{Origins: []string{"http://view.local"}}, s, *logger.Nop()), "http://view.local")
	if err != nil {
		t.Fatalf("listed origin refused: %v", err)
	}
	_ = ws.Close()
}

func TestSameHost(t *testing.T) {
	if !sameHost("http://127.0.0.1:8765", "127.0.0.1:8765") || sameHost("http://127.0.0.1:1", "127.0.0.1:8765") {
		t.Fatal("same host check")
	}
}

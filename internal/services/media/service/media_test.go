package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	perr "jagapadi/internal/platform/errors"
	"jagapadi/internal/platform/logger"
	"jagapadi/internal/platform/testkit"
	bridge "jagapadi/internal/services/bridge/domain"
	dom "jagapadi/internal/services/media/domain"
)

func pad(head string, n int) []byte {
	b := make([]byte, n)
	copy(b, head)
	return b
}

var (
	pngBytes  = pad("\x89PNG\r\n\x1a\n", 2048)
	jpegBytes = pad("\xff\xd8\xff\xe0", 2048)
	gifBytes  = pad("GIF89a", 2048)
	webpBytes = pad("RIFF\x00\x00\x00\x00WEBPVP8 ", 2048)
)

func TestIntakeAcceptsAllowedTypes(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		mime string
	}{
		{"daun.png", pngBytes, "image/png"},
		{"daun.jpg", jpegBytes, "image/jpeg"},
		{"daun.gif", gifBytes, "image/gif"},
		{"daun.webp", webpBytes, "image/webp"},
	}
	for _, tc := range cases {
		t.Run(tc.mime, func(t *testing.T) {
			img, err := Intake(dom.DefaultLimits, "/tmp/upload/"+tc.name, tc.data)
			if err != nil {
				t.Fatal(err)
			}
			if img.MIME != tc.mime || img.Filename != tc.name || len(img.Data) != len(tc.data) {
				t.Fatalf("got %s %q %d", img.MIME, img.Filename, len(img.Data))
			}
		})
	}
}

func TestIntakeSniffsInsteadOfTrustingName(t *testing.T) {
	_, err := Intake(dom.DefaultLimits, "foto.jpg", bytes.Repeat([]byte("ini bukan gambar "), 100))
	testkit.MustCode(t, err, perr.ErrorCodeValidation)
	if perr.UserMessage(err, "") != MsgNotImage {
		t.Fatalf("got %v", err)
	}
}

func TestIntakeRejections(t *testing.T) {
	small := dom.Limits{MaxBytes: 2048, MinBytes: 1024}
	cases := []struct {
		name string
		data []byte
		want string
	}{
		{"empty", nil, MsgNoFile},
		{"tiff", pad("II*\x00", 2048), "Format file image/tiff tidak didukung. Gunakan JPG, PNG, GIF, atau WebP."},
		{"too big", pad("\x89PNG\r\n\x1a\n", 4096), "Ukuran file terlalu besar"},
		{"too small", pad("\x89PNG\r\n\x1a\n", 512), MsgTooSmall},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Intake(small, "x", tc.data)
			testkit.MustCode(t, err, perr.ErrorCodeValidation)
			testkit.MustContain(t, perr.UserMessage(err, ""), tc.want)
		})
	}
}

func TestIntakeDefaultName(t *testing.T) {
	img, err := Intake(dom.DefaultLimits, "  ", pngBytes)
	if err != nil || img.Filename != "gambar.png" {
		t.Fatalf("got %q %v", img.Filename, err)
	}
}

func TestCaptureName(t *testing.T) {
	at := time.Date(2025, 3, 1, 7, 8, 9, 123e6, time.UTC)
	if got := CaptureName(at); got != "camera_capture_2025-03-01T07-08-09-123Z.jpg" {
		t.Fatalf("got %q", got)
	}
}

func TestMapAccessError(t *testing.T) {
	err := MapAccessError("NotAllowedError", "Permission denied")
	testkit.MustCode(t, err, perr.ErrorCodeMediaAccess)
	if perr.UserMessage(err, "") != "Akses kamera ditolak. Berikan izin kamera di browser." {
		t.Fatalf("got %v", err)
	}
	if m := perr.UserMessage(MapAccessError("AbortError", "aborted"), ""); m != "Error kamera: aborted" {
		t.Fatalf("got %q", m)
	}
	if m := perr.UserMessage(MapAccessError("", ""), ""); m != msgCameraGeneric {
		t.Fatalf("got %q", m)
	}
}

type fakeHandle struct {
	mu       sync.Mutex
	frame    []byte
	err      error
	released int
}

func (h *fakeHandle) Snapshot(context.Context) ([]byte, error) { return h.frame, h.err }
func (h *fakeHandle) Release() error {
	h.mu.Lock()
	h.released++
	h.mu.Unlock()
	return nil
}
func (h *fakeHandle) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.released
}

type fakeDevice struct {
	h   *fakeHandle
	err error
	n   int
}

func (d *fakeDevice) Acquire(context.Context) (dom.Handle, error) {
	d.n++
	if d.err != nil {
		return nil, d.err
	}
	return d.h, nil
}

func newService(d dom.Device) *Service {
	clock := testkit.NewClock(time.Date(2025, 3, 1, 7, 0, 0, 0, time.UTC))
	return New(dom.DefaultLimits, d, *logger.Nop(), clock.Now)
}

func TestCaptureReleasesCamera(t *testing.T) {
	h := &fakeHandle{frame: jpegBytes}
	d := &fakeDevice{h: h}
	s := newService(d)

	if err := s.Open(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := s.Open(context.Background()); err != nil || d.n != 1 {
		t.Fatalf("second open should reuse: n=%d err=%v", d.n, err)
	}
	img, err := s.Capture(context.Background())
	if err != nil || img.MIME != "image/jpeg" || !strings.HasPrefix(img.Filename, "camera_capture_") {
		t.Fatalf("img=%+v err=%v", img.Filename, err)
	}
	if s.Active() || h.count() != 1 {
		t.Fatalf("active=%v released=%d", s.Active(), h.count())
	}
	_, err = s.Capture(context.Background())
	testkit.MustCode(t, err, perr.ErrorCodeValidation)
}

func TestCaptureErrorStillReleases(t *testing.T) {
	h := &fakeHandle{err: errors.New("stream ended")}
	s := newService(&fakeDevice{h: h})
	_ = s.Open(context.Background())
	_, err := s.Capture(context.Background())
	testkit.MustCode(t, err, perr.ErrorCodeMediaAccess)
	if h.count() != 1 || s.Active() {
		t.Fatal("handle leaked")
	}
}

func TestCloseAndContextCancelRelease(t *testing.T) {
	h := &fakeHandle{}
	s := newService(&fakeDevice{h: h})
	_ = s.Open(context.Background())
	s.Close()
	s.Close()
	if h.count() != 1 {
		t.Fatalf("released %d", h.count())
	}

	ctx, cancel := context.WithCancel(context.Background())
	_ = s.Open(ctx)
	cancel()
	testkit.Eventually(t, time.Second, func() bool { return h.count() == 2 }, "release on cancel")
	if s.Active() {
		t.Fatal("still active")
	}
}

func TestOpenFailures(t *testing.T) {
	s := newService(&fakeDevice{err: MapAccessError("NotReadableError", "")})
	err := s.Open(context.Background())
	if perr.UserMessage(err, "") != "Kamera sedang digunakan aplikasi lain." {
		t.Fatalf("got %v", err)
	}
	s = newService(&fakeDevice{err: errors.New("driver crashed")})
	testkit.MustCode(t, s.Open(context.Background()), perr.ErrorCodeMediaAccess)

	s = New(dom.DefaultLimits, nil, *logger.Nop(), nil)
	if perr.UserMessage(s.Open(context.Background()), "") != msgCameraUnsupported {
		t.Fatal("nil device should be unsupported")
	}
}

type hostCamera struct {
	mu        sync.Mutex
	calls     []string
	connected bool
	deny      string
}

func (c *hostCamera) Call(_ context.Context, name string, _ any) (bridge.Reply, error) {
	c.mu.Lock()
	c.calls = append(c.calls, name)
	c.mu.Unlock()
	switch name {
	case bridge.AcquireCamera:
		if c.deny != "" {
			return bridge.Reply{OK: false, Kind: c.deny, Message: "denied"}, nil
		}
		return bridge.Reply{OK: true, Payload: json.RawMessage(`{"session":"cam-1"}`)}, nil
	case bridge.CaptureFrame:
		b, _ := json.Marshal(framePayload{Image: pngBytes})
		return bridge.Reply{OK: true, Payload: b}, nil
	}
	return bridge.Reply{OK: true}, nil
}
func (c *hostCamera) Notify(string, any) error { return nil }
func (c *hostCamera) Connected() bool          { return c.connected }

func TestBridgeDeviceFlow(t *testing.T) {
	host := &hostCamera{connected: true}
	s := newService(BridgeDevice{Caller: host})
	if err := s.Open(context.Background()); err != nil {
		t.Fatal(err)
	}
	img, err := s.Capture(context.Background())
	if err != nil || img.MIME != "image/png" {
		t.Fatalf("img=%v err=%v", img.MIME, err)
	}
	want := []string{bridge.AcquireCamera, bridge.CaptureFrame, bridge.ReleaseCamera}
	if strings.Join(host.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("calls %v", host.calls)
	}
}

func TestBridgeDeviceRefusals(t *testing.T) {
	host := &hostCamera{connected: true, deny: "NotAllowedError"}
	s := newService(BridgeDevice{Caller: host})
	err := s.Open(context.Background())
	testkit.MustContain(t, perr.UserMessage(err, ""), "Akses kamera ditolak")

	s = newService(BridgeDevice{Caller: &hostCamera{}})
	if perr.UserMessage(s.Open(context.Background()), "") != msgCameraUnsupported {
		t.Fatal("missing host should be unsupported")
	}
}

package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"jagapadi/internal/core/advisory"
	"jagapadi/internal/core/record"
	"jagapadi/internal/platform/logger"
	bridge "jagapadi/internal/services/bridge/domain"
	detdom "jagapadi/internal/services/detection/domain"
	linkdom "jagapadi/internal/services/link/domain"
)

type host struct {
	log      logger.Logger
	password string
	delivery string
	latency  time.Duration
	camera   string
	history  int
	gen      *advisory.DemoGenerator
	catalog  *advisory.Catalog

	gmu sync.Mutex

	wmu    sync.Mutex
	ws     *websocket.Conn
	linked bool
}

// serve handles one attachment until the socket drops or ctx ends
func (h *host) serve(ctx context.Context, ws *websocket.Conn) error {
	h.wmu.Lock()
	h.ws = ws
	h.linked = false
	h.wmu.Unlock()

	stop := context.AfterFunc(ctx, func() {
		h.wmu.Lock()
		_ = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
		h.wmu.Unlock()
		_ = ws.Close()
	})
	defer stop()
	defer ws.Close()

	for {
		var f bridge.Frame
		if err := ws.ReadJSON(&f); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		switch f.Type {
		case bridge.FrameCall:
			go h.answer(ctx, f)
		case bridge.FrameEvent:
			if f.Name == bridge.FrontendReady {
				go h.pushHistory()
			}
		case bridge.FrameReply:
			if f.OK == nil || !*f.OK {
				h.log.Warn().Str("call", f.Name).Str("kind", f.Kind).Str("message", f.Message).Msg("shell rejected call")
			}
		}
	}
}

func (h *host) answer(ctx context.Context, f bridge.Frame) {
	switch f.Name {
	case bridge.EstablishLink:
		var p linkdom.EstablishPayload
		_ = json.Unmarshal(f.Payload, &p)
		if p.Password != h.password {
			h.fail(f, "Unauthorized", "Password salah")
			return
		}
		h.wmu.Lock()
		h.linked = true
		h.wmu.Unlock()
		h.ok(f, "Berhasil terhubung ke server", nil)
	case bridge.SeverLink:
		h.wmu.Lock()
		h.linked = false
		h.wmu.Unlock()
		h.ok(f, "", nil)
	case bridge.SubmitImage:
		h.submit(ctx, f)
	case bridge.AcquireCamera:
		if h.camera != "" {
			h.fail(f, h.camera, "camera refused by host")
			return
		}
		h.ok(f, "", map[string]string{"session": uuid.NewString()})
	case bridge.CaptureFrame:
		h.ok(f, "", map[string][]byte{"image": testPattern()})
	case bridge.ReleaseCamera:
		h.ok(f, "", nil)
	default:
		h.fail(f, "NotFound", fmt.Sprintf("hostsim does not handle %s", f.Name))
	}
}

func (h *host) submit(ctx context.Context, f bridge.Frame) {
	var p linkdom.SubmitPayload
	if err := json.Unmarshal(f.Payload, &p); err != nil {
		h.fail(f, "JSON", "submission unreadable")
		return
	}
	h.wmu.Lock()
	linked := h.linked
	h.wmu.Unlock()
	if !linked {
		h.fail(f, "Link", "Tidak terhubung ke server")
		return
	}
	h.log.Info().Str("file", p.Filename).Str("size", humanize.Bytes(uint64(len(p.Image)))).Msg("image submitted")

	res := h.result(p)
	if h.delivery == "response" {
		sleep(ctx, h.latency)
		h.ok(f, "", res)
		return
	}
	h.ok(f, "Gambar diterima", nil)
	sleep(ctx, h.latency)
	if ctx.Err() != nil {
		return
	}
	h.call(bridge.DeliverResult, res)
}

func (h *host) result(p linkdom.SubmitPayload) detdom.ResultPayload {
	findings := h.findings()
	out := detdom.ResultPayload{
		Image:           "data:" + mimeOr(p.MIME) + ";base64," + base64.StdEncoding.EncodeToString(p.Image),
		Filename:        p.Filename,
		Recommendations: h.catalog.Recommend(findings, 8),
	}
	for _, fd := range findings {
		out.Detections = append(out.Detections, record.WireFinding{Name: fd.Label, Confidence: fd.Confidence})
	}
	return out
}

// pushHistory replays a few server-side records the way a backend would on attach
func (h *host) pushHistory() {
	if h.history <= 0 {
		return
	}
	now := time.Now()
	recs := make([]record.WireRecord, 0, h.history)
	for i := 0; i < h.history; i++ {
		findings := h.findings()
		w := record.WireRecord{
			ID:             fmt.Sprintf("srv-%d", now.Add(-time.Duration(i+1)*time.Hour).UnixMilli()),
			Filename:       fmt.Sprintf("sawah_%02d.jpg", i+1),
			Timestamp:      now.Add(-time.Duration(i+1) * time.Hour).Format(time.RFC3339),
			ProcessingTime: record.Seconds(1.2 + float64(i)/10),
			Source:         string(record.ProvenanceServer),
		}
		for _, fd := range findings {
			w.Results.Detections = append(w.Results.Detections, record.WireFinding{Name: fd.Label, Confidence: fd.Confidence})
		}
		w.Results.Recommendations = h.catalog.Recommend(findings, 8)
		recs = append(recs, w)
	}
	h.call(bridge.LoadHistory, recs)
	h.call(bridge.StatusMessage, map[string]string{"message": fmt.Sprintf("%d riwayat dari server", len(recs))})
}

func (h *host) findings() []record.Finding {
	h.gmu.Lock()
	defer h.gmu.Unlock()
	return h.gen.Findings()
}

func (h *host) ok(f bridge.Frame, msg string, payload any) {
	t := true
	h.write(bridge.Frame{Type: bridge.FrameReply, ID: f.ID, Name: f.Name, OK: &t, Message: msg, Payload: raw(payload)})
}

func (h *host) fail(f bridge.Frame, kind, msg string) {
	no := false
	h.write(bridge.Frame{Type: bridge.FrameReply, ID: f.ID, Name: f.Name, OK: &no, Kind: kind, Message: msg})
}

// call sends an inbound call; the shell's reply is only logged
func (h *host) call(name string, payload any) {
	h.write(bridge.Frame{Type: bridge.FrameCall, ID: uuid.NewString(), Name: name, Payload: raw(payload)})
}

func (h *host) write(f bridge.Frame) {
	h.wmu.Lock()
	defer h.wmu.Unlock()
	if h.ws == nil {
		return
	}
	_ = h.ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := h.ws.WriteJSON(f); err != nil {
		h.log.Warn().Err(err).Str("name", f.Name).Msg("write failed")
	}
}

func raw(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

func mimeOr(m string) string {
	if m == "" {
		return "image/jpeg"
	}
	return m
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// testPattern is a small green gradient standing in for a camera frame
func testPattern() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 2), G: uint8(120 + y*2), B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

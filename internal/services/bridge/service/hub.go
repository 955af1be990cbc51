// Package service implements the host bridge over a gorilla websocket.
//
// One host is attached at a time; a new connection replaces the old one.
// Inbound calls are dispatched on the shell's loop behind the readiness gate,
// outbound calls are correlated with their replies by id.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"jagapadi/internal/core/gate"
	"jagapadi/internal/core/loop"
	perr "jagapadi/internal/platform/errors"
	"jagapadi/internal/platform/logger"
	"jagapadi/internal/platform/metrics"
	pnet "jagapadi/internal/platform/net"
	dom "jagapadi/internal/services/bridge/domain"
)

// Gate is the slice of the readiness gate the hub needs
type Gate interface {
	EnqueueOrRun(name string, op gate.Op)
}

// Config tunes the socket
type Config struct {
	ReadLimit  int64         // max inbound frame, 32MB when zero
	WriteWait  time.Duration // per frame write deadline
	PongWait   time.Duration // host must answer pings within this
	SendBuffer int           // queued outbound frames per host
}

func (c *Config) defaults() {
	if c.ReadLimit <= 0 {
		c.ReadLimit = 32 << 20
	}
	if c.WriteWait <= 0 {
		c.WriteWait = 10 * time.Second
	}
	if c.PongWait <= 0 {
		c.PongWait = 60 * time.Second
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = 64
	}
}

// Hub implements domain.Port and http.Handler
type Hub struct {
	cfg      Config
	log      logger.Logger
	metrics  *metrics.Bridge
	gate     Gate
	sched    loop.Scheduler
	upgrader websocket.Upgrader

	mu           sync.Mutex
	host         *hostConn
	pending      map[string]pendingCall
	handlers     map[string]dom.Handler
	onConnect    []func()
	onDisconnect []func()
}

// pendingCall is an outbound call waiting on the connection it was sent to
type pendingCall struct {
	ch    chan dom.Reply
	owner *hostConn
}

var (
	_ dom.Port     = (*Hub)(nil)
	_ http.Handler = (*Hub)(nil)
)

// New builds a hub. Inbound calls are posted to sched and then pass through g
func New(cfg Config, g Gate, sched loop.Scheduler, log logger.Logger, m *metrics.Bridge) *Hub {
	cfg.defaults()
	return &Hub{
		cfg:     cfg,
		log:     log,
		metrics: m,
		gate:    g,
		sched:   sched,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 << 10,
			WriteBufferSize: 16 << 10,
			// the bearer token guards this endpoint; the host is not a browser
			CheckOrigin: func(*http.Request) bool { return true },
		},
		pending:  map[string]pendingCall{},
		handlers: map[string]dom.Handler{},
	}
}

// Register installs the handler for an inbound call name
func (h *Hub) Register(name string, fn dom.Handler) {
	h.mu.Lock()
	h.handlers[name] = fn
	h.mu.Unlock()
}

// OnConnect runs fn on the loop every time a host attaches
func (h *Hub) OnConnect(fn func()) {
	h.mu.Lock()
	h.onConnect = append(h.onConnect, fn)
	h.mu.Unlock()
}

// OnDisconnect runs fn on the loop every time the attached host goes away
func (h *Hub) OnDisconnect(fn func()) {
	h.mu.Lock()
	h.onDisconnect = append(h.onDisconnect, fn)
	h.mu.Unlock()
}

// Connected reports whether a host is attached
func (h *Hub) Connected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.host != nil
}

// ServeHTTP upgrades the request and attaches the host
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("bridge upgrade failed")
		return
	}
	ws.SetReadLimit(h.cfg.ReadLimit)
	c := newHostConn(ws, h.cfg.SendBuffer, pnet.Peer(r.Context()))

	h.mu.Lock()
	old := h.host
	h.host = c
	callbacks := append([]func(){}, h.onConnect...)
	h.mu.Unlock()

	if old != nil {
		h.log.Info().Str("peer", old.peer).Msg("host replaced by a newer connection")
		old.close()
	}
	h.metrics.Connected(true)
	h.log.Info().Str("peer", c.peer).Str("remote", r.RemoteAddr).Msg("host attached")

	for _, fn := range callbacks {
		h.sched.Post(fn)
	}

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) readPump(c *hostConn) {
	defer h.detach(c)
	_ = c.ws.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	})
	for {
		var f dom.Frame
		if err := c.ws.ReadJSON(&f); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Warn().Err(err).Msg("bridge read failed")
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
		h.route(c, f)
	}
}

func (h *Hub) writePump(c *hostConn) {
	ping := time.NewTicker(h.cfg.PongWait * 9 / 10)
	defer func() {
		ping.Stop()
		_ = c.ws.Close()
	}()
	for {
		select {
		case <-c.done:
			_ = c.ws.SetWriteDeadline(time.Now().Add(h.cfg.WriteWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case b := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(h.cfg.WriteWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, b); err != nil {
				h.log.Warn().Err(err).Msg("bridge write failed")
				c.close()
				return
			}
		case <-ping.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(h.cfg.WriteWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}

// detach fails the calls sent over c and forgets c if it is still the
// current host. A replaced connection fails its calls without a disconnect
func (h *Hub) detach(c *hostConn) {
	c.close()
	h.mu.Lock()
	var abandoned []chan dom.Reply
	for id, p := range h.pending {
		if p.owner == c {
			abandoned = append(abandoned, p.ch)
			delete(h.pending, id)
		}
	}
	current := h.host == c
	var callbacks []func()
	if current {
		h.host = nil
		callbacks = append(callbacks, h.onDisconnect...)
	}
	h.mu.Unlock()

	for _, ch := range abandoned {
		close(ch)
	}
	if !current {
		h.log.Debug().Str("peer", c.peer).Int("abandoned_calls", len(abandoned)).Msg("replaced host gone")
		return
	}
	h.metrics.Connected(false)
	h.log.Info().Str("peer", c.peer).Int("abandoned_calls", len(abandoned)).Msg("host detached")
	for _, fn := range callbacks {
		h.sched.Post(fn)
	}
}

func (h *Hub) route(c *hostConn, f dom.Frame) {
	switch f.Type {
	case dom.FrameReply:
		h.mu.Lock()
		p, ok := h.pending[f.ID]
		if ok && p.owner == c {
			delete(h.pending, f.ID)
		}
		h.mu.Unlock()
		if !ok || p.owner != c {
			h.log.Debug().Str("id", f.ID).Msg("reply for unknown call")
			return
		}
		p.ch <- dom.Reply{OK: f.OK != nil && *f.OK, Message: f.Message, Kind: f.Kind, Payload: f.Payload}
	case dom.FrameCall, dom.FrameEvent:
		h.dispatch(c, f)
	default:
		h.log.Warn().Str("type", string(f.Type)).Msg("unknown frame type")
	}
}

// dispatch runs an inbound call on the loop behind the gate
func (h *Hub) dispatch(c *hostConn, f dom.Frame) {
	h.mu.Lock()
	fn, ok := h.handlers[f.Name]
	h.mu.Unlock()
	if !ok {
		err := perr.NotFoundf("unknown call %q", f.Name)
		h.metrics.Call("inbound", f.Name, err)
		h.reply(c, f, nil, err)
		return
	}

	ctx := logger.WithCall(context.Background(), f.ID)
	h.sched.Post(func() {
		h.gate.EnqueueOrRun(f.Name, func() {
			out, err := h.invoke(ctx, fn, f)
			h.metrics.Call("inbound", f.Name, err)
			if err != nil {
				logger.C(ctx).Warn().Err(err).Str("call", f.Name).Msg("inbound call failed")
			}
			h.reply(c, f, out, err)
		})
	})
}

func (h *Hub) invoke(ctx context.Context, fn dom.Handler, f dom.Frame) (out any, err error) {
	defer func() {
		if v := recover(); v != nil {
			logger.C(ctx).Error().
				Str("call", f.Name).
				Str("panic", fmt.Sprint(v)).
				Str("stack", string(debug.Stack())).
				Msg("inbound handler panicked")
			out, err = nil, perr.PanicErrf("handler %s panicked", f.Name)
		}
	}()
	return fn(ctx, f.Payload)
}

func (h *Hub) reply(c *hostConn, f dom.Frame, out any, err error) {
	if f.Type != dom.FrameCall {
		return
	}
	ok := err == nil
	r := dom.Frame{Type: dom.FrameReply, ID: f.ID, Name: f.Name, OK: &ok}
	if err != nil {
		w := perr.WireFrom(err)
		r.Message, r.Kind = w.Message, w.Kind
	} else if out != nil {
		b, mErr := json.Marshal(out)
		if mErr != nil {
			ok = false
			r.Message, r.Kind = "reply not encodable", perr.ErrorCodeJSON.String()
		} else {
			r.Payload = b
		}
	}
	if sendErr := c.enqueue(r); sendErr != nil {
		h.log.Debug().Err(sendErr).Str("call", f.Name).Msg("reply dropped")
	}
}

// Call sends an outbound call and waits for the reply or ctx
func (h *Hub) Call(ctx context.Context, name string, payload any) (dom.Reply, error) {
	rep, err := h.call(ctx, name, payload)
	h.metrics.Call("outbound", name, err)
	return rep, err
}

func (h *Hub) call(ctx context.Context, name string, payload any) (dom.Reply, error) {
	raw, err := encode(payload)
	if err != nil {
		return dom.Reply{}, err
	}
	id := uuid.NewString()
	ch := make(chan dom.Reply, 1)

	h.mu.Lock()
	c := h.host
	if c == nil {
		h.mu.Unlock()
		return dom.Reply{}, perr.Linkf("Host tidak terhubung")
	}
	h.pending[id] = pendingCall{ch: ch, owner: c}
	h.mu.Unlock()

	forget := func() {
		h.mu.Lock()
		delete(h.pending, id)
		h.mu.Unlock()
	}
	if err := c.enqueue(dom.Frame{Type: dom.FrameCall, ID: id, Name: name, Payload: raw}); err != nil {
		forget()
		return dom.Reply{}, err
	}

	select {
	case rep, ok := <-ch:
		if !ok {
			return dom.Reply{}, perr.Linkf("Koneksi host terputus")
		}
		return rep, nil
	case <-ctx.Done():
		forget()
		return dom.Reply{}, perr.Wrapf(ctx.Err(), perr.ErrorCodeLink, "Host tidak merespons %s", name)
	}
}

// Notify sends an event frame
func (h *Hub) Notify(name string, payload any) error {
	raw, err := encode(payload)
	if err == nil {
		h.mu.Lock()
		c := h.host
		h.mu.Unlock()
		if c == nil {
			err = perr.Linkf("Host tidak terhubung")
		} else {
			err = c.enqueue(dom.Frame{Type: dom.FrameEvent, Name: name, Payload: raw})
		}
	}
	h.metrics.Call("outbound", name, err)
	return err
}

// Close detaches the current host
func (h *Hub) Close() {
	h.mu.Lock()
	c := h.host
	h.mu.Unlock()
	if c != nil {
		c.close()
	}
}

func encode(payload any) (json.RawMessage, error) {
	if payload == nil {
		return nil, nil
	}
	if raw, ok := payload.(json.RawMessage); ok {
		return raw, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, perr.JSONErrf("encode payload: %v", err)
	}
	return b, nil
}

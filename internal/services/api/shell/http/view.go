package http

import (
	stdhttp "net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"jagapadi/internal/platform/logger"
	"jagapadi/internal/services/api/shell/domain"
	shelldom "jagapadi/internal/services/shell/domain"
)

// ViewConfig tunes the view stream
type ViewConfig struct {
	WriteWait time.Duration
	PongWait  time.Duration
	// Origins allowed to open the stream; empty allows same-host only
	Origins []string
}

// View streams every frame to a connected view. A slow view skips to the
// newest frame rather than queueing the ones in between
type View struct {
	cfg      ViewConfig
	shell    domain.Shell
	log      logger.Logger
	upgrader websocket.Upgrader
	clients  atomic.Int64
}

// NewView builds the stream handler
func NewView(cfg ViewConfig, s domain.Shell, log logger.Logger) *View {
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = 10 * time.Second
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = 60 * time.Second
	}
	v := &View{cfg: cfg, shell: s, log: log}
	v.upgrader = websocket.Upgrader{
		ReadBufferSize:  1 << 10,
		WriteBufferSize: 64 << 10,
		CheckOrigin:     v.checkOrigin,
	}
	return v
}

// Clients reports connected views
func (v *View) Clients() int64 { return v.clients.Load() }

// ServeHTTP upgrades and streams until the view goes away
func (v *View) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ws, err := v.upgrader.Upgrade(w, r, nil)
	if err != nil {
		v.log.Warn().Err(err).Msg("view upgrade failed")
		return
	}
	n := v.clients.Add(1)
	v.log.Info().Str("remote", r.RemoteAddr).Int64("views", n).Msg("view attached")
	defer func() {
		n := v.clients.Add(-1)
		v.log.Info().Str("remote", r.RemoteAddr).Int64("views", n).Msg("view detached")
	}()

	latest := make(chan shelldom.Frame, 1)
	done := make(chan struct{})
	offer := func(f shelldom.Frame) {
		for {
			select {
			case latest <- f:
				return
			case <-done:
				return
			default:
			}
			select {
			case <-latest:
			default:
			}
		}
	}
	cancel := v.shell.Subscribe(offer)
	defer cancel()
	offer(v.shell.Snapshot())

	go v.readPump(ws, done)
	v.writePump(ws, latest, done)
}

// readPump only watches for close and pongs; views act through the REST api
func (v *View) readPump(ws *websocket.Conn, done chan struct{}) {
	defer close(done)
	ws.SetReadLimit(4 << 10)
	_ = ws.SetReadDeadline(time.Now().Add(v.cfg.PongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(v.cfg.PongWait))
	})
	for {
		if _, _, err := ws.NextReader(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				v.log.Debug().Err(err).Msg("view read failed")
			}
			return
		}
	}
}

func (v *View) writePump(ws *websocket.Conn, latest <-chan shelldom.Frame, done <-chan struct{}) {
	ping := time.NewTicker(v.cfg.PongWait * 9 / 10)
	defer func() {
		ping.Stop()
		_ = ws.Close()
	}()
	var sent uint64
	for {
		select {
		case <-done:
			return
		case f := <-latest:
			// frames published from different goroutines may arrive out of order
			if f.Seq != 0 && f.Seq < sent {
				continue
			}
			sent = f.Seq
			_ = ws.SetWriteDeadline(time.Now().Add(v.cfg.WriteWait))
			if err := ws.WriteJSON(f); err != nil {
				v.log.Debug().Err(err).Msg("view write failed")
				return
			}
		case <-ping.C:
			_ = ws.SetWriteDeadline(time.Now().Add(v.cfg.WriteWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (v *View) checkOrigin(r *stdhttp.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range v.cfg.Origins {
		if o == "*" || o == origin {
			return true
		}
	}
	if len(v.cfg.Origins) == 0 {
		return sameHost(origin, r.Host)
	}
	return false
}

func sameHost(origin, host string) bool {
	for _, scheme := range []string{"http://", "https://"} {
		if origin == scheme+host {
			return true
		}
	}
	return false
}

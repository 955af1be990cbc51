package service

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	perr "jagapadi/internal/platform/errors"
	dom "jagapadi/internal/services/bridge/domain"
)

// hostConn is one attached host. Writes go through send so only the write
// pump touches the socket's writer
type hostConn struct {
	ws   *websocket.Conn
	peer string
	send chan []byte
	done chan struct{}
	once sync.Once
}

func newHostConn(ws *websocket.Conn, buf int, peer string) *hostConn {
	return &hostConn{ws: ws, peer: peer, send: make(chan []byte, buf), done: make(chan struct{})}
}

func (c *hostConn) enqueue(f dom.Frame) error {
	b, err := json.Marshal(f)
	if err != nil {
		return perr.JSONErrf("encode frame: %v", err)
	}
	select {
	case <-c.done:
		return perr.Linkf("Koneksi host terputus")
	default:
	}
	select {
	case c.send <- b:
		return nil
	case <-c.done:
		return perr.Linkf("Koneksi host terputus")
	default:
		return perr.Unavailablef("bridge send buffer full")
	}
}

func (c *hostConn) close() {
	c.once.Do(func() { close(c.done) })
}

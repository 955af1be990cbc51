package service

import (
	"context"
	"sync"
	"time"

	perr "jagapadi/internal/platform/errors"
	bridge "jagapadi/internal/services/bridge/domain"
	dom "jagapadi/internal/services/media/domain"
)

// BridgeDevice borrows the host's camera over the bridge
type BridgeDevice struct {
	Caller         bridge.Caller
	AcquireTimeout time.Duration // covers the host's permission prompt
	ReleaseTimeout time.Duration
}

type framePayload struct {
	Image []byte `json:"image"`
}

type sessionPayload struct {
	Session string `json:"session,omitempty"`
}

// Acquire asks the host for the camera. A refusal carries the platform error
// name in the reply kind
func (d BridgeDevice) Acquire(ctx context.Context) (dom.Handle, error) {
	if !d.Caller.Connected() {
		return nil, MapAccessError(string(dom.AccessUnsupported), "")
	}
	wait := d.AcquireTimeout
	if wait <= 0 {
		wait = 30 * time.Second
	}
	actx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	rep, err := d.Caller.Call(actx, bridge.AcquireCamera, nil)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeMediaAccess, msgCameraGeneric)
	}
	if !rep.OK {
		return nil, MapAccessError(rep.Kind, rep.Message)
	}
	var sp sessionPayload
	if len(rep.Payload) > 0 {
		_ = rep.Decode(&sp)
	}
	timeout := d.ReleaseTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &bridgeHandle{caller: d.Caller, session: sp.Session, timeout: timeout}, nil
}

type bridgeHandle struct {
	caller  bridge.Caller
	session string
	timeout time.Duration
	once    sync.Once
}

func (h *bridgeHandle) Snapshot(ctx context.Context) ([]byte, error) {
	rep, err := h.caller.Call(ctx, bridge.CaptureFrame, sessionPayload{Session: h.session})
	if err != nil {
		return nil, err
	}
	if !rep.OK {
		return nil, perr.New(perr.ErrorCodeMediaAccess, orDefault(rep.Message, MsgCaptureFailed))
	}
	var fp framePayload
	if err := rep.Decode(&fp); err != nil {
		return nil, err
	}
	return fp.Image, nil
}

// Release is idempotent; the host may already be gone
func (h *bridgeHandle) Release() error {
	var err error
	h.once.Do(func() {
		if !h.caller.Connected() {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
		defer cancel()
		_, err = h.caller.Call(ctx, bridge.ReleaseCamera, sessionPayload{Session: h.session})
	})
	return err
}

func orDefault(msg, def string) string {
	if msg == "" {
		return def
	}
	return msg
}

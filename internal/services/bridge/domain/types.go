// Package domain defines the host bridge wire format and ports.
//
// The host is the native process that owns the backend connection and the
// camera. It talks to the shell over one websocket using three frame types:
// calls expect a reply with the same id, replies answer calls, and events are
// fire and forget.
package domain

import (
	"context"
	"encoding/json"

	perr "jagapadi/internal/platform/errors"
)

// FrameType discriminates frames
type FrameType string

const (
	FrameCall  FrameType = "call"
	FrameReply FrameType = "reply"
	FrameEvent FrameType = "event"
)

// Frame is the single envelope used in both directions
type Frame struct {
	Type    FrameType       `json:"type"`
	ID      string          `json:"id,omitempty"`
	Name    string          `json:"name,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	OK      *bool           `json:"ok,omitempty"`
	Message string          `json:"message,omitempty"`
	Kind    string          `json:"kind,omitempty"` // error kind on failed replies
}

// Reply is what an outbound call resolves to
type Reply struct {
	OK      bool
	Message string
	Kind    string
	Payload json.RawMessage
}

// Decode unmarshals the reply payload into v
func (r Reply) Decode(v any) error {
	if len(r.Payload) == 0 {
		return perr.JSONErrf("reply has no payload")
	}
	if err := json.Unmarshal(r.Payload, v); err != nil {
		return perr.JSONErrf("invalid reply payload: %v", err)
	}
	return nil
}

// Handler serves one inbound call. The result becomes the reply payload;
// an error becomes a failed reply carrying the error's message
type Handler func(ctx context.Context, payload json.RawMessage) (any, error)

// Outbound call names, shell to host
const (
	EstablishLink = "establishLink"
	SeverLink     = "severLink"
	SubmitImage   = "submitImage"
	FrontendReady = "frontendReady"
	AcquireCamera = "acquireCamera"
	CaptureFrame  = "captureFrame"
	ReleaseCamera = "releaseCamera"
)

// Inbound call names, host to shell
const (
	DeliverResult    = "deliverResult"
	LoadHistory      = "loadHistory"
	AddHistoryRecord = "addHistoryRecord"
	ClearHistory     = "clearHistory"
	StatusMessage    = "statusMessage"
	ConnectionLost   = "connectionLost"
)

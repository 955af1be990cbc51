// Package domain defines the backend link states and ports.
//
// The link is the credential-gated connection from the shell to the remote
// detection service. The host owns the actual socket; the shell only asks it
// to establish or sever and tracks the outcome.
package domain

import (
	"context"
	"strings"

	perr "jagapadi/internal/platform/errors"
	bridge "jagapadi/internal/services/bridge/domain"
)

// State of the backend link
type State uint8

const (
	Disconnected State = iota
	Connecting
	Connected
)

var stateNames = [...]string{"disconnected", "connecting", "connected"}

// String returns the wire name
func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Text is the indicator label shown next to the connect button
func (s State) Text() string {
	switch s {
	case Connected:
		return "Terhubung"
	case Connecting:
		return "Menghubungkan..."
	default:
		return "Tidak Terhubung"
	}
}

// MarshalText implements encoding.TextMarshaler
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler
func (s *State) UnmarshalText(b []byte) error {
	v, err := ParseState(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseState is the inverse of String
func ParseState(s string) (State, error) {
	for i, n := range stateNames {
		if strings.EqualFold(n, strings.TrimSpace(s)) {
			return State(i), nil
		}
	}
	return Disconnected, perr.InvalidArgf("unknown link state %q", s)
}

// EstablishPayload is sent with establishLink
type EstablishPayload struct {
	Password string `json:"password"`
}

// SubmitPayload is sent with submitImage; Image is base64 on the wire
type SubmitPayload struct {
	Filename string `json:"filename"`
	MIME     string `json:"mime,omitempty"`
	Image    []byte `json:"image"`
}

// Port is the link surface the shell and the orchestrator use
type Port interface {
	State() State
	Connected() bool

	// Establish returns the backend's success message
	Establish(ctx context.Context, password string) (string, error)
	// Sever never fails; the link always ends disconnected
	Sever(ctx context.Context) string
	// Submit returns the host's reply; a false reply is a LinkError
	Submit(ctx context.Context, p SubmitPayload) (bridge.Reply, error)
	// FrontendReady tells the host boot has completed
	FrontendReady() error

	// MarkLost drops to disconnected without talking to the host
	MarkLost(reason string)
	Observe(fn func(State)) (cancel func())
}

package domain

import "context"

// Caller is the outbound half of the bridge
type Caller interface {
	// Call sends name and waits for the host's reply. A missing host or an
	// expired ctx is a LinkError; a reply with ok=false is not an error here
	Call(ctx context.Context, name string, payload any) (Reply, error)
	// Notify sends an event without waiting
	Notify(name string, payload any) error
	// Connected reports whether a host is attached
	Connected() bool
}

// Registrar is the inbound half
type Registrar interface {
	Register(name string, h Handler)
}

// Port is the whole bridge
type Port interface {
	Caller
	Registrar
	OnConnect(fn func())
	OnDisconnect(fn func())
}

package httpkit

import (
	"net/http"

	perr "jagapadi/internal/platform/errors"
	pnet "jagapadi/internal/platform/net"
)

// Peer returns the authenticated bridge peer from the request context
func Peer(r *http.Request) (string, error) {
	p := pnet.Peer(r.Context())
	if p == "" {
		return "", perr.Unauthorizedf("missing bridge token")
	}
	return p, nil
}

// MustPeer returns the peer or panics
// only use on routes mounted with Protected
func MustPeer(r *http.Request) string {
	p, err := Peer(r)
	if err != nil {
		panic(err)
	}
	return p
}

// Session returns the shell session id stamped by the Session middleware
func Session(r *http.Request) string { return pnet.SessionID(r.Context()) }

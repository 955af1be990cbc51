package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	pnet "jagapadi/internal/platform/net"
	perr "jagapadi/internal/platform/errors"
)

// AuthPort authenticates the host process connecting to the shell
type AuthPort interface {
	// Parse returns the peer name for the request or an error
	Parse(r *http.Request) (peer string, err error)
}

// BearerToken is an AuthPort comparing the Authorization bearer token (or the
// token query parameter, for websocket clients that cannot set headers) to a
// shared secret. An empty secret accepts everyone as peer "host"
type BearerToken struct {
	Secret string
	Peer   string
}

// Parse implements AuthPort
func (b BearerToken) Parse(r *http.Request) (string, error) {
	peer := b.Peer
	if peer == "" {
		peer = "host"
	}
	if b.Secret == "" {
		return peer, nil
	}
	tok := ""
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		tok = strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if tok == "" {
		tok = r.URL.Query().Get("token")
	}
	if tok == "" {
		return "", perr.Unauthorizedf("missing bridge token")
	}
	if subtle.ConstantTimeCompare([]byte(tok), []byte(b.Secret)) != 1 {
		return "", perr.Unauthorizedf("invalid bridge token")
	}
	return peer, nil
}

// Auth rejects requests the port cannot authenticate. A nil port passes everything through
func Auth(p AuthPort, write func(w http.ResponseWriter, status int, body any)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if p == nil {
				next.ServeHTTP(w, r)
				return
			}
			peer, err := p.Parse(r)
			if err != nil {
				status, body := pnet.Error(err, pnet.RequestID(r.Context()))
				write(w, status, body)
				return
			}
			next.ServeHTTP(w, r.WithContext(pnet.WithPeer(r.Context(), peer)))
		})
	}
}

package httpkit

import (
	"compress/flate"
	"net/http"
	"time"

	"jagapadi/internal/platform/metrics"
	phttp "jagapadi/internal/platform/net/http"
	"jagapadi/internal/platform/net/middleware"
)

// StackOptions tunes CommonStack
type StackOptions struct {
	SessionID string
	Slow      time.Duration
	Metrics   *metrics.HTTP
	CORS      middleware.CORSOptions
}

// CommonStack returns the baseline middleware for the JSON api
// websocket routes mount outside it because Timeout and Compress break upgrades
func CommonStack(o StackOptions) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		// tracing / correlation
		middleware.RequestID(),
		middleware.RealIP(),
		middleware.Session(o.SessionID),

		// safety
		middleware.RecoverJSON,

		// the view polls live state
		middleware.NoCache(),

		// observability
		middleware.AccessLogZerolog(middleware.AccessLogOptions{Slow: o.Slow, Observe: o.Metrics.Observe}),

		middleware.CORS(o.CORS),
		middleware.Compress(flate.BestSpeed),
		middleware.Timeout(30 * time.Second),
	}
}

// Auth wires the auth middleware to the platform JSON writer
func Auth(p middleware.AuthPort) func(http.Handler) http.Handler {
	return middleware.Auth(p, phttp.JSON)
}

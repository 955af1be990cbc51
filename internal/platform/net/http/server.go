package http

import (
	"context"
	"errors"
	"net"
	stdhttp "net/http"
	"sync"
	"time"

	"jagapadi/internal/platform/config"
	"jagapadi/internal/platform/logger"

	"github.com/go-chi/chi/v5"
)

// Server is a thin wrapper over chi + stdlib http.Server
// the shell listens on loopback by default since the view and host live on the same machine
type Server struct {
	addr     string
	mux      *chi.Mux
	srv      *stdhttp.Server
	grace    time.Duration
	mu       sync.Mutex
	boundTo  string
	listenFn func(network, addr string) (net.Listener, error)
}

// NewServer creates a server configured from cfg (expects the CORE_HTTP_ scope)
// opts receive the *chi.Mux so callers can mount routes/mw
func NewServer(cfg config.Conf, opts ...func(*chi.Mux)) *Server {
	addr := cfg.MayString("ADDR", "127.0.0.1:8765")
	m := chi.NewRouter()
	for _, o := range opts {
		o(m)
	}
	return &Server{
		addr:  addr,
		mux:   m,
		grace: cfg.MayDuration("SHUTDOWN_GRACE", 5*time.Second),
		srv: &stdhttp.Server{
			Addr:              addr,
			Handler:           m,
			ReadHeaderTimeout: cfg.MayDuration("READ_HEADER_TIMEOUT", 10*time.Second),
		},
		listenFn: net.Listen,
	}
}

// Router returns a Router facade over the internal chi mux
func (s *Server) Router() Router {
	return AdaptChi(s.mux)
}

// Addr returns the configured listening address
func (s *Server) Addr() string { return s.addr }

// BoundAddr returns the address actually bound once Run is listening, empty before
func (s *Server) BoundAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.boundTo
}

// Run listens and serves until ctx is cancelled, then shuts down within the grace period
func (s *Server) Run(ctx context.Context) error {
	log := logger.Named("http")
	ln, err := s.listenFn("tcp", s.addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.boundTo = ln.Addr().String()
	s.mu.Unlock()
	log.Info().Str("addr", ln.Addr().String()).Msg("http listening")

	errc := make(chan error, 1)
	go func() { errc <- s.srv.Serve(ln) }()

	select {
	case err := <-errc:
		if errors.Is(err, stdhttp.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), s.grace)
		defer cancel()
		if err := s.Shutdown(sctx); err != nil {
			log.Warn().Err(err).Msg("http shutdown")
		}
		<-errc
		return nil
	}
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

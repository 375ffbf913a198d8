package infra

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// HTTPServer runs the service until its context ends, then drains in-flight
// requests.
type HTTPServer struct {
	server      *http.Server
	logger      zerolog.Logger
	drainWindow time.Duration
}

// NewHTTPServer creates a server for cfg. In-flight transforms get one task
// timeout plus a small margin to finish on shutdown.
func NewHTTPServer(cfg *Config, handler http.Handler, logger Logger) *HTTPServer {
	httpLogger := logger.With().Str("component", "http").Logger()
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ErrorLog:          log.New(httpLogger, "", 0),
	}
	return &HTTPServer{server: srv, logger: httpLogger, drainWindow: cfg.TaskTimeout + 5*time.Second}
}

// Run listens on the configured address and serves until ctx is done.
func (s *HTTPServer) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done. A clean shutdown
// returns nil.
func (s *HTTPServer) Serve(ctx context.Context, ln net.Listener) error {
	s.server.BaseContext = func(net.Listener) context.Context { return context.WithoutCancel(ctx) }

	errc := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", ln.Addr().String()).Msg("listening")
		errc <- s.server.Serve(ln)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), s.drainWindow)
	defer cancel()
	if err := s.server.Shutdown(drainCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info().Msg("stopped")
	return nil
}

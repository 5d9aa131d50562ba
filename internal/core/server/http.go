package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// OpsServer serves /healthz and /metrics.
type OpsServer struct {
	srv *http.Server
	log zerolog.Logger
}

// NewOpsRouter builds the ops routes. check may be nil.
func NewOpsRouter(metrics http.Handler, check HealthCheck) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				http.Error(w, "unhealthy: "+err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", metrics)
	return r
}

// NewOpsServer creates the ops HTTP server on addr.
func NewOpsServer(addr string, metrics http.Handler, check HealthCheck, logger zerolog.Logger) *OpsServer {
	return &OpsServer{
		srv: &http.Server{
			Addr:              addr,
			Handler:           NewOpsRouter(metrics, check),
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: logger.With().Str("component", "ops").Logger(),
	}
}

// Start listens and serves until Shutdown is called.
func (s *OpsServer) Start() error {
	listener, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", s.srv.Addr, err)
	}
	s.log.Info().Str("addr", listener.Addr().String()).Msg("serving ops endpoints")
	if err := s.srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *OpsServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

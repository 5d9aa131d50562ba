// Package server provides gRPC and ops HTTP server lifecycle management.
package server

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/solatis/smartlist/internal/core/api"
	"github.com/solatis/smartlist/internal/core/auth"
	"github.com/solatis/smartlist/internal/core/config"
)

// shutdownTimeout bounds graceful shutdown before a forced stop.
const shutdownTimeout = 30 * time.Second

// GRPCServer manages gRPC server lifecycle.
type GRPCServer struct {
	server *grpc.Server
	health *health.Server
	config config.ServerConfig
	log    zerolog.Logger
}

// NewGRPCServer creates gRPC server with interceptors and service registration.
// Interceptor order: logging, request timeout, authentication.
func NewGRPCServer(cfg config.ServerConfig, service api.SmartPlaylistsServer, authenticator *auth.Authenticator, logger zerolog.Logger) (*GRPCServer, error) {
	if service == nil {
		return nil, fmt.Errorf("service cannot be nil")
	}
	if authenticator == nil {
		return nil, fmt.Errorf("authenticator cannot be nil")
	}
	logger = logger.With().Str("component", "grpc").Logger()

	server := grpc.NewServer(grpc.ChainUnaryInterceptor(
		LoggingInterceptor(logger),
		TimeoutInterceptor(cfg.RequestTimeout),
		authenticator.UnaryInterceptor(),
	))
	api.Register(server, service)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(server, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(api.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	return &GRPCServer{
		server: server,
		health: healthServer,
		config: cfg,
		log:    logger,
	}, nil
}

// Start binds the configured address and serves until Shutdown is called.
func (s *GRPCServer) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.Addr())
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", s.config.Addr(), err)
	}
	return s.Serve(listener)
}

// Serve serves gRPC requests on an existing listener.
func (s *GRPCServer) Serve(listener net.Listener) error {
	s.log.Info().Str("addr", listener.Addr().String()).Msg("serving gRPC")
	return s.server.Serve(listener)
}

// Shutdown marks the server not serving and stops it gracefully, forcing a
// stop when ctx ends or the timeout passes.
func (s *GRPCServer) Shutdown(ctx context.Context) error {
	s.health.Shutdown()

	stopped := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
		return nil
	case <-ctx.Done():
		s.server.Stop()
		return fmt.Errorf("shutdown cancelled by context: %w", ctx.Err())
	case <-time.After(shutdownTimeout):
		s.server.Stop()
		return fmt.Errorf("graceful shutdown timeout, forced stop")
	}
}

// LoggingInterceptor logs every unary call with its status code and latency.
func LoggingInterceptor(logger zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		code := status.Code(err)
		ev := logger.Info()
		if err != nil {
			ev = logger.Warn().Err(err)
		}
		ev.Str("method", info.FullMethod).
			Str("code", code.String()).
			Dur("elapsed", time.Since(start)).
			Msg("rpc")
		return resp, err
	}
}

// TimeoutInterceptor bounds every call by d; d <= 0 disables the bound.
func TimeoutInterceptor(d time.Duration) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if d <= 0 {
			return handler(ctx, req)
		}
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return handler(ctx, req)
	}
}

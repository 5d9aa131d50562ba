package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/solatis/smartlist/internal/core/api"
	"github.com/solatis/smartlist/internal/core/auth"
	"github.com/solatis/smartlist/internal/core/config"
	"github.com/solatis/smartlist/internal/core/server"
	"github.com/solatis/smartlist/internal/library"
	"github.com/solatis/smartlist/internal/metrics"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gRPC playlist service and the ops HTTP endpoints",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("host", "0.0.0.0", "gRPC server host")
	serveCmd.Flags().Int("port", 50061, "gRPC server port")
	serveCmd.Flags().String("ops-addr", ":9464", "ops HTTP address for /healthz and /metrics")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	secrets, err := config.HMACSecrets()
	if err != nil {
		return fmt.Errorf("failed to load HMAC secrets: %w", err)
	}
	if len(secrets) == 0 {
		return fmt.Errorf("no HMAC secrets configured (set %s_HMAC_SECRET environment variable)", config.EnvPrefix)
	}

	m := metrics.New()
	s, err := openSession(m)
	if err != nil {
		return err
	}
	defer s.Close()

	authenticator := auth.NewAuthenticator(secrets, s.queries)

	service, err := api.NewService(s.index, api.FileLoader(cfg.Library.PlaylistsPath), cfg.Server.MaxResults, m, logger)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	grpcServer, err := server.NewGRPCServer(cfg.Server, service, authenticator, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	ops := server.NewOpsServer(cfg.Ops.Addr, m.Handler(), func(ctx context.Context) error {
		return s.conn.PingContext(ctx)
	}, logger)

	var watcher *library.Watcher
	if cfg.Watch.Enabled {
		watcher, err = library.NewWatcher(s.index, cfg.Watch.Debounce, logger)
		if err != nil {
			return err
		}
		defer watcher.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 3)
	go func() { errChan <- grpcServer.Start(ctx) }()
	go func() { errChan <- ops.Start() }()
	if watcher != nil {
		go func() { errChan <- watcher.Run(ctx) }()
	}

	logger.Info().
		Str("version", Version).
		Str("grpc", cfg.Server.Addr()).
		Str("ops", cfg.Ops.Addr).
		Bool("watch", cfg.Watch.Enabled).
		Msg("smartlist started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case runErr = <-errChan:
	case <-sigChan:
		logger.Info().Msg("shutting down gracefully")
	}
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 30*time.Second)
	defer stop()
	if err := ops.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("ops shutdown")
	}
	if err := grpcServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("grpc shutdown")
	}
	return runErr
}

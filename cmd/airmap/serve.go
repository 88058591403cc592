package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Sternrassler/inpost-airmap/pkg/job"
	"github.com/Sternrassler/inpost-airmap/pkg/logging"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve map generation over HTTP",
		Long: `Serve starts an HTTP server. Every GET or POST to /generate runs one map
generation and answers with its status envelope.

Endpoints:
  /generate  run the job (one at a time, 409 while busy)
  /health    liveness
  /ready     readiness (pings Redis when configured)
  /status    last recorded run and recent history
  /metrics   Prometheus metrics`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().String("addr", "", "Listen address (overrides server.addr)")

	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	d, err := buildDeps(cfg)
	if err != nil {
		return err
	}
	defer d.Close()

	srv := &server{
		runner: d.job,
		status: d.status,
		envelope: func(result *job.Result, err error) job.Envelope {
			return envelopeFor(cfg, result, err)
		},
		logger: logging.NewLogger("server"),
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, httpServer, srv, cfg.Server.ShutdownTimeout)
}

// serve runs the HTTP server until ctx is cancelled, then shuts it down.
func serve(ctx context.Context, httpServer *http.Server, srv *server, shutdownTimeout time.Duration) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		srv.logger.Info().Str("addr", httpServer.Addr).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		srv.logger.Info().Dur("timeout", shutdownTimeout).Msg("Shutting down HTTP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		srv.logger.Info().Msg("HTTP server stopped gracefully")
		return nil
	})

	return g.Wait()
}

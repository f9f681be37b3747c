package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httpserver "github.com/fyrsmithlabs/pharmadd/internal/http"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API.

Endpoints:
  GET  /health
  GET  /metrics
  POST /api/v1/reports
  POST /api/v1/chat
  GET  /api/v1/namespaces
  GET  /api/v1/namespaces/:subject
  GET  /api/v1/namespaces/:namespace/passages`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

// runServe starts the HTTP server and blocks until ctx is cancelled.
func runServe(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		_ = a.Close(closeCtx)
	}()
	logger := a.logger.Underlying()

	srv, err := httpserver.NewServer(httpserver.Deps{
		Reports:  a.builder,
		Passages: a.retriever,
		Store:    a.store,
	}, logger, &httpserver.Config{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		RequestTimeout: cfg.Server.RequestTimeout.Duration(),
		Version:        version,
	})
	if err != nil {
		return fmt.Errorf("creating http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received", zap.Duration("timeout", cfg.Server.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}

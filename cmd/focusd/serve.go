package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/focusfuel/internal/config"
	httpserver "github.com/fyrsmithlabs/focusfuel/internal/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API for the browser extension",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runServe(ctx, cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// runServe starts the daemon and blocks until ctx is cancelled, then shuts
// down gracefully within cfg.Server.ShutdownTimeout.
func runServe(ctx context.Context, cfg *config.Config) (err error) {
	a, err := newApp(ctx, cfg, appOptions{tracking: true})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout.Duration())
		defer cancel()
		err = errors.Join(err, a.close(shutdownCtx))
	}()

	a.logger.Info(ctx, "starting focusd",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.Duration("min_dwell", cfg.Tracking.MinDwell.Duration()),
		zap.Duration("sweep_interval", cfg.Tracking.SweepInterval.Duration()))

	a.start(ctx)
	return serveHTTP(ctx, a)
}

// serveHTTP runs the HTTP API until ctx is cancelled.
func serveHTTP(ctx context.Context, a *app) error {
	srv, err := httpserver.NewServer(httpserver.Deps{
		Tracker:  a.registry,
		Lists:    a.lists,
		Events:   a.events,
		Notifier: a.dispatcher,
	}, a.logger.Underlying().Named("http"), &httpserver.Config{
		Host:    a.cfg.Server.Host,
		Port:    a.cfg.Server.Port,
		Version: version,
	})
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
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
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Server.ShutdownTimeout.Duration())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown failed: %w", err)
	}
	a.logger.Info(ctx, "http server stopped")
	return nil
}

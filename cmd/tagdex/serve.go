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
	"go.uber.org/zap"

	chiTransport "github.com/kailas-cloud/tagdex/internal/transport/chi"
	integrityuc "github.com/kailas-cloud/tagdex/internal/usecase/integrity"
	"github.com/kailas-cloud/tagdex/internal/version"
)

func newServeCmd() *cobra.Command {
	var provision bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, provision)
		},
	}
	cmd.Flags().BoolVar(&provision, "provision", false, "drop and recreate all collections before serving (destroys data)")
	return cmd
}

func runServe(cmd *cobra.Command, provision bool) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()
	logger := a.logger

	logger.Info("Starting tagdex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", a.env),
		zap.Int("http_port", a.cfg.HTTP.Port),
	)

	ctx := cmd.Context()
	if err := a.waitForStore(ctx); err != nil {
		return err
	}

	if provision {
		if err := a.schema.ProvisionAll(ctx); err != nil {
			return fmt.Errorf("provision collections: %w", err)
		}
	} else if err := a.schema.EnsureAll(ctx); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}

	var sched *integrityuc.Scheduler
	if schedule := a.cfg.Integrity.Schedule; schedule != "" {
		sched = integrityuc.NewScheduler(a.integrity, logger.Named("integrity"),
			time.Duration(a.cfg.Integrity.TimeoutSec)*time.Second)
		if err := sched.Start(schedule); err != nil {
			return err
		}
	}

	server := chiTransport.NewServer(a.tagging, a.query, a.health, logger)

	addr := fmt.Sprintf(":%d", a.cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      chiTransport.NewRouter(server, a.cfg.Auth.APIKeys),
		ReadTimeout:  time.Duration(a.cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(a.cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-quit:
		logger.Info("Received shutdown signal")
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(a.cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	if sched != nil {
		sched.Stop(shutdownCtx)
	}

	logger.Info("Server stopped gracefully")
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	httpAdapter "github.com/iho/bankledger/internal/adapter/http"
	"github.com/iho/bankledger/internal/adapter/http/handler"
)

func (c *cli) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the ops HTTP server and the outbox publisher",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, serve)
		},
	}
}

func serve(ctx context.Context, a *app) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	router := httpAdapter.NewOpsRouter(httpAdapter.OpsRouterConfig{
		HealthHandler:         handler.NewHealthHandler(a.checks),
		ReconciliationHandler: handler.NewReconciliationHandler(a.reconciliation),
		Metrics:               a.metrics,
		Gatherer:              a.registry,
		Logger:                a.logger,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", a.cfg.OpsPort),
		Handler:      router,
		ReadTimeout:  a.cfg.HTTPReadTimeout,
		WriteTimeout: a.cfg.HTTPWriteTimeout,
		IdleTimeout:  a.cfg.HTTPIdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		a.logger.Info().Str("port", a.cfg.OpsPort).Msg("starting ops server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	publisherDone := make(chan struct{})
	if a.cfg.OutboxEnabled {
		go func() {
			defer close(publisherDone)
			_ = a.eventPublisher().Start(ctx)
		}()
	} else {
		close(publisherDone)
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info().Msg("shutting down")
	case runErr = <-serverErr:
		a.logger.Error().Err(runErr).Msg("ops server failed")
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("ops server forced to shutdown")
	}
	<-publisherDone

	a.logger.Info().Msg("stopped")
	return runErr
}

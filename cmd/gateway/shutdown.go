package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vyrodovalexey/avaxform/internal/observability"
)

const shutdownTimeout = 30 * time.Second

// runGateway starts the rule watcher and the HTTP server and blocks until
// a shutdown signal arrives or the server fails.
func runGateway(app *application, logger observability.Logger) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if app.rules != nil && app.config.Rules.Watch {
		if err := app.rules.Start(ctx); err != nil {
			logger.Warn("failed to start rule watcher", observability.Error(err))
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.server.Start(ctx)
	}()

	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case err := <-errCh:
		if err != nil {
			logger.Error("HTTP server failed", observability.Error(err))
		}
	}

	if err := shutdown(app, logger); err != nil {
		_ = logger.Sync()
		os.Exit(1)
	}
}

// shutdown stops the components in reverse start order.
func shutdown(app *application, logger observability.Logger) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if app.rules != nil {
		if err := app.rules.Stop(); err != nil {
			logger.Error("failed to stop rule watcher", observability.Error(err))
			errs = append(errs, err)
		}
	}

	if err := app.server.Stop(shutdownCtx); err != nil {
		logger.Error("failed to stop HTTP server gracefully", observability.Error(err))
		errs = append(errs, err)
	}

	if err := app.tracer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown tracer", observability.Error(err))
		errs = append(errs, err)
	}

	logger.Info("gateway stopped")
	return errors.Join(errs...)
}

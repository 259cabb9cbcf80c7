package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/sevigo/diffwarden/internal/wire"
)

func main() {
	if err := run(); err != nil {
		slog.Error("diffwarden server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, cleanup, err := wire.InitializeApp(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer cleanup()

	cfg := app.Config()
	slog.Info("serving diff reviews",
		"provider", cfg.Provider.DisplayName(),
		"port", cfg.Server.Port,
		"sse", "/api/v1/reviews/{id}/events")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := app.Start(); err != nil {
			return fmt.Errorf("review server stopped: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down, cancelling open review streams")
		// API reviews derive from ctx; stop them before draining connections.
		stop()
		return app.Stop()
	})
	return g.Wait()
}

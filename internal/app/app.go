// Package app holds the top-level components of the DiffWarden binaries.
package app

import (
	"log/slog"

	"github.com/sevigo/diffwarden/internal/config"
	"github.com/sevigo/diffwarden/internal/gitutil"
	"github.com/sevigo/diffwarden/internal/jobs"
	"github.com/sevigo/diffwarden/internal/render"
	"github.com/sevigo/diffwarden/internal/review"
	"github.com/sevigo/diffwarden/internal/server"
	"github.com/sevigo/diffwarden/internal/storage"
)

// App is the review server.
type App struct {
	cfg        *config.Config
	server     *server.Server
	dispatcher *jobs.Dispatcher
	logger     *slog.Logger
}

// NewApp assembles the server. dispatcher is nil when no GitHub App is
// configured.
func NewApp(cfg *config.Config, srv *server.Server, dispatcher *jobs.Dispatcher, logger *slog.Logger) (*App, error) {
	if err := cfg.ValidateForServer(); err != nil {
		return nil, err
	}
	logger.Info("DiffWarden server initialized",
		"provider", cfg.Provider.DisplayName(),
		"model", cfg.Model(),
		"webhooks", dispatcher != nil,
		"history_db", cfg.Database.Enabled())
	return &App{cfg: cfg, server: srv, dispatcher: dispatcher, logger: logger}, nil
}

func (a *App) Config() *config.Config {
	return a.cfg
}

// Start runs the HTTP server and blocks until it stops.
func (a *App) Start() error {
	a.logger.Info("starting DiffWarden", "server_port", a.cfg.Server.Port, "max_workers", a.cfg.Server.MaxWorkers)

	if err := a.server.Start(); err != nil {
		a.logger.Error("failed to start HTTP server", "error", err)
		return err
	}
	return nil
}

// Stop shuts down the server first so no new jobs arrive, then lets queued
// review jobs finish.
func (a *App) Stop() error {
	a.logger.Info("shutting down DiffWarden services")

	serverErr := a.server.Stop()
	if serverErr != nil {
		a.logger.Error("error during HTTP server shutdown", "error", serverErr)
	}

	if a.dispatcher != nil {
		a.dispatcher.Stop()
	}

	if serverErr != nil {
		return serverErr
	}
	a.logger.Info("DiffWarden stopped")
	return nil
}

// Reviewer is what the interactive front ends need to review local changes.
type Reviewer struct {
	Config   *config.Config
	Reviews  *review.Service
	Registry *render.Registry
	Git      *gitutil.Client
	Store    storage.Store
	Logger   *slog.Logger
}

func NewReviewer(cfg *config.Config, reviews *review.Service, registry *render.Registry, git *gitutil.Client, store storage.Store, logger *slog.Logger) *Reviewer {
	return &Reviewer{
		Config:   cfg,
		Reviews:  reviews,
		Registry: registry,
		Git:      git,
		Store:    store,
		Logger:   logger,
	}
}

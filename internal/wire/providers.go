package wire

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/wire"

	"github.com/sevigo/diffwarden/internal/app"
	"github.com/sevigo/diffwarden/internal/config"
	"github.com/sevigo/diffwarden/internal/core"
	"github.com/sevigo/diffwarden/internal/db"
	"github.com/sevigo/diffwarden/internal/github"
	"github.com/sevigo/diffwarden/internal/gitutil"
	"github.com/sevigo/diffwarden/internal/jobs"
	"github.com/sevigo/diffwarden/internal/llm"
	"github.com/sevigo/diffwarden/internal/logger"
	"github.com/sevigo/diffwarden/internal/render"
	"github.com/sevigo/diffwarden/internal/review"
	"github.com/sevigo/diffwarden/internal/server"
	"github.com/sevigo/diffwarden/internal/storage"
	"github.com/sevigo/diffwarden/internal/stream"
)

const memoryHistorySize = 100

// CoreSet provides the review service and its dependencies.
var CoreSet = wire.NewSet(
	config.LoadConfig,
	llm.NewPromptManager,
	review.NewService,
	provideLogger,
	provideDBConfig,
	provideStore,
	provideHTTPClient,
	provideProviderFactory,
	provideRegistry,
)

// ServerSet adds the HTTP server and the webhook job pipeline.
var ServerSet = wire.NewSet(
	CoreSet,
	app.NewApp,
	server.NewServer,
	server.NewRouter,
	provideClientFactory,
	provideDispatcher,
	provideJobDispatcher,
)

// ReviewerSet adds local git access for the CLI and terminal front ends.
var ReviewerSet = wire.NewSet(
	CoreSet,
	app.NewReviewer,
	gitutil.NewClient,
)

func provideLogger(cfg *config.Config) *slog.Logger {
	return logger.NewLogger(cfg.Logging, nil)
}

func provideDBConfig(cfg *config.Config) *config.DBConfig {
	return &cfg.Database
}

// provideStore connects to the history database, or keeps history in memory
// when none is configured.
func provideStore(cfg *config.DBConfig, logger *slog.Logger) (storage.Store, func(), error) {
	if !cfg.Enabled() {
		logger.Debug("no history database configured, keeping review history in memory")
		return storage.NewMemoryStore(memoryHistorySize), func() {}, nil
	}

	conn, cleanup, err := db.NewDatabase(cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := conn.RunMigrations(); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to run database migrations: %w", err)
	}
	return storage.NewStore(conn.DB), cleanup, nil
}

// provideHTTPClient has no overall timeout: a review streams for as long as
// the backend keeps sending. Cancellation comes from the request context.
func provideHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			MaxConnsPerHost:       10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 2 * time.Minute,
		},
	}
}

func provideProviderFactory(client *http.Client, logger *slog.Logger) review.ProviderFactory {
	return func(cfg *config.Config) (stream.StreamingProvider, error) {
		return stream.New(cfg, client, logger)
	}
}

func provideRegistry(logger *slog.Logger) *render.Registry {
	return render.NewRegistry(render.DefaultSessionTTL, logger)
}

// provideClientFactory returns nil when no GitHub App is configured.
func provideClientFactory(cfg *config.Config, logger *slog.Logger) (github.ClientFactory, error) {
	if cfg.GitHub.AppID == 0 {
		return nil, nil
	}
	return github.NewInstallationClientFactory(cfg.GitHub, logger)
}

func provideDispatcher(cfg *config.Config, reviews *review.Service, registry *render.Registry, clients github.ClientFactory, store storage.Store, logger *slog.Logger) *jobs.Dispatcher {
	if clients == nil {
		logger.Info("github.app_id not set, webhook reviews are disabled")
		return nil
	}
	job := jobs.NewReviewJob(reviews, registry, clients, store, logger)
	return jobs.NewDispatcher(job, cfg.Server.MaxWorkers, logger)
}

// provideJobDispatcher avoids handing the router a typed nil.
func provideJobDispatcher(d *jobs.Dispatcher) core.JobDispatcher {
	if d == nil {
		return nil
	}
	return d
}

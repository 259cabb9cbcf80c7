package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v73/github"

	"github.com/sevigo/diffwarden/internal/config"
)

// ClientFactory returns a client for one GitHub App installation.
type ClientFactory func(ctx context.Context, installationID int64) (Client, error)

// NewInstallationClientFactory reads the App's private key once and returns a
// factory of installation-scoped clients. Tokens are minted and refreshed by
// the ghinstallation transport.
func NewInstallationClientFactory(cfg config.GitHubConfig, logger *slog.Logger) (ClientFactory, error) {
	privateKey, err := os.ReadFile(cfg.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key from %s: %w", cfg.PrivateKeyPath, err)
	}

	return func(_ context.Context, installationID int64) (Client, error) {
		logger.Info("creating GitHub installation client", "installation_id", installationID)

		transport, err := ghinstallation.New(http.DefaultTransport, cfg.AppID, installationID, privateKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create installation transport for installation ID %d: %w", installationID, err)
		}
		return NewGitHubClient(github.NewClient(&http.Client{Transport: transport}), logger), nil
	}, nil
}

package app

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/diffwarden/internal/config"
	"github.com/sevigo/diffwarden/internal/logger"
)

func TestNewApp(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{
		Provider:       config.ProviderOpenAI,
		ModelMaxTokens: 4096,
		Server:         config.ServerConfig{Port: "9090"},
		Logging:        logger.Config{Level: "info"},
	}

	a, err := NewApp(cfg, nil, nil, log)
	require.NoError(t, err)
	assert.Same(t, cfg, a.Config())

	cfg.GitHub.AppID = 42
	_, err = NewApp(cfg, nil, nil, log)
	assert.ErrorContains(t, err, "github.webhook_secret must be set")
}

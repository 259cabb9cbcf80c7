// Package stream sends a review request to an LLM backend and turns the
// streamed response into an ordered sequence of text fragments.
package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"

	"github.com/sevigo/diffwarden/internal/config"
)

// maxErrorBody bounds how much of a failed response is kept for the error.
const maxErrorBody = 4 << 10

// Request is one review request.
type Request struct {
	ContentToReview   string
	InstructionPrompt string
	Provider          config.Provider
	MaxResponseTokens int
}

// UserMessage is the single user message sent to the backend.
func (r Request) UserMessage() string {
	return r.InstructionPrompt + "\n" + r.ContentToReview
}

// StreamingProvider streams the text of a review. The sequence yields
// fragments in arrival order; a transport failure is yielded once, as the
// last element, with an empty fragment.
//
//go:generate mockgen -destination=../mocks/mock_streaming_provider.go -package=mocks . StreamingProvider
type StreamingProvider interface {
	Name() string
	Stream(ctx context.Context, req Request) iter.Seq2[string, error]
}

// New returns the streaming client for the configured provider. Missing
// settings are reported in the order key, URL, model.
func New(cfg *config.Config, client *http.Client, logger *slog.Logger) (StreamingProvider, error) {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}

	provider, err := config.ParseProvider(string(cfg.Provider))
	if err != nil {
		return nil, err
	}
	name := provider.DisplayName()
	settings := cfg.ProviderSettings()

	switch {
	case settings.APIKey == "":
		return nil, &ConfigError{Provider: name, Field: "API key", Err: ErrMissingCredential}
	case settings.APIURL == "":
		return nil, &ConfigError{Provider: name, Field: "API URL", Err: ErrMissingEndpoint}
	case settings.Model == "":
		return nil, &ConfigError{Provider: name, Field: "Model", Err: ErrMissingModel}
	}

	base := httpStreamer{
		name:     name,
		settings: settings,
		client:   client,
		logger:   logger.With("provider", name, "model", settings.Model),
	}

	if provider == config.ProviderOpenAI {
		return &eventStream{httpStreamer: base}, nil
	}
	return &chunkedJSON{httpStreamer: base}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Messages  []chatMessage `json:"messages"`
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	Stream    bool          `json:"stream,omitempty"`
}

// httpStreamer holds what both wire formats share: request construction,
// status handling and error tagging.
type httpStreamer struct {
	name     string
	settings config.ProviderConfig
	client   *http.Client
	logger   *slog.Logger
}

func (h *httpStreamer) Name() string {
	return h.name
}

func (h *httpStreamer) open(ctx context.Context, req Request, streamFlag bool, auth func(http.Header)) (*http.Response, error) {
	maxTokens := req.MaxResponseTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	body, err := json.Marshal(chatRequest{
		Messages:  []chatMessage{{Role: "user", Content: req.UserMessage()}},
		Model:     h.settings.Model,
		MaxTokens: maxTokens,
		Stream:    streamFlag,
	})
	if err != nil {
		return nil, h.transportError(ctx, fmt.Errorf("failed to encode request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.settings.APIURL, bytes.NewReader(body))
	if err != nil {
		return nil, h.transportError(ctx, fmt.Errorf("failed to create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	auth(httpReq.Header)

	h.logger.Debug("sending review request", "max_tokens", maxTokens, "message_length", len(body))

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return nil, h.transportError(ctx, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &TransportError{
			Provider:   h.name,
			StatusCode: resp.StatusCode,
			Body:       string(bytes.TrimSpace(snippet)),
		}
	}
	return resp, nil
}

// transportError prefers the context error so callers can match
// context.Canceled and context.DeadlineExceeded.
func (h *httpStreamer) transportError(ctx context.Context, err error) *TransportError {
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	}
	return &TransportError{Provider: h.name, Err: err}
}

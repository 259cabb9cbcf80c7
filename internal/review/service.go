// Package review orchestrates one review invocation: it collects and
// annotates a diff, streams it to the configured backend and renders the
// response through a render session.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sevigo/diffwarden/internal/config"
	"github.com/sevigo/diffwarden/internal/core"
	"github.com/sevigo/diffwarden/internal/llm"
	"github.com/sevigo/diffwarden/internal/render"
	"github.com/sevigo/diffwarden/internal/storage"
	"github.com/sevigo/diffwarden/internal/stream"
)

// ErrEmptyDiff is returned when there is no content to review.
var ErrEmptyDiff = errors.New("nothing to review")

// ProviderFactory builds the streaming client for a configuration.
type ProviderFactory func(cfg *config.Config) (stream.StreamingProvider, error)

// Input describes what to review. Diff is already annotated. A non-empty
// Prompt replaces the configured instruction.
type Input struct {
	Diff               string
	Prompt             string
	Source             string
	RepoFullName       string
	PRNumber           int
	HeadSHA            string
	CustomInstructions []string
}

type Service struct {
	cfg       *config.Config
	prompts   *llm.PromptManager
	providers ProviderFactory
	store     storage.Store
	logger    *slog.Logger
}

func NewService(cfg *config.Config, prompts *llm.PromptManager, providers ProviderFactory, store storage.Store, logger *slog.Logger) *Service {
	return &Service{
		cfg:       cfg,
		prompts:   prompts,
		providers: providers,
		store:     store,
		logger:    logger,
	}
}

// Review is a prepared invocation whose configuration has been validated.
type Review struct {
	svc      *Service
	provider stream.StreamingProvider
	request  stream.Request
	input    Input
}

// Prepare validates the configuration, builds the provider and the request.
// It performs no I/O, so callers open their surface only after it succeeds.
func (s *Service) Prepare(in Input) (*Review, error) {
	if err := s.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if strings.TrimSpace(in.Diff) == "" {
		return nil, ErrEmptyDiff
	}

	provider, err := s.providers(s.cfg)
	if err != nil {
		return nil, err
	}

	prompt := s.cfg.Prompt
	if in.Prompt != "" {
		prompt = in.Prompt
	}
	instruction, err := s.prompts.RenderReview(llm.ModelProvider(s.cfg.Provider), llm.ReviewPromptData{
		Instruction:        prompt,
		CustomInstructions: in.CustomInstructions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render review prompt: %w", err)
	}

	return &Review{
		svc:      s,
		provider: provider,
		input:    in,
		request: stream.Request{
			ContentToReview:   in.Diff,
			InstructionPrompt: instruction,
			Provider:          s.cfg.Provider,
			MaxResponseTokens: llm.EstimateMaxTokens(instruction, llm.CodeLength(in.Diff), s.cfg.ModelMaxTokens),
		},
	}, nil
}

// ProviderName is the display name of the backend, e.g. "Claude".
func (r *Review) ProviderName() string {
	return r.provider.Name()
}

func (r *Review) Model() string {
	return r.svc.cfg.Model()
}

// Request returns the request that Run will send.
func (r *Review) Request() stream.Request {
	return r.request
}

// Run waits for the session's surface, clears it, and appends every streamed
// fragment in order. It returns the accumulated text, which is partial when
// an error is returned. Closing the session cancels the stream.
func (r *Review) Run(ctx context.Context, session *render.Session) (string, error) {
	logger := r.svc.logger.With("session_id", session.ID(), "provider", r.provider.Name())

	if err := session.WaitReady(ctx); err != nil {
		return "", fmt.Errorf("review surface never became ready: %w", err)
	}
	if err := session.Replace(""); err != nil {
		return "", fmt.Errorf("failed to clear review surface: %w", err)
	}

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-session.Done():
			cancel()
		case <-streamCtx.Done():
		}
	}()

	logger.InfoContext(ctx, "streaming review", "max_tokens", r.request.MaxResponseTokens, "diff_length", len(r.input.Diff))

	var text strings.Builder
	var runErr error
	fragments := 0
	for fragment, err := range r.provider.Stream(streamCtx, r.request) {
		if err != nil {
			runErr = err
			break
		}
		if err := session.Append(fragment); err != nil {
			runErr = err
			break
		}
		text.WriteString(fragment)
		fragments++
	}

	if runErr != nil && isClosed(session) {
		runErr = fmt.Errorf("review surface closed: %w", render.ErrSessionClosed)
	}

	status := core.StatusCompleted
	switch {
	case runErr == nil:
		logger.InfoContext(ctx, "review completed", "fragments", fragments, "length", text.Len())
	case errors.Is(runErr, render.ErrSessionClosed), errors.Is(runErr, context.Canceled):
		status = core.StatusCancelled
		logger.InfoContext(ctx, "review cancelled", "fragments", fragments)
	default:
		status = core.StatusFailed
		logger.ErrorContext(ctx, "review failed", "fragments", fragments, "error", runErr)
	}

	r.save(context.WithoutCancel(ctx), session.ID(), status, text.String())
	return text.String(), runErr
}

func (r *Review) save(ctx context.Context, sessionID, status, content string) {
	if r.svc.store == nil {
		return
	}
	record := &core.Review{
		SessionID:     sessionID,
		Source:        r.input.Source,
		RepoFullName:  r.input.RepoFullName,
		PRNumber:      r.input.PRNumber,
		HeadSHA:       r.input.HeadSHA,
		Provider:      r.provider.Name(),
		Model:         r.svc.cfg.Model(),
		Status:        status,
		ReviewContent: content,
	}
	if err := r.svc.store.SaveReview(ctx, record); err != nil {
		r.svc.logger.WarnContext(ctx, "failed to save review history", "session_id", sessionID, "error", err)
	}
}

func isClosed(session *render.Session) bool {
	select {
	case <-session.Done():
		return true
	default:
		return false
	}
}

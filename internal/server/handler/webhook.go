// Package handler provides the HTTP handlers of the DiffWarden server.
package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/go-github/v73/github"

	"github.com/sevigo/diffwarden/internal/config"
	"github.com/sevigo/diffwarden/internal/core"
	"github.com/sevigo/diffwarden/internal/jobs"
)

// GitHub caps webhook payloads at 25 MB.
const maxWebhookPayload = 25 << 20

// WebhookHandler processes incoming webhooks from GitHub.
type WebhookHandler struct {
	cfg        config.GitHubConfig
	dispatcher core.JobDispatcher
	logger     *slog.Logger
}

// NewWebhookHandler creates a webhook handler that verifies payloads with
// cfg.WebhookSecret and queues review commands on dispatcher.
func NewWebhookHandler(cfg config.GitHubConfig, dispatcher core.JobDispatcher, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		cfg:        cfg,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Handle processes GitHub webhook requests.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookPayload)
	payload, err := github.ValidatePayload(r, []byte(h.cfg.WebhookSecret))
	if err != nil {
		h.logger.Error("invalid webhook payload signature", "error", err)
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	event, err := github.ParseWebHook(github.WebHookType(r), payload)
	if err != nil {
		h.logger.Error("could not parse webhook", "error", err)
		http.Error(w, "Could not parse webhook", http.StatusBadRequest)
		return
	}

	switch e := event.(type) {
	case *github.IssueCommentEvent:
		h.handleIssueComment(r.Context(), w, e)
	case *github.PingEvent:
		h.logger.Info("received webhook ping", "hook_id", e.GetHookID())
		_, _ = fmt.Fprint(w, "pong")
	default:
		h.logger.Debug("ignoring unhandled webhook event type", "type", github.WebHookType(r))
		_, _ = fmt.Fprint(w, "Event type not handled")
	}
}

func (h *WebhookHandler) handleIssueComment(ctx context.Context, w http.ResponseWriter, event *github.IssueCommentEvent) {
	if event.GetAction() != "created" {
		_, _ = fmt.Fprint(w, "Comment ignored")
		return
	}

	reviewEvent, err := core.EventFromIssueComment(event)
	if err != nil {
		if errors.Is(err, core.ErrNotReviewCommand) {
			h.logger.Debug("ignoring issue comment", "reason", err.Error(), "repo", event.GetRepo().GetFullName())
		} else {
			h.logger.Warn("ignoring malformed review command", "error", err, "repo", event.GetRepo().GetFullName())
		}
		_, _ = fmt.Fprint(w, "Comment ignored")
		return
	}

	if err := h.dispatcher.Dispatch(ctx, reviewEvent); err != nil {
		h.logger.Error("failed to dispatch review job", "error", err, "repo", reviewEvent.RepoFullName)
		status := http.StatusInternalServerError
		if errors.Is(err, jobs.ErrQueueFull) {
			status = http.StatusServiceUnavailable
		}
		http.Error(w, "Failed to start review job", status)
		return
	}

	h.logger.Info("review job dispatched", "repo", reviewEvent.RepoFullName, "pr", reviewEvent.PRNumber)
	w.WriteHeader(http.StatusAccepted)
	_, _ = fmt.Fprint(w, "Review job accepted")
}

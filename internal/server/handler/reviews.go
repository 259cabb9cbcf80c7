package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sevigo/diffwarden/internal/core"
	"github.com/sevigo/diffwarden/internal/diff"
	"github.com/sevigo/diffwarden/internal/render"
	"github.com/sevigo/diffwarden/internal/review"
	"github.com/sevigo/diffwarden/internal/storage"
)

const (
	maxDiffBytes        = 10 << 20
	reviewTimeout       = 10 * time.Minute
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

// ReviewsHandler starts reviews of submitted diffs and serves review history.
// The review text is streamed by EventsHandler under the returned id.
type ReviewsHandler struct {
	ctx      context.Context
	reviews  *review.Service
	registry *render.Registry
	store    storage.Store
	logger   *slog.Logger
}

// NewReviewsHandler creates a handler whose background reviews end when ctx
// is cancelled.
func NewReviewsHandler(ctx context.Context, reviews *review.Service, registry *render.Registry, store storage.Store, logger *slog.Logger) *ReviewsHandler {
	return &ReviewsHandler{
		ctx:      ctx,
		reviews:  reviews,
		registry: registry,
		store:    store,
		logger:   logger,
	}
}

type createReviewRequest struct {
	Diff               string   `json:"diff"`
	Prompt             string   `json:"prompt,omitempty"`
	CustomInstructions []string `json:"custom_instructions,omitempty"`
}

type createReviewResponse struct {
	ID        string `json:"id"`
	Provider  string `json:"provider"`
	Model     string `json:"model,omitempty"`
	EventsURL string `json:"events_url"`
}

// Create accepts a raw unified diff, annotates it and starts a review. The
// review waits for a client on the events URL before streaming.
func (h *ReviewsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createReviewRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxDiffBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	rev, err := h.reviews.Prepare(review.Input{
		Diff:               diff.Annotate(req.Diff, h.logger),
		Prompt:             req.Prompt,
		Source:             core.SourceAPI,
		CustomInstructions: req.CustomInstructions,
	})
	if errors.Is(err, review.ErrEmptyDiff) {
		writeError(w, http.StatusBadRequest, "diff is empty")
		return
	}
	if err != nil {
		h.logger.Error("failed to prepare review", "error", err)
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	session := h.registry.Start()
	go h.run(rev, session)

	h.logger.Info("review started", "session_id", session.ID(), "provider", rev.ProviderName())
	writeJSON(w, http.StatusAccepted, createReviewResponse{
		ID:        session.ID(),
		Provider:  rev.ProviderName(),
		Model:     rev.Model(),
		EventsURL: "/api/v1/reviews/" + session.ID() + "/events",
	})
}

func (h *ReviewsHandler) run(rev *review.Review, session *render.Session) {
	defer h.registry.End(session)

	ctx, cancel := context.WithTimeout(h.ctx, reviewTimeout)
	defer cancel()

	if _, err := rev.Run(ctx, session); err != nil {
		session.CloseWithError(err)
	}
}

// List returns the most recent reviews, newest first.
func (h *ReviewsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	reviews, err := h.store.ListReviews(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list reviews", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list reviews")
		return
	}
	if reviews == nil {
		reviews = []core.Review{}
	}
	writeJSON(w, http.StatusOK, reviews)
}

// Get returns one stored review.
func (h *ReviewsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid review id")
		return
	}

	rev, err := h.store.GetReview(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "review not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to get review", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get review")
		return
	}
	writeJSON(w, http.StatusOK, rev)
}

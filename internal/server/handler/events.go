package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sevigo/diffwarden/internal/render"
)

// EventsHandler streams a review session to an HTTP client as server-sent
// events. The first client to connect becomes the session's surface.
type EventsHandler struct {
	registry *render.Registry
	logger   *slog.Logger
}

func NewEventsHandler(registry *render.Registry, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{registry: registry, logger: logger}
}

type textEvent struct {
	Text string `json:"text"`
}

type doneEvent struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// sseSurface writes each operation as an event named after its kind.
type sseSurface struct {
	w  io.Writer
	rc *http.ResponseController
}

func (s *sseSurface) Deliver(op render.Op) error {
	if err := writeEvent(s.w, op.Kind.String(), textEvent{Text: op.Text}); err != nil {
		return err
	}
	return s.rc.Flush()
}

func writeEvent(w io.Writer, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
	return err
}

// Handle attaches the client to the session and holds the connection until
// the review ends or the client goes away. A disconnect cancels the review.
func (h *EventsHandler) Handle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	session, ok := h.registry.Lookup(id)
	if !ok {
		writeError(w, http.StatusNotFound, "review session not found")
		return
	}

	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		h.logger.Warn("failed to clear write deadline", "session_id", id, "error", err)
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	if err := session.Attach(&sseSurface{w: w, rc: rc}); err != nil {
		switch {
		case errors.Is(err, render.ErrAlreadyAttached):
			writeError(w, http.StatusConflict, "review session already has a client")
		case errors.Is(err, render.ErrSessionClosed):
			writeError(w, http.StatusGone, "review session has ended")
		default:
			// Part of the stream may already be written.
			h.logger.Warn("failed to attach client", "session_id", id, "error", err)
		}
		return
	}
	if err := rc.Flush(); err != nil {
		h.logger.Debug("response does not support flushing", "session_id", id, "error", err)
	}
	h.logger.Info("client attached to review session", "session_id", id)

	select {
	case <-session.Done():
		done := doneEvent{Status: "completed"}
		if err := session.Err(); err != nil {
			done = doneEvent{Status: "failed", Error: err.Error()}
		}
		if err := writeEvent(w, "done", done); err == nil {
			_ = rc.Flush()
		}
	case <-r.Context().Done():
		h.logger.Info("client disconnected, cancelling review", "session_id", id)
		session.Close()
	}
}

package server

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/sevigo/diffwarden/internal/config"
	"github.com/sevigo/diffwarden/internal/core"
	"github.com/sevigo/diffwarden/internal/llm"
	"github.com/sevigo/diffwarden/internal/logger"
	"github.com/sevigo/diffwarden/internal/mocks"
	"github.com/sevigo/diffwarden/internal/render"
	"github.com/sevigo/diffwarden/internal/review"
	"github.com/sevigo/diffwarden/internal/storage"
	"github.com/sevigo/diffwarden/internal/stream"
)

const (
	webhookSecret = "s3cret"
	rawDiff       = "--- a/main.go\n+++ b/main.go\n@@ -1,1 +1,2 @@\n package main\n+func f() {}"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []*core.GitHubEvent
	err    error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, event *core.GitHubEvent) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.events = append(d.events, event)
	return nil
}

type routerFixture struct {
	router     *chi.Mux
	provider   *mocks.MockStreamingProvider
	registry   *render.Registry
	store      storage.Store
	dispatcher *recordingDispatcher
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	cfg := &config.Config{
		Provider:       config.ProviderOpenAI,
		Prompt:         "Review this",
		ModelMaxTokens: 4096,
		OpenAI:         config.ProviderConfig{APIURL: "http://openai.test", APIKey: "key", Model: "gpt-test"},
		Logging:        logger.Config{Level: "info"},
		GitHub:         config.GitHubConfig{WebhookSecret: webhookSecret},
	}

	prompts, err := llm.NewPromptManager()
	require.NoError(t, err)

	f := &routerFixture{
		provider:   mocks.NewMockStreamingProvider(ctrl),
		registry:   render.NewRegistry(time.Minute, discardLogger()),
		store:      storage.NewMemoryStore(10),
		dispatcher: &recordingDispatcher{},
	}
	f.provider.EXPECT().Name().Return("OpenAI").AnyTimes()

	providers := func(*config.Config) (stream.StreamingProvider, error) { return f.provider, nil }
	svc := review.NewService(cfg, prompts, providers, f.store, discardLogger())
	f.router = NewRouter(context.Background(), cfg, f.dispatcher, svc, f.registry, f.store, discardLogger())
	return f
}

func fragments(items ...string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, item := range items {
			if !yield(item, nil) {
				return
			}
		}
	}
}

func TestRouter_Health(t *testing.T) {
	f := newRouterFixture(t)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func createReview(t *testing.T, baseURL, body string) map[string]string {
	t.Helper()
	resp, err := http.Post(baseURL+"/api/v1/reviews", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var created map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	return created
}

func readEvents(t *testing.T, url string) string {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestRouter_ReviewStreamsOverSSE(t *testing.T) {
	f := newRouterFixture(t)
	f.provider.EXPECT().Stream(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req stream.Request) iter.Seq2[string, error] {
			assert.Equal(t, "Only naming", req.InstructionPrompt)
			assert.Contains(t, req.ContentToReview, "   1    1  package main")
			assert.Contains(t, req.ContentToReview, "        2 +func f() {}")
			return fragments("Looks ", "good.")
		})

	srv := httptest.NewServer(f.router)
	defer srv.Close()

	payload, err := json.Marshal(map[string]string{"diff": rawDiff, "prompt": "Only naming"})
	require.NoError(t, err)
	created := createReview(t, srv.URL, string(payload))
	assert.Equal(t, "OpenAI", created["provider"])
	assert.Equal(t, "gpt-test", created["model"])
	require.NotEmpty(t, created["id"])

	got := readEvents(t, srv.URL+created["events_url"])
	want := "event: replace\ndata: {\"text\":\"\"}\n\n" +
		"event: append\ndata: {\"text\":\"Looks \"}\n\n" +
		"event: append\ndata: {\"text\":\"good.\"}\n\n" +
		"event: done\ndata: {\"status\":\"completed\"}\n\n"
	assert.Equal(t, want, got)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/history", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var history []core.Review
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history, 1)
	assert.Equal(t, core.SourceAPI, history[0].Source)
	assert.Equal(t, core.StatusCompleted, history[0].Status)
	assert.Equal(t, "Looks good.", history[0].ReviewContent)
	assert.Equal(t, created["id"], history[0].SessionID)
}

func TestRouter_ReviewFailureEndsStream(t *testing.T) {
	f := newRouterFixture(t)
	f.provider.EXPECT().Stream(gomock.Any(), gomock.Any()).Return(func(yield func(string, error) bool) {
		if !yield("Partial", nil) {
			return
		}
		yield("", errors.New("OpenAI API error: HTTP error! status: 401"))
	})

	srv := httptest.NewServer(f.router)
	defer srv.Close()

	created := createReview(t, srv.URL, `{"diff":"+x"}`)
	got := readEvents(t, srv.URL+created["events_url"])

	assert.Contains(t, got, "event: append\ndata: {\"text\":\"Partial\"}\n\n")
	assert.True(t, strings.HasSuffix(got,
		"event: done\ndata: {\"status\":\"failed\",\"error\":\"OpenAI API error: HTTP error! status: 401\"}\n\n"), got)
}

func TestRouter_CreateReviewErrors(t *testing.T) {
	f := newRouterFixture(t)

	tests := []struct {
		name string
		body string
		code int
	}{
		{name: "Malformed JSON", body: `{"diff":`, code: http.StatusBadRequest},
		{name: "Empty diff", body: `{"diff":""}`, code: http.StatusBadRequest},
		{name: "Whitespace diff", body: `{"diff":"   "}`, code: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/reviews", strings.NewReader(tt.body)))
			assert.Equal(t, tt.code, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
	assert.Zero(t, f.registry.Len(), "no session is opened for a rejected review")
}

type nopSurface struct{}

func (nopSurface) Deliver(render.Op) error { return nil }

func TestRouter_EventsErrors(t *testing.T) {
	f := newRouterFixture(t)

	attached := f.registry.Begin("attached")
	require.NoError(t, attached.Attach(nopSurface{}))
	f.registry.Begin("closed").Close()

	tests := []struct {
		name string
		id   string
		code int
	}{
		{name: "Unknown session", id: "missing", code: http.StatusNotFound},
		{name: "Second client", id: "attached", code: http.StatusConflict},
		{name: "Ended session", id: "closed", code: http.StatusGone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/reviews/"+tt.id+"/events", nil))
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}

func TestRouter_History(t *testing.T) {
	f := newRouterFixture(t)
	ctx := context.Background()
	for _, status := range []string{core.StatusCompleted, core.StatusFailed} {
		require.NoError(t, f.store.SaveReview(ctx, &core.Review{Source: core.SourceStaged, Status: status}))
	}

	tests := []struct {
		name string
		path string
		code int
	}{
		{name: "List", path: "/api/v1/history?limit=1", code: http.StatusOK},
		{name: "Bad limit", path: "/api/v1/history?limit=zero", code: http.StatusBadRequest},
		{name: "Get", path: "/api/v1/history/2", code: http.StatusOK},
		{name: "Missing", path: "/api/v1/history/99", code: http.StatusNotFound},
		{name: "Bad id", path: "/api/v1/history/abc", code: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.code, rec.Code)
		})
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/history?limit=1", nil))
	var list []core.Review
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, core.StatusFailed, list[0].Status, "newest first")
}

const issueCommentPayload = `{
  "action": "created",
  "issue": {"number": 42, "pull_request": {"url": "https://api.github.com/repos/sevigo/diffwarden/pulls/42"}},
  "comment": {"body": " /review ", "user": {"login": "octocat"}},
  "repository": {"name": "diffwarden", "full_name": "sevigo/diffwarden", "owner": {"login": "sevigo"}},
  "installation": {"id": 99}
}`

func webhookRequest(event, body, secret string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhook/github", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Event", event)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	req.Header.Set("X-Hub-Signature-256", "sha256="+hex.EncodeToString(mac.Sum(nil)))
	return req
}

func TestRouter_Webhook(t *testing.T) {
	t.Run("Review command is dispatched", func(t *testing.T) {
		f := newRouterFixture(t)
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, webhookRequest("issue_comment", issueCommentPayload, webhookSecret))

		assert.Equal(t, http.StatusAccepted, rec.Code)
		require.Len(t, f.dispatcher.events, 1)
		event := f.dispatcher.events[0]
		assert.Equal(t, "sevigo/diffwarden", event.RepoFullName)
		assert.Equal(t, 42, event.PRNumber)
		assert.Equal(t, int64(99), event.InstallationID)
		assert.Equal(t, "octocat", event.Commenter)
	})

	t.Run("Bad signature", func(t *testing.T) {
		f := newRouterFixture(t)
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, webhookRequest("issue_comment", issueCommentPayload, "wrong"))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, f.dispatcher.events)
	})

	t.Run("Other comments are ignored", func(t *testing.T) {
		f := newRouterFixture(t)
		body := strings.Replace(issueCommentPayload, " /review ", "LGTM", 1)
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, webhookRequest("issue_comment", body, webhookSecret))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Comment ignored", rec.Body.String())
		assert.Empty(t, f.dispatcher.events)
	})

	t.Run("Full queue", func(t *testing.T) {
		f := newRouterFixture(t)
		f.dispatcher.err = errors.New("job queue is full")
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, webhookRequest("issue_comment", issueCommentPayload, webhookSecret))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("Ping", func(t *testing.T) {
		f := newRouterFixture(t)
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, webhookRequest("ping", `{"zen":"Keep it logically awesome.","hook_id":1}`, webhookSecret))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "pong", rec.Body.String())
	})
}

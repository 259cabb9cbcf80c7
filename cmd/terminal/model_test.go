package main

import (
	"context"
	"io"
	"iter"
	"log/slog"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/sevigo/diffwarden/internal/app"
	"github.com/sevigo/diffwarden/internal/config"
	"github.com/sevigo/diffwarden/internal/gitutil"
	"github.com/sevigo/diffwarden/internal/llm"
	"github.com/sevigo/diffwarden/internal/logger"
	"github.com/sevigo/diffwarden/internal/mocks"
	"github.com/sevigo/diffwarden/internal/render"
	"github.com/sevigo/diffwarden/internal/review"
	"github.com/sevigo/diffwarden/internal/storage"
	"github.com/sevigo/diffwarden/internal/stream"
)

func fragments(items ...string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, item := range items {
			if !yield(item, nil) {
				return
			}
		}
	}
}

func newTestModel(t *testing.T, chunks ...string) (*model, *app.Reviewer) {
	t.Helper()
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockStreamingProvider(ctrl)
	provider.EXPECT().Name().Return("Claude").AnyTimes()
	provider.EXPECT().Stream(gomock.Any(), gomock.Any()).Return(fragments(chunks...)).AnyTimes()

	cfg := &config.Config{
		Provider:       config.ProviderClaude,
		Prompt:         "Review this",
		ModelMaxTokens: 4096,
		Claude:         config.ProviderConfig{APIURL: "http://claude.test", APIKey: "key", Model: "claude-test"},
		Logging:        logger.Config{Level: "info"},
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	prompts, err := llm.NewPromptManager()
	require.NoError(t, err)
	providers := func(*config.Config) (stream.StreamingProvider, error) { return provider, nil }
	store := storage.NewMemoryStore(10)
	reviewer := app.NewReviewer(cfg, review.NewService(cfg, prompts, providers, store, log),
		render.NewRegistry(time.Minute, log), gitutil.NewClient(log), store, log)

	m := initialModel(ThemeCyan, ".", false)
	m.Update(reviewerInitializedMsg{reviewer: reviewer, cleanup: func() {}})
	return m, reviewer
}

func prepare(t *testing.T, reviewer *app.Reviewer) *review.Review {
	t.Helper()
	rev, err := reviewer.Reviews.Prepare(review.Input{Diff: "   1    1  package main"})
	require.NoError(t, err)
	return rev
}

func TestTeaSurface_DeliversInOrder(t *testing.T) {
	session := render.NewSession("terminal")
	surface := newTeaSurface()
	require.NoError(t, session.Attach(surface))

	require.NoError(t, session.Replace(""))
	require.NoError(t, session.Append("a"))
	require.NoError(t, session.Append("b"))

	msg := waitForOps(surface, session)()
	require.IsType(t, opsMsg{}, msg)
	assert.Equal(t, []render.Op{
		{Kind: render.OpReplace},
		{Kind: render.OpAppend, Text: "a"},
		{Kind: render.OpAppend, Text: "b"},
	}, msg.(opsMsg).ops)

	require.NoError(t, session.Append("c"))
	session.Close()

	msg = waitForOps(surface, session)()
	require.IsType(t, opsMsg{}, msg)
	assert.Equal(t, []render.Op{{Kind: render.OpAppend, Text: "c"}}, msg.(opsMsg).ops)

	msg = waitForOps(surface, session)()
	assert.Equal(t, surfaceClosedMsg{session: session}, msg)
}

func TestModel_AttachesOnFirstWindowSize(t *testing.T) {
	m, reviewer := newTestModel(t)

	m.Update(reviewPreparedMsg{review: prepare(t, reviewer), target: "staged changes"})
	require.NotNil(t, m.session)
	assert.False(t, m.session.IsReady())

	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	assert.True(t, m.session.IsReady())
}

func TestModel_AttachesImmediatelyWhenSized(t *testing.T) {
	m, reviewer := newTestModel(t)
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})

	m.Update(reviewPreparedMsg{review: prepare(t, reviewer), target: "staged changes"})
	require.NotNil(t, m.session)
	assert.True(t, m.session.IsReady())
}

func TestModel_StreamsReviewIntoPanel(t *testing.T) {
	m, reviewer := newTestModel(t, "## Findings", "\nNone.")
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})

	m.Update(reviewPreparedMsg{review: prepare(t, reviewer), target: "staged changes"})
	session := m.session
	require.NotNil(t, session)

	rev := prepare(t, reviewer)
	done := runReviewCmd(context.Background(), rev, session)()

	ops := waitForOps(m.surface, session)()
	m.Update(ops)
	assert.Equal(t, "## Findings\nNone.", m.streamed)

	m.Update(done)
	assert.Nil(t, m.session)
	assert.Empty(t, m.streamed)
	assert.Contains(t, strings.Join(m.history, "\n"), "REVIEW COMPLETE")
	assert.Equal(t, 0, reviewer.Registry.Len())

	history, err := reviewer.Store.ListReviews(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "## Findings\nNone.", history[0].ReviewContent)
}

func TestModel_NewReviewReplacesRunningOne(t *testing.T) {
	m, reviewer := newTestModel(t)
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})

	m.Update(reviewPreparedMsg{review: prepare(t, reviewer), target: "first"})
	first := m.session
	m.Update(reviewPreparedMsg{review: prepare(t, reviewer), target: "second"})

	select {
	case <-first.Done():
	default:
		t.Fatal("first session should be closed")
	}
	assert.NotSame(t, first, m.session)

	m.Update(opsMsg{session: first, ops: []render.Op{{Kind: render.OpAppend, Text: "stale"}}})
	assert.Empty(t, m.streamed)

	m.Update(reviewDoneMsg{session: first, err: context.Canceled})
	assert.NotNil(t, m.session)
	assert.Equal(t, "second", m.target)
}

func TestModel_NoStagedChanges(t *testing.T) {
	m, _ := newTestModel(t)

	m.Update(reviewPreparedMsg{err: review.ErrNoStagedChanges})
	assert.Nil(t, m.session)
	assert.Contains(t, strings.Join(m.history, "\n"), "No staged changes found")
}

func TestModel_Commands(t *testing.T) {
	m, _ := newTestModel(t)

	assert.Nil(t, m.processCommand("/help"))
	assert.Contains(t, strings.Join(m.history, "\n"), "/review [path]")

	assert.Nil(t, m.processCommand("/cancel"))
	assert.Contains(t, strings.Join(m.history, "\n"), "No review in progress.")

	assert.Nil(t, m.processCommand("/show abc"))
	assert.Contains(t, strings.Join(m.history, "\n"), "Invalid review ID: abc")

	assert.Nil(t, m.processCommand("/bogus"))
	assert.Contains(t, strings.Join(m.history, "\n"), "Unknown command: /bogus")

	assert.NotNil(t, m.processCommand("/history 5"))
	assert.True(t, m.isLoading)
}

package storage

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/diffwarden/internal/config"
	"github.com/sevigo/diffwarden/internal/core"
	"github.com/sevigo/diffwarden/internal/db"
)

func newSQLiteStore(t *testing.T) Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	conn, cleanup, err := db.NewDatabase(&config.DBConfig{
		Driver: db.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "history.db"),
	}, logger)
	require.NoError(t, err)
	t.Cleanup(cleanup)
	require.NoError(t, conn.RunMigrations())
	return NewStore(conn.DB)
}

func storeImplementations(t *testing.T) map[string]Store {
	return map[string]Store{
		"sqlite": newSQLiteStore(t),
		"memory": NewMemoryStore(10),
	}
}

func sampleReview(pr int, content string, at time.Time) *core.Review {
	return &core.Review{
		SessionID:     "session",
		Source:        core.SourcePullRequest,
		RepoFullName:  "sevigo/diffwarden",
		PRNumber:      pr,
		HeadSHA:       "abc",
		Provider:      "Claude",
		Model:         "claude-test",
		Status:        core.StatusCompleted,
		ReviewContent: content,
		CreatedAt:     at,
	}
}

func TestStore_SaveAndList(t *testing.T) {
	for name, store := range storeImplementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

			first := sampleReview(1, "first", base)
			second := sampleReview(2, "second", base.Add(time.Minute))
			require.NoError(t, store.SaveReview(ctx, first))
			require.NoError(t, store.SaveReview(ctx, second))
			assert.NotZero(t, first.ID)
			assert.NotEqual(t, first.ID, second.ID)

			reviews, err := store.ListReviews(ctx, 10)
			require.NoError(t, err)
			require.Len(t, reviews, 2)
			assert.Equal(t, "second", reviews[0].ReviewContent)
			assert.Equal(t, "first", reviews[1].ReviewContent)
			assert.True(t, base.Equal(reviews[1].CreatedAt))

			limited, err := store.ListReviews(ctx, 1)
			require.NoError(t, err)
			assert.Len(t, limited, 1)

			got, err := store.GetReview(ctx, first.ID)
			require.NoError(t, err)
			assert.Equal(t, "first", got.ReviewContent)
			assert.Equal(t, core.SourcePullRequest, got.Source)

			_, err = store.GetReview(ctx, 9999)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_GetLatestReviewForPR(t *testing.T) {
	for name, store := range storeImplementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

			require.NoError(t, store.SaveReview(ctx, sampleReview(7, "old", base)))
			require.NoError(t, store.SaveReview(ctx, sampleReview(7, "new", base.Add(time.Hour))))
			require.NoError(t, store.SaveReview(ctx, sampleReview(8, "other", base.Add(2*time.Hour))))

			latest, err := store.GetLatestReviewForPR(ctx, "sevigo/diffwarden", 7)
			require.NoError(t, err)
			assert.Equal(t, "new", latest.ReviewContent)

			_, err = store.GetLatestReviewForPR(ctx, "sevigo/diffwarden", 99)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestMemoryStore_Capacity(t *testing.T) {
	store := NewMemoryStore(2)
	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		require.NoError(t, store.SaveReview(ctx, sampleReview(i, "r", time.Time{})))
	}

	reviews, err := store.ListReviews(ctx, 10)
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	assert.Equal(t, 3, reviews[0].PRNumber)
	assert.Equal(t, 2, reviews[1].PRNumber)
	assert.False(t, reviews[0].CreatedAt.IsZero())
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sevigo/diffwarden/internal/core"
)

// ErrNotFound is returned when no review matches a lookup.
var ErrNotFound = errors.New("review not found")

// Store defines the interface for review history operations.
type Store interface {
	SaveReview(ctx context.Context, review *core.Review) error
	ListReviews(ctx context.Context, limit int) ([]core.Review, error)
	GetReview(ctx context.Context, id int64) (*core.Review, error)
	GetLatestReviewForPR(ctx context.Context, repoFullName string, prNumber int) (*core.Review, error)
}

type sqlStore struct {
	db *sqlx.DB
}

// NewStore creates a Store backed by a SQL database. Queries are rebound to
// the driver's placeholder style.
func NewStore(db *sqlx.DB) Store {
	return &sqlStore{db: db}
}

const reviewColumns = `id, session_id, source, repo_full_name, pr_number, head_sha, provider, model, status, review_content, created_at`

// SaveReview inserts a new review record and sets its ID and CreatedAt.
func (s *sqlStore) SaveReview(ctx context.Context, review *core.Review) error {
	if review.CreatedAt.IsZero() {
		review.CreatedAt = time.Now().UTC()
	}
	query := s.db.Rebind(`
		INSERT INTO reviews (session_id, source, repo_full_name, pr_number, head_sha, provider, model, status, review_content, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)

	err := s.db.QueryRowxContext(ctx, query,
		review.SessionID, review.Source, review.RepoFullName, review.PRNumber, review.HeadSHA,
		review.Provider, review.Model, review.Status, review.ReviewContent, review.CreatedAt,
	).Scan(&review.ID)
	if err != nil {
		return fmt.Errorf("failed to save review: %w", err)
	}
	return nil
}

// ListReviews returns the most recent reviews, newest first.
func (s *sqlStore) ListReviews(ctx context.Context, limit int) ([]core.Review, error) {
	if limit <= 0 {
		limit = 20
	}
	query := s.db.Rebind(`SELECT ` + reviewColumns + ` FROM reviews ORDER BY created_at DESC, id DESC LIMIT ?`)

	var reviews []core.Review
	if err := s.db.SelectContext(ctx, &reviews, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	return reviews, nil
}

func (s *sqlStore) GetReview(ctx context.Context, id int64) (*core.Review, error) {
	query := s.db.Rebind(`SELECT ` + reviewColumns + ` FROM reviews WHERE id = ?`)

	var r core.Review
	if err := s.db.GetContext(ctx, &r, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
		}
		return nil, err
	}
	return &r, nil
}

// GetLatestReviewForPR retrieves the most recent review for a given pull request.
func (s *sqlStore) GetLatestReviewForPR(ctx context.Context, repoFullName string, prNumber int) (*core.Review, error) {
	query := s.db.Rebind(`
		SELECT ` + reviewColumns + `
		FROM reviews
		WHERE repo_full_name = ? AND pr_number = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1`)

	var r core.Review
	if err := s.db.GetContext(ctx, &r, query, repoFullName, prNumber); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: no previous review for PR %s#%d", ErrNotFound, repoFullName, prNumber)
		}
		return nil, err
	}
	return &r, nil
}

// memoryStore keeps the most recent reviews in process when no database is
// configured.
type memoryStore struct {
	mu       sync.RWMutex
	reviews  []core.Review
	capacity int
	nextID   int64
}

// NewMemoryStore returns a Store holding at most capacity reviews.
func NewMemoryStore(capacity int) Store {
	if capacity <= 0 {
		capacity = 100
	}
	return &memoryStore{capacity: capacity}
}

func (m *memoryStore) SaveReview(_ context.Context, review *core.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	review.ID = m.nextID
	if review.CreatedAt.IsZero() {
		review.CreatedAt = time.Now().UTC()
	}
	m.reviews = append(m.reviews, *review)
	if len(m.reviews) > m.capacity {
		m.reviews = m.reviews[len(m.reviews)-m.capacity:]
	}
	return nil
}

func (m *memoryStore) ListReviews(_ context.Context, limit int) ([]core.Review, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	var out []core.Review
	for i := len(m.reviews) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.reviews[i])
	}
	return out, nil
}

func (m *memoryStore) GetReview(_ context.Context, id int64) (*core.Review, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := range m.reviews {
		if m.reviews[i].ID == id {
			r := m.reviews[i]
			return &r, nil
		}
	}
	return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
}

func (m *memoryStore) GetLatestReviewForPR(_ context.Context, repoFullName string, prNumber int) (*core.Review, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.reviews) - 1; i >= 0; i-- {
		if m.reviews[i].RepoFullName == repoFullName && m.reviews[i].PRNumber == prNumber {
			r := m.reviews[i]
			return &r, nil
		}
	}
	return nil, fmt.Errorf("%w: no previous review for PR %s#%d", ErrNotFound, repoFullName, prNumber)
}

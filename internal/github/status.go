package github

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/go-github/v73/github"

	"github.com/sevigo/diffwarden/internal/core"
	"github.com/sevigo/diffwarden/internal/render"
)

const checkRunName = "DiffWarden Review"

// StatusUpdater reports review progress on a pull request through a Check Run.
type StatusUpdater interface {
	InProgress(ctx context.Context, event *core.GitHubEvent, title, summary string) (int64, error)
	Completed(ctx context.Context, event *core.GitHubEvent, checkRunID int64, conclusion, title, summary string) error
}

type statusUpdater struct {
	client Client
}

func NewStatusUpdater(client Client) StatusUpdater {
	return &statusUpdater{client: client}
}

// InProgress creates a new GitHub Check Run with an "in_progress" status.
func (s *statusUpdater) InProgress(ctx context.Context, event *core.GitHubEvent, title, summary string) (int64, error) {
	opts := github.CreateCheckRunOptions{
		Name:    checkRunName,
		HeadSHA: event.HeadSHA,
		Status:  github.Ptr("in_progress"),
		Output: &github.CheckRunOutput{
			Title:   &title,
			Summary: &summary,
		},
	}
	checkRun, err := s.client.CreateCheckRun(ctx, event.RepoOwner, event.RepoName, opts)
	if err != nil {
		return 0, fmt.Errorf("failed to create check run: %w", err)
	}
	return checkRun.GetID(), nil
}

// Completed updates an existing GitHub Check Run to a "completed" status.
func (s *statusUpdater) Completed(ctx context.Context, event *core.GitHubEvent, checkRunID int64, conclusion, title, summary string) error {
	opts := github.UpdateCheckRunOptions{
		Status:      github.Ptr("completed"),
		Conclusion:  &conclusion,
		CompletedAt: &github.Timestamp{Time: time.Now()},
		Output: &github.CheckRunOutput{
			Title:   &title,
			Summary: &summary,
		},
	}
	_, err := s.client.UpdateCheckRun(ctx, event.RepoOwner, event.RepoName, checkRunID, opts)
	return err
}

// ErrEmptyReview is returned when there is nothing to publish.
var ErrEmptyReview = errors.New("review is empty")

// CommentSurface collects a streamed review and publishes it as a single pull
// request comment. It is ready as soon as it is attached.
type CommentSurface struct {
	client Client
	event  *core.GitHubEvent

	mu        sync.Mutex
	content   strings.Builder
	published bool
}

// NewCommentSurface returns a surface for the pull request in event.
func NewCommentSurface(client Client, event *core.GitHubEvent) *CommentSurface {
	return &CommentSurface{client: client, event: event}
}

func (s *CommentSurface) Deliver(op render.Op) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.published {
		return errors.New("review comment already published")
	}
	if op.Kind == render.OpReplace {
		s.content.Reset()
	}
	s.content.WriteString(op.Text)
	return nil
}

func (s *CommentSurface) Content() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.content.String()
}

// Publish posts the collected review with footer appended. It can succeed
// only once.
func (s *CommentSurface) Publish(ctx context.Context, footer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.published {
		return nil
	}
	body := strings.TrimSpace(s.content.String())
	if body == "" {
		return ErrEmptyReview
	}
	if err := s.client.CreateComment(ctx, s.event.RepoOwner, s.event.RepoName, s.event.PRNumber, FormatReviewComment(body, footer)); err != nil {
		return fmt.Errorf("failed to post review comment: %w", err)
	}
	s.published = true
	return nil
}

// FormatReviewComment wraps a review body with a heading and an optional
// footer separated by a rule.
func FormatReviewComment(body, footer string) string {
	var sb strings.Builder
	sb.WriteString("## DiffWarden Review\n\n")
	sb.WriteString(strings.TrimSpace(body))
	sb.WriteString("\n")
	if footer != "" {
		sb.WriteString("\n---\n")
		sb.WriteString("<sub>")
		sb.WriteString(footer)
		sb.WriteString("</sub>\n")
	}
	return sb.String()
}

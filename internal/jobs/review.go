// Package jobs defines background tasks such as pull request reviews.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/sevigo/diffwarden/internal/core"
	"github.com/sevigo/diffwarden/internal/github"
	"github.com/sevigo/diffwarden/internal/render"
	"github.com/sevigo/diffwarden/internal/review"
	"github.com/sevigo/diffwarden/internal/storage"
)

// ReviewJob reviews a pull request on request and posts the result as a
// comment, reporting progress through a check run.
type ReviewJob struct {
	reviews  *review.Service
	registry *render.Registry
	clients  github.ClientFactory
	store    storage.Store
	logger   *slog.Logger
}

// NewReviewJob creates a ReviewJob. store may be nil, which disables the
// skip of already reviewed commits.
func NewReviewJob(reviews *review.Service, registry *render.Registry, clients github.ClientFactory, store storage.Store, logger *slog.Logger) core.Job {
	if reviews == nil {
		panic("review service cannot be nil")
	}
	if registry == nil {
		panic("session registry cannot be nil")
	}
	if clients == nil {
		panic("GitHub client factory cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &ReviewJob{reviews: reviews, registry: registry, clients: clients, store: store, logger: logger}
}

// Run executes the review job for a GitHub event.
func (j *ReviewJob) Run(ctx context.Context, event *core.GitHubEvent) error {
	if err := j.validateInputs(ctx, event); err != nil {
		j.logger.Error("input validation failed", "error", err)
		return fmt.Errorf("input validation failed: %w", err)
	}

	logger := j.logger.With("repo", event.RepoFullName, "pr", event.PRNumber)
	logger.InfoContext(ctx, "starting review job", "requested_by", event.Commenter, "title", event.PRTitle)

	ghClient, err := j.clients(ctx, event.InstallationID)
	if err != nil {
		return fmt.Errorf("failed to create GitHub client: %w", err)
	}

	pr, err := ghClient.GetPullRequest(ctx, event.RepoOwner, event.RepoName, event.PRNumber)
	if err != nil {
		return fmt.Errorf("failed to get PR details: %w", err)
	}
	if pr.GetHead() == nil || pr.GetHead().GetSHA() == "" {
		return fmt.Errorf("PR %d has no valid head SHA", event.PRNumber)
	}
	event.HeadSHA = pr.GetHead().GetSHA()

	if j.alreadyReviewed(ctx, event) {
		logger.InfoContext(ctx, "head commit already reviewed, skipping", "head_sha", event.HeadSHA)
		return ghClient.CreateComment(ctx, event.RepoOwner, event.RepoName, event.PRNumber,
			fmt.Sprintf("No new commits since the last review of `%s`.", shortSHA(event.HeadSHA)))
	}

	statusUpdater := github.NewStatusUpdater(ghClient)
	checkRunID, err := statusUpdater.InProgress(ctx, event, "Code Review", "Review in progress...")
	if err != nil {
		return fmt.Errorf("failed to set in-progress status: %w", err)
	}

	repoCfg := review.LoadPullRequestConfig(ctx, ghClient, event.RepoOwner, event.RepoName, event.HeadSHA, logger)

	changes, err := review.CollectPullRequest(ctx, ghClient, event.RepoOwner, event.RepoName, event.PRNumber, repoCfg, logger)
	if errors.Is(err, review.ErrNoPullRequestChanges) {
		logger.InfoContext(ctx, "nothing to review")
		return statusUpdater.Completed(ctx, event, checkRunID, "neutral", "Nothing to Review", "No reviewable changes after exclusions.")
	}
	if err != nil {
		j.updateStatusOnError(ctx, statusUpdater, event, checkRunID, "Failed to collect pull request changes")
		return err
	}

	instructions := repoCfg.CustomInstructions
	if event.Instructions != "" {
		instructions = append(slices.Clip(instructions), event.Instructions)
	}
	rev, err := j.reviews.Prepare(review.Input{
		Diff:               changes.Diff,
		Source:             core.SourcePullRequest,
		RepoFullName:       event.RepoFullName,
		PRNumber:           event.PRNumber,
		HeadSHA:            event.HeadSHA,
		CustomInstructions: instructions,
	})
	if err != nil {
		j.updateStatusOnError(ctx, statusUpdater, event, checkRunID, "Review backend is not configured")
		return fmt.Errorf("failed to prepare review: %w", err)
	}

	session := j.registry.Begin(sessionKey(event))
	defer j.registry.End(session)

	surface := github.NewCommentSurface(ghClient, event)
	if err := session.Attach(surface); err != nil {
		j.updateStatusOnError(ctx, statusUpdater, event, checkRunID, "Failed to open review surface")
		return fmt.Errorf("failed to attach comment surface: %w", err)
	}

	text, err := rev.Run(ctx, session)
	if err != nil {
		j.updateStatusOnError(ctx, statusUpdater, event, checkRunID, "Failed to generate review")
		return fmt.Errorf("failed to generate review: %w", err)
	}

	onDiff, offDiff := ValidateLineReferences(logger, ExtractLineReferences(text), changes.ValidLines)
	footer := reviewFooter(rev, len(onDiff), len(offDiff))

	if err := surface.Publish(ctx, footer); err != nil {
		j.updateStatusOnError(ctx, statusUpdater, event, checkRunID, "Failed to post review comment")
		return err
	}

	summary := fmt.Sprintf("Review by %s finished.", rev.ProviderName())
	if err := statusUpdater.Completed(ctx, event, checkRunID, "success", "Review Complete", summary); err != nil {
		return fmt.Errorf("failed to update completion status: %w", err)
	}

	logger.InfoContext(ctx, "review job completed", "line_refs_on_diff", len(onDiff), "line_refs_off_diff", len(offDiff))
	return nil
}

// validateInputs ensures the event contains all required fields.
func (j *ReviewJob) validateInputs(ctx context.Context, event *core.GitHubEvent) error {
	if ctx == nil {
		return fmt.Errorf("context cannot be nil")
	}
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if event.RepoOwner == "" {
		return fmt.Errorf("repository owner cannot be empty")
	}
	if event.RepoName == "" {
		return fmt.Errorf("repository name cannot be empty")
	}
	if event.RepoFullName == "" {
		return fmt.Errorf("repository full name cannot be empty")
	}
	if event.PRNumber <= 0 {
		return fmt.Errorf("pull request number must be positive, got: %d", event.PRNumber)
	}
	if event.InstallationID <= 0 {
		return fmt.Errorf("installation ID must be positive, got: %d", event.InstallationID)
	}
	return nil
}

func (j *ReviewJob) alreadyReviewed(ctx context.Context, event *core.GitHubEvent) bool {
	if j.store == nil {
		return false
	}
	latest, err := j.store.GetLatestReviewForPR(ctx, event.RepoFullName, event.PRNumber)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			j.logger.WarnContext(ctx, "failed to look up previous review", "error", err)
		}
		return false
	}
	return latest.HeadSHA == event.HeadSHA && latest.Status == core.StatusCompleted
}

func (j *ReviewJob) updateStatusOnError(ctx context.Context, su github.StatusUpdater, event *core.GitHubEvent, checkRunID int64, title string) {
	if err := su.Completed(context.WithoutCancel(ctx), event, checkRunID, "failure", title, "See server logs for details."); err != nil {
		j.logger.Error("failed to update failure status", "error", err, "title", title)
	}
}

func sessionKey(event *core.GitHubEvent) string {
	return fmt.Sprintf("%s#%d", event.RepoFullName, event.PRNumber)
}

func reviewFooter(rev *review.Review, onDiff, offDiff int) string {
	footer := rev.ProviderName()
	if model := rev.Model(); model != "" {
		footer += " · " + model
	}
	if total := onDiff + offDiff; total > 0 {
		footer += fmt.Sprintf(" · %d of %d line references point at changed lines", onDiff, total)
	}
	return footer
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}

package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/sevigo/diffwarden/internal/config"
	"github.com/sevigo/diffwarden/internal/core"
	"github.com/sevigo/diffwarden/internal/github"
	"github.com/sevigo/diffwarden/internal/review"
)

// PrepareStaged collects the staged changes of the repository containing
// path. It returns review.ErrNoStagedChanges when there is nothing to review.
func (r *Reviewer) PrepareStaged(ctx context.Context, path string) (*review.Review, error) {
	root, err := r.Git.Root(path)
	if err != nil {
		return nil, err
	}

	repoCfg, err := config.LoadRepoConfig(root)
	switch {
	case errors.Is(err, config.ErrConfigNotFound):
	case err != nil:
		r.Logger.WarnContext(ctx, "ignoring invalid repository config", "path", root, "error", err)
		repoCfg = core.DefaultRepoConfig()
	}

	diff, err := review.CollectStaged(ctx, r.Git, root, repoCfg, r.Logger)
	if err != nil {
		return nil, err
	}

	head, err := r.Git.GetHeadSHA(ctx, root)
	if err != nil {
		r.Logger.DebugContext(ctx, "could not resolve HEAD", "error", err)
	}

	return r.Reviews.Prepare(review.Input{
		Diff:               diff,
		Source:             core.SourceStaged,
		RepoFullName:       filepath.Base(root),
		HeadSHA:            head,
		CustomInstructions: repoCfg.CustomInstructions,
	})
}

// PreparePullRequest collects the changes of a pull request through client.
// The returned event identifies the pull request and its head commit.
func (r *Reviewer) PreparePullRequest(ctx context.Context, client github.Client, owner, repo string, number int) (*review.Review, *core.GitHubEvent, error) {
	pr, err := client.GetPullRequest(ctx, owner, repo, number)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch PR: %w", err)
	}

	event := &core.GitHubEvent{
		RepoOwner:    owner,
		RepoName:     repo,
		RepoFullName: owner + "/" + repo,
		PRNumber:     number,
		PRTitle:      pr.GetTitle(),
		HeadSHA:      pr.GetHead().GetSHA(),
	}

	repoCfg := review.LoadPullRequestConfig(ctx, client, owner, repo, event.HeadSHA, r.Logger)
	changes, err := review.CollectPullRequest(ctx, client, owner, repo, number, repoCfg, r.Logger)
	if err != nil {
		return nil, event, err
	}

	rev, err := r.Reviews.Prepare(review.Input{
		Diff:               changes.Diff,
		Source:             core.SourcePullRequest,
		RepoFullName:       event.RepoFullName,
		PRNumber:           number,
		HeadSHA:            event.HeadSHA,
		CustomInstructions: repoCfg.CustomInstructions,
	})
	return rev, event, err
}

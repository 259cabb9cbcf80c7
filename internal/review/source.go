package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/sevigo/diffwarden/internal/config"
	"github.com/sevigo/diffwarden/internal/core"
	"github.com/sevigo/diffwarden/internal/diff"
	"github.com/sevigo/diffwarden/internal/github"
)

var (
	// ErrNoStagedChanges is informational: there is nothing to review and no
	// surface should be opened.
	ErrNoStagedChanges = errors.New("no staged changes found")
	// ErrNoPullRequestChanges is returned for a pull request without
	// reviewable patches.
	ErrNoPullRequestChanges = errors.New("pull request has no reviewable changes")
)

const maxConcurrentDiffs = 8

// StagedRepository is the git access needed to review staged changes.
type StagedRepository interface {
	StagedFiles(ctx context.Context, repoPath string) ([]string, error)
	StagedDiff(ctx context.Context, repoPath, file string) (string, error)
}

// CollectStaged annotates the staged diff of every file not excluded by
// repoCfg and joins them in path order.
func CollectStaged(ctx context.Context, repo StagedRepository, repoPath string, repoCfg *core.RepoConfig, logger *slog.Logger) (string, error) {
	files, err := repo.StagedFiles(ctx, repoPath)
	if err != nil {
		return "", fmt.Errorf("failed to list staged files: %w", err)
	}

	files = filterFiles(files, repoCfg, logger)
	if len(files) == 0 {
		return "", ErrNoStagedChanges
	}

	annotated := make([]string, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentDiffs)
	for i, file := range files {
		g.Go(func() error {
			patch, err := repo.StagedDiff(gctx, repoPath, file)
			if err != nil {
				return fmt.Errorf("failed to diff %s: %w", file, err)
			}
			annotated[i] = diff.Annotate(patch, logger.With("file", file))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	joined := joinNonEmpty(annotated)
	if joined == "" {
		return "", ErrNoStagedChanges
	}
	logger.InfoContext(ctx, "collected staged changes", "files", len(files))
	return joined, nil
}

// PullRequestChanges is the annotated diff of a pull request together with
// the new-side line numbers present in each file's patch.
type PullRequestChanges struct {
	Diff       string
	ValidLines map[string]map[int]struct{}
}

// CollectPullRequest annotates the patches of a pull request. GitHub returns
// hunks without file headers, so they are added here.
func CollectPullRequest(ctx context.Context, client github.Client, owner, repo string, number int, repoCfg *core.RepoConfig, logger *slog.Logger) (*PullRequestChanges, error) {
	files, err := client.GetChangedFiles(ctx, owner, repo, number)
	if err != nil {
		return nil, fmt.Errorf("failed to list changed files: %w", err)
	}

	changes := &PullRequestChanges{ValidLines: make(map[string]map[int]struct{})}
	var annotated []string
	for _, file := range files {
		if file.Patch == "" {
			logger.DebugContext(ctx, "skipping file without patch", "file", file.Filename, "status", file.Status)
			continue
		}
		if repoCfg.Excludes(file.Filename) {
			logger.DebugContext(ctx, "skipping excluded file", "file", file.Filename)
			continue
		}
		lines := diff.AnnotateLines(withFileHeader(file), logger.With("file", file.Filename))
		annotated = append(annotated, diff.Render(lines))
		changes.ValidLines[file.Filename] = diff.NewSideLines(lines)
	}

	if len(annotated) == 0 {
		return nil, ErrNoPullRequestChanges
	}
	changes.Diff = strings.Join(annotated, "\n")
	logger.InfoContext(ctx, "collected pull request changes", "files", len(annotated), "pr", number)
	return changes, nil
}

// LoadPullRequestConfig reads the repository configuration at ref. A missing
// file yields the defaults.
func LoadPullRequestConfig(ctx context.Context, client github.Client, owner, repo, ref string, logger *slog.Logger) *core.RepoConfig {
	data, err := client.GetFileContent(ctx, owner, repo, config.RepoConfigFile, ref)
	if err != nil {
		if !errors.Is(err, github.ErrFileNotFound) {
			logger.WarnContext(ctx, "failed to fetch repository config, using defaults", "error", err)
		}
		return core.DefaultRepoConfig()
	}
	cfg, err := config.ParseRepoConfig(data)
	if err != nil {
		logger.WarnContext(ctx, "invalid repository config, using defaults", "error", err)
		return core.DefaultRepoConfig()
	}
	return cfg
}

func withFileHeader(file github.ChangedFile) string {
	oldName, newName := "a/"+file.Filename, "b/"+file.Filename
	switch file.Status {
	case "added":
		oldName = "/dev/null"
	case "removed":
		newName = "/dev/null"
	case "renamed":
		if file.PreviousFilename != "" {
			oldName = "a/" + file.PreviousFilename
		}
	}
	return "--- " + oldName + "\n+++ " + newName + "\n" + file.Patch
}

func filterFiles(files []string, repoCfg *core.RepoConfig, logger *slog.Logger) []string {
	kept := files[:0:0]
	for _, f := range files {
		if repoCfg.Excludes(f) {
			logger.Debug("skipping excluded file", "file", f)
			continue
		}
		kept = append(kept, f)
	}
	return kept
}

func joinNonEmpty(parts []string) string {
	nonEmpty := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, "\n")
}

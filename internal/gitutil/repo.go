// Package gitutil provides a client for working with local Git repositories.
package gitutil

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
)

// ErrNotRepository is returned when no repository encloses the given path.
var ErrNotRepository = errors.New("not inside a git repository")

// Client handles interacting with Git repositories.
type Client struct {
	Logger *slog.Logger
}

// NewClient returns a new Client instance.
func NewClient(logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{Logger: logger}
}

// Open opens the repository enclosing path, searching parent directories.
func (c *Client) Open(path string) (*git.Repository, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%w: %s", ErrNotRepository, path)
		}
		return nil, fmt.Errorf("failed to open repository at %s: %w", path, err)
	}
	return repo, nil
}

// Root returns the worktree root of the repository enclosing path.
func (c *Client) Root(path string) (string, error) {
	repo, err := c.Open(path)
	if err != nil {
		return "", err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to get worktree: %w", err)
	}
	return filepath.Clean(wt.Filesystem.Root()), nil
}

// StagedFiles lists the slash-separated paths with changes in the index,
// sorted for a stable review order.
func (c *Client) StagedFiles(ctx context.Context, repoPath string) ([]string, error) {
	repo, err := c.Open(repoPath)
	if err != nil {
		return nil, err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}

	status, err := wt.StatusWithOptions(git.StatusOptions{Strategy: git.Preload})
	if err != nil {
		return nil, fmt.Errorf("failed to read worktree status: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var files []string
	for path, st := range status {
		if st.Staging == git.Unmodified || st.Staging == git.Untracked {
			continue
		}
		files = append(files, path)
	}
	sort.Strings(files)

	c.Logger.DebugContext(ctx, "found staged files", "count", len(files))
	return files, nil
}

// StagedDiff returns the unified diff between HEAD and the index for one file.
func (c *Client) StagedDiff(ctx context.Context, repoPath, file string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "-c", "core.quotepath=false", "diff", "--cached", "--no-color", "--no-ext-diff", "--", file)
	cmd.Dir = repoPath
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("git diff --cached %s failed: %s: %w", file, strings.TrimSpace(string(exitErr.Stderr)), err)
		}
		return "", fmt.Errorf("git diff --cached %s failed: %w", file, err)
	}
	return string(out), nil
}

// GetHeadSHA returns the current HEAD SHA of the repository at the given path.
// An unborn branch yields an empty SHA.
func (c *Client) GetHeadSHA(ctx context.Context, path string) (string, error) {
	repo, err := c.Open(path)
	if err != nil {
		return "", err
	}
	head, err := repo.Head()
	if err != nil {
		c.Logger.DebugContext(ctx, "repository has no HEAD", "error", err)
		return "", nil
	}
	return head.Hash().String(), nil
}

// Package github provides functionality for interacting with the GitHub API.
package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/go-github/v73/github"
	"golang.org/x/oauth2"
)

var (
	// ErrFileNotFound is returned by GetFileContent for a missing path.
	ErrFileNotFound = errors.New("file not found in repository")
	// ErrRateLimited wraps primary and secondary rate limit responses.
	ErrRateLimited = errors.New("GitHub API rate limit exceeded")
)

// ChangedFile is one file of a pull request. Patch is empty for binary files
// and for patches GitHub considers too large to return.
type ChangedFile struct {
	Filename         string
	PreviousFilename string
	Status           string
	Patch            string
}

// Client defines the GitHub operations used to review pull requests.
//
//go:generate mockgen -destination=../mocks/mock_github_client.go -package=mocks . Client
type Client interface {
	GetPullRequest(ctx context.Context, owner, repo string, number int) (*github.PullRequest, error)
	GetChangedFiles(ctx context.Context, owner, repo string, number int) ([]ChangedFile, error)
	GetFileContent(ctx context.Context, owner, repo, path, ref string) ([]byte, error)
	CreateComment(ctx context.Context, owner, repo string, number int, body string) error
	CreateCheckRun(ctx context.Context, owner, repo string, opts github.CreateCheckRunOptions) (*github.CheckRun, error)
	UpdateCheckRun(ctx context.Context, owner, repo string, checkRunID int64, opts github.UpdateCheckRunOptions) (*github.CheckRun, error)
}

type gitHubClient struct {
	client *github.Client
	logger *slog.Logger
}

// NewGitHubClient wraps client for the review operations.
func NewGitHubClient(client *github.Client, logger *slog.Logger) Client {
	return &gitHubClient{client: client, logger: logger}
}

// NewPATClient creates a client authenticated with a personal access token.
// An empty token yields an anonymous client, enough for public repositories.
func NewPATClient(ctx context.Context, token string, logger *slog.Logger) Client {
	if token == "" {
		return NewGitHubClient(github.NewClient(nil), logger)
	}
	tc := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	return NewGitHubClient(github.NewClient(tc), logger)
}

// apiError adds the operation to err and marks rate limit responses.
func apiError(err error, op string, args ...any) error {
	msg := fmt.Sprintf(op, args...)
	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return fmt.Errorf("failed to %s: %w: %w", msg, ErrRateLimited, err)
	}
	return fmt.Errorf("failed to %s: %w", msg, err)
}

func (g *gitHubClient) GetPullRequest(ctx context.Context, owner, repo string, number int) (*github.PullRequest, error) {
	pr, _, err := g.client.PullRequests.Get(ctx, owner, repo, number)
	if err != nil {
		return nil, apiError(err, "get pull request %s/%s#%d", owner, repo, number)
	}
	return pr, nil
}

// GetChangedFiles lists every file of a pull request, following pagination.
func (g *gitHubClient) GetChangedFiles(ctx context.Context, owner, repo string, number int) ([]ChangedFile, error) {
	var files []ChangedFile
	opts := &github.ListOptions{PerPage: 100}

	for {
		page, resp, err := g.client.PullRequests.ListFiles(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, apiError(err, "list files of %s/%s#%d", owner, repo, number)
		}
		for _, f := range page {
			files = append(files, ChangedFile{
				Filename:         f.GetFilename(),
				PreviousFilename: f.GetPreviousFilename(),
				Status:           f.GetStatus(),
				Patch:            f.GetPatch(),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	g.logger.DebugContext(ctx, "listed pull request files", "repo", owner+"/"+repo, "pr", number, "count", len(files))
	return files, nil
}

// GetFileContent returns the raw content of path at ref.
func (g *gitHubClient) GetFileContent(ctx context.Context, owner, repo, path, ref string) ([]byte, error) {
	file, _, resp, err := g.client.Repositories.GetContents(ctx, owner, repo, path, &github.RepositoryContentGetOptions{Ref: ref})
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, apiError(err, "get %s at %s", path, ref)
	}
	if file == nil {
		return nil, fmt.Errorf("%s is a directory, not a file", path)
	}
	content, err := file.GetContent()
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return []byte(content), nil
}

func (g *gitHubClient) CreateComment(ctx context.Context, owner, repo string, number int, body string) error {
	if _, _, err := g.client.Issues.CreateComment(ctx, owner, repo, number, &github.IssueComment{Body: &body}); err != nil {
		return apiError(err, "comment on %s/%s#%d", owner, repo, number)
	}
	return nil
}

func (g *gitHubClient) CreateCheckRun(ctx context.Context, owner, repo string, opts github.CreateCheckRunOptions) (*github.CheckRun, error) {
	checkRun, _, err := g.client.Checks.CreateCheckRun(ctx, owner, repo, opts)
	if err != nil {
		return nil, apiError(err, "create check run %q on %s/%s", opts.Name, owner, repo)
	}
	return checkRun, nil
}

func (g *gitHubClient) UpdateCheckRun(ctx context.Context, owner, repo string, checkRunID int64, opts github.UpdateCheckRunOptions) (*github.CheckRun, error) {
	checkRun, _, err := g.client.Checks.UpdateCheckRun(ctx, owner, repo, checkRunID, opts)
	if err != nil {
		return nil, apiError(err, "update check run %d on %s/%s", checkRunID, owner, repo)
	}
	return checkRun, nil
}

// Package core holds the types shared by the review entry points: webhook
// events, background jobs, review records and repository settings.
package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/go-github/v73/github"
)

// ReviewCommand is the pull request comment that requests a review. Text after
// the command is passed to the model as an extra instruction.
const ReviewCommand = "/review"

// ErrNotReviewCommand is returned for comments that do not ask for a review.
var ErrNotReviewCommand = errors.New("comment is not a review command")

// GitHubEvent is the part of a webhook payload a review job needs.
type GitHubEvent struct {
	RepoOwner    string
	RepoName     string
	RepoFullName string

	PRNumber int
	PRTitle  string
	HeadSHA  string

	Commenter      string
	Instructions   string
	InstallationID int64
}

// ParseReviewCommand reports whether body is a review command and returns
// the instruction that follows it, if any.
func ParseReviewCommand(body string) (string, bool) {
	body = strings.TrimSpace(body)
	if len(body) < len(ReviewCommand) || !strings.EqualFold(body[:len(ReviewCommand)], ReviewCommand) {
		return "", false
	}
	rest := body[len(ReviewCommand):]
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' && rest[0] != '\n' && rest[0] != '\r' {
		return "", false
	}
	return strings.TrimSpace(rest), true
}

// EventFromIssueComment converts a "/review" comment on a pull request. The
// head SHA is filled in later by the job.
func EventFromIssueComment(event *github.IssueCommentEvent) (*GitHubEvent, error) {
	if !event.GetIssue().IsPullRequest() {
		return nil, fmt.Errorf("%w: not on a pull request", ErrNotReviewCommand)
	}
	instructions, ok := ParseReviewCommand(event.GetComment().GetBody())
	if !ok {
		return nil, ErrNotReviewCommand
	}

	repo := event.GetRepo()
	owner := repo.GetOwner().GetLogin()
	switch {
	case owner == "" || repo.GetName() == "":
		return nil, errors.New("event has no repository owner or name")
	case event.GetIssue().GetNumber() <= 0:
		return nil, fmt.Errorf("invalid pull request number: %d", event.GetIssue().GetNumber())
	case event.GetComment().GetUser().GetLogin() == "":
		return nil, errors.New("event has no commenter")
	case event.GetInstallation().GetID() == 0:
		return nil, errors.New("event has no installation ID")
	}

	fullName := repo.GetFullName()
	if fullName == "" {
		fullName = owner + "/" + repo.GetName()
	}
	return &GitHubEvent{
		RepoOwner:      owner,
		RepoName:       repo.GetName(),
		RepoFullName:   fullName,
		PRNumber:       event.GetIssue().GetNumber(),
		PRTitle:        event.GetIssue().GetTitle(),
		Commenter:      event.GetComment().GetUser().GetLogin(),
		Instructions:   instructions,
		InstallationID: event.GetInstallation().GetID(),
	}, nil
}

package core

import (
	"testing"

	"github.com/google/go-github/v73/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReviewCommand(t *testing.T) {
	tests := []struct {
		body         string
		wantOK       bool
		instructions string
	}{
		{body: "/review", wantOK: true},
		{body: "  /REVIEW \n", wantOK: true},
		{body: "/review focus on SQL injection", wantOK: true, instructions: "focus on SQL injection"},
		{body: "/review\nplease check tests", wantOK: true, instructions: "please check tests"},
		{body: "/reviewed"},
		{body: "LGTM /review"},
		{body: ""},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			instructions, ok := ParseReviewCommand(tt.body)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.instructions, instructions)
		})
	}
}

func issueComment(body string) *github.IssueCommentEvent {
	return &github.IssueCommentEvent{
		Issue: &github.Issue{
			Number:           github.Ptr(42),
			Title:            github.Ptr("Add feature"),
			PullRequestLinks: &github.PullRequestLinks{URL: github.Ptr("https://api.github.com/repos/sevigo/diffwarden/pulls/42")},
		},
		Comment: &github.IssueComment{
			Body: github.Ptr(body),
			User: &github.User{Login: github.Ptr("octocat")},
		},
		Repo: &github.Repository{
			Name:     github.Ptr("diffwarden"),
			FullName: github.Ptr("sevigo/diffwarden"),
			Owner:    &github.User{Login: github.Ptr("sevigo")},
		},
		Installation: &github.Installation{ID: github.Ptr(int64(99))},
	}
}

func TestEventFromIssueComment(t *testing.T) {
	event, err := EventFromIssueComment(issueComment("/review check naming"))
	require.NoError(t, err)
	assert.Equal(t, &GitHubEvent{
		RepoOwner:      "sevigo",
		RepoName:       "diffwarden",
		RepoFullName:   "sevigo/diffwarden",
		PRNumber:       42,
		PRTitle:        "Add feature",
		Commenter:      "octocat",
		Instructions:   "check naming",
		InstallationID: 99,
	}, event)

	t.Run("Not a command", func(t *testing.T) {
		_, err := EventFromIssueComment(issueComment("LGTM"))
		assert.ErrorIs(t, err, ErrNotReviewCommand)
	})

	t.Run("Plain issue", func(t *testing.T) {
		raw := issueComment("/review")
		raw.Issue.PullRequestLinks = nil
		_, err := EventFromIssueComment(raw)
		assert.ErrorIs(t, err, ErrNotReviewCommand)
	})

	t.Run("Missing installation", func(t *testing.T) {
		raw := issueComment("/review")
		raw.Installation = nil
		_, err := EventFromIssueComment(raw)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotReviewCommand)
	})
}

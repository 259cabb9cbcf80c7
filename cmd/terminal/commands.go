package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sevigo/diffwarden/internal/app"
	"github.com/sevigo/diffwarden/internal/github"
	"github.com/sevigo/diffwarden/internal/gitutil"
	"github.com/sevigo/diffwarden/internal/render"
	"github.com/sevigo/diffwarden/internal/review"
	"github.com/sevigo/diffwarden/internal/wire"
)

func initializeReviewerCmd() tea.Cmd {
	return func() tea.Msg {
		reviewer, cleanup, err := wire.InitializeReviewer()
		if err != nil {
			return reviewerInitializedMsg{err: err}
		}
		return reviewerInitializedMsg{reviewer: reviewer, cleanup: cleanup}
	}
}

func prepareStagedCmd(ctx context.Context, reviewer *app.Reviewer, path string) tea.Cmd {
	return func() tea.Msg {
		rev, err := reviewer.PrepareStaged(ctx, path)
		return reviewPreparedMsg{review: rev, target: "staged changes in " + path, err: err}
	}
}

func preparePullRequestCmd(ctx context.Context, reviewer *app.Reviewer, url string) tea.Cmd {
	return func() tea.Msg {
		owner, repo, number, err := gitutil.ParsePullRequestURL(url)
		if err != nil {
			return reviewPreparedMsg{err: err}
		}
		client := github.NewPATClient(ctx, reviewer.Config.GitHub.Token, reviewer.Logger)
		rev, _, err := reviewer.PreparePullRequest(ctx, client, owner, repo, number)
		return reviewPreparedMsg{review: rev, target: fmt.Sprintf("%s/%s#%d", owner, repo, number), err: err}
	}
}

func runReviewCmd(ctx context.Context, rev *review.Review, session *render.Session) tea.Cmd {
	return func() tea.Msg {
		text, err := rev.Run(ctx, session)
		return reviewDoneMsg{session: session, text: text, err: err}
	}
}

func loadHistoryCmd(reviewer *app.Reviewer, limit int) tea.Cmd {
	return func() tea.Msg {
		reviews, err := reviewer.Store.ListReviews(context.Background(), limit)
		return historyLoadedMsg{reviews: reviews, err: err}
	}
}

func loadReviewCmd(reviewer *app.Reviewer, id int64) tea.Cmd {
	return func() tea.Msg {
		rev, err := reviewer.Store.GetReview(context.Background(), id)
		return reviewLoadedMsg{review: rev, err: err}
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sevigo/diffwarden/internal/app"
	"github.com/sevigo/diffwarden/internal/github"
	"github.com/sevigo/diffwarden/internal/gitutil"
	"github.com/sevigo/diffwarden/internal/render"
	"github.com/sevigo/diffwarden/internal/review"
	"github.com/sevigo/diffwarden/internal/wire"
)

var (
	prURL   string
	post    bool
	rawOnly bool
)

var reviewCmd = &cobra.Command{
	Use:   "review [path]",
	Short: "Review staged changes or a GitHub pull request",
	Long: `Review the staged changes of the repository containing path (default: the
current directory), or a GitHub pull request with --pr.

The review streams to stdout as it arrives and is rendered as Markdown at the end.

Examples:
  diffwarden review
  diffwarden review --provider openai ./service
  diffwarden review --pr https://github.com/owner/repo/pull/123 --post`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReview,
}

func init() { //nolint:gochecknoinits // Cobra command registration
	reviewCmd.Flags().StringVar(&prURL, "pr", "", "pull request to review instead of staged changes (URL or owner/repo#N)")
	reviewCmd.Flags().BoolVar(&post, "post", false, "post the review as a pull request comment (with --pr)")
	reviewCmd.Flags().BoolVar(&rawOnly, "raw", false, "skip the final Markdown rendering")
	reviewCmd.Flags().String("prompt", "", "override the configured review instruction")
	if err := viper.BindPFlag("prompt", reviewCmd.Flags().Lookup("prompt")); err != nil {
		panic(err)
	}
	rootCmd.AddCommand(reviewCmd)
}

func runReview(cmd *cobra.Command, args []string) error {
	if post && prURL == "" {
		return errors.New("--post requires --pr")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	reviewer, cleanup, err := wire.InitializeReviewer()
	if err != nil {
		return fmt.Errorf("failed to initialize: %w\n\nTip: Check that your config.yaml exists and is valid", err)
	}
	defer cleanup()

	if prURL != "" {
		return reviewPullRequest(ctx, reviewer)
	}

	path := "."
	if len(args) == 1 {
		path = args[0]
	}
	rev, err := reviewer.PrepareStaged(ctx, path)
	if errors.Is(err, review.ErrNoStagedChanges) {
		infoColor.Println("No staged changes found.")
		return nil
	}
	if err != nil {
		return err
	}

	_, err = streamReview(ctx, reviewer, rev, "staged changes")
	return err
}

func reviewPullRequest(ctx context.Context, reviewer *app.Reviewer) error {
	owner, repo, number, err := gitutil.ParsePullRequestURL(prURL)
	if err != nil {
		return fmt.Errorf("%w\n\nExpected format: https://github.com/owner/repo/pull/123", err)
	}

	token := reviewer.Config.GitHub.Token
	if token == "" {
		dimColor.Println("No GitHub token configured, using anonymous access.")
	}
	client := github.NewPATClient(ctx, token, reviewer.Logger)

	rev, event, err := reviewer.PreparePullRequest(ctx, client, owner, repo, number)
	if errors.Is(err, review.ErrNoPullRequestChanges) {
		infoColor.Println("Pull request has no reviewable changes.")
		return nil
	}
	if err != nil {
		return err
	}

	target := fmt.Sprintf("%s#%d @ %s", event.RepoFullName, number, truncateSHA(event.HeadSHA))
	text, err := streamReview(ctx, reviewer, rev, target)
	if err != nil || !post {
		return err
	}

	footer := rev.ProviderName()
	if model := rev.Model(); model != "" {
		footer += " · " + model
	}
	if err := client.CreateComment(ctx, owner, repo, number, github.FormatReviewComment(text, footer)); err != nil {
		return fmt.Errorf("failed to post review comment: %w", err)
	}
	successColor.Println("✓ Review posted to the pull request.")
	return nil
}

// streamReview prints the review as it arrives and renders it as Markdown
// once complete.
func streamReview(ctx context.Context, reviewer *app.Reviewer, rev *review.Review, target string) (string, error) {
	header := rev.ProviderName()
	if model := rev.Model(); model != "" {
		header += " · " + model
	}
	titleColor.Printf("DiffWarden review of %s\n", target)
	dimColor.Printf("%s\n\n", header)

	session := reviewer.Registry.Start()
	defer reviewer.Registry.End(session)

	surface := render.NewWriterSurface(os.Stdout)
	if err := session.Attach(surface); err != nil {
		return "", err
	}

	start := time.Now()
	text, err := rev.Run(ctx, session)
	fmt.Println()
	if err != nil {
		if errors.Is(err, context.Canceled) {
			warnColor.Println("Review cancelled.")
			return text, nil
		}
		return text, err
	}

	if !rawOnly {
		renderMarkdown(surface.Content())
	}
	dimColor.Printf("\nDone in %s.\n", time.Since(start).Round(100*time.Millisecond))
	return text, nil
}

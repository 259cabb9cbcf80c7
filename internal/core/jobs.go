package core

import (
	"context"
)

// JobDispatcher queues webhook-triggered reviews. Dispatch fails instead of
// blocking when the queue is full.
type JobDispatcher interface {
	Dispatch(ctx context.Context, event *GitHubEvent) error
}

// Job reviews the pull request named by event.
type Job interface {
	Run(ctx context.Context, event *GitHubEvent) error
}

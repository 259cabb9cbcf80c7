package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sevigo/diffwarden/internal/core"
)

const (
	queueSize  = 100
	jobTimeout = 10 * time.Minute
)

// ErrQueueFull is returned by Dispatch when no more jobs can be queued.
var ErrQueueFull = errors.New("job queue is full, cannot accept new review job")

// Dispatcher implements core.JobDispatcher with a fixed pool of workers
// draining a bounded queue.
type Dispatcher struct {
	job        core.Job
	jobQueue   chan *core.GitHubEvent
	maxWorkers int
	wg         sync.WaitGroup
	stopOnce   sync.Once
	logger     *slog.Logger
}

// NewDispatcher starts maxWorkers workers. If maxWorkers is 0 or negative,
// it defaults to 1.
func NewDispatcher(job core.Job, maxWorkers int, logger *slog.Logger) *Dispatcher {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	d := &Dispatcher{
		job:        job,
		maxWorkers: maxWorkers,
		jobQueue:   make(chan *core.GitHubEvent, queueSize),
		logger:     logger,
	}
	for i := range d.maxWorkers {
		d.wg.Add(1)
		go d.worker(i)
	}
	return d
}

func (d *Dispatcher) worker(workerID int) {
	defer d.wg.Done()
	d.logger.Debug("starting review worker", "id", workerID)

	for event := range d.jobQueue {
		d.process(workerID, event)
	}

	d.logger.Debug("shutting down review worker", "id", workerID)
}

func (d *Dispatcher) process(workerID int, event *core.GitHubEvent) {
	d.logger.Info("worker processing job", "worker_id", workerID, "repo", event.RepoFullName, "pr", event.PRNumber)

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if err := d.job.Run(ctx, event); err != nil {
		d.logger.Error("review job failed",
			"repo", event.RepoFullName,
			"pr", event.PRNumber,
			"error", err,
		)
	}
}

// Dispatch queues a GitHub event for processing by a worker.
func (d *Dispatcher) Dispatch(_ context.Context, event *core.GitHubEvent) error {
	d.logger.Info("queuing review job", "repo", event.RepoFullName, "pr", event.PRNumber)

	select {
	case d.jobQueue <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop closes the queue and waits for queued jobs to finish. Dispatch must
// not be called afterwards.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		d.logger.Info("stopping dispatcher and waiting for jobs to finish")
		close(d.jobQueue)
		d.wg.Wait()
		d.logger.Info("all review jobs have finished")
	})
}

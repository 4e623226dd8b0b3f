// Package work runs background jobs (sms notifications, stats reports) on an
// in-memory queue, with gocron for delayed & periodic jobs.
package work

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const MAX_CONCURRENCY = 2

type WorkerPoolAdapter struct {
	cronScheduler *gocron.Scheduler
	pool          *WorkerPool
	logg          *zap.SugaredLogger

	// retryDelayInSeconds is how long a failed job waits before it's retried
	retryDelayInSeconds int
}

// NewCronScheduler returns a scheduler in the given time zone, falling back to UTC
func NewCronScheduler(timeZoneArg string) *gocron.Scheduler {
	timeZone, err := time.LoadLocation(timeZoneArg)
	if err != nil {
		timeZone = time.UTC
	}
	scheduler := gocron.NewScheduler(timeZone)
	scheduler.TagsUnique()
	return scheduler
}

func NewWorkerAdapter(timeZoneArg string, retryDelayInSeconds int, logg *zap.SugaredLogger) *WorkerPoolAdapter {
	adapter := &WorkerPoolAdapter{
		cronScheduler:       NewCronScheduler(timeZoneArg),
		pool:                newWorkerPool(MAX_CONCURRENCY, DEFAULT_QUEUE_SIZE, logg),
		logg:                logg,
		retryDelayInSeconds: retryDelayInSeconds,
	}

	if retryDelayInSeconds > 0 {
		adapter.pool.requeue = adapter.requeueLater
	}

	return adapter
}

// Start starts the cron scheduler & worker pool
func (adapter *WorkerPoolAdapter) Start() error {
	adapter.logg.Info("Starting cron scheduler & worker pool")
	adapter.cronScheduler.StartAsync()
	adapter.pool.start()

	return nil
}

// Stop stops the cron scheduler & worker pool
func (adapter *WorkerPoolAdapter) Stop() error {
	adapter.logg.Info("Stopping cron scheduler & worker pool")
	adapter.cronScheduler.Stop()
	adapter.pool.stop()

	return nil
}

// Register binds a name to a handler.
func (adapter *WorkerPoolAdapter) Register(name string, handler Handler) error {
	return adapter.pool.registerHandler(name, handler)
}

// Perform sends a new job to the queue, now - to be executed as soon as a worker is available
func (adapter *WorkerPoolAdapter) Perform(job JobParams) error {
	adapter.logg.Infof("Enqueuing job: %v", job.Name)

	err := adapter.pool.enqueue(job)
	if errors.Is(err, ErrDuplicateJob) {
		adapter.logg.Warnf("Duplicate job already in queue for: %v", job.Name)
		return nil
	}

	if err != nil {
		return errors.Wrapf(err, "error enqueuing job: %v", job.Name)
	}

	return nil
}

// PeriodicallyPerform adds a job to the queue (to be executed)
// periodically, based on the 'cronExpression' expression provided
func (adapter *WorkerPoolAdapter) PeriodicallyPerform(cronExpression string, job JobParams) error {
	_, err := adapter.cronScheduler.Cron(cronExpression).Tag(job.Name).
		Do(
			func(job JobParams) {
				err := adapter.Perform(job)
				if err != nil {
					adapter.logg.Error(err)
				}
			},
			job,
		)
	if err != nil {
		return errors.Wrapf(err, "error scheduling periodic job: %v", job.Name)
	}
	return nil
}

func (adapter *WorkerPoolAdapter) Stats() JobsStats {
	return adapter.pool.jobsStats()
}

// requeueLater puts a failed job back in the queue after the retry delay
func (adapter *WorkerPoolAdapter) requeueLater(job *Job) {
	err := adapter.runOnceIn(adapter.retryDelayInSeconds, func() { adapter.pool.push(job) })
	if err != nil {
		adapter.logg.Error(err)
		adapter.pool.push(job)
	}
}

// runOnceIn runs task a single time, 'seconds' from now
func (adapter *WorkerPoolAdapter) runOnceIn(seconds int, task func()) error {
	if seconds <= 0 {
		return fmt.Errorf("delay must be positive, got %v seconds", seconds)
	}

	delay := time.Duration(seconds) * time.Second
	_, err := adapter.cronScheduler.Every(delay).
		StartAt(time.Now().Add(delay)).
		LimitRunsTo(1).
		Tag(makeIdentifier()).
		Do(task)

	return err
}

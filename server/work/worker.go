package work

import (
	"fmt"
	"time"

	"github.com/Daskott/safecall/colors"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	ENQUEUED_JOB    = "enqueued"
	IN_PROGRESS_JOB = "in-progress"
	SUCCESSFUL_JOB  = "successful"
	DEAD_JOB        = "dead"
	MAX_FAILS       = 4
)

var (
	ErrDuplicateHandler = errors.New("handler with provided name already mapped")
	ErrDuplicateJob     = errors.New("job with provided name already enqueued or in-progress")
	ErrQueueFull        = errors.New("job queue is full")
	ErrMissingHandler   = errors.New("no handler mapped to job")
)

type JobParams struct {
	Name    string
	Handler string
	Unique  bool
	Args    map[string]interface{}
}

type Handler func(map[string]interface{}) error

// Job is a JobParams that made it into the queue
type Job struct {
	ID         string
	Name       string
	Handler    string
	Unique     bool
	Args       map[string]interface{}
	Status     string
	Fails      int
	LastError  string
	EnqueuedAt time.Time
}

type worker struct {
	id       string
	pool     *WorkerPool
	stopChan chan struct{}
	logg     *zap.SugaredLogger
}

func newWorker(pool *WorkerPool, logg *zap.SugaredLogger) *worker {
	return &worker{
		id:       makeIdentifier(),
		pool:     pool,
		stopChan: make(chan struct{}),
		logg:     logg,
	}
}

// start starts the worker loop that pulls jobs from the queue & process them
func (w *worker) start() {
	go w.loop()
}

func (w *worker) stop() {
	w.stopChan <- struct{}{}
}

func (w *worker) loop() {
	w.logInfof("starting worker")
	for {
		select {
		case <-w.stopChan:
			w.logInfof("stopping worker")
			return
		case job := <-w.pool.queue:
			if !w.pool.claim(job) {
				continue
			}
			w.processJob(job)
		}
	}
}

func (w *worker) processJob(job *Job) {
	handler, ok := w.pool.handler(job.Handler)
	if !ok {
		// Retrying won't help, a handler can't show up later
		w.logError(errors.Wrapf(ErrMissingHandler, "job=%v handler=%v", job.Name, job.Handler))
		w.pool.finish(job, DEAD_JOB, ErrMissingHandler)
		return
	}

	err := runHandler(handler, job.Args)
	if err != nil {
		w.logError(err)
		w.determineFailedJobFate(job, err)
		return
	}

	w.pool.finish(job, SUCCESSFUL_JOB, nil)
	w.logInfof("job with id=%v completed with status=%v", job.ID, SUCCESSFUL_JOB)
}

// determineFailedJobFate marks jobs with Fails >= MAX_FAILS as dead, everything
// else goes back to the queue to be retried
func (w *worker) determineFailedJobFate(job *Job, runError error) {
	job.Fails++
	job.LastError = runError.Error()

	if job.Fails >= MAX_FAILS {
		w.pool.finish(job, DEAD_JOB, runError)
		w.logInfof("job with id=%v completed with status=%v after %v fails", job.ID, DEAD_JOB, job.Fails)
		return
	}

	w.pool.retry(job)
	w.logInfof("job with id=%v failed %v time(s), requeued", job.ID, job.Fails)
}

// runHandler turns a panicking handler into a failed run
func runHandler(handler Handler, args map[string]interface{}) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return handler(args)
}

func (w *worker) logInfof(template string, args ...interface{}) {
	prefix := colors.Yellow((fmt.Sprintf("[worker %v] ", w.id)))
	w.logg.Infof(prefix+template, args...)
}

func (w *worker) logError(args ...interface{}) {
	prefix := colors.Red((fmt.Sprintf("[worker %v] ", w.id)))
	w.logg.Error(append([]interface{}{prefix}, args...)...)
}

func makeIdentifier() string {
	return uuid.New().String()[:8]
}

package work

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DEFAULT_QUEUE_SIZE = 256

type JobsStats struct {
	Enqueued   int `json:"enqueued"`
	InProgress int `json:"inProgress"`
	Successful int `json:"successful"`
	Dead       int `json:"dead"`
}

type WorkerPool struct {
	queue   chan *Job
	workers []*worker
	logg    *zap.SugaredLogger

	mu       sync.Mutex
	handlers map[string]Handler
	// active holds unique jobs that are enqueued or in-progress, by name
	active  map[string]*Job
	stats   JobsStats
	started bool

	// requeue puts a failed job back in line, the adapter swaps it for a delayed one
	requeue func(job *Job)
}

func newWorkerPool(concurrency, queueSize int, logg *zap.SugaredLogger) *WorkerPool {
	wp := WorkerPool{
		queue:    make(chan *Job, queueSize),
		logg:     logg,
		handlers: make(map[string]Handler),
		active:   make(map[string]*Job),
	}
	wp.requeue = wp.push

	for i := 0; i < concurrency; i++ {
		wp.workers = append(wp.workers, newWorker(&wp, logg))
	}

	return &wp
}

// registerHandler binds a name to a job handler for all workers in pool
func (wp *WorkerPool) registerHandler(name string, handler Handler) error {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if _, ok := wp.handlers[name]; ok {
		return ErrDuplicateHandler
	}
	wp.handlers[name] = handler
	return nil
}

func (wp *WorkerPool) handler(name string) (Handler, bool) {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	handler, ok := wp.handlers[name]
	return handler, ok
}

// enqueue adds a job to the queue(to be executed). Unique jobs are rejected with
// ErrDuplicateJob while one with the same name is enqueued or in-progress.
func (wp *WorkerPool) enqueue(params JobParams) error {
	if strings.TrimSpace(params.Name) == "" || strings.TrimSpace(params.Handler) == "" {
		return fmt.Errorf("both a name & handler is required for a job")
	}

	job := &Job{
		ID:         uuid.New().String(),
		Name:       params.Name,
		Handler:    params.Handler,
		Unique:     params.Unique,
		Args:       params.Args,
		Status:     ENQUEUED_JOB,
		EnqueuedAt: time.Now(),
	}

	wp.mu.Lock()
	if job.Unique {
		if _, ok := wp.active[job.Name]; ok {
			wp.mu.Unlock()
			return ErrDuplicateJob
		}
		wp.active[job.Name] = job
	}
	wp.stats.Enqueued++
	wp.mu.Unlock()

	select {
	case wp.queue <- job:
		return nil
	default:
		wp.mu.Lock()
		wp.stats.Enqueued--
		if job.Unique {
			delete(wp.active, job.Name)
		}
		wp.mu.Unlock()
		return ErrQueueFull
	}
}

// push sends a job that is already counted as enqueued back to the queue
func (wp *WorkerPool) push(job *Job) {
	select {
	case wp.queue <- job:
	default:
		wp.logg.Errorf("dropping job with id=%v, %v", job.ID, ErrQueueFull)
		wp.finish(job, DEAD_JOB, ErrQueueFull)
	}
}

// claim moves a job from enqueued to in-progress
func (wp *WorkerPool) claim(job *Job) bool {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if job.Status != ENQUEUED_JOB {
		return false
	}
	job.Status = IN_PROGRESS_JOB
	wp.stats.Enqueued--
	wp.stats.InProgress++
	return true
}

func (wp *WorkerPool) retry(job *Job) {
	wp.mu.Lock()
	if job.Status == IN_PROGRESS_JOB {
		wp.stats.InProgress--
	}
	job.Status = ENQUEUED_JOB
	wp.stats.Enqueued++
	requeue := wp.requeue
	wp.mu.Unlock()

	requeue(job)
}

// finish records the final status of a job & frees its name for unique jobs
func (wp *WorkerPool) finish(job *Job, status string, err error) {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	switch job.Status {
	case IN_PROGRESS_JOB:
		wp.stats.InProgress--
	case ENQUEUED_JOB:
		wp.stats.Enqueued--
	}

	job.Status = status
	if err != nil {
		job.LastError = err.Error()
	}

	switch status {
	case SUCCESSFUL_JOB:
		wp.stats.Successful++
	case DEAD_JOB:
		wp.stats.Dead++
	}

	if job.Unique && wp.active[job.Name] == job {
		delete(wp.active, job.Name)
	}
}

func (wp *WorkerPool) jobsStats() JobsStats {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	return wp.stats
}

// start starts all workers in pool i.e the workes can start processing jobs
func (wp *WorkerPool) start() {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wp.started {
		return
	}
	wp.started = true

	for _, worker := range wp.workers {
		worker.start()
	}
}

// stop stops all workers in pool i.e jobs will stop being processed
func (wp *WorkerPool) stop() {
	wp.mu.Lock()
	if !wp.started {
		wp.mu.Unlock()
		return
	}
	wp.started = false
	wp.mu.Unlock()

	wg := sync.WaitGroup{}
	for _, w := range wp.workers {
		wg.Add(1)
		go func(w *worker) {
			w.stop()
			wg.Done()
		}(w)
	}
	wg.Wait()
}

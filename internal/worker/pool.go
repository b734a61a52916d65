// internal/worker/pool.go
package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"reggie/internal/metrics"
)

// ErrStopped is returned by Submit once the pool is stopping.
var ErrStopped = errors.New("worker pool stopped")

// Job is a unit of work run by one worker.
type Job func()

// WorkerPool runs submitted jobs on a fixed number of goroutines. Submit
// hands a job directly to an idle worker, so an accepted job always runs
// even if Stop is called right after.
type WorkerPool struct {
	name    string
	workers int
	jobs    chan Job
	stopCh  chan struct{}
	wg      sync.WaitGroup
	start   sync.Once
	stop    sync.Once
	log     zerolog.Logger
}

func NewWorkerPool(name string, workerCount int, log zerolog.Logger) *WorkerPool {
	if workerCount <= 0 {
		workerCount = 1
	}
	return &WorkerPool{
		name:    name,
		workers: workerCount,
		jobs:    make(chan Job),
		stopCh:  make(chan struct{}),
		log:     log.With().Str("pool", name).Logger(),
	}
}

func (wp *WorkerPool) Start() {
	wp.start.Do(func() {
		wp.log.Info().Int("workers", wp.workers).Msg("starting worker pool")
		for i := 0; i < wp.workers; i++ {
			wp.wg.Add(1)
			go wp.run()
		}
	})
}

func (wp *WorkerPool) run() {
	defer wp.wg.Done()
	active := metrics.WorkerActive.WithLabelValues(wp.name)
	active.Inc()
	defer active.Dec()

	for {
		select {
		case <-wp.stopCh:
			return
		case job := <-wp.jobs:
			wp.runJob(job)
			metrics.WorkerProcessed.WithLabelValues(wp.name).Inc()
		}
	}
}

func (wp *WorkerPool) runJob(job Job) {
	defer func() {
		if r := recover(); r != nil {
			wp.log.Error().Interface("panic", r).Msg("job panicked")
		}
	}()
	job()
}

// Submit blocks until a worker takes job, ctx is done or the pool stops.
func (wp *WorkerPool) Submit(ctx context.Context, job Job) error {
	select {
	case <-wp.stopCh:
		return ErrStopped
	default:
	}
	select {
	case wp.jobs <- job:
		return nil
	case <-wp.stopCh:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop lets running jobs finish and waits for the workers to exit.
func (wp *WorkerPool) Stop() {
	wp.stop.Do(func() {
		close(wp.stopCh)
		wp.wg.Wait()
		wp.log.Info().Msg("worker pool stopped")
	})
}

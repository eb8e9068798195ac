package sweep

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Shravan-1908/projectile-motion-simulator/internal/projectile"
)

// evaluateJob is a unit of work for the worker pool.
type evaluateJob struct {
	index  int
	launch projectile.Launch
}

// WorkerPool manages a fixed number of goroutines for parallel launch evaluation.
type WorkerPool struct {
	workers int
	logger  *slog.Logger
}

// NewWorkerPool creates a worker pool with the given number of workers.
func NewWorkerPool(workers int, logger *slog.Logger) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	return &WorkerPool{
		workers: workers,
		logger:  logger,
	}
}

// Workers returns the pool size.
func (wp *WorkerPool) Workers() int {
	return wp.workers
}

// EvaluateBatch evaluates every launch and, when step > 0, samples its
// trajectory. The returned slice is indexed like launches; entries that were
// not reached before ctx was cancelled carry ctx.Err().
func (wp *WorkerPool) EvaluateBatch(ctx context.Context, launches []projectile.Launch, step float64, withPoints bool) ([]Result, int, int) {
	if len(launches) == 0 {
		return nil, 0, 0
	}

	jobs := make(chan evaluateJob, wp.workers*2)
	results := make(chan Result, wp.workers*2)

	// Start workers.
	var wg sync.WaitGroup
	for i := 0; i < wp.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				result := evaluateSingle(job, step, withPoints)
				select {
				case results <- result:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	// Feed jobs in a goroutine.
	go func() {
		defer close(jobs)
		for i, l := range launches {
			select {
			case jobs <- evaluateJob{index: i, launch: l}:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Close results when all workers are done.
	go func() {
		wg.Wait()
		close(results)
	}()

	out := make([]Result, len(launches))
	done := make([]bool, len(launches))
	var successCount, errorCount int

	for result := range results {
		out[result.Index] = result
		done[result.Index] = true
		if result.Err != nil {
			errorCount++
			wp.logger.Warn("evaluation failed",
				"index", result.Index,
				"name", result.Launch.Name,
				"error", result.Err,
			)
			continue
		}
		successCount++
	}

	for i, ok := range done {
		if ok {
			continue
		}
		err := ctx.Err()
		if err == nil {
			err = context.Canceled
		}
		out[i] = Result{Index: i, Launch: launches[i], Err: err}
		errorCount++
	}

	return out, successCount, errorCount
}

// evaluateSingle computes the summary and optional samples for one launch.
func evaluateSingle(job evaluateJob, step float64, withPoints bool) Result {
	g := job.launch.Model()
	r := Result{
		Index:   job.index,
		Launch:  job.launch,
		Summary: g.Summary(),
	}
	if step <= 0 {
		return r
	}

	pts, err := g.Trajectory(step)
	if err != nil {
		r.Err = err
		return r
	}
	r.Samples = len(pts)
	if withPoints {
		r.Points = pts
	}
	return r
}

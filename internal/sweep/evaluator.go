package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/Shravan-1908/projectile-motion-simulator/internal/metrics"
	"github.com/Shravan-1908/projectile-motion-simulator/internal/projectile"
)

var (
	// ErrEmptyBatch is returned for a request with no launches.
	ErrEmptyBatch = errors.New("no launches to evaluate")

	// ErrTooManyPoints is returned when a batch would sample more points than
	// the configured budget allows.
	ErrTooManyPoints = errors.New("sampling budget exceeded")

	// ErrInvalidRange is returned for an angle sweep that cannot terminate.
	ErrInvalidRange = errors.New("invalid angle range")
)

// maxSweepLaunches caps the number of launches an angle sweep may expand to.
const maxSweepLaunches = 100000

// Evaluator runs launch batches through a worker pool under a sampling budget.
type Evaluator struct {
	pool   *WorkerPool
	config Config
	logger *slog.Logger
}

// NewEvaluator creates a batch evaluator.
func NewEvaluator(config Config, logger *slog.Logger) *Evaluator {
	pool := NewWorkerPool(config.Workers, logger)
	metrics.SetSweepWorkers(pool.Workers())
	return &Evaluator{
		pool:   pool,
		config: config,
		logger: logger,
	}
}

// Report is the outcome of one batch.
type Report struct {
	Results  []Result
	Success  int
	Failed   int
	Best     int // index of the longest finite range, -1 if none
	Duration time.Duration
}

// Budget returns the number of points the batch would sample at step.
func Budget(launches []projectile.Launch, step float64) int {
	if step <= 0 {
		return 0
	}
	var total int
	for _, l := range launches {
		total += l.Model().SampleBound(step)
		if total < 0 {
			return math.MaxInt
		}
	}
	return total
}

// Evaluate runs launches through the pool. With step > 0 every trajectory is
// also sampled, subject to the configured point budget.
func (e *Evaluator) Evaluate(ctx context.Context, launches []projectile.Launch, step float64, withPoints bool) (*Report, error) {
	if len(launches) == 0 {
		return nil, ErrEmptyBatch
	}
	if e.config.MaxPoints > 0 {
		if n := Budget(launches, step); n > e.config.MaxPoints {
			return nil, fmt.Errorf("%d points requested, max %d: %w", n, e.config.MaxPoints, ErrTooManyPoints)
		}
	}

	e.logger.Debug("evaluating batch",
		"launches", len(launches),
		"step", step,
		"workers", e.pool.Workers(),
	)

	start := time.Now()
	results, successCount, errorCount := e.pool.EvaluateBatch(ctx, launches, step, withPoints)
	duration := time.Since(start)

	metrics.RecordBatch(duration, successCount, errorCount)
	var samples int
	for _, r := range results {
		samples += r.Samples
	}
	metrics.AddSamples(samples)

	e.logger.Debug("batch complete",
		"success", successCount,
		"errors", errorCount,
		"samples", samples,
		"duration_ms", duration.Milliseconds(),
	)

	return &Report{
		Results:  results,
		Success:  successCount,
		Failed:   errorCount,
		Best:     Best(results),
		Duration: duration,
	}, ctx.Err()
}

// AngleSweep expands r into one launch per angle from r.From to r.To
// inclusive, in steps of r.Step.
func AngleSweep(r Range) ([]projectile.Launch, error) {
	if !(r.Step > 0) || math.IsNaN(r.From) || math.IsNaN(r.To) || math.IsInf(r.From, 0) || math.IsInf(r.To, 0) {
		return nil, fmt.Errorf("from=%v to=%v step=%v: %w", r.From, r.To, r.Step, ErrInvalidRange)
	}
	if r.To < r.From {
		return nil, fmt.Errorf("to %v is below from %v: %w", r.To, r.From, ErrInvalidRange)
	}
	// Compare in float space: the quotient can exceed any int for tiny steps.
	q := math.Floor((r.To-r.From)/r.Step+1e-9) + 1
	if !(q <= maxSweepLaunches) {
		return nil, fmt.Errorf("%g launches, max %d: %w", q, maxSweepLaunches, ErrInvalidRange)
	}
	n := int(q)

	launches := make([]projectile.Launch, n)
	for i := range launches {
		angle := r.From + float64(i)*r.Step
		launches[i] = projectile.Launch{
			Name:                   fmt.Sprintf("%.4g deg", angle),
			InitialVelocity:        r.InitialVelocity,
			AngleOfProjection:      angle,
			HorizontalAcceleration: r.HorizontalAcceleration,
			VerticalAcceleration:   r.VerticalAcceleration,
		}
	}
	return launches, nil
}

// Best returns the index of the successful result with the longest finite
// range, or -1.
func Best(results []Result) int {
	best := -1
	for i, r := range results {
		if r.Err != nil || math.IsNaN(r.Summary.Range) || math.IsInf(r.Summary.Range, 0) {
			continue
		}
		if best < 0 || r.Summary.Range > results[best].Summary.Range {
			best = i
		}
	}
	return best
}

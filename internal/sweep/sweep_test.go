package sweep

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/Shravan-1908/projectile-motion-simulator/internal/projectile"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// TestWorkerPoolBatch verifies results come back in request order with
// summaries matching a direct evaluation.
func TestWorkerPoolBatch(t *testing.T) {
	pool := NewWorkerPool(4, testLogger())

	launches := make([]projectile.Launch, 50)
	for i := range launches {
		launches[i] = projectile.Launch{InitialVelocity: 20 + float64(i), AngleOfProjection: float64(i%85) + 1}
	}

	results, successCount, errorCount := pool.EvaluateBatch(context.Background(), launches, 0.05, true)
	if errorCount != 0 {
		t.Fatalf("errors = %d, want 0", errorCount)
	}
	if successCount != len(launches) {
		t.Fatalf("success = %d, want %d", successCount, len(launches))
	}

	for i, r := range results {
		if r.Index != i {
			t.Errorf("result %d has index %d", i, r.Index)
		}
		want := launches[i].Model()
		if r.Summary != want.Summary() {
			t.Errorf("result %d summary = %+v, want %+v", i, r.Summary, want.Summary())
		}
		pts, _ := want.Trajectory(0.05)
		if r.Samples != len(pts) || len(r.Points) != len(pts) {
			t.Errorf("result %d: samples=%d points=%d, want %d", i, r.Samples, len(r.Points), len(pts))
		}
	}
}

func TestWorkerPoolWithoutPoints(t *testing.T) {
	pool := NewWorkerPool(2, testLogger())
	launches := []projectile.Launch{{InitialVelocity: 40, AngleOfProjection: 3}}

	results, _, _ := pool.EvaluateBatch(context.Background(), launches, 0.01, false)
	if results[0].Points != nil {
		t.Error("points returned although not requested")
	}
	if results[0].Samples != 43 {
		t.Errorf("samples = %d, want 43", results[0].Samples)
	}
}

func TestWorkerPoolReportsTrajectoryErrors(t *testing.T) {
	pool := NewWorkerPool(2, testLogger())
	launches := []projectile.Launch{
		{InitialVelocity: 10, AngleOfProjection: 30},
		{InitialVelocity: 10, AngleOfProjection: 30, VerticalAcceleration: projectile.Float(0)},
	}

	results, successCount, errorCount := pool.EvaluateBatch(context.Background(), launches, 0.1, false)
	if successCount != 1 || errorCount != 1 {
		t.Fatalf("success=%d errors=%d, want 1/1", successCount, errorCount)
	}
	if !errors.Is(results[1].Err, projectile.ErrUnboundedFlight) {
		t.Errorf("err = %v, want ErrUnboundedFlight", results[1].Err)
	}
	if !math.IsInf(results[1].Summary.TimeOfFlight, 1) {
		t.Errorf("summary tof = %v, want +Inf", results[1].Summary.TimeOfFlight)
	}
}

// TestWorkerPoolCancellation verifies the worker pool respects context cancellation.
func TestWorkerPoolCancellation(t *testing.T) {
	pool := NewWorkerPool(2, testLogger())

	launches := make([]projectile.Launch, 500)
	for i := range launches {
		launches[i] = projectile.Launch{InitialVelocity: 300, AngleOfProjection: 45}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, successCount, errorCount := pool.EvaluateBatch(ctx, launches, 0.001, false)
	if len(results) != len(launches) {
		t.Fatalf("len = %d, want %d", len(results), len(launches))
	}
	if successCount+errorCount != len(launches) {
		t.Errorf("success+errors = %d, want %d", successCount+errorCount, len(launches))
	}
	if errorCount == 0 {
		t.Error("expected cancelled entries with an already-cancelled context")
	}
}

func TestEvaluatorBudget(t *testing.T) {
	ev := NewEvaluator(Config{Workers: 2, MaxPoints: 1000}, testLogger())
	launches := []projectile.Launch{{InitialVelocity: 20, AngleOfProjection: 45}}

	// tof ≈ 2.886 s → 2887 points at 1 ms.
	if _, err := ev.Evaluate(context.Background(), launches, 0.001, false); !errors.Is(err, ErrTooManyPoints) {
		t.Errorf("err = %v, want ErrTooManyPoints", err)
	}

	rep, err := ev.Evaluate(context.Background(), launches, 0.01, false)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if rep.Success != 1 || rep.Best != 0 {
		t.Errorf("report = %+v", rep)
	}

	if _, err := ev.Evaluate(context.Background(), nil, 0.01, false); !errors.Is(err, ErrEmptyBatch) {
		t.Errorf("err = %v, want ErrEmptyBatch", err)
	}
}

func TestAngleSweepFindsFortyFive(t *testing.T) {
	launches, err := AngleSweep(Range{InitialVelocity: 30, From: 5, To: 85, Step: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(launches) != 81 {
		t.Fatalf("len = %d, want 81", len(launches))
	}
	if launches[80].AngleOfProjection != 85 {
		t.Errorf("last angle = %v, want 85", launches[80].AngleOfProjection)
	}

	ev := NewEvaluator(Config{Workers: 4}, testLogger())
	rep, err := ev.Evaluate(context.Background(), launches, 0, false)
	if err != nil {
		t.Fatal(err)
	}
	if got := rep.Results[rep.Best].Launch.AngleOfProjection; got != 45 {
		t.Errorf("best angle = %v, want 45", got)
	}
}

func TestAngleSweepInvalid(t *testing.T) {
	tests := []Range{
		{From: 0, To: 10, Step: 0},
		{From: 0, To: 10, Step: -1},
		{From: 10, To: 0, Step: 1},
		{From: math.NaN(), To: 10, Step: 1},
		{From: 0, To: 1e9, Step: 1e-3},
		{From: 0, To: 90, Step: 1e-300},
		{From: 0, To: 90, Step: math.SmallestNonzeroFloat64},
		{From: -math.MaxFloat64, To: math.MaxFloat64, Step: 1},
	}
	for _, r := range tests {
		if _, err := AngleSweep(r); !errors.Is(err, ErrInvalidRange) {
			t.Errorf("AngleSweep(%+v) err = %v, want ErrInvalidRange", r, err)
		}
	}
}

func TestBestSkipsDegenerate(t *testing.T) {
	results := []Result{
		{Summary: projectile.Summary{Range: math.Inf(1)}},
		{Summary: projectile.Summary{Range: 12}},
		{Summary: projectile.Summary{Range: 30}, Err: errors.New("boom")},
		{Summary: projectile.Summary{Range: math.NaN()}},
		{Summary: projectile.Summary{Range: 15}},
	}
	if got := Best(results); got != 4 {
		t.Errorf("Best = %d, want 4", got)
	}
	if got := Best(nil); got != -1 {
		t.Errorf("Best(nil) = %d, want -1", got)
	}
}

func BenchmarkEvaluate1000(b *testing.B) {
	launches, _ := AngleSweep(Range{InitialVelocity: 80, From: 1, To: 89, Step: 0.089})
	ev := NewEvaluator(Config{Workers: 4}, testLogger())
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ev.Evaluate(ctx, launches, 1.0/60, false); err != nil {
			b.Fatal(err)
		}
	}
}

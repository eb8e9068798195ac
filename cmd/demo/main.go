// Command demo prints the summary of a sample launch, or of every launch in a
// profile file when -file is given.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"

	"github.com/Shravan-1908/projectile-motion-simulator/internal/profile"
	"github.com/Shravan-1908/projectile-motion-simulator/internal/projectile"
	"github.com/Shravan-1908/projectile-motion-simulator/internal/sweep"
)

func main() {
	file := flag.String("file", "", "launch profile to evaluate (name velocity angle [ax [ay]] per line)")
	step := flag.Float64("step", 0, "also sample each trajectory at this timestep, in seconds")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	if *file == "" {
		printModel(os.Stdout, projectile.New(40, 3, 0))
		return
	}

	f, err := os.Open(*file)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR opening profile:", err)
		os.Exit(1)
	}
	defer f.Close()

	if err := runProfile(context.Background(), os.Stdout, f, *step, logger); err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}
}

// printModel writes angle, range, hmax and time of flight, one per line.
func printModel(w io.Writer, g projectile.GroundToGround) {
	fmt.Fprintln(w, g.Angle)
	fmt.Fprintln(w, g.Range())
	fmt.Fprintln(w, g.HMax())
	fmt.Fprintln(w, g.TimeOfFlight())
}

// runProfile evaluates every launch in r through the worker pool and writes
// one summary line per launch, then the longest range.
func runProfile(ctx context.Context, w io.Writer, r io.Reader, step float64, logger *slog.Logger) error {
	launches, err := profile.Parse(r, logger)
	if err != nil {
		return err
	}

	evaluator := sweep.NewEvaluator(sweep.Config{Workers: runtime.NumCPU()}, logger)
	report, err := evaluator.Evaluate(ctx, launches, step, false)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%-12s %10s %12s %10s %10s %8s\n", "name", "angle", "range", "hmax", "tof", "samples")
	for _, res := range report.Results {
		s := res.Summary
		fmt.Fprintf(w, "%-12s %10.4f %12.4f %10.4f %10.4f %8d", res.Launch.Name, s.Angle, s.Range, s.HMax, s.TimeOfFlight, res.Samples)
		if res.Err != nil {
			fmt.Fprintf(w, "  error: %v", res.Err)
		}
		fmt.Fprintln(w)
	}
	if report.Best >= 0 {
		fmt.Fprintf(w, "longest range: %s\n", report.Results[report.Best].Launch.Name)
	}
	return nil
}

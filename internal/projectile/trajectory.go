package projectile

import (
	"errors"
	"fmt"
	"iter"
	"math"
)

var (
	// ErrInvalidTimestep is returned when a sampling step is not a positive number.
	ErrInvalidTimestep = errors.New("timestep must be positive")

	// ErrUnboundedFlight is returned when the time of flight is not finite, so a
	// fixed-step scan would never reach it.
	ErrUnboundedFlight = errors.New("time of flight is not finite")
)

// Sample is one point of a sampled flight path.
type Sample struct {
	T float64 `json:"t"`
	Point
}

// Samples yields (t, position) for t = 0, step, 2*step, … while t is below the
// time of flight, stopping before the first position with a negative
// coordinate. Sample times are i*step, not a running sum, so the count never
// exceeds ceil(tof/step).
//
// The sequence is empty for a non-positive step or a non-finite flight time.
// Each range over the result recomputes from scratch.
func (g GroundToGround) Samples(step float64) iter.Seq2[float64, Point] {
	return func(yield func(float64, Point) bool) {
		if !(step > 0) || math.IsInf(step, 0) {
			return
		}
		tof := g.TimeOfFlight()
		if math.IsInf(tof, 0) || math.IsNaN(tof) {
			return
		}
		for i := 0; ; i++ {
			t := float64(i) * step
			if !(t < tof) {
				return
			}
			p := g.Coordinates(t)
			if p.X < 0 || p.Y < 0 {
				return
			}
			if !yield(t, p) {
				return
			}
		}
	}
}

// Trajectory samples the flight path at a fixed time step (typically
// 1/framerate) and returns the positions in order.
func (g GroundToGround) Trajectory(step float64) ([]Point, error) {
	if err := g.checkStep(step); err != nil {
		return nil, err
	}
	points := make([]Point, 0, preallocBound(g.SampleBound(step)))
	for _, p := range g.Samples(step) {
		points = append(points, p)
	}
	return points, nil
}

// TimedTrajectory is Trajectory with the sample time attached to each point.
func (g GroundToGround) TimedTrajectory(step float64) ([]Sample, error) {
	if err := g.checkStep(step); err != nil {
		return nil, err
	}
	samples := make([]Sample, 0, preallocBound(g.SampleBound(step)))
	for t, p := range g.Samples(step) {
		samples = append(samples, Sample{T: t, Point: p})
	}
	return samples, nil
}

// SampleBound returns ceil(tof/step), the most points a scan at step can yield.
// It is 0 for degenerate inputs.
func (g GroundToGround) SampleBound(step float64) int {
	tof := g.TimeOfFlight()
	if !(step > 0) || !(tof > 0) || math.IsInf(tof, 0) || math.IsInf(step, 0) {
		return 0
	}
	n := math.Ceil(tof / step)
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(n)
}

// maxPrealloc caps the capacity reserved up front. SampleBound ignores the
// early stop on a negative coordinate, so it can exceed the real length by
// orders of magnitude.
const maxPrealloc = 4096

func preallocBound(n int) int {
	return min(n, maxPrealloc)
}

func (g GroundToGround) checkStep(step float64) error {
	if !(step > 0) || math.IsInf(step, 0) {
		return fmt.Errorf("sampling at %v s: %w", step, ErrInvalidTimestep)
	}
	tof := g.TimeOfFlight()
	if math.IsInf(tof, 0) || math.IsNaN(tof) {
		return fmt.Errorf("sampling with tof=%v: %w", tof, ErrUnboundedFlight)
	}
	return nil
}

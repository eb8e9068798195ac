package sweep

import "github.com/Shravan-1908/projectile-motion-simulator/internal/projectile"

// Result is the evaluation of one launch in a batch. Index is the launch's
// position in the request, so results can be matched back after parallel
// evaluation.
type Result struct {
	Index   int
	Launch  projectile.Launch
	Summary projectile.Summary
	Points  []projectile.Point // nil unless points were requested
	Samples int                // number of sampled points
	Err     error
}

// Config holds worker pool configuration loaded from environment variables.
type Config struct {
	Workers   int // Worker pool size (default: runtime.NumCPU())
	MaxPoints int // Sampling budget per batch (default: 100000)
}

// Range describes an angle sweep at fixed speed and accelerations.
type Range struct {
	InitialVelocity        float64  `json:"initial_velocity"`
	From                   float64  `json:"from"`
	To                     float64  `json:"to"`
	Step                   float64  `json:"step"`
	HorizontalAcceleration float64  `json:"horizontal_acceleration"`
	VerticalAcceleration   *float64 `json:"vertical_acceleration,omitempty"`
}

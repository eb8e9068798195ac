// Package projectile evaluates closed-form kinematics for a ground-to-ground
// trajectory under constant acceleration.
//
// Every quantity is derived analytically from the launch parameters. Nothing is
// integrated and nothing is cached: a GroundToGround is a plain value and all of
// its methods are pure, so a model can be shared between goroutines freely.
//
// Units are fixed: metres, seconds, and degrees on input (radians once stored).
package projectile

import "math"

const (
	StandardGravity = 9.8    // m/s², default vertical acceleration magnitude
	EarthRadius     = 6.37e6 // m, default planet radius
)

// Point is a position in the launch plane, in metres.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// GroundToGround holds the stored launch state of a projectile that starts and
// lands at y = 0.
//
// The fields are exported so callers can inspect them; the derived properties
// read them at call time.
type GroundToGround struct {
	Angle        float64 // launch angle, radians
	UX, UY       float64 // initial velocity components, m/s
	AX           float64 // horizontal acceleration, m/s² (any sign)
	AY           float64 // vertical acceleration, m/s² (always <= 0)
	PlanetRadius float64 // metres, not used by any formula yet
}

type options struct {
	verticalAcceleration float64
	planetRadius         float64
}

// Option overrides a construction default.
type Option func(*options)

// WithVerticalAcceleration sets the vertical acceleration magnitude.
// The sign is ignored: gravity always acts downward.
func WithVerticalAcceleration(a float64) Option {
	return func(o *options) { o.verticalAcceleration = a }
}

// WithPlanetRadius sets the planet radius carried by the model.
func WithPlanetRadius(r float64) Option {
	return func(o *options) { o.planetRadius = r }
}

// New builds a model from an initial speed (m/s), a projection angle (degrees)
// and a horizontal acceleration (m/s²). No input is validated.
func New(initialVelocity, angleOfProjection, horizontalAcceleration float64, opts ...Option) GroundToGround {
	o := options{
		verticalAcceleration: StandardGravity,
		planetRadius:         EarthRadius,
	}
	for _, opt := range opts {
		opt(&o)
	}

	angle := angleOfProjection * math.Pi / 180

	return GroundToGround{
		Angle:        angle,
		UX:           initialVelocity * math.Cos(angle),
		UY:           initialVelocity * math.Sin(angle),
		AX:           horizontalAcceleration,
		AY:           -math.Abs(o.verticalAcceleration),
		PlanetRadius: o.planetRadius,
	}
}

// TimeOfFlight returns 2*uy/|ay|, the time at which pure vertical motion brings
// the projectile back to y = 0. It is ±Inf or NaN when ay is zero and negative
// for downward launches.
func (g GroundToGround) TimeOfFlight() float64 {
	return (2 * g.UY) / math.Abs(g.AY)
}

// Range returns the horizontal displacement at TimeOfFlight.
func (g GroundToGround) Range() float64 {
	tof := g.TimeOfFlight()
	return g.UX*tof + 0.5*g.AX*tof*tof
}

// HMax returns the height of the vertex of the vertical motion.
func (g GroundToGround) HMax() float64 {
	return (g.UY * g.UY) / (2 * math.Abs(g.AY))
}

// Coordinates returns the position at time t. t is not clamped to the flight.
func (g GroundToGround) Coordinates(t float64) Point {
	return Point{
		X: g.UX*t + 0.5*g.AX*t*t,
		Y: g.UY*t + 0.5*g.AY*t*t,
	}
}

// Velocity returns the speed at position p using v² = u² + 2as on each axis.
//
// The two axis identities are only consistent when p lies on the trajectory.
// Positions the projectile cannot reach yield NaN.
func (g GroundToGround) Velocity(p Point) float64 {
	vx2 := g.UX*g.UX + 2*g.AX*p.X
	vy2 := g.UY*g.UY + 2*g.AY*p.Y
	return math.Sqrt(vx2 + vy2)
}

// Summary is a snapshot of the derived scalar properties.
type Summary struct {
	Angle        float64 `json:"angle"`
	TimeOfFlight float64 `json:"time_of_flight"`
	Range        float64 `json:"range"`
	HMax         float64 `json:"hmax"`
}

// Summary evaluates the derived properties once.
func (g GroundToGround) Summary() Summary {
	return Summary{
		Angle:        g.Angle,
		TimeOfFlight: g.TimeOfFlight(),
		Range:        g.Range(),
		HMax:         g.HMax(),
	}
}

package projectile

import "math"

// Launch is the serialisable form of the construction parameters.
//
// VerticalAcceleration and PlanetRadius are pointers so that an omitted field
// takes the default while an explicit 0 is kept as given.
type Launch struct {
	Name                   string   `json:"name,omitempty"`
	InitialVelocity        float64  `json:"initial_velocity"`
	AngleOfProjection      float64  `json:"angle_of_projection"`
	HorizontalAcceleration float64  `json:"horizontal_acceleration"`
	VerticalAcceleration   *float64 `json:"vertical_acceleration,omitempty"`
	PlanetRadius           *float64 `json:"planet_radius,omitempty"`
}

// Model builds the GroundToGround described by l.
func (l Launch) Model() GroundToGround {
	var opts []Option
	if l.VerticalAcceleration != nil {
		opts = append(opts, WithVerticalAcceleration(*l.VerticalAcceleration))
	}
	if l.PlanetRadius != nil {
		opts = append(opts, WithPlanetRadius(*l.PlanetRadius))
	}
	return New(l.InitialVelocity, l.AngleOfProjection, l.HorizontalAcceleration, opts...)
}

// Key identifies the launch by its physical parameters, ignoring Name.
type Key struct {
	V, Angle, AX, AY, Radius float64
}

// Key returns the cache identity of l with defaults resolved.
func (l Launch) Key() Key {
	ay, r := StandardGravity, EarthRadius
	if l.VerticalAcceleration != nil {
		ay = *l.VerticalAcceleration
	}
	if l.PlanetRadius != nil {
		r = *l.PlanetRadius
	}
	return Key{V: l.InitialVelocity, Angle: l.AngleOfProjection, AX: l.HorizontalAcceleration, AY: math.Abs(ay), Radius: r}
}

// Float returns a pointer to v, for filling the optional Launch fields.
func Float(v float64) *float64 {
	return &v
}

// Package httputil holds request parsing and response helpers shared by the
// HTTP handlers.
package httputil

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Shravan-1908/projectile-motion-simulator/internal/projectile"
)

// ParseLaunch reads launch parameters from a query string:
//
//	v       initial velocity, m/s (required)
//	angle   angle of projection, degrees (required)
//	ax      horizontal acceleration, m/s² (default 0)
//	ay      vertical acceleration magnitude, m/s² (default 9.8)
//	radius  planet radius, m (default 6.37e6)
//	name    optional label
func ParseLaunch(q url.Values) (projectile.Launch, error) {
	l := projectile.Launch{Name: q.Get("name")}

	v, err := requiredFloat(q, "v")
	if err != nil {
		return l, err
	}
	angle, err := requiredFloat(q, "angle")
	if err != nil {
		return l, err
	}
	l.InitialVelocity = v
	l.AngleOfProjection = angle

	if l.HorizontalAcceleration, err = OptionalFloat(q, "ax", 0); err != nil {
		return l, err
	}
	if q.Has("ay") {
		ay, err := requiredFloat(q, "ay")
		if err != nil {
			return l, err
		}
		l.VerticalAcceleration = projectile.Float(ay)
	}
	if q.Has("radius") {
		r, err := requiredFloat(q, "radius")
		if err != nil {
			return l, err
		}
		l.PlanetRadius = projectile.Float(r)
	}
	return l, nil
}

// OptionalFloat parses a finite float parameter, returning def when absent.
func OptionalFloat(q url.Values, name string, def float64) (float64, error) {
	if !q.Has(name) {
		return def, nil
	}
	return requiredFloat(q, name)
}

func requiredFloat(q url.Values, name string) (float64, error) {
	s := q.Get(name)
	if s == "" {
		return 0, fmt.Errorf("missing %s parameter", name)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid %s parameter %q", name, s)
	}
	return v, nil
}

// Finite returns a pointer to v, or nil when v is NaN or infinite, so the
// value encodes as JSON null.
func Finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// SummaryJSON is the JSON form of projectile.Summary.
type SummaryJSON struct {
	Angle        *float64 `json:"angle"`
	TimeOfFlight *float64 `json:"time_of_flight"`
	Range        *float64 `json:"range"`
	HMax         *float64 `json:"hmax"`
}

// Summary converts s, mapping non-finite values to null.
func Summary(s projectile.Summary) SummaryJSON {
	return SummaryJSON{
		Angle:        Finite(s.Angle),
		TimeOfFlight: Finite(s.TimeOfFlight),
		Range:        Finite(s.Range),
		HMax:         Finite(s.HMax),
	}
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// WriteError writes {"error": msg} with the given status.
func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]string{"error": msg})
}

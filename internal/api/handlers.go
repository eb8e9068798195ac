package api

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"gonum.org/v1/plot/vg"

	"github.com/Shravan-1908/projectile-motion-simulator/internal/export"
	"github.com/Shravan-1908/projectile-motion-simulator/internal/httputil"
	"github.com/Shravan-1908/projectile-motion-simulator/internal/metrics"
	"github.com/Shravan-1908/projectile-motion-simulator/internal/projectile"
	"github.com/Shravan-1908/projectile-motion-simulator/internal/render"
)

const (
	defaultStep = 0.1
	maxPlotSize = 20.0 // inches
)

// sampled is a parsed launch with its cached samples.
type sampled struct {
	launch  projectile.Launch
	step    float64
	samples []projectile.Sample
	cached  bool
}

// sampleRequest parses launch and step parameters, enforces the sampling
// budget and returns the (possibly cached) samples. On failure it has already
// written the error response.
func sampleRequest(w http.ResponseWriter, q url.Values, deps Deps) (*sampled, bool) {
	launch, err := httputil.ParseLaunch(q)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	step, err := httputil.OptionalFloat(q, "step", defaultStep)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	if step <= 0 {
		httputil.WriteError(w, http.StatusBadRequest, projectile.ErrInvalidTimestep.Error())
		return nil, false
	}

	if n := launch.Model().SampleBound(step); deps.MaxPoints > 0 && n > deps.MaxPoints {
		httputil.WriteJSON(w, http.StatusBadRequest, map[string]any{
			"error":      "trajectory exceeds the sampling budget",
			"points":     n,
			"max_points": deps.MaxPoints,
		})
		return nil, false
	}

	samples, cached, err := deps.Cache.GetOrCompute(launch, step)
	switch {
	case errors.Is(err, projectile.ErrInvalidTimestep):
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return nil, false
	case err != nil:
		httputil.WriteError(w, http.StatusUnprocessableEntity, err.Error())
		return nil, false
	}
	return &sampled{launch: launch, step: step, samples: samples, cached: cached}, true
}

type trajectoryResponse struct {
	Launch  projectile.Launch    `json:"launch"`
	Summary httputil.SummaryJSON `json:"summary"`
	Step    float64              `json:"step"`
	Cached  bool                 `json:"cached"`
	Count   int                  `json:"count"`
	Points  []projectile.Sample  `json:"points"`
}

// trajectoryHandler returns GET /api/v1/trajectory.
func trajectoryHandler(logger *slog.Logger, deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := sampleRequest(w, r.URL.Query(), deps)
		if !ok {
			return
		}
		logger.Debug("trajectory served",
			"component", "api",
			"samples", len(s.samples),
			"cached", s.cached,
		)
		httputil.WriteJSON(w, http.StatusOK, trajectoryResponse{
			Launch:  s.launch,
			Summary: httputil.Summary(s.launch.Model().Summary()),
			Step:    s.step,
			Cached:  s.cached,
			Count:   len(s.samples),
			Points:  s.samples,
		})
	}
}

// trajectoryCSVHandler returns GET /api/v1/trajectory.csv.
func trajectoryCSVHandler(logger *slog.Logger, deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := sampleRequest(w, r.URL.Query(), deps)
		if !ok {
			return
		}

		var buf bytes.Buffer
		if err := export.WriteCSV(&buf, s.launch.Model(), s.samples); err != nil {
			logger.Error("csv export failed", "component", "api", "error", err)
			httputil.WriteError(w, http.StatusInternalServerError, "export failed")
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="trajectory.csv"`)
		w.WriteHeader(http.StatusOK)
		w.Write(buf.Bytes())
	}
}

// trajectoryPlotHandler returns GET /api/v1/trajectory/plot.
// Extra parameters: format (png|svg), width and height in inches.
func trajectoryPlotHandler(logger *slog.Logger, deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		opts := render.DefaultOptions()

		if f := q.Get("format"); f != "" {
			if _, ok := render.Formats[f]; !ok {
				httputil.WriteError(w, http.StatusBadRequest, fmt.Sprintf("unsupported format %q, use png or svg", f))
				return
			}
			opts.Format = f
		}
		for _, dim := range []struct {
			name string
			dst  *vg.Length
		}{{"width", &opts.Width}, {"height", &opts.Height}} {
			v, err := httputil.OptionalFloat(q, dim.name, float64(*dim.dst/vg.Inch))
			if err != nil || v <= 0 || v > maxPlotSize {
				httputil.WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid %s parameter, must be in (0, %g] inches", dim.name, maxPlotSize))
				return
			}
			*dim.dst = vg.Length(v) * vg.Inch
		}
		if name := q.Get("name"); name != "" {
			opts.Title = name
		}

		s, ok := sampleRequest(w, q, deps)
		if !ok {
			return
		}
		pts := make([]projectile.Point, len(s.samples))
		for i, smp := range s.samples {
			pts[i] = smp.Point
		}

		var buf bytes.Buffer
		err := render.Trajectory(&buf, s.launch.Model(), pts, opts)
		switch {
		case errors.Is(err, render.ErrNoPoints):
			httputil.WriteError(w, http.StatusUnprocessableEntity, err.Error())
			return
		case err != nil:
			logger.Error("plot render failed", "component", "api", "error", err)
			httputil.WriteError(w, http.StatusInternalServerError, "render failed")
			return
		}
		w.Header().Set("Content-Type", render.Formats[opts.Format])
		w.WriteHeader(http.StatusOK)
		w.Write(buf.Bytes())
	}
}

type positionResponse struct {
	T float64  `json:"t"`
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

// positionHandler serves GET /api/v1/position: Coordinates(t).
func positionHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	launch, err := httputil.ParseLaunch(q)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	t, err := httputil.OptionalFloat(q, "t", 0)
	if err != nil || !q.Has("t") {
		httputil.WriteError(w, http.StatusBadRequest, "missing or invalid t parameter")
		return
	}

	p := launch.Model().Coordinates(t)
	metrics.IncEvaluations("success")
	httputil.WriteJSON(w, http.StatusOK, positionResponse{
		T: t,
		X: httputil.Finite(p.X),
		Y: httputil.Finite(p.Y),
	})
}

type velocityResponse struct {
	X     float64  `json:"x"`
	Y     float64  `json:"y"`
	Speed *float64 `json:"speed"` // null for unreachable positions
}

// velocityHandler serves GET /api/v1/velocity: speed at position (x, y).
func velocityHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	launch, err := httputil.ParseLaunch(q)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	var p projectile.Point
	for _, c := range []struct {
		name string
		dst  *float64
	}{{"x", &p.X}, {"y", &p.Y}} {
		v, err := httputil.OptionalFloat(q, c.name, 0)
		if err != nil || !q.Has(c.name) {
			httputil.WriteError(w, http.StatusBadRequest, fmt.Sprintf("missing or invalid %s parameter", c.name))
			return
		}
		*c.dst = v
	}

	speed := httputil.Finite(launch.Model().Velocity(p))
	if speed == nil {
		metrics.IncEvaluations("unreachable")
	} else {
		metrics.IncEvaluations("success")
	}
	httputil.WriteJSON(w, http.StatusOK, velocityResponse{X: p.X, Y: p.Y, Speed: speed})
}

package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Shravan-1908/projectile-motion-simulator/internal/httputil"
	"github.com/Shravan-1908/projectile-motion-simulator/internal/projectile"
	"github.com/Shravan-1908/projectile-motion-simulator/internal/sweep"
)

// maxSweepBody bounds the POST /api/v1/sweep request body.
const maxSweepBody = 1 << 20

// sweepRequest is the POST /api/v1/sweep body. Exactly one of Launches and
// Sweep must be set. Step 0 evaluates summaries only.
type sweepRequest struct {
	Launches []projectile.Launch `json:"launches"`
	Sweep    *sweep.Range        `json:"sweep"`
	Step     float64             `json:"step"`
	Points   bool                `json:"points"`
}

type sweepResult struct {
	Index   int                  `json:"index"`
	Launch  projectile.Launch    `json:"launch"`
	Summary httputil.SummaryJSON `json:"summary"`
	Samples int                  `json:"samples"`
	Points  []projectile.Point   `json:"points,omitempty"`
	Error   string               `json:"error,omitempty"`
}

type sweepResponse struct {
	Results    []sweepResult `json:"results"`
	Success    int           `json:"success"`
	Failed     int           `json:"failed"`
	Best       *int          `json:"best"` // index of the longest range, null if none
	DurationMS int64         `json:"duration_ms"`
}

// sweepHandler returns POST /api/v1/sweep.
func sweepHandler(logger *slog.Logger, deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req sweepRequest
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSweepBody))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			httputil.WriteError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
			return
		}
		if req.Step < 0 {
			httputil.WriteError(w, http.StatusBadRequest, projectile.ErrInvalidTimestep.Error())
			return
		}

		launches := req.Launches
		switch {
		case req.Sweep != nil && len(req.Launches) > 0:
			httputil.WriteError(w, http.StatusBadRequest, "set either launches or sweep, not both")
			return
		case req.Sweep != nil:
			var err error
			if launches, err = sweep.AngleSweep(*req.Sweep); err != nil {
				httputil.WriteError(w, http.StatusBadRequest, err.Error())
				return
			}
		}

		report, err := deps.Evaluator.Evaluate(r.Context(), launches, req.Step, req.Points)
		switch {
		case errors.Is(err, sweep.ErrEmptyBatch):
			httputil.WriteError(w, http.StatusBadRequest, err.Error())
			return
		case errors.Is(err, sweep.ErrTooManyPoints):
			httputil.WriteJSON(w, http.StatusBadRequest, map[string]any{
				"error":      err.Error(),
				"points":     sweep.Budget(launches, req.Step),
				"max_points": deps.MaxPoints,
			})
			return
		case err != nil:
			// The client went away mid-batch.
			logger.Debug("sweep cancelled", "component", "api", "error", err)
			return
		}

		resp := sweepResponse{
			Results:    make([]sweepResult, len(report.Results)),
			Success:    report.Success,
			Failed:     report.Failed,
			DurationMS: report.Duration.Milliseconds(),
		}
		if report.Best >= 0 {
			resp.Best = &report.Best
		}
		for i, res := range report.Results {
			out := sweepResult{
				Index:   res.Index,
				Launch:  res.Launch,
				Summary: httputil.Summary(res.Summary),
				Samples: res.Samples,
				Points:  res.Points,
			}
			if res.Err != nil {
				out.Error = res.Err.Error()
			}
			resp.Results[i] = out
		}

		logger.Info("sweep evaluated",
			"component", "api",
			"launches", len(launches),
			"success", report.Success,
			"failed", report.Failed,
			"duration_ms", resp.DurationMS,
		)
		httputil.WriteJSON(w, http.StatusOK, resp)
	}
}

package api

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Shravan-1908/projectile-motion-simulator/internal/auth"
	"github.com/Shravan-1908/projectile-motion-simulator/internal/cache"
	"github.com/Shravan-1908/projectile-motion-simulator/internal/stream"
	"github.com/Shravan-1908/projectile-motion-simulator/internal/sweep"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func testDeps(maxPoints int) Deps {
	logger := testLogger()
	c := cache.NewTrajectoryCache(cache.Config{MaxEntries: 16}, logger)
	return Deps{
		Cache:     c,
		Evaluator: sweep.NewEvaluator(sweep.Config{Workers: 2, MaxPoints: maxPoints}, logger),
		Stream: stream.NewHandler(c, stream.Config{
			MaxConcurrentPerIP: 4,
			KeepaliveInterval:  30 * time.Second,
			MaxPoints:          maxPoints,
		}, logger),
		MaxPoints: maxPoints,
		Web:       fstest.MapFS{"index.html": {Data: []byte("<html>projectile</html>")}},
	}
}

func testServer(deps Deps) http.Handler {
	return NewServer(":0", testLogger(), auth.Config{}, deps).Handler()
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", target, nil))
	return w
}

func post(t *testing.T, h http.Handler, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("POST", target, strings.NewReader(body)))
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestTrajectoryEndpoint(t *testing.T) {
	h := testServer(testDeps(100000))

	w := get(t, h, "/api/v1/trajectory?v=20&angle=45&step=0.1")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp trajectoryResponse
	decode(t, w, &resp)

	if resp.Count != 29 || len(resp.Points) != 29 {
		t.Errorf("count = %d, points = %d, want 29", resp.Count, len(resp.Points))
	}
	if resp.Cached {
		t.Error("first request should not be cached")
	}
	if p := resp.Points[0]; p.T != 0 || p.X != 0 || p.Y != 0 {
		t.Errorf("first point = %+v, want origin", p)
	}
	if resp.Summary.Range == nil || math.Abs(*resp.Summary.Range-400/9.8) > 1e-9 {
		t.Errorf("summary range = %v, want %v", resp.Summary.Range, 400/9.8)
	}

	w = get(t, h, "/api/v1/trajectory?v=20&angle=45&step=0.1&name=other")
	decode(t, w, &resp)
	if !resp.Cached {
		t.Error("repeat request should hit the cache")
	}
}

// TestTrajectoryBudget verifies that requests exceeding the max points
// budget are rejected with 400 instead of consuming unbounded CPU.
func TestTrajectoryBudget(t *testing.T) {
	h := testServer(testDeps(1000))

	tests := []struct {
		name       string
		query      string
		wantStatus int
	}{
		{"max budget exceeded: step=0.0001", "?v=20&angle=45&step=0.0001", http.StatusBadRequest},
		{"max budget exceeded: fast launch", "?v=1000&angle=45&step=0.1", http.StatusBadRequest},
		{"within budget: default step", "?v=20&angle=45", http.StatusOK},
		{"within budget: step=0.01", "?v=20&angle=45&step=0.01", http.StatusOK},
		{"zero step", "?v=20&angle=45&step=0", http.StatusBadRequest},
		{"negative step", "?v=20&angle=45&step=-1", http.StatusBadRequest},
		{"missing velocity", "?angle=45", http.StatusBadRequest},
		{"non-numeric angle", "?v=20&angle=steep", http.StatusBadRequest},
		{"zero gravity", "?v=20&angle=45&ay=0", http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(t, h, "/api/v1/trajectory"+tt.query)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}

			if tt.wantStatus != http.StatusOK {
				var resp map[string]any
				json.NewDecoder(w.Body).Decode(&resp)
				if resp["error"] == nil {
					t.Error("expected error field in response")
				}
				if strings.HasPrefix(tt.name, "max budget") && resp["max_points"] == nil {
					t.Error("expected max_points field in response")
				}
			}
		})
	}
}

func TestTrajectoryCSV(t *testing.T) {
	h := testServer(testDeps(100000))

	w := get(t, h, "/api/v1/trajectory.csv?v=20&angle=45&step=0.1")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Content-Type = %q", ct)
	}
	body := w.Body.String()
	if !strings.HasPrefix(body, "t,x,y,speed\n") {
		t.Errorf("missing header: %q", body[:min(len(body), 40)])
	}
	if n := strings.Count(body, "\n"); n != 30 {
		t.Errorf("lines = %d, want 30", n)
	}
}

func TestTrajectoryPlot(t *testing.T) {
	h := testServer(testDeps(100000))

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantType   string
		wantPrefix string
	}{
		{"png default", "", http.StatusOK, "image/png", "\x89PNG"},
		{"svg", "&format=svg&width=4&height=3", http.StatusOK, "image/svg+xml", ""},
		{"unknown format", "&format=gif", http.StatusBadRequest, "", ""},
		{"too wide", "&width=100", http.StatusBadRequest, "", ""},
		{"zero height", "&height=0", http.StatusBadRequest, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(t, h, "/api/v1/trajectory/plot?v=20&angle=45&step=0.1"+tt.query)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantType == "" {
				return
			}
			if ct := w.Header().Get("Content-Type"); ct != tt.wantType {
				t.Errorf("Content-Type = %q, want %q", ct, tt.wantType)
			}
			if tt.wantPrefix != "" && !strings.HasPrefix(w.Body.String(), tt.wantPrefix) {
				t.Errorf("body does not start with %q", tt.wantPrefix)
			}
			if tt.wantType == "image/svg+xml" && !strings.Contains(w.Body.String(), "<svg") {
				t.Error("body is not SVG")
			}
		})
	}
}

func TestPositionEndpoint(t *testing.T) {
	h := testServer(testDeps(100000))

	w := get(t, h, "/api/v1/position?v=20&angle=90&t=1")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp positionResponse
	decode(t, w, &resp)
	if resp.X == nil || math.Abs(*resp.X) > 1e-9 {
		t.Errorf("x = %v, want 0", resp.X)
	}
	if resp.Y == nil || math.Abs(*resp.Y-15.1) > 1e-9 {
		t.Errorf("y = %v, want 15.1", resp.Y)
	}

	if w := get(t, h, "/api/v1/position?v=20&angle=90"); w.Code != http.StatusBadRequest {
		t.Errorf("missing t: status = %d, want 400", w.Code)
	}
}

func TestVelocityEndpoint(t *testing.T) {
	h := testServer(testDeps(100000))

	tests := []struct {
		name      string
		query     string
		wantSpeed *float64
	}{
		{"launch point", "&x=0&y=0", ptr(20)},
		{"unreachable height", "&x=0&y=1000", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(t, h, "/api/v1/velocity?v=20&angle=45"+tt.query)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d", w.Code)
			}
			var resp velocityResponse
			decode(t, w, &resp)
			switch {
			case tt.wantSpeed == nil && resp.Speed != nil:
				t.Errorf("speed = %v, want null", *resp.Speed)
			case tt.wantSpeed != nil && (resp.Speed == nil || math.Abs(*resp.Speed-*tt.wantSpeed) > 1e-9):
				t.Errorf("speed = %v, want %v", resp.Speed, *tt.wantSpeed)
			}
		})
	}

	if w := get(t, h, "/api/v1/velocity?v=20&angle=45&x=1"); w.Code != http.StatusBadRequest {
		t.Errorf("missing y: status = %d, want 400", w.Code)
	}
}

func ptr(v float64) *float64 { return &v }

func TestSweepEndpoint(t *testing.T) {
	h := testServer(testDeps(1000))

	t.Run("launch list", func(t *testing.T) {
		body := `{"launches":[
			{"name":"low","initial_velocity":20,"angle_of_projection":15,"horizontal_acceleration":0},
			{"name":"flat","initial_velocity":20,"angle_of_projection":45,"horizontal_acceleration":0,"vertical_acceleration":0}
		],"step":0.1,"points":true}`
		w := post(t, h, "/api/v1/sweep", body)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", w.Code, w.Body.String())
		}
		var resp sweepResponse
		decode(t, w, &resp)

		if resp.Success != 1 || resp.Failed != 1 {
			t.Errorf("success/failed = %d/%d, want 1/1", resp.Success, resp.Failed)
		}
		if resp.Results[0].Launch.Name != "low" || resp.Results[1].Launch.Name != "flat" {
			t.Errorf("results out of order: %+v", resp.Results)
		}
		if len(resp.Results[0].Points) == 0 {
			t.Error("points requested but missing")
		}
		if resp.Results[1].Error == "" {
			t.Error("zero-gravity launch should report an error")
		}
		if resp.Results[1].Summary.TimeOfFlight != nil {
			t.Errorf("tof = %v, want null", *resp.Results[1].Summary.TimeOfFlight)
		}
		if resp.Best == nil || *resp.Best != 0 {
			t.Errorf("best = %v, want 0", resp.Best)
		}
	})

	t.Run("angle sweep", func(t *testing.T) {
		w := post(t, h, "/api/v1/sweep", `{"sweep":{"initial_velocity":20,"from":10,"to":80,"step":5}}`)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", w.Code, w.Body.String())
		}
		var resp sweepResponse
		decode(t, w, &resp)
		if len(resp.Results) != 15 {
			t.Fatalf("results = %d, want 15", len(resp.Results))
		}
		if resp.Best == nil || resp.Results[*resp.Best].Launch.AngleOfProjection != 45 {
			t.Errorf("best = %v, want the 45 degree launch", resp.Best)
		}
		if resp.Results[0].Points != nil || resp.Results[0].Samples != 0 {
			t.Error("step 0 should evaluate summaries only")
		}
	})

	errTests := []struct {
		name string
		body string
	}{
		{"empty batch", `{"launches":[]}`},
		{"both forms", `{"launches":[{"initial_velocity":1}],"sweep":{"initial_velocity":1,"from":0,"to":1,"step":1}}`},
		{"bad json", `{"launches":`},
		{"unknown field", `{"launch":[]}`},
		{"invalid range", `{"sweep":{"initial_velocity":20,"from":80,"to":10,"step":5}}`},
		{"tiny sweep step", `{"sweep":{"initial_velocity":20,"from":0,"to":90,"step":1e-300}}`},
		{"negative step", `{"launches":[{"initial_velocity":1}],"step":-1}`},
		{"over budget", `{"launches":[{"initial_velocity":20,"angle_of_projection":45}],"step":0.0001}`},
	}
	for _, tt := range errTests {
		t.Run(tt.name, func(t *testing.T) {
			w := post(t, h, "/api/v1/sweep", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestCacheStatsEndpoint(t *testing.T) {
	h := testServer(testDeps(100000))
	get(t, h, "/api/v1/trajectory?v=20&angle=45")

	w := get(t, h, "/api/v1/cache/stats")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var stats cache.CacheStats
	decode(t, w, &stats)
	if stats.Entries != 1 || stats.Misses != 1 || stats.MaxEntries != 16 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestProbesAndStatic(t *testing.T) {
	deps := testDeps(100000)
	deps.Ready = func() error { return errors.New("draining") }
	h := testServer(deps)

	tests := []struct {
		path       string
		wantStatus int
		wantBody   string
	}{
		{"/healthz", http.StatusOK, "ok"},
		{"/readyz", http.StatusServiceUnavailable, "draining"},
		{"/metrics", http.StatusOK, "projectile_sweep_workers"},
		{"/", http.StatusOK, "<html>projectile</html>"},
		{"/missing.js", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := get(t, h, tt.path)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if !strings.Contains(w.Body.String(), tt.wantBody) {
				t.Errorf("body does not contain %q", tt.wantBody)
			}
		})
	}
}

func TestAuthEnabled(t *testing.T) {
	h := NewServer(":0", testLogger(), auth.Config{Enabled: true, Token: "tok"}, testDeps(1000)).Handler()

	if w := get(t, h, "/api/v1/trajectory?v=20&angle=45"); w.Code != http.StatusOK {
		t.Errorf("public GET: status = %d, want 200", w.Code)
	}
	// The web page falls back to this public JSON when the stream is refused.
	if w := get(t, h, "/"); w.Code != http.StatusOK {
		t.Errorf("web page: status = %d, want 200", w.Code)
	}
	if w := get(t, h, "/api/v1/stream/sse?v=20&angle=45"); w.Code != http.StatusUnauthorized {
		t.Errorf("sse without token: status = %d, want 401", w.Code)
	}
	if w := post(t, h, "/api/v1/sweep", `{"launches":[{"initial_velocity":1}]}`); w.Code != http.StatusUnauthorized {
		t.Errorf("sweep without token: status = %d, want 401", w.Code)
	}

	req := httptest.NewRequest("POST", "/api/v1/sweep", strings.NewReader(`{"launches":[{"initial_velocity":1}]}`))
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("sweep with token: status = %d, want 200", w.Code)
	}
}

// TestStreamsThroughMiddleware checks that the metrics and logging wrappers
// pass flushing and hijacking through to the streaming handlers.
func TestStreamsThroughMiddleware(t *testing.T) {
	srv := httptest.NewServer(testServer(testDeps(100000)))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/stream/sse?v=10&angle=45&step=0.5&speed=100")
	if err != nil {
		t.Fatalf("sse get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("sse status = %d", resp.StatusCode)
	}
	var last string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		if line := scanner.Text(); strings.HasPrefix(line, "data: ") {
			last = line
		}
	}
	if !strings.Contains(last, `"type":"done"`) {
		t.Errorf("last sse message = %q, want done", last)
	}

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/stream/ws?v=10&angle=45&step=0.5&speed=100"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("ws dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	frames := 0
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				t.Fatalf("ws read: %v", err)
			}
			break
		}
		frames++
	}
	// metadata, 3 samples (t = 0, 0.5, 1.0), done
	if frames != 5 {
		t.Errorf("ws frames = %d, want 5", frames)
	}
}

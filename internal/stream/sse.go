// Package stream replays sampled trajectories to clients in real time, over
// Server-Sent Events (GET /api/v1/stream/sse) or a websocket
// (GET /api/v1/stream/ws). Both take the launch query parameters plus:
//
//	step   sampling interval in seconds (default 0.05)
//	speed  playback rate, 1 = real time (default 1)
//
// Samples are sent one per step/speed of wall time. SSE message format:
//
//	data: {"type":"metadata","launch":{...},"summary":{...},"step":0.05,"speed":1,"samples":58}\n\n
//	data: {"type":"sample","i":0,"t":0,"x":0,"y":0}\n\n
//	...
//	data: {"type":"done","samples":58}\n\n
//
// Keep-alive comments (:\n\n) are sent every KeepaliveInterval when no sample
// went out, so slow playbacks survive idle proxies.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/Shravan-1908/projectile-motion-simulator/internal/cache"
	"github.com/Shravan-1908/projectile-motion-simulator/internal/httputil"
	"github.com/Shravan-1908/projectile-motion-simulator/internal/metrics"
	"github.com/Shravan-1908/projectile-motion-simulator/internal/projectile"
)

const (
	defaultStep  = 0.05
	maxStep      = 10.0
	defaultSpeed = 1.0
	maxSpeed     = 100.0
	minInterval  = time.Millisecond

	// writeTimeout bounds each write on a long-lived stream.
	writeTimeout = 30 * time.Second
)

// Config holds streaming configuration loaded from environment variables.
type Config struct {
	MaxConcurrentPerIP int           // Max concurrent streams per IP (default: 10).
	MaxConcurrent      int           // Max concurrent streams overall (default: 1000).
	KeepaliveInterval  time.Duration // Keep-alive interval (default: 30s).
	TrustProxy         bool          // Key limits on X-Forwarded-For (default: false).
	MaxPoints          int           // Max samples per stream (default: 100000).
}

// Handler manages streaming connections.
type Handler struct {
	cache   *cache.TrajectoryCache
	config  Config
	limiter *streamLimiter
	logger  *slog.Logger
}

// NewHandler creates a new streaming handler.
func NewHandler(trajCache *cache.TrajectoryCache, config Config, logger *slog.Logger) *Handler {
	return &Handler{
		cache:   trajCache,
		config:  config,
		limiter: newStreamLimiter(config.MaxConcurrentPerIP, config.MaxConcurrent),
		logger:  logger,
	}
}

// sender is one connection's write side.
type sender interface {
	sendJSON(v any) error
	sendKeepalive() error
}

// streamRequest is a parsed and budget-checked stream request.
type streamRequest struct {
	launch  projectile.Launch
	step    float64
	speed   float64
	samples []projectile.Sample
}

// prepare parses the query and samples the trajectory. On failure it has
// already written the error response.
func (h *Handler) prepare(w http.ResponseWriter, r *http.Request) (*streamRequest, bool) {
	q := r.URL.Query()
	launch, err := httputil.ParseLaunch(q)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}

	step, err := httputil.OptionalFloat(q, "step", defaultStep)
	if err != nil || step <= 0 || step > maxStep {
		httputil.WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid step parameter, must be in (0, %g]", maxStep))
		return nil, false
	}
	speed, err := httputil.OptionalFloat(q, "speed", defaultSpeed)
	if err != nil || speed <= 0 || speed > maxSpeed {
		httputil.WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid speed parameter, must be in (0, %g]", maxSpeed))
		return nil, false
	}

	if n := launch.Model().SampleBound(step); h.config.MaxPoints > 0 && n > h.config.MaxPoints {
		httputil.WriteJSON(w, http.StatusBadRequest, map[string]any{
			"error":      "trajectory exceeds the sampling budget",
			"points":     n,
			"max_points": h.config.MaxPoints,
		})
		return nil, false
	}

	samples, _, err := h.cache.GetOrCompute(launch, step)
	if err != nil {
		httputil.WriteError(w, http.StatusUnprocessableEntity, err.Error())
		return nil, false
	}

	return &streamRequest{launch: launch, step: step, speed: speed, samples: samples}, true
}

// acquire takes a stream slot for the client, answering 429 when none is free.
func (h *Handler) acquire(w http.ResponseWriter, r *http.Request) (string, bool) {
	ip := clientIP(r, h.config.TrustProxy)
	if !h.limiter.acquire(ip) {
		metrics.IncStreamErrors("rate_limit")
		h.logger.Warn("stream rate limit exceeded",
			"remote_ip", ip,
			"current_count", h.limiter.count(ip),
		)
		w.Header().Set("Retry-After", "30")
		httputil.WriteError(w, http.StatusTooManyRequests, "too many concurrent streams")
		return "", false
	}
	return ip, true
}

// track records connect/disconnect metrics and logs; call the returned
// function when the stream ends.
func (h *Handler) track(transport, ip string, r *http.Request, req *streamRequest) func() {
	metrics.IncStreamConnections(transport, "connect")
	metrics.IncStreamsActive()

	startTime := time.Now()
	h.logger.Info("stream connected",
		"transport", transport,
		"remote_ip", ip,
		"user_agent", r.Header.Get("User-Agent"),
		"step", req.step,
		"speed", req.speed,
		"samples", len(req.samples),
	)

	return func() {
		h.limiter.release(ip)
		metrics.IncStreamConnections(transport, "disconnect")
		metrics.DecStreamsActive()
		h.logger.Info("stream disconnected",
			"transport", transport,
			"remote_ip", ip,
			"duration_seconds", int(time.Since(startTime).Seconds()),
		)
	}
}

// HandleSSE serves the SSE trajectory stream.
func (h *Handler) HandleSSE(w http.ResponseWriter, r *http.Request) {
	req, ok := h.prepare(w, r)
	if !ok {
		return
	}

	ip, ok := h.acquire(w, r)
	if !ok {
		return
	}
	defer h.track("sse", ip, r, req)()

	// Verify flusher support (required for SSE).
	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.WriteError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering.
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// Clear the server's default WriteTimeout for this connection.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("could not clear write deadline", "error", err)
	}

	c := &sseClient{w: w, flusher: flusher, rc: rc, logger: h.logger}

	// Jittered retry interval (3-7s) spreads reconnects after a restart.
	fmt.Fprintf(w, "retry: %d\n\n", 3000+rand.Intn(4000))
	flusher.Flush()

	if err := h.replay(r.Context(), c, req); err != nil && !errors.Is(err, context.Canceled) {
		metrics.IncStreamErrors("send_error")
		h.logger.Warn("stream send error", "transport", "sse", "remote_ip", ip, "error", err)
	}
}

// sseClient writes stream messages as SSE frames.
type sseClient struct {
	w       http.ResponseWriter
	flusher http.Flusher
	rc      *http.ResponseController
	logger  *slog.Logger
}

// frame writes one SSE frame under a fresh write deadline and flushes it.
func (c *sseClient) frame(format string, args ...any) error {
	if err := c.rc.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		c.logger.Debug("could not set write deadline", "error", err)
	}
	n, err := fmt.Fprintf(c.w, format, args...)
	if err != nil {
		return err
	}
	c.flusher.Flush()
	metrics.AddStreamBytes(int64(n))
	return nil
}

func (c *sseClient) sendJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	if err := c.frame("data: %s\n\n", data); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	metrics.IncStreamMessages()
	return nil
}

// sendKeepalive writes an SSE comment, which clients ignore.
func (c *sseClient) sendKeepalive() error {
	if err := c.frame(":\n\n"); err != nil {
		return fmt.Errorf("keepalive write: %w", err)
	}
	return nil
}

// interval is the wall-clock gap between samples.
func (req *streamRequest) interval() time.Duration {
	d := time.Duration(req.step / req.speed * float64(time.Second))
	if d < minInterval {
		return minInterval
	}
	return d
}

// replay sends the metadata, every sample at the playback interval, and the
// closing message. It returns early with ctx.Err() when the client goes away.
func (h *Handler) replay(ctx context.Context, s sender, req *streamRequest) error {
	meta := newMetadata(req.launch, req.step, req.speed, len(req.samples))
	if err := s.sendJSON(meta); err != nil {
		return fmt.Errorf("metadata: %w", err)
	}

	ticker := time.NewTicker(req.interval())
	defer ticker.Stop()

	keepaliveTicker := time.NewTicker(h.keepalive())
	defer keepaliveTicker.Stop()

	for i := 0; i < len(req.samples); {
		// The launch point goes out immediately.
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-keepaliveTicker.C:
				if err := s.sendKeepalive(); err != nil {
					return fmt.Errorf("keepalive: %w", err)
				}
				continue
			case <-ticker.C:
			}
		}

		if err := s.sendJSON(newSample(i, req.samples[i])); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("sample %d: %w", i, err)
		}
		keepaliveTicker.Reset(h.keepalive())
		i++
	}

	if err := s.sendJSON(doneMessage{Type: "done", Samples: len(req.samples)}); err != nil {
		return fmt.Errorf("done: %w", err)
	}
	return nil
}

func (h *Handler) keepalive() time.Duration {
	if h.config.KeepaliveInterval <= 0 {
		return 30 * time.Second
	}
	return h.config.KeepaliveInterval
}

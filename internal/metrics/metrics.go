package metrics

import (
	"bufio"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "projectile_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "projectile_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	evaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "projectile_evaluations_total",
			Help: "Launch evaluations by outcome.",
		},
		[]string{"result"},
	)

	batchDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "projectile_batch_duration_seconds",
			Help:    "Duration of a batch evaluation through the worker pool.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
	)

	samplesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "projectile_trajectory_samples_total",
			Help: "Trajectory points produced by fixed-step sampling.",
		},
	)

	sweepWorkers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "projectile_sweep_workers",
			Help: "Configured size of the batch worker pool.",
		},
	)

	cacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "projectile_cache_hits_total",
		Help: "Trajectory cache hits.",
	})
	cacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "projectile_cache_misses_total",
		Help: "Trajectory cache misses.",
	})
	cacheEvictionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "projectile_cache_evictions_total",
		Help: "Trajectory cache evictions.",
	})
	cacheEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "projectile_cache_entries",
		Help: "Trajectories currently cached.",
	})

	streamConnectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "projectile_stream_connections_total",
			Help: "Stream connection events.",
		},
		[]string{"transport", "event"},
	)
	streamsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "projectile_streams_active",
		Help: "Open SSE and websocket streams.",
	})
	streamMessagesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "projectile_stream_messages_total",
		Help: "Messages written to stream clients.",
	})
	streamBytesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "projectile_stream_bytes_total",
		Help: "Bytes written to stream clients.",
	})
	streamErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "projectile_stream_errors_total",
			Help: "Stream errors by reason.",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		evaluationsTotal,
		batchDurationSeconds,
		samplesTotal,
		sweepWorkers,
		cacheHitsTotal,
		cacheMissesTotal,
		cacheEvictionsTotal,
		cacheEntries,
		streamConnectionsTotal,
		streamsActive,
		streamMessagesTotal,
		streamBytesTotal,
		streamErrorsTotal,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordBatch records one worker pool batch.
func RecordBatch(d time.Duration, success, failed int) {
	batchDurationSeconds.Observe(d.Seconds())
	evaluationsTotal.WithLabelValues("success").Add(float64(success))
	evaluationsTotal.WithLabelValues("error").Add(float64(failed))
}

// IncEvaluations counts a single evaluation served outside the pool.
func IncEvaluations(result string) { evaluationsTotal.WithLabelValues(result).Inc() }

func AddSamples(n int) { samplesTotal.Add(float64(n)) }
func SetSweepWorkers(n int) { sweepWorkers.Set(float64(n)) }
func IncCacheHits() { cacheHitsTotal.Inc() }
func IncCacheMisses() { cacheMissesTotal.Inc() }
func AddCacheEvictions(n int) { cacheEvictionsTotal.Add(float64(n)) }
func SetCacheEntries(n int) { cacheEntries.Set(float64(n)) }

func IncStreamConnections(transport, event string) {
	streamConnectionsTotal.WithLabelValues(transport, event).Inc()
}
func IncStreamsActive() { streamsActive.Inc() }
func DecStreamsActive() { streamsActive.Dec() }
func IncStreamMessages() { streamMessagesTotal.Inc() }
func AddStreamBytes(n int64) { streamBytesTotal.Add(float64(n)) }
func IncStreamErrors(reason string) { streamErrorsTotal.WithLabelValues(reason).Inc() }

// knownRoutes are the exact paths served by the API. Anything else is
// reported as "other" to keep label cardinality bounded.
var knownRoutes = map[string]bool{
	"/":                       true,
	"/healthz":                true,
	"/readyz":                 true,
	"/metrics":                true,
	"/api/v1/trajectory":      true,
	"/api/v1/trajectory.csv":  true,
	"/api/v1/trajectory/plot": true,
	"/api/v1/position":        true,
	"/api/v1/velocity":        true,
	"/api/v1/sweep":           true,
	"/api/v1/cache/stats":     true,
	"/api/v1/stream/sse":      true,
	"/api/v1/stream/ws":       true,
}

// normalizeRoute maps a request path to a bounded label value.
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	if p := strings.TrimSuffix(path, "/"); p != path && knownRoutes[p] {
		return p
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush lets streaming handlers flush through the wrapper.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack lets the websocket upgrader take over the connection.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return http.NewResponseController(rw.ResponseWriter).Hijack()
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}

package api

import (
	"bufio"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/Shravan-1908/projectile-motion-simulator/internal/auth"
	"github.com/Shravan-1908/projectile-motion-simulator/internal/cache"
	"github.com/Shravan-1908/projectile-motion-simulator/internal/health"
	"github.com/Shravan-1908/projectile-motion-simulator/internal/httputil"
	"github.com/Shravan-1908/projectile-motion-simulator/internal/metrics"
	"github.com/Shravan-1908/projectile-motion-simulator/internal/stream"
	"github.com/Shravan-1908/projectile-motion-simulator/internal/sweep"
)

// Deps are the components the handlers serve from.
type Deps struct {
	Cache     *cache.TrajectoryCache
	Evaluator *sweep.Evaluator
	Stream    *stream.Handler
	MaxPoints int          // Per-request sampling budget, 0 disables the check.
	Web       fs.FS        // Static frontend, nil disables GET /.
	Ready     func() error // Readiness check, nil is always ready.
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a configured HTTP server.
func NewServer(addr string, logger *slog.Logger, authCfg auth.Config, deps Deps) *Server {
	mux := http.NewServeMux()

	// Register routes.
	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz(deps.Ready))
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /api/v1/trajectory", trajectoryHandler(logger, deps))
	mux.HandleFunc("GET /api/v1/trajectory.csv", trajectoryCSVHandler(logger, deps))
	mux.HandleFunc("GET /api/v1/trajectory/plot", trajectoryPlotHandler(logger, deps))
	mux.HandleFunc("GET /api/v1/position", positionHandler)
	mux.HandleFunc("GET /api/v1/velocity", velocityHandler)
	mux.HandleFunc("POST /api/v1/sweep", sweepHandler(logger, deps))
	mux.HandleFunc("GET /api/v1/cache/stats", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, deps.Cache.Stats())
	})

	if deps.Stream != nil {
		mux.HandleFunc("GET /api/v1/stream/sse", deps.Stream.HandleSSE)
		mux.HandleFunc("GET /api/v1/stream/ws", deps.Stream.HandleWS)
	}

	if deps.Web != nil {
		mux.Handle("GET /", http.FileServerFS(deps.Web))
	}

	// Build middleware chain: metrics -> logging -> auth -> mux.
	var handler http.Handler = mux
	handler = auth.Middleware(authCfg)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = metrics.Middleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger: logger,
	}
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Handler returns the root handler with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// probePath returns true for health/readiness probe paths that should not log at INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return http.NewResponseController(sr.ResponseWriter).Hijack()
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

func loggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"component", "api",
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", duration.Milliseconds(),
				"remote_ip", r.RemoteAddr,
			)
		})
	}
}

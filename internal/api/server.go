// Package api is the portal's REST surface: routing, middleware and the
// handlers that translate HTTP into service calls.
package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"barangay-portal/internal/common/config"
	"barangay-portal/internal/common/logger"
	"barangay-portal/internal/common/metrics"
	"barangay-portal/internal/service"
	"barangay-portal/internal/storage"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

// ReadyFunc reports whether the backends the API depends on are reachable.
type ReadyFunc func(ctx context.Context) error

type Options struct {
	Service        *service.Service
	Storage        *storage.Storage
	Redis          redis.Cmdable
	Server         config.ServerConfig
	IdempotencyTTL time.Duration
	Ready          ReadyFunc
	Logger         logger.Logger
}

type Server struct {
	svc     *service.Service
	storage *storage.Storage
	idem    *idempotency
	cfg     config.ServerConfig
	ready   ReadyFunc
	logger  logger.Logger
	mux     *http.ServeMux
}

func NewServer(o Options) *Server {
	log := o.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	s := &Server{
		svc:     o.Service,
		storage: o.Storage,
		cfg:     o.Server,
		ready:   o.Ready,
		logger:  log.WithFields(map[string]interface{}{"component": "api"}),
		mux:     http.NewServeMux(),
	}
	if o.Redis != nil {
		s.idem = newIdempotency(o.Redis, o.IdempotencyTTL)
	}
	s.routes()
	return s
}

// Handler returns the mux wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = s.authenticate(h)
	h = s.recovery(h)
	h = s.logRequests(h)
	h = s.requestID(h)
	h = cors(s.cfg.AllowedOrigins)(h)
	return h
}

// handle registers h under pattern with per-route metrics.
func (s *Server) handle(pattern string, h http.HandlerFunc) {
	s.mux.Handle(pattern, instrument(pattern, h))
}

func (s *Server) routes() {
	s.handle("GET /health", s.health)
	s.handle("GET /ready", s.readiness)
	s.mux.Handle("GET /metrics", promhttp.Handler())

	s.registerRequestRoutes()
	s.registerCourtRoutes()
	s.registerAccountRoutes()
	s.registerContentRoutes()
	s.registerReportRoutes()

	if s.storage != nil {
		s.mux.Handle("GET "+s.storage.Prefix()+"/", s.storage.Handler())
	}
	s.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, Result{Success: false, Message: "Route not found", Code: "RESOURCE_NOT_FOUND"})
	})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (s *Server) readiness(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// OpsHandler serves health, readiness and metrics on the operations port.
func OpsHandler(ready ReadyFunc) http.Handler {
	s := &Server{ready: ready, logger: logger.NewNoOpLogger(), mux: http.NewServeMux()}
	s.mux.HandleFunc("GET /health", s.health)
	s.mux.HandleFunc("GET /ready", s.readiness)
	s.mux.Handle("GET /metrics", promhttp.Handler())
	return s.mux
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

func (r *statusRecorder) code() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

// instrument records metrics labelled with the route pattern, not the raw
// path, so ids do not explode label cardinality.
func instrument(pattern string, h http.Handler) http.Handler {
	route := pattern
	if _, path, ok := strings.Cut(pattern, " "); ok {
		route = path
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		h.ServeHTTP(rec, r)
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.code())).Inc()
	})
}

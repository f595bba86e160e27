// Package server exposes the pipeline over HTTP: run submission, progress
// streaming, results, artifact download and health.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/jobs"
	"github.com/sells-group/leadgen-cli/internal/pipeline"
	"github.com/sells-group/leadgen-cli/internal/stream"
)

// Starter schedules pipeline runs.
type Starter interface {
	Start(ctx context.Context, req pipeline.RunRequest) (string, error)
}

// HealthFunc returns the health report served on /api/health.
type HealthFunc func() any

// Options configures a Server.
type Options struct {
	// CORSOrigins lists the browser origins allowed to call the API.
	CORSOrigins []string
	// MaxLeads is used when a run request omits max_leads.
	MaxLeads int
	Health   HealthFunc
}

// Server holds the HTTP handlers.
type Server struct {
	ctx      context.Context
	runner   Starter
	registry *jobs.Registry
	gateway  *stream.Gateway
	opts     Options
	validate *validator.Validate
}

// New creates a Server. ctx is the lifetime of jobs started through it,
// independent of any single request.
func New(ctx context.Context, runner Starter, registry *jobs.Registry, gateway *stream.Gateway, opts Options) *Server {
	if opts.Health == nil {
		opts.Health = func() any { return map[string]string{"status": "ok"} }
	}
	return &Server{
		ctx:      ctx,
		runner:   runner,
		registry: registry,
		gateway:  gateway,
		opts:     opts,
		validate: validator.New(),
	}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.opts.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Post("/run", s.handleRun)
		r.Get("/stream/{jobID}", s.handleStream)
		r.Get("/results/{jobID}", s.handleResults)
		r.Get("/download/{jobID}", s.handleDownload)
		r.Get("/jobs", s.handleJobs)
		r.Get("/health", s.handleHealth)
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("server: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("server: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, jobs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, jobs.ErrSubscribed):
		return http.StatusConflict
	case errors.Is(err, pipeline.ErrEmptyURL):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

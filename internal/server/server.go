// Package server exposes the read-only HTTP API over verification
// artifacts: per-test run history, the current failure report, and an
// aggregate health view. It serves files the verifier already wrote and
// never triggers runs itself.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Config locates the artifacts the API serves.
type Config struct {
	// HistoryDir holds the <module>_history.json files.
	HistoryDir string
	// ReportDir holds the <module>_failures.json files.
	ReportDir string
}

// Server serves verification history and failure reports over HTTP.
type Server struct {
	cfg Config
	log *zap.Logger
}

// New returns a Server reading artifacts from the configured directories.
func New(cfg Config) *Server {
	return &Server{
		cfg: cfg,
		log: zap.L().With(zap.String("component", "server")),
	}
}

// Handler builds the API router. CORS is open so the static dashboard
// page can call the API from another origin.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(s.logRequests)

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/modules/{module}/test-cases/{test}/history", s.handleTestHistory)
	r.Get("/api/modules/{module}/report", s.handleReport)

	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (s *Server) respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, msg string) {
	s.respond(w, status, map[string]string{"error": msg})
}

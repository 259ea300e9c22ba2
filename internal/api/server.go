// Package api exposes the preview HTTP server for generated output.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/snapsite/snapsite/internal/metrics"
)

// Server serves the rendered output directory alongside health and metrics
// endpoints, so a generated site can be inspected before deployment.
type Server struct {
	router chi.Router
	logger *zap.Logger
}

// NewServer constructs a Server rooted at outputDir.
func NewServer(outputDir string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{logger: logger}

	r := chi.NewRouter()
	r.Use(s.requestLogger)

	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Handle("/*", http.FileServer(http.Dir(outputDir)))

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]string{"status": "ok"}); err != nil {
		s.logger.Warn("healthz write failed", zap.Error(err))
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request served",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("dur", time.Since(start)),
		)
	})
}

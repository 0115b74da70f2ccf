package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/seismic-watch-service/internal/domain"
)

// EpicenterSource returns the most recent persisted estimate.
type EpicenterSource interface {
	LatestTriangulation(ctx context.Context) (domain.TriangulationRecord, error)
}

// Server exposes health, readiness, metrics and read-only epicenter endpoints.
type Server struct {
	httpServer *http.Server
	epicenters EpicenterSource
	stations   *domain.Registry
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and the
// /api/v1 routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, epicenters EpicenterSource, stations *domain.Registry, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		epicenters: epicenters,
		stations:   stations,
		logger:     logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/v1/epicenter/latest", s.handleLatestEpicenter)
	mux.HandleFunc("GET /api/v1/stations", s.handleStations)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleLatestEpicenter(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	rec, err := s.epicenters.LatestTriangulation(ctx)
	switch {
	case errors.Is(err, domain.ErrRecordNotFound):
		sharedobs.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "no epicenter estimate yet"})
		return
	case err != nil:
		s.logger.Error("latest epicenter lookup failed", "error", err)
		sharedobs.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "store unavailable"})
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, rec)
}

func (s *Server) handleStations(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{"stations": s.stations.Stations()})
}

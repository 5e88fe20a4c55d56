package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/macrolab/macindex/internal/composite"
	"github.com/macrolab/macindex/internal/telemetry"
	"github.com/macrolab/macindex/internal/validate"
)

// SeriesStore supplies the rows the server renders. Handlers are strictly
// read-only: they never recompute scores, only display the stored table.
type SeriesStore interface {
	LatestSeries(ctx context.Context) ([]composite.Row, error)
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// DefaultServerConfig binds locally on 8080.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:         "127.0.0.1:8080",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// Server is the read-only HTTP surface: series and validation JSON,
// health, Prometheus metrics, and the websocket progress feed.
type Server struct {
	cfg        ServerConfig
	router     *mux.Router
	srv        *http.Server
	store      SeriesStore
	validation *validate.Metrics
	hub        *ProgressHub
}

// NewServer wires routes. validation may be nil until a validation has
// been run; metrics may be nil to omit the /metrics endpoint.
func NewServer(cfg ServerConfig, store SeriesStore, validation *validate.Metrics, metrics *telemetry.Metrics, hub *ProgressHub) *Server {
	s := &Server{
		cfg:        cfg,
		router:     mux.NewRouter(),
		store:      store,
		validation: validation,
		hub:        hub,
	}

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/series/latest", s.handleLatestSeries).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/validation", s.handleValidation).Methods(http.MethodGet)
	if metrics != nil {
		s.router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	}
	if hub != nil {
		s.router.HandleFunc("/ws/progress", hub.handleWS)
	}

	s.srv = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start serves until the context is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.cfg.Addr).Msg("http server listening")
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLatestSeries(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.LatestSeries(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to load latest series")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "series unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rows":  rows,
		"count": len(rows),
	})
}

func (s *Server) handleValidation(w http.ResponseWriter, _ *http.Request) {
	if s.validation == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no validation has been run"})
		return
	}
	writeJSON(w, http.StatusOK, s.validation)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

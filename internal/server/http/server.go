// Package httpserver exposes the REST API of the paper discovery service.
package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/helixir/paper-discovery-service/internal/cache"
	"github.com/helixir/paper-discovery-service/internal/discovery"
	"github.com/helixir/paper-discovery-service/internal/papersources"
)

// Server wires the discovery service, caches and source registry behind a
// chi router.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	discovery  *discovery.Service
	paperCache *cache.PaperCache
	registry   *papersources.Registry
	logger     zerolog.Logger
}

// Config holds the HTTP listener settings.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// NewServer assembles the server and its routes.
func NewServer(
	cfg Config,
	discoveryService *discovery.Service,
	paperCache *cache.PaperCache,
	registry *papersources.Registry,
	logger zerolog.Logger,
) *Server {
	s := &Server{
		discovery:  discoveryService,
		paperCache: paperCache,
		registry:   registry,
		logger:     logger.With().Str("component", "http-server").Logger(),
	}
	s.router = s.buildRouter()
	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(correlationIDMiddleware)
	r.Use(s.requestLogMiddleware)

	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(jsonContentTypeMiddleware)

		r.Get("/papers/random", s.getRandomPapers)
		r.Get("/papers/search", s.searchPapers)
		r.Get("/papers/{source}/{paperID}", s.getPaper)

		r.Delete("/cache/summaries", s.clearSummaryCache)
		r.Delete("/cache/samples", s.clearSampleCache)
	})

	return r
}

// Start listens and serves until Shutdown or a listener error.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server listening")
	return s.httpServer.Serve(ln)
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readinessHandler reports ready only when at least one paper source is
// enabled, so load balancers skip instances with a fully disabled registry.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	enabled := make([]string, 0, 4)
	for _, source := range s.registry.EnabledSources() {
		enabled = append(enabled, source.Name())
	}

	status, code := "ready", http.StatusOK
	body := map[string]any{"sources": enabled}
	if len(enabled) == 0 {
		status, code = "not_ready", http.StatusServiceUnavailable
		body["error"] = "no paper sources enabled"
	}
	body["status"] = status
	writeJSON(w, code, body)
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	// Encode errors past this point cannot change the response; headers
	// are already on the wire.
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

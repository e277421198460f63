// Package httpserver provides the HTTP server that serves literature search results as RSS.
package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/helixir/inspire-rss-service/internal/observability"
)

// FeedRenderer produces an RSS document for a set of forwarded query parameters.
type FeedRenderer interface {
	Render(ctx context.Context, params url.Values) (string, error)
}

// UpstreamStatus reports the upstream circuit breaker state for health checks.
type UpstreamStatus interface {
	BreakerState() string
}

// Server is the HTTP feed server.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	renderer   FeedRenderer
	upstream   UpstreamStatus
	metrics    *observability.Metrics
	logger     zerolog.Logger
	config     Config
}

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// NewServer creates a new HTTP server. upstream and metrics may be nil.
func NewServer(
	cfg Config,
	renderer FeedRenderer,
	upstream UpstreamStatus,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Server {
	s := &Server{
		renderer: renderer,
		upstream: upstream,
		metrics:  metrics,
		logger:   logger.With().Str("component", "http-server").Logger(),
		config:   cfg,
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

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(correlationIDMiddleware)
	r.Use(requestLoggerMiddleware(s.logger, s.metrics))

	r.Get("/", s.feedHandler)
	r.Get("/healthz", s.healthHandler)

	return r
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server, waiting at most
// Config.ShutdownTimeout for in-flight requests when it is set.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.config.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()
	}
	s.logger.Info().Msg("HTTP server shutting down")
	return s.httpServer.Shutdown(ctx)
}

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	body := map[string]string{"status": "ok"}
	if s.upstream != nil {
		body["upstream_circuit"] = s.upstream.BreakerState()
	}
	writeJSON(w, r, http.StatusOK, body)
}

// writeJSON writes a JSON response with the given status code. Encoding errors
// are logged to the request logger since the status line is already sent.
func writeJSON(w http.ResponseWriter, r *http.Request, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to encode JSON response")
	}
}

// Package server exposes the entity lookups over HTTP.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/jonwraymond/pokedex/auth"
	"github.com/jonwraymond/pokedex/health"
	"github.com/jonwraymond/pokedex/internal/aggregator"
	"github.com/jonwraymond/pokedex/internal/outcome"
	"github.com/jonwraymond/pokedex/observe"
)

// EntityService is implemented by *aggregator.Service.
type EntityService interface {
	BasicInfo(ctx context.Context, name string) outcome.Result[aggregator.Response]
	EnrichedInfo(ctx context.Context, name string) outcome.Result[aggregator.Response]
}

// Config holds listener settings.
type Config struct {
	Addr              string
	ReadHeaderTimeout time.Duration
}

// Server routes inbound requests.
type Server struct {
	svc     EntityService
	logger  observe.Logger
	health  *health.Aggregator
	metrics http.Handler
	authn   auth.Authenticator

	handler http.Handler
	http    *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l observe.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithHealth mounts /healthz, /readyz and /health backed by agg.
func WithHealth(agg *health.Aggregator) Option {
	return func(s *Server) { s.health = agg }
}

// WithMetricsHandler mounts h on /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithAuthenticator requires a on the entity routes. Health and metrics
// stay open.
func WithAuthenticator(a auth.Authenticator) Option {
	return func(s *Server) { s.authn = a }
}

// New creates a Server.
func New(cfg Config, svc EntityService, opts ...Option) *Server {
	s := &Server{svc: svc, logger: observe.NopLogger()}
	for _, opt := range opts {
		opt(s)
	}

	s.handler = s.routes()
	if cfg.ReadHeaderTimeout == 0 {
		cfg.ReadHeaderTimeout = 5 * time.Second
	}
	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
	return s
}

func (s *Server) routes() http.Handler {
	entities := http.NewServeMux()
	entities.HandleFunc("GET /entity/{name}", s.handleBasic)
	entities.HandleFunc("GET /entity/enriched/{name}", s.handleEnriched)
	entities.HandleFunc("GET /pokemon/{name}", s.handleBasic)
	entities.HandleFunc("GET /pokemon/translated/{name}", s.handleEnriched)

	var entityHandler http.Handler = entities
	if s.authn != nil {
		entityHandler = auth.Middleware(s.authn, func(w http.ResponseWriter, _ *http.Request, err error) {
			writeError(w, http.StatusUnauthorized, err.Error())
		})(entities)
	}

	mux := http.NewServeMux()
	mux.Handle("/entity/", entityHandler)
	mux.Handle("/pokemon/", entityHandler)
	if s.health != nil {
		health.RegisterHandlers(mux, s.health)
	}
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}

	return requestID(logRequests(s.logger, mux))
}

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Addr returns the configured listen address.
func (s *Server) Addr() string { return s.http.Addr }

// ListenAndServe blocks until the server stops. A graceful Shutdown is
// not an error.
func (s *Server) ListenAndServe() error {
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(l net.Listener) error {
	if err := s.http.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleBasic(w http.ResponseWriter, r *http.Request) {
	s.respond(w, s.svc.BasicInfo(r.Context(), r.PathValue("name")))
}

func (s *Server) handleEnriched(w http.ResponseWriter, r *http.Request) {
	s.respond(w, s.svc.EnrichedInfo(r.Context(), r.PathValue("name")))
}

func (s *Server) respond(w http.ResponseWriter, res outcome.Result[aggregator.Response]) {
	if res.Ok() {
		writeJSON(w, http.StatusOK, res.Value)
		return
	}
	msg := http.StatusText(res.Status)
	if msg == "" {
		msg = res.Kind.String()
	}
	writeError(w, res.Status, msg)
}

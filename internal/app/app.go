// Package app wires the service together from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonwraymond/pokedex/auth"
	"github.com/jonwraymond/pokedex/cache"
	"github.com/jonwraymond/pokedex/health"
	"github.com/jonwraymond/pokedex/internal/aggregator"
	"github.com/jonwraymond/pokedex/internal/config"
	"github.com/jonwraymond/pokedex/internal/metadata"
	"github.com/jonwraymond/pokedex/internal/rewrite"
	"github.com/jonwraymond/pokedex/internal/server"
	"github.com/jonwraymond/pokedex/internal/upstream"
	"github.com/jonwraymond/pokedex/observe"
	"github.com/jonwraymond/pokedex/resilience"
)

// Dependency names used for breakers, telemetry and health checks.
const (
	DependencyMetadata = "metadata"
	DependencyRewrite  = "rewrite"
)

// App owns every long-lived component.
type App struct {
	cfg      *config.Config
	observer observe.Observer
	logger   observe.Logger
	registry *prometheus.Registry
	health   *health.Aggregator
	server   *server.Server

	metadata *resilience.Pipeline
	rewrite  *resilience.Pipeline
	closers  []io.Closer
}

// Option configures New.
type Option func(*options)

type options struct {
	logWriter  io.Writer
	version    string
	httpClient *http.Client
}

// WithLogWriter redirects logs. Default: os.Stderr.
func WithLogWriter(w io.Writer) Option {
	return func(o *options) { o.logWriter = w }
}

// WithVersion labels telemetry and the User-Agent.
func WithVersion(v string) Option {
	return func(o *options) { o.version = v }
}

// WithHTTPClient replaces the outbound HTTP client of both dependencies.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// New builds the application. Nothing listens until Run.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	o := options{logWriter: os.Stderr, version: "dev"}
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{cfg: cfg, registry: prometheus.NewRegistry()}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	obsCfg := cfg.Observe.ToObserve()
	obsCfg.Version = o.version
	obsCfg.Metrics.Registerer = a.registry
	obsCfg.Logging.Writer = o.logWriter
	obs, err := observe.NewObserver(ctx, obsCfg)
	if err != nil {
		return nil, fmt.Errorf("observe: %w", err)
	}
	a.observer = obs
	a.logger = obs.Logger()

	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("observe middleware: %w", err), obs.Shutdown(ctx))
	}

	hooks := pipelineHooks(a.logger, mw.Metrics())
	policy := cfg.Resilience.Policy()
	a.metadata = resilience.FromPolicy(DependencyMetadata, policy, hooks)

	var rwOpts []resilience.Option
	if rl := cfg.Rewrite.RateLimit; rl.Limit > 0 {
		rwOpts = append(rwOpts, resilience.WithRateLimiter(resilience.NewRateLimiter(resilience.RateLimiterConfig{
			Limit: rl.Limit,
			Per:   rl.Per,
			Burst: rl.Burst,
		})))
	}
	a.rewrite = resilience.FromPolicy(DependencyRewrite, policy, hooks, rwOpts...)

	clientOpts := []upstream.Option{upstream.WithMiddleware(mw)}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, upstream.WithHTTPClient(o.httpClient))
	}
	userAgent := cfg.Observe.ServiceName + "/" + o.version

	metaHTTP, err := upstream.New(upstream.Config{
		Name:      DependencyMetadata,
		BaseURL:   cfg.Metadata.BaseURL,
		UserAgent: userAgent,
	}, a.metadata, clientOpts...)
	if err != nil {
		return nil, a.abort(ctx, err)
	}
	rwHTTP, err := upstream.New(upstream.Config{
		Name:      DependencyRewrite,
		BaseURL:   cfg.Rewrite.BaseURL,
		UserAgent: userAgent,
	}, a.rewrite, clientOpts...)
	if err != nil {
		return nil, a.abort(ctx, err)
	}

	a.health = health.NewAggregator(2 * time.Second)
	a.health.Register(
		health.NewBreakerChecker(a.metadata.Breaker(), health.Critical),
		health.NewBreakerChecker(a.rewrite.Breaker(), health.Optional),
		health.NewMemoryChecker(0, 0.9, 0.97),
	)

	var metaOpts []metadata.Option
	store, err := a.openCache(ctx)
	if err != nil {
		return nil, a.abort(ctx, err)
	}
	if store != nil {
		loader := cache.NewLoader(store, cache.Policy{TTL: cfg.Cache.TTL, MaxTTL: cfg.Cache.MaxTTL})
		metaOpts = append(metaOpts, metadata.WithCache(loader, cache.Keyer{Prefix: cfg.Observe.ServiceName}))
	}

	providers := make(map[rewrite.ProviderID]string, len(cfg.Rewrite.Providers))
	for id, path := range cfg.Rewrite.Providers {
		providers[rewrite.ProviderID(id)] = path
	}

	svc := aggregator.New(
		metadata.New(metaHTTP, metadata.Config{
			SpeciesPath: cfg.Metadata.SpeciesPath,
			Language:    cfg.Metadata.Language,
		}, metaOpts...),
		rewrite.New(rwHTTP, providers),
		aggregator.WithLogger(a.logger),
		aggregator.WithMetrics(mw.Metrics()),
	)

	srvOpts := []server.Option{server.WithLogger(a.logger), server.WithHealth(a.health)}
	if cfg.Observe.Metrics.Enabled && cfg.Observe.Metrics.Exporter == "prometheus" {
		srvOpts = append(srvOpts, server.WithMetricsHandler(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))
	}
	if authn := authenticator(cfg.Auth); authn != nil {
		srvOpts = append(srvOpts, server.WithAuthenticator(authn))
	}
	a.server = server.New(server.Config{
		Addr:              cfg.Server.Addr,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}, svc, srvOpts...)

	return a, nil
}

func (a *App) openCache(ctx context.Context) (cache.Cache, error) {
	switch a.cfg.Cache.Backend {
	case "memory":
		return cache.NewMemoryCache(cache.WithMaxEntries(a.cfg.Cache.MaxEntries)), nil
	case "redis":
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			URL:      a.cfg.Cache.RedisURL,
			Password: a.cfg.Cache.RedisPassword,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, rc)
		a.health.Register(health.PingChecker("redis", health.Optional, rc.Ping))
		return rc, nil
	default:
		return nil, nil
	}
}

func authenticator(cfg config.AuthConfig) auth.Authenticator {
	if !cfg.Enabled {
		return nil
	}
	var auths []auth.Authenticator
	if len(cfg.APIKeys) > 0 {
		auths = append(auths, auth.NewAPIKeyAuthenticator("", cfg.APIKeys...))
	}
	if cfg.JWTSecret != "" {
		auths = append(auths, auth.NewJWTAuthenticator(auth.JWTConfig{
			Secret: []byte(cfg.JWTSecret),
			Issuer: cfg.JWTIssuer,
			Leeway: 30 * time.Second,
		}))
	}
	return auth.NewCompositeAuthenticator(auths...)
}

func pipelineHooks(logger observe.Logger, metrics observe.Metrics) resilience.Hooks {
	return resilience.Hooks{
		OnRetry: func(dep string, attempt int, err error, delay time.Duration) {
			ctx := context.Background()
			metrics.RecordRetry(ctx, dep, attempt)
			logger.Debug(ctx, "retrying upstream call",
				observe.Field{Key: "dependency", Value: dep},
				observe.Field{Key: "attempt", Value: attempt},
				observe.Field{Key: "delay_ms", Value: delay.Milliseconds()},
				observe.Field{Key: "error", Value: err},
			)
		},
		OnStateChange: func(dep string, from, to resilience.State) {
			ctx := context.Background()
			metrics.RecordBreakerTransition(ctx, dep, from.String(), to.String())
			logger.Warn(ctx, "circuit breaker state changed",
				observe.Field{Key: "dependency", Value: dep},
				observe.Field{Key: "from", Value: from.String()},
				observe.Field{Key: "to", Value: to.String()},
			)
		},
	}
}

// Handler returns the HTTP handler, for tests and embedding.
func (a *App) Handler() http.Handler { return a.server.Handler() }

// Logger returns the application logger.
func (a *App) Logger() observe.Logger { return a.logger }

// Health returns the health aggregator.
func (a *App) Health() *health.Aggregator { return a.health }

// Breakers returns the metadata and rewrite breakers.
func (a *App) Breakers() (meta, rw *resilience.CircuitBreaker) {
	return a.metadata.Breaker(), a.rewrite.Breaker()
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully
// within the configured shutdown timeout. A nil listener listens on the
// configured address.
func (a *App) Run(ctx context.Context, l net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		if l != nil {
			errCh <- a.server.Serve(l)
			return
		}
		errCh <- a.server.ListenAndServe()
	}()
	a.logger.Info(ctx, "pokedex listening", observe.Field{Key: "addr", Value: a.server.Addr()})

	select {
	case err := <-errCh:
		return errors.Join(err, a.Close(context.Background()))
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	a.logger.Info(shutdownCtx, "shutting down")
	err := a.server.Shutdown(shutdownCtx)
	<-errCh
	return errors.Join(err, a.Close(shutdownCtx))
}

// Close releases the cache connection and flushes telemetry.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	a.closers = nil
	if a.observer != nil {
		errs = append(errs, a.observer.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

func (a *App) abort(ctx context.Context, err error) error {
	return errors.Join(err, a.Close(ctx))
}

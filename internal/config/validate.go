package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/jonwraymond/pokedex/observe"
)

var (
	// ErrInvalid wraps every validation failure.
	ErrInvalid = errors.New("invalid config")
	// ErrMissingEnv is returned when a ${VAR} reference is unset.
	ErrMissingEnv = errors.New("missing required environment variables")
)

var validCacheBackends = map[string]bool{"none": true, "memory": true, "redis": true}

// Validate checks the loaded config for required fields and safe values.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalid)
	}

	if strings.TrimSpace(cfg.Server.Addr) == "" {
		return invalid("server.addr must be set")
	}
	if cfg.Server.ShutdownTimeout < 0 {
		return invalid("server.shutdown_timeout must not be negative")
	}

	if err := validateBaseURL("metadata.base_url", cfg.Metadata.BaseURL); err != nil {
		return err
	}
	if !strings.Contains(cfg.Metadata.SpeciesPath, "{name}") {
		return invalid("metadata.species_path %q must contain {name}", cfg.Metadata.SpeciesPath)
	}

	if err := validateBaseURL("rewrite.base_url", cfg.Rewrite.BaseURL); err != nil {
		return err
	}
	for id, path := range cfg.Rewrite.Providers {
		if path != "" && !strings.HasPrefix(path, "/") {
			return invalid("rewrite.providers.%s: path %q must start with /", id, path)
		}
	}
	if rl := cfg.Rewrite.RateLimit; rl.Limit < 0 || rl.Burst < 0 || rl.Per < 0 {
		return invalid("rewrite.rate_limit values must not be negative")
	}

	if err := cfg.Resilience.Policy().Validate(); err != nil {
		return fmt.Errorf("%w: resilience: %w", ErrInvalid, err)
	}

	if !validCacheBackends[cfg.Cache.Backend] {
		return invalid("cache.backend %q must be none, memory or redis", cfg.Cache.Backend)
	}
	if cfg.Cache.Backend == "redis" && strings.TrimSpace(cfg.Cache.RedisURL) == "" {
		return invalid("cache.redis_url must be set for the redis backend")
	}
	if cfg.Cache.TTL < 0 || cfg.Cache.MaxEntries < 0 {
		return invalid("cache.ttl and cache.max_entries must not be negative")
	}

	if cfg.Auth.Enabled && len(cfg.Auth.APIKeys) == 0 && cfg.Auth.JWTSecret == "" {
		return invalid("auth.enabled requires auth.api_keys or auth.jwt_secret")
	}

	obs := cfg.Observe.ToObserve()
	if err := obs.Validate(); err != nil {
		return fmt.Errorf("%w: observe: %w", ErrInvalid, err)
	}

	return nil
}

// ToObserve converts the section to an observe.Config with logging on.
func (o ObserveConfig) ToObserve() observe.Config {
	return observe.Config{
		ServiceName: o.ServiceName,
		Tracing: observe.TracingConfig{
			Enabled:   o.Tracing.Enabled,
			Exporter:  o.Tracing.Exporter,
			SamplePct: o.Tracing.SamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  o.Metrics.Enabled,
			Exporter: o.Metrics.Exporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   o.Logging.Level,
			Format:  o.Logging.Format,
		},
	}
}

func validateBaseURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return invalid("%s %q must be an absolute http(s) URL", field, raw)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...)
}

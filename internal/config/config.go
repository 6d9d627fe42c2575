// Package config loads the service configuration from YAML.
package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/pokedex/resilience"
)

// Config holds pokedex configuration. It is read once at start-up.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Metadata   MetadataConfig   `yaml:"metadata"`
	Rewrite    RewriteConfig    `yaml:"rewrite"`
	Resilience ResilienceConfig `yaml:"resilience"`
	Cache      CacheConfig      `yaml:"cache"`
	Auth       AuthConfig       `yaml:"auth"`
	Observe    ObserveConfig    `yaml:"observe"`
}

type ServerConfig struct {
	Addr              string        `yaml:"addr"` // e.g. ":8080"
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
}

type MetadataConfig struct {
	BaseURL     string `yaml:"base_url"`     // e.g. "https://pokeapi.co"
	SpeciesPath string `yaml:"species_path"` // "{name}" is replaced by the entity name
	Language    string `yaml:"language"`
}

type RewriteConfig struct {
	BaseURL   string            `yaml:"base_url"`  // e.g. "https://api.funtranslations.com"
	Providers map[string]string `yaml:"providers"` // provider id -> path
	RateLimit RateLimitConfig   `yaml:"rate_limit"`
}

// RateLimitConfig bounds outbound rewrite calls. Limit 0 disables it.
type RateLimitConfig struct {
	Limit int           `yaml:"limit"`
	Per   time.Duration `yaml:"per"`
	Burst int           `yaml:"burst"`
}

// ResilienceConfig is shared by both outbound dependencies; each gets its
// own breaker.
type ResilienceConfig struct {
	RetryDelays      []time.Duration `yaml:"retry_delays"`
	FailureThreshold int             `yaml:"failure_threshold"`
	BreakDuration    time.Duration   `yaml:"break_duration"`
	Timeout          time.Duration   `yaml:"timeout"`
	MaxConcurrent    int             `yaml:"max_concurrent"`
}

type CacheConfig struct {
	Backend       string        `yaml:"backend"` // none | memory | redis
	TTL           time.Duration `yaml:"ttl"`
	MaxTTL        time.Duration `yaml:"max_ttl"`
	MaxEntries    int           `yaml:"max_entries"`
	RedisURL      string        `yaml:"redis_url"`
	RedisPassword string        `yaml:"redis_password"`
}

type AuthConfig struct {
	Enabled   bool     `yaml:"enabled"`
	APIKeys   []string `yaml:"api_keys"`
	JWTSecret string   `yaml:"jwt_secret"`
	JWTIssuer string   `yaml:"jwt_issuer"`
}

type ObserveConfig struct {
	ServiceName string        `yaml:"service_name"`
	Tracing     TracingConfig `yaml:"tracing"`
	Metrics     MetricsConfig `yaml:"metrics"`
	Logging     LoggingConfig `yaml:"logging"`
}

type TracingConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Exporter  string  `yaml:"exporter"` // otlp | stdout | none
	SamplePct float64 `yaml:"sample_pct"`
}

type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"` // otlp | prometheus | stdout | none
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // json | text
}

// Policy converts the section to a resilience.Policy.
func (r ResilienceConfig) Policy() resilience.Policy {
	var delays []time.Duration
	if r.RetryDelays != nil {
		delays = append([]time.Duration{}, r.RetryDelays...)
	}
	return resilience.Policy{
		RetryDelays:      delays,
		FailureThreshold: r.FailureThreshold,
		BreakDuration:    r.BreakDuration,
		Timeout:          r.Timeout,
		MaxConcurrent:    r.MaxConcurrent,
	}
}

// Load reads configuration from a YAML file. ${VAR} references are
// expanded from the environment first and must be set; credential fields
// may also hold "secretref:env:NAME" or "secretref:file:/path". If the
// file does not exist, the defaults are returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes, defaults and validates YAML configuration data.
func Parse(data []byte) (*Config, error) {
	expanded, err := ExpandEnvStrict(string(data))
	if err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	applyDefaults(&cfg)
	if err := NewSecretResolver().Apply(context.Background(), &cfg); err != nil {
		return nil, err
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := defaultConfig()
	return &cfg
}

// defaultConfig is the base a file is decoded onto, so keys the file omits
// keep their defaults.
func defaultConfig() Config {
	var cfg Config
	cfg.Observe.Metrics.Enabled = true
	applyDefaults(&cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.ReadHeaderTimeout == 0 {
		cfg.Server.ReadHeaderTimeout = 5 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15 * time.Second
	}

	if cfg.Metadata.BaseURL == "" {
		cfg.Metadata.BaseURL = "https://pokeapi.co"
	}
	if cfg.Metadata.SpeciesPath == "" {
		cfg.Metadata.SpeciesPath = "/api/v2/pokemon-species/{name}"
	}
	if cfg.Metadata.Language == "" {
		cfg.Metadata.Language = "en"
	}

	if cfg.Rewrite.BaseURL == "" {
		cfg.Rewrite.BaseURL = "https://api.funtranslations.com"
	}
	if cfg.Rewrite.Providers == nil {
		cfg.Rewrite.Providers = map[string]string{
			"yoda":        "/translate/yoda.json",
			"shakespeare": "/translate/shakespeare.json",
		}
	}
	if cfg.Rewrite.RateLimit.Limit > 0 && cfg.Rewrite.RateLimit.Per == 0 {
		cfg.Rewrite.RateLimit.Per = time.Hour
	}

	def := resilience.DefaultPolicy()
	if cfg.Resilience.RetryDelays == nil {
		cfg.Resilience.RetryDelays = def.RetryDelays
	}
	if cfg.Resilience.FailureThreshold == 0 {
		cfg.Resilience.FailureThreshold = def.FailureThreshold
	}
	if cfg.Resilience.BreakDuration == 0 {
		cfg.Resilience.BreakDuration = def.BreakDuration
	}
	if cfg.Resilience.Timeout == 0 {
		cfg.Resilience.Timeout = def.Timeout
	}

	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "none"
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = 10 * time.Minute
	}
	if cfg.Cache.MaxTTL == 0 {
		cfg.Cache.MaxTTL = time.Hour
	}

	if cfg.Observe.ServiceName == "" {
		cfg.Observe.ServiceName = "pokedex"
	}
	if cfg.Observe.Tracing.Exporter == "" {
		cfg.Observe.Tracing.Exporter = "none"
	}
	if cfg.Observe.Metrics.Exporter == "" {
		cfg.Observe.Metrics.Exporter = "prometheus"
	}
	if cfg.Observe.Logging.Level == "" {
		cfg.Observe.Logging.Level = "info"
	}
	if cfg.Observe.Logging.Format == "" {
		cfg.Observe.Logging.Format = "json"
	}
}

package observe

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{"minimal", Config{ServiceName: "pokedex"}, nil},
		{"missing name", Config{}, ErrMissingServiceName},
		{"bad tracing exporter", Config{ServiceName: "p", Tracing: TracingConfig{Enabled: true, Exporter: "zipkin"}}, ErrInvalidTracingExporter},
		{"bad sample pct", Config{ServiceName: "p", Tracing: TracingConfig{Enabled: true, SamplePct: 1.5}}, ErrInvalidSamplePct},
		{"bad metrics exporter", Config{ServiceName: "p", Metrics: MetricsConfig{Enabled: true, Exporter: "statsd"}}, ErrInvalidMetricsExporter},
		{"bad level", Config{ServiceName: "p", Logging: LoggingConfig{Enabled: true, Level: "trace"}}, ErrInvalidLogLevel},
		{"bad format", Config{ServiceName: "p", Logging: LoggingConfig{Enabled: true, Format: "xml"}}, ErrInvalidLogFormat},
		{"disabled sections ignored", Config{ServiceName: "p", Tracing: TracingConfig{Exporter: "zipkin"}}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewObserver_Disabled(t *testing.T) {
	obs, err := NewObserver(context.Background(), Config{ServiceName: "pokedex"})
	if err != nil {
		t.Fatalf("NewObserver() error = %v", err)
	}
	if obs.Tracer() == nil || obs.Meter() == nil || obs.Logger() == nil {
		t.Error("NewObserver() returned nil primitives")
	}
	if err := obs.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestNewObserver_PrometheusAndLogging(t *testing.T) {
	reg := prometheus.NewRegistry()
	var buf bytes.Buffer

	obs, err := NewObserver(context.Background(), Config{
		ServiceName: "pokedex",
		Version:     "test",
		Tracing:     TracingConfig{Enabled: true, Exporter: "none", SamplePct: 1},
		Metrics:     MetricsConfig{Enabled: true, Exporter: "prometheus", Registerer: reg},
		Logging:     LoggingConfig{Enabled: true, Level: "info", Writer: &buf},
	})
	if err != nil {
		t.Fatalf("NewObserver() error = %v", err)
	}
	defer func() { _ = obs.Shutdown(context.Background()) }()

	m, err := NewMetrics(obs.Meter())
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}
	m.RecordCall(context.Background(), CallMeta{Dependency: "metadata", Operation: "fetch"}, 0, nil)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	found := false
	for _, f := range families {
		if strings.HasPrefix(f.GetName(), "upstream_calls") {
			found = true
		}
	}
	if !found {
		t.Error("upstream_calls metrics not exported to the Prometheus registry")
	}

	obs.Logger().Info(context.Background(), "hello")
	if !strings.Contains(buf.String(), `"msg":"hello"`) {
		t.Errorf("log output = %q, want JSON entry", buf.String())
	}
}

func TestCallMeta(t *testing.T) {
	if got := (CallMeta{Dependency: "rewrite", Operation: "yoda"}).SpanName(); got != "upstream.rewrite.yoda" {
		t.Errorf("SpanName() = %q", got)
	}
	if got := (CallMeta{Dependency: "metadata"}).SpanName(); got != "upstream.metadata" {
		t.Errorf("SpanName() = %q", got)
	}
	if err := (CallMeta{}).Validate(); !errors.Is(err, ErrMissingDependency) {
		t.Errorf("Validate() = %v, want ErrMissingDependency", err)
	}
}

func TestSampler(t *testing.T) {
	tests := []struct {
		pct  float64
		want string
	}{
		{1, "AlwaysOnSampler"},
		{2, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{0.25, "TraceIDRatioBased{0.25}"},
	}
	for _, tt := range tests {
		if got := sampler(tt.pct).Description(); got != tt.want {
			t.Errorf("sampler(%g) = %q, want %q", tt.pct, got, tt.want)
		}
	}
}

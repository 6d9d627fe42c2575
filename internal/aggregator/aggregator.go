// Package aggregator answers entity lookups by combining the metadata and
// rewrite clients.
//
// EnrichedInfo moves through these states:
//
//	FetchingMetadata -> Failed
//	FetchingMetadata -> MetadataReady -> SelectingProvider -> FetchingRewrite
//	FetchingRewrite  -> RewriteOk | RewriteFailed -> Done
//
// A failed rewrite keeps the original description and still succeeds.
package aggregator

import (
	"context"
	"strings"

	"github.com/jonwraymond/pokedex/internal/metadata"
	"github.com/jonwraymond/pokedex/internal/outcome"
	"github.com/jonwraymond/pokedex/internal/rewrite"
	"github.com/jonwraymond/pokedex/internal/selector"
	"github.com/jonwraymond/pokedex/observe"
)

// FallbackEmptyResult is the fallback reason for a rewrite that succeeded
// with no text.
const FallbackEmptyResult = "empty_result"

// MetadataFetcher is implemented by *metadata.Client.
type MetadataFetcher interface {
	Fetch(ctx context.Context, id string) outcome.Result[metadata.EntityMetadata]
}

// Rewriter is implemented by *rewrite.Client.
type Rewriter interface {
	Rewrite(ctx context.Context, text string, provider rewrite.ProviderID) outcome.Result[rewrite.Outcome]
}

// Response is the body returned to callers.
type Response struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category,omitempty"`
	Flag        bool   `json:"flag"`
}

// Service orchestrates lookups. Safe for concurrent use.
type Service struct {
	metadata MetadataFetcher
	rewriter Rewriter
	logger   observe.Logger
	metrics  observe.Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used for fallback decisions.
func WithLogger(l observe.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithMetrics sets the metrics sink for fallback counts.
func WithMetrics(m observe.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New creates a Service.
func New(meta MetadataFetcher, rw Rewriter, opts ...Option) *Service {
	s := &Service{
		metadata: meta,
		rewriter: rw,
		logger:   observe.NopLogger(),
		metrics:  observe.NopMetrics(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Normalize lowercases and trims an entity name.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// BasicInfo returns the unmodified metadata for name. Failures carry the
// metadata lookup's status unchanged.
func (s *Service) BasicInfo(ctx context.Context, name string) outcome.Result[Response] {
	name = Normalize(name)
	res := s.metadata.Fetch(ctx, name)
	if !res.Ok() {
		return passthrough(res)
	}
	return outcome.OK(newResponse(name, res.Value, res.Value.Description))
}

// EnrichedInfo is BasicInfo with the description rewritten by the provider
// selector's choice. Once metadata is available the result is always a
// success.
func (s *Service) EnrichedInfo(ctx context.Context, name string) outcome.Result[Response] {
	name = Normalize(name)
	res := s.metadata.Fetch(ctx, name)
	if !res.Ok() {
		return passthrough(res)
	}
	meta := res.Value

	provider := selector.Select(meta)
	rw := s.rewriter.Rewrite(ctx, meta.Description, provider)

	description := meta.Description
	reason := ""
	switch {
	case !rw.Ok():
		reason = rw.Kind.String()
	case rw.Value.Text == "":
		reason = FallbackEmptyResult
	default:
		description = rewrite.Decode(rw.Value.Text)
	}

	fields := []observe.Field{
		{Key: "name", Value: name},
		{Key: "provider", Value: string(provider)},
		{Key: "rewrite_status", Value: rw.Status},
	}
	if reason != "" {
		s.metrics.RecordFallback(ctx, reason)
		fields = append(fields, observe.Field{Key: "fallback", Value: reason})
		if rw.Err != nil {
			fields = append(fields, observe.Field{Key: "error", Value: rw.Err})
		}
	}
	s.logger.Debug(ctx, "rewrite finished", fields...)

	return outcome.OK(newResponse(name, meta, description))
}

func newResponse(name string, meta metadata.EntityMetadata, description string) Response {
	return Response{
		Name:        name,
		Description: description,
		Category:    meta.Category,
		Flag:        meta.Legendary,
	}
}

func passthrough(res outcome.Result[metadata.EntityMetadata]) outcome.Result[Response] {
	return outcome.Result[Response]{Kind: res.Kind, Status: res.Status, Err: res.Err}
}

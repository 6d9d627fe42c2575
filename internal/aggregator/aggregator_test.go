package aggregator

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonwraymond/pokedex/internal/metadata"
	"github.com/jonwraymond/pokedex/internal/outcome"
	"github.com/jonwraymond/pokedex/internal/rewrite"
	"github.com/jonwraymond/pokedex/observe"
	"github.com/jonwraymond/pokedex/resilience"
)

var (
	mewtwo = metadata.EntityMetadata{
		ID: 150, Name: "mewtwo", Legendary: true,
		Description: "It was created by a scientist.",
	}
	druddigon = metadata.EntityMetadata{
		ID: 621, Name: "druddigon", Category: "cave",
		Description: "It warms its body.",
	}
	ditto = metadata.EntityMetadata{
		ID: 132, Name: "ditto", Category: "urban",
		Description: "It can transform.",
	}
)

type fakeMetadata struct {
	entries map[string]metadata.EntityMetadata
	ids     []string
}

func (f *fakeMetadata) Fetch(_ context.Context, id string) outcome.Result[metadata.EntityMetadata] {
	f.ids = append(f.ids, id)
	if m, ok := f.entries[id]; ok {
		return outcome.OK(m)
	}
	return outcome.Fail[metadata.EntityMetadata](&resilience.UpstreamError{StatusCode: http.StatusNotFound})
}

type rewriteCall struct {
	text     string
	provider rewrite.ProviderID
}

type fakeRewriter struct {
	calls  []rewriteCall
	result func(text string, p rewrite.ProviderID) outcome.Result[rewrite.Outcome]
}

func (f *fakeRewriter) Rewrite(_ context.Context, text string, p rewrite.ProviderID) outcome.Result[rewrite.Outcome] {
	f.calls = append(f.calls, rewriteCall{text, p})
	return f.result(text, p)
}

func translatesTo(text string) *fakeRewriter {
	return &fakeRewriter{result: func(_ string, p rewrite.ProviderID) outcome.Result[rewrite.Outcome] {
		return outcome.OK(rewrite.Outcome{Text: text, Provider: p})
	}}
}

func failsWith(err error) *fakeRewriter {
	return &fakeRewriter{result: func(string, rewrite.ProviderID) outcome.Result[rewrite.Outcome] {
		return outcome.Fail[rewrite.Outcome](err)
	}}
}

type fallbackCounter struct {
	observe.Metrics
	mu      sync.Mutex
	reasons []string
}

func (c *fallbackCounter) RecordFallback(_ context.Context, reason string) {
	c.mu.Lock()
	c.reasons = append(c.reasons, reason)
	c.mu.Unlock()
}

func newFakeMetadata() *fakeMetadata {
	return &fakeMetadata{entries: map[string]metadata.EntityMetadata{
		"mewtwo":    mewtwo,
		"druddigon": druddigon,
		"ditto":     ditto,
	}}
}

func TestBasicInfo(t *testing.T) {
	meta := newFakeMetadata()
	rw := translatesTo("unused")
	svc := New(meta, rw)

	res := svc.BasicInfo(context.Background(), "  MewTwo ")
	if !res.Ok() {
		t.Fatalf("BasicInfo() kind = %v", res.Kind)
	}
	want := Response{Name: "mewtwo", Description: mewtwo.Description, Flag: true}
	if res.Value != want {
		t.Errorf("BasicInfo() = %+v, want %+v", res.Value, want)
	}
	if meta.ids[0] != "mewtwo" {
		t.Errorf("fetched id = %q, want mewtwo", meta.ids[0])
	}
	if len(rw.calls) != 0 {
		t.Errorf("rewrite calls = %d, want 0", len(rw.calls))
	}
}

func TestNotFound(t *testing.T) {
	rw := translatesTo("unused")
	svc := New(newFakeMetadata(), rw)

	for name, fn := range map[string]func(context.Context, string) outcome.Result[Response]{
		"basic":    svc.BasicInfo,
		"enriched": svc.EnrichedInfo,
	} {
		res := fn(context.Background(), "unknownname")
		if res.Status != http.StatusNotFound || res.Kind != outcome.NotFound {
			t.Errorf("%s: result = (%v, %d), want (not_found, 404)", name, res.Kind, res.Status)
		}
		if res.Value != (Response{}) {
			t.Errorf("%s: Value = %+v, want zero", name, res.Value)
		}
	}
	if len(rw.calls) != 0 {
		t.Errorf("rewrite calls = %d, want 0", len(rw.calls))
	}
}

func TestEnrichedInfo_Scenarios(t *testing.T) {
	tests := []struct {
		name         string
		wantProvider rewrite.ProviderID
		wantText     string
		wantCategory string
		wantFlag     bool
	}{
		{"mewtwo", rewrite.ProviderYoda, mewtwo.Description, "", true},
		{"druddigon", rewrite.ProviderYoda, druddigon.Description, "cave", false},
		{"ditto", rewrite.ProviderShakespeare, ditto.Description, "urban", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rw := translatesTo("Rewritten,%20it%20is.")
			res := New(newFakeMetadata(), rw).EnrichedInfo(context.Background(), tt.name)

			if !res.Ok() || res.Status != http.StatusOK {
				t.Fatalf("EnrichedInfo() = (%v, %d)", res.Kind, res.Status)
			}
			if len(rw.calls) != 1 {
				t.Fatalf("rewrite calls = %d, want 1", len(rw.calls))
			}
			if rw.calls[0].provider != tt.wantProvider {
				t.Errorf("provider = %q, want %q", rw.calls[0].provider, tt.wantProvider)
			}
			if rw.calls[0].text != tt.wantText {
				t.Errorf("rewrite text = %q, want %q", rw.calls[0].text, tt.wantText)
			}
			if res.Value.Description != "Rewritten, it is." {
				t.Errorf("Description = %q, want decoded rewrite", res.Value.Description)
			}
			if res.Value.Category != tt.wantCategory || res.Value.Flag != tt.wantFlag {
				t.Errorf("Category, Flag = %q, %v, want %q, %v", res.Value.Category, res.Value.Flag, tt.wantCategory, tt.wantFlag)
			}
		})
	}
}

func TestEnrichedInfo_FallbackLaw(t *testing.T) {
	tests := []struct {
		name       string
		rw         *fakeRewriter
		wantReason string
	}{
		{"upstream error", failsWith(&resilience.UpstreamError{StatusCode: 429}), "upstream_error"},
		{"transient", failsWith(&resilience.UpstreamError{StatusCode: 503}), "transient"},
		{"circuit open", failsWith(resilience.ErrCircuitOpen), "circuit_open"},
		{"timeout", failsWith(resilience.ErrTimeout), "timeout"},
		{"rate limited", failsWith(resilience.ErrRateLimitExceeded), "rate_limited"},
		{"connection", failsWith(errors.New("dial tcp: connection refused")), "transient"},
		{"empty result", translatesTo(""), FallbackEmptyResult},
		{"invalid input", &fakeRewriter{result: func(string, rewrite.ProviderID) outcome.Result[rewrite.Outcome] {
			return outcome.Invalid[rewrite.Outcome](rewrite.ErrEmptyText)
		}}, "invalid_input"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counter := &fallbackCounter{Metrics: observe.NopMetrics()}
			svc := New(newFakeMetadata(), tt.rw, WithMetrics(counter))

			basic := svc.BasicInfo(context.Background(), "mewtwo")
			enriched := svc.EnrichedInfo(context.Background(), "mewtwo")

			if enriched.Status != http.StatusOK || !enriched.Ok() {
				t.Fatalf("EnrichedInfo() = (%v, %d), want success", enriched.Kind, enriched.Status)
			}
			if enriched.Value != basic.Value {
				t.Errorf("EnrichedInfo() = %+v, want %+v", enriched.Value, basic.Value)
			}
			if len(counter.reasons) != 1 || counter.reasons[0] != tt.wantReason {
				t.Errorf("fallback reasons = %v, want [%s]", counter.reasons, tt.wantReason)
			}
		})
	}
}

func TestEnrichedInfo_EmptyDescriptionStillSucceeds(t *testing.T) {
	meta := &fakeMetadata{entries: map[string]metadata.EntityMetadata{"sparse": {Name: "sparse"}}}
	rw := failsWith(rewrite.ErrEmptyText)

	res := New(meta, rw).EnrichedInfo(context.Background(), "sparse")
	if !res.Ok() {
		t.Fatalf("EnrichedInfo() kind = %v", res.Kind)
	}
	if res.Value.Description != "" {
		t.Errorf("Description = %q, want empty", res.Value.Description)
	}
}

func TestEnrichedInfo_Idempotent(t *testing.T) {
	svc := New(newFakeMetadata(), translatesTo("Same%20text"))

	first := svc.EnrichedInfo(context.Background(), "ditto")
	second := svc.EnrichedInfo(context.Background(), "DITTO")
	if first.Value != second.Value {
		t.Errorf("responses differ: %+v vs %+v", first.Value, second.Value)
	}
}

func TestEnrichedInfo_LogsFallback(t *testing.T) {
	var buf bytes.Buffer
	logger := observe.NewLogger("json", "debug", &buf)
	svc := New(newFakeMetadata(), failsWith(resilience.ErrTimeout), WithLogger(logger))

	svc.EnrichedInfo(context.Background(), "ditto")

	out := buf.String()
	for _, want := range []string{`"rewrite finished"`, `"fallback":"timeout"`, `"provider":"shakespeare"`, `"rewrite_status":504`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %s: %s", want, out)
		}
	}
}

func TestEnrichedInfo_ContextPassedThrough(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	res := New(newFakeMetadata(), translatesTo("x")).EnrichedInfo(ctx, "ditto")
	if !res.Ok() {
		t.Errorf("EnrichedInfo() kind = %v", res.Kind)
	}
}

package upstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonwraymond/pokedex/resilience"
)

func testPipeline() *resilience.Pipeline {
	return resilience.FromPolicy("test", resilience.Policy{
		RetryDelays:      []time.Duration{time.Millisecond, time.Millisecond},
		FailureThreshold: 5,
		BreakDuration:    time.Minute,
		Timeout:          time.Second,
	}, resilience.Hooks{})
}

func TestNew_InvalidBaseURL(t *testing.T) {
	for _, raw := range []string{"", "not a url", "/relative"} {
		if _, err := New(Config{Name: "x", BaseURL: raw}, testPipeline()); !errors.Is(err, ErrInvalidBaseURL) {
			t.Errorf("New(%q) error = %v, want ErrInvalidBaseURL", raw, err)
		}
	}
}

func TestClient_Get_PathAndQuery(t *testing.T) {
	var gotURI, gotAccept, gotCustom string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURI = r.RequestURI
		gotAccept = r.Header.Get("Accept")
		gotCustom = r.Header.Get("X-Custom")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c, err := New(Config{Name: "test", BaseURL: srv.URL + "/api/", Headers: map[string]string{"X-Custom": "1"}}, testPipeline())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	body, err := c.Get(context.Background(), "op", "/translate/yoda.json", "text=a%2520b")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(body) != `{"ok":true}` {
		t.Errorf("body = %s", body)
	}
	if gotURI != "/api/translate/yoda.json?text=a%2520b" {
		t.Errorf("RequestURI = %q", gotURI)
	}
	if gotAccept != "application/json" {
		t.Errorf("Accept = %q, want application/json", gotAccept)
	}
	if gotCustom != "1" {
		t.Errorf("X-Custom = %q, want 1", gotCustom)
	}
}

func TestClient_Get_NotFoundNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "Not Found", http.StatusNotFound)
	}))
	defer srv.Close()

	c, _ := New(Config{Name: "test", BaseURL: srv.URL}, testPipeline())
	_, err := c.Get(context.Background(), "op", "/missing", "")

	if got := resilience.StatusCode(err); got != http.StatusNotFound {
		t.Errorf("StatusCode(err) = %d, want 404", got)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestClient_Get_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("done"))
	}))
	defer srv.Close()

	c, _ := New(Config{Name: "test", BaseURL: srv.URL}, testPipeline())
	body, err := c.Get(context.Background(), "op", "/flaky", "")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(body) != "done" {
		t.Errorf("body = %q, want done", body)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestClient_Get_ExhaustedRetriesReturnLastStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, _ := New(Config{Name: "test", BaseURL: srv.URL}, testPipeline())
	_, err := c.Get(context.Background(), "op", "/down", "")

	if got := resilience.StatusCode(err); got != http.StatusServiceUnavailable {
		t.Errorf("StatusCode(err) = %d, want 503", got)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestClient_Get_BodyLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("0123456789"))
	}))
	defer srv.Close()

	c, _ := New(Config{Name: "test", BaseURL: srv.URL, MaxBodyBytes: 4}, testPipeline())
	body, err := c.Get(context.Background(), "op", "/", "")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(body) != "0123" {
		t.Errorf("body = %q, want 0123", body)
	}
}

func TestClient_Get_ConnectionRefusedIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, _ := New(Config{Name: "test", BaseURL: base}, testPipeline())
	_, err := c.Get(context.Background(), "op", "/", "")
	if err == nil {
		t.Fatal("Get() error = nil, want connection error")
	}
	if !resilience.IsTransient(err) {
		t.Errorf("IsTransient(%v) = false, want true", err)
	}
}

package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"testing"
)

func TestIsTransient(t *testing.T) {
	connRefused := &url.Error{
		Op:  "Get",
		URL: "http://127.0.0.1:1",
		Err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")},
	}

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"500", &UpstreamError{StatusCode: 500}, true},
		{"503 wrapped", fmt.Errorf("fetch: %w", &UpstreamError{StatusCode: 503}), true},
		{"408", &UpstreamError{StatusCode: 408}, true},
		{"404", &UpstreamError{StatusCode: 404}, false},
		{"400", &UpstreamError{StatusCode: 400}, false},
		{"429", &UpstreamError{StatusCode: 429}, false},
		{"timeout", ErrTimeout, true},
		{"deadline", context.DeadlineExceeded, true},
		{"canceled", context.Canceled, false},
		{"circuit open", ErrCircuitOpen, false},
		{"rate limited", ErrRateLimitExceeded, false},
		{"connection refused", connRefused, true},
		{"other", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestStatusCode(t *testing.T) {
	if got := StatusCode(fmt.Errorf("x: %w", &UpstreamError{StatusCode: 418})); got != 418 {
		t.Errorf("StatusCode() = %d, want 418", got)
	}
	if got := StatusCode(ErrTimeout); got != 0 {
		t.Errorf("StatusCode(ErrTimeout) = %d, want 0", got)
	}
}

func TestUpstreamError_Error(t *testing.T) {
	err := &UpstreamError{StatusCode: 502, Body: "bad gateway"}
	if got, want := err.Error(), "resilience: upstream returned 502: bad gateway"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

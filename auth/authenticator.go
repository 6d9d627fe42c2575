package auth

import (
	"context"
	"net/http"
)

// Authenticator validates the credentials carried by request headers.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: a rejected credential returns an error wrapping one of the
//   package sentinels; the identity is nil.
type Authenticator interface {
	// Name identifies the authenticator in logs.
	Name() string

	// Supports reports whether h carries a credential this authenticator
	// understands.
	Supports(h http.Header) bool

	Authenticate(ctx context.Context, h http.Header) (*Identity, error)
}

package auth

import (
	"context"
	"net/http"
)

// CompositeAuthenticator tries authenticators in order and returns the
// first success. When none succeeds, the last error is returned.
type CompositeAuthenticator struct {
	authenticators []Authenticator
}

// NewCompositeAuthenticator creates a composite authenticator. Nil entries
// are skipped.
func NewCompositeAuthenticator(auths ...Authenticator) *CompositeAuthenticator {
	c := &CompositeAuthenticator{}
	for _, a := range auths {
		if a != nil {
			c.authenticators = append(c.authenticators, a)
		}
	}
	return c
}

// Name returns "composite".
func (c *CompositeAuthenticator) Name() string { return "composite" }

// Supports returns true if any authenticator supports h.
func (c *CompositeAuthenticator) Supports(h http.Header) bool {
	for _, a := range c.authenticators {
		if a.Supports(h) {
			return true
		}
	}
	return false
}

// Authenticate tries each supporting authenticator in sequence.
func (c *CompositeAuthenticator) Authenticate(ctx context.Context, h http.Header) (*Identity, error) {
	lastErr := ErrMissingCredentials
	for _, a := range c.authenticators {
		if !a.Supports(h) {
			continue
		}
		id, err := a.Authenticate(ctx, h)
		if err == nil {
			return id, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

var _ Authenticator = (*CompositeAuthenticator)(nil)

package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
)

// DefaultAPIKeyHeader carries API keys.
const DefaultAPIKeyHeader = "X-API-Key"

// APIKeyAuthenticator accepts a fixed set of keys. Only SHA-256 digests of
// the keys are kept in memory.
type APIKeyAuthenticator struct {
	header string
	hashes map[string]struct{}
}

// NewAPIKeyAuthenticator creates an authenticator for keys. An empty
// header uses DefaultAPIKeyHeader; blank keys are ignored.
func NewAPIKeyAuthenticator(header string, keys ...string) *APIKeyAuthenticator {
	if header == "" {
		header = DefaultAPIKeyHeader
	}
	a := &APIKeyAuthenticator{header: header, hashes: make(map[string]struct{}, len(keys))}
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			a.hashes[HashAPIKey(k)] = struct{}{}
		}
	}
	return a
}

// Name returns "api_key".
func (a *APIKeyAuthenticator) Name() string { return string(MethodAPIKey) }

// Supports reports whether the key header is present.
func (a *APIKeyAuthenticator) Supports(h http.Header) bool {
	return h.Get(a.header) != ""
}

// Authenticate looks up the presented key.
func (a *APIKeyAuthenticator) Authenticate(_ context.Context, h http.Header) (*Identity, error) {
	key := strings.TrimSpace(h.Get(a.header))
	if key == "" {
		return nil, ErrMissingCredentials
	}

	hash := HashAPIKey(key)
	if _, ok := a.hashes[hash]; !ok {
		return nil, ErrInvalidCredentials
	}
	return &Identity{
		Principal: "key:" + hash[:12],
		Method:    MethodAPIKey,
	}, nil
}

// HashAPIKey returns the hex SHA-256 digest of key.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

var _ Authenticator = (*APIKeyAuthenticator)(nil)

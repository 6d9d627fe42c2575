// Package auth authenticates inbound HTTP requests with API keys or
// HMAC-signed JWTs.
package auth

package auth

import "time"

// Method indicates how a request was authenticated.
type Method string

const (
	MethodAPIKey Method = "api_key"
	MethodJWT    Method = "jwt"
)

// Identity is an authenticated caller.
type Identity struct {
	Principal string
	Method    Method
	Claims    map[string]any
	ExpiresAt time.Time
}

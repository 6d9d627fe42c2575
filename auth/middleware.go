package auth

import "net/http"

// DenyFunc writes the response for a rejected request.
type DenyFunc func(w http.ResponseWriter, r *http.Request, err error)

// Middleware rejects requests that a does not authenticate and stores the
// identity of accepted ones in the request context. A nil deny writes a
// plain 401.
func Middleware(a Authenticator, deny DenyFunc) func(http.Handler) http.Handler {
	if deny == nil {
		deny = func(w http.ResponseWriter, _ *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusUnauthorized)
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !a.Supports(r.Header) {
				deny(w, r, ErrMissingCredentials)
				return
			}
			id, err := a.Authenticate(r.Context(), r.Header)
			if err != nil {
				deny(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

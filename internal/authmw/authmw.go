// Package authmw provides HTTP middleware for API token authentication.
package authmw

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// APIToken returns middleware that validates the request carries the
// expected token, either as "Authorization: Bearer <token>" or as an
// X-API-Key header. Webhook senders typically only support the latter.
// Comparison uses constant-time equality to prevent timing side-channel
// attacks.
func APIToken(token string) func(http.Handler) http.Handler {
	expected := []byte(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := requestToken(r)
			if !ok {
				http.Error(w, `{"error":"missing credentials"}`, http.StatusUnauthorized)
				return
			}

			if subtle.ConstantTimeCompare([]byte(got), expected) != 1 {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// requestToken extracts the presented token. The Authorization header
// wins when both are present.
func requestToken(r *http.Request) (string, bool) {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if !strings.HasPrefix(auth, "Bearer ") {
			return "", false
		}
		return auth[len("Bearer "):], true
	}
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key, true
	}
	return "", false
}

package middleware

import (
	"net/http"
)

// DefaultMaxBodyBytes is the max request body for analysis requests (64KB);
// simulate and what-if bodies carry a scenario type and a seed, nothing more.
const DefaultMaxBodyBytes = 64 * 1024

// MaxBodySize returns middleware that caps request body size for methods that
// may carry a body. GET/HEAD/DELETE are not limited.
func MaxBodySize(max int64) func(http.Handler) http.Handler {
	if max <= 0 {
		max = DefaultMaxBodyBytes
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil &&
				(r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch) {
				r.Body = http.MaxBytesReader(w, r.Body, max)
			}
			next.ServeHTTP(w, r)
		})
	}
}

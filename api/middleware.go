/*
middleware.go - Rate limiting middleware

PURPOSE:
  Throttles requests per client through the injected ratelimit.Limiter
  interface. The limiter implementation (store-backed fixed window or
  local token bucket) is chosen at wiring time, so handlers never care
  about deployment topology.

FAILURE MODE:
  If the limiter itself errors (e.g. database unavailable), the request
  is allowed through and the error logged - throttling is protection, not
  a correctness requirement, so we fail open.

SEE ALSO:
  - ratelimit: Limiter implementations
  - server.go: Wiring into the middleware stack
*/
package api

import (
	"log/slog"
	"net"
	"net/http"

	"github.com/kelola/course-engine/ratelimit"
)

// RateLimit returns middleware enforcing the given limiter, keyed by the
// client's remote address.
func RateLimit(limiter ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientKey(r)

			allowed, err := limiter.Allow(r.Context(), key)
			if err != nil {
				slog.Warn("rate limiter unavailable, allowing request", "key", key, "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				writeError(w, http.StatusTooManyRequests, "Too many requests", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

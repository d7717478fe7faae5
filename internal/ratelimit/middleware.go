package ratelimit

import (
	"net/http"
	"strconv"

	"github.com/kuitang/country-form/internal/errs"
	"github.com/kuitang/country-form/internal/obs"
)

// DefaultRetryAfterSeconds is sent in Retry-After when a client is limited.
const DefaultRetryAfterSeconds = 1

// Middleware rejects requests over the per-client limit with 429.
// keyFunc extracts the client key; an empty key bypasses limiting.
func Middleware(limiter *RateLimiter, keyFunc func(r *http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFunc(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			l := limiter.GetLimiter(key)
			if !l.Allow() {
				obs.From(r.Context()).Warn("rate_limited", "pkg", "ratelimit", "path", r.URL.Path)
				w.Header().Set("Retry-After", strconv.Itoa(DefaultRetryAfterSeconds))
				w.Header().Set("X-RateLimit-Remaining", "0")
				errs.WriteJSON(w, errs.New(errs.TooManyRequests, "Zu viele Anfragen, bitte kurz warten."))
				return
			}

			remaining := int(l.Tokens())
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

			next.ServeHTTP(w, r)
		})
	}
}

// ClientIPKey keys limiters by the client IP recorded by obs.RequestContextMiddleware.
func ClientIPKey(r *http.Request) string {
	return obs.CorrelationFromContext(r.Context()).ClientIP
}

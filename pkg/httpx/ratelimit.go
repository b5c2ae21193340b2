package httpx

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/oriento/auth/pkg/ratelimit"
	"github.com/oriento/auth/pkg/slogx"
)

// ClientIP extracts the client IP address from the request.
// It handles X-Forwarded-For and X-Real-IP headers for proxied requests.
func ClientIP(r *http.Request) string {
	// Check X-Forwarded-For header (comma-separated list)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	// Check X-Real-IP header
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// Fallback to RemoteAddr
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// Admitter is the slice of the bucket registry the gate needs. Anything
// that can answer an admission check for a key can back the middleware.
type Admitter interface {
	Allow(key string, p ratelimit.Policy) ratelimit.Decision
}

// RateLimitOptions tune the 429 response shape per route.
type RateLimitOptions struct {
	// ReportMaxAttempts adds a maxAttempts field to the 429 body. Login
	// responses carry it so clients can show "N attempts allowed".
	ReportMaxAttempts bool
}

// RateLimitMiddleware gates requests through a shared bucket registry.
// Buckets are keyed by client IP plus route path, so each client gets an
// independent allowance per route. A denied request gets 429 with
// Retry-After and X-RateLimit-* headers plus a JSON body.
func RateLimitMiddleware(reg Admitter, policy ratelimit.Policy, opts RateLimitOptions) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			ip := ClientIP(r)
			if ip == "" {
				// If we can't identify the client, allow the request but log it
				log.Warn("rate limit: unable to resolve client ip, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			key := ip + ":" + r.URL.Path
			d := reg.Allow(key, policy)

			if d.Allowed {
				next.ServeHTTP(w, r)
				return
			}

			// Round up so clients never retry a moment too early.
			retryAfter := int(d.RetryAfter.Seconds())
			if d.RetryAfter > 0 && d.RetryAfter%1e9 != 0 {
				retryAfter++
			}
			retryAfter = max(retryAfter, 1)

			w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", policy.Capacity))
			w.Header().Set("X-RateLimit-Remaining", "0")

			log.Warn("rate limit exceeded",
				"key", key,
				"endpoint", r.URL.Path,
				"retry_after", retryAfter,
			)

			body := map[string]any{
				"error":      "rate_limit_exceeded",
				"message":    "Too many requests. Please try again later.",
				"retryAfter": retryAfter,
			}
			if opts.ReportMaxAttempts {
				body["maxAttempts"] = policy.Capacity
			}

			WriteJSON(w, http.StatusTooManyRequests, body)
		})
	}
}

// RateLimitByIP is the common case: gate by client IP and route with no
// extra response fields.
func RateLimitByIP(reg Admitter, policy ratelimit.Policy) Middleware {
	return RateLimitMiddleware(reg, policy, RateLimitOptions{})
}

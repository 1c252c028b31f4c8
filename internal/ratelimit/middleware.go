package ratelimit

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
)

// DenyFunc writes the response for a request over its limit.
type DenyFunc func(w http.ResponseWriter, r *http.Request, d Decision)

// Middleware enforces p per client IP. Limiter failures are logged and the
// request is let through.
func Middleware(l Limiter, p Policy, logger *slog.Logger, deny DenyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d, err := l.Allow(r.Context(), p, ClientKey(r))
			if err != nil {
				logger.Error("rate limiter failed", "policy", p.Name, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("RateLimit-Policy", strconv.Itoa(p.Max)+";w="+strconv.Itoa(int(p.Window.Seconds())))
			h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))

			if !d.Allowed {
				h.Set("Retry-After", strconv.Itoa(int(math.Ceil(d.RetryAfter.Seconds()))))
				deny(w, r, d)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientKey identifies the caller by IP. chi's RealIP middleware has
// already rewritten RemoteAddr when a proxy header is present.
func ClientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

package server

import (
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/soobo/sleeptype/internal/ratelimit"
)

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Cross-Origin-Opener-Policy", "same-origin")
		next.ServeHTTP(w, r)
	})
}

// adminAuthMiddleware guards a route group with HTTP basic auth checked
// against a bcrypt hash. An empty hash disables the check.
func adminAuthMiddleware(hash string, errs errorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if hash == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, password, ok := r.BasicAuth()
			if !ok || bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
				w.Header().Set("WWW-Authenticate", `Basic realm="sleeptype data", charset="UTF-8"`)
				errs.write(w, r, http.StatusUnauthorized, codeUnauthorized, "ErrUnauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func rateLimit(l ratelimit.Limiter, name string, window time.Duration, max int, errs errorWriter) func(http.Handler) http.Handler {
	p := ratelimit.Policy{Name: name, Window: window, Max: max}
	return ratelimit.Middleware(l, p, errs.logger, func(w http.ResponseWriter, r *http.Request, d ratelimit.Decision) {
		wait := d.RetryAfter.Round(time.Second).String()
		errs.writeData(w, r, http.StatusTooManyRequests, codeRateLimited, "ErrRateLimited", map[string]any{"Wait": wait})
	})
}

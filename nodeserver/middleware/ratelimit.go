package middleware

import (
	"net/http"

	"golang.org/x/time/rate"
)

// RateLimit rejects requests past a token-bucket budget with 429 and the
// standard error body.
func RateLimit(perSecond float64, burst int) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(rate.Limit(perSecond), burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"detail": "Too many requests."}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

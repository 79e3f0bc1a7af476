// Package middleware holds HTTP middleware shared across handlers.
package middleware

import (
	"encoding/json"
	"net/http"

	"golang.org/x/time/rate"
)

// RateLimit bounds the request rate on the creation surface. The redirect path
// is never rate limited; a slow redirect is a broken product.
func RateLimit(enabled bool, rps float64, burst int) func(http.HandlerFunc) http.HandlerFunc {
	if !enabled {
		return func(next http.HandlerFunc) http.HandlerFunc {
			return next
		}
	}

	limiter := rate.NewLimiter(rate.Limit(rps), burst)

	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{"error": "Too many requests, please slow down"})
				return
			}
			next.ServeHTTP(w, r)
		}
	}
}

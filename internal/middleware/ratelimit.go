package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"

	"benefit-recommendation-api/internal/models"
)

// RateLimit limits each client IP to rate requests per window. Rejected
// requests get a JSON error body and a Retry-After header.
func RateLimit(rate int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(rate, window,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(models.ErrorResponse{Error: "Rate limit exceeded"})
		}),
	)
}

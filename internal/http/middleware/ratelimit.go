package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"github.com/wolfman30/coaching-booking-platform/internal/apperr"
	"github.com/wolfman30/coaching-booking-platform/internal/http/httpx"
)

// RateLimitByIP allows requests per window for each client IP and answers
// 429 with the JSON envelope once the budget is spent.
func RateLimitByIP(requests int, window time.Duration) func(http.Handler) http.Handler {
	if requests <= 0 {
		requests = 10
	}
	return httprate.Limit(requests, window,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.JSON(w, http.StatusTooManyRequests, httpx.Envelope{
				Error: &httpx.ErrorBody{Kind: apperr.KindValidation, Message: "too many requests; try again later"},
			})
		}),
	)
}

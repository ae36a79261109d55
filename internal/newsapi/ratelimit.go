package newsapi

import (
	"os"
	"strconv"

	"golang.org/x/time/rate"
)

// newDefaultLimiter builds the request limiter. Explicit values win, then
// NEWS_API_RPS / NEWS_API_BURST, then 1 rps with a burst of 3.
func newDefaultLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		rps = 1.0
		if v := os.Getenv("NEWS_API_RPS"); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
				rps = f
			}
		}
	}
	if burst <= 0 {
		burst = 3
		if v := os.Getenv("NEWS_API_BURST"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				burst = n
			}
		}
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

package middleware

import (
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// BurstLimiter throttles sensitive endpoints (sign-in, session refresh)
// with a per-IP token bucket. It complements the fixed-window limiter
// in the authorizer: windows bound sustained volume, buckets smooth out
// spikes against endpoints that trigger upstream calls.
type BurstLimiter struct {
	buckets sync.Map // ip -> *rate.Limiter
	rate    rate.Limit
	burst   int
}

// NewBurstLimiter creates a limiter allowing requestsPerSecond with
// bursts up to burst.
func NewBurstLimiter(requestsPerSecond, burst int) *BurstLimiter {
	return &BurstLimiter{
		rate:  rate.Limit(requestsPerSecond),
		burst: burst,
	}
}

// NewAuthBurstLimiter returns the tight bucket used on credential
// exchange endpoints.
func NewAuthBurstLimiter() *BurstLimiter {
	return NewBurstLimiter(5, 10)
}

func (bl *BurstLimiter) bucket(ip string) *rate.Limiter {
	limiter, ok := bl.buckets.Load(ip)
	if !ok {
		limiter, _ = bl.buckets.LoadOrStore(ip, rate.NewLimiter(bl.rate, bl.burst))
	}
	return limiter.(*rate.Limiter)
}

// Allow reports whether a request from ip may proceed.
func (bl *BurstLimiter) Allow(ip string) bool {
	return bl.bucket(ip).Allow()
}

// Middleware returns the Echo middleware enforcing the bucket.
func (bl *BurstLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !bl.Allow(c.RealIP()) {
				c.Response().Header().Set("Retry-After", "1")
				return c.JSON(http.StatusTooManyRequests, map[string]string{
					"error": "Too many requests",
				})
			}
			return next(c)
		}
	}
}

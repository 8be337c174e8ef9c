package middleware

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"authsrv-go/internal/config"
)

// RateLimiter returns a per-IP in-memory rate limiter for the admin listener.
func RateLimiter(cfg config.RateLimitConfig) echo.MiddlewareFunc {
	store := echomw.NewRateLimiterMemoryStoreWithConfig(echomw.RateLimiterMemoryStoreConfig{
		Rate:  rate.Limit(cfg.ConnectionsPerSecond),
		Burst: cfg.Burst,
	})
	return echomw.RateLimiter(store)
}

package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/labstack/echo/v4"
)

// rateWindow counts requests from one IP within a fixed window.
type rateWindow struct {
	count int
}

// RateLimit returns middleware that limits requests per IP to maxRequests
// within the given window duration. Returns 429 with Retry-After when
// exceeded. Windows live in a TTL cache and expire on their own.
func RateLimit(maxRequests int, window time.Duration) echo.MiddlewareFunc {
	var mu sync.Mutex
	windows := ttlcache.New[string, *rateWindow](
		ttlcache.WithTTL[string, *rateWindow](window),
		ttlcache.WithDisableTouchOnHit[string, *rateWindow](),
	)
	go windows.Start()

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()

			mu.Lock()
			item := windows.Get(ip)
			if item == nil || item.IsExpired() {
				windows.Set(ip, &rateWindow{count: 1}, ttlcache.DefaultTTL)
				mu.Unlock()
				return next(c)
			}

			w := item.Value()
			w.count++
			over := w.count > maxRequests
			mu.Unlock()

			if over {
				retry := math.Ceil(time.Until(item.ExpiresAt()).Seconds())
				c.Response().Header().Set("Retry-After", strconv.Itoa(int(max(retry, 1))))
				return echo.NewHTTPError(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
			}
			return next(c)
		}
	}
}

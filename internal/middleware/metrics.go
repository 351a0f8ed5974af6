package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/adminconsole/internal/metrics"
)

// Metrics returns middleware that records request counts and latencies per
// route pattern. Not-found responses share one label so unknown URLs cannot
// grow the label set.
func Metrics(m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			route := c.Path()
			if route == "" || status == http.StatusNotFound {
				route = "unmatched"
			}
			m.ObserveRequest(route, strconv.Itoa(status), time.Since(start))

			return err
		}
	}
}

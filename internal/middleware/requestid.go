package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// requestIDHeader carries the request ID in both directions.
const requestIDHeader = echo.HeaderXRequestID

// requestIDKey is the Echo context key for the request ID.
const requestIDKey = "request_id"

// RequestID returns middleware that tags every request with an ID. An
// incoming X-Request-ID is kept when it is a UUID; otherwise a new one is
// generated. The ID is echoed in the response and shown on error pages.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(requestIDHeader)
			if _, err := uuid.Parse(id); err != nil {
				id = uuid.NewString()
			}

			c.Set(requestIDKey, id)
			c.Response().Header().Set(requestIDHeader, id)
			return next(c)
		}
	}
}

// GetRequestID returns the current request ID, or "" outside RequestID.
func GetRequestID(c echo.Context) string {
	if id, ok := c.Get(requestIDKey).(string); ok {
		return id
	}
	return ""
}

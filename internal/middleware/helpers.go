package middleware

import (
	"context"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
)

// LayoutInjector moves per-request layout data (admin profile, CSRF token,
// active nav entry) from the echo.Context onto the context templates render
// with. app.New sets it; middleware never imports the plugin packages.
var LayoutInjector func(echo.Context, context.Context) context.Context

// IsHTMX reports whether the request is an htmx swap that wants a fragment.
// Boosted navigations still get the full page.
func IsHTMX(c echo.Context) bool {
	h := c.Request().Header
	return h.Get("HX-Request") == "true" && h.Get("HX-Boosted") != "true"
}

// Render writes component as an HTML response with the given status.
func Render(c echo.Context, statusCode int, component templ.Component) error {
	ctx := c.Request().Context()
	if LayoutInjector != nil {
		ctx = LayoutInjector(c, ctx)
	}

	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(statusCode)
	return component.Render(ctx, c.Response().Writer)
}

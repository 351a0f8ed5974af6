package dashboard

import "github.com/labstack/echo/v4"

// RegisterRoutes sets up the dashboard pages on the given group. The group's
// middleware stack supplies the session checks.
func RegisterRoutes(dashboard *echo.Group, h *Handler) {
	dashboard.GET("", h.Home)
	dashboard.GET("/profile", h.Profile)
	dashboard.GET("/:section", h.Section)
}

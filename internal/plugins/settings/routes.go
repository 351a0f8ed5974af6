package settings

import "github.com/labstack/echo/v4"

// RegisterRoutes sets up the settings page on the given dashboard group.
// The group's middleware stack supplies the session checks.
func RegisterRoutes(dashboard *echo.Group, h *Handler) {
	dashboard.GET("/settings", h.Show)
}

package app

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/adminconsole/internal/middleware"
	"github.com/keyxmakerx/adminconsole/internal/plugins/auth"
	"github.com/keyxmakerx/adminconsole/internal/plugins/dashboard"
	"github.com/keyxmakerx/adminconsole/internal/plugins/settings"
	"github.com/keyxmakerx/adminconsole/internal/templates/pages"
)

// PathError is where page loads land when the backend cannot be reached.
const PathError = "/error"

// RegisterRoutes sets up all application routes. It registers public routes
// directly and delegates to each plugin's route registration function.
//
// This is the single place where all routes are aggregated. When a new
// plugin is added, its routes are registered here.
func (a *App) RegisterRoutes() {
	e := a.Echo

	// --- Public Routes (no auth required) ---

	e.GET("/", func(c echo.Context) error {
		return c.Redirect(http.StatusSeeOther, auth.PathDashboard)
	})

	e.GET("/healthz", a.healthz)

	e.GET(PathError, func(c echo.Context) error {
		code := http.StatusBadGateway
		return middleware.Render(c, code, pages.ErrorPage(code, defaultErrorMessage(code)))
	})

	if a.Config.MetricsEnabled && a.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(a.Metrics.Handler()))
	}

	// auth plugin (login, verify, resend, cancel, forgot password, logout)
	auth.RegisterRoutes(e, auth.NewHandler(a.flow, a.sessions), a.guards)

	// --- Dashboard ---
	// The edge check runs first on every dashboard request, then the full
	// session guard. The group's catch-all keeps unknown dashboard URLs
	// behind the same checks.
	authed := e.Group(auth.PathDashboard, a.guards.RequireSession(), a.guards.RequireAuth())
	dashboard.RegisterRoutes(authed, dashboard.NewHandler(a.settings))
	settings.RegisterRoutes(authed, settings.NewHandler(a.settings))

	// --- API Routes ---
	// JSON view of the current session. Denials answer 401 instead of
	// redirecting.
	api := e.Group("/api/v1", a.guards.RequireSession(), a.guards.RequireAuth())
	api.GET("/session", sessionInfo)
}

// healthz reports liveness and, when Redis backs the stores, its reachability.
func (a *App) healthz(c echo.Context) error {
	if a.Redis != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status": "degraded",
				"redis":  "unreachable",
			})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// sessionInfo returns the cached profile of the signed-in admin.
func sessionInfo(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"authenticated": true,
		"user":          auth.GetProfile(c),
	})
}

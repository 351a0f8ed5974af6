// Package app is the application bootstrap and dependency injection root.
// It creates and holds all shared infrastructure (Redis client, backend
// client, Echo instance) and wires together the auth, dashboard and
// settings plugins.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/keyxmakerx/adminconsole/internal/apperror"
	"github.com/keyxmakerx/adminconsole/internal/backend"
	"github.com/keyxmakerx/adminconsole/internal/config"
	"github.com/keyxmakerx/adminconsole/internal/metrics"
	"github.com/keyxmakerx/adminconsole/internal/middleware"
	"github.com/keyxmakerx/adminconsole/internal/plugins/auth"
	"github.com/keyxmakerx/adminconsole/internal/plugins/dashboard"
	"github.com/keyxmakerx/adminconsole/internal/plugins/settings"
	"github.com/keyxmakerx/adminconsole/internal/sessionstate"
	"github.com/keyxmakerx/adminconsole/internal/templates/layouts"
	"github.com/keyxmakerx/adminconsole/internal/templates/pages"
)

// App holds all shared dependencies and the Echo HTTP server instance.
// Created once at startup in main.go and used to register all routes.
type App struct {
	// Config holds the loaded application configuration.
	Config *config.Config

	// Redis is the Redis client shared by the profile provider and the
	// resend cooldown. Nil when the in-memory stores are used.
	Redis *redis.Client

	// Metrics holds the Prometheus collectors. Nil disables metrics.
	Metrics *metrics.Metrics

	// Backend is the admin API client.
	Backend *backend.Client

	// Echo is the HTTP server instance.
	Echo *echo.Echo

	profiles  sessionstate.Provider
	validator *auth.SessionValidator
	settings  settings.SettingsService
	sessions  *auth.Sessions
	guards    *auth.Guards
	flow      auth.LoginFlow
}

// New creates a new App instance with the given dependencies and configures
// the Echo server with global middleware and error handling. rdb and m may
// be nil.
func New(cfg *config.Config, rdb *redis.Client, m *metrics.Metrics) (*App, error) {
	sealer, err := auth.NewSealer(cfg.Auth.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("creating cookie sealer: %w", err)
	}

	e := echo.New()

	// Disable Echo's default banner and startup message -- we log our own.
	e.HideBanner = true
	e.HidePort = true

	middleware.TrustedProxies(e, cfg.TrustedProxies)

	client := backend.NewClient(cfg.Backend.URL, cfg.Backend.Timeout, backend.WithMetrics(m))

	var (
		profiles sessionstate.Provider
		cooldown auth.Cooldown
	)
	if rdb != nil {
		profiles = sessionstate.NewRedisProvider(rdb)
		cooldown = auth.NewRedisCooldown(rdb)
	} else {
		profiles = sessionstate.NewMemoryProvider()
		cooldown = auth.NewMemoryCooldown()
	}

	validator := auth.NewSessionValidator(client, cfg.Auth.SessionCheckCacheTTL)
	sessions := auth.NewSessions(auth.CookiePolicy{Mode: cfg.Auth.CookieSecure}, sealer, profiles, validator, cfg.Auth.ProfileTTL)

	app := &App{
		Config:    cfg,
		Redis:     rdb,
		Metrics:   m,
		Backend:   client,
		Echo:      e,
		profiles:  profiles,
		validator: validator,
		settings:  settings.NewSettingsService(client, cfg.Settings.CacheTTL),
		sessions:  sessions,
		guards:    auth.NewGuards(sessions, validator, m),
		flow:      auth.NewLoginFlow(client, cooldown, cfg.Auth.ResendCooldown, m),
	}

	// Register global middleware in order of execution.
	app.setupMiddleware()

	// Register the custom error handler that maps AppErrors to HTTP responses.
	e.HTTPErrorHandler = app.errorHandler

	middleware.LayoutInjector = injectLayout

	return app, nil
}

// setupMiddleware registers global middleware on the Echo instance.
// Order matters: outermost (recovery) runs first, innermost (CSRF) runs last.
func (a *App) setupMiddleware() {
	// Panic recovery -- must be outermost to catch panics from all other middleware.
	a.Echo.Use(middleware.Recovery())

	// Request ID before logging so every log line carries it.
	a.Echo.Use(middleware.RequestID())

	a.Echo.Use(middleware.Tracing())

	// Request logging -- log every request with method, path, status, latency.
	a.Echo.Use(middleware.RequestLogger())

	if a.Metrics != nil {
		a.Echo.Use(middleware.Metrics(a.Metrics))
	}

	// Security headers -- CSP, X-Frame-Options, X-Content-Type-Options, etc.
	a.Echo.Use(middleware.SecurityHeaders())

	// CSRF -- double-submit cookie pattern on all state-changing requests.
	a.Echo.Use(middleware.CSRF())
}

// injectLayout copies the signed-in profile and request data into the
// context Templ layouts read from.
func injectLayout(c echo.Context, ctx context.Context) context.Context {
	ctx = layouts.SetCSRFToken(ctx, middleware.GetCSRFToken(c))
	ctx = layouts.SetRequestID(ctx, middleware.GetRequestID(c))
	ctx = layouts.SetActivePath(ctx, c.Request().URL.Path)

	if p := auth.GetProfile(c); p != nil {
		ctx = layouts.SetIsAuthenticated(ctx, true)
		ctx = layouts.SetUserID(ctx, p.ID)
		ctx = layouts.SetUserName(ctx, p.DisplayName())
		ctx = layouts.SetUserEmail(ctx, p.Email)
		ctx = layouts.SetUserRole(ctx, p.Role)
		ctx = layouts.SetNavItems(ctx, dashboard.NavItems())
	}
	return ctx
}

// errorHandler is the custom Echo error handler. It maps domain errors
// (AppError) to appropriate HTTP responses, and renders error pages for
// browser requests or JSON for API requests.
//
// A backend that cannot be reached sends page loads to /error. For HTMX
// requests the redirect goes through HX-Redirect so the browser navigates
// instead of swapping error HTML into a partial target.
//
// For 401 errors on browser requests, we redirect to the login page.
func (a *App) errorHandler(err error, c echo.Context) {
	// Don't double-write if response is already committed.
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := defaultErrorMessage(code)
	errType := ""

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		code = appErr.Code
		message = appErr.Message
		errType = appErr.Type

		// Log internal errors with the underlying cause.
		if appErr.Internal != nil {
			slog.Error("internal error",
				slog.String("type", appErr.Type),
				slog.String("message", appErr.Message),
				slog.Any("internal", appErr.Internal),
				slog.String("path", c.Request().URL.Path),
				slog.String("request_id", middleware.GetRequestID(c)),
			)
		}
	} else {
		// Check for Echo's built-in HTTP errors (e.g., 404 from router).
		var echoErr *echo.HTTPError
		if errors.As(err, &echoErr) {
			code = echoErr.Code
			if msg, ok := echoErr.Message.(string); ok {
				message = msg
			} else {
				message = defaultErrorMessage(code)
			}
		} else {
			// Truly unexpected error -- log it.
			slog.Error("unhandled error",
				slog.Any("error", err),
				slog.String("path", c.Request().URL.Path),
				slog.String("request_id", middleware.GetRequestID(c)),
			)
		}
	}

	// API requests always get JSON.
	if isAPIRequest(c) {
		c.JSON(code, map[string]string{
			"error":   http.StatusText(code),
			"message": message,
		})
		return
	}

	target := ""
	switch {
	case code == http.StatusUnauthorized:
		target = auth.PathLogin
	case errType == apperror.TypeUpstream && c.Request().Method == http.MethodGet:
		target = PathError
	}

	if isHTMXRequest(c) {
		if target != "" {
			c.Response().Header().Set("HX-Redirect", target)
			c.NoContent(http.StatusNoContent)
			return
		}
		// For other HTMX errors, retarget to body so the full error page
		// replaces the entire page instead of landing in a partial target.
		c.Response().Header().Set("HX-Retarget", "body")
		c.Response().Header().Set("HX-Reswap", "innerHTML")
	}

	if target != "" {
		c.Redirect(http.StatusSeeOther, target)
		return
	}

	if c.Request().Method == http.MethodHead {
		c.NoContent(code)
		return
	}

	middleware.Render(c, code, pages.ErrorPage(code, message))
}

// defaultErrorMessage returns a user-friendly message for common HTTP status codes
// when no specific message was provided by the error.
func defaultErrorMessage(code int) string {
	switch code {
	case http.StatusBadRequest:
		return "The request was invalid or cannot be processed."
	case http.StatusUnauthorized:
		return "You need to log in to access this page."
	case http.StatusForbidden:
		return "You don't have permission to access this resource."
	case http.StatusNotFound:
		return "The page you're looking for doesn't exist or has been moved."
	case http.StatusMethodNotAllowed:
		return "This action is not allowed."
	case http.StatusTooManyRequests:
		return "You're making too many requests. Please slow down."
	case http.StatusBadGateway:
		return "The admin API could not be reached. Please try again."
	case http.StatusServiceUnavailable:
		return "The service is temporarily unavailable. Please try again later."
	default:
		return "Something went wrong on our end. Please try again."
	}
}

// isAPIRequest returns true if the request is targeting the API (JSON response expected).
func isAPIRequest(c echo.Context) bool {
	path := c.Request().URL.Path
	return path == "/api" || strings.HasPrefix(path, "/api/")
}

// isHTMXRequest returns true if the request was initiated by HTMX.
func isHTMXRequest(c echo.Context) bool {
	return c.Request().Header.Get("HX-Request") == "true"
}

// Start begins listening for HTTP requests on the configured port.
func (a *App) Start() error {
	addr := fmt.Sprintf(":%d", a.Config.Port)
	slog.Info("starting admin console server",
		slog.String("addr", addr),
		slog.String("env", a.Config.Env),
		slog.Bool("redis", a.Redis != nil),
	)
	return a.Echo.Start(addr)
}

// Close releases the caches and stores owned by the app. The Redis client
// itself belongs to main.
func (a *App) Close() {
	a.validator.Close()
	a.settings.Close()
	if err := a.profiles.Close(); err != nil {
		slog.Warn("closing profile provider", slog.Any("error", err))
	}
}

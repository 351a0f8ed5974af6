package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/adminconsole/internal/metrics"
	"github.com/keyxmakerx/adminconsole/internal/middleware"
	"github.com/keyxmakerx/adminconsole/internal/sessionstate"
	"github.com/keyxmakerx/adminconsole/internal/templates/pages"
)

// Context keys for storing session data in Echo context. Other plugins
// use these keys (via the exported getter functions below) to access
// the authenticated admin's information.
const (
	contextKeyRemote  = "auth_remote_result"
	contextKeyToken   = "auth_session_token"
	contextKeyProfile = "auth_profile"
	contextKeyPending = "auth_pending_login"
)

// Guards turns Decide into echo middleware. Each guard reads cookies once
// per request; there is no background re-check.
type Guards struct {
	sessions  *Sessions
	validator *SessionValidator
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewGuards creates the guard middleware set.
func NewGuards(sessions *Sessions, validator *SessionValidator, m *metrics.Metrics) *Guards {
	return &Guards{
		sessions:  sessions,
		validator: validator,
		metrics:   m,
		now:       time.Now,
	}
}

// GuestOnly keeps signed-in admins off the login screens by sending them to
// the dashboard. Everyone else passes.
func (g *Guards) GuestOnly() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			snap := g.sessions.Snapshot(c, true)
			d := Decide(GuardGuest, snap, RemoteUnchecked, g.now())
			g.observe(c, GuardGuest, d)
			if d.State == StateDenied {
				return g.deny(c, d)
			}
			return next(c)
		}
	}
}

// RequirePendingLogin admits only visitors with a complete pending login
// and stores it in the context for the verify handlers.
func (g *Guards) RequirePendingLogin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			snap := Snapshot{Pending: g.sessions.Pending(c)}
			d := Decide(GuardPendingLogin, snap, RemoteUnchecked, g.now())
			g.observe(c, GuardPendingLogin, d)
			if d.State == StateDenied {
				return g.deny(c, d)
			}
			c.Set(contextKeyPending, snap.Pending)
			return next(c)
		}
	}
}

// RequireSession is the edge check placed in front of every protected
// route. Without a session cookie the visitor goes to /login and the backend
// is not called. Otherwise the backend validates the token once; a failed
// validation clears the session and sends the visitor to /logout. The
// verdict is kept on the context so RequireAuth does not ask again.
func (g *Guards) RequireSession() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			jar := g.sessions.Jar(c)
			snap := Snapshot{
				SessionKey:        jar.Value(CookieSessionKey),
				SessionExpiration: jar.Value(CookieSessionExpiration),
			}

			d := Decide(GuardEdge, snap, RemoteUnchecked, g.now())
			if d.State == StateChecking {
				var ok bool
				d, ok = g.check(c, GuardEdge, snap)
				if !ok {
					return nil
				}
			}

			g.observe(c, GuardEdge, d)
			if d.State == StateDenied {
				if d.Target == PathLogout {
					g.sessions.End(c)
				}
				return g.deny(c, d)
			}

			c.Set(contextKeyToken, snap.SessionKey)
			return next(c)
		}
	}
}

// RequireAuth is the page-level check on protected routes. On top of the
// edge rules it refuses sessions whose stored expiration has passed or is
// missing. It reuses the edge's verdict when present and otherwise validates
// the token itself. The cached profile is loaded into the context.
func (g *Guards) RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			jar := g.sessions.Jar(c)
			snap := Snapshot{
				SessionKey:        jar.Value(CookieSessionKey),
				SessionExpiration: jar.Value(CookieSessionExpiration),
			}

			remote, _ := c.Get(contextKeyRemote).(RemoteResult)
			d := Decide(GuardAuth, snap, remote, g.now())
			if d.State == StateChecking {
				var ok bool
				d, ok = g.check(c, GuardAuth, snap)
				if !ok {
					return nil
				}
			}

			g.observe(c, GuardAuth, d)
			if d.State == StateDenied {
				if d.Target == PathLogout {
					g.sessions.End(c)
				}
				return g.deny(c, d)
			}

			c.Set(contextKeyToken, snap.SessionKey)
			if _, cached := c.Get(contextKeyProfile).(*sessionstate.Profile); !cached {
				if profile := g.sessions.LoadProfile(c.Request().Context(), snap.SessionKey); profile != nil {
					c.Set(contextKeyProfile, profile)
				}
			}
			return next(c)
		}
	}
}

// check asks the backend about the session and decides again with its
// answer. It returns false when the client went away mid-check, in which
// case nothing must be written.
func (g *Guards) check(c echo.Context, guard Guard, snap Snapshot) (Decision, bool) {
	ctx := c.Request().Context()
	remote, user := g.validator.Validate(ctx, snap.SessionKey)
	if errors.Is(ctx.Err(), context.Canceled) {
		return Decision{}, false
	}

	c.Set(contextKeyRemote, remote)
	if remote == RemoteValid && user != nil {
		expiresAt, _ := ParseInstant(snap.SessionExpiration)
		if profile := g.sessions.StoreProfile(ctx, snap.SessionKey, expiresAt, user); profile != nil {
			c.Set(contextKeyProfile, profile)
		}
	}

	return Decide(guard, snap, remote, g.now()), true
}

func (g *Guards) observe(c echo.Context, guard Guard, d Decision) {
	g.metrics.ObserveGuard(string(guard), d.State.String(), d.Target)
	if d.State == StateDenied {
		slog.Debug("guard denied",
			slog.String("guard", string(guard)),
			slog.String("target", d.Target),
			slog.String("path", c.Request().URL.Path),
		)
	}
}

// deny answers a denied decision: 401 JSON for API clients, HX-Redirect for
// HTMX, 303 for browsers. TargetBack returns the visitor to where they came
// from.
func (g *Guards) deny(c echo.Context, d Decision) error {
	if isAPIRequest(c) {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error":   "unauthorized",
			"message": "authentication required",
		})
	}

	target := d.Target
	if target == TargetBack {
		target = sameOriginReferer(c)
		if target == "" {
			return middleware.Render(c, http.StatusOK, pages.BackPage(PathLogin))
		}
	}

	return redirect(c, target)
}

// redirect navigates the browser, using HX-Redirect for HTMX requests so the
// whole page changes.
func redirect(c echo.Context, target string) error {
	if isHTMXRequest(c) {
		c.Response().Header().Set("HX-Redirect", target)
		return c.NoContent(http.StatusNoContent)
	}
	return c.Redirect(http.StatusSeeOther, target)
}

// sameOriginReferer returns the path and query of the Referer when it points
// at this host and not at the current page, otherwise "".
func sameOriginReferer(c echo.Context) string {
	req := c.Request()
	ref, err := url.Parse(req.Referer())
	if err != nil || ref.Host == "" || !strings.EqualFold(ref.Host, req.Host) {
		return ""
	}
	if ref.Path == req.URL.Path {
		return ""
	}
	// Paths starting "//" or "/\" are read by browsers as another origin.
	if strings.HasPrefix(ref.Path, "//") || strings.HasPrefix(ref.Path, "/\\") {
		return ""
	}
	target := (&url.URL{Path: ref.Path, RawQuery: ref.RawQuery}).String()
	if !strings.HasPrefix(target, "/") {
		return ""
	}
	return target
}

// --- Exported getters for other plugins ---

// GetProfile retrieves the cached profile of the signed-in admin. Returns
// nil when the session has no cached profile or the guard did not run.
func GetProfile(c echo.Context) *sessionstate.Profile {
	profile, ok := c.Get(contextKeyProfile).(*sessionstate.Profile)
	if !ok {
		return nil
	}
	return profile
}

// GetSessionToken retrieves the validated session token. Returns empty
// string if the request is not authenticated.
func GetSessionToken(c echo.Context) string {
	token, ok := c.Get(contextKeyToken).(string)
	if !ok {
		return ""
	}
	return token
}

// GetPendingLogin retrieves the pending login stored by RequirePendingLogin.
func GetPendingLogin(c echo.Context) PendingLogin {
	p, _ := c.Get(contextKeyPending).(PendingLogin)
	return p
}

// --- Helpers ---

// isAPIRequest returns true if the request targets the /api/ path.
func isAPIRequest(c echo.Context) bool {
	path := c.Request().URL.Path
	return len(path) >= 4 && path[:4] == "/api"
}

// isHTMXRequest returns true if the request was made by HTMX.
func isHTMXRequest(c echo.Context) bool {
	return c.Request().Header.Get("HX-Request") == "true"
}

package auth

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/adminconsole/internal/middleware"
)

// RegisterRoutes sets up all auth-related routes on the given Echo instance.
// The sign-in screens sit behind GuestOnly, the code screens behind
// RequirePendingLogin. RequireSession and RequireAuth are applied by the
// app to the protected groups.
//
// POST endpoints are rate-limited per IP to slow down credential stuffing
// and code guessing.
func RegisterRoutes(e *echo.Echo, h *Handler, g *Guards) {
	guest := g.GuestOnly()
	e.GET(PathLogin, h.LoginForm, guest)
	e.POST(PathLogin, h.Login, guest, middleware.RateLimit(10, time.Minute))
	e.GET(PathForgotPassword, h.ForgotPasswordForm, guest)
	e.POST(PathForgotPassword, h.ForgotPassword, guest, middleware.RateLimit(5, time.Minute))

	pending := g.RequirePendingLogin()
	e.GET(PathVerify, h.VerifyForm, pending)
	e.POST(PathVerify, h.Verify, pending, middleware.RateLimit(10, time.Minute))
	e.POST(PathResend, h.Resend, pending, middleware.RateLimit(5, time.Minute))

	e.POST(PathCancel, h.Cancel)

	// Logout must accept GET: the edge check redirects here.
	e.GET(PathLogout, h.Logout)
	e.POST(PathLogout, h.Logout)
}

package auth

import (
	"log/slog"
	"net/http"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/adminconsole/internal/apperror"
	"github.com/keyxmakerx/adminconsole/internal/middleware"
)

// Handler handles HTTP requests for sign-in, OTP verification, password
// reset and logout. Handlers are thin: they bind the request, call the login
// flow, and write cookies and responses. No backend logic lives here.
type Handler struct {
	flow     LoginFlow
	sessions *Sessions
}

// NewHandler creates a new auth handler.
func NewHandler(flow LoginFlow, sessions *Sessions) *Handler {
	return &Handler{flow: flow, sessions: sessions}
}

// LoginForm renders the sign-in page (GET /login).
func (h *Handler) LoginForm(c echo.Context) error {
	// Show success banner after password reset.
	var successMsg string
	if c.QueryParam("reset") == "success" {
		successMsg = "Your password has been reset. You can now sign in."
	}
	return middleware.Render(c, http.StatusOK, LoginPage("", "", successMsg))
}

// Login processes the first factor (POST /login). A direct session grant
// goes straight to the dashboard; otherwise the pending login is stored and
// the visitor moves on to the code screen.
func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	out, err := h.flow.BeginLogin(c.Request().Context(), req.Login, req.Password)
	if err != nil {
		logFlowError("login", err)
		errMsg := apperror.SafeMessage(err)
		return h.render(c, LoginForm(req.Login, errMsg, ""), LoginPage(req.Login, errMsg, ""))
	}

	if out.Session != nil {
		h.sessions.ClearPending(c)
		h.sessions.Establish(c, out.Session)
		return redirect(c, PathDashboard)
	}

	if err := h.sessions.WritePending(c, *out.Pending); err != nil {
		return apperror.NewInternal(err)
	}
	return redirect(c, PathVerify)
}

// VerifyForm renders the code screen (GET /login/verify).
func (h *Handler) VerifyForm(c echo.Context) error {
	pending := GetPendingLogin(c)
	return middleware.Render(c, http.StatusOK, VerifyPage(VerifyView{
		Login:         pending.Login,
		PasswordReset: pending.IsPasswordReset(),
		Remaining:     h.flow.ResendRemaining(c.Request().Context(), pending),
	}))
}

// Verify processes the submitted code (POST /login/verify). On failure the
// message is shown and the pending login is kept so the admin can retry.
func (h *Handler) Verify(c echo.Context) error {
	var req VerifyRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	ctx := c.Request().Context()
	pending := GetPendingLogin(c)

	out, err := h.flow.Verify(ctx, pending, req.OTP)
	if err != nil {
		logFlowError("verify", err)
		view := VerifyView{
			Login:         pending.Login,
			PasswordReset: pending.IsPasswordReset(),
			Error:         apperror.SafeMessage(err),
			Remaining:     h.flow.ResendRemaining(ctx, pending),
		}
		return h.render(c, VerifyForm(view), VerifyPage(view))
	}

	h.sessions.ClearPending(c)
	if out.PasswordReset {
		return redirect(c, PathLogin+"?reset=success")
	}

	h.sessions.Establish(c, out.Session)
	return redirect(c, PathDashboard)
}

// Resend asks for a fresh code (POST /login/resend). While the cooldown runs
// this is a no-op that only reports the time left.
func (h *Handler) Resend(c echo.Context) error {
	ctx := c.Request().Context()
	pending := GetPendingLogin(c)

	view := VerifyView{
		Login:         pending.Login,
		PasswordReset: pending.IsPasswordReset(),
	}

	out, err := h.flow.Resend(ctx, pending)
	if err != nil {
		logFlowError("resend", err)
		view.Error = apperror.SafeMessage(err)
		view.Remaining = h.flow.ResendRemaining(ctx, pending)
	} else {
		if out.Sent {
			view.Notice = "A new code is on its way."
		}
		view.Remaining = out.Remaining
	}

	return h.render(c, VerifyForm(view), VerifyPage(view))
}

// Cancel abandons the pending login (POST /login/cancel).
func (h *Handler) Cancel(c echo.Context) error {
	h.sessions.ClearPending(c)
	return redirect(c, PathLogin)
}

// ForgotPasswordForm renders the password reset page (GET /forgot-password).
func (h *Handler) ForgotPasswordForm(c echo.Context) error {
	return middleware.Render(c, http.StatusOK, ForgotPasswordPage("", ""))
}

// ForgotPassword starts a password reset (POST /forgot-password) and moves
// on to the code screen.
func (h *Handler) ForgotPassword(c echo.Context) error {
	var req ForgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	if req.Password != req.Confirm {
		return h.render(c,
			ForgotPasswordForm(req.Email, "passwords do not match"),
			ForgotPasswordPage(req.Email, "passwords do not match"))
	}

	pending, err := h.flow.BeginPasswordReset(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		logFlowError("forgot_password", err)
		errMsg := apperror.SafeMessage(err)
		return h.render(c, ForgotPasswordForm(req.Email, errMsg), ForgotPasswordPage(req.Email, errMsg))
	}

	if err := h.sessions.WritePending(c, *pending); err != nil {
		return apperror.NewInternal(err)
	}
	return redirect(c, PathVerify)
}

// Logout clears the session cookies, the pending login and the cached
// profile (GET|POST /logout). The backend session is left to expire.
func (h *Handler) Logout(c echo.Context) error {
	h.sessions.End(c)
	h.sessions.ClearPending(c)
	return redirect(c, PathLogin)
}

// render returns the fragment to HTMX requests and the full page otherwise.
func (h *Handler) render(c echo.Context, fragment, page templ.Component) error {
	if middleware.IsHTMX(c) {
		return middleware.Render(c, http.StatusOK, fragment)
	}
	return middleware.Render(c, http.StatusOK, page)
}

// logFlowError logs failures the admin cannot act on. Rejections and
// validation errors are expected and stay at debug.
func logFlowError(step string, err error) {
	if apperror.IsType(err, apperror.TypeRejected) || apperror.IsType(err, apperror.TypeValidation) {
		slog.Debug("auth step refused", slog.String("step", step), slog.Any("error", err))
		return
	}
	slog.Warn("auth step failed", slog.String("step", step), slog.Any("error", err))
}

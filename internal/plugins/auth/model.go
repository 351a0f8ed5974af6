// Package auth gates the admin console on the backend's session. It owns the
// session and pending-login cookies, the route guards and edge middleware
// that read them, and the two-step (OTP) login and password-reset flows that
// write them. The backend API is the only source of authentication truth;
// everything here is a cookie check or a relay to it.
//
// This is a CORE plugin -- always enabled, cannot be disabled.
package auth

import (
	"time"

	"github.com/keyxmakerx/adminconsole/internal/backend"
	"github.com/keyxmakerx/adminconsole/internal/sessionstate"
)

// Cookie names. All are path "/", SameSite=Strict.
const (
	CookieSessionKey        = "session_key"
	CookieSessionExpiration = "session_expiration"
	CookieLogin             = "login"
	CookiePassword          = "password"
	CookieAction            = "action"
)

// Route paths used as redirect targets.
const (
	PathLogin          = "/login"
	PathLogout         = "/logout"
	PathVerify         = "/login/verify"
	PathResend         = "/login/resend"
	PathCancel         = "/login/cancel"
	PathForgotPassword = "/forgot-password"
	PathDashboard      = "/dashboard"
)

// Flow actions carried in the action cookie.
const (
	ActionLogin2FA       = "login_2fa"
	ActionForgotPassword = "forgot_password"
)

// PendingLogin is the state carried between the first factor and the OTP
// step in the login, password and action cookies.
type PendingLogin struct {
	// Login is the identifier (email or username). For password resets it is
	// the email address.
	Login string

	// Password is the first-factor password, or the new password for resets.
	Password string

	// Action tags the flow, e.g. login_2fa or forgot_password.
	Action string
}

// Complete reports whether all three pending-login fields are present.
func (p PendingLogin) Complete() bool {
	return p.Login != "" && p.Password != "" && p.Action != ""
}

// IsPasswordReset reports whether the flow ends in a password reset.
func (p PendingLogin) IsPasswordReset() bool {
	return p.Action == ActionForgotPassword
}

// SessionGrant is a session issued by the backend, ready to be written to
// the session cookies.
type SessionGrant struct {
	Token     string
	ExpiresAt time.Time

	// MaxAge is the remaining lifetime in whole seconds, always positive.
	MaxAge int

	// User is the profile returned with the grant, if any.
	User *backend.User
}

// LoginOutcome is the result of a first-factor submission: either a session
// was granted straight away or a second factor is pending.
type LoginOutcome struct {
	Session *SessionGrant
	Pending *PendingLogin
}

// VerifyOutcome is the result of an OTP submission.
type VerifyOutcome struct {
	// Session is set when a login completed.
	Session *SessionGrant

	// PasswordReset is true when a reset completed. No session is issued.
	PasswordReset bool
}

// ResendOutcome is the result of a resend request.
type ResendOutcome struct {
	// Sent is true when the backend was asked for a new code.
	Sent bool

	// Remaining is the cooldown left after this call.
	Remaining time.Duration
}

// --- Request DTOs (bound from HTTP requests) ---

// LoginRequest holds the data submitted by the login form.
type LoginRequest struct {
	Login    string `json:"login" form:"login"`
	Password string `json:"password" form:"password"`
}

// VerifyRequest holds the OTP submitted on the verify screen.
type VerifyRequest struct {
	OTP string `json:"otp" form:"otp"`
}

// ForgotPasswordRequest holds the data submitted by the reset form.
type ForgotPasswordRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	Confirm  string `json:"confirm" form:"confirm"`
}

// profileFromUser converts the backend user into the cached profile shape.
func profileFromUser(u *backend.User, now time.Time) *sessionstate.Profile {
	if u == nil {
		return nil
	}
	return &sessionstate.Profile{
		ID:       u.ID,
		Name:     u.Name,
		Email:    u.Email,
		Role:     u.Role,
		Avatar:   u.Avatar,
		CachedAt: now.UTC(),
	}
}

// Package backend is the client for the admin REST API. The API owns all
// business data and authentication truth; the console only relays requests
// and interprets the {success, msg, data} envelope it answers with.
package backend

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Endpoint paths on the backend API.
const (
	PathCheckSession         = "/v1/admin/check-session-valid"
	PathLogin                = "/v1/admin/login"
	PathLoginVerify          = "/v1/admin/login/verify"
	PathForgotPassword       = "/v1/admin/forgot-password"
	PathForgotPasswordVerify = "/v1/admin/forgot-password/verify"
	PathResendOTP            = "/v1/admin/resend-send-otp"
	PathSettings             = "/v1/admin/settings"
)

// Envelope is the response shape of every backend call.
type Envelope struct {
	Success bool            `json:"success"`
	Msg     string          `json:"msg,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// hasData reports whether the envelope carries a non-null data member.
func (e *Envelope) hasData() bool {
	return len(e.Data) > 0 && !bytes.Equal(bytes.TrimSpace(e.Data), []byte("null"))
}

// Instant is a timestamp as the backend sends it. Both JSON strings and
// numbers are accepted and kept in their textual form; interpretation is left
// to the session expiry evaluator.
type Instant string

// UnmarshalJSON accepts "2025-01-02T03:04:05Z", 1735787045 or 1735787045000.
func (i *Instant) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*i = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*i = Instant(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return err
	}
	*i = Instant(n.String())
	return nil
}

// User is the profile the backend returns alongside a session.
type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

// SessionCheck is the data member of a successful check-session-valid call.
type SessionCheck struct {
	User *User `json:"user,omitempty"`
}

// LoginRequest is the first-factor submission.
type LoginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// LoginResult is the data member of a successful first-factor call. Either a
// session is granted immediately (Token set) or a second factor is required.
type LoginResult struct {
	Token       string  `json:"token,omitempty"`
	ExpiresAt   Instant `json:"expiresAt,omitempty"`
	User        *User   `json:"user,omitempty"`
	OTPRequired bool    `json:"otpRequired,omitempty"`
	Action      string  `json:"action,omitempty"`
}

// ForgotPasswordRequest starts a password reset.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPasswordResult is the data member of a successful reset start.
type ForgotPasswordResult struct {
	Action string `json:"action,omitempty"`
}

// LoginVerifyRequest completes the two-step login.
type LoginVerifyRequest struct {
	Login    string `json:"login"`
	OTP      string `json:"otp"`
	Action   string `json:"action"`
	Password string `json:"password"`
}

// SessionGrant is the data member of a successful login verification.
type SessionGrant struct {
	Token     string  `json:"token"`
	ExpiresAt Instant `json:"expiresAt"`
	User      *User   `json:"user,omitempty"`
}

// ForgotPasswordVerifyRequest completes a password reset.
type ForgotPasswordVerifyRequest struct {
	Email    string `json:"email"`
	OTP      string `json:"otp"`
	Action   string `json:"action"`
	Password string `json:"password"`
}

// ResendOTPRequest re-issues a code. Login flows send login, reset flows send email.
type ResendOTPRequest struct {
	Login  string `json:"login,omitempty"`
	Email  string `json:"email,omitempty"`
	Action string `json:"action"`
}

// Settings is the non-auth configuration the backend exposes for rendering
// pages. Its keys are owned by the backend and rendered as-is.
type Settings map[string]any

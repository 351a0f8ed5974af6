package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/keyxmakerx/adminconsole/internal/apperror"
	"github.com/keyxmakerx/adminconsole/internal/backend"
	"github.com/keyxmakerx/adminconsole/internal/metrics"
)

// Password length bounds for the reset form.
const (
	minPasswordLength = 8
	maxPasswordLength = 128
)

// LoginAPI is the part of the backend client the login flow uses.
type LoginAPI interface {
	Login(ctx context.Context, req backend.LoginRequest) (*backend.LoginResult, error)
	LoginVerify(ctx context.Context, req backend.LoginVerifyRequest) (*backend.SessionGrant, error)
	ForgotPassword(ctx context.Context, req backend.ForgotPasswordRequest) (*backend.ForgotPasswordResult, error)
	ForgotPasswordVerify(ctx context.Context, req backend.ForgotPasswordVerifyRequest) error
	ResendOTP(ctx context.Context, req backend.ResendOTPRequest) error
}

// LoginFlow drives the two-step login and the password reset. It talks to
// the backend only; writing cookies is left to the handler.
type LoginFlow interface {
	BeginLogin(ctx context.Context, login, password string) (*LoginOutcome, error)
	BeginPasswordReset(ctx context.Context, email, newPassword string) (*PendingLogin, error)
	Verify(ctx context.Context, pending PendingLogin, otp string) (*VerifyOutcome, error)
	Resend(ctx context.Context, pending PendingLogin) (*ResendOutcome, error)
	ResendRemaining(ctx context.Context, pending PendingLogin) time.Duration
}

// loginFlow implements LoginFlow.
type loginFlow struct {
	api            LoginAPI
	cooldown       Cooldown
	resendCooldown time.Duration
	metrics        *metrics.Metrics
	now            func() time.Time
}

// NewLoginFlow creates the login flow. resendCooldown is the wait enforced
// between OTP resends for the same pending login.
func NewLoginFlow(api LoginAPI, cooldown Cooldown, resendCooldown time.Duration, m *metrics.Metrics) LoginFlow {
	return &loginFlow{
		api:            api,
		cooldown:       cooldown,
		resendCooldown: resendCooldown,
		metrics:        m,
		now:            time.Now,
	}
}

// BeginLogin submits the first factor. The backend either grants a session
// outright or asks for a code, in which case the returned outcome carries the
// pending login to store in cookies.
func (f *loginFlow) BeginLogin(ctx context.Context, login, password string) (*LoginOutcome, error) {
	login = strings.TrimSpace(login)
	if login == "" {
		return nil, apperror.NewValidation("email or username is required")
	}
	if password == "" {
		return nil, apperror.NewValidation("password is required")
	}

	res, err := f.api.Login(ctx, backend.LoginRequest{Login: login, Password: password})
	if err != nil {
		return nil, err
	}

	if res.Token != "" {
		grant, err := f.grant(res.Token, string(res.ExpiresAt), res.User)
		if err != nil {
			return nil, err
		}
		slog.Info("login completed without otp", slog.String("user_id", userID(res.User)))
		return &LoginOutcome{Session: grant}, nil
	}

	action := res.Action
	if action == "" {
		action = ActionLogin2FA
	}

	pending := &PendingLogin{Login: login, Password: password, Action: action}
	f.restartCooldown(ctx, *pending)

	slog.Info("otp requested", slog.String("action", action))
	return &LoginOutcome{Pending: pending}, nil
}

// BeginPasswordReset asks the backend to send a reset code to email. The new
// password rides along in the pending login until the code is verified.
func (f *loginFlow) BeginPasswordReset(ctx context.Context, email, newPassword string) (*PendingLogin, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperror.NewValidation("email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperror.NewValidation("enter a valid email address")
	}
	if msg := validatePassword(newPassword); msg != "" {
		return nil, apperror.NewValidation(msg)
	}

	res, err := f.api.ForgotPassword(ctx, backend.ForgotPasswordRequest{Email: email})
	if err != nil {
		return nil, err
	}

	action := ActionForgotPassword
	if res != nil && res.Action != "" {
		action = res.Action
	}

	pending := &PendingLogin{Login: email, Password: newPassword, Action: action}
	f.restartCooldown(ctx, *pending)

	slog.Info("password reset requested", slog.String("action", action))
	return pending, nil
}

// Verify submits the OTP for a pending login. The action decides which
// backend endpoint completes the flow.
func (f *loginFlow) Verify(ctx context.Context, pending PendingLogin, otp string) (*VerifyOutcome, error) {
	if !pending.Complete() {
		return nil, apperror.NewBadRequest("no login is awaiting verification")
	}
	otp = strings.TrimSpace(otp)
	if otp == "" {
		return nil, apperror.NewValidation("enter the code we sent you")
	}

	if pending.IsPasswordReset() {
		err := f.api.ForgotPasswordVerify(ctx, backend.ForgotPasswordVerifyRequest{
			Email:    pending.Login,
			OTP:      otp,
			Action:   pending.Action,
			Password: pending.Password,
		})
		if err != nil {
			return nil, err
		}
		slog.Info("password reset verified")
		return &VerifyOutcome{PasswordReset: true}, nil
	}

	res, err := f.api.LoginVerify(ctx, backend.LoginVerifyRequest{
		Login:    pending.Login,
		OTP:      otp,
		Action:   pending.Action,
		Password: pending.Password,
	})
	if err != nil {
		return nil, err
	}

	grant, err := f.grant(res.Token, string(res.ExpiresAt), res.User)
	if err != nil {
		return nil, err
	}

	slog.Info("otp verified", slog.String("user_id", userID(res.User)))
	return &VerifyOutcome{Session: grant}, nil
}

// Resend asks the backend for a fresh code unless the cooldown for this
// pending login is still running, in which case nothing is sent.
func (f *loginFlow) Resend(ctx context.Context, pending PendingLogin) (*ResendOutcome, error) {
	if !pending.Complete() {
		return nil, apperror.NewBadRequest("no login is awaiting verification")
	}

	key := ResendKey(pending.Action, pending.Login)
	started, remaining, err := f.cooldown.Start(ctx, key, f.resendCooldown)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("starting resend cooldown: %w", err))
	}
	if !started {
		f.metrics.ObserveResend("suppressed")
		slog.Debug("otp resend suppressed", slog.Duration("remaining", remaining))
		return &ResendOutcome{Sent: false, Remaining: remaining}, nil
	}

	req := backend.ResendOTPRequest{Action: pending.Action}
	if pending.IsPasswordReset() {
		req.Email = pending.Login
	} else {
		req.Login = pending.Login
	}

	if err := f.api.ResendOTP(ctx, req); err != nil {
		// A failed send must not lock the user out of retrying.
		if relErr := f.cooldown.Release(ctx, key); relErr != nil {
			slog.Warn("releasing resend cooldown", slog.Any("error", relErr))
		}
		f.metrics.ObserveResend("failed")
		return nil, err
	}

	f.metrics.ObserveResend("sent")
	slog.Info("otp resent", slog.String("action", pending.Action))
	return &ResendOutcome{Sent: true, Remaining: remaining}, nil
}

// restartCooldown starts a full resend cooldown for a code the backend has
// just sent. Store errors only cost the countdown, so they are logged.
func (f *loginFlow) restartCooldown(ctx context.Context, pending PendingLogin) {
	key := ResendKey(pending.Action, pending.Login)
	if err := f.cooldown.Release(ctx, key); err != nil {
		slog.Warn("resetting resend cooldown", slog.Any("error", err))
		return
	}
	if _, _, err := f.cooldown.Start(ctx, key, f.resendCooldown); err != nil {
		slog.Warn("starting resend cooldown", slog.Any("error", err))
	}
}

// ResendRemaining returns the cooldown left for a pending login. Store
// errors read as no cooldown so the verify screen still renders.
func (f *loginFlow) ResendRemaining(ctx context.Context, pending PendingLogin) time.Duration {
	remaining, err := f.cooldown.Remaining(ctx, ResendKey(pending.Action, pending.Login))
	if err != nil {
		slog.Warn("reading resend cooldown", slog.Any("error", err))
		return 0
	}
	return remaining
}

// grant turns a backend token and expiry into a session grant. A grant that
// is already expired, or whose expiry cannot be read, is malformed.
func (f *loginFlow) grant(token, rawExpiry string, user *backend.User) (*SessionGrant, error) {
	expiresAt, ok := ParseInstant(rawExpiry)
	if !ok {
		return nil, apperror.NewMalformed(fmt.Errorf("unreadable session expiry %q", rawExpiry))
	}
	maxAge := remainingSeconds(expiresAt, f.now())
	if maxAge <= 0 {
		return nil, apperror.NewMalformed(errors.New("session grant already expired"))
	}
	return &SessionGrant{
		Token:     token,
		ExpiresAt: expiresAt,
		MaxAge:    maxAge,
		User:      user,
	}, nil
}

// validatePassword checks a new password. Returns an error message or "".
func validatePassword(password string) string {
	switch {
	case password == "":
		return "password is required"
	case len(password) < minPasswordLength:
		return fmt.Sprintf("password must be at least %d characters", minPasswordLength)
	case len(password) > maxPasswordLength:
		return fmt.Sprintf("password must be at most %d characters", maxPasswordLength)
	}
	return ""
}

func userID(u *backend.User) string {
	if u == nil {
		return ""
	}
	return u.ID
}

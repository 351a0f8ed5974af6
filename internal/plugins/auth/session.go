package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/adminconsole/internal/backend"
	"github.com/keyxmakerx/adminconsole/internal/sessionstate"
)

// Sessions reads and writes the browser-side session state: the session and
// pending-login cookies plus the cached profile they point at. Guards and
// handlers share one instance.
type Sessions struct {
	policy     CookiePolicy
	sealer     *Sealer
	profiles   sessionstate.Provider
	validator  *SessionValidator
	profileTTL time.Duration
	now        func() time.Time
}

// NewSessions creates the session state helper. profileTTL caps how long a
// cached profile is kept; it never outlives the session itself.
func NewSessions(policy CookiePolicy, sealer *Sealer, profiles sessionstate.Provider, validator *SessionValidator, profileTTL time.Duration) *Sessions {
	return &Sessions{
		policy:     policy,
		sealer:     sealer,
		profiles:   profiles,
		validator:  validator,
		profileTTL: profileTTL,
		now:        time.Now,
	}
}

// Jar returns a cookie jar for the request.
func (s *Sessions) Jar(c echo.Context) *CookieJar {
	return NewCookieJar(c, s.policy)
}

// Snapshot reads the cookie state a guard decides on. The cached profile is
// looked up only when withProfile is set and a live-looking session exists.
func (s *Sessions) Snapshot(c echo.Context, withProfile bool) Snapshot {
	jar := s.Jar(c)
	snap := Snapshot{
		SessionKey:        jar.Value(CookieSessionKey),
		SessionExpiration: jar.Value(CookieSessionExpiration),
		Pending:           s.Pending(c),
	}
	if withProfile && snap.SessionKey != "" && !Expired(snap.SessionExpiration, s.now()) {
		snap.HasProfile = s.LoadProfile(c.Request().Context(), snap.SessionKey) != nil
	}
	return snap
}

// Pending reads the pending login from cookies. A password cookie that fails
// to open reads as absent.
func (s *Sessions) Pending(c echo.Context) PendingLogin {
	jar := s.Jar(c)
	p := PendingLogin{
		Login:  jar.Value(CookieLogin),
		Action: jar.Value(CookieAction),
	}
	if sealed := jar.Value(CookiePassword); sealed != "" {
		password, err := s.sealer.Open(sealed)
		if err != nil {
			slog.Debug("pending password cookie rejected", slog.Any("error", err))
		} else {
			p.Password = password
		}
	}
	return p
}

// WritePending stores a pending login in the transient cookies.
func (s *Sessions) WritePending(c echo.Context, p PendingLogin) error {
	sealed, err := s.sealer.Seal(p.Password)
	if err != nil {
		return fmt.Errorf("sealing password: %w", err)
	}
	jar := s.Jar(c)
	jar.Set(CookieLogin, p.Login, CookieOptions{})
	jar.Set(CookiePassword, sealed, CookieOptions{})
	jar.Set(CookieAction, p.Action, CookieOptions{})
	return nil
}

// ClearPending deletes the transient cookies.
func (s *Sessions) ClearPending(c echo.Context) {
	jar := s.Jar(c)
	jar.Delete(CookieLogin)
	jar.Delete(CookiePassword)
	jar.Delete(CookieAction)
}

// Establish writes the session cookies for a grant and caches the profile
// that came with it.
func (s *Sessions) Establish(c echo.Context, g *SessionGrant) {
	jar := s.Jar(c)
	jar.Set(CookieSessionKey, g.Token, CookieOptions{MaxAge: g.MaxAge})
	jar.Set(CookieSessionExpiration, g.ExpiresAt.UTC().Format(time.RFC3339), CookieOptions{MaxAge: g.MaxAge})

	if g.User != nil {
		s.StoreProfile(c.Request().Context(), g.Token, g.ExpiresAt, g.User)
	}
}

// End removes every trace of the current session: cookies, cached profile
// and any cached validation.
func (s *Sessions) End(c echo.Context) {
	jar := s.Jar(c)
	if token := jar.Value(CookieSessionKey); token != "" {
		if err := s.profiles.Clear(c.Request().Context(), token); err != nil {
			slog.Warn("clearing cached profile", slog.Any("error", err))
		}
		s.validator.Forget(token)
	}
	jar.Delete(CookieSessionKey)
	jar.Delete(CookieSessionExpiration)
}

// LoadProfile returns the cached profile for a session, or nil.
func (s *Sessions) LoadProfile(ctx context.Context, token string) *sessionstate.Profile {
	profile, err := s.profiles.Read(ctx, token)
	if err != nil {
		if !errors.Is(err, sessionstate.ErrNotFound) {
			slog.Warn("reading cached profile", slog.Any("error", err))
		}
		return nil
	}
	return profile
}

// StoreProfile caches the user data returned by the backend for a session.
// The entry lives until the session expires or the profile TTL passes,
// whichever is sooner.
func (s *Sessions) StoreProfile(ctx context.Context, token string, expiresAt time.Time, user *backend.User) *sessionstate.Profile {
	now := s.now()
	profile := profileFromUser(user, now)
	if profile == nil {
		return nil
	}

	ttl := s.profileTTL
	if !expiresAt.IsZero() {
		if untilExpiry := expiresAt.Sub(now); untilExpiry < ttl {
			ttl = untilExpiry
		}
	}
	if ttl <= 0 {
		return profile
	}

	if err := s.profiles.Write(ctx, token, profile, ttl); err != nil {
		slog.Warn("caching profile", slog.Any("error", err))
	}
	return profile
}

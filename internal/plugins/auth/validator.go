package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/keyxmakerx/adminconsole/internal/backend"
)

// SessionChecker is the backend call the validator relies on.
type SessionChecker interface {
	CheckSession(ctx context.Context, token string) (*backend.SessionCheck, error)
}

// SessionValidator asks the backend whether a session token is still valid.
// With a positive cache TTL, successful checks are remembered per token for
// that long; failures are never cached.
type SessionValidator struct {
	checker SessionChecker
	cache   *ttlcache.Cache[string, *backend.SessionCheck]
}

// NewSessionValidator creates a validator. A cacheTTL of zero disables
// caching so every protected request reaches the backend.
func NewSessionValidator(checker SessionChecker, cacheTTL time.Duration) *SessionValidator {
	v := &SessionValidator{checker: checker}
	if cacheTTL > 0 {
		v.cache = ttlcache.New(
			ttlcache.WithTTL[string, *backend.SessionCheck](cacheTTL),
			ttlcache.WithDisableTouchOnHit[string, *backend.SessionCheck](),
		)
		go v.cache.Start()
	}
	return v
}

// Validate returns RemoteValid with the backend's user data, or
// RemoteInvalid when the backend says no or cannot be reached. Any failure
// counts as invalid.
func (v *SessionValidator) Validate(ctx context.Context, token string) (RemoteResult, *backend.User) {
	key := cacheKey(token)
	if v.cache != nil {
		if item := v.cache.Get(key); item != nil && !item.IsExpired() {
			return RemoteValid, item.Value().User
		}
	}

	check, err := v.checker.CheckSession(ctx, token)
	if err != nil {
		slog.Debug("session check failed", slog.Any("error", err))
		return RemoteInvalid, nil
	}

	if v.cache != nil {
		v.cache.Set(key, check, ttlcache.DefaultTTL)
	}
	return RemoteValid, check.User
}

// Forget drops any cached verdict for the token. Called on logout.
func (v *SessionValidator) Forget(token string) {
	if v.cache != nil {
		v.cache.Delete(cacheKey(token))
	}
}

// Close stops the cache's expiry loop.
func (v *SessionValidator) Close() {
	if v.cache != nil {
		v.cache.Stop()
	}
}

// cacheKey keeps raw tokens out of process memory indexes.
func cacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

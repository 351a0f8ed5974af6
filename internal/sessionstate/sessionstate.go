// Package sessionstate holds the cached operator profile for a session. The
// profile is written after a successful OTP verification or session check and
// read by the guest guard and the dashboard layout. Entries are keyed by a
// hash of the session token so raw tokens never reach the store.
package sessionstate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

// ErrNotFound is returned by Read when no profile is cached for a token.
var ErrNotFound = errors.New("sessionstate: profile not found")

// Profile is the cached view of the signed-in operator.
type Profile struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Role     string    `json:"role,omitempty"`
	Avatar   string    `json:"avatar,omitempty"`
	CachedAt time.Time `json:"cached_at"`
}

// DisplayName returns the name to show in the layout, falling back to email.
func (p *Profile) DisplayName() string {
	if p == nil {
		return ""
	}
	if p.Name != "" {
		return p.Name
	}
	return p.Email
}

// Provider is the session-state store. Its lifetime is the application's:
// created at startup in main and closed at shutdown.
type Provider interface {
	// Read returns the profile for a session token, or ErrNotFound.
	Read(ctx context.Context, token string) (*Profile, error)

	// Write caches a profile for a token for at most ttl.
	Write(ctx context.Context, token string, p *Profile, ttl time.Duration) error

	// Clear forgets any profile cached for a token.
	Clear(ctx context.Context, token string) error

	// Close releases background resources.
	Close() error
}

// hashToken derives the store key for a session token.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

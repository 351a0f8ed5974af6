package settings

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/keyxmakerx/adminconsole/internal/backend"
)

// Fetcher is the backend call the settings service relies on.
type Fetcher interface {
	Settings(ctx context.Context, token string) (backend.Settings, error)
}

// SettingsService loads backend settings for rendering dashboard pages.
type SettingsService interface {
	// Load returns the settings visible to the session. Failures are
	// returned as-is; callers render an "unable to load" notice.
	Load(ctx context.Context, token string) (*Snapshot, error)

	// Close stops the cache's expiry loop.
	Close()
}

// settingsService implements SettingsService with an optional TTL cache
// keyed by session.
type settingsService struct {
	fetcher Fetcher
	cache   *ttlcache.Cache[string, *Snapshot]
}

// NewSettingsService creates a settings service. A cacheTTL of zero fetches
// on every call.
func NewSettingsService(fetcher Fetcher, cacheTTL time.Duration) SettingsService {
	s := &settingsService{fetcher: fetcher}
	if cacheTTL > 0 {
		s.cache = ttlcache.New(
			ttlcache.WithTTL[string, *Snapshot](cacheTTL),
			ttlcache.WithDisableTouchOnHit[string, *Snapshot](),
		)
		go s.cache.Start()
	}
	return s
}

// Load fetches settings, serving a cached copy when one is fresh.
func (s *settingsService) Load(ctx context.Context, token string) (*Snapshot, error) {
	key := cacheKey(token)
	if s.cache != nil {
		if item := s.cache.Get(key); item != nil && !item.IsExpired() {
			return item.Value(), nil
		}
	}

	raw, err := s.fetcher.Settings(ctx, token)
	if err != nil {
		return nil, err
	}

	snap := newSnapshot(raw)
	if s.cache != nil {
		s.cache.Set(key, snap, ttlcache.DefaultTTL)
	}
	return snap, nil
}

func (s *settingsService) Close() {
	if s.cache != nil {
		s.cache.Stop()
	}
}

func cacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

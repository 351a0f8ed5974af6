package sessionstate

import (
	"context"
	"fmt"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// memoryProvider keeps profiles in a process-local TTL cache. Used when no
// Redis URL is configured; profiles do not survive a restart.
type memoryProvider struct {
	cache *ttlcache.Cache[string, Profile]
}

// NewMemoryProvider creates an in-memory Provider and starts its expiry loop.
func NewMemoryProvider() Provider {
	cache := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, Profile](),
	)
	go cache.Start()

	return &memoryProvider{cache: cache}
}

// Read returns a copy of the cached profile.
func (p *memoryProvider) Read(_ context.Context, token string) (*Profile, error) {
	item := p.cache.Get(hashToken(token))
	if item == nil || item.IsExpired() {
		return nil, ErrNotFound
	}
	profile := item.Value()
	return &profile, nil
}

// Write stores a copy of the profile.
func (p *memoryProvider) Write(_ context.Context, token string, profile *Profile, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("profile ttl must be positive, got %s", ttl)
	}
	p.cache.Set(hashToken(token), *profile, ttl)
	return nil
}

// Clear removes the profile.
func (p *memoryProvider) Clear(_ context.Context, token string) error {
	p.cache.Delete(hashToken(token))
	return nil
}

// Close stops the expiry loop.
func (p *memoryProvider) Close() error {
	p.cache.Stop()
	return nil
}

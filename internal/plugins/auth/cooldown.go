package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/redis/go-redis/v9"
)

// cooldownKeyPrefix is the Redis key prefix for OTP resend cooldowns.
const cooldownKeyPrefix = "otp_cooldown:"

// Cooldown tracks per-key waiting periods between OTP resends.
type Cooldown interface {
	// Start begins a cooldown of length d unless one is already running.
	// It returns true when this call started it, otherwise the time left.
	Start(ctx context.Context, key string, d time.Duration) (started bool, remaining time.Duration, err error)

	// Remaining returns the time left on the key's cooldown, zero if none.
	Remaining(ctx context.Context, key string) (time.Duration, error)

	// Release ends the key's cooldown early.
	Release(ctx context.Context, key string) error
}

// ResendKey identifies the resend cooldown for one login attempt. The login
// identifier is hashed so it is never stored in the clear.
func ResendKey(action, login string) string {
	sum := sha256.Sum256([]byte(action + "\x00" + login))
	return hex.EncodeToString(sum[:])
}

// --- Redis ---

// redisCooldown shares cooldowns across instances with SET NX EX.
type redisCooldown struct {
	rdb *redis.Client
}

// NewRedisCooldown creates a Redis-backed Cooldown.
func NewRedisCooldown(rdb *redis.Client) Cooldown {
	return &redisCooldown{rdb: rdb}
}

func (r *redisCooldown) Start(ctx context.Context, key string, d time.Duration) (bool, time.Duration, error) {
	ok, err := r.rdb.SetNX(ctx, cooldownKeyPrefix+key, "1", d).Result()
	if err != nil {
		return false, 0, fmt.Errorf("starting cooldown: %w", err)
	}
	if ok {
		return true, d, nil
	}
	remaining, err := r.Remaining(ctx, key)
	return false, remaining, err
}

func (r *redisCooldown) Remaining(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := r.rdb.PTTL(ctx, cooldownKeyPrefix+key).Result()
	if err != nil {
		return 0, fmt.Errorf("reading cooldown: %w", err)
	}
	// Negative values mean the key is missing or has no expiry.
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

func (r *redisCooldown) Release(ctx context.Context, key string) error {
	if err := r.rdb.Del(ctx, cooldownKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("releasing cooldown: %w", err)
	}
	return nil
}

// --- In-memory ---

// memoryCooldown keeps cooldowns in a process-local TTL cache.
type memoryCooldown struct {
	mu    sync.Mutex
	cache *ttlcache.Cache[string, struct{}]
	now   func() time.Time
}

// NewMemoryCooldown creates an in-memory Cooldown and starts its expiry loop.
func NewMemoryCooldown() Cooldown {
	cache := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, struct{}](),
	)
	go cache.Start()
	return &memoryCooldown{cache: cache, now: time.Now}
}

func (m *memoryCooldown) Start(_ context.Context, key string, d time.Duration) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if remaining := m.remainingLocked(key); remaining > 0 {
		return false, remaining, nil
	}
	m.cache.Set(key, struct{}{}, d)
	return true, d, nil
}

func (m *memoryCooldown) Remaining(_ context.Context, key string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.remainingLocked(key), nil
}

func (m *memoryCooldown) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache.Delete(key)
	return nil
}

func (m *memoryCooldown) remainingLocked(key string) time.Duration {
	item := m.cache.Get(key)
	if item == nil || item.IsExpired() {
		return 0
	}
	remaining := item.ExpiresAt().Sub(m.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

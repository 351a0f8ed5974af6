package sessionstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// profileKeyPrefix is the Redis key prefix for cached profiles.
const profileKeyPrefix = "profile:"

// redisProvider stores profiles as JSON strings with a Redis TTL.
type redisProvider struct {
	redis *redis.Client
}

// NewRedisProvider creates a Provider backed by Redis. The client is owned
// by the caller; Close does not close it.
func NewRedisProvider(rdb *redis.Client) Provider {
	return &redisProvider{redis: rdb}
}

// Read looks up the profile for a token.
func (p *redisProvider) Read(ctx context.Context, token string) (*Profile, error) {
	data, err := p.redis.Get(ctx, profileKeyPrefix+hashToken(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading profile from Redis: %w", err)
	}

	var profile Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("unmarshaling profile: %w", err)
	}
	return &profile, nil
}

// Write stores the profile with the given TTL. A non-positive TTL is refused
// so nothing outlives its session.
func (p *redisProvider) Write(ctx context.Context, token string, profile *Profile, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("profile ttl must be positive, got %s", ttl)
	}
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("marshaling profile: %w", err)
	}
	if err := p.redis.Set(ctx, profileKeyPrefix+hashToken(token), data, ttl).Err(); err != nil {
		return fmt.Errorf("storing profile in Redis: %w", err)
	}
	return nil
}

// Clear deletes the profile for a token.
func (p *redisProvider) Clear(ctx context.Context, token string) error {
	if err := p.redis.Del(ctx, profileKeyPrefix+hashToken(token)).Err(); err != nil {
		return fmt.Errorf("deleting profile from Redis: %w", err)
	}
	return nil
}

// Close is a no-op; the shared client is closed by main.
func (p *redisProvider) Close() error {
	return nil
}

// Package database opens the optional Redis connection. When REDIS_URL is
// set it backs the cached admin profiles and the OTP resend cooldown, so
// several console replicas share them.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/keyxmakerx/adminconsole/internal/config"
)

// pingTimeout bounds the startup reachability check.
const pingTimeout = 5 * time.Second

// NewRedis connects to cfg.URL and returns the client once Redis answers a
// PING.
func NewRedis(cfg config.RedisConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis %s: %w", opts.Addr, err)
	}
	return client, nil
}

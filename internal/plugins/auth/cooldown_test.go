package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// cooldowns returns every Cooldown implementation under test.
func cooldowns(t *testing.T) map[string]Cooldown {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return map[string]Cooldown{
		"redis":  NewRedisCooldown(rdb),
		"memory": NewMemoryCooldown(),
	}
}

func TestCooldown_StartOnlyOnce(t *testing.T) {
	for name, cd := range cooldowns(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			started, remaining, err := cd.Start(ctx, "k", time.Minute)
			if err != nil {
				t.Fatalf("Start: %v", err)
			}
			if !started || remaining != time.Minute {
				t.Fatalf("expected fresh start, got started=%v remaining=%s", started, remaining)
			}

			started, remaining, err = cd.Start(ctx, "k", time.Minute)
			if err != nil {
				t.Fatalf("Start: %v", err)
			}
			if started {
				t.Error("expected second start to be refused")
			}
			if remaining <= 0 || remaining > time.Minute {
				t.Errorf("expected remaining within (0, 1m], got %s", remaining)
			}

			// Independent keys do not share a cooldown.
			if started, _, _ := cd.Start(ctx, "other", time.Minute); !started {
				t.Error("expected a different key to start")
			}
		})
	}
}

func TestCooldown_ReleaseAndRemaining(t *testing.T) {
	for name, cd := range cooldowns(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if r, err := cd.Remaining(ctx, "k"); err != nil || r != 0 {
				t.Fatalf("expected no cooldown, got %s, %v", r, err)
			}

			if _, _, err := cd.Start(ctx, "k", time.Minute); err != nil {
				t.Fatalf("Start: %v", err)
			}
			if r, _ := cd.Remaining(ctx, "k"); r <= 0 {
				t.Errorf("expected running cooldown, got %s", r)
			}

			if err := cd.Release(ctx, "k"); err != nil {
				t.Fatalf("Release: %v", err)
			}
			if r, _ := cd.Remaining(ctx, "k"); r != 0 {
				t.Errorf("expected released cooldown, got %s", r)
			}
			if started, _, _ := cd.Start(ctx, "k", time.Minute); !started {
				t.Error("expected start after release")
			}
		})
	}
}

func TestRedisCooldown_Expires(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	cd := NewRedisCooldown(rdb)
	ctx := context.Background()

	if _, _, err := cd.Start(ctx, "k", time.Minute); err != nil {
		t.Fatalf("Start: %v", err)
	}
	mr.FastForward(61 * time.Second)

	if started, _, _ := cd.Start(ctx, "k", time.Minute); !started {
		t.Error("expected cooldown to have expired")
	}
}

func TestResendKey(t *testing.T) {
	a := ResendKey(ActionLogin2FA, "a@b.com")
	if a == ResendKey(ActionForgotPassword, "a@b.com") {
		t.Error("expected action to change the key")
	}
	if a == ResendKey(ActionLogin2FA, "c@d.com") {
		t.Error("expected login to change the key")
	}
	if a != ResendKey(ActionLogin2FA, "a@b.com") {
		t.Error("expected key to be stable")
	}
}

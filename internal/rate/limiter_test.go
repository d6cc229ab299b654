package rate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type loginLimiter interface {
	ReserveLogin(ctx context.Context, identifier, ip string) error
	ResetLogin(ctx context.Context, identifier, ip string) error
}

func newRedisLimiter(t *testing.T, cfg Config) (*RedisLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRedisLimiter(rdb, "test", cfg), mr
}

func forEachLimiter(t *testing.T, cfg Config, fn func(t *testing.T, l loginLimiter)) {
	t.Run("memory", func(t *testing.T) { fn(t, NewMemoryLimiter(cfg, nil)) })
	t.Run("redis", func(t *testing.T) {
		l, _ := newRedisLimiter(t, cfg)
		fn(t, l)
	})
}

func TestLoginBudget(t *testing.T) {
	cfg := Config{MaxAttempts: 3, Window: time.Minute}
	forEachLimiter(t, cfg, func(t *testing.T, l loginLimiter) {
		ctx := context.Background()
		for i := 0; i < 3; i++ {
			if err := l.ReserveLogin(ctx, "Alice@x", ""); err != nil {
				t.Fatalf("attempt %d: unexpected %v", i, err)
			}
		}
		if err := l.ReserveLogin(ctx, "alice@x", ""); !errors.Is(err, ErrRateLimited) {
			t.Fatalf("expected ErrRateLimited, got %v", err)
		}
		if err := l.ReserveLogin(ctx, "bob@x", ""); err != nil {
			t.Fatalf("other identifier must not be limited: %v", err)
		}

		if err := l.ResetLogin(ctx, "alice@x", ""); err != nil {
			t.Fatalf("reset: %v", err)
		}
		if err := l.ReserveLogin(ctx, "alice@x", ""); err != nil {
			t.Fatalf("expected reset to clear budget, got %v", err)
		}
	})
}

func TestIPThrottleSpansIdentifiers(t *testing.T) {
	cfg := Config{MaxAttempts: 2, Window: time.Minute, EnableIPThrottle: true}
	forEachLimiter(t, cfg, func(t *testing.T, l loginLimiter) {
		ctx := context.Background()
		_ = l.ReserveLogin(ctx, "a@x", "10.0.0.1")
		_ = l.ReserveLogin(ctx, "b@x", "10.0.0.1")
		if err := l.ReserveLogin(ctx, "c@x", "10.0.0.1"); !errors.Is(err, ErrRateLimited) {
			t.Fatalf("expected IP to be limited, got %v", err)
		}
		if err := l.ReserveLogin(ctx, "c@x", "10.0.0.2"); err != nil {
			t.Fatalf("other IP must not be limited: %v", err)
		}
	})
}

func TestSuccessfulLoginReturnsIPAttempt(t *testing.T) {
	cfg := Config{MaxAttempts: 2, Window: time.Minute, EnableIPThrottle: true}
	forEachLimiter(t, cfg, func(t *testing.T, l loginLimiter) {
		ctx := context.Background()
		for i := 0; i < 5; i++ {
			if err := l.ReserveLogin(ctx, "a@x", "10.0.0.1"); err != nil {
				t.Fatalf("login %d: unexpected %v", i, err)
			}
			if err := l.ResetLogin(ctx, "a@x", "10.0.0.1"); err != nil {
				t.Fatalf("reset %d: %v", i, err)
			}
		}
	})
}

func TestConcurrentAttemptsRespectBudget(t *testing.T) {
	cfg := Config{MaxAttempts: 5, Window: time.Minute}
	forEachLimiter(t, cfg, func(t *testing.T, l loginLimiter) {
		ctx := context.Background()
		var (
			wg      sync.WaitGroup
			allowed atomic.Int64
		)
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := l.ReserveLogin(ctx, "victim@x", ""); err == nil {
					allowed.Add(1)
				}
			}()
		}
		wg.Wait()
		if got := allowed.Load(); got != 5 {
			t.Fatalf("expected exactly 5 attempts admitted, got %d", got)
		}
	})
}

func TestMemoryWindowExpires(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := NewMemoryLimiter(Config{MaxAttempts: 1, Window: time.Minute}, func() time.Time { return now })
	ctx := context.Background()

	_ = l.ReserveLogin(ctx, "a@x", "")
	if err := l.ReserveLogin(ctx, "a@x", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected limited, got %v", err)
	}
	now = now.Add(time.Minute)
	if err := l.ReserveLogin(ctx, "a@x", ""); err != nil {
		t.Fatalf("expected window to expire, got %v", err)
	}
}

func TestMemoryEvictsExpiredWindows(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := NewMemoryLimiter(Config{MaxAttempts: 5, Window: time.Minute, EnableIPThrottle: true}, func() time.Time { return now })
	ctx := context.Background()

	for i := 0; i < 10_000; i++ {
		_ = l.ReserveLogin(ctx, fmt.Sprintf("user-%d@x", i), "")
	}
	if l.Len() > 10_000 {
		t.Fatalf("unexpected window count %d", l.Len())
	}

	now = now.Add(time.Minute)
	for i := 0; i < pruneEvery; i++ {
		_ = l.ReserveLogin(ctx, fmt.Sprintf("late-%d@x", i), "")
	}
	if got := l.Len(); got > pruneEvery {
		t.Fatalf("expired windows retained: %d", got)
	}

	now = now.Add(time.Minute)
	if removed := l.Prune(); removed == 0 {
		t.Fatal("expected Prune to remove the expired late windows")
	}
	if got := l.Len(); got != 0 {
		t.Fatalf("expected empty table after Prune, got %d", got)
	}
}

func TestRedisWindowTTLAndOutage(t *testing.T) {
	l, mr := newRedisLimiter(t, Config{MaxAttempts: 5, Window: time.Minute})
	ctx := context.Background()

	_ = l.ReserveLogin(ctx, "a@x", "")
	if ttl := mr.TTL("test:al:a@x"); ttl != time.Minute {
		t.Fatalf("expected window TTL, got %v", ttl)
	}
	_ = l.ReserveLogin(ctx, "a@x", "")
	if ttl := mr.TTL("test:al:a@x"); ttl != time.Minute {
		t.Fatalf("second hit must not extend the window, got %v", ttl)
	}

	mr.Close()
	if err := l.ReserveLogin(ctx, "a@x", ""); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}

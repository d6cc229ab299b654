package rate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds login throttle tuning parameters.
type Config struct {
	// MaxAttempts is the number of unsuccessful attempts allowed per window.
	MaxAttempts int
	// Window is how long a counter lives after its first attempt.
	Window time.Duration
	// EnableIPThrottle also counts attempts per client IP.
	EnableIPThrottle bool
}

// DefaultConfig allows five failed attempts per fifteen minutes, per email and per IP.
func DefaultConfig() Config {
	return Config{MaxAttempts: 5, Window: 15 * time.Minute, EnableIPThrottle: true}
}

func (c Config) keys(prefix, identifier, ip string) []string {
	keys := []string{prefix + ":al:" + normalize(identifier)}
	if c.EnableIPThrottle && ip != "" {
		keys = append(keys, prefix+":ali:"+ip)
	}
	return keys
}

func normalize(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

const reserveScript = `
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`

var reserveLua = redis.NewScript(reserveScript)

const releaseScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
local count = redis.call("DECR", KEYS[1])
if count <= 0 then
  redis.call("DEL", KEYS[1])
end
return count
`

var releaseLua = redis.NewScript(releaseScript)

// RedisLimiter keeps login counters in Redis.
type RedisLimiter struct {
	redis  redis.UniversalClient
	prefix string
	config Config
}

// NewRedisLimiter creates a RedisLimiter. An empty prefix defaults to "fsa".
func NewRedisLimiter(redisClient redis.UniversalClient, prefix string, cfg Config) *RedisLimiter {
	if prefix == "" {
		prefix = "fsa"
	}
	return &RedisLimiter{redis: redisClient, prefix: prefix, config: cfg}
}

// ReserveLogin counts an attempt against identifier and ip before the
// credentials are checked, and returns ErrRateLimited once either budget is
// exceeded. Each counter is bumped by one script call, so concurrent
// attempts cannot all slip under the budget.
func (l *RedisLimiter) ReserveLogin(ctx context.Context, identifier, ip string) error {
	limited := false
	for _, key := range l.config.keys(l.prefix, identifier, ip) {
		count, err := reserveLua.Run(ctx, l.redis, []string{key}, l.config.Window.Milliseconds()).Int64()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		if count > int64(l.config.MaxAttempts) {
			limited = true
		}
	}
	if limited {
		return ErrRateLimited
	}
	return nil
}

// ResetLogin runs after a successful login: the identifier counter is
// cleared and the attempt is handed back to the IP budget.
func (l *RedisLimiter) ResetLogin(ctx context.Context, identifier, ip string) error {
	if err := l.redis.Del(ctx, l.prefix+":al:"+normalize(identifier)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if l.config.EnableIPThrottle && ip != "" {
		if err := releaseLua.Run(ctx, l.redis, []string{l.prefix + ":ali:" + ip}).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}
	return nil
}

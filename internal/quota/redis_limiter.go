package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is an atomic fixed-window limiter backed by Redis, for
// deployments where several analyzer processes share one provider quota.
// The check-and-increment runs in a single Lua script to avoid the race in
// GET → check → INCR sequences.
type RedisLimiter struct {
	redis *redis.Client
	scope string
	rate  int

	limitScript *redis.Script
}

// Lua script for atomic per-second window rate limiting.
// Returns {allowed, current} where allowed is 1 when the request fits.
const windowLimitLuaScript = `
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local ttl = tonumber(ARGV[2])

local current = tonumber(redis.call("GET", key) or "0")
if current + 1 > limit then
    return {0, current}
end

local newVal = redis.call("INCRBY", key, 1)
if newVal == 1 then
    redis.call("EXPIRE", key, ttl)
end

return {1, newVal}
`

// NewRedisLimiter creates a limiter for the given scope (typically the
// customer id) allowing ratePerSecond requests across all processes.
func NewRedisLimiter(client *redis.Client, scope string, ratePerSecond int) *RedisLimiter {
	if ratePerSecond < 1 {
		ratePerSecond = 1
	}
	return &RedisLimiter{
		redis:       client,
		scope:       scope,
		rate:        ratePerSecond,
		limitScript: redis.NewScript(windowLimitLuaScript),
	}
}

// NewRedisLimiterFromURL connects to Redis and returns a limiter.
func NewRedisLimiterFromURL(redisURL, scope string, ratePerSecond int) (*RedisLimiter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return NewRedisLimiter(client, scope, ratePerSecond), nil
}

// Allow reports whether a request fits in the current one-second window.
func (rl *RedisLimiter) Allow(ctx context.Context) (bool, error) {
	key := fmt.Sprintf("quota:%s:%d", rl.scope, time.Now().Unix())
	res, err := rl.limitScript.Run(ctx, rl.redis, []string{key}, rl.rate, 2).Result()
	if err != nil {
		return false, fmt.Errorf("quota script failed: %w", err)
	}
	vals, ok := res.([]interface{})
	if !ok || len(vals) < 1 {
		return false, fmt.Errorf("unexpected quota script result: %v", res)
	}
	allowed, _ := vals[0].(int64)
	return allowed == 1, nil
}

// Wait blocks until the current window admits a request or ctx is done.
func (rl *RedisLimiter) Wait(ctx context.Context) error {
	for {
		allowed, err := rl.Allow(ctx)
		if err != nil {
			return err
		}
		if allowed {
			return nil
		}
		// Window is full; sleep toward the next second boundary.
		timer := time.NewTimer(100 * time.Millisecond)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

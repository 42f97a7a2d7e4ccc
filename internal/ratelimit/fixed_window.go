// Package ratelimit throttles request bursts with a Redis fixed window.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var fixedWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// FixedWindowLimiter limits requests per key in a fixed time window.
// Counters live in Redis so several processes share one quota.
type FixedWindowLimiter struct {
	limit  int
	window time.Duration

	redisClient *redis.Client
	redisPrefix string
}

// NewFixedWindowLimiter creates a limiter on an existing Redis client.
func NewFixedWindowLimiter(rdb *redis.Client, prefix string, limit int, window time.Duration) (*FixedWindowLimiter, error) {
	if limit <= 0 || window <= 0 {
		return nil, errors.New("rate limiter requires positive limit and window")
	}
	if rdb == nil {
		return nil, errors.New("rate limiter requires a redis client")
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "strangerlink:ratelimit"
	}
	return &FixedWindowLimiter{
		limit:       limit,
		window:      window,
		redisClient: rdb,
		redisPrefix: prefix,
	}, nil
}

// Allow returns true when the key is within quota. Redis failures are
// logged and let the request through.
func (l *FixedWindowLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	key = strings.TrimSpace(key)
	if key == "" {
		key = "unknown"
	}

	windowMs := l.window.Milliseconds()
	windowSlot := time.Now().UTC().UnixMilli() / windowMs
	redisKey := fmt.Sprintf("%s:%s:%d", l.redisPrefix, key, windowSlot)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	res, err := fixedWindowScript.Run(ctx, l.redisClient, []string{redisKey}, windowMs).Int64()
	if err != nil {
		slog.Error("rate limiter unavailable", "key", key, "err", err)
		return true
	}
	return res <= int64(l.limit)
}

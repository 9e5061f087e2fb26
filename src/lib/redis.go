package lib

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

func NewRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Printf("[redis] Error parsing connection string: %s\n", err.Error())
		return nil, err
	}
	return redis.NewClient(opt), nil
}

// RateLimiter is a fixed window counter per key stored in redis.
type RateLimiter struct {
	rdb    *redis.Client
	max    int64
	window time.Duration
	prefix string
}

func NewRateLimiter(rdb *redis.Client, max int64, window time.Duration) *RateLimiter {
	return &RateLimiter{rdb: rdb, max: max, window: window, prefix: "ratelimit"}
}

// Allow counts one hit for key and reports whether it is still within the
// window budget, along with the hits left.
func (l *RateLimiter) Allow(ctx context.Context, key string) (bool, int64, error) {
	k := fmt.Sprintf("%s:%s", l.prefix, key)
	n, err := l.rdb.Incr(ctx, k).Result()
	if err != nil {
		return false, 0, err
	}
	if n == 1 {
		if err := l.rdb.Expire(ctx, k, l.window).Err(); err != nil {
			log.Printf("[redis] Failed to set expiry on %s: %s\n", k, err.Error())
		}
	}
	remaining := l.max - n
	if remaining < 0 {
		remaining = 0
	}
	return n <= l.max, remaining, nil
}

func (l *RateLimiter) Max() int64 {
	return l.max
}

package gatekeeper

import (
	"context"
	"time"

	"insulead-core/pkg/rediskey"

	"github.com/redis/go-redis/v9"
)

// Throttle counts registration attempts per source address inside a window.
type Throttle interface {
	Hit(ctx context.Context, addr string, window time.Duration) (int64, error)
}

type RedisThrottle struct {
	rdb *redis.Client
}

func NewRedisThrottle(rdb *redis.Client) Throttle {
	return &RedisThrottle{rdb: rdb}
}

func (t *RedisThrottle) Hit(ctx context.Context, addr string, window time.Duration) (int64, error) {
	key := rediskey.BuildRegistrationAddrKey(addr)

	n, err := t.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}

	// first hit opens the window
	if n == 1 {
		if err := t.rdb.Expire(ctx, key, window).Err(); err != nil {
			return n, err
		}
	}

	return n, nil
}

package sequence

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"insulead-core/pkg/clock"
	"insulead-core/pkg/rediskey"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("sequence",
	fx.Provide(NewRedisGenerator),
)

type Generator interface {
	NextJobCode(ctx context.Context) (string, error)
}

type RedisGenerator struct {
	rdb   *redis.Client
	clock clock.Clock
}

type Params struct {
	fx.In

	Redis *redis.Client
	Clock clock.Clock
}

func NewRedisGenerator(p Params) Generator {
	return &RedisGenerator{
		rdb:   p.Redis,
		clock: p.Clock,
	}
}

// NextJobCode returns codes like ESC-250601-00AK7.
func (g *RedisGenerator) NextJobCode(ctx context.Context) (string, error) {
	return g.nextDailyCode(ctx, "ESC")
}

func (g *RedisGenerator) nextDailyCode(ctx context.Context, prefix string) (string, error) {
	now := g.clock.Now()
	today := now.Format("060102")
	key := rediskey.BuildDailySequenceKey(prefix, today)

	seq, err := g.rdb.Incr(ctx, key).Result()
	if err != nil {
		return "", err
	}

	if seq == 1 {
		// relative ttl: the redis server clock need not agree with ours
		ttl := now.Truncate(24 * time.Hour).Add(24 * time.Hour).Sub(now)
		if err := g.rdb.Expire(ctx, key, ttl).Err(); err != nil {
			zap.L().Warn("failed to set sequence expiry", zap.String("key", key), zap.Error(err))
		}
	}

	encodedSeq := strings.ToUpper(strconv.FormatInt(seq, 36))
	if len(encodedSeq) < 3 {
		encodedSeq = strings.Repeat("0", 3-len(encodedSeq)) + encodedSeq
	}

	randSuffix, err := randomAlphaNumeric(2)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s-%s-%s%s", prefix, today, encodedSeq, randSuffix), nil
}

func randomAlphaNumeric(n int) (string, error) {
	const chars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	b := make([]byte, n)
	for i := range b {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(chars))))
		if err != nil {
			return "", err
		}
		b[i] = chars[num.Int64()]
	}
	return string(b), nil
}

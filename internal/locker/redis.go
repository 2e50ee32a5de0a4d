package locker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"petcare_settlement/internal/conf"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const releaseScript = `
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	end
	return 0
`

// RedisLocker holds each key with SET NX PX and a random token; release deletes the key only
// while it still carries that token.
type RedisLocker struct {
	client    *redis.Client
	namespace conf.RedisNamespace
	ttl       time.Duration
	wait      time.Duration
	release   *redis.Script
	logger    *zap.Logger
}

func NewRedisLocker(client *redis.Client, ns conf.RedisNamespace, cfg *conf.LockerConfig, logger *zap.Logger) *RedisLocker {
	return &RedisLocker{
		client:    client,
		namespace: ns,
		ttl:       time.Duration(cfg.TTLMillis) * time.Millisecond,
		wait:      time.Duration(cfg.WaitMillis) * time.Millisecond,
		release:   redis.NewScript(releaseScript),
		logger:    logger.Named("RedisLocker"),
	}
}

func (l *RedisLocker) key(k string) string {
	return fmt.Sprintf("%slock:%s", l.namespace, k)
}

func (l *RedisLocker) Lock(ctx context.Context, keys ...string) (func(), error) {
	keys = normalize(keys)
	token := uuid.NewString()
	held := make([]string, 0, len(keys))

	unlock := func() {
		// Release with a fresh context; the caller's may already be cancelled.
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		for i := len(held) - 1; i >= 0; i-- {
			if err := l.release.Run(rctx, l.client, []string{held[i]}, token).Err(); err != nil {
				l.logger.Warn("failed to release lock", zap.String("key", held[i]), zap.Error(err))
			}
		}
	}

	for _, k := range keys {
		rk := l.key(k)
		if err := l.acquire(ctx, rk, token); err != nil {
			unlock()
			return nil, err
		}
		held = append(held, rk)
	}
	return unlock, nil
}

func (l *RedisLocker) acquire(ctx context.Context, key, token string) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 20 * time.Millisecond
	b.MaxInterval = 250 * time.Millisecond
	b.MaxElapsedTime = l.wait

	op := func() error {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return backoff.Permanent(err)
		}
		if !ok {
			return ErrNotAcquired
		}
		return nil
	}

	err := backoff.Retry(op, backoff.WithContext(b, ctx))
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotAcquired) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrNotAcquired
	}
	return fmt.Errorf("failed to acquire lock %s: %w", key, err)
}

var _ Locker = (*RedisLocker)(nil)

package limiter

import (
	"context"
	"fmt"
	"time"

	"petcare_settlement/internal/conf"

	"github.com/redis/go-redis/v9"
)

// Limiter decides whether one more request from identifier fits the policy.
type Limiter interface {
	Allow(ctx context.Context, identifier string) (bool, error)
}

// tokenBucket refills at rate tokens per second up to capacity. The bucket is a Redis hash so
// every replica shares it.
const tokenBucket = `
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local ttl = math.ceil(tonumber(ARGV[4]))

local state = redis.call("HMGET", key, "tokens", "ts")
local tokens = tonumber(state[1])
local ts = tonumber(state[2])
if tokens == nil then
	tokens = capacity
	ts = now
end

tokens = math.min(capacity, tokens + math.max(0, now - ts) * rate)

local allowed = 0
if tokens >= 1 then
	tokens = tokens - 1
	allowed = 1
end

redis.call("HSET", key, "tokens", tokens, "ts", now)
redis.call("EXPIRE", key, ttl)
return allowed
`

var bucketScript = redis.NewScript(tokenBucket)

// RedisRateLimiter is a token bucket per (policy, identifier) kept in Redis.
type RedisRateLimiter struct {
	client   redis.Scripter
	prefix   string
	rate     float64
	capacity float64
	ttl      time.Duration
	now      func() time.Time
}

// NewRedisRateLimiter allows limit requests per interval for each identifier.
func NewRedisRateLimiter(client redis.Scripter, ns conf.RedisNamespace, policy string, limit int, interval time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{
		client:   client,
		prefix:   fmt.Sprintf("%sratelimit:%s:", ns, policy),
		rate:     float64(limit) / interval.Seconds(),
		capacity: float64(limit),
		ttl:      interval * 2,
		now:      time.Now,
	}
}

func (l *RedisRateLimiter) Allow(ctx context.Context, identifier string) (bool, error) {
	now := float64(l.now().UnixNano()) / 1e9
	res, err := bucketScript.Run(ctx, l.client, []string{l.prefix + identifier}, l.rate, l.capacity, now, l.ttl.Seconds()).Int()
	if err != nil {
		return false, fmt.Errorf("failed to run rate limit script: %w", err)
	}
	return res == 1, nil
}

var _ Limiter = (*RedisRateLimiter)(nil)

package limiter

import (
	"errors"
	"fmt"
	"time"

	"petcare_settlement/internal/conf"

	"github.com/redis/go-redis/v9"
)

const defaultPolicyName = "default"

// Policy names used by the HTTP routes.
const (
	PolicyCouponValidate = "coupon_validate"
	PolicyPaymentCreate  = "payment_create"
)

// Manager hands out the limiter of a named policy, falling back to the default one.
type Manager struct {
	limiters map[string]Limiter
}

// NewManager builds one limiter per configured policy.
func NewManager(cfg *conf.RateLimiterConfig, client *redis.Client, ns conf.RedisNamespace) (*Manager, error) {
	if cfg == nil {
		return nil, errors.New("rate limiter config is nil")
	}

	build := func(name string, p conf.RateLimiterPolicy) (Limiter, error) {
		if p.Limit <= 0 {
			return nil, fmt.Errorf("policy %q: limit must be positive", name)
		}
		interval, err := time.ParseDuration(p.Interval)
		if err != nil {
			return nil, fmt.Errorf("policy %q: invalid interval: %w", name, err)
		}
		if interval <= 0 {
			return nil, fmt.Errorf("policy %q: interval must be positive", name)
		}
		return NewRedisRateLimiter(client, ns, name, p.Limit, interval), nil
	}

	limiters := make(map[string]Limiter, len(cfg.Policies)+1)
	def, err := build(defaultPolicyName, cfg.Default)
	if err != nil {
		return nil, err
	}
	limiters[defaultPolicyName] = def

	for name, p := range cfg.Policies {
		l, err := build(name, p)
		if err != nil {
			return nil, err
		}
		limiters[name] = l
	}
	return &Manager{limiters: limiters}, nil
}

// NewStaticManager wraps already built limiters. Used by tests.
func NewStaticManager(def Limiter, named map[string]Limiter) *Manager {
	limiters := map[string]Limiter{defaultPolicyName: def}
	for k, v := range named {
		limiters[k] = v
	}
	return &Manager{limiters: limiters}
}

func (m *Manager) Get(name string) Limiter {
	if l, ok := m.limiters[name]; ok {
		return l
	}
	return m.limiters[defaultPolicyName]
}

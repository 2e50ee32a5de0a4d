package limiter

import (
	"context"
	"testing"
	"time"

	"petcare_settlement/internal/conf"
	"petcare_settlement/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisRateLimiter_Allow(t *testing.T) {
	client := testutil.Redis(t)
	ctx := context.Background()

	now := time.Unix(1_700_000_000, 0)
	l := NewRedisRateLimiter(client, conf.RedisNamespace("test:"), PolicyCouponValidate, 3, time.Minute)
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "user-1")
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i)
	}
	ok, err := l.Allow(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, ok)

	// Another identifier has its own bucket.
	ok, err = l.Allow(ctx, "user-2")
	require.NoError(t, err)
	assert.True(t, ok)

	// One token comes back every 20s.
	now = now.Add(21 * time.Second)
	ok, err = l.Allow(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNewManager(t *testing.T) {
	t.Run("FallsBackToDefault", func(t *testing.T) {
		m, err := NewManager(&conf.RateLimiterConfig{
			Default:  conf.RateLimiterPolicy{Interval: "1s", Limit: 5},
			Policies: map[string]conf.RateLimiterPolicy{PolicyPaymentCreate: {Interval: "1m", Limit: 10}},
		}, nil, "test:")
		require.NoError(t, err)

		assert.Same(t, m.limiters[defaultPolicyName], m.Get("missing"))
		assert.Same(t, m.limiters[PolicyPaymentCreate], m.Get(PolicyPaymentCreate))
	})

	t.Run("RejectsBadPolicies", func(t *testing.T) {
		_, err := NewManager(&conf.RateLimiterConfig{Default: conf.RateLimiterPolicy{Interval: "1s"}}, nil, "test:")
		assert.Error(t, err)

		_, err = NewManager(&conf.RateLimiterConfig{Default: conf.RateLimiterPolicy{Interval: "soon", Limit: 1}}, nil, "test:")
		assert.Error(t, err)

		_, err = NewManager(nil, nil, "test:")
		assert.Error(t, err)
	})
}

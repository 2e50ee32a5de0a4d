package locker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"petcare_settlement/internal/conf"
	"petcare_settlement/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, []string{"coupon:1", "invoice:1"}, normalize([]string{"invoice:1", "", "coupon:1", "invoice:1"}))
}

func TestKeys(t *testing.T) {
	id, _ := primitive.ObjectIDFromHex("65a000000000000000000001")
	assert.Equal(t, "invoice:65a000000000000000000001", InvoiceKey(id))
	assert.Equal(t, "coupon:65a000000000000000000001", CouponKey(id))
}

// exerciseLocker checks mutual exclusion and the bounded wait on any Locker.
func exerciseLocker(t *testing.T, l Locker) {
	t.Helper()

	t.Run("MutualExclusion", func(t *testing.T) {
		var inside, peak int32
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				unlock, err := l.Lock(ctx, "invoice:a", "coupon:b")
				if !assert.NoError(t, err) {
					return
				}
				n := atomic.AddInt32(&inside, 1)
				for {
					p := atomic.LoadInt32(&peak)
					if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&inside, -1)
				unlock()
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), peak)
	})

	t.Run("TimesOutWhileHeld", func(t *testing.T) {
		unlock, err := l.Lock(context.Background(), "invoice:held")
		require.NoError(t, err)
		defer unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		_, err = l.Lock(ctx, "invoice:held")
		assert.ErrorIs(t, err, ErrNotAcquired)
	})

	t.Run("PartialAcquireIsReleased", func(t *testing.T) {
		unlock, err := l.Lock(context.Background(), "invoice:z")
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		_, err = l.Lock(ctx, "coupon:y", "invoice:z")
		require.ErrorIs(t, err, ErrNotAcquired)
		unlock()

		// coupon:y must have been let go when invoice:z could not be taken.
		ctx2, cancel2 := context.WithTimeout(context.Background(), time.Second)
		defer cancel2()
		unlock2, err := l.Lock(ctx2, "coupon:y")
		require.NoError(t, err)
		unlock2()
	})
}

func TestLocalLocker(t *testing.T) {
	exerciseLocker(t, NewLocalLocker())
}

func TestRedisLocker(t *testing.T) {
	client := testutil.Redis(t)
	l := NewRedisLocker(client, conf.RedisNamespace("test:"), &conf.LockerConfig{TTLMillis: 5000, WaitMillis: 2000}, zap.NewNop())
	exerciseLocker(t, l)

	t.Run("ForeignTokenIsNotReleased", func(t *testing.T) {
		unlock, err := l.Lock(context.Background(), "invoice:owned")
		require.NoError(t, err)

		// Simulate expiry and takeover by another holder.
		require.NoError(t, client.Set(context.Background(), l.key("invoice:owned"), "other", time.Minute).Err())
		unlock()

		v, err := client.Get(context.Background(), l.key("invoice:owned")).Result()
		require.NoError(t, err)
		assert.Equal(t, "other", v)
	})
}

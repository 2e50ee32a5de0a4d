package provider

import (
	"testing"
	"time"

	"petcare_settlement/internal/conf"
	"petcare_settlement/internal/db"
	"petcare_settlement/internal/gateway/fake"
	"petcare_settlement/internal/gateway/stripe"
	"petcare_settlement/internal/locker"
	"petcare_settlement/internal/mq/noop"

	"github.com/stretchr/testify/assert"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAppMode_IsLocal(t *testing.T) {
	assert.True(t, ModeDev.IsLocal())
	assert.True(t, ModeTest.IsLocal())
	assert.False(t, AppMode("prod").IsLocal())
}

func TestProvideGateway(t *testing.T) {
	logger := zap.NewNop()

	t.Run("fake in dev", func(t *testing.T) {
		gw, err := ProvideGateway(ModeDev, &conf.StripeConfig{Fake: true}, logger)
		require.NoError(t, err)
		assert.IsType(t, &fake.Gateway{}, gw)
	})

	t.Run("fake refused in prod", func(t *testing.T) {
		_, err := ProvideGateway(AppMode("prod"), &conf.StripeConfig{Fake: true}, logger)
		assert.Error(t, err)
	})

	t.Run("stripe needs a key", func(t *testing.T) {
		_, err := ProvideGateway(AppMode("prod"), &conf.StripeConfig{}, logger)
		assert.Error(t, err)
	})

	t.Run("stripe", func(t *testing.T) {
		gw, err := ProvideGateway(AppMode("prod"), &conf.StripeConfig{SecretKey: "sk_test_x"}, logger)
		require.NoError(t, err)
		assert.IsType(t, &stripe.Gateway{}, gw)
	})
}

func TestProvidePublisher_LocalWithoutBroker(t *testing.T) {
	p, cleanup, err := ProvidePublisher(ModeTest, &conf.RabbitMQConfig{}, zap.NewNop())
	require.NoError(t, err)
	defer cleanup()
	assert.IsType(t, &noop.Publisher{}, p)
}

func TestProvideLocker(t *testing.T) {
	t.Run("no redis", func(t *testing.T) {
		l := ProvideLocker(&conf.RedisConfig{}, nil, "petcare:dev:", &conf.LockerConfig{}, &conf.StripeConfig{}, zap.NewNop())
		assert.IsType(t, &locker.LocalLocker{}, l)
	})

	t.Run("redis configured in local mode", func(t *testing.T) {
		client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
		defer client.Close()
		l := ProvideLocker(&conf.RedisConfig{Addr: "localhost:6379"}, client, "petcare:dev:", &conf.LockerConfig{TTLMillis: 45000}, &conf.StripeConfig{TimeoutSeconds: 10}, zap.NewNop())
		assert.IsType(t, &locker.RedisLocker{}, l)
	})
}

func TestLockerTTLFloor(t *testing.T) {
	stripeCfg := &conf.StripeConfig{TimeoutSeconds: 10}

	t.Run("short ttl is raised past three gateway calls", func(t *testing.T) {
		cfg := &conf.LockerConfig{TTLMillis: 15000, WaitMillis: 3000}
		got := lockerTTLFloor(cfg, stripeCfg, zap.NewNop())
		assert.Equal(t, 35000, got.TTLMillis)
		assert.Equal(t, 3000, got.WaitMillis)
		assert.Equal(t, 15000, cfg.TTLMillis, "configured value is left untouched")
	})

	t.Run("long ttl is kept", func(t *testing.T) {
		cfg := &conf.LockerConfig{TTLMillis: 45000}
		assert.Same(t, cfg, lockerTTLFloor(cfg, stripeCfg, zap.NewNop()))
	})
}

func TestProvideTransactionManager(t *testing.T) {
	t.Run("standalone", func(t *testing.T) {
		tm := ProvideTransactionManager(&conf.MongodbConfig{}, nil, zap.NewNop())
		assert.IsType(t, db.LocalTransactionManager{}, tm)
	})

	t.Run("replica set", func(t *testing.T) {
		tm := ProvideTransactionManager(&conf.MongodbConfig{ReplicaSet: "rs0"}, nil, zap.NewNop())
		assert.IsType(t, &db.MongoTransactionManager{}, tm)
	})
}

func TestProvideInvoicePolicy(t *testing.T) {
	p, err := ProvideInvoicePolicy(&conf.SettlementConfig{TaxRate: "0.08", Currency: "USD", DueDays: 14})
	require.NoError(t, err)
	assert.Equal(t, "0.08", p.TaxRate.String())
	assert.Equal(t, "usd", p.Currency)
	assert.Equal(t, 14*24*time.Hour, p.DueIn)

	for _, rate := range []string{"1", "-0.1", "eight"} {
		_, err := ProvideInvoicePolicy(&conf.SettlementConfig{TaxRate: rate})
		assert.Error(t, err, rate)
	}
}

func TestProvideSettlementPolicy(t *testing.T) {
	p := ProvideSettlementPolicy(
		&conf.SettlementConfig{VoucherHours: 72},
		&conf.WorkerConfig{Replayer: conf.FinalizationReplayConfig{StaleSeconds: 1800}},
	)
	assert.Equal(t, 72*time.Hour, p.VoucherTTL)
	assert.Equal(t, 30*time.Minute, p.StaleAfter)
}

func TestProvideVoucherManager(t *testing.T) {
	m, err := ProvideVoucherManager(&conf.AppConfig{Name: "petcare", JwtConfig: &conf.JwtConfig{Algorithm: "HS256", Secret: "x"}})
	require.NoError(t, err)
	assert.NotNil(t, m)

	_, err = ProvideVoucherManager(&conf.AppConfig{JwtConfig: &conf.JwtConfig{Algorithm: "ES256"}})
	assert.Error(t, err)

	_, err = ProvideVoucherManager(&conf.AppConfig{JwtConfig: &conf.JwtConfig{Algorithm: "RS256", PrivateKeyFile: "/nonexistent"}})
	assert.Error(t, err)
}

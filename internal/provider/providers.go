package provider

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"petcare_settlement/internal/conf"
	"petcare_settlement/internal/db"
	"petcare_settlement/internal/gateway"
	"petcare_settlement/internal/gateway/fake"
	"petcare_settlement/internal/gateway/stripe"
	"petcare_settlement/internal/locker"
	"petcare_settlement/internal/logic"
	"petcare_settlement/internal/mq"
	"petcare_settlement/internal/mq/noop"
	"petcare_settlement/internal/mq/rabbitmq"
	"petcare_settlement/internal/worker"
	"petcare_settlement/pkg/jwt"

	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type AppMode string

const (
	ModeDev  AppMode = "dev"
	ModeTest AppMode = "test"
)

func ProvideAppMode(c *conf.AppConfig) AppMode {
	return AppMode(c.Mode)
}

// IsLocal reports whether the app runs without its production dependencies.
func (m AppMode) IsLocal() bool {
	return m == ModeDev || m == ModeTest
}

func ProvideDatabase(client *mongo.Client, cfg *conf.MongodbConfig) *mongo.Database {
	return client.Database(cfg.DB)
}

// ProvideMachineID takes the serial generator's machine id from the trailing ordinal of a
// StatefulSet style hostname (settlement-console-3). Other hostnames get 1.
func ProvideMachineID(logger *zap.Logger) uint16 {
	hostname, err := os.Hostname()
	if err != nil {
		logger.Warn("hostname unavailable, using machine id 1", zap.Error(err))
		return 1
	}
	ordinal := lo.LastOr(strings.Split(hostname, "-"), "")
	id, err := strconv.ParseUint(ordinal, 10, 16)
	if err != nil {
		logger.Debug("hostname carries no ordinal, using machine id 1", zap.String("hostname", hostname))
		return 1
	}
	return uint16(id)
}

func ProvidePaymentEventTopic(cfg *conf.RabbitMQConfig) logic.PaymentEventTopic {
	return logic.PaymentEventTopic(cfg.PaymentEventTopic)
}

// ProvideTransactionManager uses Mongo sessions whenever the deployment is a replica set.
// A standalone mongod cannot run transactions, so writes there apply one by one.
func ProvideTransactionManager(cfg *conf.MongodbConfig, client *mongo.Client, logger *zap.Logger) db.TransactionManager {
	if cfg.ReplicaSet == "" {
		logger.Warn("mongodb.replica_set is empty, settlement writes are not transactional")
		return db.NewLocalTransactionManager()
	}
	return db.NewMongoTransactionManager(client)
}

// ProvideVoucherManager builds the signer for counter vouchers from the jwt section.
func ProvideVoucherManager(cfg *conf.AppConfig) (*jwt.Manager, error) {
	issuer := cfg.Name

	switch cfg.JwtConfig.Algorithm {
	case "HS256":
		return jwt.NewSymmetric([]byte(cfg.JwtConfig.Secret), issuer)
	case "RS256":
		private, public, err := jwt.LoadRSA(cfg.JwtConfig.PrivateKeyFile, cfg.JwtConfig.PublicKeyFile)
		if err != nil {
			return nil, err
		}
		return jwt.NewAsymmetric(private, public, issuer)
	default:
		return nil, fmt.Errorf("unsupported JWT algorithm: %s", cfg.JwtConfig.Algorithm)
	}
}

// ProvideRedisClient connects to Redis and fails fast when it is unreachable.
func ProvideRedisClient(cfg *conf.RedisConfig) (*redis.Client, func(), error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvideLocker shares locks through Redis so that the frontend, console and consumer
// processes exclude each other. Without Redis the locks only cover this process.
func ProvideLocker(redisCfg *conf.RedisConfig, client *redis.Client, ns conf.RedisNamespace, cfg *conf.LockerConfig, stripeCfg *conf.StripeConfig, logger *zap.Logger) locker.Locker {
	if client == nil || redisCfg.Addr == "" {
		logger.Warn("redis is not configured, settlement locks are process local")
		return locker.NewLocalLocker()
	}
	return locker.NewRedisLocker(client, ns, lockerTTLFloor(cfg, stripeCfg, logger), logger)
}

// lockerTTLFloor keeps a lock alive across a confirm that calls the gateway up to three
// times (charge, refund, cancel) plus the store writes around them.
func lockerTTLFloor(cfg *conf.LockerConfig, stripeCfg *conf.StripeConfig, logger *zap.Logger) *conf.LockerConfig {
	floor := 3*time.Duration(stripeCfg.TimeoutSeconds)*time.Second + 5*time.Second
	ttl := time.Duration(cfg.TTLMillis) * time.Millisecond
	if ttl >= floor {
		return cfg
	}
	logger.Warn("locker.ttl_ms is below the gateway round trip budget, raising it",
		zap.Duration("configured", ttl), zap.Duration("ttl", floor))
	raised := *cfg
	raised.TTLMillis = int(floor.Milliseconds())
	return &raised
}

// ProvideGateway returns the Stripe adapter, or the in-memory gateway when stripe.fake is
// set. The fake is refused outside dev and test.
func ProvideGateway(mode AppMode, cfg *conf.StripeConfig, logger *zap.Logger) (gateway.Gateway, error) {
	if cfg.Fake {
		if !mode.IsLocal() {
			return nil, fmt.Errorf("stripe.fake is not allowed in %s mode", mode)
		}
		logger.Warn("Using in-memory payment gateway")
		return fake.New(), nil
	}
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("stripe.secret_key is required")
	}
	return stripe.NewGateway(cfg, logger), nil
}

// ProvidePublisher connects to RabbitMQ. Local runs without a broker host fall back to a
// publisher that drops messages.
func ProvidePublisher(mode AppMode, cfg *conf.RabbitMQConfig, logger *zap.Logger) (mq.Publisher, func(), error) {
	if mode.IsLocal() && cfg.Host == "" {
		logger.Warn("No RabbitMQ host configured, payment events will be dropped")
		return noop.NewPublisher(), func() {}, nil
	}
	p, err := rabbitmq.NewPublisher(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return p, p.Close, nil
}

func ProvideInvoicePolicy(cfg *conf.SettlementConfig) (logic.InvoicePolicy, error) {
	rate, err := decimal.NewFromString(cfg.TaxRate)
	if err != nil {
		return logic.InvoicePolicy{}, fmt.Errorf("invalid settlement.tax_rate %q: %w", cfg.TaxRate, err)
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return logic.InvoicePolicy{}, fmt.Errorf("settlement.tax_rate must be in [0, 1), got %s", cfg.TaxRate)
	}
	return logic.InvoicePolicy{
		TaxRate:  rate,
		Currency: strings.ToLower(cfg.Currency),
		DueIn:    time.Duration(cfg.DueDays) * 24 * time.Hour,
	}, nil
}

func ProvideSettlementPolicy(s *conf.SettlementConfig, w *conf.WorkerConfig) logic.SettlementPolicy {
	return logic.SettlementPolicy{
		VoucherTTL: time.Duration(s.VoucherHours) * time.Hour,
		StaleAfter: time.Duration(w.Replayer.StaleSeconds) * time.Second,
	}
}

func ProvideCouponExpiryInterval(cfg *conf.WorkerConfig) worker.CouponExpiryInterval {
	return worker.CouponExpiryInterval(time.Duration(cfg.CouponExpirer.IntervalSeconds) * time.Second)
}

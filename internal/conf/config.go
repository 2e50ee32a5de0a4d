package conf

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// AppConfig holds the application configuration.
type AppConfig struct {
	Mode               string `mapstructure:"mode"`
	Port               int    `mapstructure:"port"`
	Name               string `mapstructure:"name"`
	Version            string `mapstructure:"version"`
	TimeZone           string `mapstructure:"time_zone"`
	*LogConfig         `mapstructure:"log"`
	*MongodbConfig     `mapstructure:"mongodb"`
	*WorkerConfig      `mapstructure:"worker"`
	*RabbitMQConfig    `mapstructure:"rabbitmq"`
	*JwtConfig         `mapstructure:"jwt"`
	*RedisConfig       `mapstructure:"redis"`
	*RateLimiterConfig `mapstructure:"rate_limiter"`
	*StripeConfig      `mapstructure:"stripe"`
	*SettlementConfig  `mapstructure:"settlement"`
	*LockerConfig      `mapstructure:"locker"`
}

// JwtConfig configures the signer for counter vouchers.
type JwtConfig struct {
	Algorithm      string `mapstructure:"algorithm"`
	Secret         string `mapstructure:"secret"`
	PrivateKeyFile string `mapstructure:"private_key_file"`
	PublicKeyFile  string `mapstructure:"public_key_file"`
}

// MongodbConfig holds the MongoDB configuration. Transactions need a replica set.
type MongodbConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	User       string `mapstructure:"user"`
	Password   string `mapstructure:"password"`
	DB         string `mapstructure:"db"`
	ReplicaSet string `mapstructure:"replica_set"`
	AuthSource string `mapstructure:"auth_source"`
}

// LogConfig holds the logger configuration.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// WorkerConfig holds all background worker configurations.
type WorkerConfig struct {
	Outbox        OutboxWorkerConfig       `mapstructure:"outbox"`
	CouponExpirer CouponExpirerConfig      `mapstructure:"coupon_expirer"`
	Replayer      FinalizationReplayConfig `mapstructure:"replayer"`
}

type CouponExpirerConfig struct {
	IntervalSeconds int `mapstructure:"interval_seconds"`
}

// OutboxWorkerConfig holds the configuration for the outbox polling worker.
type OutboxWorkerConfig struct {
	IntervalSeconds int `mapstructure:"interval_seconds"`
	BatchSize       int `mapstructure:"batch_size"`
	MaxRetries      int `mapstructure:"max_retries"`
}

// FinalizationReplayConfig controls the recovery worker. Records untouched for GraceSeconds
// are replayed; online payments still open after StaleSeconds are cancelled.
type FinalizationReplayConfig struct {
	IntervalSeconds int `mapstructure:"interval_seconds"`
	GraceSeconds    int `mapstructure:"grace_seconds"`
	StaleSeconds    int `mapstructure:"stale_seconds"`
	BatchSize       int `mapstructure:"batch_size"`
	MaxAttempts     int `mapstructure:"max_attempts"`
}

// RabbitMQConfig holds the RabbitMQ configuration.
type RabbitMQConfig struct {
	Host                   string `mapstructure:"host"`
	Port                   int    `mapstructure:"port"`
	User                   string `mapstructure:"user"`
	Password               string `mapstructure:"password"`
	PaymentEventTopic      string `mapstructure:"payment_event_topic"`
	BookingCreatedQueue    string `mapstructure:"booking_created_queue"`
	CounterReconciledQueue string `mapstructure:"counter_reconciled_queue"`
}

// RedisConfig holds the Redis client configuration.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// RateLimiterPolicy defines the limit and interval for a policy.
type RateLimiterPolicy struct {
	Interval string `mapstructure:"interval"` // e.g., "1s", "1m", "1h"
	Limit    int    `mapstructure:"limit"`
}

// RateLimiterConfig holds all rate limiting policies.
type RateLimiterConfig struct {
	Default  RateLimiterPolicy            `mapstructure:"default"`
	Policies map[string]RateLimiterPolicy `mapstructure:"policies"`
}

// StripeConfig holds the payment gateway credentials.
type StripeConfig struct {
	SecretKey      string `mapstructure:"secret_key"`
	WebhookSecret  string `mapstructure:"webhook_secret"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	// Fake swaps the Stripe adapter for the in-memory gateway (dev mode only).
	Fake bool `mapstructure:"fake"`
}

// SettlementConfig holds the invoice and locking policy.
type SettlementConfig struct {
	TaxRate      string `mapstructure:"tax_rate"`
	Currency     string `mapstructure:"currency"`
	DueDays      int    `mapstructure:"due_days"`
	VoucherHours int    `mapstructure:"voucher_hours"`
}

// LockerConfig bounds the per-invoice and per-coupon locks.
type LockerConfig struct {
	TTLMillis  int `mapstructure:"ttl_ms"`
	WaitMillis int `mapstructure:"wait_ms"`
}

// NewConfig loads the application configuration from a file.
func NewConfig(confFile string) (*AppConfig, error) {
	// A missing .env is fine; it only exists on developer machines.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(confFile)

	// mongodb.host -> MONGODB_HOST
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var conf AppConfig
	if err := v.Unmarshal(&conf); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	loc, err := time.LoadLocation(conf.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone: %w", err)
	}
	time.Local = loc

	return &conf, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "dev")
	v.SetDefault("time_zone", "UTC")
	v.SetDefault("settlement.tax_rate", "0.08")
	v.SetDefault("settlement.currency", "usd")
	v.SetDefault("settlement.due_days", 14)
	v.SetDefault("locker.ttl_ms", 15000)
	v.SetDefault("locker.wait_ms", 3000)
	v.SetDefault("settlement.voucher_hours", 72)
	v.SetDefault("stripe.timeout_seconds", 10)
	v.SetDefault("worker.outbox.interval_seconds", 5)
	v.SetDefault("worker.outbox.batch_size", 50)
	v.SetDefault("worker.outbox.max_retries", 10)
	v.SetDefault("worker.coupon_expirer.interval_seconds", 300)
	v.SetDefault("worker.replayer.interval_seconds", 30)
	v.SetDefault("worker.replayer.grace_seconds", 120)
	v.SetDefault("worker.replayer.stale_seconds", 1800)
	v.SetDefault("worker.replayer.batch_size", 20)
	v.SetDefault("worker.replayer.max_attempts", 20)
}

// RedisNamespace prefixes every Redis key written by the service.
type RedisNamespace string

func NewRedisNamespace(c *AppConfig) RedisNamespace {
	return RedisNamespace(fmt.Sprintf("%s:%s:", c.Name, c.Mode))
}

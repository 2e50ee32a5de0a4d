//go:build wireinject
// +build wireinject

package main

import (
	"petcare_settlement/cmd/consumer/handlers"
	"petcare_settlement/internal/conf"
	"petcare_settlement/internal/dao/mongodb"
	"petcare_settlement/internal/dao/repository"
	"petcare_settlement/internal/logger"
	"petcare_settlement/internal/logic"
	"petcare_settlement/internal/mq/rabbitmq"
	"petcare_settlement/internal/provider"
	"petcare_settlement/internal/worker"
	"petcare_settlement/pkg/snowflake"

	"github.com/google/wire"
	"go.uber.org/zap"
)

func provideConsumer(cfg *conf.RabbitMQConfig, logger *zap.Logger) (*rabbitmq.Consumer, func(), error) {
	c, err := rabbitmq.NewConsumer(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return c, c.Close, nil
}

// provideHandlers collects all individual MessageHandlers into a slice.
func provideHandlers(booking *handlers.InvoiceBookingHandler, reconciliation *handlers.CounterReconciliationHandler) []handlers.MessageHandler {
	return []handlers.MessageHandler{
		booking,
		reconciliation,
	}
}

// InitializeConsumerApp creates the consumer application and its dependencies.
func InitializeConsumerApp(appConfig *conf.AppConfig) (*ConsumerApp, func(), error) {
	wire.Build(
		wire.FieldsOf(new(*conf.AppConfig), "LogConfig", "MongodbConfig", "RabbitMQConfig", "WorkerConfig", "RedisConfig", "StripeConfig", "SettlementConfig", "LockerConfig"),
		provider.ProvideAppMode,

		logger.NewLogger,
		mongodb.NewMongoDB,
		provider.ProvideDatabase,
		provider.ProvideTransactionManager,
		provider.ProvideVoucherManager,
		provider.ProvideMachineID,
		provider.ProvidePaymentEventTopic,
		provider.ProvideRedisClient,
		provider.ProvideLocker,
		provider.ProvideGateway,
		provider.ProvideInvoicePolicy,
		provider.ProvideSettlementPolicy,
		provider.ProvideCouponExpiryInterval,
		conf.NewRedisNamespace,
		snowflake.NewGenerator,

		mongodb.NewInvoiceDAO,
		wire.Bind(new(repository.InvoiceRepository), new(*mongodb.InvoiceDAO)),
		mongodb.NewCouponDAO,
		wire.Bind(new(repository.CouponRepository), new(*mongodb.CouponDAO)),
		mongodb.NewRedemptionDAO,
		wire.Bind(new(repository.RedemptionRepository), new(*mongodb.RedemptionDAO)),
		mongodb.NewPaymentDAO,
		wire.Bind(new(repository.PaymentRepository), new(*mongodb.PaymentDAO)),
		mongodb.NewFinalizationDAO,
		wire.Bind(new(repository.FinalizationRepository), new(*mongodb.FinalizationDAO)),
		mongodb.NewAuditLogDAO,
		wire.Bind(new(repository.AuditLogRepository), new(*mongodb.AuditLogDAO)),
		mongodb.NewOutboxDAO,
		wire.Bind(new(repository.OutboxRepository), new(*mongodb.OutboxDAO)),

		logic.ProviderSet,

		provideConsumer,
		worker.NewCouponExpirer,

		handlers.NewInvoiceBookingHandler,
		handlers.NewCounterReconciliationHandler,
		provideHandlers,

		NewConsumerApp,
	)
	return nil, nil, nil
}

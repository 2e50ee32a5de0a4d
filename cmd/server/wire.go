//go:build wireinject
// +build wireinject

package main

import (
	"petcare_settlement/internal/app"
	"petcare_settlement/internal/conf"
	"petcare_settlement/internal/dao/mongodb"
	"petcare_settlement/internal/dao/repository"
	"petcare_settlement/internal/limiter"
	"petcare_settlement/internal/logger"
	"petcare_settlement/internal/logic"
	"petcare_settlement/internal/middleware/http"
	"petcare_settlement/internal/provider"
	"petcare_settlement/internal/service"
	"petcare_settlement/internal/worker"
	"petcare_settlement/pkg/snowflake"

	"github.com/google/wire"
)

// baseProviders holds the components shared by both servers.
var baseProviders = wire.NewSet(
	wire.FieldsOf(new(*conf.AppConfig), "Port", "LogConfig", "MongodbConfig", "WorkerConfig", "RabbitMQConfig", "RedisConfig", "RateLimiterConfig", "StripeConfig", "SettlementConfig", "LockerConfig"),
	provider.ProvideAppMode,
	logger.NewLogger,
	mongodb.NewMongoDB,
	provider.ProvideDatabase,
	provider.ProvideMachineID,
	provider.ProvidePaymentEventTopic,
	provider.ProvideTransactionManager,
	provider.ProvideVoucherManager,
	provider.ProvideRedisClient,
	provider.ProvideLocker,
	provider.ProvideGateway,
	provider.ProvideInvoicePolicy,
	provider.ProvideSettlementPolicy,
	conf.NewRedisNamespace,
	limiter.NewManager,
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
	http.NewAuthMiddleware,
	app.NewHandler,
	app.NewApp,
)

// ------------------- Frontend -------------------

func provideFrontendWorkers() []worker.Worker {
	return []worker.Worker{}
}

func InitializeFrontendApp(appConfig *conf.AppConfig) (*app.App, func(), error) {
	wire.Build(
		baseProviders,
		service.NewSettlementService,
		app.NewFrontendRoutes,
		provideFrontendWorkers,
	)
	return nil, nil, nil
}

// ------------------- Console -------------------

// provideConsoleWorkers runs the outbox relay and the finalization replayer next to the console API.
func provideConsoleWorkers(p *worker.OutboxProcessor, r *worker.FinalizationReplayer) []worker.Worker {
	return []worker.Worker{p, r}
}

func InitializeConsoleApp(appConfig *conf.AppConfig) (*app.App, func(), error) {
	wire.Build(
		baseProviders,
		provider.ProvidePublisher,
		worker.NewOutboxProcessor,
		worker.NewFinalizationReplayer,
		service.NewSettlementAdminService,
		app.NewConsoleRoutes,
		provideConsoleWorkers,
	)
	return nil, nil, nil
}

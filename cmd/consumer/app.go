package main

import (
	"context"

	"petcare_settlement/cmd/consumer/handlers"
	"petcare_settlement/internal/mq/rabbitmq"
	"petcare_settlement/internal/worker"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ConsumerApp drains the payment event queues and runs the coupon expirer next to them.
type ConsumerApp struct {
	consumer *rabbitmq.Consumer
	workers  []worker.Worker
	logger   *zap.Logger
}

func NewConsumerApp(consumer *rabbitmq.Consumer, couponExpirer *worker.CouponExpirer, logger *zap.Logger, hs []handlers.MessageHandler) *ConsumerApp {
	for _, h := range hs {
		consumer.RegisterHandler(h.QueueName(), h.Handle)
		logger.Info("handler registered", zap.String("queue", h.QueueName()))
	}
	return &ConsumerApp{
		consumer: consumer,
		workers:  []worker.Worker{couponExpirer},
		logger:   logger,
	}
}

// Run returns when ctx is cancelled or the consumer fails. A consumer failure stops the
// workers too.
func (a *ConsumerApp) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.consumer.Start(gCtx)
	})
	g.Go(func() error {
		worker.RunAll(gCtx, a.workers...)
		return nil
	})
	return g.Wait()
}

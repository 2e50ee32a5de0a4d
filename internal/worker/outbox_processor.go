package worker

import (
	"context"
	"time"

	"petcare_settlement/internal/conf"
	"petcare_settlement/internal/dao/repository"
	"petcare_settlement/internal/mq"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// publishAttempts bounds the in-tick retries of one message before it is handed back to the
// outbox with an incremented retry count.
const publishAttempts = 3

// OutboxProcessor periodically polls the outbox collection and publishes events to a message queue.
type OutboxProcessor struct {
	outboxRepo repository.OutboxRepository
	publisher  mq.Publisher
	logger     *zap.Logger
	interval   time.Duration
	batchSize  int
	maxRetries int
	newBackOff func() backoff.BackOff
}

func NewOutboxProcessor(outboxRepo repository.OutboxRepository, publisher mq.Publisher, logger *zap.Logger, cfg *conf.WorkerConfig) *OutboxProcessor {
	return &OutboxProcessor{
		outboxRepo: outboxRepo,
		publisher:  publisher,
		logger:     logger.Named("OutboxProcessor"),
		interval:   time.Duration(cfg.Outbox.IntervalSeconds) * time.Second,
		batchSize:  cfg.Outbox.BatchSize,
		maxRetries: cfg.Outbox.MaxRetries,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 100 * time.Millisecond
			b.MaxInterval = time.Second
			return backoff.WithMaxRetries(b, publishAttempts-1)
		},
	}
}

func (p *OutboxProcessor) Start(ctx context.Context) {
	loop(ctx, p.logger.With(zap.Int("batchSize", p.batchSize)), p.interval, p.processEvents)
}

// processEvents claims a batch and publishes it in creation order.
func (p *OutboxProcessor) processEvents(ctx context.Context) {
	claimed, err := p.outboxRepo.ClaimAndFetchEvents(ctx, p.batchSize)
	if err != nil {
		p.logger.Error("Failed to claim outbox events", zap.Error(err))
		return
	}
	if len(claimed) > 0 {
		p.logger.Debug("Claimed events for processing", zap.Int("count", len(claimed)))
	}

	for _, event := range claimed {
		msg := mq.Message{
			ID:            event.ID.Hex(),
			Topic:         event.Topic,
			Type:          event.EventType,
			Body:          []byte(event.Payload),
			CorrelationID: event.CorrelationID,
			CreatedAt:     event.CreatedAt,
		}
		publish := func() error {
			return p.publisher.Publish(ctx, msg)
		}
		if err := backoff.Retry(publish, backoff.WithContext(p.newBackOff(), ctx)); err != nil {
			p.logger.Error("Failed to publish event",
				zap.Stringer("event_id", event.ID),
				zap.Int("retries", event.Retries),
				zap.Error(err),
			)
			if err := p.outboxRepo.IncrementRetry(ctx, event.ID, err.Error(), p.maxRetries); err != nil {
				p.logger.Error("Failed to increment retry for event", zap.Stringer("event_id", event.ID), zap.Error(err))
			}
			continue
		}

		if err := p.outboxRepo.MarkAsProcessed(ctx, event.ID); err != nil {
			p.logger.Error("Failed to mark event as processed", zap.Stringer("event_id", event.ID), zap.Error(err))
		}
	}
}

var _ Worker = (*OutboxProcessor)(nil)

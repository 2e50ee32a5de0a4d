package worker

import (
	"context"
	"fmt"
	"time"

	"petcare_settlement/internal/conf"
	"petcare_settlement/internal/dao/repository"
	"petcare_settlement/internal/logic"

	"go.uber.org/zap"
)

// FinalizationReplayer re-drives online payments whose finalization never completed: the
// process died between the gateway call and the commit, a commit failed, or the customer
// never came back to confirm.
type FinalizationReplayer struct {
	finalizations repository.FinalizationRepository
	settlement    logic.SettlementLogic
	logger        *zap.Logger
	interval      time.Duration
	grace         time.Duration
	batchSize     int
	maxAttempts   int
	now           func() time.Time
}

func NewFinalizationReplayer(finalizations repository.FinalizationRepository, settlement logic.SettlementLogic, logger *zap.Logger, cfg *conf.WorkerConfig) *FinalizationReplayer {
	return &FinalizationReplayer{
		finalizations: finalizations,
		settlement:    settlement,
		logger:        logger.Named("FinalizationReplayer"),
		interval:      time.Duration(cfg.Replayer.IntervalSeconds) * time.Second,
		grace:         time.Duration(cfg.Replayer.GraceSeconds) * time.Second,
		batchSize:     cfg.Replayer.BatchSize,
		maxAttempts:   cfg.Replayer.MaxAttempts,
		now:           time.Now,
	}
}

func (r *FinalizationReplayer) Start(ctx context.Context) {
	loop(ctx, r.logger.With(zap.Duration("grace", r.grace)), r.interval, r.replayBatch)
}

// replayBatch handles records untouched for at least the grace period, oldest first.
func (r *FinalizationReplayer) replayBatch(ctx context.Context) {
	records, err := r.finalizations.FindStale(ctx, r.now().Add(-r.grace), r.batchSize)
	if err != nil {
		r.logger.Error("Failed to load pending finalizations", zap.Error(err))
		return
	}

	for _, rec := range records {
		if ctx.Err() != nil {
			return
		}
		if r.maxAttempts > 0 && rec.Attempts >= r.maxAttempts {
			reason := fmt.Sprintf("gave up after %d attempts: %s", rec.Attempts, rec.LastError)
			if err := r.finalizations.MarkAbandoned(ctx, rec.PaymentID, reason); err != nil {
				r.logger.Error("Failed to abandon finalization", zap.Stringer("paymentID", rec.PaymentID), zap.Error(err))
				continue
			}
			r.logger.Error("Finalization abandoned, needs manual reconciliation",
				zap.Stringer("paymentID", rec.PaymentID),
				zap.Stringer("invoiceID", rec.InvoiceID),
				zap.String("intentID", rec.IntentID),
				zap.String("lastError", rec.LastError))
			continue
		}

		if err := r.settlement.ReplayFinalization(ctx, rec); err != nil {
			r.logger.Warn("Replay failed",
				zap.Stringer("paymentID", rec.PaymentID),
				zap.Int("attempts", rec.Attempts+1),
				zap.Error(err))
		}
	}
}

var _ Worker = (*FinalizationReplayer)(nil)

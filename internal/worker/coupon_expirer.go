package worker

import (
	"context"
	"time"

	"petcare_settlement/internal/logic"

	"go.uber.org/zap"
)

// CouponExpiryInterval is how often CouponExpirer runs.
type CouponExpiryInterval time.Duration

// CouponExpirer periodically flags coupons past their expiry date.
type CouponExpirer struct {
	coupons  logic.CouponLogic
	interval time.Duration
	logger   *zap.Logger
}

func NewCouponExpirer(interval CouponExpiryInterval, coupons logic.CouponLogic, logger *zap.Logger) *CouponExpirer {
	return &CouponExpirer{
		coupons:  coupons,
		interval: time.Duration(interval),
		logger:   logger.Named("CouponExpirer"),
	}
}

func (w *CouponExpirer) Start(ctx context.Context) {
	loop(ctx, w.logger, w.interval, w.expire)
}

func (w *CouponExpirer) expire(ctx context.Context) {
	n, err := w.coupons.ExpireCoupons(ctx)
	if err != nil {
		w.logger.Error("Failed to expire coupons", zap.Error(err))
		return
	}
	if n > 0 {
		w.logger.Info("Expired coupons", zap.Int64("count", n))
	}
}

var _ Worker = (*CouponExpirer)(nil)

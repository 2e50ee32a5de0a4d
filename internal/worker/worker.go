// Package worker holds the settlement background loops: the outbox processor, the
// finalization replayer and the coupon expirer.
package worker

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Worker interface {
	Start(ctx context.Context)
}

// loop calls tick every interval until ctx is done. A panicking tick is logged and the
// loop carries on with the next one.
func loop(ctx context.Context, logger *zap.Logger, interval time.Duration, tick func(context.Context)) {
	logger.Info("worker started", zap.Duration("interval", interval))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("worker stopped")
			return
		case <-ticker.C:
			runTick(ctx, logger, tick)
		}
	}
}

func runTick(ctx context.Context, logger *zap.Logger, tick func(context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("worker tick panicked", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
		}
	}()
	tick(ctx)
}

// RunAll starts every worker and blocks until all of them returned.
func RunAll(ctx context.Context, workers ...Worker) {
	var wg sync.WaitGroup
	for _, w := range workers {
		wg.Add(1)
		go func(w Worker) {
			defer wg.Done()
			w.Start(ctx)
		}(w)
	}
	wg.Wait()
}

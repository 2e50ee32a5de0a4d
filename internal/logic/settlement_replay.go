package logic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"petcare_settlement/internal/constants"
	"petcare_settlement/internal/dao/repository"
	"petcare_settlement/internal/gateway"
	"petcare_settlement/internal/helper"
	"petcare_settlement/internal/locker"
	"petcare_settlement/internal/models"

	"go.uber.org/zap"
)

// ReplayFinalization drives one pending finalization record towards a terminal state using
// the gateway as the source of truth. Failures are recorded on the record and returned.
func (l *settlementLogic) ReplayFinalization(ctx context.Context, record *models.PendingFinalization) error {
	err := l.replay(ctx, record)
	if err != nil {
		if rErr := l.finalizationRepo.RecordAttempt(ctx, record.PaymentID, err.Error()); rErr != nil {
			l.logger.Error("ReplayFinalization: failed to record attempt", zap.Stringer("paymentID", record.PaymentID), zap.Error(rErr))
		}
	}
	return err
}

func (l *settlementLogic) replay(ctx context.Context, record *models.PendingFinalization) error {
	payment, err := l.loadPayment(ctx, record.PaymentID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return l.finalizationRepo.MarkAbandoned(ctx, record.PaymentID, "payment missing")
		}
		return err
	}

	switch constants.ParsePaymentStatus(payment.Status) {
	case constants.PaymentStatusSucceeded:
		return l.finalizationRepo.MarkCompleted(ctx, payment.ID)
	case constants.PaymentStatusFailed:
		return l.abandonFailed(ctx, record, payment)
	}

	intentID, err := l.recoverIntentID(ctx, record, payment)
	if err != nil {
		return err
	}
	intent, err := l.gateway.GetIntent(ctx, intentID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrGateway, err)
	}

	if intent.Status == gateway.IntentStatusProcessing {
		if time.Since(payment.CreatedAt) < l.policy.StaleAfter {
			return nil
		}
		if intent, err = l.gateway.CancelIntent(ctx, intentID); err != nil {
			return fmt.Errorf("%w: %w", ErrGateway, err)
		}
	}

	if intent.Status == gateway.IntentStatusSucceeded {
		return l.settleRecovered(ctx, payment, intentID)
	}

	reason := constants.FailureReasonGatewayFailed
	if intent.Status == gateway.IntentStatusCanceled && intent.FailureMessage == "" {
		reason = constants.FailureReasonStale
	}
	unlock, err := l.lock(ctx, locker.InvoiceKey(payment.InvoiceID))
	if err != nil {
		return err
	}
	defer unlock()
	_, err = l.failPaymentLocked(ctx, payment.ID, reason, intent.FailureMessage, models.SystemUser)
	return err
}

// recoverIntentID returns the intent opened for payment. When the intent id was never
// stored, the intent is looked up by repeating the create call with the payment's
// idempotency key.
func (l *settlementLogic) recoverIntentID(ctx context.Context, record *models.PendingFinalization, payment *models.Payment) (string, error) {
	if payment.GatewayIntentID != "" {
		return payment.GatewayIntentID, nil
	}
	if record.IntentID != "" {
		return record.IntentID, nil
	}

	amount, err := helper.ToDecimal(payment.Amount)
	if err != nil {
		return "", fmt.Errorf("invalid amount on payment %s: %w", payment.ID.Hex(), err)
	}
	intent, err := l.gateway.CreateIntent(ctx, &gateway.CreateIntentParams{
		Amount:         amount,
		Currency:       payment.Currency,
		IdempotencyKey: record.IdempotencyKey,
		Metadata: map[string]string{
			"payment_id": payment.ID.Hex(),
			"invoice_id": payment.InvoiceID.Hex(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGateway, err)
	}

	err = l.inTx(ctx, func(txCtx context.Context) error {
		if err := l.paymentRepo.UpdatePayment(txCtx, payment.ID, repository.WithGatewayIntentID(intent.ID)); err != nil {
			return fmt.Errorf("failed to store intent id: %w", err)
		}
		return l.finalizationRepo.SetIntentID(txCtx, payment.ID, intent.ID)
	})
	if err != nil {
		return "", err
	}
	l.logger.Info("recovered intent", zap.Stringer("paymentID", payment.ID), zap.String("intentID", intent.ID))
	return intent.ID, nil
}

// abandonFailed closes the record of a payment that failed locally while the gateway call
// was in doubt. Any intent opened under its key is cancelled, or refunded if it was charged.
func (l *settlementLogic) abandonFailed(ctx context.Context, record *models.PendingFinalization, payment *models.Payment) error {
	intentID, err := l.recoverIntentID(ctx, record, payment)
	if err != nil {
		return err
	}
	intent, err := l.gateway.CancelIntent(ctx, intentID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrGateway, err)
	}
	if intent.Status == gateway.IntentStatusSucceeded {
		if _, err := l.gateway.Refund(ctx, intentID, "refund_"+payment.ID.Hex()); err != nil {
			return fmt.Errorf("%w: %w", ErrGateway, err)
		}
		l.logger.Warn("refunded charge on failed payment", zap.Stringer("paymentID", payment.ID), zap.String("intentID", intentID))
	}
	return l.finalizationRepo.MarkAbandoned(ctx, payment.ID, payment.FailureReason)
}

// settleRecovered finalizes a payment the gateway reports as charged. If the invoice was
// settled by another payment meanwhile, the charge is refunded and the payment failed.
func (l *settlementLogic) settleRecovered(ctx context.Context, payment *models.Payment, intentID string) error {
	unlock, err := l.lock(ctx, locker.InvoiceKey(payment.InvoiceID))
	if err != nil {
		return err
	}
	defer unlock()

	_, err = l.finalizeLocked(ctx, payment.ID, models.SystemUser)
	if err == nil || !(errors.Is(err, ErrConflict) || errors.Is(err, ErrInvalidState)) {
		return err
	}

	inv, gErr := l.loadInvoice(ctx, payment.InvoiceID)
	if gErr != nil {
		return gErr
	}
	if inv.Status == constants.InvoiceStatusPending.String() && inv.ActivePayment != nil && *inv.ActivePayment == payment.ID {
		return err
	}

	l.logger.Warn("charge arrived for an invoice settled elsewhere; refunding",
		zap.Stringer("paymentID", payment.ID),
		zap.Stringer("invoiceID", payment.InvoiceID),
		zap.String("invoiceStatus", inv.Status))
	if _, err := l.gateway.Refund(ctx, intentID, "refund_"+payment.ID.Hex()); err != nil {
		return fmt.Errorf("%w: %w", ErrGateway, err)
	}
	_, err = l.failPaymentLocked(ctx, payment.ID, constants.FailureReasonDuplicate, "", models.SystemUser)
	return err
}

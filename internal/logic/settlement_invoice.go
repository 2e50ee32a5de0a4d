package logic

import (
	"context"
	"fmt"
	"time"

	"petcare_settlement/internal/constants"
	"petcare_settlement/internal/dao/repository"
	"petcare_settlement/internal/dto"
	"petcare_settlement/internal/locker"
	"petcare_settlement/internal/models"

	"go.uber.org/zap"
)

// CancelInvoice voids a draft or pending invoice. An open payment is cancelled with it; a
// coupon already consumed by an offline payment stays consumed.
func (l *settlementLogic) CancelInvoice(ctx context.Context, d *dto.InvoiceActionRequest) error {
	unlock, err := l.lock(ctx, locker.InvoiceKey(d.GetInvoiceID()))
	if err != nil {
		return err
	}
	defer unlock()

	inv, err := l.loadInvoice(ctx, d.GetInvoiceID())
	if err != nil {
		return err
	}
	from := constants.ParseInvoiceStatus(inv.Status)
	if !from.CanTransitionTo(constants.InvoiceStatusCancelled) {
		return fmt.Errorf("invoice %s is %s: %w", inv.ID.Hex(), inv.Status, ErrInvalidState)
	}

	expected, err := l.clearActivePayment(ctx, inv, constants.FailureReasonInvoiceCanceled, d.GetOperator())
	if err != nil {
		return err
	}

	now := time.Now()
	err = l.invoiceRepo.TransitionInvoice(ctx, &repository.TransitionInvoiceParams{
		InvoiceID:          inv.ID,
		From:               from,
		To:                 constants.InvoiceStatusCancelled,
		CheckActivePayment: true,
		ActivePayment:      expected,
	}, repository.WithCancelledAt(now), repository.WithUpdatedBy(d.GetOperator()))
	if err != nil {
		return mapInvoiceTransitionError(inv.ID, err)
	}

	// The cancellation is already stored; a lost audit entry must not report it as failed.
	if err := l.audit(ctx, buildInvoiceStatusAuditLog(d.GetOperator(), constants.AuditActionCancelInvoice, inv.ID,
		from, constants.InvoiceStatusCancelled, d.GetReason())); err != nil {
		l.logger.Error("CancelInvoice: Failed to create audit log", zap.Error(err))
	}
	l.logger.Info("invoice cancelled", zap.Stringer("invoiceID", inv.ID), zap.String("from", from.String()))
	return nil
}

// RefundInvoice returns the money of a paid invoice. Online payments are refunded through
// the gateway; offline payments are refunded at the counter and only recorded here.
func (l *settlementLogic) RefundInvoice(ctx context.Context, d *dto.InvoiceActionRequest) (*models.Payment, error) {
	unlock, err := l.lock(ctx, locker.InvoiceKey(d.GetInvoiceID()))
	if err != nil {
		return nil, err
	}
	defer unlock()

	inv, err := l.loadInvoice(ctx, d.GetInvoiceID())
	if err != nil {
		return nil, err
	}
	if inv.Status != constants.InvoiceStatusPaid.String() || inv.ActivePayment == nil {
		return nil, fmt.Errorf("invoice %s is %s: %w", inv.ID.Hex(), inv.Status, ErrInvalidState)
	}
	payment, err := l.loadPayment(ctx, *inv.ActivePayment)
	if err != nil {
		return nil, err
	}
	if payment.Status != constants.PaymentStatusSucceeded.String() || payment.RefundedAt != nil {
		return nil, fmt.Errorf("payment %s cannot be refunded: %w", payment.ID.Hex(), ErrInvalidState)
	}

	refundID := payment.GatewayRefundID
	if payment.Channel == constants.PaymentChannelOnline && payment.GatewayIntentID != "" && refundID == "" {
		refund, err := l.gateway.Refund(ctx, payment.GatewayIntentID, "refund_"+payment.ID.Hex())
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrGateway, err)
		}
		refundID = refund.ID
	}

	now := time.Now()
	refunded := *payment
	refunded.RefundedAt = &now
	refunded.GatewayRefundID = refundID
	err = l.inTx(ctx, func(txCtx context.Context) error {
		err := l.invoiceRepo.TransitionInvoice(txCtx, &repository.TransitionInvoiceParams{
			InvoiceID:          inv.ID,
			From:               constants.InvoiceStatusPaid,
			To:                 constants.InvoiceStatusRefunded,
			CheckActivePayment: true,
			ActivePayment:      &payment.ID,
		}, repository.WithRefundedAt(now), repository.WithUpdatedBy(d.GetOperator()))
		if err != nil {
			return mapInvoiceTransitionError(inv.ID, err)
		}

		opts := []repository.UpdateOption{repository.WithRefundedAt(now)}
		if refundID != "" {
			opts = append(opts, repository.WithGatewayRefundID(refundID))
		}
		if err := l.paymentRepo.UpdatePayment(txCtx, payment.ID, opts...); err != nil {
			return fmt.Errorf("failed to mark payment refunded: %w", err)
		}
		if err := l.publisher.PublishPaymentEvent(txCtx, constants.PaymentActionRefund, &refunded, d.GetReason()); err != nil {
			return err
		}
		return l.audit(txCtx, buildInvoiceStatusAuditLog(d.GetOperator(), constants.AuditActionRefundInvoice, inv.ID,
			constants.InvoiceStatusPaid, constants.InvoiceStatusRefunded, d.GetReason()))
	})
	if err != nil {
		l.logger.Error("RefundInvoice: failed to record refund",
			zap.Stringer("paymentID", payment.ID), zap.String("refundID", refundID), zap.Error(err))
		return nil, err
	}

	l.logger.Info("invoice refunded", zap.Stringer("invoiceID", inv.ID), zap.Stringer("paymentID", payment.ID))
	return &refunded, nil
}

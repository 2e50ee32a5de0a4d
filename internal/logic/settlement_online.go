package logic

import (
	"context"
	"errors"
	"fmt"

	"petcare_settlement/internal/constants"
	"petcare_settlement/internal/dao/mongodb"
	"petcare_settlement/internal/dao/repository"
	"petcare_settlement/internal/dto"
	"petcare_settlement/internal/gateway"
	"petcare_settlement/internal/helper"
	"petcare_settlement/internal/locker"
	"petcare_settlement/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// CreateIntent opens (or reuses) an online payment for the invoice. The amount is always
// computed here from the invoice and the coupon.
func (l *settlementLogic) CreateIntent(ctx context.Context, req *PaymentRequest) (*dto.IntentResponse, error) {
	if req.Method != "" && req.Method != constants.PaymentMethodCard {
		return nil, fmt.Errorf("%w: online payments only accept %s", ErrValidation, constants.PaymentMethodCard)
	}

	unlock, err := l.lock(ctx, locker.InvoiceKey(req.InvoiceID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	inv, err := l.payableInvoice(ctx, req.InvoiceID, req.User)
	if err != nil {
		return nil, err
	}
	q, err := l.quote(ctx, inv, req.User.UserId, req.Coupon)
	if err != nil {
		return nil, err
	}

	if resp, err := l.reuseIntent(ctx, inv, req.User, q); resp != nil || err != nil {
		return resp, err
	}

	expected, err := l.clearActivePayment(ctx, inv, constants.FailureReasonSuperseded, req.User)
	if err != nil {
		return nil, err
	}

	payment := newPayment(inv, req.User, constants.PaymentChannelOnline, constants.PaymentMethodCard, q)
	zeroDue := q.AmountDue.IsZero()

	err = l.inTx(ctx, func(txCtx context.Context) error {
		if err := l.claimInvoice(txCtx, payment, expected); err != nil {
			return err
		}
		if !zeroDue {
			// Written before the gateway call so a crash after it can be recovered.
			err := l.finalizationRepo.Create(txCtx, &models.PendingFinalization{
				ID:             primitive.NewObjectID(),
				PaymentID:      payment.ID,
				InvoiceID:      payment.InvoiceID,
				CouponID:       payment.CouponID,
				IdempotencyKey: payment.IdempotencyKey,
				Status:         constants.FinalizationStatusPending,
				CreatedAt:      payment.CreatedAt,
				UpdatedAt:      payment.CreatedAt,
			})
			if err != nil {
				return fmt.Errorf("failed to write finalization record: %w", err)
			}
		}
		if err := l.publisher.PublishPaymentEvent(txCtx, constants.PaymentActionCreate, payment, ""); err != nil {
			return err
		}
		return l.audit(txCtx, buildCreatePaymentAuditLog(req.User, payment))
	})
	if err != nil {
		return nil, err
	}

	resp := &dto.IntentResponse{
		PaymentID: payment.ID.Hex(),
		Amount:    q.AmountDue.StringFixed(2),
		Discount:  q.Discount.StringFixed(2),
		Currency:  payment.Currency,
	}

	if zeroDue {
		// Nothing to charge; the coupon covers the invoice.
		settled, err := l.finalizeLocked(ctx, payment.ID, req.User)
		if err != nil {
			return nil, err
		}
		if settled.Status != constants.PaymentStatusSucceeded.String() {
			return nil, fmt.Errorf("payment %s: %w", payment.ID.Hex(), ErrCouponUnavailable)
		}
		return resp, nil
	}

	intent, err := l.gateway.CreateIntent(ctx, &gateway.CreateIntentParams{
		Amount:         q.AmountDue,
		Currency:       payment.Currency,
		IdempotencyKey: payment.IdempotencyKey,
		Metadata: map[string]string{
			"payment_id": payment.ID.Hex(),
			"invoice_id": payment.InvoiceID.Hex(),
		},
	})
	if err != nil {
		l.logger.Warn("CreateIntent: gateway rejected intent", zap.Stringer("paymentID", payment.ID), zap.Error(err))
		reason := constants.FailureReasonGatewayUnavailable
		var gwErr *gateway.Error
		if errors.As(err, &gwErr) && gwErr.Declined {
			reason = constants.FailureReasonGatewayRejected
		}
		if _, fErr := l.failPaymentLocked(ctx, payment.ID, reason, err.Error(), req.User); fErr != nil {
			l.logger.Error("CreateIntent: failed to release payment after gateway error", zap.Stringer("paymentID", payment.ID), zap.Error(fErr))
		}
		return nil, fmt.Errorf("%w: %w", ErrGateway, err)
	}

	err = l.inTx(ctx, func(txCtx context.Context) error {
		if err := l.paymentRepo.UpdatePayment(txCtx, payment.ID, repository.WithGatewayIntentID(intent.ID)); err != nil {
			return fmt.Errorf("failed to store intent id: %w", err)
		}
		return l.finalizationRepo.SetIntentID(txCtx, payment.ID, intent.ID)
	})
	if err != nil {
		// The finalization record still names the idempotency key; the replayer recovers the intent.
		l.logger.Error("CreateIntent: failed to store intent id", zap.Stringer("paymentID", payment.ID), zap.String("intentID", intent.ID), zap.Error(err))
		return nil, err
	}

	resp.IntentID = intent.ID
	resp.ClientSecret = intent.ClientSecret
	return resp, nil
}

// reuseIntent returns the open intent of the invoice's active payment when it was opened by
// the same user for the same coupon and amount. A stale intent that already ended is settled
// so the caller can open a fresh one.
func (l *settlementLogic) reuseIntent(ctx context.Context, inv *models.Invoice, user *models.User, q *Quote) (*dto.IntentResponse, error) {
	if inv.ActivePayment == nil {
		return nil, nil
	}
	active, err := l.loadPayment(ctx, *inv.ActivePayment)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if active.Status != constants.PaymentStatusPending.String() ||
		active.Channel != constants.PaymentChannelOnline ||
		active.GatewayIntentID == "" ||
		active.UserID != user.UserId ||
		!sameCoupon(active.CouponID, q.couponID()) ||
		active.Amount.String() != helper.MustMoney128(q.AmountDue).String() {
		return nil, nil
	}

	intent, err := l.gateway.GetIntent(ctx, active.GatewayIntentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGateway, err)
	}
	switch intent.Status {
	case gateway.IntentStatusSucceeded:
		settled, err := l.finalizeLocked(ctx, active.ID, user)
		if err != nil {
			return nil, err
		}
		if settled.Status == constants.PaymentStatusSucceeded.String() {
			return nil, fmt.Errorf("invoice %s was paid by payment %s: %w", inv.ID.Hex(), active.ID.Hex(), ErrInvalidState)
		}
		// Refunded for a lost coupon.
		return nil, l.refreshInvoice(ctx, inv)
	case gateway.IntentStatusFailed, gateway.IntentStatusCanceled:
		if _, err := l.failPaymentLocked(ctx, active.ID, constants.FailureReasonGatewayFailed, intent.FailureMessage, user); err != nil {
			return nil, err
		}
		return nil, l.refreshInvoice(ctx, inv)
	}

	return &dto.IntentResponse{
		PaymentID:    active.ID.Hex(),
		IntentID:     intent.ID,
		ClientSecret: intent.ClientSecret,
		Amount:       q.AmountDue.StringFixed(2),
		Discount:     q.Discount.StringFixed(2),
		Currency:     active.Currency,
		Reused:       true,
	}, nil
}

// refreshInvoice re-reads inv after its claim was released so the caller swaps from the
// right value.
func (l *settlementLogic) refreshInvoice(ctx context.Context, inv *models.Invoice) error {
	fresh, err := l.loadInvoice(ctx, inv.ID)
	if err != nil {
		return err
	}
	*inv = *fresh
	return nil
}

func sameCoupon(a, b *primitive.ObjectID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// ConfirmIntent applies the gateway's verdict on an intent. Confirming a payment that already
// succeeded has no side effects.
func (l *settlementLogic) ConfirmIntent(ctx context.Context, intentID string) (*models.Payment, error) {
	payment, err := l.paymentRepo.GetPaymentByIntentID(ctx, intentID)
	if err != nil {
		if errors.Is(err, mongodb.ErrNotFound) {
			return nil, fmt.Errorf("intent %s: %w", intentID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get payment by intent: %w", err)
	}
	if payment.Status == constants.PaymentStatusSucceeded.String() {
		return payment, nil
	}

	intent, err := l.gateway.GetIntent(ctx, intentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGateway, err)
	}
	return l.applyIntent(ctx, payment, intent, models.NewUser(payment.UserID))
}

// applyIntent settles payment according to the intent's status. Intents still in flight
// leave the payment unchanged.
func (l *settlementLogic) applyIntent(ctx context.Context, payment *models.Payment, intent *gateway.Intent, operator *models.User) (*models.Payment, error) {
	if !intent.Status.IsTerminal() {
		return payment, nil
	}
	if payment.Status == constants.PaymentStatusFailed.String() {
		if intent.Status == gateway.IntentStatusSucceeded {
			// Charged after the payment was given up locally.
			if _, err := l.gateway.Refund(ctx, intent.ID, "refund_"+payment.ID.Hex()); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrGateway, err)
			}
			l.logger.Warn("refunded charge on failed payment", zap.Stringer("paymentID", payment.ID), zap.String("intentID", intent.ID))
		}
		return payment, nil
	}

	unlock, err := l.lock(ctx, locker.InvoiceKey(payment.InvoiceID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	if intent.Status == gateway.IntentStatusSucceeded {
		return l.finalizeLocked(ctx, payment.ID, operator)
	}
	return l.failPaymentLocked(ctx, payment.ID, constants.FailureReasonGatewayFailed, intent.FailureMessage, operator)
}

// HandleWebhook verifies a gateway notification and confirms the intent it names. Unknown
// intents and uninteresting events are acknowledged without action.
func (l *settlementLogic) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := l.gateway.ParseWebhook(payload, signature)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if event.Type == gateway.EventIgnored || event.IntentID == "" {
		return nil
	}

	payment, err := l.ConfirmIntent(ctx, event.IntentID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			l.logger.Warn("HandleWebhook: event for unknown intent", zap.String("eventID", event.ID), zap.String("intentID", event.IntentID))
			return nil
		}
		return err
	}
	l.logger.Info("HandleWebhook: intent confirmed",
		zap.String("eventID", event.ID),
		zap.String("intentID", event.IntentID),
		zap.String("status", payment.Status))
	return nil
}

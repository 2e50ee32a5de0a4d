package logic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"petcare_settlement/internal/constants"
	"petcare_settlement/internal/dao/mongodb"
	"petcare_settlement/internal/dao/repository"
	"petcare_settlement/internal/db"
	"petcare_settlement/internal/dto"
	"petcare_settlement/internal/gateway"
	"petcare_settlement/internal/helper"
	"petcare_settlement/internal/locker"
	"petcare_settlement/internal/models"
	"petcare_settlement/pkg/jwt"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// SettlementLogic moves money against invoices. Every operation that changes an invoice,
// its payments or a coupon holds the invoice lock (and the coupon lock where a coupon is
// consumed) and applies its writes in one transaction with conditional updates.
type SettlementLogic interface {
	CreateIntent(ctx context.Context, req *PaymentRequest) (*dto.IntentResponse, error)
	ConfirmIntent(ctx context.Context, intentID string) (*models.Payment, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
	RecordOfflinePayment(ctx context.Context, req *PaymentRequest) (*dto.OfflinePaymentResponse, error)
	MarkOfflinePaid(ctx context.Context, paymentID primitive.ObjectID, operator *models.User) (*models.Payment, error)
	RedeemVoucher(ctx context.Context, token string, operator *models.User) (*models.Payment, error)
	CancelInvoice(ctx context.Context, d *dto.InvoiceActionRequest) error
	RefundInvoice(ctx context.Context, d *dto.InvoiceActionRequest) (*models.Payment, error)
	ReplayFinalization(ctx context.Context, record *models.PendingFinalization) error
}

var _ SettlementLogic = (*settlementLogic)(nil)

// PaymentRequest asks to pay an invoice. Coupon is optional.
type PaymentRequest struct {
	InvoiceID primitive.ObjectID
	User      *models.User
	Method    string
	Coupon    CouponReference
}

// SettlementPolicy holds the settlement timings.
type SettlementPolicy struct {
	VoucherTTL time.Duration
	// StaleAfter is how long an online payment may stay open before the replayer cancels it.
	StaleAfter time.Duration
}

type settlementLogic struct {
	invoiceRepo      repository.InvoiceRepository
	paymentRepo      repository.PaymentRepository
	finalizationRepo repository.FinalizationRepository
	auditLogRepo     repository.AuditLogRepository
	coupons          CouponLogic
	publisher        *PaymentEventPublisher
	gateway          gateway.Gateway
	locker           locker.Locker
	tm               db.TransactionManager
	vouchers         *jwt.Manager
	policy           SettlementPolicy
	logger           *zap.Logger
}

func NewSettlementLogic(
	invoiceRepo repository.InvoiceRepository,
	paymentRepo repository.PaymentRepository,
	finalizationRepo repository.FinalizationRepository,
	auditLogRepo repository.AuditLogRepository,
	coupons CouponLogic,
	publisher *PaymentEventPublisher,
	gw gateway.Gateway,
	lk locker.Locker,
	tm db.TransactionManager,
	vouchers *jwt.Manager,
	policy SettlementPolicy,
	logger *zap.Logger,
) *settlementLogic {
	return &settlementLogic{
		invoiceRepo:      invoiceRepo,
		paymentRepo:      paymentRepo,
		finalizationRepo: finalizationRepo,
		auditLogRepo:     auditLogRepo,
		coupons:          coupons,
		publisher:        publisher,
		gateway:          gw,
		locker:           lk,
		tm:               tm,
		vouchers:         vouchers,
		policy:           policy,
		logger:           logger.Named("SettlementLogic"),
	}
}

func (l *settlementLogic) inTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return l.tm.InTransaction(ctx, fn)
}

func (l *settlementLogic) lock(ctx context.Context, keys ...string) (func(), error) {
	unlock, err := l.locker.Lock(ctx, keys...)
	if err != nil {
		if errors.Is(err, locker.ErrNotAcquired) {
			return nil, fmt.Errorf("%w: %v", ErrConflict, err)
		}
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	return unlock, nil
}

// audit writes the entry as part of the surrounding transaction; a failed write aborts it.
func (l *settlementLogic) audit(ctx context.Context, log *models.AuditLog) error {
	if err := l.auditLogRepo.Create(ctx, log); err != nil {
		return fmt.Errorf("failed to create %s audit log: %w", log.Action, err)
	}
	return nil
}

func (l *settlementLogic) loadInvoice(ctx context.Context, id primitive.ObjectID) (*models.Invoice, error) {
	inv, err := l.invoiceRepo.GetInvoiceByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongodb.ErrNotFound) {
			return nil, fmt.Errorf("invoice %s: %w", id.Hex(), ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	return inv, nil
}

func (l *settlementLogic) loadPayment(ctx context.Context, id primitive.ObjectID) (*models.Payment, error) {
	p, err := l.paymentRepo.GetPaymentByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongodb.ErrNotFound) {
			return nil, fmt.Errorf("payment %s: %w", id.Hex(), ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return p, nil
}

// payableInvoice loads an invoice the user may open a payment against.
func (l *settlementLogic) payableInvoice(ctx context.Context, id primitive.ObjectID, user *models.User) (*models.Invoice, error) {
	inv, err := l.loadInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.UserID != user.UserId {
		return nil, fmt.Errorf("invoice %s: %w", id.Hex(), ErrForbidden)
	}
	if !constants.ParseInvoiceStatus(inv.Status).IsPayable() {
		return nil, fmt.Errorf("invoice %s is %s: %w", id.Hex(), inv.Status, ErrInvalidState)
	}
	return inv, nil
}

// quote recomputes what the user owes for inv, applying the coupon when one is given.
func (l *settlementLogic) quote(ctx context.Context, inv *models.Invoice, userID primitive.ObjectID, ref CouponReference) (*Quote, error) {
	totals, err := invoiceTotals(inv)
	if err != nil {
		return nil, err
	}
	cq, err := l.coupons.Validate(ctx, ref, userID, totals.Total)
	if err != nil {
		return nil, err
	}
	return newQuote(totals.Total, cq), nil
}

func newPayment(inv *models.Invoice, user *models.User, channel, method string, q *Quote) *models.Payment {
	now := time.Now()
	id := primitive.NewObjectID()
	return &models.Payment{
		ID:             id,
		InvoiceID:      inv.ID,
		UserID:         user.UserId,
		Channel:        channel,
		Method:         method,
		Amount:         helper.MustMoney128(q.AmountDue),
		Discount:       helper.MustMoney128(q.Discount),
		Currency:       inv.Currency,
		CouponID:       q.couponID(),
		Status:         constants.PaymentStatusPending.String(),
		IdempotencyKey: "pay_" + id.Hex(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// claimInvoice inserts payment and makes it the invoice's active payment in place of expected.
func (l *settlementLogic) claimInvoice(ctx context.Context, payment *models.Payment, expected *primitive.ObjectID) error {
	if _, err := l.paymentRepo.CreatePayment(ctx, payment); err != nil {
		return fmt.Errorf("failed to create payment in repository: %w", err)
	}
	err := l.invoiceRepo.SwapActivePayment(ctx, &repository.SwapActivePaymentParams{
		InvoiceID: payment.InvoiceID,
		Expected:  expected,
		Next:      &payment.ID,
	})
	if err != nil {
		if errors.Is(err, mongodb.ErrStatusMismatch) {
			return fmt.Errorf("invoice %s is being settled by another payment: %w", payment.InvoiceID.Hex(), ErrConflict)
		}
		return mapInvoiceTransitionError(payment.InvoiceID, err)
	}
	return nil
}

// clearActivePayment resolves the payment currently claiming inv so a new payment can take
// its place, and returns the claim value the caller must swap from. A pending offline
// payment blocks new payments unless the invoice is being cancelled. A pending online
// payment has its intent cancelled first; if the gateway reports it already succeeded the
// payment is finalized and ErrInvalidState returned, unless its coupon was lost meanwhile.
func (l *settlementLogic) clearActivePayment(ctx context.Context, inv *models.Invoice, reason string, operator *models.User) (*primitive.ObjectID, error) {
	if inv.ActivePayment == nil {
		return nil, nil
	}
	active, err := l.loadPayment(ctx, *inv.ActivePayment)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return inv.ActivePayment, nil
		}
		return nil, err
	}
	if constants.ParsePaymentStatus(active.Status) != constants.PaymentStatusPending {
		return inv.ActivePayment, nil
	}

	if active.Channel == constants.PaymentChannelOffline && reason != constants.FailureReasonInvoiceCanceled {
		return nil, fmt.Errorf("offline payment %s is awaiting the counter: %w", active.ID.Hex(), ErrConflict)
	}
	if active.Channel == constants.PaymentChannelOnline && active.GatewayIntentID != "" {
		intent, err := l.gateway.CancelIntent(ctx, active.GatewayIntentID)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to cancel intent %s: %w", ErrGateway, active.GatewayIntentID, err)
		}
		if intent.Status == gateway.IntentStatusSucceeded {
			settled, err := l.finalizeLocked(ctx, active.ID, models.SystemUser)
			if err != nil {
				return nil, err
			}
			if settled.Status == constants.PaymentStatusSucceeded.String() {
				return nil, fmt.Errorf("invoice %s was paid by payment %s: %w", inv.ID.Hex(), active.ID.Hex(), ErrInvalidState)
			}
			// Refunded for a lost coupon; the claim is already released.
			return nil, nil
		}
	}

	if _, err := l.failPaymentLocked(ctx, active.ID, reason, "", operator); err != nil {
		return nil, err
	}
	return nil, nil
}

// finalizeLocked applies a successful payment: payment succeeded, invoice paid, coupon
// consumed, finalization record closed, all in one transaction. The caller must hold the
// invoice lock. Finalizing a payment that already succeeded returns it unchanged.
func (l *settlementLogic) finalizeLocked(ctx context.Context, paymentID primitive.ObjectID, operator *models.User) (*models.Payment, error) {
	payment, err := l.loadPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	switch constants.ParsePaymentStatus(payment.Status) {
	case constants.PaymentStatusSucceeded:
		return payment, nil
	case constants.PaymentStatusFailed:
		return nil, fmt.Errorf("payment %s has failed: %w", paymentID.Hex(), ErrInvalidState)
	}

	if payment.CouponID != nil {
		unlock, err := l.lock(ctx, locker.CouponKey(*payment.CouponID))
		if err != nil {
			return nil, err
		}
		defer unlock()
	}

	offline := payment.Channel == constants.PaymentChannelOffline
	now := time.Now()
	opts := []repository.UpdateOption{repository.WithSucceededAt(now)}
	action := constants.PaymentActionSucceed
	if offline {
		opts = append(opts, repository.WithReconciledBy(operator))
		action = constants.PaymentActionReconcile
	}

	var finalized models.Payment
	err = l.inTx(ctx, func(txCtx context.Context) error {
		if payment.CouponID != nil {
			discount, err := helper.ToDecimal(payment.Discount)
			if err != nil {
				return fmt.Errorf("invalid discount on payment %s: %w", payment.ID.Hex(), err)
			}
			err = l.coupons.Consume(txCtx, &ConsumeParams{
				CouponID:  *payment.CouponID,
				UserID:    payment.UserID,
				PaymentID: payment.ID,
				InvoiceID: payment.InvoiceID,
				Discount:  discount,
				Operator:  operator,
			})
			if err != nil {
				if errors.Is(err, ErrConflict) || errors.Is(err, ErrForbidden) || errors.Is(err, ErrNotFound) {
					return fmt.Errorf("%w: %w", ErrCouponUnavailable, err)
				}
				return err
			}
		}

		err := l.paymentRepo.TransitionPayment(txCtx, &repository.TransitionPaymentParams{
			PaymentID: payment.ID,
			From:      constants.PaymentStatusPending,
			To:        constants.PaymentStatusSucceeded,
		}, opts...)
		if err != nil {
			if errors.Is(err, mongodb.ErrStatusMismatch) {
				if current, gErr := l.paymentRepo.GetPaymentByID(txCtx, payment.ID); gErr == nil &&
					current.Status == constants.PaymentStatusSucceeded.String() {
					return ErrAlreadyFinalized
				}
				return fmt.Errorf("payment %s changed concurrently: %w", payment.ID.Hex(), ErrConflict)
			}
			return fmt.Errorf("failed to mark payment succeeded: %w", err)
		}

		err = l.invoiceRepo.TransitionInvoice(txCtx, &repository.TransitionInvoiceParams{
			InvoiceID:          payment.InvoiceID,
			From:               constants.InvoiceStatusPending,
			To:                 constants.InvoiceStatusPaid,
			CheckActivePayment: true,
			ActivePayment:      &payment.ID,
		}, repository.WithPaidAt(now), repository.WithUpdatedBy(operator))
		if err != nil {
			if errors.Is(err, mongodb.ErrStatusMismatch) {
				return fmt.Errorf("invoice %s is no longer awaiting payment %s: %w", payment.InvoiceID.Hex(), payment.ID.Hex(), ErrConflict)
			}
			return mapInvoiceTransitionError(payment.InvoiceID, err)
		}

		if err := l.finalizationRepo.MarkCompleted(txCtx, payment.ID); err != nil {
			return fmt.Errorf("failed to close finalization record: %w", err)
		}

		finalized = *payment
		finalized.Status = constants.PaymentStatusSucceeded.String()
		finalized.SucceededAt = &now
		finalized.UpdatedAt = now
		if offline {
			finalized.ReconciledBy = operator
		}
		if err := l.publisher.PublishPaymentEvent(txCtx, action, &finalized, ""); err != nil {
			return err
		}

		if err := l.audit(txCtx, buildFinalizePaymentAuditLog(operator, &finalized)); err != nil {
			return err
		}
		return l.audit(txCtx, buildInvoiceStatusAuditLog(operator, constants.AuditActionFinalizePayment, payment.InvoiceID,
			constants.InvoiceStatusPending, constants.InvoiceStatusPaid, ""))
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyFinalized) {
			return l.loadPayment(ctx, payment.ID)
		}
		if errors.Is(err, ErrCouponUnavailable) && !offline {
			return l.refundLostCoupon(ctx, payment, operator, err)
		}
		l.logger.Warn("finalize: transaction failed", zap.Stringer("paymentID", payment.ID), zap.Error(err))
		return nil, err
	}

	l.logger.Info("payment finalized",
		zap.Stringer("paymentID", payment.ID),
		zap.Stringer("invoiceID", payment.InvoiceID),
		zap.String("channel", payment.Channel))
	return &finalized, nil
}

// refundLostCoupon gives the money back for a charge whose coupon was used up by another
// payment, fails the payment and releases the invoice for a new attempt. The failed payment
// is returned. A refund that does not go through leaves the payment pending for the replayer.
func (l *settlementLogic) refundLostCoupon(ctx context.Context, payment *models.Payment, operator *models.User, cause error) (*models.Payment, error) {
	l.logger.Warn("coupon was used up before the charge settled; refunding",
		zap.Stringer("paymentID", payment.ID),
		zap.Stringer("invoiceID", payment.InvoiceID),
		zap.Stringer("couponID", payment.CouponID),
		zap.Error(cause))
	if payment.GatewayIntentID != "" {
		if _, err := l.gateway.Refund(ctx, payment.GatewayIntentID, "refund_"+payment.ID.Hex()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrGateway, err)
		}
	}
	return l.failPaymentLocked(ctx, payment.ID, constants.FailureReasonCouponConflict, cause.Error(), operator)
}

// failPaymentLocked marks a pending payment failed and releases its claim on the invoice.
// The caller must hold the invoice lock. A payment that already failed is returned as is.
func (l *settlementLogic) failPaymentLocked(ctx context.Context, paymentID primitive.ObjectID, reason, message string, operator *models.User) (*models.Payment, error) {
	payment, err := l.loadPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	switch constants.ParsePaymentStatus(payment.Status) {
	case constants.PaymentStatusFailed:
		return payment, nil
	case constants.PaymentStatusSucceeded:
		return nil, fmt.Errorf("payment %s has already succeeded: %w", paymentID.Hex(), ErrInvalidState)
	}

	action := constants.PaymentActionFail
	switch reason {
	case constants.FailureReasonSuperseded, constants.FailureReasonInvoiceCanceled, constants.FailureReasonStale:
		action = constants.PaymentActionCancel
	}

	var failed models.Payment
	err = l.inTx(ctx, func(txCtx context.Context) error {
		err := l.paymentRepo.TransitionPayment(txCtx, &repository.TransitionPaymentParams{
			PaymentID: payment.ID,
			From:      constants.PaymentStatusPending,
			To:        constants.PaymentStatusFailed,
		}, repository.WithFailure(reason, message))
		if err != nil {
			if errors.Is(err, mongodb.ErrStatusMismatch) {
				return fmt.Errorf("payment %s changed concurrently: %w", payment.ID.Hex(), ErrConflict)
			}
			return fmt.Errorf("failed to mark payment failed: %w", err)
		}

		err = l.invoiceRepo.SwapActivePayment(txCtx, &repository.SwapActivePaymentParams{
			InvoiceID: payment.InvoiceID,
			Expected:  &payment.ID,
			Next:      nil,
		})
		if err != nil && !errors.Is(err, mongodb.ErrStatusMismatch) && !errors.Is(err, mongodb.ErrNotFound) {
			return fmt.Errorf("failed to release invoice: %w", err)
		}

		// The replayer still has to look for an intent opened under the idempotency key.
		if reason != constants.FailureReasonGatewayUnavailable {
			if err := l.finalizationRepo.MarkAbandoned(txCtx, payment.ID, reason); err != nil {
				return fmt.Errorf("failed to close finalization record: %w", err)
			}
		}

		failed = *payment
		failed.Status = constants.PaymentStatusFailed.String()
		failed.FailureReason = reason
		failed.FailureMessage = message
		if err := l.publisher.PublishPaymentEvent(txCtx, action, &failed, reason); err != nil {
			return err
		}
		return l.audit(txCtx, buildFailPaymentAuditLog(operator, payment.ID, reason))
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info("payment failed", zap.Stringer("paymentID", payment.ID), zap.String("reason", reason))
	return &failed, nil
}

package logic

import (
	"context"
	"errors"
	"fmt"

	"petcare_settlement/internal/constants"
	"petcare_settlement/internal/dto"
	"petcare_settlement/internal/locker"
	"petcare_settlement/internal/models"
	"petcare_settlement/pkg/jwt"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// RecordOfflinePayment opens a counter payment and hands the customer a signed voucher. The
// coupon is consumed right away so it cannot be used again while the counter settles.
func (l *settlementLogic) RecordOfflinePayment(ctx context.Context, req *PaymentRequest) (*dto.OfflinePaymentResponse, error) {
	if !constants.IsOfflineMethod(req.Method) {
		return nil, fmt.Errorf("%w: unsupported offline method %q", ErrValidation, req.Method)
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

	expected, err := l.clearActivePayment(ctx, inv, constants.FailureReasonSuperseded, req.User)
	if err != nil {
		return nil, err
	}

	payment := newPayment(inv, req.User, constants.PaymentChannelOffline, req.Method, q)
	if payment.CouponID != nil {
		unlockCoupon, err := l.lock(ctx, locker.CouponKey(*payment.CouponID))
		if err != nil {
			return nil, err
		}
		defer unlockCoupon()
	}

	voucher, err := l.vouchers.IssueVoucher(jwt.Voucher{
		PaymentID: payment.ID.Hex(),
		InvoiceID: payment.InvoiceID.Hex(),
		UserID:    payment.UserID.Hex(),
		Amount:    q.AmountDue.StringFixed(2),
		Currency:  payment.Currency,
		Method:    payment.Method,
	}, l.policy.VoucherTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign voucher: %w", err)
	}

	err = l.inTx(ctx, func(txCtx context.Context) error {
		if err := l.claimInvoice(txCtx, payment, expected); err != nil {
			return err
		}
		if payment.CouponID != nil {
			err := l.coupons.Consume(txCtx, &ConsumeParams{
				CouponID:  *payment.CouponID,
				UserID:    payment.UserID,
				PaymentID: payment.ID,
				InvoiceID: payment.InvoiceID,
				Discount:  q.Discount,
				Operator:  req.User,
			})
			if err != nil {
				return err
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

	l.logger.Info("offline payment recorded",
		zap.Stringer("paymentID", payment.ID),
		zap.Stringer("invoiceID", payment.InvoiceID),
		zap.String("method", payment.Method))
	return &dto.OfflinePaymentResponse{Payment: payment, Voucher: voucher}, nil
}

// MarkOfflinePaid is called by staff once the counter has collected the money. It runs the
// same finalization as a gateway success.
func (l *settlementLogic) MarkOfflinePaid(ctx context.Context, paymentID primitive.ObjectID, operator *models.User) (*models.Payment, error) {
	payment, err := l.loadPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Channel != constants.PaymentChannelOffline {
		return nil, fmt.Errorf("payment %s is not an offline payment: %w", paymentID.Hex(), ErrInvalidState)
	}
	if payment.Status == constants.PaymentStatusSucceeded.String() {
		return payment, nil
	}

	unlock, err := l.lock(ctx, locker.InvoiceKey(payment.InvoiceID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	return l.finalizeLocked(ctx, payment.ID, operator)
}

// RedeemVoucher settles the offline payment named by a customer's voucher.
func (l *settlementLogic) RedeemVoucher(ctx context.Context, token string, operator *models.User) (*models.Payment, error) {
	v, err := l.vouchers.ParseVoucher(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	paymentID, err := primitive.ObjectIDFromHex(v.PaymentID)
	if err != nil {
		return nil, fmt.Errorf("%w: voucher carries an invalid payment id", ErrValidation)
	}

	payment, err := l.loadPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.InvoiceID.Hex() != v.InvoiceID || payment.UserID.Hex() != v.UserID {
		return nil, fmt.Errorf("%w: voucher does not match payment %s", ErrValidation, paymentID.Hex())
	}

	p, err := l.MarkOfflinePaid(ctx, paymentID, operator)
	if err != nil && errors.Is(err, ErrInvalidState) {
		l.logger.Warn("RedeemVoucher: payment cannot be settled", zap.Stringer("paymentID", paymentID), zap.Error(err))
	}
	return p, err
}

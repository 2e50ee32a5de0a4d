package repository

import (
	"context"
	"time"

	"petcare_settlement/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type InvoiceRepository interface {
	CreateInvoice(ctx context.Context, invoice *models.Invoice) (primitive.ObjectID, error)
	GetInvoiceByID(ctx context.Context, id primitive.ObjectID) (*models.Invoice, error)
	GetInvoiceBySource(ctx context.Context, source string) (*models.Invoice, error)
	GetInvoicesByUser(ctx context.Context, params *GetInvoicesByUserParams) ([]*models.Invoice, error)
	TransitionInvoice(ctx context.Context, params *TransitionInvoiceParams, opts ...UpdateOption) error
	SwapActivePayment(ctx context.Context, params *SwapActivePaymentParams) error
}

type CouponRepository interface {
	CreateCoupon(ctx context.Context, coupon *models.Coupon) (primitive.ObjectID, error)
	GetCouponByID(ctx context.Context, id primitive.ObjectID) (*models.Coupon, error)
	GetCouponByCode(ctx context.Context, code string) (*models.Coupon, error)
	GetAvailableIssuedCoupons(ctx context.Context, params *GetAvailableCouponsParams) ([]*models.Coupon, error)
	ConsumeCoupon(ctx context.Context, params *ConsumeCouponParams) (*models.Coupon, error)
	ExpireCoupons(ctx context.Context, now time.Time) (int64, error)
}

type RedemptionRepository interface {
	CreateRedemption(ctx context.Context, redemption *models.CouponRedemption) error
	GetRedemptionByPayment(ctx context.Context, couponID, paymentID primitive.ObjectID) (*models.CouponRedemption, error)
	CountRedemptionsByUser(ctx context.Context, couponID, userID primitive.ObjectID) (int64, error)
}

type PaymentRepository interface {
	CreatePayment(ctx context.Context, payment *models.Payment) (primitive.ObjectID, error)
	GetPaymentByID(ctx context.Context, id primitive.ObjectID) (*models.Payment, error)
	GetPaymentByIntentID(ctx context.Context, intentID string) (*models.Payment, error)
	ListPayments(ctx context.Context, params *ListPaymentsParams) ([]*models.Payment, int64, error)
	TransitionPayment(ctx context.Context, params *TransitionPaymentParams, opts ...UpdateOption) error
	UpdatePayment(ctx context.Context, id primitive.ObjectID, opts ...UpdateOption) error
}

type FinalizationRepository interface {
	Create(ctx context.Context, record *models.PendingFinalization) error
	GetByPaymentID(ctx context.Context, paymentID primitive.ObjectID) (*models.PendingFinalization, error)
	SetIntentID(ctx context.Context, paymentID primitive.ObjectID, intentID string) error
	MarkCompleted(ctx context.Context, paymentID primitive.ObjectID) error
	MarkAbandoned(ctx context.Context, paymentID primitive.ObjectID, reason string) error
	RecordAttempt(ctx context.Context, paymentID primitive.ObjectID, errorMessage string) error
	FindStale(ctx context.Context, olderThan time.Time, limit int) ([]*models.PendingFinalization, error)
}

type AuditLogRepository interface {
	Create(ctx context.Context, log *models.AuditLog) error
}

type OutboxRepository interface {
	Create(ctx context.Context, message *models.OutboxMessage) error
	ClaimAndFetchEvents(ctx context.Context, limit int) ([]*models.OutboxMessage, error)
	MarkAsProcessed(ctx context.Context, id primitive.ObjectID) error
	IncrementRetry(ctx context.Context, id primitive.ObjectID, errorMessage string, maxRetries int) error
}

package logic

import (
	"context"
	"time"

	"petcare_settlement/internal/dao/repository"
	"petcare_settlement/internal/models"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type mockInvoiceRepository struct {
	mock.Mock
}

func newMockInvoiceRepository() *mockInvoiceRepository {
	return &mockInvoiceRepository{}
}

func (m *mockInvoiceRepository) CreateInvoice(ctx context.Context, invoice *models.Invoice) (primitive.ObjectID, error) {
	args := m.Called(ctx, invoice)
	if oid := args.Get(0); oid != nil {
		return oid.(primitive.ObjectID), args.Error(1)
	}
	return primitive.NilObjectID, args.Error(1)
}

func (m *mockInvoiceRepository) GetInvoiceByID(ctx context.Context, id primitive.ObjectID) (*models.Invoice, error) {
	args := m.Called(ctx, id)
	if inv := args.Get(0); inv != nil {
		return inv.(*models.Invoice), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockInvoiceRepository) GetInvoiceBySource(ctx context.Context, source string) (*models.Invoice, error) {
	args := m.Called(ctx, source)
	if inv := args.Get(0); inv != nil {
		return inv.(*models.Invoice), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockInvoiceRepository) GetInvoicesByUser(ctx context.Context, params *repository.GetInvoicesByUserParams) ([]*models.Invoice, error) {
	args := m.Called(ctx, params)
	if invs := args.Get(0); invs != nil {
		return invs.([]*models.Invoice), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockInvoiceRepository) TransitionInvoice(ctx context.Context, params *repository.TransitionInvoiceParams, opts ...repository.UpdateOption) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

func (m *mockInvoiceRepository) SwapActivePayment(ctx context.Context, params *repository.SwapActivePaymentParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

type mockCouponRepository struct {
	mock.Mock
}

func newMockCouponRepository() *mockCouponRepository {
	return &mockCouponRepository{}
}

func (m *mockCouponRepository) CreateCoupon(ctx context.Context, coupon *models.Coupon) (primitive.ObjectID, error) {
	args := m.Called(ctx, coupon)
	if oid := args.Get(0); oid != nil {
		return oid.(primitive.ObjectID), args.Error(1)
	}
	return primitive.NilObjectID, args.Error(1)
}

func (m *mockCouponRepository) GetCouponByID(ctx context.Context, id primitive.ObjectID) (*models.Coupon, error) {
	args := m.Called(ctx, id)
	if c := args.Get(0); c != nil {
		return c.(*models.Coupon), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCouponRepository) GetCouponByCode(ctx context.Context, code string) (*models.Coupon, error) {
	args := m.Called(ctx, code)
	if c := args.Get(0); c != nil {
		return c.(*models.Coupon), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCouponRepository) GetAvailableIssuedCoupons(ctx context.Context, params *repository.GetAvailableCouponsParams) ([]*models.Coupon, error) {
	args := m.Called(ctx, params)
	if cs := args.Get(0); cs != nil {
		return cs.([]*models.Coupon), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCouponRepository) ConsumeCoupon(ctx context.Context, params *repository.ConsumeCouponParams) (*models.Coupon, error) {
	args := m.Called(ctx, params)
	if c := args.Get(0); c != nil {
		return c.(*models.Coupon), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCouponRepository) ExpireCoupons(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

type mockRedemptionRepository struct {
	mock.Mock
}

func newMockRedemptionRepository() *mockRedemptionRepository {
	return &mockRedemptionRepository{}
}

func (m *mockRedemptionRepository) CreateRedemption(ctx context.Context, redemption *models.CouponRedemption) error {
	args := m.Called(ctx, redemption)
	return args.Error(0)
}

func (m *mockRedemptionRepository) GetRedemptionByPayment(ctx context.Context, couponID, paymentID primitive.ObjectID) (*models.CouponRedemption, error) {
	args := m.Called(ctx, couponID, paymentID)
	if r := args.Get(0); r != nil {
		return r.(*models.CouponRedemption), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRedemptionRepository) CountRedemptionsByUser(ctx context.Context, couponID, userID primitive.ObjectID) (int64, error) {
	args := m.Called(ctx, couponID, userID)
	return args.Get(0).(int64), args.Error(1)
}

type mockPaymentRepository struct {
	mock.Mock
}

func newMockPaymentRepository() *mockPaymentRepository {
	return &mockPaymentRepository{}
}

func (m *mockPaymentRepository) CreatePayment(ctx context.Context, payment *models.Payment) (primitive.ObjectID, error) {
	args := m.Called(ctx, payment)
	if oid := args.Get(0); oid != nil {
		return oid.(primitive.ObjectID), args.Error(1)
	}
	return primitive.NilObjectID, args.Error(1)
}

func (m *mockPaymentRepository) GetPaymentByID(ctx context.Context, id primitive.ObjectID) (*models.Payment, error) {
	args := m.Called(ctx, id)
	if p := args.Get(0); p != nil {
		return p.(*models.Payment), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPaymentRepository) GetPaymentByIntentID(ctx context.Context, intentID string) (*models.Payment, error) {
	args := m.Called(ctx, intentID)
	if p := args.Get(0); p != nil {
		return p.(*models.Payment), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPaymentRepository) ListPayments(ctx context.Context, params *repository.ListPaymentsParams) ([]*models.Payment, int64, error) {
	args := m.Called(ctx, params)
	if ps := args.Get(0); ps != nil {
		return ps.([]*models.Payment), args.Get(1).(int64), args.Error(2)
	}
	return nil, 0, args.Error(2)
}

func (m *mockPaymentRepository) TransitionPayment(ctx context.Context, params *repository.TransitionPaymentParams, opts ...repository.UpdateOption) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

func (m *mockPaymentRepository) UpdatePayment(ctx context.Context, id primitive.ObjectID, opts ...repository.UpdateOption) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockAuditLogRepository struct {
	mock.Mock
}

func newMockAuditLogRepository() *mockAuditLogRepository {
	return &mockAuditLogRepository{}
}

func (m *mockAuditLogRepository) Create(ctx context.Context, log *models.AuditLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

type mockOutboxRepository struct {
	mock.Mock
}

func newMockOutboxRepository() *mockOutboxRepository {
	return &mockOutboxRepository{}
}

func (m *mockOutboxRepository) Create(ctx context.Context, message *models.OutboxMessage) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *mockOutboxRepository) ClaimAndFetchEvents(ctx context.Context, limit int) ([]*models.OutboxMessage, error) {
	panic("not implemented")
}

func (m *mockOutboxRepository) MarkAsProcessed(ctx context.Context, id primitive.ObjectID) error {
	panic("not implemented")
}

func (m *mockOutboxRepository) IncrementRetry(ctx context.Context, id primitive.ObjectID, errorMessage string, maxRetries int) error {
	panic("not implemented")
}

package logic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"petcare_settlement/internal/constants"
	"petcare_settlement/internal/dao/mongodb"
	"petcare_settlement/internal/dao/repository"
	"petcare_settlement/internal/dto"
	"petcare_settlement/internal/helper"
	"petcare_settlement/internal/models"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// CouponLogic validates coupons against an invoice total and consumes them at settlement.
// Validation never changes a coupon.
type CouponLogic interface {
	Validate(ctx context.Context, ref CouponReference, userID primitive.ObjectID, total decimal.Decimal) (*CouponQuote, error)
	ValidatePublicCoupon(ctx context.Context, code string, userID primitive.ObjectID, total decimal.Decimal) (*CouponQuote, error)
	ValidateIssuedCoupon(ctx context.Context, couponID, userID primitive.ObjectID, total decimal.Decimal) (*CouponQuote, error)
	ListAvailableForUser(ctx context.Context, userID primitive.ObjectID, total decimal.Decimal) ([]*CouponQuote, error)
	Consume(ctx context.Context, p *ConsumeParams) error
	CreateCoupon(ctx context.Context, d *dto.CreateCouponRequest) (*models.Coupon, error)
	ExpireCoupons(ctx context.Context) (int64, error)
}

var _ CouponLogic = (*couponLogic)(nil)

// CouponQuote is a coupon together with the discount it would give.
type CouponQuote struct {
	Coupon   *models.Coupon
	Discount decimal.Decimal
}

type ConsumeParams struct {
	CouponID  primitive.ObjectID
	UserID    primitive.ObjectID
	PaymentID primitive.ObjectID
	InvoiceID primitive.ObjectID
	Discount  decimal.Decimal
	Operator  *models.User
}

type couponLogic struct {
	couponRepo     repository.CouponRepository
	redemptionRepo repository.RedemptionRepository
	auditLogRepo   repository.AuditLogRepository
	logger         *zap.Logger
}

func NewCouponLogic(couponRepo repository.CouponRepository, redemptionRepo repository.RedemptionRepository, auditLogRepo repository.AuditLogRepository, logger *zap.Logger) *couponLogic {
	return &couponLogic{
		couponRepo:     couponRepo,
		redemptionRepo: redemptionRepo,
		auditLogRepo:   auditLogRepo,
		logger:         logger.Named("CouponLogic"),
	}
}

func (l *couponLogic) Validate(ctx context.Context, ref CouponReference, userID primitive.ObjectID, total decimal.Decimal) (*CouponQuote, error) {
	switch r := ref.(type) {
	case PublicCode:
		return l.ValidatePublicCoupon(ctx, r.Code, userID, total)
	case IssuedCoupon:
		return l.ValidateIssuedCoupon(ctx, r.ID, userID, total)
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: unsupported coupon reference %T", ErrValidation, ref)
	}
}

func (l *couponLogic) ValidatePublicCoupon(ctx context.Context, code string, userID primitive.ObjectID, total decimal.Decimal) (*CouponQuote, error) {
	coupon, err := l.couponRepo.GetCouponByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		if errors.Is(err, mongodb.ErrNotFound) {
			return nil, fmt.Errorf("coupon %q: %w", code, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get coupon by code: %w", err)
	}
	return l.quote(ctx, coupon, userID, total)
}

func (l *couponLogic) ValidateIssuedCoupon(ctx context.Context, couponID, userID primitive.ObjectID, total decimal.Decimal) (*CouponQuote, error) {
	coupon, err := l.couponRepo.GetCouponByID(ctx, couponID)
	if err != nil {
		if errors.Is(err, mongodb.ErrNotFound) {
			return nil, fmt.Errorf("coupon %s: %w", couponID.Hex(), ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get coupon: %w", err)
	}
	if coupon.Kind != constants.CouponKindIssued {
		// Public coupons are only redeemable by code.
		return nil, fmt.Errorf("coupon %s: %w", couponID.Hex(), ErrNotFound)
	}
	return l.quote(ctx, coupon, userID, total)
}

func (l *couponLogic) quote(ctx context.Context, coupon *models.Coupon, userID primitive.ObjectID, total decimal.Decimal) (*CouponQuote, error) {
	if err := l.checkEligibility(ctx, coupon, userID, total, time.Now()); err != nil {
		return nil, err
	}
	value, err := helper.ToDecimal(coupon.DiscountValue)
	if err != nil {
		return nil, fmt.Errorf("invalid discount value on coupon %s: %w", coupon.ID.Hex(), err)
	}
	return &CouponQuote{
		Coupon:   coupon,
		Discount: ComputeDiscount(coupon.DiscountType, value, total),
	}, nil
}

// checkEligibility applies the coupon rules in order: ownership, expiry, consumption, the
// invoice minimum and finally the usage limits.
func (l *couponLogic) checkEligibility(ctx context.Context, coupon *models.Coupon, userID primitive.ObjectID, total decimal.Decimal, now time.Time) error {
	if coupon.Kind == constants.CouponKindIssued {
		if coupon.OwnerID == nil || *coupon.OwnerID != userID {
			return fmt.Errorf("coupon %s is not issued to this user: %w", coupon.ID.Hex(), ErrForbidden)
		}
	}

	status := constants.ParseCouponStatus(coupon.Status)
	if status == constants.CouponStatusExpired || !now.Before(coupon.ExpiryDate) {
		return fmt.Errorf("coupon %s: %w", coupon.ID.Hex(), ErrCouponExpired)
	}
	if status != constants.CouponStatusAvailable {
		return fmt.Errorf("coupon %s is %s: %w", coupon.ID.Hex(), coupon.Status, ErrCouponExhausted)
	}

	minimum, err := helper.ToDecimal(coupon.MinInvoiceAmount)
	if err != nil {
		return fmt.Errorf("invalid minimum on coupon %s: %w", coupon.ID.Hex(), err)
	}
	if total.LessThan(minimum) {
		return fmt.Errorf("total %s below minimum %s: %w", total.StringFixed(2), minimum.StringFixed(2), ErrCouponBelowMinimum)
	}

	if coupon.Kind != constants.CouponKindPublic {
		return nil
	}
	if coupon.UsageLimit > 0 && coupon.UsedCount >= coupon.UsageLimit {
		return fmt.Errorf("coupon %s used %d of %d times: %w", coupon.ID.Hex(), coupon.UsedCount, coupon.UsageLimit, ErrCouponExhausted)
	}
	if coupon.PerUserLimit > 0 {
		used, err := l.redemptionRepo.CountRedemptionsByUser(ctx, coupon.ID, userID)
		if err != nil {
			return fmt.Errorf("failed to count redemptions: %w", err)
		}
		if used >= int64(coupon.PerUserLimit) {
			return fmt.Errorf("coupon %s per-user limit reached: %w", coupon.ID.Hex(), ErrCouponExhausted)
		}
	}
	return nil
}

func (l *couponLogic) ListAvailableForUser(ctx context.Context, userID primitive.ObjectID, total decimal.Decimal) ([]*CouponQuote, error) {
	total128, err := helper.ToMoney128(total)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid invoice total", ErrValidation)
	}
	coupons, err := l.couponRepo.GetAvailableIssuedCoupons(ctx, &repository.GetAvailableCouponsParams{
		OwnerID:      userID,
		InvoiceTotal: total128,
		Now:          time.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list issued coupons: %w", err)
	}

	quotes := lo.FilterMap(coupons, func(c *models.Coupon, _ int) (*CouponQuote, bool) {
		value, err := helper.ToDecimal(c.DiscountValue)
		if err != nil {
			l.logger.Warn("ListAvailableForUser: skipping coupon with invalid value", zap.Stringer("couponID", c.ID), zap.Error(err))
			return nil, false
		}
		return &CouponQuote{Coupon: c, Discount: ComputeDiscount(c.DiscountType, value, total)}, true
	})
	return quotes, nil
}

// Consume records one use of the coupon by a payment. It expects to run inside the settlement
// transaction. A payment that already redeemed the coupon is a no-op.
func (l *couponLogic) Consume(ctx context.Context, p *ConsumeParams) error {
	if _, err := l.redemptionRepo.GetRedemptionByPayment(ctx, p.CouponID, p.PaymentID); err == nil {
		return nil
	} else if !errors.Is(err, mongodb.ErrNotFound) {
		return fmt.Errorf("failed to look up redemption: %w", err)
	}

	before, err := l.couponRepo.GetCouponByID(ctx, p.CouponID)
	if err != nil {
		if errors.Is(err, mongodb.ErrNotFound) {
			return fmt.Errorf("coupon %s: %w", p.CouponID.Hex(), ErrNotFound)
		}
		return fmt.Errorf("failed to get coupon: %w", err)
	}
	if before.Kind == constants.CouponKindIssued && (before.OwnerID == nil || *before.OwnerID != p.UserID) {
		return fmt.Errorf("coupon %s is not issued to this user: %w", p.CouponID.Hex(), ErrForbidden)
	}
	if before.Kind == constants.CouponKindPublic && before.PerUserLimit > 0 {
		used, err := l.redemptionRepo.CountRedemptionsByUser(ctx, p.CouponID, p.UserID)
		if err != nil {
			return fmt.Errorf("failed to count redemptions: %w", err)
		}
		if used >= int64(before.PerUserLimit) {
			return fmt.Errorf("coupon %s per-user limit reached: %w", p.CouponID.Hex(), ErrConflict)
		}
	}

	now := time.Now()
	after, err := l.couponRepo.ConsumeCoupon(ctx, &repository.ConsumeCouponParams{CouponID: p.CouponID, Now: now})
	if err != nil {
		if errors.Is(err, mongodb.ErrStatusMismatch) {
			return fmt.Errorf("coupon %s is no longer available: %w", p.CouponID.Hex(), ErrConflict)
		}
		if errors.Is(err, mongodb.ErrNotFound) {
			return fmt.Errorf("coupon %s: %w", p.CouponID.Hex(), ErrNotFound)
		}
		return fmt.Errorf("failed to consume coupon: %w", err)
	}

	discount, err := helper.ToMoney128(p.Discount)
	if err != nil {
		return fmt.Errorf("invalid discount: %w", err)
	}
	err = l.redemptionRepo.CreateRedemption(ctx, &models.CouponRedemption{
		ID:        primitive.NewObjectID(),
		CouponID:  p.CouponID,
		UserID:    p.UserID,
		PaymentID: p.PaymentID,
		InvoiceID: p.InvoiceID,
		Discount:  discount,
		CreatedAt: now,
	})
	if err != nil {
		if errors.Is(err, mongodb.ErrDuplicate) {
			return fmt.Errorf("coupon %s redeemed concurrently: %w", p.CouponID.Hex(), ErrConflict)
		}
		return fmt.Errorf("failed to record redemption: %w", err)
	}

	if err := l.auditLogRepo.Create(ctx, buildConsumeCouponAuditLog(p.Operator, before, after, p.PaymentID)); err != nil {
		return fmt.Errorf("failed to create consume audit log: %w", err)
	}
	return nil
}

func (l *couponLogic) CreateCoupon(ctx context.Context, d *dto.CreateCouponRequest) (*models.Coupon, error) {
	if !constants.IsValidDiscountType(d.GetDiscountType()) {
		return nil, fmt.Errorf("%w: unknown discount type %q", ErrValidation, d.GetDiscountType())
	}
	if !d.GetDiscountValue().IsPositive() {
		return nil, fmt.Errorf("%w: discount value must be positive", ErrValidation)
	}
	if d.GetDiscountType() == constants.DiscountTypePercent && d.GetDiscountValue().GreaterThan(hundred) {
		return nil, fmt.Errorf("%w: percent discount above 100", ErrValidation)
	}
	if d.GetMinInvoice().IsNegative() {
		return nil, fmt.Errorf("%w: minimum invoice amount must not be negative", ErrValidation)
	}
	if d.GetUsageLimit() < 0 || d.GetPerUserLimit() < 0 {
		return nil, fmt.Errorf("%w: limits must not be negative", ErrValidation)
	}

	now := time.Now()
	if !d.GetExpiryDate().After(now) {
		return nil, fmt.Errorf("%w: expiry date must be in the future", ErrValidation)
	}

	coupon := &models.Coupon{
		ID:           primitive.NewObjectID(),
		Kind:         d.GetKind(),
		DiscountType: d.GetDiscountType(),
		ExpiryDate:   d.GetExpiryDate(),
		Status:       constants.CouponStatusAvailable.String(),
		CreatedAt:    now,
		UpdatedAt:    now,
		CreatedBy:    d.GetOperator(),
	}
	switch d.GetKind() {
	case constants.CouponKindPublic:
		code := strings.ToUpper(strings.TrimSpace(d.GetCode()))
		if code == "" {
			return nil, fmt.Errorf("%w: public coupons need a code", ErrValidation)
		}
		coupon.Code = code
		coupon.UsageLimit = d.GetUsageLimit()
		coupon.PerUserLimit = d.GetPerUserLimit()
	case constants.CouponKindIssued:
		if d.GetOwnerID() == nil || d.GetOwnerID().IsZero() {
			return nil, fmt.Errorf("%w: issued coupons need an owner", ErrValidation)
		}
		coupon.OwnerID = d.GetOwnerID()
		coupon.UsageLimit = 1
	default:
		return nil, fmt.Errorf("%w: unknown coupon kind %q", ErrValidation, d.GetKind())
	}

	var err error
	if coupon.DiscountValue, err = helper.ToMoney128(d.GetDiscountValue()); err != nil {
		return nil, fmt.Errorf("%w: invalid discount value", ErrValidation)
	}
	if coupon.MinInvoiceAmount, err = helper.ToMoney128(d.GetMinInvoice()); err != nil {
		return nil, fmt.Errorf("%w: invalid minimum", ErrValidation)
	}

	if _, err := l.couponRepo.CreateCoupon(ctx, coupon); err != nil {
		if errors.Is(err, mongodb.ErrDuplicate) {
			return nil, fmt.Errorf("coupon code %q already exists: %w", coupon.Code, ErrConflict)
		}
		return nil, fmt.Errorf("failed to create coupon in repository: %w", err)
	}

	if err := l.auditLogRepo.Create(ctx, buildCreateCouponAuditLog(d.GetOperator(), coupon)); err != nil {
		l.logger.Error("CreateCoupon: Failed to create audit log", zap.Error(err))
	}
	return coupon, nil
}

// ExpireCoupons flags available coupons past their expiry date. Validation already rejects them
// by date; this keeps the stored status and the coupon listings honest.
func (l *couponLogic) ExpireCoupons(ctx context.Context) (int64, error) {
	n, err := l.couponRepo.ExpireCoupons(ctx, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to expire coupons: %w", err)
	}
	if n > 0 {
		l.logger.Info("expired coupons", zap.Int64("count", n))
	}
	return n, nil
}

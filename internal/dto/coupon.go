package dto

import (
	"time"

	"petcare_settlement/internal/models"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- CreateCoupon DTOs ---

type CreateCouponRequest struct {
	kind          string
	code          string
	ownerID       *primitive.ObjectID
	discountType  string
	discountValue decimal.Decimal
	minInvoice    decimal.Decimal
	expiryDate    time.Time
	usageLimit    int
	perUserLimit  int
	operator      *models.User
}

func NewCreateCouponRequest(kind, code string, ownerID *primitive.ObjectID, discountType string, discountValue, minInvoice decimal.Decimal, expiryDate time.Time, usageLimit, perUserLimit int, operator *models.User) *CreateCouponRequest {
	return &CreateCouponRequest{
		kind:          kind,
		code:          code,
		ownerID:       ownerID,
		discountType:  discountType,
		discountValue: discountValue,
		minInvoice:    minInvoice,
		expiryDate:    expiryDate,
		usageLimit:    usageLimit,
		perUserLimit:  perUserLimit,
		operator:      operator,
	}
}

func (r *CreateCouponRequest) GetKind() string                   { return r.kind }
func (r *CreateCouponRequest) GetCode() string                   { return r.code }
func (r *CreateCouponRequest) GetOwnerID() *primitive.ObjectID   { return r.ownerID }
func (r *CreateCouponRequest) GetDiscountType() string           { return r.discountType }
func (r *CreateCouponRequest) GetDiscountValue() decimal.Decimal { return r.discountValue }
func (r *CreateCouponRequest) GetMinInvoice() decimal.Decimal    { return r.minInvoice }
func (r *CreateCouponRequest) GetExpiryDate() time.Time          { return r.expiryDate }
func (r *CreateCouponRequest) GetUsageLimit() int                { return r.usageLimit }
func (r *CreateCouponRequest) GetPerUserLimit() int              { return r.perUserLimit }
func (r *CreateCouponRequest) GetOperator() *models.User         { return r.operator }

// CouponPreview is the result of validating a coupon against an invoice total.
type CouponPreview struct {
	CouponID     string `json:"couponId"`
	Kind         string `json:"kind"`
	Code         string `json:"code,omitempty"`
	DiscountType string `json:"discountType"`
	Discount     string `json:"discount"`
	AmountDue    string `json:"amountDue"`
	ExpiryDate   string `json:"expiryDate"`
}

package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Coupon covers both public codes and issued grants. Kind decides which fields apply:
// public coupons use Code and the usage limits, issued coupons use OwnerID.
type Coupon struct {
	ID               primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Kind             string               `bson:"kind" json:"kind"`
	Code             string               `bson:"code,omitempty" json:"code,omitempty"`
	OwnerID          *primitive.ObjectID  `bson:"owner_id,omitempty" json:"owner_id,omitempty"`
	DiscountType     string               `bson:"discount_type" json:"discount_type"`
	DiscountValue    primitive.Decimal128 `bson:"discount_value" json:"discount_value"`
	MinInvoiceAmount primitive.Decimal128 `bson:"min_invoice_amount" json:"min_invoice_amount"`
	ExpiryDate       time.Time            `bson:"expiry_date" json:"expiry_date"`
	Status           string               `bson:"status" json:"status"`
	UsageLimit       int                  `bson:"usage_limit" json:"usage_limit"`
	PerUserLimit     int                  `bson:"per_user_limit" json:"per_user_limit"`
	UsedCount        int                  `bson:"used_count" json:"used_count"`
	ConsumedAt       *time.Time           `bson:"consumed_at,omitempty" json:"consumed_at,omitempty"`
	CreatedAt        time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time            `bson:"updated_at" json:"updated_at"`
	CreatedBy        *User                `bson:"created_by,omitempty" json:"created_by,omitempty"`
}

// CouponRedemption records one consumption of a coupon by one payment.
type CouponRedemption struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty"`
	CouponID  primitive.ObjectID   `bson:"coupon_id"`
	UserID    primitive.ObjectID   `bson:"user_id"`
	PaymentID primitive.ObjectID   `bson:"payment_id"`
	InvoiceID primitive.ObjectID   `bson:"invoice_id"`
	Discount  primitive.Decimal128 `bson:"discount"`
	CreatedAt time.Time            `bson:"created_at"`
}

package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Payment struct {
	ID              primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	InvoiceID       primitive.ObjectID   `bson:"invoice_id" json:"invoice_id"`
	UserID          primitive.ObjectID   `bson:"user_id" json:"user_id"`
	Channel         string               `bson:"channel" json:"channel"`
	Method          string               `bson:"method" json:"method"`
	Amount          primitive.Decimal128 `bson:"amount" json:"amount"`
	Discount        primitive.Decimal128 `bson:"discount" json:"discount"`
	Currency        string               `bson:"currency" json:"currency"`
	CouponID        *primitive.ObjectID  `bson:"coupon_id,omitempty" json:"coupon_id,omitempty"`
	Status          string               `bson:"status" json:"status"`
	GatewayIntentID string               `bson:"gateway_intent_id,omitempty" json:"gateway_intent_id,omitempty"`
	IdempotencyKey  string               `bson:"idempotency_key,omitempty" json:"-"`
	FailureReason   string               `bson:"failure_reason,omitempty" json:"failure_reason,omitempty"`
	FailureMessage  string               `bson:"failure_message,omitempty" json:"failure_message,omitempty"`
	SucceededAt     *time.Time           `bson:"succeeded_at,omitempty" json:"succeeded_at,omitempty"`
	RefundedAt      *time.Time           `bson:"refunded_at,omitempty" json:"refunded_at,omitempty"`
	GatewayRefundID string               `bson:"gateway_refund_id,omitempty" json:"gateway_refund_id,omitempty"`
	ReconciledBy    *User                `bson:"reconciled_by,omitempty" json:"reconciled_by,omitempty"`
	CreatedAt       time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time            `bson:"updated_at" json:"updated_at"`
}

// PendingFinalization is written before the gateway is asked to open an intent. It stays
// pending until the payment reaches a terminal state locally, so a crash or a failed commit
// after the gateway reported success can be replayed.
type PendingFinalization struct {
	ID             primitive.ObjectID  `bson:"_id,omitempty"`
	PaymentID      primitive.ObjectID  `bson:"payment_id"`
	InvoiceID      primitive.ObjectID  `bson:"invoice_id"`
	CouponID       *primitive.ObjectID `bson:"coupon_id,omitempty"`
	IntentID       string              `bson:"intent_id,omitempty"`
	IdempotencyKey string              `bson:"idempotency_key"`
	Status         string              `bson:"status"`
	Attempts       int                 `bson:"attempts"`
	LastError      string              `bson:"last_error,omitempty"`
	CreatedAt      time.Time           `bson:"created_at"`
	UpdatedAt      time.Time           `bson:"updated_at"`
}

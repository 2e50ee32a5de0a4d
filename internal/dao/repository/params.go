package repository

import (
	"time"

	"petcare_settlement/internal/constants"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Parameter Structs ---

type GetInvoicesByUserParams struct {
	UserID          primitive.ObjectID
	Limit           int64
	CursorCreatedAt time.Time
	CursorID        primitive.ObjectID
}

// TransitionInvoiceParams describes a conditional status change. The update only applies
// while the invoice is still in From and, when CheckActivePayment is set, while its active
// payment equals ActivePayment (nil meaning none).
type TransitionInvoiceParams struct {
	InvoiceID          primitive.ObjectID
	From               constants.InvoiceStatus
	To                 constants.InvoiceStatus
	CheckActivePayment bool
	ActivePayment      *primitive.ObjectID
}

// SwapActivePaymentParams replaces the payment currently settling a pending invoice.
type SwapActivePaymentParams struct {
	InvoiceID primitive.ObjectID
	Expected  *primitive.ObjectID
	Next      *primitive.ObjectID
}

type GetAvailableCouponsParams struct {
	OwnerID      primitive.ObjectID
	InvoiceTotal primitive.Decimal128
	Now          time.Time
}

type ConsumeCouponParams struct {
	CouponID primitive.ObjectID
	Now      time.Time
}

type TransitionPaymentParams struct {
	PaymentID primitive.ObjectID
	From      constants.PaymentStatus
	To        constants.PaymentStatus
}

type ListPaymentsParams struct {
	Status    string
	InvoiceID *primitive.ObjectID
	Skip      int64
	Limit     int64
}

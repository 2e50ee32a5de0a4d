package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Invoice struct {
	ID               primitive.ObjectID    `bson:"_id,omitempty" json:"id"`
	Serial           uint64                `bson:"serial" json:"serial"`
	UserID           primitive.ObjectID    `bson:"user_id" json:"user_id"`
	Source           string                `bson:"source,omitempty" json:"source,omitempty"` // booking reference, e.g. appointment id
	Currency         string                `bson:"currency" json:"currency"`
	LineItems        []LineItem            `bson:"line_items" json:"line_items"`
	SubtotalOverride *primitive.Decimal128 `bson:"subtotal_override,omitempty" json:"subtotal_override,omitempty"`
	Subtotal         primitive.Decimal128  `bson:"subtotal" json:"subtotal"`
	TaxRate          primitive.Decimal128  `bson:"tax_rate" json:"tax_rate"`
	Tax              primitive.Decimal128  `bson:"tax" json:"tax"`
	Total            primitive.Decimal128  `bson:"total" json:"total"`
	Status           string                `bson:"status" json:"status"`
	DueDate          time.Time             `bson:"due_date" json:"due_date"`
	ActivePayment    *primitive.ObjectID   `bson:"active_payment" json:"active_payment,omitempty"`
	PaidAt           *time.Time            `bson:"paid_at,omitempty" json:"paid_at,omitempty"`
	CancelledAt      *time.Time            `bson:"cancelled_at,omitempty" json:"cancelled_at,omitempty"`
	RefundedAt       *time.Time            `bson:"refunded_at,omitempty" json:"refunded_at,omitempty"`
	CreatedAt        time.Time             `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time             `bson:"updated_at" json:"updated_at"`
	UpdatedBy        *User                 `bson:"updated_by,omitempty" json:"updated_by,omitempty"`
}

type LineItem struct {
	Description string               `bson:"description" json:"description"`
	Quantity    uint32               `bson:"quantity" json:"quantity"`
	UnitPrice   primitive.Decimal128 `bson:"unit_price" json:"unit_price"`
	LineTotal   primitive.Decimal128 `bson:"line_total" json:"line_total"`
}

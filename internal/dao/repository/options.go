package repository

import (
	"time"

	"petcare_settlement/internal/dao/fields"
	"petcare_settlement/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ------------------- UpdateOptions -------------------

// UpdateOptions holds the fields for a MongoDB update operation built with functional options.
type UpdateOptions struct {
	SetFields bson.M
	IncFields bson.M
}

func NewUpdateOptions() *UpdateOptions {
	return &UpdateOptions{
		SetFields: bson.M{},
		IncFields: bson.M{},
	}
}

// UpdateOption defines a function that can modify the UpdateOptions.
type UpdateOption func(*UpdateOptions)

// Apply collects opts into a single UpdateOptions.
func Apply(opts ...UpdateOption) *UpdateOptions {
	u := NewUpdateOptions()
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Document builds the $set/$inc update document. updated_at is always stamped.
func (u *UpdateOptions) Document(now time.Time) bson.M {
	u.SetFields[fields.FieldUpdatedAt] = now
	update := bson.M{"$set": u.SetFields}
	if len(u.IncFields) > 0 {
		update["$inc"] = u.IncFields
	}
	return update
}

func WithStatus(status string) UpdateOption {
	return func(o *UpdateOptions) {
		o.SetFields[fields.FieldStatus] = status
	}
}

func WithUpdatedBy(user *models.User) UpdateOption {
	return func(o *UpdateOptions) {
		o.SetFields[fields.FieldUpdatedBy] = user
	}
}

func WithActivePayment(paymentID *primitive.ObjectID) UpdateOption {
	return func(o *UpdateOptions) {
		o.SetFields[fields.FieldInvoiceActivePayment] = paymentID
	}
}

func WithPaidAt(t time.Time) UpdateOption {
	return func(o *UpdateOptions) {
		o.SetFields[fields.FieldInvoicePaidAt] = t
	}
}

func WithCancelledAt(t time.Time) UpdateOption {
	return func(o *UpdateOptions) {
		o.SetFields[fields.FieldInvoiceCancelledAt] = t
	}
}

// WithRefundedAt applies to both invoices and payments; the field name is shared.
func WithRefundedAt(t time.Time) UpdateOption {
	return func(o *UpdateOptions) {
		o.SetFields[fields.FieldInvoiceRefundedAt] = t
	}
}

func WithGatewayIntentID(intentID string) UpdateOption {
	return func(o *UpdateOptions) {
		o.SetFields[fields.FieldPaymentGatewayIntentID] = intentID
	}
}

func WithGatewayRefundID(refundID string) UpdateOption {
	return func(o *UpdateOptions) {
		o.SetFields[fields.FieldPaymentGatewayRefundID] = refundID
	}
}

// WithFailure records why a payment did not succeed.
func WithFailure(reason, message string) UpdateOption {
	return func(o *UpdateOptions) {
		o.SetFields[fields.FieldPaymentFailureReason] = reason
		if message != "" {
			o.SetFields[fields.FieldPaymentFailureMessage] = message
		}
	}
}

func WithSucceededAt(t time.Time) UpdateOption {
	return func(o *UpdateOptions) {
		o.SetFields[fields.FieldPaymentSucceededAt] = t
	}
}

func WithReconciledBy(user *models.User) UpdateOption {
	return func(o *UpdateOptions) {
		o.SetFields[fields.FieldPaymentReconciledBy] = user
	}
}

package logic

import (
	"time"

	"petcare_settlement/internal/constants"
	"petcare_settlement/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AuditLogOption func(*models.AuditLog)

func WithReason(reason string) AuditLogOption {
	return func(log *models.AuditLog) {
		if reason != "" {
			log.Reason = reason
		}
	}
}

// WithDetails attaches free-form context such as the coupon or intent involved.
func WithDetails(details map[string]interface{}) AuditLogOption {
	return func(log *models.AuditLog) {
		if len(details) > 0 {
			log.Details = details
		}
	}
}

// NewAuditLog builds an entry attributed to user, or to the system when user is nil.
func NewAuditLog(user *models.User, action, entityType string, entityID primitive.ObjectID, before, after interface{}, opts ...AuditLogOption) *models.AuditLog {
	if user == nil {
		user = models.SystemUser
	}
	log := &models.AuditLog{
		ID:           primitive.NewObjectID(),
		OperatorID:   user.UserId,
		OperatorName: user.Name,
		Action:       action,
		EntityType:   entityType,
		EntityID:     entityID,
		Before:       before,
		After:        after,
		CreatedAt:    time.Now(),
	}

	for _, opt := range opts {
		opt(log)
	}

	return log
}

func statusChange(from, to string) (map[string]interface{}, map[string]interface{}) {
	return map[string]interface{}{"status": from}, map[string]interface{}{"status": to}
}

func buildCreateInvoiceAuditLog(operator *models.User, invoice *models.Invoice) *models.AuditLog {
	return NewAuditLog(operator, constants.AuditActionCreateInvoice, constants.AuditEntityInvoice, invoice.ID, nil, invoice)
}

func buildInvoiceStatusAuditLog(operator *models.User, action string, invoiceID primitive.ObjectID, from, to constants.InvoiceStatus, reason string) *models.AuditLog {
	before, after := statusChange(from.String(), to.String())
	return NewAuditLog(operator, action, constants.AuditEntityInvoice, invoiceID, before, after, WithReason(reason))
}

func buildCreatePaymentAuditLog(operator *models.User, payment *models.Payment) *models.AuditLog {
	return NewAuditLog(operator, constants.AuditActionCreatePayment, constants.AuditEntityPayment, payment.ID, nil, payment)
}

// buildFinalizePaymentAuditLog records the payment and invoice moving together.
func buildFinalizePaymentAuditLog(operator *models.User, payment *models.Payment) *models.AuditLog {
	before, after := statusChange(constants.PaymentStatusPending.String(), constants.PaymentStatusSucceeded.String())
	details := map[string]interface{}{
		"invoice_id": payment.InvoiceID.Hex(),
		"channel":    payment.Channel,
		"amount":     payment.Amount.String(),
	}
	if payment.GatewayIntentID != "" {
		details["intent_id"] = payment.GatewayIntentID
	}
	return NewAuditLog(operator, constants.AuditActionFinalizePayment, constants.AuditEntityPayment, payment.ID, before, after, WithDetails(details))
}

func buildFailPaymentAuditLog(operator *models.User, paymentID primitive.ObjectID, reason string) *models.AuditLog {
	before, after := statusChange(constants.PaymentStatusPending.String(), constants.PaymentStatusFailed.String())
	return NewAuditLog(operator, constants.AuditActionFailPayment, constants.AuditEntityPayment, paymentID, before, after, WithReason(reason))
}

func buildConsumeCouponAuditLog(operator *models.User, before, after *models.Coupon, paymentID primitive.ObjectID) *models.AuditLog {
	return NewAuditLog(operator, constants.AuditActionConsumeCoupon, constants.AuditEntityCoupon, before.ID,
		map[string]interface{}{"status": before.Status, "used_count": before.UsedCount},
		map[string]interface{}{"status": after.Status, "used_count": after.UsedCount},
		WithDetails(map[string]interface{}{"payment_id": paymentID.Hex()}),
	)
}

func buildCreateCouponAuditLog(operator *models.User, coupon *models.Coupon) *models.AuditLog {
	return NewAuditLog(operator, constants.AuditActionCreateCoupon, constants.AuditEntityCoupon, coupon.ID, nil, coupon)
}

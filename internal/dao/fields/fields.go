package fields

const (
	FieldObjectId  = "_id"
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
	FieldUpdatedBy = "updated_by"
	FieldStatus    = "status"
	FieldUserID    = "user_id"

	FieldInvoiceSerial        = "serial"
	FieldInvoiceSource        = "source"
	FieldInvoiceActivePayment = "active_payment"
	FieldInvoicePaidAt        = "paid_at"
	FieldInvoiceCancelledAt   = "cancelled_at"
	FieldInvoiceRefundedAt    = "refunded_at"

	FieldCouponKind       = "kind"
	FieldCouponCode       = "code"
	FieldCouponOwnerID    = "owner_id"
	FieldCouponExpiryDate = "expiry_date"
	FieldCouponUsageLimit = "usage_limit"
	FieldCouponUsedCount  = "used_count"
	FieldCouponConsumedAt = "consumed_at"
	FieldCouponMinInvoice = "min_invoice_amount"

	FieldRedemptionCouponID  = "coupon_id"
	FieldRedemptionPaymentID = "payment_id"

	FieldPaymentInvoiceID       = "invoice_id"
	FieldPaymentChannel         = "channel"
	FieldPaymentGatewayIntentID = "gateway_intent_id"
	FieldPaymentFailureReason   = "failure_reason"
	FieldPaymentFailureMessage  = "failure_message"
	FieldPaymentSucceededAt     = "succeeded_at"
	FieldPaymentRefundedAt      = "refunded_at"
	FieldPaymentGatewayRefundID = "gateway_refund_id"
	FieldPaymentReconciledBy    = "reconciled_by"

	FieldFinalizationPaymentID = "payment_id"
	FieldFinalizationIntentID  = "intent_id"
	FieldFinalizationAttempts  = "attempts"
	FieldFinalizationLastError = "last_error"

	FieldAuditEntityType = "entity_type"
	FieldAuditEntityID   = "entity_id"

	FieldOutboxClaimID     = "claim_id"
	FieldOutboxRetries     = "retries"
	FieldOutboxError       = "error"
	FieldOutboxProcessedAt = "processed_at"
)

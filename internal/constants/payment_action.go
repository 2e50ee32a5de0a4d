package constants

// PaymentAction names a payment lifecycle event published through the outbox.
type PaymentAction string

const (
	PaymentActionCreate    PaymentAction = "create"
	PaymentActionSucceed   PaymentAction = "succeed"
	PaymentActionFail      PaymentAction = "fail"
	PaymentActionCancel    PaymentAction = "cancel"
	PaymentActionRefund    PaymentAction = "refund"
	PaymentActionReconcile PaymentAction = "reconcile"
)

func (p PaymentAction) String() string {
	return string(p)
}

// Audit log actions.
const (
	AuditActionCreateInvoice   = "CREATE_INVOICE"
	AuditActionIssueInvoice    = "ISSUE_INVOICE"
	AuditActionCancelInvoice   = "CANCEL_INVOICE"
	AuditActionRefundInvoice   = "REFUND_INVOICE"
	AuditActionCreatePayment   = "CREATE_PAYMENT"
	AuditActionFinalizePayment = "FINALIZE_PAYMENT"
	AuditActionFailPayment     = "FAIL_PAYMENT"
	AuditActionConsumeCoupon   = "CONSUME_COUPON"
	AuditActionCreateCoupon    = "CREATE_COUPON"
)

const (
	AuditEntityInvoice = "invoice"
	AuditEntityPayment = "payment"
	AuditEntityCoupon  = "coupon"
)

package constants

const (
	PaymentChannelOnline  = "online"
	PaymentChannelOffline = "offline"
)

// Payment methods. Online payments are always card payments through the gateway.
const (
	PaymentMethodCard         = "card"
	PaymentMethodCash         = "cash"
	PaymentMethodCardTerminal = "card_terminal"
	PaymentMethodBankTransfer = "bank_transfer"
)

var offlineMethods = map[string]struct{}{
	PaymentMethodCash:         {},
	PaymentMethodCardTerminal: {},
	PaymentMethodBankTransfer: {},
}

func IsOfflineMethod(m string) bool {
	_, ok := offlineMethods[m]
	return ok
}

type PaymentStatus int

const (
	PaymentStatusUnknown PaymentStatus = iota
	PaymentStatusPending
	PaymentStatusSucceeded
	PaymentStatusFailed
)

func (s PaymentStatus) String() string {
	switch s {
	case PaymentStatusPending:
		return "pending"
	case PaymentStatusSucceeded:
		return "succeeded"
	case PaymentStatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

var paymentStatusMap = map[string]PaymentStatus{
	"pending":   PaymentStatusPending,
	"succeeded": PaymentStatusSucceeded,
	"failed":    PaymentStatusFailed,
	"unknown":   PaymentStatusUnknown,
}

func ParsePaymentStatus(s string) PaymentStatus {
	if status, ok := paymentStatusMap[s]; ok {
		return status
	}
	return PaymentStatusUnknown
}

// Failure reasons recorded on payments that did not succeed.
const (
	FailureReasonGatewayRejected = "gateway_rejected"
	FailureReasonGatewayFailed   = "gateway_failed"
	FailureReasonSuperseded      = "superseded"
	FailureReasonStale           = "stale"
	FailureReasonInvoiceCanceled = "invoice_cancelled"
	FailureReasonDuplicate       = "duplicate_refunded"

	// The coupon was used up by another payment before this one settled; the charge is refunded.
	FailureReasonCouponConflict = "coupon_conflict"

	// The gateway call itself failed; an intent may exist under the idempotency key.
	FailureReasonGatewayUnavailable = "gateway_unavailable"
)

const (
	FinalizationStatusPending   = "pending"
	FinalizationStatusCompleted = "completed"
	FinalizationStatusAbandoned = "abandoned"
)

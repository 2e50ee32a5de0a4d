package constants

type InvoiceStatus int

const (
	InvoiceStatusUnknown InvoiceStatus = iota
	InvoiceStatusDraft
	InvoiceStatusPending
	InvoiceStatusPaid
	InvoiceStatusRefunded
	InvoiceStatusCancelled
)

func (s InvoiceStatus) String() string {
	switch s {
	case InvoiceStatusDraft:
		return "draft"
	case InvoiceStatusPending:
		return "pending"
	case InvoiceStatusPaid:
		return "paid"
	case InvoiceStatusRefunded:
		return "refunded"
	case InvoiceStatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

var invoiceStatusMap = map[string]InvoiceStatus{
	"draft":     InvoiceStatusDraft,
	"pending":   InvoiceStatusPending,
	"paid":      InvoiceStatusPaid,
	"refunded":  InvoiceStatusRefunded,
	"cancelled": InvoiceStatusCancelled,
	"unknown":   InvoiceStatusUnknown,
}

func ParseInvoiceStatus(s string) InvoiceStatus {
	if status, ok := invoiceStatusMap[s]; ok {
		return status
	}
	return InvoiceStatusUnknown
}

// invoiceTransitions lists, for every status, the statuses it may move to.
var invoiceTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceStatusDraft:   {InvoiceStatusPending, InvoiceStatusCancelled},
	InvoiceStatusPending: {InvoiceStatusPaid, InvoiceStatusCancelled},
	InvoiceStatusPaid:    {InvoiceStatusRefunded},
}

// CanTransitionTo reports whether the invoice state machine allows s -> next.
func (s InvoiceStatus) CanTransitionTo(next InvoiceStatus) bool {
	for _, allowed := range invoiceTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsPayable reports whether new payments may be opened against an invoice in this status.
func (s InvoiceStatus) IsPayable() bool {
	return s == InvoiceStatusPending
}

package mongodb

const (
	CollectionInvoices          = "invoices"
	CollectionCoupons           = "coupons"
	CollectionCouponRedemptions = "coupon_redemptions"
	CollectionPayments          = "payments"
	CollectionFinalizations     = "pending_finalizations"
	CollectionOutbox            = "outbox"
	CollectionAuditLogs         = "audit_logs"
)

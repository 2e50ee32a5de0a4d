package constants

const (
	CouponKindPublic = "public"
	CouponKindIssued = "issued"
)

const (
	DiscountTypeFlat    = "flat"
	DiscountTypePercent = "percent"
)

type CouponStatus int

const (
	CouponStatusUnknown CouponStatus = iota
	CouponStatusAvailable
	CouponStatusConsumed
	CouponStatusExpired
)

func (s CouponStatus) String() string {
	switch s {
	case CouponStatusAvailable:
		return "available"
	case CouponStatusConsumed:
		return "consumed"
	case CouponStatusExpired:
		return "expired"
	default:
		return "unknown"
	}
}

var couponStatusMap = map[string]CouponStatus{
	"available": CouponStatusAvailable,
	"consumed":  CouponStatusConsumed,
	"expired":   CouponStatusExpired,
	"unknown":   CouponStatusUnknown,
}

func ParseCouponStatus(s string) CouponStatus {
	if status, ok := couponStatusMap[s]; ok {
		return status
	}
	return CouponStatusUnknown
}

func IsValidDiscountType(t string) bool {
	return t == DiscountTypeFlat || t == DiscountTypePercent
}

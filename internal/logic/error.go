package logic

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("permission denied")
	ErrCouponExpired      = errors.New("coupon has expired")
	ErrCouponBelowMinimum = errors.New("invoice total is below the coupon minimum")
	ErrCouponExhausted    = errors.New("coupon usage limit reached")
	ErrInvalidState       = errors.New("invalid state for this operation")
	ErrConflict           = errors.New("concurrent modification")
	ErrGateway            = errors.New("payment gateway error")
	ErrValidation         = errors.New("validation failed")
	ErrAlreadyFinalized   = errors.New("payment has already been finalized")
)

// ErrCouponUnavailable means the coupon a payment was opened with was used up before the
// payment could be finalized.
var ErrCouponUnavailable = fmt.Errorf("coupon can no longer be redeemed: %w", ErrConflict)

// IsCouponIneligible reports whether err means the coupon cannot be applied to the invoice.
func IsCouponIneligible(err error) bool {
	return errors.Is(err, ErrCouponExpired) ||
		errors.Is(err, ErrCouponBelowMinimum) ||
		errors.Is(err, ErrCouponExhausted)
}

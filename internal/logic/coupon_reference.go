package logic

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CouponReference names the coupon a customer wants to apply: either a public code or the id
// of a coupon issued to them.
type CouponReference interface {
	couponReference()
	String() string
}

type PublicCode struct {
	Code string
}

type IssuedCoupon struct {
	ID primitive.ObjectID
}

func (PublicCode) couponReference()   {}
func (IssuedCoupon) couponReference() {}

func (r PublicCode) String() string   { return "code:" + r.Code }
func (r IssuedCoupon) String() string { return "issued:" + r.ID.Hex() }

// ParseCouponReference builds a reference from request fields. Both empty means no coupon.
func ParseCouponReference(couponID, couponCode string) (CouponReference, error) {
	couponID = strings.TrimSpace(couponID)
	couponCode = strings.TrimSpace(couponCode)
	switch {
	case couponID != "" && couponCode != "":
		return nil, fmt.Errorf("%w: couponId and couponCode are mutually exclusive", ErrValidation)
	case couponID != "":
		id, err := primitive.ObjectIDFromHex(couponID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid couponId", ErrValidation)
		}
		return IssuedCoupon{ID: id}, nil
	case couponCode != "":
		return PublicCode{Code: strings.ToUpper(couponCode)}, nil
	default:
		return nil, nil
	}
}

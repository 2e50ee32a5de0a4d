package logic

import (
	"fmt"

	"petcare_settlement/internal/constants"
	"petcare_settlement/internal/helper"
	"petcare_settlement/internal/models"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var hundred = decimal.NewFromInt(100)

// Totals are the server computed amounts of an invoice.
type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// ComputeTotals sums the line items (or takes the override), applies taxRate and rounds
// every step to cents.
func ComputeTotals(items []models.LineItem, override *primitive.Decimal128, taxRate decimal.Decimal) (Totals, error) {
	subtotal := decimal.Zero
	if override != nil {
		v, err := helper.ToDecimal(*override)
		if err != nil {
			return Totals{}, fmt.Errorf("invalid subtotal override: %w", err)
		}
		subtotal = helper.RoundMoney(v)
	} else {
		for i, item := range items {
			price, err := helper.ToDecimal(item.UnitPrice)
			if err != nil {
				return Totals{}, fmt.Errorf("invalid unit price on line %d: %w", i, err)
			}
			subtotal = subtotal.Add(lineTotal(item.Quantity, price))
		}
	}

	tax := helper.RoundMoney(subtotal.Mul(taxRate))
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}, nil
}

func lineTotal(quantity uint32, unitPrice decimal.Decimal) decimal.Decimal {
	return helper.RoundMoney(unitPrice.Mul(decimal.NewFromInt(int64(quantity))))
}

// ComputeDiscount returns min(raw, total) where raw is the flat value or the percentage of
// total. The result is never negative.
func ComputeDiscount(discountType string, value, total decimal.Decimal) decimal.Decimal {
	var raw decimal.Decimal
	switch discountType {
	case constants.DiscountTypeFlat:
		raw = value
	case constants.DiscountTypePercent:
		raw = total.Mul(value).Div(hundred)
	default:
		return decimal.Zero
	}
	raw = helper.RoundMoney(raw)
	if raw.IsNegative() {
		return decimal.Zero
	}
	return decimal.Min(raw, total)
}

// Quote is what a customer owes for an invoice after an optional coupon.
type Quote struct {
	Total     decimal.Decimal
	Discount  decimal.Decimal
	AmountDue decimal.Decimal
	Coupon    *models.Coupon
}

func newQuote(total decimal.Decimal, cq *CouponQuote) *Quote {
	q := &Quote{Total: total, Discount: decimal.Zero, AmountDue: total}
	if cq != nil {
		q.Coupon = cq.Coupon
		q.Discount = cq.Discount
		q.AmountDue = total.Sub(cq.Discount)
	}
	return q
}

func (q *Quote) couponID() *primitive.ObjectID {
	if q.Coupon == nil {
		return nil
	}
	id := q.Coupon.ID
	return &id
}

package logic

import (
	"testing"

	"petcare_settlement/internal/constants"
	"petcare_settlement/internal/helper"
	"petcare_settlement/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputeTotals(t *testing.T) {
	rate := money("0.08")

	t.Run("LineItems", func(t *testing.T) {
		items := []models.LineItem{
			{Description: "Vaccination", Quantity: 2, UnitPrice: helper.MustMoney128(money("350.00"))},
			{Description: "Exam", Quantity: 1, UnitPrice: helper.MustMoney128(money("300.00"))},
		}
		totals, err := ComputeTotals(items, nil, rate)
		require.NoError(t, err)
		assert.Equal(t, "1000.00", totals.Subtotal.StringFixed(2))
		assert.Equal(t, "80.00", totals.Tax.StringFixed(2))
		assert.Equal(t, "1080.00", totals.Total.StringFixed(2))
	})

	t.Run("OverrideWins", func(t *testing.T) {
		items := []models.LineItem{{Description: "Grooming", Quantity: 1, UnitPrice: helper.MustMoney128(money("10.00"))}}
		override := helper.MustMoney128(money("1000"))
		totals, err := ComputeTotals(items, &override, rate)
		require.NoError(t, err)
		assert.Equal(t, "1080.00", totals.Total.StringFixed(2))
	})

	t.Run("TaxRounded", func(t *testing.T) {
		items := []models.LineItem{{Description: "Treats", Quantity: 1, UnitPrice: helper.MustMoney128(money("0.31"))}}
		totals, err := ComputeTotals(items, nil, rate)
		require.NoError(t, err)
		// 0.31 * 0.08 = 0.0248
		assert.Equal(t, "0.02", totals.Tax.StringFixed(2))
		assert.Equal(t, "0.33", totals.Total.StringFixed(2))
	})

	t.Run("Empty", func(t *testing.T) {
		totals, err := ComputeTotals(nil, nil, rate)
		require.NoError(t, err)
		assert.True(t, totals.Total.IsZero())
	})
}

func TestComputeDiscount(t *testing.T) {
	total := money("1080.00")
	tests := []struct {
		name         string
		discountType string
		value        string
		total        decimal.Decimal
		want         string
	}{
		{"Flat", constants.DiscountTypeFlat, "200", total, "200.00"},
		{"Percent", constants.DiscountTypePercent, "15", total, "162.00"},
		{"FlatCappedAtTotal", constants.DiscountTypeFlat, "5000", total, "1080.00"},
		{"FullPercent", constants.DiscountTypePercent, "100", total, "1080.00"},
		{"PercentRounds", constants.DiscountTypePercent, "12.5", money("0.99"), "0.12"},
		{"UnknownType", "bogus", "10", total, "0.00"},
		{"ZeroTotal", constants.DiscountTypeFlat, "10", decimal.Zero, "0.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeDiscount(tt.discountType, money(tt.value), tt.total)
			assert.Equal(t, tt.want, got.StringFixed(2))
		})
	}
}

func TestNewQuote(t *testing.T) {
	total := money("1080.00")

	q := newQuote(total, nil)
	assert.Equal(t, "1080.00", q.AmountDue.StringFixed(2))
	assert.Nil(t, q.couponID())

	coupon := &models.Coupon{Kind: constants.CouponKindPublic}
	q = newQuote(total, &CouponQuote{Coupon: coupon, Discount: money("200")})
	assert.Equal(t, "880.00", q.AmountDue.StringFixed(2))
	require.NotNil(t, q.couponID())
	assert.Equal(t, coupon.ID, *q.couponID())
}

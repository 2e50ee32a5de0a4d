package helper

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MoneyPlaces is the number of fractional digits kept for every monetary amount.
const MoneyPlaces = 2

var hundred = decimal.NewFromInt(100)

// ToDecimal converts a stored primitive.Decimal128 into a decimal.Decimal.
// The zero Decimal128 value converts to zero.
func ToDecimal(d primitive.Decimal128) (decimal.Decimal, error) {
	if d.IsNaN() || d.IsInf() != 0 {
		return decimal.Zero, fmt.Errorf("cannot convert special Decimal128 value %s", d.String())
	}
	v, err := decimal.NewFromString(d.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse Decimal128 '%s': %w", d.String(), err)
	}
	return v, nil
}

// ToMoney128 rounds d half-up to two places and converts it for storage.
func ToMoney128(d decimal.Decimal) (primitive.Decimal128, error) {
	out, err := primitive.ParseDecimal128(RoundMoney(d).StringFixed(MoneyPlaces))
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("failed to convert %s to Decimal128: %w", d.String(), err)
	}
	return out, nil
}

// ToDecimal128 converts d for storage without rounding. Used for rates.
func ToDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	out, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("failed to convert %s to Decimal128: %w", d.String(), err)
	}
	return out, nil
}

// MustMoney128 is ToMoney128 for values that are known to be finite. It panics otherwise.
func MustMoney128(d decimal.Decimal) primitive.Decimal128 {
	out, err := ToMoney128(d)
	if err != nil {
		panic(err)
	}
	return out
}

// RoundMoney rounds half away from zero to two places.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// ParseMoney parses a client supplied amount. Amounts must be non-negative and carry at
// most two fractional digits.
func ParseMoney(s string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if v.IsNegative() {
		return decimal.Zero, errors.New("amount must not be negative")
	}
	if !v.Equal(RoundMoney(v)) {
		return decimal.Zero, fmt.Errorf("amount %q has more than %d decimal places", s, MoneyPlaces)
	}
	return v, nil
}

// ToMinorUnits converts an amount to the integer minor-unit value gateways expect (cents).
func ToMinorUnits(d decimal.Decimal) int64 {
	return RoundMoney(d).Mul(hundred).IntPart()
}

// FromMinorUnits is the inverse of ToMinorUnits.
func FromMinorUnits(v int64) decimal.Decimal {
	return decimal.NewFromInt(v).Div(hundred)
}

// Package jwt signs and verifies the counter vouchers handed to customers who choose to pay
// at the clinic desk.
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenMalformed        = errors.New("token is malformed")
	ErrTokenExpired          = errors.New("token is expired")
	ErrTokenNotValidYet      = errors.New("token is not yet valid")
	ErrTokenInvalid          = errors.New("token is invalid")
	ErrTokenSignatureInvalid = errors.New("token signature is invalid")
)

const voucherAudience = "counter"

// Manager issues and parses vouchers.
type Manager struct {
	keys   keys
	issuer string
}

func newManager(k keys, issuer string) *Manager {
	return &Manager{keys: k, issuer: issuer}
}

// Voucher identifies one pending offline payment.
type Voucher struct {
	PaymentID string
	InvoiceID string
	UserID    string
	Amount    string
	Currency  string
	Method    string
	ExpiresAt time.Time
}

type voucherClaims struct {
	jwt.RegisteredClaims
	InvoiceID string `json:"inv"`
	Amount    string `json:"amt"`
	Currency  string `json:"cur"`
	Method    string `json:"mth"`
}

// IssueVoucher signs v. The payment id becomes the token id and the customer its subject.
func (g *Manager) IssueVoucher(v Voucher, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &voucherClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        v.PaymentID,
			Subject:   v.UserID,
			Issuer:    g.issuer,
			Audience:  jwt.ClaimStrings{voucherAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		InvoiceID: v.InvoiceID,
		Amount:    v.Amount,
		Currency:  v.Currency,
		Method:    v.Method,
	}
	return jwt.NewWithClaims(g.keys.method, claims).SignedString(g.keys.sign)
}

// ParseVoucher validates the token and returns the voucher it carries.
func (g *Manager) ParseVoucher(tokenString string) (*Voucher, error) {
	token, err := jwt.ParseWithClaims(tokenString, &voucherClaims{}, g.keys.keyFunc,
		jwt.WithIssuer(g.issuer),
		jwt.WithAudience(voucherAudience),
		jwt.WithValidMethods([]string{g.keys.method.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return nil, ErrTokenMalformed
		} else if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		} else if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, ErrTokenNotValidYet
		} else if errors.Is(err, jwt.ErrSignatureInvalid) {
			return nil, ErrTokenSignatureInvalid
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*voucherClaims)
	if !ok || !token.Valid || claims.ID == "" {
		return nil, ErrTokenInvalid
	}
	return &Voucher{
		PaymentID: claims.ID,
		InvoiceID: claims.InvoiceID,
		UserID:    claims.Subject,
		Amount:    claims.Amount,
		Currency:  claims.Currency,
		Method:    claims.Method,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

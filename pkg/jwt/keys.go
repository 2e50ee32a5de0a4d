package jwt

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"
)

// keys pairs a signing method with the key material for both directions. For HMAC
// both keys are the shared secret.
type keys struct {
	method jwt.SigningMethod
	sign   any
	verify any
}

func (k keys) keyFunc(token *jwt.Token) (any, error) {
	if token.Method.Alg() != k.method.Alg() {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return k.verify, nil
}

// NewSymmetric returns a Manager signing with HS256.
func NewSymmetric(secret []byte, issuer string) (*Manager, error) {
	if len(secret) == 0 {
		return nil, errors.New("voucher secret cannot be empty")
	}
	return newManager(keys{method: jwt.SigningMethodHS256, sign: secret, verify: secret}, issuer), nil
}

// NewAsymmetric returns a Manager signing with RS256.
func NewAsymmetric(private *rsa.PrivateKey, public *rsa.PublicKey, issuer string) (*Manager, error) {
	if private == nil || public == nil {
		return nil, errors.New("both RSA keys are required")
	}
	return newManager(keys{method: jwt.SigningMethodRS256, sign: private, verify: public}, issuer), nil
}

// LoadRSA reads a PEM encoded key pair from disk.
func LoadRSA(privatePath, publicPath string) (*rsa.PrivateKey, *rsa.PublicKey, error) {
	raw, err := os.ReadFile(privatePath)
	if err != nil {
		return nil, nil, fmt.Errorf("read private key: %w", err)
	}
	private, err := jwt.ParseRSAPrivateKeyFromPEM(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("parse private key: %w", err)
	}
	if raw, err = os.ReadFile(publicPath); err != nil {
		return nil, nil, fmt.Errorf("read public key: %w", err)
	}
	public, err := jwt.ParseRSAPublicKeyFromPEM(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("parse public key: %w", err)
	}
	return private, public, nil
}

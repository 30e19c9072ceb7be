package credbroker

import (
	"crypto/rsa"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"
)

// Signer produces compact signed assertions from a claim set
type Signer interface {
	// Sign creates a signed compact serialization of the claims
	Sign(claims jwt.Claims) (string, error)
}

// RSASigner implements Signer using RSASSA-PKCS1-v1_5 over SHA-256 (RS256)
type RSASigner struct {
	privateKey *rsa.PrivateKey
}

// NewRSASigner creates a signer from an RSA private key
func NewRSASigner(privateKey *rsa.PrivateKey) *RSASigner {
	return &RSASigner{
		privateKey: privateKey,
	}
}

// Sign creates an RS256-signed compact assertion from the claims
func (s *RSASigner) Sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)

	signed, err := token.SignedString(s.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign assertion: %w", err)
	}
	return signed, nil
}

// PublicKey returns the public half of the signing key (verification, tests)
func (s *RSASigner) PublicKey() *rsa.PublicKey {
	return &s.privateKey.PublicKey
}

// LoadPrivateKeyFromPEM parses an RSA private key from PEM bytes.
// Accepts PKCS#1 and PKCS#8 encodings.
func LoadPrivateKeyFromPEM(pemBytes []byte) (*rsa.PrivateKey, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse RSA private key: %w", err)
	}
	return key, nil
}

// LoadPrivateKeyFromFile reads and parses an RSA private key PEM file
func LoadPrivateKeyFromFile(path string) (*rsa.PrivateKey, error) {
	pemBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %w", err)
	}
	return LoadPrivateKeyFromPEM(pemBytes)
}

package auth

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"

	jwt "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"

	"github.com/AbubakarMugha1/Authentication-and-Access-Control-for-a-Web-Application/internal/domain"
)

const (
	minSessionSecretLen = 32
	sessionKeyLen       = 32
	sessionKeyInfo      = "session-token"
)

// VerificationKey pairs the trusted issuer's key with the only algorithm accepted for it.
type VerificationKey struct {
	Method jwt.SigningMethod
	Key    any
}

// NewHMACVerificationKey builds a shared-secret key for HS256/384/512.
func NewHMACVerificationKey(alg string, secret []byte) (VerificationKey, error) {
	method, ok := jwt.GetSigningMethod(alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return VerificationKey{}, fmt.Errorf("algorithm %q is not an HMAC algorithm", alg)
	}
	if len(secret) == 0 {
		return VerificationKey{}, errors.New("issuer secret is empty")
	}
	return VerificationKey{Method: method, Key: secret}, nil
}

// LoadVerificationKey resolves the issuer key from either a shared secret or a PEM public key file.
func LoadVerificationKey(alg, secret, publicKeyFile string) (VerificationKey, error) {
	method := jwt.GetSigningMethod(alg)
	if method == nil {
		return VerificationKey{}, fmt.Errorf("unsupported algorithm %q", alg)
	}

	if _, ok := method.(*jwt.SigningMethodHMAC); ok {
		return NewHMACVerificationKey(alg, []byte(secret))
	}

	if publicKeyFile == "" {
		return VerificationKey{}, fmt.Errorf("algorithm %q requires a public key file", alg)
	}
	pemBytes, err := os.ReadFile(publicKeyFile)
	if err != nil {
		return VerificationKey{}, fmt.Errorf("read public key: %w", err)
	}

	var key any
	switch method.(type) {
	case *jwt.SigningMethodRSA:
		key, err = jwt.ParseRSAPublicKeyFromPEM(pemBytes)
	case *jwt.SigningMethodECDSA:
		key, err = jwt.ParseECPublicKeyFromPEM(pemBytes)
	case *jwt.SigningMethodEd25519:
		key, err = jwt.ParseEdPublicKeyFromPEM(pemBytes)
	default:
		return VerificationKey{}, fmt.Errorf("unsupported algorithm %q", alg)
	}
	if err != nil {
		return VerificationKey{}, fmt.Errorf("parse public key: %w", err)
	}
	return VerificationKey{Method: method, Key: key}, nil
}

// DeriveSessionKey expands the configured session secret into the HMAC key used for sessions.
func DeriveSessionKey(secret string) ([]byte, error) {
	if len(secret) < minSessionSecretLen {
		return nil, fmt.Errorf("%w: session secret must be at least %d bytes", domain.ErrSigningKeyUnavailable, minSessionSecretLen)
	}
	key := make([]byte, sessionKeyLen)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(sessionKeyInfo)), key); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSigningKeyUnavailable, err)
	}
	return key, nil
}

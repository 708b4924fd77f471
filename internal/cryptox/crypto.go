// Package cryptox wraps the symmetric and hashing primitives docseal uses
// outside the identity-based engine: bcrypt for passwords and one-time
// codes, numeric code generation, and AES-256-GCM sealing.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/dmitrijs2005/docseal/internal/common"
	"golang.org/x/crypto/bcrypt"
)

// ErrMismatch is returned by CompareSecret when the secret does not match.
var ErrMismatch = errors.New("secret does not match hash")

// MaxSecretBytes is the longest secret bcrypt accepts.
const MaxSecretBytes = 72

// HashSecret bcrypts a password or one-time code at the default cost.
func HashSecret(secret string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(h), nil
}

// CompareSecret checks secret against a bcrypt hash produced by HashSecret.
func CompareSecret(hash, secret string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return ErrMismatch
	default:
		return fmt.Errorf("bcrypt: %w", err)
	}
}

// GenerateNumericCode returns a uniformly random string of n decimal digits
// read from crypto/rand. Leading zeros are kept.
func GenerateNumericCode(n int) (string, error) {
	b := make([]byte, n)
	ten := big.NewInt(10)
	for i := range b {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		b[i] = byte('0' + d.Int64())
	}
	return string(b), nil
}

// IsNumericCode reports whether code is exactly n ASCII digits.
func IsNumericCode(code string, n int) bool {
	if len(code) != n {
		return false
	}
	for _, ch := range code {
		if ch < '0' || ch > '9' {
			return false
		}
	}
	return true
}

// Seal encrypts plaintext with AES-GCM under key, which must be 16, 24 or 32
// bytes. A fresh random nonce is generated and returned separately.
func Seal(key, plaintext, aad []byte) (ciphertext, nonce []byte, err error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}

	nonce = common.GenerateRandByteArray(aesgcm.NonceSize())
	ciphertext = aesgcm.Seal(nil, nonce, plaintext, aad)

	return ciphertext, nonce, nil
}

// Open reverses Seal. Any tampering with ciphertext, nonce or aad fails.
func Open(key, nonce, ciphertext, aad []byte) ([]byte, error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != aesgcm.NonceSize() {
		return nil, fmt.Errorf("nonce must be %d bytes, got %d", aesgcm.NonceSize(), len(nonce))
	}
	return aesgcm.Open(nil, nonce, ciphertext, aad)
}

// NonceSize is the GCM nonce length used by Seal.
func NonceSize() int {
	return 12
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

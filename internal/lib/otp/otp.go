// Package otp generates one-time codes and opaque reset tokens.
package otp

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

const Digits = 6

// NewCode returns a zero-padded numeric code of Digits length.
func NewCode() (string, error) {
	const op = "otp.NewCode"

	limit := big.NewInt(1_000_000)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Sprintf("%0*d", Digits, n.Int64()), nil
}

// NewToken returns 32 random bytes, hex encoded.
func NewToken() (string, error) {
	const op = "otp.NewToken"

	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return hex.EncodeToString(b), nil
}

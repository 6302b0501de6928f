// Package password hashes and checks account passwords with bcrypt.
package password

import (
	"fmt"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const MinLength = 8

func Hash(plain string) (string, error) {
	const op = "password.Hash"

	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(hashed), nil
}

// Compare returns nil when plain matches hash.
func Compare(hash, plain string) error {
	const op = "password.Compare"

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// IsStrong requires MinLength characters with at least one letter and one digit.
func IsStrong(plain string) bool {
	if len(plain) < MinLength {
		return false
	}
	hasLetter, hasDigit := false, false
	for _, c := range plain {
		switch {
		case unicode.IsLetter(c):
			hasLetter = true
		case unicode.IsDigit(c):
			hasDigit = true
		}
	}
	return hasLetter && hasDigit
}

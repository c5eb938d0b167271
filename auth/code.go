package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
)

var codeRange = big.NewInt(900000)

// NewCode returns a random six digit verification code.
func NewCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeRange)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", 100000+n.Int64()), nil
}

// codesEqual compares codes in constant time. An empty stored code never
// matches.
func codesEqual(stored, given string) bool {
	if stored == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(given)) == 1
}

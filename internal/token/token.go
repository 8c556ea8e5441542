// Package token generates and checks the opaque capability tokens that
// grant recipients access to proposals and firm offers.
package token

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"math/big"
	"time"
)

const (
	// Length is the byte length of generated tokens before encoding.
	Length = 32

	minLength = 16
	maxLength = 128
)

// New creates a new URL-safe random access token.
func New() (string, error) {
	b := make([]byte, Length)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate access token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Valid reports whether s looks like a token this package could have
// issued. It lets handlers reject garbage without a database round trip.
func Valid(s string) bool {
	if len(s) < minLength || len(s) > maxLength {
		return false
	}
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_', c == '=':
		default:
			return false
		}
	}
	return true
}

// Equal compares two tokens in constant time.
func Equal(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Redact shortens a token for logs.
func Redact(s string) string {
	if len(s) <= 6 {
		return "***"
	}
	return s[:6] + "..."
}

// ProposalNumber builds a human reference like SAA-2026-0142.
func ProposalNumber(now time.Time) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", fmt.Errorf("failed to generate proposal number: %w", err)
	}
	return fmt.Sprintf("SAA-%d-%04d", now.Year(), n.Int64()), nil
}

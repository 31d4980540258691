package util

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// GenerateNumericOTP returns a numeric one-time code of exactly the requested
// number of digits. Each digit is drawn independently from crypto/rand, so the
// result is uniform over the full range and keeps leading zeros.
func GenerateNumericOTP(digits int) (string, error) {
	if digits <= 0 {
		digits = 6
	}
	var builder strings.Builder
	builder.Grow(digits)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		builder.WriteByte(byte('0' + n.Int64()))
	}
	return builder.String(), nil
}

// IsNumericCode reports whether v consists solely of ASCII digits.
func IsNumericCode(v string) bool {
	if v == "" {
		return false
	}
	for i := 0; i < len(v); i++ {
		if v[i] < '0' || v[i] > '9' {
			return false
		}
	}
	return true
}
